package game

import (
	"sort"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/daifugo/internal/models"
)

// GameStore holds every live game, keyed by ID.
type GameStore struct {
	mu    sync.Mutex
	games map[uuid.UUID]*Game
}

func NewGameStore() *GameStore {
	return &GameStore{
		games: make(map[uuid.UUID]*Game),
	}
}

// AddGame registers g and removes it again once its last player leaves.
func (s *GameStore) AddGame(g *Game) {
	g.OnEmpty = s.DeleteGame
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[g.ID] = g
}

func (s *GameStore) GetGame(id uuid.UUID) (*Game, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, exists := s.games[id]
	return g, exists
}

func (s *GameStore) DeleteGame(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, id)
}

// ListGames returns the listings of every joinable or running game, ordered by title.
// Cancelled and stopped games are left out.
func (s *GameStore) ListGames() []models.GameListing {
	s.mu.Lock()
	games := make([]*Game, 0, len(s.games))
	for _, g := range s.games {
		games = append(games, g)
	}
	s.mu.Unlock()

	listings := make([]models.GameListing, 0, len(games))
	for _, g := range games {
		if g.State().Terminal() {
			continue
		}
		listings = append(listings, g.Listing())
	}
	sort.Slice(listings, func(i, j int) bool {
		if listings[i].Title != listings[j].Title {
			return listings[i].Title < listings[j].Title
		}
		return listings[i].ID.String() < listings[j].ID.String()
	})
	return listings
}

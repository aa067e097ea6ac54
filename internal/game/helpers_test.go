package game

import (
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jason-s-yu/daifugo/internal/cache"
	"github.com/jason-s-yu/daifugo/internal/models"
	"github.com/stretchr/testify/require"
)

// mockActionLog collects action records instead of publishing them.
type mockActionLog struct {
	mu      sync.Mutex
	records []cache.GameActionRecord
}

func (ml *mockActionLog) logFn(rec cache.GameActionRecord) {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	ml.records = append(ml.records, rec)
}

func (ml *mockActionLog) types() []string {
	ml.mu.Lock()
	defer ml.mu.Unlock()
	out := make([]string, len(ml.records))
	for i, r := range ml.records {
		out[i] = r.ActionType
	}
	return out
}

// setupTestGame creates a game with numPlayers seated; seat 0 is the owner.
func setupTestGame(t *testing.T, numPlayers int) (*Game, []uuid.UUID, *mockActionLog) {
	t.Helper()
	ids := make([]uuid.UUID, numPlayers)
	for i := range ids {
		ids[i] = uuid.New()
	}
	g, err := NewGame("test table", ids[0], "p0", "", DefaultRules())
	require.NoError(t, err)

	ml := &mockActionLog{}
	g.ActionLogFn = ml.logFn
	for i := 1; i < numPlayers; i++ {
		require.NoError(t, g.AddPlayer(ids[i], "p"+strconv.Itoa(i)))
	}
	return g, ids, ml
}

// playWithHands starts a first round with the given hands and seat 0 to lead.
func playWithHands(t *testing.T, g *Game, hands ...[]models.Card) {
	t.Helper()
	g.Mu.Lock()
	defer g.Mu.Unlock()
	require.Len(t, hands, len(g.players))
	g.round++
	for i, p := range g.players {
		p.setHand(hands[i])
	}
	g.beginPlay()
	g.turn = g.players[0].ID
}

// cards parses short card names such as "5C", "10H" or "2S".
func cards(t *testing.T, names ...string) []models.Card {
	t.Helper()
	out := make([]models.Card, 0, len(names))
	for _, n := range names {
		rankPart, suitPart := n[:len(n)-1], models.Suit(n[len(n)-1:])
		var r models.Rank
		switch strings.ToUpper(rankPart) {
		case "J":
			r = models.RankJack
		case "Q":
			r = models.RankQueen
		case "K":
			r = models.RankKing
		case "A":
			r = models.RankAce
		case "2":
			r = models.RankTwo
		default:
			v, err := strconv.Atoi(rankPart)
			require.NoError(t, err)
			r = models.Rank(v)
		}
		c := models.Card{Rank: r, Suit: suitPart}
		require.True(t, c.Valid(), "bad card %q", n)
		out = append(out, c)
	}
	return out
}

func (g *Game) playerAt(i int) *PlayerObject {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.players[i]
}

func (g *Game) currentTurn() uuid.UUID {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.turn
}

func (g *Game) tableCards() []models.Card {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return append([]models.Card{}, g.table...)
}

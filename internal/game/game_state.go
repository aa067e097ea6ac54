// internal/game/game_state.go
package game

import (
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/daifugo/internal/models"
)

// GameState is one player's view of the game. Only the requesting player's hand is
// included; everyone else is visible through their public PlayerData.
type GameState struct {
	GameID        uuid.UUID           `json:"gameId"`
	Title         string              `json:"title"`
	Owner         string              `json:"owner"`
	State         State               `json:"state"`
	Round         int                 `json:"round"`
	Hand          []models.Card       `json:"hand"`
	Table         []models.Card       `json:"table"`
	Turn          int                 `json:"turn"` // seat index of the player to act, -1 if none
	CurrentPlayer string              `json:"currentPlayer,omitempty"`
	Players       []models.PlayerData `json:"players"`
	Scores        []int               `json:"scores"` // running role score per seat, aligned with Players
	You           int                 `json:"you"`    // seat index of the requesting player
}

// HeartbeatResult tells the dispatcher how to answer a heartbeat.
type HeartbeatResult struct {
	// Evict is set when the game is over for good and the player must be removed.
	Evict bool
	// Reason is the terminal state that caused the eviction.
	Reason State
	// State is set when the player's view is stale.
	State *GameState
	// ServerTime is echoed back when there is nothing else to report.
	ServerTime int64
}

// StateFor returns id's current view and marks it as delivered.
func (g *Game) StateFor(id uuid.UUID) (GameState, error) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	p := g.playerByID(id)
	if p == nil {
		return GameState{}, ErrPlayerNotFound
	}
	return g.snapshot(p), nil
}

// Heartbeat answers a keep-alive from id that the client sent at sentMillis.
//
// A cancelled or stopped game asks for eviction. A stale view is answered with a fresh
// snapshot. Otherwise the round trip is recorded as the player's latency.
func (g *Game) Heartbeat(id uuid.UUID, sentMillis int64, now time.Time) (HeartbeatResult, error) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	p := g.playerByID(id)
	if p == nil {
		return HeartbeatResult{}, ErrPlayerNotFound
	}
	if g.state == StateCancelled {
		return HeartbeatResult{Evict: true, Reason: g.state}, nil
	}
	if p.stateUpdated {
		st := g.snapshot(p)
		return HeartbeatResult{State: &st}, nil
	}
	if g.state == StateStopped {
		return HeartbeatResult{Evict: true, Reason: g.state}, nil
	}

	nowMillis := now.UnixMilli()
	latency := int64(0)
	if sentMillis > 0 {
		latency = nowMillis - sentMillis
	}
	p.Data.SetLatency(latency)
	return HeartbeatResult{ServerTime: nowMillis}, nil
}

// MarkConnectionLost flags id as unreachable so the others see it.
func (g *Game) MarkConnectionLost(id uuid.UUID) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if p := g.playerByID(id); p != nil {
		p.Data.MarkConnectionLost()
		g.logAction(id, "connection_lost", nil)
		g.markAllUpdated()
	}
}

// snapshot builds p's view and clears its stale flag. Caller must hold g.Mu.
func (g *Game) snapshot(p *PlayerObject) GameState {
	st := GameState{
		GameID:  g.ID,
		Title:   g.Title,
		Owner:   g.ownerNick,
		State:   g.state,
		Round:   g.round,
		Hand:    append([]models.Card{}, p.Hand...),
		Table:   append([]models.Card{}, g.table...),
		Turn:    -1,
		Players: make([]models.PlayerData, len(g.players)),
		Scores:  make([]int, len(g.players)),
	}
	for i, o := range g.players {
		st.Players[i] = o.Data.Clone()
		st.Scores[i] = o.Data.Score()
		if o.ID == p.ID {
			st.You = i
		}
		if o.ID == g.turn && g.turn != uuid.Nil {
			st.Turn = i
			st.CurrentPlayer = o.Data.Nick
		}
	}
	p.stateUpdated = false
	return st
}

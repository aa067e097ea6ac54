// internal/handlers/game_server.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jason-s-yu/daifugo/internal/auth"
	"github.com/jason-s-yu/daifugo/internal/cache"
	"github.com/jason-s-yu/daifugo/internal/game"
	"github.com/sirupsen/logrus"
)

// ActionPublisher ships game action records to the history service.
type ActionPublisher interface {
	Publish(ctx context.Context, record cache.GameActionRecord) error
}

// GameServer holds the shared state every connection worker needs.
type GameServer struct {
	GameStore *game.GameStore
	Sessions  *SessionStore
	Tokens    *auth.TokenIssuer
	Rules     game.Rules
	Logger    *logrus.Logger

	// Actions receives every game action; nil disables the action log.
	Actions ActionPublisher

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewGameServer returns a server with empty stores and default timeouts.
func NewGameServer(logger *logrus.Logger, tokens *auth.TokenIssuer, rules game.Rules) *GameServer {
	return &GameServer{
		GameStore:    game.NewGameStore(),
		Sessions:     NewSessionStore(),
		Tokens:       tokens,
		Rules:        rules,
		Logger:       logger,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// actionLogFn returns the ActionLogFn installed on every new game. Publishing runs in its
// own goroutine so a slow Redis never holds a game lock.
func (gs *GameServer) actionLogFn() func(cache.GameActionRecord) {
	if gs.Actions == nil {
		return nil
	}
	return func(rec cache.GameActionRecord) {
		go func(rec cache.GameActionRecord) {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := gs.Actions.Publish(ctx, rec); err != nil {
				gs.Logger.WithError(err).WithFields(logrus.Fields{
					"game":   rec.GameID,
					"action": rec.ActionIndex,
				}).Warn("failed to publish game action")
			}
		}(rec)
	}
}

// ListGamesHandler serves GET /games: the lobby listing as JSON.
func ListGamesHandler(gs *GameServer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(gs.GameStore.ListGames()); err != nil {
			gs.Logger.WithError(err).Warn("failed to encode game list")
		}
	}
}

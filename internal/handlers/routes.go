package handlers

import (
	"net/http"

	"github.com/jason-s-yu/daifugo/internal/middleware"
)

// NewMux wires the websocket endpoint and the game listing.
func NewMux(gs *GameServer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", middleware.LogMiddleware(gs.Logger)(WSHandler(gs)))
	mux.Handle("/games", middleware.LogMiddleware(gs.Logger)(ListGamesHandler(gs)))
	return mux
}

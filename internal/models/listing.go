package models

import "github.com/google/uuid"

// GameListing is the lobby view of a game. It is derived from the game on request
// and never written back.
type GameListing struct {
	ID              uuid.UUID `json:"id"`
	Title           string    `json:"title"`
	Owner           string    `json:"owner"`
	NumberOfPlayers int       `json:"numberOfPlayers"`
	MaxPlayers      int       `json:"maxPlayers"`
	HasPassword     bool      `json:"hasPassword"`
	HasStarted      bool      `json:"hasStarted"`
}

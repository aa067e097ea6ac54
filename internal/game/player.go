package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/daifugo/internal/models"
)

// PlayerObject is a seated player: the session that owns the seat, its private hand and
// its public data.
type PlayerObject struct {
	ID   uuid.UUID
	Hand []models.Card
	Data models.PlayerData

	// stateUpdated is set whenever the game changes after this player's last snapshot.
	stateUpdated bool
}

func newPlayerObject(id uuid.UUID, nick string) *PlayerObject {
	return &PlayerObject{
		ID:           id,
		Hand:         []models.Card{},
		Data:         models.NewPlayerData(nick),
		stateUpdated: true,
	}
}

func (p *PlayerObject) setHand(hand []models.Card) {
	p.Hand = hand
	p.Data.NumberOfCards = len(hand)
}

// active reports whether the player is still playing the current round.
func (p *PlayerObject) active() bool {
	return !p.Data.OutOfRound
}

// contending reports whether the player may still act on the current trick.
func (p *PlayerObject) contending() bool {
	return !p.Data.OutOfRound && !p.Data.Passed
}

package models

import "errors"

// ErrAlreadyOut is returned when a finishing position is recorded twice in one round.
var ErrAlreadyOut = errors.New("player is already out of the round")

// LostConnectionLatency is the latency sentinel for a player whose connection was lost.
const LostConnectionLatency int64 = -1

// PlayerData is the publicly visible runtime state of a seated player.
// It is shared with every player in the game, so it never carries the hand itself.
type PlayerData struct {
	Nick           string `json:"nick"`
	Latency        int64  `json:"latency"`
	NumberOfCards  int    `json:"numberOfCards"`
	ConnectionLost bool   `json:"connectionLost"`
	Role           Role   `json:"role"`
	Passed         bool   `json:"passed"`
	OutOfRound     bool   `json:"outOfRound"`
	OutCount       int    `json:"outCount"`
	PreviousRoles  []Role `json:"previousRoles"`
	MustTrade      bool   `json:"mustTrade"`
}

// NewPlayerData returns the state of a freshly seated player.
func NewPlayerData(nick string) PlayerData {
	return PlayerData{
		Nick:          nick,
		Role:          RoleNeutral,
		PreviousRoles: []Role{},
	}
}

// Reset clears the round-scoped flags before a new round is played.
// Role history survives unless keepHistory is false.
func (p *PlayerData) Reset(keepHistory bool) {
	p.Role = RoleNeutral
	p.Passed = false
	p.OutOfRound = false
	p.OutCount = 0
	if !keepHistory {
		p.PreviousRoles = []Role{}
	}
}

// SetOutCount records the player's finishing position and marks them out of the round.
func (p *PlayerData) SetOutCount(n int) error {
	if p.OutOfRound {
		return ErrAlreadyOut
	}
	p.OutCount = n
	p.OutOfRound = true
	return nil
}

// SetLatency stores a measured round-trip time. Measurements are never negative:
// a negative value can only come from clock skew and is stored as zero.
func (p *PlayerData) SetLatency(ms int64) {
	if ms < 0 {
		ms = 0
	}
	p.Latency = ms
	p.ConnectionLost = false
}

// MarkConnectionLost stores the lost-connection sentinel.
func (p *PlayerData) MarkConnectionLost() {
	p.Latency = LostConnectionLatency
	p.ConnectionLost = true
}

// AssignRoleFewPlayers assigns the role for small games, where only the winner and the
// third player out are ranked. It reports whether the player must trade cards.
func (p *PlayerData) AssignRoleFewPlayers() bool {
	switch p.OutCount {
	case 1:
		p.Role = RolePresident
	case 3:
		p.Role = RoleBum
	default:
		p.Role = RoleNeutral
	}
	return p.recordRole()
}

// AssignRoleManyPlayers assigns the role for games of playerCount players.
// It reports whether the player must trade cards.
func (p *PlayerData) AssignRoleManyPlayers(playerCount int) bool {
	switch p.OutCount {
	case 1:
		p.Role = RolePresident
	case 2:
		p.Role = RoleVicePresident
	case playerCount - 1:
		p.Role = RoleViceBum
	case playerCount:
		p.Role = RoleBum
	default:
		p.Role = RoleNeutral
	}
	return p.recordRole()
}

func (p *PlayerData) recordRole() bool {
	p.MustTrade = p.Role != RoleNeutral
	p.PreviousRoles = append(p.PreviousRoles, p.Role)
	return p.MustTrade
}

// DoneTrading clears the trade obligation.
func (p *PlayerData) DoneTrading() {
	p.MustTrade = false
}

// Score sums the weights of every role the player has held.
func (p PlayerData) Score() int {
	score := 0
	for _, r := range p.PreviousRoles {
		score += r.Weight()
	}
	return score
}

// Clone returns a copy that shares no memory with p.
func (p PlayerData) Clone() PlayerData {
	c := p
	c.PreviousRoles = append([]Role{}, p.PreviousRoles...)
	return c
}

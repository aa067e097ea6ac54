package game

import "github.com/jason-s-yu/daifugo/internal/models"

// TradeCount returns how many cards a player holding role hands over at the start of the
// next round.
func TradeCount(role models.Role) int {
	switch role {
	case models.RolePresident, models.RoleBum:
		return 2
	case models.RoleVicePresident, models.RoleViceBum:
		return 1
	default:
		return 0
	}
}

// TradePartner returns the role that trades with role. Neutral players never trade.
func TradePartner(role models.Role) models.Role {
	switch role {
	case models.RolePresident:
		return models.RoleBum
	case models.RoleBum:
		return models.RolePresident
	case models.RoleVicePresident:
		return models.RoleViceBum
	case models.RoleViceBum:
		return models.RoleVicePresident
	default:
		return models.RoleNeutral
	}
}

// assignRole gives p its role once its finishing position is known.
// Caller must hold g.Mu.
func (g *Game) assignRole(p *PlayerObject) {
	if g.fewPlayers {
		p.Data.AssignRoleFewPlayers()
		return
	}
	p.Data.AssignRoleManyPlayers(g.roundSize)
}

package models

// Role is the social standing a player earns from their finishing position in a round.
// Roles are ordered from best to worst.
type Role string

const (
	RolePresident     Role = "PRESIDENT"
	RoleVicePresident Role = "VICE_PRESIDENT"
	RoleNeutral       Role = "NEUTRAL"
	RoleViceBum       Role = "VICE_BUM"
	RoleBum           Role = "BUM"
)

// Weight is the score a role contributes to a player's running total.
func (r Role) Weight() int {
	switch r {
	case RolePresident:
		return 2
	case RoleVicePresident:
		return 1
	case RoleViceBum:
		return -1
	case RoleBum:
		return -2
	}
	return 0
}

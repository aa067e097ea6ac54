// internal/game/game_rules.go
package game

import "fmt"

// Rules holds the per-game settings that tune seating and role assignment.
type Rules struct {
	MinPlayers        int  `json:"minPlayers"`        // players needed to start a round
	MaxPlayers        int  `json:"maxPlayers"`        // seats available
	FewPlayersMax     int  `json:"fewPlayersMax"`     // rounds with at most this many players skip the vice roles
	RetainRoleHistory bool `json:"retainRoleHistory"` // keep previous roles across rounds for scoring
}

// maxSeats keeps at least four cards in every hand.
const maxSeats = 13

// DefaultRules returns the standard settings: three to eight players, vice roles from four.
func DefaultRules() Rules {
	return Rules{
		MinPlayers:        3,
		MaxPlayers:        8,
		FewPlayersMax:     3,
		RetainRoleHistory: true,
	}
}

// Validate checks that the settings describe a playable game.
func (r Rules) Validate() error {
	if r.MinPlayers < 3 {
		return fmt.Errorf("%w: minPlayers must be at least 3", ErrInvalidRules)
	}
	if r.MaxPlayers < r.MinPlayers {
		return fmt.Errorf("%w: maxPlayers must not be below minPlayers", ErrInvalidRules)
	}
	if r.MaxPlayers > maxSeats {
		return fmt.Errorf("%w: maxPlayers must be at most %d", ErrInvalidRules, maxSeats)
	}
	if r.FewPlayersMax < 0 {
		return fmt.Errorf("%w: fewPlayersMax must be non-negative", ErrInvalidRules)
	}
	return nil
}

// Update overwrites the settings present in newRules, as decoded from a JSON object.
// Absent keys keep their old value. The result is validated.
func (r *Rules) Update(newRules map[string]interface{}) error {
	assignBool := func(field *bool, key string) error {
		if val, exists := newRules[key]; exists && val != nil {
			b, ok := val.(bool)
			if !ok {
				return fmt.Errorf("%w: invalid type for %s", ErrInvalidRules, key)
			}
			*field = b
		}
		return nil
	}

	assignInt := func(field *int, key string) error {
		if val, exists := newRules[key]; exists && val != nil {
			switch v := val.(type) {
			case float64:
				*field = int(v)
			case int:
				*field = v
			default:
				return fmt.Errorf("%w: invalid type for %s", ErrInvalidRules, key)
			}
		}
		return nil
	}

	updated := *r
	if err := assignInt(&updated.MinPlayers, "minPlayers"); err != nil {
		return err
	}
	if err := assignInt(&updated.MaxPlayers, "maxPlayers"); err != nil {
		return err
	}
	if err := assignInt(&updated.FewPlayersMax, "fewPlayersMax"); err != nil {
		return err
	}
	if err := assignBool(&updated.RetainRoleHistory, "retainRoleHistory"); err != nil {
		return err
	}
	if err := updated.Validate(); err != nil {
		return err
	}
	*r = updated
	return nil
}

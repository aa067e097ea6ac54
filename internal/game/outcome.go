package game

// Outcome reports what a game action did to the flow of play. It replaces control-flow
// exceptions: the dispatcher switches on it.
type Outcome int

const (
	// OutcomeContinue means play moved on to the next player.
	OutcomeContinue Outcome = iota
	// OutcomeTrickCleared means the table was cleared and a player leads a new trick.
	OutcomeTrickCleared
	// OutcomeRoundOver means every player but one went out; the game is FINISHED.
	OutcomeRoundOver
	// OutcomePlayerLeft means the session left its game and returns to the lobby.
	OutcomePlayerLeft
	// OutcomeDisconnected means the connection is gone and its worker should stop.
	OutcomeDisconnected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeContinue:
		return "continue"
	case OutcomeTrickCleared:
		return "trick_cleared"
	case OutcomeRoundOver:
		return "round_over"
	case OutcomePlayerLeft:
		return "player_left"
	case OutcomeDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

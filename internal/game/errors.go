package game

import "errors"

// Rule and protocol violations returned by Game methods. Callers wrap them with
// context; use errors.Is to classify.
var (
	ErrNotInProgress    = errors.New("game is not in progress")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrIllegalPlay      = errors.New("illegal play")
	ErrCardNotInHand    = errors.New("card not in hand")
	ErrCannotPass       = errors.New("cannot pass on an empty table")
	ErrNoTradePending   = errors.New("no trade pending")
	ErrWrongTradeCount  = errors.New("wrong number of cards to trade")
	ErrNotEnoughPlayers = errors.New("not enough players")
	ErrGameFull         = errors.New("game is full")
	ErrGameStarted      = errors.New("game already started")
	ErrGameOver         = errors.New("game is over")
	ErrPlayerNotFound   = errors.New("player not in game")
	ErrAlreadySeated    = errors.New("player already seated")
	ErrInvalidRules     = errors.New("invalid rules")
)

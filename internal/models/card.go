package models

import "strconv"

// Suit is one of the four French suits. Suits never affect card strength.
type Suit string

const (
	Clubs    Suit = "C"
	Diamonds Suit = "D"
	Hearts   Suit = "H"
	Spades   Suit = "S"
)

// Suits lists every suit in deal order.
var Suits = []Suit{Clubs, Diamonds, Hearts, Spades}

// Valid reports whether s is a known suit.
func (s Suit) Valid() bool {
	switch s {
	case Clubs, Diamonds, Hearts, Spades:
		return true
	}
	return false
}

// Rank is the strength of a card. Three is the weakest rank and Two the strongest.
type Rank int

const (
	RankThree Rank = 3
	RankFour  Rank = 4
	RankFive  Rank = 5
	RankSix   Rank = 6
	RankSeven Rank = 7
	RankEight Rank = 8
	RankNine  Rank = 9
	RankTen   Rank = 10
	RankJack  Rank = 11
	RankQueen Rank = 12
	RankKing  Rank = 13
	RankAce   Rank = 14
	RankTwo   Rank = 15
)

// LowestRank and HighestRank bound the rank order.
const (
	LowestRank  = RankThree
	HighestRank = RankTwo
)

// Valid reports whether r lies within the rank order.
func (r Rank) Valid() bool {
	return r >= LowestRank && r <= HighestRank
}

func (r Rank) String() string {
	switch r {
	case RankJack:
		return "J"
	case RankQueen:
		return "Q"
	case RankKing:
		return "K"
	case RankAce:
		return "A"
	case RankTwo:
		return "2"
	}
	return strconv.Itoa(int(r))
}

// Card is a single playing card. Cards are plain values; a deck holds each card exactly once.
type Card struct {
	Rank Rank `json:"rank"`
	Suit Suit `json:"suit"`
}

// Valid reports whether the card exists in a standard deck.
func (c Card) Valid() bool {
	return c.Rank.Valid() && c.Suit.Valid()
}

func (c Card) String() string {
	return c.Rank.String() + string(c.Suit)
}

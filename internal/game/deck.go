package game

import (
	"math/rand"

	"github.com/jason-s-yu/daifugo/internal/models"
)

// NewDeck returns the 52 cards of a standard deck in suit-major order.
func NewDeck() []models.Card {
	deck := make([]models.Card, 0, len(models.Suits)*int(models.HighestRank-models.LowestRank+1))
	for _, s := range models.Suits {
		for r := models.LowestRank; r <= models.HighestRank; r++ {
			deck = append(deck, models.Card{Rank: r, Suit: s})
		}
	}
	return deck
}

// shuffleDeck is the default shuffler.
func shuffleDeck(deck []models.Card) {
	rand.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
}

// Deal splits deck round-robin into n hands, starting with seat 0. Every card is dealt,
// so hands differ in size by at most one.
func Deal(deck []models.Card, n int) [][]models.Card {
	if n <= 0 {
		return nil
	}
	hands := make([][]models.Card, n)
	for i, c := range deck {
		hands[i%n] = append(hands[i%n], c)
	}
	for _, h := range hands {
		SortHand(h)
	}
	return hands
}

// internal/game/rules.go
package game

import (
	"fmt"
	"sort"

	"github.com/jason-s-yu/daifugo/internal/models"
)

// CheckPlay reports whether cards may be played onto table.
//
// A play is a non-empty group of cards of a single rank. On an empty table any group of
// one to four cards opens the trick and fixes its size; otherwise the group must match the
// table's size and strictly outrank it.
func CheckPlay(table, cards []models.Card) error {
	if len(cards) == 0 {
		return fmt.Errorf("%w: no cards played", ErrIllegalPlay)
	}
	rank := cards[0].Rank
	for _, c := range cards {
		if !c.Valid() {
			return fmt.Errorf("%w: invalid card %s", ErrIllegalPlay, c)
		}
		if c.Rank != rank {
			return fmt.Errorf("%w: cards must share one rank", ErrIllegalPlay)
		}
	}
	if len(cards) > len(models.Suits) {
		return fmt.Errorf("%w: at most %d cards per play", ErrIllegalPlay, len(models.Suits))
	}

	if len(table) == 0 {
		return nil
	}
	if len(cards) != len(table) {
		return fmt.Errorf("%w: must play %d card(s)", ErrIllegalPlay, len(table))
	}
	if rank <= table[0].Rank {
		return fmt.Errorf("%w: %s does not beat %s", ErrIllegalPlay, rank, table[0].Rank)
	}
	return nil
}

// IsBurn reports whether a play ends the trick at once: nothing beats the highest rank,
// and four of a kind cannot be matched.
func IsBurn(cards []models.Card) bool {
	if len(cards) == 0 {
		return false
	}
	return cards[0].Rank == models.HighestRank || len(cards) == len(models.Suits)
}

// ContainsAll reports whether hand holds every card in cards, counting duplicates.
func ContainsAll(hand, cards []models.Card) bool {
	counts := make(map[models.Card]int, len(hand))
	for _, c := range hand {
		counts[c]++
	}
	for _, c := range cards {
		if counts[c] == 0 {
			return false
		}
		counts[c]--
	}
	return true
}

// RemoveCards returns hand without cards. Each card in cards removes one matching card.
func RemoveCards(hand, cards []models.Card) []models.Card {
	toRemove := make(map[models.Card]int, len(cards))
	for _, c := range cards {
		toRemove[c]++
	}
	out := make([]models.Card, 0, len(hand))
	for _, c := range hand {
		if toRemove[c] > 0 {
			toRemove[c]--
			continue
		}
		out = append(out, c)
	}
	return out
}

// SortHand orders cards by rank, then suit.
func SortHand(hand []models.Card) {
	sort.Slice(hand, func(i, j int) bool {
		if hand[i].Rank != hand[j].Rank {
			return hand[i].Rank < hand[j].Rank
		}
		return suitIndex(hand[i].Suit) < suitIndex(hand[j].Suit)
	})
}

func suitIndex(s models.Suit) int {
	for i, v := range models.Suits {
		if v == s {
			return i
		}
	}
	return len(models.Suits)
}

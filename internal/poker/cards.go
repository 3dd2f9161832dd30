package poker

import (
	crand "crypto/rand"
	"fmt"
	"math/rand/v2"
	"strings"
)

const (
	cardRanks = "23456789TJQKA"
	cardSuits = "shdc"
)

// Shuffler permutes n elements through swap, with the same contract as
// rand.Shuffle.
type Shuffler func(n int, swap func(i, j int))

// NewShuffler returns a shuffler backed by a ChaCha8 stream seeded from
// crypto/rand.
func NewShuffler() Shuffler {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic(fmt.Sprintf("poker: seeding shuffler: %v", err))
	}
	return rand.New(rand.NewChaCha8(seed)).Shuffle
}

// NewDeck returns the 52 cards in a fixed order.
func NewDeck() []string {
	deck := make([]string, 0, len(cardRanks)*len(cardSuits))
	for _, s := range cardSuits {
		for _, r := range cardRanks {
			deck = append(deck, string(r)+string(s))
		}
	}
	return deck
}

// ShuffledDeck returns a fresh deck permuted by shuffle.
func ShuffledDeck(shuffle Shuffler) []string {
	deck := NewDeck()
	shuffle(len(deck), func(i, j int) { deck[i], deck[j] = deck[j], deck[i] })
	return deck
}

// ValidCard reports whether c is a rank+suit pair like "Th" or "2c".
func ValidCard(c string) bool {
	return len(c) == 2 && strings.IndexByte(cardRanks, c[0]) >= 0 && strings.IndexByte(cardSuits, c[1]) >= 0
}

// Deal pops n cards off the top of the deck.
func Deal(deck []string, n int) (dealt, rest []string, err error) {
	if n > len(deck) {
		return nil, deck, fmt.Errorf("deal %d from %d cards: deck exhausted", n, len(deck))
	}
	dealt = append([]string(nil), deck[:n]...)
	return dealt, deck[n:], nil
}

package poker

import (
	"fmt"

	eval "github.com/chehsunliu/poker"
)

// HandRank is an evaluated 5-of-7 hand. Lower Value is stronger.
type HandRank struct {
	Value int32  `json:"value"`
	Name  string `json:"name"`
}

// Beats reports whether r is strictly stronger than o.
func (r HandRank) Beats(o HandRank) bool { return r.Value < o.Value }

// Evaluate ranks the best five-card hand out of hole and board cards.
func Evaluate(hole, board []string) (HandRank, error) {
	if n := len(hole) + len(board); n < 5 || n > 7 {
		return HandRank{}, fmt.Errorf("%w: need 5 to 7 cards, got %d", ErrInvalidCard, n)
	}
	cards := make([]eval.Card, 0, len(hole)+len(board))
	seen := make(map[string]bool, 7)
	for _, group := range [][]string{hole, board} {
		for _, c := range group {
			if !ValidCard(c) {
				return HandRank{}, fmt.Errorf("%w: %q", ErrInvalidCard, c)
			}
			if seen[c] {
				return HandRank{}, fmt.Errorf("%w: %q dealt twice", ErrInvalidCard, c)
			}
			seen[c] = true
			cards = append(cards, eval.NewCard(c))
		}
	}
	v := eval.Evaluate(cards)
	return HandRank{Value: v, Name: eval.RankString(v)}, nil
}

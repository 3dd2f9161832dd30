package poker

import (
	"fmt"
	"sort"
)

// Contribution is what one seat put into the pot over the whole hand.
type Contribution struct {
	Seat   int
	Amount int64
	Folded bool
}

// Pot is the main pot or a side pot. Eligible lists the non-folded seats
// that can win it, in seat order.
type Pot struct {
	Amount   int64 `json:"amount"`
	Eligible []int `json:"eligible"`
}

// Contributions returns the hand totals of every dealt-in seat.
func (h *HandState) Contributions() []Contribution {
	out := make([]Contribution, 0, len(h.Seats))
	for _, s := range h.Seats {
		out = append(out, Contribution{Seat: s.Seat, Amount: s.HandBet, Folded: s.Folded})
	}
	return out
}

// BuildPots splits contributions into tiers at every distinct all-in level.
// Adjacent tiers with the same eligible seats are merged, and chips nobody
// remaining can win roll into the tier below.
func BuildPots(contribs []Contribution) []Pot {
	var levels []int64
	seen := map[int64]bool{}
	for _, c := range contribs {
		if c.Amount > 0 && !seen[c.Amount] {
			seen[c.Amount] = true
			levels = append(levels, c.Amount)
		}
	}
	sort.Slice(levels, func(i, j int) bool { return levels[i] < levels[j] })

	var pots []Pot
	var prev int64
	for _, lvl := range levels {
		var p Pot
		for _, c := range contribs {
			if c.Amount > prev {
				p.Amount += min(c.Amount, lvl) - prev
			}
			if !c.Folded && c.Amount >= lvl {
				p.Eligible = append(p.Eligible, c.Seat)
			}
		}
		prev = lvl
		sort.Ints(p.Eligible)

		if n := len(pots); n > 0 && (len(p.Eligible) == 0 || sameSeats(pots[n-1].Eligible, p.Eligible)) {
			pots[n-1].Amount += p.Amount
			continue
		}
		pots = append(pots, p)
	}
	return pots
}

func sameSeats(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Distribute awards every pot to its best eligible hand. Ties split evenly
// and the odd chip goes to the first winner clockwise from the dealer. A pot
// with a single eligible seat needs no rank.
func Distribute(pots []Pot, ranks map[int]HandRank, dealer int) (map[int]int64, error) {
	won := make(map[int]int64)
	for i, p := range pots {
		if len(p.Eligible) == 0 {
			return nil, fmt.Errorf("pot %d of %d chips has no eligible seat", i, p.Amount)
		}
		if len(p.Eligible) == 1 {
			won[p.Eligible[0]] += p.Amount
			continue
		}
		var winners []int
		var best HandRank
		for _, seat := range p.Eligible {
			r, ok := ranks[seat]
			if !ok {
				return nil, fmt.Errorf("pot %d: seat %d has no evaluated hand", i, seat)
			}
			switch {
			case len(winners) == 0 || r.Beats(best):
				best = r
				winners = []int{seat}
			case r.Value == best.Value:
				winners = append(winners, seat)
			}
		}
		sort.Slice(winners, func(a, b int) bool {
			return clockwise(dealer, winners[a]) < clockwise(dealer, winners[b])
		})
		share := p.Amount / int64(len(winners))
		rem := p.Amount % int64(len(winners))
		for j, seat := range winners {
			won[seat] += share
			if j == 0 {
				won[seat] += rem
			}
		}
	}
	return won, nil
}

// clockwise is the distance from the seat after dealer to seat.
func clockwise(dealer, seat int) int {
	if seat > dealer {
		return seat - dealer
	}
	return seat - dealer + 1<<16
}

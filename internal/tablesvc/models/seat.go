package models

import (
	"database/sql"
	"time"
)

// Seat is one position at a table. The per-hand fields are caches of the
// action log and are rewritten after every applied action.
type Seat struct {
	TableID    int64         `json:"table_id"`
	SeatNo     int           `json:"seat_no"`
	UserID     sql.NullInt64 `json:"user_id"`
	Stack      int64         `json:"stack"`
	SittingOut bool          `json:"sitting_out"`

	InHand    bool     `json:"in_hand"`
	Folded    bool     `json:"folded"`
	AllIn     bool     `json:"all_in"`
	StreetBet int64    `json:"street_bet"`
	HandBet   int64    `json:"hand_bet"`
	HoleCards []string `json:"-"`

	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Seat) Occupied() bool { return s.UserID.Valid }

// Eligible reports whether the seat can be dealt into the next hand.
func (s *Seat) Eligible() bool { return s.Occupied() && !s.SittingOut && s.Stack > 0 }

// ClearHand resets the per-hand caches.
func (s *Seat) ClearHand() {
	s.InHand, s.Folded, s.AllIn = false, false, false
	s.StreetBet, s.HandBet = 0, 0
	s.HoleCards = nil
}

func (s *Seat) Clone() *Seat {
	c := *s
	c.HoleCards = append([]string(nil), s.HoleCards...)
	return &c
}

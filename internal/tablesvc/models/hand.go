package models

import (
	"database/sql"
	"time"

	"github.com/avvvet/poker-services/internal/poker"
)

type Hand struct {
	ID             int64             `json:"id"`
	TableID        int64             `json:"table_id"`
	HandNo         int64             `json:"hand_no"`
	DealerSeat     int               `json:"dealer_seat"`
	SmallBlindSeat int               `json:"small_blind_seat"`
	BigBlindSeat   int               `json:"big_blind_seat"`
	SmallBlind     int64             `json:"small_blind"`
	BigBlind       int64             `json:"big_blind"`
	Street         poker.Street      `json:"street"`
	ActingSeat     sql.NullInt32     `json:"acting_seat"`
	CurrentBet     int64             `json:"current_bet"`
	MinRaise       int64             `json:"min_raise"`
	Pot            int64             `json:"pot"`
	Board          []string          `json:"board"`
	Deck           []string          `json:"-"`
	StartingStacks []poker.SeatStart `json:"starting_stacks"`
	ActionCount    int               `json:"action_count"`
	TurnStartedAt  time.Time         `json:"turn_started_at"`
	Voided         bool              `json:"voided"`
	StartedAt      time.Time         `json:"started_at"`
	EndedAt        sql.NullTime      `json:"ended_at"`
}

// Start is the input the action log is replayed against.
func (h *Hand) Start() poker.HandStart {
	return poker.HandStart{
		Dealer:         h.DealerSeat,
		SmallBlindSeat: h.SmallBlindSeat,
		BigBlindSeat:   h.BigBlindSeat,
		SmallBlind:     h.SmallBlind,
		BigBlind:       h.BigBlind,
		Seats:          append([]poker.SeatStart(nil), h.StartingStacks...),
	}
}

// Acting returns the acting seat or poker.NoSeat.
func (h *Hand) Acting() int {
	if !h.ActingSeat.Valid {
		return poker.NoSeat
	}
	return int(h.ActingSeat.Int32)
}

func (h *Hand) SetActing(seat int) {
	if seat == poker.NoSeat {
		h.ActingSeat = sql.NullInt32{}
		return
	}
	h.ActingSeat = sql.NullInt32{Int32: int32(seat), Valid: true}
}

func (h *Hand) Complete() bool { return h.Street == poker.StreetComplete }

func (h *Hand) Clone() *Hand {
	c := *h
	c.Board = append([]string(nil), h.Board...)
	c.Deck = append([]string(nil), h.Deck...)
	c.StartingStacks = append([]poker.SeatStart(nil), h.StartingStacks...)
	return &c
}

// Action is a persisted log row.
type Action struct {
	HandID int64 `json:"hand_id"`
	poker.Action
	CreatedAt time.Time `json:"created_at"`
}

// Result is written once per seat when a hand is settled.
type Result struct {
	HandID    int64    `json:"hand_id"`
	SeatNo    int      `json:"seat_no"`
	UserID    int64    `json:"user_id"`
	HoleCards []string `json:"hole_cards"`
	Won       int64    `json:"won"`
	HandRank  string   `json:"hand_rank,omitempty"`
}

// Snapshot is everything a viewer needs to render a table. Hand is the
// current hand or, between hands, the last one played.
type Snapshot struct {
	Table   *Table
	Seats   []*Seat
	Hand    *Hand
	Actions []Action
	Results []Result
}

// SeatOf returns the seat held by userID.
func (s *Snapshot) SeatOf(userID int64) *Seat {
	for _, seat := range s.Seats {
		if seat.UserID.Valid && seat.UserID.Int64 == userID {
			return seat
		}
	}
	return nil
}

// LogActions strips the persistence fields.
func LogActions(rows []Action) []poker.Action {
	out := make([]poker.Action, len(rows))
	for i, r := range rows {
		out[i] = r.Action
	}
	return out
}

package models

import (
	"database/sql"
	"time"
)

const (
	TableWaiting = "waiting"
	TableInHand  = "in_hand"
	TableClosed  = "closed"
)

const (
	MinCapacity = 2
	MaxCapacity = 10
)

type Table struct {
	ID              int64         `json:"id"`
	Name            string        `json:"name"`
	Capacity        int           `json:"capacity"`
	SmallBlind      int64         `json:"small_blind"`
	BigBlind        int64         `json:"big_blind"`
	Status          string        `json:"status"`
	CurrentHandID   sql.NullInt64 `json:"current_hand_id"`
	HandCount       int64         `json:"hand_count"`
	DealerSeat      int           `json:"dealer_seat"` // -1 until the first hand
	Version         int64         `json:"version"`
	LastActivityAt  time.Time     `json:"last_activity_at"`
	LastHandEndedAt sql.NullTime  `json:"last_hand_ended_at"`
	CreatedAt       time.Time     `json:"created_at"`
}

func (t *Table) Closed() bool { return t.Status == TableClosed }

func (t *Table) Clone() *Table {
	c := *t
	return &c
}

// Package archive keeps a replayable history of finished hands.
package archive

import (
	"time"

	"github.com/avvvet/poker-services/internal/comm"
	"github.com/avvvet/poker-services/internal/poker"
)

// HandRecord is one archived hand.
type HandRecord struct {
	HandID      int64             `bson:"_id"`
	TableID     int64             `bson:"table_id"`
	HandNo      int64             `bson:"hand_no"`
	Start       poker.HandStart   `bson:"start"`
	Board       []string          `bson:"board"`
	Actions     []poker.Action    `bson:"actions"`
	Frames      []FrameRecord     `bson:"frames"`
	Payouts     []comm.Payout     `bson:"payouts"`
	Results     []comm.SeatResult `bson:"results"`
	Pot         int64             `bson:"pot"`
	PotBB       string            `bson:"pot_bb"`
	Voided      bool              `bson:"voided"`
	ReplayError string            `bson:"replay_error,omitempty"`
	StartedAt   time.Time         `bson:"started_at"`
	EndedAt     time.Time         `bson:"ended_at"`
	ArchivedAt  time.Time         `bson:"archived_at"`
	ExpiresAt   time.Time         `bson:"expires_at"`
}

// FrameRecord is the table after one action, flattened for storage.
type FrameRecord struct {
	Seq        int     `bson:"seq"`
	Seat       int     `bson:"seat"`
	Kind       string  `bson:"kind"`
	Amount     int64   `bson:"amount"`
	Street     string  `bson:"street"`
	Pot        int64   `bson:"pot"`
	CurrentBet int64   `bson:"current_bet"`
	ActingSeat int     `bson:"acting_seat"`
	Stacks     []int64 `bson:"stacks"` // in seat order
}

// NewRecord builds the archive entry for ev. A log that does not replay
// is still archived with the frames that did and the replay error.
func NewRecord(ev comm.HandCompleted, ttl time.Duration, now time.Time) *HandRecord {
	rec := &HandRecord{
		HandID:     ev.HandID,
		TableID:    ev.TableID,
		HandNo:     ev.HandNo,
		Start:      ev.Start,
		Board:      ev.Board,
		Actions:    ev.Actions,
		Payouts:    ev.Payouts,
		Results:    ev.Results,
		Pot:        ev.Pot,
		PotBB:      comm.PotInBigBlinds(ev.Pot, ev.Start.BigBlind),
		Voided:     ev.Voided,
		StartedAt:  ev.StartedAt,
		EndedAt:    ev.EndedAt,
		ArchivedAt: now,
		ExpiresAt:  now.Add(ttl),
	}

	frames, err := poker.ReplaySteps(ev.Start, ev.Actions)
	if err != nil {
		rec.ReplayError = err.Error()
	}
	for _, f := range frames {
		fr := FrameRecord{
			Seq:        f.Action.Seq,
			Seat:       f.Action.Seat,
			Kind:       string(f.Action.Kind),
			Amount:     f.Action.Amount,
			Street:     f.State.Street.String(),
			Pot:        f.State.Pot,
			CurrentBet: f.State.CurrentBet,
			ActingSeat: f.State.ActingSeat,
		}
		for _, s := range f.State.Seats {
			fr.Stacks = append(fr.Stacks, s.Stack)
		}
		rec.Frames = append(rec.Frames, fr)
	}
	return rec
}

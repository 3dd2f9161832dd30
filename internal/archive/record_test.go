package archive

import (
	"testing"
	"time"

	"github.com/avvvet/poker-services/internal/comm"
	"github.com/avvvet/poker-services/internal/poker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func headsUp() poker.HandStart {
	return poker.HandStart{
		Dealer: 0, SmallBlindSeat: 0, BigBlindSeat: 1, SmallBlind: 5, BigBlind: 10,
		Seats: []poker.SeatStart{{Seat: 0, Stack: 1000}, {Seat: 1, Stack: 1000}},
	}
}

// playedLog drives a real hand so the log is one the engine produced.
func playedLog(t *testing.T, start poker.HandStart, moves ...poker.Move) []poker.Action {
	t.Helper()
	h, err := poker.NewHand(start)
	require.NoError(t, err)
	var out []poker.Action
	for _, m := range append([]poker.Move{{Seat: 0, Kind: poker.ActionPostSB}, {Seat: 1, Kind: poker.ActionPostBB}}, moves...) {
		a, err := h.Act(m)
		require.NoError(t, err, "%+v", m)
		out = append(out, a)
	}
	return out
}

func TestNewRecord(t *testing.T) {
	start := headsUp()
	actions := playedLog(t, start, poker.Move{Seat: 0, Kind: poker.ActionRaise, Amount: 25}, poker.Move{Seat: 1, Kind: poker.ActionFold})
	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	rec := NewRecord(comm.HandCompleted{
		TableID: 3, HandID: 77, HandNo: 4, Start: start, Actions: actions, Pot: 40,
		Payouts: []comm.Payout{{SeatNo: 0, UserID: 1, Amount: 40}},
	}, 24*time.Hour, now)

	assert.Equal(t, int64(77), rec.HandID)
	assert.Equal(t, "4.00", rec.PotBB)
	assert.Empty(t, rec.ReplayError)
	assert.Equal(t, now.Add(24*time.Hour), rec.ExpiresAt)
	require.Len(t, rec.Frames, 4)

	last := rec.Frames[3]
	assert.Equal(t, "fold", last.Kind)
	assert.Equal(t, "complete", last.Street)
	assert.Equal(t, int64(40), last.Pot)
	assert.Equal(t, []int64{970, 990}, last.Stacks)

	raise := rec.Frames[2]
	assert.Equal(t, int64(30), raise.CurrentBet)
	assert.Equal(t, 1, raise.ActingSeat)
}

func TestNewRecordKeepsBrokenLog(t *testing.T) {
	start := headsUp()
	actions := playedLog(t, start, poker.Move{Seat: 0, Kind: poker.ActionCall})
	actions[2].Amount = 50

	rec := NewRecord(comm.HandCompleted{HandID: 9, Start: start, Actions: actions, Voided: true}, time.Hour, time.Now())
	assert.NotEmpty(t, rec.ReplayError)
	assert.Len(t, rec.Frames, 2)
	assert.True(t, rec.Voided)
}

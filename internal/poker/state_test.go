package poker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func headsUp(t *testing.T) *HandState {
	t.Helper()
	h, err := NewHand(HandStart{
		Dealer: 0, SmallBlindSeat: 0, BigBlindSeat: 1,
		SmallBlind: 5, BigBlind: 10,
		Seats: []SeatStart{{Seat: 0, Stack: 1000}, {Seat: 1, Stack: 1000}},
	})
	require.NoError(t, err)
	return h
}

func postBlinds(t *testing.T, h *HandState) {
	t.Helper()
	_, err := h.Act(Move{Seat: h.SmallBlindSeat, Kind: ActionPostSB})
	require.NoError(t, err)
	_, err = h.Act(Move{Seat: h.BigBlindSeat, Kind: ActionPostBB})
	require.NoError(t, err)
}

func mustAct(t *testing.T, h *HandState, seat int, kind ActionKind, amount int64) Action {
	t.Helper()
	a, err := h.Act(Move{Seat: seat, Kind: kind, Amount: amount})
	require.NoError(t, err, "seat %d %s %d", seat, kind, amount)
	require.True(t, h.Conserved(), "chips leaked after seq %d", a.Seq)
	return a
}

func TestHeadsUpBlindsThenCallAdvancesToFlop(t *testing.T) {
	h := headsUp(t)
	postBlinds(t, h)

	assert.Equal(t, int64(15), h.Pot)
	assert.Equal(t, 0, h.ActingSeat)
	assert.Equal(t, int64(5), h.ToCall(0))

	a := mustAct(t, h, 0, ActionCall, 0)
	assert.Equal(t, int64(5), a.Amount)
	assert.Equal(t, int64(20), h.Pot)
	assert.Equal(t, int64(990), h.Seat(0).Stack)
	assert.Equal(t, int64(990), h.Seat(1).Stack)
	assert.Equal(t, StreetFlop, h.Street)
	assert.Equal(t, int64(0), h.Seat(0).StreetBet)
	assert.Equal(t, int64(0), h.Seat(1).StreetBet)
	assert.Equal(t, int64(0), h.CurrentBet)
	assert.Equal(t, int64(10), h.MinRaise)
	assert.Equal(t, 1, h.ActingSeat, "big blind acts first after the flop heads-up")
}

func TestFoldOnRiverCompletesHand(t *testing.T) {
	h := headsUp(t)
	postBlinds(t, h)
	mustAct(t, h, 0, ActionCall, 0)
	for _, street := range []Street{StreetFlop, StreetTurn} {
		require.Equal(t, street, h.Street)
		mustAct(t, h, 1, ActionCheck, 0)
		mustAct(t, h, 0, ActionCheck, 0)
	}
	require.Equal(t, StreetRiver, h.Street)
	mustAct(t, h, 1, ActionBet, 20)
	mustAct(t, h, 0, ActionFold, 0)

	assert.Equal(t, StreetComplete, h.Street)
	assert.Equal(t, NoSeat, h.ActingSeat)
	assert.Equal(t, []int{1}, h.Remaining())
	assert.Equal(t, int64(40), h.Pot)
}

func TestRejectionsDoNotMutate(t *testing.T) {
	h := headsUp(t)

	_, err := h.Act(Move{Seat: 0, Kind: ActionCall})
	assert.ErrorIs(t, err, RejectIllegalAction, "blinds pending")

	postBlinds(t, h)
	before := h.Clone()

	cases := []struct {
		name string
		move Move
		want Rejection
	}{
		{"out of turn", Move{Seat: 1, Kind: ActionCheck}, RejectNotYourTurn},
		{"unknown seat", Move{Seat: 7, Kind: ActionFold}, RejectSeatInactive},
		{"check facing bet", Move{Seat: 0, Kind: ActionCheck}, RejectIllegalAction},
		{"bet facing bet", Move{Seat: 0, Kind: ActionBet, Amount: 50}, RejectIllegalAction},
		{"wrong call amount", Move{Seat: 0, Kind: ActionCall, Amount: 3}, RejectIllegalAmount},
		{"raise below minimum", Move{Seat: 0, Kind: ActionRaise, Amount: 10}, RejectIllegalAmount},
		{"raise above stack", Move{Seat: 0, Kind: ActionRaise, Amount: 5000}, RejectIllegalAmount},
		{"partial all in", Move{Seat: 0, Kind: ActionAllIn, Amount: 100}, RejectIllegalAmount},
		{"negative amount", Move{Seat: 0, Kind: ActionFold, Amount: -1}, RejectIllegalAmount},
		{"unknown kind", Move{Seat: 0, Kind: "shove"}, RejectIllegalAction},
		{"blind after blinds", Move{Seat: 0, Kind: ActionPostSB}, RejectIllegalAction},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := h.Act(tc.move)
			r, ok := AsRejection(err)
			require.True(t, ok, "got %v", err)
			assert.Equal(t, tc.want, r)
			assert.Equal(t, before, h)
		})
	}
}

func TestMinRaiseTracksLastFullRaise(t *testing.T) {
	h := headsUp(t)
	postBlinds(t, h)

	// 5 more to call plus 30 makes it 40, a raise of 30
	mustAct(t, h, 0, ActionRaise, 35)
	assert.Equal(t, int64(40), h.CurrentBet)
	assert.Equal(t, int64(30), h.MinRaise)

	_, err := h.Act(Move{Seat: 1, Kind: ActionRaise, Amount: 50})
	assert.ErrorIs(t, err, RejectIllegalAmount)

	mustAct(t, h, 1, ActionRaise, 60)
	assert.Equal(t, int64(70), h.CurrentBet)
	assert.Equal(t, 0, h.ActingSeat)
}

func TestShortStackCallIsAllIn(t *testing.T) {
	h, err := NewHand(HandStart{
		Dealer: 0, SmallBlindSeat: 1, BigBlindSeat: 2,
		SmallBlind: 5, BigBlind: 10,
		Seats: []SeatStart{{Seat: 0, Stack: 1000}, {Seat: 1, Stack: 1000}, {Seat: 2, Stack: 300}},
	})
	require.NoError(t, err)
	postBlinds(t, h)

	require.Equal(t, 0, h.ActingSeat)
	mustAct(t, h, 0, ActionRaise, 500)
	mustAct(t, h, 1, ActionFold, 0)
	a := mustAct(t, h, 2, ActionCall, 0)

	assert.Equal(t, ActionAllIn, a.Kind)
	assert.Equal(t, int64(290), a.Amount)
	assert.True(t, h.Seat(2).AllIn)
	assert.Equal(t, StreetShowdown, h.Street, "nobody left to bet against")
}

func TestNewHandRejectsBadStart(t *testing.T) {
	_, err := NewHand(HandStart{SmallBlind: 5, BigBlind: 10, Seats: []SeatStart{{Seat: 0, Stack: 10}}})
	assert.ErrorIs(t, err, ErrInvalidStart)

	_, err = NewHand(HandStart{
		Dealer: 0, SmallBlindSeat: 0, BigBlindSeat: 3, SmallBlind: 5, BigBlind: 10,
		Seats: []SeatStart{{Seat: 0, Stack: 10}, {Seat: 1, Stack: 10}},
	})
	assert.ErrorIs(t, err, ErrInvalidStart)
}

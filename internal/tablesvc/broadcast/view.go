package broadcast

import (
	"time"

	"github.com/avvvet/poker-services/internal/comm"
	"github.com/avvvet/poker-services/internal/poker"
	"github.com/avvvet/poker-services/internal/tablesvc/models"
)

// BuildGameState renders snap for one viewer. Hole cards are only shown
// for the viewer's own seat until the hand is over, then for every seat
// that reached the end without folding.
func BuildGameState(snap *models.Snapshot, viewerID int64, turnRemaining time.Duration) comm.GameState {
	t := snap.Table
	gs := comm.GameState{
		Table: comm.TableView{
			ID:         t.ID,
			Name:       t.Name,
			Capacity:   t.Capacity,
			SmallBlind: t.SmallBlind,
			BigBlind:   t.BigBlind,
			Status:     t.Status,
			HandCount:  t.HandCount,
			Version:    t.Version,
		},
		Seats: make([]*comm.SeatView, t.Capacity),
	}

	reveal := snap.Hand != nil && snap.Hand.Street.Terminal() && !snap.Hand.Voided
	var viewer *models.Seat
	if viewerID != 0 {
		viewer = snap.SeatOf(viewerID)
	}

	for _, seat := range snap.Seats {
		if !seat.Occupied() || seat.SeatNo < 0 || seat.SeatNo >= t.Capacity {
			continue
		}
		sv := &comm.SeatView{
			SeatNo:     seat.SeatNo,
			UserID:     seat.UserID.Int64,
			Stack:      seat.Stack,
			SittingOut: seat.SittingOut,
			InHand:     seat.InHand,
			Folded:     seat.Folded,
			AllIn:      seat.AllIn,
			StreetBet:  seat.StreetBet,
			HandBet:    seat.HandBet,
			IsViewer:   seat == viewer,
		}
		if seat.InHand && (seat == viewer || (reveal && !seat.Folded)) {
			sv.HoleCards = append([]string(nil), seat.HoleCards...)
		}
		gs.Seats[seat.SeatNo] = sv
	}
	if viewer != nil {
		no := viewer.SeatNo
		gs.ViewerSeat = &no
	}
	if snap.Hand != nil {
		gs.Hand = handView(snap, viewer, turnRemaining)
	}
	return gs
}

func handView(snap *models.Snapshot, viewer *models.Seat, turnRemaining time.Duration) *comm.HandView {
	h := snap.Hand
	hv := &comm.HandView{
		ID:              h.ID,
		HandNo:          h.HandNo,
		Street:          h.Street,
		Pot:             h.Pot,
		PotBB:           comm.PotInBigBlinds(h.Pot, h.BigBlind),
		CurrentBet:      h.CurrentBet,
		MinRaise:        h.MinRaise,
		Board:           append([]string{}, h.Board...),
		DealerSeat:      h.DealerSeat,
		SmallBlindSeat:  h.SmallBlindSeat,
		BigBlindSeat:    h.BigBlindSeat,
		TurnRemainingMs: turnRemaining.Milliseconds(),
		ActionCount:     h.ActionCount,
		Voided:          h.Voided,
	}
	if h.ActingSeat.Valid {
		acting := h.Acting()
		hv.ActingSeat = &acting
	}
	if n := len(snap.Actions); n > 0 {
		last := snap.Actions[n-1].Action
		hv.LastAction = &last
	}
	if viewer != nil && viewer.InHand && !viewer.Folded && h.Street.Betting() && h.CurrentBet > viewer.StreetBet {
		hv.ToCall = min(h.CurrentBet-viewer.StreetBet, viewer.Stack)
	}
	if h.Complete() {
		for _, r := range snap.Results {
			if r.Won > 0 {
				hv.Winnings = append(hv.Winnings, comm.Payout{SeatNo: r.SeatNo, UserID: r.UserID, Amount: r.Won, HandRank: r.HandRank})
			}
		}
	}
	return hv
}

// Fingerprint identifies a rendered state. Two snapshots with the same
// fingerprint render the same game_state apart from the turn clock.
type Fingerprint struct {
	HandID  int64
	Street  poker.Street
	Actions int
	Version int64
}

func FingerprintOf(snap *models.Snapshot) Fingerprint {
	fp := Fingerprint{Version: snap.Table.Version}
	if snap.Hand != nil {
		fp.HandID = snap.Hand.ID
		fp.Street = snap.Hand.Street
		fp.Actions = snap.Hand.ActionCount
	}
	return fp
}

package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/poker-services/internal/poker"
	"github.com/avvvet/poker-services/internal/tablesvc/models"
	"github.com/avvvet/poker-services/internal/tablesvc/store"
	log "github.com/sirupsen/logrus"
)

// Act validates and applies an action for the seat held by userID.
// Validation failures are returned as poker.Rejection and change nothing.
func (s *TableService) Act(ctx context.Context, tableID, userID int64, kind poker.ActionKind, amount int64) (poker.Action, error) {
	var done poker.Action
	out, err := s.mutate(ctx, tableID, func(tx store.Tx, out *outbox) error {
		t, err := tx.Table(ctx)
		if err != nil {
			return err
		}
		if t.Closed() {
			return ErrTableClosed
		}
		seats, err := tx.Seats(ctx)
		if err != nil {
			return err
		}
		seat := seatOf(seats, userID)
		if seat == nil {
			return ErrNotSeated
		}
		if !t.CurrentHandID.Valid {
			return poker.RejectNoActiveHand
		}
		h, state, err := s.loadHand(ctx, tx, t)
		if errors.Is(err, errInvariant) {
			return s.void(ctx, tx, t, h, seats, out, err.Error())
		}
		if err != nil {
			return err
		}
		// forced posts come from hand start only
		if kind.Blind() {
			return poker.RejectIllegalAction
		}

		done, err = state.Act(poker.Move{Seat: seat.SeatNo, Kind: kind, Amount: amount})
		if err != nil {
			return err
		}
		return s.commit(ctx, tx, t, h, seats, state, out, done)
	})
	if err != nil {
		return poker.Action{}, err
	}
	if out.voided {
		return poker.Action{}, ErrHandVoided
	}
	return done, nil
}

// loadHand rebuilds the current hand from its action log and checks it
// against the persisted caches. The hand is returned even when the check
// fails so it can be voided.
func (s *TableService) loadHand(ctx context.Context, tx store.Tx, t *models.Table) (*models.Hand, *poker.HandState, error) {
	h, err := tx.Hand(ctx, t.CurrentHandID.Int64)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil, fmt.Errorf("%w: current hand %d missing", errInvariant, t.CurrentHandID.Int64)
	}
	if err != nil {
		return nil, nil, err
	}
	rows, err := tx.Actions(ctx, h.ID)
	if err != nil {
		return h, nil, err
	}
	state, err := poker.Replay(h.Start(), models.LogActions(rows))
	if err != nil {
		return h, nil, fmt.Errorf("%w: hand %d: %v", errInvariant, h.ID, err)
	}
	if state.Street != h.Street || state.Pot != h.Pot || state.Actions != h.ActionCount ||
		state.ActingSeat != h.Acting() || state.CurrentBet != h.CurrentBet {
		return h, nil, fmt.Errorf("%w: hand %d: replay gives %s pot %d after %d actions, stored %s pot %d after %d",
			errInvariant, h.ID, state.Street, state.Pot, state.Actions, h.Street, h.Pot, h.ActionCount)
	}
	if !state.Conserved() {
		return h, nil, fmt.Errorf("%w: hand %d: chips not conserved", errInvariant, h.ID)
	}
	return h, state, nil
}

// commit persists newly applied actions and everything derived from them,
// settling the hand when betting is over.
func (s *TableService) commit(ctx context.Context, tx store.Tx, t *models.Table, h *models.Hand,
	seats []*models.Seat, state *poker.HandState, out *outbox, actions ...poker.Action) error {
	now := s.now()
	rows := make([]models.Action, len(actions))
	for i, a := range actions {
		rows[i] = models.Action{HandID: h.ID, Action: a, CreatedAt: now}
	}
	if err := tx.AppendActions(ctx, rows...); err != nil {
		return err
	}
	if !state.Conserved() {
		return s.void(ctx, tx, t, h, seats, out, fmt.Sprintf("chips not conserved after seq %d", state.Actions))
	}

	h.Street = state.Street
	h.SetActing(state.ActingSeat)
	h.CurrentBet = state.CurrentBet
	h.MinRaise = state.MinRaise
	h.Pot = state.Pot
	h.ActionCount = state.Actions
	h.TurnStartedAt = now
	if h.Street.Betting() {
		if err := dealBoard(h, h.Street.BoardSize()); err != nil {
			return s.void(ctx, tx, t, h, seats, out, err.Error())
		}
	}
	syncSeats(seats, state)

	for _, a := range actions {
		log.WithFields(log.Fields{
			"table": t.ID, "hand": h.ID, "seq": a.Seq, "seat": a.Seat, "kind": a.Kind, "amount": a.Amount,
		}).Debug("action applied")
	}

	if h.Street.Terminal() {
		return s.settle(ctx, tx, t, h, seats, state, out)
	}
	if err := tx.UpdateHand(ctx, h); err != nil {
		return err
	}
	for _, seat := range seats {
		if err := tx.UpdateSeat(ctx, seat); err != nil {
			return err
		}
	}
	t.LastActivityAt = now
	return tx.UpdateTable(ctx, t)
}

// syncSeats copies the derived per-seat state into the seat caches.
func syncSeats(seats []*models.Seat, state *poker.HandState) {
	for _, seat := range seats {
		ss := state.Seat(seat.SeatNo)
		if ss == nil {
			continue
		}
		seat.InHand = true
		seat.Stack = ss.Stack
		seat.Folded = ss.Folded
		seat.AllIn = ss.AllIn
		seat.StreetBet = ss.StreetBet
		seat.HandBet = ss.HandBet
	}
}

// dealBoard draws community cards from the hand's deck up to n.
func dealBoard(h *models.Hand, n int) error {
	need := n - len(h.Board)
	if need <= 0 {
		return nil
	}
	cards, rest, err := poker.Deal(h.Deck, need)
	if err != nil {
		return err
	}
	h.Board = append(h.Board, cards...)
	h.Deck = rest
	return nil
}

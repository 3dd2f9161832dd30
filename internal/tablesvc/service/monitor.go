package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/avvvet/poker-services/internal/comm"
	"github.com/avvvet/poker-services/internal/poker"
	"github.com/avvvet/poker-services/internal/tablesvc/models"
	"github.com/avvvet/poker-services/internal/tablesvc/store"
	log "github.com/sirupsen/logrus"
)

// TurnRemaining is what is left of the acting seat's turn budget.
func (s *TableService) TurnRemaining(h *models.Hand) time.Duration {
	if h == nil || !h.Street.Betting() || !h.ActingSeat.Valid {
		return 0
	}
	left := s.settings.TurnTimeout - s.now().Sub(h.TurnStartedAt)
	if left < 0 {
		return 0
	}
	return left
}

// Maintain applies every time-driven transition that is due: a timeout
// fold for the acting seat, the next hand start and the inactivity close.
// It is safe to call from any number of pollers at once.
func (s *TableService) Maintain(ctx context.Context, tableID int64) error {
	snap, err := s.store.Snapshot(ctx, tableID)
	if err != nil {
		return err
	}
	if snap.Table.Closed() {
		return nil
	}
	if err := s.checkTurnTimeout(ctx, snap); err != nil {
		return err
	}
	if s.canStart(snap.Table, snap.Seats) {
		if err := s.startGuarded(ctx, tableID); err != nil {
			return err
		}
	}
	return s.checkInactivity(ctx, snap)
}

func (s *TableService) checkTurnTimeout(ctx context.Context, snap *models.Snapshot) error {
	h := snap.Hand
	if h == nil || !snap.Table.CurrentHandID.Valid || snap.Table.CurrentHandID.Int64 != h.ID {
		return nil
	}
	if !h.Street.Betting() || !h.ActingSeat.Valid || s.TurnRemaining(h) > 0 {
		return nil
	}
	seat, count := h.Acting(), h.ActionCount
	_, err, _ := s.flight.Do("timeout:"+strconv.FormatInt(h.ID, 10), func() (any, error) {
		return nil, s.timeoutFold(ctx, snap.Table.ID, h.ID, seat, count)
	})
	return err
}

// timeoutFold folds seat if the turn it was observed on is still pending.
func (s *TableService) timeoutFold(ctx context.Context, tableID, handID int64, seat, count int) error {
	_, err := s.mutate(ctx, tableID, func(tx store.Tx, out *outbox) error {
		t, err := tx.Table(ctx)
		if err != nil {
			return err
		}
		if !t.CurrentHandID.Valid || t.CurrentHandID.Int64 != handID {
			return nil
		}
		seats, err := tx.Seats(ctx)
		if err != nil {
			return err
		}
		h, state, err := s.loadHand(ctx, tx, t)
		if errors.Is(err, errInvariant) {
			return s.void(ctx, tx, t, h, seats, out, err.Error())
		}
		if err != nil {
			return err
		}
		if h.Acting() != seat || h.ActionCount != count || s.TurnRemaining(h) > 0 {
			return nil
		}
		a, err := state.Act(poker.Move{Seat: seat, Kind: poker.ActionFold})
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{"table": tableID, "hand": handID, "seat": seat, "seq": a.Seq}).Info("turn timed out, seat folded")
		return s.commit(ctx, tx, t, h, seats, state, out, a)
	})
	return err
}

func (s *TableService) startGuarded(ctx context.Context, tableID int64) error {
	_, err, _ := s.flight.Do("start:"+strconv.FormatInt(tableID, 10), func() (any, error) {
		_, err := s.mutate(ctx, tableID, func(tx store.Tx, out *outbox) error {
			t, err := tx.Table(ctx)
			if err != nil {
				return err
			}
			seats, err := tx.Seats(ctx)
			if err != nil {
				return err
			}
			if !s.canStart(t, seats) {
				return nil
			}
			return s.startHand(ctx, tx, t, seats, out)
		})
		return nil, err
	})
	return err
}

func (s *TableService) checkInactivity(ctx context.Context, snap *models.Snapshot) error {
	if !s.idle(snap.Table, snap.Seats) {
		return nil
	}
	_, err := s.mutate(ctx, snap.Table.ID, func(tx store.Tx, out *outbox) error {
		t, err := tx.Table(ctx)
		if err != nil {
			return err
		}
		seats, err := tx.Seats(ctx)
		if err != nil {
			return err
		}
		if t.Closed() || !s.idle(t, seats) {
			return nil
		}
		t.Status = models.TableClosed
		if err := tx.UpdateTable(ctx, t); err != nil {
			return err
		}
		out.closed = append(out.closed, comm.TableClosedEvent{TableID: t.ID, Reason: "inactivity", ClosedAt: s.now()})
		log.WithFields(log.Fields{"table": t.ID, "idle_since": t.LastActivityAt}).Info("table closed for inactivity")
		return nil
	})
	return err
}

// idle reports an empty table past the inactivity timeout.
func (s *TableService) idle(t *models.Table, seats []*models.Seat) bool {
	if t.Closed() || t.CurrentHandID.Valid {
		return false
	}
	for _, seat := range seats {
		if seat.Occupied() {
			return false
		}
	}
	return s.now().Sub(t.LastActivityAt) >= s.settings.InactivityTimeout
}

// Sweep maintains every open table once.
func (s *TableService) Sweep(ctx context.Context) (int, error) {
	ids, err := s.store.OpenTableIDs(ctx)
	if err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := s.Maintain(ctx, id); err != nil {
			log.WithField("table", id).Errorf("maintain: %v", err)
		}
	}
	return len(ids), nil
}

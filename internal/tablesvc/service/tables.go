package service

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/avvvet/poker-services/internal/tablesvc/models"
	"github.com/avvvet/poker-services/internal/tablesvc/store"
	log "github.com/sirupsen/logrus"
)

func (s *TableService) CreateTable(ctx context.Context, name string, capacity int, smallBlind, bigBlind int64) (*models.Table, error) {
	if name == "" || capacity < models.MinCapacity || capacity > models.MaxCapacity {
		return nil, fmt.Errorf("%w: name %q capacity %d", ErrInvalidTable, name, capacity)
	}
	if smallBlind <= 0 || bigBlind < smallBlind {
		return nil, fmt.Errorf("%w: blinds %d/%d", ErrInvalidTable, smallBlind, bigBlind)
	}
	now := s.now()
	t := &models.Table{
		Name:           name,
		Capacity:       capacity,
		SmallBlind:     smallBlind,
		BigBlind:       bigBlind,
		Status:         models.TableWaiting,
		DealerSeat:     -1,
		LastActivityAt: now,
		CreatedAt:      now,
	}
	if err := s.store.CreateTable(ctx, t); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"table": t.ID, "capacity": capacity}).Info("table created")
	return t, nil
}

func (s *TableService) ListTables(ctx context.Context, includeClosed bool) ([]*models.Table, error) {
	return s.store.ListTables(ctx, includeClosed)
}

func (s *TableService) Snapshot(ctx context.Context, tableID int64) (*models.Snapshot, error) {
	return s.store.Snapshot(ctx, tableID)
}

// SitDown seats userID at seat with a buy-in.
func (s *TableService) SitDown(ctx context.Context, tableID, userID int64, seat int, buyIn int64) (*models.Seat, error) {
	var seated *models.Seat
	_, err := s.mutate(ctx, tableID, func(tx store.Tx, out *outbox) error {
		t, err := tx.Table(ctx)
		if err != nil {
			return err
		}
		if t.Closed() {
			return ErrTableClosed
		}
		if buyIn < t.BigBlind {
			return ErrInvalidBuyIn
		}
		seats, err := tx.Seats(ctx)
		if err != nil {
			return err
		}
		if seatOf(seats, userID) != nil {
			return store.ErrAlreadySeated
		}
		target := seatNo(seats, seat)
		if target == nil {
			return ErrInvalidSeat
		}
		if target.Occupied() {
			return store.ErrSeatTaken
		}

		target.ClearHand()
		target.UserID = sql.NullInt64{Int64: userID, Valid: true}
		target.Stack = buyIn
		target.SittingOut = false
		if err := tx.UpdateSeat(ctx, target); err != nil {
			return err
		}
		t.LastActivityAt = s.now()
		seated = target
		return tx.UpdateTable(ctx, t)
	})
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"table": tableID, "seat": seat, "user": userID, "buy_in": buyIn}).Info("player seated")
	return seated, nil
}

// StandUp frees the user's seat and returns the stack they leave with.
func (s *TableService) StandUp(ctx context.Context, tableID, userID int64) (int64, error) {
	var cashOut int64
	_, err := s.mutate(ctx, tableID, func(tx store.Tx, out *outbox) error {
		t, err := tx.Table(ctx)
		if err != nil {
			return err
		}
		seats, err := tx.Seats(ctx)
		if err != nil {
			return err
		}
		seat := seatOf(seats, userID)
		if seat == nil {
			return ErrNotSeated
		}
		if t.CurrentHandID.Valid && seat.InHand {
			return ErrInHand
		}
		cashOut = seat.Stack
		seat.ClearHand()
		seat.UserID = sql.NullInt64{}
		seat.Stack = 0
		seat.SittingOut = false
		if err := tx.UpdateSeat(ctx, seat); err != nil {
			return err
		}
		t.LastActivityAt = s.now()
		return tx.UpdateTable(ctx, t)
	})
	if err != nil {
		return 0, err
	}
	log.WithFields(log.Fields{"table": tableID, "user": userID, "stack": cashOut}).Info("player stood up")
	return cashOut, nil
}

// SetSittingOut toggles whether the user is dealt into the next hand. A
// hand already in progress is not affected.
func (s *TableService) SetSittingOut(ctx context.Context, tableID, userID int64, out bool) error {
	_, err := s.mutate(ctx, tableID, func(tx store.Tx, _ *outbox) error {
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
		seat.SittingOut = out
		if err := tx.UpdateSeat(ctx, seat); err != nil {
			return err
		}
		t.LastActivityAt = s.now()
		return tx.UpdateTable(ctx, t)
	})
	return err
}

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/poker-services/internal/tablesvc/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both the pool and an open transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Close() { s.db.Close() }

func (s *Postgres) InTx(ctx context.Context, tableID int64, fn func(tx Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// serializes writers across processes
	var id int64
	err = tx.QueryRow(ctx, `SELECT id FROM poker_tables WHERE id = $1 FOR UPDATE`, tableID).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("lock table %d: %w", tableID, err)
	}

	if err := fn(&pgTx{q: tx, tableID: tableID}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Postgres) Snapshot(ctx context.Context, tableID int64) (*models.Snapshot, error) {
	// one repeatable-read view so the parts agree with each other
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback(ctx)

	t, err := getTable(ctx, tx, tableID)
	if err != nil {
		return nil, err
	}
	seats, err := getSeats(ctx, tx, tableID)
	if err != nil {
		return nil, err
	}
	snap := &models.Snapshot{Table: t, Seats: seats}

	h, err := latestHand(ctx, tx, tableID)
	if errors.Is(err, ErrNotFound) {
		return snap, nil
	}
	if err != nil {
		return nil, err
	}
	snap.Hand = h
	if snap.Actions, err = getActions(ctx, tx, h.ID); err != nil {
		return nil, err
	}
	if h.Complete() {
		if snap.Results, err = getResults(ctx, tx, h.ID); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

func (s *Postgres) HandLog(ctx context.Context, handID int64) (*models.Hand, []models.Action, []models.Result, error) {
	h, err := getHand(ctx, s.db, handID)
	if err != nil {
		return nil, nil, nil, err
	}
	actions, err := getActions(ctx, s.db, handID)
	if err != nil {
		return nil, nil, nil, err
	}
	results, err := getResults(ctx, s.db, handID)
	if err != nil {
		return nil, nil, nil, err
	}
	return h, actions, results, nil
}

// pgTx is the Tx of one locked table.
type pgTx struct {
	q       querier
	tableID int64
}

func (t *pgTx) Table(ctx context.Context) (*models.Table, error) {
	return getTable(ctx, t.q, t.tableID)
}

func (t *pgTx) Seats(ctx context.Context) ([]*models.Seat, error) {
	return getSeats(ctx, t.q, t.tableID)
}

func (t *pgTx) Hand(ctx context.Context, handID int64) (*models.Hand, error) {
	h, err := getHand(ctx, t.q, handID)
	if err != nil {
		return nil, err
	}
	if h.TableID != t.tableID {
		return nil, ErrNotFound
	}
	return h, nil
}

func (t *pgTx) Actions(ctx context.Context, handID int64) ([]models.Action, error) {
	return getActions(ctx, t.q, handID)
}

func (t *pgTx) UpdateTable(ctx context.Context, tbl *models.Table) error {
	return updateTable(ctx, t.q, tbl)
}

func (t *pgTx) UpdateSeat(ctx context.Context, s *models.Seat) error {
	return updateSeat(ctx, t.q, s)
}

func (t *pgTx) InsertHand(ctx context.Context, h *models.Hand) error {
	return insertHand(ctx, t.q, h)
}

func (t *pgTx) UpdateHand(ctx context.Context, h *models.Hand) error {
	return updateHand(ctx, t.q, h)
}

func (t *pgTx) AppendActions(ctx context.Context, actions ...models.Action) error {
	return appendActions(ctx, t.q, actions)
}

func (t *pgTx) InsertResults(ctx context.Context, results []models.Result) error {
	return insertResults(ctx, t.q, results)
}

// uniqueViolation returns the constraint name of a 23505 error.
func uniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}

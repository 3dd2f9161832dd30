package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/poker-services/internal/tablesvc/models"
	"github.com/jackc/pgx/v5"
)

const tableColumns = `id, name, capacity, small_blind, big_blind, status, current_hand_id,
	hand_count, dealer_seat, version, last_activity_at, last_hand_ended_at, created_at`

func scanTable(row pgx.Row) (*models.Table, error) {
	t := &models.Table{}
	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.Capacity,
		&t.SmallBlind,
		&t.BigBlind,
		&t.Status,
		&t.CurrentHandID,
		&t.HandCount,
		&t.DealerSeat,
		&t.Version,
		&t.LastActivityAt,
		&t.LastHandEndedAt,
		&t.CreatedAt,
	)
	return t, err
}

// CreateTable inserts the table together with its empty seats.
func (s *Postgres) CreateTable(ctx context.Context, t *models.Table) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO poker_tables (name, capacity, small_blind, big_blind, status, dealer_seat, last_activity_at)
		VALUES ($1, $2, $3, $4, $5, -1, $6)
		RETURNING ` + tableColumns
	created, err := scanTable(tx.QueryRow(ctx, query,
		t.Name, t.Capacity, t.SmallBlind, t.BigBlind, models.TableWaiting, t.LastActivityAt))
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO seats (table_id, seat_no)
		SELECT $1, g FROM generate_series(0, $2 - 1) AS g`, created.ID, created.Capacity)
	if err != nil {
		return fmt.Errorf("failed to create seats: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	*t = *created
	return nil
}

func (s *Postgres) ListTables(ctx context.Context, includeClosed bool) ([]*models.Table, error) {
	query := `SELECT ` + tableColumns + ` FROM poker_tables`
	if !includeClosed {
		query += ` WHERE status <> 'closed'`
	}
	query += ` ORDER BY id`

	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var tables []*models.Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (s *Postgres) OpenTableIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.Query(ctx, `SELECT id FROM poker_tables WHERE status <> 'closed' ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list open tables: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func getTable(ctx context.Context, q querier, tableID int64) (*models.Table, error) {
	t, err := scanTable(q.QueryRow(ctx, `SELECT `+tableColumns+` FROM poker_tables WHERE id = $1`, tableID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get table by ID: %w", err)
	}
	return t, nil
}

func updateTable(ctx context.Context, q querier, t *models.Table) error {
	query := `
		UPDATE poker_tables
		SET status = $2, current_hand_id = $3, hand_count = $4, dealer_seat = $5,
		    last_activity_at = $6, last_hand_ended_at = $7, version = version + 1
		WHERE id = $1
		RETURNING version`
	err := q.QueryRow(ctx, query,
		t.ID, t.Status, t.CurrentHandID, t.HandCount, t.DealerSeat, t.LastActivityAt, t.LastHandEndedAt,
	).Scan(&t.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to update table %d: %w", t.ID, err)
	}
	return nil
}

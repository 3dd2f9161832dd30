package store

import (
	"context"
	"fmt"

	"github.com/avvvet/poker-services/internal/poker"
	"github.com/avvvet/poker-services/internal/tablesvc/models"
	"github.com/jackc/pgx/v5"
)

func getActions(ctx context.Context, q querier, handID int64) ([]models.Action, error) {
	query := `
		SELECT hand_id, seq, seat_no, street, kind, amount, created_at
		FROM hand_actions
		WHERE hand_id = $1
		ORDER BY seq`

	rows, err := q.Query(ctx, query, handID)
	if err != nil {
		return nil, fmt.Errorf("failed to get actions: %w", err)
	}
	defer rows.Close()

	var actions []models.Action
	for rows.Next() {
		var a models.Action
		var street, kind string
		if err := rows.Scan(&a.HandID, &a.Seq, &a.Seat, &street, &kind, &a.Amount, &a.CreatedAt); err != nil {
			return nil, err
		}
		if a.Street, err = poker.ParseStreet(street); err != nil {
			return nil, fmt.Errorf("hand %d seq %d: %w", handID, a.Seq, err)
		}
		a.Kind = poker.ActionKind(kind)
		actions = append(actions, a)
	}
	return actions, rows.Err()
}

// appendActions inserts log rows. The (hand_id, seq) constraint rejects a
// second writer racing for the same sequence number.
func appendActions(ctx context.Context, q querier, actions []models.Action) error {
	for _, a := range actions {
		_, err := q.Exec(ctx, `
			INSERT INTO hand_actions (hand_id, seq, seat_no, street, kind, amount, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			a.HandID, a.Seq, a.Seat, a.Street.String(), string(a.Kind), a.Amount, a.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to append action %d of hand %d: %w", a.Seq, a.HandID, err)
		}
	}
	return nil
}

func getResults(ctx context.Context, q querier, handID int64) ([]models.Result, error) {
	rows, err := q.Query(ctx, `
		SELECT hand_id, seat_no, user_id, hole_cards, won, hand_rank
		FROM hand_results
		WHERE hand_id = $1
		ORDER BY seat_no`, handID)
	if err != nil {
		return nil, fmt.Errorf("failed to get results: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Result, error) {
		var r models.Result
		err := row.Scan(&r.HandID, &r.SeatNo, &r.UserID, &r.HoleCards, &r.Won, &r.HandRank)
		return r, err
	})
}

func insertResults(ctx context.Context, q querier, results []models.Result) error {
	batch := &pgx.Batch{}
	for _, r := range results {
		batch.Queue(`
			INSERT INTO hand_results (hand_id, seat_no, user_id, hole_cards, won, hand_rank)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			r.HandID, r.SeatNo, r.UserID, nonNil(r.HoleCards), r.Won, r.HandRank)
	}
	br := q.SendBatch(ctx, batch)
	for range results {
		if _, err := br.Exec(); err != nil {
			br.Close()
			return fmt.Errorf("failed to insert results: %w", err)
		}
	}
	return br.Close()
}

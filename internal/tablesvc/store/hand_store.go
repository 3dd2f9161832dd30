package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/avvvet/poker-services/internal/poker"
	"github.com/avvvet/poker-services/internal/tablesvc/models"
	"github.com/jackc/pgx/v5"
)

const handColumns = `id, table_id, hand_no, dealer_seat, small_blind_seat, big_blind_seat, small_blind,
	big_blind, street, acting_seat, current_bet, min_raise, pot, board, deck, starting_stacks,
	action_count, turn_started_at, voided, started_at, ended_at`

func scanHand(row pgx.Row) (*models.Hand, error) {
	h := &models.Hand{}
	var street string
	var stacks []byte
	err := row.Scan(
		&h.ID,
		&h.TableID,
		&h.HandNo,
		&h.DealerSeat,
		&h.SmallBlindSeat,
		&h.BigBlindSeat,
		&h.SmallBlind,
		&h.BigBlind,
		&street,
		&h.ActingSeat,
		&h.CurrentBet,
		&h.MinRaise,
		&h.Pot,
		&h.Board,
		&h.Deck,
		&stacks,
		&h.ActionCount,
		&h.TurnStartedAt,
		&h.Voided,
		&h.StartedAt,
		&h.EndedAt,
	)
	if err != nil {
		return nil, err
	}
	if h.Street, err = poker.ParseStreet(street); err != nil {
		return nil, fmt.Errorf("hand %d: %w", h.ID, err)
	}
	if err := json.Unmarshal(stacks, &h.StartingStacks); err != nil {
		return nil, fmt.Errorf("hand %d starting stacks: %w", h.ID, err)
	}
	return h, nil
}

func getHand(ctx context.Context, q querier, handID int64) (*models.Hand, error) {
	h, err := scanHand(q.QueryRow(ctx, `SELECT `+handColumns+` FROM hands WHERE id = $1`, handID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get hand by ID: %w", err)
	}
	return h, nil
}

func latestHand(ctx context.Context, q querier, tableID int64) (*models.Hand, error) {
	query := `SELECT ` + handColumns + ` FROM hands WHERE table_id = $1 ORDER BY hand_no DESC LIMIT 1`
	h, err := scanHand(q.QueryRow(ctx, query, tableID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get latest hand: %w", err)
	}
	return h, nil
}

func insertHand(ctx context.Context, q querier, h *models.Hand) error {
	stacks, err := json.Marshal(h.StartingStacks)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO hands (table_id, hand_no, dealer_seat, small_blind_seat, big_blind_seat, small_blind,
		                   big_blind, street, acting_seat, current_bet, min_raise, pot, board, deck,
		                   starting_stacks, action_count, turn_started_at, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		RETURNING id`
	err = q.QueryRow(ctx, query,
		h.TableID, h.HandNo, h.DealerSeat, h.SmallBlindSeat, h.BigBlindSeat, h.SmallBlind,
		h.BigBlind, h.Street.String(), h.ActingSeat, h.CurrentBet, h.MinRaise, h.Pot, nonNil(h.Board),
		nonNil(h.Deck), stacks, h.ActionCount, h.TurnStartedAt, h.StartedAt,
	).Scan(&h.ID)
	if err != nil {
		if name, ok := uniqueViolation(err); ok && name == "one_open_hand_per_table" {
			return ErrHandOpen
		}
		return fmt.Errorf("failed to create hand: %w", err)
	}
	return nil
}

func updateHand(ctx context.Context, q querier, h *models.Hand) error {
	query := `
		UPDATE hands
		SET street = $2, acting_seat = $3, current_bet = $4, min_raise = $5, pot = $6, board = $7,
		    deck = $8, action_count = $9, turn_started_at = $10, voided = $11, ended_at = $12
		WHERE id = $1`
	tag, err := q.Exec(ctx, query,
		h.ID, h.Street.String(), h.ActingSeat, h.CurrentBet, h.MinRaise, h.Pot, nonNil(h.Board),
		nonNil(h.Deck), h.ActionCount, h.TurnStartedAt, h.Voided, h.EndedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update hand %d: %w", h.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func nonNil(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}

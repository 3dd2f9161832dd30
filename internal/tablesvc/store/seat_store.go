package store

import (
	"context"
	"fmt"

	"github.com/avvvet/poker-services/internal/tablesvc/models"
)

func getSeats(ctx context.Context, q querier, tableID int64) ([]*models.Seat, error) {
	query := `
		SELECT table_id, seat_no, user_id, stack, sitting_out, in_hand, folded, all_in,
		       street_bet, hand_bet, hole_cards, updated_at
		FROM seats
		WHERE table_id = $1
		ORDER BY seat_no`

	rows, err := q.Query(ctx, query, tableID)
	if err != nil {
		return nil, fmt.Errorf("failed to get seats: %w", err)
	}
	defer rows.Close()

	var seats []*models.Seat
	for rows.Next() {
		var s models.Seat
		err := rows.Scan(
			&s.TableID,
			&s.SeatNo,
			&s.UserID,
			&s.Stack,
			&s.SittingOut,
			&s.InHand,
			&s.Folded,
			&s.AllIn,
			&s.StreetBet,
			&s.HandBet,
			&s.HoleCards,
			&s.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		seats = append(seats, &s)
	}
	return seats, rows.Err()
}

func updateSeat(ctx context.Context, q querier, s *models.Seat) error {
	query := `
		UPDATE seats
		SET user_id = $3, stack = $4, sitting_out = $5, in_hand = $6, folded = $7, all_in = $8,
		    street_bet = $9, hand_bet = $10, hole_cards = $11, updated_at = now()
		WHERE table_id = $1 AND seat_no = $2`

	holeCards := s.HoleCards
	if holeCards == nil {
		holeCards = []string{}
	}
	tag, err := q.Exec(ctx, query,
		s.TableID, s.SeatNo, s.UserID, s.Stack, s.SittingOut, s.InHand, s.Folded, s.AllIn,
		s.StreetBet, s.HandBet, holeCards,
	)
	if err != nil {
		if name, ok := uniqueViolation(err); ok && name == "unique_table_user" {
			return ErrAlreadySeated
		}
		return fmt.Errorf("failed to update seat %d: %w", s.SeatNo, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

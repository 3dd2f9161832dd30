package service

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/avvvet/poker-services/internal/comm"
	"github.com/avvvet/poker-services/internal/poker"
	"github.com/avvvet/poker-services/internal/tablesvc/models"
	"github.com/avvvet/poker-services/internal/tablesvc/store"
	log "github.com/sirupsen/logrus"
)

// canStart reports whether a new hand may be dealt at t.
func (s *TableService) canStart(t *models.Table, seats []*models.Seat) bool {
	if t.Status != models.TableWaiting || t.CurrentHandID.Valid {
		return false
	}
	if t.LastHandEndedAt.Valid && s.now().Sub(t.LastHandEndedAt.Time) < s.settings.HandCooldown {
		return false
	}
	return len(eligibleSeats(seats)) >= 2
}

func eligibleSeats(seats []*models.Seat) []int {
	var out []int
	for _, seat := range seats {
		if seat.Eligible() {
			out = append(out, seat.SeatNo)
		}
	}
	sort.Ints(out)
	return out
}

// nextOf returns the first seat in the sorted list after seat, wrapping.
func nextOf(sorted []int, seat int) int {
	for _, n := range sorted {
		if n > seat {
			return n
		}
	}
	return sorted[0]
}

// startHand moves the button, deals and posts the blinds.
func (s *TableService) startHand(ctx context.Context, tx store.Tx, t *models.Table, seats []*models.Seat, out *outbox) error {
	dealtIn := eligibleSeats(seats)
	dealer := nextOf(dealtIn, t.DealerSeat)
	sb := nextOf(dealtIn, dealer)
	if len(dealtIn) == 2 {
		sb = dealer
	}
	bb := nextOf(dealtIn, sb)

	now := s.now()
	h := &models.Hand{
		TableID:        t.ID,
		HandNo:         t.HandCount + 1,
		DealerSeat:     dealer,
		SmallBlindSeat: sb,
		BigBlindSeat:   bb,
		SmallBlind:     t.SmallBlind,
		BigBlind:       t.BigBlind,
		Street:         poker.StreetPreflop,
		MinRaise:       t.BigBlind,
		Board:          []string{},
		Deck:           poker.ShuffledDeck(s.shuffle),
		TurnStartedAt:  now,
		StartedAt:      now,
	}
	h.SetActing(sb)

	for _, seat := range seats {
		seat.ClearHand()
	}
	for _, no := range dealtIn {
		seat := seatNo(seats, no)
		hole, rest, err := poker.Deal(h.Deck, 2)
		if err != nil {
			return err
		}
		h.Deck = rest
		seat.HoleCards = hole
		seat.InHand = true
		h.StartingStacks = append(h.StartingStacks, poker.SeatStart{Seat: no, Stack: seat.Stack})
	}

	state, err := poker.NewHand(h.Start())
	if err != nil {
		return err
	}
	if err := tx.InsertHand(ctx, h); err != nil {
		return err
	}
	postSB, err := state.Act(poker.Move{Seat: sb, Kind: poker.ActionPostSB})
	if err != nil {
		return fmt.Errorf("post small blind: %w", err)
	}
	postBB, err := state.Act(poker.Move{Seat: bb, Kind: poker.ActionPostBB})
	if err != nil {
		return fmt.Errorf("post big blind: %w", err)
	}

	t.Status = models.TableInHand
	t.CurrentHandID = sql.NullInt64{Int64: h.ID, Valid: true}
	t.HandCount = h.HandNo
	t.DealerSeat = dealer

	log.WithFields(log.Fields{
		"table": t.ID, "hand": h.ID, "hand_no": h.HandNo, "dealer": dealer, "sb": sb, "bb": bb, "seats": len(dealtIn),
	}).Info("hand started")
	return s.commit(ctx, tx, t, h, seats, state, out, postSB, postBB)
}

// settle pays out a hand whose betting is over and releases the table.
func (s *TableService) settle(ctx context.Context, tx store.Tx, t *models.Table, h *models.Hand,
	seats []*models.Seat, state *poker.HandState, out *outbox) error {
	remaining := state.Remaining()
	contested := len(remaining) > 1

	ranks := make(map[int]poker.HandRank, len(remaining))
	if contested {
		if err := dealBoard(h, 5); err != nil {
			return s.void(ctx, tx, t, h, seats, out, err.Error())
		}
		for _, no := range remaining {
			rank, err := poker.Evaluate(seatNo(seats, no).HoleCards, h.Board)
			if err != nil {
				return s.void(ctx, tx, t, h, seats, out, fmt.Sprintf("evaluate seat %d: %v", no, err))
			}
			ranks[no] = rank
		}
	}

	won, err := poker.Distribute(poker.BuildPots(state.Contributions()), ranks, h.DealerSeat)
	if err != nil {
		return s.void(ctx, tx, t, h, seats, out, err.Error())
	}
	var paid int64
	for _, amount := range won {
		paid += amount
	}
	if paid != state.Pot {
		return s.void(ctx, tx, t, h, seats, out, fmt.Sprintf("paid %d out of a %d pot", paid, state.Pot))
	}

	var results []models.Result
	for _, no := range remaining {
		seat := seatNo(seats, no)
		r := models.Result{HandID: h.ID, SeatNo: no, UserID: seat.UserID.Int64, Won: won[no]}
		if contested {
			r.HoleCards = seat.HoleCards
			r.HandRank = ranks[no].Name
		}
		results = append(results, r)
	}
	for _, seat := range seats {
		if ss := state.Seat(seat.SeatNo); ss != nil {
			seat.Stack = ss.Stack + won[seat.SeatNo]
			seat.StreetBet = 0
		}
	}

	now := s.now()
	h.Street = poker.StreetComplete
	h.SetActing(poker.NoSeat)
	h.CurrentBet = 0
	h.EndedAt = sql.NullTime{Time: now, Valid: true}
	if err := tx.UpdateHand(ctx, h); err != nil {
		return err
	}
	if err := tx.InsertResults(ctx, results); err != nil {
		return err
	}
	for _, seat := range seats {
		if err := tx.UpdateSeat(ctx, seat); err != nil {
			return err
		}
	}
	s.release(t, now)
	if err := tx.UpdateTable(ctx, t); err != nil {
		return err
	}

	rows, err := tx.Actions(ctx, h.ID)
	if err != nil {
		return err
	}
	out.completed = append(out.completed, handCompleted(h, rows, results))
	log.WithFields(log.Fields{
		"table": t.ID, "hand": h.ID, "pot": state.Pot, "contested": contested, "payouts": won,
	}).Info("hand settled")
	return nil
}

// void abandons a hand whose state cannot be trusted. Every dealt-in seat
// gets its starting stack back.
func (s *TableService) void(ctx context.Context, tx store.Tx, t *models.Table, h *models.Hand,
	seats []*models.Seat, out *outbox, reason string) error {
	fields := log.Fields{"table": t.ID, "reason": reason}
	now := s.now()
	if h != nil {
		fields["hand"] = h.ID
		for _, start := range h.StartingStacks {
			if seat := seatNo(seats, start.Seat); seat != nil {
				seat.Stack = start.Stack
				seat.ClearHand()
			}
		}
		h.Street = poker.StreetComplete
		h.SetActing(poker.NoSeat)
		h.Voided = true
		h.EndedAt = sql.NullTime{Time: now, Valid: true}
		if err := tx.UpdateHand(ctx, h); err != nil {
			return err
		}
		for _, seat := range seats {
			if err := tx.UpdateSeat(ctx, seat); err != nil {
				return err
			}
		}
		rows, err := tx.Actions(ctx, h.ID)
		if err != nil {
			return err
		}
		out.completed = append(out.completed, handCompleted(h, rows, nil))
	}
	s.release(t, now)
	if err := tx.UpdateTable(ctx, t); err != nil {
		return err
	}
	out.voided = true
	log.WithFields(fields).Error("hand voided")
	return nil
}

func (s *TableService) release(t *models.Table, now time.Time) {
	t.Status = models.TableWaiting
	t.CurrentHandID = sql.NullInt64{}
	t.LastHandEndedAt = sql.NullTime{Time: now, Valid: true}
	t.LastActivityAt = now
}

func handCompleted(h *models.Hand, rows []models.Action, results []models.Result) comm.HandCompleted {
	ev := comm.HandCompleted{
		TableID:   h.TableID,
		HandID:    h.ID,
		HandNo:    h.HandNo,
		Start:     h.Start(),
		Board:     append([]string(nil), h.Board...),
		Actions:   models.LogActions(rows),
		Pot:       h.Pot,
		Voided:    h.Voided,
		StartedAt: h.StartedAt,
		EndedAt:   h.EndedAt.Time,
	}
	for _, r := range results {
		ev.Results = append(ev.Results, comm.SeatResult{
			SeatNo: r.SeatNo, UserID: r.UserID, HoleCards: r.HoleCards, Won: r.Won, HandRank: r.HandRank,
		})
		if r.Won > 0 {
			ev.Payouts = append(ev.Payouts, comm.Payout{SeatNo: r.SeatNo, UserID: r.UserID, Amount: r.Won, HandRank: r.HandRank})
		}
	}
	return ev
}

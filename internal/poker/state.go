package poker

import (
	"fmt"
	"sort"
)

// NoSeat marks the absence of an acting seat.
const NoSeat = -1

// SeatStart is a dealt-in seat and its stack when the hand began.
type SeatStart struct {
	Seat  int   `json:"seat"`
	Stack int64 `json:"stack"`
}

// HandStart is everything the state machine needs besides the action log.
type HandStart struct {
	Dealer         int         `json:"dealer"`
	SmallBlindSeat int         `json:"small_blind_seat"`
	BigBlindSeat   int         `json:"big_blind_seat"`
	SmallBlind     int64       `json:"small_blind"`
	BigBlind       int64       `json:"big_blind"`
	Seats          []SeatStart `json:"seats"`
}

// SeatState is the derived per-seat betting state of a hand.
type SeatState struct {
	Seat      int   `json:"seat"`
	Start     int64 `json:"start"`
	Stack     int64 `json:"stack"`
	HandBet   int64 `json:"hand_bet"`
	StreetBet int64 `json:"street_bet"`
	Folded    bool  `json:"folded"`
	AllIn     bool  `json:"all_in"`

	// matched since the bet was last raised
	acted bool
}

// CanAct reports whether the seat may still take betting actions.
func (s *SeatState) CanAct() bool { return !s.Folded && !s.AllIn }

// HandState is the state of one hand. It changes only through Act/Apply, so
// folding the action log over NewHand always reproduces it.
type HandState struct {
	Street         Street       `json:"street"`
	Dealer         int          `json:"dealer"`
	SmallBlindSeat int          `json:"small_blind_seat"`
	BigBlindSeat   int          `json:"big_blind_seat"`
	SmallBlind     int64        `json:"small_blind"`
	BigBlind       int64        `json:"big_blind"`
	Seats          []*SeatState `json:"seats"`
	CurrentBet     int64        `json:"current_bet"`
	MinRaise       int64        `json:"min_raise"`
	Pot            int64        `json:"pot"`
	ActingSeat     int          `json:"acting_seat"`
	Actions        int          `json:"actions"`
	LastAction     *Action      `json:"last_action,omitempty"`

	pendingBlind ActionKind
}

// NewHand returns the state before any blind is posted. The small blind seat
// is the first to act.
func NewHand(start HandStart) (*HandState, error) {
	if len(start.Seats) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 seats, got %d", ErrInvalidStart, len(start.Seats))
	}
	if start.SmallBlind <= 0 || start.BigBlind < start.SmallBlind {
		return nil, fmt.Errorf("%w: blinds %d/%d", ErrInvalidStart, start.SmallBlind, start.BigBlind)
	}
	h := &HandState{
		Street:         StreetPreflop,
		Dealer:         start.Dealer,
		SmallBlindSeat: start.SmallBlindSeat,
		BigBlindSeat:   start.BigBlindSeat,
		SmallBlind:     start.SmallBlind,
		BigBlind:       start.BigBlind,
		MinRaise:       start.BigBlind,
		ActingSeat:     start.SmallBlindSeat,
		pendingBlind:   ActionPostSB,
	}
	seen := make(map[int]bool, len(start.Seats))
	for _, ss := range start.Seats {
		if seen[ss.Seat] {
			return nil, fmt.Errorf("%w: seat %d listed twice", ErrInvalidStart, ss.Seat)
		}
		if ss.Stack <= 0 {
			return nil, fmt.Errorf("%w: seat %d has no chips", ErrInvalidStart, ss.Seat)
		}
		seen[ss.Seat] = true
		h.Seats = append(h.Seats, &SeatState{Seat: ss.Seat, Start: ss.Stack, Stack: ss.Stack})
	}
	sort.Slice(h.Seats, func(i, j int) bool { return h.Seats[i].Seat < h.Seats[j].Seat })
	for _, seat := range []int{start.Dealer, start.SmallBlindSeat, start.BigBlindSeat} {
		if !seen[seat] {
			return nil, fmt.Errorf("%w: seat %d is not dealt in", ErrInvalidStart, seat)
		}
	}
	if start.SmallBlindSeat == start.BigBlindSeat {
		return nil, fmt.Errorf("%w: small and big blind on seat %d", ErrInvalidStart, start.BigBlindSeat)
	}
	return h, nil
}

// Seat returns the state of a dealt-in seat or nil.
func (h *HandState) Seat(seat int) *SeatState {
	for _, s := range h.Seats {
		if s.Seat == seat {
			return s
		}
	}
	return nil
}

// ToCall is the outstanding differential for a seat, not capped by its stack.
func (h *HandState) ToCall(seat int) int64 {
	s := h.Seat(seat)
	if s == nil || h.CurrentBet <= s.StreetBet {
		return 0
	}
	return h.CurrentBet - s.StreetBet
}

// BlindsPending reports whether forced posts are still outstanding.
func (h *HandState) BlindsPending() bool { return h.pendingBlind != "" }

// Remaining returns the non-folded seats in seat order.
func (h *HandState) Remaining() []int {
	var out []int
	for _, s := range h.Seats {
		if !s.Folded {
			out = append(out, s.Seat)
		}
	}
	return out
}

// Conserved checks that every chip that started the hand is either in a
// stack or in the pot.
func (h *HandState) Conserved() bool {
	var start, now, bets int64
	for _, s := range h.Seats {
		if s.Stack < 0 {
			return false
		}
		start += s.Start
		now += s.Stack
		bets += s.HandBet
	}
	return start == now+h.Pot && bets == h.Pot
}

// Act validates a move and applies it. On error the state is unchanged.
func (h *HandState) Act(m Move) (Action, error) {
	a, err := h.Validate(m)
	if err != nil {
		return Action{}, err
	}
	h.apply(a)
	return a, nil
}

// Apply re-validates a logged action and applies it. A logged entry that
// would not be produced by Act for the same move means the log is corrupt.
func (h *HandState) Apply(a Action) error {
	want, err := h.Validate(Move{Seat: a.Seat, Kind: a.Kind, Amount: a.Amount})
	if err != nil {
		return fmt.Errorf("%w: seq %d: %v", ErrInconsistentLog, a.Seq, err)
	}
	if want != a {
		return fmt.Errorf("%w: seq %d: logged %+v, expected %+v", ErrInconsistentLog, a.Seq, a, want)
	}
	h.apply(a)
	return nil
}

// Validate checks a move against the current state and returns the log entry
// it would produce.
func (h *HandState) Validate(m Move) (Action, error) {
	if !h.Street.Betting() {
		return Action{}, RejectNoActiveHand
	}
	s := h.Seat(m.Seat)
	if s == nil || !s.CanAct() {
		return Action{}, RejectSeatInactive
	}
	if h.ActingSeat != m.Seat {
		return Action{}, RejectNotYourTurn
	}
	if m.Amount < 0 {
		return Action{}, RejectIllegalAmount
	}

	if h.pendingBlind != "" {
		if m.Kind != h.pendingBlind {
			return Action{}, RejectIllegalAction
		}
		size := h.SmallBlind
		if m.Kind == ActionPostBB {
			size = h.BigBlind
		}
		size = min(size, s.Stack)
		if m.Amount != 0 && m.Amount != size {
			return Action{}, RejectIllegalAmount
		}
		return h.entry(s, m.Kind, size), nil
	}

	owe := h.ToCall(m.Seat)
	switch m.Kind {
	case ActionFold:
		if m.Amount != 0 {
			return Action{}, RejectIllegalAmount
		}
		return h.entry(s, ActionFold, 0), nil
	case ActionCheck:
		if owe > 0 {
			return Action{}, RejectIllegalAction
		}
		if m.Amount != 0 {
			return Action{}, RejectIllegalAmount
		}
		return h.entry(s, ActionCheck, 0), nil
	case ActionCall:
		if owe == 0 {
			return Action{}, RejectIllegalAction
		}
		amount := min(owe, s.Stack)
		if m.Amount != 0 && m.Amount != amount {
			return Action{}, RejectIllegalAmount
		}
		return h.entry(s, ActionCall, amount), nil
	case ActionBet:
		if h.CurrentBet > 0 {
			return Action{}, RejectIllegalAction
		}
		return h.aggressive(s, ActionBet, m.Amount)
	case ActionRaise:
		if h.CurrentBet == 0 || owe >= s.Stack {
			return Action{}, RejectIllegalAction
		}
		return h.aggressive(s, ActionRaise, m.Amount)
	case ActionAllIn:
		if m.Amount != 0 && m.Amount != s.Stack {
			return Action{}, RejectIllegalAmount
		}
		return h.entry(s, ActionAllIn, s.Stack), nil
	default:
		return Action{}, RejectIllegalAction
	}
}

func (h *HandState) aggressive(s *SeatState, kind ActionKind, amount int64) (Action, error) {
	if amount <= 0 || amount > s.Stack {
		return Action{}, RejectIllegalAmount
	}
	if amount < s.Stack && s.StreetBet+amount-h.CurrentBet < h.MinRaise {
		return Action{}, RejectIllegalAmount
	}
	return h.entry(s, kind, amount), nil
}

// entry builds the log row. Voluntary chip moves that empty the stack are
// recorded as all_in.
func (h *HandState) entry(s *SeatState, kind ActionKind, amount int64) Action {
	if !kind.Blind() && amount > 0 && amount == s.Stack {
		kind = ActionAllIn
	}
	return Action{
		Seq:    h.Actions + 1,
		Seat:   s.Seat,
		Street: h.Street,
		Kind:   kind,
		Amount: amount,
	}
}

func (h *HandState) apply(a Action) {
	s := h.Seat(a.Seat)
	s.Stack -= a.Amount
	s.HandBet += a.Amount
	s.StreetBet += a.Amount
	h.Pot += a.Amount
	if a.Amount > 0 && s.Stack == 0 {
		s.AllIn = true
	}
	if a.Kind == ActionFold {
		s.Folded = true
	}

	if s.StreetBet > h.CurrentBet {
		if raise := s.StreetBet - h.CurrentBet; !a.Kind.Blind() && raise >= h.MinRaise {
			h.MinRaise = raise
		}
		h.CurrentBet = s.StreetBet
		for _, o := range h.Seats {
			if o != s {
				o.acted = false
			}
		}
	}
	s.acted = true

	h.Actions++
	last := a
	h.LastAction = &last

	switch a.Kind {
	case ActionPostSB:
		h.pendingBlind = ActionPostBB
		h.ActingSeat = h.BigBlindSeat
		return
	case ActionPostBB:
		h.pendingBlind = ""
	}
	h.progress(a.Seat)
}

func (h *HandState) needsAction(s *SeatState) bool {
	return s.CanAct() && (!s.acted || s.StreetBet < h.CurrentBet)
}

// progress moves the turn pointer or closes the betting round.
func (h *HandState) progress(from int) {
	if len(h.Remaining()) <= 1 {
		h.Street = StreetComplete
		h.ActingSeat = NoSeat
		return
	}
	if next := h.nextFrom(from, h.needsAction); next != nil {
		h.ActingSeat = next.Seat
		return
	}
	h.closeStreet()
}

func (h *HandState) closeStreet() {
	for _, s := range h.Seats {
		s.StreetBet = 0
		s.acted = false
	}
	h.CurrentBet = 0
	h.MinRaise = h.BigBlind

	canAct := 0
	for _, s := range h.Seats {
		if s.CanAct() {
			canAct++
		}
	}
	if h.Street == StreetRiver || canAct < 2 {
		h.Street = StreetShowdown
		h.ActingSeat = NoSeat
		return
	}
	h.Street = h.Street.Next()
	h.ActingSeat = h.nextFrom(h.Dealer, (*SeatState).CanAct).Seat
}

// nextFrom walks clockwise starting after seat and returns the first seat
// matching pred.
func (h *HandState) nextFrom(seat int, pred func(*SeatState) bool) *SeatState {
	n := len(h.Seats)
	start := 0
	for start < n && h.Seats[start].Seat <= seat {
		start++
	}
	for i := 0; i < n; i++ {
		s := h.Seats[(start+i)%n]
		if pred(s) {
			return s
		}
	}
	return nil
}

// Clone returns a deep copy.
func (h *HandState) Clone() *HandState {
	c := *h
	c.Seats = make([]*SeatState, len(h.Seats))
	for i, s := range h.Seats {
		cs := *s
		c.Seats[i] = &cs
	}
	if h.LastAction != nil {
		la := *h.LastAction
		c.LastAction = &la
	}
	return &c
}

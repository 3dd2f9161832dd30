package comm

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/avvvet/poker-services/internal/poker"
	"github.com/shopspring/decimal"
)

// WSMessage is the envelope for websocket frames and NATS payloads alike.
type WSMessage struct {
	Type     string          `json:"type"` // e.g. "game_state", "action"
	Data     json.RawMessage `json:"data"`
	SocketId string          `json:"socketid"`
}

// stream event types
const (
	TypeConnected    = "connected"
	TypeGameState    = "game_state"
	TypeHeartbeat    = "heartbeat"
	TypeTableClosed  = "table_closed"
	TypeError        = "error"
	TypeAction       = "action"
	TypeActionResult = "action_result"
)

// bus event types
const (
	TypeHandCompleted    = "hand-completed"
	TypeTableClosedEvent = "table-closed"
)

// NATS subjects
const (
	SubjectAction = "table.action"
	SubjectEvents = "poker.events"
)

// NewMessage marshals data into an envelope.
func NewMessage(typ string, data any, socketId string) (*WSMessage, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", typ, err)
	}
	return &WSMessage{Type: typ, Data: raw, SocketId: socketId}, nil
}

// PotInBigBlinds formats pot/bigBlind with two decimals.
func PotInBigBlinds(pot, bigBlind int64) string {
	if bigBlind <= 0 {
		return "0.00"
	}
	return decimal.NewFromInt(pot).Div(decimal.NewFromInt(bigBlind)).StringFixed(2)
}

type Connected struct {
	TableID  int64  `json:"table_id"`
	UserID   int64  `json:"user_id"`
	SocketId string `json:"socketid"`
}

// Heartbeat carries only the recomputed turn clock.
type Heartbeat struct {
	TurnRemainingMs int64 `json:"turn_remaining_ms"`
}

type TableClosed struct {
	Reason string `json:"reason"`
}

type ErrorEvent struct {
	Message string `json:"message"`
	Fatal   bool   `json:"fatal"`
}

// ActionRequest is a client action, forwarded from the socket service to
// the table service.
type ActionRequest struct {
	TableID int64            `json:"table_id"`
	UserID  int64            `json:"user_id"`
	Kind    poker.ActionKind `json:"kind"`
	Amount  int64            `json:"amount"`
}

// ActionReply is the outcome of an ActionRequest. Rejection is set for a
// validation failure; Error for anything else.
type ActionReply struct {
	OK        bool          `json:"ok"`
	Action    *poker.Action `json:"action,omitempty"`
	Rejection string        `json:"rejection,omitempty"`
	Error     string        `json:"error,omitempty"`
}

type TableView struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Capacity   int    `json:"capacity"`
	SmallBlind int64  `json:"small_blind"`
	BigBlind   int64  `json:"big_blind"`
	Status     string `json:"status"`
	HandCount  int64  `json:"hand_count"`
	Version    int64  `json:"version"`
}

type SeatView struct {
	SeatNo     int      `json:"seat_no"`
	UserID     int64    `json:"user_id"`
	Stack      int64    `json:"stack"`
	SittingOut bool     `json:"sitting_out"`
	InHand     bool     `json:"in_hand"`
	Folded     bool     `json:"folded"`
	AllIn      bool     `json:"all_in"`
	StreetBet  int64    `json:"street_bet"`
	HandBet    int64    `json:"hand_bet"`
	HoleCards  []string `json:"hole_cards,omitempty"`
	IsViewer   bool     `json:"is_viewer"`
}

type HandView struct {
	ID              int64         `json:"id"`
	HandNo          int64         `json:"hand_no"`
	Street          poker.Street  `json:"street"`
	Pot             int64         `json:"pot"`
	PotBB           string        `json:"pot_bb"`
	CurrentBet      int64         `json:"current_bet"`
	MinRaise        int64         `json:"min_raise"`
	ToCall          int64         `json:"to_call"`
	Board           []string      `json:"board"`
	DealerSeat      int           `json:"dealer_seat"`
	SmallBlindSeat  int           `json:"small_blind_seat"`
	BigBlindSeat    int           `json:"big_blind_seat"`
	ActingSeat      *int          `json:"acting_seat"`
	TurnRemainingMs int64         `json:"turn_remaining_ms"`
	ActionCount     int           `json:"action_count"`
	LastAction      *poker.Action `json:"last_action,omitempty"`
	Voided          bool          `json:"voided"`
	Winnings        []Payout      `json:"winnings,omitempty"`
}

// GameState is the full render payload. Seats is ordered by seat number
// with nil for empty seats.
type GameState struct {
	Table      TableView   `json:"table"`
	Seats      []*SeatView `json:"seats"`
	Hand       *HandView   `json:"hand"`
	ViewerSeat *int        `json:"viewer_seat"`
}

type Payout struct {
	SeatNo   int    `json:"seat_no"`
	UserID   int64  `json:"user_id"`
	Amount   int64  `json:"amount"`
	HandRank string `json:"hand_rank,omitempty"`
}

type SeatResult struct {
	SeatNo    int      `json:"seat_no"`
	UserID    int64    `json:"user_id"`
	HoleCards []string `json:"hole_cards"`
	Won       int64    `json:"won"`
	HandRank  string   `json:"hand_rank,omitempty"`
}

// HandCompleted is published once per settled or voided hand for
// downstream consumers. It is plain data with everything needed to replay
// the hand.
type HandCompleted struct {
	TableID   int64           `json:"table_id"`
	HandID    int64           `json:"hand_id"`
	HandNo    int64           `json:"hand_no"`
	Start     poker.HandStart `json:"start"`
	Board     []string        `json:"board"`
	Actions   []poker.Action  `json:"actions"`
	Payouts   []Payout        `json:"payouts"`
	Results   []SeatResult    `json:"results"`
	Pot       int64           `json:"pot"`
	Voided    bool            `json:"voided"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   time.Time       `json:"ended_at"`
}

type TableClosedEvent struct {
	TableID  int64     `json:"table_id"`
	Reason   string    `json:"reason"`
	ClosedAt time.Time `json:"closed_at"`
}

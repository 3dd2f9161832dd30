package poker

// ActionKind is the kind of an action log entry.
type ActionKind string

const (
	ActionFold   ActionKind = "fold"
	ActionCheck  ActionKind = "check"
	ActionCall   ActionKind = "call"
	ActionBet    ActionKind = "bet"
	ActionRaise  ActionKind = "raise"
	ActionAllIn  ActionKind = "all_in"
	ActionPostSB ActionKind = "post_sb"
	ActionPostBB ActionKind = "post_bb"
)

var actionKinds = map[ActionKind]bool{
	ActionFold: true, ActionCheck: true, ActionCall: true, ActionBet: true,
	ActionRaise: true, ActionAllIn: true, ActionPostSB: true, ActionPostBB: true,
}

func (k ActionKind) Valid() bool { return actionKinds[k] }

// Blind reports whether the kind is a forced post.
func (k ActionKind) Blind() bool { return k == ActionPostSB || k == ActionPostBB }

// Action is one entry of a hand's append-only action log. Amount is the
// number of chips the seat moved into the pot with this action.
type Action struct {
	Seq    int        `json:"seq"`
	Seat   int        `json:"seat"`
	Street Street     `json:"street"`
	Kind   ActionKind `json:"kind"`
	Amount int64      `json:"amount"`
}

// Move is a requested action before validation.
type Move struct {
	Seat   int
	Kind   ActionKind
	Amount int64
}

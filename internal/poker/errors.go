package poker

import "errors"

// Rejection is a validation failure for a requested action. Returning one
// never changes hand state.
type Rejection string

const (
	RejectNotYourTurn   Rejection = "not your turn"
	RejectIllegalAmount Rejection = "illegal amount"
	RejectSeatInactive  Rejection = "seat inactive"
	RejectIllegalAction Rejection = "illegal action"
	RejectNoActiveHand  Rejection = "no active hand"
)

func (r Rejection) Error() string { return string(r) }

// AsRejection reports whether err is (or wraps) a Rejection.
func AsRejection(err error) (Rejection, bool) {
	var r Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return "", false
}

var (
	ErrInconsistentLog = errors.New("action log inconsistent with hand")
	ErrInvalidStart    = errors.New("invalid hand start")
	ErrInvalidCard     = errors.New("invalid card")
)

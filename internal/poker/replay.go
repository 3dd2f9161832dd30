package poker

// Frame is the hand state right after one logged action.
type Frame struct {
	Action Action     `json:"action"`
	State  *HandState `json:"state"`
}

// Replay folds an ordered action log over the hand start. The same inputs
// always yield the same state; any entry the state machine would not have
// produced returns ErrInconsistentLog.
func Replay(start HandStart, actions []Action) (*HandState, error) {
	h, err := NewHand(start)
	if err != nil {
		return nil, err
	}
	for _, a := range actions {
		if err := h.Apply(a); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// ReplaySteps is Replay keeping a snapshot after every action.
func ReplaySteps(start HandStart, actions []Action) ([]Frame, error) {
	h, err := NewHand(start)
	if err != nil {
		return nil, err
	}
	frames := make([]Frame, 0, len(actions))
	for _, a := range actions {
		if err := h.Apply(a); err != nil {
			return frames, err
		}
		frames = append(frames, Frame{Action: a, State: h.Clone()})
	}
	return frames, nil
}

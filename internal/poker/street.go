package poker

import "fmt"

// Street is the phase of a hand. The zero value is not a valid street.
type Street uint8

const (
	StreetPreflop Street = iota + 1
	StreetFlop
	StreetTurn
	StreetRiver
	StreetShowdown
	StreetComplete
)

var streetNames = map[Street]string{
	StreetPreflop:  "preflop",
	StreetFlop:     "flop",
	StreetTurn:     "turn",
	StreetRiver:    "river",
	StreetShowdown: "showdown",
	StreetComplete: "complete",
}

func (s Street) String() string {
	if n, ok := streetNames[s]; ok {
		return n
	}
	return fmt.Sprintf("street(%d)", uint8(s))
}

// ParseStreet is the inverse of String.
func ParseStreet(v string) (Street, error) {
	for s, n := range streetNames {
		if n == v {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown street %q", v)
}

// Next is the transition function of the hand state machine.
func (s Street) Next() Street {
	switch s {
	case StreetPreflop:
		return StreetFlop
	case StreetFlop:
		return StreetTurn
	case StreetTurn:
		return StreetRiver
	case StreetRiver:
		return StreetShowdown
	default:
		return StreetComplete
	}
}

// Betting reports whether actions are accepted on this street.
func (s Street) Betting() bool {
	return s >= StreetPreflop && s <= StreetRiver
}

// Terminal reports whether no further betting can happen.
func (s Street) Terminal() bool {
	return s == StreetShowdown || s == StreetComplete
}

// BoardSize is the number of community cards visible once the street is reached.
func (s Street) BoardSize() int {
	switch s {
	case StreetPreflop:
		return 0
	case StreetFlop:
		return 3
	case StreetTurn:
		return 4
	default:
		return 5
	}
}

func (s Street) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Street) UnmarshalText(b []byte) error {
	v, err := ParseStreet(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

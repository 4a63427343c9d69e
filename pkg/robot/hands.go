package robot

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownHand is returned when a hand name or value is not left or right.
var ErrUnknownHand = errors.New("unknown hand")

// Hand identifies one of the two motion controllers.
type Hand int

const (
	Left Hand = iota
	Right
)

// Valid reports whether h is Left or Right.
func (h Hand) Valid() bool {
	return h == Left || h == Right
}

// Other returns the opposite hand.
func (h Hand) Other() Hand {
	if h == Left {
		return Right
	}
	return Left
}

func (h Hand) String() string {
	switch h {
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("hand(%d)", int(h))
	}
}

// ParseHand parses "left" or "right", case-insensitively.
func ParseHand(s string) (Hand, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "left", "l":
		return Left, nil
	case "right", "r":
		return Right, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownHand, s)
}

// MarshalText implements encoding.TextMarshaler.
func (h Hand) MarshalText() ([]byte, error) {
	if !h.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownHand, int(h))
	}
	return []byte(h.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (h *Hand) UnmarshalText(text []byte) error {
	parsed, err := ParseHand(string(text))
	if err != nil {
		return err
	}
	*h = parsed
	return nil
}

// Package input aggregates motion-controller signals per hand.
package input

import (
	"fmt"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/num/quat"

	"github.com/gwillem/flexpendant/pkg/robot"
)

// HandInputState is the latest value of every signal from one controller.
// Fields are only ever overwritten by a newer event of the same kind.
type HandInputState struct {
	TriggerPressed         bool
	GripPressed            bool
	PrimaryButtonPressed   bool
	SecondaryButtonPressed bool
	JoystickAxis           r2.Point
	JoystickPressed        bool
	JoystickTouched        bool
	Rotation               quat.Number
}

// NewHandInputState returns the state of an untouched controller.
func NewHandInputState() HandInputState {
	return HandInputState{Rotation: robot.Identity}
}

// Snapshot is a consistent copy of both hands taken under one lock.
type Snapshot struct {
	Left  HandInputState
	Right HandInputState
}

// Hand returns the state of h.
func (s Snapshot) Hand(h robot.Hand) HandInputState {
	if h == robot.Right {
		return s.Right
	}
	return s.Left
}

// EventKind names a controller signal.
type EventKind int

const (
	PrimaryButton EventKind = iota
	SecondaryButton
	Trigger
	Grip
	JoystickAxis
	JoystickPressed
	JoystickTouched
	Rotation
	numEventKinds
)

var eventKindNames = [numEventKinds]string{
	"primary_button",
	"secondary_button",
	"trigger",
	"grip",
	"joystick_axis",
	"joystick_pressed",
	"joystick_touched",
	"rotation",
}

func (k EventKind) String() string {
	if k < 0 || k >= numEventKinds {
		return fmt.Sprintf("event(%d)", int(k))
	}
	return eventKindNames[k]
}

// ParseEventKind parses an event kind name.
func ParseEventKind(s string) (EventKind, error) {
	for i, name := range eventKindNames {
		if name == s {
			return EventKind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown event kind %q", s)
}

// Event is one signal change from one controller. Only the field matching
// Kind is meaningful.
type Event struct {
	Kind     EventKind
	Hand     robot.Hand
	Pressed  bool
	Axis     r2.Point
	Rotation quat.Number
}

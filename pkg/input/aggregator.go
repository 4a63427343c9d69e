package input

import (
	"fmt"
	"sync"

	"github.com/gwillem/flexpendant/pkg/robot"
)

// Handler is called synchronously for every event it was registered for,
// after the hand state has been updated.
type Handler func(Event)

type handlerKey struct {
	kind EventKind
	hand robot.Hand
}

// Aggregator owns the input state of both hands. Events may arrive from
// any goroutine; readers get consistent snapshots.
type Aggregator struct {
	mu       sync.RWMutex
	hands    [2]HandInputState
	handlers map[handlerKey][]Handler
}

// NewAggregator creates an aggregator with both hands at rest.
func NewAggregator() *Aggregator {
	return &Aggregator{
		hands:    [2]HandInputState{NewHandInputState(), NewHandInputState()},
		handlers: make(map[handlerKey][]Handler),
	}
}

// Register adds h for events of kind from hand.
func (a *Aggregator) Register(kind EventKind, hand robot.Hand, h Handler) {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := handlerKey{kind, hand}
	a.handlers[key] = append(a.handlers[key], h)
}

// RegisterBoth adds h for events of kind from either hand.
func (a *Aggregator) RegisterBoth(kind EventKind, h Handler) {
	a.Register(kind, robot.Left, h)
	a.Register(kind, robot.Right, h)
}

// Dispatch records ev and then runs its handlers.
func (a *Aggregator) Dispatch(ev Event) error {
	if !ev.Hand.Valid() {
		return fmt.Errorf("%w: %d", robot.ErrUnknownHand, int(ev.Hand))
	}

	a.mu.Lock()
	s := &a.hands[ev.Hand]
	switch ev.Kind {
	case PrimaryButton:
		s.PrimaryButtonPressed = ev.Pressed
	case SecondaryButton:
		s.SecondaryButtonPressed = ev.Pressed
	case Trigger:
		s.TriggerPressed = ev.Pressed
	case Grip:
		s.GripPressed = ev.Pressed
	case JoystickAxis:
		s.JoystickAxis = ev.Axis
	case JoystickPressed:
		s.JoystickPressed = ev.Pressed
	case JoystickTouched:
		s.JoystickTouched = ev.Pressed
	case Rotation:
		s.Rotation = ev.Rotation
	default:
		a.mu.Unlock()
		return fmt.Errorf("dispatch: unknown event kind %d", int(ev.Kind))
	}
	handlers := a.handlers[handlerKey{ev.Kind, ev.Hand}]
	a.mu.Unlock()

	for _, h := range handlers {
		h(ev)
	}
	return nil
}

// Snapshot returns a copy of both hands.
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return Snapshot{Left: a.hands[robot.Left], Right: a.hands[robot.Right]}
}

// Hand returns a copy of one hand's state.
func (a *Aggregator) Hand(h robot.Hand) HandInputState {
	return a.Snapshot().Hand(h)
}

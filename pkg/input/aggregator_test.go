package input

import (
	"errors"
	"sync"
	"testing"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/num/quat"

	"github.com/gwillem/flexpendant/pkg/robot"
)

func TestAggregator_UpdatesOnlyMatchingField(t *testing.T) {
	a := NewAggregator()

	events := []Event{
		{Kind: Trigger, Hand: robot.Left, Pressed: true},
		{Kind: Grip, Hand: robot.Left, Pressed: true},
		{Kind: JoystickAxis, Hand: robot.Right, Axis: r2.Point{X: 0.3, Y: -0.6}},
		{Kind: JoystickPressed, Hand: robot.Right, Pressed: true},
		{Kind: JoystickTouched, Hand: robot.Right, Pressed: true},
		{Kind: PrimaryButton, Hand: robot.Right, Pressed: true},
		{Kind: SecondaryButton, Hand: robot.Left, Pressed: true},
		{Kind: Rotation, Hand: robot.Left, Rotation: quat.Number{Jmag: 1}},
	}
	for _, ev := range events {
		if err := a.Dispatch(ev); err != nil {
			t.Fatalf("Dispatch(%v): %v", ev.Kind, err)
		}
	}

	snap := a.Snapshot()
	left, right := snap.Left, snap.Right

	if !left.TriggerPressed || !left.GripPressed || !left.SecondaryButtonPressed {
		t.Errorf("left buttons not recorded: %+v", left)
	}
	if left.Rotation != (quat.Number{Jmag: 1}) {
		t.Errorf("left rotation = %v", left.Rotation)
	}
	if left.JoystickAxis != (r2.Point{}) || left.JoystickPressed || left.PrimaryButtonPressed {
		t.Errorf("left picked up right-hand events: %+v", left)
	}

	if right.JoystickAxis != (r2.Point{X: 0.3, Y: -0.6}) {
		t.Errorf("right axis = %v", right.JoystickAxis)
	}
	if !right.JoystickPressed || !right.JoystickTouched || !right.PrimaryButtonPressed {
		t.Errorf("right buttons not recorded: %+v", right)
	}
	if right.TriggerPressed || right.Rotation != robot.Identity {
		t.Errorf("right picked up left-hand events: %+v", right)
	}

	// a release overwrites, nothing else is reset
	if err := a.Dispatch(Event{Kind: Trigger, Hand: robot.Left}); err != nil {
		t.Fatal(err)
	}
	left = a.Hand(robot.Left)
	if left.TriggerPressed {
		t.Error("trigger release not recorded")
	}
	if !left.GripPressed {
		t.Error("grip was reset by an unrelated event")
	}
}

func TestAggregator_HandlersPerKindAndHand(t *testing.T) {
	a := NewAggregator()

	var got []Event
	a.Register(PrimaryButton, robot.Right, func(ev Event) { got = append(got, ev) })

	var both int
	a.RegisterBoth(Trigger, func(ev Event) {
		// state is already updated when handlers run
		if a.Hand(ev.Hand).TriggerPressed != ev.Pressed {
			t.Errorf("handler ran before state update")
		}
		both++
	})

	a.Dispatch(Event{Kind: PrimaryButton, Hand: robot.Left, Pressed: true})
	a.Dispatch(Event{Kind: PrimaryButton, Hand: robot.Right, Pressed: true})
	a.Dispatch(Event{Kind: PrimaryButton, Hand: robot.Right, Pressed: false})
	a.Dispatch(Event{Kind: Trigger, Hand: robot.Left, Pressed: true})
	a.Dispatch(Event{Kind: Trigger, Hand: robot.Right, Pressed: true})

	if len(got) != 2 {
		t.Fatalf("right primary handler ran %d times, want 2", len(got))
	}
	if !got[0].Pressed || got[1].Pressed {
		t.Errorf("edges = %v, %v; want true, false", got[0].Pressed, got[1].Pressed)
	}
	if both != 2 {
		t.Errorf("trigger handler ran %d times, want 2", both)
	}
}

func TestAggregator_RejectsBadEvents(t *testing.T) {
	a := NewAggregator()

	if err := a.Dispatch(Event{Kind: Trigger, Hand: robot.Hand(7)}); !errors.Is(err, robot.ErrUnknownHand) {
		t.Errorf("bad hand: err = %v", err)
	}
	if err := a.Dispatch(Event{Kind: EventKind(99), Hand: robot.Left}); err == nil {
		t.Error("bad kind: expected error")
	}
}

func TestAggregator_ConcurrentSnapshots(t *testing.T) {
	a := NewAggregator()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			a.Dispatch(Event{Kind: JoystickAxis, Hand: robot.Right, Axis: r2.Point{X: float64(i), Y: float64(i)}})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			axis := a.Snapshot().Right.JoystickAxis
			if axis.X != axis.Y {
				t.Errorf("torn axis read: %v", axis)
				return
			}
		}
	}()
	wg.Wait()
}

func TestParseEventKind(t *testing.T) {
	for k := PrimaryButton; k < numEventKinds; k++ {
		got, err := ParseEventKind(k.String())
		if err != nil || got != k {
			t.Errorf("ParseEventKind(%q) = %v, %v", k.String(), got, err)
		}
	}
	if _, err := ParseEventKind("thumbstick"); err == nil {
		t.Error("expected error for unknown kind")
	}
}

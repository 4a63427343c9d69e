package input

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/gwillem/flexpendant/pkg/robot"
)

func TestTiltTracker_SignedRollWhilePressed(t *testing.T) {
	tr := NewTiltTracker(robot.Left, 15)
	forward := r3.Vector{Z: 1}
	start := robot.AxisAngle(r3.Vector{Y: 1}, 30)

	tr.RotateController(start, robot.Left)
	if got := tr.TiltAngle(); got != 0 {
		t.Errorf("TiltAngle before press = %v, want 0", got)
	}

	tr.PressJoystick(true, robot.Left)
	tests := []struct {
		roll float64
		want float64
	}{
		{0, 0},
		{40, 40},
		{-25, -25},
		{170, 170},
		{200, -160},
	}
	for _, tt := range tests {
		tr.RotateController(quat.Mul(start, robot.AxisAngle(forward, tt.roll)), robot.Left)
		if got := tr.TiltAngle(); math.Abs(got-tt.want) > 1e-6 {
			t.Errorf("roll %v: TiltAngle = %v, want %v", tt.roll, got, tt.want)
		}
	}

	tr.PressJoystick(false, robot.Left)
	if tr.IsPressed() {
		t.Error("still pressed after release")
	}
	if got := tr.TiltAngle(); got != 0 {
		t.Errorf("TiltAngle after release = %v, want 0", got)
	}
}

func TestTiltTracker_IgnoresOtherHand(t *testing.T) {
	tr := NewTiltTracker(robot.Left, 15)

	tr.PressJoystick(true, robot.Right)
	tr.SnapToJoystick(true, robot.Right)
	if tr.IsPressed() || tr.Touched() {
		t.Error("right-hand events reached a left-hand tracker")
	}

	tr.SnapToJoystick(true, robot.Left)
	if !tr.Touched() {
		t.Error("touch not recorded")
	}

	tr.SetThreshold(22)
	if tr.TiltThreshold() != 22 {
		t.Errorf("TiltThreshold = %v, want 22", tr.TiltThreshold())
	}
}

func TestHoldings(t *testing.T) {
	var h Holdings

	if _, ok := h.HeldObject(robot.Left); ok {
		t.Error("empty hand reports a held object")
	}

	h.Hold(robot.Left, "Flexpendant")
	if id, ok := h.HeldObject(robot.Left); !ok || id != "Flexpendant" {
		t.Errorf("HeldObject(left) = %q, %v", id, ok)
	}
	if _, ok := h.HeldObject(robot.Right); ok {
		t.Error("right hand holds something it never picked up")
	}

	h.Release(robot.Left)
	if _, ok := h.HeldObject(robot.Left); ok {
		t.Error("released hand still holds an object")
	}
}

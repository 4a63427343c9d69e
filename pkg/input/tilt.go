package input

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/num/quat"

	"github.com/gwillem/flexpendant/pkg/robot"
)

// TiltTracker turns one controller into a one-dimensional tilt input.
// While its joystick is held down the tilt angle is the signed roll, about
// the controller's forward (Z) axis, away from the rotation it had when the
// joystick was pressed.
type TiltTracker struct {
	hand robot.Hand

	mu        sync.Mutex
	threshold float64
	touched   bool
	pressed   bool
	reference quat.Number
	current   quat.Number
}

// NewTiltTracker tracks hand with a tilt threshold in degrees.
func NewTiltTracker(hand robot.Hand, threshold float64) *TiltTracker {
	return &TiltTracker{
		hand:      hand,
		threshold: threshold,
		reference: robot.Identity,
		current:   robot.Identity,
	}
}

// SnapToJoystick records whether the thumb rests on the joystick.
func (t *TiltTracker) SnapToJoystick(touched bool, hand robot.Hand) {
	if hand != t.hand {
		return
	}
	t.mu.Lock()
	t.touched = touched
	t.mu.Unlock()
}

// RotateController records the latest controller rotation.
func (t *TiltTracker) RotateController(q quat.Number, hand robot.Hand) {
	if hand != t.hand {
		return
	}
	t.mu.Lock()
	t.current = q
	t.mu.Unlock()
}

// PressJoystick starts or ends a tilt gesture.
func (t *TiltTracker) PressJoystick(pressed bool, hand robot.Hand) {
	if hand != t.hand {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if pressed && !t.pressed {
		t.reference = t.current
	}
	t.pressed = pressed
}

// IsPressed reports whether the joystick is held down.
func (t *TiltTracker) IsPressed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.pressed
}

// Touched reports whether the thumb rests on the joystick.
func (t *TiltTracker) Touched() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.touched
}

// TiltAngle returns the signed tilt in degrees within (-180, 180], or 0
// when the joystick is not pressed.
func (t *TiltTracker) TiltAngle() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.pressed {
		return 0
	}
	delta := quat.Mul(quat.Conj(t.reference), t.current)
	deg := 2 * math.Atan2(delta.Kmag, delta.Real) * 180 / math.Pi
	for deg > 180 {
		deg -= 360
	}
	for deg <= -180 {
		deg += 360
	}
	return deg
}

// TiltThreshold returns the tilt in degrees below which a tilt is ignored.
func (t *TiltTracker) TiltThreshold() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.threshold
}

// SetThreshold changes the tilt threshold.
func (t *TiltTracker) SetThreshold(deg float64) {
	t.mu.Lock()
	t.threshold = deg
	t.mu.Unlock()
}

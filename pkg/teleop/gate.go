package teleop

import (
	"github.com/gwillem/flexpendant/pkg/input"
	"github.com/gwillem/flexpendant/pkg/robot"
)

// Gate is the safety precondition for motion: the pressure button must be
// held on the gating hand while that hand holds the control device.
// Callers serialise access.
type Gate struct {
	hand     robot.Hand
	device   input.DeviceID
	registry HeldObjectRegistry
	held     bool
}

// NewGate creates a closed gate.
func NewGate(hand robot.Hand, device input.DeviceID, registry HeldObjectRegistry) *Gate {
	return &Gate{hand: hand, device: device, registry: registry}
}

// SetPressureButton records the pressure button. Calls from the other hand,
// or while the gating hand is not holding the control device, leave the
// gate as it was. It reports whether the call was applied.
func (g *Gate) SetPressureButton(pressed bool, hand robot.Hand) bool {
	if hand != g.hand {
		return false
	}
	id, ok := g.registry.HeldObject(g.hand)
	if !ok || id != g.device {
		return false
	}
	g.held = pressed
	return true
}

// Open reports whether motion is enabled.
func (g *Gate) Open() bool {
	return g.held
}

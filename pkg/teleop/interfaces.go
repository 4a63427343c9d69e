package teleop

import (
	"context"
	"time"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/gwillem/flexpendant/pkg/input"
	"github.com/gwillem/flexpendant/pkg/robot"
)

// JoystickTiltSource supplies the one-dimensional tilt input.
type JoystickTiltSource interface {
	TiltAngle() float64 // degrees, signed
	IsPressed() bool
	TiltThreshold() float64
}

// HeldObjectRegistry reports what each hand is holding.
type HeldObjectRegistry interface {
	HeldObject(hand robot.Hand) (input.DeviceID, bool)
}

// LinearDriveTarget moves the end effector's follow target.
type LinearDriveTarget interface {
	MoveTowards(direction r3.Vector)
	SeedPosition(p r3.Vector)
	SetEnabled(enabled bool)
}

// JointActuatorBackend turns joint commands into joint motion.
type JointActuatorBackend interface {
	// SetRotationCommand commands j to rotate in d and every other joint
	// to stop.
	SetRotationCommand(j robot.Joint, d robot.Direction)
	StopAll()
	JointAngle(j robot.Joint) float64
	// TerminalPosition is the current position of the last joint.
	TerminalPosition() r3.Vector
}

// DisplayFeedback shows the operator what the controller is doing.
type DisplayFeedback interface {
	ShowAxisSet(set AxisSet)
	ShowMode(m Mode)
	ShowJoint(j robot.Joint, angle float64)
}

// IKSubsystem is the solver that follows the linear target.
type IKSubsystem interface {
	SetEnabled(enabled bool)
}

// JoystickVisual mirrors the joystick on the pendant model.
type JoystickVisual interface {
	SnapToJoystick(touched bool, hand robot.Hand)
	RotateController(q quat.Number, hand robot.Hand)
	PressJoystick(pressed bool, hand robot.Hand)
}

// Teleporter arms teleport from a vertical stick value.
type Teleporter interface {
	SwitchToTeleport(vertical float64)
}

// PointIndicator shows a pointer ray while the trigger is held.
type PointIndicator interface {
	PointAction(hand robot.Hand, pressed bool)
}

// Stepper is advanced by the fixed-rate loop after every control tick.
type Stepper interface {
	Step(ctx context.Context, dt time.Duration) error
}

// Displays fans feedback out to several displays.
type Displays []DisplayFeedback

func (d Displays) ShowAxisSet(set AxisSet) {
	for _, display := range d {
		display.ShowAxisSet(set)
	}
}

func (d Displays) ShowMode(m Mode) {
	for _, display := range d {
		display.ShowMode(m)
	}
}

func (d Displays) ShowJoint(j robot.Joint, angle float64) {
	for _, display := range d {
		display.ShowJoint(j, angle)
	}
}

type nopCollaborator struct{}

func (nopCollaborator) ShowAxisSet(AxisSet) {}
func (nopCollaborator) ShowMode(Mode) {}
func (nopCollaborator) ShowJoint(robot.Joint, float64) {}
func (nopCollaborator) SetEnabled(bool) {}
func (nopCollaborator) SnapToJoystick(bool, robot.Hand) {}
func (nopCollaborator) RotateController(quat.Number, robot.Hand) {}
func (nopCollaborator) PressJoystick(bool, robot.Hand) {}
func (nopCollaborator) SwitchToTeleport(float64) {}
func (nopCollaborator) PointAction(robot.Hand, bool) {}

package teleop

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"

	"github.com/gwillem/flexpendant/pkg/robot"
)

// TiltReading is one sample of a JoystickTiltSource.
type TiltReading struct {
	Pressed   bool
	Angle     float64 // degrees
	Threshold float64 // degrees
}

// ReadTilt samples src.
func ReadTilt(src JoystickTiltSource) TiltReading {
	return TiltReading{
		Pressed:   src.IsPressed(),
		Angle:     src.TiltAngle(),
		Threshold: src.TiltThreshold(),
	}
}

// LinearDirection maps the inputs to an end-effector direction. A pressed
// tilt drives the vertical axis alone, at no less than half speed;
// otherwise the stick drives the horizontal plane.
func LinearDirection(tilt TiltReading, axis r2.Point) r3.Vector {
	if tilt.Pressed {
		sign := -1.0
		if tilt.Angle > 0 {
			sign = 1
		}
		magnitude := min(max(math.Abs(tilt.Angle)/180, 0.5), 1)
		return r3.Vector{Y: magnitude * sign}
	}
	return r3.Vector{X: axis.Y, Z: -axis.X}
}

// JointCommand is the articulated output of one tick.
type JointCommand struct {
	Joint     robot.Joint
	Direction robot.Direction
}

type axisSetJoints struct {
	bendX, bendY, twist robot.Joint
}

var setJoints = [2]axisSetJoints{
	SetA: {bendX: robot.BaseYaw, bendY: robot.ShoulderPitch, twist: robot.ElbowPitch},
	SetB: {bendX: robot.ForearmRoll, bendY: robot.WristPitch, twist: robot.FlangeRoll},
}

// The shoulder turns against the stick's vertical axis on the physical rig,
// unlike every other joint.
const invertedBend = robot.ShoulderPitch

func _() {
	// An index outside the joint set fails to compile here.
	var x [robot.NumJoints]struct{}
	_ = x[robot.BaseYaw]
	_ = x[robot.ShoulderPitch]
	_ = x[robot.ElbowPitch]
	_ = x[robot.ForearmRoll]
	_ = x[robot.WristPitch]
	_ = x[robot.FlangeRoll]
}

// SelectJoint picks the joint and direction for the articulated strategy.
// A pressed tilt beyond its threshold turns the set's twist joint; a pressed
// tilt inside the threshold selects nothing. Otherwise a stick deflection
// beyond threshold bends the joint of its dominant axis. ok is false when
// no joint is selected.
func SelectJoint(tilt TiltReading, axis r2.Point, set AxisSet, threshold float64) (cmd JointCommand, ok bool) {
	joints := setJoints[set]

	if tilt.Pressed {
		if math.Abs(tilt.Angle) > tilt.Threshold {
			return JointCommand{joints.twist, directionOf(tilt.Angle > 0)}, true
		}
		return JointCommand{}, false
	}

	if !(axis.Norm() > threshold) {
		return JointCommand{}, false
	}

	if math.Abs(axis.X) > math.Abs(axis.Y) {
		return JointCommand{joints.bendX, directionOf(!(axis.X > 0))}, true
	}

	positive := axis.Y > 0
	if joints.bendY == invertedBend {
		positive = !positive
	}
	return JointCommand{joints.bendY, directionOf(positive)}, true
}

func directionOf(positive bool) robot.Direction {
	if positive {
		return robot.Positive
	}
	return robot.Negative
}

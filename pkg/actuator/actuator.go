// Package actuator implements the joint actuator backends: stepped per-joint
// controllers for the articulated variant and direct bone rotation for the
// direct variant.
package actuator

import (
	"context"
	"fmt"
	"time"

	"github.com/golang/geo/r3"

	"github.com/gwillem/flexpendant/pkg/robot"
)

// PositionWriter sends target joint angles, in degrees, to the arm.
type PositionWriter interface {
	WriteAngles(ctx context.Context, angles [robot.NumJoints]float64) error
}

// PositionReader reads the arm's joint angles in degrees.
type PositionReader interface {
	ReadAngles(ctx context.Context) ([robot.NumJoints]float64, error)
}

// New returns the backend for the profile's variant. w may be nil, in which
// case the backend only simulates.
func New(p robot.Profile, w PositionWriter) (Backend, error) {
	switch p.Variant {
	case robot.VariantArticulated:
		return NewJointControllerBackend(p, w)
	case robot.VariantDirect:
		return NewDirectDriveBackend(p, w)
	}
	return nil, fmt.Errorf("no backend for variant %q", p.Variant)
}

// Backend is what both variants provide to the control loop.
type Backend interface {
	SetRotationCommand(j robot.Joint, d robot.Direction)
	StopAll()
	JointAngle(j robot.Joint) float64
	Angles() [robot.NumJoints]float64
	TerminalPosition() r3.Vector
	SetSpeed(degPerSec float64)
	Sync(ctx context.Context) error
	Step(ctx context.Context, dt time.Duration) error
}

func checkJoints(p robot.Profile) error {
	if len(p.Joints) != robot.NumJoints {
		return fmt.Errorf("%w: got %d joints, want %d", robot.ErrIncompleteJointSet, len(p.Joints), robot.NumJoints)
	}
	return nil
}

func readBack(ctx context.Context, w PositionWriter) ([robot.NumJoints]float64, bool, error) {
	r, ok := w.(PositionReader)
	if !ok {
		return [robot.NumJoints]float64{}, false, nil
	}
	angles, err := r.ReadAngles(ctx)
	if err != nil {
		return angles, false, fmt.Errorf("sync joint angles: %w", err)
	}
	return angles, true, nil
}

package linear

import (
	"context"
	"errors"
	"math"

	"github.com/golang/geo/r3"

	"github.com/gwillem/flexpendant/pkg/robot"
)

// ErrUnreachable is returned when the solver cannot bring the terminal
// joint within tolerance of the target.
var ErrUnreachable = errors.New("target unreachable")

// Limits holds the minimum and maximum angle of every joint in degrees.
type Limits [robot.NumJoints][2]float64

// LimitsFromProfile reads joint limits from a validated profile.
func LimitsFromProfile(p robot.Profile) Limits {
	var l Limits
	for i, jp := range p.Joints {
		l[i] = [2]float64{jp.MinDegrees, jp.MaxDegrees}
	}
	return l
}

// CCD is a cyclic coordinate descent solver over a joint chain.
type CCD struct {
	Chain      robot.Chain
	Limits     Limits
	Iterations int
	Tolerance  float64 // metres
}

// Solve returns joint angles, starting from start, that place the terminal
// joint at target. The best angles found are returned along with
// ErrUnreachable when the target is out of tolerance.
func (s CCD) Solve(start [robot.NumJoints]float64, target r3.Vector) ([robot.NumJoints]float64, error) {
	angles := start
	iterations := s.Iterations
	if iterations <= 0 {
		iterations = 32
	}
	tolerance := s.Tolerance
	if tolerance <= 0 {
		tolerance = 1e-3
	}

	for range iterations {
		// the terminal joint cannot move its own origin
		for i := robot.NumJoints - 2; i >= 0; i-- {
			frames := s.Chain.Frames(angles)
			end := frames[robot.NumJoints-1].Origin
			if end.Sub(target).Norm() < tolerance {
				return angles, nil
			}

			f := frames[i]
			toEnd := project(end.Sub(f.Origin), f.Axis)
			toTarget := project(target.Sub(f.Origin), f.Axis)
			if toEnd.Norm() < 1e-9 || toTarget.Norm() < 1e-9 {
				continue
			}

			delta := math.Atan2(toEnd.Cross(toTarget).Dot(f.Axis), toEnd.Dot(toTarget)) * 180 / math.Pi
			angles[i] = min(max(angles[i]+delta, s.Limits[i][0]), s.Limits[i][1])
		}
	}

	end := s.Chain.Frames(angles)[robot.NumJoints-1].Origin
	if end.Sub(target).Norm() < tolerance {
		return angles, nil
	}
	return angles, ErrUnreachable
}

func project(v, axis r3.Vector) r3.Vector {
	return v.Sub(axis.Mul(v.Dot(axis)))
}

// AngleSetter accepts solved joint angles.
type AngleSetter interface {
	Angles() [robot.NumJoints]float64
	SetAngles(angles [robot.NumJoints]float64)
}

// SolveInto returns a SolveFunc that runs s from the backend's current
// angles and hands it the result. Unreachable targets still move the arm
// as close as the solver got.
func (s CCD) SolveInto(b AngleSetter) SolveFunc {
	return func(_ context.Context, target r3.Vector) error {
		angles, err := s.Solve(b.Angles(), target)
		b.SetAngles(angles)
		return err
	}
}

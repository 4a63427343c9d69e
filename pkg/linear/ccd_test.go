package linear

import (
	"context"
	"errors"
	"testing"

	"github.com/golang/geo/r3"

	"github.com/gwillem/flexpendant/pkg/robot"
)

func articulatedSolver(t *testing.T) CCD {
	t.Helper()
	p, err := robot.DefaultProfile(robot.VariantArticulated)
	if err != nil {
		t.Fatal(err)
	}
	return CCD{Chain: p.Chain(), Limits: LimitsFromProfile(p), Iterations: 200}
}

func TestCCD_ReachesNearbyTarget(t *testing.T) {
	s := articulatedSolver(t)
	home := s.Chain.LocateAngles([robot.NumJoints]float64{})

	tests := []struct {
		name   string
		target r3.Vector
	}{
		{"home", home},
		{"forward", home.Add(r3.Vector{X: 0.05})},
		{"down", home.Add(r3.Vector{Y: -0.1})},
		{"sideways", home.Add(r3.Vector{Z: 0.05})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			angles, err := s.Solve([robot.NumJoints]float64{}, tt.target)
			if err != nil {
				t.Fatalf("Solve: %v", err)
			}
			if got := s.Chain.LocateAngles(angles); got.Sub(tt.target).Norm() > 1e-3 {
				t.Errorf("terminal at %v, want %v", got, tt.target)
			}
			for i, a := range angles {
				if a < s.Limits[i][0] || a > s.Limits[i][1] {
					t.Errorf("joint %d at %v outside limits %v", i+1, a, s.Limits[i])
				}
			}
		})
	}
}

func TestCCD_Unreachable(t *testing.T) {
	s := articulatedSolver(t)
	_, err := s.Solve([robot.NumJoints]float64{}, r3.Vector{X: 5})
	if !errors.Is(err, ErrUnreachable) {
		t.Errorf("err = %v, want ErrUnreachable", err)
	}
}

type angleStore struct {
	angles [robot.NumJoints]float64
}

func (a *angleStore) Angles() [robot.NumJoints]float64 { return a.angles }

func (a *angleStore) SetAngles(angles [robot.NumJoints]float64) { a.angles = angles }

func TestCCD_SolveInto(t *testing.T) {
	s := articulatedSolver(t)
	store := &angleStore{}
	target := s.Chain.LocateAngles([robot.NumJoints]float64{}).Add(r3.Vector{Y: -0.05})

	if err := s.SolveInto(store)(context.Background(), target); err != nil {
		t.Fatal(err)
	}
	if got := s.Chain.LocateAngles(store.angles); got.Sub(target).Norm() > 1e-3 {
		t.Errorf("terminal at %v, want %v", got, target)
	}
}

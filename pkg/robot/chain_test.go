package robot

import (
	"testing"

	"github.com/golang/geo/r3"
)

func near(a, b r3.Vector) bool {
	return a.Sub(b).Norm() < 1e-9
}

func TestRotate_QuarterTurn(t *testing.T) {
	q := AxisAngle(r3.Vector{Y: 1}, 90)
	got := Rotate(q, r3.Vector{X: 1})
	want := r3.Vector{Z: -1}
	if !near(got, want) {
		t.Errorf("Rotate = %v, want %v", got, want)
	}
}

func TestChain_LocateAngles(t *testing.T) {
	chain := Chain{
		{Offset: r3.Vector{}, Axis: r3.Vector{Y: 1}},
		{Offset: r3.Vector{Y: 1}, Axis: r3.Vector{Z: 1}},
		{Offset: r3.Vector{Y: 1}, Axis: r3.Vector{Z: 1}},
		{Offset: r3.Vector{X: 1}, Axis: r3.Vector{X: 1}},
		{Offset: r3.Vector{X: 1}, Axis: r3.Vector{Z: 1}},
		{Offset: r3.Vector{X: 1}, Axis: r3.Vector{X: 1}},
	}

	tests := []struct {
		name   string
		angles [NumJoints]float64
		want   r3.Vector
	}{
		{"home", [NumJoints]float64{}, r3.Vector{X: 3, Y: 2}},
		{"base quarter turn", [NumJoints]float64{90}, r3.Vector{Y: 2, Z: -3}},
		// the terminal joint's own rotation never moves its origin
		{"flange only", [NumJoints]float64{5: 45}, r3.Vector{X: 3, Y: 2}},
		{"elbow folds up", [NumJoints]float64{2: 90}, r3.Vector{Y: 5}},
	}

	for _, tt := range tests {
		got := chain.LocateAngles(tt.angles)
		if !near(got, tt.want) {
			t.Errorf("%s: LocateAngles = %v, want %v", tt.name, got, tt.want)
		}
	}
}

package main

import (
	"testing"

	"github.com/gwillem/flexpendant/pkg/robot"
)

func TestAngleRange(t *testing.T) {
	tests := []struct {
		variant robot.Variant
		lo, hi  float64
	}{
		{robot.VariantArticulated, -400, 400},
		{robot.VariantDirect, -180, 180},
	}

	for _, tt := range tests {
		p, err := robot.DefaultProfile(tt.variant)
		if err != nil {
			t.Fatal(err)
		}
		lo, hi := angleRange(p)
		if lo != tt.lo || hi != tt.hi {
			t.Errorf("angleRange(%s) = %v, %v, want %v, %v", tt.variant, lo, hi, tt.lo, tt.hi)
		}
	}
}

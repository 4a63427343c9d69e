package robot

import (
	"errors"
	"fmt"
)

// ErrIncompleteJointSet is returned when a calibration, profile or backend
// does not cover every joint of the arm.
var ErrIncompleteJointSet = errors.New("incomplete joint set")

// JointCalibration holds calibration data for the servo driving one joint.
type JointCalibration struct {
	ID         int     `json:"id"`
	DriveMode  int     `json:"drive_mode"`
	RangeMin   int     `json:"range_min"`
	RangeMax   int     `json:"range_max"`
	MinDegrees float64 `json:"min_degrees"`
	MaxDegrees float64 `json:"max_degrees"`
}

// Calibration holds calibration data for all joints, keyed by joint.
type Calibration map[Joint]JointCalibration

// ToDegrees converts a raw servo position to a joint angle in degrees.
func (c JointCalibration) ToDegrees(raw int) float64 {
	rangeSize := float64(c.RangeMax - c.RangeMin)
	if rangeSize == 0 {
		return c.MinDegrees
	}
	t := float64(raw-c.RangeMin) / rangeSize
	if c.DriveMode == 1 {
		t = 1 - t
	}
	return c.MinDegrees + t*(c.MaxDegrees-c.MinDegrees)
}

// FromDegrees converts a joint angle in degrees to a raw servo position.
// Angles outside the calibrated span are clamped.
func (c JointCalibration) FromDegrees(deg float64) int {
	span := c.MaxDegrees - c.MinDegrees
	if span == 0 {
		return c.RangeMin
	}
	t := (deg - c.MinDegrees) / span
	t = min(max(t, 0), 1)
	if c.DriveMode == 1 {
		t = 1 - t
	}
	rangeSize := float64(c.RangeMax - c.RangeMin)
	return int(t*rangeSize+0.5) + c.RangeMin
}

// ServoIDs returns the servo IDs for all joints in the calibration.
func (c Calibration) ServoIDs() []int {
	ids := make([]int, 0, len(c))
	// Use AllJoints() to ensure consistent ordering
	for _, j := range AllJoints() {
		if jc, ok := c[j]; ok {
			ids = append(ids, jc.ID)
		}
	}
	return ids
}

// ByID returns joint and calibration for a given servo ID.
func (c Calibration) ByID(id int) (Joint, JointCalibration, bool) {
	for j, jc := range c {
		if jc.ID == id {
			return j, jc, true
		}
	}
	return 0, JointCalibration{}, false
}

// Validate checks that every joint has a calibration entry.
func (c Calibration) Validate() error {
	for _, j := range AllJoints() {
		if _, ok := c[j]; !ok {
			return fmt.Errorf("%w: no calibration for %s", ErrIncompleteJointSet, j)
		}
	}
	return nil
}

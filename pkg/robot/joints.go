// Package robot provides the shared vocabulary and hardware access for the
// six-axis arm driven from the flexpendant.
package robot

import "fmt"

// Joint identifies one articulated joint of the arm, counted from the base.
type Joint int

// NumJoints is the fixed size of the joint set. Every actuator backend holds
// exactly this many joints.
const NumJoints = 6

// Joints of the arm, base to flange.
const (
	BaseYaw Joint = iota
	ShoulderPitch
	ElbowPitch
	ForearmRoll
	WristPitch
	FlangeRoll
)

var jointNames = [NumJoints]string{
	"base_yaw",
	"shoulder_pitch",
	"elbow_pitch",
	"forearm_roll",
	"wrist_pitch",
	"flange_roll",
}

// AllJoints returns all joints in order (matching servo IDs 1-6).
func AllJoints() []Joint {
	return []Joint{
		BaseYaw,
		ShoulderPitch,
		ElbowPitch,
		ForearmRoll,
		WristPitch,
		FlangeRoll,
	}
}

// Valid reports whether j is inside the joint set.
func (j Joint) Valid() bool {
	return j >= 0 && j < NumJoints
}

func (j Joint) String() string {
	if !j.Valid() {
		return fmt.Sprintf("joint(%d)", int(j))
	}
	return jointNames[j]
}

// Number is the one-based axis number shown on the pendant.
func (j Joint) Number() int {
	return int(j) + 1
}

// MarshalText encodes the joint by name so it can key JSON maps.
func (j Joint) MarshalText() ([]byte, error) {
	if !j.Valid() {
		return nil, fmt.Errorf("invalid joint %d", int(j))
	}
	return []byte(jointNames[j]), nil
}

// UnmarshalText decodes a joint name.
func (j *Joint) UnmarshalText(text []byte) error {
	for i, name := range jointNames {
		if name == string(text) {
			*j = Joint(i)
			return nil
		}
	}
	return fmt.Errorf("unknown joint %q", text)
}

// Direction is the rotation command for a single joint.
type Direction int

const (
	None Direction = iota
	Positive
	Negative
)

// Sign returns +1, -1 or 0.
func (d Direction) Sign() float64 {
	switch d {
	case Positive:
		return 1
	case Negative:
		return -1
	default:
		return 0
	}
}

func (d Direction) String() string {
	switch d {
	case Positive:
		return "positive"
	case Negative:
		return "negative"
	default:
		return "none"
	}
}

package robot

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang/geo/r3"
	"gopkg.in/yaml.v3"
)

// Variant selects how joint commands reach the arm.
type Variant string

const (
	// VariantArticulated drives per-joint controllers stepped at a fixed
	// rate and offers both linear and articulated movement.
	VariantArticulated Variant = "articulated"
	// VariantDirect rotates bone transforms directly by speed * sign * dt.
	VariantDirect Variant = "direct"
)

// Hands assigns each role to a controller.
type Hands struct {
	Gating       Hand `yaml:"gating"`
	Manipulation Hand `yaml:"manipulation"`
	ModeSwitch   Hand `yaml:"mode_switch"`
	AxisToggle   Hand `yaml:"axis_toggle"`
	Tilt         Hand `yaml:"tilt"`
}

// Tuning holds the profile values that may change while teleoperating.
type Tuning struct {
	JoystickThreshold float64 `yaml:"joystick_threshold"`
	TiltThreshold     float64 `yaml:"tilt_threshold"` // degrees
	RotateSpeed       float64 `yaml:"rotate_speed"`   // degrees per second
	MoveSpeed         float64 `yaml:"move_speed"`     // metres per second
}

// JointProfile describes one joint of the rig.
type JointProfile struct {
	Link       `yaml:",inline"`
	MinDegrees float64 `yaml:"min_degrees"`
	MaxDegrees float64 `yaml:"max_degrees"`
}

// Profile is the rig description loaded from YAML.
type Profile struct {
	Variant       Variant `yaml:"variant"`
	Hands         Hands   `yaml:"hands"`
	ControlDevice string  `yaml:"control_device"`
	Tuning        `yaml:",inline"`
	Hz            int            `yaml:"hz"`
	Joints        []JointProfile `yaml:"joints"`
}

// DefaultControlDevice is the name of the pendant that must be held for the
// gate to open.
const DefaultControlDevice = "Flexpendant"

// DefaultProfile returns the stock profile for a variant.
func DefaultProfile(v Variant) (Profile, error) {
	switch v {
	case VariantArticulated:
		return Profile{
			Variant: VariantArticulated,
			Hands: Hands{
				Gating:       Left,
				Manipulation: Right,
				ModeSwitch:   Right,
				AxisToggle:   Right,
				Tilt:         Left,
			},
			ControlDevice: DefaultControlDevice,
			Tuning: Tuning{
				JoystickThreshold: 0.1,
				TiltThreshold:     15,
				RotateSpeed:       30,
				MoveSpeed:         0.1,
			},
			Hz: 50,
			Joints: []JointProfile{
				{Link: Link{Axis: r3.Vector{Y: 1}}, MinDegrees: -165, MaxDegrees: 165},
				{Link: Link{Offset: r3.Vector{Y: 0.29}, Axis: r3.Vector{Z: 1}}, MinDegrees: -110, MaxDegrees: 110},
				{Link: Link{Offset: r3.Vector{Y: 0.27}, Axis: r3.Vector{Z: 1}}, MinDegrees: -110, MaxDegrees: 70},
				{Link: Link{Offset: r3.Vector{X: 0.15, Y: 0.07}, Axis: r3.Vector{X: 1}}, MinDegrees: -160, MaxDegrees: 160},
				{Link: Link{Offset: r3.Vector{X: 0.15}, Axis: r3.Vector{Z: 1}}, MinDegrees: -120, MaxDegrees: 120},
				{Link: Link{Offset: r3.Vector{X: 0.07}, Axis: r3.Vector{X: 1}}, MinDegrees: -400, MaxDegrees: 400},
			},
		}, nil
	case VariantDirect:
		return Profile{
			Variant: VariantDirect,
			Hands: Hands{
				Gating:       Left,
				Manipulation: Right,
				ModeSwitch:   Right,
				AxisToggle:   Left,
				Tilt:         Left,
			},
			ControlDevice: DefaultControlDevice,
			Tuning: Tuning{
				JoystickThreshold: 0.01,
				TiltThreshold:     15,
				RotateSpeed:       45,
				MoveSpeed:         0.1,
			},
			Hz: 50,
			Joints: []JointProfile{
				{Link: Link{Axis: r3.Vector{Y: 1}}, MinDegrees: -180, MaxDegrees: 180},
				{Link: Link{Offset: r3.Vector{Y: 0.29}, Axis: r3.Vector{Z: 1}}, MinDegrees: -180, MaxDegrees: 180},
				{Link: Link{Offset: r3.Vector{Y: 0.27}, Axis: r3.Vector{X: 1}}, MinDegrees: -180, MaxDegrees: 180},
				{Link: Link{Offset: r3.Vector{X: 0.15, Y: 0.07}, Axis: r3.Vector{Y: 1}}, MinDegrees: -180, MaxDegrees: 180},
				{Link: Link{Offset: r3.Vector{X: 0.15}, Axis: r3.Vector{X: 1}}, MinDegrees: -180, MaxDegrees: 180},
				{Link: Link{Offset: r3.Vector{X: 0.07}, Axis: r3.Vector{Y: 1}}, MinDegrees: -180, MaxDegrees: 180},
			},
		}, nil
	}
	return Profile{}, fmt.Errorf("unknown variant %q", v)
}

// LoadProfile reads a YAML profile. Fields absent from the file keep the
// defaults of the declared variant.
func LoadProfile(path string) (Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	return ParseProfile(data)
}

// ParseProfile decodes a YAML profile and validates it.
func ParseProfile(data []byte) (Profile, error) {
	var head struct {
		Variant Variant `yaml:"variant"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return Profile{}, fmt.Errorf("parse profile: %w", err)
	}
	if head.Variant == "" {
		head.Variant = VariantArticulated
	}

	p, err := DefaultProfile(head.Variant)
	if err != nil {
		return Profile{}, err
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("parse profile: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Profile{}, err
	}
	return p, nil
}

// SaveProfile writes p as YAML.
func SaveProfile(path string, p Profile) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the profile is complete enough to start a tick loop.
func (p Profile) Validate() error {
	var errs []error
	if _, err := DefaultProfile(p.Variant); err != nil {
		errs = append(errs, err)
	}
	for role, h := range map[string]Hand{
		"gating":       p.Hands.Gating,
		"manipulation": p.Hands.Manipulation,
		"mode_switch":  p.Hands.ModeSwitch,
		"axis_toggle":  p.Hands.AxisToggle,
		"tilt":         p.Hands.Tilt,
	} {
		if !h.Valid() {
			errs = append(errs, fmt.Errorf("hands.%s: %w", role, ErrUnknownHand))
		}
	}
	if p.ControlDevice == "" {
		errs = append(errs, errors.New("control_device is required"))
	}
	if p.JoystickThreshold < 0 || p.TiltThreshold < 0 {
		errs = append(errs, errors.New("thresholds must not be negative"))
	}
	if p.RotateSpeed <= 0 || p.MoveSpeed <= 0 {
		errs = append(errs, errors.New("speeds must be positive"))
	}
	if p.Hz <= 0 {
		errs = append(errs, errors.New("hz must be positive"))
	}
	if len(p.Joints) != NumJoints {
		errs = append(errs, fmt.Errorf("%w: profile lists %d joints, want %d", ErrIncompleteJointSet, len(p.Joints), NumJoints))
	}
	for i, jp := range p.Joints {
		if jp.Axis.Norm() == 0 {
			errs = append(errs, fmt.Errorf("joint %d: axis must be non-zero", i+1))
		}
		if jp.MinDegrees >= jp.MaxDegrees {
			errs = append(errs, fmt.Errorf("joint %d: min_degrees must be below max_degrees", i+1))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid profile: %w", errors.Join(errs...))
	}
	return nil
}

// Chain returns the joint chain described by the profile. The profile must
// have been validated.
func (p Profile) Chain() Chain {
	var c Chain
	for i := range c {
		c[i] = p.Joints[i].Link
	}
	return c
}

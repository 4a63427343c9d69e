package actuator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/geo/r3"

	"github.com/gwillem/flexpendant/pkg/robot"
)

// JointController drives one joint at a constant speed within its limits.
type JointController struct {
	Direction robot.Direction
	Speed     float64 // degrees per second
	Angle     float64 // degrees
	Min       float64
	Max       float64
}

// Step advances the joint by dt seconds and reports whether it moved.
func (c *JointController) Step(dt float64) bool {
	if c.Direction == robot.None {
		return false
	}
	next := min(max(c.Angle+c.Direction.Sign()*c.Speed*dt, c.Min), c.Max)
	if next == c.Angle {
		return false
	}
	c.Angle = next
	return true
}

// JointControllerBackend owns one JointController per joint. Commands only
// set directions; motion happens in Step.
type JointControllerBackend struct {
	chain  robot.Chain
	writer PositionWriter

	mu     sync.Mutex
	joints [robot.NumJoints]JointController
	dirty  bool
}

// NewJointControllerBackend creates controllers for the profile's joints.
// Targets are written to w after every step that moves a joint; w may be nil.
func NewJointControllerBackend(p robot.Profile, w PositionWriter) (*JointControllerBackend, error) {
	if err := checkJoints(p); err != nil {
		return nil, err
	}

	b := &JointControllerBackend{chain: p.Chain(), writer: w}
	for i, jp := range p.Joints {
		b.joints[i] = JointController{
			Speed: p.RotateSpeed,
			Min:   jp.MinDegrees,
			Max:   jp.MaxDegrees,
		}
	}
	return b, nil
}

// SetRotationCommand sets j rotating in d and stops every other joint.
func (b *JointControllerBackend) SetRotationCommand(j robot.Joint, d robot.Direction) {
	if !j.Valid() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.joints {
		b.joints[i].Direction = robot.None
	}
	b.joints[j].Direction = d
}

// StopAll stops every joint.
func (b *JointControllerBackend) StopAll() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.joints {
		b.joints[i].Direction = robot.None
	}
}

// JointAngle returns the current angle of j in degrees.
func (b *JointControllerBackend) JointAngle(j robot.Joint) float64 {
	if !j.Valid() {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.joints[j].Angle
}

// Angles returns all joint angles.
func (b *JointControllerBackend) Angles() [robot.NumJoints]float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.anglesLocked()
}

func (b *JointControllerBackend) anglesLocked() [robot.NumJoints]float64 {
	var angles [robot.NumJoints]float64
	for i, c := range b.joints {
		angles[i] = c.Angle
	}
	return angles
}

// TerminalPosition returns the position of the last joint for the current
// angles.
func (b *JointControllerBackend) TerminalPosition() r3.Vector {
	return b.chain.LocateAngles(b.Angles())
}

// SetSpeed changes the rotation speed of every joint.
func (b *JointControllerBackend) SetSpeed(degPerSec float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.joints {
		b.joints[i].Speed = degPerSec
	}
}

// SetAngles moves every joint to angles, clamped to its limits. The new
// targets are written on the next step.
func (b *JointControllerBackend) SetAngles(angles [robot.NumJoints]float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.joints {
		c := &b.joints[i]
		c.Angle = min(max(angles[i], c.Min), c.Max)
	}
	b.dirty = true
}

// Sync loads the arm's current angles when the writer can read them back.
// Angles outside a joint's limits are clamped.
func (b *JointControllerBackend) Sync(ctx context.Context) error {
	angles, ok, err := readBack(ctx, b.writer)
	if err != nil || !ok {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.joints {
		c := &b.joints[i]
		c.Angle = min(max(angles[i], c.Min), c.Max)
	}
	return nil
}

// Step advances every joint by dt and writes the new targets if any joint
// moved.
func (b *JointControllerBackend) Step(ctx context.Context, dt time.Duration) error {
	b.mu.Lock()
	moved := b.dirty
	b.dirty = false
	for i := range b.joints {
		if b.joints[i].Step(dt.Seconds()) {
			moved = true
		}
	}
	angles := b.anglesLocked()
	b.mu.Unlock()

	if !moved || b.writer == nil {
		return nil
	}
	if err := b.writer.WriteAngles(ctx, angles); err != nil {
		return fmt.Errorf("step joints: %w", err)
	}
	return nil
}

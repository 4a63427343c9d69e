package actuator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/gwillem/flexpendant/pkg/robot"
)

type bone struct {
	axis     r3.Vector
	rotation quat.Number
	angle    float64 // degrees, within [min, max]
	min      float64
	max      float64
	command  robot.Direction
}

// DirectDriveBackend rotates each bone about its axis by speed * sign * dt,
// stopping at the joint's limits. A command lasts for one step; the control
// loop reissues it every tick.
type DirectDriveBackend struct {
	chain  robot.Chain
	writer PositionWriter

	mu    sync.Mutex
	speed float64
	bones [robot.NumJoints]bone
}

// NewDirectDriveBackend creates a bone per joint of the profile.
func NewDirectDriveBackend(p robot.Profile, w PositionWriter) (*DirectDriveBackend, error) {
	if err := checkJoints(p); err != nil {
		return nil, err
	}

	b := &DirectDriveBackend{chain: p.Chain(), writer: w, speed: p.RotateSpeed}
	for i, jp := range p.Joints {
		b.bones[i] = bone{
			axis:     jp.Axis.Normalize(),
			rotation: robot.Identity,
			min:      jp.MinDegrees,
			max:      jp.MaxDegrees,
		}
	}
	return b, nil
}

// SetRotationCommand queues a rotation of j for the next step and drops any
// other queued rotation.
func (b *DirectDriveBackend) SetRotationCommand(j robot.Joint, d robot.Direction) {
	if !j.Valid() {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := range b.bones {
		b.bones[i].command = robot.None
	}
	b.bones[j].command = d
}

// StopAll drops every queued rotation.
func (b *DirectDriveBackend) StopAll() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.bones {
		b.bones[i].command = robot.None
	}
}

func (b *DirectDriveBackend) JointAngle(j robot.Joint) float64 {
	if !j.Valid() {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.bones[j].angle
}

func (b *DirectDriveBackend) Angles() [robot.NumJoints]float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.anglesLocked()
}

func (b *DirectDriveBackend) anglesLocked() [robot.NumJoints]float64 {
	var angles [robot.NumJoints]float64
	for i, bn := range b.bones {
		angles[i] = bn.angle
	}
	return angles
}

// Rotations returns each bone's local rotation.
func (b *DirectDriveBackend) Rotations() [robot.NumJoints]quat.Number {
	b.mu.Lock()
	defer b.mu.Unlock()
	var rots [robot.NumJoints]quat.Number
	for i, bn := range b.bones {
		rots[i] = bn.rotation
	}
	return rots
}

func (b *DirectDriveBackend) TerminalPosition() r3.Vector {
	return b.chain.Locate(b.Rotations())
}

func (b *DirectDriveBackend) SetSpeed(degPerSec float64) {
	b.mu.Lock()
	b.speed = degPerSec
	b.mu.Unlock()
}

// Sync resets every bone to the arm's current angles when the writer can
// read them back. Angles outside a joint's limits are clamped.
func (b *DirectDriveBackend) Sync(ctx context.Context) error {
	angles, ok, err := readBack(ctx, b.writer)
	if err != nil || !ok {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for i := range b.bones {
		b.bones[i].set(angles[i])
	}
	return nil
}

// Step applies and clears the queued rotations.
func (b *DirectDriveBackend) Step(ctx context.Context, dt time.Duration) error {
	b.mu.Lock()
	moved := false
	for i := range b.bones {
		bn := &b.bones[i]
		if bn.command == robot.None {
			continue
		}
		before := bn.angle
		bn.set(bn.angle + b.speed*bn.command.Sign()*dt.Seconds())
		bn.command = robot.None
		if bn.angle != before {
			moved = true
		}
	}
	angles := b.anglesLocked()
	b.mu.Unlock()

	if !moved || b.writer == nil {
		return nil
	}
	if err := b.writer.WriteAngles(ctx, angles); err != nil {
		return fmt.Errorf("step bones: %w", err)
	}
	return nil
}

// set moves the bone to deg, clamped to its limits, and rebuilds its
// rotation from the clamped angle.
func (bn *bone) set(deg float64) {
	bn.angle = min(max(deg, bn.min), bn.max)
	bn.rotation = robot.AxisAngle(bn.axis, bn.angle)
}

// Package linear moves a follow target through space for linear
// (end-effector) movement and drives the solver that chases it.
package linear

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/geo/r3"
)

// FollowTarget is the point the end effector chases in linear mode.
// MoveTowards only records a direction; Step moves the target.
type FollowTarget struct {
	mu       sync.Mutex
	speed    float64 // metres per second at full deflection
	position r3.Vector
	pending  r3.Vector
	enabled  bool
}

// NewFollowTarget creates a disabled target at start.
func NewFollowTarget(speed float64, start r3.Vector) *FollowTarget {
	return &FollowTarget{speed: speed, position: start}
}

// MoveTowards sets the direction for the next step. Its magnitude scales
// the speed.
func (f *FollowTarget) MoveTowards(dir r3.Vector) {
	f.mu.Lock()
	f.pending = dir
	f.mu.Unlock()
}

// SeedPosition places the target at p, dropping any pending move.
func (f *FollowTarget) SeedPosition(p r3.Vector) {
	f.mu.Lock()
	f.position = p
	f.pending = r3.Vector{}
	f.mu.Unlock()
}

func (f *FollowTarget) SetEnabled(enabled bool) {
	f.mu.Lock()
	f.enabled = enabled
	if !enabled {
		f.pending = r3.Vector{}
	}
	f.mu.Unlock()
}

func (f *FollowTarget) SetSpeed(speed float64) {
	f.mu.Lock()
	f.speed = speed
	f.mu.Unlock()
}

func (f *FollowTarget) Position() r3.Vector {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.position
}

func (f *FollowTarget) Enabled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enabled
}

// Step moves the target by the pending direction and clears it.
func (f *FollowTarget) Step(_ context.Context, dt time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.enabled && f.pending != (r3.Vector{}) {
		f.position = f.position.Add(f.pending.Mul(f.speed * dt.Seconds()))
	}
	f.pending = r3.Vector{}
	return nil
}

// SolveFunc moves the arm so that its terminal joint reaches target.
type SolveFunc func(ctx context.Context, target r3.Vector) error

// IK runs a solver against a follow target while enabled.
type IK struct {
	target *FollowTarget
	solve  SolveFunc

	mu      sync.Mutex
	enabled bool
	last    r3.Vector
	solved  bool
}

// NewIK creates a disabled solver loop. solve may be nil, leaving the
// target unfollowed.
func NewIK(target *FollowTarget, solve SolveFunc) *IK {
	return &IK{target: target, solve: solve}
}

func (ik *IK) SetEnabled(enabled bool) {
	ik.mu.Lock()
	ik.enabled = enabled
	ik.solved = false
	ik.mu.Unlock()
}

func (ik *IK) Enabled() bool {
	ik.mu.Lock()
	defer ik.mu.Unlock()
	return ik.enabled
}

// Step solves for the target position if it changed since the last solve.
func (ik *IK) Step(ctx context.Context, _ time.Duration) error {
	ik.mu.Lock()
	if !ik.enabled || ik.solve == nil {
		ik.mu.Unlock()
		return nil
	}
	target := ik.target.Position()
	if ik.solved && target == ik.last {
		ik.mu.Unlock()
		return nil
	}
	ik.last = target
	ik.solved = true
	ik.mu.Unlock()

	if err := ik.solve(ctx, target); err != nil {
		return fmt.Errorf("solve ik: %w", err)
	}
	return nil
}

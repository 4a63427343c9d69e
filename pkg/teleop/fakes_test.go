package teleop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/gwillem/flexpendant/pkg/robot"
)

// recorder collects collaborator calls in order.
type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) add(format string, args ...any) {
	r.mu.Lock()
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
	r.mu.Unlock()
}

func (r *recorder) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	calls := r.calls
	r.calls = nil
	return calls
}

type fakeBackend struct {
	rec      *recorder
	angles   [robot.NumJoints]float64
	terminal r3.Vector
	speed    float64
}

func (b *fakeBackend) SetRotationCommand(j robot.Joint, d robot.Direction) {
	b.rec.add("command %s %s", j, d)
}

func (b *fakeBackend) StopAll() {
	b.rec.add("stop_all")
}

func (b *fakeBackend) JointAngle(j robot.Joint) float64 {
	return b.angles[j]
}

func (b *fakeBackend) TerminalPosition() r3.Vector {
	return b.terminal
}

func (b *fakeBackend) SetSpeed(degPerSec float64) {
	b.speed = degPerSec
}

type fakeLinear struct {
	rec *recorder
}

func (l *fakeLinear) MoveTowards(dir r3.Vector) {
	l.rec.add("move %.2f %.2f %.2f", dir.X, dir.Y, dir.Z)
}

func (l *fakeLinear) SeedPosition(p r3.Vector) {
	l.rec.add("seed %.2f %.2f %.2f", p.X, p.Y, p.Z)
}

func (l *fakeLinear) SetEnabled(enabled bool) {
	l.rec.add("linear_enabled=%v", enabled)
}

type fakeIK struct {
	rec *recorder
}

func (ik *fakeIK) SetEnabled(enabled bool) {
	ik.rec.add("ik_enabled=%v", enabled)
}

type fakeTilt struct {
	pressed   bool
	angle     float64
	threshold float64
}

func (t *fakeTilt) TiltAngle() float64     { return t.angle }
func (t *fakeTilt) IsPressed() bool        { return t.pressed }
func (t *fakeTilt) TiltThreshold() float64 { return t.threshold }
func (t *fakeTilt) SetThreshold(deg float64) {
	t.threshold = deg
}

type fakeDisplay struct {
	rec *recorder
}

func (d *fakeDisplay) ShowAxisSet(set AxisSet) {
	d.rec.add("show_axis_set %s", set)
}

func (d *fakeDisplay) ShowMode(m Mode) {
	d.rec.add("show_mode %s", m)
}

func (d *fakeDisplay) ShowJoint(j robot.Joint, angle float64) {
	d.rec.add("show_joint %s %.1f", j, angle)
}

type fakeSurroundings struct {
	rec *recorder
}

func (s *fakeSurroundings) SnapToJoystick(touched bool, hand robot.Hand) {
	s.rec.add("snap %v %s", touched, hand)
}

func (s *fakeSurroundings) RotateController(q quat.Number, hand robot.Hand) {
	s.rec.add("rotate %s", hand)
}

func (s *fakeSurroundings) PressJoystick(pressed bool, hand robot.Hand) {
	s.rec.add("press %v %s", pressed, hand)
}

func (s *fakeSurroundings) SwitchToTeleport(vertical float64) {
	s.rec.add("teleport %.1f", vertical)
}

func (s *fakeSurroundings) PointAction(hand robot.Hand, pressed bool) {
	s.rec.add("point %s %v", hand, pressed)
}

type countingStepper struct {
	mu    sync.Mutex
	steps int
	dt    time.Duration
}

func (s *countingStepper) Step(_ context.Context, dt time.Duration) error {
	s.mu.Lock()
	s.steps++
	s.dt = dt
	s.mu.Unlock()
	return nil
}

// Package teleop turns hand-controller input into arm motion commands.
package teleop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"

	"github.com/gwillem/flexpendant/pkg/input"
	"github.com/gwillem/flexpendant/pkg/robot"
)

var (
	ErrAlreadyRunning      = errors.New("already running")
	ErrMissingCollaborator = errors.New("missing collaborator")
)

// State represents the controller as seen after a tick.
type State struct {
	Mode      Mode
	AxisSet   AxisSet
	GateOpen  bool
	Command   JointCommand // last articulated command, Direction None when stopped
	Linear    r3.Vector    // last linear direction
	Angles    [robot.NumJoints]float64
	Timestamp time.Time
	Error     error
}

// Config holds configuration for the controller.
type Config struct {
	Hands         robot.Hands
	ControlDevice input.DeviceID
	Mode          Mode
	Tuning        robot.Tuning
	Hz            int
}

// ConfigFromProfile builds a Config from a validated profile.
func ConfigFromProfile(p robot.Profile) Config {
	return Config{
		Hands:         p.Hands,
		ControlDevice: input.DeviceID(p.ControlDevice),
		Mode:          DefaultMode(p.Variant),
		Tuning:        p.Tuning,
		Hz:            p.Hz,
	}
}

// Collaborators are the components the controller drives. Backend, Linear,
// Tilt and Held are required; the rest default to no-ops.
type Collaborators struct {
	Backend  JointActuatorBackend
	Linear   LinearDriveTarget
	IK       IKSubsystem
	Tilt     JoystickTiltSource
	Held     HeldObjectRegistry
	Display  DisplayFeedback
	Visual   JoystickVisual
	Teleport Teleporter
	Pointer  PointIndicator
	Steppers []Stepper
}

// Controller owns one instance of every core component and runs the
// control tick.
type Controller struct {
	hands    robot.Hands
	hz       int
	inputs   *input.Aggregator
	backend  JointActuatorBackend
	linear   LinearDriveTarget
	tilt     JoystickTiltSource
	display  DisplayFeedback
	visual   JoystickVisual
	teleport Teleporter
	pointer  PointIndicator
	steppers []Stepper

	mu         sync.Mutex
	gate       *Gate
	modes      *ModeController
	axes       *AxisSelector
	tuning     robot.Tuning
	lastCmd    JointCommand
	lastLinear r3.Vector
	running    bool
	stateCh    chan State
	logCh      chan string
}

// NewController creates a controller and registers its input handlers.
func NewController(cfg Config, c Collaborators) (*Controller, error) {
	switch {
	case c.Backend == nil:
		return nil, fmt.Errorf("%w: joint actuator backend", ErrMissingCollaborator)
	case c.Linear == nil:
		return nil, fmt.Errorf("%w: linear drive target", ErrMissingCollaborator)
	case c.Tilt == nil:
		return nil, fmt.Errorf("%w: joystick tilt source", ErrMissingCollaborator)
	case c.Held == nil:
		return nil, fmt.Errorf("%w: held object registry", ErrMissingCollaborator)
	}

	for _, h := range []robot.Hand{cfg.Hands.Gating, cfg.Hands.Manipulation, cfg.Hands.ModeSwitch, cfg.Hands.AxisToggle} {
		if !h.Valid() {
			return nil, fmt.Errorf("configure hands: %w: %d", robot.ErrUnknownHand, int(h))
		}
	}

	if cfg.Hz <= 0 {
		cfg.Hz = 50
	}
	if cfg.ControlDevice == "" {
		cfg.ControlDevice = robot.DefaultControlDevice
	}

	var nop nopCollaborator
	if c.IK == nil {
		c.IK = nop
	}
	if c.Display == nil {
		c.Display = nop
	}
	if c.Visual == nil {
		c.Visual = nop
	}
	if c.Teleport == nil {
		c.Teleport = nop
	}
	if c.Pointer == nil {
		c.Pointer = nop
	}

	ctrl := &Controller{
		hands:    cfg.Hands,
		hz:       cfg.Hz,
		inputs:   input.NewAggregator(),
		backend:  c.Backend,
		linear:   c.Linear,
		tilt:     c.Tilt,
		display:  c.Display,
		visual:   c.Visual,
		teleport: c.Teleport,
		pointer:  c.Pointer,
		steppers: c.Steppers,
		gate:     NewGate(cfg.Hands.Gating, cfg.ControlDevice, c.Held),
		modes:    NewModeController(cfg.Mode, cfg.Hands.ModeSwitch, c.Backend, c.Linear, c.IK, c.Display),
		axes:     NewAxisSelector(c.Display),
		tuning:   cfg.Tuning,
		stateCh:  make(chan State, 1),
		logCh:    make(chan string, 10),
	}
	ctrl.registerHandlers()

	return ctrl, nil
}

func (c *Controller) registerHandlers() {
	c.inputs.RegisterBoth(input.PrimaryButton, func(ev input.Event) {
		c.ToggleAxisSet(ev.Pressed, ev.Hand)
	})
	c.inputs.RegisterBoth(input.SecondaryButton, func(ev input.Event) {
		c.ToggleMovementMode(ev.Pressed, ev.Hand)
	})
	c.inputs.RegisterBoth(input.Trigger, func(ev input.Event) {
		c.SetPressureButton(ev.Pressed, ev.Hand)
		c.pointer.PointAction(ev.Hand, ev.Pressed)
	})
	c.inputs.RegisterBoth(input.JoystickTouched, func(ev input.Event) {
		c.visual.SnapToJoystick(ev.Pressed, ev.Hand)
	})
	c.inputs.RegisterBoth(input.JoystickPressed, func(ev input.Event) {
		c.visual.PressJoystick(ev.Pressed, ev.Hand)
	})
	c.inputs.RegisterBoth(input.Rotation, func(ev input.Event) {
		c.visual.RotateController(ev.Rotation, ev.Hand)
	})
	c.inputs.Register(input.JoystickAxis, c.hands.Gating, func(ev input.Event) {
		c.teleport.SwitchToTeleport(ev.Axis.Y)
	})
}

// States returns a channel that receives state updates.
func (c *Controller) States() <-chan State {
	return c.stateCh
}

// Logs returns a channel that receives log messages.
func (c *Controller) Logs() <-chan string {
	return c.logCh
}

// Hz returns the control frequency.
func (c *Controller) Hz() int {
	return c.hz
}

// Inputs returns a snapshot of both hands.
func (c *Controller) Inputs() input.Snapshot {
	return c.inputs.Snapshot()
}

func (c *Controller) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case c.logCh <- msg:
	default:
		// Drop if channel full
	}
}

// OnPrimaryButton records a primary button edge. A press on the axis-toggle
// hand flips the axis set.
func (c *Controller) OnPrimaryButton(pressed bool, hand robot.Hand) error {
	return c.inputs.Dispatch(input.Event{Kind: input.PrimaryButton, Hand: hand, Pressed: pressed})
}

// OnSecondaryButton records a secondary button edge. A press on the
// mode-switch hand toggles the movement mode.
func (c *Controller) OnSecondaryButton(pressed bool, hand robot.Hand) error {
	return c.inputs.Dispatch(input.Event{Kind: input.SecondaryButton, Hand: hand, Pressed: pressed})
}

// OnTrigger records a trigger edge, feeds the gate and the hand's pointer.
func (c *Controller) OnTrigger(pressed bool, hand robot.Hand) error {
	return c.inputs.Dispatch(input.Event{Kind: input.Trigger, Hand: hand, Pressed: pressed})
}

// OnGrip records the grip state.
func (c *Controller) OnGrip(pressed bool, hand robot.Hand) error {
	return c.inputs.Dispatch(input.Event{Kind: input.Grip, Hand: hand, Pressed: pressed})
}

// OnJoystickAxis records a stick position. The gating hand's vertical
// component also arms teleport.
func (c *Controller) OnJoystickAxis(axis r2.Point, hand robot.Hand) error {
	return c.inputs.Dispatch(input.Event{Kind: input.JoystickAxis, Hand: hand, Axis: axis})
}

// OnJoystickPressed records a stick click and forwards it to the joystick visual.
func (c *Controller) OnJoystickPressed(pressed bool, hand robot.Hand) error {
	return c.inputs.Dispatch(input.Event{Kind: input.JoystickPressed, Hand: hand, Pressed: pressed})
}

// OnJoystickTouched records a stick touch and forwards it to the joystick visual.
func (c *Controller) OnJoystickTouched(touched bool, hand robot.Hand) error {
	return c.inputs.Dispatch(input.Event{Kind: input.JoystickTouched, Hand: hand, Pressed: touched})
}

// OnRotation records a controller rotation and forwards it to the joystick visual.
func (c *Controller) OnRotation(q quat.Number, hand robot.Hand) error {
	return c.inputs.Dispatch(input.Event{Kind: input.Rotation, Hand: hand, Rotation: q})
}

// SetPressureButton opens or closes the gate. See Gate.SetPressureButton.
// Closing the gate stops every joint.
func (c *Controller) SetPressureButton(pressed bool, hand robot.Hand) {
	c.mu.Lock()
	defer c.mu.Unlock()

	was := c.gate.Open()
	c.gate.SetPressureButton(pressed, hand)
	if open := c.gate.Open(); open != was {
		if open {
			c.log("Pressure button held: motion enabled")
		} else {
			c.backend.StopAll()
			c.lastCmd = JointCommand{}
			c.log("Pressure button released: motion disabled")
		}
	}
}

// ToggleMovementMode switches between linear and articulated movement on a
// rising edge from the mode-switch hand.
func (c *Controller) ToggleMovementMode(pressed bool, hand robot.Hand) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.modes.Toggle(pressed, hand) {
		c.lastCmd = JointCommand{}
		c.lastLinear = r3.Vector{}
		c.log("Movement mode: %s", c.modes.Mode())
	}
}

// ToggleAxisSet flips the axis set on a rising edge from the axis-toggle hand.
func (c *Controller) ToggleAxisSet(pressed bool, hand robot.Hand) {
	if !pressed || hand != c.hands.AxisToggle {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	set := c.axes.Toggle()
	c.log("Axis set %s (joints %s)", set, set.Label())
}

// ApplyTuning changes thresholds and speeds. Collaborators that expose
// SetSpeed or SetThreshold receive their share.
func (c *Controller) ApplyTuning(t robot.Tuning) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tuning = t
	if s, ok := c.backend.(interface{ SetSpeed(float64) }); ok {
		s.SetSpeed(t.RotateSpeed)
	}
	if s, ok := c.linear.(interface{ SetSpeed(float64) }); ok {
		s.SetSpeed(t.MoveSpeed)
	}
	if s, ok := c.tilt.(interface{ SetThreshold(float64) }); ok {
		s.SetThreshold(t.TiltThreshold)
	}
	c.log("Tuning applied: joystick %.2f, tilt %.1f°, rotate %.1f°/s, move %.2f m/s",
		t.JoystickThreshold, t.TiltThreshold, t.RotateSpeed, t.MoveSpeed)
}

// Init enables the starting mode's strategy and shows the starting mode
// and axis set.
func (c *Controller) Init() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.modes.Init()
	c.display.ShowAxisSet(c.axes.Active())
}

// RunControlTick runs one control step. It does nothing while the gate is
// closed.
func (c *Controller) RunControlTick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.gate.Open() {
		return
	}

	snap := c.inputs.Snapshot()
	tilt := ReadTilt(c.tilt)
	axis := snap.Hand(c.hands.Manipulation).JoystickAxis

	switch c.modes.Mode() {
	case Linear:
		dir := LinearDirection(tilt, axis)
		c.linear.MoveTowards(dir)
		c.lastLinear = dir
	case Articulated:
		cmd, ok := SelectJoint(tilt, axis, c.axes.Active(), c.tuning.JoystickThreshold)
		if !ok {
			c.backend.StopAll()
			c.lastCmd = JointCommand{}
			return
		}
		c.backend.SetRotationCommand(cmd.Joint, cmd.Direction)
		c.lastCmd = cmd
		c.display.ShowJoint(cmd.Joint, c.backend.JointAngle(cmd.Joint))
	}
}

// State returns the current controller state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := State{
		Mode:      c.modes.Mode(),
		AxisSet:   c.axes.Active(),
		GateOpen:  c.gate.Open(),
		Command:   c.lastCmd,
		Linear:    c.lastLinear,
		Timestamp: time.Now(),
	}
	for _, j := range robot.AllJoints() {
		s.Angles[j] = c.backend.JointAngle(j)
	}
	return s
}

// Start runs the fixed-rate control loop until ctx is cancelled.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.running = true
	c.mu.Unlock()

	c.Init()
	c.log("Teleoperation started at %d Hz in %s mode", c.hz, c.State().Mode)

	// Control loop
	period := time.Second / time.Duration(c.hz)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.shutdown()
			return ctx.Err()
		case <-ticker.C:
			c.step(ctx, period)
		}
	}
}

func (c *Controller) step(ctx context.Context, dt time.Duration) {
	c.RunControlTick()

	var errs []error
	for _, s := range c.steppers {
		if err := s.Step(ctx, dt); err != nil {
			errs = append(errs, err)
		}
	}

	state := c.State()
	if err := errors.Join(errs...); err != nil {
		c.log("Step error: %v", err)
		state.Error = err
	}
	c.sendState(state)
}

func (c *Controller) sendState(s State) {
	select {
	case c.stateCh <- s:
	default:
		// Drop old state if channel full, replace with new
		select {
		case <-c.stateCh:
		default:
		}
		select {
		case c.stateCh <- s:
		default:
		}
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	c.running = false
	c.backend.StopAll()
	c.mu.Unlock()

	c.log("Teleoperation stopped")
}

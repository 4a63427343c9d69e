package teleop

import "github.com/gwillem/flexpendant/pkg/robot"

// Mode is the active movement strategy.
type Mode int

const (
	// Linear moves the end effector through the follow target and IK.
	Linear Mode = iota
	// Articulated rotates one selected joint at a time.
	Articulated
)

func (m Mode) String() string {
	if m == Articulated {
		return "articulated"
	}
	return "linear"
}

// DefaultMode is the mode a variant starts in.
func DefaultMode(v robot.Variant) Mode {
	if v == robot.VariantDirect {
		return Articulated
	}
	return Linear
}

// ModeController owns the movement mode and switches strategies so that
// exactly one is enabled at a time. Callers serialise access.
type ModeController struct {
	mode        Mode
	hand        robot.Hand
	articulated bool

	backend JointActuatorBackend
	linear  LinearDriveTarget
	ik      IKSubsystem
	display DisplayFeedback
}

// NewModeController creates a controller in the given mode. Init must run
// before the first tick.
func NewModeController(
	initial Mode,
	hand robot.Hand,
	backend JointActuatorBackend,
	linear LinearDriveTarget,
	ik IKSubsystem,
	display DisplayFeedback,
) *ModeController {
	return &ModeController{
		mode:    initial,
		hand:    hand,
		backend: backend,
		linear:  linear,
		ik:      ik,
		display: display,
	}
}

// Mode returns the active mode.
func (m *ModeController) Mode() Mode {
	return m.mode
}

// ArticulatedEnabled reports whether the articulated strategy is enabled.
func (m *ModeController) ArticulatedEnabled() bool {
	return m.articulated
}

// Init enables the strategy of the current mode and shows it.
func (m *ModeController) Init() {
	m.activate(m.mode)
	m.display.ShowMode(m.mode)
}

// Toggle switches mode on a rising edge from the mode-switch hand. Falling
// edges and the other hand are ignored. It reports whether the mode changed.
func (m *ModeController) Toggle(pressedEdge bool, hand robot.Hand) bool {
	if !pressedEdge || hand != m.hand {
		return false
	}

	next := Linear
	if m.mode == Linear {
		next = Articulated
	}

	m.backend.StopAll()
	m.activate(next)
	m.mode = next
	m.display.ShowMode(next)
	return true
}

func (m *ModeController) activate(mode Mode) {
	switch mode {
	case Linear:
		m.articulated = false
		// Seed before enabling so the target starts where the arm is.
		m.linear.SeedPosition(m.backend.TerminalPosition())
		m.linear.SetEnabled(true)
		m.ik.SetEnabled(true)
	case Articulated:
		m.linear.SetEnabled(false)
		m.ik.SetEnabled(false)
		m.articulated = true
	}
}

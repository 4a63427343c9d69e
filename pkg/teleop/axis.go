package teleop

// AxisSet selects which three joints the stick gestures reach.
type AxisSet int

const (
	SetA AxisSet = iota // joints 1-3
	SetB                // joints 4-6
)

// Toggle returns the other set.
func (s AxisSet) Toggle() AxisSet {
	if s == SetA {
		return SetB
	}
	return SetA
}

func (s AxisSet) String() string {
	if s == SetB {
		return "B"
	}
	return "A"
}

// Label is the joint-range text shown on the pendant.
func (s AxisSet) Label() string {
	if s == SetB {
		return "4  5  6"
	}
	return "1  2  3"
}

// AxisSelector owns the active axis set. Callers serialise access.
type AxisSelector struct {
	active  AxisSet
	display DisplayFeedback
}

// NewAxisSelector starts on SetA.
func NewAxisSelector(display DisplayFeedback) *AxisSelector {
	return &AxisSelector{active: SetA, display: display}
}

// Active returns the active set.
func (a *AxisSelector) Active() AxisSet {
	return a.active
}

// Toggle flips the active set and shows it.
func (a *AxisSelector) Toggle() AxisSet {
	a.active = a.active.Toggle()
	a.display.ShowAxisSet(a.active)
	return a.active
}

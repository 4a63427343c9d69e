package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/hipsterbrown/feetech-servo/feetech"
	"go.bug.st/serial"

	"github.com/gwillem/flexpendant/pkg/robot"
)

var (
	headerStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	subHeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	successStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	dimStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	headStyle     = cellStyle.Bold(true).Foreground(lipgloss.Color("12"))
	jointStyle    = cellStyle.Foreground(lipgloss.Color("14"))
	liveStyle     = cellStyle.Foreground(lipgloss.Color("11"))
	wideSpanStyle = cellStyle.Foreground(lipgloss.Color("10"))
	narrowStyle   = cellStyle.Foreground(lipgloss.Color("9"))
)

const (
	defaultProfileFile = "flexpendant.yaml"
	busBaudRate        = 1_000_000
	minUsefulSpan      = 500 // servo ticks
)

var errNoArm = errors.New("no six-axis arm found")

type SetupCommand struct {
	Profile string `long:"profile" default:"flexpendant.yaml" description:"Where to write the rig profile"`
}

func (c *SetupCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Flexpendant Setup"))
	fmt.Println(dimStyle.Render("━━━━━━━━━━━━━━━━━"))
	fmt.Println()

	profile, err := chooseRig()
	if err != nil {
		return err
	}

	fmt.Println("Looking for the arm on serial ports...")
	port, err := pickArm(probePorts())
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(subHeaderStyle.Render("━━━ Range of motion ━━━"))
	fmt.Println("Torque is off. Sweep every joint through its full travel, then press Enter.")
	fmt.Println("Each recorded span is mapped onto that joint's limits in the rig profile.")
	fmt.Println()

	lo, hi, err := recordRange(port)
	if err != nil {
		return err
	}

	config := &robot.Config{
		Arm:     robot.ArmConfig{Port: port, Calibration: buildCalibration(profile, lo, hi)},
		Profile: c.Profile,
	}
	if err := robot.SaveProfile(c.Profile, profile); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	if err := config.Save(); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Println()
	fmt.Println(successStyle.Render("Setup complete!"))
	fmt.Printf("Arm on %s written to %s, rig profile to %s\n", port, robot.DefaultConfigFile, c.Profile)
	fmt.Println("Start teleoperation with: " + headerStyle.Render("flexpendant teleoperate"))

	return nil
}

// chooseRig asks for the variant and the hand that holds the pendant.
func chooseRig() (robot.Profile, error) {
	variant := robot.VariantArticulated
	gating := robot.Left

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[robot.Variant]().
				Title("How should joint commands reach the arm?").
				Options(
					huh.NewOption("Articulated (stepped joint controllers, linear + articulated modes)", robot.VariantArticulated),
					huh.NewOption("Direct (rotate joints directly, articulated mode only)", robot.VariantDirect),
				).
				Value(&variant),
			huh.NewSelect[robot.Hand]().
				Title("Which hand holds the pendant?").
				Description("That hand's trigger is the pressure button; the other hand jogs.").
				Options(
					huh.NewOption("Left", robot.Left),
					huh.NewOption("Right", robot.Right),
				).
				Value(&gating),
		),
	)
	if err := form.Run(); err != nil {
		return robot.Profile{}, fmt.Errorf("rig form: %w", err)
	}

	p, err := robot.DefaultProfile(variant)
	if err != nil {
		return robot.Profile{}, err
	}

	assignHands(&p, gating)
	return p, nil
}

// assignHands puts the tilt on the pendant hand and the jog roles on the
// other one. The axis toggle stays with the pendant if the variant keeps it
// there.
func assignHands(p *robot.Profile, gating robot.Hand) {
	togglesOnPendant := p.Hands.AxisToggle == p.Hands.Gating
	p.Hands = robot.Hands{
		Gating:       gating,
		Manipulation: gating.Other(),
		ModeSwitch:   gating.Other(),
		AxisToggle:   gating.Other(),
		Tilt:         gating,
	}
	if togglesOnPendant {
		p.Hands.AxisToggle = gating
	}
}

// openBus opens port and checks that servos 1 to 6 answer on it.
func openBus(port string) (*feetech.Bus, []feetech.FoundServo, error) {
	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: busBaudRate,
		Protocol: feetech.ProtocolSTS,
		Timeout:  100 * time.Millisecond,
	})
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	servos, err := bus.Scan(ctx, 1, robot.NumJoints)
	if err == nil && !isSixAxisArm(servos) {
		err = fmt.Errorf("expected servos with IDs 1-%d, found %d servos", robot.NumJoints, len(servos))
	}
	if err != nil {
		bus.Close()
		return nil, nil, err
	}
	return bus, servos, nil
}

// probePorts returns every serial port with a six-axis arm on it.
func probePorts() []string {
	ports, err := serial.GetPortsList()
	if err != nil {
		fmt.Printf("Error listing ports: %v\n", err)
		return nil
	}

	var found []string
	for _, port := range ports {
		if strings.Contains(port, "Bluetooth") {
			continue
		}
		bus, _, err := openBus(port)
		if err != nil {
			continue
		}
		bus.Close()
		fmt.Printf("  arm on %s\n", port)
		found = append(found, port)
	}
	return found
}

func isSixAxisArm(servos []feetech.FoundServo) bool {
	if len(servos) != robot.NumJoints {
		return false
	}
	seen := make(map[int]bool, len(servos))
	for _, s := range servos {
		seen[s.ID] = true
	}
	for _, j := range robot.AllJoints() {
		if !seen[j.Number()] {
			return false
		}
	}
	return true
}

// pickArm returns the only candidate, or nudges each in turn until the
// operator claims one.
func pickArm(ports []string) (string, error) {
	switch len(ports) {
	case 0:
		return "", fmt.Errorf("%w: check the arm is connected and powered", errNoArm)
	case 1:
		return ports[0], nil
	}

	for _, port := range ports {
		if err := nudgeBase(port); err != nil {
			fmt.Printf("  could not move the arm on %s: %v\n", port, err)
			continue
		}

		use := false
		confirm := huh.NewConfirm().
			Title(fmt.Sprintf("Did the base on %s just turn?", port)).
			Affirmative("Use this arm").
			Negative("Next").
			Value(&use)
		if err := huh.NewForm(huh.NewGroup(confirm)).Run(); err != nil {
			return "", fmt.Errorf("arm choice: %w", err)
		}
		if use {
			return port, nil
		}
	}
	return "", fmt.Errorf("%w: none selected", errNoArm)
}

// nudgeBase turns the base joint a little each way and back.
func nudgeBase(port string) error {
	bus, servos, err := openBus(port)
	if err != nil {
		return err
	}
	defer bus.Close()

	var base *feetech.Servo
	for _, s := range servos {
		if s.ID == robot.BaseYaw.Number() {
			base = feetech.NewServo(bus, s.ID, s.Model)
		}
	}

	ctx := context.Background()
	home, err := base.Position(ctx)
	if err != nil {
		return fmt.Errorf("read base: %w", err)
	}
	if err := base.Enable(ctx); err != nil {
		return fmt.Errorf("enable base: %w", err)
	}
	defer base.Disable(ctx)

	const moveTime = 500 * time.Millisecond
	for _, offset := range []int{30, -30, 0} {
		base.SetPositionWithTime(ctx, home+offset, int(moveTime.Milliseconds()))
		time.Sleep(moveTime + 100*time.Millisecond)
	}
	return nil
}

// recordRange releases every servo and tracks the extremes each one reaches
// until the operator confirms.
func recordRange(port string) (lo, hi [robot.NumJoints]int, err error) {
	bus, servos, err := openBus(port)
	if err != nil {
		return lo, hi, fmt.Errorf("open arm: %w", err)
	}
	defer bus.Close()

	ctx := context.Background()
	m := rangeModel{}
	for _, s := range servos {
		j := robot.Joint(s.ID - 1)
		m.servos[j] = feetech.NewServo(bus, s.ID, s.Model)
		m.servos[j].Disable(ctx)
		pos, _ := m.servos[j].Position(ctx)
		m.cur[j], m.lo[j], m.hi[j] = pos, pos, pos
	}

	final, err := tea.NewProgram(m).Run()
	if err != nil {
		return lo, hi, fmt.Errorf("range of motion: %w", err)
	}
	done := final.(rangeModel)
	return done.lo, done.hi, nil
}

func buildCalibration(p robot.Profile, lo, hi [robot.NumJoints]int) robot.Calibration {
	cal := make(robot.Calibration, robot.NumJoints)
	for _, j := range robot.AllJoints() {
		cal[j] = robot.JointCalibration{
			ID:         j.Number(),
			RangeMin:   lo[j],
			RangeMax:   hi[j],
			MinDegrees: p.Joints[j].MinDegrees,
			MaxDegrees: p.Joints[j].MaxDegrees,
		}
	}
	return cal
}

type sampleMsg time.Time

func sampleSoon() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return sampleMsg(t)
	})
}

// rangeModel polls every servo and shows the span recorded so far.
type rangeModel struct {
	servos [robot.NumJoints]*feetech.Servo
	cur    [robot.NumJoints]int
	lo     [robot.NumJoints]int
	hi     [robot.NumJoints]int
	done   bool
}

func (m rangeModel) Init() tea.Cmd {
	return sampleSoon()
}

func (m rangeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter", "q", "ctrl+c":
			m.done = true
			return m, tea.Quit
		}

	case sampleMsg:
		ctx := context.Background()
		for j, servo := range m.servos {
			pos, err := servo.Position(ctx)
			if err != nil {
				continue
			}
			m.cur[j] = pos
			m.lo[j] = min(m.lo[j], pos)
			m.hi[j] = max(m.hi[j], pos)
		}
		return m, sampleSoon()
	}

	return m, nil
}

func (m rangeModel) View() string {
	if m.done {
		return ""
	}

	rows := make([][]string, robot.NumJoints)
	for _, j := range robot.AllJoints() {
		rows[j] = []string{
			fmt.Sprintf("%d %s", j.Number(), j),
			fmt.Sprint(m.cur[j]),
			fmt.Sprint(m.lo[j]),
			fmt.Sprint(m.hi[j]),
			fmt.Sprint(m.hi[j] - m.lo[j]),
		}
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Joint", "Now", "Low", "High", "Span").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headStyle
			case col == 0:
				return jointStyle
			case col == 1:
				return liveStyle
			case col == 4 && m.hi[row]-m.lo[row] > minUsefulSpan:
				return wideSpanStyle
			case col == 4:
				return narrowStyle
			}
			return cellStyle
		})

	return t.Render() + "\n\n" + dimStyle.Render("Enter when every span is green")
}

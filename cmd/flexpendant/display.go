package main

import (
	"fmt"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/flexpendant/pkg/bridge"
	"github.com/gwillem/flexpendant/pkg/robot"
	"github.com/gwillem/flexpendant/pkg/teleop"
)

const (
	headerHeight = 2 // title + blank line
	panelHeight  = 4 // status panel
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Joint colors - distinct colors for each joint
var jointColors = [robot.NumJoints]string{
	robot.BaseYaw:       "196", // red
	robot.ShoulderPitch: "208", // orange
	robot.ElbowPitch:    "226", // yellow
	robot.ForearmRoll:   "46",  // green
	robot.WristPitch:    "51",  // cyan
	robot.FlangeRoll:    "201", // magenta
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	openStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	closedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	valueStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
)

// panel is the pendant screen rendered in the terminal.
type panel struct {
	mu       sync.Mutex
	mode     teleop.Mode
	set      teleop.AxisSet
	joint    robot.Joint
	angle    float64
	hasJoint bool
}

func (p *panel) ShowAxisSet(set teleop.AxisSet) {
	p.mu.Lock()
	p.set = set
	p.mu.Unlock()
}

func (p *panel) ShowMode(m teleop.Mode) {
	p.mu.Lock()
	p.mode = m
	p.mu.Unlock()
}

func (p *panel) ShowJoint(j robot.Joint, angle float64) {
	p.mu.Lock()
	p.joint, p.angle, p.hasJoint = j, angle, true
	p.mu.Unlock()
}

func (p *panel) view(gateOpen bool, clients int) string {
	p.mu.Lock()
	defer p.mu.Unlock()

	gate := closedStyle.Render("RELEASED")
	if gateOpen {
		gate = openStyle.Render("HELD")
	}
	joint := statusStyle.Render("-")
	if p.hasJoint {
		joint = valueStyle.Render(fmt.Sprintf("%d %s %.1f°", p.joint.Number(), p.joint, p.angle))
	}

	return strings.Join([]string{
		fmt.Sprintf("Mode %s   Axes %s   Pressure button %s",
			valueStyle.Render(p.mode.String()), valueStyle.Render(p.set.Label()), gate),
		fmt.Sprintf("Joint %s   Headsets %d", joint, clients),
	}, "\n")
}

type teleopModel struct {
	ctrl       *teleop.Controller
	server     *bridge.Server
	panel      *panel
	appLogs    <-chan string
	listen     string
	chart      *streamlinechart.Model
	state      teleop.State
	width      int
	height     int
	logs       []string
	quitting   bool
	lastAngles *[robot.NumJoints]float64
}

func (m *teleopModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

func (m *teleopModel) hasMovement(angles [robot.NumJoints]float64) bool {
	return m.lastAngles == nil || *m.lastAngles != angles
}

// Messages from the controller
type stateMsg teleop.State
type logMsg struct {
	src  <-chan string
	text string
}

func waitForState(ctrl *teleop.Controller) tea.Cmd {
	return func() tea.Msg {
		return stateMsg(<-ctrl.States())
	}
}

func waitForLog(logs <-chan string) tea.Cmd {
	return func() tea.Msg {
		return logMsg{src: logs, text: <-logs}
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *teleopModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = max(m.width-borderSize-2, 40)
	height = max(m.height-headerHeight-panelHeight-legendHeight-footerHeight-borderSize, 10)
	return width, height
}

func (m *teleopModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

// angleRange spans every joint's limits so no trace is clipped.
func angleRange(profile robot.Profile) (lo, hi float64) {
	for _, jp := range profile.Joints {
		lo = min(lo, jp.MinDegrees)
		hi = max(hi, jp.MaxDegrees)
	}
	return lo, hi
}

func initialTeleopModel(ctrl *teleop.Controller, server *bridge.Server, p *panel, profile robot.Profile, appLogs <-chan string, listen string) teleopModel {
	lo, hi := angleRange(profile)
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(lo, hi),
	)

	for _, j := range robot.AllJoints() {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(jointColors[j]))
		chart.SetDataSetStyles(j.String(), runes.ThinLineStyle, style)
	}

	return teleopModel{
		ctrl:    ctrl,
		server:  server,
		panel:   p,
		appLogs: appLogs,
		listen:  listen,
		chart:   &chart,
	}
}

func (m teleopModel) Init() tea.Cmd {
	return tea.Batch(
		waitForState(m.ctrl),
		waitForLog(m.ctrl.Logs()),
		waitForLog(m.server.Logs()),
		waitForLog(m.appLogs),
	)
}

func (m teleopModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case stateMsg:
		m.state = teleop.State(msg)
		if m.hasMovement(m.state.Angles) {
			for _, j := range robot.AllJoints() {
				m.chart.PushDataSet(j.String(), m.state.Angles[j])
			}
			m.chart.DrawAll()
			angles := m.state.Angles
			m.lastAngles = &angles
		}
		return m, waitForState(m.ctrl)

	case logMsg:
		m.addLog(msg.text)
		return m, waitForLog(msg.src)
	}

	return m, nil
}

func (m teleopModel) View() string {
	if m.quitting {
		return "Teleoperation stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("Flexpendant Teleoperate"))
	sb.WriteString(fmt.Sprintf(" - %d Hz, headset at ws://%s/ws", m.ctrl.Hz(), m.listen))
	if m.width > 0 {
		sb.WriteString(statusStyle.Render(fmt.Sprintf("  [%dx%d]", m.width, m.height)))
	}
	sb.WriteString("\n\n")

	sb.WriteString(m.panel.view(m.state.GateOpen, m.server.Clients()))
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4).
		Foreground(lipgloss.Color("9")) // bright red

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'q' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderLegend() string {
	var items []string
	for _, j := range robot.AllJoints() {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(jointColors[j])).Bold(true)
		item := colorStyle.Render("━━") + " " + fmt.Sprintf("%d %s", j.Number(), j)
		items = append(items, item)
	}
	return strings.Join(items, "  ")
}

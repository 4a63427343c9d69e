package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gwillem/flexpendant/pkg/actuator"
	"github.com/gwillem/flexpendant/pkg/bridge"
	"github.com/gwillem/flexpendant/pkg/input"
	"github.com/gwillem/flexpendant/pkg/linear"
	"github.com/gwillem/flexpendant/pkg/robot"
	"github.com/gwillem/flexpendant/pkg/teleop"
)

type TeleoperateCommand struct {
	Hz      int    `long:"hz" description:"Control loop frequency (defaults to the profile's hz)"`
	Profile string `long:"profile" description:"Rig profile (defaults to the one named in flexpendant.json)"`
	Listen  string `long:"listen" default:":8080" description:"Address the headset connects to (websocket at /ws)"`
	Sim     bool   `long:"sim" description:"Simulate the arm instead of driving servos"`
}

// loadProfile picks the profile from the flag, the config or the working
// directory, falling back to the articulated defaults. The returned path is
// empty when no file backs the profile.
func (c *TeleoperateCommand) loadProfile(cfg *robot.Config) (string, robot.Profile, error) {
	path := c.Profile
	if path == "" && cfg != nil {
		path = cfg.Profile
	}
	if path == "" {
		if _, err := os.Stat(defaultProfileFile); err == nil {
			path = defaultProfileFile
		}
	}

	var p robot.Profile
	var err error
	if path == "" {
		p, err = robot.DefaultProfile(robot.VariantArticulated)
	} else {
		p, err = robot.LoadProfile(path)
	}
	if err != nil {
		return "", robot.Profile{}, err
	}
	if c.Hz > 0 {
		p.Hz = c.Hz
	}
	return path, p, nil
}

func (c *TeleoperateCommand) Execute(args []string) error {
	var cfg *robot.Config
	if !c.Sim {
		var err error
		cfg, err = robot.LoadConfig()
		if err != nil {
			fmt.Fprintln(os.Stderr, "No configuration found. Run 'flexpendant setup' first, or use --sim.")
			os.Exit(1)
		}
		if cfg.Arm.Port == "" || !cfg.Arm.IsCalibrated() {
			fmt.Fprintln(os.Stderr, "Arm not calibrated. Run 'flexpendant setup' first.")
			os.Exit(1)
		}
		fmt.Printf("Loaded configuration from %s\n", robot.DefaultConfigFile)
	}

	profilePath, profile, err := c.loadProfile(cfg)
	if err != nil {
		return fmt.Errorf("load profile: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A nil writer leaves the backend simulating.
	var writer actuator.PositionWriter
	if !c.Sim {
		arm, err := robot.NewArm(cfg.Arm.Port, cfg.Arm.Calibration)
		if err != nil {
			log.Fatalf("Failed to open arm: %v", err)
		}
		defer arm.Close()
		if err := arm.Enable(ctx); err != nil {
			log.Fatalf("Failed to enable arm: %v", err)
		}
		defer arm.Disable(context.Background())
		writer = arm
	}

	backend, err := actuator.New(profile, writer)
	if err != nil {
		return err
	}
	if err := backend.Sync(ctx); err != nil {
		return err
	}

	held := &input.Holdings{}
	tilt := input.NewTiltTracker(profile.Hands.Tilt, profile.TiltThreshold)
	target := linear.NewFollowTarget(profile.MoveSpeed, backend.TerminalPosition())

	var solve linear.SolveFunc
	if setter, ok := backend.(linear.AngleSetter); ok {
		solver := linear.CCD{Chain: profile.Chain(), Limits: linear.LimitsFromProfile(profile)}
		solve = solver.SolveInto(setter)
	}
	ik := linear.NewIK(target, solve)

	server := bridge.NewServer(held)
	panel := &panel{}

	ctrl, err := teleop.NewController(teleop.ConfigFromProfile(profile), teleop.Collaborators{
		Backend:  backend,
		Linear:   target,
		IK:       ik,
		Tilt:     tilt,
		Held:     held,
		Display:  teleop.Displays{panel, server},
		Visual:   tilt,
		Teleport: server,
		Pointer:  server,
		Steppers: []teleop.Stepper{target, ik, backend},
	})
	if err != nil {
		log.Fatalf("Failed to create controller: %v", err)
	}
	server.Attach(ctrl)

	appLogs := make(chan string, 10)

	mux := http.NewServeMux()
	mux.Handle("/ws", server)
	httpServer := &http.Server{Addr: c.Listen, Handler: mux}
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sendLog(appLogs, "Listener error: %v", err)
		}
	}()
	defer func() {
		shutdownCtx, done := context.WithTimeout(context.Background(), time.Second)
		defer done()
		httpServer.Shutdown(shutdownCtx)
	}()

	if profilePath != "" {
		watcher, err := robot.WatchProfile(profilePath)
		if err != nil {
			sendLog(appLogs, "Profile hot reload disabled: %v", err)
		} else {
			defer watcher.Close()
			go reloadTuning(watcher, ctrl, appLogs)
		}
	}

	go func() {
		if err := ctrl.Start(ctx); err != nil && err != context.Canceled {
			log.Printf("Controller error: %v", err)
		}
	}()

	p := tea.NewProgram(initialTeleopModel(ctrl, server, panel, profile, appLogs, c.Listen), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Fatalf("Error running program: %v", err)
	}

	return nil
}

// reloadTuning applies the tuning section of the profile whenever the file
// changes. Other fields need a restart.
func reloadTuning(w *robot.ProfileWatcher, ctrl *teleop.Controller, logs chan<- string) {
	for {
		select {
		case path, ok := <-w.Events:
			if !ok {
				return
			}
			p, err := robot.LoadProfile(path)
			if err != nil {
				sendLog(logs, "Profile reload rejected: %v", err)
				continue
			}
			ctrl.ApplyTuning(p.Tuning)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			sendLog(logs, "Profile watch error: %v", err)
		}
	}
}

func sendLog(logs chan<- string, format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case logs <- msg:
	default:
		// Drop if channel full
	}
}

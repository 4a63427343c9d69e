package robot

import (
	"context"
	"fmt"

	"github.com/hipsterbrown/feetech-servo/feetech"
)

// Arm represents the physical arm: one servo per joint on a shared bus.
type Arm struct {
	bus         *feetech.Bus
	group       *feetech.ServoGroup
	calibration Calibration
}

// NewArm opens the servo bus and groups the calibrated servos. The
// calibration must cover every joint.
func NewArm(port string, cal Calibration) (*Arm, error) {
	if err := cal.Validate(); err != nil {
		return nil, err
	}

	bus, err := feetech.NewBus(feetech.BusConfig{
		Port:     port,
		BaudRate: 1_000_000,
		Protocol: feetech.ProtocolSTS,
	})
	if err != nil {
		return nil, fmt.Errorf("open bus: %w", err)
	}

	group := feetech.NewServoGroupByIDs(bus, cal.ServoIDs()...)

	return &Arm{
		bus:         bus,
		group:       group,
		calibration: cal,
	}, nil
}

// Close closes the arm's bus connection.
func (a *Arm) Close() error {
	return a.bus.Close()
}

// Enable enables torque on all servos.
func (a *Arm) Enable(ctx context.Context) error {
	return a.group.EnableAll(ctx)
}

// Disable disables torque on all servos.
func (a *Arm) Disable(ctx context.Context) error {
	return a.group.DisableAll(ctx)
}

// ReadAngles reads the current joint angles in degrees.
func (a *Arm) ReadAngles(ctx context.Context) ([NumJoints]float64, error) {
	var angles [NumJoints]float64

	raw, err := a.group.Positions(ctx)
	if err != nil {
		return angles, fmt.Errorf("read positions: %w", err)
	}

	for id, pos := range raw {
		j, cal, ok := a.calibration.ByID(id)
		if !ok {
			continue
		}
		angles[j] = cal.ToDegrees(pos)
	}

	return angles, nil
}

// WriteAngles writes target joint angles in degrees.
func (a *Arm) WriteAngles(ctx context.Context, angles [NumJoints]float64) error {
	raw := make(feetech.PositionMap, NumJoints)
	for _, j := range AllJoints() {
		cal := a.calibration[j]
		raw[cal.ID] = cal.FromDegrees(angles[j])
	}

	if err := a.group.SetPositions(ctx, raw); err != nil {
		return fmt.Errorf("write positions: %w", err)
	}

	return nil
}

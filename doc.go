// Package flexpendant jogs a six-axis arm from a pair of VR hand controllers,
// the way an industrial teach pendant does.
//
// One controller holds the pendant. Its trigger is the pressure button: no
// motion command reaches the arm unless it is held. The other controller's
// stick jogs either the end effector along a straight line (linear mode) or
// one joint at a time (articulated mode). Clicking the pendant hand's stick
// and rolling that wrist reaches the third axis. The hand used for tilt is
// set by hands.tilt in the rig profile.
//
// # Installation
//
//	go install github.com/gwillem/flexpendant/cmd/flexpendant@latest
//
// # Usage
//
// Find and calibrate the arm and write a rig profile:
//
//	flexpendant setup
//
// Then start teleoperation and point the headset client at ws://host:8080/ws:
//
//	flexpendant teleoperate
//
// Without hardware, --sim drives a simulated arm.
//
// # Packages
//
//   - cmd/flexpendant: CLI with setup and teleoperate commands
//   - pkg/robot: joints, calibration, rig profile, servo arm and kinematic chain
//   - pkg/input: per-hand input state, held objects and stick tilt
//   - pkg/teleop: pressure gate, mode and axis selection, control tick
//   - pkg/actuator: joint actuator backends for both rig variants
//   - pkg/linear: follow target and inverse kinematics for linear mode
//   - pkg/bridge: websocket link to the headset client
package flexpendant

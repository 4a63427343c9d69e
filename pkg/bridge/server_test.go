package bridge

import (
	"errors"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/geo/r2"
	"github.com/gorilla/websocket"
	"gonum.org/v1/gonum/num/quat"

	"github.com/gwillem/flexpendant/pkg/actuator"
	"github.com/gwillem/flexpendant/pkg/input"
	"github.com/gwillem/flexpendant/pkg/linear"
	"github.com/gwillem/flexpendant/pkg/robot"
	"github.com/gwillem/flexpendant/pkg/teleop"
)

type fakeInputs struct {
	calls chan string
}

func newFakeInputs() *fakeInputs {
	return &fakeInputs{calls: make(chan string, 16)}
}

func (f *fakeInputs) add(format string, args ...any) error {
	f.calls <- fmt.Sprintf(format, args...)
	return nil
}

func (f *fakeInputs) OnPrimaryButton(p bool, h robot.Hand) error { return f.add("primary %v %s", p, h) }
func (f *fakeInputs) OnSecondaryButton(p bool, h robot.Hand) error { return f.add("secondary %v %s", p, h) }
func (f *fakeInputs) OnTrigger(p bool, h robot.Hand) error { return f.add("trigger %v %s", p, h) }
func (f *fakeInputs) OnGrip(p bool, h robot.Hand) error { return f.add("grip %v %s", p, h) }
func (f *fakeInputs) OnJoystickAxis(a r2.Point, h robot.Hand) error {
	return f.add("axis %.1f %.1f %s", a.X, a.Y, h)
}
func (f *fakeInputs) OnJoystickPressed(p bool, h robot.Hand) error { return f.add("pressed %v %s", p, h) }
func (f *fakeInputs) OnJoystickTouched(p bool, h robot.Hand) error { return f.add("touched %v %s", p, h) }
func (f *fakeInputs) OnRotation(q quat.Number, h robot.Hand) error {
	return f.add("rotation %.1f %s", q.Real, h)
}

func TestServer_Handle(t *testing.T) {
	in := newFakeInputs()
	s := NewServer(&input.Holdings{})
	s.Attach(in)

	tests := []struct {
		msg  Message
		want string
	}{
		{Message{Type: "primary_button", Hand: "right", Pressed: true}, "primary true right"},
		{Message{Type: "secondary_button", Hand: "left"}, "secondary false left"},
		{Message{Type: "trigger", Hand: "left", Pressed: true}, "trigger true left"},
		{Message{Type: "grip", Hand: "r", Pressed: true}, "grip true right"},
		{Message{Type: "joystick_axis", Hand: "right", X: 0.5, Y: -0.2}, "axis 0.5 -0.2 right"},
		{Message{Type: "joystick_pressed", Hand: "left", Pressed: true}, "pressed true left"},
		{Message{Type: "joystick_touched", Hand: "left", Pressed: true}, "touched true left"},
		{Message{Type: "rotation", Hand: "left", Rotation: []float64{0, 0, 0, 1}}, "rotation 1.0 left"},
	}

	for _, tt := range tests {
		t.Run(tt.msg.Type, func(t *testing.T) {
			if err := s.Handle(tt.msg); err != nil {
				t.Fatalf("Handle: %v", err)
			}
			if got := <-in.calls; got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestServer_HandleRejects(t *testing.T) {
	s := NewServer(&input.Holdings{})

	if err := s.Handle(Message{Type: "trigger", Hand: "left"}); !errors.Is(err, ErrNotAttached) {
		t.Errorf("unattached err = %v", err)
	}

	s.Attach(newFakeInputs())
	for _, m := range []Message{
		{Type: "trigger", Hand: "middle"},
		{Type: "wave", Hand: "left"},
		{Type: "rotation", Hand: "left", Rotation: []float64{1, 0}},
		{Type: "hold", Hand: "left"},
	} {
		if err := s.Handle(m); !errors.Is(err, ErrBadMessage) {
			t.Errorf("Handle(%+v) = %v, want ErrBadMessage", m, err)
		}
	}
}

func TestServer_HoldAndRelease(t *testing.T) {
	held := &input.Holdings{}
	s := NewServer(held)

	if err := s.Handle(Message{Type: "hold", Hand: "left", Device: "Flexpendant"}); err != nil {
		t.Fatal(err)
	}
	if id, ok := held.HeldObject(robot.Left); !ok || id != "Flexpendant" {
		t.Errorf("HeldObject(left) = %q %v", id, ok)
	}

	if err := s.Handle(Message{Type: "release", Hand: "left"}); err != nil {
		t.Fatal(err)
	}
	if _, ok := held.HeldObject(robot.Left); ok {
		t.Error("left hand still holds something after release")
	}
}

func TestServer_Websocket(t *testing.T) {
	in := newFakeInputs()
	s := NewServer(&input.Holdings{})
	s.Attach(in)

	ts := httptest.NewServer(s)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(Message{Type: "trigger", Hand: "left", Pressed: true}); err != nil {
		t.Fatal(err)
	}
	select {
	case got := <-in.calls:
		if got != "trigger true left" {
			t.Errorf("got %q", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("event not delivered")
	}

	// the server has registered the client once it handled a frame
	if n := s.Clients(); n != 1 {
		t.Fatalf("Clients() = %d, want 1", n)
	}

	s.ShowMode(teleop.Linear)
	s.ShowAxisSet(teleop.SetB)
	s.ShowJoint(robot.WristPitch, -12.5)

	want := []Feedback{
		{Type: "mode", Mode: "linear"},
		{Type: "axis_set", AxisSet: "B", Label: "4  5  6"},
		{Type: "joint", Joint: "wrist_pitch", Number: 5, Angle: -12.5},
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	for _, w := range want {
		var got Feedback
		if err := conn.ReadJSON(&got); err != nil {
			t.Fatalf("read feedback: %v", err)
		}
		if got != w {
			t.Errorf("feedback = %+v, want %+v", got, w)
		}
	}
}

func dial(t *testing.T, s *Server) (*websocket.Conn, func()) {
	t.Helper()
	ts := httptest.NewServer(s)
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http"), nil)
	if err != nil {
		ts.Close()
		t.Fatalf("dial: %v", err)
	}
	return conn, func() {
		conn.Close()
		ts.Close()
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestServer_ReleaseLetsGoOfTrigger(t *testing.T) {
	in := newFakeInputs()
	s := NewServer(&input.Holdings{})
	s.Attach(in)

	for _, m := range []Message{
		{Type: "hold", Hand: "left", Device: "Flexpendant"},
		{Type: "trigger", Hand: "left", Pressed: true},
		{Type: "release", Hand: "left"},
		{Type: "release", Hand: "right"},
	} {
		if err := s.Handle(m); err != nil {
			t.Fatalf("Handle(%+v): %v", m, err)
		}
	}

	for _, want := range []string{"trigger true left", "trigger false left"} {
		if got := <-in.calls; got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}
	select {
	case got := <-in.calls:
		t.Errorf("empty hand release produced %q", got)
	default:
	}
}

func TestServer_DisconnectClosesGate(t *testing.T) {
	p, err := robot.DefaultProfile(robot.VariantArticulated)
	if err != nil {
		t.Fatal(err)
	}
	backend, err := actuator.NewJointControllerBackend(p, nil)
	if err != nil {
		t.Fatal(err)
	}

	held := &input.Holdings{}
	s := NewServer(held)
	cfg := teleop.ConfigFromProfile(p)
	cfg.Mode = teleop.Articulated
	ctrl, err := teleop.NewController(cfg, teleop.Collaborators{
		Backend: backend,
		Linear:  linear.NewFollowTarget(p.MoveSpeed, backend.TerminalPosition()),
		Tilt:    input.NewTiltTracker(p.Hands.Tilt, p.TiltThreshold),
		Held:    held,
		Display: s,
	})
	if err != nil {
		t.Fatal(err)
	}
	s.Attach(ctrl)
	ctrl.Init()

	conn, done := dial(t, s)
	defer done()

	for _, m := range []Message{
		{Type: "hold", Hand: "left", Device: robot.DefaultControlDevice},
		{Type: "trigger", Hand: "left", Pressed: true},
		{Type: "joystick_axis", Hand: "right", X: 0.9},
	} {
		if err := conn.WriteJSON(m); err != nil {
			t.Fatal(err)
		}
	}
	waitFor(t, "gate to open", func() bool { return ctrl.State().GateOpen })
	waitFor(t, "stick deflection", func() bool { return ctrl.Inputs().Right.JoystickAxis.X == 0.9 })

	conn.Close()
	waitFor(t, "client to leave", func() bool { return s.Clients() == 0 })

	if ctrl.State().GateOpen {
		t.Error("gate still open after the headset disconnected")
	}
	if id, ok := held.HeldObject(robot.Left); ok {
		t.Errorf("left hand still holds %q", id)
	}

	ctrl.RunControlTick()
	if cmd := ctrl.State().Command; cmd.Direction != robot.None {
		t.Errorf("tick after disconnect commanded %+v", cmd)
	}
}

func TestServer_SlowClientDoesNotBlock(t *testing.T) {
	s := NewServer(&input.Holdings{})
	_, done := dial(t, s)
	defer done()
	waitFor(t, "client to register", func() bool { return s.Clients() == 1 })

	// the client never reads, so its socket buffers fill up
	start := time.Now()
	for i := 0; i < 20000; i++ {
		s.ShowJoint(robot.BaseYaw, float64(i))
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("broadcasting to a stalled client took %v", elapsed)
	}
}

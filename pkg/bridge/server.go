// Package bridge connects a headset client to the controller over a
// websocket. Inbound frames become controller input events; display
// feedback is broadcast back to every client.
package bridge

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang/geo/r2"
	"github.com/gorilla/websocket"
	"gonum.org/v1/gonum/num/quat"

	"github.com/gwillem/flexpendant/pkg/input"
	"github.com/gwillem/flexpendant/pkg/robot"
	"github.com/gwillem/flexpendant/pkg/teleop"
)

var (
	ErrBadMessage  = errors.New("bad message")
	ErrNotAttached = errors.New("no controller attached")
)

// Inputs receives controller events.
type Inputs interface {
	OnPrimaryButton(pressed bool, hand robot.Hand) error
	OnSecondaryButton(pressed bool, hand robot.Hand) error
	OnTrigger(pressed bool, hand robot.Hand) error
	OnGrip(pressed bool, hand robot.Hand) error
	OnJoystickAxis(axis r2.Point, hand robot.Hand) error
	OnJoystickPressed(pressed bool, hand robot.Hand) error
	OnJoystickTouched(touched bool, hand robot.Hand) error
	OnRotation(q quat.Number, hand robot.Hand) error
}

const (
	pingTimeout = 2 * time.Second
	sendBuffer  = 64 // frames queued per client before new ones are dropped
)

// client is one headset connection. Frames go out through send so a slow
// reader never blocks the caller of a broadcast.
type client struct {
	conn    *websocket.Conn
	send    chan []byte
	holding [2]bool // hands this client reported holding a device
}

// Server is an http.Handler that upgrades to a websocket per client.
type Server struct {
	held     *input.Holdings
	upgrader websocket.Upgrader
	logCh    chan string

	mu     sync.Mutex
	conns  map[*client]struct{}
	inputs Inputs
}

// Attach sets the receiver of input events. The controller is usually
// built with the server as one of its displays, so it is attached after.
func (s *Server) Attach(in Inputs) {
	s.mu.Lock()
	s.inputs = in
	s.mu.Unlock()
}

// NewServer creates a bridge recording holds in held. Events are dropped
// until Attach is called.
func NewServer(held *input.Holdings) *Server {
	return &Server{
		held: held,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logCh: make(chan string, 10),
		conns: make(map[*client]struct{}),
	}
}

// Logs returns a channel that receives log messages.
func (s *Server) Logs() <-chan string {
	return s.logCh
}

func (s *Server) log(format string, args ...any) {
	msg := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), fmt.Sprintf(format, args...))
	select {
	case s.logCh <- msg:
	default:
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log("Upgrade failed: %v", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
	s.log("Headset connected from %v", conn.RemoteAddr())

	go s.writeLoop(c)
	keepAlive(conn, pingTimeout)
	s.readLoop(c)

	// A lost headset counts as letting go of everything it held.
	for _, h := range []robot.Hand{robot.Left, robot.Right} {
		if c.holding[h] {
			s.release(h)
			s.log("%s hand released on disconnect", h)
		}
	}

	s.mu.Lock()
	delete(s.conns, c)
	close(c.send)
	s.mu.Unlock()
	conn.Close()
}

func (s *Server) writeLoop(c *client) {
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(pingTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			s.log("Send to %v failed: %v", c.conn.RemoteAddr(), err)
			c.conn.Close()
			return
		}
	}
}

func (s *Server) readLoop(c *client) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log("Headset connection lost: %v", err)
			} else {
				s.log("Headset disconnected")
			}
			return
		}

		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			s.log("Bad frame: %v", err)
			continue
		}
		if err := s.handle(c, m); err != nil {
			s.log("Rejected %q: %v", m.Type, err)
		}
	}
}

// keepAlive pings conn and closes it when pongs stop arriving.
func keepAlive(conn *websocket.Conn, timeout time.Duration) {
	var mu sync.Mutex
	lastResponse := time.Now()
	conn.SetPongHandler(func(string) error {
		mu.Lock()
		lastResponse = time.Now()
		mu.Unlock()
		return nil
	})

	go func() {
		for {
			err := conn.WriteControl(websocket.PingMessage, []byte("keepalive"), time.Now().Add(timeout))
			if err != nil {
				return
			}
			time.Sleep(timeout / 2)
			mu.Lock()
			stale := time.Since(lastResponse) > timeout
			mu.Unlock()
			if stale {
				conn.Close()
				return
			}
		}
	}()
}

// Handle applies one inbound message.
func (s *Server) Handle(m Message) error {
	return s.handle(nil, m)
}

func (s *Server) attached() Inputs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inputs
}

// release empties hand. A held trigger is let go first, while the device is
// still registered, so the gate sees the release.
func (s *Server) release(hand robot.Hand) {
	if _, ok := s.held.HeldObject(hand); ok {
		if in := s.attached(); in != nil {
			if err := in.OnTrigger(false, hand); err != nil {
				s.log("Release %s trigger: %v", hand, err)
			}
		}
	}
	s.held.Release(hand)
}

func (s *Server) handle(c *client, m Message) error {
	hand, err := robot.ParseHand(m.Hand)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadMessage, err)
	}

	switch m.Type {
	case "hold":
		if m.Device == "" {
			return fmt.Errorf("%w: hold without device", ErrBadMessage)
		}
		s.held.Hold(hand, input.DeviceID(m.Device))
		if c != nil {
			c.holding[hand] = true
		}
		s.log("%s hand holds %s", hand, m.Device)
		return nil
	case "release":
		s.release(hand)
		if c != nil {
			c.holding[hand] = false
		}
		s.log("%s hand released", hand)
		return nil
	}

	kind, err := input.ParseEventKind(m.Type)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadMessage, err)
	}

	in := s.attached()
	if in == nil {
		return ErrNotAttached
	}

	switch kind {
	case input.PrimaryButton:
		return in.OnPrimaryButton(m.Pressed, hand)
	case input.SecondaryButton:
		return in.OnSecondaryButton(m.Pressed, hand)
	case input.Trigger:
		return in.OnTrigger(m.Pressed, hand)
	case input.Grip:
		return in.OnGrip(m.Pressed, hand)
	case input.JoystickAxis:
		return in.OnJoystickAxis(m.axis(), hand)
	case input.JoystickPressed:
		return in.OnJoystickPressed(m.Pressed, hand)
	case input.JoystickTouched:
		return in.OnJoystickTouched(m.Pressed, hand)
	case input.Rotation:
		q, ok := m.rotation()
		if !ok {
			return fmt.Errorf("%w: rotation needs 4 components", ErrBadMessage)
		}
		return in.OnRotation(q, hand)
	}
	return fmt.Errorf("%w: unhandled kind %s", ErrBadMessage, kind)
}

// Clients returns the number of connected clients.
func (s *Server) Clients() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// broadcast queues f for every client without waiting on any of them.
// Clients that fall sendBuffer frames behind miss frames.
func (s *Server) broadcast(f Feedback) {
	data, err := json.Marshal(f)
	if err != nil {
		s.log("Encode feedback: %v", err)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		select {
		case c.send <- data:
		default:
		}
	}
}

func (s *Server) ShowAxisSet(set teleop.AxisSet) {
	s.broadcast(Feedback{Type: "axis_set", AxisSet: set.String(), Label: set.Label()})
}

func (s *Server) ShowMode(m teleop.Mode) {
	s.broadcast(Feedback{Type: "mode", Mode: m.String()})
}

func (s *Server) ShowJoint(j robot.Joint, angle float64) {
	s.broadcast(Feedback{Type: "joint", Joint: j.String(), Number: j.Number(), Angle: angle})
}

func (s *Server) SwitchToTeleport(vertical float64) {
	s.broadcast(Feedback{Type: "teleport", Vertical: vertical})
}

func (s *Server) PointAction(hand robot.Hand, pressed bool) {
	s.broadcast(Feedback{Type: "point", Hand: hand.String(), Pressed: pressed})
}

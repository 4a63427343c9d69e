package bridge

import (
	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/num/quat"
)

// Message is one inbound frame from the headset client. Type is an input
// event kind name, "hold" or "release".
type Message struct {
	Type     string    `json:"type"`
	Hand     string    `json:"hand"`
	Pressed  bool      `json:"pressed,omitempty"`
	X        float64   `json:"x,omitempty"`
	Y        float64   `json:"y,omitempty"`
	Rotation []float64 `json:"rotation,omitempty"` // x, y, z, w
	Device   string    `json:"device,omitempty"`
}

func (m Message) axis() r2.Point {
	return r2.Point{X: m.X, Y: m.Y}
}

func (m Message) rotation() (quat.Number, bool) {
	if len(m.Rotation) != 4 {
		return quat.Number{}, false
	}
	r := m.Rotation
	return quat.Number{Real: r[3], Imag: r[0], Jmag: r[1], Kmag: r[2]}, true
}

// Feedback is one outbound frame to every connected client.
type Feedback struct {
	Type     string  `json:"type"`
	Mode     string  `json:"mode,omitempty"`
	AxisSet  string  `json:"axis_set,omitempty"`
	Label    string  `json:"label,omitempty"`
	Joint    string  `json:"joint,omitempty"`
	Number   int     `json:"number,omitempty"`
	Angle    float64 `json:"angle,omitempty"`
	Hand     string  `json:"hand,omitempty"`
	Pressed  bool    `json:"pressed,omitempty"`
	Vertical float64 `json:"vertical,omitempty"`
}

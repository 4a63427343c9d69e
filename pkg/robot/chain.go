package robot

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Identity is the rotation that leaves vectors unchanged.
var Identity = quat.Number{Real: 1}

// AxisAngle returns the unit quaternion rotating deg degrees about axis.
func AxisAngle(axis r3.Vector, deg float64) quat.Number {
	n := axis.Normalize()
	half := deg * math.Pi / 360
	s := math.Sin(half)
	return quat.Number{Real: math.Cos(half), Imag: n.X * s, Jmag: n.Y * s, Kmag: n.Z * s}
}

// Rotate applies the unit quaternion q to v.
func Rotate(q quat.Number, v r3.Vector) r3.Vector {
	p := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, p), quat.Conj(q))
	return r3.Vector{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// Link is one segment of the arm: the offset of a joint from its parent
// joint, expressed in the parent's frame, and the local axis it rotates about.
type Link struct {
	Offset r3.Vector `yaml:"offset"`
	Axis   r3.Vector `yaml:"axis"`
}

// Chain is the serial joint chain from the base to the terminal joint.
type Chain [NumJoints]Link

// Locate returns the position of the terminal joint given each joint's
// local rotation.
func (c Chain) Locate(rotations [NumJoints]quat.Number) r3.Vector {
	var pos r3.Vector
	orient := Identity
	for i, link := range c {
		pos = pos.Add(Rotate(orient, link.Offset))
		orient = quat.Mul(orient, rotations[i])
	}
	return pos
}

// LocateAngles is Locate for joint angles in degrees about each link's axis.
func (c Chain) LocateAngles(angles [NumJoints]float64) r3.Vector {
	var rotations [NumJoints]quat.Number
	for i, link := range c {
		rotations[i] = AxisAngle(link.Axis, angles[i])
	}
	return c.Locate(rotations)
}

// Frame is a joint's origin and rotation axis in world coordinates.
type Frame struct {
	Origin r3.Vector
	Axis   r3.Vector
}

// Frames returns the world frame of every joint for angles in degrees.
// The last frame's origin is the terminal position.
func (c Chain) Frames(angles [NumJoints]float64) [NumJoints]Frame {
	var frames [NumJoints]Frame
	var pos r3.Vector
	orient := Identity
	for i, link := range c {
		pos = pos.Add(Rotate(orient, link.Offset))
		frames[i] = Frame{Origin: pos, Axis: Rotate(orient, link.Axis.Normalize())}
		orient = quat.Mul(orient, AxisAngle(link.Axis, angles[i]))
	}
	return frames
}

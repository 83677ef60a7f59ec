// Package field provides magnetic field maps queried by the stepper. Values
// are in internal units (see units.Tesla).
package field

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/detprop/internal/units"
)

type Field interface {
	ValueAt(pos mgl64.Vec3) mgl64.Vec3
}

// Constant is a homogeneous field.
type Constant struct {
	B mgl64.Vec3
}

// NewConstant builds a homogeneous field from a vector given in tesla.
func NewConstant(tesla mgl64.Vec3) Constant {
	return Constant{B: tesla.Mul(units.Tesla)}
}

func (c Constant) ValueAt(mgl64.Vec3) mgl64.Vec3 { return c.B }

// Func adapts a plain function to the Field interface.
type Func func(pos mgl64.Vec3) mgl64.Vec3

func (f Func) ValueAt(pos mgl64.Vec3) mgl64.Vec3 { return f(pos) }

// Solenoid is a field along z with strength B0 inside radius R and zero
// outside, a crude stand-in for a finite solenoid.
type Solenoid struct {
	B0     float64
	Radius float64
}

func (s Solenoid) ValueAt(pos mgl64.Vec3) mgl64.Vec3 {
	if pos[0]*pos[0]+pos[1]*pos[1] > s.Radius*s.Radius {
		return mgl64.Vec3{}
	}
	return mgl64.Vec3{0, 0, s.B0 * units.Tesla}
}

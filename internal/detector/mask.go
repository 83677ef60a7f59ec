package detector

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// MaskKind is the closed set of surface shapes. Adding a kind means adding
// a routine to the intersection kernel's table; the navigator is unaware of
// shapes.
type MaskKind uint8

const (
	Rectangle MaskKind = iota
	Trapezoid
	Ring
	Cylinder

	NumMaskKinds
)

func (k MaskKind) String() string {
	switch k {
	case Rectangle:
		return "rectangle"
	case Trapezoid:
		return "trapezoid"
	case Ring:
		return "ring"
	case Cylinder:
		return "cylinder"
	}
	return fmt.Sprintf("mask(%d)", uint8(k))
}

// IsPlanar reports whether the mask lives in the local xy plane.
func (k MaskKind) IsPlanar() bool { return k != Cylinder }

// Mask is the shape and bounds of a surface in its local frame.
//
//	Rectangle: half x, half y
//	Trapezoid: half x at -y, half x at +y, half y
//	Ring:      r min, r max
//	Cylinder:  r, z min, z max (along the local z axis)
type Mask struct {
	Kind   MaskKind
	Bounds [3]float64
}

func NewRectangle(halfX, halfY float64) Mask {
	return Mask{Kind: Rectangle, Bounds: [3]float64{halfX, halfY}}
}

func NewTrapezoid(halfXMinY, halfXMaxY, halfY float64) Mask {
	return Mask{Kind: Trapezoid, Bounds: [3]float64{halfXMinY, halfXMaxY, halfY}}
}

func NewRing(rMin, rMax float64) Mask {
	return Mask{Kind: Ring, Bounds: [3]float64{rMin, rMax}}
}

func NewCylinder(r, zMin, zMax float64) Mask {
	return Mask{Kind: Cylinder, Bounds: [3]float64{r, zMin, zMax}}
}

// Radius is the cylinder radius; zero for planar masks.
func (m Mask) Radius() float64 {
	if m.Kind != Cylinder {
		return 0
	}
	return m.Bounds[0]
}

// Contains checks a point given in cartesian local coordinates.
func (m Mask) Contains(local mgl64.Vec3, tol float64) bool {
	b := m.Bounds
	switch m.Kind {
	case Rectangle:
		return math.Abs(local[0]) <= b[0]+tol && math.Abs(local[1]) <= b[1]+tol
	case Trapezoid:
		if math.Abs(local[1]) > b[2]+tol {
			return false
		}
		frac := (local[1] + b[2]) / (2 * b[2])
		halfX := b[0] + frac*(b[1]-b[0])
		return math.Abs(local[0]) <= halfX+tol
	case Ring:
		r := math.Hypot(local[0], local[1])
		return r >= b[0]-tol && r <= b[1]+tol
	case Cylinder:
		return local[2] >= b[1]-tol && local[2] <= b[2]+tol
	}
	return false
}

// Coordinates maps a cartesian local point to the 2D surface
// parametrisation: (x, y) for rectangles and trapezoids, (r, phi) for rings
// and (r*phi, z) for cylinders.
func (m Mask) Coordinates(local mgl64.Vec3) mgl64.Vec2 {
	switch m.Kind {
	case Ring:
		return mgl64.Vec2{math.Hypot(local[0], local[1]), math.Atan2(local[1], local[0])}
	case Cylinder:
		return mgl64.Vec2{m.Bounds[0] * math.Atan2(local[1], local[0]), local[2]}
	}
	return mgl64.Vec2{local[0], local[1]}
}

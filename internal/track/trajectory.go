package track

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Trajectory evaluates a particle path at an arbitrary path length measured
// from its origin.
type Trajectory interface {
	PositionAt(s float64) mgl64.Vec3
	DirectionAt(s float64) mgl64.Vec3
}

type Ray struct {
	Origin mgl64.Vec3
	Dir    mgl64.Vec3
}

// RayFrom returns the tangent ray of the track at its current position.
func RayFrom(p Parameters) Ray {
	return Ray{Origin: p.Pos, Dir: p.Dir}
}

func (r Ray) PositionAt(s float64) mgl64.Vec3 { return r.Origin.Add(r.Dir.Mul(s)) }

func (r Ray) DirectionAt(float64) mgl64.Vec3 { return r.Dir }

// Helix is the path of a charged particle in a constant field.
type Helix struct {
	origin mgl64.Vec3
	tPar   mgl64.Vec3
	tPerp  mgl64.Vec3
	bxT    mgl64.Vec3
	omega  float64
}

// NewHelix builds the helix tangent to p in the field b (internal units).
// Neutral tracks and zero fields degenerate to a straight line.
func NewHelix(p Parameters, b mgl64.Vec3) Helix {
	h := Helix{origin: p.Pos, tPar: p.Dir}
	bMag := b.Len()
	if bMag == 0 || p.QOverP == 0 {
		return h
	}

	unit := b.Mul(1 / bMag)
	h.tPar = unit.Mul(p.Dir.Dot(unit))
	h.tPerp = p.Dir.Sub(h.tPar)
	h.bxT = unit.Cross(h.tPerp)
	h.omega = -p.QOverP * bMag
	return h
}

func (h Helix) Origin() mgl64.Vec3 { return h.origin }

// Radius of the transverse circle; +Inf for straight lines.
func (h Helix) Radius() float64 {
	if h.omega == 0 {
		return math.Inf(1)
	}
	return h.tPerp.Len() / math.Abs(h.omega)
}

func (h Helix) PositionAt(s float64) mgl64.Vec3 {
	if h.omega == 0 {
		return h.origin.Add(h.tPar.Mul(s))
	}
	sin, cos := math.Sincos(h.omega * s)
	bend := h.tPerp.Mul(sin).Add(h.bxT.Mul(1 - cos)).Mul(1 / h.omega)
	return h.origin.Add(h.tPar.Mul(s)).Add(bend)
}

func (h Helix) DirectionAt(s float64) mgl64.Vec3 {
	if h.omega == 0 {
		return h.tPar
	}
	sin, cos := math.Sincos(h.omega * s)
	return h.tPar.Add(h.tPerp.Mul(cos)).Add(h.bxT.Mul(sin))
}

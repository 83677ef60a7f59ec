package detector

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/detprop/internal/algebra"
)

// Bounds of a cylindrical volume around the z axis. Intervals are half open
// so that every point belongs to at most one volume.
type Bounds struct {
	RMin, RMax float64
	ZMin, ZMax float64
}

func (b Bounds) Contains(p mgl64.Vec3) bool {
	r := algebra.Perp(p)
	return r >= b.RMin && r < b.RMax && p[2] >= b.ZMin && p[2] < b.ZMax
}

// SurfaceRange is a contiguous run of surfaces in the detector's storage.
type SurfaceRange struct {
	Begin, End int
}

func (r SurfaceRange) Len() int { return r.End - r.Begin }

type Volume struct {
	Index    int
	Name     string
	Bounds   Bounds
	Surfaces SurfaceRange
}

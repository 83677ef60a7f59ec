// Package intersect computes where a trajectory meets a surface. Routines are
// selected from a fixed table indexed by mask kind, so the callers never
// switch on shapes.
package intersect

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/detprop/internal/detector"
	"github.com/san-kum/detprop/internal/track"
)

const (
	DefaultMaskTolerance = 1e-5
	DefaultNewtonSteps   = 20
	DefaultNewtonEpsilon = 1e-9
)

// rootFinder returns every path length at which the trajectory meets the
// unbounded surface. Rays are solved exactly, anything else is refined from
// the roots of its tangent ray.
type rootFinder func(k *Kernel, tr track.Trajectory, sf *detector.Surface) roots

// roots holds up to two path lengths, kept on the stack.
type roots struct {
	s [2]float64
	n int
}

func (r *roots) add(s float64) {
	r.s[r.n] = s
	r.n++
}

// closestFirst orders the roots by distance from the trajectory origin.
func (r *roots) closestFirst() []float64 {
	if r.n == 2 && math.Abs(r.s[1]) < math.Abs(r.s[0]) {
		r.s[0], r.s[1] = r.s[1], r.s[0]
	}
	return r.s[:r.n]
}

var routines = [detector.NumMaskKinds]rootFinder{
	detector.Rectangle: planeRoots,
	detector.Trapezoid: planeRoots,
	detector.Ring:      planeRoots,
	detector.Cylinder:  cylinderRoots,
}

// Kernel is stateless and safe for concurrent use.
//
// Masks are checked with MaskTolerance, widened by MaskToleranceScale times
// the distance to the root up to MaxMaskTolerance. The zero scale checks
// every root with MaskTolerance alone.
type Kernel struct {
	MaskTolerance      float64
	MaskToleranceScale float64
	MaxMaskTolerance   float64
	NewtonSteps        int
	NewtonEpsilon      float64
}

func NewKernel() *Kernel {
	return &Kernel{
		MaskTolerance: DefaultMaskTolerance,
		NewtonSteps:   DefaultNewtonSteps,
		NewtonEpsilon: DefaultNewtonEpsilon,
	}
}

// Intersect returns the root with path >= minPath that is closest to the
// trajectory origin and inside the mask. When no such root is inside, the
// closest one is returned with status Outside.
func (k *Kernel) Intersect(tr track.Trajectory, sf *detector.Surface, minPath float64) Record {
	rec := Record{Status: Missed, Path: math.Inf(1), Surface: sf.Index}
	if int(sf.Mask.Kind) >= len(routines) {
		return rec
	}

	found := routines[sf.Mask.Kind](k, tr, sf)

	first := true
	for _, s := range found.closestFirst() {
		if s < minPath || math.IsNaN(s) || math.IsInf(s, 0) {
			continue
		}
		cand := k.record(tr, sf, s)
		if cand.Status == Inside {
			return cand
		}
		if first {
			rec = cand
			first = false
		}
	}
	return rec
}

// IntersectAll returns every root with path >= minPath in path order, inside
// the mask or not.
func (k *Kernel) IntersectAll(tr track.Trajectory, sf *detector.Surface, minPath float64) []Record {
	if int(sf.Mask.Kind) >= len(routines) {
		return nil
	}
	found := routines[sf.Mask.Kind](k, tr, sf)
	if found.n == 2 && found.s[1] < found.s[0] {
		found.s[0], found.s[1] = found.s[1], found.s[0]
	}

	var out []Record
	for _, s := range found.s[:found.n] {
		if s < minPath || math.IsNaN(s) || math.IsInf(s, 0) {
			continue
		}
		if len(out) > 0 && math.Abs(s-out[len(out)-1].Path) < math.Sqrt(k.NewtonEpsilon) {
			continue
		}
		out = append(out, k.record(tr, sf, s))
	}
	return out
}

func (k *Kernel) record(tr track.Trajectory, sf *detector.Surface, s float64) Record {
	pos := tr.PositionAt(s)
	local := sf.Transform.PointToLocal(pos)
	rec := Record{
		Status:   Outside,
		Path:     s,
		Local:    sf.Mask.Coordinates(local),
		Position: pos,
		Surface:  sf.Index,
	}
	if sf.Mask.Contains(local, k.tolerance(s)) {
		rec.Status = Inside
	}
	return rec
}

func (k *Kernel) tolerance(s float64) float64 {
	return math.Max(k.MaskTolerance, math.Min(k.MaxMaskTolerance, k.MaskToleranceScale*math.Abs(s)))
}

// tangent returns the straight line a trajectory starts along and whether
// that line is the trajectory itself.
func tangent(tr track.Trajectory) (track.Ray, bool) {
	switch r := tr.(type) {
	case track.Ray:
		return r, true
	case *track.Ray:
		return *r, true
	}
	return track.Ray{Origin: tr.PositionAt(0), Dir: tr.DirectionAt(0)}, false
}

// newton refines a root of f starting from s. f returns the value and its
// derivative with respect to the path length.
func (k *Kernel) newton(s float64, f func(float64) (float64, float64)) (float64, bool) {
	for range k.NewtonSteps {
		v, dv := f(s)
		if dv == 0 || math.IsNaN(dv) {
			return s, false
		}
		ds := v / dv
		s -= ds
		if math.Abs(ds) < k.NewtonEpsilon {
			v, _ = f(s)
			return s, math.Abs(v) < math.Sqrt(k.NewtonEpsilon)
		}
	}
	return s, false
}

func (k *Kernel) refine(seeds roots, f func(float64) (float64, float64)) roots {
	var out roots
	for _, s := range seeds.s[:seeds.n] {
		if r, ok := k.newton(s, f); ok {
			out.add(r)
		}
	}
	return out
}

// unit guards the tangent direction of trajectories that do not normalise.
func unit(v mgl64.Vec3) mgl64.Vec3 {
	if l := v.Len(); l > 0 && l != 1 {
		return v.Mul(1 / l)
	}
	return v
}

// Package gun produces ground-truth surface crossings by intersecting an
// analytic trajectory with every surface of a detector, without stepping.
package gun

import (
	"cmp"
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/detprop/internal/actor"
	"github.com/san-kum/detprop/internal/detector"
	"github.com/san-kum/detprop/internal/intersect"
	"github.com/san-kum/detprop/internal/track"
)

const (
	DefaultMinPath = 1e-4
	DefaultSegment = 20.0
	DefaultMaxPath = 10000.0

	// lookBack is how far before a crossing the mother volume is checked.
	lookBack = 1e-3
	// roots closer than this on one surface are the same crossing
	duplicate = 1e-6
)

type Gun struct {
	det    *detector.Detector
	kernel *intersect.Kernel

	MinPath float64
	// Curved trajectories are searched segment by segment, each segment
	// no longer than Segment and a quarter of the bending radius.
	Segment float64
	MaxPath float64
}

func New(det *detector.Detector, kernel *intersect.Kernel) *Gun {
	if kernel == nil {
		kernel = intersect.NewKernel()
	}
	return &Gun{
		det:     det,
		kernel:  kernel,
		MinPath: DefaultMinPath,
		Segment: DefaultSegment,
		MaxPath: DefaultMaxPath,
	}
}

// Shoot returns every crossing of tr in path order, up to and including the
// portal that leaves the world. Surfaces are only reported from the volume
// the trajectory is in just before the crossing, which removes the duplicate
// portals of adjacent volumes.
func (g *Gun) Shoot(tr track.Trajectory) []actor.Hit {
	switch tr.(type) {
	case track.Ray, *track.Ray:
		hits := g.collect(tr, nil, 0, g.MinPath, math.Inf(1))
		return g.untilExit(hits)
	}

	seg := g.Segment
	if c, ok := tr.(interface{ Radius() float64 }); ok && c.Radius() > 0 {
		seg = math.Min(seg, c.Radius()/4)
	}

	var hits []actor.Hit
	for s0 := 0.0; s0 < g.MaxPath; s0 += seg {
		lo := -duplicate
		if s0 == 0 {
			lo = g.MinPath
		}
		hits = g.collect(shifted{tr, s0}, hits, s0, lo, seg)
		if exit := g.untilExit(hits); g.leaves(exit) {
			return exit
		}
	}
	return g.untilExit(hits)
}

// collect appends the crossings of tr with path in [lo, hi) to hits. Paths
// are reported relative to the original trajectory, offset by s0.
func (g *Gun) collect(tr track.Trajectory, hits []actor.Hit, s0, lo, hi float64) []actor.Hit {
	for i := 0; i < g.det.NumSurfaces(); i++ {
		sf := g.det.Surface(i)
		for _, rec := range g.kernel.IntersectAll(tr, sf, lo) {
			if rec.Path >= hi {
				break
			}
			if rec.Status != intersect.Inside {
				continue
			}
			before := tr.PositionAt(rec.Path - lookBack)
			if s0+rec.Path < lookBack {
				before = tr.PositionAt(-s0)
			}
			if vol, ok := g.det.VolumeByPos(before); !ok || vol != sf.Volume {
				continue
			}
			path := s0 + rec.Path
			if seen(hits, sf.Index, path) {
				continue
			}
			hits = append(hits, actor.Hit{
				Surface:    sf.Index,
				Volume:     sf.Volume,
				Portal:     sf.IsPortal(),
				Position:   rec.Position,
				Direction:  tr.DirectionAt(rec.Path),
				Local:      rec.Local,
				PathLength: path,
			})
		}
	}
	return hits
}

func seen(hits []actor.Hit, surface int, path float64) bool {
	return slices.ContainsFunc(hits, func(h actor.Hit) bool {
		return h.Surface == surface && math.Abs(h.PathLength-path) < duplicate
	})
}

// untilExit sorts the hits and cuts them after the first world exit.
func (g *Gun) untilExit(hits []actor.Hit) []actor.Hit {
	slices.SortStableFunc(hits, func(a, b actor.Hit) int {
		return cmp.Compare(a.PathLength, b.PathLength)
	})
	for i, h := range hits {
		if h.Portal && g.det.Surface(h.Surface).LeavesWorld() {
			return hits[:i+1]
		}
	}
	return hits
}

func (g *Gun) leaves(hits []actor.Hit) bool {
	if len(hits) == 0 {
		return false
	}
	last := hits[len(hits)-1]
	return last.Portal && g.det.Surface(last.Surface).LeavesWorld()
}

// shifted is a trajectory re-based to start at path length s0.
type shifted struct {
	tr track.Trajectory
	s0 float64
}

func (t shifted) PositionAt(s float64) mgl64.Vec3 { return t.tr.PositionAt(t.s0 + s) }

func (t shifted) DirectionAt(s float64) mgl64.Vec3 { return t.tr.DirectionAt(t.s0 + s) }

package intersect

import (
	"math"

	"github.com/san-kum/detprop/internal/detector"
	"github.com/san-kum/detprop/internal/track"
)

const parallelEpsilon = 1e-12

func planeRoots(k *Kernel, tr track.Trajectory, sf *detector.Surface) roots {
	normal := sf.Transform.Axis(2)
	center := sf.Transform.Center()

	ray, exact := tangent(tr)
	denom := normal.Dot(unit(ray.Dir))
	var found roots
	if math.Abs(denom) < parallelEpsilon {
		return found
	}
	found.add(normal.Dot(center.Sub(ray.Origin)) / denom)
	if exact {
		return found
	}

	return k.refine(found, func(s float64) (float64, float64) {
		return normal.Dot(tr.PositionAt(s).Sub(center)), normal.Dot(tr.DirectionAt(s))
	})
}

package intersect

import (
	"math"

	"github.com/san-kum/detprop/internal/detector"
	"github.com/san-kum/detprop/internal/track"
)

func cylinderRoots(k *Kernel, tr track.Trajectory, sf *detector.Surface) roots {
	r := sf.Mask.Radius()
	ray, exact := tangent(tr)

	o := sf.Transform.PointToLocal(ray.Origin)
	d := sf.Transform.VectorToLocal(unit(ray.Dir))

	var found roots
	a := d[0]*d[0] + d[1]*d[1]
	if a < parallelEpsilon {
		return found
	}
	b := 2 * (o[0]*d[0] + o[1]*d[1])
	c := o[0]*o[0] + o[1]*o[1] - r*r
	disc := b*b - 4*a*c
	if disc < 0 {
		return found
	}

	q := -0.5 * (b + math.Copysign(math.Sqrt(disc), b))
	if q == 0 {
		found.add(0)
	} else {
		found.add(q / a)
		found.add(c / q)
	}
	if exact {
		return found
	}

	return k.refine(found, func(s float64) (float64, float64) {
		p := sf.Transform.PointToLocal(tr.PositionAt(s))
		t := sf.Transform.VectorToLocal(tr.DirectionAt(s))
		rho := math.Hypot(p[0], p[1])
		if rho == 0 {
			return -r, 0
		}
		return rho - r, (p[0]*t[0] + p[1]*t[1]) / rho
	})
}

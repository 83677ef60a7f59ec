package track

import (
	"iter"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Generator yields tracks from a common origin with directions spaced
// uniformly in theta and phi.
type Generator struct {
	ThetaSteps int
	PhiSteps   int
	Origin     mgl64.Vec3
	Momentum   float64
	Charge     float64
	Time       float64
}

const thetaMargin = 0.01

// Len is the number of tracks All yields.
func (g Generator) Len() int {
	if g.ThetaSteps <= 0 || g.PhiSteps <= 0 {
		return 0
	}
	return g.ThetaSteps * g.PhiSteps
}

func (g Generator) All() iter.Seq[Parameters] {
	return func(yield func(Parameters) bool) {
		if g.Len() == 0 {
			return
		}
		dTheta := (math.Pi - 2*thetaMargin) / float64(g.ThetaSteps)
		dPhi := 2 * math.Pi / float64(g.PhiSteps)

		for i := 0; i < g.ThetaSteps; i++ {
			theta := thetaMargin + float64(i)*dTheta
			if g.ThetaSteps == 1 {
				theta = math.Pi / 2
			}
			sinTheta, cosTheta := math.Sincos(theta)
			for j := 0; j < g.PhiSteps; j++ {
				phi := -math.Pi + float64(j)*dPhi
				sinPhi, cosPhi := math.Sincos(phi)
				dir := mgl64.Vec3{sinTheta * cosPhi, sinTheta * sinPhi, cosTheta}
				if !yield(New(g.Origin, dir.Mul(g.Momentum), g.Charge, g.Time)) {
					return
				}
			}
		}
	}
}

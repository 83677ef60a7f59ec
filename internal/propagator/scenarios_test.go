package propagator

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/detprop/internal/actor"
	"github.com/san-kum/detprop/internal/detector"
	"github.com/san-kum/detprop/internal/field"
	"github.com/san-kum/detprop/internal/gun"
	"github.com/san-kum/detprop/internal/navigation"
	"github.com/san-kum/detprop/internal/stepper"
	"github.com/san-kum/detprop/internal/track"
	"github.com/san-kum/detprop/internal/units"
)

const epsilon = 1e-3

// barrel is a small silicon-tracker-like fixture: stave rings and endcap
// discs in the two inner volumes, full cylinder layers in the outer ones.
func barrel() *detector.Detector {
	d, err := detector.NewCylinderStack([]float64{0, 50, 100, 150, 200}, 500,
		detector.WithModuleRings(
			detector.ModuleRing{Radius: 30, Staves: 10, HalfLength: 450},
			detector.ModuleRing{Radius: 75, Staves: 16, HalfLength: 450},
		),
		detector.WithEndcapDiscs(
			detector.EndcapDisc{Z: 470, RMin: 2, RMax: 45},
			detector.EndcapDisc{Z: 470, RMin: 55, RMax: 95, Petals: 12},
		),
		detector.WithCylinderLayers(125, 175),
	)
	Expect(err).NotTo(HaveOccurred())
	return d
}

// reachedBy keeps the truth crossings up to the path length the propagation
// ended at.
func reachedBy(truth []actor.Hit, state *State) []actor.Hit {
	end := state.Stepping.Track.PathLength + epsilon
	n := 0
	for n < len(truth) && truth[n].PathLength <= end {
		n++
	}
	return truth[:n]
}

// distanceToSurface is how far pos lies off the unbounded surface.
func distanceToSurface(sf *detector.Surface, pos mgl64.Vec3) float64 {
	local := sf.Transform.PointToLocal(pos)
	if sf.Mask.Kind == detector.Cylinder {
		return math.Abs(math.Hypot(local[0], local[1]) - sf.Mask.Radius())
	}
	return math.Abs(local[2])
}

var _ = Describe("Propagator", func() {
	Describe("straight tracks through concentric volumes", func() {
		var (
			det  *detector.Detector
			prop *Propagator
		)

		BeforeEach(func() {
			var err error
			det, err = detector.NewCylinderStack([]float64{0, 10, 20, 30, 40}, 100)
			Expect(err).NotTo(HaveOccurred())
			nav := navigation.New(det, nil, navigation.DefaultConfig())
			prop = New(stepper.Line{}, nav, DefaultConfig())
		})

		It("terminates within volumes+2 steps", func() {
			gen := track.Generator{ThetaSteps: 10, PhiSteps: 10, Momentum: 1}
			for p := range gen.All() {
				ok, state := prop.Propagate(p, nil, stepper.Constraints{})
				Expect(ok).To(BeTrue())
				Expect(state.Navigation.Status()).To(Equal(navigation.Exhausted))
				Expect(state.Navigation.Exited()).To(BeTrue())
				Expect(state.Iterations).To(BeNumerically("<=", len(det.Volumes())+2))
			}
		})

		It("crosses the portals in order", func() {
			tracer := actor.NewTracer(true)
			p := track.New(mgl64.Vec3{}, mgl64.Vec3{0, 1, 0}, 0, 0)
			ok, _ := prop.Propagate(p, actor.NewChain(tracer), stepper.Constraints{})
			Expect(ok).To(BeTrue())

			paths := make([]float64, 0, len(tracer.Hits))
			for _, h := range tracer.Hits {
				paths = append(paths, h.PathLength)
			}
			Expect(paths).To(HaveLen(4))
			for i, s := range paths {
				Expect(s).To(BeNumerically("~", 10*float64(i+1), 1e-9))
			}
		})
	})

	Describe("charged tracks in a 2 T solenoid", func() {
		var (
			det     *detector.Detector
			b       field.Constant
			prop    *Propagator
			shooter *gun.Gun
		)

		BeforeEach(func() {
			det = barrel()
			shooter = gun.New(det, nil)
			b = field.NewConstant(mgl64.Vec3{0, 0, 2})
			rk := stepper.NewRungeKutta(b, stepper.DefaultConfig())
			nav := navigation.New(det, nil, navigation.DefaultConfig())
			prop = New(rk, nav, DefaultConfig(), WithPolicy(stepper.ApproachPolicy{Window: 1, Factor: 0.5}))
		})

		for _, momentum := range []float64{10 * units.GeV, 1 * units.GeV} {
			It(fmt.Sprintf("lands on the helix at every surface at %g GeV", momentum), func() {
				gen := track.Generator{ThetaSteps: 5, PhiSteps: 8, Momentum: momentum, Charge: -1}
				var constraints stepper.Constraints
				constraints.Set(stepper.Accuracy, 30*units.Centimeter)

				for p := range gen.All() {
					tracer := actor.NewTracer(true)
					steps := &actor.StepRecorder{}
					chain := actor.NewChain(actor.PathLimit{Limit: 60 * units.Centimeter}, tracer, steps)

					ok, state := prop.Propagate(p, chain, constraints)
					if !ok {
						Expect(state.Err).To(MatchError(ContainSubstring(actor.ReasonPathLimit)), "%s", p)
					}
					Expect(tracer.Hits).NotTo(BeEmpty())

					truth := reachedBy(shooter.Shoot(track.NewHelix(p, b.B)), state)
					Expect(gun.Compare(truth, tracer.Hits, epsilon)).To(BeEmpty(), "%s", p)

					helix := track.NewHelix(p, b.B)
					last := 0.0
					for _, h := range tracer.Hits {
						Expect(h.PathLength).To(BeNumerically(">", last))
						last = h.PathLength

						Expect(h.Position.Sub(helix.PositionAt(h.PathLength)).Len()).To(BeNumerically("<", epsilon))
						Expect(distanceToSurface(det.Surface(h.Surface), h.Position)).To(BeNumerically("<", epsilon))
					}

					prev := 0.0
					for _, st := range steps.Steps {
						Expect(st.Length).To(BeNumerically(">", 0))
						Expect(st.PathLength).To(BeNumerically(">", prev))
						prev = st.PathLength
						Expect(st.Length).To(BeNumerically("<=", st.Limit))
						Expect(st.Length).To(BeNumerically("<=", 30*units.Centimeter))
					}
				}
			})

			It(fmt.Sprintf("crosses the endcap discs at %g GeV", momentum), func() {
				for _, theta := range []float64{0.01, 0.13, 0.16, 0.19} {
					for k := range 8 {
						phi := 2 * math.Pi * float64(k) / 8
						dir := mgl64.Vec3{math.Sin(theta) * math.Cos(phi), math.Sin(theta) * math.Sin(phi), math.Cos(theta)}
						p := track.New(mgl64.Vec3{}, dir.Mul(momentum), -1, 0)

						tracer := actor.NewTracer(true)
						ok, state := prop.Propagate(p, actor.NewChain(tracer), stepper.Constraints{})
						Expect(ok).To(BeTrue(), "%s: %v", p, state.Err)

						discs := 0
						for _, h := range tracer.Hits {
							sf := det.Surface(h.Surface)
							if !sf.IsPortal() && sf.Mask.Kind.IsPlanar() && math.Abs(h.Position[2]) > 460 {
								discs++
							}
							Expect(distanceToSurface(sf, h.Position)).To(BeNumerically("<", epsilon))
						}
						Expect(discs).To(BeNumerically(">=", 1), "%s", p)

						truth := shooter.Shoot(track.NewHelix(p, b.B))
						Expect(gun.Compare(truth, tracer.Hits, epsilon)).To(BeEmpty(), "%s", p)
					}
				}
			})
		}
	})
})

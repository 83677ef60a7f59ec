package experiment

import (
	"context"

	"github.com/san-kum/detprop/internal/actor"
	"github.com/san-kum/detprop/internal/gun"
	"github.com/san-kum/detprop/internal/track"
)

// Discrepancy lists the differences between the propagated crossings of one
// track and the analytic ones.
type Discrepancy struct {
	Track      int
	Start      track.Parameters
	Mismatches []gun.Mismatch
}

// Validate propagates every generator track without actors other than a
// tracer and compares the crossings with the particle gun. A track that
// fails without a crossing mismatch is reported with its error.
func (e *Experiment) Validate(ctx context.Context, eps float64) ([]Discrepancy, error) {
	b, constant := e.cfg.ConstantField()
	line := e.cfg.Stepper.Kind == "line"
	if !constant && !line {
		return nil, ErrNoGroundTruth
	}

	g := gun.New(e.det, nil)
	var out []Discrepancy
	i := 0
	for p := range e.cfg.Generator().All() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var truth []actor.Hit
		if line {
			truth = g.Shoot(track.RayFrom(p))
		} else {
			truth = g.Shoot(track.NewHelix(p, b))
		}

		tracer := actor.NewTracer(true)
		_, st := e.prop.Propagate(p, actor.NewChain(tracer), e.cfg.Constraints())
		mm := gun.Compare(truth, tracer.Hits, eps)
		if st.Err != nil && len(mm) == 0 {
			mm = append(mm, gun.Mismatch{Index: len(tracer.Hits), Reason: st.Err.Error()})
		}
		if len(mm) > 0 {
			out = append(out, Discrepancy{Track: i, Start: p, Mismatches: mm})
		}
		i++
	}
	return out, nil
}

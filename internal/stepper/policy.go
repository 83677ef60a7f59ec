package stepper

import "math"

// Policy adjusts the step proposal once the navigator has re-evaluated the
// track. remaining is the distance to the next surface, +Inf when there is
// none.
type Policy interface {
	Adjust(s *State, remaining float64)
}

// DefaultPolicy leaves the proposal to the stepper.
type DefaultPolicy struct{}

func (DefaultPolicy) Adjust(*State, float64) {}

// ApproachPolicy slows down towards a surface so that the straight-line
// distance estimate is refreshed a few times before the landing step. The
// proposal is capped at Factor times the remaining distance, but never
// below Window.
type ApproachPolicy struct {
	Window float64 `yaml:"window" validate:"gt=0"`
	Factor float64 `yaml:"factor" validate:"gt=0,lte=1"`
}

func (p ApproachPolicy) Adjust(s *State, remaining float64) {
	if math.IsInf(remaining, 0) || math.IsNaN(remaining) || remaining <= p.Window {
		return
	}
	limit := math.Max(p.Window, p.Factor*remaining)
	if s.StepSize > limit {
		s.StepSize = limit
	}
}

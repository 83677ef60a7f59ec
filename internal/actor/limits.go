package actor

import (
	"github.com/san-kum/detprop/internal/stepper"
)

const ReasonPathLimit = "path limit reached"

// pathLimitTolerance absorbs rounding in the accumulated path length.
const pathLimitTolerance = 1e-6

// PathLimit aborts once the track has travelled Limit and keeps the steps
// short enough not to run past it.
type PathLimit struct {
	Limit float64
}

func (p PathLimit) Act(s *State) {
	remaining := p.Limit - s.Stepping.Track.PathLength
	if remaining <= pathLimitTolerance {
		s.Abort(ReasonPathLimit)
		return
	}
	s.Stepping.Constraints.Tighten(stepper.Actor, remaining)
}

// StepCap bounds every step through the given constraint kind.
type StepCap struct {
	Kind  stepper.Kind
	Value float64
}

func (c StepCap) Act(s *State) {
	s.Stepping.Constraints.Tighten(c.Kind, c.Value)
}

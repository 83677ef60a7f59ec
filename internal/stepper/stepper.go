// Package stepper advances track parameters along their trajectory in a
// magnetic field, never further than the active step constraints allow.
package stepper

import (
	"errors"
	"math"

	"github.com/san-kum/detprop/internal/track"
	"github.com/san-kum/detprop/internal/units"
)

var (
	// ErrNonConvergent means the error estimate stayed above tolerance after
	// every allowed step reduction.
	ErrNonConvergent = errors.New("stepper: integration non-convergent")

	// ErrStepSize means the step limit was zero, negative or not finite.
	ErrStepSize = errors.New("stepper: invalid step size")
)

// Stepper is implemented by the Runge-Kutta and straight-line steppers. Step
// performs one accepted step and returns its length.
type Stepper interface {
	Step(s *State) (float64, error)
}

// State is the per-track stepping state.
type State struct {
	Track track.Parameters

	// StepSize is the proposal for the next step before constraints apply.
	StepSize    float64
	Constraints Constraints

	LastStep  float64
	LastLimit float64
	LastError float64

	Steps    int
	Rejected int
}

func NewState(p track.Parameters, stepSize float64) State {
	return State{Track: p, StepSize: stepSize}
}

// limit is the step length allowed by the proposal and the constraints.
func (s *State) limit() (float64, bool, error) {
	h := math.Abs(s.StepSize)
	clipped := false
	if c := s.Constraints.Min(); c < h {
		h, clipped = c, true
	}
	if h <= 0 || math.IsNaN(h) || math.IsInf(h, 0) {
		return 0, false, ErrStepSize
	}
	return h, clipped, nil
}

// advance moves the clock by the flight time over a step of length h.
func (s *State) advance(h, mass float64) {
	s.Track.PathLength += h
	beta := 1.0
	if s.Track.QOverP != 0 && mass > 0 {
		p := s.Track.Momentum()
		beta = p / math.Hypot(p, mass)
	}
	s.Track.Time += h / (beta * units.SpeedOfLight)
	s.LastStep = h
	s.Steps++
}

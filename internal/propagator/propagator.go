package propagator

import (
	"math"

	"github.com/rs/zerolog"

	"github.com/san-kum/detprop/internal/actor"
	"github.com/san-kum/detprop/internal/navigation"
	"github.com/san-kum/detprop/internal/stepper"
	"github.com/san-kum/detprop/internal/track"
	"github.com/san-kum/detprop/internal/units"
)

type Config struct {
	MaxIterations int `yaml:"max_iterations" validate:"gt=0"`
	// StepSize is the first step proposal handed to the stepper.
	StepSize float64 `yaml:"step_size" validate:"gt=0"`
	// LandingRetries bounds how often a step that crossed its target surface
	// is retaken with a shorter length.
	LandingRetries int `yaml:"landing_retries" validate:"gte=0"`
}

func DefaultConfig() Config {
	return Config{
		MaxIterations:  10000,
		StepSize:       5 * units.Centimeter,
		LandingRetries: 4,
	}
}

// State is everything one propagation mutates.
type State struct {
	Stepping   stepper.State
	Navigation navigation.State
	Actor      actor.State

	Success    bool
	Err        error
	Iterations int
}

type Propagator struct {
	stepper stepper.Stepper
	nav     *navigation.Navigator
	policy  stepper.Policy
	cfg     Config
	log     zerolog.Logger
}

type Option func(*Propagator)

func WithPolicy(p stepper.Policy) Option {
	return func(prop *Propagator) { prop.policy = p }
}

// WithLogger enables a debug event per finished propagation.
func WithLogger(l zerolog.Logger) Option {
	return func(prop *Propagator) { prop.log = l }
}

func New(st stepper.Stepper, nav *navigation.Navigator, cfg Config, opts ...Option) *Propagator {
	p := &Propagator{
		stepper: st,
		nav:     nav,
		policy:  stepper.DefaultPolicy{},
		cfg:     cfg,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Propagator) Navigator() *navigation.Navigator { return p.nav }

func (p *Propagator) Config() Config { return p.cfg }

// Propagate follows tr until it leaves the detector, an actor aborts or a
// failure occurs. constraints are the caller's step constraints (typically
// Accuracy or User); the Navigation and Actor kinds are managed here. A nil
// chain runs no actors.
func (p *Propagator) Propagate(tr track.Parameters, chain *actor.Chain, constraints stepper.Constraints) (bool, *State) {
	if chain == nil {
		chain = actor.NewChain()
	}
	s := &State{}
	s.Stepping = stepper.NewState(tr, p.cfg.StepSize)
	s.Stepping.Constraints = constraints
	s.Actor = actor.State{
		Detector:   p.nav.Detector(),
		Stepping:   &s.Stepping,
		Navigation: &s.Navigation,
	}

	err := p.run(s, chain)
	if err != nil {
		s.Err = &Error{
			Iteration:  s.Iterations,
			PathLength: s.Stepping.Track.PathLength,
			Position:   s.Stepping.Track.Pos,
			Volume:     s.Navigation.Volume(),
			Wrapped:    err,
		}
	}
	s.Success = err == nil

	p.log.Debug().
		Bool("success", s.Success).
		Int("iterations", s.Iterations).
		Int("rejected", s.Stepping.Rejected).
		Float64("path", s.Stepping.Track.PathLength).
		Err(s.Err).
		Msg("propagation finished")
	return s.Success, s
}

func (p *Propagator) run(s *State, chain *actor.Chain) error {
	if !s.Stepping.Track.IsValid() {
		return ErrInvalidTrack
	}
	if err := p.nav.Init(&s.Navigation, s.Stepping.Track); err != nil {
		return err
	}

	chain.Run(&s.Actor)
	if s.Actor.Aborted() {
		return aborted(s.Actor.Reason())
	}

	for {
		if s.Iterations >= p.cfg.MaxIterations {
			return ErrIterationBudget
		}

		dist, ok := p.nav.Target(&s.Navigation, s.Stepping.Track)
		if !ok {
			return nil
		}
		s.Stepping.Constraints.Set(stepper.Navigation, dist)

		if err := p.step(s); err != nil {
			return err
		}
		s.Iterations++

		p.nav.Update(&s.Navigation, s.Stepping.Track)
		if s.Navigation.Status() == navigation.Unreachable {
			return ErrOverstep
		}

		remaining := math.Inf(1)
		if rec, ok := s.Navigation.Next(); ok && s.Navigation.Status() == navigation.TowardsSurface {
			remaining = rec.Path
		}
		p.policy.Adjust(&s.Stepping, remaining)

		chain.Run(&s.Actor)
		if s.Actor.Aborted() {
			return aborted(s.Actor.Reason())
		}
	}
}

// step advances the track. The constraints bound the step by the straight
// distance to the target, which a curved track can cross before; such a
// step is retaken from its start, shortened by the distance it went past.
func (p *Propagator) step(s *State) error {
	start := s.Stepping
	h, err := p.stepper.Step(&s.Stepping)
	if err != nil {
		return err
	}

	for range p.cfg.LandingRetries {
		back, ok := p.nav.Overshoot(&s.Navigation, s.Stepping.Track)
		if !ok || h+back <= 0 {
			return nil
		}
		rejected := s.Stepping.Rejected
		s.Stepping = start
		s.Stepping.Rejected = rejected
		s.Stepping.Constraints.Set(stepper.Navigation, h+back)
		if h, err = p.stepper.Step(&s.Stepping); err != nil {
			return err
		}
	}
	return nil
}

package stepper

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/detprop/internal/field"
	"github.com/san-kum/detprop/internal/units"
)

type Config struct {
	Tolerance  float64 `yaml:"tolerance" validate:"gt=0"`
	MaxRetries int     `yaml:"max_retries" validate:"gte=0"`
	MaxStep    float64 `yaml:"max_step" validate:"gt=0"`
	// Mass of the particle hypothesis in GeV, used for the flight time only.
	Mass float64 `yaml:"mass" validate:"gte=0"`
}

func DefaultConfig() Config {
	return Config{
		Tolerance:  1e-4 * units.Millimeter,
		MaxRetries: 20,
		MaxStep:    10 * units.Meter,
		Mass:       105.6583755 * units.MeV,
	}
}

// step size adaptation
const (
	safety     = 0.9
	minScale   = 0.25
	maxScale   = 4.0
	errorOrder = 0.25
)

// RungeKutta integrates the equation of motion of a charged particle with a
// fourth order Runge-Kutta-Nystroem scheme. The embedded error estimate
// drives the step size. It holds no per-track data and is safe for
// concurrent use.
type RungeKutta struct {
	field field.Field
	cfg   Config
}

func NewRungeKutta(f field.Field, cfg Config) *RungeKutta {
	return &RungeKutta{field: f, cfg: cfg}
}

func (r *RungeKutta) Config() Config { return r.cfg }

func (r *RungeKutta) Step(s *State) (float64, error) {
	h, clipped, err := s.limit()
	if err != nil {
		return 0, err
	}
	s.LastLimit = h

	var pos, dir mgl64.Vec3
	var errEst float64
	for attempt := 0; ; attempt++ {
		pos, dir, errEst = r.evaluate(s, h)
		if errEst <= r.cfg.Tolerance {
			break
		}
		if attempt >= r.cfg.MaxRetries {
			s.LastError = errEst
			return 0, ErrNonConvergent
		}
		h *= 0.5
		clipped = false
		s.Rejected++
	}

	s.Track.Pos = pos
	s.Track.Dir = dir.Normalize()
	s.LastError = errEst
	s.advance(h, r.cfg.Mass)

	if !clipped {
		s.StepSize = math.Min(h*r.scale(errEst), r.cfg.MaxStep)
	}
	return h, nil
}

func (r *RungeKutta) scale(errEst float64) float64 {
	if errEst <= 0 {
		return maxScale
	}
	f := safety * math.Pow(r.cfg.Tolerance/errEst, errorOrder)
	return math.Max(minScale, math.Min(maxScale, f))
}

// evaluate performs one RKN4 step of length h without touching the state:
//
//	dT/ds = qop * (T x B(r)),  dr/ds = T
//
// The field is sampled at the start, the middle and the end of the step.
func (r *RungeKutta) evaluate(s *State, h float64) (mgl64.Vec3, mgl64.Vec3, float64) {
	qop := s.Track.QOverP
	r0, t0 := s.Track.Pos, s.Track.Dir

	b1 := r.field.ValueAt(r0)
	k1 := t0.Cross(b1).Mul(qop)

	mid := r0.Add(t0.Mul(h / 2)).Add(k1.Mul(h * h / 8))
	b2 := r.field.ValueAt(mid)
	k2 := t0.Add(k1.Mul(h / 2)).Cross(b2).Mul(qop)
	k3 := t0.Add(k2.Mul(h / 2)).Cross(b2).Mul(qop)

	end := r0.Add(t0.Mul(h)).Add(k3.Mul(h * h / 2))
	b4 := r.field.ValueAt(end)
	k4 := t0.Add(k3.Mul(h)).Cross(b4).Mul(qop)

	pos := r0.Add(t0.Mul(h)).Add(k1.Add(k2).Add(k3).Mul(h * h / 6))
	dir := t0.Add(k1.Add(k2.Mul(2)).Add(k3.Mul(2)).Add(k4).Mul(h / 6))

	errEst := h * h * k1.Sub(k2).Sub(k3).Add(k4).Len()
	return pos, dir, errEst
}

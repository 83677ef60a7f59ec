package metrics

import (
	"github.com/san-kum/detprop/internal/actor"
)

// MeanStep is the average accepted step length.
type MeanStep struct {
	name  string
	seen  int
	total float64
}

func NewMeanStep() *MeanStep {
	return &MeanStep{name: "mean_step"}
}

func (m *MeanStep) Name() string { return m.name }

func (m *MeanStep) Observe(s *actor.State) {
	if s.Stepping.Steps == m.seen {
		return
	}
	m.seen = s.Stepping.Steps
	m.total += s.Stepping.LastStep
}

func (m *MeanStep) Value() float64 {
	if m.seen == 0 {
		return 0
	}
	return m.total / float64(m.seen)
}

func (m *MeanStep) Reset() {
	m.seen = 0
	m.total = 0
}

// RejectionRate is the fraction of step attempts the error control threw
// away.
type RejectionRate struct {
	name     string
	steps    int
	rejected int
}

func NewRejectionRate() *RejectionRate {
	return &RejectionRate{name: "rejection_rate"}
}

func (r *RejectionRate) Name() string { return r.name }

func (r *RejectionRate) Observe(s *actor.State) {
	r.steps = s.Stepping.Steps
	r.rejected = s.Stepping.Rejected
}

func (r *RejectionRate) Value() float64 {
	attempts := r.steps + r.rejected
	if attempts == 0 {
		return 0
	}
	return float64(r.rejected) / float64(attempts)
}

func (r *RejectionRate) Reset() {
	r.steps = 0
	r.rejected = 0
}

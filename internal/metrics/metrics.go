// Package metrics measures propagation quality per track and exports run
// counters to prometheus.
package metrics

import (
	"github.com/san-kum/detprop/internal/actor"
)

// Metric accumulates one number over the steps of a track.
type Metric interface {
	Name() string
	Observe(s *actor.State)
	Value() float64
	Reset()
}

// Observer feeds every metric after each step.
type Observer []Metric

func (o Observer) Act(s *actor.State) {
	for _, m := range o {
		m.Observe(s)
	}
}

func (o Observer) Reset() {
	for _, m := range o {
		m.Reset()
	}
}

// Values maps metric names to their current value.
func (o Observer) Values() map[string]float64 {
	out := make(map[string]float64, len(o))
	for _, m := range o {
		out[m.Name()] = m.Value()
	}
	return out
}

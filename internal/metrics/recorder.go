package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/san-kum/detprop/internal/actor"
	"github.com/san-kum/detprop/internal/navigation"
	"github.com/san-kum/detprop/internal/propagator"
	"github.com/san-kum/detprop/internal/stepper"
)

// Outcome labels of detprop_tracks_total.
const (
	OutcomeExited          = "exited"
	OutcomeAborted         = "aborted"
	OutcomeOverstep        = "overstep"
	OutcomeIterationBudget = "iteration_budget"
	OutcomeNonConvergent   = "non_convergent"
	OutcomeNoVolume        = "no_volume"
	OutcomeInvalidTrack    = "invalid_track"
	OutcomeFailed          = "failed"
)

// Outcome classifies the result of one propagation.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeExited
	case errors.Is(err, propagator.ErrAborted):
		return OutcomeAborted
	case errors.Is(err, propagator.ErrOverstep):
		return OutcomeOverstep
	case errors.Is(err, propagator.ErrIterationBudget):
		return OutcomeIterationBudget
	case errors.Is(err, stepper.ErrNonConvergent):
		return OutcomeNonConvergent
	case errors.Is(err, navigation.ErrNoVolume):
		return OutcomeNoVolume
	case errors.Is(err, propagator.ErrInvalidTrack):
		return OutcomeInvalidTrack
	}
	return OutcomeFailed
}

// Recorder exports propagation counters. It is safe for concurrent use; the
// actor it hands out holds no per-track state.
type Recorder struct {
	tracks     *prometheus.CounterVec
	surfaces   *prometheus.CounterVec
	iterations prometheus.Histogram
	pathLength prometheus.Histogram
}

// NewRecorder registers the collectors with reg. A nil reg leaves them
// unregistered.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		tracks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "detprop_tracks_total",
			Help: "Propagated tracks by outcome",
		}, []string{"outcome"}),
		surfaces: f.NewCounterVec(prometheus.CounterOpts{
			Name: "detprop_surfaces_total",
			Help: "Surfaces reached by kind",
		}, []string{"kind"}),
		iterations: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "detprop_iterations",
			Help:    "Step loop iterations per track",
			Buckets: prometheus.ExponentialBuckets(1, 2, 14),
		}),
		pathLength: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "detprop_path_length_mm",
			Help:    "Path length per track in mm",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
	}
}

// Actor counts surface landings.
func (r *Recorder) Actor() actor.Actor {
	return actor.Func(func(s *actor.State) {
		switch {
		case s.Navigation.IsOnModule():
			r.surfaces.WithLabelValues("module").Inc()
		case s.Navigation.IsOnPortal():
			r.surfaces.WithLabelValues("portal").Inc()
		}
	})
}

func (r *Recorder) ObserveTrack(s *propagator.State) {
	r.tracks.WithLabelValues(Outcome(s.Err)).Inc()
	r.iterations.Observe(float64(s.Iterations))
	r.pathLength.Observe(s.Stepping.Track.PathLength)
}

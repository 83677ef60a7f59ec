// Package experiment runs a configured propagation over the tracks of a
// generator and collects traces, metrics and fingerprints. It is the only
// place where tracks are fanned out over goroutines.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/san-kum/detprop/internal/actor"
	"github.com/san-kum/detprop/internal/config"
	"github.com/san-kum/detprop/internal/detector"
	"github.com/san-kum/detprop/internal/gun"
	"github.com/san-kum/detprop/internal/metrics"
	"github.com/san-kum/detprop/internal/navigation"
	"github.com/san-kum/detprop/internal/propagator"
	"github.com/san-kum/detprop/internal/storage"
	"github.com/san-kum/detprop/internal/track"
)

// FingerprintQuantum is the position resolution of run fingerprints.
const FingerprintQuantum = 1e-3

var ErrNoGroundTruth = errors.New("experiment: ground truth needs a constant field")

type Experiment struct {
	cfg  *config.Config
	det  *detector.Detector
	prop *propagator.Propagator
	reg  *Registry
	rec  *metrics.Recorder
	log  zerolog.Logger
}

type Option func(*Experiment)

func WithRegistry(r *Registry) Option {
	return func(e *Experiment) { e.reg = r }
}

// WithRecorder exports prometheus counters for every track.
func WithRecorder(r *metrics.Recorder) Option {
	return func(e *Experiment) { e.rec = r }
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Experiment) { e.log = l }
}

// New validates cfg and builds the detector, field, stepper and propagator
// it describes.
func New(cfg *config.Config, opts ...Option) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Experiment{cfg: cfg, reg: NewRegistry(), log: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	for _, name := range cfg.Propagation.Actors {
		if !e.reg.Has(name) {
			return nil, fmt.Errorf("unknown actor: %s", name)
		}
	}

	det, err := cfg.BuildDetector()
	if err != nil {
		return nil, err
	}
	e.det = det

	nav := navigation.New(det, nil, cfg.Navigation)
	st := cfg.BuildStepper(cfg.BuildField())
	e.prop = propagator.New(st, nav, cfg.Propagation.Config,
		propagator.WithPolicy(cfg.BuildPolicy()),
		propagator.WithLogger(e.log))
	return e, nil
}

func (e *Experiment) Config() *config.Config { return e.cfg }

func (e *Experiment) Detector() *detector.Detector { return e.det }

func (e *Experiment) Propagator() *propagator.Propagator { return e.prop }

// chain builds the actors of one track: the path limit, the configured
// actors, then a tracer and the metrics observer unless already present.
func (e *Experiment) chain(start track.Parameters) *actor.Chain {
	env := Env{Config: e.cfg, Start: start, Log: e.log, Recorder: e.rec}

	names := []string{"path_limit"}
	for _, n := range e.cfg.Propagation.Actors {
		if !slices.Contains(names, n) {
			names = append(names, n)
		}
	}
	for _, n := range []string{"tracer", "metrics", "prometheus"} {
		if !slices.Contains(names, n) {
			names = append(names, n)
		}
	}

	c := actor.NewChain()
	for _, n := range names {
		a, err := e.reg.GetActor(n, env)
		if err != nil || a == nil {
			continue
		}
		c.Add(a)
	}
	return c
}

// Trace propagates one track and summarises it.
func (e *Experiment) Trace(idx int, start track.Parameters) (storage.Trace, map[string]float64) {
	c := e.chain(start)
	_, st := e.prop.Propagate(start, c, e.cfg.Constraints())
	if e.rec != nil {
		e.rec.ObserveTrack(st)
	}

	tr := storage.Trace{TrackSummary: storage.TrackSummary{
		Track:      idx,
		Outcome:    metrics.Outcome(st.Err),
		Iterations: st.Iterations,
		PathLength: st.Stepping.Track.PathLength,
	}}
	if st.Err != nil {
		tr.Error = st.Err.Error()
	}
	if tracer, ok := actor.Find[*actor.Tracer](c); ok {
		tr.Hits = tracer.Hits
	}
	var vals map[string]float64
	if obs, ok := actor.Find[metrics.Observer](c); ok {
		vals = obs.Values()
	}

	e.log.Debug().
		Int("track", idx).
		Str("outcome", tr.Outcome).
		Int("hits", len(tr.Hits)).
		Msg("track done")
	return tr, vals
}

// Run propagates the generator tracks one after the other.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	tracks := slices.Collect(e.cfg.Generator().All())
	traces := make([]storage.Trace, len(tracks))
	vals := make([]map[string]float64, len(tracks))

	for i, p := range tracks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		traces[i], vals[i] = e.Trace(i, p)
	}
	return e.summarize(traces, vals), nil
}

// Scan is Run with up to workers tracks in flight. The result does not
// depend on the number of workers.
func (e *Experiment) Scan(ctx context.Context, workers int) (*Result, error) {
	tracks := slices.Collect(e.cfg.Generator().All())
	traces := make([]storage.Trace, len(tracks))
	vals := make([]map[string]float64, len(tracks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for i, p := range tracks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			traces[i], vals[i] = e.Trace(i, p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return e.summarize(traces, vals), nil
}

func (e *Experiment) summarize(traces []storage.Trace, vals []map[string]float64) *Result {
	res := &Result{Traces: traces, Metrics: make(map[string]float64)}

	var all []actor.Hit
	counts := make(map[string]int)
	for i, tr := range traces {
		switch tr.Outcome {
		case metrics.OutcomeExited:
			res.Exited++
		case metrics.OutcomeAborted:
			res.Aborted++
		default:
			res.Failed++
		}
		all = append(all, tr.Hits...)
		for name, v := range vals[i] {
			res.Metrics[name] += v
			counts[name]++
		}
	}
	for name, n := range counts {
		res.Metrics[name] /= float64(n)
	}
	res.Fingerprint = gun.Fingerprint(all, FingerprintQuantum)

	e.log.Info().
		Int("tracks", len(traces)).
		Int("exited", res.Exited).
		Int("aborted", res.Aborted).
		Int("failed", res.Failed).
		Msg("run finished")
	return res
}

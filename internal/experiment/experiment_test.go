package experiment

import (
	"context"
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/detprop/internal/actor"
	"github.com/san-kum/detprop/internal/config"
	"github.com/san-kum/detprop/internal/detector"
	"github.com/san-kum/detprop/internal/gun"
	"github.com/san-kum/detprop/internal/metrics"
	"github.com/san-kum/detprop/internal/storage"
	"github.com/san-kum/detprop/internal/track"
)

func straight(t *testing.T, opts ...Option) *Experiment {
	t.Helper()
	e, err := New(config.GetPreset("straight"), opts...)
	require.NoError(t, err)
	return e
}

func TestNew_Invalid(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Track.Momentum = -1
	_, err := New(cfg)
	assert.ErrorIs(t, err, config.ErrInvalid)

	cfg = config.DefaultConfig()
	cfg.Propagation.Actors = []string{"tracer", "teleporter"}
	_, err = New(cfg)
	assert.ErrorContains(t, err, "teleporter")
}

func TestRun_Straight(t *testing.T) {
	e := straight(t)
	res, err := e.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, res.Traces, 100)
	assert.Equal(t, 100, res.Exited)
	assert.Zero(t, res.Failed)
	assert.Zero(t, res.Aborted)
	for i, tr := range res.Traces {
		assert.Equal(t, i, tr.Track)
		require.NotEmpty(t, tr.Hits)
		last := tr.Hits[len(tr.Hits)-1]
		assert.True(t, e.Detector().Surface(last.Surface).LeavesWorld(), "track %d", i)
	}
	assert.InDelta(t, 0, res.Metrics["helix_deviation"], 1e-9)
	assert.Zero(t, res.Metrics["rejection_rate"])
	assert.Greater(t, res.Metrics["mean_step"], 0.0)
	assert.Greater(t, res.Hits(), 100)
}

func TestScan_MatchesRun(t *testing.T) {
	e := straight(t)
	seq, err := e.Run(context.Background())
	require.NoError(t, err)

	for _, workers := range []int{0, 1, 4, 16} {
		par, err := e.Scan(context.Background(), workers)
		require.NoError(t, err)
		assert.Equal(t, seq.Fingerprint, par.Fingerprint, "workers=%d", workers)
		assert.Equal(t, seq.Traces, par.Traces, "workers=%d", workers)
	}
}

func TestScan_Cancelled(t *testing.T) {
	e := straight(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Scan(ctx, 4)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = e.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	_, err = e.Validate(ctx, 1e-3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_PathLimit(t *testing.T) {
	cfg := config.GetPreset("straight")
	cfg.Propagation.PathLimit = 15
	e, err := New(cfg)
	require.NoError(t, err)

	res, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100, res.Aborted)
	for _, tr := range res.Traces {
		assert.Equal(t, metrics.OutcomeAborted, tr.Outcome)
		assert.Contains(t, tr.Error, actor.ReasonPathLimit)
		assert.InDelta(t, 15, tr.PathLength, 1e-6)
	}
}

func TestChain(t *testing.T) {
	cfg := config.GetPreset("straight")
	cfg.Propagation.Actors = []string{"steps", "printer", "steps"}
	e, err := New(cfg)
	require.NoError(t, err)

	p := track.New(mgl64.Vec3{}, mgl64.Vec3{1, 0, 0}, 0, 0)
	c := e.chain(p)
	assert.Equal(t, 5, c.Len())
	_, ok := actor.Find[actor.PathLimit](c)
	assert.True(t, ok)
	_, ok = actor.Find[*actor.Tracer](c)
	assert.True(t, ok)

	cfg.Propagation.PathLimit = 0
	e, err = New(cfg, WithRecorder(metrics.NewRecorder(nil)))
	require.NoError(t, err)
	c = e.chain(p)
	assert.Equal(t, 5, c.Len())
	_, ok = actor.Find[actor.PathLimit](c)
	assert.False(t, ok)
}

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	e := straight(t, WithRecorder(metrics.NewRecorder(reg)))
	_, err := e.Scan(context.Background(), 4)
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	var exited float64
	for _, mf := range families {
		if mf.GetName() != "detprop_tracks_total" {
			continue
		}
		for _, m := range mf.GetMetric() {
			exited += m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 100.0, exited)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t,
		[]string{"path_limit", "tracer", "modules", "steps", "printer", "metrics", "prometheus"},
		r.ListActors())

	_, err := r.GetActor("nope", Env{})
	assert.Error(t, err)

	calls := 0
	r.Register("count", func(Env) actor.Actor {
		return actor.Func(func(*actor.State) { calls++ })
	})
	assert.Equal(t, "count", r.ListActors()[len(r.ListActors())-1])

	cfg := config.GetPreset("straight")
	cfg.Propagation.Actors = []string{"count"}
	e, err := New(cfg, WithRegistry(r))
	require.NoError(t, err)
	cfg.Track.ThetaSteps, cfg.Track.PhiSteps = 1, 1
	_, err = e.Run(context.Background())
	require.NoError(t, err)
	assert.Greater(t, calls, 1)
}

func TestValidate_Straight(t *testing.T) {
	e := straight(t)
	disc, err := e.Validate(context.Background(), 1e-6)
	require.NoError(t, err)
	assert.Empty(t, disc)
}

func TestValidate_Helix(t *testing.T) {
	for _, momentum := range []float64{10, 1} {
		cfg := config.DefaultConfig()
		cfg.Detector = config.DetectorConfig{
			Radii:      []float64{0, 50, 100, 150, 200},
			HalfLength: 500,
			Layers:     []float64{25, 75, 125, 175},
			Rings:      []detector.ModuleRing{},
		}
		cfg.Track.Momentum = momentum
		cfg.Track.ThetaSteps = 5
		cfg.Track.PhiSteps = 10
		e, err := New(cfg)
		require.NoError(t, err)

		disc, err := e.Validate(context.Background(), 1e-3)
		require.NoError(t, err)
		assert.Empty(t, disc, "p=%v GeV", momentum)
	}
}

func TestValidate_Barrel(t *testing.T) {
	for _, policy := range []string{"approach", "default"} {
		for _, momentum := range []float64{10, 1} {
			cfg := config.GetPreset("barrel")
			cfg.Stepper.Policy = policy
			cfg.Track.Momentum = momentum
			cfg.Track.ThetaSteps = 5
			cfg.Track.PhiSteps = 10
			e, err := New(cfg)
			require.NoError(t, err)

			disc, err := e.Validate(context.Background(), 1e-3)
			require.NoError(t, err)
			assert.Empty(t, disc, "%s policy, p=%v GeV", policy, momentum)
		}
	}
}

func TestValidate_NoGroundTruth(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Field = config.FieldConfig{Kind: "solenoid", Tesla: [3]float64{0, 0, 2}, Radius: 1000}
	e, err := New(cfg)
	require.NoError(t, err)
	_, err = e.Validate(context.Background(), 1e-3)
	assert.True(t, errors.Is(err, ErrNoGroundTruth))
}

func TestResult_Store(t *testing.T) {
	e := straight(t)
	res, err := e.Run(context.Background())
	require.NoError(t, err)

	st := storage.New(t.TempDir())
	id, err := st.Save(res.Metadata(e.Config()), res.Traces)
	require.NoError(t, err)

	meta, err := st.Load(id)
	require.NoError(t, err)
	assert.Equal(t, "straight", meta.Name)
	assert.Equal(t, res.Fingerprint, meta.Fingerprint)
	assert.Len(t, meta.Tracks, 100)

	traces, err := st.LoadTraces(id)
	require.NoError(t, err)
	var all []actor.Hit
	for _, tr := range traces {
		all = append(all, tr.Hits...)
	}
	assert.Equal(t, res.Fingerprint, gun.Fingerprint(all, FingerprintQuantum))
}

package navigation

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/detprop/internal/algebra"
	"github.com/san-kum/detprop/internal/detector"
	"github.com/san-kum/detprop/internal/intersect"
	"github.com/san-kum/detprop/internal/track"
)

func stack(t *testing.T, opts ...detector.StackOption) *detector.Detector {
	t.Helper()
	d, err := detector.NewCylinderStack([]float64{0, 10, 20, 30, 40}, 100, opts...)
	require.NoError(t, err)
	return d
}

func straight(dir mgl64.Vec3) track.Parameters {
	return track.New(mgl64.Vec3{}, dir, 0, 0)
}

func move(p track.Parameters, s float64) track.Parameters {
	p.Pos = p.Pos.Add(p.Dir.Mul(s))
	p.PathLength += s
	return p
}

type landing struct {
	status  Status
	surface int
	volume  int
	path    float64
}

// walk follows a straight track from surface to surface.
func walk(t *testing.T, nav *Navigator, p track.Parameters) []landing {
	t.Helper()
	var s State
	require.NoError(t, nav.Init(&s, p))

	var out []landing
	for i := 0; i < 100; i++ {
		d, ok := nav.Target(&s, p)
		if !ok {
			return out
		}
		p = move(p, d)
		nav.Update(&s, p)
		require.True(t, s.IsOnSurface(), "step %d ended at %s", i, s.Status())
		out = append(out, landing{s.Status(), s.Current(), s.Volume(), p.PathLength})
	}
	t.Fatal("walk did not terminate")
	return nil
}

func TestInit_OutsideWorld(t *testing.T) {
	nav := New(stack(t), nil, DefaultConfig())
	var s State
	p := track.New(mgl64.Vec3{0, 0, 500}, mgl64.Vec3{1, 0, 0}, 0, 0)
	assert.ErrorIs(t, nav.Init(&s, p), ErrNoVolume)
}

func TestInit_CandidatesValidAndSorted(t *testing.T) {
	d := stack(t, detector.WithCylinderLayers(5, 15, 25), detector.WithModuleRings(
		detector.ModuleRing{Radius: 12, Staves: 12, HalfLength: 90},
	))
	nav := New(d, nil, DefaultConfig())
	cfg := nav.Config()

	dirs := []mgl64.Vec3{{1, 0, 0}, {0, 1, 1}, {-1, 0.3, -0.2}, {0, 0, 1}}
	for _, dir := range dirs {
		var s State
		p := track.New(mgl64.Vec3{0.5, 0.5, 0}, dir, 0, 0)
		require.NoError(t, nav.Init(&s, p))
		cands := s.Candidates()
		require.NotEmpty(t, cands)
		for i, rec := range cands {
			assert.Equal(t, intersect.Inside, rec.Status)
			assert.GreaterOrEqual(t, rec.Path, cfg.OnSurfaceTolerance)
			if i > 0 {
				assert.LessOrEqual(t, cands[i-1].Path, rec.Path)
			}
		}
		next, ok := s.Next()
		require.True(t, ok)
		assert.Equal(t, cands[0], next)
	}
}

func TestTarget_Idempotent(t *testing.T) {
	nav := New(stack(t), nil, DefaultConfig())
	var s State
	p := straight(mgl64.Vec3{1, 1, 0})
	require.NoError(t, nav.Init(&s, p))

	d1, ok1 := nav.Target(&s, p)
	before := append([]intersect.Record(nil), s.Candidates()...)
	d2, ok2 := nav.Target(&s, p)

	assert.True(t, ok1)
	assert.True(t, ok2)
	assert.Equal(t, d1, d2)
	assert.Equal(t, before, s.Candidates())
	assert.Equal(t, 1, s.Scans())
}

func TestScan_TieBreakBySurfaceIndex(t *testing.T) {
	b := detector.NewBuilder("ties")
	b.AddVolume("world", detector.Bounds{RMax: 100, ZMin: -100, ZMax: 100})
	b.AddSurface(detector.Portal, detector.NewCylinder(100, -100, 100), algebra.Identity(), detector.InvalidVolume)
	plane := algebra.NewTransform(mgl64.Vec3{50, 0, 0}, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0})
	first, _ := b.AddSurface(detector.Module, detector.NewRectangle(10, 10), plane, 0)
	second, _ := b.AddSurface(detector.Module, detector.NewRectangle(5, 5), plane, 0)
	d, err := b.Build()
	require.NoError(t, err)

	nav := New(d, nil, DefaultConfig())
	var s State
	require.NoError(t, nav.Init(&s, straight(mgl64.Vec3{1, 0, 0})))
	cands := s.Candidates()
	require.Len(t, cands, 3)
	assert.Equal(t, first, cands[0].Surface)
	assert.Equal(t, second, cands[1].Surface)
	assert.Equal(t, 0, cands[2].Surface)
}

func TestWalk_PortalSequence(t *testing.T) {
	d := stack(t)
	nav := New(d, nil, DefaultConfig())

	got := walk(t, nav, straight(mgl64.Vec3{1, 0, 0}))
	require.Len(t, got, 4)
	wantVolumes := []int{1, 2, 3, detector.InvalidVolume}
	for i, l := range got {
		assert.Equal(t, OnPortal, l.status)
		assert.Equal(t, wantVolumes[i], l.volume)
		assert.InDelta(t, float64(10*(i+1)), l.path, 1e-9)
		assert.Equal(t, i, d.Surface(l.surface).Volume, "portal belongs to the volume being left")
	}
}

func TestWalk_PortalConsistency(t *testing.T) {
	d := stack(t, detector.WithCylinderLayers(5, 25))
	nav := New(d, nil, DefaultConfig())

	for _, dir := range []mgl64.Vec3{{1, 0, 0}, {1, 1, 0.5}, {0.2, -1, -0.3}} {
		p := straight(dir)
		var s State
		require.NoError(t, nav.Init(&s, p))
		for {
			dist, ok := nav.Target(&s, p)
			if !ok {
				break
			}
			p = move(p, dist)
			nav.Update(&s, p)
			if !s.IsOnPortal() || s.Exited() {
				continue
			}
			ahead := p.Pos.Add(p.Dir.Mul(1e-3))
			vol, found := d.VolumeByPos(ahead)
			require.True(t, found)
			assert.Equal(t, vol, s.Volume())
		}
		assert.True(t, s.Exited())
		assert.Equal(t, detector.InvalidVolume, s.Volume())
	}
}

func TestWalk_RayTerminationBound(t *testing.T) {
	d := stack(t)
	nav := New(d, nil, DefaultConfig())
	gen := track.Generator{ThetaSteps: 7, PhiSteps: 9, Momentum: 1}

	for p := range gen.All() {
		got := walk(t, nav, p)
		assert.LessOrEqual(t, len(got), len(d.Volumes())+2)
		assert.Equal(t, detector.InvalidVolume, got[len(got)-1].volume)
	}
}

func TestWalk_ModuleAdvanceWithoutRescan(t *testing.T) {
	d := stack(t, detector.WithCylinderLayers(5))
	nav := New(d, nil, DefaultConfig())
	p := straight(mgl64.Vec3{1, 0, 0})

	var s State
	require.NoError(t, nav.Init(&s, p))
	dist, ok := nav.Target(&s, p)
	require.True(t, ok)
	assert.InDelta(t, 5, dist, 1e-9)

	p = move(p, dist)
	nav.Update(&s, p)
	require.Equal(t, OnModule, s.Status())
	assert.Equal(t, detector.Module, d.Surface(s.Current()).Kind)

	dist, ok = nav.Target(&s, p)
	require.True(t, ok)
	assert.InDelta(t, 5, dist, 1e-9)
	assert.Equal(t, 1, s.Scans())
	assert.Equal(t, -1, s.Current())
}

func TestUpdate_Approach(t *testing.T) {
	nav := New(stack(t), nil, DefaultConfig())
	p := straight(mgl64.Vec3{1, 0, 0})
	var s State
	require.NoError(t, nav.Init(&s, p))

	_, ok := nav.Target(&s, p)
	require.True(t, ok)
	p = move(p, 4)
	nav.Update(&s, p)
	assert.Equal(t, TowardsSurface, s.Status())

	dist, ok := nav.Target(&s, p)
	require.True(t, ok)
	assert.InDelta(t, 6, dist, 1e-9)
}

func TestUpdate_Overstep(t *testing.T) {
	nav := New(stack(t), nil, DefaultConfig())
	p := straight(mgl64.Vec3{1, 0, 0})
	var s State
	require.NoError(t, nav.Init(&s, p))

	dist, _ := nav.Target(&s, p)
	p = move(p, dist+1)
	nav.Update(&s, p)
	assert.Equal(t, Unreachable, s.Status())
}

func TestUpdate_WithinOverstepTolerance(t *testing.T) {
	nav := New(stack(t), nil, DefaultConfig())
	p := straight(mgl64.Vec3{1, 0, 0})
	var s State
	require.NoError(t, nav.Init(&s, p))

	dist, _ := nav.Target(&s, p)
	p = move(p, dist+0.001)
	nav.Update(&s, p)
	assert.Equal(t, OnPortal, s.Status())
	assert.Equal(t, 1, s.Volume())
}

func TestUpdate_LostCandidateRescans(t *testing.T) {
	nav := New(stack(t), nil, DefaultConfig())
	p := straight(mgl64.Vec3{1, 0, 0})
	var s State
	require.NoError(t, nav.Init(&s, p))
	_, ok := nav.Target(&s, p)
	require.True(t, ok)

	// turn the track along the axis, the outer cylinder is now out of reach
	p.Dir = mgl64.Vec3{0, 0, 1}
	nav.Update(&s, p)
	assert.Equal(t, Unknown, s.Status())

	dist, ok := nav.Target(&s, p)
	require.True(t, ok)
	assert.InDelta(t, 100, dist, 1e-9)
	assert.Equal(t, 2, s.Scans())
}

func TestTarget_ExhaustedAfterExit(t *testing.T) {
	nav := New(stack(t), nil, DefaultConfig())
	p := track.New(mgl64.Vec3{35, 0, 0}, mgl64.Vec3{1, 0, 0}, 0, 0)
	var s State
	require.NoError(t, nav.Init(&s, p))
	assert.Equal(t, 3, s.Volume())

	dist, ok := nav.Target(&s, p)
	require.True(t, ok)
	p = move(p, dist)
	nav.Update(&s, p)
	require.True(t, s.Exited())

	_, ok = nav.Target(&s, p)
	assert.False(t, ok)
	assert.True(t, s.IsExhausted())
	_, ok = s.Next()
	assert.False(t, ok)
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "on_portal", OnPortal.String())
	assert.Equal(t, "status(42)", Status(42).String())
}

func TestUpdate_TurnedAwayIsLost(t *testing.T) {
	b := detector.NewBuilder("plane")
	b.AddVolume("world", detector.Bounds{RMax: 100, ZMin: -100, ZMax: 100})
	b.AddSurface(detector.Portal, detector.NewCylinder(100, -100, 100), algebra.Identity(), detector.InvalidVolume)
	plane := algebra.NewTransform(mgl64.Vec3{50, 0, 0}, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0})
	b.AddSurface(detector.Module, detector.NewRectangle(10, 10), plane, 0)
	d, err := b.Build()
	require.NoError(t, err)

	nav := New(d, nil, DefaultConfig())
	p := straight(mgl64.Vec3{1, 0, 0})
	var s State
	require.NoError(t, nav.Init(&s, p))
	dist, ok := nav.Target(&s, p)
	require.True(t, ok)
	require.InDelta(t, 50, dist, 1e-9)

	// the plane is now behind, but it was never crossed
	p.Dir = mgl64.Vec3{-1, 0, 0}
	nav.Update(&s, p)
	assert.Equal(t, Unknown, s.Status())
}

// plane builds one volume with a 10x10 module facing the x axis at x=50.
func plane(t *testing.T) *detector.Detector {
	t.Helper()
	b := detector.NewBuilder("plane")
	b.AddVolume("world", detector.Bounds{RMax: 100, ZMin: -100, ZMax: 100})
	b.AddSurface(detector.Portal, detector.NewCylinder(100, -100, 100), algebra.Identity(), detector.InvalidVolume)
	tf := algebra.NewTransform(mgl64.Vec3{50, 0, 0}, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0})
	b.AddSurface(detector.Module, detector.NewRectangle(10, 10), tf, 0)
	d, err := b.Build()
	require.NoError(t, err)
	return d
}

func TestOvershoot(t *testing.T) {
	nav := New(plane(t), nil, DefaultConfig())
	start := straight(mgl64.Vec3{1, 0, 0})

	tests := []struct {
		name string
		step float64
		ok   bool
		back float64
	}{
		{"short", 49, false, 0},
		{"on surface", 50 + 5e-5, false, 0},
		{"past", 50.5, true, -0.5},
		{"past within tolerance", 50.005, true, -0.005},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var s State
			require.NoError(t, nav.Init(&s, start))
			_, ok := nav.Target(&s, start)
			require.True(t, ok)

			back, ok := nav.Overshoot(&s, move(start, tt.step))
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.back, back, 1e-9)
		})
	}
}

func TestOvershoot_FurtherThanTravelled(t *testing.T) {
	nav := New(plane(t), nil, DefaultConfig())
	p := straight(mgl64.Vec3{1, 0, 0})
	var s State
	require.NoError(t, nav.Init(&s, p))
	_, ok := nav.Target(&s, p)
	require.True(t, ok)

	// the plane is 10 behind, but the track only moved 5
	p.Pos = mgl64.Vec3{60, 0, 0}
	p.PathLength = 5
	_, ok = nav.Overshoot(&s, p)
	assert.False(t, ok)
}

func TestInit_NearMissWithinScaledTolerance(t *testing.T) {
	d := plane(t)
	p := straight(mgl64.Vec3{50, 10.5, 0})

	var s State
	require.NoError(t, New(d, nil, DefaultConfig()).Init(&s, p))
	require.Len(t, s.Candidates(), 2)
	assert.Equal(t, 1, s.Candidates()[0].Surface)

	exact := DefaultConfig()
	exact.MaskToleranceScale = 0
	require.NoError(t, New(d, nil, exact).Init(&s, p))
	require.Len(t, s.Candidates(), 1)
	assert.Equal(t, 0, s.Candidates()[0].Surface)
}

func TestUpdate_TurnRescans(t *testing.T) {
	nav := New(stack(t), nil, DefaultConfig())

	tests := []struct {
		name   string
		angle  float64
		status Status
		scans  int
	}{
		{"small turn", 0.05, TowardsSurface, 1},
		{"large turn", 0.2, Unknown, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := straight(mgl64.Vec3{1, 0, 0})
			var s State
			require.NoError(t, nav.Init(&s, p))
			_, ok := nav.Target(&s, p)
			require.True(t, ok)

			p = move(p, 2)
			sin, cos := math.Sincos(tt.angle)
			p.Dir = mgl64.Vec3{cos, sin, 0}
			nav.Update(&s, p)
			assert.Equal(t, tt.status, s.Status())

			_, ok = nav.Target(&s, p)
			require.True(t, ok)
			assert.Equal(t, tt.scans, s.Scans())
		})
	}
}

// Package navigation decides which surface a track reaches next. It keeps a
// sorted cache of the reachable surfaces in the current volume, hands the
// distance of the closest one to the stepper as a step constraint and
// re-evaluates only that candidate after each step.
package navigation

import (
	"cmp"
	"errors"
	"fmt"
	"math"
	"slices"

	"github.com/san-kum/detprop/internal/detector"
	"github.com/san-kum/detprop/internal/intersect"
	"github.com/san-kum/detprop/internal/track"
	"github.com/san-kum/detprop/internal/units"
)

var ErrNoVolume = errors.New("navigation: position outside every volume")

type Config struct {
	// OnSurfaceTolerance is the distance below which a track counts as
	// sitting on its target surface.
	OnSurfaceTolerance float64 `yaml:"on_surface_tolerance" validate:"gt=0"`
	// OverstepTolerance is the (negative) distance a track may have passed
	// its target before navigation fails.
	OverstepTolerance float64 `yaml:"overstep_tolerance" validate:"lt=0"`
	// Candidate masks are widened by MaskToleranceScale times their
	// distance along the tangent, up to MaxMaskTolerance.
	MaskToleranceScale float64 `yaml:"mask_tolerance_scale" validate:"gte=0"`
	MaxMaskTolerance   float64 `yaml:"max_mask_tolerance" validate:"gte=0"`
	// MaxTurn is the angle in radians the track may turn before the
	// volume is scanned again.
	MaxTurn float64 `yaml:"max_turn" validate:"gt=0"`
}

func DefaultConfig() Config {
	return Config{
		OnSurfaceTolerance: 1e-4 * units.Millimeter,
		OverstepTolerance:  -7 * units.Micrometer,
		MaskToleranceScale: 5e-2,
		MaxMaskTolerance:   3 * units.Millimeter,
		MaxTurn:            0.1,
	}
}

// Navigator is read-only after construction and can be shared between
// goroutines; all mutable data lives in State.
type Navigator struct {
	det     *detector.Detector
	kernel  *intersect.Kernel
	cfg     Config
	cosTurn float64
}

func New(det *detector.Detector, kernel *intersect.Kernel, cfg Config) *Navigator {
	if kernel == nil {
		kernel = intersect.NewKernel()
		kernel.MaskToleranceScale = cfg.MaskToleranceScale
		kernel.MaxMaskTolerance = cfg.MaxMaskTolerance
	}
	n := &Navigator{det: det, kernel: kernel, cfg: cfg, cosTurn: math.Inf(-1)}
	if cfg.MaxTurn > 0 {
		n.cosTurn = math.Cos(cfg.MaxTurn)
	}
	return n
}

func (n *Navigator) Detector() *detector.Detector { return n.det }

func (n *Navigator) Config() Config { return n.cfg }

// Init locates the track and builds the candidate cache of its volume.
func (n *Navigator) Init(s *State, p track.Parameters) error {
	vol, ok := n.det.VolumeByPos(p.Pos)
	if !ok {
		s.reset(detector.InvalidVolume)
		s.status = Exhausted
		return fmt.Errorf("%w: (%.4f, %.4f, %.4f)", ErrNoVolume, p.Pos[0], p.Pos[1], p.Pos[2])
	}
	s.reset(vol)
	n.scan(s, p)
	return nil
}

// Target returns the distance to the selected candidate, rebuilding or
// refreshing the cache first if the last update invalidated it. ok is false
// once no surface is left to reach.
func (n *Navigator) Target(s *State, p track.Parameters) (float64, bool) {
	if s.exited {
		s.status = Exhausted
		return 0, false
	}

	switch {
	case s.stale || s.status == Unknown:
		n.scan(s, p)
	case s.refresh:
		n.refreshRemaining(s, p)
	}

	rec, ok := s.Next()
	if !ok {
		s.status = Exhausted
		return 0, false
	}
	s.status = TowardsSurface
	s.current = -1
	return rec.Path, true
}

// Update re-evaluates the selected candidate against the track after a
// step and moves the state machine accordingly.
func (n *Navigator) Update(s *State, p track.Parameters) {
	cand, ok := s.Next()
	if !ok || s.exited {
		return
	}
	sf := n.det.Surface(cand.Surface)
	ray := track.RayFrom(p)
	travelled := p.PathLength - s.evaluatedAt
	s.evaluatedAt = p.PathLength
	s.current = -1

	rec := n.kernel.Intersect(ray, sf, n.cfg.OverstepTolerance)
	switch {
	case rec.Status == intersect.Missed:
		if n.overstepped(ray, sf, travelled) {
			s.status = Unreachable
			return
		}
		s.status = Unknown
	case rec.Path <= n.cfg.OnSurfaceTolerance:
		n.land(s, sf, rec)
	case rec.Status == intersect.Outside:
		// the track bent away from the mask
		s.status = Unknown
	case p.Dir.Dot(s.scanDir) < n.cosTurn:
		// surfaces left behind or never seen along the old tangent may be
		// ahead again
		s.status = Unknown
	default:
		s.candidates[s.next] = rec
		s.status = TowardsSurface
	}
}

// Overshoot returns the signed distance back to the selected candidate when
// the last step carried the track across it, within its mask, by more than
// OnSurfaceTolerance. The step must not have travelled further than that
// since the candidate was last evaluated. Retaking the step shortened by the
// returned distance lands the track on the surface.
func (n *Navigator) Overshoot(s *State, p track.Parameters) (float64, bool) {
	cand, ok := s.Next()
	if !ok || s.exited || s.status != TowardsSurface {
		return 0, false
	}
	travelled := p.PathLength - s.evaluatedAt
	if travelled <= 0 {
		return 0, false
	}

	sf := n.det.Surface(cand.Surface)
	rec := n.kernel.Intersect(track.RayFrom(p), sf, -(travelled + n.cfg.OnSurfaceTolerance))
	if rec.Status != intersect.Inside || rec.Path >= -n.cfg.OnSurfaceTolerance {
		return 0, false
	}
	return rec.Path, true
}

// overstepped reports whether the surface now lies behind the track, closer
// than the distance travelled since it was last evaluated.
func (n *Navigator) overstepped(ray track.Ray, sf *detector.Surface, travelled float64) bool {
	back := n.kernel.Intersect(ray, sf, math.Inf(-1))
	return back.Status == intersect.Inside && -back.Path <= travelled+n.cfg.OnSurfaceTolerance
}

func (n *Navigator) land(s *State, sf *detector.Surface, rec intersect.Record) {
	s.next++
	if rec.Status != intersect.Inside {
		s.status = TowardsSurface
		s.refresh = true
		return
	}

	s.current = sf.Index
	if !sf.IsPortal() {
		s.status = OnModule
		s.refresh = true
		return
	}

	s.status = OnPortal
	s.volume = sf.Link
	s.stale = true
	if sf.LeavesWorld() {
		s.exited = true
	}
}

// scan intersects every surface of the current volume with the straight
// line through the track and keeps the reachable ones, closest first.
func (n *Navigator) scan(s *State, p track.Parameters) {
	s.candidates = s.candidates[:0]
	s.next = 0
	s.stale = false
	s.refresh = false
	s.evaluatedAt = p.PathLength
	s.scanDir = p.Dir
	s.scans++

	ray := track.RayFrom(p)
	surfaces := n.det.SurfacesOf(s.volume)
	for i := range surfaces {
		rec := n.kernel.Intersect(ray, &surfaces[i], n.cfg.OnSurfaceTolerance)
		if rec.Status == intersect.Inside {
			s.candidates = append(s.candidates, rec)
		}
	}
	sortCandidates(s.candidates)

	s.status = TowardsSurface
	if len(s.candidates) == 0 {
		s.status = Exhausted
	}
}

// refreshRemaining re-intersects the candidates left after a landing from
// the new track position, falling back to a full scan when none survives.
func (n *Navigator) refreshRemaining(s *State, p track.Parameters) {
	s.refresh = false
	s.evaluatedAt = p.PathLength
	ray := track.RayFrom(p)

	kept := s.candidates[:0]
	for _, old := range s.candidates[s.next:] {
		rec := n.kernel.Intersect(ray, n.det.Surface(old.Surface), n.cfg.OnSurfaceTolerance)
		if rec.Status == intersect.Inside {
			kept = append(kept, rec)
		}
	}
	s.candidates = kept
	s.next = 0
	if len(kept) == 0 {
		n.scan(s, p)
		return
	}
	sortCandidates(s.candidates)
}

func sortCandidates(c []intersect.Record) {
	slices.SortStableFunc(c, func(a, b intersect.Record) int {
		if d := cmp.Compare(a.Path, b.Path); d != 0 {
			return d
		}
		return cmp.Compare(a.Surface, b.Surface)
	})
}

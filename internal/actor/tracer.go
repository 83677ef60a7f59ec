package actor

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
)

// Hit is a surface crossing.
type Hit struct {
	Surface    int        `json:"surface"`
	Volume     int        `json:"volume"`
	Portal     bool       `json:"portal"`
	Position   mgl64.Vec3 `json:"position"`
	Direction  mgl64.Vec3 `json:"direction"`
	Local      mgl64.Vec2 `json:"local"`
	PathLength float64    `json:"path_length"`
	Time       float64    `json:"time"`
}

func (h Hit) String() string {
	kind := "module"
	if h.Portal {
		kind = "portal"
	}
	return fmt.Sprintf("%s %d (volume %d) at s=%.4f pos=(%.4f, %.4f, %.4f)",
		kind, h.Surface, h.Volume, h.PathLength, h.Position[0], h.Position[1], h.Position[2])
}

// Tracer records every surface the track lands on.
type Tracer struct {
	// Portals also records portal crossings; modules are always recorded.
	Portals bool
	Hits    []Hit
}

func NewTracer(portals bool) *Tracer {
	return &Tracer{Portals: portals}
}

func (t *Tracer) Act(s *State) {
	nav := s.Navigation
	if !nav.IsOnSurface() || (nav.IsOnPortal() && !t.Portals) {
		return
	}
	p := s.Stepping.Track
	hit := Hit{
		Surface:    nav.Current(),
		Volume:     -1,
		Portal:     nav.IsOnPortal(),
		Position:   p.Pos,
		Direction:  p.Dir,
		PathLength: p.PathLength,
		Time:       p.Time,
	}
	if s.Detector != nil {
		sf := s.Detector.Surface(hit.Surface)
		hit.Volume = sf.Volume
		hit.Local = sf.Mask.Coordinates(sf.Transform.PointToLocal(p.Pos))
	}
	t.Hits = append(t.Hits, hit)
}

func (t *Tracer) Reset() { t.Hits = t.Hits[:0] }

// Step is one accepted step as seen by the actor chain.
type Step struct {
	Length     float64 `json:"length"`
	Limit      float64 `json:"limit"`
	PathLength float64 `json:"path_length"`
	Error      float64 `json:"error"`
}

// StepRecorder keeps the length and the limit in force of every step.
type StepRecorder struct {
	Steps []Step
}

func (r *StepRecorder) Act(s *State) {
	st := s.Stepping
	if st.Steps <= len(r.Steps) {
		return
	}
	r.Steps = append(r.Steps, Step{
		Length:     st.LastStep,
		Limit:      st.LastLimit,
		PathLength: st.Track.PathLength,
		Error:      st.LastError,
	})
}

// Printer logs the state after each step at debug level.
type Printer struct {
	Log *zerolog.Logger
}

func (p Printer) Act(s *State) {
	if p.Log == nil {
		return
	}
	st, nav := s.Stepping, s.Navigation
	ev := p.Log.Debug().
		Int("step", st.Steps).
		Float64("path", st.Track.PathLength).
		Float64("step_size", st.LastStep).
		Str("constraints", st.Constraints.String()).
		Int("volume", nav.Volume()).
		Stringer("status", nav.Status())
	if nav.IsOnSurface() {
		ev = ev.Int("surface", nav.Current())
	}
	ev.Msg("step")
}

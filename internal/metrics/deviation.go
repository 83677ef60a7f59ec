package metrics

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/detprop/internal/actor"
	"github.com/san-kum/detprop/internal/track"
)

// HelixDeviation is the largest distance between the propagated position and
// the analytic helix at the same path length. It is only meaningful in a
// constant field.
type HelixDeviation struct {
	name    string
	helix   track.Helix
	start   float64
	max     float64
	samples int
}

func NewHelixDeviation(start track.Parameters, b mgl64.Vec3) *HelixDeviation {
	return &HelixDeviation{
		name:  "helix_deviation",
		helix: track.NewHelix(start, b),
		start: start.PathLength,
	}
}

func (h *HelixDeviation) Name() string { return h.name }

func (h *HelixDeviation) Observe(s *actor.State) {
	p := s.Stepping.Track
	want := h.helix.PositionAt(p.PathLength - h.start)
	if d := p.Pos.Sub(want).Len(); d > h.max {
		h.max = d
	}
	h.samples++
}

func (h *HelixDeviation) Value() float64 { return h.max }

func (h *HelixDeviation) Reset() {
	h.max = 0
	h.samples = 0
}

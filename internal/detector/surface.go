package detector

import (
	"fmt"

	"github.com/san-kum/detprop/internal/algebra"
)

// InvalidVolume marks a portal that leaves the world.
const InvalidVolume = -1

type SurfaceKind uint8

const (
	// Module is a sensitive or passive surface inside a volume.
	Module SurfaceKind = iota
	// Portal is a volume boundary.
	Portal
)

func (k SurfaceKind) String() string {
	if k == Portal {
		return "portal"
	}
	return "module"
}

// Surface is immutable once the detector is built.
type Surface struct {
	Index     int
	Kind      SurfaceKind
	Volume    int
	Link      int
	Mask      Mask
	Transform algebra.Transform
}

func (s *Surface) IsPortal() bool { return s.Kind == Portal }

// LeavesWorld reports whether crossing the surface exits the detector.
func (s *Surface) LeavesWorld() bool { return s.Kind == Portal && s.Link == InvalidVolume }

func (s *Surface) String() string {
	return fmt.Sprintf("%s %d (volume %d, %s, link %d)", s.Kind, s.Index, s.Volume, s.Mask.Kind, s.Link)
}

package intersect

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

type Status uint8

const (
	// Missed means the trajectory never reaches the surface.
	Missed Status = iota
	// Outside means the surface is reached outside its mask.
	Outside
	// Inside means the surface is reached within its mask.
	Inside
)

func (s Status) String() string {
	switch s {
	case Missed:
		return "missed"
	case Outside:
		return "outside"
	case Inside:
		return "inside"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// Record is the result of intersecting one trajectory with one surface.
type Record struct {
	Status   Status
	Path     float64
	Local    mgl64.Vec2
	Position mgl64.Vec3
	Surface  int
}

func (r Record) Valid() bool { return r.Status == Inside }

func (r Record) String() string {
	return fmt.Sprintf("surface %d: %s at s=%.6g local=(%.4g, %.4g)", r.Surface, r.Status, r.Path, r.Local[0], r.Local[1])
}

// Package detector holds the immutable geometry the navigator walks: volumes
// with contiguous, ordered surface ranges, each surface bound to a mask and
// a placement.
package detector

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/detprop/internal/algebra"
)

var (
	ErrNoVolume    = errors.New("detector: no open volume to add surfaces to")
	ErrInvalidLink = errors.New("detector: portal links to unknown volume")
	ErrEmpty       = errors.New("detector: no volumes")
)

// Detector is read-only after Build and safe for concurrent use.
type Detector struct {
	name     string
	volumes  []Volume
	surfaces []Surface
}

func (d *Detector) Name() string { return d.name }

func (d *Detector) Volumes() []Volume { return d.volumes }

func (d *Detector) Volume(i int) *Volume { return &d.volumes[i] }

// SurfacesOf returns the ordered surfaces of volume v as a view into the
// detector storage.
func (d *Detector) SurfacesOf(v int) []Surface {
	r := d.volumes[v].Surfaces
	return d.surfaces[r.Begin:r.End]
}

func (d *Detector) Surface(i int) *Surface { return &d.surfaces[i] }

func (d *Detector) NumSurfaces() int { return len(d.surfaces) }

// VolumeByPos locates the volume containing p.
func (d *Detector) VolumeByPos(p mgl64.Vec3) (int, bool) {
	for i := range d.volumes {
		if d.volumes[i].Bounds.Contains(p) {
			return i, true
		}
	}
	return InvalidVolume, false
}

// Builder assembles a detector. Surfaces are always attached to the most
// recently added volume, which keeps each volume's surfaces contiguous.
type Builder struct {
	name     string
	volumes  []Volume
	surfaces []Surface
}

func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

func (b *Builder) AddVolume(name string, bounds Bounds) int {
	idx := len(b.volumes)
	b.volumes = append(b.volumes, Volume{
		Index:    idx,
		Name:     name,
		Bounds:   bounds,
		Surfaces: SurfaceRange{Begin: len(b.surfaces), End: len(b.surfaces)},
	})
	return idx
}

// AddSurface attaches a surface to the current volume. For modules the link
// is set to the mother volume.
func (b *Builder) AddSurface(kind SurfaceKind, mask Mask, tf algebra.Transform, link int) (int, error) {
	if len(b.volumes) == 0 {
		return 0, ErrNoVolume
	}
	v := &b.volumes[len(b.volumes)-1]
	if kind == Module {
		link = v.Index
	}
	idx := len(b.surfaces)
	b.surfaces = append(b.surfaces, Surface{
		Index:     idx,
		Kind:      kind,
		Volume:    v.Index,
		Link:      link,
		Mask:      mask,
		Transform: tf,
	})
	v.Surfaces.End = len(b.surfaces)
	return idx, nil
}

func (b *Builder) Build() (*Detector, error) {
	if len(b.volumes) == 0 {
		return nil, ErrEmpty
	}
	for i := range b.surfaces {
		sf := &b.surfaces[i]
		if sf.Link != InvalidVolume && (sf.Link < 0 || sf.Link >= len(b.volumes)) {
			return nil, fmt.Errorf("%w: surface %d -> %d", ErrInvalidLink, sf.Index, sf.Link)
		}
	}
	return &Detector{
		name:     b.name,
		volumes:  b.volumes,
		surfaces: b.surfaces,
	}, nil
}

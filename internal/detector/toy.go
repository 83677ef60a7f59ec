package detector

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/detprop/internal/algebra"
)

var ErrStackBounds = errors.New("detector: invalid stack bounds")

const PetalStagger = 2.0

// ModuleRing is a barrel of planar rectangular staves at a fixed radius.
type ModuleRing struct {
	Radius     float64 `yaml:"radius" validate:"gt=0"`
	Staves     int     `yaml:"staves" validate:"gte=3"`
	HalfLength float64 `yaml:"half_length" validate:"gt=0"`
}

// EndcapDisc is a pair of module discs at +Z and -Z. With Petals set the
// disc is tiled with overlapping trapezoids, every second one moved
// PetalStagger further out in z; otherwise it is one ring module.
type EndcapDisc struct {
	Z      float64 `yaml:"z" validate:"gt=0"`
	RMin   float64 `yaml:"r_min" validate:"gte=0"`
	RMax   float64 `yaml:"r_max" validate:"gtfield=RMin"`
	Petals int     `yaml:"petals" validate:"eq=0|gte=3"`
}

type stackConfig struct {
	name   string
	layers []float64
	rings  []ModuleRing
	discs  []EndcapDisc
}

type StackOption func(*stackConfig)

func WithName(name string) StackOption {
	return func(c *stackConfig) { c.name = name }
}

// WithCylinderLayers places full cylinder modules at the given radii.
func WithCylinderLayers(radii ...float64) StackOption {
	return func(c *stackConfig) { c.layers = append(c.layers, radii...) }
}

func WithModuleRings(rings ...ModuleRing) StackOption {
	return func(c *stackConfig) { c.rings = append(c.rings, rings...) }
}

func WithEndcapDiscs(discs ...EndcapDisc) StackOption {
	return func(c *stackConfig) { c.discs = append(c.discs, discs...) }
}

// NewCylinderStack builds concentric cylindrical volumes around the z axis.
// Volume i spans [radii[i], radii[i+1]) in r and [-halfZ, halfZ) in z. Every
// volume owns its inner cylinder portal (unless it starts on the axis), its
// outer cylinder portal and two disc portals closing it in z. Only the outer
// cylinder of a volume links onward; everything else leaves the world or
// links back inward.
func NewCylinderStack(radii []float64, halfZ float64, opts ...StackOption) (*Detector, error) {
	cfg := stackConfig{name: "cylinder-stack"}
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := checkStack(radii, halfZ); err != nil {
		return nil, err
	}

	nVol := len(radii) - 1
	layers := make([][]float64, nVol)
	rings := make([][]ModuleRing, nVol)
	discs := make([][]EndcapDisc, nVol)
	for _, r := range cfg.layers {
		v, err := volumeForRadius(radii, r)
		if err != nil {
			return nil, err
		}
		layers[v] = append(layers[v], r)
	}
	for _, ring := range cfg.rings {
		if ring.Staves < 3 || ring.HalfLength <= 0 {
			return nil, fmt.Errorf("%w: ring at %g needs >= 3 staves and a positive half length", ErrStackBounds, ring.Radius)
		}
		v, err := volumeForRadius(radii, ring.Radius)
		if err != nil {
			return nil, err
		}
		rings[v] = append(rings[v], ring)
	}
	for _, disc := range cfg.discs {
		v, err := volumeForDisc(radii, halfZ, disc)
		if err != nil {
			return nil, err
		}
		discs[v] = append(discs[v], disc)
	}

	b := NewBuilder(cfg.name)
	for v := 0; v < nVol; v++ {
		rMin, rMax := radii[v], radii[v+1]
		b.AddVolume(fmt.Sprintf("volume_%d", v), Bounds{RMin: rMin, RMax: rMax, ZMin: -halfZ, ZMax: halfZ})

		if rMin > 0 {
			b.AddSurface(Portal, NewCylinder(rMin, -halfZ, halfZ), algebra.Identity(), v-1)
		}
		next := v + 1
		if next == nVol {
			next = InvalidVolume
		}
		b.AddSurface(Portal, NewCylinder(rMax, -halfZ, halfZ), algebra.Identity(), next)
		for _, z := range []float64{-halfZ, halfZ} {
			b.AddSurface(Portal, NewRing(rMin, rMax), algebra.Translation(mgl64.Vec3{0, 0, z}), InvalidVolume)
		}

		for _, r := range layers[v] {
			b.AddSurface(Module, NewCylinder(r, -halfZ, halfZ), algebra.Identity(), v)
		}
		for _, ring := range rings[v] {
			addStaves(b, ring)
		}
		for _, disc := range discs[v] {
			addDisc(b, disc)
		}
	}
	return b.Build()
}

func addStaves(b *Builder, ring ModuleRing) {
	halfX := ring.Radius * math.Tan(math.Pi/float64(ring.Staves)) * 1.05
	mask := NewRectangle(halfX, ring.HalfLength)
	for k := 0; k < ring.Staves; k++ {
		phi := 2 * math.Pi * float64(k) / float64(ring.Staves)
		sin, cos := math.Sincos(phi)
		normal := mgl64.Vec3{cos, sin, 0}
		tf := algebra.NewTransform(normal.Mul(ring.Radius), normal, mgl64.Vec3{-sin, cos, 0})
		b.AddSurface(Module, mask, tf, 0)
	}
}

func addDisc(b *Builder, disc EndcapDisc) {
	for _, z := range []float64{-disc.Z, disc.Z} {
		if disc.Petals == 0 {
			b.AddSurface(Module, NewRing(disc.RMin, disc.RMax), algebra.Translation(mgl64.Vec3{0, 0, z}), 0)
			continue
		}
		mask := petalMask(disc)
		center := (disc.RMin + disc.RMax) / 2
		for k := 0; k < disc.Petals; k++ {
			phi := 2 * math.Pi * float64(k) / float64(disc.Petals)
			sin, cos := math.Sincos(phi)
			zk := z + math.Copysign(PetalStagger, z)*float64(k%2)
			// local y points outwards, so the short edge sits at -y
			pos := mgl64.Vec3{center * cos, center * sin, zk}
			tf := algebra.NewTransform(pos, mgl64.Vec3{0, 0, 1}, mgl64.Vec3{sin, -cos, 0})
			b.AddSurface(Module, mask, tf, 0)
		}
	}
}

func petalMask(disc EndcapDisc) Mask {
	tan := math.Tan(math.Pi/float64(disc.Petals)) * 1.05
	return NewTrapezoid(disc.RMin*tan, disc.RMax*tan, (disc.RMax-disc.RMin)/2)
}

// volumeForDisc finds the volume holding the whole disc, petal corners
// included.
func volumeForDisc(radii []float64, halfZ float64, disc EndcapDisc) (int, error) {
	if disc.Z <= 0 || disc.Z >= halfZ || disc.RMin < 0 || disc.RMax <= disc.RMin {
		return 0, fmt.Errorf("%w: disc at z=%g [%g, %g]", ErrStackBounds, disc.Z, disc.RMin, disc.RMax)
	}
	if disc.Petals != 0 && (disc.Petals < 3 || disc.Z+PetalStagger >= halfZ) {
		return 0, fmt.Errorf("%w: disc at z=%g needs >= 3 petals inside the stack", ErrStackBounds, disc.Z)
	}
	outer := disc.RMax
	if disc.Petals > 0 {
		outer = math.Hypot(disc.RMax, petalMask(disc).Bounds[1])
	}
	for v := 0; v+1 < len(radii); v++ {
		if disc.RMin >= radii[v] && outer < radii[v+1] {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: disc at z=%g [%g, %g] crosses a volume boundary", ErrStackBounds, disc.Z, disc.RMin, disc.RMax)
}

func checkStack(radii []float64, halfZ float64) error {
	if len(radii) < 2 {
		return fmt.Errorf("%w: need at least two radii", ErrStackBounds)
	}
	if halfZ <= 0 {
		return fmt.Errorf("%w: half length %g", ErrStackBounds, halfZ)
	}
	if radii[0] < 0 {
		return fmt.Errorf("%w: negative radius %g", ErrStackBounds, radii[0])
	}
	for i := 1; i < len(radii); i++ {
		if radii[i] <= radii[i-1] {
			return fmt.Errorf("%w: radii not increasing at %d", ErrStackBounds, i)
		}
	}
	return nil
}

func volumeForRadius(radii []float64, r float64) (int, error) {
	for v := 0; v+1 < len(radii); v++ {
		if r > radii[v] && r < radii[v+1] {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: radius %g not strictly inside a volume", ErrStackBounds, r)
}

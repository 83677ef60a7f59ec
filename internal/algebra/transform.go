// Package algebra holds the small amount of linear algebra the geometry and
// track code needs on top of mgl64.
package algebra

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Transform places a local frame in the global frame. The columns of the
// matrix are the local x, y, z axes and the origin.
type Transform struct {
	m   mgl64.Mat4
	inv mgl64.Mat4
}

func Identity() Transform {
	return Transform{m: mgl64.Ident4(), inv: mgl64.Ident4()}
}

func Translation(t mgl64.Vec3) Transform {
	return NewTransform(t, mgl64.Vec3{0, 0, 1}, mgl64.Vec3{1, 0, 0})
}

// NewTransform builds a right-handed frame at origin t with local z along z
// and local x along the part of x orthogonal to z.
func NewTransform(t, z, x mgl64.Vec3) Transform {
	z = z.Normalize()
	x = x.Sub(z.Mul(x.Dot(z))).Normalize()
	y := z.Cross(x)

	m := mgl64.Mat4FromCols(x.Vec4(0), y.Vec4(0), z.Vec4(0), t.Vec4(1))

	// rigid inverse: transpose the rotation, rotate the translation back
	inv := mgl64.Mat4FromCols(
		mgl64.Vec4{x[0], y[0], z[0], 0},
		mgl64.Vec4{x[1], y[1], z[1], 0},
		mgl64.Vec4{x[2], y[2], z[2], 0},
		mgl64.Vec4{-x.Dot(t), -y.Dot(t), -z.Dot(t), 1},
	)
	return Transform{m: m, inv: inv}
}

func (t Transform) Matrix() mgl64.Mat4 { return t.m }

func (t Transform) Center() mgl64.Vec3 { return t.m.Col(3).Vec3() }

// Axis returns local axis i (0 = x, 1 = y, 2 = z) in global coordinates.
func (t Transform) Axis(i int) mgl64.Vec3 { return t.m.Col(i).Vec3() }

func (t Transform) PointToLocal(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformCoordinate(p, t.inv)
}

func (t Transform) PointToGlobal(p mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformCoordinate(p, t.m)
}

func (t Transform) VectorToLocal(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformNormal(v, t.inv)
}

func (t Transform) VectorToGlobal(v mgl64.Vec3) mgl64.Vec3 {
	return mgl64.TransformNormal(v, t.m)
}

// Perp is the transverse distance of v from the z axis.
func Perp(v mgl64.Vec3) float64 {
	return math.Hypot(v[0], v[1])
}

// Phi is the azimuthal angle of v.
func Phi(v mgl64.Vec3) float64 {
	return math.Atan2(v[1], v[0])
}

// IsFinite reports whether no component of v is NaN or infinite.
func IsFinite(v mgl64.Vec3) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}

package track

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/detprop/internal/algebra"
)

// Parameters are the free track parameters of a particle.
type Parameters struct {
	Pos        mgl64.Vec3
	Dir        mgl64.Vec3
	QOverP     float64
	Time       float64
	PathLength float64
}

// New builds parameters from a position, a momentum vector and a charge.
func New(pos, mom mgl64.Vec3, charge, time float64) Parameters {
	p := mom.Len()
	qop := 0.0
	if p > 0 {
		qop = charge / p
	}
	return Parameters{
		Pos:    pos,
		Dir:    mom.Normalize(),
		QOverP: qop,
		Time:   time,
	}
}

// Charge returns the sign of the charge, 0 for neutral tracks.
func (p Parameters) Charge() float64 {
	switch {
	case p.QOverP > 0:
		return 1
	case p.QOverP < 0:
		return -1
	}
	return 0
}

// Momentum returns |p|; neutral tracks report +Inf.
func (p Parameters) Momentum() float64 {
	if p.QOverP == 0 {
		return math.Inf(1)
	}
	return math.Abs(1 / p.QOverP)
}

func (p Parameters) IsValid() bool {
	if !algebra.IsFinite(p.Pos) || !algebra.IsFinite(p.Dir) {
		return false
	}
	if math.IsNaN(p.QOverP) || math.IsInf(p.QOverP, 0) {
		return false
	}
	return math.Abs(p.Dir.Len()-1) < 1e-6
}

func (p Parameters) String() string {
	return fmt.Sprintf("pos=(%.4f,%.4f,%.4f) dir=(%.4f,%.4f,%.4f) qop=%.4g s=%.4f",
		p.Pos[0], p.Pos[1], p.Pos[2], p.Dir[0], p.Dir[1], p.Dir[2], p.QOverP, p.PathLength)
}

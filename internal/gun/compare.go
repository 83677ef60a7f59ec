package gun

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/zeebo/xxh3"

	"github.com/san-kum/detprop/internal/actor"
)

// Mismatch is a difference between two crossing sequences.
type Mismatch struct {
	Index  int
	Reason string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("hit %d: %s", m.Index, m.Reason)
}

// Compare matches truth against reco hit by hit. Surfaces must agree
// exactly; positions and path lengths within eps.
func Compare(truth, reco []actor.Hit, eps float64) []Mismatch {
	var out []Mismatch
	n := min(len(truth), len(reco))
	for i := 0; i < n; i++ {
		t, r := truth[i], reco[i]
		switch {
		case t.Surface != r.Surface:
			out = append(out, Mismatch{i, fmt.Sprintf("surface %d, expected %d", r.Surface, t.Surface)})
		case t.Position.Sub(r.Position).Len() > eps:
			out = append(out, Mismatch{i, fmt.Sprintf("position off by %.3g mm", t.Position.Sub(r.Position).Len())})
		case math.Abs(t.PathLength-r.PathLength) > eps:
			out = append(out, Mismatch{i, fmt.Sprintf("path length off by %.3g mm", t.PathLength-r.PathLength)})
		}
	}
	for i := n; i < len(truth); i++ {
		out = append(out, Mismatch{i, fmt.Sprintf("missing surface %d", truth[i].Surface)})
	}
	for i := n; i < len(reco); i++ {
		out = append(out, Mismatch{i, fmt.Sprintf("unexpected surface %d", reco[i].Surface)})
	}
	return out
}

// Fingerprint hashes the surface sequence and the positions rounded to
// quantum, so that traces agreeing within quantum usually hash equal.
func Fingerprint(hits []actor.Hit, quantum float64) uint64 {
	h := xxh3.New()
	var buf [8]byte
	for _, hit := range hits {
		binary.LittleEndian.PutUint64(buf[:], uint64(int64(hit.Surface)))
		h.Write(buf[:])
		for _, x := range hit.Position {
			binary.LittleEndian.PutUint64(buf[:], uint64(int64(math.Round(x/quantum))))
			h.Write(buf[:])
		}
	}
	return h.Sum64()
}

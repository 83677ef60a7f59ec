package navigation

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/detprop/internal/detector"
	"github.com/san-kum/detprop/internal/intersect"
)

type Status uint8

const (
	Unknown Status = iota
	TowardsSurface
	OnModule
	OnPortal
	Exhausted
	Unreachable
)

func (s Status) String() string {
	switch s {
	case Unknown:
		return "unknown"
	case TowardsSurface:
		return "towards_surface"
	case OnModule:
		return "on_module"
	case OnPortal:
		return "on_portal"
	case Exhausted:
		return "exhausted"
	case Unreachable:
		return "unreachable"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// State is the per-track navigation state. The zero value is not usable
// until Navigator.Init has been called on it.
type State struct {
	volume     int
	candidates []intersect.Record
	next       int
	status     Status
	current    int
	stale      bool
	refresh    bool
	exited     bool
	scans      int

	// track path length at the last evaluation of the candidates
	evaluatedAt float64
	// track direction at the last full scan
	scanDir mgl64.Vec3
}

func (s *State) reset(volume int) {
	s.volume = volume
	s.candidates = s.candidates[:0]
	s.next = 0
	s.status = Unknown
	s.current = -1
	s.stale = true
	s.refresh = false
	s.exited = false
	s.scans = 0
	s.evaluatedAt = 0
	s.scanDir = mgl64.Vec3{}
}

// Volume is the volume the track is in, detector.InvalidVolume after it left
// the world.
func (s *State) Volume() int { return s.volume }

func (s *State) Status() Status { return s.status }

// Candidates are the surfaces still ahead in the current volume, closest
// first.
func (s *State) Candidates() []intersect.Record {
	if s.next >= len(s.candidates) {
		return nil
	}
	return s.candidates[s.next:]
}

// Next returns the selected candidate.
func (s *State) Next() (intersect.Record, bool) {
	if s.next >= len(s.candidates) {
		return intersect.Record{}, false
	}
	return s.candidates[s.next], true
}

// Current is the surface the track sits on, -1 when it is between surfaces.
func (s *State) Current() int { return s.current }

func (s *State) IsOnModule() bool { return s.status == OnModule }

func (s *State) IsOnPortal() bool { return s.status == OnPortal }

func (s *State) IsOnSurface() bool { return s.IsOnModule() || s.IsOnPortal() }

// Exited reports whether the track crossed a portal leaving the world.
func (s *State) Exited() bool { return s.exited }

func (s *State) IsExhausted() bool { return s.status == Exhausted }

// Scans counts full volume scans, mostly useful to check caching.
func (s *State) Scans() int { return s.scans }

func (s *State) String() string {
	next := "none"
	if rec, ok := s.Next(); ok {
		next = rec.String()
	}
	vol := fmt.Sprint(s.volume)
	if s.volume == detector.InvalidVolume {
		vol = "world exit"
	}
	return fmt.Sprintf("volume %s, %s, %d candidates, next %s", vol, s.status, len(s.Candidates()), next)
}

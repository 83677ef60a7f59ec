package stepper

// Line moves tracks along straight lines. It is exact for neutral particles
// and for charged ones in field free regions.
type Line struct {
	Mass float64
}

func (l Line) Step(s *State) (float64, error) {
	h, _, err := s.limit()
	if err != nil {
		return 0, err
	}
	s.LastLimit = h
	s.LastError = 0
	s.Track.Pos = s.Track.Pos.Add(s.Track.Dir.Mul(h))
	s.advance(h, l.Mass)
	return h, nil
}

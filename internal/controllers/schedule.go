package controllers

import (
	"sort"

	"github.com/san-kum/abfsim/internal/dynamo"
)

// Segment holds Omega on [previous Until, Until).
type Segment struct {
	Until float64
	Omega float64
}

// Schedule is a piecewise-constant frequency program. After the last
// segment the last frequency is held.
type Schedule struct {
	segments []Segment
}

func NewSchedule(segments []Segment) (*Schedule, error) {
	if len(segments) == 0 {
		return nil, dynamo.Configf("schedule needs at least one segment")
	}
	s := make([]Segment, len(segments))
	copy(s, segments)
	sort.SliceStable(s, func(i, j int) bool { return s[i].Until < s[j].Until })
	return &Schedule{segments: s}, nil
}

func (s *Schedule) Compute(x dynamo.State, t float64) dynamo.Control {
	i := sort.Search(len(s.segments), func(i int) bool { return t < s.segments[i].Until })
	if i == len(s.segments) {
		i--
	}
	return dynamo.Control{s.segments[i].Omega}
}

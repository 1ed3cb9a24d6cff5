package grading

import (
	"fmt"
	"math"
)

// Scheme converts a numeric percentage into a letter grade.
type Scheme interface {
	ScoreToGrade(score float64) string
}

// Band is one rung of a grading standard: the letter awarded at or above Min.
type Band struct {
	Letter string
	Min    float64 // lowest percentage that still earns Letter
}

// Standard is an ordered table of bands, highest cutoff first. The last band
// acts as the floor and catches everything below the other cutoffs.
type Standard struct {
	name  string
	bands []Band
}

// NewStandard builds a Standard from bands ordered by descending cutoff.
func NewStandard(name string, bands []Band) (*Standard, error) {
	if len(bands) == 0 {
		return nil, fmt.Errorf("grading standard %q: no bands", name)
	}
	for i, b := range bands {
		if b.Letter == "" {
			return nil, fmt.Errorf("grading standard %q: band %d has no letter", name, i)
		}
		if i > 0 && b.Min >= bands[i-1].Min {
			return nil, fmt.Errorf("grading standard %q: cutoffs must strictly decrease (band %d)", name, i)
		}
	}
	return &Standard{name: name, bands: bands}, nil
}

func (s *Standard) Name() string { return s.name }

// ScoreToGrade returns the letter for the first band whose cutoff the score
// meets. Scores above the top cutoff get the top letter; scores below every
// cutoff (including negatives) fall through to the last band.
func (s *Standard) ScoreToGrade(score float64) string {
	if math.IsNaN(score) {
		return ""
	}
	for _, b := range s.bands {
		if score >= b.Min {
			return b.Letter
		}
	}
	return s.bands[len(s.bands)-1].Letter
}

// Default is the stock twelve-letter standard used when a course enables
// grading standards without picking one.
func Default() *Standard {
	s, _ := NewStandard("default", []Band{
		{"A", 94}, {"A-", 90},
		{"B+", 87}, {"B", 84}, {"B-", 80},
		{"C+", 77}, {"C", 74}, {"C-", 70},
		{"D+", 67}, {"D", 64}, {"D-", 61},
		{"F", 0},
	})
	return s
}

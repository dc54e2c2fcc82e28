// Package grading maps numeric scores to letter grades.
//
// Two scales ship with the package and are deliberately kept apart:
// ReportCard grades predictions, Labeling derives the grade column of
// training data. They disagree (85 is an A for Labeling and a B for
// ReportCard), so every caller names the scale it uses.
package grading

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Grade is a letter grade such as "A" or "F".
type Grade string

// Letter grades used by the built-in scales.
const (
	A Grade = "A"
	B Grade = "B"
	C Grade = "C"
	D Grade = "D"
	F Grade = "F"
)

// Scale names.
const (
	ReportCardName = "report_card"
	LabelingName   = "labeling"
)

// Threshold assigns Grade to every score >= Min.
type Threshold struct {
	Min   float64 `json:"min" yaml:"min"`
	Grade Grade   `json:"grade" yaml:"grade"`
}

// Scale is an immutable step function from score to grade.
type Scale struct {
	name       string
	thresholds []Threshold // sorted by Min descending
	fallback   Grade
}

// Built-in scales.
var (
	// ReportCard: >=90 A, >=80 B, >=70 C, >=60 D, else F.
	ReportCard = mustScale(ReportCardName, F,
		Threshold{Min: 90, Grade: A},
		Threshold{Min: 80, Grade: B},
		Threshold{Min: 70, Grade: C},
		Threshold{Min: 60, Grade: D},
	)

	// Labeling: >=85 A, >=70 B, >=55 C, >=40 D, else F.
	Labeling = mustScale(LabelingName, F,
		Threshold{Min: 85, Grade: A},
		Threshold{Min: 70, Grade: B},
		Threshold{Min: 55, Grade: C},
		Threshold{Min: 40, Grade: D},
	)
)

// NewScale builds a scale from thresholds given in any order. Scores below
// every threshold receive fallback.
func NewScale(name string, fallback Grade, thresholds ...Threshold) (Scale, error) {
	if strings.TrimSpace(name) == "" {
		return Scale{}, fmt.Errorf("%w: empty scale name", ErrInvalidScale)
	}
	if strings.TrimSpace(string(fallback)) == "" {
		return Scale{}, fmt.Errorf("%w: empty fallback grade", ErrInvalidScale)
	}
	if len(thresholds) == 0 {
		return Scale{}, fmt.Errorf("%w: no thresholds", ErrInvalidScale)
	}

	ts := make([]Threshold, len(thresholds))
	copy(ts, thresholds)
	sort.SliceStable(ts, func(i, j int) bool { return ts[i].Min > ts[j].Min })

	for i, t := range ts {
		if math.IsNaN(t.Min) || math.IsInf(t.Min, 0) {
			return Scale{}, fmt.Errorf("%w: threshold for %q is not finite", ErrInvalidScale, t.Grade)
		}
		if strings.TrimSpace(string(t.Grade)) == "" {
			return Scale{}, fmt.Errorf("%w: empty grade at %v", ErrInvalidScale, t.Min)
		}
		if i > 0 && ts[i-1].Min == t.Min {
			return Scale{}, fmt.Errorf("%w: duplicate threshold %v", ErrInvalidScale, t.Min)
		}
	}

	return Scale{name: name, thresholds: ts, fallback: fallback}, nil
}

// FromMap builds a scale from a grade -> minimum score map, the shape used
// by configuration files.
func FromMap(name string, fallback Grade, mins map[string]float64) (Scale, error) {
	ts := make([]Threshold, 0, len(mins))
	for g, m := range mins {
		ts = append(ts, Threshold{Min: m, Grade: Grade(strings.ToUpper(strings.TrimSpace(g)))})
	}
	return NewScale(name, fallback, ts...)
}

// Lookup returns a built-in scale by name.
func Lookup(name string) (Scale, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ReportCardName:
		return ReportCard, nil
	case LabelingName:
		return Labeling, nil
	default:
		return Scale{}, fmt.Errorf("%w: %q", ErrUnknownScale, name)
	}
}

// Grade returns the grade for score. A score equal to a threshold receives
// that threshold's grade.
func (s Scale) Grade(score float64) Grade {
	for _, t := range s.thresholds {
		if score >= t.Min {
			return t.Grade
		}
	}
	return s.fallback
}

// Name returns the scale name.
func (s Scale) Name() string { return s.name }

// Fallback returns the grade given below every threshold.
func (s Scale) Fallback() Grade { return s.fallback }

// Thresholds returns a copy of the thresholds, highest first.
func (s Scale) Thresholds() []Threshold {
	out := make([]Threshold, len(s.thresholds))
	copy(out, s.thresholds)
	return out
}

// IsZero reports whether s was never initialized.
func (s Scale) IsZero() bool { return len(s.thresholds) == 0 }

func mustScale(name string, fallback Grade, ts ...Threshold) Scale {
	s, err := NewScale(name, fallback, ts...)
	if err != nil {
		panic(err)
	}
	return s
}

package prediction

import "github.com/okian/grader/internal/domain/grading"

// Option applies a configuration option to the Predictor.
type Option func(*Predictor)

// WithScaler standardizes vectors before they reach the model.
func WithScaler(s Scaler) Option {
	return func(p *Predictor) {
		p.scaler = s
	}
}

// WithGradeScale sets the table used to turn scores into grades.
func WithGradeScale(s grading.Scale) Option {
	return func(p *Predictor) {
		if !s.IsZero() {
			p.scale = s
		}
	}
}

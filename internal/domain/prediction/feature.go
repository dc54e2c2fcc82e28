package prediction

import (
	"fmt"
	"strings"
)

// FeatureSpec is the ordered list of inputs a model was trained on. The
// order is fixed when the model is loaded and defines vector layout.
type FeatureSpec struct {
	names []string
}

// NewFeatureSpec validates names and returns an immutable spec.
func NewFeatureSpec(names ...string) (FeatureSpec, error) {
	if len(names) == 0 {
		return FeatureSpec{}, fmt.Errorf("%w: at least one feature is required", ErrInvalidFeatureSpec)
	}
	seen := make(map[string]struct{}, len(names))
	out := make([]string, len(names))
	for i, n := range names {
		n = strings.TrimSpace(n)
		if n == "" {
			return FeatureSpec{}, fmt.Errorf("%w: empty feature name at position %d", ErrInvalidFeatureSpec, i)
		}
		if _, dup := seen[n]; dup {
			return FeatureSpec{}, fmt.Errorf("%w: duplicate feature %q", ErrInvalidFeatureSpec, n)
		}
		seen[n] = struct{}{}
		out[i] = n
	}
	return FeatureSpec{names: out}, nil
}

// Names returns a copy of the feature names in order.
func (f FeatureSpec) Names() []string {
	out := make([]string, len(f.names))
	copy(out, f.names)
	return out
}

// Len returns the number of features.
func (f FeatureSpec) Len() int { return len(f.names) }

// Vector lays out validated values in spec order.
func (f FeatureSpec) Vector(in ValidatedInput) []float64 {
	vec := make([]float64, len(f.names))
	for i, n := range f.names {
		vec[i] = in[n]
	}
	return vec
}

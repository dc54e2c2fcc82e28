package prediction

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrServiceNotReady reports that no model is loaded.
	ErrServiceNotReady = errors.New("service not ready")
	// ErrComputation reports an unexpected numeric failure in transform or predict.
	ErrComputation = errors.New("computation failed")
	// ErrInvalidFeatureSpec reports an empty or duplicated feature list.
	ErrInvalidFeatureSpec = errors.New("invalid feature spec")
	// ErrInvalidModel reports model or scaler parameters that do not fit the feature spec.
	ErrInvalidModel = errors.New("invalid model")
)

// Per-field validation messages.
const (
	MsgRequired    = "required"
	MsgNotANumber  = "must be a number"
	validationText = "validation failed"
)

// ValidationError lists every field of a request that failed validation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s: %s", k, e.Fields[k])
	}
	return validationText + ": " + strings.Join(parts, "; ")
}

// Missing returns the fields reported as required, sorted.
func (e *ValidationError) Missing() []string {
	return e.withMessage(MsgRequired)
}

// Invalid returns the fields reported as non-numeric, sorted.
func (e *ValidationError) Invalid() []string {
	return e.withMessage(MsgNotANumber)
}

func (e *ValidationError) withMessage(msg string) []string {
	var out []string
	for k, v := range e.Fields {
		if v == msg {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

// AsValidationError unwraps err into a *ValidationError when possible.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

package prediction

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// RawInput maps feature names to untyped request values.
type RawInput map[string]any

// ValidatedInput holds a finite value for every feature of a spec.
type ValidatedInput map[string]float64

// Validate checks raw against spec. Every feature is examined so the
// returned *ValidationError names all failing fields at once. Keys of raw
// that are not part of spec are ignored.
func Validate(spec FeatureSpec, raw RawInput) (ValidatedInput, error) {
	out := make(ValidatedInput, spec.Len())
	fields := make(map[string]string)

	for _, name := range spec.names {
		v, ok := raw[name]
		if !ok || isEmpty(v) {
			fields[name] = MsgRequired
			continue
		}
		f, ok := coerce(v)
		if !ok {
			fields[name] = MsgNotANumber
			continue
		}
		out[name] = f
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return out, nil
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case json.Number:
		return strings.TrimSpace(string(t)) == ""
	}
	return false
}

// coerce converts v to a finite float64.
func coerce(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int8:
		f = float64(t)
	case int16:
		f = float64(t)
	case int32:
		f = float64(t)
	case int64:
		f = float64(t)
	case uint:
		f = float64(t)
	case uint8:
		f = float64(t)
	case uint16:
		f = float64(t)
	case uint32:
		f = float64(t)
	case uint64:
		f = float64(t)
	case json.Number:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(string(t)), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

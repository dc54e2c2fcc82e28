package grading

import "errors"

// Sentinel error kinds for grade scales.
var (
	ErrInvalidScale = errors.New("invalid grade scale")
	ErrUnknownScale = errors.New("unknown grade scale")
)

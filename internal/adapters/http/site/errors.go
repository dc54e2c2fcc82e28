package site

import "errors"

// Error constants
var (
	ErrTemplate = errors.New("site template invalid")
	ErrRender   = errors.New("site render failed")
)

package artifact

import "errors"

// Sentinel error kinds for artifact loading.
var (
	ErrLoad          = errors.New("load artifact failed")
	ErrInvalidBundle = errors.New("invalid model bundle")
	ErrFormat        = errors.New("unsupported artifact format")
)

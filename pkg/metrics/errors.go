package metrics

import "errors"

// ErrInvalidOptions reports options that produce unregistrable metrics,
// such as a reserved constant label name.
var ErrInvalidOptions = errors.New("invalid metrics options")

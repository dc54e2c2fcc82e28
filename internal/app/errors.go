package service

import "errors"

// ErrNoModelPath reports a reload without a configured model path.
var ErrNoModelPath = errors.New("no model path configured")

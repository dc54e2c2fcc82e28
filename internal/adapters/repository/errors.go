package repository

import "errors"

// Sentinel kinds for student store errors.
var (
	ErrNotFound    = errors.New("student not found")
	ErrDuplicate   = errors.New("student with that roll number already exists")
	ErrOpen        = errors.New("open student store failed")
	ErrUnavailable = errors.New("student store unavailable")
)

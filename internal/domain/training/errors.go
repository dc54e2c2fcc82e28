package training

import "errors"

// Sentinel error kinds for training.
var (
	ErrEmptyDataset     = errors.New("empty dataset")
	ErrInvalidDataset   = errors.New("invalid dataset")
	ErrNoFeatures       = errors.New("no usable feature columns")
	ErrMissingTarget    = errors.New("target column not found")
	ErrInsufficientData = errors.New("not enough rows to fit")
	ErrSingular         = errors.New("design matrix is singular")
	ErrLengthMismatch   = errors.New("length mismatch")
	ErrInvalidTestSize  = errors.New("test size must be in [0, 1)")
	ErrInvalidLabel     = errors.New("label must be 0 (fail) or 1 (pass)")
	ErrNotFitted        = errors.New("classifier not fitted")
)

package errs

import "errors"

var (
	// ErrValidation marks input the actor can correct and resubmit.
	ErrValidation = errors.New("validation error")
	// ErrPermissionDenied marks a banned or muted user trying to submit.
	ErrPermissionDenied = errors.New("permission denied")
	ErrNotFound         = errors.New("not found")
	// ErrDelivery wraps failed messaging gateway calls. Logged, never rolled back.
	ErrDelivery = errors.New("delivery failed")
	// ErrPersistence wraps store read/write failures.
	ErrPersistence = errors.New("persistence failed")
)

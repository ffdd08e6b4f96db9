package runner

import "errors"

var (
	// ErrJobNotFound is returned when no job is registered under a slug.
	ErrJobNotFound = errors.New("runner: job not found")

	// ErrJobExists is returned when registering a second job with the same slug.
	ErrJobExists = errors.New("runner: job already registered")

	// ErrInvalidJob is returned when registering a nil job or one without a name.
	ErrInvalidJob = errors.New("runner: invalid job")

	// ErrInvalidInput wraps variable validation failures.
	ErrInvalidInput = errors.New("runner: invalid input")

	// ErrInvalidRequest is returned for run requests that cannot be decoded.
	ErrInvalidRequest = errors.New("runner: invalid run request")
)

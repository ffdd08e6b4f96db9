package job

import "errors"

// Domain errors for the job package.
var (
	// ErrMissingVar is returned when a required variable is absent or blank.
	ErrMissingVar = errors.New("job: missing required variable")

	// ErrInvalidVar is returned when a variable has the wrong type or an unparseable value.
	ErrInvalidVar = errors.New("job: invalid variable value")

	// ErrUnknownVar is returned when input data names a variable the job does not declare.
	ErrUnknownVar = errors.New("job: unknown variable")
)

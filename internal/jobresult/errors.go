package jobresult

import "errors"

var (
	// ErrResultNotFound is returned when no result has the requested ID.
	ErrResultNotFound = errors.New("jobresult: not found")

	// ErrResultExists is returned when creating a result whose ID is taken.
	ErrResultExists = errors.New("jobresult: already exists")
)

package device

import (
	"context"
	"errors"
)

// Outcome classifies the result of a name lookup.
type Outcome string

// Lookup outcomes.
const (
	LookupFound    Outcome = "found"
	LookupNotFound Outcome = "not_found"
	LookupFailed   Outcome = "failed"
)

// Lookup is the result of resolving a device by name.
//
// Exactly one of the following holds:
//   - Outcome is LookupFound and Device is set
//   - Outcome is LookupNotFound and both Device and Err are nil
//   - Outcome is LookupFailed and Err is set
type Lookup struct {
	Outcome Outcome
	Device  *Device
	Err     error
}

// Finder resolves a device by its exact name.
// Registry implements it; the device lookup job depends only on this.
type Finder interface {
	LookupByName(ctx context.Context, name string) Lookup
}

// FinderFunc adapts a plain function to the Finder interface.
type FinderFunc func(ctx context.Context, name string) Lookup

// LookupByName calls f(ctx, name).
func (f FinderFunc) LookupByName(ctx context.Context, name string) Lookup {
	return f(ctx, name)
}

// Found builds a LookupFound result.
func Found(d *Device) Lookup {
	return Lookup{Outcome: LookupFound, Device: d}
}

// NotFound builds a LookupNotFound result.
func NotFound() Lookup {
	return Lookup{Outcome: LookupNotFound}
}

// Failed builds a LookupFailed result.
func Failed(err error) Lookup {
	return Lookup{Outcome: LookupFailed, Err: err}
}

// lookupFromResult converts a repository (device, error) pair into a Lookup.
func lookupFromResult(d *Device, err error) Lookup {
	switch {
	case err == nil && d != nil:
		return Found(d)
	case err == nil, errors.Is(err, ErrDeviceNotFound):
		return NotFound()
	default:
		return Failed(err)
	}
}

package job

import (
	"context"

	"github.com/nerrad567/nsot-jobs/internal/device"
)

// Operation is the side-effecting step a non-dry-run lookup performs on
// the device it found. device.SaveOperation implements it.
type Operation interface {
	Perform(ctx context.Context, d *device.Device) error
}

// OperationFunc adapts a plain function to the Operation interface.
type OperationFunc func(ctx context.Context, d *device.Device) error

// Perform calls f(ctx, d).
func (f OperationFunc) Perform(ctx context.Context, d *device.Device) error {
	return f(ctx, d)
}

// NoopOperation does nothing and always succeeds.
type NoopOperation struct{}

// Perform returns nil.
func (NoopOperation) Perform(context.Context, *device.Device) error {
	return nil
}

package device

import (
	"context"
	"fmt"
)

// Saver persists changes to an existing device.
// Registry implements it.
type Saver interface {
	UpdateDevice(ctx context.Context, device *Device) error
}

// SaveOperation re-saves a found device, refreshing its updated_at timestamp.
// It is the side-effecting operation a non-dry-run device lookup performs.
type SaveOperation struct {
	saver Saver
}

// NewSaveOperation creates a SaveOperation backed by saver.
func NewSaveOperation(saver Saver) *SaveOperation {
	return &SaveOperation{saver: saver}
}

// Perform saves a copy of d through the underlying Saver.
//
// Parameters:
//   - ctx: Context for cancellation
//   - d: The device returned by the lookup
//
// Returns:
//   - error: wrapped persistence error, or nil on success
func (o *SaveOperation) Perform(ctx context.Context, d *Device) error {
	if d == nil {
		return ErrInvalidDevice
	}
	if err := o.saver.UpdateDevice(ctx, d.DeepCopy()); err != nil {
		return fmt.Errorf("saving device %s: %w", d.Name, err)
	}
	return nil
}

package device

import "time"

// Device is a network device record in the source of truth.
// This matches the devices table in migrations/20261016_090000_devices.up.sql.
type Device struct {
	// Identity
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`

	// Classification
	DeviceType string `json:"device_type"`
	Role       string `json:"role,omitempty"`
	Status     Status `json:"status"`

	// Placement and inventory
	Site   string `json:"site,omitempty"`
	Serial string `json:"serial,omitempty"`

	// Tags are free-form labels, e.g. ["core", "lab"].
	Tags []string `json:"tags,omitempty"`

	// Timestamps
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DeepCopy returns an independent copy of the Device.
// The registry hands out copies so callers cannot mutate its cache.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}

	cpy := *d
	if d.Tags != nil {
		cpy.Tags = make([]string, len(d.Tags))
		copy(cpy.Tags, d.Tags)
	}
	return &cpy
}

// Status is the operational status of a device.
type Status string

// Device statuses.
const (
	StatusActive          Status = "active"
	StatusPlanned         Status = "planned"
	StatusStaged          Status = "staged"
	StatusOffline         Status = "offline"
	StatusDecommissioning Status = "decommissioning"
)

// AllStatuses returns every valid device status.
func AllStatuses() []Status {
	return []Status{
		StatusActive,
		StatusPlanned,
		StatusStaged,
		StatusOffline,
		StatusDecommissioning,
	}
}

package device

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Validation constants.
const (
	maxNameLength       = 100
	maxSlugLength       = 50
	maxDeviceTypeLength = 100
	maxTags             = 50
	slugPattern         = `^[a-z0-9]+(?:-[a-z0-9]+)*$`
)

var slugRegex = regexp.MustCompile(slugPattern)

var validStatuses = func() map[Status]struct{} {
	m := make(map[Status]struct{})
	for _, s := range AllStatuses() {
		m[s] = struct{}{}
	}
	return m
}()

// ValidateDevice checks a device before it is created or updated.
// An empty slug or status is allowed; PrepareForCreate fills them in.
func ValidateDevice(d *Device) error {
	if d == nil {
		return ErrInvalidDevice
	}

	if err := ValidateName(d.Name); err != nil {
		return err
	}

	if d.Slug != "" {
		if err := ValidateSlug(d.Slug); err != nil {
			return err
		}
	}

	if err := ValidateDeviceType(d.DeviceType); err != nil {
		return err
	}

	if d.Status != "" {
		if err := ValidateStatus(d.Status); err != nil {
			return err
		}
	}

	if len(d.Tags) > maxTags {
		return fmt.Errorf("%w: more than %d tags", ErrInvalidDevice, maxTags)
	}

	return nil
}

// ValidateName checks a device name is non-empty and not too long.
func ValidateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: name cannot be empty", ErrInvalidName)
	}
	if len(name) > maxNameLength {
		return fmt.Errorf("%w: name exceeds %d characters", ErrInvalidName, maxNameLength)
	}
	return nil
}

// ValidateSlug checks if a slug format is valid.
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("%w: slug cannot be empty", ErrInvalidSlug)
	}
	if len(slug) > maxSlugLength {
		return fmt.Errorf("%w: slug exceeds %d characters", ErrInvalidSlug, maxSlugLength)
	}
	if !slugRegex.MatchString(slug) {
		return fmt.Errorf("%w: slug must be lowercase alphanumeric with hyphens", ErrInvalidSlug)
	}
	return nil
}

// ValidateDeviceType checks the type/category attribute.
func ValidateDeviceType(deviceType string) error {
	deviceType = strings.TrimSpace(deviceType)
	if deviceType == "" {
		return fmt.Errorf("%w: device type cannot be empty", ErrInvalidDeviceType)
	}
	if len(deviceType) > maxDeviceTypeLength {
		return fmt.Errorf("%w: device type exceeds %d characters", ErrInvalidDeviceType, maxDeviceTypeLength)
	}
	return nil
}

// ValidateStatus checks if a status is one of AllStatuses.
func ValidateStatus(s Status) error {
	if _, ok := validStatuses[s]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return nil
}

// PrepareForCreate fills in the ID, slug and status of a new device when unset.
func PrepareForCreate(d *Device) {
	if d.ID == "" {
		d.ID = GenerateID()
	}
	if d.Slug == "" {
		d.Slug = GenerateSlug(d.Name)
	}
	if d.Status == "" {
		d.Status = StatusActive
	}
}

// GenerateSlug creates a URL-safe slug from a device name.
//
// Example: "Core Switch 01" -> "core-switch-01"
func GenerateSlug(name string) string {
	slug := strings.ToLower(name)
	slug = strings.NewReplacer(" ", "-", "_", "-", ".", "-", "/", "-").Replace(slug)

	var result strings.Builder
	for _, r := range slug {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-' {
			result.WriteRune(r)
		}
	}
	slug = result.String()

	for strings.Contains(slug, "--") {
		slug = strings.ReplaceAll(slug, "--", "-")
	}
	slug = strings.Trim(slug, "-")

	if len(slug) > maxSlugLength {
		slug = strings.TrimRight(slug[:maxSlugLength], "-")
	}

	return slug
}

// GenerateID creates a new UUID for a device.
func GenerateID() string {
	return uuid.New().String()
}

package device

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides device management with caching and thread safety.
// It wraps a Repository and adds an in-memory cache keyed by ID and by name.
//
// The cache is populated via RefreshCache() and kept in sync by the
// cache-updating CRUD operations. Lookups that miss the cache fall through
// to the repository, so devices added by another process are still found.
// ListDevices always reads the repository and resynchronises the cache.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[string]*Device // by ID
	byName  map[string]string  // name -> ID
	cacheMu sync.RWMutex       // Protects cache and byName
	logger  Logger
}

// NewRegistry creates a new device registry.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[string]*Device),
		byName: make(map[string]string),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all devices from the repository into the cache.
func (r *Registry) RefreshCache(ctx context.Context) error {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[string]*Device, len(devices))
	r.byName = make(map[string]string, len(devices))
	for i := range devices {
		r.storeLocked(devices[i].DeepCopy())
	}

	r.logger.Info("device cache refreshed", "count", len(devices))
	return nil
}

// GetDevice retrieves a device by ID.
// Returns ErrDeviceNotFound if the device does not exist.
// The returned device is a deep copy; callers can safely modify it.
func (r *Registry) GetDevice(ctx context.Context, id string) (*Device, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()

	if ok {
		return cached.DeepCopy(), nil
	}

	device, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.store(device)
	return device, nil
}

// GetDeviceByName retrieves a device by exact name.
// Returns ErrDeviceNotFound if no device has that name.
// The returned device is a deep copy; callers can safely modify it.
func (r *Registry) GetDeviceByName(ctx context.Context, name string) (*Device, error) {
	r.cacheMu.RLock()
	var cached *Device
	if id, ok := r.byName[name]; ok {
		cached = r.cache[id]
	}
	r.cacheMu.RUnlock()

	if cached != nil {
		return cached.DeepCopy(), nil
	}

	device, err := r.repo.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}

	r.store(device)
	return device, nil
}

// LookupByName resolves a device by exact name into a typed Lookup.
// A missing device yields LookupNotFound; any other repository failure
// yields LookupFailed carrying the error.
func (r *Registry) LookupByName(ctx context.Context, name string) Lookup {
	lookup := lookupFromResult(r.GetDeviceByName(ctx, name))
	if lookup.Outcome == LookupFailed {
		r.logger.Warn("device lookup failed", "name", name, "error", lookup.Err)
	}
	return lookup
}

// ListDevices retrieves all devices ordered by name.
//
// The listing always comes from the repository, which other processes may
// write to. The cache is replaced with the result.
//
// Parameters:
//   - ctx: Context for the repository query
//
// Returns:
//   - []Device: deep copies; callers can safely modify them
//   - error: if the repository query fails
func (r *Registry) ListDevices(ctx context.Context) ([]Device, error) {
	devices, err := r.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing devices: %w", err)
	}

	r.cacheMu.Lock()
	r.cache = make(map[string]*Device, len(devices))
	r.byName = make(map[string]string, len(devices))
	for i := range devices {
		r.storeLocked(devices[i].DeepCopy())
	}
	r.cacheMu.Unlock()

	sort.Slice(devices, func(i, j int) bool {
		return devices[i].Name < devices[j].Name
	})
	return devices, nil
}

// CreateDevice creates a new device.
// It fills in ID, slug and status when unset, validates, and persists.
func (r *Registry) CreateDevice(ctx context.Context, device *Device) error {
	PrepareForCreate(device)

	if err := ValidateDevice(device); err != nil {
		return err
	}

	if err := r.repo.Create(ctx, device); err != nil {
		return err
	}

	r.store(device)

	r.logger.Info("device created", "id", device.ID, "name", device.Name)
	return nil
}

// UpdateDevice updates an existing device.
// The slug is regenerated when the name changes and the slug was left as-is.
func (r *Registry) UpdateDevice(ctx context.Context, device *Device) error {
	existing, err := r.GetDevice(ctx, device.ID)
	if err != nil {
		return err
	}
	if device.Name != existing.Name && device.Slug == existing.Slug {
		device.Slug = GenerateSlug(device.Name)
	}
	if device.Status == "" {
		device.Status = existing.Status
	}

	if err := ValidateDevice(device); err != nil {
		return err
	}

	if err := r.repo.Update(ctx, device); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.byName, existing.Name)
	r.storeLocked(device.DeepCopy())
	r.cacheMu.Unlock()

	r.logger.Info("device updated", "id", device.ID, "name", device.Name)
	return nil
}

// DeleteDevice removes a device.
func (r *Registry) DeleteDevice(ctx context.Context, id string) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	if cached, ok := r.cache[id]; ok {
		delete(r.byName, cached.Name)
	}
	delete(r.cache, id)
	r.cacheMu.Unlock()

	r.logger.Info("device deleted", "id", id)
	return nil
}

// GetDeviceCount returns the number of cached devices. It is exact after
// RefreshCache or ListDevices; use len(ListDevices) when it must be current.
func (r *Registry) GetDeviceCount() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}

// store caches a deep copy of d.
func (r *Registry) store(d *Device) {
	r.cacheMu.Lock()
	r.storeLocked(d.DeepCopy())
	r.cacheMu.Unlock()
}

// storeLocked caches d as-is. Caller must hold cacheMu for writing.
func (r *Registry) storeLocked(d *Device) {
	if old, ok := r.cache[d.ID]; ok && old.Name != d.Name {
		delete(r.byName, old.Name)
	}
	r.cache[d.ID] = d
	r.byName[d.Name] = d.ID
}

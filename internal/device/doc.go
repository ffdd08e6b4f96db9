// Package device is the device registry of the network source of truth.
//
// A Device is identified by a UUID and by a unique, case-sensitive name.
// The package provides:
//   - Repository: persistence interface, with SQLiteRepository on the devices table
//   - Registry: thread-safe cache in front of a Repository, keyed by ID and name
//   - Lookup: typed result of resolving a device by name (found, not found, failed)
//   - SaveOperation: re-saves a found device, used by non-dry-run lookups
//
// Usage:
//
//	repo := device.NewSQLiteRepository(db.DB)
//	registry := device.NewRegistry(repo)
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//
//	switch l := registry.LookupByName(ctx, "core-sw-01"); l.Outcome {
//	case device.LookupFound:
//	    fmt.Println(l.Device.DeviceType)
//	case device.LookupNotFound:
//	    // no such device
//	case device.LookupFailed:
//	    return l.Err
//	}
package device

package device

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// setupTestDB creates an in-memory SQLite database with the devices table.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	// Each connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE devices (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			slug TEXT NOT NULL,
			device_type TEXT NOT NULL,
			role TEXT,
			status TEXT NOT NULL DEFAULT 'active',
			site TEXT,
			serial TEXT,
			tags TEXT NOT NULL DEFAULT '[]',
			created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
			updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		) STRICT;
		CREATE INDEX idx_devices_site ON devices(site);
	`

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		t.Fatalf("failed to create test schema: %v", err)
	}

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// testDevice creates a device for testing.
func testDevice(id, name string) *Device {
	return &Device{
		ID:         id,
		Name:       name,
		Slug:       GenerateSlug(name),
		DeviceType: "dcs7280",
		Role:       "leaf",
		Status:     StatusActive,
		Site:       "lon-dc1",
		Serial:     "SN-" + id,
		Tags:       []string{"core", "lab"},
	}
}

func TestSQLiteRepository_CreateAndGetByID(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	d := testDevice("dev-1", "core-sw-01")
	if err := repo.Create(ctx, d); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if d.CreatedAt.IsZero() || d.UpdatedAt.IsZero() {
		t.Error("Create() should set timestamps")
	}

	got, err := repo.GetByID(ctx, "dev-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if got.Name != "core-sw-01" {
		t.Errorf("Name = %q, want core-sw-01", got.Name)
	}
	if got.DeviceType != "dcs7280" {
		t.Errorf("DeviceType = %q, want dcs7280", got.DeviceType)
	}
	if got.Role != "leaf" || got.Site != "lon-dc1" || got.Serial != "SN-dev-1" {
		t.Errorf("optional fields = %q/%q/%q", got.Role, got.Site, got.Serial)
	}
	if got.Status != StatusActive {
		t.Errorf("Status = %q, want active", got.Status)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "core" {
		t.Errorf("Tags = %v, want [core lab]", got.Tags)
	}
	if !got.CreatedAt.Equal(d.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, d.CreatedAt)
	}
}

func TestSQLiteRepository_OptionalFieldsNull(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	ctx := context.Background()

	d := &Device{ID: "dev-2", Name: "edge-01", Slug: "edge-01", DeviceType: "mx204", Status: StatusPlanned}
	if err := repo.Create(ctx, d); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	var role sql.NullString
	if err := db.QueryRow("SELECT role FROM devices WHERE id = ?", "dev-2").Scan(&role); err != nil {
		t.Fatalf("query role: %v", err)
	}
	if role.Valid {
		t.Errorf("role should be NULL, got %q", role.String)
	}

	got, err := repo.GetByID(ctx, "dev-2")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Role != "" || got.Tags != nil {
		t.Errorf("got Role=%q Tags=%v, want empty", got.Role, got.Tags)
	}
}

func TestSQLiteRepository_GetByName(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testDevice("dev-1", "core-sw-01")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByName(ctx, "core-sw-01")
	if err != nil {
		t.Fatalf("GetByName() error = %v", err)
	}
	if got.ID != "dev-1" {
		t.Errorf("ID = %q, want dev-1", got.ID)
	}

	// Names match exactly.
	for _, name := range []string{"CORE-SW-01", "core-sw-0", "core-sw-01 ", ""} {
		if _, err := repo.GetByName(ctx, name); !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("GetByName(%q) error = %v, want ErrDeviceNotFound", name, err)
		}
	}
}

func TestSQLiteRepository_GetByID_NotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	_, err := repo.GetByID(context.Background(), "missing")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetByID() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestSQLiteRepository_Create_Duplicate(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testDevice("dev-1", "core-sw-01")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tests := []struct {
		name   string
		device *Device
	}{
		{"same id", testDevice("dev-1", "core-sw-02")},
		{"same name", testDevice("dev-2", "core-sw-01")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(ctx, tt.device)
			if !errors.Is(err, ErrDeviceExists) {
				t.Errorf("Create() error = %v, want ErrDeviceExists", err)
			}
		})
	}
}

func TestSQLiteRepository_List(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	empty, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("List() on empty table = %d devices", len(empty))
	}

	for _, d := range []*Device{
		testDevice("dev-2", "spine-01"),
		testDevice("dev-1", "leaf-01"),
		testDevice("dev-3", "border-01"),
	} {
		if err := repo.Create(ctx, d); err != nil {
			t.Fatalf("Create(%s) error = %v", d.Name, err)
		}
	}

	devices, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}

	want := []string{"border-01", "leaf-01", "spine-01"}
	if len(devices) != len(want) {
		t.Fatalf("List() returned %d devices, want %d", len(devices), len(want))
	}
	for i, name := range want {
		if devices[i].Name != name {
			t.Errorf("devices[%d].Name = %q, want %q", i, devices[i].Name, name)
		}
	}
}

func TestSQLiteRepository_Update(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	d := testDevice("dev-1", "core-sw-01")
	if err := repo.Create(ctx, d); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	before := d.UpdatedAt

	time.Sleep(2 * time.Millisecond)

	d.Status = StatusOffline
	d.Tags = []string{"maintenance"}
	if err := repo.Update(ctx, d); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !d.UpdatedAt.After(before) {
		t.Errorf("UpdatedAt not advanced: before %v after %v", before, d.UpdatedAt)
	}

	got, err := repo.GetByID(ctx, "dev-1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Status != StatusOffline {
		t.Errorf("Status = %q, want offline", got.Status)
	}
	if len(got.Tags) != 1 || got.Tags[0] != "maintenance" {
		t.Errorf("Tags = %v, want [maintenance]", got.Tags)
	}
	if !got.UpdatedAt.Equal(d.UpdatedAt) {
		t.Errorf("stored UpdatedAt = %v, want %v", got.UpdatedAt, d.UpdatedAt)
	}
}

func TestSQLiteRepository_Update_NotFound(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	err := repo.Update(context.Background(), testDevice("missing", "ghost"))
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("Update() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestSQLiteRepository_Update_NameTaken(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	a := testDevice("dev-1", "core-sw-01")
	b := testDevice("dev-2", "core-sw-02")
	for _, d := range []*Device{a, b} {
		if err := repo.Create(ctx, d); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	b.Name = "core-sw-01"
	if err := repo.Update(ctx, b); !errors.Is(err, ErrDeviceExists) {
		t.Errorf("Update() error = %v, want ErrDeviceExists", err)
	}
}

func TestSQLiteRepository_Delete(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, testDevice("dev-1", "core-sw-01")); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.Delete(ctx, "dev-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.GetByID(ctx, "dev-1"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetByID() after delete error = %v, want ErrDeviceNotFound", err)
	}
	if err := repo.Delete(ctx, "dev-1"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("second Delete() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestSQLiteRepository_ClosedDB(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteRepository(db)
	db.Close()

	_, err := repo.GetByName(context.Background(), "core-sw-01")
	if err == nil || errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetByName() on closed db error = %v, want a non-not-found error", err)
	}
}

func TestIsUniqueConstraintError(t *testing.T) {
	if isUniqueConstraintError(nil) {
		t.Error("nil should not be a unique constraint error")
	}
	if !isUniqueConstraintError(errors.New("UNIQUE constraint failed: devices.name")) {
		t.Error("expected unique constraint error to be detected")
	}
	if isUniqueConstraintError(errors.New("database is locked")) {
		t.Error("unrelated error detected as unique constraint error")
	}
}

// TestRegistry_ListDevices_ExternalWrites verifies a listing includes
// devices another registry wrote after this one loaded its cache, even once
// a lookup has cached one of them.
func TestRegistry_ListDevices_ExternalWrites(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	reg := NewRegistry(NewSQLiteRepository(db))
	if err := reg.RefreshCache(ctx); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}

	other := NewRegistry(NewSQLiteRepository(db))
	for _, d := range []*Device{testDevice("dev-1", "core-sw-01"), testDevice("dev-2", "core-sw-02")} {
		if err := other.CreateDevice(ctx, d); err != nil {
			t.Fatalf("CreateDevice(%s) error = %v", d.Name, err)
		}
	}

	if l := reg.LookupByName(ctx, "core-sw-01"); l.Outcome != LookupFound {
		t.Fatalf("LookupByName() outcome = %q, want found", l.Outcome)
	}

	devices, err := reg.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices() error = %v", err)
	}
	if len(devices) != 2 {
		t.Fatalf("ListDevices() returned %d devices, want 2", len(devices))
	}
	if reg.GetDeviceCount() != 2 {
		t.Errorf("GetDeviceCount() after ListDevices = %d, want 2", reg.GetDeviceCount())
	}

	if err := other.DeleteDevice(ctx, "dev-2"); err != nil {
		t.Fatalf("DeleteDevice() error = %v", err)
	}
	devices, err = reg.ListDevices(ctx)
	if err != nil {
		t.Fatalf("ListDevices() error = %v", err)
	}
	if len(devices) != 1 || devices[0].Name != "core-sw-01" {
		t.Errorf("ListDevices() after external delete = %v, want only core-sw-01", devices)
	}
}

// TestSaveOperation_RefreshesUpdatedAt verifies the save operation writes
// through to the devices table.
func TestSaveOperation_RefreshesUpdatedAt(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	repo := NewSQLiteRepository(db)
	reg := NewRegistry(repo)

	if err := reg.CreateDevice(ctx, testDevice("dev-1", "core-sw-01")); err != nil {
		t.Fatalf("CreateDevice() error = %v", err)
	}
	before, err := repo.GetByName(ctx, "core-sw-01")
	if err != nil {
		t.Fatalf("GetByName() error = %v", err)
	}

	time.Sleep(5 * time.Millisecond)

	l := reg.LookupByName(ctx, "core-sw-01")
	if err := NewSaveOperation(reg).Perform(ctx, l.Device); err != nil {
		t.Fatalf("Perform() error = %v", err)
	}

	after, err := repo.GetByName(ctx, "core-sw-01")
	if err != nil {
		t.Fatalf("GetByName() error = %v", err)
	}
	if !after.UpdatedAt.After(before.UpdatedAt) {
		t.Errorf("updated_at = %v, want after %v", after.UpdatedAt, before.UpdatedAt)
	}
	if !after.CreatedAt.Equal(before.CreatedAt) {
		t.Errorf("created_at changed: %v -> %v", before.CreatedAt, after.CreatedAt)
	}
	if after.Name != before.Name || after.DeviceType != before.DeviceType || after.Status != before.Status {
		t.Errorf("saved record = %+v, want fields unchanged from %+v", after, before)
	}
}

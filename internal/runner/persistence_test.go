package runner

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/nsot-jobs/internal/device"
	"github.com/nerrad567/nsot-jobs/internal/infrastructure/database"
	"github.com/nerrad567/nsot-jobs/internal/job"
	"github.com/nerrad567/nsot-jobs/internal/jobresult"
	_ "github.com/nerrad567/nsot-jobs/migrations"
)

// newSQLiteRunner wires the device lookup job to a migrated in-memory
// database the way nsotjobs does with jobs.device_lookup.operation=save.
func newSQLiteRunner(t *testing.T) (*Runner, device.Repository) {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Config{Path: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(ctx))

	repo := device.NewSQLiteRepository(db.DB)
	registry := device.NewRegistry(repo)
	require.NoError(t, registry.CreateDevice(ctx, &device.Device{Name: "core-sw-01", DeviceType: "dcs-7280"}))

	r := New(jobresult.NewSQLiteRepository(db.DB))
	require.NoError(t, r.Register(job.NewDeviceLookupJob(registry, device.NewSaveOperation(registry))))
	return r, repo
}

func TestRun_DryRunLeavesRecordUntouched(t *testing.T) {
	r, repo := newSQLiteRunner(t)
	ctx := context.Background()

	before, err := repo.GetByName(ctx, "core-sw-01")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	result, err := r.Run(ctx, lookupSlug, map[string]any{"device_name": "core-sw-01", "dry_run": true})
	require.NoError(t, err)
	assert.Contains(t, messages(result.Entries), "Dry run mode - no changes made")

	after, err := repo.GetByName(ctx, "core-sw-01")
	require.NoError(t, err)
	assert.True(t, after.UpdatedAt.Equal(before.UpdatedAt), "updated_at changed from %v to %v", before.UpdatedAt, after.UpdatedAt)
	assert.Equal(t, before, after)
}

func TestRun_SaveRefreshesUpdatedAt(t *testing.T) {
	r, repo := newSQLiteRunner(t)
	ctx := context.Background()

	before, err := repo.GetByName(ctx, "core-sw-01")
	require.NoError(t, err)
	time.Sleep(5 * time.Millisecond)

	result, err := r.Run(ctx, lookupSlug, map[string]any{"device_name": "core-sw-01", "dry_run": false})
	require.NoError(t, err)
	assert.Contains(t, messages(result.Entries), "Operations completed successfully!")
	assert.Zero(t, result.Counts[job.LevelError])

	after, err := repo.GetByName(ctx, "core-sw-01")
	require.NoError(t, err)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt), "updated_at %v not after %v", after.UpdatedAt, before.UpdatedAt)
	assert.True(t, after.CreatedAt.Equal(before.CreatedAt))
	assert.Equal(t, before.DeviceType, after.DeviceType)
}

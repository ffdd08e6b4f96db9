package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	_ "github.com/nerrad567/nsot-jobs/migrations"

	"github.com/nerrad567/nsot-jobs/internal/device"
	"github.com/nerrad567/nsot-jobs/internal/infrastructure/config"
	"github.com/nerrad567/nsot-jobs/internal/infrastructure/database"
	"github.com/nerrad567/nsot-jobs/internal/infrastructure/logging"
	"github.com/nerrad567/nsot-jobs/internal/job"
	"github.com/nerrad567/nsot-jobs/internal/jobresult"
	"github.com/nerrad567/nsot-jobs/internal/runner"
)

// operationSave selects device.SaveOperation for non-dry-run lookups.
const operationSave = "save"

// app is the set of components every subcommand works with.
type app struct {
	cfg      *config.Config
	log      *logging.Logger
	db       *database.DB
	registry *device.Registry
	results  jobresult.Repository // nil when jobs.persist_results is false
	runner   *runner.Runner
}

// openApp loads configuration, opens and migrates the database, loads the
// device registry and registers the jobs.
//
// Parameters:
//   - ctx: Context for startup I/O
//   - opts: Root flags
//   - logOut: Log destination; nil uses logging.output from config
//
// Returns:
//   - *app: Ready to use; call close when done
//   - error: If any component fails to start
func openApp(ctx context.Context, opts *rootOptions, logOut io.Writer) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	var log *logging.Logger
	if logOut != nil {
		log = logging.NewWithWriter(logOut, cfg.Logging, version)
	} else {
		log = logging.New(cfg.Logging, version)
	}

	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Migrate(ctx); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	registry := device.NewRegistry(device.NewSQLiteRepository(db.DB))
	registry.SetLogger(log)
	if err := registry.RefreshCache(ctx); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("loading device registry: %w", err)
	}
	log.Debug("device registry initialised", "devices", registry.GetDeviceCount())

	a := &app{
		cfg:      cfg,
		log:      log,
		db:       db,
		registry: registry,
	}

	if cfg.Jobs.PersistResults {
		a.results = jobresult.NewSQLiteRepository(db.DB)
		a.runner = runner.New(a.results)
	} else {
		a.runner = runner.New(nil)
	}
	a.runner.SetLogger(log)

	if err := a.runner.Register(job.NewDeviceLookupJob(registry, lookupOperation(cfg, registry))); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("registering jobs: %w", err)
	}

	return a, nil
}

// lookupOperation returns the operation a non-dry-run device lookup performs.
func lookupOperation(cfg *config.Config, registry *device.Registry) job.Operation {
	if cfg.Jobs.DeviceLookup.Operation == operationSave {
		return device.NewSaveOperation(registry)
	}
	return job.NoopOperation{}
}

// loadConfig reads the resolved config file. A missing default file falls
// back to built-in defaults; a missing explicit file is an error.
func loadConfig(opts *rootOptions) (*config.Config, error) {
	path, explicit := resolveConfigPath(opts.configPath)

	cfg, err := config.Load(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return config.Default(), nil
		}
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// close releases the database.
func (a *app) close() {
	if err := a.db.Close(); err != nil {
		a.log.Error("error closing database", "error", err)
	}
}

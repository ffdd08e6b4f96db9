// Package database provides SQLite connectivity for nsot-jobs.
//
// This package manages:
//   - Database connection with WAL mode for concurrent API reads
//   - Schema migrations embedded into the binary
//   - Connection lifecycle and health checks
//
// The device registry (devices table) and the job results store
// (job_results table) share one database.
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: cfg.Database.Path, WALMode: true})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are additive-only. New columns must be NULLABLE or have DEFAULT values.
package database

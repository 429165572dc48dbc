// Package sqlite provides a unified SQLite-based implementation of the
// hub's driven store ports.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that
// requires no CGO. It implements every store through a single database:
//
//   - ResourceStore: canonical resources, unique on the origin key
//   - ConnectionStore: per-site platform connections
//   - SyncJobStore: sync job summaries
//   - StagingStore: push-back payloads awaiting approval
//   - SiteIntegrationStore: per-site instrumentation settings
//   - SchedulerStore: scheduled task state and history
//
// # Schema
//
// The schema is managed through versioned migrations embedded from the
// migrations/ directory. Applied versions are recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.sercha-hub/data/hub.db
//
// # Concurrency
//
// The database runs in WAL mode with a busy timeout. Lock contention that
// outlasts the timeout surfaces as a transient *domain.StorageError.
package sqlite

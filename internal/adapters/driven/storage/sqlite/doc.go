// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO. It implements every store interface through a single database connection:
//
//   - ProjectStore: Projects and their group emails
//   - IntegrationStore: Sealed Drive authorizations
//   - TempTokenStore: Tokens awaiting project attachment
//   - SelectionStore: Items chosen for sync
//   - IngestionStore: Ingestion records
//   - SchedulerStore: Scheduler task state and history
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.drivesync/data/drivesync.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode.
package sqlite

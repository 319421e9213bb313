// Package sqlite provides a unified SQLite-based implementation of driven port interfaces.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. It implements multiple store interfaces
// through a single database connection:
//
//   - SourceRecordStore: replicated notice record persistence and claiming
//   - CursorStore: per-collection replication high-water-marks
//   - SyncRunStore: replication run state
//   - UnitStore: units, unit files and manifests
//   - HashCache: content-digest memoisation with expiry
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.noticeflow/data/noticeflow.db
//
// # Thread Safety
//
// All operations are thread-safe. The store uses database-level locking provided
// by SQLite in WAL mode. Claim is a single UPDATE ... RETURNING statement, so
// concurrent dispatchers never receive the same record.
package sqlite

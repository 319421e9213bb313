// Package domain defines the core business entities for noticeflow.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - SourceRecord: A replicated procurement notice with attachment references
//   - Unit: A content-addressed bundle of sanitised files plus manifest
//   - Classification: The byte-signature verdict for a single file
//   - SyncRun: One replication run with its window, status and stats
//   - CursorState: The persisted high-water-mark for resumable replication
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain

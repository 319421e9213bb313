// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - SourceRecordStore: Record persistence with the atomic claim primitive
//   - UnitStore: Unit and manifest persistence
//   - CursorStore: Replication high-water-mark persistence
//   - SyncRunStore: Run status and progress persistence
//   - HashCache: Content-addressed memoisation
//   - Classifier: Byte-signature file detection
//   - ArchiveExtractor: Resource-bounded unpacking
//   - AttachmentFetcher: HTTP attachment download
//   - NoticeFeed: The upstream record source
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - QuarantineStore: Without it failed units lose their diagnostic copy,
//     which is logged but never escalated.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter or service package
package driven

package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/noticeflow/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/noticeflow/internal/core/domain"
	"github.com/custodia-labs/noticeflow/internal/core/ports/driven"
)

// Store is a unified SQLite-based storage that provides access to
// all metadata store interfaces through wrapper types.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.noticeflow/data/noticeflow.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".noticeflow", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "noticeflow.db")

	// Open database with WAL mode for better concurrency
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// SourceRecordStore returns a SourceRecordStore interface backed by this store.
func (s *Store) SourceRecordStore() driven.SourceRecordStore {
	return &sourceRecordStore{store: s}
}

// CursorStore returns a CursorStore interface backed by this store.
func (s *Store) CursorStore() driven.CursorStore {
	return &cursorStore{store: s}
}

// SyncRunStore returns a SyncRunStore interface backed by this store.
func (s *Store) SyncRunStore() driven.SyncRunStore {
	return &syncRunStore{store: s}
}

// UnitStore returns a UnitStore interface backed by this store.
func (s *Store) UnitStore() driven.UnitStore {
	return &unitStore{store: s}
}

// HashCache returns a HashCache interface backed by this store.
func (s *Store) HashCache() driven.HashCache {
	return &hashCache{store: s}
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}
		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Source Record Store ====================

// sourceRecordStore implements driven.SourceRecordStore.
type sourceRecordStore struct {
	store *Store
}

var _ driven.SourceRecordStore = (*sourceRecordStore)(nil)

const recordColumns = `source_tag, notice_number, attachments, status, last_error, publish_date, created_at, updated_at`

// Insert creates a record if its natural key is absent.
func (s *sourceRecordStore) Insert(ctx context.Context, record domain.SourceRecord) error {
	attachmentsJSON, err := json.Marshal(record.Attachments)
	if err != nil {
		return fmt.Errorf("marshalling attachments: %w", err)
	}

	now := time.Now().UTC()
	if record.Status == "" {
		record.Status = domain.RecordPending
	}

	result, err := s.store.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO source_records
			(source_tag, notice_number, attachments, status, last_error, publish_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, '', ?, ?, ?)
	`, record.SourceTag, record.NoticeNumber, string(attachmentsJSON),
		record.Status, record.PublishDate.UTC(), now, now)
	if err != nil {
		return fmt.Errorf("inserting record: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking insert: %w", err)
	}
	if affected == 0 {
		return domain.ErrAlreadyExists
	}
	return nil
}

// Get retrieves a record by natural key.
func (s *sourceRecordStore) Get(ctx context.Context, sourceTag, noticeNumber string) (*domain.SourceRecord, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM source_records WHERE source_tag = ? AND notice_number = ?
	`, sourceTag, noticeNumber)

	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return record, nil
}

// Claim atomically transitions up to limit pending records to downloading.
// The single UPDATE ... RETURNING statement is the atomicity guarantee:
// SQLite executes it as one unit, so two dispatchers can never flip the
// same row.
func (s *sourceRecordStore) Claim(ctx context.Context, limit int) ([]domain.SourceRecord, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		UPDATE source_records
		SET status = ?, updated_at = ?
		WHERE rowid IN (
			SELECT rowid FROM source_records
			WHERE status = ?
			ORDER BY created_at
			LIMIT ?
		)
		RETURNING `+recordColumns,
		domain.RecordDownloading, time.Now().UTC(), domain.RecordPending, limit)
	if err != nil {
		return nil, fmt.Errorf("claiming records: %w", domain.ErrStoreUnavailable)
	}
	defer rows.Close()

	var claimed []domain.SourceRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading claimed records: %w", err)
	}
	return claimed, nil
}

// UpdateStatus moves a record to the given status.
func (s *sourceRecordStore) UpdateStatus(ctx context.Context, sourceTag, noticeNumber string, status domain.RecordStatus, lastErr string) error {
	if status != domain.RecordError {
		lastErr = ""
	}
	result, err := s.store.db.ExecContext(ctx, `
		UPDATE source_records
		SET status = ?, last_error = ?, updated_at = ?
		WHERE source_tag = ? AND notice_number = ?
	`, status, lastErr, time.Now().UTC(), sourceTag, noticeNumber)
	if err != nil {
		return fmt.Errorf("updating record status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update: %w", err)
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListByStatus returns records in the given status, oldest first.
func (s *sourceRecordStore) ListByStatus(ctx context.Context, status domain.RecordStatus, limit int) ([]domain.SourceRecord, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats negative LIMIT as unlimited
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+recordColumns+`
		FROM source_records WHERE status = ?
		ORDER BY created_at
		LIMIT ?
	`, status, limit)
	if err != nil {
		return nil, fmt.Errorf("listing records: %w", err)
	}
	defer rows.Close()

	var records []domain.SourceRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}
	return records, rows.Err()
}

// CountByStatus returns the number of records per status.
func (s *sourceRecordStore) CountByStatus(ctx context.Context) (map[domain.RecordStatus]int, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT status, COUNT(*) FROM source_records GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("counting records: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.RecordStatus]int)
	for rows.Next() {
		var status domain.RecordStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*domain.SourceRecord, error) {
	var record domain.SourceRecord
	var attachmentsJSON string
	var publishDate, createdAt, updatedAt sql.NullTime

	if err := row.Scan(&record.SourceTag, &record.NoticeNumber, &attachmentsJSON,
		&record.Status, &record.LastError, &publishDate, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning record: %w", err)
	}

	if err := json.Unmarshal([]byte(attachmentsJSON), &record.Attachments); err != nil {
		return nil, fmt.Errorf("unmarshaling attachments: %w", err)
	}
	if publishDate.Valid {
		record.PublishDate = publishDate.Time
	}
	if createdAt.Valid {
		record.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		record.UpdatedAt = updatedAt.Time
	}
	return &record, nil
}

// ==================== Cursor Store ====================

// cursorStore implements driven.CursorStore.
type cursorStore struct {
	store *Store
}

var _ driven.CursorStore = (*cursorStore)(nil)

// Get retrieves the cursor for a collection.
func (s *cursorStore) Get(ctx context.Context, collection string) (*domain.CursorState, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT collection, cursor_field, last_value, last_run_at
		FROM cursors WHERE collection = ?
	`, collection)

	var cursor domain.CursorState
	if err := row.Scan(&cursor.Collection, &cursor.CursorField, &cursor.LastValue, &cursor.LastRunAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning cursor: %w", err)
	}
	return &cursor, nil
}

// Advance moves the cursor forward. The conditional upsert keeps the
// stored value monotonic: an Advance to an earlier value changes nothing.
func (s *cursorStore) Advance(ctx context.Context, collection, field string, value, runAt time.Time) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO cursors (collection, cursor_field, last_value, last_run_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(collection) DO UPDATE SET
			cursor_field = excluded.cursor_field,
			last_value = excluded.last_value,
			last_run_at = excluded.last_run_at
		WHERE excluded.last_value > cursors.last_value
	`, collection, field, value.UTC(), runAt.UTC())
	if err != nil {
		return fmt.Errorf("advancing cursor: %w", err)
	}
	return nil
}

// ==================== Sync Run Store ====================

// syncRunStore implements driven.SyncRunStore.
type syncRunStore struct {
	store *Store
}

var _ driven.SyncRunStore = (*syncRunStore)(nil)

const runColumns = `id, collection, mode, status, window_start, window_end,
	scanned, inserted, skipped_existing, errors, current_cursor, error, started_at, ended_at`

// Save stores or updates a run.
func (s *syncRunStore) Save(ctx context.Context, run domain.SyncRun) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO sync_runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			scanned = excluded.scanned,
			inserted = excluded.inserted,
			skipped_existing = excluded.skipped_existing,
			errors = excluded.errors,
			current_cursor = excluded.current_cursor,
			error = excluded.error,
			ended_at = excluded.ended_at
	`, run.ID, run.Collection, run.Mode, run.Status,
		nullTime(run.Window.Start), nullTime(run.Window.End),
		run.Stats.Scanned, run.Stats.Inserted, run.Stats.SkippedExisting, run.Stats.Errors,
		nullTime(run.Stats.CurrentCursor), run.Error,
		run.StartedAt.UTC(), nullTime(run.EndedAt))
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	return nil
}

// Get retrieves a run by id.
func (s *syncRunStore) Get(ctx context.Context, id string) (*domain.SyncRun, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT `+runColumns+` FROM sync_runs WHERE id = ?
	`, id)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return run, nil
}

// List returns runs, most recently started first.
func (s *syncRunStore) List(ctx context.Context, limit int) ([]domain.SyncRun, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT `+runColumns+` FROM sync_runs
		ORDER BY started_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []domain.SyncRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func scanRun(row rowScanner) (*domain.SyncRun, error) {
	var run domain.SyncRun
	var windowStart, windowEnd, currentCursor, endedAt sql.NullTime

	if err := row.Scan(&run.ID, &run.Collection, &run.Mode, &run.Status,
		&windowStart, &windowEnd,
		&run.Stats.Scanned, &run.Stats.Inserted, &run.Stats.SkippedExisting, &run.Stats.Errors,
		&currentCursor, &run.Error, &run.StartedAt, &endedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning run: %w", err)
	}

	if windowStart.Valid {
		run.Window.Start = windowStart.Time
	}
	if windowEnd.Valid {
		run.Window.End = windowEnd.Time
	}
	if currentCursor.Valid {
		run.Stats.CurrentCursor = currentCursor.Time
	}
	if endedAt.Valid {
		run.EndedAt = endedAt.Time
	}
	return &run, nil
}

// ==================== Unit Store ====================

// unitStore implements driven.UnitStore.
type unitStore struct {
	store *Store
}

var _ driven.UnitStore = (*unitStore)(nil)

// SaveUnit stores or updates a unit and its files. Files are replaced
// wholesale inside one transaction.
func (s *unitStore) SaveUnit(ctx context.Context, unit *domain.Unit) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	createdAt := unit.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO units (id, route, status, source_key, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			route = excluded.route,
			status = excluded.status,
			source_key = excluded.source_key,
			updated_at = excluded.updated_at
	`, unit.ID, unit.Route, unit.Status, unit.SourceKey, createdAt.UTC(), now)
	if err != nil {
		return fmt.Errorf("saving unit: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM unit_files WHERE unit_id = ?`, unit.ID); err != nil {
		return fmt.Errorf("clearing unit files: %w", err)
	}
	for i, f := range unit.Files {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO unit_files
				(id, unit_id, position, original_name, stored_name, detected_type, mime,
				 needs_ocr, requires_conversion, sha256, size, converted_from, is_duplicate, original_file_id)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, f.ID, unit.ID, i, f.OriginalName, f.StoredName, f.DetectedType, f.MIME,
			f.NeedsOCR, f.RequiresConversion, f.SHA256, f.Size,
			f.ConvertedFrom, f.IsDuplicate, f.OriginalFileID)
		if err != nil {
			return fmt.Errorf("saving unit file %s: %w", f.StoredName, err)
		}
	}

	return tx.Commit()
}

// GetUnit retrieves a unit with its files by id.
func (s *unitStore) GetUnit(ctx context.Context, id string) (*domain.Unit, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, route, status, source_key, created_at, updated_at
		FROM units WHERE id = ?
	`, id)

	var unit domain.Unit
	if err := row.Scan(&unit.ID, &unit.Route, &unit.Status, &unit.SourceKey,
		&unit.CreatedAt, &unit.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning unit: %w", err)
	}

	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, original_name, stored_name, detected_type, mime,
		       needs_ocr, requires_conversion, sha256, size, converted_from, is_duplicate, original_file_id
		FROM unit_files WHERE unit_id = ?
		ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("listing unit files: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var f domain.UnitFile
		if err := rows.Scan(&f.ID, &f.OriginalName, &f.StoredName, &f.DetectedType, &f.MIME,
			&f.NeedsOCR, &f.RequiresConversion, &f.SHA256, &f.Size,
			&f.ConvertedFrom, &f.IsDuplicate, &f.OriginalFileID); err != nil {
			return nil, fmt.Errorf("scanning unit file: %w", err)
		}
		unit.Files = append(unit.Files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &unit, nil
}

// SaveManifest stores the serialised manifest for a unit.
func (s *unitStore) SaveManifest(ctx context.Context, unitID string, manifest []byte) error {
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO manifests (unit_id, manifest)
		VALUES (?, ?)
		ON CONFLICT(unit_id) DO UPDATE SET manifest = excluded.manifest
	`, unitID, string(manifest))
	if err != nil {
		return fmt.Errorf("saving manifest: %w", err)
	}
	return nil
}

// GetManifest retrieves the serialised manifest for a unit.
func (s *unitStore) GetManifest(ctx context.Context, unitID string) ([]byte, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT manifest FROM manifests WHERE unit_id = ?
	`, unitID)

	var manifest string
	if err := row.Scan(&manifest); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning manifest: %w", err)
	}
	return []byte(manifest), nil
}

// ==================== Hash Cache ====================

// hashCache implements driven.HashCache.
type hashCache struct {
	store *Store
}

var _ driven.HashCache = (*hashCache)(nil)

// Get returns the entry for a digest, or domain.ErrNotFound when the
// entry is absent or expired. Expired rows are left for Put to overwrite.
func (c *hashCache) Get(ctx context.Context, sha256 string) (*domain.CacheEntry, error) {
	row := c.store.db.QueryRowContext(ctx, `
		SELECT sha256, payload, expires_at FROM hash_cache WHERE sha256 = ?
	`, sha256)

	var entry domain.CacheEntry
	if err := row.Scan(&entry.SHA256, &entry.Payload, &entry.ExpiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning cache entry: %w", err)
	}
	if !entry.Fresh(time.Now()) {
		return nil, domain.ErrNotFound
	}
	return &entry, nil
}

// Put upserts an entry with the given lifetime.
func (c *hashCache) Put(ctx context.Context, sha256 string, payload []byte, ttlDays int) error {
	_, err := c.store.db.ExecContext(ctx, `
		INSERT INTO hash_cache (sha256, payload, expires_at)
		VALUES (?, ?, ?)
		ON CONFLICT(sha256) DO UPDATE SET
			payload = excluded.payload,
			expires_at = excluded.expires_at
	`, sha256, payload, time.Now().UTC().AddDate(0, 0, ttlDays))
	if err != nil {
		return fmt.Errorf("saving cache entry: %w", err)
	}
	return nil
}

// nullTime maps the zero time to NULL.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrStoreUnavailable indicates the coordination store is unreachable.
	// Claim and cursor operations fail closed on it, never assume success.
	ErrStoreUnavailable = errors.New("store unavailable")

	// Extraction errors. All of them are fatal for the input at hand,
	// never retried, and send the unit to quarantine.

	// ErrBadArchive indicates corrupt or unreadable archive content.
	ErrBadArchive = errors.New("bad archive")

	// ErrArchiveTooLarge indicates the declared uncompressed size would
	// exceed the global extraction cap (zip-bomb defence).
	ErrArchiveTooLarge = errors.New("archive exceeds size cap")

	// ErrTooManyMembers indicates the archive exceeds the member count cap.
	ErrTooManyMembers = errors.New("archive exceeds member cap")

	// ErrToolUnavailable indicates the external extraction tool is not
	// installed. Distinct from a corrupt archive.
	ErrToolUnavailable = errors.New("extraction tool unavailable")

	// ErrNotAnArchive indicates the file's signature says it is not an
	// archive (a real legacy doc, or HTML mislabelled as one).
	ErrNotAnArchive = errors.New("not an archive")

	// Manifest errors. Fatal for the unit, quarantined.

	// ErrEmptyUnit indicates a unit with no processable files.
	ErrEmptyUnit = errors.New("empty unit")

	// ErrMissingFile indicates a unit input file is no longer present on
	// disk at assembly time.
	ErrMissingFile = errors.New("missing unit file")

	// Download errors. Transient ones are retried with backoff.

	// ErrDownloadTimeout indicates the HTTP read deadline was exceeded.
	ErrDownloadTimeout = errors.New("download timeout")

	// ErrHTTPStatus indicates a non-success HTTP response.
	ErrHTTPStatus = errors.New("unexpected http status")

	// ErrNetwork indicates a transport-level failure.
	ErrNetwork = errors.New("network error")

	// ErrRunNotFound indicates an unknown sync run id.
	ErrRunNotFound = errors.New("sync run not found")

	// ErrRunTerminal indicates an operation on a run that already
	// reached a terminal status.
	ErrRunTerminal = errors.New("sync run already terminal")
)

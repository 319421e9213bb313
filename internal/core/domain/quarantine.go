package domain

import "time"

// QuarantineRecord is the durable diagnostic trail of a fatally failed
// unit: a copy of its input tree plus the structured error. Created only
// on unrecoverable failure, never deleted automatically.
type QuarantineRecord struct {
	// UnitID identifies the failed unit.
	UnitID string

	// Route is the route the unit had (or would have had) when it failed.
	Route Route

	// Reason is the structured error message.
	Reason string

	// InputPath is where the copied input tree lives in the quarantine area.
	InputPath string

	// QuarantinedAt is when the record was created.
	QuarantinedAt time.Time
}

package domain

import "github.com/google/uuid"

// WorkforceCapacityDelta is a queued hiring wave (positive DeltaCapacity
// arriving at TickArrives) consumed exactly once. Layoffs (negative deltas)
// apply immediately and never appear as rows.
type WorkforceCapacityDelta struct {
	ID            uuid.UUID
	CompanyID     uuid.UUID
	DeltaCapacity int64 // positive
	TickQueued    int64
	TickArrives   int64
	CostCents     int64
	Applied       bool
	LockVersion   int64
}

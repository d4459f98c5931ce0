package domain

import "github.com/google/uuid"

type JobStatus string

const (
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusCompleted JobStatus = "COMPLETED"
	JobStatusCancelled JobStatus = "CANCELLED"
)

// ProductionJob is a time-boxed transformation. Inputs and cash are reserved
// or consumed at start; completion releases reserved inputs and credits
// output inventory. Completion is idempotent per job id.
type ProductionJob struct {
	ID            uuid.UUID
	CompanyID     uuid.UUID
	RecipeID      uuid.UUID
	RegionID      string
	Runs          int64 // recipe multiplier, >= 1
	Status        JobStatus
	TickStarted   int64
	TickCompletes int64
	CostCents     int64
	LockVersion   int64
}

// ResearchJob is a time-boxed research run; cost is deducted at start,
// completion upserts CompanyResearch and unlocks the node's recipes.
type ResearchJob struct {
	ID          uuid.UUID
	CompanyID   uuid.UUID
	NodeID      uuid.UUID
	Status      JobStatus
	TickStarted int64
	DueTick     int64
	CostCents   int64
	LockVersion int64
}

// IsJobDue implements the shared due check: currentTick >= dueTick.
func IsJobDue(currentTick, dueTick int64) bool {
	return currentTick >= dueTick
}

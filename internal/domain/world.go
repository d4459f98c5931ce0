package domain

import "time"

// WorldTickStateID is the fixed primary key of the singleton row.
const WorldTickStateID = 1

// WorldTickState is the single-row tick clock. LockVersion increments on
// every advance and guards against two orchestrator runs double-advancing;
// it follows the same conditional-update discipline as every other row
// rather than living as in-process global state.
type WorldTickState struct {
	ID             int
	CurrentTick    int64
	LockVersion    int64
	LastAdvancedAt time.Time
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Specialization is the company's economic focus. It biases nothing inside
// the kernel itself; tunables keyed by specialization live in the config the
// shell resolves.
type Specialization string

const (
	SpecializationNone       Specialization = "NONE"
	SpecializationIndustrial Specialization = "INDUSTRIAL"
	SpecializationTech       Specialization = "TECH"
	SpecializationLogistics  Specialization = "LOGISTICS"
)

const (
	// OrgEfficiencyMaxBps bounds orgEfficiencyBps to [0, 10000].
	OrgEfficiencyMaxBps int32 = 10_000
	// AllocationTotalPct is the exact sum the four workforce percentages
	// must have.
	AllocationTotalPct int32 = 100
)

// Company holds cash in minor currency units (cents) plus a reservation that
// is part of the cash balance but excluded from "available". Companies are
// never deleted; ownership is reassigned instead. OwnerPlayerID == nil marks
// an NPC (bot-run) company.
type Company struct {
	ID                uuid.UUID
	Code              string // stable short code, feeds deterministic hashing
	Name              string
	OwnerPlayerID     *uuid.UUID
	RegionID          string
	Specialization    Specialization
	CashCents         int64
	ReservedCashCents int64
	WorkforceCapacity int64
	OpsPct            int32
	ResearchPct       int32
	LogisticsPct      int32
	CorporatePct      int32
	OrgEfficiencyBps  int32
	LockVersion       int64
	CreatedAt         time.Time
}

func (c *Company) IsNPC() bool { return c.OwnerPlayerID == nil }

// AvailableCashCents is cash not earmarked for pending orders/jobs.
func (c *Company) AvailableCashCents() int64 {
	return c.CashCents - c.ReservedCashCents
}

func (c *Company) AllocationSum() int32 {
	return c.OpsPct + c.ResearchPct + c.LogisticsPct + c.CorporatePct
}

// AssertCashInvariant checks 0 <= reserved <= cash. Called before and after
// any cash mutation; a violation aborts the enclosing transaction, it is
// never silently clamped.
func (c *Company) AssertCashInvariant() error {
	if c.CashCents < 0 {
		return Invariantf("company %s has negative cash: %d", c.Code, c.CashCents)
	}
	if c.ReservedCashCents < 0 {
		return Invariantf("company %s has negative reserved cash: %d", c.Code, c.ReservedCashCents)
	}
	if c.ReservedCashCents > c.CashCents {
		return Invariantf("company %s reserved cash %d exceeds cash %d",
			c.Code, c.ReservedCashCents, c.CashCents)
	}
	return nil
}

// ClampEfficiencyBps bounds an efficiency value to [0, OrgEfficiencyMaxBps].
func ClampEfficiencyBps(bps int32) int32 {
	if bps < 0 {
		return 0
	}
	if bps > OrgEfficiencyMaxBps {
		return OrgEfficiencyMaxBps
	}
	return bps
}

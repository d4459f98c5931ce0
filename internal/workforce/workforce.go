// Package workforce implements allocation validation, per-tick salary
// accounting, and the hiring/layoff capacity delta lifecycle.
package workforce

import (
	"context"
	"time"

	"CorpKernel/internal/domain"
	"CorpKernel/internal/ledger"
	"CorpKernel/internal/store"

	"github.com/google/uuid"
)

// Config carries the fully-resolved workforce tunables. The kernel never
// reads these from the environment itself.
type Config struct {
	BaseSalaryPerCapacityCents int64
	HiringLeadTimeTicks        int64
	HiringCostPerCapacityCents int64
	SeverancePerCapacityCents  int64
	// SkewPenaltyPerPointBps scales how far an unbalanced allocation pulls
	// the efficiency target below 10000.
	SkewPenaltyPerPointBps int32
	// ShortfallPenaltyBps is subtracted from efficiency on a tick where
	// salary could not be paid in full.
	ShortfallPenaltyBps int32
	// RecoveryBps is how far efficiency moves toward its target per fully
	// paid tick.
	RecoveryBps int32
}

// AssertValidAllocation fails unless the four percentages sum to exactly 100
// and each is non-negative.
func AssertValidAllocation(ops, research, logistics, corporate int32) error {
	if ops < 0 || research < 0 || logistics < 0 || corporate < 0 {
		return domain.Invariantf("workforce allocation percentages must be non-negative, got %d/%d/%d/%d",
			ops, research, logistics, corporate)
	}
	if sum := ops + research + logistics + corporate; sum != domain.AllocationTotalPct {
		return domain.Invariantf("workforce allocation must sum to %d, got %d",
			domain.AllocationTotalPct, sum)
	}
	return nil
}

// SetAllocation updates a company's four workforce percentages.
func SetAllocation(ctx context.Context, tx store.Tx, companyID uuid.UUID, ops, research, logistics, corporate int32) error {
	if err := AssertValidAllocation(ops, research, logistics, corporate); err != nil {
		return err
	}
	c, err := tx.Companies().Get(ctx, companyID)
	if err != nil {
		return err
	}
	c.OpsPct, c.ResearchPct, c.LogisticsPct, c.CorporatePct = ops, research, logistics, corporate
	ok, err := tx.Companies().TryUpdate(ctx, c)
	if err != nil {
		return err
	}
	if !ok {
		return domain.Conflictf("company %s changed concurrently during allocation update", c.Code)
	}
	return nil
}

// allocationSkew measures deviation from an even 25/25/25/25 split, in
// percentage points. Range [0, 150].
func allocationSkew(c *domain.Company) int32 {
	skew := int32(0)
	for _, pct := range []int32{c.OpsPct, c.ResearchPct, c.LogisticsPct, c.CorporatePct} {
		d := pct - 25
		if d < 0 {
			d = -d
		}
		skew += d
	}
	return skew
}

// targetEfficiencyBps is the steady-state efficiency for the company's
// current allocation.
func targetEfficiencyBps(cfg Config, c *domain.Company) int32 {
	return domain.ClampEfficiencyBps(domain.OrgEfficiencyMaxBps - allocationSkew(c)*cfg.SkewPenaltyPerPointBps)
}

// RunSalaryTick charges every company its salary burn for the tick and
// recomputes orgEfficiencyBps. A company that cannot cover the full salary
// pays what the cash invariant allows and takes the shortfall penalty; the
// entry still posts so the ledger reflects the partial payment.
func RunSalaryTick(ctx context.Context, tx store.Tx, cfg Config, tick int64, at time.Time) error {
	companies, err := tx.Companies().List(ctx)
	if err != nil {
		return err
	}

	for _, c := range companies {
		salary := c.WorkforceCapacity * cfg.BaseSalaryPerCapacityCents
		paid := salary
		if avail := c.AvailableCashCents(); paid > avail {
			paid = avail
		}
		if paid < 0 {
			paid = 0
		}
		shortfall := paid < salary

		target := targetEfficiencyBps(cfg, c)
		eff := c.OrgEfficiencyBps
		if shortfall {
			eff -= cfg.ShortfallPenaltyBps
		} else {
			switch {
			case eff < target:
				eff += cfg.RecoveryBps
				if eff > target {
					eff = target
				}
			case eff > target:
				eff -= cfg.RecoveryBps
				if eff < target {
					eff = target
				}
			}
		}
		c.OrgEfficiencyBps = domain.ClampEfficiencyBps(eff)

		if salary == 0 {
			// No entry for zero-capacity companies, but the efficiency
			// recompute above still applies.
			ok, err := tx.Companies().TryUpdate(ctx, c)
			if err != nil {
				return err
			}
			if !ok {
				return domain.Conflictf("company %s changed concurrently during salary tick", c.Code)
			}
			continue
		}

		c.CashCents -= paid
		if _, err := ledger.Post(ctx, tx, ledger.Posting{
			Company:        c,
			Type:           domain.EntryTypeWorkforceSalary,
			DeltaCashCents: -paid,
			Tick:           tick,
			Memo:           salaryMemo(salary, paid),
			At:             at,
		}); err != nil {
			return err
		}
	}
	return nil
}

func salaryMemo(salary, paid int64) string {
	if paid == salary {
		return ""
	}
	return "partial salary payment"
}

// RequestHiring queues a positive capacity delta arriving after the lead
// time and posts the recruitment cost immediately.
func RequestHiring(ctx context.Context, tx store.Tx, cfg Config, companyID uuid.UUID, deltaCapacity, tick int64, at time.Time) (*domain.WorkforceCapacityDelta, error) {
	if deltaCapacity <= 0 {
		return nil, domain.Invariantf("hiring delta must be positive, got %d", deltaCapacity)
	}
	c, err := tx.Companies().Get(ctx, companyID)
	if err != nil {
		return nil, err
	}
	cost := deltaCapacity * cfg.HiringCostPerCapacityCents
	if c.AvailableCashCents() < cost {
		return nil, domain.InsufficientFundsf("company %s has %d cents available, hiring %d costs %d",
			c.Code, c.AvailableCashCents(), deltaCapacity, cost)
	}

	d := &domain.WorkforceCapacityDelta{
		ID:            uuid.New(),
		CompanyID:     companyID,
		DeltaCapacity: deltaCapacity,
		TickQueued:    tick,
		TickArrives:   tick + cfg.HiringLeadTimeTicks,
		CostCents:     cost,
	}

	if cost > 0 {
		c.CashCents -= cost
		if _, err := ledger.Post(ctx, tx, ledger.Posting{
			Company:        c,
			Type:           domain.EntryTypeWorkforceHiringCost,
			DeltaCashCents: -cost,
			Tick:           tick,
			RefID:          &d.ID,
			At:             at,
		}); err != nil {
			return nil, err
		}
	}

	if err := tx.CapacityDeltas().Insert(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// ApplyDueCapacityDeltas applies arrived hiring waves. The conditional
// consume guarantee makes it safe to call twice for the same tick: a delta
// that lost the update was already applied and is skipped.
func ApplyDueCapacityDeltas(ctx context.Context, tx store.Tx, tick int64) (int, error) {
	due, err := tx.CapacityDeltas().ListDue(ctx, tick)
	if err != nil {
		return 0, err
	}

	applied := 0
	for _, d := range due {
		ok, err := tx.CapacityDeltas().TryConsume(ctx, d.ID)
		if err != nil {
			return applied, err
		}
		if !ok {
			continue
		}
		c, err := tx.Companies().Get(ctx, d.CompanyID)
		if err != nil {
			return applied, err
		}
		c.WorkforceCapacity += d.DeltaCapacity
		ok, err = tx.Companies().TryUpdate(ctx, c)
		if err != nil {
			return applied, err
		}
		if !ok {
			return applied, domain.Conflictf("company %s changed concurrently while applying capacity delta %s",
				c.Code, d.ID)
		}
		applied++
	}
	return applied, nil
}

// RequestLayoff reduces capacity immediately, posts severance, and scales
// efficiency down in proportion to the capacity lost. Layoffs never queue.
func RequestLayoff(ctx context.Context, tx store.Tx, cfg Config, companyID uuid.UUID, deltaCapacity, tick int64, at time.Time) error {
	if deltaCapacity <= 0 {
		return domain.Invariantf("layoff delta must be positive, got %d", deltaCapacity)
	}
	c, err := tx.Companies().Get(ctx, companyID)
	if err != nil {
		return err
	}
	if deltaCapacity > c.WorkforceCapacity {
		return domain.Invariantf("company %s cannot lay off %d of %d capacity",
			c.Code, deltaCapacity, c.WorkforceCapacity)
	}

	severance := deltaCapacity * cfg.SeverancePerCapacityCents
	if c.AvailableCashCents() < severance {
		return domain.InsufficientFundsf("company %s has %d cents available, severance costs %d",
			c.Code, c.AvailableCashCents(), severance)
	}

	oldCapacity := c.WorkforceCapacity
	c.WorkforceCapacity -= deltaCapacity
	if oldCapacity > 0 {
		scaled := int64(c.OrgEfficiencyBps) * c.WorkforceCapacity / oldCapacity
		c.OrgEfficiencyBps = domain.ClampEfficiencyBps(int32(scaled))
	}

	if severance > 0 {
		c.CashCents -= severance
		if _, err := ledger.Post(ctx, tx, ledger.Posting{
			Company:        c,
			Type:           domain.EntryTypeWorkforceSeverance,
			DeltaCashCents: -severance,
			Tick:           tick,
			At:             at,
		}); err != nil {
			return err
		}
		return nil
	}

	ok, err := tx.Companies().TryUpdate(ctx, c)
	if err != nil {
		return err
	}
	if !ok {
		return domain.Conflictf("company %s changed concurrently during layoff", c.Code)
	}
	return nil
}

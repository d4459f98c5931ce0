package workforce_test

import (
	"context"
	"testing"

	"CorpKernel/internal/domain"
	"CorpKernel/internal/store"
	"CorpKernel/internal/testutil"
	"CorpKernel/internal/workforce"

	"github.com/google/uuid"
)

var testCfg = workforce.Config{
	BaseSalaryPerCapacityCents: 100,
	HiringLeadTimeTicks:        5,
	HiringCostPerCapacityCents: 500,
	SeverancePerCapacityCents:  250,
	SkewPenaltyPerPointBps:     20,
	ShortfallPenaltyBps:        500,
	RecoveryBps:                100,
}

func seedCompany(t *testing.T, s store.Store, c *domain.Company) {
	t.Helper()
	testutil.Seed(t, s, func(tx store.Tx) error {
		return tx.Companies().Insert(context.Background(), c)
	})
}

func getCompany(t *testing.T, s store.Store, id uuid.UUID) *domain.Company {
	t.Helper()
	var out *domain.Company
	testutil.Seed(t, s, func(tx store.Tx) error {
		c, err := tx.Companies().Get(context.Background(), id)
		out = c
		return err
	})
	return out
}

// ============================================================================
// Test: allocation
// ============================================================================

func TestAssertValidAllocation(t *testing.T) {
	if err := workforce.AssertValidAllocation(40, 20, 20, 20); err != nil {
		t.Errorf("valid split rejected: %v", err)
	}
	if err := workforce.AssertValidAllocation(40, 20, 20, 10); !domain.IsKind(err, domain.KindInvariant) {
		t.Errorf("sum 90: got %v, want invariant error", err)
	}
	if err := workforce.AssertValidAllocation(120, -20, 0, 0); !domain.IsKind(err, domain.KindInvariant) {
		t.Errorf("negative share: got %v, want invariant error", err)
	}
}

func TestSetAllocation(t *testing.T) {
	s := store.NewMemStore()
	ctx := context.Background()
	c := testutil.NewCompany("ACME", 10_000)
	seedCompany(t, s, c)

	if err := s.WithinTx(ctx, func(tx store.Tx) error {
		return workforce.SetAllocation(ctx, tx, c.ID, 40, 30, 20, 10)
	}); err != nil {
		t.Fatalf("set: %v", err)
	}

	got := getCompany(t, s, c.ID)
	if got.OpsPct != 40 || got.ResearchPct != 30 || got.LogisticsPct != 20 || got.CorporatePct != 10 {
		t.Errorf("allocation: got %d/%d/%d/%d", got.OpsPct, got.ResearchPct, got.LogisticsPct, got.CorporatePct)
	}
}

// ============================================================================
// Test: RunSalaryTick
// ============================================================================

func TestRunSalaryTick_FullPayment(t *testing.T) {
	s := store.NewMemStore()
	ctx := context.Background()
	c := testutil.NewCompany("ACME", 5_000)
	c.WorkforceCapacity = 10
	seedCompany(t, s, c)

	if err := s.WithinTx(ctx, func(tx store.Tx) error {
		return workforce.RunSalaryTick(ctx, tx, testCfg, 1, testutil.T0)
	}); err != nil {
		t.Fatalf("salary tick: %v", err)
	}

	got := getCompany(t, s, c.ID)
	if got.CashCents != 4_000 {
		t.Errorf("cash: got %d, want 4000", got.CashCents)
	}
	if got.OrgEfficiencyBps != domain.OrgEfficiencyMaxBps {
		t.Errorf("efficiency: got %d, want unchanged %d", got.OrgEfficiencyBps, domain.OrgEfficiencyMaxBps)
	}

	testutil.Seed(t, s, func(tx store.Tx) error {
		entries, err := tx.Ledger().ListByCompany(ctx, c.ID)
		if err != nil {
			return err
		}
		if len(entries) != 1 {
			t.Fatalf("entries: got %d, want 1", len(entries))
		}
		e := entries[0]
		if e.EntryType != domain.EntryTypeWorkforceSalary || e.DeltaCashCents != -1_000 {
			t.Errorf("entry: got %+v", e)
		}
		if e.Memo != "" {
			t.Errorf("full payment must carry no memo, got %q", e.Memo)
		}
		return nil
	})
}

func TestRunSalaryTick_ShortfallPenalizesEfficiency(t *testing.T) {
	s := store.NewMemStore()
	ctx := context.Background()
	c := testutil.NewCompany("ACME", 300)
	c.WorkforceCapacity = 10 // salary 1000, only 300 on hand
	seedCompany(t, s, c)

	if err := s.WithinTx(ctx, func(tx store.Tx) error {
		return workforce.RunSalaryTick(ctx, tx, testCfg, 1, testutil.T0)
	}); err != nil {
		t.Fatalf("salary tick: %v", err)
	}

	got := getCompany(t, s, c.ID)
	if got.CashCents != 0 {
		t.Errorf("cash: got %d, want 0", got.CashCents)
	}
	if got.OrgEfficiencyBps != 9_500 {
		t.Errorf("efficiency: got %d, want 9500", got.OrgEfficiencyBps)
	}

	testutil.Seed(t, s, func(tx store.Tx) error {
		entries, err := tx.Ledger().ListByCompany(ctx, c.ID)
		if err != nil {
			return err
		}
		if len(entries) != 1 || entries[0].DeltaCashCents != -300 {
			t.Fatalf("entries: got %+v", entries)
		}
		if entries[0].Memo != "partial salary payment" {
			t.Errorf("memo: got %q", entries[0].Memo)
		}
		return nil
	})
}

func TestRunSalaryTick_RecoversTowardTarget(t *testing.T) {
	s := store.NewMemStore()
	ctx := context.Background()
	c := testutil.NewCompany("ACME", 100_000)
	c.WorkforceCapacity = 10
	c.OrgEfficiencyBps = 9_000
	seedCompany(t, s, c)

	if err := s.WithinTx(ctx, func(tx store.Tx) error {
		return workforce.RunSalaryTick(ctx, tx, testCfg, 1, testutil.T0)
	}); err != nil {
		t.Fatalf("salary tick: %v", err)
	}

	got := getCompany(t, s, c.ID)
	if got.OrgEfficiencyBps != 9_100 {
		t.Errorf("efficiency: got %d, want 9100", got.OrgEfficiencyBps)
	}
}

func TestRunSalaryTick_SkewedAllocationDecaysTowardTarget(t *testing.T) {
	s := store.NewMemStore()
	ctx := context.Background()
	c := testutil.NewCompany("ACME", 100_000)
	c.WorkforceCapacity = 10
	c.OpsPct, c.ResearchPct, c.LogisticsPct, c.CorporatePct = 100, 0, 0, 0
	seedCompany(t, s, c)

	if err := s.WithinTx(ctx, func(tx store.Tx) error {
		return workforce.RunSalaryTick(ctx, tx, testCfg, 1, testutil.T0)
	}); err != nil {
		t.Fatalf("salary tick: %v", err)
	}

	// Skew 150 points at 20 bps each pulls the target to 7000; one tick
	// moves efficiency down by RecoveryBps.
	got := getCompany(t, s, c.ID)
	if got.OrgEfficiencyBps != 9_900 {
		t.Errorf("efficiency: got %d, want 9900", got.OrgEfficiencyBps)
	}
}

func TestRunSalaryTick_ZeroCapacityPostsNothing(t *testing.T) {
	s := store.NewMemStore()
	ctx := context.Background()
	c := testutil.NewCompany("ACME", 5_000)
	seedCompany(t, s, c)

	if err := s.WithinTx(ctx, func(tx store.Tx) error {
		return workforce.RunSalaryTick(ctx, tx, testCfg, 1, testutil.T0)
	}); err != nil {
		t.Fatalf("salary tick: %v", err)
	}

	testutil.Seed(t, s, func(tx store.Tx) error {
		entries, err := tx.Ledger().ListByCompany(ctx, c.ID)
		if err != nil {
			return err
		}
		if len(entries) != 0 {
			t.Errorf("entries: got %d, want 0", len(entries))
		}
		return nil
	})
}

// ============================================================================
// Test: hiring
// ============================================================================

func TestRequestHiring(t *testing.T) {
	s := store.NewMemStore()
	ctx := context.Background()
	c := testutil.NewCompany("ACME", 10_000)
	seedCompany(t, s, c)

	var delta *domain.WorkforceCapacityDelta
	err := s.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		delta, err = workforce.RequestHiring(ctx, tx, testCfg, c.ID, 5, 10, testutil.T0)
		return err
	})
	if err != nil {
		t.Fatalf("hire: %v", err)
	}
	if delta.TickArrives != 15 || delta.CostCents != 2_500 {
		t.Errorf("delta: got arrives=%d cost=%d, want 15/2500", delta.TickArrives, delta.CostCents)
	}

	got := getCompany(t, s, c.ID)
	if got.CashCents != 7_500 {
		t.Errorf("cash: got %d, want 7500", got.CashCents)
	}
	if got.WorkforceCapacity != 0 {
		t.Errorf("capacity must not change before arrival, got %d", got.WorkforceCapacity)
	}

	testutil.Seed(t, s, func(tx store.Tx) error {
		entries, err := tx.Ledger().ListByCompany(ctx, c.ID)
		if err != nil {
			return err
		}
		if len(entries) != 1 || entries[0].EntryType != domain.EntryTypeWorkforceHiringCost {
			t.Errorf("entries: got %+v", entries)
		}
		return nil
	})
}

func TestRequestHiring_Rejections(t *testing.T) {
	s := store.NewMemStore()
	ctx := context.Background()
	c := testutil.NewCompany("ACME", 1_000)
	seedCompany(t, s, c)

	err := s.WithinTx(ctx, func(tx store.Tx) error {
		_, err := workforce.RequestHiring(ctx, tx, testCfg, c.ID, 5, 10, testutil.T0)
		return err
	})
	if !domain.IsKind(err, domain.KindInsufficientFunds) {
		t.Errorf("unaffordable: got %v, want insufficient funds", err)
	}

	err = s.WithinTx(ctx, func(tx store.Tx) error {
		_, err := workforce.RequestHiring(ctx, tx, testCfg, c.ID, 0, 10, testutil.T0)
		return err
	})
	if !domain.IsKind(err, domain.KindInvariant) {
		t.Errorf("zero delta: got %v, want invariant error", err)
	}
}

func TestApplyDueCapacityDeltas_ConsumesExactlyOnce(t *testing.T) {
	s := store.NewMemStore()
	ctx := context.Background()
	c := testutil.NewCompany("ACME", 10_000)
	seedCompany(t, s, c)
	testutil.Seed(t, s, func(tx store.Tx) error {
		_, err := workforce.RequestHiring(ctx, tx, testCfg, c.ID, 5, 10, testutil.T0)
		return err
	})

	// Not due before the lead time elapses.
	var n int
	err := s.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		n, err = workforce.ApplyDueCapacityDeltas(ctx, tx, 14)
		return err
	})
	if err != nil || n != 0 {
		t.Fatalf("tick 14: got (%d, %v), want (0, nil)", n, err)
	}

	err = s.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		n, err = workforce.ApplyDueCapacityDeltas(ctx, tx, 15)
		return err
	})
	if err != nil || n != 1 {
		t.Fatalf("tick 15: got (%d, %v), want (1, nil)", n, err)
	}
	if got := getCompany(t, s, c.ID); got.WorkforceCapacity != 5 {
		t.Errorf("capacity: got %d, want 5", got.WorkforceCapacity)
	}

	// Replaying the step applies nothing twice.
	err = s.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		n, err = workforce.ApplyDueCapacityDeltas(ctx, tx, 16)
		return err
	})
	if err != nil || n != 0 {
		t.Fatalf("re-run: got (%d, %v), want (0, nil)", n, err)
	}
	if got := getCompany(t, s, c.ID); got.WorkforceCapacity != 5 {
		t.Errorf("capacity after re-run: got %d, want 5", got.WorkforceCapacity)
	}
}

// ============================================================================
// Test: layoffs
// ============================================================================

func TestRequestLayoff(t *testing.T) {
	s := store.NewMemStore()
	ctx := context.Background()
	c := testutil.NewCompany("ACME", 10_000)
	c.WorkforceCapacity = 10
	c.OrgEfficiencyBps = 9_000
	seedCompany(t, s, c)

	if err := s.WithinTx(ctx, func(tx store.Tx) error {
		return workforce.RequestLayoff(ctx, tx, testCfg, c.ID, 5, 20, testutil.T0)
	}); err != nil {
		t.Fatalf("layoff: %v", err)
	}

	got := getCompany(t, s, c.ID)
	if got.WorkforceCapacity != 5 {
		t.Errorf("capacity: got %d, want 5", got.WorkforceCapacity)
	}
	if got.OrgEfficiencyBps != 4_500 {
		t.Errorf("efficiency: got %d, want scaled 4500", got.OrgEfficiencyBps)
	}
	if got.CashCents != 8_750 {
		t.Errorf("cash: got %d, want 8750", got.CashCents)
	}

	testutil.Seed(t, s, func(tx store.Tx) error {
		entries, err := tx.Ledger().ListByCompany(ctx, c.ID)
		if err != nil {
			return err
		}
		if len(entries) != 1 || entries[0].EntryType != domain.EntryTypeWorkforceSeverance {
			t.Errorf("entries: got %+v", entries)
		}
		return nil
	})
}

func TestRequestLayoff_Rejections(t *testing.T) {
	s := store.NewMemStore()
	ctx := context.Background()
	c := testutil.NewCompany("ACME", 100)
	c.WorkforceCapacity = 10
	seedCompany(t, s, c)

	err := s.WithinTx(ctx, func(tx store.Tx) error {
		return workforce.RequestLayoff(ctx, tx, testCfg, c.ID, 11, 20, testutil.T0)
	})
	if !domain.IsKind(err, domain.KindInvariant) {
		t.Errorf("over-capacity: got %v, want invariant error", err)
	}

	err = s.WithinTx(ctx, func(tx store.Tx) error {
		return workforce.RequestLayoff(ctx, tx, testCfg, c.ID, 10, 20, testutil.T0)
	})
	if !domain.IsKind(err, domain.KindInsufficientFunds) {
		t.Errorf("unaffordable severance: got %v, want insufficient funds", err)
	}
}

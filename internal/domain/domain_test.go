package domain_test

import (
	"errors"
	"fmt"
	"testing"

	"CorpKernel/internal/domain"
)

// ============================================================================
// Test: error kinds
// ============================================================================

func TestKindOf(t *testing.T) {
	cases := []struct {
		err  error
		want domain.ErrorKind
	}{
		{domain.Invariantf("x"), domain.KindInvariant},
		{domain.InsufficientFundsf("x"), domain.KindInsufficientFunds},
		{domain.InsufficientInventoryf("x"), domain.KindInsufficientInventory},
		{domain.NotFoundf("x"), domain.KindNotFound},
		{domain.Conflictf("x"), domain.KindConflict},
		{errors.New("plain"), domain.KindInvariant},
	}
	for _, c := range cases {
		if got := domain.KindOf(c.err); got != c.want {
			t.Errorf("KindOf(%v): got %v, want %v", c.err, got, c.want)
		}
	}
}

func TestKindOf_Wrapped(t *testing.T) {
	err := fmt.Errorf("advance tick: %w", domain.Conflictf("world changed"))
	if !domain.IsConflict(err) {
		t.Errorf("wrapped conflict not detected: %v", err)
	}
}

func TestErrorKindString(t *testing.T) {
	if got := domain.KindConflict.String(); got != "optimistic_lock_conflict" {
		t.Errorf("got %q", got)
	}
	if got := domain.KindInsufficientFunds.String(); got != "insufficient_funds" {
		t.Errorf("got %q", got)
	}
}

// ============================================================================
// Test: company cash invariant
// ============================================================================

func TestAssertCashInvariant(t *testing.T) {
	c := &domain.Company{Code: "ACME", CashCents: 1_000, ReservedCashCents: 400}
	if err := c.AssertCashInvariant(); err != nil {
		t.Errorf("valid state rejected: %v", err)
	}
	if c.AvailableCashCents() != 600 {
		t.Errorf("available: got %d, want 600", c.AvailableCashCents())
	}

	c.ReservedCashCents = 1_001
	if err := c.AssertCashInvariant(); !domain.IsKind(err, domain.KindInvariant) {
		t.Errorf("reserved > cash: got %v, want invariant error", err)
	}

	c.CashCents, c.ReservedCashCents = -1, 0
	if err := c.AssertCashInvariant(); !domain.IsKind(err, domain.KindInvariant) {
		t.Errorf("negative cash: got %v, want invariant error", err)
	}
}

func TestClampEfficiencyBps(t *testing.T) {
	if got := domain.ClampEfficiencyBps(-5); got != 0 {
		t.Errorf("got %d, want 0", got)
	}
	if got := domain.ClampEfficiencyBps(10_500); got != domain.OrgEfficiencyMaxBps {
		t.Errorf("got %d, want %d", got, domain.OrgEfficiencyMaxBps)
	}
	if got := domain.ClampEfficiencyBps(9_999); got != 9_999 {
		t.Errorf("got %d, want 9999", got)
	}
}

// ============================================================================
// Test: inventory invariant
// ============================================================================

func TestInventoryAssertInvariant(t *testing.T) {
	inv := &domain.Inventory{Quantity: 10, ReservedQuantity: 4}
	if err := inv.AssertInvariant(); err != nil {
		t.Errorf("valid state rejected: %v", err)
	}
	if inv.Available() != 6 {
		t.Errorf("available: got %d, want 6", inv.Available())
	}

	inv.ReservedQuantity = 11
	if err := inv.AssertInvariant(); !domain.IsKind(err, domain.KindInvariant) {
		t.Errorf("reserved > quantity: got %v, want invariant error", err)
	}
}

// ============================================================================
// Test: job and contract state helpers
// ============================================================================

func TestIsJobDue(t *testing.T) {
	if domain.IsJobDue(4, 5) {
		t.Error("tick 4 must not be due for 5")
	}
	if !domain.IsJobDue(5, 5) || !domain.IsJobDue(6, 5) {
		t.Error("due tick and later must be due")
	}
}

func TestContractExpirable(t *testing.T) {
	c := &domain.Contract{Status: domain.ContractStatusOpen}
	for _, status := range []domain.ContractStatus{
		domain.ContractStatusOpen,
		domain.ContractStatusAccepted,
		domain.ContractStatusPartiallyFulfilled,
	} {
		c.Status = status
		if !c.Expirable() {
			t.Errorf("%s must be expirable", status)
		}
	}
	for _, status := range []domain.ContractStatus{
		domain.ContractStatusFulfilled,
		domain.ContractStatusExpired,
		domain.ContractStatusCancelled,
	} {
		c.Status = status
		if c.Expirable() {
			t.Errorf("%s must not be expirable", status)
		}
	}
}

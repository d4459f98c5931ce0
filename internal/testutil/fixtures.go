// Package testutil provides fixture builders shared by package tests. All
// fixtures are deterministic except for generated ids.
package testutil

import (
	"context"
	"testing"
	"time"

	"CorpKernel/internal/domain"
	"CorpKernel/internal/store"

	"github.com/google/uuid"
)

// T0 is the fixed wall-clock instant fixtures and tests pass around.
var T0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// NewCompany builds a player-owned company with a balanced allocation and
// full efficiency.
func NewCompany(code string, cashCents int64) *domain.Company {
	owner := uuid.New()
	return &domain.Company{
		ID:               uuid.New(),
		Code:             code,
		Name:             code,
		OwnerPlayerID:    &owner,
		RegionID:         "eu-central",
		Specialization:   domain.SpecializationNone,
		CashCents:        cashCents,
		OpsPct:           25,
		ResearchPct:      25,
		LogisticsPct:     25,
		CorporatePct:     25,
		OrgEfficiencyBps: domain.OrgEfficiencyMaxBps,
		CreatedAt:        T0,
	}
}

// NewNPCCompany builds a bot-run company (no owner).
func NewNPCCompany(code string, cashCents int64) *domain.Company {
	c := NewCompany(code, cashCents)
	c.OwnerPlayerID = nil
	return c
}

// NewItem builds a catalog item.
func NewItem(code string, seedPriceCents int64) *domain.Item {
	return &domain.Item{
		ID:             uuid.New(),
		Code:           code,
		Name:           code,
		SeedPriceCents: seedPriceCents,
	}
}

// Seed inserts fixtures inside one transaction and fails the test on error.
func Seed(t *testing.T, s store.Store, fn func(tx store.Tx) error) {
	t.Helper()
	if err := s.WithinTx(context.Background(), fn); err != nil {
		t.Fatalf("seed fixtures: %v", err)
	}
}

// SeedWorld inserts the world clock row at the given tick.
func SeedWorld(t *testing.T, s store.Store, tick int64) {
	t.Helper()
	Seed(t, s, func(tx store.Tx) error {
		return tx.World().Init(context.Background(), &domain.WorldTickState{
			ID:             domain.WorldTickStateID,
			CurrentTick:    tick,
			LastAdvancedAt: T0,
		})
	})
}

// SeedInventory inserts a stock row for a company.
func SeedInventory(t *testing.T, s store.Store, companyID, itemID uuid.UUID, regionID string, quantity int64) {
	t.Helper()
	Seed(t, s, func(tx store.Tx) error {
		return tx.Inventories().Insert(context.Background(), &domain.Inventory{
			CompanyID: companyID,
			ItemID:    itemID,
			RegionID:  regionID,
			Quantity:  quantity,
		})
	})
}

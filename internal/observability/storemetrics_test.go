package observability_test

import (
	"context"
	"errors"
	"testing"

	"CorpKernel/internal/domain"
	"CorpKernel/internal/observability"
	"CorpKernel/internal/store"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func entry(companyID uuid.UUID, entryType domain.LedgerEntryType) *domain.LedgerEntry {
	return &domain.LedgerEntry{
		ID:        uuid.New(),
		CompanyID: companyID,
		EntryType: entryType,
	}
}


func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

// ============================================================================
// Test: InstrumentStore
// ============================================================================

func TestInstrumentStore_CountsLedgerEntriesByType(t *testing.T) {
	ctx := context.Background()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	s := observability.InstrumentStore(store.NewMemStore(), metrics)
	companyID := uuid.New()

	err := s.WithinTx(ctx, func(tx store.Tx) error {
		if err := tx.Ledger().Insert(ctx, entry(companyID, domain.EntryTypeAdjustment)); err != nil {
			return err
		}
		if err := tx.Ledger().Insert(ctx, entry(companyID, domain.EntryTypeAdjustment)); err != nil {
			return err
		}
		return tx.Ledger().Insert(ctx, entry(companyID, domain.EntryTypeTradeDebit))
	})
	if err != nil {
		t.Fatalf("insert entries: %v", err)
	}

	if got := counterValue(t, metrics.LedgerEntriesPosted.WithLabelValues("ADJUSTMENT")); got != 2 {
		t.Errorf("adjustment entries: got %v, want 2", got)
	}
	if got := counterValue(t, metrics.LedgerEntriesPosted.WithLabelValues("TRADE_DEBIT")); got != 1 {
		t.Errorf("trade debit entries: got %v, want 1", got)
	}
}

func TestInstrumentStore_CountsAttemptedPostings(t *testing.T) {
	ctx := context.Background()
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	s := observability.InstrumentStore(store.NewMemStore(), metrics)
	companyID := uuid.New()

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx store.Tx) error {
		if err := tx.Ledger().Insert(ctx, entry(companyID, domain.EntryTypeAdjustment)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("got %v, want rollback error", err)
	}

	// The entry itself rolled back, but the attempt stays counted.
	if got := counterValue(t, metrics.LedgerEntriesPosted.WithLabelValues("ADJUSTMENT")); got != 1 {
		t.Errorf("attempted postings: got %v, want 1", got)
	}
	s.WithinTx(ctx, func(tx store.Tx) error {
		entries, err := tx.Ledger().ListByCompany(ctx, companyID)
		if err != nil {
			return err
		}
		if len(entries) != 0 {
			t.Errorf("rolled back entries persisted: %d", len(entries))
		}
		return nil
	})
}

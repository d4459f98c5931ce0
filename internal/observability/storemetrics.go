package observability

import (
	"context"

	"CorpKernel/internal/domain"
	"CorpKernel/internal/store"
)

// InstrumentStore wraps s so every ledger entry insert is counted by entry
// type. Inserts are counted as they happen inside the transaction; a
// transaction that later rolls back keeps its counts, so the series tracks
// attempted postings, not committed rows.
func InstrumentStore(s store.Store, m *Metrics) store.Store {
	return &instrumentedStore{inner: s, metrics: m}
}

type instrumentedStore struct {
	inner   store.Store
	metrics *Metrics
}

func (s *instrumentedStore) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.inner.WithinTx(ctx, func(tx store.Tx) error {
		return fn(&instrumentedTx{Tx: tx, metrics: s.metrics})
	})
}

type instrumentedTx struct {
	store.Tx
	metrics *Metrics
}

func (t *instrumentedTx) Ledger() store.LedgerRepo {
	return &instrumentedLedger{LedgerRepo: t.Tx.Ledger(), metrics: t.metrics}
}

type instrumentedLedger struct {
	store.LedgerRepo
	metrics *Metrics
}

func (r *instrumentedLedger) Insert(ctx context.Context, e *domain.LedgerEntry) error {
	if err := r.LedgerRepo.Insert(ctx, e); err != nil {
		return err
	}
	r.metrics.LedgerEntriesPosted.WithLabelValues(string(e.EntryType)).Inc()
	return nil
}

package ledger

import (
	"context"
	"time"

	"CorpKernel/internal/domain"
	"CorpKernel/internal/store"

	"github.com/google/uuid"
)

// Posting records one cash/reservation mutation already applied in memory to
// Company (via the reservation helpers or direct cash arithmetic), paired
// with the ledger entry describing it. Post is the only path that persists
// the company cash columns, which is what keeps BalanceAfterCents equal to
// the company row written in the same transaction.
type Posting struct {
	Company                *domain.Company
	Type                   domain.LedgerEntryType
	DeltaCashCents         int64
	DeltaReservedCashCents int64
	Tick                   int64
	RefID                  *uuid.UUID
	Memo                   string
	At                     time.Time
}

// Post asserts the invariant on the mutated company, persists the row via a
// conditional update, and appends the paired ledger entry. A failed
// conditional update surfaces as a conflict for the caller to retry.
func Post(ctx context.Context, tx store.Tx, p Posting) (*domain.LedgerEntry, error) {
	c := p.Company
	if err := c.AssertCashInvariant(); err != nil {
		return nil, err
	}

	ok, err := tx.Companies().TryUpdate(ctx, c)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.Conflictf("company %s changed concurrently during %s posting", c.Code, p.Type)
	}

	entry := &domain.LedgerEntry{
		ID:                     uuid.New(),
		CompanyID:              c.ID,
		EntryType:              p.Type,
		DeltaCashCents:         p.DeltaCashCents,
		DeltaReservedCashCents: p.DeltaReservedCashCents,
		BalanceAfterCents:      c.CashCents,
		Tick:                   p.Tick,
		RefID:                  p.RefID,
		Memo:                   p.Memo,
		CreatedAt:              p.At,
	}
	if err := tx.Ledger().Insert(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// Reconcile replays a company's entries from zero and reports the first
// entry whose running balance disagrees with its BalanceAfterCents. Operators
// use this to detect drift between the ledger and the company row.
func Reconcile(entries []*domain.LedgerEntry) (int, bool) {
	var running int64
	for i, e := range entries {
		running += e.DeltaCashCents
		if running != e.BalanceAfterCents {
			return i, false
		}
	}
	return -1, true
}

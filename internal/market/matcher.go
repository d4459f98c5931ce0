// Package market implements the order book for one (item, region) pair:
// placement with reservations, pure price-time-priority matching, settlement
// of the resulting plan inside the active transaction, and per-tick candle
// aggregation.
package market

import (
	"sort"

	"CorpKernel/internal/domain"

	"github.com/google/uuid"
)

// Match is one planned crossing. Persistence (reservation decrements, cash
// movement, Trade and LedgerEntry rows) is the caller's responsibility.
type Match struct {
	BuyOrderID     uuid.UUID
	SellOrderID    uuid.UUID
	Quantity       int64
	UnitPriceCents int64
}

type bookCursor struct {
	order     *domain.MarketOrder
	remaining int64
}

// placedBefore orders two orders by placement time: tickPlaced, then
// createdAt, then ID as the final deterministic tie-break.
func placedBefore(a, b *domain.MarketOrder) bool {
	if a.TickPlaced != b.TickPlaced {
		return a.TickPlaced < b.TickPlaced
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

// PlanOrderMatchesForItem crosses the open book for one (item, region) pair.
// Buys are walked best price first (descending), sells cheapest first
// (ascending); within a price level strict FIFO by (tickPlaced, createdAt).
// Each match executes at the resting order's price, the earlier-placed of
// the two top-of-book orders. The function is pure: it never mutates its
// inputs and identical snapshots produce identical plans, which is what makes
// tick replay deterministic.
func PlanOrderMatchesForItem(buys, sells []*domain.MarketOrder) []Match {
	buyBook := make([]bookCursor, 0, len(buys))
	for _, o := range buys {
		if o.IsOpen() && o.RemainingQuantity > 0 {
			buyBook = append(buyBook, bookCursor{order: o, remaining: o.RemainingQuantity})
		}
	}
	sellBook := make([]bookCursor, 0, len(sells))
	for _, o := range sells {
		if o.IsOpen() && o.RemainingQuantity > 0 {
			sellBook = append(sellBook, bookCursor{order: o, remaining: o.RemainingQuantity})
		}
	}

	sort.Slice(buyBook, func(i, j int) bool {
		a, b := buyBook[i].order, buyBook[j].order
		if a.UnitPriceCents != b.UnitPriceCents {
			return a.UnitPriceCents > b.UnitPriceCents
		}
		return placedBefore(a, b)
	})
	sort.Slice(sellBook, func(i, j int) bool {
		a, b := sellBook[i].order, sellBook[j].order
		if a.UnitPriceCents != b.UnitPriceCents {
			return a.UnitPriceCents < b.UnitPriceCents
		}
		return placedBefore(a, b)
	})

	var matches []Match
	bi, si := 0, 0
	for bi < len(buyBook) && si < len(sellBook) {
		buy, sell := &buyBook[bi], &sellBook[si]
		if buy.order.UnitPriceCents < sell.order.UnitPriceCents {
			break
		}

		qty := buy.remaining
		if sell.remaining < qty {
			qty = sell.remaining
		}

		// Resting order's price: the earlier-placed of the two determines
		// execution, never a midpoint.
		price := sell.order.UnitPriceCents
		if placedBefore(buy.order, sell.order) {
			price = buy.order.UnitPriceCents
		}

		matches = append(matches, Match{
			BuyOrderID:     buy.order.ID,
			SellOrderID:    sell.order.ID,
			Quantity:       qty,
			UnitPriceCents: price,
		})

		buy.remaining -= qty
		sell.remaining -= qty
		if buy.remaining == 0 {
			bi++
		}
		if sell.remaining == 0 {
			si++
		}
	}

	return matches
}

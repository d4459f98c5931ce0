package market

import (
	"context"
	"time"

	"CorpKernel/internal/domain"
	"CorpKernel/internal/ledger"
	"CorpKernel/internal/store"

	"github.com/google/uuid"
)

// ApplyMatches persists a match plan for one (item, region) partition:
// per match it decrements both orders' remaining quantity and reservations,
// moves cash buyer→seller with two paired ledger entries, moves stock
// seller→buyer, and appends the Trade row. Each match applies fully inside
// the active transaction, so a mid-batch failure rolls the whole tick back
// rather than half-applying a match.
func ApplyMatches(ctx context.Context, tx store.Tx, itemID uuid.UUID, regionID string, matches []Match, tick int64, at time.Time) ([]*domain.Trade, error) {
	trades := make([]*domain.Trade, 0, len(matches))

	for i, m := range matches {
		buyOrder, err := tx.Orders().Get(ctx, m.BuyOrderID)
		if err != nil {
			return nil, err
		}
		sellOrder, err := tx.Orders().Get(ctx, m.SellOrderID)
		if err != nil {
			return nil, err
		}
		buyer, err := tx.Companies().Get(ctx, buyOrder.CompanyID)
		if err != nil {
			return nil, err
		}
		seller, err := tx.Companies().Get(ctx, sellOrder.CompanyID)
		if err != nil {
			return nil, err
		}
		// Self-crossing company: operate on one snapshot so the second
		// posting sees the first's version bump.
		if seller.ID == buyer.ID {
			seller = buyer
		}

		notional := m.Quantity * m.UnitPriceCents
		// The buy order reserved at its own limit price; execution at the
		// resting price can be cheaper, and the difference returns to
		// available cash.
		reserveRelease := m.Quantity * buyOrder.UnitPriceCents

		tradeID := uuid.New()
		trade := &domain.Trade{
			ID:              tradeID,
			ItemID:          itemID,
			RegionID:        regionID,
			BuyOrderID:      buyOrder.ID,
			SellOrderID:     sellOrder.ID,
			BuyerCompanyID:  buyOrder.CompanyID,
			SellerCompanyID: sellOrder.CompanyID,
			Quantity:        m.Quantity,
			UnitPriceCents:  m.UnitPriceCents,
			Tick:            tick,
			// Offset keeps within-tick trade order stable for candle
			// open/close regardless of row iteration order.
			CreatedAt: at.Add(time.Duration(i) * time.Microsecond),
		}

		// Buyer: release the reservation, pay the notional.
		if err := ledger.ReleaseCashReservation(buyer, reserveRelease); err != nil {
			return nil, err
		}
		buyer.CashCents -= notional
		if _, err := ledger.Post(ctx, tx, ledger.Posting{
			Company:                buyer,
			Type:                   domain.EntryTypeTradeDebit,
			DeltaCashCents:         -notional,
			DeltaReservedCashCents: -reserveRelease,
			Tick:                   tick,
			RefID:                  &tradeID,
			At:                     trade.CreatedAt,
		}); err != nil {
			return nil, err
		}

		// Seller: receive the notional.
		seller.CashCents += notional
		if _, err := ledger.Post(ctx, tx, ledger.Posting{
			Company:        seller,
			Type:           domain.EntryTypeTradeCredit,
			DeltaCashCents: notional,
			Tick:           tick,
			RefID:          &tradeID,
			At:             trade.CreatedAt,
		}); err != nil {
			return nil, err
		}

		// Seller inventory: consume reserved stock.
		sellerInv, err := tx.Inventories().Get(ctx, domain.InventoryKey{
			CompanyID: sellOrder.CompanyID, ItemID: itemID, RegionID: regionID,
		})
		if err != nil {
			return nil, err
		}
		if err := ledger.ConsumeReserved(sellerInv, m.Quantity); err != nil {
			return nil, err
		}
		ok, err := tx.Inventories().TryUpdate(ctx, sellerInv)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.Conflictf("seller inventory changed concurrently during trade %s", tradeID)
		}

		// Buyer inventory: credit stock, creating the row on first stock.
		if err := ledger.CreditInventory(ctx, tx, buyOrder.CompanyID, itemID, regionID, m.Quantity); err != nil {
			return nil, err
		}

		// Order rows: decrement remaining and reservations, terminal when
		// fully filled.
		buyOrder.RemainingQuantity -= m.Quantity
		buyOrder.ReservedCashCents -= reserveRelease
		if buyOrder.RemainingQuantity < 0 || buyOrder.ReservedCashCents < 0 {
			return nil, domain.Invariantf("buy order %s over-filled by trade %s", buyOrder.ID, tradeID)
		}
		if buyOrder.RemainingQuantity == 0 {
			buyOrder.Status = domain.OrderStatusFilled
		}
		ok, err = tx.Orders().TryUpdate(ctx, buyOrder)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.Conflictf("buy order %s changed concurrently during settlement", buyOrder.ID)
		}

		sellOrder.RemainingQuantity -= m.Quantity
		sellOrder.ReservedQuantity -= m.Quantity
		if sellOrder.RemainingQuantity < 0 || sellOrder.ReservedQuantity < 0 {
			return nil, domain.Invariantf("sell order %s over-filled by trade %s", sellOrder.ID, tradeID)
		}
		if sellOrder.RemainingQuantity == 0 {
			sellOrder.Status = domain.OrderStatusFilled
		}
		ok, err = tx.Orders().TryUpdate(ctx, sellOrder)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.Conflictf("sell order %s changed concurrently during settlement", sellOrder.ID)
		}

		if err := tx.Trades().Insert(ctx, trade); err != nil {
			return nil, err
		}
		trades = append(trades, trade)
	}

	return trades, nil
}

package market

import (
	"context"
	"time"

	"CorpKernel/internal/domain"
	"CorpKernel/internal/ledger"
	"CorpKernel/internal/observability"
	"CorpKernel/internal/store"

	"github.com/google/uuid"
)

// PlaceOrderInput carries an already-validated order request; ownership and
// authentication checks happen in the caller before this point.
type PlaceOrderInput struct {
	CompanyID      uuid.UUID
	ItemID         uuid.UUID
	RegionID       string
	Side           domain.OrderSide
	Quantity       int64
	UnitPriceCents int64
	Tick           int64
	At             time.Time
}

// PlaceOrder reserves cash (buys) or inventory (sells) and inserts the OPEN
// order. The reservation and the order row commit or roll back together.
func PlaceOrder(ctx context.Context, tx store.Tx, m *observability.Metrics, in PlaceOrderInput) (*domain.MarketOrder, error) {
	order, err := placeOrder(ctx, tx, in)
	if err != nil {
		if domain.IsConflict(err) {
			m.LockConflict("place_order")
		}
		return nil, err
	}
	m.OrderPlaced(string(in.Side))
	return order, nil
}

func placeOrder(ctx context.Context, tx store.Tx, in PlaceOrderInput) (*domain.MarketOrder, error) {
	order := &domain.MarketOrder{
		ID:                uuid.New(),
		CompanyID:         in.CompanyID,
		ItemID:            in.ItemID,
		RegionID:          in.RegionID,
		Side:              in.Side,
		Status:            domain.OrderStatusOpen,
		UnitPriceCents:    in.UnitPriceCents,
		Quantity:          in.Quantity,
		RemainingQuantity: in.Quantity,
		TickPlaced:        in.Tick,
		CreatedAt:         in.At,
	}

	switch in.Side {
	case domain.OrderSideBuy:
		company, err := tx.Companies().Get(ctx, in.CompanyID)
		if err != nil {
			return nil, err
		}
		notional, err := ledger.ReserveCashForBuyOrder(company, in.Quantity, in.UnitPriceCents)
		if err != nil {
			return nil, err
		}
		order.ReservedCashCents = notional
		if _, err := ledger.Post(ctx, tx, ledger.Posting{
			Company:                company,
			Type:                   domain.EntryTypeOrderCashReserve,
			DeltaReservedCashCents: notional,
			Tick:                   in.Tick,
			RefID:                  &order.ID,
			At:                     in.At,
		}); err != nil {
			return nil, err
		}

	case domain.OrderSideSell:
		inv, err := tx.Inventories().Get(ctx, domain.InventoryKey{
			CompanyID: in.CompanyID, ItemID: in.ItemID, RegionID: in.RegionID,
		})
		if err != nil {
			if domain.IsKind(err, domain.KindNotFound) {
				return nil, domain.InsufficientInventoryf("company %s holds no %s in %s",
					in.CompanyID, in.ItemID, in.RegionID)
			}
			return nil, err
		}
		if err := ledger.ReserveInventoryForSellOrder(inv, in.Quantity); err != nil {
			return nil, err
		}
		ok, err := tx.Inventories().TryUpdate(ctx, inv)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.Conflictf("inventory %s/%s@%s changed concurrently during sell placement",
				in.CompanyID, in.ItemID, in.RegionID)
		}
		order.ReservedQuantity = in.Quantity

	default:
		return nil, domain.Invariantf("unknown order side %q", in.Side)
	}

	if err := tx.Orders().Insert(ctx, order); err != nil {
		return nil, err
	}
	return order, nil
}

// CancelOrder releases the order's remaining reservation and marks it
// CANCELLED. Only OPEN orders can be cancelled; FILLED and CANCELLED are
// terminal.
func CancelOrder(ctx context.Context, tx store.Tx, m *observability.Metrics, orderID uuid.UUID, tick int64, at time.Time) error {
	if err := cancelOrder(ctx, tx, orderID, tick, at); err != nil {
		if domain.IsConflict(err) {
			m.LockConflict("cancel_order")
		}
		return err
	}
	m.OrderCancelled()
	return nil
}

func cancelOrder(ctx context.Context, tx store.Tx, orderID uuid.UUID, tick int64, at time.Time) error {
	order, err := tx.Orders().Get(ctx, orderID)
	if err != nil {
		return err
	}
	if !order.IsOpen() {
		return domain.Invariantf("order %s is %s, only OPEN orders can be cancelled", order.ID, order.Status)
	}

	switch order.Side {
	case domain.OrderSideBuy:
		company, err := tx.Companies().Get(ctx, order.CompanyID)
		if err != nil {
			return err
		}
		release := order.ReservedCashCents
		if err := ledger.ReleaseCashReservation(company, release); err != nil {
			return err
		}
		if _, err := ledger.Post(ctx, tx, ledger.Posting{
			Company:                company,
			Type:                   domain.EntryTypeOrderCashRelease,
			DeltaReservedCashCents: -release,
			Tick:                   tick,
			RefID:                  &order.ID,
			At:                     at,
		}); err != nil {
			return err
		}

	case domain.OrderSideSell:
		inv, err := tx.Inventories().Get(ctx, domain.InventoryKey{
			CompanyID: order.CompanyID, ItemID: order.ItemID, RegionID: order.RegionID,
		})
		if err != nil {
			return err
		}
		if err := ledger.ReleaseInventoryReservation(inv, order.ReservedQuantity); err != nil {
			return err
		}
		ok, err := tx.Inventories().TryUpdate(ctx, inv)
		if err != nil {
			return err
		}
		if !ok {
			return domain.Conflictf("inventory %s/%s@%s changed concurrently during cancellation",
				order.CompanyID, order.ItemID, order.RegionID)
		}
	}

	order.Status = domain.OrderStatusCancelled
	order.ReservedCashCents = 0
	order.ReservedQuantity = 0
	ok, err := tx.Orders().TryUpdate(ctx, order)
	if err != nil {
		return err
	}
	if !ok {
		return domain.Conflictf("order %s changed concurrently during cancellation", order.ID)
	}
	return nil
}

package npc

import (
	"context"
	"time"

	"CorpKernel/internal/domain"
	"CorpKernel/internal/market"
	"CorpKernel/internal/observability"
	"CorpKernel/internal/store"

	"github.com/google/uuid"
)

// BotConfig carries the liquidity bot tunables, resolved by the shell.
type BotConfig struct {
	SpreadBps               int64
	TargetQuantity          int64
	MaxNotionalPerTickCents int64
	// TrailingTrades is the trade window reference prices are derived from.
	TrailingTrades int
}

// BotItemSnapshot is one item's view for the planner: reference price,
// what the bot holds, and which sides it already quotes.
type BotItemSnapshot struct {
	ItemID              uuid.UUID
	ItemCode            string
	ReferencePriceCents int64
	AvailableInventory  int64
	HasOpenBuy          bool
	HasOpenSell         bool
}

// BotSnapshot is the in-memory state PlanLiquidityOrders reads. Items must
// already be code-sorted; the planner does not re-sort.
type BotSnapshot struct {
	CompanyID          uuid.UUID
	RegionID           string
	AvailableCashCents int64
	Items              []BotItemSnapshot
}

// PlannedOrder is one side the bot intends to quote.
type PlannedOrder struct {
	ItemID         uuid.UUID
	RegionID       string
	Side           domain.OrderSide
	Quantity       int64
	UnitPriceCents int64
}

// quotePrice applies the half-spread to the reference price, flooring at
// 1 cent so thin items still quote.
func quotePrice(referenceCents, spreadBps int64, side domain.OrderSide) int64 {
	var p int64
	if side == domain.OrderSideBuy {
		p = referenceCents * (10_000 - spreadBps) / 10_000
	} else {
		p = referenceCents * (10_000 + spreadBps) / 10_000
	}
	if p < 1 {
		p = 1
	}
	return p
}

// PlanLiquidityOrders computes the bot's symmetric quotes for one snapshot.
// Pure and order-independent: items are walked in the snapshot's code-sorted
// order, each side sized to the least of the target quantity, what the bot
// can fund or deliver, and the remaining per-tick notional cap. A side with
// an existing open order is skipped rather than re-quoted.
func PlanLiquidityOrders(cfg BotConfig, snap BotSnapshot) []PlannedOrder {
	var plan []PlannedOrder
	cash := snap.AvailableCashCents
	capLeft := cfg.MaxNotionalPerTickCents

	for _, it := range snap.Items {
		if it.ReferencePriceCents <= 0 {
			continue
		}

		if !it.HasOpenBuy {
			price := quotePrice(it.ReferencePriceCents, cfg.SpreadBps, domain.OrderSideBuy)
			qty := cfg.TargetQuantity
			if byCash := cash / price; byCash < qty {
				qty = byCash
			}
			if byCap := capLeft / price; byCap < qty {
				qty = byCap
			}
			if qty > 0 {
				plan = append(plan, PlannedOrder{
					ItemID: it.ItemID, RegionID: snap.RegionID,
					Side: domain.OrderSideBuy, Quantity: qty, UnitPriceCents: price,
				})
				cash -= qty * price
				capLeft -= qty * price
			}
		}

		if !it.HasOpenSell {
			price := quotePrice(it.ReferencePriceCents, cfg.SpreadBps, domain.OrderSideSell)
			qty := cfg.TargetQuantity
			if it.AvailableInventory < qty {
				qty = it.AvailableInventory
			}
			if byCap := capLeft / price; byCap < qty {
				qty = byCap
			}
			if qty > 0 {
				plan = append(plan, PlannedOrder{
					ItemID: it.ItemID, RegionID: snap.RegionID,
					Side: domain.OrderSideSell, Quantity: qty, UnitPriceCents: price,
				})
				capLeft -= qty * price
			}
		}
	}
	return plan
}

// referencePrice averages the recent trades for an item, falling back to the
// static seed price when no history exists.
func referencePrice(item *domain.Item, recent []*domain.Trade) int64 {
	if len(recent) == 0 {
		return item.SeedPriceCents
	}
	var sum int64
	for _, t := range recent {
		sum += t.UnitPriceCents
	}
	return sum / int64(len(recent))
}

// snapshotBot assembles the planner input for one NPC company from the
// current transaction state.
func snapshotBot(ctx context.Context, tx store.Tx, cfg BotConfig, c *domain.Company, items []*domain.Item) (BotSnapshot, error) {
	snap := BotSnapshot{
		CompanyID:          c.ID,
		RegionID:           c.RegionID,
		AvailableCashCents: c.AvailableCashCents(),
	}

	open, err := tx.Orders().ListOpenByCompany(ctx, c.ID)
	if err != nil {
		return snap, err
	}
	type sides struct{ buy, sell bool }
	openByItem := make(map[uuid.UUID]sides, len(open))
	for _, o := range open {
		s := openByItem[o.ItemID]
		if o.Side == domain.OrderSideBuy {
			s.buy = true
		} else {
			s.sell = true
		}
		openByItem[o.ItemID] = s
	}

	for _, item := range items {
		recent, err := tx.Trades().ListRecentByItem(ctx, item.ID, cfg.TrailingTrades)
		if err != nil {
			return snap, err
		}

		var held int64
		inv, err := tx.Inventories().Get(ctx, domain.InventoryKey{
			CompanyID: c.ID, ItemID: item.ID, RegionID: c.RegionID,
		})
		switch {
		case err == nil:
			held = inv.Available()
		case domain.IsKind(err, domain.KindNotFound):
		default:
			return snap, err
		}

		s := openByItem[item.ID]
		snap.Items = append(snap.Items, BotItemSnapshot{
			ItemID:              item.ID,
			ItemCode:            item.Code,
			ReferencePriceCents: referencePrice(item, recent),
			AvailableInventory:  held,
			HasOpenBuy:          s.buy,
			HasOpenSell:         s.sell,
		})
	}
	return snap, nil
}

// PlaceBotOrders plans and places liquidity quotes for every NPC company,
// walking companies in code order. Returns the number of orders placed.
func PlaceBotOrders(ctx context.Context, tx store.Tx, m *observability.Metrics, cfg BotConfig, tick int64, at time.Time) (int, error) {
	companies, err := tx.Companies().List(ctx)
	if err != nil {
		return 0, err
	}
	items, err := tx.Catalog().ListItems(ctx)
	if err != nil {
		return 0, err
	}

	placed := 0
	for _, c := range companies {
		if !c.IsNPC() {
			continue
		}
		snap, err := snapshotBot(ctx, tx, cfg, c, items)
		if err != nil {
			return placed, err
		}
		for _, p := range PlanLiquidityOrders(cfg, snap) {
			if _, err := market.PlaceOrder(ctx, tx, m, market.PlaceOrderInput{
				CompanyID:      c.ID,
				ItemID:         p.ItemID,
				RegionID:       p.RegionID,
				Side:           p.Side,
				Quantity:       p.Quantity,
				UnitPriceCents: p.UnitPriceCents,
				Tick:           tick,
				At:             at,
			}); err != nil {
				return placed, err
			}
			placed++
		}
	}
	return placed, nil
}

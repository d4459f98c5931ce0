package persistence

import (
	"context"
	"database/sql"

	"CorpKernel/internal/domain"
	"CorpKernel/internal/store"

	"github.com/google/uuid"
)

type pgOrders pgTx

const orderColumns = `id, company_id, item_id, region_id, side, status,
	unit_price_cents, quantity, remaining_quantity, reserved_cash_cents,
	reserved_quantity, tick_placed, created_at, lock_version`

func scanOrder(row interface{ Scan(...any) error }) (*domain.MarketOrder, error) {
	var o domain.MarketOrder
	err := row.Scan(&o.ID, &o.CompanyID, &o.ItemID, &o.RegionID, &o.Side, &o.Status,
		&o.UnitPriceCents, &o.Quantity, &o.RemainingQuantity, &o.ReservedCashCents,
		&o.ReservedQuantity, &o.TickPlaced, &o.CreatedAt, &o.LockVersion)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *pgOrders) Get(ctx context.Context, id uuid.UUID) (*domain.MarketOrder, error) {
	o, err := scanOrder(r.tx.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM sim.market_orders WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundf("order %s not found", id)
	}
	return o, err
}

func (r *pgOrders) Insert(ctx context.Context, o *domain.MarketOrder) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO sim.market_orders (`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		o.ID, o.CompanyID, o.ItemID, o.RegionID, o.Side, o.Status,
		o.UnitPriceCents, o.Quantity, o.RemainingQuantity, o.ReservedCashCents,
		o.ReservedQuantity, o.TickPlaced, o.CreatedAt, o.LockVersion)
	return err
}

func (r *pgOrders) TryUpdate(ctx context.Context, o *domain.MarketOrder) (bool, error) {
	ok, err := (*pgTx)(r).execCond(ctx, `
		UPDATE sim.market_orders SET
			status = $3, remaining_quantity = $4, reserved_cash_cents = $5,
			reserved_quantity = $6, lock_version = lock_version + 1
		WHERE id = $1 AND lock_version = $2`,
		o.ID, o.LockVersion, o.Status, o.RemainingQuantity, o.ReservedCashCents, o.ReservedQuantity)
	if err != nil {
		return false, err
	}
	if ok {
		o.LockVersion++
	}
	return ok, nil
}

func (r *pgOrders) ListOpenByItemRegion(ctx context.Context, itemID uuid.UUID, regionID string) ([]*domain.MarketOrder, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM sim.market_orders
		WHERE status = 'OPEN' AND item_id = $1 AND region_id = $2
		ORDER BY tick_placed, created_at, id`,
		itemID, regionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func (r *pgOrders) ListOpenByCompany(ctx context.Context, companyID uuid.UUID) ([]*domain.MarketOrder, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT `+orderColumns+` FROM sim.market_orders
		WHERE status = 'OPEN' AND company_id = $1
		ORDER BY tick_placed, created_at, id`,
		companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectOrders(rows)
}

func collectOrders(rows *sql.Rows) ([]*domain.MarketOrder, error) {
	var out []*domain.MarketOrder
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *pgOrders) OpenItemRegions(ctx context.Context) ([]store.ItemRegion, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT DISTINCT item_id, region_id FROM sim.market_orders
		WHERE status = 'OPEN' ORDER BY item_id, region_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.ItemRegion
	for rows.Next() {
		var pr store.ItemRegion
		if err := rows.Scan(&pr.ItemID, &pr.RegionID); err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

type pgTrades pgTx

const tradeColumns = `id, item_id, region_id, buy_order_id, sell_order_id,
	buyer_company_id, seller_company_id, quantity, unit_price_cents, tick, created_at`

func (r *pgTrades) Insert(ctx context.Context, t *domain.Trade) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO sim.trades (`+tradeColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		t.ID, t.ItemID, t.RegionID, t.BuyOrderID, t.SellOrderID,
		t.BuyerCompanyID, t.SellerCompanyID, t.Quantity, t.UnitPriceCents, t.Tick, t.CreatedAt)
	return err
}

func (r *pgTrades) ListByTick(ctx context.Context, tick int64) ([]*domain.Trade, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT `+tradeColumns+` FROM sim.trades
		WHERE tick = $1 ORDER BY created_at, id`, tick)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTrades(rows)
}

func (r *pgTrades) ListRecentByItem(ctx context.Context, itemID uuid.UUID, limit int) ([]*domain.Trade, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT `+tradeColumns+` FROM sim.trades
		WHERE item_id = $1 ORDER BY created_at DESC, id DESC LIMIT $2`,
		itemID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectTrades(rows)
}

func collectTrades(rows *sql.Rows) ([]*domain.Trade, error) {
	var out []*domain.Trade
	for rows.Next() {
		var t domain.Trade
		if err := rows.Scan(&t.ID, &t.ItemID, &t.RegionID, &t.BuyOrderID, &t.SellOrderID,
			&t.BuyerCompanyID, &t.SellerCompanyID, &t.Quantity, &t.UnitPriceCents,
			&t.Tick, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &t)
	}
	return out, rows.Err()
}

type pgCandles pgTx

func (r *pgCandles) Get(ctx context.Context, key domain.CandleKey) (*domain.ItemTickCandle, error) {
	var c domain.ItemTickCandle
	err := r.tx.QueryRowContext(ctx, `
		SELECT item_id, region_id, tick, open_cents, high_cents, low_cents,
		       close_cents, volume, trade_count, vwap_cents
		FROM sim.item_tick_candles
		WHERE item_id = $1 AND region_id = $2 AND tick = $3`,
		key.ItemID, key.RegionID, key.Tick).
		Scan(&c.ItemID, &c.RegionID, &c.Tick, &c.OpenCents, &c.HighCents, &c.LowCents,
			&c.CloseCents, &c.Volume, &c.TradeCount, &c.VWAPCents)
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundf("candle %s/%s@%d not found", key.ItemID, key.RegionID, key.Tick)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *pgCandles) Upsert(ctx context.Context, c *domain.ItemTickCandle) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO sim.item_tick_candles
			(item_id, region_id, tick, open_cents, high_cents, low_cents,
			 close_cents, volume, trade_count, vwap_cents)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (item_id, region_id, tick) DO UPDATE SET
			open_cents = EXCLUDED.open_cents, high_cents = EXCLUDED.high_cents,
			low_cents = EXCLUDED.low_cents, close_cents = EXCLUDED.close_cents,
			volume = EXCLUDED.volume, trade_count = EXCLUDED.trade_count,
			vwap_cents = EXCLUDED.vwap_cents`,
		c.ItemID, c.RegionID, c.Tick, c.OpenCents, c.HighCents, c.LowCents,
		c.CloseCents, c.Volume, c.TradeCount, c.VWAPCents)
	return err
}

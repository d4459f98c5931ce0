package market

import (
	"context"
	"sort"

	"CorpKernel/internal/domain"
	"CorpKernel/internal/store"
)

// UpsertMarketCandlesForTick rolls the given tick's trades up into one
// OHLCV/VWAP candle per (item, region). The candle is computed from that
// tick's trades only and upserted by key, so running the aggregation twice
// for the same tick writes identical rows; volume never double-counts
// when a tick transaction is retried.
func UpsertMarketCandlesForTick(ctx context.Context, tx store.Tx, tick int64) (int, error) {
	trades, err := tx.Trades().ListByTick(ctx, tick)
	if err != nil {
		return 0, err
	}
	if len(trades) == 0 {
		return 0, nil
	}

	grouped := make(map[domain.CandleKey][]*domain.Trade)
	for _, t := range trades {
		key := domain.CandleKey{ItemID: t.ItemID, RegionID: t.RegionID, Tick: tick}
		grouped[key] = append(grouped[key], t)
	}

	keys := make([]domain.CandleKey, 0, len(grouped))
	for k := range grouped {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].ItemID != keys[j].ItemID {
			return keys[i].ItemID.String() < keys[j].ItemID.String()
		}
		return keys[i].RegionID < keys[j].RegionID
	})

	for _, key := range keys {
		group := grouped[key] // already in trade order from ListByTick
		candle := &domain.ItemTickCandle{
			ItemID:     key.ItemID,
			RegionID:   key.RegionID,
			Tick:       tick,
			OpenCents:  group[0].UnitPriceCents,
			CloseCents: group[len(group)-1].UnitPriceCents,
			HighCents:  group[0].UnitPriceCents,
			LowCents:   group[0].UnitPriceCents,
		}

		var notional int64
		for _, t := range group {
			if t.UnitPriceCents > candle.HighCents {
				candle.HighCents = t.UnitPriceCents
			}
			if t.UnitPriceCents < candle.LowCents {
				candle.LowCents = t.UnitPriceCents
			}
			candle.Volume += t.Quantity
			candle.TradeCount++
			notional += t.UnitPriceCents * t.Quantity
		}
		if candle.Volume > 0 {
			candle.VWAPCents = notional / candle.Volume
		}

		if err := tx.Candles().Upsert(ctx, candle); err != nil {
			return 0, err
		}
	}

	return len(keys), nil
}

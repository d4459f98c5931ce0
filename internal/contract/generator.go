// Package contract implements NPC-issued buy contracts: deterministic
// per-tick generation, conditional-update acceptance, guarded partial
// fulfillment, and expiry.
package contract

import (
	"context"

	"CorpKernel/internal/domain"
	"CorpKernel/internal/store"

	"github.com/google/uuid"
)

// GeneratorConfig is resolved by the shell; the kernel never reads files or
// environment itself.
type GeneratorConfig struct {
	ContractsPerTick int
	MinQuantity      int64
	MaxQuantity      int64
	TTLTicks         int64
	PriceBandBps     int64
	// TrailingTrades is the trade-history window contracts are priced from.
	TrailingTrades int
}

// PriceContractForItem derives the contract unit price: the trailing average
// of the most recent trades for the item, falling back to the item's static
// seed price when no history exists, adjusted by a deterministic band sign
// from (tick+sequence) mod 2.
func PriceContractForItem(item *domain.Item, recent []*domain.Trade, tick, sequence, bandBps int64) int64 {
	base := item.SeedPriceCents
	if len(recent) > 0 {
		var sum int64
		for _, t := range recent {
			sum += t.UnitPriceCents
		}
		base = sum / int64(len(recent))
	}

	adjusted := base * (10_000 + bandSign(tick, sequence)*bandBps) / 10_000
	if adjusted < 1 {
		adjusted = 1
	}
	return adjusted
}

// bandSign is +1 on even (tick+sequence), -1 on odd; pseudo-random but
// fully deterministic, so replays regenerate identical contracts.
func bandSign(tick, sequence int64) int64 {
	if (tick+sequence)%2 == 0 {
		return 1
	}
	return -1
}

// GenerateContracts creates up to cfg.ContractsPerTick OPEN contracts for the
// given tick. Item and buyer are picked by (tick, sequence) modulo index into
// the code-sorted candidate lists; creation is skipped when the NPC buyer
// cannot afford the notional.
func GenerateContracts(ctx context.Context, tx store.Tx, cfg GeneratorConfig, tick int64) ([]*domain.Contract, error) {
	items, err := tx.Catalog().ListItems(ctx)
	if err != nil {
		return nil, err
	}
	companies, err := tx.Companies().List(ctx)
	if err != nil {
		return nil, err
	}
	var buyers []*domain.Company
	for _, c := range companies {
		if c.IsNPC() {
			buyers = append(buyers, c)
		}
	}
	if len(items) == 0 || len(buyers) == 0 {
		return nil, nil
	}

	qtySpan := cfg.MaxQuantity - cfg.MinQuantity + 1
	if qtySpan < 1 {
		qtySpan = 1
	}

	var created []*domain.Contract
	for seq := int64(0); seq < int64(cfg.ContractsPerTick); seq++ {
		item := items[(tick+seq)%int64(len(items))]
		buyer := buyers[(tick+seq)%int64(len(buyers))]

		recent, err := tx.Trades().ListRecentByItem(ctx, item.ID, cfg.TrailingTrades)
		if err != nil {
			return nil, err
		}
		price := PriceContractForItem(item, recent, tick, seq, cfg.PriceBandBps)
		quantity := cfg.MinQuantity + (tick+seq)%qtySpan

		if buyer.AvailableCashCents() < quantity*price {
			continue
		}

		c := &domain.Contract{
			ID:                uuid.New(),
			ItemID:            item.ID,
			RegionID:          buyer.RegionID,
			BuyerCompanyID:    buyer.ID,
			Status:            domain.ContractStatusOpen,
			Quantity:          quantity,
			RemainingQuantity: quantity,
			UnitPriceCents:    price,
			TickCreated:       tick,
			TickExpires:       tick + cfg.TTLTicks,
		}
		if err := tx.Contracts().Insert(ctx, c); err != nil {
			return nil, err
		}
		created = append(created, c)
	}

	return created, nil
}

// ExpireDueContracts moves every still-live contract whose expiry tick has
// arrived to EXPIRED.
func ExpireDueContracts(ctx context.Context, tx store.Tx, tick int64) (int, error) {
	due, err := tx.Contracts().ListExpirable(ctx, tick)
	if err != nil {
		return 0, err
	}

	for _, c := range due {
		c.Status = domain.ContractStatusExpired
		ok, err := tx.Contracts().TryUpdate(ctx, c)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, domain.Conflictf("contract %s changed concurrently during expiry", c.ID)
		}
	}
	return len(due), nil
}

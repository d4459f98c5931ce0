// Package npc drives the non-player side of the economy: the deterministic
// demand sink that consumes NPC inventory, and the liquidity bots that keep
// order books two-sided.
package npc

import (
	"context"
	"hash/fnv"

	"CorpKernel/internal/domain"
	"CorpKernel/internal/store"

	"github.com/google/uuid"
)

// DemandItem configures the sink for one item.
type DemandItem struct {
	ItemID       uuid.UUID
	ItemCode     string
	BaseQuantity int64
	Variability  int64
}

// DemandConfig lists the items the sink consumes, resolved by the shell.
type DemandConfig struct {
	Items []DemandItem
}

// stableHash is FNV-1a over "companyCode:itemCode". The pair hashes to the
// same value in every process, which is what makes demand replayable.
func stableHash(companyCode, itemCode string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(companyCode))
	h.Write([]byte{':'})
	h.Write([]byte(itemCode))
	return h.Sum64()
}

// ResolveDemandQuantityForCompanyItem is the pure demand function:
// base + (stableHash(companyCode:itemCode) + tick) mod (variability+1).
// No external randomness; identical inputs always produce identical demand.
func ResolveDemandQuantityForCompanyItem(companyCode, itemCode string, tick, base, variability int64) int64 {
	if variability < 0 {
		variability = 0
	}
	span := uint64(variability) + 1
	jitter := (stableHash(companyCode, itemCode) + uint64(tick)) % span
	return base + int64(jitter)
}

// RunDemandSink consumes available (unreserved) NPC inventory for every
// configured item, walking regions in lexicographic order until demand or
// supply runs out. Shortfall is normal: the sink never reserves and never
// errors when supply is thin.
func RunDemandSink(ctx context.Context, tx store.Tx, cfg DemandConfig, tick int64) (int64, error) {
	companies, err := tx.Companies().List(ctx)
	if err != nil {
		return 0, err
	}

	var consumed int64
	for _, c := range companies {
		if !c.IsNPC() {
			continue
		}
		for _, it := range cfg.Items {
			demand := ResolveDemandQuantityForCompanyItem(c.Code, it.ItemCode, tick, it.BaseQuantity, it.Variability)
			if demand <= 0 {
				continue
			}

			stacks, err := tx.Inventories().ListByCompanyItem(ctx, c.ID, it.ItemID)
			if err != nil {
				return consumed, err
			}
			for _, inv := range stacks {
				if demand == 0 {
					break
				}
				take := inv.Available()
				if take <= 0 {
					continue
				}
				if take > demand {
					take = demand
				}
				inv.Quantity -= take
				ok, err := tx.Inventories().TryUpdate(ctx, inv)
				if err != nil {
					return consumed, err
				}
				if !ok {
					return consumed, domain.Conflictf("inventory %s/%s@%s changed concurrently during demand sink",
						inv.CompanyID, inv.ItemID, inv.RegionID)
				}
				demand -= take
				consumed += take
			}
		}
	}
	return consumed, nil
}

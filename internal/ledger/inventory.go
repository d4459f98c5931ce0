package ledger

import (
	"context"

	"CorpKernel/internal/domain"
	"CorpKernel/internal/store"

	"github.com/google/uuid"
)

// CreditInventory adds unreserved stock, inserting the row on first stock.
// Used by trade settlement, contract delivery, and production output.
func CreditInventory(ctx context.Context, tx store.Tx, companyID, itemID uuid.UUID, regionID string, quantity int64) error {
	if quantity <= 0 {
		return domain.Invariantf("inventory credit must be positive, got %d", quantity)
	}

	key := domain.InventoryKey{CompanyID: companyID, ItemID: itemID, RegionID: regionID}
	inv, err := tx.Inventories().Get(ctx, key)
	if err != nil {
		if !domain.IsKind(err, domain.KindNotFound) {
			return err
		}
		return tx.Inventories().Insert(ctx, &domain.Inventory{
			CompanyID: companyID,
			ItemID:    itemID,
			RegionID:  regionID,
			Quantity:  quantity,
		})
	}

	inv.Quantity += quantity
	if err := inv.AssertInvariant(); err != nil {
		return err
	}
	ok, err := tx.Inventories().TryUpdate(ctx, inv)
	if err != nil {
		return err
	}
	if !ok {
		return domain.Conflictf("inventory %s/%s@%s changed concurrently during credit",
			companyID, itemID, regionID)
	}
	return nil
}

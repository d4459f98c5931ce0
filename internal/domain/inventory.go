package domain

import "github.com/google/uuid"

// InventoryKey identifies one inventory row.
type InventoryKey struct {
	CompanyID uuid.UUID
	ItemID    uuid.UUID
	RegionID  string
}

// Inventory tracks item stock per company per region. Rows are created on
// first stock and may sit at zero; they are never required to be deleted.
type Inventory struct {
	CompanyID        uuid.UUID
	ItemID           uuid.UUID
	RegionID         string
	Quantity         int64
	ReservedQuantity int64
	LockVersion      int64
}

func (inv *Inventory) Key() InventoryKey {
	return InventoryKey{CompanyID: inv.CompanyID, ItemID: inv.ItemID, RegionID: inv.RegionID}
}

// Available is stock not earmarked for open sell orders or running jobs.
func (inv *Inventory) Available() int64 {
	return inv.Quantity - inv.ReservedQuantity
}

// AssertInvariant checks 0 <= reserved <= quantity.
func (inv *Inventory) AssertInvariant() error {
	if inv.Quantity < 0 {
		return Invariantf("inventory %s/%s@%s has negative quantity: %d",
			inv.CompanyID, inv.ItemID, inv.RegionID, inv.Quantity)
	}
	if inv.ReservedQuantity < 0 {
		return Invariantf("inventory %s/%s@%s has negative reserved quantity: %d",
			inv.CompanyID, inv.ItemID, inv.RegionID, inv.ReservedQuantity)
	}
	if inv.ReservedQuantity > inv.Quantity {
		return Invariantf("inventory %s/%s@%s reserved %d exceeds quantity %d",
			inv.CompanyID, inv.ItemID, inv.RegionID, inv.ReservedQuantity, inv.Quantity)
	}
	return nil
}

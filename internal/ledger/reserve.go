// Package ledger holds the reservation arithmetic and the paired
// ledger-entry posting every cash-affecting operation runs through. All
// amounts are int64 minor currency units (cents); floating point never
// touches money.
package ledger

import "CorpKernel/internal/domain"

// ReserveCashForBuyOrder earmarks quantity*unitPriceCents of the company's
// available cash and returns the notional. The mutation is in-memory only;
// the caller persists the company row and posts the matching entry in the
// same transaction.
func ReserveCashForBuyOrder(c *domain.Company, quantity, unitPriceCents int64) (int64, error) {
	if quantity <= 0 {
		return 0, domain.Invariantf("buy order quantity must be positive, got %d", quantity)
	}
	if unitPriceCents <= 0 {
		return 0, domain.Invariantf("buy order price must be positive, got %d", unitPriceCents)
	}
	if err := c.AssertCashInvariant(); err != nil {
		return 0, err
	}

	notional := quantity * unitPriceCents
	if c.AvailableCashCents() < notional {
		return 0, domain.InsufficientFundsf("company %s has %d cents available, order needs %d",
			c.Code, c.AvailableCashCents(), notional)
	}

	c.ReservedCashCents += notional
	if err := c.AssertCashInvariant(); err != nil {
		return 0, err
	}
	return notional, nil
}

// ReleaseCashReservation returns previously reserved cash to available.
func ReleaseCashReservation(c *domain.Company, amountCents int64) error {
	if amountCents < 0 {
		return domain.Invariantf("cash release must be non-negative, got %d", amountCents)
	}
	if amountCents > c.ReservedCashCents {
		return domain.Invariantf("company %s cannot release %d cents, only %d reserved",
			c.Code, amountCents, c.ReservedCashCents)
	}
	c.ReservedCashCents -= amountCents
	return c.AssertCashInvariant()
}

// ReserveInventoryForSellOrder earmarks stock for an open sell order.
func ReserveInventoryForSellOrder(inv *domain.Inventory, quantity int64) error {
	return ReserveInventory(inv, quantity)
}

// ReserveInventory earmarks available stock for a pending order or job.
func ReserveInventory(inv *domain.Inventory, quantity int64) error {
	if quantity <= 0 {
		return domain.Invariantf("reserve quantity must be positive, got %d", quantity)
	}
	if err := inv.AssertInvariant(); err != nil {
		return err
	}
	if inv.Available() < quantity {
		return domain.InsufficientInventoryf("inventory %s/%s@%s has %d available, need %d",
			inv.CompanyID, inv.ItemID, inv.RegionID, inv.Available(), quantity)
	}
	inv.ReservedQuantity += quantity
	return inv.AssertInvariant()
}

// ReleaseInventoryReservation undoes part of a sell-order reservation
// without moving stock.
func ReleaseInventoryReservation(inv *domain.Inventory, quantity int64) error {
	if quantity < 0 {
		return domain.Invariantf("inventory release must be non-negative, got %d", quantity)
	}
	if quantity > inv.ReservedQuantity {
		return domain.Invariantf("inventory %s/%s@%s cannot release %d, only %d reserved",
			inv.CompanyID, inv.ItemID, inv.RegionID, quantity, inv.ReservedQuantity)
	}
	inv.ReservedQuantity -= quantity
	return inv.AssertInvariant()
}

// ConsumeReserved removes stock that was reserved earlier: both quantity and
// reservedQuantity drop by the consumed amount. Used when a reserved sell
// order fills, a production job completes, or a contract delivers from a
// reservation.
func ConsumeReserved(inv *domain.Inventory, quantity int64) error {
	if quantity <= 0 {
		return domain.Invariantf("consume quantity must be positive, got %d", quantity)
	}
	if quantity > inv.ReservedQuantity {
		return domain.Invariantf("inventory %s/%s@%s cannot consume %d, only %d reserved",
			inv.CompanyID, inv.ItemID, inv.RegionID, quantity, inv.ReservedQuantity)
	}
	inv.Quantity -= quantity
	inv.ReservedQuantity -= quantity
	return inv.AssertInvariant()
}

package contract

import (
	"context"
	"time"

	"CorpKernel/internal/domain"
	"CorpKernel/internal/ledger"
	"CorpKernel/internal/observability"
	"CorpKernel/internal/store"

	"github.com/google/uuid"
)

// AcceptContract claims an OPEN, unclaimed, non-expired contract for the
// seller. The claim is one conditional update; a zero-row match means
// another seller won the race (or the contract expired) and surfaces as a
// conflict for the caller to retry against a fresh read.
func AcceptContract(ctx context.Context, tx store.Tx, m *observability.Metrics, contractID, sellerCompanyID uuid.UUID, currentTick int64) error {
	if err := acceptContract(ctx, tx, contractID, sellerCompanyID, currentTick); err != nil {
		if domain.IsConflict(err) {
			m.LockConflict("accept_contract")
		}
		return err
	}
	m.ContractAccepted()
	return nil
}

func acceptContract(ctx context.Context, tx store.Tx, contractID, sellerCompanyID uuid.UUID, currentTick int64) error {
	c, err := tx.Contracts().Get(ctx, contractID)
	if err != nil {
		return err
	}
	if c.BuyerCompanyID == sellerCompanyID {
		return domain.Invariantf("company %s cannot accept its own contract %s", sellerCompanyID, contractID)
	}
	if _, err := tx.Companies().Get(ctx, sellerCompanyID); err != nil {
		return err
	}

	ok, err := tx.Contracts().TryClaim(ctx, contractID, sellerCompanyID, currentTick)
	if err != nil {
		return err
	}
	if !ok {
		return domain.Conflictf("contract %s was claimed, expired, or changed concurrently", contractID)
	}
	return nil
}

// FulfillInput is one partial or complete delivery against an accepted
// contract.
type FulfillInput struct {
	ContractID      uuid.UUID
	SellerCompanyID uuid.UUID
	Quantity        int64
	Tick            int64
	At              time.Time
}

// FulfillContract validates eagerly, then atomically: debits seller
// inventory, credits buyer inventory, moves cash buyer→seller with two
// offsetting ledger entries, appends the fulfillment record, and advances
// the contract's remaining quantity and status. Every mutation of a row read
// earlier is a conditional update, so concurrent fulfillment attempts fail
// loudly instead of corrupting remaining quantity or cash.
func FulfillContract(ctx context.Context, tx store.Tx, m *observability.Metrics, in FulfillInput) (*domain.ContractFulfillment, error) {
	f, err := fulfillContract(ctx, tx, in)
	if err != nil {
		if domain.IsConflict(err) {
			m.LockConflict("fulfill_contract")
		}
		return nil, err
	}
	m.ContractFulfilled()
	return f, nil
}

func fulfillContract(ctx context.Context, tx store.Tx, in FulfillInput) (*domain.ContractFulfillment, error) {
	c, err := tx.Contracts().Get(ctx, in.ContractID)
	if err != nil {
		return nil, err
	}
	if !c.FulfillableBy(in.SellerCompanyID) {
		return nil, domain.Invariantf("contract %s is not fulfillable by company %s (status %s)",
			c.ID, in.SellerCompanyID, c.Status)
	}
	if in.Tick >= c.TickExpires {
		return nil, domain.Invariantf("contract %s expired at tick %d", c.ID, c.TickExpires)
	}
	if in.Quantity <= 0 {
		return nil, domain.Invariantf("fulfillment quantity must be positive, got %d", in.Quantity)
	}
	if in.Quantity > c.RemainingQuantity {
		return nil, domain.Invariantf("fulfillment of %d exceeds remaining %d on contract %s",
			in.Quantity, c.RemainingQuantity, c.ID)
	}

	sellerInv, err := tx.Inventories().Get(ctx, domain.InventoryKey{
		CompanyID: in.SellerCompanyID, ItemID: c.ItemID, RegionID: c.RegionID,
	})
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, domain.InsufficientInventoryf("company %s holds no %s in %s",
				in.SellerCompanyID, c.ItemID, c.RegionID)
		}
		return nil, err
	}
	if sellerInv.Available() < in.Quantity {
		return nil, domain.InsufficientInventoryf("company %s has %d available %s in %s, contract delivery needs %d",
			in.SellerCompanyID, sellerInv.Available(), c.ItemID, c.RegionID, in.Quantity)
	}

	notional := in.Quantity * c.UnitPriceCents
	buyer, err := tx.Companies().Get(ctx, c.BuyerCompanyID)
	if err != nil {
		return nil, err
	}
	if buyer.AvailableCashCents() < notional {
		return nil, domain.InsufficientFundsf("buyer %s has %d cents available, delivery notional is %d",
			buyer.Code, buyer.AvailableCashCents(), notional)
	}
	seller, err := tx.Companies().Get(ctx, in.SellerCompanyID)
	if err != nil {
		return nil, err
	}

	// Seller stock out (unreserved quantity).
	sellerInv.Quantity -= in.Quantity
	if err := sellerInv.AssertInvariant(); err != nil {
		return nil, err
	}
	ok, err := tx.Inventories().TryUpdate(ctx, sellerInv)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.Conflictf("seller inventory changed concurrently during fulfillment of %s", c.ID)
	}

	// Buyer stock in.
	if err := ledger.CreditInventory(ctx, tx, c.BuyerCompanyID, c.ItemID, c.RegionID, in.Quantity); err != nil {
		return nil, err
	}

	fulfillment := &domain.ContractFulfillment{
		ID:              uuid.New(),
		ContractID:      c.ID,
		SellerCompanyID: in.SellerCompanyID,
		Quantity:        in.Quantity,
		UnitPriceCents:  c.UnitPriceCents,
		Tick:            in.Tick,
		CreatedAt:       in.At,
	}

	// Cash buyer→seller with offsetting entries.
	buyer.CashCents -= notional
	if _, err := ledger.Post(ctx, tx, ledger.Posting{
		Company:        buyer,
		Type:           domain.EntryTypeContractDebit,
		DeltaCashCents: -notional,
		Tick:           in.Tick,
		RefID:          &fulfillment.ID,
		At:             in.At,
	}); err != nil {
		return nil, err
	}
	seller.CashCents += notional
	if _, err := ledger.Post(ctx, tx, ledger.Posting{
		Company:        seller,
		Type:           domain.EntryTypeContractCredit,
		DeltaCashCents: notional,
		Tick:           in.Tick,
		RefID:          &fulfillment.ID,
		At:             in.At,
	}); err != nil {
		return nil, err
	}

	if err := tx.Fulfillments().Insert(ctx, fulfillment); err != nil {
		return nil, err
	}

	c.RemainingQuantity -= in.Quantity
	if c.RemainingQuantity == 0 {
		c.Status = domain.ContractStatusFulfilled
	} else {
		c.Status = domain.ContractStatusPartiallyFulfilled
	}
	ok, err = tx.Contracts().TryUpdate(ctx, c)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.Conflictf("contract %s changed concurrently during fulfillment", c.ID)
	}

	return fulfillment, nil
}

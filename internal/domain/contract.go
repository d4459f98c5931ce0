package domain

import (
	"time"

	"github.com/google/uuid"
)

type ContractStatus string

const (
	ContractStatusOpen               ContractStatus = "OPEN"
	ContractStatusAccepted           ContractStatus = "ACCEPTED"
	ContractStatusPartiallyFulfilled ContractStatus = "PARTIALLY_FULFILLED"
	ContractStatusFulfilled          ContractStatus = "FULFILLED"
	ContractStatusExpired            ContractStatus = "EXPIRED"
	ContractStatusCancelled          ContractStatus = "CANCELLED"
)

// Contract is an NPC-issued buy commitment: the buyer is always an NPC
// company, a seller claims it and delivers in one or more fulfillments.
// RemainingQuantity only ever decreases; TickExpires is fixed at creation.
type Contract struct {
	ID                uuid.UUID
	ItemID            uuid.UUID
	RegionID          string
	BuyerCompanyID    uuid.UUID
	SellerCompanyID   *uuid.UUID
	Status            ContractStatus
	Quantity          int64
	RemainingQuantity int64
	UnitPriceCents    int64
	TickCreated       int64
	TickExpires       int64
	LockVersion       int64
}

// Expirable reports whether the contract can still transition to EXPIRED.
func (c *Contract) Expirable() bool {
	switch c.Status {
	case ContractStatusOpen, ContractStatusAccepted, ContractStatusPartiallyFulfilled:
		return true
	}
	return false
}

// FulfillableBy reports whether seller deliveries are currently legal.
func (c *Contract) FulfillableBy(sellerID uuid.UUID) bool {
	if c.Status != ContractStatusAccepted && c.Status != ContractStatusPartiallyFulfilled {
		return false
	}
	return c.SellerCompanyID != nil && *c.SellerCompanyID == sellerID
}

// ContractFulfillment is the immutable record of one partial or complete
// delivery; it drives the paired ledger postings.
type ContractFulfillment struct {
	ID              uuid.UUID
	ContractID      uuid.UUID
	SellerCompanyID uuid.UUID
	Quantity        int64
	UnitPriceCents  int64
	Tick            int64
	CreatedAt       time.Time
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

type OrderStatus string

const (
	OrderStatusOpen      OrderStatus = "OPEN"
	OrderStatusFilled    OrderStatus = "FILLED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// MarketOrder is one side of the book for an (item, region) pair. Placement
// reserves cash (buys) or inventory (sells); matching and cancellation are
// the only mutators afterwards. FILLED and CANCELLED are terminal.
type MarketOrder struct {
	ID                uuid.UUID
	CompanyID         uuid.UUID
	ItemID            uuid.UUID
	RegionID          string
	Side              OrderSide
	Status            OrderStatus
	UnitPriceCents    int64
	Quantity          int64
	RemainingQuantity int64
	ReservedCashCents int64 // buys only
	ReservedQuantity  int64 // sells only
	TickPlaced        int64
	CreatedAt         time.Time // tie-break key within a tick
	LockVersion       int64
}

func (o *MarketOrder) IsOpen() bool { return o.Status == OrderStatusOpen }

// Trade is the immutable append-only record of one match.
type Trade struct {
	ID              uuid.UUID
	ItemID          uuid.UUID
	RegionID        string
	BuyOrderID      uuid.UUID
	SellOrderID     uuid.UUID
	BuyerCompanyID  uuid.UUID
	SellerCompanyID uuid.UUID
	Quantity        int64
	UnitPriceCents  int64
	Tick            int64
	CreatedAt       time.Time
}

// ItemTickCandle is the OHLCV/VWAP rollup for one (item, region, tick),
// idempotently upserted from that tick's trades only; it never accumulates
// across ticks.
type ItemTickCandle struct {
	ItemID     uuid.UUID
	RegionID   string
	Tick       int64
	OpenCents  int64
	HighCents  int64
	LowCents   int64
	CloseCents int64
	Volume     int64
	TradeCount int64
	VWAPCents  int64
}

type CandleKey struct {
	ItemID   uuid.UUID
	RegionID string
	Tick     int64
}

func (c *ItemTickCandle) Key() CandleKey {
	return CandleKey{ItemID: c.ItemID, RegionID: c.RegionID, Tick: c.Tick}
}

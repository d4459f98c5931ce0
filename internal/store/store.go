// Package store defines the transactional execution context the simulation
// kernel runs against: row-level CRUD with conditional updates that report
// whether exactly one row matched, ordered range queries, and
// serializable-or-better isolation for the duration of one tick. The kernel
// is persistence-engine-agnostic; any implementation honoring this contract
// can be substituted. A false return from any TryX method means the row
// changed since it was read; the kernel maps that to an optimistic-lock
// conflict and the caller retries from a fresh read.
package store

import (
	"context"
	"time"

	"CorpKernel/internal/domain"

	"github.com/google/uuid"
)

// ItemRegion identifies one order book partition.
type ItemRegion struct {
	ItemID   uuid.UUID
	RegionID string
}

// Store opens transactions. The fn either fully applies or rolls back.
type Store interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx exposes the per-entity repositories for one transaction.
type Tx interface {
	Companies() CompanyRepo
	Inventories() InventoryRepo
	Orders() OrderRepo
	Trades() TradeRepo
	Candles() CandleRepo
	Contracts() ContractRepo
	Fulfillments() FulfillmentRepo
	ProductionJobs() ProductionJobRepo
	ResearchJobs() ResearchJobRepo
	Research() ResearchRepo
	CapacityDeltas() CapacityDeltaRepo
	Ledger() LedgerRepo
	Catalog() CatalogRepo
	World() WorldRepo
}

// CompanyRepo rows are guarded by LockVersion: TryUpdate matches the version
// the entity carried when read, persists the mutated row with version+1, and
// bumps the in-memory entity on success.
type CompanyRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Company, error)
	List(ctx context.Context) ([]*domain.Company, error) // ordered by Code
	Insert(ctx context.Context, c *domain.Company) error
	TryUpdate(ctx context.Context, c *domain.Company) (bool, error)
}

type InventoryRepo interface {
	Get(ctx context.Context, key domain.InventoryKey) (*domain.Inventory, error)
	// ListByCompanyItem returns rows ordered by RegionID ascending
	// (lexicographic), the order the demand sink consumes in.
	ListByCompanyItem(ctx context.Context, companyID, itemID uuid.UUID) ([]*domain.Inventory, error)
	Insert(ctx context.Context, inv *domain.Inventory) error
	TryUpdate(ctx context.Context, inv *domain.Inventory) (bool, error)
}

type OrderRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.MarketOrder, error)
	Insert(ctx context.Context, o *domain.MarketOrder) error
	TryUpdate(ctx context.Context, o *domain.MarketOrder) (bool, error)
	// ListOpenByItemRegion returns the open book for one partition, ordered
	// by (TickPlaced, CreatedAt, ID) for deterministic input to the matcher.
	ListOpenByItemRegion(ctx context.Context, itemID uuid.UUID, regionID string) ([]*domain.MarketOrder, error)
	ListOpenByCompany(ctx context.Context, companyID uuid.UUID) ([]*domain.MarketOrder, error)
	// OpenItemRegions returns every partition with at least one open order,
	// ordered by (ItemID, RegionID).
	OpenItemRegions(ctx context.Context) ([]ItemRegion, error)
}

type TradeRepo interface {
	Insert(ctx context.Context, t *domain.Trade) error
	// ListByTick returns trades of one tick ordered by CreatedAt then ID.
	ListByTick(ctx context.Context, tick int64) ([]*domain.Trade, error)
	// ListRecentByItem returns up to limit trades for an item across regions,
	// most recent first.
	ListRecentByItem(ctx context.Context, itemID uuid.UUID, limit int) ([]*domain.Trade, error)
}

type CandleRepo interface {
	Get(ctx context.Context, key domain.CandleKey) (*domain.ItemTickCandle, error)
	Upsert(ctx context.Context, c *domain.ItemTickCandle) error
}

type ContractRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Contract, error)
	Insert(ctx context.Context, c *domain.Contract) error
	TryUpdate(ctx context.Context, c *domain.Contract) (bool, error)
	// TryClaim is the conditional acceptance write: it matches only
	// status=OPEN AND seller IS NULL AND tickExpires > currentTick, setting
	// the seller and status=ACCEPTED. False means the contract was taken,
	// expired, or changed concurrently.
	TryClaim(ctx context.Context, contractID, sellerCompanyID uuid.UUID, currentTick int64) (bool, error)
	// ListExpirable returns OPEN/ACCEPTED/PARTIALLY_FULFILLED contracts with
	// tickExpires <= currentTick, ordered by ID.
	ListExpirable(ctx context.Context, currentTick int64) ([]*domain.Contract, error)
	// ListOpen returns claimable contracts ordered by ID.
	ListOpen(ctx context.Context) ([]*domain.Contract, error)
}

type FulfillmentRepo interface {
	Insert(ctx context.Context, f *domain.ContractFulfillment) error
	ListByContract(ctx context.Context, contractID uuid.UUID) ([]*domain.ContractFulfillment, error)
}

type ProductionJobRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.ProductionJob, error)
	Insert(ctx context.Context, j *domain.ProductionJob) error
	TryUpdate(ctx context.Context, j *domain.ProductionJob) (bool, error)
	// ListDue returns RUNNING jobs with tickCompletes <= currentTick, ordered by ID.
	ListDue(ctx context.Context, currentTick int64) ([]*domain.ProductionJob, error)
}

type ResearchJobRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.ResearchJob, error)
	Insert(ctx context.Context, j *domain.ResearchJob) error
	TryUpdate(ctx context.Context, j *domain.ResearchJob) (bool, error)
	ListDue(ctx context.Context, currentTick int64) ([]*domain.ResearchJob, error)
}

type ResearchRepo interface {
	GetCompanyResearch(ctx context.Context, companyID, nodeID uuid.UUID) (*domain.CompanyResearch, error)
	// UpsertCompanyResearch writes by (company, node), last write wins, so
	// a status can move IN_PROGRESS to COMPLETED through the same call.
	UpsertCompanyResearch(ctx context.Context, cr *domain.CompanyResearch) error
	HasRecipeUnlock(ctx context.Context, companyID, recipeID uuid.UUID) (bool, error)
	// UpsertRecipeUnlock is idempotent by (company, recipe).
	UpsertRecipeUnlock(ctx context.Context, u *domain.RecipeUnlock) error
}

type CapacityDeltaRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.WorkforceCapacityDelta, error)
	Insert(ctx context.Context, d *domain.WorkforceCapacityDelta) error
	// ListDue returns unapplied deltas with tickArrives <= currentTick, ordered by ID.
	ListDue(ctx context.Context, currentTick int64) ([]*domain.WorkforceCapacityDelta, error)
	// TryConsume flips applied=false to true; false means already consumed.
	TryConsume(ctx context.Context, id uuid.UUID) (bool, error)
}

type LedgerRepo interface {
	Insert(ctx context.Context, e *domain.LedgerEntry) error
	// ListByCompany returns entries in append order.
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*domain.LedgerEntry, error)
}

// CatalogRepo rows are immutable after insert.
type CatalogRepo interface {
	GetItem(ctx context.Context, id uuid.UUID) (*domain.Item, error)
	ListItems(ctx context.Context) ([]*domain.Item, error) // ordered by Code
	InsertItem(ctx context.Context, it *domain.Item) error
	GetRecipe(ctx context.Context, id uuid.UUID) (*domain.Recipe, error)
	ListRecipes(ctx context.Context) ([]*domain.Recipe, error)
	InsertRecipe(ctx context.Context, r *domain.Recipe) error
	GetResearchNode(ctx context.Context, id uuid.UUID) (*domain.ResearchNode, error)
	ListResearchNodes(ctx context.Context) ([]*domain.ResearchNode, error)
	InsertResearchNode(ctx context.Context, n *domain.ResearchNode) error
}

type WorldRepo interface {
	Get(ctx context.Context) (*domain.WorldTickState, error)
	Init(ctx context.Context, w *domain.WorldTickState) error
	// TryAdvance bumps currentTick to newTick guarded by lockVersion.
	TryAdvance(ctx context.Context, expectedLockVersion, newTick int64, at time.Time) (bool, error)
}

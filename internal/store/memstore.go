package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"CorpKernel/internal/domain"

	"github.com/google/uuid"
)

// MemStore is the map-backed implementation of the store contract. A
// transaction clones the whole state, runs against the clone, and swaps it in
// on success, so a failed tick leaves nothing behind. The store-wide mutex
// serializes writers, which is stronger than the contract requires and fine
// for tests and the standalone dev mode.
type MemStore struct {
	mu    sync.Mutex
	state *memState
}

type companyNode struct {
	CompanyID uuid.UUID
	NodeID    uuid.UUID
}

type companyRecipe struct {
	CompanyID uuid.UUID
	RecipeID  uuid.UUID
}

type memState struct {
	companies    map[uuid.UUID]domain.Company
	inventories  map[domain.InventoryKey]domain.Inventory
	orders       map[uuid.UUID]domain.MarketOrder
	trades       []domain.Trade
	candles      map[domain.CandleKey]domain.ItemTickCandle
	contracts    map[uuid.UUID]domain.Contract
	fulfillments []domain.ContractFulfillment
	prodJobs     map[uuid.UUID]domain.ProductionJob
	resJobs      map[uuid.UUID]domain.ResearchJob
	research     map[companyNode]domain.CompanyResearch
	unlocks      map[companyRecipe]domain.RecipeUnlock
	deltas       map[uuid.UUID]domain.WorkforceCapacityDelta
	ledger       []domain.LedgerEntry
	items        map[uuid.UUID]domain.Item
	recipes      map[uuid.UUID]domain.Recipe
	nodes        map[uuid.UUID]domain.ResearchNode
	world        *domain.WorldTickState
}

func NewMemStore() *MemStore {
	return &MemStore{state: newMemState()}
}

func newMemState() *memState {
	return &memState{
		companies:   map[uuid.UUID]domain.Company{},
		inventories: map[domain.InventoryKey]domain.Inventory{},
		orders:      map[uuid.UUID]domain.MarketOrder{},
		candles:     map[domain.CandleKey]domain.ItemTickCandle{},
		contracts:   map[uuid.UUID]domain.Contract{},
		prodJobs:    map[uuid.UUID]domain.ProductionJob{},
		resJobs:     map[uuid.UUID]domain.ResearchJob{},
		research:    map[companyNode]domain.CompanyResearch{},
		unlocks:     map[companyRecipe]domain.RecipeUnlock{},
		deltas:      map[uuid.UUID]domain.WorkforceCapacityDelta{},
		items:       map[uuid.UUID]domain.Item{},
		recipes:     map[uuid.UUID]domain.Recipe{},
		nodes:       map[uuid.UUID]domain.ResearchNode{},
	}
}

func (s *memState) clone() *memState {
	c := &memState{
		companies:    make(map[uuid.UUID]domain.Company, len(s.companies)),
		inventories:  make(map[domain.InventoryKey]domain.Inventory, len(s.inventories)),
		orders:       make(map[uuid.UUID]domain.MarketOrder, len(s.orders)),
		trades:       append([]domain.Trade(nil), s.trades...),
		candles:      make(map[domain.CandleKey]domain.ItemTickCandle, len(s.candles)),
		contracts:    make(map[uuid.UUID]domain.Contract, len(s.contracts)),
		fulfillments: append([]domain.ContractFulfillment(nil), s.fulfillments...),
		prodJobs:     make(map[uuid.UUID]domain.ProductionJob, len(s.prodJobs)),
		resJobs:      make(map[uuid.UUID]domain.ResearchJob, len(s.resJobs)),
		research:     make(map[companyNode]domain.CompanyResearch, len(s.research)),
		unlocks:      make(map[companyRecipe]domain.RecipeUnlock, len(s.unlocks)),
		deltas:       make(map[uuid.UUID]domain.WorkforceCapacityDelta, len(s.deltas)),
		ledger:       append([]domain.LedgerEntry(nil), s.ledger...),
		items:        make(map[uuid.UUID]domain.Item, len(s.items)),
		recipes:      make(map[uuid.UUID]domain.Recipe, len(s.recipes)),
		nodes:        make(map[uuid.UUID]domain.ResearchNode, len(s.nodes)),
	}
	for k, v := range s.companies {
		c.companies[k] = v
	}
	for k, v := range s.inventories {
		c.inventories[k] = v
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.candles {
		c.candles[k] = v
	}
	for k, v := range s.contracts {
		c.contracts[k] = v
	}
	for k, v := range s.prodJobs {
		c.prodJobs[k] = v
	}
	for k, v := range s.resJobs {
		c.resJobs[k] = v
	}
	for k, v := range s.research {
		c.research[k] = v
	}
	for k, v := range s.unlocks {
		c.unlocks[k] = v
	}
	for k, v := range s.deltas {
		c.deltas[k] = v
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.recipes {
		c.recipes[k] = v
	}
	for k, v := range s.nodes {
		c.nodes[k] = v
	}
	if s.world != nil {
		w := *s.world
		c.world = &w
	}
	return c
}

// WithinTx runs fn against a cloned state; the clone replaces the live state
// only when fn returns nil.
func (s *MemStore) WithinTx(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	working := s.state.clone()
	if err := fn(&memTx{state: working}); err != nil {
		return err
	}
	s.state = working
	return nil
}

type memTx struct {
	state *memState
}

func (t *memTx) Companies() CompanyRepo            { return (*memCompanies)(t) }
func (t *memTx) Inventories() InventoryRepo        { return (*memInventories)(t) }
func (t *memTx) Orders() OrderRepo                 { return (*memOrders)(t) }
func (t *memTx) Trades() TradeRepo                 { return (*memTrades)(t) }
func (t *memTx) Candles() CandleRepo               { return (*memCandles)(t) }
func (t *memTx) Contracts() ContractRepo           { return (*memContracts)(t) }
func (t *memTx) Fulfillments() FulfillmentRepo     { return (*memFulfillments)(t) }
func (t *memTx) ProductionJobs() ProductionJobRepo { return (*memProdJobs)(t) }
func (t *memTx) ResearchJobs() ResearchJobRepo     { return (*memResJobs)(t) }
func (t *memTx) Research() ResearchRepo            { return (*memResearch)(t) }
func (t *memTx) CapacityDeltas() CapacityDeltaRepo { return (*memDeltas)(t) }
func (t *memTx) Ledger() LedgerRepo                { return (*memLedger)(t) }
func (t *memTx) Catalog() CatalogRepo              { return (*memCatalog)(t) }
func (t *memTx) World() WorldRepo                  { return (*memWorld)(t) }

// --- companies ---

type memCompanies memTx

func (r *memCompanies) Get(_ context.Context, id uuid.UUID) (*domain.Company, error) {
	c, ok := r.state.companies[id]
	if !ok {
		return nil, domain.NotFoundf("company %s", id)
	}
	return &c, nil
}

func (r *memCompanies) List(_ context.Context) ([]*domain.Company, error) {
	out := make([]*domain.Company, 0, len(r.state.companies))
	for _, c := range r.state.companies {
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *memCompanies) Insert(_ context.Context, c *domain.Company) error {
	if _, exists := r.state.companies[c.ID]; exists {
		return domain.Invariantf("company %s already exists", c.ID)
	}
	r.state.companies[c.ID] = *c
	return nil
}

func (r *memCompanies) TryUpdate(_ context.Context, c *domain.Company) (bool, error) {
	cur, ok := r.state.companies[c.ID]
	if !ok || cur.LockVersion != c.LockVersion {
		return false, nil
	}
	c.LockVersion++
	r.state.companies[c.ID] = *c
	return true, nil
}

// --- inventories ---

type memInventories memTx

func (r *memInventories) Get(_ context.Context, key domain.InventoryKey) (*domain.Inventory, error) {
	inv, ok := r.state.inventories[key]
	if !ok {
		return nil, domain.NotFoundf("inventory %s/%s@%s", key.CompanyID, key.ItemID, key.RegionID)
	}
	return &inv, nil
}

func (r *memInventories) ListByCompanyItem(_ context.Context, companyID, itemID uuid.UUID) ([]*domain.Inventory, error) {
	var out []*domain.Inventory
	for _, inv := range r.state.inventories {
		if inv.CompanyID == companyID && inv.ItemID == itemID {
			inv := inv
			out = append(out, &inv)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegionID < out[j].RegionID })
	return out, nil
}

func (r *memInventories) Insert(_ context.Context, inv *domain.Inventory) error {
	if _, exists := r.state.inventories[inv.Key()]; exists {
		return domain.Invariantf("inventory %s/%s@%s already exists",
			inv.CompanyID, inv.ItemID, inv.RegionID)
	}
	r.state.inventories[inv.Key()] = *inv
	return nil
}

func (r *memInventories) TryUpdate(_ context.Context, inv *domain.Inventory) (bool, error) {
	cur, ok := r.state.inventories[inv.Key()]
	if !ok || cur.LockVersion != inv.LockVersion {
		return false, nil
	}
	inv.LockVersion++
	r.state.inventories[inv.Key()] = *inv
	return true, nil
}

// --- orders ---

type memOrders memTx

func (r *memOrders) Get(_ context.Context, id uuid.UUID) (*domain.MarketOrder, error) {
	o, ok := r.state.orders[id]
	if !ok {
		return nil, domain.NotFoundf("order %s", id)
	}
	return &o, nil
}

func (r *memOrders) Insert(_ context.Context, o *domain.MarketOrder) error {
	if _, exists := r.state.orders[o.ID]; exists {
		return domain.Invariantf("order %s already exists", o.ID)
	}
	r.state.orders[o.ID] = *o
	return nil
}

func (r *memOrders) TryUpdate(_ context.Context, o *domain.MarketOrder) (bool, error) {
	cur, ok := r.state.orders[o.ID]
	if !ok || cur.LockVersion != o.LockVersion {
		return false, nil
	}
	o.LockVersion++
	r.state.orders[o.ID] = *o
	return true, nil
}

func sortOrdersFIFO(out []*domain.MarketOrder) {
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.TickPlaced != b.TickPlaced {
			return a.TickPlaced < b.TickPlaced
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})
}

func (r *memOrders) ListOpenByItemRegion(_ context.Context, itemID uuid.UUID, regionID string) ([]*domain.MarketOrder, error) {
	var out []*domain.MarketOrder
	for _, o := range r.state.orders {
		if o.Status == domain.OrderStatusOpen && o.ItemID == itemID && o.RegionID == regionID {
			o := o
			out = append(out, &o)
		}
	}
	sortOrdersFIFO(out)
	return out, nil
}

func (r *memOrders) ListOpenByCompany(_ context.Context, companyID uuid.UUID) ([]*domain.MarketOrder, error) {
	var out []*domain.MarketOrder
	for _, o := range r.state.orders {
		if o.Status == domain.OrderStatusOpen && o.CompanyID == companyID {
			o := o
			out = append(out, &o)
		}
	}
	sortOrdersFIFO(out)
	return out, nil
}

func (r *memOrders) OpenItemRegions(_ context.Context) ([]ItemRegion, error) {
	seen := map[ItemRegion]bool{}
	for _, o := range r.state.orders {
		if o.Status == domain.OrderStatusOpen {
			seen[ItemRegion{ItemID: o.ItemID, RegionID: o.RegionID}] = true
		}
	}
	out := make([]ItemRegion, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ItemID != out[j].ItemID {
			return out[i].ItemID.String() < out[j].ItemID.String()
		}
		return out[i].RegionID < out[j].RegionID
	})
	return out, nil
}

// --- trades ---

type memTrades memTx

func (r *memTrades) Insert(_ context.Context, t *domain.Trade) error {
	r.state.trades = append(r.state.trades, *t)
	return nil
}

func (r *memTrades) ListByTick(_ context.Context, tick int64) ([]*domain.Trade, error) {
	var out []*domain.Trade
	for i := range r.state.trades {
		if r.state.trades[i].Tick == tick {
			t := r.state.trades[i]
			out = append(out, &t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (r *memTrades) ListRecentByItem(_ context.Context, itemID uuid.UUID, limit int) ([]*domain.Trade, error) {
	var out []*domain.Trade
	// trades slice is append-only, so reverse scan yields most recent first.
	for i := len(r.state.trades) - 1; i >= 0 && len(out) < limit; i-- {
		if r.state.trades[i].ItemID == itemID {
			t := r.state.trades[i]
			out = append(out, &t)
		}
	}
	return out, nil
}

// --- candles ---

type memCandles memTx

func (r *memCandles) Get(_ context.Context, key domain.CandleKey) (*domain.ItemTickCandle, error) {
	c, ok := r.state.candles[key]
	if !ok {
		return nil, domain.NotFoundf("candle %s@%s tick %d", key.ItemID, key.RegionID, key.Tick)
	}
	return &c, nil
}

func (r *memCandles) Upsert(_ context.Context, c *domain.ItemTickCandle) error {
	r.state.candles[c.Key()] = *c
	return nil
}

// --- contracts ---

type memContracts memTx

func (r *memContracts) Get(_ context.Context, id uuid.UUID) (*domain.Contract, error) {
	c, ok := r.state.contracts[id]
	if !ok {
		return nil, domain.NotFoundf("contract %s", id)
	}
	return &c, nil
}

func (r *memContracts) Insert(_ context.Context, c *domain.Contract) error {
	if _, exists := r.state.contracts[c.ID]; exists {
		return domain.Invariantf("contract %s already exists", c.ID)
	}
	r.state.contracts[c.ID] = *c
	return nil
}

func (r *memContracts) TryUpdate(_ context.Context, c *domain.Contract) (bool, error) {
	cur, ok := r.state.contracts[c.ID]
	if !ok || cur.LockVersion != c.LockVersion {
		return false, nil
	}
	c.LockVersion++
	r.state.contracts[c.ID] = *c
	return true, nil
}

func (r *memContracts) TryClaim(_ context.Context, contractID, sellerCompanyID uuid.UUID, currentTick int64) (bool, error) {
	c, ok := r.state.contracts[contractID]
	if !ok {
		return false, nil
	}
	if c.Status != domain.ContractStatusOpen || c.SellerCompanyID != nil || c.TickExpires <= currentTick {
		return false, nil
	}
	seller := sellerCompanyID
	c.SellerCompanyID = &seller
	c.Status = domain.ContractStatusAccepted
	c.LockVersion++
	r.state.contracts[contractID] = c
	return true, nil
}

func (r *memContracts) ListExpirable(_ context.Context, currentTick int64) ([]*domain.Contract, error) {
	var out []*domain.Contract
	for _, c := range r.state.contracts {
		if c.Expirable() && c.TickExpires <= currentTick {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r *memContracts) ListOpen(_ context.Context) ([]*domain.Contract, error) {
	var out []*domain.Contract
	for _, c := range r.state.contracts {
		if c.Status == domain.ContractStatusOpen {
			c := c
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// --- fulfillments ---

type memFulfillments memTx

func (r *memFulfillments) Insert(_ context.Context, f *domain.ContractFulfillment) error {
	r.state.fulfillments = append(r.state.fulfillments, *f)
	return nil
}

func (r *memFulfillments) ListByContract(_ context.Context, contractID uuid.UUID) ([]*domain.ContractFulfillment, error) {
	var out []*domain.ContractFulfillment
	for i := range r.state.fulfillments {
		if r.state.fulfillments[i].ContractID == contractID {
			f := r.state.fulfillments[i]
			out = append(out, &f)
		}
	}
	return out, nil
}

// --- production jobs ---

type memProdJobs memTx

func (r *memProdJobs) Get(_ context.Context, id uuid.UUID) (*domain.ProductionJob, error) {
	j, ok := r.state.prodJobs[id]
	if !ok {
		return nil, domain.NotFoundf("production job %s", id)
	}
	return &j, nil
}

func (r *memProdJobs) Insert(_ context.Context, j *domain.ProductionJob) error {
	if _, exists := r.state.prodJobs[j.ID]; exists {
		return domain.Invariantf("production job %s already exists", j.ID)
	}
	r.state.prodJobs[j.ID] = *j
	return nil
}

func (r *memProdJobs) TryUpdate(_ context.Context, j *domain.ProductionJob) (bool, error) {
	cur, ok := r.state.prodJobs[j.ID]
	if !ok || cur.LockVersion != j.LockVersion {
		return false, nil
	}
	j.LockVersion++
	r.state.prodJobs[j.ID] = *j
	return true, nil
}

func (r *memProdJobs) ListDue(_ context.Context, currentTick int64) ([]*domain.ProductionJob, error) {
	var out []*domain.ProductionJob
	for _, j := range r.state.prodJobs {
		if j.Status == domain.JobStatusRunning && domain.IsJobDue(currentTick, j.TickCompletes) {
			j := j
			out = append(out, &j)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// --- research jobs ---

type memResJobs memTx

func (r *memResJobs) Get(_ context.Context, id uuid.UUID) (*domain.ResearchJob, error) {
	j, ok := r.state.resJobs[id]
	if !ok {
		return nil, domain.NotFoundf("research job %s", id)
	}
	return &j, nil
}

func (r *memResJobs) Insert(_ context.Context, j *domain.ResearchJob) error {
	if _, exists := r.state.resJobs[j.ID]; exists {
		return domain.Invariantf("research job %s already exists", j.ID)
	}
	r.state.resJobs[j.ID] = *j
	return nil
}

func (r *memResJobs) TryUpdate(_ context.Context, j *domain.ResearchJob) (bool, error) {
	cur, ok := r.state.resJobs[j.ID]
	if !ok || cur.LockVersion != j.LockVersion {
		return false, nil
	}
	j.LockVersion++
	r.state.resJobs[j.ID] = *j
	return true, nil
}

func (r *memResJobs) ListDue(_ context.Context, currentTick int64) ([]*domain.ResearchJob, error) {
	var out []*domain.ResearchJob
	for _, j := range r.state.resJobs {
		if j.Status == domain.JobStatusRunning && domain.IsJobDue(currentTick, j.DueTick) {
			j := j
			out = append(out, &j)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

// --- research state ---

type memResearch memTx

func (r *memResearch) GetCompanyResearch(_ context.Context, companyID, nodeID uuid.UUID) (*domain.CompanyResearch, error) {
	cr, ok := r.state.research[companyNode{companyID, nodeID}]
	if !ok {
		return nil, domain.NotFoundf("company research %s/%s", companyID, nodeID)
	}
	return &cr, nil
}

func (r *memResearch) UpsertCompanyResearch(_ context.Context, cr *domain.CompanyResearch) error {
	r.state.research[companyNode{cr.CompanyID, cr.NodeID}] = *cr
	return nil
}

func (r *memResearch) HasRecipeUnlock(_ context.Context, companyID, recipeID uuid.UUID) (bool, error) {
	_, ok := r.state.unlocks[companyRecipe{companyID, recipeID}]
	return ok, nil
}

func (r *memResearch) UpsertRecipeUnlock(_ context.Context, u *domain.RecipeUnlock) error {
	key := companyRecipe{u.CompanyID, u.RecipeID}
	if _, ok := r.state.unlocks[key]; ok {
		return nil
	}
	r.state.unlocks[key] = *u
	return nil
}

// --- workforce capacity deltas ---

type memDeltas memTx

func (r *memDeltas) Get(_ context.Context, id uuid.UUID) (*domain.WorkforceCapacityDelta, error) {
	d, ok := r.state.deltas[id]
	if !ok {
		return nil, domain.NotFoundf("capacity delta %s", id)
	}
	return &d, nil
}

func (r *memDeltas) Insert(_ context.Context, d *domain.WorkforceCapacityDelta) error {
	if _, exists := r.state.deltas[d.ID]; exists {
		return domain.Invariantf("capacity delta %s already exists", d.ID)
	}
	r.state.deltas[d.ID] = *d
	return nil
}

func (r *memDeltas) ListDue(_ context.Context, currentTick int64) ([]*domain.WorkforceCapacityDelta, error) {
	var out []*domain.WorkforceCapacityDelta
	for _, d := range r.state.deltas {
		if !d.Applied && d.TickArrives <= currentTick {
			d := d
			out = append(out, &d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out, nil
}

func (r *memDeltas) TryConsume(_ context.Context, id uuid.UUID) (bool, error) {
	d, ok := r.state.deltas[id]
	if !ok || d.Applied {
		return false, nil
	}
	d.Applied = true
	d.LockVersion++
	r.state.deltas[id] = d
	return true, nil
}

// --- ledger ---

type memLedger memTx

func (r *memLedger) Insert(_ context.Context, e *domain.LedgerEntry) error {
	r.state.ledger = append(r.state.ledger, *e)
	return nil
}

func (r *memLedger) ListByCompany(_ context.Context, companyID uuid.UUID) ([]*domain.LedgerEntry, error) {
	var out []*domain.LedgerEntry
	for i := range r.state.ledger {
		if r.state.ledger[i].CompanyID == companyID {
			e := r.state.ledger[i]
			out = append(out, &e)
		}
	}
	return out, nil
}

// --- catalog ---

type memCatalog memTx

func (r *memCatalog) GetItem(_ context.Context, id uuid.UUID) (*domain.Item, error) {
	it, ok := r.state.items[id]
	if !ok {
		return nil, domain.NotFoundf("item %s", id)
	}
	return &it, nil
}

func (r *memCatalog) ListItems(_ context.Context) ([]*domain.Item, error) {
	out := make([]*domain.Item, 0, len(r.state.items))
	for _, it := range r.state.items {
		it := it
		out = append(out, &it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *memCatalog) InsertItem(_ context.Context, it *domain.Item) error {
	if _, exists := r.state.items[it.ID]; exists {
		return domain.Invariantf("item %s already exists", it.ID)
	}
	r.state.items[it.ID] = *it
	return nil
}

func (r *memCatalog) GetRecipe(_ context.Context, id uuid.UUID) (*domain.Recipe, error) {
	rec, ok := r.state.recipes[id]
	if !ok {
		return nil, domain.NotFoundf("recipe %s", id)
	}
	return &rec, nil
}

func (r *memCatalog) ListRecipes(_ context.Context) ([]*domain.Recipe, error) {
	out := make([]*domain.Recipe, 0, len(r.state.recipes))
	for _, rec := range r.state.recipes {
		rec := rec
		out = append(out, &rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *memCatalog) InsertRecipe(_ context.Context, rec *domain.Recipe) error {
	if _, exists := r.state.recipes[rec.ID]; exists {
		return domain.Invariantf("recipe %s already exists", rec.ID)
	}
	r.state.recipes[rec.ID] = *rec
	return nil
}

func (r *memCatalog) GetResearchNode(_ context.Context, id uuid.UUID) (*domain.ResearchNode, error) {
	n, ok := r.state.nodes[id]
	if !ok {
		return nil, domain.NotFoundf("research node %s", id)
	}
	return &n, nil
}

func (r *memCatalog) ListResearchNodes(_ context.Context) ([]*domain.ResearchNode, error) {
	out := make([]*domain.ResearchNode, 0, len(r.state.nodes))
	for _, n := range r.state.nodes {
		n := n
		out = append(out, &n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (r *memCatalog) InsertResearchNode(_ context.Context, n *domain.ResearchNode) error {
	if _, exists := r.state.nodes[n.ID]; exists {
		return domain.Invariantf("research node %s already exists", n.ID)
	}
	r.state.nodes[n.ID] = *n
	return nil
}

// --- world tick state ---

type memWorld memTx

func (r *memWorld) Get(_ context.Context) (*domain.WorldTickState, error) {
	if r.state.world == nil {
		return nil, domain.NotFoundf("world tick state not initialized")
	}
	w := *r.state.world
	return &w, nil
}

func (r *memWorld) Init(_ context.Context, w *domain.WorldTickState) error {
	if r.state.world != nil {
		return domain.Invariantf("world tick state already initialized")
	}
	cp := *w
	cp.ID = domain.WorldTickStateID
	r.state.world = &cp
	return nil
}

func (r *memWorld) TryAdvance(_ context.Context, expectedLockVersion, newTick int64, at time.Time) (bool, error) {
	if r.state.world == nil || r.state.world.LockVersion != expectedLockVersion {
		return false, nil
	}
	r.state.world.CurrentTick = newTick
	r.state.world.LockVersion++
	r.state.world.LastAdvancedAt = at
	return true, nil
}

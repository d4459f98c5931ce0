package npc_test

import (
	"context"
	"testing"

	"CorpKernel/internal/domain"
	"CorpKernel/internal/npc"
	"CorpKernel/internal/store"
	"CorpKernel/internal/testutil"

	"github.com/google/uuid"
)

// ============================================================================
// Test: demand resolution
// ============================================================================

func TestResolveDemandQuantity_Deterministic(t *testing.T) {
	a := npc.ResolveDemandQuantityForCompanyItem("NPC1", "IRON", 42, 10, 5)
	b := npc.ResolveDemandQuantityForCompanyItem("NPC1", "IRON", 42, 10, 5)
	if a != b {
		t.Errorf("same inputs diverged: %d vs %d", a, b)
	}
	if a < 10 || a > 15 {
		t.Errorf("demand %d outside [10, 15]", a)
	}
}

func TestResolveDemandQuantity_ZeroVariability(t *testing.T) {
	got := npc.ResolveDemandQuantityForCompanyItem("NPC1", "IRON", 7, 25, 0)
	if got != 25 {
		t.Errorf("got %d, want exactly base 25", got)
	}
}

func TestResolveDemandQuantity_VariesAcrossCompanies(t *testing.T) {
	// Not guaranteed for every pair, but these inputs are fixed, so the
	// assertion is stable: different company codes shift the hash.
	a := npc.ResolveDemandQuantityForCompanyItem("NPC1", "IRON", 0, 0, 1_000_000)
	b := npc.ResolveDemandQuantityForCompanyItem("NPC2", "IRON", 0, 0, 1_000_000)
	if a == b {
		t.Errorf("expected different demand for different companies, both %d", a)
	}
}

// ============================================================================
// Test: RunDemandSink
// ============================================================================

func TestRunDemandSink_WalksRegionsInOrder(t *testing.T) {
	s := store.NewMemStore()
	ctx := context.Background()
	sink := testutil.NewNPCCompany("NPC1", 0)
	item := testutil.NewItem("IRON", 100)
	testutil.Seed(t, s, func(tx store.Tx) error {
		if err := tx.Companies().Insert(ctx, sink); err != nil {
			return err
		}
		return tx.Catalog().InsertItem(ctx, item)
	})
	testutil.SeedInventory(t, s, sink.ID, item.ID, "ap-east", 5)
	testutil.SeedInventory(t, s, sink.ID, item.ID, "eu-central", 50)

	cfg := npc.DemandConfig{Items: []npc.DemandItem{
		{ItemID: item.ID, ItemCode: item.Code, BaseQuantity: 8, Variability: 0},
	}}

	var consumed int64
	err := s.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		consumed, err = npc.RunDemandSink(ctx, tx, cfg, 3)
		return err
	})
	if err != nil {
		t.Fatalf("sink: %v", err)
	}
	if consumed != 8 {
		t.Errorf("consumed: got %d, want 8", consumed)
	}

	testutil.Seed(t, s, func(tx store.Tx) error {
		first, err := tx.Inventories().Get(ctx, domain.InventoryKey{
			CompanyID: sink.ID, ItemID: item.ID, RegionID: "ap-east",
		})
		if err != nil {
			return err
		}
		if first.Quantity != 0 {
			t.Errorf("first region drains first: got %d, want 0", first.Quantity)
		}
		second, err := tx.Inventories().Get(ctx, domain.InventoryKey{
			CompanyID: sink.ID, ItemID: item.ID, RegionID: "eu-central",
		})
		if err != nil {
			return err
		}
		if second.Quantity != 47 {
			t.Errorf("second region: got %d, want 47", second.Quantity)
		}
		return nil
	})
}

func TestRunDemandSink_SkipsReservedStock(t *testing.T) {
	s := store.NewMemStore()
	ctx := context.Background()
	sink := testutil.NewNPCCompany("NPC1", 0)
	item := testutil.NewItem("IRON", 100)
	testutil.Seed(t, s, func(tx store.Tx) error {
		if err := tx.Companies().Insert(ctx, sink); err != nil {
			return err
		}
		if err := tx.Catalog().InsertItem(ctx, item); err != nil {
			return err
		}
		return tx.Inventories().Insert(ctx, &domain.Inventory{
			CompanyID: sink.ID, ItemID: item.ID, RegionID: "eu-central",
			Quantity: 10, ReservedQuantity: 7,
		})
	})

	cfg := npc.DemandConfig{Items: []npc.DemandItem{
		{ItemID: item.ID, ItemCode: item.Code, BaseQuantity: 100, Variability: 0},
	}}

	var consumed int64
	err := s.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		consumed, err = npc.RunDemandSink(ctx, tx, cfg, 1)
		return err
	})
	if err != nil {
		t.Fatalf("sink: %v", err)
	}
	if consumed != 3 {
		t.Errorf("consumed: got %d, want only the 3 unreserved units", consumed)
	}

	testutil.Seed(t, s, func(tx store.Tx) error {
		inv, err := tx.Inventories().Get(ctx, domain.InventoryKey{
			CompanyID: sink.ID, ItemID: item.ID, RegionID: "eu-central",
		})
		if err != nil {
			return err
		}
		if inv.Quantity != 7 || inv.ReservedQuantity != 7 {
			t.Errorf("inventory: got qty=%d reserved=%d, want 7/7", inv.Quantity, inv.ReservedQuantity)
		}
		return nil
	})
}

func TestRunDemandSink_IgnoresPlayerCompanies(t *testing.T) {
	s := store.NewMemStore()
	ctx := context.Background()
	player := testutil.NewCompany("PLYR", 0)
	item := testutil.NewItem("IRON", 100)
	testutil.Seed(t, s, func(tx store.Tx) error {
		if err := tx.Companies().Insert(ctx, player); err != nil {
			return err
		}
		return tx.Catalog().InsertItem(ctx, item)
	})
	testutil.SeedInventory(t, s, player.ID, item.ID, "eu-central", 50)

	cfg := npc.DemandConfig{Items: []npc.DemandItem{
		{ItemID: item.ID, ItemCode: item.Code, BaseQuantity: 10, Variability: 0},
	}}

	var consumed int64
	err := s.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		consumed, err = npc.RunDemandSink(ctx, tx, cfg, 1)
		return err
	})
	if err != nil || consumed != 0 {
		t.Fatalf("got (%d, %v), want (0, nil)", consumed, err)
	}
}

// ============================================================================
// Test: PlanLiquidityOrders
// ============================================================================

var botCfg = npc.BotConfig{
	SpreadBps:               300,
	TargetQuantity:          25,
	MaxNotionalPerTickCents: 10_000_000,
	TrailingTrades:          50,
}

func TestPlanLiquidityOrders_SymmetricQuotes(t *testing.T) {
	snap := npc.BotSnapshot{
		CompanyID:          uuid.New(),
		RegionID:           "eu-central",
		AvailableCashCents: 1_000_000,
		Items: []npc.BotItemSnapshot{{
			ItemID: uuid.New(), ItemCode: "IRON",
			ReferencePriceCents: 1_000, AvailableInventory: 30,
		}},
	}

	plan := npc.PlanLiquidityOrders(botCfg, snap)
	if len(plan) != 2 {
		t.Fatalf("plan: got %d orders, want 2", len(plan))
	}
	buy, sell := plan[0], plan[1]
	if buy.Side != domain.OrderSideBuy || buy.UnitPriceCents != 970 || buy.Quantity != 25 {
		t.Errorf("buy: got %+v", buy)
	}
	if sell.Side != domain.OrderSideSell || sell.UnitPriceCents != 1_030 || sell.Quantity != 25 {
		t.Errorf("sell: got %+v", sell)
	}
}

func TestPlanLiquidityOrders_CashLimitsBuy(t *testing.T) {
	snap := npc.BotSnapshot{
		RegionID:           "eu-central",
		AvailableCashCents: 5_000,
		Items: []npc.BotItemSnapshot{{
			ItemID: uuid.New(), ItemCode: "IRON", ReferencePriceCents: 1_000,
		}},
	}

	plan := npc.PlanLiquidityOrders(botCfg, snap)
	if len(plan) != 1 {
		t.Fatalf("plan: got %d orders, want buy only", len(plan))
	}
	if plan[0].Side != domain.OrderSideBuy || plan[0].Quantity != 5 {
		t.Errorf("buy: got %+v, want quantity 5 at cash limit", plan[0])
	}
}

func TestPlanLiquidityOrders_InventoryLimitsSell(t *testing.T) {
	snap := npc.BotSnapshot{
		RegionID:           "eu-central",
		AvailableCashCents: 0,
		Items: []npc.BotItemSnapshot{{
			ItemID: uuid.New(), ItemCode: "IRON",
			ReferencePriceCents: 1_000, AvailableInventory: 3,
		}},
	}

	plan := npc.PlanLiquidityOrders(botCfg, snap)
	if len(plan) != 1 {
		t.Fatalf("plan: got %d orders, want sell only", len(plan))
	}
	if plan[0].Side != domain.OrderSideSell || plan[0].Quantity != 3 {
		t.Errorf("sell: got %+v, want quantity 3", plan[0])
	}
}

func TestPlanLiquidityOrders_NotionalCapSharedAcrossItems(t *testing.T) {
	cfg := botCfg
	cfg.MaxNotionalPerTickCents = 30_000 // one full buy at 970*25 = 24250
	snap := npc.BotSnapshot{
		RegionID:           "eu-central",
		AvailableCashCents: 10_000_000,
		Items: []npc.BotItemSnapshot{
			{ItemID: uuid.New(), ItemCode: "COAL", ReferencePriceCents: 1_000},
			{ItemID: uuid.New(), ItemCode: "IRON", ReferencePriceCents: 1_000},
		},
	}

	plan := npc.PlanLiquidityOrders(cfg, snap)
	var notional int64
	for _, p := range plan {
		notional += p.Quantity * p.UnitPriceCents
	}
	if notional > cfg.MaxNotionalPerTickCents {
		t.Errorf("notional %d exceeds cap %d", notional, cfg.MaxNotionalPerTickCents)
	}
	if len(plan) != 2 || plan[1].Quantity >= 25 {
		t.Errorf("second item should be squeezed by the cap: %+v", plan)
	}
}

func TestPlanLiquidityOrders_SkipsQuotedSides(t *testing.T) {
	snap := npc.BotSnapshot{
		RegionID:           "eu-central",
		AvailableCashCents: 1_000_000,
		Items: []npc.BotItemSnapshot{{
			ItemID: uuid.New(), ItemCode: "IRON",
			ReferencePriceCents: 1_000, AvailableInventory: 30,
			HasOpenBuy: true,
		}},
	}

	plan := npc.PlanLiquidityOrders(botCfg, snap)
	if len(plan) != 1 || plan[0].Side != domain.OrderSideSell {
		t.Errorf("got %+v, want sell only", plan)
	}
}

func TestPlanLiquidityOrders_FloorsQuoteAtOneCent(t *testing.T) {
	cfg := botCfg
	cfg.SpreadBps = 9_999
	snap := npc.BotSnapshot{
		RegionID:           "eu-central",
		AvailableCashCents: 1_000,
		Items: []npc.BotItemSnapshot{{
			ItemID: uuid.New(), ItemCode: "DUST", ReferencePriceCents: 1,
		}},
	}

	plan := npc.PlanLiquidityOrders(cfg, snap)
	if len(plan) == 0 {
		t.Fatal("expected a floored buy quote")
	}
	if plan[0].UnitPriceCents != 1 {
		t.Errorf("price: got %d, want floor 1", plan[0].UnitPriceCents)
	}
}

func TestPlanLiquidityOrders_SkipsItemsWithoutReference(t *testing.T) {
	snap := npc.BotSnapshot{
		RegionID:           "eu-central",
		AvailableCashCents: 1_000_000,
		Items: []npc.BotItemSnapshot{{
			ItemID: uuid.New(), ItemCode: "VOID", ReferencePriceCents: 0, AvailableInventory: 10,
		}},
	}

	if plan := npc.PlanLiquidityOrders(botCfg, snap); len(plan) != 0 {
		t.Errorf("got %+v, want empty plan", plan)
	}
}

// ============================================================================
// Test: PlaceBotOrders
// ============================================================================

func TestPlaceBotOrders(t *testing.T) {
	s := store.NewMemStore()
	ctx := context.Background()
	bot := testutil.NewNPCCompany("NPC1", 1_000_000)
	player := testutil.NewCompany("PLYR", 1_000_000)
	item := testutil.NewItem("IRON", 1_000)
	testutil.Seed(t, s, func(tx store.Tx) error {
		if err := tx.Companies().Insert(ctx, bot); err != nil {
			return err
		}
		if err := tx.Companies().Insert(ctx, player); err != nil {
			return err
		}
		return tx.Catalog().InsertItem(ctx, item)
	})
	testutil.SeedInventory(t, s, bot.ID, item.ID, "eu-central", 100)

	var placed int
	err := s.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		placed, err = npc.PlaceBotOrders(ctx, tx, nil, botCfg, 1, testutil.T0)
		return err
	})
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if placed != 2 {
		t.Fatalf("placed: got %d, want buy and sell", placed)
	}

	testutil.Seed(t, s, func(tx store.Tx) error {
		open, err := tx.Orders().ListOpenByCompany(ctx, bot.ID)
		if err != nil {
			return err
		}
		if len(open) != 2 {
			t.Fatalf("open orders: got %d, want 2", len(open))
		}
		playerOrders, err := tx.Orders().ListOpenByCompany(ctx, player.ID)
		if err != nil {
			return err
		}
		if len(playerOrders) != 0 {
			t.Errorf("player must not be quoted for: got %d orders", len(playerOrders))
		}
		c, err := tx.Companies().Get(ctx, bot.ID)
		if err != nil {
			return err
		}
		if c.ReservedCashCents == 0 {
			t.Error("buy quote must reserve cash")
		}
		return nil
	})

	// A second pass re-quotes nothing while the orders stay open.
	err = s.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		placed, err = npc.PlaceBotOrders(ctx, tx, nil, botCfg, 2, testutil.T0)
		return err
	})
	if err != nil || placed != 0 {
		t.Fatalf("re-quote: got (%d, %v), want (0, nil)", placed, err)
	}
}

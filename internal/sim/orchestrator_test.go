package sim_test

import (
	"context"
	"testing"
	"time"

	"CorpKernel/internal/contract"
	"CorpKernel/internal/domain"
	"CorpKernel/internal/market"
	"CorpKernel/internal/npc"
	"CorpKernel/internal/observability"
	"CorpKernel/internal/sim"
	"CorpKernel/internal/store"
	"CorpKernel/internal/testutil"
	"CorpKernel/internal/workforce"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/rs/zerolog"
)

func newOrchestrator(s store.Store, cfg sim.Config) (*sim.Orchestrator, *observability.Metrics) {
	metrics := observability.NewMetrics(prometheus.NewRegistry())
	return sim.NewOrchestrator(s, cfg, zerolog.Nop(), metrics, nil), metrics
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	return m.GetCounter().GetValue()
}

// collectCount drains one Collect pass, returning how many metric series
// the collector currently exposes.
func collectCount(c prometheus.Collector) int {
	ch := make(chan prometheus.Metric, 64)
	c.Collect(ch)
	close(ch)
	n := 0
	for range ch {
		n++
	}
	return n
}

// conflictingWorldStore makes TryAdvance lose a configured number of times
// before delegating, standing in for a concurrent writer racing the tick.
// A negative count loses every time.
type conflictingWorldStore struct {
	store.Store
	losses int
}

func (s *conflictingWorldStore) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.Store.WithinTx(ctx, func(tx store.Tx) error {
		return fn(&conflictingWorldTx{Tx: tx, s: s})
	})
}

type conflictingWorldTx struct {
	store.Tx
	s *conflictingWorldStore
}

func (t *conflictingWorldTx) World() store.WorldRepo {
	return &conflictingWorldRepo{WorldRepo: t.Tx.World(), s: t.s}
}

type conflictingWorldRepo struct {
	store.WorldRepo
	s *conflictingWorldStore
}

func (r *conflictingWorldRepo) TryAdvance(ctx context.Context, expectedLockVersion, newTick int64, at time.Time) (bool, error) {
	if r.s.losses != 0 {
		r.s.losses--
		return false, nil
	}
	return r.WorldRepo.TryAdvance(ctx, expectedLockVersion, newTick, at)
}

// quietConfig disables NPC activity so tests can stage the book themselves.
func quietConfig() sim.Config {
	return sim.Config{
		Contracts: contract.GeneratorConfig{},
		Demand:    npc.DemandConfig{},
		Bots:      npc.BotConfig{},
		Workforce: workforce.Config{
			BaseSalaryPerCapacityCents: 100,
			SkewPenaltyPerPointBps:     20,
			ShortfallPenaltyBps:        500,
			RecoveryBps:                100,
		},
		MaxTickRetries: 3,
	}
}

// ============================================================================
// Test: RunTick
// ============================================================================

func TestRunTick_AdvancesWorld(t *testing.T) {
	s := store.NewMemStore()
	ctx := context.Background()
	testutil.SeedWorld(t, s, 0)
	o, metrics := newOrchestrator(s, quietConfig())

	sum, err := o.RunTick(ctx, testutil.T0)
	if err != nil {
		t.Fatalf("tick 1: %v", err)
	}
	if got := collectCount(metrics.StepDuration); got != 10 {
		t.Errorf("step duration series: got %d, want one per sub-step", got)
	}
	if sum.Tick != 1 {
		t.Errorf("summary tick: got %d, want 1", sum.Tick)
	}

	sum, err = o.RunTick(ctx, testutil.T0)
	if err != nil {
		t.Fatalf("tick 2: %v", err)
	}
	if sum.Tick != 2 {
		t.Errorf("summary tick: got %d, want 2", sum.Tick)
	}

	testutil.Seed(t, s, func(tx store.Tx) error {
		world, err := tx.World().Get(ctx)
		if err != nil {
			return err
		}
		if world.CurrentTick != 2 {
			t.Errorf("world tick: got %d, want 2", world.CurrentTick)
		}
		if world.LockVersion != 2 {
			t.Errorf("world lock version: got %d, want 2", world.LockVersion)
		}
		return nil
	})
}

func TestRunTick_RequiresInitializedWorld(t *testing.T) {
	s := store.NewMemStore()
	o, _ := newOrchestrator(s, quietConfig())

	_, err := o.RunTick(context.Background(), testutil.T0)
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("got %v, want not found", err)
	}
}

func TestRunTick_MatchesStagedOrders(t *testing.T) {
	s := store.NewMemStore()
	ctx := context.Background()
	testutil.SeedWorld(t, s, 0)
	buyer := testutil.NewCompany("BUYR", 100_000)
	seller := testutil.NewCompany("SELL", 10_000)
	item := testutil.NewItem("IRON", 100)
	itemID := item.ID
	testutil.Seed(t, s, func(tx store.Tx) error {
		if err := tx.Companies().Insert(ctx, buyer); err != nil {
			return err
		}
		if err := tx.Companies().Insert(ctx, seller); err != nil {
			return err
		}
		return tx.Catalog().InsertItem(ctx, item)
	})
	testutil.SeedInventory(t, s, seller.ID, itemID, "eu-central", 50)

	testutil.Seed(t, s, func(tx store.Tx) error {
		if _, err := market.PlaceOrder(ctx, tx, nil, market.PlaceOrderInput{
			CompanyID: seller.ID, ItemID: itemID, RegionID: "eu-central",
			Side: domain.OrderSideSell, Quantity: 50, UnitPriceCents: 90,
			Tick: 0, At: testutil.T0,
		}); err != nil {
			return err
		}
		_, err := market.PlaceOrder(ctx, tx, nil, market.PlaceOrderInput{
			CompanyID: buyer.ID, ItemID: itemID, RegionID: "eu-central",
			Side: domain.OrderSideBuy, Quantity: 50, UnitPriceCents: 100,
			Tick: 0, At: testutil.T0.Add(1),
		})
		return err
	})

	o, metrics := newOrchestrator(s, quietConfig())
	sum, err := o.RunTick(ctx, testutil.T0)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if sum.TradesExecuted != 1 {
		t.Errorf("trades: got %d, want 1", sum.TradesExecuted)
	}
	if sum.TradeNotionalCents != 4_500 {
		t.Errorf("trade notional: got %d, want 4500", sum.TradeNotionalCents)
	}
	if got := counterValue(t, metrics.TradeNotional); got != 4_500 {
		t.Errorf("notional counter: got %v, want 4500", got)
	}
	if sum.CandlesUpserted != 1 {
		t.Errorf("candles: got %d, want 1", sum.CandlesUpserted)
	}

	testutil.Seed(t, s, func(tx store.Tx) error {
		candle, err := tx.Candles().Get(ctx, domain.CandleKey{
			ItemID: itemID, RegionID: "eu-central", Tick: 1,
		})
		if err != nil {
			return err
		}
		if candle.Volume != 50 || candle.VWAPCents != 90 {
			t.Errorf("candle: got volume=%d vwap=%d, want 50/90", candle.Volume, candle.VWAPCents)
		}
		b, err := tx.Companies().Get(ctx, buyer.ID)
		if err != nil {
			return err
		}
		if b.CashCents != 95_500 {
			t.Errorf("buyer cash: got %d, want 95500", b.CashCents)
		}
		return nil
	})
}

func TestRunTick_DrivesNPCEconomy(t *testing.T) {
	s := store.NewMemStore()
	ctx := context.Background()
	testutil.SeedWorld(t, s, 0)
	bot := testutil.NewNPCCompany("NPC1", 100_000_000)
	item := testutil.NewItem("IRON", 1_000)
	testutil.Seed(t, s, func(tx store.Tx) error {
		if err := tx.Companies().Insert(ctx, bot); err != nil {
			return err
		}
		return tx.Catalog().InsertItem(ctx, item)
	})
	testutil.SeedInventory(t, s, bot.ID, item.ID, bot.RegionID, 1_000)

	cfg := sim.DefaultConfig()
	cfg.Demand = npc.DemandConfig{Items: []npc.DemandItem{
		{ItemID: item.ID, ItemCode: item.Code, BaseQuantity: 10, Variability: 4},
	}}

	o, _ := newOrchestrator(s, cfg)
	sum, err := o.RunTick(ctx, testutil.T0)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if sum.ContractsGenerated == 0 {
		t.Error("expected NPC contracts to be generated")
	}
	if sum.BotOrdersPlaced == 0 {
		t.Error("expected liquidity quotes to be placed")
	}
	if sum.DemandConsumed < 10 || sum.DemandConsumed > 14 {
		t.Errorf("demand consumed: got %d, want within [10, 14]", sum.DemandConsumed)
	}
}

func TestRunTick_ChargesSalaries(t *testing.T) {
	s := store.NewMemStore()
	ctx := context.Background()
	testutil.SeedWorld(t, s, 0)
	c := testutil.NewCompany("ACME", 5_000)
	c.WorkforceCapacity = 10
	testutil.Seed(t, s, func(tx store.Tx) error {
		return tx.Companies().Insert(ctx, c)
	})

	o, _ := newOrchestrator(s, quietConfig())
	if _, err := o.RunTick(ctx, testutil.T0); err != nil {
		t.Fatalf("tick: %v", err)
	}

	testutil.Seed(t, s, func(tx store.Tx) error {
		got, err := tx.Companies().Get(ctx, c.ID)
		if err != nil {
			return err
		}
		if got.CashCents != 4_000 {
			t.Errorf("cash after salary: got %d, want 4000", got.CashCents)
		}
		return nil
	})
}

// ============================================================================
// Test: RunTickWithRetry
// ============================================================================

func TestRunTickWithRetry_SurfacesNonConflictErrors(t *testing.T) {
	s := store.NewMemStore() // world never initialized
	o, _ := newOrchestrator(s, quietConfig())

	_, err := o.RunTickWithRetry(context.Background(), testutil.T0)
	if !domain.IsKind(err, domain.KindNotFound) {
		t.Fatalf("got %v, want not found without retries", err)
	}
}

func TestRunTickWithRetry_Succeeds(t *testing.T) {
	s := store.NewMemStore()
	testutil.SeedWorld(t, s, 4)
	o, _ := newOrchestrator(s, quietConfig())

	sum, err := o.RunTickWithRetry(context.Background(), testutil.T0)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if sum.Tick != 5 {
		t.Errorf("tick: got %d, want 5", sum.Tick)
	}
}

func TestRunTickWithRetry_RetriesAfterConflict(t *testing.T) {
	mem := store.NewMemStore()
	ctx := context.Background()
	testutil.SeedWorld(t, mem, 0)
	c := testutil.NewCompany("ACME", 5_000)
	c.WorkforceCapacity = 10
	testutil.Seed(t, mem, func(tx store.Tx) error {
		return tx.Companies().Insert(ctx, c)
	})

	s := &conflictingWorldStore{Store: mem, losses: 1}
	o, metrics := newOrchestrator(s, quietConfig())

	sum, err := o.RunTickWithRetry(ctx, testutil.T0)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if sum.Tick != 1 {
		t.Errorf("tick: got %d, want 1", sum.Tick)
	}
	if got := counterValue(t, metrics.TickRetries); got != 1 {
		t.Errorf("retries: got %v, want 1", got)
	}
	if got := counterValue(t, metrics.LockConflicts.WithLabelValues("tick")); got != 1 {
		t.Errorf("tick conflicts: got %v, want 1", got)
	}

	// The conflicted attempt rolled back, so the salary debit applied once.
	testutil.Seed(t, mem, func(tx store.Tx) error {
		got, err := tx.Companies().Get(ctx, c.ID)
		if err != nil {
			return err
		}
		if got.CashCents != 4_000 {
			t.Errorf("cash after retried tick: got %d, want 4000", got.CashCents)
		}
		entries, err := tx.Ledger().ListByCompany(ctx, c.ID)
		if err != nil {
			return err
		}
		if len(entries) != 1 {
			t.Errorf("ledger entries: got %d, want 1", len(entries))
		}
		world, err := tx.World().Get(ctx)
		if err != nil {
			return err
		}
		if world.CurrentTick != 1 {
			t.Errorf("world tick: got %d, want 1", world.CurrentTick)
		}
		return nil
	})
}

func TestRunTickWithRetry_ExhaustsRetries(t *testing.T) {
	mem := store.NewMemStore()
	ctx := context.Background()
	testutil.SeedWorld(t, mem, 0)

	s := &conflictingWorldStore{Store: mem, losses: -1}
	cfg := quietConfig()
	cfg.MaxTickRetries = 2
	o, metrics := newOrchestrator(s, cfg)

	_, err := o.RunTickWithRetry(ctx, testutil.T0)
	if !domain.IsConflict(err) {
		t.Fatalf("got %v, want conflict after exhausting retries", err)
	}
	if got := counterValue(t, metrics.TickRetries); got != 1 {
		t.Errorf("retries: got %v, want 1", got)
	}
	if got := counterValue(t, metrics.TicksFailed.WithLabelValues("conflict")); got != 2 {
		t.Errorf("failed ticks: got %v, want 2", got)
	}

	testutil.Seed(t, mem, func(tx store.Tx) error {
		world, err := tx.World().Get(ctx)
		if err != nil {
			return err
		}
		if world.CurrentTick != 0 {
			t.Errorf("world tick after failed ticks: got %d, want 0", world.CurrentTick)
		}
		return nil
	})
}

package sim

import (
	"context"
	"time"

	"CorpKernel/internal/contract"
	"CorpKernel/internal/domain"
	"CorpKernel/internal/jobs"
	"CorpKernel/internal/market"
	"CorpKernel/internal/npc"
	"CorpKernel/internal/observability"
	"CorpKernel/internal/outbound"
	"CorpKernel/internal/store"
	"CorpKernel/internal/workforce"

	"github.com/rs/zerolog"
)

// TickSummary reports what one committed tick did.
type TickSummary struct {
	Tick                int64
	ContractsExpired    int
	ContractsGenerated  int
	DemandConsumed      int64
	BotOrdersPlaced     int
	TradesExecuted      int
	TradeNotionalCents  int64
	CandlesUpserted     int
	ProductionCompleted int
	ResearchCompleted   int
	CapacityApplied     int
}

// Orchestrator drives the simulation one tick at a time. A single
// orchestrator is the only writer advancing the world tick; player-facing
// operations race it and both sides resolve contention through conditional
// updates.
type Orchestrator struct {
	store     store.Store
	cfg       Config
	log       zerolog.Logger
	metrics   *observability.Metrics
	publisher *outbound.Publisher // nil disables outbound events
}

func NewOrchestrator(s store.Store, cfg Config, log zerolog.Logger, m *observability.Metrics, pub *outbound.Publisher) *Orchestrator {
	return &Orchestrator{store: s, cfg: cfg, log: log, metrics: m, publisher: pub}
}

// RunTick applies one full tick and advances the world counter. The whole
// tick runs in one transaction: any error rolls everything back and no
// partial tick state persists. A conflict means another writer advanced the
// world or touched a row mid-tick; the caller retries from a fresh read.
func (o *Orchestrator) RunTick(ctx context.Context, at time.Time) (TickSummary, error) {
	started := time.Now()
	var sum TickSummary

	err := o.store.WithinTx(ctx, func(tx store.Tx) error {
		world, err := tx.World().Get(ctx)
		if err != nil {
			return err
		}
		tick := world.CurrentTick + 1
		sum = TickSummary{Tick: tick}

		step := func(name string, fn func() error) error {
			stepStarted := time.Now()
			err := fn()
			o.metrics.StepDuration.WithLabelValues(name).Observe(time.Since(stepStarted).Seconds())
			return err
		}

		if err := step("expire_contracts", func() error {
			n, err := contract.ExpireDueContracts(ctx, tx, tick)
			sum.ContractsExpired = n
			return err
		}); err != nil {
			return err
		}

		if err := step("generate_contracts", func() error {
			generated, err := contract.GenerateContracts(ctx, tx, o.cfg.Contracts, tick)
			sum.ContractsGenerated = len(generated)
			return err
		}); err != nil {
			return err
		}

		if err := step("demand_sink", func() error {
			n, err := npc.RunDemandSink(ctx, tx, o.cfg.Demand, tick)
			sum.DemandConsumed = n
			return err
		}); err != nil {
			return err
		}

		if err := step("bot_orders", func() error {
			n, err := npc.PlaceBotOrders(ctx, tx, o.metrics, o.cfg.Bots, tick, at)
			sum.BotOrdersPlaced = n
			return err
		}); err != nil {
			return err
		}

		if err := step("match_orders", func() error {
			partitions, err := tx.Orders().OpenItemRegions(ctx)
			if err != nil {
				return err
			}
			for _, pr := range partitions {
				open, err := tx.Orders().ListOpenByItemRegion(ctx, pr.ItemID, pr.RegionID)
				if err != nil {
					return err
				}
				var buys, sells []*domain.MarketOrder
				for _, ord := range open {
					if ord.Side == domain.OrderSideBuy {
						buys = append(buys, ord)
					} else {
						sells = append(sells, ord)
					}
				}
				matches := market.PlanOrderMatchesForItem(buys, sells)
				if len(matches) == 0 {
					continue
				}
				trades, err := market.ApplyMatches(ctx, tx, pr.ItemID, pr.RegionID, matches, tick, at)
				if err != nil {
					return err
				}
				sum.TradesExecuted += len(trades)
				for _, tr := range trades {
					sum.TradeNotionalCents += tr.Quantity * tr.UnitPriceCents
				}
			}
			return nil
		}); err != nil {
			return err
		}

		if err := step("candles", func() error {
			n, err := market.UpsertMarketCandlesForTick(ctx, tx, tick)
			sum.CandlesUpserted = n
			return err
		}); err != nil {
			return err
		}

		if err := step("production_jobs", func() error {
			n, err := jobs.CompleteDueProductionJobs(ctx, tx, tick)
			sum.ProductionCompleted = n
			return err
		}); err != nil {
			return err
		}

		if err := step("research_jobs", func() error {
			n, err := jobs.CompleteDueResearchJobs(ctx, tx, tick)
			sum.ResearchCompleted = n
			return err
		}); err != nil {
			return err
		}

		if err := step("capacity_deltas", func() error {
			n, err := workforce.ApplyDueCapacityDeltas(ctx, tx, tick)
			sum.CapacityApplied = n
			return err
		}); err != nil {
			return err
		}

		if err := step("salaries", func() error {
			return workforce.RunSalaryTick(ctx, tx, o.cfg.Workforce, tick, at)
		}); err != nil {
			return err
		}

		ok, err := tx.World().TryAdvance(ctx, world.LockVersion, tick, at)
		if err != nil {
			return err
		}
		if !ok {
			return domain.Conflictf("world tick advanced concurrently, expected lock version %d", world.LockVersion)
		}
		return nil
	})
	if err != nil {
		if domain.IsConflict(err) {
			o.metrics.LockConflicts.WithLabelValues("tick").Inc()
		}
		o.metrics.TicksFailed.WithLabelValues(failReason(err)).Inc()
		return sum, err
	}

	o.observe(sum, time.Since(started))
	if o.publisher != nil {
		o.publisher.Publish(ctx, outbound.Event{
			Tick:      sum.Tick,
			EventType: outbound.EventTickAdvanced,
			Payload:   sum,
			Timestamp: at,
		})
	}
	return sum, nil
}

// RunTickWithRetry re-runs a conflicted tick from a fresh read, bounded by
// MaxTickRetries to avoid livelock. Non-conflict errors surface immediately.
func (o *Orchestrator) RunTickWithRetry(ctx context.Context, at time.Time) (TickSummary, error) {
	attempts := o.cfg.MaxTickRetries
	if attempts < 1 {
		attempts = 1
	}

	var sum TickSummary
	var err error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			o.metrics.TickRetries.Inc()
			o.log.Warn().Err(err).Int("attempt", i+1).Msg("retrying tick after conflict")
		}
		sum, err = o.RunTick(ctx, at)
		if err == nil || !domain.IsConflict(err) {
			return sum, err
		}
	}
	return sum, err
}

func (o *Orchestrator) observe(sum TickSummary, took time.Duration) {
	o.metrics.TicksAdvanced.Inc()
	o.metrics.TickDuration.Observe(took.Seconds())
	o.metrics.CurrentTick.Set(float64(sum.Tick))
	o.metrics.ContractsExpired.Add(float64(sum.ContractsExpired))
	o.metrics.ContractsGenerated.Add(float64(sum.ContractsGenerated))
	o.metrics.DemandConsumed.Add(float64(sum.DemandConsumed))
	o.metrics.BotOrdersPlaced.Add(float64(sum.BotOrdersPlaced))
	o.metrics.TradesExecuted.Add(float64(sum.TradesExecuted))
	o.metrics.TradeNotional.Add(float64(sum.TradeNotionalCents))
	o.metrics.CandlesUpserted.Add(float64(sum.CandlesUpserted))
	o.metrics.ProductionJobsCompleted.Add(float64(sum.ProductionCompleted))
	o.metrics.ResearchJobsCompleted.Add(float64(sum.ResearchCompleted))
	o.metrics.CapacityDeltasApplied.Add(float64(sum.CapacityApplied))

	o.log.Info().
		Int64("tick", sum.Tick).
		Int("contracts_expired", sum.ContractsExpired).
		Int("contracts_generated", sum.ContractsGenerated).
		Int64("demand_consumed", sum.DemandConsumed).
		Int("bot_orders", sum.BotOrdersPlaced).
		Int("trades", sum.TradesExecuted).
		Int64("trade_notional_cents", sum.TradeNotionalCents).
		Int("candles", sum.CandlesUpserted).
		Int("production_completed", sum.ProductionCompleted).
		Int("research_completed", sum.ResearchCompleted).
		Int("capacity_applied", sum.CapacityApplied).
		Dur("took", took).
		Msg("tick advanced")
}

func failReason(err error) string {
	if domain.IsConflict(err) {
		return "conflict"
	}
	return domain.KindOf(err).String()
}

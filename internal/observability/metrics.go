package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the simulation kernel.
type Metrics struct {
	// --- Tick orchestration ---
	TicksAdvanced prometheus.Counter
	TicksFailed   *prometheus.CounterVec
	TickDuration  prometheus.Histogram
	TickRetries   prometheus.Counter
	CurrentTick   prometheus.Gauge
	StepDuration  *prometheus.HistogramVec

	// --- Market ---
	OrdersPlaced    *prometheus.CounterVec
	OrdersCancelled prometheus.Counter
	TradesExecuted  prometheus.Counter
	TradeNotional   prometheus.Counter
	CandlesUpserted prometheus.Counter

	// --- Contracts ---
	ContractsGenerated prometheus.Counter
	ContractsExpired   prometheus.Counter
	ContractsAccepted  prometheus.Counter
	ContractsFulfilled prometheus.Counter

	// --- Jobs & workforce ---
	ProductionJobsCompleted prometheus.Counter
	ResearchJobsCompleted   prometheus.Counter
	CapacityDeltasApplied   prometheus.Counter

	// --- NPC activity ---
	DemandConsumed  prometheus.Counter
	BotOrdersPlaced prometheus.Counter

	// --- Concurrency ---
	LockConflicts *prometheus.CounterVec

	// --- Ledger ---
	LedgerEntriesPosted *prometheus.CounterVec

	// --- Outbound publishing ---
	EventsPublished *prometheus.CounterVec
	PublishErrors   prometheus.Counter
}

// NewMetrics creates all kernel metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	tickBuckets := []float64{
		0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0,
	}
	factory := promauto.With(reg)

	return &Metrics{
		TicksAdvanced: factory.NewCounter(prometheus.CounterOpts{
			Name: "corp_ticks_advanced_total",
			Help: "Ticks fully applied and advanced",
		}),

		TicksFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "corp_ticks_failed_total",
			Help: "Tick transactions rolled back",
		}, []string{"reason"}),

		TickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "corp_tick_duration_seconds",
			Help:    "Wall time of one full tick transaction",
			Buckets: tickBuckets,
		}),

		TickRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "corp_tick_retries_total",
			Help: "Tick re-runs after optimistic lock conflicts",
		}),

		CurrentTick: factory.NewGauge(prometheus.GaugeOpts{
			Name: "corp_current_tick",
			Help: "Current world tick",
		}),

		StepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "corp_tick_step_duration_seconds",
			Help:    "Wall time per orchestrator sub-step",
			Buckets: tickBuckets,
		}, []string{"step"}),

		OrdersPlaced: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "corp_orders_placed_total",
			Help: "Market orders placed",
		}, []string{"side"}),

		OrdersCancelled: factory.NewCounter(prometheus.CounterOpts{
			Name: "corp_orders_cancelled_total",
			Help: "Market orders cancelled",
		}),

		TradesExecuted: factory.NewCounter(prometheus.CounterOpts{
			Name: "corp_trades_executed_total",
			Help: "Trades produced by matching",
		}),

		TradeNotional: factory.NewCounter(prometheus.CounterOpts{
			Name: "corp_trade_notional_cents_total",
			Help: "Total traded notional in cents",
		}),

		CandlesUpserted: factory.NewCounter(prometheus.CounterOpts{
			Name: "corp_candles_upserted_total",
			Help: "Candle rows upserted",
		}),

		ContractsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "corp_contracts_generated_total",
			Help: "NPC contracts generated",
		}),

		ContractsExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "corp_contracts_expired_total",
			Help: "Contracts moved to EXPIRED",
		}),

		ContractsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "corp_contracts_accepted_total",
			Help: "Contracts claimed by player companies",
		}),

		ContractsFulfilled: factory.NewCounter(prometheus.CounterOpts{
			Name: "corp_contract_fulfillments_total",
			Help: "Contract fulfillments recorded",
		}),

		ProductionJobsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "corp_production_jobs_completed_total",
			Help: "Production jobs completed",
		}),

		ResearchJobsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "corp_research_jobs_completed_total",
			Help: "Research jobs completed",
		}),

		CapacityDeltasApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "corp_capacity_deltas_applied_total",
			Help: "Hiring capacity deltas applied",
		}),

		DemandConsumed: factory.NewCounter(prometheus.CounterOpts{
			Name: "corp_demand_consumed_total",
			Help: "Units consumed by the demand sink",
		}),

		BotOrdersPlaced: factory.NewCounter(prometheus.CounterOpts{
			Name: "corp_bot_orders_placed_total",
			Help: "Liquidity bot orders placed",
		}),

		LockConflicts: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "corp_lock_conflicts_total",
			Help: "Optimistic lock conflicts by operation",
		}, []string{"operation"}),

		LedgerEntriesPosted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "corp_ledger_entries_total",
			Help: "Ledger entries posted by type",
		}, []string{"entry_type"}),

		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "corp_events_published_total",
			Help: "Outbound simulation events published",
		}, []string{"event_type"}),

		PublishErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "corp_publish_errors_total",
			Help: "Outbound publish failures",
		}),
	}
}

// The per-operation helpers below are nil-safe: a nil *Metrics records
// nothing, so library callers without an observability wire-up pass nil.

func (m *Metrics) OrderPlaced(side string) {
	if m == nil {
		return
	}
	m.OrdersPlaced.WithLabelValues(side).Inc()
}

func (m *Metrics) OrderCancelled() {
	if m == nil {
		return
	}
	m.OrdersCancelled.Inc()
}

func (m *Metrics) ContractAccepted() {
	if m == nil {
		return
	}
	m.ContractsAccepted.Inc()
}

func (m *Metrics) ContractFulfilled() {
	if m == nil {
		return
	}
	m.ContractsFulfilled.Inc()
}

func (m *Metrics) LockConflict(operation string) {
	if m == nil {
		return
	}
	m.LockConflicts.WithLabelValues(operation).Inc()
}

// Package sim is the tick orchestrator: it runs every simulation sub-step
// for one tick inside a single transaction and advances the world tick
// counter under its lock version. A tick either fully applies or rolls back.
package sim

import (
	"CorpKernel/internal/contract"
	"CorpKernel/internal/npc"
	"CorpKernel/internal/workforce"
)

// Config aggregates the fully-resolved tunables for one orchestrator. The
// kernel receives these from the shell and never reads environment or files
// itself.
type Config struct {
	Contracts contract.GeneratorConfig
	Demand    npc.DemandConfig
	Bots      npc.BotConfig
	Workforce workforce.Config

	// MaxTickRetries bounds how many times a conflicted tick is re-run from
	// a fresh read before the error is surfaced.
	MaxTickRetries int
}

// DefaultConfig returns conservative tunables suitable for development.
func DefaultConfig() Config {
	return Config{
		Contracts: contract.GeneratorConfig{
			ContractsPerTick: 3,
			MinQuantity:      10,
			MaxQuantity:      100,
			TTLTicks:         20,
			PriceBandBps:     500,
			TrailingTrades:   200,
		},
		Bots: npc.BotConfig{
			SpreadBps:               300,
			TargetQuantity:          25,
			MaxNotionalPerTickCents: 1_000_000,
			TrailingTrades:          200,
		},
		Workforce: workforce.Config{
			BaseSalaryPerCapacityCents: 100,
			HiringLeadTimeTicks:        5,
			HiringCostPerCapacityCents: 500,
			SeverancePerCapacityCents:  250,
			SkewPenaltyPerPointBps:     20,
			ShortfallPenaltyBps:        500,
			RecoveryBps:                100,
		},
		MaxTickRetries: 3,
	}
}

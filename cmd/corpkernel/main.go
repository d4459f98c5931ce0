package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"CorpKernel/internal/domain"
	"CorpKernel/internal/observability"
	"CorpKernel/internal/outbound"
	"CorpKernel/internal/persistence"
	"CorpKernel/internal/sim"
	"CorpKernel/internal/store"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	log := observability.NewLogger("corpkernel")
	log.Info().Msg("corpkernel starting")

	cfg := DefaultConfig()
	simCfg, err := loadSimConfig(cfg.TunablesFile)
	if err != nil {
		log.Fatal().Err(err).Msg("load tunables")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// --- Store ---
	var st store.Store
	switch cfg.StoreBackend {
	case "memory":
		st = store.NewMemStore()
		log.Info().Msg("using in-memory store")

	case "postgres":
		pg, err := persistence.Open(cfg.PostgresURL)
		if err != nil {
			log.Fatal().Err(err).Msg("postgres open")
		}
		defer pg.Close()
		log.Info().Msg("postgres connected")

		migrator := persistence.NewMigrator(pg.DB(), cfg.MigrationsDir, observability.NewLogger("migrator"))
		if err := migrator.Up(ctx); err != nil {
			log.Fatal().Err(err).Msg("run migrations")
		}
		st = pg

	default:
		log.Fatal().Str("backend", cfg.StoreBackend).Msg("unknown store backend")
	}

	// The world clock row must exist before the first tick.
	if err := st.WithinTx(ctx, func(tx store.Tx) error {
		return tx.World().Init(ctx, &domain.WorldTickState{
			ID:             domain.WorldTickStateID,
			CurrentTick:    0,
			LastAdvancedAt: time.Now().UTC(),
		})
	}); err != nil {
		log.Fatal().Err(err).Msg("init world tick state")
	}

	// --- Observability ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)
	st = observability.InstrumentStore(st, metrics)
	healthChecker := observability.NewHealthChecker()

	// --- NATS (optional) ---
	var publisher *outbound.Publisher
	if cfg.NATSURL != "" {
		nc, js, err := outbound.ConnectNATS(cfg.NATSURL, observability.NewLogger("nats"))
		if err != nil {
			log.Fatal().Err(err).Msg("nats connect")
		}
		defer nc.Close()
		if err := outbound.EnsureStream(ctx, js); err != nil {
			log.Fatal().Err(err).Msg("ensure outbound stream")
		}
		publisher = outbound.NewPublisher(js, observability.NewLogger("outbound"), metrics)
		log.Info().Msg("NATS connected")
	} else {
		log.Info().Msg("NATS disabled, outbound events off")
	}

	orchestrator := sim.NewOrchestrator(st, simCfg, observability.NewLogger("orchestrator"), metrics, publisher)

	errChan := make(chan error, 2)

	// --- Metrics + health server ---
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", healthChecker.LivenessHandler)
	mux.HandleFunc("/readyz", healthChecker.ReadinessHandler)
	httpServer := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		shutCtx, c := context.WithTimeout(context.Background(), 5*time.Second)
		defer c()
		httpServer.Shutdown(shutCtx)
	}()
	go func() {
		log.Info().Str("addr", cfg.MetricsAddr).Msg("metrics server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	// --- Tick loop ---
	go func() {
		ticker := time.NewTicker(cfg.TickInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if _, err := orchestrator.RunTickWithRetry(ctx, now.UTC()); err != nil {
					if domain.IsConflict(err) {
						log.Warn().Err(err).Msg("tick lost to a concurrent writer, will retry next interval")
						continue
					}
					errChan <- fmt.Errorf("tick failed: %w", err)
					return
				}
			}
		}
	}()

	healthChecker.SetReady(true)
	log.Info().
		Dur("tick_interval", cfg.TickInterval).
		Str("metrics", cfg.MetricsAddr).
		Msg("corpkernel ready")

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	case err := <-errChan:
		log.Error().Err(err).Msg("fatal error, shutting down")
	}

	healthChecker.SetReady(false)
	cancel()
	log.Info().Msg("corpkernel shutdown complete")
}

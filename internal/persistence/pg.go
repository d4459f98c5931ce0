// Package persistence implements store.Store on Postgres. Conditional
// updates are plain UPDATE statements whose WHERE clause carries the
// previously observed lock version; RowsAffected decides whether the write
// won. Ticks run under SERIALIZABLE isolation so the whole tick commits or
// rolls back as one unit.
package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"CorpKernel/internal/store"

	_ "github.com/lib/pq"
)

// PGStore is the Postgres-backed store.
type PGStore struct {
	db *sql.DB
}

// Open connects and pings.
func Open(dsn string) (*PGStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(8)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PGStore{db: db}, nil
}

// NewPGStore wraps an existing connection pool, used by tests and the
// migrator wiring.
func NewPGStore(db *sql.DB) *PGStore { return &PGStore{db: db} }

func (s *PGStore) DB() *sql.DB { return s.db }

func (s *PGStore) Close() error { return s.db.Close() }

// WithinTx runs fn in one SERIALIZABLE transaction.
func (s *PGStore) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	t := &pgTx{tx: sqlTx}
	if err := fn(t); err != nil {
		sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) Companies() store.CompanyRepo           { return (*pgCompanies)(t) }
func (t *pgTx) Inventories() store.InventoryRepo       { return (*pgInventories)(t) }
func (t *pgTx) Orders() store.OrderRepo                { return (*pgOrders)(t) }
func (t *pgTx) Trades() store.TradeRepo                { return (*pgTrades)(t) }
func (t *pgTx) Candles() store.CandleRepo              { return (*pgCandles)(t) }
func (t *pgTx) Contracts() store.ContractRepo          { return (*pgContracts)(t) }
func (t *pgTx) Fulfillments() store.FulfillmentRepo    { return (*pgFulfillments)(t) }
func (t *pgTx) ProductionJobs() store.ProductionJobRepo { return (*pgProductionJobs)(t) }
func (t *pgTx) ResearchJobs() store.ResearchJobRepo    { return (*pgResearchJobs)(t) }
func (t *pgTx) Research() store.ResearchRepo           { return (*pgResearch)(t) }
func (t *pgTx) CapacityDeltas() store.CapacityDeltaRepo { return (*pgCapacityDeltas)(t) }
func (t *pgTx) Ledger() store.LedgerRepo               { return (*pgLedger)(t) }
func (t *pgTx) Catalog() store.CatalogRepo             { return (*pgCatalog)(t) }
func (t *pgTx) World() store.WorldRepo                 { return (*pgWorld)(t) }

// execCond runs a conditional write and reports whether exactly one row
// matched.
func (t *pgTx) execCond(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := t.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

package persistence

import (
	"context"
	"database/sql"
	"time"

	"CorpKernel/internal/domain"

	"github.com/google/uuid"
)

type pgCompanies pgTx

const companyColumns = `id, code, name, owner_player_id, region_id, specialization,
	cash_cents, reserved_cash_cents, workforce_capacity,
	ops_pct, research_pct, logistics_pct, corporate_pct, org_efficiency_bps,
	lock_version, created_at`

func scanCompany(row interface{ Scan(...any) error }) (*domain.Company, error) {
	var c domain.Company
	var owner uuid.NullUUID
	err := row.Scan(&c.ID, &c.Code, &c.Name, &owner, &c.RegionID, &c.Specialization,
		&c.CashCents, &c.ReservedCashCents, &c.WorkforceCapacity,
		&c.OpsPct, &c.ResearchPct, &c.LogisticsPct, &c.CorporatePct, &c.OrgEfficiencyBps,
		&c.LockVersion, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	if owner.Valid {
		c.OwnerPlayerID = &owner.UUID
	}
	return &c, nil
}

func (r *pgCompanies) Get(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	c, err := scanCompany(r.tx.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM sim.companies WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundf("company %s not found", id)
	}
	return c, err
}

func (r *pgCompanies) List(ctx context.Context) ([]*domain.Company, error) {
	rows, err := r.tx.QueryContext(ctx,
		`SELECT `+companyColumns+` FROM sim.companies ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *pgCompanies) Insert(ctx context.Context, c *domain.Company) error {
	var owner uuid.NullUUID
	if c.OwnerPlayerID != nil {
		owner = uuid.NullUUID{UUID: *c.OwnerPlayerID, Valid: true}
	}
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO sim.companies (`+companyColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		c.ID, c.Code, c.Name, owner, c.RegionID, c.Specialization,
		c.CashCents, c.ReservedCashCents, c.WorkforceCapacity,
		c.OpsPct, c.ResearchPct, c.LogisticsPct, c.CorporatePct, c.OrgEfficiencyBps,
		c.LockVersion, c.CreatedAt)
	return err
}

func (r *pgCompanies) TryUpdate(ctx context.Context, c *domain.Company) (bool, error) {
	var owner uuid.NullUUID
	if c.OwnerPlayerID != nil {
		owner = uuid.NullUUID{UUID: *c.OwnerPlayerID, Valid: true}
	}
	ok, err := (*pgTx)(r).execCond(ctx, `
		UPDATE sim.companies SET
			name = $3, owner_player_id = $4, specialization = $5,
			cash_cents = $6, reserved_cash_cents = $7, workforce_capacity = $8,
			ops_pct = $9, research_pct = $10, logistics_pct = $11, corporate_pct = $12,
			org_efficiency_bps = $13, lock_version = lock_version + 1
		WHERE id = $1 AND lock_version = $2`,
		c.ID, c.LockVersion, c.Name, owner, c.Specialization,
		c.CashCents, c.ReservedCashCents, c.WorkforceCapacity,
		c.OpsPct, c.ResearchPct, c.LogisticsPct, c.CorporatePct, c.OrgEfficiencyBps)
	if err != nil {
		return false, err
	}
	if ok {
		c.LockVersion++
	}
	return ok, nil
}

type pgInventories pgTx

const inventoryColumns = `company_id, item_id, region_id, quantity, reserved_quantity, lock_version`

func scanInventory(row interface{ Scan(...any) error }) (*domain.Inventory, error) {
	var inv domain.Inventory
	err := row.Scan(&inv.CompanyID, &inv.ItemID, &inv.RegionID,
		&inv.Quantity, &inv.ReservedQuantity, &inv.LockVersion)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *pgInventories) Get(ctx context.Context, key domain.InventoryKey) (*domain.Inventory, error) {
	inv, err := scanInventory(r.tx.QueryRowContext(ctx,
		`SELECT `+inventoryColumns+` FROM sim.inventories
		 WHERE company_id = $1 AND item_id = $2 AND region_id = $3`,
		key.CompanyID, key.ItemID, key.RegionID))
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundf("inventory %s/%s@%s not found", key.CompanyID, key.ItemID, key.RegionID)
	}
	return inv, err
}

func (r *pgInventories) ListByCompanyItem(ctx context.Context, companyID, itemID uuid.UUID) ([]*domain.Inventory, error) {
	rows, err := r.tx.QueryContext(ctx,
		`SELECT `+inventoryColumns+` FROM sim.inventories
		 WHERE company_id = $1 AND item_id = $2 ORDER BY region_id`,
		companyID, itemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Inventory
	for rows.Next() {
		inv, err := scanInventory(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *pgInventories) Insert(ctx context.Context, inv *domain.Inventory) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO sim.inventories (`+inventoryColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		inv.CompanyID, inv.ItemID, inv.RegionID, inv.Quantity, inv.ReservedQuantity, inv.LockVersion)
	return err
}

func (r *pgInventories) TryUpdate(ctx context.Context, inv *domain.Inventory) (bool, error) {
	ok, err := (*pgTx)(r).execCond(ctx, `
		UPDATE sim.inventories SET
			quantity = $5, reserved_quantity = $6, lock_version = lock_version + 1
		WHERE company_id = $1 AND item_id = $2 AND region_id = $3 AND lock_version = $4`,
		inv.CompanyID, inv.ItemID, inv.RegionID, inv.LockVersion,
		inv.Quantity, inv.ReservedQuantity)
	if err != nil {
		return false, err
	}
	if ok {
		inv.LockVersion++
	}
	return ok, nil
}

type pgLedger pgTx

func (r *pgLedger) Insert(ctx context.Context, e *domain.LedgerEntry) error {
	var ref uuid.NullUUID
	if e.RefID != nil {
		ref = uuid.NullUUID{UUID: *e.RefID, Valid: true}
	}
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO sim.ledger_entries
			(id, company_id, entry_type, delta_cash_cents, delta_reserved_cash_cents,
			 balance_after_cents, tick, ref_id, memo, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		e.ID, e.CompanyID, e.EntryType, e.DeltaCashCents, e.DeltaReservedCashCents,
		e.BalanceAfterCents, e.Tick, ref, e.Memo, e.CreatedAt)
	return err
}

func (r *pgLedger) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]*domain.LedgerEntry, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT id, company_id, entry_type, delta_cash_cents, delta_reserved_cash_cents,
		       balance_after_cents, tick, ref_id, memo, created_at
		FROM sim.ledger_entries WHERE company_id = $1 ORDER BY created_at, id`,
		companyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var ref uuid.NullUUID
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.EntryType, &e.DeltaCashCents,
			&e.DeltaReservedCashCents, &e.BalanceAfterCents, &e.Tick, &ref, &e.Memo, &e.CreatedAt); err != nil {
			return nil, err
		}
		if ref.Valid {
			e.RefID = &ref.UUID
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

type pgWorld pgTx

func (r *pgWorld) Get(ctx context.Context) (*domain.WorldTickState, error) {
	var w domain.WorldTickState
	err := r.tx.QueryRowContext(ctx, `
		SELECT id, current_tick, lock_version, last_advanced_at
		FROM sim.world_tick_state WHERE id = $1`, domain.WorldTickStateID).
		Scan(&w.ID, &w.CurrentTick, &w.LockVersion, &w.LastAdvancedAt)
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundf("world tick state not initialized")
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *pgWorld) Init(ctx context.Context, w *domain.WorldTickState) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO sim.world_tick_state (id, current_tick, lock_version, last_advanced_at)
		VALUES ($1,$2,$3,$4) ON CONFLICT (id) DO NOTHING`,
		domain.WorldTickStateID, w.CurrentTick, w.LockVersion, w.LastAdvancedAt)
	return err
}

func (r *pgWorld) TryAdvance(ctx context.Context, expectedLockVersion, newTick int64, at time.Time) (bool, error) {
	return (*pgTx)(r).execCond(ctx, `
		UPDATE sim.world_tick_state SET
			current_tick = $3, last_advanced_at = $4, lock_version = lock_version + 1
		WHERE id = $1 AND lock_version = $2`,
		domain.WorldTickStateID, expectedLockVersion, newTick, at)
}

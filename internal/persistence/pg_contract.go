package persistence

import (
	"context"
	"database/sql"

	"CorpKernel/internal/domain"

	"github.com/google/uuid"
)

type pgContracts pgTx

const contractColumns = `id, item_id, region_id, buyer_company_id, seller_company_id,
	status, quantity, remaining_quantity, unit_price_cents, tick_created, tick_expires, lock_version`

func scanContract(row interface{ Scan(...any) error }) (*domain.Contract, error) {
	var c domain.Contract
	var seller uuid.NullUUID
	err := row.Scan(&c.ID, &c.ItemID, &c.RegionID, &c.BuyerCompanyID, &seller,
		&c.Status, &c.Quantity, &c.RemainingQuantity, &c.UnitPriceCents,
		&c.TickCreated, &c.TickExpires, &c.LockVersion)
	if err != nil {
		return nil, err
	}
	if seller.Valid {
		c.SellerCompanyID = &seller.UUID
	}
	return &c, nil
}

func (r *pgContracts) Get(ctx context.Context, id uuid.UUID) (*domain.Contract, error) {
	c, err := scanContract(r.tx.QueryRowContext(ctx,
		`SELECT `+contractColumns+` FROM sim.contracts WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundf("contract %s not found", id)
	}
	return c, err
}

func (r *pgContracts) Insert(ctx context.Context, c *domain.Contract) error {
	var seller uuid.NullUUID
	if c.SellerCompanyID != nil {
		seller = uuid.NullUUID{UUID: *c.SellerCompanyID, Valid: true}
	}
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO sim.contracts (`+contractColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		c.ID, c.ItemID, c.RegionID, c.BuyerCompanyID, seller,
		c.Status, c.Quantity, c.RemainingQuantity, c.UnitPriceCents,
		c.TickCreated, c.TickExpires, c.LockVersion)
	return err
}

func (r *pgContracts) TryUpdate(ctx context.Context, c *domain.Contract) (bool, error) {
	var seller uuid.NullUUID
	if c.SellerCompanyID != nil {
		seller = uuid.NullUUID{UUID: *c.SellerCompanyID, Valid: true}
	}
	ok, err := (*pgTx)(r).execCond(ctx, `
		UPDATE sim.contracts SET
			seller_company_id = $3, status = $4, remaining_quantity = $5,
			lock_version = lock_version + 1
		WHERE id = $1 AND lock_version = $2`,
		c.ID, c.LockVersion, seller, c.Status, c.RemainingQuantity)
	if err != nil {
		return false, err
	}
	if ok {
		c.LockVersion++
	}
	return ok, nil
}

// TryClaim is the acceptance write: it only matches a claimable row, so the
// affected-row count doubles as the contention check.
func (r *pgContracts) TryClaim(ctx context.Context, contractID, sellerCompanyID uuid.UUID, currentTick int64) (bool, error) {
	return (*pgTx)(r).execCond(ctx, `
		UPDATE sim.contracts SET
			seller_company_id = $2, status = 'ACCEPTED', lock_version = lock_version + 1
		WHERE id = $1 AND status = 'OPEN' AND seller_company_id IS NULL AND tick_expires > $3`,
		contractID, sellerCompanyID, currentTick)
}

func (r *pgContracts) ListExpirable(ctx context.Context, currentTick int64) ([]*domain.Contract, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT `+contractColumns+` FROM sim.contracts
		WHERE status IN ('OPEN','ACCEPTED','PARTIALLY_FULFILLED') AND tick_expires <= $1
		ORDER BY id`, currentTick)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectContracts(rows)
}

func (r *pgContracts) ListOpen(ctx context.Context) ([]*domain.Contract, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT `+contractColumns+` FROM sim.contracts
		WHERE status = 'OPEN' ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectContracts(rows)
}

func collectContracts(rows *sql.Rows) ([]*domain.Contract, error) {
	var out []*domain.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type pgFulfillments pgTx

func (r *pgFulfillments) Insert(ctx context.Context, f *domain.ContractFulfillment) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO sim.contract_fulfillments
			(id, contract_id, seller_company_id, quantity, unit_price_cents, tick, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		f.ID, f.ContractID, f.SellerCompanyID, f.Quantity, f.UnitPriceCents, f.Tick, f.CreatedAt)
	return err
}

func (r *pgFulfillments) ListByContract(ctx context.Context, contractID uuid.UUID) ([]*domain.ContractFulfillment, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT id, contract_id, seller_company_id, quantity, unit_price_cents, tick, created_at
		FROM sim.contract_fulfillments WHERE contract_id = $1 ORDER BY created_at, id`,
		contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ContractFulfillment
	for rows.Next() {
		var f domain.ContractFulfillment
		if err := rows.Scan(&f.ID, &f.ContractID, &f.SellerCompanyID, &f.Quantity,
			&f.UnitPriceCents, &f.Tick, &f.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

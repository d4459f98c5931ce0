package persistence

import (
	"context"
	"database/sql"
	"encoding/json"

	"CorpKernel/internal/domain"

	"github.com/google/uuid"
)

type pgProductionJobs pgTx

const productionJobColumns = `id, company_id, recipe_id, region_id, runs, status,
	tick_started, tick_completes, cost_cents, lock_version`

func scanProductionJob(row interface{ Scan(...any) error }) (*domain.ProductionJob, error) {
	var j domain.ProductionJob
	err := row.Scan(&j.ID, &j.CompanyID, &j.RecipeID, &j.RegionID, &j.Runs, &j.Status,
		&j.TickStarted, &j.TickCompletes, &j.CostCents, &j.LockVersion)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *pgProductionJobs) Get(ctx context.Context, id uuid.UUID) (*domain.ProductionJob, error) {
	j, err := scanProductionJob(r.tx.QueryRowContext(ctx,
		`SELECT `+productionJobColumns+` FROM sim.production_jobs WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundf("production job %s not found", id)
	}
	return j, err
}

func (r *pgProductionJobs) Insert(ctx context.Context, j *domain.ProductionJob) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO sim.production_jobs (`+productionJobColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		j.ID, j.CompanyID, j.RecipeID, j.RegionID, j.Runs, j.Status,
		j.TickStarted, j.TickCompletes, j.CostCents, j.LockVersion)
	return err
}

func (r *pgProductionJobs) TryUpdate(ctx context.Context, j *domain.ProductionJob) (bool, error) {
	ok, err := (*pgTx)(r).execCond(ctx, `
		UPDATE sim.production_jobs SET status = $3, lock_version = lock_version + 1
		WHERE id = $1 AND lock_version = $2`,
		j.ID, j.LockVersion, j.Status)
	if err != nil {
		return false, err
	}
	if ok {
		j.LockVersion++
	}
	return ok, nil
}

func (r *pgProductionJobs) ListDue(ctx context.Context, currentTick int64) ([]*domain.ProductionJob, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT `+productionJobColumns+` FROM sim.production_jobs
		WHERE status = 'RUNNING' AND tick_completes <= $1 ORDER BY id`, currentTick)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ProductionJob
	for rows.Next() {
		j, err := scanProductionJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

type pgResearchJobs pgTx

const researchJobColumns = `id, company_id, node_id, status, tick_started, due_tick, cost_cents, lock_version`

func scanResearchJob(row interface{ Scan(...any) error }) (*domain.ResearchJob, error) {
	var j domain.ResearchJob
	err := row.Scan(&j.ID, &j.CompanyID, &j.NodeID, &j.Status,
		&j.TickStarted, &j.DueTick, &j.CostCents, &j.LockVersion)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func (r *pgResearchJobs) Get(ctx context.Context, id uuid.UUID) (*domain.ResearchJob, error) {
	j, err := scanResearchJob(r.tx.QueryRowContext(ctx,
		`SELECT `+researchJobColumns+` FROM sim.research_jobs WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundf("research job %s not found", id)
	}
	return j, err
}

func (r *pgResearchJobs) Insert(ctx context.Context, j *domain.ResearchJob) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO sim.research_jobs (`+researchJobColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		j.ID, j.CompanyID, j.NodeID, j.Status, j.TickStarted, j.DueTick, j.CostCents, j.LockVersion)
	return err
}

func (r *pgResearchJobs) TryUpdate(ctx context.Context, j *domain.ResearchJob) (bool, error) {
	ok, err := (*pgTx)(r).execCond(ctx, `
		UPDATE sim.research_jobs SET status = $3, lock_version = lock_version + 1
		WHERE id = $1 AND lock_version = $2`,
		j.ID, j.LockVersion, j.Status)
	if err != nil {
		return false, err
	}
	if ok {
		j.LockVersion++
	}
	return ok, nil
}

func (r *pgResearchJobs) ListDue(ctx context.Context, currentTick int64) ([]*domain.ResearchJob, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT `+researchJobColumns+` FROM sim.research_jobs
		WHERE status = 'RUNNING' AND due_tick <= $1 ORDER BY id`, currentTick)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ResearchJob
	for rows.Next() {
		j, err := scanResearchJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, j)
	}
	return out, rows.Err()
}

type pgResearch pgTx

func (r *pgResearch) GetCompanyResearch(ctx context.Context, companyID, nodeID uuid.UUID) (*domain.CompanyResearch, error) {
	var cr domain.CompanyResearch
	err := r.tx.QueryRowContext(ctx, `
		SELECT company_id, node_id, status, completed_tick
		FROM sim.company_research WHERE company_id = $1 AND node_id = $2`,
		companyID, nodeID).
		Scan(&cr.CompanyID, &cr.NodeID, &cr.Status, &cr.CompletedTick)
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundf("company research %s/%s not found", companyID, nodeID)
	}
	if err != nil {
		return nil, err
	}
	return &cr, nil
}

func (r *pgResearch) UpsertCompanyResearch(ctx context.Context, cr *domain.CompanyResearch) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO sim.company_research (company_id, node_id, status, completed_tick)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (company_id, node_id)
		DO UPDATE SET status = EXCLUDED.status, completed_tick = EXCLUDED.completed_tick`,
		cr.CompanyID, cr.NodeID, cr.Status, cr.CompletedTick)
	return err
}

func (r *pgResearch) HasRecipeUnlock(ctx context.Context, companyID, recipeID uuid.UUID) (bool, error) {
	var exists bool
	err := r.tx.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM sim.recipe_unlocks WHERE company_id = $1 AND recipe_id = $2
		)`, companyID, recipeID).Scan(&exists)
	return exists, err
}

func (r *pgResearch) UpsertRecipeUnlock(ctx context.Context, u *domain.RecipeUnlock) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO sim.recipe_unlocks (company_id, recipe_id, tick)
		VALUES ($1,$2,$3)
		ON CONFLICT (company_id, recipe_id) DO NOTHING`,
		u.CompanyID, u.RecipeID, u.Tick)
	return err
}

type pgCapacityDeltas pgTx

const capacityDeltaColumns = `id, company_id, delta_capacity, tick_queued, tick_arrives, cost_cents, applied, lock_version`

func scanCapacityDelta(row interface{ Scan(...any) error }) (*domain.WorkforceCapacityDelta, error) {
	var d domain.WorkforceCapacityDelta
	err := row.Scan(&d.ID, &d.CompanyID, &d.DeltaCapacity, &d.TickQueued,
		&d.TickArrives, &d.CostCents, &d.Applied, &d.LockVersion)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *pgCapacityDeltas) Get(ctx context.Context, id uuid.UUID) (*domain.WorkforceCapacityDelta, error) {
	d, err := scanCapacityDelta(r.tx.QueryRowContext(ctx,
		`SELECT `+capacityDeltaColumns+` FROM sim.capacity_deltas WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundf("capacity delta %s not found", id)
	}
	return d, err
}

func (r *pgCapacityDeltas) Insert(ctx context.Context, d *domain.WorkforceCapacityDelta) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO sim.capacity_deltas (`+capacityDeltaColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		d.ID, d.CompanyID, d.DeltaCapacity, d.TickQueued, d.TickArrives,
		d.CostCents, d.Applied, d.LockVersion)
	return err
}

func (r *pgCapacityDeltas) ListDue(ctx context.Context, currentTick int64) ([]*domain.WorkforceCapacityDelta, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT `+capacityDeltaColumns+` FROM sim.capacity_deltas
		WHERE NOT applied AND tick_arrives <= $1 ORDER BY id`, currentTick)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.WorkforceCapacityDelta
	for rows.Next() {
		d, err := scanCapacityDelta(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// TryConsume flips applied exactly once.
func (r *pgCapacityDeltas) TryConsume(ctx context.Context, id uuid.UUID) (bool, error) {
	return (*pgTx)(r).execCond(ctx, `
		UPDATE sim.capacity_deltas SET applied = TRUE, lock_version = lock_version + 1
		WHERE id = $1 AND NOT applied`, id)
}

type pgCatalog pgTx

func (r *pgCatalog) GetItem(ctx context.Context, id uuid.UUID) (*domain.Item, error) {
	var it domain.Item
	err := r.tx.QueryRowContext(ctx,
		`SELECT id, code, name, seed_price_cents FROM sim.items WHERE id = $1`, id).
		Scan(&it.ID, &it.Code, &it.Name, &it.SeedPriceCents)
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundf("item %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func (r *pgCatalog) ListItems(ctx context.Context) ([]*domain.Item, error) {
	rows, err := r.tx.QueryContext(ctx,
		`SELECT id, code, name, seed_price_cents FROM sim.items ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Item
	for rows.Next() {
		var it domain.Item
		if err := rows.Scan(&it.ID, &it.Code, &it.Name, &it.SeedPriceCents); err != nil {
			return nil, err
		}
		out = append(out, &it)
	}
	return out, rows.Err()
}

func (r *pgCatalog) InsertItem(ctx context.Context, it *domain.Item) error {
	_, err := r.tx.ExecContext(ctx, `
		INSERT INTO sim.items (id, code, name, seed_price_cents)
		VALUES ($1,$2,$3,$4)`,
		it.ID, it.Code, it.Name, it.SeedPriceCents)
	return err
}

func (r *pgCatalog) GetRecipe(ctx context.Context, id uuid.UUID) (*domain.Recipe, error) {
	var rec domain.Recipe
	var inputs []byte
	var required uuid.NullUUID
	err := r.tx.QueryRowContext(ctx, `
		SELECT id, code, inputs, output_item_id, output_quantity, duration_ticks,
		       cost_cents, required_research_id
		FROM sim.recipes WHERE id = $1`, id).
		Scan(&rec.ID, &rec.Code, &inputs, &rec.OutputItemID, &rec.OutputQuantity,
			&rec.DurationTicks, &rec.CostCents, &required)
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundf("recipe %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(inputs, &rec.Inputs); err != nil {
		return nil, err
	}
	if required.Valid {
		rec.RequiredResearchID = &required.UUID
	}
	return &rec, nil
}

func (r *pgCatalog) ListRecipes(ctx context.Context) ([]*domain.Recipe, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT id, code, inputs, output_item_id, output_quantity, duration_ticks,
		       cost_cents, required_research_id
		FROM sim.recipes ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Recipe
	for rows.Next() {
		var rec domain.Recipe
		var inputs []byte
		var required uuid.NullUUID
		if err := rows.Scan(&rec.ID, &rec.Code, &inputs, &rec.OutputItemID, &rec.OutputQuantity,
			&rec.DurationTicks, &rec.CostCents, &required); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(inputs, &rec.Inputs); err != nil {
			return nil, err
		}
		if required.Valid {
			rec.RequiredResearchID = &required.UUID
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func (r *pgCatalog) InsertRecipe(ctx context.Context, rec *domain.Recipe) error {
	inputs, err := json.Marshal(rec.Inputs)
	if err != nil {
		return err
	}
	var required uuid.NullUUID
	if rec.RequiredResearchID != nil {
		required = uuid.NullUUID{UUID: *rec.RequiredResearchID, Valid: true}
	}
	_, err = r.tx.ExecContext(ctx, `
		INSERT INTO sim.recipes
			(id, code, inputs, output_item_id, output_quantity, duration_ticks,
			 cost_cents, required_research_id)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		rec.ID, rec.Code, inputs, rec.OutputItemID, rec.OutputQuantity,
		rec.DurationTicks, rec.CostCents, required)
	return err
}

func (r *pgCatalog) GetResearchNode(ctx context.Context, id uuid.UUID) (*domain.ResearchNode, error) {
	var n domain.ResearchNode
	var prereqs, unlocks []byte
	err := r.tx.QueryRowContext(ctx, `
		SELECT id, code, cost_cents, duration_ticks, prerequisite_ids, unlocks_recipe_ids
		FROM sim.research_nodes WHERE id = $1`, id).
		Scan(&n.ID, &n.Code, &n.CostCents, &n.DurationTicks, &prereqs, &unlocks)
	if err == sql.ErrNoRows {
		return nil, domain.NotFoundf("research node %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(prereqs, &n.PrerequisiteIDs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(unlocks, &n.UnlocksRecipeIDs); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *pgCatalog) ListResearchNodes(ctx context.Context) ([]*domain.ResearchNode, error) {
	rows, err := r.tx.QueryContext(ctx, `
		SELECT id, code, cost_cents, duration_ticks, prerequisite_ids, unlocks_recipe_ids
		FROM sim.research_nodes ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.ResearchNode
	for rows.Next() {
		var n domain.ResearchNode
		var prereqs, unlocks []byte
		if err := rows.Scan(&n.ID, &n.Code, &n.CostCents, &n.DurationTicks, &prereqs, &unlocks); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(prereqs, &n.PrerequisiteIDs); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(unlocks, &n.UnlocksRecipeIDs); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (r *pgCatalog) InsertResearchNode(ctx context.Context, n *domain.ResearchNode) error {
	prereqs, err := json.Marshal(n.PrerequisiteIDs)
	if err != nil {
		return err
	}
	unlocks, err := json.Marshal(n.UnlocksRecipeIDs)
	if err != nil {
		return err
	}
	_, err = r.tx.ExecContext(ctx, `
		INSERT INTO sim.research_nodes
			(id, code, cost_cents, duration_ticks, prerequisite_ids, unlocks_recipe_ids)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		n.ID, n.Code, n.CostCents, n.DurationTicks, prereqs, unlocks)
	return err
}

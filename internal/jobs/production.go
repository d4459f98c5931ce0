// Package jobs implements the time-boxed production and research lifecycles.
// Both follow the same shape: starting validates prerequisites and reserves
// or consumes inputs and cash up front; completion scans due RUNNING jobs
// and is idempotent per job id, since the orchestrator may re-run a tick
// after a conflict elsewhere.
package jobs

import (
	"context"
	"time"

	"CorpKernel/internal/domain"
	"CorpKernel/internal/ledger"
	"CorpKernel/internal/store"

	"github.com/google/uuid"
)

type StartProductionInput struct {
	CompanyID uuid.UUID
	RecipeID  uuid.UUID
	RegionID  string
	Runs      int64
	Tick      int64
	At        time.Time
}

// StartProductionJob validates the recipe unlock, reserves every input stack
// in the job's region, deducts the cash cost, and schedules completion at
// tickStarted + durationTicks.
func StartProductionJob(ctx context.Context, tx store.Tx, in StartProductionInput) (*domain.ProductionJob, error) {
	if in.Runs <= 0 {
		return nil, domain.Invariantf("production runs must be positive, got %d", in.Runs)
	}

	recipe, err := tx.Catalog().GetRecipe(ctx, in.RecipeID)
	if err != nil {
		return nil, err
	}
	if recipe.RequiredResearchID != nil {
		unlocked, err := tx.Research().HasRecipeUnlock(ctx, in.CompanyID, recipe.ID)
		if err != nil {
			return nil, err
		}
		if !unlocked {
			return nil, domain.Invariantf("company %s has not unlocked recipe %s", in.CompanyID, recipe.Code)
		}
	}

	company, err := tx.Companies().Get(ctx, in.CompanyID)
	if err != nil {
		return nil, err
	}
	cost := recipe.CostCents * in.Runs
	if company.AvailableCashCents() < cost {
		return nil, domain.InsufficientFundsf("company %s has %d cents available, job costs %d",
			company.Code, company.AvailableCashCents(), cost)
	}

	// Reserve inputs before touching cash so an inventory failure leaves
	// nothing half-done even outside a rollback.
	for _, input := range recipe.Inputs {
		inv, err := tx.Inventories().Get(ctx, domain.InventoryKey{
			CompanyID: in.CompanyID, ItemID: input.ItemID, RegionID: in.RegionID,
		})
		if err != nil {
			if domain.IsKind(err, domain.KindNotFound) {
				return nil, domain.InsufficientInventoryf("company %s holds no %s in %s",
					in.CompanyID, input.ItemID, in.RegionID)
			}
			return nil, err
		}
		if err := ledger.ReserveInventory(inv, input.Quantity*in.Runs); err != nil {
			return nil, err
		}
		ok, err := tx.Inventories().TryUpdate(ctx, inv)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.Conflictf("inventory %s/%s@%s changed concurrently during job start",
				in.CompanyID, input.ItemID, in.RegionID)
		}
	}

	job := &domain.ProductionJob{
		ID:            uuid.New(),
		CompanyID:     in.CompanyID,
		RecipeID:      recipe.ID,
		RegionID:      in.RegionID,
		Runs:          in.Runs,
		Status:        domain.JobStatusRunning,
		TickStarted:   in.Tick,
		TickCompletes: in.Tick + recipe.DurationTicks,
		CostCents:     cost,
	}

	if cost > 0 {
		company.CashCents -= cost
		if _, err := ledger.Post(ctx, tx, ledger.Posting{
			Company:        company,
			Type:           domain.EntryTypeProductionCost,
			DeltaCashCents: -cost,
			Tick:           in.Tick,
			RefID:          &job.ID,
			At:             in.At,
		}); err != nil {
			return nil, err
		}
	}

	if err := tx.ProductionJobs().Insert(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// CancelProductionJob releases the reserved inputs and marks the job
// CANCELLED. The cash cost is sunk; it is not refunded.
func CancelProductionJob(ctx context.Context, tx store.Tx, jobID uuid.UUID) error {
	job, err := tx.ProductionJobs().Get(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status != domain.JobStatusRunning {
		return domain.Invariantf("production job %s is %s, only RUNNING jobs can be cancelled", job.ID, job.Status)
	}

	recipe, err := tx.Catalog().GetRecipe(ctx, job.RecipeID)
	if err != nil {
		return err
	}
	for _, input := range recipe.Inputs {
		inv, err := tx.Inventories().Get(ctx, domain.InventoryKey{
			CompanyID: job.CompanyID, ItemID: input.ItemID, RegionID: job.RegionID,
		})
		if err != nil {
			return err
		}
		if err := ledger.ReleaseInventoryReservation(inv, input.Quantity*job.Runs); err != nil {
			return err
		}
		ok, err := tx.Inventories().TryUpdate(ctx, inv)
		if err != nil {
			return err
		}
		if !ok {
			return domain.Conflictf("inventory changed concurrently during job %s cancellation", job.ID)
		}
	}

	job.Status = domain.JobStatusCancelled
	ok, err := tx.ProductionJobs().TryUpdate(ctx, job)
	if err != nil {
		return err
	}
	if !ok {
		return domain.Conflictf("production job %s changed concurrently during cancellation", job.ID)
	}
	return nil
}

// CompleteDueProductionJobs marks every RUNNING job with tickCompletes <=
// currentTick COMPLETED, consumes its reserved inputs, and credits the
// output. The status flip is the consume-once gate: a job that lost the
// conditional update was already completed and is skipped.
func CompleteDueProductionJobs(ctx context.Context, tx store.Tx, currentTick int64) (int, error) {
	due, err := tx.ProductionJobs().ListDue(ctx, currentTick)
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, job := range due {
		job.Status = domain.JobStatusCompleted
		ok, err := tx.ProductionJobs().TryUpdate(ctx, job)
		if err != nil {
			return completed, err
		}
		if !ok {
			continue // already completed by an earlier pass
		}

		recipe, err := tx.Catalog().GetRecipe(ctx, job.RecipeID)
		if err != nil {
			return completed, err
		}

		for _, input := range recipe.Inputs {
			inv, err := tx.Inventories().Get(ctx, domain.InventoryKey{
				CompanyID: job.CompanyID, ItemID: input.ItemID, RegionID: job.RegionID,
			})
			if err != nil {
				return completed, err
			}
			if err := ledger.ConsumeReserved(inv, input.Quantity*job.Runs); err != nil {
				return completed, err
			}
			ok, err := tx.Inventories().TryUpdate(ctx, inv)
			if err != nil {
				return completed, err
			}
			if !ok {
				return completed, domain.Conflictf("inventory changed concurrently during job %s completion", job.ID)
			}
		}

		if err := ledger.CreditInventory(ctx, tx, job.CompanyID, recipe.OutputItemID, job.RegionID,
			recipe.OutputQuantity*job.Runs); err != nil {
			return completed, err
		}
		completed++
	}

	return completed, nil
}

package jobs

import (
	"context"
	"time"

	"CorpKernel/internal/domain"
	"CorpKernel/internal/ledger"
	"CorpKernel/internal/store"

	"github.com/google/uuid"
)

type StartResearchInput struct {
	CompanyID uuid.UUID
	NodeID    uuid.UUID
	Tick      int64
	At        time.Time
}

// StartResearchJob checks prerequisites, deducts the node cost, and
// schedules completion at tickStarted + durationTicks. Starting a node the
// company already completed, or is already researching, is rejected; the
// cost is charged at most once per node.
func StartResearchJob(ctx context.Context, tx store.Tx, in StartResearchInput) (*domain.ResearchJob, error) {
	node, err := tx.Catalog().GetResearchNode(ctx, in.NodeID)
	if err != nil {
		return nil, err
	}

	existing, err := tx.Research().GetCompanyResearch(ctx, in.CompanyID, node.ID)
	if err != nil && !domain.IsKind(err, domain.KindNotFound) {
		return nil, err
	}
	if existing != nil {
		if existing.Status == domain.ResearchStatusCompleted {
			return nil, domain.Invariantf("company %s already completed research %s", in.CompanyID, node.Code)
		}
		return nil, domain.Invariantf("company %s is already researching %s", in.CompanyID, node.Code)
	}

	for _, prereqID := range node.PrerequisiteIDs {
		prereq, err := tx.Research().GetCompanyResearch(ctx, in.CompanyID, prereqID)
		if err != nil && !domain.IsKind(err, domain.KindNotFound) {
			return nil, err
		}
		if prereq == nil || prereq.Status != domain.ResearchStatusCompleted {
			return nil, domain.Invariantf("company %s is missing prerequisite %s for research %s",
				in.CompanyID, prereqID, node.Code)
		}
	}

	company, err := tx.Companies().Get(ctx, in.CompanyID)
	if err != nil {
		return nil, err
	}
	if company.AvailableCashCents() < node.CostCents {
		return nil, domain.InsufficientFundsf("company %s has %d cents available, research %s costs %d",
			company.Code, company.AvailableCashCents(), node.Code, node.CostCents)
	}

	job := &domain.ResearchJob{
		ID:          uuid.New(),
		CompanyID:   in.CompanyID,
		NodeID:      node.ID,
		Status:      domain.JobStatusRunning,
		TickStarted: in.Tick,
		DueTick:     in.Tick + node.DurationTicks,
		CostCents:   node.CostCents,
	}

	if node.CostCents > 0 {
		company.CashCents -= node.CostCents
		if _, err := ledger.Post(ctx, tx, ledger.Posting{
			Company:        company,
			Type:           domain.EntryTypeResearchCost,
			DeltaCashCents: -node.CostCents,
			Tick:           in.Tick,
			RefID:          &job.ID,
			At:             in.At,
		}); err != nil {
			return nil, err
		}
	}

	// The IN_PROGRESS marker is what blocks a second job, and a second
	// charge, for the same node while this one runs.
	if err := tx.Research().UpsertCompanyResearch(ctx, &domain.CompanyResearch{
		CompanyID: in.CompanyID,
		NodeID:    node.ID,
		Status:    domain.ResearchStatusInProgress,
	}); err != nil {
		return nil, err
	}

	if err := tx.ResearchJobs().Insert(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// CompleteDueResearchJobs marks due RUNNING research jobs COMPLETED, upserts
// the CompanyResearch row, and unlocks the node's recipes. Both upserts are
// idempotent, so a replayed completion cannot double-grant anything.
func CompleteDueResearchJobs(ctx context.Context, tx store.Tx, currentTick int64) (int, error) {
	due, err := tx.ResearchJobs().ListDue(ctx, currentTick)
	if err != nil {
		return 0, err
	}

	completed := 0
	for _, job := range due {
		job.Status = domain.JobStatusCompleted
		ok, err := tx.ResearchJobs().TryUpdate(ctx, job)
		if err != nil {
			return completed, err
		}
		if !ok {
			continue
		}

		node, err := tx.Catalog().GetResearchNode(ctx, job.NodeID)
		if err != nil {
			return completed, err
		}

		if err := tx.Research().UpsertCompanyResearch(ctx, &domain.CompanyResearch{
			CompanyID:     job.CompanyID,
			NodeID:        job.NodeID,
			Status:        domain.ResearchStatusCompleted,
			CompletedTick: currentTick,
		}); err != nil {
			return completed, err
		}

		for _, recipeID := range node.UnlocksRecipeIDs {
			if err := tx.Research().UpsertRecipeUnlock(ctx, &domain.RecipeUnlock{
				CompanyID: job.CompanyID,
				RecipeID:  recipeID,
				Tick:      currentTick,
			}); err != nil {
				return completed, err
			}
		}
		completed++
	}

	return completed, nil
}

package domain

import "github.com/google/uuid"

// Item is a static catalog row. SeedPriceCents backs contract pricing when an
// item has no trade history yet.
type Item struct {
	ID             uuid.UUID
	Code           string
	Name           string
	SeedPriceCents int64
}

// RecipeInput is one required input stack for a production run.
type RecipeInput struct {
	ItemID   uuid.UUID
	Quantity int64
}

// Recipe describes a production transformation. A nil RequiredResearchID
// means the recipe is unlocked for everyone from the start.
type Recipe struct {
	ID                 uuid.UUID
	Code               string
	Inputs             []RecipeInput
	OutputItemID       uuid.UUID
	OutputQuantity     int64
	DurationTicks      int64
	CostCents          int64
	RequiredResearchID *uuid.UUID
}

// ResearchNode is a static research-tree row.
type ResearchNode struct {
	ID               uuid.UUID
	Code             string
	CostCents        int64
	DurationTicks    int64
	PrerequisiteIDs  []uuid.UUID
	UnlocksRecipeIDs []uuid.UUID
}

type ResearchStatus string

const (
	ResearchStatusInProgress ResearchStatus = "IN_PROGRESS"
	ResearchStatusCompleted  ResearchStatus = "COMPLETED"
)

// CompanyResearch tracks a company's standing on one research node:
// IN_PROGRESS while a job runs, COMPLETED once it finishes. Upserted
// idempotently by (company, node).
type CompanyResearch struct {
	CompanyID     uuid.UUID
	NodeID        uuid.UUID
	Status        ResearchStatus
	CompletedTick int64
}

// RecipeUnlock grants a company the right to start a recipe.
type RecipeUnlock struct {
	CompanyID uuid.UUID
	RecipeID  uuid.UUID
	Tick      int64
}

// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the use cases HTTP handlers and other driving adapters call
package inbound

import (
	"context"

	"github.com/alchemorsel/intake/internal/domain/nutrition"
	"github.com/alchemorsel/intake/internal/domain/quota"
	"github.com/alchemorsel/intake/internal/domain/recipe"
)

// Caller identifies who is making a request
type Caller struct {
	Identity string
	Tier     quota.Tier
	Language recipe.Language
}

// ImportCommand is a multi-source import request
type ImportCommand struct {
	Caller   Caller
	Sources  []recipe.Source
	Options  recipe.EnumOptions
	Strategy string
}

// SourceOutcome reports how one source fared
type SourceOutcome struct {
	Index     int    `json:"index"`
	Label     string `json:"label,omitempty"`
	Succeeded bool   `json:"succeeded"`
	ErrorCode string `json:"error_code,omitempty"`
	Error     string `json:"error,omitempty"`
}

// ImportResult is the merged recipe plus per-source outcomes
type ImportResult struct {
	Recipe  *recipe.ExtractionResult `json:"recipe"`
	Sources []SourceOutcome          `json:"sources"`
	Quota   quota.Decision           `json:"quota"`
}

// ProgressStage names a point in a source's lifecycle
type ProgressStage string

const (
	ProgressStarted   ProgressStage = "started"
	ProgressSucceeded ProgressStage = "succeeded"
	ProgressFailed    ProgressStage = "failed"
)

// ProgressEvent is emitted once per source transition during an import
type ProgressEvent struct {
	Index int           `json:"index"`
	Total int           `json:"total"`
	Label string        `json:"label,omitempty"`
	Stage ProgressStage `json:"stage"`
	Error string        `json:"error,omitempty"`
}

// ProgressFunc receives progress events; it is called from the importing goroutine
type ProgressFunc func(ProgressEvent)

// ImportService turns recipe sources into one merged recipe
type ImportService interface {
	Import(ctx context.Context, cmd ImportCommand, progress ProgressFunc) (*ImportResult, error)
}

// QuotaService exposes the caller's quota
type QuotaService interface {
	Consume(ctx context.Context, identity string, tier quota.Tier) (quota.Decision, error)
	Status(ctx context.Context, identity string, tier quota.Tier) (quota.Decision, error)
}

// NutritionService approximates per-serving nutrition
type NutritionService interface {
	Aggregate(ctx context.Context, lines []string, servings int) (*nutrition.Report, error)
}

// StageCommand stages a shopping list from explicit entries or a stored recipe
type StageCommand struct {
	Caller      Caller
	Title       string
	Ingredients []recipe.IngredientEntry
	RecipeID    string
}

// StagedList is returned from staging
type StagedList struct {
	Handle      string   `json:"handle"`
	Title       string   `json:"title"`
	Ingredients []string `json:"ingredients"`
	ExpiresIn   int      `json:"expires_in_seconds"`
}

// ExportService stages and renders shopping lists
type ExportService interface {
	Stage(ctx context.Context, cmd StageCommand) (*StagedList, error)
	Render(ctx context.Context, identity, handle string) ([]byte, error)
}

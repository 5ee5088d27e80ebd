// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"
	"fmt"
	"time"

	"github.com/alchemorsel/intake/internal/domain/export"
	"github.com/alchemorsel/intake/internal/domain/nutrition"
	"github.com/alchemorsel/intake/internal/domain/quota"
	"github.com/alchemorsel/intake/internal/domain/recipe"
)

// QuotaStore persists per-identity daily counters
type QuotaStore interface {
	// Get returns the record for key, or nil when none exists
	Get(ctx context.Context, key string) (*quota.Record, error)

	// Update runs fn as one isolated read-modify-write against key. Concurrent
	// updates of the same key are serialized; fn may be re-run on conflict.
	Update(ctx context.Context, key string, fn quota.UpdateFunc) error
}

// RecipeStore is the read-only view of stored recipes
type RecipeStore interface {
	// GetByID returns recipe.ErrRecipeNotFound when no recipe has the id
	GetByID(ctx context.Context, id string) (*recipe.StoredRecipe, error)
}

// StageStore holds short-lived shopping lists between stage and render
type StageStore interface {
	Put(ctx context.Context, list *export.ShoppingList, ttl time.Duration) error

	// Get returns export.ErrStageNotFound for unknown or expired handles
	Get(ctx context.Context, handle string) (*export.ShoppingList, error)
}

// InlineMedia is image data attached to a model request
type InlineMedia struct {
	MIMEType string
	Data     []byte
}

// ModelRequest is a single generation call
type ModelRequest struct {
	Prompt      string
	Media       *InlineMedia
	Temperature float64
	MaxTokens   int
}

// VisionModel is a vision/text model endpoint returning free text
type VisionModel interface {
	Generate(ctx context.Context, req ModelRequest) (string, error)
	Name() string
}

// NutritionSource looks up per-100g nutrient data by search term
type NutritionSource interface {
	Search(ctx context.Context, term string, maxResults int) ([]nutrition.Product, error)
}

// UpstreamStatusError is returned by adapters when an upstream answers with a non-2xx status
type UpstreamStatusError struct {
	Service    string
	StatusCode int
	Body       string
}

func (e *UpstreamStatusError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Service, e.StatusCode, e.Body)
}

// Package testutils provides mock implementations for testing
package testutils

import (
	"context"
	"time"

	"github.com/alchemorsel/intake/internal/domain/export"
	"github.com/alchemorsel/intake/internal/domain/nutrition"
	"github.com/alchemorsel/intake/internal/domain/quota"
	"github.com/alchemorsel/intake/internal/domain/recipe"
	"github.com/alchemorsel/intake/internal/ports/outbound"
	"github.com/stretchr/testify/mock"
)

// MockQuotaStore provides a mock implementation of QuotaStore
type MockQuotaStore struct {
	mock.Mock
}

// Get returns the configured record
func (m *MockQuotaStore) Get(ctx context.Context, key string) (*quota.Record, error) {
	args := m.Called(ctx, key)
	if rec, ok := args.Get(0).(*quota.Record); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

// Update invokes fn with the configured current record unless an error is configured
func (m *MockQuotaStore) Update(ctx context.Context, key string, fn quota.UpdateFunc) error {
	args := m.Called(ctx, key, fn)
	if err := args.Error(1); err != nil {
		return err
	}
	current, _ := args.Get(0).(*quota.Record)
	_, err := fn(current)
	return err
}

// MockRecipeStore provides a mock implementation of RecipeStore
type MockRecipeStore struct {
	mock.Mock
}

// GetByID returns the configured recipe
func (m *MockRecipeStore) GetByID(ctx context.Context, id string) (*recipe.StoredRecipe, error) {
	args := m.Called(ctx, id)
	if r, ok := args.Get(0).(*recipe.StoredRecipe); ok {
		return r, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockStageStore provides a mock implementation of StageStore
type MockStageStore struct {
	mock.Mock
}

// Put records the staged list
func (m *MockStageStore) Put(ctx context.Context, list *export.ShoppingList, ttl time.Duration) error {
	args := m.Called(ctx, list, ttl)
	return args.Error(0)
}

// Get returns the configured list
func (m *MockStageStore) Get(ctx context.Context, handle string) (*export.ShoppingList, error) {
	args := m.Called(ctx, handle)
	if l, ok := args.Get(0).(*export.ShoppingList); ok {
		return l, args.Error(1)
	}
	return nil, args.Error(1)
}

// MockVisionModel provides a mock implementation of VisionModel
type MockVisionModel struct {
	mock.Mock
}

// Generate returns the configured model text
func (m *MockVisionModel) Generate(ctx context.Context, req outbound.ModelRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

// Name returns "mock"
func (m *MockVisionModel) Name() string {
	return "mock"
}

// MockNutritionSource provides a mock implementation of NutritionSource
type MockNutritionSource struct {
	mock.Mock
}

// Search returns the configured products
func (m *MockNutritionSource) Search(ctx context.Context, term string, maxResults int) ([]nutrition.Product, error) {
	args := m.Called(ctx, term, maxResults)
	if p, ok := args.Get(0).([]nutrition.Product); ok {
		return p, args.Error(1)
	}
	return nil, args.Error(1)
}

// RecordingMetrics counts recorded metrics for assertions
type RecordingMetrics struct {
	outbound.NopMetrics
	Allowed  int
	Denied   int
	Degraded int
	Found    int
	NotFound int
	Outcomes []string
}

// QuotaDecision records a quota decision
func (r *RecordingMetrics) QuotaDecision(_ string, allowed, degraded bool) {
	if degraded {
		r.Degraded++
	}
	if allowed {
		r.Allowed++
	} else {
		r.Denied++
	}
}

// ExtractionCompleted records the outcome label
func (r *RecordingMetrics) ExtractionCompleted(_ string, outcome string, _ time.Duration) {
	r.Outcomes = append(r.Outcomes, outcome)
}

// NutritionLookup records a lookup outcome
func (r *RecordingMetrics) NutritionLookup(found bool) {
	if found {
		r.Found++
	} else {
		r.NotFound++
	}
}

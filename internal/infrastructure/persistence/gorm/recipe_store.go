package gorm

import (
	"context"
	"errors"

	"github.com/alchemorsel/intake/internal/domain/recipe"
	"github.com/alchemorsel/intake/internal/ports/outbound"
	"gorm.io/gorm"
)

// RecipeStore implements the read-only recipe store using GORM
type RecipeStore struct {
	db *gorm.DB
}

// NewRecipeStore creates a new recipe store
func NewRecipeStore(db *gorm.DB) *RecipeStore {
	return &RecipeStore{db: db}
}

var _ outbound.RecipeStore = (*RecipeStore)(nil)

// GetByID finds a recipe by ID
func (s *RecipeStore) GetByID(ctx context.Context, id string) (*recipe.StoredRecipe, error) {
	var model RecipeModel

	err := s.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, recipe.ErrRecipeNotFound
	}
	if err != nil {
		return nil, err
	}

	return model.toDomain(), nil
}

// Save inserts or replaces a recipe; used for seeding and by the owning recipe service
func (s *RecipeStore) Save(ctx context.Context, r recipe.StoredRecipe) error {
	return s.db.WithContext(ctx).Save(RecipeToModel(r)).Error
}

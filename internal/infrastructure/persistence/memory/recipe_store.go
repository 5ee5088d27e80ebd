package memory

import (
	"context"
	"sync"

	"github.com/alchemorsel/intake/internal/domain/recipe"
	"github.com/alchemorsel/intake/internal/ports/outbound"
)

// RecipeStore is an in-memory recipe store
type RecipeStore struct {
	recipes map[string]recipe.StoredRecipe
	mutex   sync.RWMutex
}

// NewRecipeStore creates a store seeded with the given recipes
func NewRecipeStore(seed ...recipe.StoredRecipe) *RecipeStore {
	s := &RecipeStore{recipes: make(map[string]recipe.StoredRecipe, len(seed))}
	for _, r := range seed {
		s.recipes[r.ID] = r
	}
	return s
}

var _ outbound.RecipeStore = (*RecipeStore)(nil)

// GetByID returns recipe.ErrRecipeNotFound for unknown ids
func (s *RecipeStore) GetByID(ctx context.Context, id string) (*recipe.StoredRecipe, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	r, ok := s.recipes[id]
	if !ok {
		return nil, recipe.ErrRecipeNotFound
	}
	return &r, nil
}

// Put inserts or replaces a recipe
func (s *RecipeStore) Put(r recipe.StoredRecipe) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.recipes[r.ID] = r
}

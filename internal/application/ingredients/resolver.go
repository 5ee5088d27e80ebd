// Package ingredients flattens ingredient lists that reference other recipes
package ingredients

import (
	"context"
	"errors"

	"github.com/alchemorsel/intake/internal/domain/recipe"
	"github.com/alchemorsel/intake/internal/ports/outbound"
	apperrors "github.com/alchemorsel/intake/pkg/errors"
	"go.uber.org/zap"
)

// Resolver expands #recipe:<id>: link tokens into the referenced recipe's ingredients
type Resolver struct {
	store  outbound.RecipeStore
	logger *zap.Logger
}

// NewResolver creates a resolver over a read-only recipe store
func NewResolver(store outbound.RecipeStore, logger *zap.Logger) *Resolver {
	return &Resolver{store: store, logger: logger.Named("ingredient-resolver")}
}

// Resolve flattens entries into plain ingredient lines. Each top-level entry gets
// its own visited set, so a cycle ends its branch without an error. Headings and
// links to missing recipes contribute nothing.
func (r *Resolver) Resolve(ctx context.Context, entries []recipe.IngredientEntry) ([]string, error) {
	out := []string{}
	for _, entry := range entries {
		lines, err := r.resolveEntry(ctx, entry, make(map[string]bool))
		if err != nil {
			return nil, err
		}
		out = append(out, lines...)
	}
	return out, nil
}

// ResolveRecipe loads a stored recipe and flattens its ingredients. The root id is
// pre-visited in every branch so a link back to the root is treated as a cycle.
func (r *Resolver) ResolveRecipe(ctx context.Context, id string) (*recipe.StoredRecipe, []string, error) {
	root, err := r.store.GetByID(ctx, id)
	if errors.Is(err, recipe.ErrRecipeNotFound) {
		return nil, nil, apperrors.NewNotFoundError("recipe")
	}
	if err != nil {
		return nil, nil, apperrors.NewStorageFaultError("load recipe", err)
	}

	out := []string{}
	for _, entry := range root.Ingredients {
		lines, err := r.resolveEntry(ctx, entry, map[string]bool{root.ID: true})
		if err != nil {
			return nil, nil, err
		}
		out = append(out, lines...)
	}
	return root, out, nil
}

// resolveEntry is the recursive step; visited is shared by one top-level branch only
func (r *Resolver) resolveEntry(ctx context.Context, entry recipe.IngredientEntry, visited map[string]bool) ([]string, error) {
	if entry.Heading {
		return nil, nil
	}

	id, linked := entry.LinkedRecipeID()
	if !linked {
		return []string{entry.Text}, nil
	}

	if visited[id] {
		r.logger.Debug("Recipe reference cycle", zap.String("recipe_id", id))
		return nil, nil
	}
	visited[id] = true

	linkedRecipe, err := r.store.GetByID(ctx, id)
	if errors.Is(err, recipe.ErrRecipeNotFound) {
		r.logger.Debug("Linked recipe not found", zap.String("recipe_id", id))
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.NewStorageFaultError("load linked recipe", err).WithMetadata("recipe_id", id)
	}

	var out []string
	for _, child := range linkedRecipe.Ingredients {
		lines, err := r.resolveEntry(ctx, child, visited)
		if err != nil {
			return nil, err
		}
		out = append(out, lines...)
	}
	return out, nil
}

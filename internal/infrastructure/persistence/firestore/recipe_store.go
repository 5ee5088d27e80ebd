package firestore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/alchemorsel/intake/internal/domain/recipe"
	"github.com/alchemorsel/intake/internal/ports/outbound"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RecipeStore reads recipes from a Firestore collection. Ingredient arrays may
// mix plain strings with {"type":"heading","text":...} maps.
type RecipeStore struct {
	client     *firestore.Client
	collection string
}

// NewRecipeStore creates a recipe store over the named collection
func NewRecipeStore(client *firestore.Client, collection string) *RecipeStore {
	return &RecipeStore{client: client, collection: collection}
}

var _ outbound.RecipeStore = (*RecipeStore)(nil)

// GetByID fetches a recipe document
func (s *RecipeStore) GetByID(ctx context.Context, id string) (*recipe.StoredRecipe, error) {
	snap, err := s.client.Collection(s.collection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, recipe.ErrRecipeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get recipe %s: %w", id, err)
	}
	return recipeFromData(snap.Ref.ID, snap.Data()), nil
}

// Save writes a recipe document
func (s *RecipeStore) Save(ctx context.Context, r recipe.StoredRecipe) error {
	_, err := s.client.Collection(s.collection).Doc(r.ID).Set(ctx, recipeToData(r))
	return err
}

func recipeFromData(id string, data map[string]interface{}) *recipe.StoredRecipe {
	r := &recipe.StoredRecipe{ID: id}
	r.Title, _ = data["title"].(string)

	switch v := data["servings"].(type) {
	case int64:
		r.Servings = int(v)
	case float64:
		r.Servings = int(v)
	}

	if raw, ok := data["ingredients"].([]interface{}); ok {
		for _, item := range raw {
			if entry, ok := recipe.EntryFromValue(item); ok {
				r.Ingredients = append(r.Ingredients, entry)
			}
		}
	}
	r.Steps = stringList(data["steps"])
	r.Tags = stringList(data["tags"])
	return r
}

func recipeToData(r recipe.StoredRecipe) map[string]interface{} {
	ingredients := make([]interface{}, 0, len(r.Ingredients))
	for _, e := range r.Ingredients {
		ingredients = append(ingredients, e.ToValue())
	}
	return map[string]interface{}{
		"title":       r.Title,
		"servings":    r.Servings,
		"ingredients": ingredients,
		"steps":       r.Steps,
		"tags":        r.Tags,
	}
}

func stringList(v interface{}) []string {
	raw, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

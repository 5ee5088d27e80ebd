// Package testutils provides test data factories for consistent test data generation
package testutils

import (
	"fmt"
	"strings"

	"github.com/alchemorsel/intake/internal/domain/recipe"
	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

// RecipeFactory provides methods to create test recipes
type RecipeFactory struct {
	faker *gofakeit.Faker
}

// NewRecipeFactory creates a new recipe factory with seeded faker
func NewRecipeFactory(seed int64) *RecipeFactory {
	return &RecipeFactory{faker: gofakeit.New(seed)}
}

// Ingredients returns n distinct ingredient lines
func (f *RecipeFactory) Ingredients(n int) []string {
	seen := make(map[string]bool, n)
	lines := make([]string, 0, n)
	for len(lines) < n {
		name := f.faker.Vegetable()
		if seen[strings.ToLower(name)] {
			name = fmt.Sprintf("%s %d", name, len(lines))
		}
		seen[strings.ToLower(name)] = true
		lines = append(lines, fmt.Sprintf("%d g %s", f.faker.Number(10, 500), name))
	}
	return lines
}

// ExtractionResult returns a successful extraction result with random content
func (f *RecipeFactory) ExtractionResult() recipe.ExtractionResult {
	return recipe.ExtractionResult{
		Title:       f.faker.Dinner(),
		Servings:    f.faker.Number(1, 8),
		PrepTime:    fmt.Sprintf("%d min", f.faker.Number(5, 60)),
		CookTime:    fmt.Sprintf("%d min", f.faker.Number(5, 120)),
		Difficulty:  f.faker.Number(1, recipe.MaxDifficulty),
		Cuisine:     "Italian",
		Category:    "Main",
		Tags:        []string{f.faker.Adjective()},
		Ingredients: f.Ingredients(4),
		Steps:       []string{f.faker.Sentence(8), f.faker.Sentence(8)},
		Confidence:  f.faker.Number(50, 100),
		Provider:    "mock",
	}
}

// StoredRecipe returns a stored recipe with the given entries and a fresh id
func (f *RecipeFactory) StoredRecipe(entries ...recipe.IngredientEntry) recipe.StoredRecipe {
	if len(entries) == 0 {
		for _, line := range f.Ingredients(3) {
			entries = append(entries, recipe.Plain(line))
		}
	}
	return recipe.StoredRecipe{
		ID:          uuid.NewString(),
		Title:       f.faker.Dinner(),
		Servings:    f.faker.Number(1, 6),
		Ingredients: entries,
	}
}

// Identity returns a random quota identity
func (f *RecipeFactory) Identity() string {
	return f.faker.UUID()
}

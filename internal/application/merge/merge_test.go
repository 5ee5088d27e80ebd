package merge

import (
	"errors"
	"testing"

	"github.com/alchemorsel/intake/internal/domain/recipe"
	"github.com/alchemorsel/intake/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeFirstNonEmptyScalarWins(t *testing.T) {
	a := recipe.ExtractionResult{Servings: 4, Cuisine: ""}
	b := recipe.ExtractionResult{Servings: 0, Cuisine: "Italian"}

	merged, err := Merge([]recipe.ExtractionResult{a, b}, StrategyExact)
	require.NoError(t, err)

	assert.Equal(t, 4, merged.Servings)
	assert.Equal(t, "Italian", merged.Cuisine)
}

func TestMergeAllFailedErrors(t *testing.T) {
	results := []recipe.ExtractionResult{
		recipe.Failed("mock", errors.New("a")),
		recipe.Failed("mock", errors.New("b")),
	}
	for _, s := range []Strategy{StrategyExact, StrategyFuzzy} {
		_, err := Merge(results, s)
		assert.ErrorIs(t, err, recipe.ErrNoSuccessfulSource)
	}

	_, err := Merge(nil, StrategyExact)
	assert.ErrorIs(t, err, recipe.ErrNoSuccessfulSource)
}

func TestMergeSkipsFailedSources(t *testing.T) {
	results := []recipe.ExtractionResult{
		recipe.Failed("mock", errors.New("unreadable")),
		{Title: "Second", Ingredients: []string{"1 Ei"}},
	}

	merged, err := Merge(results, StrategyExact)
	require.NoError(t, err)
	assert.Equal(t, "Second", merged.Title)
	assert.Equal(t, []string{"1 Ei"}, merged.Ingredients)
	assert.Empty(t, merged.Error)
}

func TestMergeNeverFailsWithOneSuccess(t *testing.T) {
	f := testutils.NewRecipeFactory(7)
	for i := 0; i < 20; i++ {
		results := []recipe.ExtractionResult{recipe.Failed("mock", nil), f.ExtractionResult(), recipe.Failed("mock", nil)}
		_, err := Merge(results, StrategyFuzzy)
		assert.NoError(t, err)
	}
}

func TestMergeExactStrategy(t *testing.T) {
	a := recipe.ExtractionResult{
		Ingredients: []string{"500 g Mehl", "2 Eier"},
		Steps:       []string{"Teig kneten", "Ruhen lassen"},
		Tags:        []string{"Brot", "vegetarisch"},
		Notes:       "Am Vortag vorbereiten.",
	}
	b := recipe.ExtractionResult{
		Ingredients: []string{" 500 G MEHL ", "2 Eiern", "Salz"},
		Steps:       []string{"Teig kneten", "Backen"},
		Tags:        []string{"brot", "Sonntag"},
		Notes:       "  ",
	}
	c := recipe.ExtractionResult{Notes: "Hält 3 Tage."}

	merged, err := Merge([]recipe.ExtractionResult{a, b, c}, StrategyExact)
	require.NoError(t, err)

	assert.Equal(t, []string{"500 g Mehl", "2 Eier", "2 Eiern", "Salz"}, merged.Ingredients)
	assert.Equal(t, []string{"Teig kneten", "Ruhen lassen", "Teig kneten", "Backen"}, merged.Steps)
	assert.ElementsMatch(t, []string{"Brot", "vegetarisch", "Sonntag"}, merged.Tags)
	assert.Equal(t, "Am Vortag vorbereiten.\n\nHält 3 Tage.", merged.Notes)
}

func TestMergeFuzzyStrategy(t *testing.T) {
	a := recipe.ExtractionResult{
		Ingredients: []string{"500 g Mehl", "2 Eier"},
		Steps:       []string{"Den Teig gut kneten", "Backen"},
	}
	b := recipe.ExtractionResult{
		Ingredients: []string{"500g Mehl", "2 Eiern", "Zucker"},
		Steps:       []string{"Den Teig gut kneten.", "Abkühlen lassen"},
	}

	merged, err := Merge([]recipe.ExtractionResult{a, b}, StrategyFuzzy)
	require.NoError(t, err)

	assert.Equal(t, []string{"500 g Mehl", "2 Eier", "Zucker"}, merged.Ingredients)
	assert.Equal(t, []string{"Den Teig gut kneten", "Backen", "Abkühlen lassen"}, merged.Steps)
}

func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.Equal(t, 1.0, Similarity("mehl", "mehl"))
	assert.InDelta(t, 0.9, Similarity("500 g mehl", "500g mehl"), 0.001)
	assert.Less(t, Similarity("salz", "zucker"), FuzzyThreshold)
}

func TestParseStrategy(t *testing.T) {
	s, err := ParseStrategy("", StrategyExact)
	require.NoError(t, err)
	assert.Equal(t, StrategyExact, s)

	s, err = ParseStrategy(" Fuzzy ", StrategyExact)
	require.NoError(t, err)
	assert.Equal(t, StrategyFuzzy, s)

	_, err = ParseStrategy("random", StrategyExact)
	assert.Error(t, err)
}

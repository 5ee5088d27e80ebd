package ingredients

import (
	"context"
	"errors"
	"testing"

	"github.com/alchemorsel/intake/internal/domain/recipe"
	"github.com/alchemorsel/intake/internal/infrastructure/persistence/memory"
	apperrors "github.com/alchemorsel/intake/pkg/errors"
	"github.com/alchemorsel/intake/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func link(id string) recipe.IngredientEntry {
	return recipe.Plain("Siehe " + recipe.LinkToken(id))
}

func TestResolveMutualReferenceTerminates(t *testing.T) {
	store := memory.NewRecipeStore(
		recipe.StoredRecipe{ID: "A", Ingredients: []recipe.IngredientEntry{link("B")}},
		recipe.StoredRecipe{ID: "B", Ingredients: []recipe.IngredientEntry{link("A")}},
	)
	resolver := NewResolver(store, zaptest.NewLogger(t))

	lines, err := resolver.Resolve(context.Background(), []recipe.IngredientEntry{link("A")})
	require.NoError(t, err)
	assert.Equal(t, []string{}, lines)
}

func TestResolveSelfReference(t *testing.T) {
	store := memory.NewRecipeStore(
		recipe.StoredRecipe{ID: "S", Ingredients: []recipe.IngredientEntry{recipe.Plain("1 Ei"), link("S")}},
	)
	lines, err := NewResolver(store, zaptest.NewLogger(t)).Resolve(context.Background(), []recipe.IngredientEntry{link("S")})
	require.NoError(t, err)
	assert.Equal(t, []string{"1 Ei"}, lines)
}

func TestResolveExpandsNestedLinksAndSkipsHeadings(t *testing.T) {
	store := memory.NewRecipeStore(
		recipe.StoredRecipe{ID: "teig", Ingredients: []recipe.IngredientEntry{
			recipe.Heading("Teig"), recipe.Plain("500 g Mehl"), link("hefe"),
		}},
		recipe.StoredRecipe{ID: "hefe", Ingredients: []recipe.IngredientEntry{recipe.Plain("1 Würfel Hefe")}},
	)
	entries := []recipe.IngredientEntry{
		recipe.Heading("Belag"),
		recipe.Plain("200 g Käse"),
		link("teig"),
		link("missing"),
		recipe.Plain("Basilikum"),
	}

	lines, err := NewResolver(store, zaptest.NewLogger(t)).Resolve(context.Background(), entries)
	require.NoError(t, err)
	assert.Equal(t, []string{"200 g Käse", "500 g Mehl", "1 Würfel Hefe", "Basilikum"}, lines)
}

func TestResolveVisitedSetIsPerTopLevelEntry(t *testing.T) {
	store := memory.NewRecipeStore(
		recipe.StoredRecipe{ID: "sauce", Ingredients: []recipe.IngredientEntry{recipe.Plain("Tomaten")}},
	)
	lines, err := NewResolver(store, zaptest.NewLogger(t)).Resolve(context.Background(),
		[]recipe.IngredientEntry{link("sauce"), link("sauce")})
	require.NoError(t, err)
	assert.Equal(t, []string{"Tomaten", "Tomaten"}, lines)
}

func TestResolveStorageErrorPropagates(t *testing.T) {
	store := &testutils.MockRecipeStore{}
	store.On("GetByID", mock.Anything, "x").Return(nil, errors.New("unavailable"))

	_, err := NewResolver(store, zaptest.NewLogger(t)).Resolve(context.Background(), []recipe.IngredientEntry{link("x")})
	assert.Equal(t, apperrors.CodeStorageFault, apperrors.GetCode(err))
}

func TestResolveRecipeTreatsRootAsVisited(t *testing.T) {
	store := memory.NewRecipeStore(
		recipe.StoredRecipe{ID: "root", Title: "Lasagne", Ingredients: []recipe.IngredientEntry{recipe.Plain("Nudeln"), link("child")}},
		recipe.StoredRecipe{ID: "child", Ingredients: []recipe.IngredientEntry{recipe.Plain("Hack"), link("root")}},
	)
	root, lines, err := NewResolver(store, zaptest.NewLogger(t)).ResolveRecipe(context.Background(), "root")
	require.NoError(t, err)
	assert.Equal(t, "Lasagne", root.Title)
	assert.Equal(t, []string{"Nudeln", "Hack"}, lines)

	_, _, err = NewResolver(store, zaptest.NewLogger(t)).ResolveRecipe(context.Background(), "nope")
	assert.Equal(t, apperrors.CodeNotFound, apperrors.GetCode(err))
}

func TestResolveRecipeFlattensLinkedSubRecipe(t *testing.T) {
	factory := testutils.NewRecipeFactory(11)
	sauce := factory.StoredRecipe()
	dish := factory.StoredRecipe(recipe.Heading("Hauptteil"), recipe.Plain("400 g Nudeln"), link(sauce.ID))
	store := memory.NewRecipeStore(sauce, dish)

	root, lines, err := NewResolver(store, zaptest.NewLogger(t)).ResolveRecipe(context.Background(), dish.ID)
	require.NoError(t, err)
	assert.Equal(t, dish.Title, root.Title)

	want := []string{"400 g Nudeln"}
	for _, e := range sauce.Ingredients {
		want = append(want, e.Text)
	}
	assert.Equal(t, want, lines)
}

//go:build integration

package postgres_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alchemorsel/intake/internal/application/ingredients"
	"github.com/alchemorsel/intake/internal/domain/quota"
	"github.com/alchemorsel/intake/internal/domain/recipe"
	gormstore "github.com/alchemorsel/intake/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/intake/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestQuotaStoreSerializesConcurrentUpdates(t *testing.T) {
	td := testutils.SetupTestDatabase(t)
	store := gormstore.NewQuotaStore(td.GormDB)
	ctx := context.Background()

	key := quota.Key("user:42", "2024-05-01")
	const workers = 20

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Update(ctx, key, func(cur *quota.Record) (*quota.Record, error) {
				if cur == nil {
					return &quota.Record{Key: key, Identity: "user:42", Date: "2024-05-01", Count: 1, Tier: quota.TierAuthenticated, UpdatedAt: time.Now()}, nil
				}
				next := *cur
				next.Count++
				return &next, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	rec, err := store.Get(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, workers, rec.Count)

	n, err := store.PurgeBefore(ctx, "2024-05-02")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestRecipeStoreResolvesNestedRecipes(t *testing.T) {
	td := testutils.SetupTestDatabase(t)
	require.NoError(t, td.TruncateAllTables())
	store := gormstore.NewRecipeStore(td.GormDB)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, recipe.StoredRecipe{
		ID:          "dough",
		Title:       "Pizzateig",
		Ingredients: []recipe.IngredientEntry{recipe.Plain("500 g Mehl"), recipe.Plain("7 g Hefe")},
	}))

	resolver := ingredients.NewResolver(store, zaptest.NewLogger(t))
	lines, err := resolver.Resolve(ctx, []recipe.IngredientEntry{
		recipe.Plain("200 g Tomaten"),
		recipe.Plain(recipe.LinkToken("dough")),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"200 g Tomaten", "500 g Mehl", "7 g Hefe"}, lines)
}

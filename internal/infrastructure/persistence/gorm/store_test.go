package gorm_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alchemorsel/intake/internal/domain/quota"
	"github.com/alchemorsel/intake/internal/domain/recipe"
	gormstore "github.com/alchemorsel/intake/internal/infrastructure/persistence/gorm"
	"github.com/alchemorsel/intake/internal/infrastructure/persistence/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

type StoreTestSuite struct {
	suite.Suite
	db      *gorm.DB
	quotas  *gormstore.QuotaStore
	recipes *gormstore.RecipeStore
	ctx     context.Context
}

func (s *StoreTestSuite) SetupTest() {
	db, err := sqlite.SetupDatabase("", nil)
	s.Require().NoError(err)
	s.db = db
	s.quotas = gormstore.NewQuotaStore(db)
	s.recipes = gormstore.NewRecipeStore(db)
	s.ctx = context.Background()
}

func (s *StoreTestSuite) TearDownTest() {
	sqlDB, err := s.db.DB()
	s.Require().NoError(err)
	s.Require().NoError(sqlDB.Close())
}

func (s *StoreTestSuite) TestGetMissingQuotaIsNil() {
	rec, err := s.quotas.Get(s.ctx, "nobody_2024-01-01")
	s.NoError(err)
	s.Nil(rec)
}

func (s *StoreTestSuite) TestUpdateCreatesAndIncrements() {
	key := quota.Key("alice", "2024-03-01")
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		err := s.quotas.Update(s.ctx, key, func(cur *quota.Record) (*quota.Record, error) {
			if cur == nil {
				return &quota.Record{Key: key, Identity: "alice", Date: "2024-03-01", Count: 1, Tier: quota.TierAuthenticated, UpdatedAt: now}, nil
			}
			next := *cur
			next.Count++
			return &next, nil
		})
		s.Require().NoError(err)
	}

	rec, err := s.quotas.Get(s.ctx, key)
	s.Require().NoError(err)
	s.Require().NotNil(rec)
	s.Equal(3, rec.Count)
	s.Equal("alice", rec.Identity)
	s.Equal(quota.TierAuthenticated, rec.Tier)
}

func (s *StoreTestSuite) TestPlaceholderIsPresentedAsAbsent() {
	key := quota.Key("bob", "2024-03-01")

	// fn declines to write, leaving only the placeholder row
	err := s.quotas.Update(s.ctx, key, func(cur *quota.Record) (*quota.Record, error) {
		s.Nil(cur)
		return nil, nil
	})
	s.Require().NoError(err)

	var seen *quota.Record
	err = s.quotas.Update(s.ctx, key, func(cur *quota.Record) (*quota.Record, error) {
		seen = cur
		return nil, nil
	})
	s.Require().NoError(err)
	s.Nil(seen)

	rec, err := s.quotas.Get(s.ctx, key)
	s.NoError(err)
	s.Nil(rec)
}

func (s *StoreTestSuite) TestUpdateErrorRollsBack() {
	key := quota.Key("carol", "2024-03-01")
	boom := errors.New("boom")

	err := s.quotas.Update(s.ctx, key, func(*quota.Record) (*quota.Record, error) {
		return nil, boom
	})
	s.ErrorIs(err, boom)

	var count int64
	s.Require().NoError(s.db.Model(&gormstore.QuotaModel{}).Count(&count).Error)
	s.Zero(count)
}

func (s *StoreTestSuite) TestConcurrentUpdatesNeverExceedLimit() {
	key := quota.Key("dave", "2024-03-01")
	const limit = 5
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		admitted int
	)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.quotas.Update(s.ctx, key, func(cur *quota.Record) (*quota.Record, error) {
				count := 0
				if cur != nil {
					count = cur.Count
				}
				if count >= limit {
					return nil, nil
				}
				mu.Lock()
				admitted++
				mu.Unlock()
				return &quota.Record{Key: key, Identity: "dave", Date: "2024-03-01", Count: count + 1, Tier: quota.TierGuest}, nil
			})
			assert.NoError(s.T(), err)
		}()
	}
	wg.Wait()

	s.Equal(limit, admitted)
	rec, err := s.quotas.Get(s.ctx, key)
	s.Require().NoError(err)
	s.Equal(limit, rec.Count)
}

func (s *StoreTestSuite) TestPurgeBefore() {
	for _, date := range []string{"2024-02-28", "2024-02-29", "2024-03-01"} {
		key := quota.Key("erin", date)
		d := date
		s.Require().NoError(s.quotas.Update(s.ctx, key, func(*quota.Record) (*quota.Record, error) {
			return &quota.Record{Key: key, Identity: "erin", Date: d, Count: 1}, nil
		}))
	}

	n, err := s.quotas.PurgeBefore(s.ctx, "2024-03-01")
	s.Require().NoError(err)
	s.EqualValues(2, n)
}

func (s *StoreTestSuite) TestRecipeRoundTripKeepsHeadings() {
	stored := recipe.StoredRecipe{
		ID:       "base",
		Title:    "Pizzateig",
		Servings: 2,
		Ingredients: []recipe.IngredientEntry{
			recipe.Heading("Teig"),
			recipe.Plain("500 g Mehl"),
			recipe.Plain("1 Prise Salz"),
		},
		Steps: []string{"Kneten"},
		Tags:  []string{"basis"},
	}
	s.Require().NoError(s.recipes.Save(s.ctx, stored))

	got, err := s.recipes.GetByID(s.ctx, "base")
	s.Require().NoError(err)
	s.Equal(stored.Title, got.Title)
	s.Equal(stored.Ingredients, got.Ingredients)
	s.Equal(stored.Steps, got.Steps)
	s.Equal(stored.Tags, got.Tags)
}

func (s *StoreTestSuite) TestRecipeNotFound() {
	_, err := s.recipes.GetByID(s.ctx, "missing")
	s.ErrorIs(err, recipe.ErrRecipeNotFound)
}

func TestStoreTestSuite(t *testing.T) {
	suite.Run(t, new(StoreTestSuite))
}

func TestStringSliceScan(t *testing.T) {
	var s gormstore.StringSlice
	require.NoError(t, s.Scan([]byte(`["a","b"]`)))
	assert.Equal(t, gormstore.StringSlice{"a", "b"}, s)

	require.NoError(t, s.Scan(nil))
	assert.Empty(t, s)

	assert.Error(t, s.Scan(42))

	v, err := gormstore.StringSlice(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}

package nutrition

import (
	"context"
	"errors"
	"testing"

	"github.com/alchemorsel/intake/internal/domain/nutrition"
	apperrors "github.com/alchemorsel/intake/pkg/errors"
	"github.com/alchemorsel/intake/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func ptr(v float64) *float64 { return &v }

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		line  string
		grams float64
		name  string
	}{
		{"500 g Mehl", 500, "Mehl"},
		{"4 Eier", 240, "Eier"},
		{"500g Mehl", 500, "Mehl"},
		{"1,5 kg Kartoffeln", 1500, "Kartoffeln"},
		{"2 EL Olivenöl", 30, "Olivenöl"},
		{"1 Teelöffel Zimt", 5, "Zimt"},
		{"1 Prise Muskat", 1, "Muskat"},
		{"1/2 TL Salz", 2.5, "Salz"},
		{"0,1 g Safran", 1, "Safran"},
		{"1 Bund Petersilie", 30, "Petersilie"},
		{"2 Tassen Reis", 480, "Reis"},
		{"2 Dosen Tomaten", 100, "Dosen Tomaten"},
		{"3-4 Tomaten", 180, "Tomaten"},
		{"0.1 Zitrone", 10, "Zitrone"},
		{"Pfeffer", 5, "Pfeffer"},
		{"200 g Butter (weich), gewürfelt", 200, "Butter"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			q := ParseQuantity(tt.line)
			assert.InDelta(t, tt.grams, q.AmountGrams, 0.0001)
			assert.Equal(t, tt.name, q.Name)
		})
	}
}

func TestAggregateSaltIsFixedPerServing(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*testutils.MockNutritionSource)
	}{
		{
			name: "spaghetti lookup fails",
			setup: func(m *testutils.MockNutritionSource) {
				m.On("Search", mock.Anything, "Spaghetti", 5).Return(nil, errors.New("timeout"))
			},
		},
		{
			name: "spaghetti lookup succeeds",
			setup: func(m *testutils.MockNutritionSource) {
				m.On("Search", mock.Anything, "Spaghetti", 5).Return([]nutrition.Product{
					{Name: "Spaghetti n.5", Nutrients: nutrition.Per100g{EnergyKcal: ptr(359), Protein: ptr(13), Carbs: ptr(71)}},
				}, nil)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			source := &testutils.MockNutritionSource{}
			tt.setup(source)
			agg := NewAggregator(source, DefaultConfig(), zaptest.NewLogger(t))

			report, err := agg.Aggregate(context.Background(), []string{"200 g Spaghetti", "Salz"}, 2)
			require.NoError(t, err)

			assert.Equal(t, 2.0, report.Totals.Salt)
			assert.Equal(t, 2, report.TotalCount)
			source.AssertNotCalled(t, "Search", mock.Anything, "Salz", mock.Anything)
		})
	}
}

func TestAggregateScalesAndRounds(t *testing.T) {
	source := &testutils.MockNutritionSource{}
	source.On("Search", mock.Anything, "Mehl", 5).Return([]nutrition.Product{
		{Name: "No data"},
		{Name: "Weizenmehl 405", Nutrients: nutrition.Per100g{
			EnergyKcal: ptr(348), Protein: ptr(10.3), Fat: ptr(1), Carbs: ptr(72.3), Sugar: ptr(0.7), Fiber: ptr(4), Salt: ptr(0.01),
		}},
	}, nil)
	source.On("Search", mock.Anything, "Eier", 5).Return([]nutrition.Product{
		{Name: "Eier", Nutrients: nutrition.Per100g{EnergyKcal: ptr(155), Protein: ptr(13), Fat: ptr(11)}},
	}, nil)
	metrics := &testutils.RecordingMetrics{}
	agg := NewAggregator(source, DefaultConfig(), zaptest.NewLogger(t), WithMetrics(metrics))

	report, err := agg.Aggregate(context.Background(), []string{"500 g Mehl", "", "4 Eier"}, 3)
	require.NoError(t, err)

	// 500 g flour: 1740 kcal, 51.5 protein, 5 fat; 240 g egg: 372 kcal, 31.2 protein, 26.4 fat
	assert.Equal(t, 704.0, report.Totals.Kcal)
	assert.Equal(t, 27.6, report.Totals.Protein)
	assert.Equal(t, 10.5, report.Totals.Fat)
	assert.Equal(t, 120.5, report.Totals.Carbs)
	assert.Equal(t, 2, report.FoundCount)
	assert.Equal(t, 2, report.TotalCount)
	assert.Equal(t, "Weizenmehl 405", report.Details[0].Product)
	assert.Equal(t, 2, metrics.Found)
}

func TestAggregateRecordsMissesWithoutAborting(t *testing.T) {
	source := &testutils.MockNutritionSource{}
	source.On("Search", mock.Anything, "Drachenfrucht", 5).Return([]nutrition.Product{{Name: "Drachenfrucht Saft"}}, nil)
	source.On("Search", mock.Anything, "Honig", 5).Return(nil, errors.New("503"))
	source.On("Search", mock.Anything, "Milch", 5).Return([]nutrition.Product{
		{Name: "Milch", Nutrients: nutrition.Per100g{EnergyKcal: ptr(64)}},
	}, nil)

	report, err := NewAggregator(source, DefaultConfig(), zaptest.NewLogger(t)).
		Aggregate(context.Background(), []string{"1 Drachenfrucht", "2 EL Honig", "100 ml Milch"}, 1)
	require.NoError(t, err)

	require.Len(t, report.Details, 3)
	assert.False(t, report.Details[0].Found)
	assert.Equal(t, "no nutrition data found", report.Details[0].Error)
	assert.False(t, report.Details[1].Found)
	assert.Contains(t, report.Details[1].Error, "lookup failed")
	assert.True(t, report.Details[2].Found)
	assert.Equal(t, 1, report.FoundCount)
	assert.Equal(t, 3, report.TotalCount)
	assert.Equal(t, 64.0, report.Totals.Kcal)
}

func TestAggregateRejectsZeroServings(t *testing.T) {
	_, err := NewAggregator(&testutils.MockNutritionSource{}, DefaultConfig(), zaptest.NewLogger(t)).
		Aggregate(context.Background(), []string{"Salz"}, 0)
	assert.Equal(t, apperrors.CodeValidationFailed, apperrors.GetCode(err))
}

func TestIsBareSalt(t *testing.T) {
	for _, s := range []string{"Salz", " salt ", "SALZ.", "Sel"} {
		assert.True(t, isBareSalt(s), s)
	}
	for _, s := range []string{"1 TL Salz", "Salz und Pfeffer", "Meersalz"} {
		assert.False(t, isBareSalt(s), s)
	}
}

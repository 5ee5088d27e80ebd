package nutrition

import (
	"context"
	"fmt"
	"strings"

	"github.com/alchemorsel/intake/internal/domain/nutrition"
	"github.com/alchemorsel/intake/internal/ports/outbound"
	apperrors "github.com/alchemorsel/intake/pkg/errors"
	"go.uber.org/zap"
)

// Aggregator sums looked-up macros over ingredient lines
type Aggregator struct {
	source  outbound.NutritionSource
	cfg     Config
	metrics outbound.MetricsRecorder
	logger  *zap.Logger
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithMetrics sets the metrics recorder
func WithMetrics(m outbound.MetricsRecorder) Option {
	return func(a *Aggregator) { a.metrics = m }
}

// NewAggregator creates an aggregator
func NewAggregator(source outbound.NutritionSource, cfg Config, logger *zap.Logger, opts ...Option) *Aggregator {
	a := &Aggregator{
		source:  source,
		cfg:     cfg,
		metrics: outbound.NopMetrics{},
		logger:  logger.Named("nutrition"),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Aggregate looks up each line in order and returns per-serving totals.
// A failed or unmatched line is recorded in the details and never aborts the run.
func (a *Aggregator) Aggregate(ctx context.Context, lines []string, servings int) (*nutrition.Report, error) {
	if servings < 1 {
		return nil, apperrors.NewValidationError("servings must be at least 1")
	}

	report := &nutrition.Report{Servings: servings, Details: []nutrition.Detail{}}
	var totals nutrition.Totals

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		report.TotalCount++

		if isBareSalt(line) {
			grams := a.cfg.SaltGramsPerServing * float64(servings)
			totals.Salt += grams
			report.FoundCount++
			report.Details = append(report.Details, nutrition.Detail{
				Line: line, Name: line, AmountGrams: grams, Found: true, Product: line,
			})
			continue
		}

		detail := a.lookup(ctx, line)
		if detail.Found {
			report.FoundCount++
		}
		a.metrics.NutritionLookup(detail.Found)
		report.Details = append(report.Details, detail.Detail)
		totals.Add(detail.totals)
	}

	report.Totals = totals.PerServing(servings)
	return report, nil
}

type lineResult struct {
	nutrition.Detail
	totals nutrition.Totals
}

func (a *Aggregator) lookup(ctx context.Context, line string) lineResult {
	q := a.cfg.ParseQuantity(line)
	res := lineResult{Detail: nutrition.Detail{Line: line, Name: q.Name, AmountGrams: q.AmountGrams}}

	if q.Name == "" {
		res.Error = "no ingredient name"
		return res
	}

	products, err := a.source.Search(ctx, q.Name, a.cfg.Candidates)
	if err != nil {
		a.logger.Debug("Nutrition lookup failed", zap.String("name", q.Name), zap.Error(err))
		res.Error = fmt.Sprintf("lookup failed: %v", err)
		return res
	}

	for _, p := range products {
		if !p.Usable() {
			continue
		}
		res.Found = true
		res.Product = p.Name
		res.totals = p.Nutrients.Scale(q.AmountGrams)
		res.Kcal = res.totals.Kcal
		return res
	}

	a.logger.Debug("No nutrition data", zap.String("name", q.Name), zap.Int("candidates", len(products)))
	res.Error = "no nutrition data found"
	return res
}

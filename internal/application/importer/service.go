// Package importer orchestrates quota, per-source extraction and merging for one import
package importer

import (
	"context"
	"errors"
	"fmt"

	"github.com/alchemorsel/intake/internal/application/merge"
	"github.com/alchemorsel/intake/internal/domain/recipe"
	"github.com/alchemorsel/intake/internal/ports/inbound"
	"github.com/alchemorsel/intake/internal/ports/outbound"
	apperrors "github.com/alchemorsel/intake/pkg/errors"
	"go.uber.org/zap"
)

// Extractor extracts one source
type Extractor interface {
	Extract(ctx context.Context, src recipe.Source, lang recipe.Language, opts recipe.EnumOptions) (recipe.ExtractionResult, error)
	Provider() string
}

// Config is the immutable configuration of the import service
type Config struct {
	MaxSources      int
	DefaultStrategy merge.Strategy
	DefaultOptions  recipe.EnumOptions
}

// DefaultConfig returns the production settings
func DefaultConfig() Config {
	return Config{MaxSources: 10, DefaultStrategy: merge.StrategyExact}
}

// Service implements inbound.ImportService
type Service struct {
	quota     inbound.QuotaService
	extractor Extractor
	cfg       Config
	metrics   outbound.MetricsRecorder
	logger    *zap.Logger
}

var _ inbound.ImportService = (*Service)(nil)

// NewService creates an import service
func NewService(quota inbound.QuotaService, extractor Extractor, cfg Config, metrics outbound.MetricsRecorder, logger *zap.Logger) *Service {
	if metrics == nil {
		metrics = outbound.NopMetrics{}
	}
	return &Service{
		quota:     quota,
		extractor: extractor,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger.Named("importer"),
	}
}

// Import consumes one quota unit, extracts every source in order and merges the results.
// When no source succeeds the first source's classified error is returned.
func (s *Service) Import(ctx context.Context, cmd inbound.ImportCommand, progress inbound.ProgressFunc) (*inbound.ImportResult, error) {
	if err := s.validate(cmd); err != nil {
		return nil, err
	}

	strategy, err := merge.ParseStrategy(cmd.Strategy, s.cfg.DefaultStrategy)
	if err != nil {
		return nil, apperrors.NewValidationError(err.Error())
	}

	decision, err := s.quota.Consume(ctx, cmd.Caller.Identity, cmd.Caller.Tier)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, apperrors.NewQuotaExceededError(string(cmd.Caller.Tier), decision.Limit).
			WithMetadata("reset_at", decision.ResetAt)
	}

	opts := cmd.Options
	if len(opts.CuisineTypes) == 0 {
		opts.CuisineTypes = s.cfg.DefaultOptions.CuisineTypes
	}
	if len(opts.MealCategories) == 0 {
		opts.MealCategories = s.cfg.DefaultOptions.MealCategories
	}

	emit := func(ev inbound.ProgressEvent) {
		if progress != nil {
			progress(ev)
		}
	}

	total := len(cmd.Sources)
	results := make([]recipe.ExtractionResult, 0, total)
	outcomes := make([]inbound.SourceOutcome, 0, total)
	var firstErr error
	succeeded := 0

	for i, src := range cmd.Sources {
		emit(inbound.ProgressEvent{Index: i, Total: total, Label: src.Label, Stage: inbound.ProgressStarted})

		res, err := s.extractor.Extract(ctx, src, cmd.Caller.Language, opts)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			appErr := apperrors.Wrap(err, "extraction failed")
			msg := appErr.Localize(string(cmd.Caller.Language))
			results = append(results, recipe.Failed(s.extractor.Provider(), err))
			outcomes = append(outcomes, inbound.SourceOutcome{
				Index: i, Label: src.Label, ErrorCode: string(appErr.Code), Error: msg,
			})
			emit(inbound.ProgressEvent{Index: i, Total: total, Label: src.Label, Stage: inbound.ProgressFailed, Error: msg})
			continue
		}

		succeeded++
		results = append(results, res)
		outcomes = append(outcomes, inbound.SourceOutcome{Index: i, Label: src.Label, Succeeded: true})
		emit(inbound.ProgressEvent{Index: i, Total: total, Label: src.Label, Stage: inbound.ProgressSucceeded})
	}

	s.metrics.ImportCompleted(total, succeeded)

	merged, err := merge.Merge(results, strategy)
	if errors.Is(err, recipe.ErrNoSuccessfulSource) {
		s.logger.Warn("Import produced no recipe",
			zap.String("identity", cmd.Caller.Identity),
			zap.Int("sources", total),
			zap.String("code", string(apperrors.GetCode(firstErr))),
		)
		return nil, firstErr
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "merge failed")
	}

	s.logger.Info("Import completed",
		zap.String("identity", cmd.Caller.Identity),
		zap.Int("sources", total),
		zap.Int("succeeded", succeeded),
		zap.String("strategy", string(strategy)),
	)

	return &inbound.ImportResult{Recipe: &merged, Sources: outcomes, Quota: decision}, nil
}

func (s *Service) validate(cmd inbound.ImportCommand) error {
	if cmd.Caller.Identity == "" {
		return apperrors.NewValidationError("identity is required")
	}
	if len(cmd.Sources) == 0 {
		return apperrors.NewValidationError("at least one source is required")
	}
	if s.cfg.MaxSources > 0 && len(cmd.Sources) > s.cfg.MaxSources {
		return apperrors.NewValidationError(fmt.Sprintf("at most %d sources are allowed", s.cfg.MaxSources))
	}
	for i, src := range cmd.Sources {
		if err := src.Validate(); err != nil {
			return apperrors.NewValidationError(fmt.Sprintf("source %d: %v", i+1, err))
		}
	}
	return nil
}

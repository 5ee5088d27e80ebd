// Package quota provides the per-identity daily quota gate
package quota

import (
	"context"
	"time"

	"github.com/alchemorsel/intake/internal/domain/quota"
	"github.com/alchemorsel/intake/internal/ports/outbound"
	apperrors "github.com/alchemorsel/intake/pkg/errors"
	"go.uber.org/zap"
)

// Gate admits or denies operations against a tiered daily limit
type Gate struct {
	store   outbound.QuotaStore
	policy  quota.Policy
	now     func() time.Time
	metrics outbound.MetricsRecorder
	logger  *zap.Logger
}

// Option configures a Gate
type Option func(*Gate)

// WithClock replaces the time source
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithMetrics sets the metrics recorder
func WithMetrics(m outbound.MetricsRecorder) Option {
	return func(g *Gate) { g.metrics = m }
}

// NewGate creates a quota gate
func NewGate(store outbound.QuotaStore, policy quota.Policy, logger *zap.Logger, opts ...Option) *Gate {
	g := &Gate{
		store:   store,
		policy:  policy,
		now:     time.Now,
		metrics: outbound.NopMetrics{},
		logger:  logger.Named("quota-gate"),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Consume atomically checks and increments the caller's counter for today.
// A denied decision is not an error. A storage fault yields an allowed, degraded
// decision when the policy fails open, otherwise a STORAGE_FAULT error.
func (g *Gate) Consume(ctx context.Context, identity string, tier quota.Tier) (quota.Decision, error) {
	if identity == "" {
		return quota.Decision{}, apperrors.NewValidationError("identity is required")
	}

	now := g.now()
	date := g.policy.Date(now)
	key := quota.Key(identity, date)
	limit := g.policy.Limit(tier)
	resetAt := g.policy.NextReset(now)

	var decision quota.Decision
	err := g.store.Update(ctx, key, func(current *quota.Record) (*quota.Record, error) {
		if current == nil {
			decision = quota.Decision{Allowed: true, Remaining: limit - 1, Limit: limit, ResetAt: resetAt}
			return &quota.Record{
				Key:       key,
				Identity:  identity,
				Date:      date,
				Count:     1,
				Tier:      tier,
				UpdatedAt: now,
			}, nil
		}

		if current.Count >= limit {
			decision = quota.Decision{Allowed: false, Remaining: 0, Limit: limit, ResetAt: resetAt}
			return nil, nil
		}

		next := *current
		next.Count++
		next.Tier = tier
		next.UpdatedAt = now
		decision = quota.Decision{Allowed: true, Remaining: limit - current.Count - 1, Limit: limit, ResetAt: resetAt}
		return &next, nil
	})

	if err != nil {
		g.logger.Error("Quota storage fault",
			zap.String("identity", identity),
			zap.String("key", key),
			zap.String("tier", string(tier)),
			zap.Bool("fail_open", g.policy.FailOpen),
			zap.Error(err),
		)
		if !g.policy.FailOpen {
			g.metrics.QuotaDecision(string(tier), false, true)
			return quota.Decision{}, apperrors.NewStorageFaultError("update quota", err).
				WithMetadata("limit", limit)
		}
		g.metrics.QuotaDecision(string(tier), true, true)
		return quota.Decision{Allowed: true, Remaining: limit, Limit: limit, ResetAt: resetAt, Degraded: true}, nil
	}

	g.metrics.QuotaDecision(string(tier), decision.Allowed, false)
	if !decision.Allowed {
		g.logger.Info("Quota exhausted",
			zap.String("identity", identity),
			zap.String("tier", string(tier)),
			zap.Int("limit", limit),
		)
	}
	return decision, nil
}

// Status reports today's remaining allowance without consuming it
func (g *Gate) Status(ctx context.Context, identity string, tier quota.Tier) (quota.Decision, error) {
	if identity == "" {
		return quota.Decision{}, apperrors.NewValidationError("identity is required")
	}

	now := g.now()
	key := quota.Key(identity, g.policy.Date(now))
	limit := g.policy.Limit(tier)
	resetAt := g.policy.NextReset(now)

	record, err := g.store.Get(ctx, key)
	if err != nil {
		g.logger.Warn("Quota status lookup failed", zap.String("key", key), zap.Error(err))
		if g.policy.FailOpen {
			return quota.Decision{Allowed: true, Remaining: limit, Limit: limit, ResetAt: resetAt, Degraded: true}, nil
		}
		return quota.Decision{}, apperrors.NewStorageFaultError("read quota", err)
	}

	used := 0
	if record != nil {
		used = record.Count
	}
	remaining := limit - used
	if remaining < 0 {
		remaining = 0
	}
	return quota.Decision{Allowed: remaining > 0, Remaining: remaining, Limit: limit, ResetAt: resetAt}, nil
}

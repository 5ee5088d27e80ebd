// Package ai provides health checks for the configured vision model
package ai

import (
	"context"
	"errors"
	"time"

	"github.com/alchemorsel/intake/internal/ports/outbound"
	"go.uber.org/zap"
)

// Pinger is implemented by model adapters that can be probed without a generation call
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthStatus represents the health of the model provider
type HealthStatus struct {
	Provider  string    `json:"provider"`
	Status    string    `json:"status"`
	Detail    string    `json:"detail,omitempty"`
	LastCheck time.Time `json:"last_check"`
}

// HealthChecker probes the configured vision model
type HealthChecker struct {
	model   outbound.VisionModel
	timeout time.Duration
	logger  *zap.Logger
}

// NewHealthChecker creates a new model health checker
func NewHealthChecker(model outbound.VisionModel, logger *zap.Logger) *HealthChecker {
	return &HealthChecker{
		model:   model,
		timeout: 5 * time.Second,
		logger:  logger.Named("ai-health"),
	}
}

// CheckHealth reports "healthy", "unhealthy" or "unchecked" when the provider cannot be probed
func (h *HealthChecker) CheckHealth(ctx context.Context) HealthStatus {
	status := HealthStatus{Provider: h.model.Name(), LastCheck: time.Now()}

	pinger, ok := h.model.(Pinger)
	if !ok {
		status.Status = "unchecked"
		return status
	}

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	if err := pinger.Ping(ctx); err != nil {
		h.logger.Warn("Model provider health check failed", zap.String("provider", status.Provider), zap.Error(err))
		status.Status = "unhealthy"
		status.Detail = err.Error()
		return status
	}

	status.Status = "healthy"
	return status
}

// Check adapts CheckHealth to an error-returning probe; an unchecked provider passes
func (h *HealthChecker) Check(ctx context.Context) error {
	status := h.CheckHealth(ctx)
	if status.Status == "unhealthy" {
		return errors.New(status.Detail)
	}
	return nil
}

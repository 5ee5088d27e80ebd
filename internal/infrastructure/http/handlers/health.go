package handlers

import (
	"net/http"
	"time"

	"github.com/alchemorsel/intake/internal/infrastructure/monitoring"
	"go.uber.org/zap"
)

// HealthHandler serves GET /health
type HealthHandler struct {
	checks  *monitoring.HealthCheckManager
	service string
	version string
	logger  *zap.Logger
}

// NewHealthHandler creates a health handler
func NewHealthHandler(checks *monitoring.HealthCheckManager, service, version string, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{checks: checks, service: service, version: version, logger: logger}
}

// HealthCheck reports "healthy", or "degraded" when any dependency check fails.
// The status code stays 200 so a flaky provider does not take the service out of rotation.
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	results := h.checks.CheckAll(r.Context())

	writeJSON(w, h.logger, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":    monitoring.Overall(results),
			"service":   h.service,
			"version":   h.version,
			"timestamp": time.Now().Unix(),
			"checks":    results,
		},
	})
}

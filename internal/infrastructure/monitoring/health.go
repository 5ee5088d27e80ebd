package monitoring

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Health statuses
const (
	StatusHealthy   = "healthy"
	StatusUnhealthy = "unhealthy"
	StatusDegraded  = "degraded"
)

// HealthCheck represents a health check result
type HealthCheck struct {
	Name      string        `json:"name"`
	Status    string        `json:"status"`
	Message   string        `json:"message,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
}

// CheckFunc probes one dependency; a nil error means healthy
type CheckFunc func(ctx context.Context) error

// HealthCheckManager runs registered dependency checks
type HealthCheckManager struct {
	mu      sync.RWMutex
	checks  map[string]CheckFunc
	timeout time.Duration
	logger  *zap.Logger
}

// NewHealthCheckManager creates a new health check manager
func NewHealthCheckManager(timeout time.Duration, logger *zap.Logger) *HealthCheckManager {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthCheckManager{
		checks:  make(map[string]CheckFunc),
		timeout: timeout,
		logger:  logger.Named("health"),
	}
}

// RegisterCheck registers a health check
func (h *HealthCheckManager) RegisterCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
	h.logger.Info("Health check registered", zap.String("name", name))
}

// CheckAll runs all registered checks concurrently, each bounded by the manager timeout
func (h *HealthCheckManager) CheckAll(ctx context.Context) []HealthCheck {
	h.mu.RLock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	h.mu.RUnlock()
	sort.Strings(names)

	results := make([]HealthCheck, len(names))
	var wg sync.WaitGroup
	for i, name := range names {
		wg.Add(1)
		go func(i int, name string) {
			defer wg.Done()
			results[i] = h.run(ctx, name)
		}(i, name)
	}
	wg.Wait()
	return results
}

func (h *HealthCheckManager) run(ctx context.Context, name string) HealthCheck {
	h.mu.RLock()
	check := h.checks[name]
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	result := HealthCheck{Name: name, Status: StatusHealthy, Timestamp: start}
	if err := check(ctx); err != nil {
		result.Status = StatusUnhealthy
		result.Message = err.Error()
		h.logger.Warn("Health check failed", zap.String("name", name), zap.Error(err))
	}
	result.Duration = time.Since(start)
	return result
}

// Overall is healthy when every check passed and degraded otherwise
func Overall(results []HealthCheck) string {
	for _, r := range results {
		if r.Status != StatusHealthy {
			return StatusDegraded
		}
	}
	return StatusHealthy
}

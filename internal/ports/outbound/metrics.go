package outbound

import "time"

// MetricsRecorder receives business metrics from application services
type MetricsRecorder interface {
	QuotaDecision(tier string, allowed, degraded bool)
	ExtractionCompleted(provider, outcome string, duration time.Duration)
	NutritionLookup(found bool)
	ImportCompleted(sources, succeeded int)
}

// NopMetrics discards all metrics
type NopMetrics struct{}

func (NopMetrics) QuotaDecision(string, bool, bool) {}
func (NopMetrics) ExtractionCompleted(string, string, time.Duration) {}
func (NopMetrics) NutritionLookup(bool) {}
func (NopMetrics) ImportCompleted(int, int) {}

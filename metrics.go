package strata

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    viewCounter     prometheus.Counter
//	    updateHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordView(duration time.Duration, err error) {
//	    p.viewCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordView is called after each read transaction.
	// duration is the total time taken, err is nil if successful.
	RecordView(duration time.Duration, err error)

	// RecordUpdate is called after each write transaction.
	// duration covers the callback plus the commit.
	RecordUpdate(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordView(time.Duration, error)   {}
func (NoopMetricsCollector) RecordUpdate(time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	ViewCount        atomic.Int64
	ViewErrors       atomic.Int64
	ViewTotalNanos   atomic.Int64
	UpdateCount      atomic.Int64
	UpdateErrors     atomic.Int64
	UpdateTotalNanos atomic.Int64
}

// RecordView implements MetricsCollector.
func (b *BasicMetricsCollector) RecordView(duration time.Duration, err error) {
	b.ViewCount.Add(1)
	b.ViewTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ViewErrors.Add(1)
	}
}

// RecordUpdate implements MetricsCollector.
func (b *BasicMetricsCollector) RecordUpdate(duration time.Duration, err error) {
	b.UpdateCount.Add(1)
	b.UpdateTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.UpdateErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		ViewCount:      b.ViewCount.Load(),
		ViewErrors:     b.ViewErrors.Load(),
		ViewAvgNanos:   avgNanos(b.ViewTotalNanos.Load(), b.ViewCount.Load()),
		UpdateCount:    b.UpdateCount.Load(),
		UpdateErrors:   b.UpdateErrors.Load(),
		UpdateAvgNanos: avgNanos(b.UpdateTotalNanos.Load(), b.UpdateCount.Load()),
	}
}

func avgNanos(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	ViewCount      int64
	ViewErrors     int64
	ViewAvgNanos   int64
	UpdateCount    int64
	UpdateErrors   int64
	UpdateAvgNanos int64
}

package bimtree

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
//	    ingestCounter    prometheus.Counter
//	    refreshHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordRefresh(models, components int, d time.Duration, err error) {
//	    p.refreshHistogram.Observe(d.Seconds())
//	}
type MetricsCollector interface {
	// RecordIngest is called after each store call with the number of records
	// written and the number that failed.
	RecordIngest(stored, failed int, duration time.Duration, err error)

	// RecordRefresh is called after each memory tree rebuild.
	RecordRefresh(models, components int, duration time.Duration, err error)

	// RecordQuery is called after each query. kind names the query
	// ("entityGuids", "components", ...).
	RecordQuery(kind string, results int, duration time.Duration)

	// RecordDelete is called after each model deletion.
	RecordDelete(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordIngest(int, int, time.Duration, error)  {}
func (NoopMetricsCollector) RecordRefresh(int, int, time.Duration, error) {}
func (NoopMetricsCollector) RecordQuery(string, int, time.Duration)       {}
func (NoopMetricsCollector) RecordDelete(time.Duration, error)            {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	IngestCount       atomic.Int64
	IngestStored      atomic.Int64
	IngestFailed      atomic.Int64
	IngestErrors      atomic.Int64
	RefreshCount      atomic.Int64
	RefreshErrors     atomic.Int64
	RefreshTotalNanos atomic.Int64
	LoadedModels      atomic.Int64
	LoadedComponents  atomic.Int64
	QueryCount        atomic.Int64
	QueryTotalNanos   atomic.Int64
	DeleteCount       atomic.Int64
	DeleteErrors      atomic.Int64
}

// RecordIngest implements MetricsCollector.
func (b *BasicMetricsCollector) RecordIngest(stored, failed int, duration time.Duration, err error) {
	b.IngestCount.Add(1)
	b.IngestStored.Add(int64(stored))
	b.IngestFailed.Add(int64(failed))
	if err != nil {
		b.IngestErrors.Add(1)
	}
}

// RecordRefresh implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRefresh(models, components int, duration time.Duration, err error) {
	b.RefreshCount.Add(1)
	b.RefreshTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.RefreshErrors.Add(1)
		return
	}
	b.LoadedModels.Store(int64(models))
	b.LoadedComponents.Store(int64(components))
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(kind string, results int, duration time.Duration) {
	b.QueryCount.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())
}

// RecordDelete implements MetricsCollector.
func (b *BasicMetricsCollector) RecordDelete(duration time.Duration, err error) {
	b.DeleteCount.Add(1)
	if err != nil {
		b.DeleteErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		IngestCount:      b.IngestCount.Load(),
		IngestStored:     b.IngestStored.Load(),
		IngestFailed:     b.IngestFailed.Load(),
		IngestErrors:     b.IngestErrors.Load(),
		RefreshCount:     b.RefreshCount.Load(),
		RefreshErrors:    b.RefreshErrors.Load(),
		RefreshAvgNanos:  avg(b.RefreshTotalNanos.Load(), b.RefreshCount.Load()),
		LoadedModels:     b.LoadedModels.Load(),
		LoadedComponents: b.LoadedComponents.Load(),
		QueryCount:       b.QueryCount.Load(),
		QueryAvgNanos:    avg(b.QueryTotalNanos.Load(), b.QueryCount.Load()),
		DeleteCount:      b.DeleteCount.Load(),
		DeleteErrors:     b.DeleteErrors.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	IngestCount      int64
	IngestStored     int64
	IngestFailed     int64
	IngestErrors     int64
	RefreshCount     int64
	RefreshErrors    int64
	RefreshAvgNanos  int64
	LoadedModels     int64
	LoadedComponents int64
	QueryCount       int64
	QueryAvgNanos    int64
	DeleteCount      int64
	DeleteErrors     int64
}

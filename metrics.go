package tileconn

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// metrics/prometheus package ships one for Prometheus.
type MetricsCollector interface {
	// RecordLevelBuild is called after each level build.
	// stats is nil when the build failed.
	RecordLevelBuild(level uint8, stats *LevelStats, duration time.Duration, err error)

	// RecordQuery is called after each query. op names the query
	// ("color_of", "colors_in_radius", "colors_for_location", "connected").
	RecordQuery(op string, duration time.Duration, err error)

	// RecordExport is called after each export with the produced size in bytes.
	RecordExport(format string, size int, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordLevelBuild(uint8, *LevelStats, time.Duration, error) {}
func (NoopMetricsCollector) RecordQuery(string, time.Duration, error)                  {}
func (NoopMetricsCollector) RecordExport(string, int, time.Duration, error)            {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	BuildCount      atomic.Int64
	BuildErrors     atomic.Int64
	BuildTotalNanos atomic.Int64
	TilesScanned    atomic.Int64
	TilesUnreadable atomic.Int64
	QueryCount      atomic.Int64
	QueryErrors     atomic.Int64
	QueryTotalNanos atomic.Int64
	ExportCount     atomic.Int64
	ExportErrors    atomic.Int64
	ExportBytes     atomic.Int64
}

// RecordLevelBuild implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLevelBuild(_ uint8, stats *LevelStats, duration time.Duration, err error) {
	b.BuildCount.Add(1)
	b.BuildTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.BuildErrors.Add(1)
		return
	}
	b.TilesScanned.Add(int64(stats.Readable + stats.Unreadable))
	b.TilesUnreadable.Add(int64(stats.Unreadable))
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(_ string, duration time.Duration, err error) {
	b.QueryCount.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.QueryErrors.Add(1)
	}
}

// RecordExport implements MetricsCollector.
func (b *BasicMetricsCollector) RecordExport(_ string, size int, _ time.Duration, err error) {
	b.ExportCount.Add(1)
	if err != nil {
		b.ExportErrors.Add(1)
		return
	}
	b.ExportBytes.Add(int64(size))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		BuildCount:      b.BuildCount.Load(),
		BuildErrors:     b.BuildErrors.Load(),
		BuildAvgNanos:   avg(b.BuildTotalNanos.Load(), b.BuildCount.Load()),
		TilesScanned:    b.TilesScanned.Load(),
		TilesUnreadable: b.TilesUnreadable.Load(),
		QueryCount:      b.QueryCount.Load(),
		QueryErrors:     b.QueryErrors.Load(),
		QueryAvgNanos:   avg(b.QueryTotalNanos.Load(), b.QueryCount.Load()),
		ExportCount:     b.ExportCount.Load(),
		ExportErrors:    b.ExportErrors.Load(),
		ExportBytes:     b.ExportBytes.Load(),
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
	BuildCount      int64
	BuildErrors     int64
	BuildAvgNanos   int64
	TilesScanned    int64
	TilesUnreadable int64
	QueryCount      int64
	QueryErrors     int64
	QueryAvgNanos   int64
	ExportCount     int64
	ExportErrors    int64
	ExportBytes     int64
}

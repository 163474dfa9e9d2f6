// Package prometheus exports tileconn build, query and export metrics to
// Prometheus.
//
//	c, _ := prometheus.NewCollector(prom.DefaultRegisterer, "tileconn")
//	m, _ := tileconn.New(h, src, tileconn.WithMetricsCollector(c))
//	http.Handle("/metrics", promhttp.Handler())
package prometheus

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/tileconn"
)

// Collector implements tileconn.MetricsCollector.
type Collector struct {
	buildLatency *prometheus.HistogramVec
	tiles        *prometheus.CounterVec
	regions      *prometheus.GaugeVec
	queryLatency *prometheus.HistogramVec
	exportBytes  *prometheus.CounterVec
	exports      *prometheus.CounterVec
}

// NewCollector creates a collector and registers its metrics with reg.
// namespace prefixes every metric name.
func NewCollector(reg prometheus.Registerer, namespace string) (*Collector, error) {
	c := &Collector{
		buildLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "level_build_duration_seconds",
			Help:      "Duration of level builds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"level", "status"}),
		tiles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tiles_total",
			Help:      "Tiles seen by level builds, by state",
		}, []string{"level", "state"}),
		regions: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "regions",
			Help:      "Connected regions of the last successful build",
		}, []string{"level"}),
		queryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "query_duration_seconds",
			Help:      "Latency of connectivity queries",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}, []string{"op", "status"}),
		exportBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "export_bytes_total",
			Help:      "Bytes produced by exports",
		}, []string{"format"}),
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Exports by format and status",
		}, []string{"format", "status"}),
	}

	for _, col := range []prometheus.Collector{c.buildLatency, c.tiles, c.regions, c.queryLatency, c.exportBytes, c.exports} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// RecordLevelBuild implements tileconn.MetricsCollector.
func (c *Collector) RecordLevelBuild(level uint8, stats *tileconn.LevelStats, duration time.Duration, err error) {
	l := strconv.Itoa(int(level))
	c.buildLatency.WithLabelValues(l, status(err)).Observe(duration.Seconds())
	if err != nil || stats == nil {
		return
	}
	c.tiles.WithLabelValues(l, "readable").Add(float64(stats.Readable))
	c.tiles.WithLabelValues(l, "absent").Add(float64(stats.Absent))
	c.tiles.WithLabelValues(l, "unreadable").Add(float64(stats.Unreadable))
	c.regions.WithLabelValues(l).Set(float64(stats.Regions))
}

// RecordQuery implements tileconn.MetricsCollector.
func (c *Collector) RecordQuery(op string, duration time.Duration, err error) {
	c.queryLatency.WithLabelValues(op, status(err)).Observe(duration.Seconds())
}

// RecordExport implements tileconn.MetricsCollector.
func (c *Collector) RecordExport(format string, size int, _ time.Duration, err error) {
	c.exports.WithLabelValues(format, status(err)).Inc()
	if err == nil {
		c.exportBytes.WithLabelValues(format).Add(float64(size))
	}
}

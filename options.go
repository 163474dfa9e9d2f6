package tileconn

import (
	"log/slog"

	"github.com/hupe1980/tileconn/codec"
	"github.com/hupe1980/tileconn/resource"
)

type options struct {
	codec              codec.Codec
	metricsCollector   MetricsCollector
	logger             *Logger
	concurrency        int
	resourceController *resource.Controller
}

// Option configures a Map.
type Option func(*options)

// WithCodec configures the JSON codec used for exports and snapshot metadata.
//
// If nil is passed, codec.Default is used.
func WithCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}
		o.codec = c
	}
}

// WithConcurrency sets the number of tiles read in parallel per level.
// Values <= 0 use GOMAXPROCS.
func WithConcurrency(n int) Option {
	return func(o *options) {
		o.concurrency = n
	}
}

// WithResourceController limits parallel level builds and the memory held by
// builds in flight.
//
// Example:
//
//	rc := resource.NewController(resource.Config{
//	    MaxConcurrentBuilds: 2,
//	    MemoryLimitBytes:    512 << 20,
//	})
//	m, _ := tileconn.New(h, src, tileconn.WithResourceController(rc))
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.resourceController = rc
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &tileconn.BasicMetricsCollector{}
//	m, _ := tileconn.New(h, src, tileconn.WithMetricsCollector(metrics))
//	// ... build and query ...
//	stats := metrics.GetStats()
//	fmt.Printf("Queries: %d, Avg latency: %dns\n", stats.QueryCount, stats.QueryAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := tileconn.NewJSONLogger(slog.LevelInfo)
//	m, _ := tileconn.New(h, src, tileconn.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = NoopLogger()
		}
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		codec:            codec.Default,
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

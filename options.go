package strata

import (
	"log/slog"
)

type options struct {
	logger  *Logger
	metrics MetricsCollector
}

// Option configures DB construction behavior.
type Option func(*options)

// WithLogger configures structured logging for transactions and lifecycle
// events. Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := strata.NewJSONLogger(slog.LevelInfo)
//	db, _ := strata.New(store, strata.WithLogger(logger))
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

// WithMetricsCollector configures a metrics collector for monitoring
// transactions.
//
// Example with BasicMetricsCollector:
//
//	metrics := &strata.BasicMetricsCollector{}
//	db, _ := strata.New(store, strata.WithMetricsCollector(metrics))
//	// ... use db ...
//	stats := metrics.GetStats()
//	fmt.Printf("Updates: %d, Avg latency: %dns\n", stats.UpdateCount, stats.UpdateAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}
		o.metrics = mc
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		logger:  NoopLogger(),
		metrics: NoopMetricsCollector{},
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	return o
}

package memoryengine

import (
	"github.com/dcbkit/tagged-eventlog-go/eventlog"
)

// Option defines a functional option for configuring EventLog.
type Option func(*EventLog) error

// WithLogger sets the logger for the EventLog.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Info level: event counts, durations, concurrency conflicts (production-safe)
// Error level: critical failures that cause operation failures.
func WithLogger(logger eventlog.Logger) Option {
	return func(el *EventLog) error {
		el.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the EventLog.
// When set, it takes precedence over the plain logger and receives log
// messages with context information including automatic trace/span
// correlation when tracing is enabled.
func WithContextualLogger(logger eventlog.ContextualLogger) Option {
	return func(el *EventLog) error {
		el.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the EventLog.
// The collector will receive append/query durations and concurrency conflict
// counts.
func WithMetrics(collector eventlog.MetricsCollector) Option {
	return func(el *EventLog) error {
		el.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the EventLog.
// The collector will receive span creation for append/query operations,
// context propagation, and error tracking.
func WithTracing(collector eventlog.TracingCollector) Option {
	return func(el *EventLog) error {
		el.tracingCollector = collector
		return nil
	}
}

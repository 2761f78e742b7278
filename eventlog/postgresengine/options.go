package postgresengine

import (
	"github.com/dcbkit/tagged-eventlog-go/eventlog"
)

// Option defines a functional option for configuring EventLog.
type Option func(*EventLog) error

// WithTableName sets the table name for the EventLog.
func WithTableName(tableName string) Option {
	return func(el *EventLog) error {
		if tableName == "" {
			return eventlog.ErrEmptyTableNameSupplied
		}

		el.eventTableName = tableName

		return nil
	}
}

// WithLogger sets the logger for the EventLog.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL queries with execution timing (development use)
// Info level: event counts, durations, concurrency conflicts (production-safe)
// Warn level: non-critical issues like cleanup failures
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
// correlation when tracing is enabled, enabling unified observability.
func WithContextualLogger(logger eventlog.ContextualLogger) Option {
	return func(el *EventLog) error {
		el.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the EventLog.
// The collector will receive performance and operational metrics including
// query/append durations, event counts, concurrency conflicts, and database errors.
func WithMetrics(collector eventlog.MetricsCollector) Option {
	return func(el *EventLog) error {
		el.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the EventLog.
// The collector will receive distributed tracing information including
// span creation for query/append operations, context propagation, and error tracking.
func WithTracing(collector eventlog.TracingCollector) Option {
	return func(el *EventLog) error {
		el.tracingCollector = collector
		return nil
	}
}

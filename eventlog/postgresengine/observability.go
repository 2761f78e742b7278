package postgresengine

import (
	"context"
	"math"
	"time"

	"github.com/dcbkit/tagged-eventlog-go/eventlog"
)

const (
	logMsgBuildSelectQueryFailed = "failed to build select query"
	logMsgBuildInsertQueryFailed = "failed to build insert query"
	logMsgDBQueryFailed          = "database query execution failed"
	logMsgDBExecFailed           = "database execution failed during event append"
	logMsgCloseRowsFailed        = "failed to close database rows"
	logMsgScanRowFailed          = "failed to scan database row"
	logMsgBuildStoredEventFailed = "failed to build event from database row"
	logMsgRowsAffectedFailed     = "failed to get rows affected count"
	logMsgQueryCompleted         = "query completed"
	logMsgEventAppended          = "event appended"
	logMsgConcurrencyConflict    = "concurrency conflict detected"
	logMsgSQLExecuted            = "executed sql for: "
	logMsgOperation              = "eventlog operation: "

	logAttrError             = "error"
	logAttrQuery             = "query"
	logAttrEventType         = "event_type"
	logAttrEventCount        = "event_count"
	logAttrDurationMS        = "duration_ms"
	logAttrPosition          = "position"
	logAttrExpectedPosition  = "expected_position"
	logAttrBoundarySpecCount = "boundary_spec_count"

	logActionQuery  = "query"
	logActionAppend = "append"

	metricQueryDuration        = "eventlog_query_duration"
	metricAppendDuration       = "eventlog_append_duration"
	metricConcurrencyConflicts = "eventlog_concurrency_conflicts"

	spanNameQuery     = "eventlog.query"
	spanNameAppend    = "eventlog.append"
	spanAttrOperation = "operation"
	spanAttrErrorType = "error_type"

	statusOK       = "ok"
	statusConflict = "conflict"
	statusError    = "error"

	errorTypeQueryBuild = "query_build"
	errorTypeDatabase   = "database"
	errorTypeRowScan    = "row_scan"
	errorTypeValidation = "validation"
)

func (el *EventLog) startSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, eventlog.SpanContext) {
	if el.tracingCollector == nil {
		return ctx, nil
	}

	return el.tracingCollector.StartSpan(ctx, name, attrs)
}

func (el *EventLog) finishSpan(span eventlog.SpanContext, status string) {
	if el.tracingCollector == nil || span == nil {
		return
	}

	el.tracingCollector.FinishSpan(span, status, nil)
}

func (el *EventLog) finishSpanWithError(span eventlog.SpanContext, errorType string) {
	if el.tracingCollector == nil || span == nil {
		return
	}

	el.tracingCollector.FinishSpan(span, statusError, map[string]string{spanAttrErrorType: errorType})
}

// logQueryWithDuration logs SQL queries with execution time at debug level if a logger is configured.
func (el *EventLog) logQueryWithDuration(ctx context.Context, sqlQuery string, action string, duration time.Duration) {
	if el.contextualLogger != nil {
		el.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+action,
			logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)
		return
	}

	if el.logger != nil {
		el.logger.Debug(logMsgSQLExecuted+action,
			logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery)
	}
}

// logOperation logs operational information at info level if a logger is configured.
func (el *EventLog) logOperation(ctx context.Context, action string, args ...any) {
	if el.contextualLogger != nil {
		el.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
		return
	}

	if el.logger != nil {
		el.logger.Info(logMsgOperation+action, args...)
	}
}

// logWarn logs non-critical issues at warn level if a logger is configured.
func (el *EventLog) logWarn(ctx context.Context, message string, err error) {
	if el.contextualLogger != nil {
		el.contextualLogger.WarnContext(ctx, message, logAttrError, err.Error())
		return
	}

	if el.logger != nil {
		el.logger.Warn(message, logAttrError, err.Error())
	}
}

// logError logs error information at the error level if a logger is configured.
func (el *EventLog) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{logAttrError, err.Error()}, args...)

	if el.contextualLogger != nil {
		el.contextualLogger.ErrorContext(ctx, message, allArgs...)
		return
	}

	if el.logger != nil {
		el.logger.Error(message, allArgs...)
	}
}

func (el *EventLog) recordDuration(ctx context.Context, metric string, duration time.Duration, labels map[string]string) {
	if el.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := el.metricsCollector.(eventlog.ContextualMetricsCollector); ok {
		contextualCollector.RecordDurationContext(ctx, metric, duration, labels)
		return
	}

	el.metricsCollector.RecordDuration(metric, duration, labels)
}

func (el *EventLog) incrementCounter(ctx context.Context, metric string, labels map[string]string) {
	if el.metricsCollector == nil {
		return
	}

	if contextualCollector, ok := el.metricsCollector.(eventlog.ContextualMetricsCollector); ok {
		contextualCollector.IncrementCounterContext(ctx, metric, labels)
		return
	}

	el.metricsCollector.IncrementCounter(metric, labels)
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

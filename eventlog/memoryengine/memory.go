package memoryengine

import (
	"context"
	"errors"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/dcbkit/tagged-eventlog-go/eventlog"
)

const (
	logMsgEventAppended       = "event appended"
	logMsgQueryCompleted      = "query completed"
	logMsgConcurrencyConflict = "concurrency conflict detected"
	logMsgOperation           = "eventlog operation: "
	logAttrEventType          = "event_type"
	logAttrEventCount         = "event_count"
	logAttrDurationMS         = "duration_ms"
	logAttrPosition           = "position"
	logAttrExpectedPosition   = "expected_position"
	logAttrCurrentPosition    = "current_position"
	logAttrBoundarySpecCount  = "boundary_spec_count"

	metricAppendDuration      = "eventlog_append_duration"
	metricQueryDuration       = "eventlog_query_duration"
	metricConcurrencyConflict = "eventlog_concurrency_conflicts"

	spanNameAppend    = "eventlog.append"
	spanNameQuery     = "eventlog.query"
	spanAttrOperation = "operation"
	statusOK          = "ok"
	statusConflict    = "conflict"
	statusError       = "error"
)

// EventLog is the in-memory event log engine. It is the sole mutator of event
// positions: Append stamps the authoritative position under the lock, so the
// stored sequence is always 0, 1, 2, ... in append order.
//
// The zero value is not usable; construct it with NewEventLog. An EventLog is
// safe for concurrent use.
type EventLog struct {
	mu               sync.Mutex
	events           eventlog.Events
	logger           eventlog.Logger
	contextualLogger eventlog.ContextualLogger
	metricsCollector eventlog.MetricsCollector
	tracingCollector eventlog.TracingCollector
}

// NewEventLog creates a new empty in-memory EventLog with optional configuration.
func NewEventLog(options ...Option) (*EventLog, error) {
	el := &EventLog{
		events: make(eventlog.Events, 0),
	}

	for _, option := range options {
		if err := option(el); err != nil {
			return nil, err
		}
	}

	return el, nil
}

// Append appends one event respecting the optimistic concurrency contract:
// it fails with eventlog.ErrConcurrencyConflict unless lastKnownPosition
// equals the log's current position, i.e. no other writer appended anything
// since the caller last read. A negative lastKnownPosition is a validation
// failure (eventlog.ErrNegativePosition), not a conflict.
//
// The boundary Query should be the one used for the query before making the
// business decision. The conflict check is global and does not scope to the
// boundary's tags; the boundary is recorded for observability only.
//
// On success the event is cloned with the authoritative position and the
// stored event is returned. A rejected append leaves the log untouched.
func (el *EventLog) Append(
	ctx context.Context,
	event eventlog.Event,
	boundary eventlog.Query,
	lastKnownPosition eventlog.PositionInt64,
) (eventlog.Event, error) {

	start := time.Now()
	ctx, span := el.startSpan(ctx, spanNameAppend, map[string]string{
		logAttrEventType:         event.EventType,
		logAttrBoundarySpecCount: strconv.Itoa(len(boundary.Specifications())),
	})

	if lastKnownPosition < 0 {
		validationErr := errors.Join(eventlog.ErrAppendingEventFailed, eventlog.ErrNegativePosition)
		el.logError(ctx, logMsgEventAppended, validationErr, logAttrEventType, event.EventType)
		el.finishSpan(span, statusError)

		return eventlog.Event{}, validationErr
	}

	el.mu.Lock()
	defer el.mu.Unlock()

	currentPosition := eventlog.PositionInt64(len(el.events))

	if lastKnownPosition != currentPosition {
		el.logOperation(ctx, logMsgConcurrencyConflict,
			logAttrExpectedPosition, lastKnownPosition,
			logAttrCurrentPosition, currentPosition)
		el.incrementCounter(ctx, metricConcurrencyConflict, map[string]string{spanAttrOperation: "append"})
		el.finishSpan(span, statusConflict)

		return eventlog.Event{}, eventlog.ErrConcurrencyConflict
	}

	stored, buildErr := eventlog.BuildEventWithPosition(
		event.ID, currentPosition, event.EventType, event.OccurredAt, event.Tags, event.Payload)
	if buildErr != nil {
		el.logError(ctx, logMsgEventAppended, buildErr, logAttrEventType, event.EventType)
		el.finishSpan(span, statusError)

		return eventlog.Event{}, errors.Join(eventlog.ErrAppendingEventFailed, buildErr)
	}

	el.events = append(el.events, stored)

	duration := time.Since(start)
	el.logOperation(ctx, logMsgEventAppended,
		logAttrEventType, stored.EventType,
		logAttrPosition, stored.Position,
		logAttrDurationMS, toMilliseconds(duration))
	el.recordDuration(ctx, metricAppendDuration, duration, map[string]string{spanAttrOperation: "append"})
	el.finishSpan(span, statusOK)

	return stored, nil
}

// Query returns the events matching the query in ascending position order.
// It evaluates AND across the query's specifications, applies FromPosition as
// inclusive lower bound and truncates to the first PageSize entries
// post-filter. The log is never mutated.
func (el *EventLog) Query(ctx context.Context, query eventlog.Query) (eventlog.Events, error) {
	start := time.Now()
	ctx, span := el.startSpan(ctx, spanNameQuery, map[string]string{
		logAttrBoundarySpecCount: strconv.Itoa(len(query.Specifications())),
	})

	el.mu.Lock()
	defer el.mu.Unlock()

	matching := make(eventlog.Events, 0)

	for _, event := range el.events {
		if event.Position < query.FromPosition() {
			continue
		}

		if !matchesAllSpecifications(query.Specifications(), event) {
			continue
		}

		matching = append(matching, event)

		if query.PageSize() > 0 && len(matching) == int(query.PageSize()) {
			break
		}
	}

	duration := time.Since(start)
	el.logOperation(ctx, logMsgQueryCompleted,
		logAttrEventCount, len(matching),
		logAttrDurationMS, toMilliseconds(duration))
	el.recordDuration(ctx, metricQueryDuration, duration, map[string]string{spanAttrOperation: "query"})
	el.finishSpan(span, statusOK)

	return matching, nil
}

// CurrentPosition returns the number of events appended so far, which is the
// position the next event will receive.
func (el *EventLog) CurrentPosition(_ context.Context) (eventlog.PositionInt64, error) {
	el.mu.Lock()
	defer el.mu.Unlock()

	return eventlog.PositionInt64(len(el.events)), nil
}

func matchesAllSpecifications(specifications []eventlog.Specification, event eventlog.Event) bool {
	for _, specification := range specifications {
		if !specification.Matches(event) {
			return false
		}
	}

	return true
}

/***** observability helpers *****/

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

func (el *EventLog) logOperation(ctx context.Context, action string, args ...any) {
	if el.contextualLogger != nil {
		el.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
		return
	}

	if el.logger != nil {
		el.logger.Info(logMsgOperation+action, args...)
	}
}

func (el *EventLog) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := append([]any{"error", err.Error()}, args...)

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

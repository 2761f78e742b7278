package testdoubles

import (
	"context"
	"sync"

	"github.com/dcbkit/tagged-eventlog-go/eventlog"
)

// TracingCollectorSpy is a TracingCollector implementation that captures span
// lifecycle calls for testing.
type TracingCollectorSpy struct {
	started  []SpySpanRecord
	finished []SpySpanRecord
	mu       sync.Mutex
}

// SpySpanRecord represents a recorded span start or finish.
type SpySpanRecord struct {
	Name   string
	Status string
	Attrs  map[string]string
}

// spySpanContext is the SpanContext handed out by the spy.
type spySpanContext struct {
	name  string
	attrs map[string]string
	mu    sync.Mutex
}

// NewTracingCollectorSpy creates a new TracingCollectorSpy instance.
func NewTracingCollectorSpy() *TracingCollectorSpy {
	return &TracingCollectorSpy{}
}

// StartSpan implements the TracingCollector interface for testing.
func (s *TracingCollectorSpy) StartSpan(ctx context.Context, name string, attrs map[string]string) (context.Context, eventlog.SpanContext) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.started = append(s.started, SpySpanRecord{Name: name, Attrs: attrs})

	return ctx, &spySpanContext{name: name, attrs: map[string]string{}}
}

// FinishSpan implements the TracingCollector interface for testing.
func (s *TracingCollectorSpy) FinishSpan(spanCtx eventlog.SpanContext, status string, attrs map[string]string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := SpySpanRecord{Status: status, Attrs: attrs}
	if spy, ok := spanCtx.(*spySpanContext); ok {
		record.Name = spy.name
	}

	s.finished = append(s.finished, record)
}

// GetStartedSpans returns a copy of all recorded span starts.
func (s *TracingCollectorSpy) GetStartedSpans() []SpySpanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SpySpanRecord(nil), s.started...)
}

// GetFinishedSpans returns a copy of all recorded span finishes.
func (s *TracingCollectorSpy) GetFinishedSpans() []SpySpanRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]SpySpanRecord(nil), s.finished...)
}

// HasFinishedSpan checks if a span with the given name finished with the given status.
func (s *TracingCollectorSpy) HasFinishedSpan(name string, status string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, record := range s.finished {
		if record.Name == name && record.Status == status {
			return true
		}
	}

	return false
}

// SetStatus implements the SpanContext interface for testing.
func (s *spySpanContext) SetStatus(status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs["status"] = status
}

// AddAttribute implements the SpanContext interface for testing.
func (s *spySpanContext) AddAttribute(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attrs[key] = value
}

// Compile-time checks to ensure the spies implement the tracing interfaces.
var _ eventlog.TracingCollector = (*TracingCollectorSpy)(nil)
var _ eventlog.SpanContext = (*spySpanContext)(nil)

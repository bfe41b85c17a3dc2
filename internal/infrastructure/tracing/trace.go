package tracing

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/metricsvc/internal/shared/id"
)

// Propagation headers
const (
	HeaderTraceID = "X-Trace-ID"
	HeaderSpanID  = "X-Span-ID"
)

var errPanic = errors.New("handler panicked")

// Span represents a single operation in a trace
type Span struct {
	TraceID    id.TraceID
	SpanID     id.SpanID
	ParentID   id.SpanID
	Name       string
	Service    string
	StartTime  time.Time
	Duration   time.Duration
	Tags       map[string]string
	Error      error
	StatusCode int
}

// Finish marks the span as complete
func (s *Span) Finish() {
	s.Duration = time.Since(s.StartTime)
}

// SetTag adds a tag to the span
func (s *Span) SetTag(key, value string) {
	s.Tags[key] = value
}

// SetError records an error in the span
func (s *Span) SetError(err error) {
	s.Error = err
}

// Tracer hands finished spans to a background logger goroutine
type Tracer struct {
	service string
	logger  *zap.Logger
	spans   chan *Span

	mu       sync.RWMutex
	closed   bool
	finished chan struct{}
}

// New creates a new tracer and starts its span collector
func New(service string, logger *zap.Logger) *Tracer {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracer{
		service:  service,
		logger:   logger,
		spans:    make(chan *Span, 1000),
		finished: make(chan struct{}),
	}
	go t.collectSpans()
	return t
}

// StartSpan creates a span, continuing the trace found in ctx if any
func (t *Tracer) StartSpan(ctx context.Context, name string) (*Span, context.Context) {
	traceID := TraceIDFrom(ctx)
	if traceID == "" {
		traceID = id.NewTraceID()
	}

	span := &Span{
		TraceID:   traceID,
		SpanID:    id.NewSpanID(),
		ParentID:  SpanIDFrom(ctx),
		Name:      name,
		Service:   t.service,
		StartTime: time.Now(),
		Tags:      make(map[string]string),
	}

	ctx = context.WithValue(ctx, traceIDKey, traceID)
	ctx = context.WithValue(ctx, spanIDKey, span.SpanID)
	return span, ctx
}

// Submit queues a finished span; it is dropped when the buffer is full
func (t *Tracer) Submit(span *Span) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return
	}

	select {
	case t.spans <- span:
	default:
		t.logger.Warn("Span buffer full, dropping span",
			zap.String("trace_id", span.TraceID.String()),
			zap.String("span_id", span.SpanID.String()))
	}
}

// Close stops accepting spans and waits for queued ones to be logged
func (t *Tracer) Close() {
	t.mu.Lock()
	if !t.closed {
		t.closed = true
		close(t.spans)
	}
	t.mu.Unlock()
	<-t.finished
}

func (t *Tracer) collectSpans() {
	defer close(t.finished)
	for span := range t.spans {
		t.processSpan(span)
	}
}

func (t *Tracer) processSpan(span *Span) {
	fields := []zap.Field{
		zap.String("trace_id", span.TraceID.String()),
		zap.String("span_id", span.SpanID.String()),
		zap.String("operation", span.Name),
		zap.Duration("duration", span.Duration),
		zap.Int("status", span.StatusCode),
	}
	if span.ParentID != "" {
		fields = append(fields, zap.String("parent_id", span.ParentID.String()))
	}
	for k, v := range span.Tags {
		fields = append(fields, zap.String(k, v))
	}

	if span.Error != nil {
		fields = append(fields, zap.Error(span.Error))
		t.logger.Error("Span completed with error", fields...)
		return
	}
	t.logger.Debug("Span completed", fields...)
}

type contextKey string

const (
	traceIDKey contextKey = "trace_id"
	spanIDKey  contextKey = "span_id"
)

// WithTrace stores an incoming trace and parent span in ctx
func WithTrace(ctx context.Context, traceID id.TraceID, parent id.SpanID) context.Context {
	if traceID != "" {
		ctx = context.WithValue(ctx, traceIDKey, traceID)
	}
	if parent != "" {
		ctx = context.WithValue(ctx, spanIDKey, parent)
	}
	return ctx
}

// TraceIDFrom retrieves the trace ID from context
func TraceIDFrom(ctx context.Context) id.TraceID {
	v, _ := ctx.Value(traceIDKey).(id.TraceID)
	return v
}

// SpanIDFrom retrieves the current span ID from context
func SpanIDFrom(ctx context.Context) id.SpanID {
	v, _ := ctx.Value(spanIDKey).(id.SpanID)
	return v
}

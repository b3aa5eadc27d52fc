package observability

import (
	"context"
	"infragen/internal/quota"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedStore wraps a quota.Store implementation with OpenTelemetry
// tracing and metrics instrumentation. Identities are recorded on spans but
// not on metric labels to keep cardinality bounded.
type InstrumentedStore struct {
	inner    quota.Store
	tracer   trace.Tracer
	duration metric.Float64Histogram
	errors   metric.Int64Counter
	denials  metric.Int64Counter
}

// Compile-time interface check.
var _ quota.Store = (*InstrumentedStore)(nil)

// NewInstrumentedStore creates a quota store wrapper that records trace
// spans, operation latency histograms, error counters, and quota denial
// counters for every store method call.
func NewInstrumentedStore(inner quota.Store) (*InstrumentedStore, error) {
	tracer := otel.Tracer("infragen/quota")
	meter := otel.Meter("infragen/quota")

	duration, err := meter.Float64Histogram(
		"quota.operation.duration",
		metric.WithDescription("Duration of quota store operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"quota.operation.errors",
		metric.WithDescription("Number of quota store operation errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	denials, err := meter.Int64Counter(
		"quota.denials",
		metric.WithDescription("Number of requests denied by the quota ledger"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedStore{
		inner:    inner,
		tracer:   tracer,
		duration: duration,
		errors:   errCounter,
		denials:  denials,
	}, nil
}

func (s *InstrumentedStore) startSpan(ctx context.Context, operation, identity string) (context.Context, trace.Span) {
	ctx, span := s.tracer.Start(ctx, "quota."+operation,
		trace.WithAttributes(
			attribute.String("quota.operation", operation),
			attribute.String("quota.identity", identity),
		),
	)
	return ctx, span
}

func (s *InstrumentedStore) record(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	elapsed := time.Since(start).Seconds()
	attrs := metric.WithAttributes(attribute.String("operation", operation))

	s.duration.Record(ctx, elapsed, attrs)

	if err != nil {
		s.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}

	span.End()
}

func (s *InstrumentedStore) Count(ctx context.Context, identity string, windowStart time.Time) (int, error) {
	ctx, span := s.startSpan(ctx, "Count", identity)
	start := time.Now()
	count, err := s.inner.Count(ctx, identity, windowStart)
	s.record(ctx, span, "Count", start, err)
	return count, err
}

func (s *InstrumentedStore) Record(ctx context.Context, identity string, now, windowStart time.Time) (int, error) {
	ctx, span := s.startSpan(ctx, "Record", identity)
	start := time.Now()
	count, err := s.inner.Record(ctx, identity, now, windowStart)
	s.record(ctx, span, "Record", start, err)
	return count, err
}

func (s *InstrumentedStore) TryConsume(ctx context.Context, identity string, now, windowStart time.Time, limit int) (int, bool, error) {
	ctx, span := s.startSpan(ctx, "TryConsume", identity)
	span.SetAttributes(attribute.Int("quota.limit", limit))
	start := time.Now()
	count, allowed, err := s.inner.TryConsume(ctx, identity, now, windowStart, limit)
	if err == nil && !allowed {
		s.denials.Add(ctx, 1)
		span.SetAttributes(attribute.Bool("quota.denied", true))
	}
	s.record(ctx, span, "TryConsume", start, err)
	return count, allowed, err
}

func (s *InstrumentedStore) Reset(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Reset", "")
	start := time.Now()
	err := s.inner.Reset(ctx)
	s.record(ctx, span, "Reset", start, err)
	return err
}

func (s *InstrumentedStore) Close() error {
	return s.inner.Close()
}

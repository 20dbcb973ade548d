package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Operation names a unit of work for tracing.
type Operation struct {
	Component  string // e.g. "health", "upstream", "alert"
	Name       string // e.g. "cycle", "fetch", "deliver"
	Attributes []attribute.KeyValue
}

// SpanName returns "opscore.<component>.<name>".
func (o Operation) SpanName() string {
	return "opscore." + o.Component + "." + o.Name
}

// Tracer starts and ends spans for operations.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: End must be best-effort and must not panic.
type Tracer interface {
	Start(ctx context.Context, op Operation) (context.Context, trace.Span)
	End(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer wraps an OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) Start(ctx context.Context, op Operation) (context.Context, trace.Span) {
	attrs := append([]attribute.KeyValue{
		attribute.String("opscore.component", op.Component),
	}, op.Attributes...)

	return t.tracer.Start(ctx, op.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) End(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// Instrument runs fn inside a span for op. Failures are logged at warn
// level with the elapsed time; the error is returned unchanged.
func Instrument(ctx context.Context, obs Observer, op Operation, fn func(context.Context) error) error {
	ctx, span := obs.Tracer().Start(ctx, op)
	start := time.Now()

	err := fn(ctx)

	obs.Tracer().End(span, err)
	if err != nil {
		obs.Logger().Warn(ctx, op.SpanName()+" failed",
			Field{Key: "duration_ms", Value: time.Since(start).Milliseconds()},
			Err(err),
		)
	}
	return err
}

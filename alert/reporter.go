package alert

import (
	"context"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/jonwraymond/opscore/observe"
)

// Reporter is the error-tracking sink. Tags carry context such as the
// route, parameters and elapsed time.
type Reporter interface {
	Report(ctx context.Context, err error, tags map[string]string)
}

// ReporterFunc is an adapter to allow ordinary functions to be used as
// Reporters.
type ReporterFunc func(ctx context.Context, err error, tags map[string]string)

// Report calls f.
func (f ReporterFunc) Report(ctx context.Context, err error, tags map[string]string) {
	f(ctx, err, tags)
}

// LogReporter writes reported errors to a logger and records them on the
// span carried by ctx.
type LogReporter struct {
	Logger observe.Logger
}

// Report implements Reporter.
func (r LogReporter) Report(ctx context.Context, err error, tags map[string]string) {
	if err == nil {
		return
	}

	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]observe.Field, 0, len(tags)+1)
	attrs := make([]attribute.KeyValue, 0, len(tags))
	fields = append(fields, observe.Err(err))
	for _, k := range keys {
		fields = append(fields, observe.Field{Key: k, Value: tags[k]})
		attrs = append(attrs, attribute.String(k, tags[k]))
	}

	trace.SpanFromContext(ctx).RecordError(err, trace.WithAttributes(attrs...))
	if r.Logger != nil {
		r.Logger.Error(ctx, "error reported", fields...)
	}
}

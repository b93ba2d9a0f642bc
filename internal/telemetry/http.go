package telemetry

import (
	"context"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const httpScopeName = "github.com/v2gpti/gpti/http"

// Transport wraps an http.RoundTripper with a client span and request
// metrics per call. Use WrapTransport to create one.
type Transport struct {
	inner  http.RoundTripper
	api    string
	tracer trace.Tracer
	reqs   metric.Int64Counter
	dur    metric.Float64Histogram
	errs   metric.Int64Counter
}

// WrapTransport returns rt decorated with instrumentation labelled with api
// ("tracker" or "toggl"). When telemetry is disabled rt is returned as-is.
func WrapTransport(rt http.RoundTripper, api string) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	if !Enabled() {
		return rt
	}
	m := Meter(httpScopeName)
	reqs, _ := m.Int64Counter("gpti.http.requests",
		metric.WithDescription("REST calls issued"),
	)
	dur, _ := m.Float64Histogram("gpti.http.duration",
		metric.WithDescription("REST call duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	errs, _ := m.Int64Counter("gpti.http.errors",
		metric.WithDescription("REST calls that failed or returned a non-2xx status"),
	)
	return &Transport{
		inner:  rt,
		api:    api,
		tracer: Tracer(httpScopeName),
		reqs:   reqs,
		dur:    dur,
		errs:   errs,
	}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	attrs := []attribute.KeyValue{
		attribute.String("gpti.api", t.api),
		attribute.String("http.request.method", req.Method),
	}
	ctx, span := t.tracer.Start(req.Context(), t.api+" "+req.Method,
		trace.WithAttributes(append(attrs, attribute.String("url.path", req.URL.Path))...),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()
	start := time.Now()
	t.reqs.Add(ctx, 1, metric.WithAttributes(attrs...))

	resp, err := t.inner.RoundTrip(req.WithContext(ctx))

	t.dur.Record(ctx, float64(time.Since(start).Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		t.fail(ctx, span, err.Error(), attrs)
		return resp, err
	}
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode >= 300 {
		t.fail(ctx, span, resp.Status, attrs)
	}
	return resp, nil
}

func (t *Transport) fail(ctx context.Context, span trace.Span, msg string, attrs []attribute.KeyValue) {
	span.SetStatus(codes.Error, msg)
	t.errs.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// StartCommand opens the span covering one gpti subcommand.
func StartCommand(ctx context.Context, name string) (context.Context, trace.Span) {
	return Tracer("").Start(ctx, "gpti."+name,
		trace.WithAttributes(attribute.String("gpti.command", name)),
	)
}

// EndCommand records err on span and ends it.
func EndCommand(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

package telemetry

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func useRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	enabled = true
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		enabled = false
	})
	return rec
}

func TestWrapTransportDisabled(t *testing.T) {
	enabled = false
	rt := http.DefaultTransport
	if got := WrapTransport(rt, "tracker"); got != rt {
		t.Errorf("WrapTransport() with telemetry off = %T, want the original transport", got)
	}
}

func TestTransportRecordsSpan(t *testing.T) {
	rec := useRecorder(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := &http.Client{Transport: WrapTransport(nil, "tracker")}
	for _, p := range []string{"/me", "/missing"} {
		resp, err := client.Get(srv.URL + p)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
	}

	spans := rec.Ended()
	if len(spans) != 2 {
		t.Fatalf("recorded %d spans, want 2", len(spans))
	}
	if spans[0].Name() != "tracker GET" {
		t.Errorf("span name = %q", spans[0].Name())
	}
	if spans[0].Status().Code == codes.Error {
		t.Error("200 response marked as error")
	}
	if spans[1].Status().Code != codes.Error {
		t.Error("404 response not marked as error")
	}
}

func TestCommandSpan(t *testing.T) {
	rec := useRecorder(t)

	_, span := StartCommand(context.Background(), "finish")
	EndCommand(span, errors.New("not a trivial merge"))

	spans := rec.Ended()
	if len(spans) != 1 {
		t.Fatalf("recorded %d spans, want 1", len(spans))
	}
	if spans[0].Name() != "gpti.finish" {
		t.Errorf("span name = %q", spans[0].Name())
	}
	if spans[0].Status().Description != "not a trivial merge" {
		t.Errorf("status = %+v", spans[0].Status())
	}
}

func TestInitWritesToWriter(t *testing.T) {
	prev := otel.GetTracerProvider()
	defer otel.SetTracerProvider(prev)

	var buf bytes.Buffer
	ctx := context.Background()
	if err := Init(ctx, true, "gpti", "test", &buf); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if !Enabled() {
		t.Fatal("Enabled() = false after Init(true)")
	}
	_, span := StartCommand(ctx, "start")
	span.End()
	Shutdown(ctx)

	if !bytes.Contains(buf.Bytes(), []byte("gpti.start")) {
		t.Errorf("exporter output missing span: %s", buf.String())
	}
	if Enabled() {
		t.Error("Enabled() = true after Shutdown")
	}
}

func TestInitDisabled(t *testing.T) {
	if err := Init(context.Background(), false, "gpti", "test", nil); err != nil {
		t.Fatal(err)
	}
	if Enabled() {
		t.Error("Enabled() = true after Init(false)")
	}
}

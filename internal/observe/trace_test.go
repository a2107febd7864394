package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestStartSpanRecordsAndEnrichesLogger(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(prev)
		_ = tp.Shutdown(context.Background())
	})

	ctx, span := StartSpan(context.Background(), "backend.request")
	if Logger(ctx) == nil {
		t.Fatal("expected logger")
	}
	span.End()

	ended := rec.Ended()
	if len(ended) != 1 || ended[0].Name() != "backend.request" {
		t.Fatalf("expected one ended span, got %d", len(ended))
	}
}

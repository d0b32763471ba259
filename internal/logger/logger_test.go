package logger

import (
	"bytes"
	"context"
	"log"
	"os"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"go.opentelemetry.io/otel/trace"
)

func captureLog(t *testing.T) *bytes.Buffer {
	var buf bytes.Buffer
	flags := log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetFlags(flags)
	})
	return &buf
}

func TestPrintf_NoContextValues(t *testing.T) {
	buf := captureLog(t)

	Printf(context.Background(), "order %s created", "KAI-1001")

	assert.Equal(t, "order KAI-1001 created\n", buf.String())
}

func TestPrintf_WithRequestAndTraceID(t *testing.T) {
	buf := captureLog(t)

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{TraceID: traceID, SpanID: spanID})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)
	ctx = context.WithValue(ctx, middleware.RequestIDKey, "req-42")

	Errorf(ctx, "boom: %v", "db down")

	assert.Equal(t, "[req=req-42] [trace=4bf92f3577b34da6a3ce929d0e0e4736] ERROR boom: db down\n", buf.String())
}

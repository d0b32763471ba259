// Package logger wraps the standard log package and prefixes each line with the
// request id and trace id carried by the context, when present.
package logger

import (
	"context"
	"fmt"
	"log"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
)

func Printf(ctx context.Context, format string, args ...any) {
	log.Print(prefix(ctx) + fmt.Sprintf(format, args...))
}

func Errorf(ctx context.Context, format string, args ...any) {
	log.Print(prefix(ctx) + "ERROR " + fmt.Sprintf(format, args...))
}

func prefix(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	var p string
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		p += "[req=" + reqID + "] "
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		p += "[trace=" + sc.TraceID().String() + "] "
	}
	return p
}

package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type contextKey string

const (
	traceIDKey   contextKey = "trace_id"
	startTimeKey contextKey = "request_start"
)

// Trace assigns every request a trace id and records its start time so the
// response envelope can report traceId and timeConsume. An inbound
// X-Trace-Id header is honored for cross-service correlation.
func Trace(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Trace-Id")
		if traceID == "" {
			traceID = uuid.NewString()
		}

		ctx := context.WithValue(r.Context(), traceIDKey, traceID)
		ctx = context.WithValue(ctx, startTimeKey, time.Now())

		w.Header().Set("X-Trace-Id", traceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func TraceIDFromContext(ctx context.Context) string {
	traceID, _ := ctx.Value(traceIDKey).(string)
	return traceID
}

func StartTimeFromContext(ctx context.Context) (time.Time, bool) {
	start, ok := ctx.Value(startTimeKey).(time.Time)
	return start, ok
}

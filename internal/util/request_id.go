package util

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
)

// RequestIDHeader is the header the frontend and proxies use to correlate a
// marketplace request across services and log lines.
const RequestIDHeader = "X-Request-Id"

type requestIDContextKey struct{}

// WithRequestID assigns every request an id, reusing the incoming header
// when the caller already set one. The id is echoed on the response, stored
// in the request context, and baked into a context logger so every handler
// log line carries it without extra plumbing.
func WithRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(RequestIDHeader))
		if requestID == "" {
			requestID = NewID()
		}
		w.Header().Set(RequestIDHeader, requestID)

		ctx := context.WithValue(r.Context(), requestIDContextKey{}, requestID)
		ctx = ContextWithLogger(ctx, slog.Default().With("request_id", requestID))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext returns the request id, or "" outside a request.
func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(requestIDContextKey{}).(string)
	return id
}

// RequestIDFromRequest returns the request id stored on the request context.
func RequestIDFromRequest(r *http.Request) string {
	if r == nil {
		return ""
	}
	return RequestIDFromContext(r.Context())
}

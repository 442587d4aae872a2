// Package middleware provides HTTP middleware for request IDs, request
// logging and Prometheus metrics.
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/imamik/kubedash/internal/metrics"
)

// RequestIDHeader carries the request id in requests and responses.
const RequestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestIDFromContext returns the request id stored by RequestID.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestID adds a request id to the context and response header. An id
// supplied by the client is kept.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(RequestIDHeader)
		if reqID == "" {
			reqID = uuid.New().String()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set(RequestIDHeader, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// responseWriter captures the status code.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// Logging attaches a request scoped logger to the context and logs each
// request once it completes. It also records the HTTP metrics, labelled by
// route template to keep cardinality bounded.
func Logging(base logr.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			route := r.URL.Path
			if current := mux.CurrentRoute(r); current != nil {
				if tpl, err := current.GetPathTemplate(); err == nil && tpl != "" {
					route = tpl
				}
			}

			logger := base.WithValues("request_id", RequestIDFromContext(r.Context()), "method", r.Method, "route", route)
			if id := mux.Vars(r)["id"]; id != "" {
				logger = logger.WithValues("cluster", id)
			}

			rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rw, r.WithContext(log.IntoContext(r.Context(), logger)))

			duration := time.Since(start)
			metrics.RecordHTTPRequest(route, r.Method, rw.status, duration)

			if rw.status >= http.StatusInternalServerError {
				logger.Info("request failed", "status", rw.status, "duration", duration.String())
				return
			}
			logger.V(1).Info("request served", "status", rw.status, "duration", duration.String())
		})
	}
}

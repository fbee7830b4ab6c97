// Package middleware holds the HTTP middleware chain shared by all routes.
package middleware

import (
	"net/http"
	"time"

	"commerce-router/internal/common/logging"
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// RequestLogging logs one structured line per request with method, path,
// status and latency.
func RequestLogging(next http.Handler) http.Handler {
	logger := logging.WithFields(logging.String("component", "http"))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		logger.Info("Request handled",
			logging.String("method", r.Method),
			logging.String("path", r.URL.Path),
			logging.Int("status", rec.status),
			logging.Duration("duration", time.Since(start)))
	})
}

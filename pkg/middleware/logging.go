// Package middleware holds the HTTP middleware for the engine's front door.
package middleware

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// RequestLogger logs one debug line per request: method, path, status, and
// elapsed time. A nil logger disables it and hands requests straight through.
func RequestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if logger == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(recorder, r)

			logger.Debug("HTTP request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", recorder.statusCode),
				zap.Duration("duration", time.Since(start)),
				zap.String("remote_addr", r.RemoteAddr),
			)
		})
	}
}

// statusRecorder captures the status code for the request log. It also
// swallows duplicate WriteHeader calls so a buggy handler produces a correct
// log line instead of an http warning.
type statusRecorder struct {
	http.ResponseWriter
	statusCode    int
	headerWritten bool
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.headerWritten {
		return
	}
	sr.statusCode = code
	sr.headerWritten = true
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.headerWritten {
		sr.WriteHeader(http.StatusOK)
	}
	return sr.ResponseWriter.Write(b)
}

// Package middleware holds HTTP middleware shared by the stand-in backend's router.
package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// ResponseWriter records the status code of a response
type ResponseWriter struct {
	http.ResponseWriter
	status  int
	started bool
}

// WriteHeader captures the status code
func (rw *ResponseWriter) WriteHeader(status int) {
	rw.status = status
	rw.started = true
	rw.ResponseWriter.WriteHeader(status)
}

// Write marks the response as started
func (rw *ResponseWriter) Write(b []byte) (int, error) {
	rw.started = true
	return rw.ResponseWriter.Write(b)
}

// Started reports whether headers have gone out
func (rw *ResponseWriter) Started() bool {
	return rw.started
}

// Status returns the captured status code
func (rw *ResponseWriter) Status() int {
	return rw.status
}

// Observer is told about every finished request
type Observer func(r *http.Request, status int, elapsed time.Duration)

// Logging logs each request with its request id. observe may be nil.
func Logging(logger *slog.Logger, observe Observer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &ResponseWriter{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			elapsed := time.Since(start)
			if observe != nil {
				observe(r, wrapped.status, elapsed)
			}

			level := slog.LevelInfo
			if wrapped.status >= http.StatusInternalServerError {
				level = slog.LevelWarn
			}
			logger.LogAttrs(r.Context(), level, "http request",
				slog.String("request_id", RequestIDFrom(r.Context())),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", wrapped.status),
				slog.Duration("duration", elapsed),
			)
		})
	}
}

package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"dataroom/internal/httputil"
)

type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	bytes  int64
}

func (w *loggingResponseWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *loggingResponseWriter) Write(p []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(p)
	w.bytes += int64(n)
	return n, err
}

func (w *loggingResponseWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

func (w *loggingResponseWriter) Flush() {
	if flusher, ok := w.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer
func (w *loggingResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// RequestLogging logs one line per request with method, path, status and duration.
// Health probes are skipped; 5xx responses are logged at error level.
func RequestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/health" || r.URL.Path == "/api/health" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			rw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(rw, r)

			fields := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.Status(),
				"bytes", rw.bytes,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_addr", r.RemoteAddr,
			}
			if requestID := httputil.GetRequestID(r); requestID != "" {
				fields = append(fields, "request_id", requestID)
			}
			if r.Pattern != "" {
				fields = append(fields, "route", r.Pattern)
			}

			switch {
			case rw.Status() >= 500:
				logger.Error("request complete", fields...)
			case rw.Status() >= 400:
				logger.Warn("request complete", fields...)
			default:
				logger.Info("request complete", fields...)
			}
		})
	}
}

package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"dataroom/internal/httputil"
)

// RequestIDHeader carries the request ID in both directions
const RequestIDHeader = "X-Request-ID"

// maxRequestIDLength bounds client-supplied IDs before they reach the logs
const maxRequestIDLength = 128

// RequestID reuses a client-supplied X-Request-ID or generates one,
// stores it in the request context and echoes it on the response
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get(RequestIDHeader)
			if requestID == "" || len(requestID) > maxRequestIDLength {
				requestID = uuid.NewString()
			}

			w.Header().Set(RequestIDHeader, requestID)
			r = httputil.WithRequestID(r, requestID)
			next.ServeHTTP(w, r)
		})
	}
}

package middleware

import (
	"context"
	"net/http"
	"strings"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const maxRequestIDLength = 128

// acceptRequestID reports whether a caller-supplied ID is safe to reuse. The
// ID ends up in every log line and audit event of the request, so only
// printable ASCII is accepted.
func acceptRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	return !strings.ContainsFunc(id, func(r rune) bool {
		return r < ' ' || r > '~'
	})
}

// RequestID stores a request ID under chi's RequestIDKey and echoes it in the
// X-Request-Id response header. A valid incoming X-Request-Id is reused;
// otherwise a UUIDv4 is generated. Audit events for submitted log messages
// use this ID as their resource ID.
func RequestID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(chimiddleware.RequestIDHeader)
			if !acceptRequestID(id) {
				id = uuid.NewString()
			}
			w.Header().Set(chimiddleware.RequestIDHeader, id)
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), chimiddleware.RequestIDKey, id)))
		})
	}
}

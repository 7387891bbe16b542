// Package requesttime pins one "now" per HTTP request so every timestamp a
// command writes (entity fields, audit entries, session times) agrees.
package requesttime

import (
	"net/http"
	"time"

	"aurum/pkg/requestcontext"
)

// Middleware stamps each request with the wall clock.
func Middleware(next http.Handler) http.Handler {
	return WithClock(time.Now)(next)
}

// WithClock stamps each request with clock(). Tests pass a fixed clock so
// timestamps in responses are predictable.
func WithClock(clock func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), clock().UTC())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

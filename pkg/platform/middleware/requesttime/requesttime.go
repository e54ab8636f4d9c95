// Package requesttime captures one "now" per HTTP request.
// Every classification and step timestamp default within a request uses the
// same instant, so a response never mixes two clocks.
package requesttime

import (
	"net/http"
	"time"

	"regengine/pkg/requestcontext"
)

// Middleware stores the time the request arrived in the context.
func Middleware(next http.Handler) http.Handler {
	return MiddlewareWithClock(time.Now)(next)
}

// MiddlewareWithClock is Middleware with an injectable clock for tests.
func MiddlewareWithClock(clock func() time.Time) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := requestcontext.WithTime(r.Context(), clock().UTC())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

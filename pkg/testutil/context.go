package testutil

import (
	"net/http"
	"time"

	"regengine/pkg/requestcontext"
)

// WithRequestTime pins the request-scoped clock, the way the requesttime
// middleware would for a live request.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}

// WithRequestID adds a request ID to the request context.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}

// Clock returns successive instants starting at start, step apart. Useful for
// building step timestamps that must be non-decreasing.
func Clock(start time.Time, step time.Duration) func() time.Time {
	next := start
	return func() time.Time {
		t := next
		next = next.Add(step)
		return t
	}
}

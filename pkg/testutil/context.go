package testutil

import (
	"net/http"
	"time"

	id "eventdesk/pkg/domain"
	"eventdesk/pkg/requestcontext"
)

// WithActor adds an authenticated actor to the request context, simulating
// what the auth middleware does for authenticated requests. Invalid user IDs
// are silently ignored so table tests can express "unauthenticated" with an
// empty string.
func WithActor(req *http.Request, userID, displayName, role string) *http.Request {
	parsed, err := id.ParseUserID(userID)
	if err != nil {
		return req
	}
	ctx := requestcontext.WithActor(req.Context(), parsed, displayName, role)
	return req.WithContext(ctx)
}

// WithRequestTime pins the request-scoped clock, keeping every timestamp in
// the handler path deterministic.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	ctx := requestcontext.WithTime(req.Context(), t)
	return req.WithContext(ctx)
}

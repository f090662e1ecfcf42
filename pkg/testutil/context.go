package testutil

import (
	"context"
	"net/http"

	"taaruf/internal/platform/middleware"
	id "taaruf/pkg/domain"
)

// WithUserID adds an authenticated user id to the request context, simulating
// what the auth middleware does for a valid bearer token. Invalid ids are
// silently ignored.
func WithUserID(req *http.Request, userID string) *http.Request {
	if _, err := id.ParseUserID(userID); err == nil {
		ctx := context.WithValue(req.Context(), middleware.ContextKeyUserID, userID)
		return req.WithContext(ctx)
	}
	return req
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}

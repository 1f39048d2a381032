package handlers

import (
	"context"
	"net/http"
)

// UserIDHeader carries the caller's identity. Authentication is handled
// upstream; this service trusts the header.
const UserIDHeader = "X-User-ID"

type contextKey string

const userIDKey contextKey = "userID"

// WithUserID returns a context carrying the caller's user ID.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext extracts the caller's user ID set by the identity
// middleware.
func UserIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(userIDKey).(string); ok {
		return id
	}
	return ""
}

// RequireUserID extracts the caller's user ID, writing a 401 when the
// identity header never made it into the request context.
func RequireUserID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := UserIDFromContext(r.Context())
	if userID == "" {
		WriteError(w, http.StatusUnauthorized, "Missing "+UserIDHeader+" header")
		return "", false
	}
	return userID, true
}

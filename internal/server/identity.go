package server

import (
	"context"
	"net/http"
	"regexp"
	"strings"
)

// UserHeader carries the caller's user id.
const UserHeader = "X-User-ID"

type contextKey int

const userIDKey contextKey = iota

var userIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:@-]{1,64}$`)

// UserIDFromContext extracts the user id set by the identity middleware.
func UserIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(userIDKey).(string); ok {
		return v
	}
	return ""
}

func withUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// identityMiddleware resolves the user from the header, then the "user"
// query parameter (browsers cannot set headers on websocket upgrades),
// then the configured default.
func identityMiddleware(defaultUser string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(UserHeader))
			if id == "" {
				id = strings.TrimSpace(r.URL.Query().Get("user"))
			}
			if id == "" {
				id = defaultUser
			}
			if !userIDPattern.MatchString(id) {
				Error(w, http.StatusBadRequest, "invalid user id")
				return
			}
			next.ServeHTTP(w, r.WithContext(withUserID(r.Context(), id)))
		})
	}
}

package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"doska-client/internal/backend"
	"doska-client/internal/httputil"
	"doska-client/internal/session"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

// SessionKey is the context key for the request's auth session
const SessionKey contextKey = "session"

// Session restores the auth session from the cookie store on every request.
// Restoration is cheap (no network); validation against the backend happens
// lazily when a handler or guard calls Init.
func Session(store *session.CookieStore, client *backend.Client, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := session.New(client, store.Bind(w, r), logger)
			ctx := context.WithValue(r.Context(), SessionKey, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetSession extracts the session from the request context.
func GetSession(ctx context.Context) (*session.Session, bool) {
	sess, ok := ctx.Value(SessionKey).(*session.Session)
	return sess, ok
}

// RequireAuth validates the persisted token (one backend round trip at
// most) and rejects unauthenticated requests.
func RequireAuth(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := GetSession(r.Context())
			if !ok {
				httputil.WriteUnauthorized(w, "Authentication required")
				return
			}
			if err := sess.Init(r.Context()); err != nil {
				logger.Error("session validation failed", zap.Error(err))
			}
			if !sess.IsAuthenticated() {
				httputil.WriteUnauthorized(w, "Authentication required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireModerator gates the admin surface. Runs after RequireAuth.
func RequireModerator() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := GetSession(r.Context())
			if !ok || !sess.IsModerator() {
				httputil.WriteForbidden(w, "Moderator access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

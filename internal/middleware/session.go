package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/zhouzirui/ruffie/backend/internal/service/session"
	"github.com/zhouzirui/ruffie/backend/pkg/utils"
)

// SessionHeader carries the session id for clients that cannot keep cookies.
const SessionHeader = "X-Session-ID"

type sessionKey struct{}

// SessionID extracts the session identifier from the header, the cookie or the
// "session" query parameter, in that order. Browsers cannot set headers on
// EventSource or WebSocket requests, hence the query fallback.
func SessionID(r *http.Request, cookieName string) string {
	if id := strings.TrimSpace(r.Header.Get(SessionHeader)); id != "" {
		return id
	}
	if cookie, err := r.Cookie(cookieName); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	return strings.TrimSpace(r.URL.Query().Get("session"))
}

// RequireSession rejects requests without a live session and stores the
// session on the request context.
func RequireSession(registry *session.Registry, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := SessionID(r, cookieName)
			if id == "" {
				utils.RespondError(w, http.StatusUnauthorized, "login required")
				return
			}

			sess, err := registry.Get(r.Context(), id)
			if err != nil {
				utils.RespondError(w, http.StatusUnauthorized, "session expired, please log in again")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// WithSession returns a copy of ctx carrying sess.
func WithSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, sess)
}

// SessionFrom returns the session stored by RequireSession, or nil.
func SessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey{}).(*session.Session)
	return sess
}

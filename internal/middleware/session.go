package middleware

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/SARVESHVARADKAR123/xiaoyao/internal/authgate"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/observability"
	"github.com/SARVESHVARADKAR123/xiaoyao/internal/transport"
)

// SessionCookie carries the session token for browser navigation and the
// websocket handshake.
const SessionCookie = "session"

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (authgate.Principal, error)
}

// RequireSession answers 401 unless the request carries a valid session.
func RequireSession(auth Authenticator) func(http.Handler) http.Handler {
	return session(auth, func(w http.ResponseWriter, r *http.Request) {
		transport.WriteError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
	})
}

// RedirectWithoutSession sends page requests without a valid session back to
// the landing page.
func RedirectWithoutSession(auth Authenticator, target string) func(http.Handler) http.Handler {
	return session(auth, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target, http.StatusFound)
	})
}

func session(auth Authenticator, reject http.HandlerFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				reject(w, r)
				return
			}

			p, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				observability.GetLogger(r.Context()).Debug("session rejected", zap.Error(err))
				reject(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(InjectPrincipal(r.Context(), p)))
		})
	}
}

// extractToken prefers the Authorization header over the cookie.
func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		parts := strings.Split(h, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	if c, err := r.Cookie(SessionCookie); err == nil {
		return c.Value
	}
	return ""
}

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/wordchain-go/internal/api/apierr"
	"github.com/mcoot/wordchain-go/internal/model"
	"github.com/mcoot/wordchain-go/internal/services/auth"
)

type sessionKey struct{}

// tokenSources are tried in order. EventSource and WebSocket handshakes
// from browsers cannot carry headers, hence the query parameter.
var tokenSources = []func(*http.Request) string{
	func(r *http.Request) string {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			return ""
		}
		return strings.TrimSpace(token)
	},
	func(r *http.Request) string {
		if c, err := r.Cookie("session"); err == nil {
			return c.Value
		}
		return ""
	},
	func(r *http.Request) string {
		return r.URL.Query().Get("token")
	},
}

// Auth rejects requests without a live bearer session and stores the
// session on the request context.
func Auth(authService *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			session, err := authService.ValidateSession(r.Context(), token)
			if err != nil {
				apierr.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, session)))
		})
	}
}

func bearerToken(r *http.Request) string {
	for _, source := range tokenSources {
		if token := source(r); token != "" {
			return token
		}
	}
	return ""
}

// GetSession returns the authenticated session, or nil outside Auth
func GetSession(ctx context.Context) *auth.Session {
	session, _ := ctx.Value(sessionKey{}).(*auth.Session)
	return session
}

// MustGetPlayer returns the authenticated player. Handlers mounted behind
// Auth only; anything else is a routing bug.
func MustGetPlayer(ctx context.Context) *model.Player {
	session := GetSession(ctx)
	if session == nil {
		panic("middleware: MustGetPlayer called on a route without Auth")
	}
	return &session.Player
}

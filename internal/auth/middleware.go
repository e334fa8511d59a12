package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/sibya/sibya/internal/logging"
)

// SessionCookie is the cookie the identity provider's frontend SDK stores
// the session token in.
const SessionCookie = "__session"

type identityKey struct{}

// Identity is the authenticated caller of a request
type Identity struct {
	UserID    string
	SessionID string
}

// WithIdentity returns ctx carrying id
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the caller stored by Middleware, or nil
func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey{}).(*Identity)
	return id
}

// UserID returns the caller's provider user id, or "" when anonymous
func UserID(ctx context.Context) string {
	if id := IdentityFromContext(ctx); id != nil {
		return id.UserID
	}
	return ""
}

// Middleware resolves the caller from a bearer token or session cookie. It
// never rejects: handlers decide whether an anonymous caller is allowed.
func (m *JWTManager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFromRequest(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}

		claims, err := m.ValidateToken(token)
		if err != nil {
			logging.WarnCtx(r.Context(), "Rejected session token", "auth", map[string]interface{}{
				"error": err.Error(),
			})
			next.ServeHTTP(w, r)
			return
		}

		ctx := WithIdentity(r.Context(), &Identity{UserID: claims.Subject, SessionID: claims.SessionID})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func tokenFromRequest(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if strings.HasPrefix(header, "Bearer ") {
			return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		}
		return ""
	}
	if cookie, err := r.Cookie(SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}

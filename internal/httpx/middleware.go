package httpx

import (
	"context"
	"net/http"

	"github.com/ariefcatur/go-campus-tokens.git/internal/auth"
)

type sessionKey struct{}

// Guard authenticates the session cookie and gates routes by role.
type Guard struct {
	Sessions *auth.Sessions
}

func (g *Guard) Require(role auth.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(auth.CookieName)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			sess, err := g.Sessions.Verify(c.Value)
			if err != nil || sess.Role != role {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			ctx := context.WithValue(r.Context(), sessionKey{}, sess)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// sessionFrom returns the verified session; only call under Require.
func sessionFrom(ctx context.Context) *auth.Session {
	s, _ := ctx.Value(sessionKey{}).(*auth.Session)
	return s
}

package middleware

import (
	"context"
	"net/http"

	"github.com/wolfman30/dentalbook/internal/auth"
	"github.com/wolfman30/dentalbook/internal/http/handlers"
	"github.com/wolfman30/dentalbook/pkg/logging"
)

// Authenticator resolves a bearer token to a staff session.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (auth.Session, error)
}

// RequireSession rejects requests without a valid staff token and puts the
// session on the request context.
func RequireSession(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.BearerToken(r)
			if token == "" {
				handlers.WriteError(w, http.StatusUnauthorized, auth.ErrUnauthenticated.Error(), "missing bearer token")
				return
			}
			sess, err := a.Authenticate(r.Context(), token)
			if err != nil {
				handlers.WriteError(w, http.StatusUnauthorized, auth.ErrUnauthenticated.Error(), nil)
				return
			}
			ctx := auth.WithSession(r.Context(), sess)
			ctx = logging.WithContext(ctx, logging.FromContext(ctx, nil).With("staff_id", sess.StaffID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole allows only sessions with one of roles. Use after
// RequireSession.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := auth.FromContext(r.Context())
			if !ok {
				handlers.WriteError(w, http.StatusUnauthorized, auth.ErrUnauthenticated.Error(), nil)
				return
			}
			if _, ok := allowed[sess.Role]; !ok {
				handlers.WriteError(w, http.StatusForbidden, "forbidden", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package admin

import (
	"net/http"

	"github.com/txn2/chessline/pkg/auth"
)

// RoleAdmin is the role required for the admin API.
const RoleAdmin = "admin"

// Authenticator validates admin credentials. A nil user with a nil error
// means the request carried no credentials.
type Authenticator interface {
	AuthenticateRequest(r *http.Request) (*auth.UserContext, error)
}

// RequireAdmin creates middleware that enforces admin authentication.
func RequireAdmin(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := authn.AuthenticateRequest(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid credentials")
				return
			}
			if user == nil {
				writeError(w, http.StatusUnauthorized, "authentication required")
				return
			}
			if !user.HasRole(RoleAdmin) {
				writeError(w, http.StatusForbidden, "admin role required")
				return
			}

			ctx := auth.WithUserContext(r.Context(), user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

package auth

import (
	"context"
	"net/http"

	"github.com/mind-engage/mindengage-classroom/internal/rbac"
)

// RoleLookup resolves the current role of a subject.
type RoleLookup interface {
	Role(ctx context.Context, sub string) (string, error)
}

// AttachRoleFromDB replaces the token's role with the one stored for the
// subject, so demotions take effect before the token expires.
// allowClaimFallback=true in offline mode; false online.
func AttachRoleFromDB(lookup RoleLookup, allowClaimFallback bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			sub := rbac.SubjectFromContext(ctx)
			claimRole := rbac.RoleFromContext(ctx) // set by JWTMiddleware

			role, err := lookup.Role(ctx, sub)
			switch {
			case err == nil && role != "":
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, role)))
			case allowClaimFallback && claimRole != "":
				// offline: trust the signed claim for unknown subjects or an unavailable store
				next.ServeHTTP(w, r)
			default:
				http.Error(w, "forbidden", http.StatusForbidden)
			}
		})
	}
}

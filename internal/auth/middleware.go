package auth

import (
	"net/http"
	"strings"

	"github.com/AdhamEssa01/accademy/internal/rbac"
	"github.com/AdhamEssa01/accademy/internal/tenant"
)

// JWTMiddleware parses the bearer token and attaches subject, role, and
// academy scope to the request context. Tokens without an academy id are
// rejected up front; every core operation requires tenant scope.
func JWTMiddleware(a *AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") {
				http.Error(w, "missing bearer", http.StatusUnauthorized)
				return
			}
			claims, err := a.Parse(strings.TrimPrefix(h, "Bearer "))
			if err != nil {
				http.Error(w, "bad token", http.StatusUnauthorized)
				return
			}
			if claims.AcademyID == "" {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			ctx := rbac.WithSubject(r.Context(), claims.Sub)
			ctx = rbac.WithRole(ctx, claims.Role)
			ctx = tenant.WithAcademy(ctx, claims.AcademyID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

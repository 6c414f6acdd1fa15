package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcdev12/quizrally/internal/auth"
	"github.com/mcdev12/quizrally/internal/common"
)

type contextKey string

const claimsContextKey contextKey = "claims"

// requireAuth validates the bearer token and stashes the claims in the
// request context.
func (a *API) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, common.ErrUnauthorized)
			return
		}

		claims, err := a.auth.Verify(token)
		if err != nil {
			writeError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), claimsContextKey, claims)
		next(w, r.WithContext(ctx))
	}
}

// claimsFrom returns the authenticated claims placed by requireAuth.
func claimsFrom(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(claimsContextKey).(*auth.Claims)
	return claims, ok
}

package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/dstepanov2008/shopauth/internal/server/auth"
	"github.com/go-chi/render"
)

type ctxKey string

const claimsKey ctxKey = "claims"

// withAuth requires a valid bearer token and stores its claims in the
// request context.
func (s *HTTPServer) withAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, Error("missing bearer token"))
			return
		}

		claims, err := s.identity.VerifyToken(token)
		if err != nil {
			s.renderError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// claimsFrom returns the verified claims placed by withAuth, or nil on
// routes outside the authenticated group.
func claimsFrom(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

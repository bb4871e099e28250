package authz

import (
	"net/http"

	"github.com/atriumhq/atrium-api/internal/apperr"
	"github.com/atriumhq/atrium-api/internal/models"
	"github.com/atriumhq/atrium-api/internal/response"
)

// RequireRole ensures the requester carries at least the required platform
// role tier. It assumes the session resolver already ran.
func RequireRole(required models.PlatformRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromRequest(r)
			if !ok {
				response.Err(w, r, apperr.New(apperr.KindUnauthenticated, "authentication required"))
				return
			}
			if !identity.Role.AtLeast(required) {
				response.Err(w, r, apperr.New(apperr.KindForbidden, "insufficient permissions"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/atriumhq/atrium-api/internal/apperr"
	"github.com/atriumhq/atrium-api/internal/authz"
	"github.com/atriumhq/atrium-api/internal/config"
	"github.com/atriumhq/atrium-api/internal/response"
)

// requireIdentity writes an unauthenticated envelope and returns false when
// no principal was resolved for the request.
func requireIdentity(w http.ResponseWriter, r *http.Request) (authz.Identity, bool) {
	identity, ok := authz.IdentityFromRequest(r)
	if !ok {
		response.Err(w, r, apperr.New(apperr.KindUnauthenticated, "authentication required"))
		return authz.Identity{}, false
	}
	return identity, true
}

// parsePagination reads page/limit query parameters, clamped to configured
// bounds.
func parsePagination(r *http.Request, cfg config.PaginationConfig) (page, limit int) {
	page = 1
	if raw := strings.TrimSpace(r.URL.Query().Get("page")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			page = parsed
		}
	}

	limit = cfg.DefaultLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > cfg.MaxLimit {
		limit = cfg.MaxLimit
	}
	return page, limit
}

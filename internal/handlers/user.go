package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/atriumhq/atrium-api/internal/activeorg"
	"github.com/atriumhq/atrium-api/internal/config"
	"github.com/atriumhq/atrium-api/internal/models"
	"github.com/atriumhq/atrium-api/internal/repository"
	"github.com/atriumhq/atrium-api/internal/response"
)

type UserHandler struct {
	orgRepo         repository.OrganizationRepository
	activeOrgCookie string
	paging          config.PaginationConfig
	logger          zerolog.Logger
}

func NewUserHandler(orgRepo repository.OrganizationRepository, activeOrgCookie string, paging config.PaginationConfig, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		orgRepo:         orgRepo,
		activeOrgCookie: activeOrgCookie,
		paging:          paging,
		logger:          logger.With().Str("handler", "user").Logger(),
	}
}

// MyOrganizations returns the caller's organizations along with the resolved
// active organization. Resolution precedence: session value, then the client
// cookie, then the first visible organization.
func (h *UserHandler) MyOrganizations(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	params := repository.ListOrganizationsParams{Page: 1, Limit: h.paging.MaxLimit, Sort: "created_at", Order: "asc"}
	if !identity.Role.AtLeast(models.PlatformRoleAdmin) {
		params.MemberUserID = identity.UserID
	}

	// The whole visible list feeds active-organization resolution, so page
	// through it rather than truncating at one batch.
	var visible []models.OrganizationSummary
	for {
		batch, total, err := h.orgRepo.ListOrganizations(params)
		if err != nil {
			response.Err(w, r, err)
			return
		}
		visible = append(visible, batch...)
		if len(batch) == 0 || len(visible) >= total {
			break
		}
		params.Page++
	}

	var cookieOrgID string
	if cookie, err := r.Cookie(h.activeOrgCookie); err == nil {
		cookieOrgID = cookie.Value
	}

	activeID, _ := activeorg.Resolve(identity.ActiveOrgID, cookieOrgID, visible)

	response.OK(w, r, map[string]interface{}{
		"organizations":          visible,
		"active_organization_id": activeID,
	})
}

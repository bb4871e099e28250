package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/atriumhq/atrium-api/internal/apperr"
	"github.com/atriumhq/atrium-api/internal/authz"
	"github.com/atriumhq/atrium-api/internal/config"
	"github.com/atriumhq/atrium-api/internal/models"
	"github.com/atriumhq/atrium-api/internal/policy"
	"github.com/atriumhq/atrium-api/internal/repository"
	"github.com/atriumhq/atrium-api/internal/response"
)

type OrganizationHandler struct {
	orgRepo        repository.OrganizationRepository
	membershipRepo repository.MembershipRepository
	paging         config.PaginationConfig
	logger         zerolog.Logger
}

func NewOrganizationHandler(orgRepo repository.OrganizationRepository, membershipRepo repository.MembershipRepository, paging config.PaginationConfig, logger zerolog.Logger) *OrganizationHandler {
	return &OrganizationHandler{
		orgRepo:        orgRepo,
		membershipRepo: membershipRepo,
		paging:         paging,
		logger:         logger.With().Str("handler", "organization").Logger(),
	}
}

type organizationPayload struct {
	Name     string          `json:"name"`
	Slug     string          `json:"slug"`
	Logo     *string         `json:"logo"`
	Metadata json.RawMessage `json:"metadata"`
}

func (p *organizationPayload) validate() error {
	p.Name = strings.TrimSpace(p.Name)
	p.Slug = strings.ToLower(strings.TrimSpace(p.Slug))
	if p.Name == "" {
		return apperr.New(apperr.KindValidation, "name is required")
	}
	if err := models.ValidateSlug(p.Slug); err != nil {
		return apperr.New(apperr.KindValidation, err.Error())
	}
	return nil
}

// memberRoleFor returns the caller's membership role in the organization,
// MemberRoleNone when there is none.
func (h *OrganizationHandler) memberRoleFor(identity authz.Identity, orgID string) (models.MemberRole, error) {
	return h.membershipRepo.GetRole(identity.UserID, orgID)
}

// visibleOrgRole resolves the caller's standing toward an organization for
// read paths. Non-privileged callers without a membership get NotFound, not
// Forbidden, so they cannot probe for existence.
func (h *OrganizationHandler) visibleOrgRole(identity authz.Identity, orgID string) (models.MemberRole, error) {
	role, err := h.memberRoleFor(identity, orgID)
	if err != nil {
		return models.MemberRoleNone, err
	}
	if role == models.MemberRoleNone && !identity.Role.AtLeast(models.PlatformRoleAdmin) {
		return models.MemberRoleNone, apperr.New(apperr.KindNotFound, "organization not found")
	}
	return role, nil
}

func (h *OrganizationHandler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if !policy.Allow(identity.Role, models.MemberRoleNone, policy.OpOrganizationCreate) {
		response.Err(w, r, apperr.New(apperr.KindForbidden, "insufficient permissions"))
		return
	}

	var payload organizationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.Err(w, r, apperr.New(apperr.KindValidation, "invalid request payload"))
		return
	}
	if err := payload.validate(); err != nil {
		response.Err(w, r, err)
		return
	}

	// Regular users get one organization for life; admins are uncapped.
	if !identity.Role.AtLeast(models.PlatformRoleAdmin) {
		count, err := h.membershipRepo.CountMembershipsOfUser(identity.UserID)
		if err != nil {
			response.Err(w, r, err)
			return
		}
		if count > 0 {
			response.Err(w, r, apperr.New(apperr.KindLimitExceeded, "organization limit reached"))
			return
		}
	}

	org, err := h.orgRepo.CreateOrganizationWithOwner(payload.Name, payload.Slug, payload.Logo, payload.Metadata, identity.UserID)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	h.logger.Info().Str("organization_id", org.ID).Str("user_id", identity.UserID).Msg("organization created")

	response.Created(w, r, models.OrganizationSummary{
		Organization: org,
		Role:         models.MemberRoleOwner,
		MemberCount:  1,
	})
}

func (h *OrganizationHandler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}

	page, limit := parsePagination(r, h.paging)
	params := repository.ListOrganizationsParams{
		Page:   page,
		Limit:  limit,
		Search: strings.TrimSpace(r.URL.Query().Get("search")),
		Sort:   strings.TrimSpace(r.URL.Query().Get("sort")),
		Order:  strings.TrimSpace(r.URL.Query().Get("order")),
	}
	if !identity.Role.AtLeast(models.PlatformRoleAdmin) {
		params.MemberUserID = identity.UserID
	}

	summaries, total, err := h.orgRepo.ListOrganizations(params)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	response.Paged(w, r, summaries, response.NewPaging(page, limit, total))
}

func (h *OrganizationHandler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	orgID := mux.Vars(r)["orgID"]

	role, err := h.visibleOrgRole(identity, orgID)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	org, err := h.orgRepo.GetOrganizationByID(orgID)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	count, err := h.membershipRepo.CountMembers(orgID)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	if role == models.MemberRoleNone {
		// Platform admin without a membership row: synthetic admin tag.
		role = models.MemberRoleAdmin
	}
	response.OK(w, r, models.OrganizationSummary{
		Organization: org,
		Role:         role,
		MemberCount:  count,
	})
}

func (h *OrganizationHandler) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	orgID := mux.Vars(r)["orgID"]

	role, err := h.visibleOrgRole(identity, orgID)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	if !policy.Allow(identity.Role, role, policy.OpOrganizationUpdate) {
		response.Err(w, r, apperr.New(apperr.KindForbidden, "insufficient permissions"))
		return
	}

	var payload organizationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.Err(w, r, apperr.New(apperr.KindValidation, "invalid request payload"))
		return
	}
	if err := payload.validate(); err != nil {
		response.Err(w, r, err)
		return
	}

	org, err := h.orgRepo.UpdateOrganization(orgID, payload.Name, payload.Slug, payload.Logo, payload.Metadata)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	response.OK(w, r, org)
}

func (h *OrganizationHandler) DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	orgID := mux.Vars(r)["orgID"]

	if _, err := h.visibleOrgRole(identity, orgID); err != nil {
		response.Err(w, r, err)
		return
	}
	// Deletion is reserved for platform admins; organization owners see a
	// Forbidden, non-members see the NotFound from the visibility check.
	if !policy.Allow(identity.Role, models.MemberRoleNone, policy.OpOrganizationDelete) {
		response.Err(w, r, apperr.New(apperr.KindForbidden, "insufficient permissions"))
		return
	}

	if err := h.orgRepo.DeleteOrganization(orgID); err != nil {
		response.Err(w, r, err)
		return
	}

	h.logger.Info().Str("organization_id", orgID).Str("user_id", identity.UserID).Msg("organization deleted")
	response.OK(w, r, nil)
}

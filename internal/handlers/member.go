package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/atriumhq/atrium-api/internal/apperr"
	"github.com/atriumhq/atrium-api/internal/authz"
	"github.com/atriumhq/atrium-api/internal/models"
	"github.com/atriumhq/atrium-api/internal/policy"
	"github.com/atriumhq/atrium-api/internal/repository"
	"github.com/atriumhq/atrium-api/internal/response"
)

type MemberHandler struct {
	membershipRepo repository.MembershipRepository
	logger         zerolog.Logger
}

func NewMemberHandler(membershipRepo repository.MembershipRepository, logger zerolog.Logger) *MemberHandler {
	return &MemberHandler{
		membershipRepo: membershipRepo,
		logger:         logger.With().Str("handler", "member").Logger(),
	}
}

func (h *MemberHandler) visibleOrgRole(identity authz.Identity, orgID string) (models.MemberRole, error) {
	role, err := h.membershipRepo.GetRole(identity.UserID, orgID)
	if err != nil {
		return models.MemberRoleNone, err
	}
	if role == models.MemberRoleNone && !identity.Role.AtLeast(models.PlatformRoleAdmin) {
		return models.MemberRoleNone, apperr.New(apperr.KindNotFound, "organization not found")
	}
	return role, nil
}

func (h *MemberHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
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
	if !policy.Allow(identity.Role, role, policy.OpMemberList) {
		response.Err(w, r, apperr.New(apperr.KindForbidden, "insufficient permissions"))
		return
	}

	members, err := h.membershipRepo.ListMembers(orgID)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	response.OK(w, r, members)
}

// loadTargetMembership fetches the target membership and ensures it belongs
// to the organization named in the route; a membership id from another
// organization is indistinguishable from a missing one.
func (h *MemberHandler) loadTargetMembership(orgID, membershipID string) (models.Membership, error) {
	membership, err := h.membershipRepo.GetMembershipByID(membershipID)
	if err != nil {
		return models.Membership{}, err
	}
	if membership.OrganizationID != orgID {
		return models.Membership{}, apperr.New(apperr.KindNotFound, "membership not found")
	}
	return membership, nil
}

func (h *MemberHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	orgID := vars["orgID"]
	membershipID := vars["memberID"]

	role, err := h.visibleOrgRole(identity, orgID)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	if !policy.Allow(identity.Role, role, policy.OpMemberRemove) {
		response.Err(w, r, apperr.New(apperr.KindForbidden, "insufficient permissions"))
		return
	}

	if _, err := h.loadTargetMembership(orgID, membershipID); err != nil {
		response.Err(w, r, err)
		return
	}

	if err := h.membershipRepo.RemoveMember(membershipID); err != nil {
		response.Err(w, r, err)
		return
	}

	h.logger.Info().Str("membership_id", membershipID).Str("organization_id", orgID).Str("removed_by", identity.UserID).Msg("member removed")
	response.OK(w, r, nil)
}

func (h *MemberHandler) UpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)
	orgID := vars["orgID"]
	membershipID := vars["memberID"]

	role, err := h.visibleOrgRole(identity, orgID)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	if !policy.Allow(identity.Role, role, policy.OpMemberRoleUpdate) {
		response.Err(w, r, apperr.New(apperr.KindForbidden, "insufficient permissions"))
		return
	}

	var payload struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.Err(w, r, apperr.New(apperr.KindValidation, "invalid request payload"))
		return
	}
	newRole, err := models.ParseMemberRole(payload.Role)
	if err != nil {
		response.Err(w, r, apperr.New(apperr.KindValidation, err.Error()))
		return
	}

	if _, err := h.loadTargetMembership(orgID, membershipID); err != nil {
		response.Err(w, r, err)
		return
	}

	updated, err := h.membershipRepo.UpdateMemberRole(membershipID, newRole)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	response.OK(w, r, updated)
}

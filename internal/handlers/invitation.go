package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/atriumhq/atrium-api/internal/apperr"
	"github.com/atriumhq/atrium-api/internal/authz"
	"github.com/atriumhq/atrium-api/internal/models"
	"github.com/atriumhq/atrium-api/internal/notification"
	"github.com/atriumhq/atrium-api/internal/policy"
	"github.com/atriumhq/atrium-api/internal/repository"
	"github.com/atriumhq/atrium-api/internal/response"
)

type InvitationHandler struct {
	invitationRepo repository.InvitationRepository
	membershipRepo repository.MembershipRepository
	orgRepo        repository.OrganizationRepository
	mailer         notification.InviteMailer
	urlTpl         string
	logger         zerolog.Logger
}

func NewInvitationHandler(
	invitationRepo repository.InvitationRepository,
	membershipRepo repository.MembershipRepository,
	orgRepo repository.OrganizationRepository,
	mailer notification.InviteMailer,
	inviteURLTemplate string,
	logger zerolog.Logger,
) *InvitationHandler {
	return &InvitationHandler{
		invitationRepo: invitationRepo,
		membershipRepo: membershipRepo,
		orgRepo:        orgRepo,
		mailer:         mailer,
		urlTpl:         inviteURLTemplate,
		logger:         logger.With().Str("handler", "invitation").Logger(),
	}
}

func (h *InvitationHandler) visibleOrgRole(identity authz.Identity, orgID string) (models.MemberRole, error) {
	role, err := h.membershipRepo.GetRole(identity.UserID, orgID)
	if err != nil {
		return models.MemberRoleNone, err
	}
	if role == models.MemberRoleNone && !identity.Role.AtLeast(models.PlatformRoleAdmin) {
		return models.MemberRoleNone, apperr.New(apperr.KindNotFound, "organization not found")
	}
	return role, nil
}

type createInvitationRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (h *InvitationHandler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	orgID := mux.Vars(r)["orgID"]

	memberRole, err := h.visibleOrgRole(identity, orgID)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	if !policy.Allow(identity.Role, memberRole, policy.OpInvitationCreate) {
		response.Err(w, r, apperr.New(apperr.KindForbidden, "insufficient permissions"))
		return
	}

	org, err := h.orgRepo.GetOrganizationByID(orgID)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	var req createInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, r, apperr.New(apperr.KindValidation, "invalid request payload"))
		return
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		response.Err(w, r, apperr.New(apperr.KindValidation, "email is required"))
		return
	}

	role := models.MemberRoleMember
	if req.Role != "" {
		role, err = models.ParseMemberRole(req.Role)
		if err != nil {
			response.Err(w, r, apperr.New(apperr.KindValidation, err.Error()))
			return
		}
	}

	isMember, err := h.membershipRepo.HasMemberWithEmail(orgID, email)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	if isMember {
		response.Err(w, r, apperr.New(apperr.KindConflict, "user is already a member of this organization"))
		return
	}

	expiresAt := time.Now().Add(models.DefaultInvitationTTL)
	invitation, err := h.invitationRepo.CreateInvitation(orgID, email, role, identity.UserID, expiresAt)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	// The invitation row is the durable fact; email delivery is best-effort
	// and never fails the request.
	inviteURL := fmt.Sprintf(h.urlTpl, invitation.ID)
	if err := h.mailer.SendInvite(invitation.Email, org.Name, inviteURL); err != nil {
		h.logger.Error().Err(err).Str("invitation_id", invitation.ID).Str("email", invitation.Email).Msg("failed to send invitation email")
	}

	response.Created(w, r, invitation)
}

func (h *InvitationHandler) ListInvitations(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	orgID := mux.Vars(r)["orgID"]

	memberRole, err := h.visibleOrgRole(identity, orgID)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	if !policy.Allow(identity.Role, memberRole, policy.OpInvitationList) {
		response.Err(w, r, apperr.New(apperr.KindForbidden, "insufficient permissions"))
		return
	}

	invitations, err := h.invitationRepo.ListInvitationsByOrganization(orgID)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	now := time.Now()
	for i := range invitations {
		invitations[i].Status = models.DeriveInvitationStatus(invitations[i].Invitation, now, invitations[i].HasMembership)
	}

	response.OK(w, r, invitations)
}

func (h *InvitationHandler) CancelInvitation(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	invitationID := mux.Vars(r)["invitationID"]

	detail, err := h.invitationRepo.GetInvitationDetail(invitationID)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	memberRole, err := h.membershipRepo.GetRole(identity.UserID, detail.OrganizationID)
	if err != nil {
		response.Err(w, r, err)
		return
	}
	if !policy.Allow(identity.Role, memberRole, policy.OpInvitationCancel) {
		response.Err(w, r, apperr.New(apperr.KindForbidden, "insufficient permissions"))
		return
	}

	effective := models.DeriveInvitationStatus(detail.Invitation, time.Now(), detail.HasMembership)
	if effective != models.InvitationStatusPending {
		response.Err(w, r, apperr.New(apperr.KindInvalidState, "only pending invitations can be cancelled"))
		return
	}

	if err := h.invitationRepo.CancelInvitation(invitationID); err != nil {
		response.Err(w, r, err)
		return
	}

	h.logger.Info().Str("invitation_id", invitationID).Str("cancelled_by", identity.UserID).Msg("invitation cancelled")
	response.OK(w, r, nil)
}

// GetInvitationStatus is the public, unauthenticated capability lookup: the
// invitation id is the token. It reports the effective status alongside the
// organization and inviter display fields.
func (h *InvitationHandler) GetInvitationStatus(w http.ResponseWriter, r *http.Request) {
	invitationID := mux.Vars(r)["invitationID"]

	detail, err := h.invitationRepo.GetInvitationDetail(invitationID)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	detail.Status = models.DeriveInvitationStatus(detail.Invitation, time.Now(), detail.HasMembership)
	response.OK(w, r, detail)
}

func (h *InvitationHandler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	invitationID := mux.Vars(r)["invitationID"]

	singleOrgCap := !identity.Role.AtLeast(models.PlatformRoleAdmin)
	membership, err := h.invitationRepo.AcceptInvitation(invitationID, identity.UserID, identity.Email, singleOrgCap)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	h.logger.Info().Str("invitation_id", invitationID).Str("user_id", identity.UserID).Msg("invitation accepted")
	response.OK(w, r, membership)
}

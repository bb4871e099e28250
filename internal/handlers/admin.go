package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/atriumhq/atrium-api/internal/apperr"
	"github.com/atriumhq/atrium-api/internal/config"
	"github.com/atriumhq/atrium-api/internal/models"
	"github.com/atriumhq/atrium-api/internal/policy"
	"github.com/atriumhq/atrium-api/internal/repository"
	"github.com/atriumhq/atrium-api/internal/response"
)

// AdminHandler covers the platform-administration surface: user listing, role
// changes, bans and deletion. Routes are additionally gated by
// authz.RequireRole(admin); the per-operation policy checks here cover what
// the blanket gate cannot, like reserving superadmin grants.
type AdminHandler struct {
	userRepo repository.UserRepository
	paging   config.PaginationConfig
	logger   zerolog.Logger
}

func NewAdminHandler(userRepo repository.UserRepository, paging config.PaginationConfig, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		userRepo: userRepo,
		paging:   paging,
		logger:   logger.With().Str("handler", "admin").Logger(),
	}
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	if !policy.Allow(identity.Role, models.MemberRoleNone, policy.OpUserList) {
		response.Err(w, r, apperr.New(apperr.KindForbidden, "insufficient permissions"))
		return
	}

	page, limit := parsePagination(r, h.paging)
	users, total, err := h.userRepo.ListUsers(page, limit)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	response.Paged(w, r, users, response.NewPaging(page, limit, total))
}

func (h *AdminHandler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	userID := mux.Vars(r)["userID"]

	var payload struct {
		Role string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		response.Err(w, r, apperr.New(apperr.KindValidation, "invalid request payload"))
		return
	}
	role, err := models.ParsePlatformRole(payload.Role)
	if err != nil {
		response.Err(w, r, apperr.New(apperr.KindValidation, err.Error()))
		return
	}

	op := policy.OpUserRoleUpdate
	if role == models.PlatformRoleSuperadmin {
		op = policy.OpGrantSuperadmin
	}
	if !policy.Allow(identity.Role, models.MemberRoleNone, op) {
		response.Err(w, r, apperr.New(apperr.KindForbidden, "insufficient permissions"))
		return
	}

	user, err := h.userRepo.UpdateUserRole(userID, role)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	h.logger.Info().Str("user_id", userID).Str("role", string(role)).Str("changed_by", identity.UserID).Msg("platform role updated")
	response.OK(w, r, user)
}

type banRequest struct {
	Reason       string `json:"reason"`
	ExpiresHours *int   `json:"expires_in_hours"`
}

func (h *AdminHandler) BanUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	userID := mux.Vars(r)["userID"]

	if !policy.Allow(identity.Role, models.MemberRoleNone, policy.OpUserBan) {
		response.Err(w, r, apperr.New(apperr.KindForbidden, "insufficient permissions"))
		return
	}
	if userID == identity.UserID {
		response.Err(w, r, apperr.New(apperr.KindInvalidState, "cannot ban yourself"))
		return
	}

	var req banRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, r, apperr.New(apperr.KindValidation, "invalid request payload"))
		return
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if req.Reason == "" {
		response.Err(w, r, apperr.New(apperr.KindValidation, "reason is required"))
		return
	}

	var expires *time.Time
	if req.ExpiresHours != nil {
		if *req.ExpiresHours <= 0 {
			response.Err(w, r, apperr.New(apperr.KindValidation, "expires_in_hours must be positive"))
			return
		}
		t := time.Now().Add(time.Duration(*req.ExpiresHours) * time.Hour)
		expires = &t
	}

	user, err := h.userRepo.BanUser(userID, req.Reason, expires)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	h.logger.Info().Str("user_id", userID).Str("banned_by", identity.UserID).Msg("user banned")
	response.OK(w, r, user)
}

func (h *AdminHandler) UnbanUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	userID := mux.Vars(r)["userID"]

	if !policy.Allow(identity.Role, models.MemberRoleNone, policy.OpUserBan) {
		response.Err(w, r, apperr.New(apperr.KindForbidden, "insufficient permissions"))
		return
	}

	user, err := h.userRepo.UnbanUser(userID)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	response.OK(w, r, user)
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := requireIdentity(w, r)
	if !ok {
		return
	}
	userID := mux.Vars(r)["userID"]

	if !policy.Allow(identity.Role, models.MemberRoleNone, policy.OpUserDelete) {
		response.Err(w, r, apperr.New(apperr.KindForbidden, "insufficient permissions"))
		return
	}
	if userID == identity.UserID {
		response.Err(w, r, apperr.New(apperr.KindInvalidState, "cannot delete yourself"))
		return
	}

	if err := h.userRepo.DeleteUser(userID); err != nil {
		response.Err(w, r, err)
		return
	}

	h.logger.Info().Str("user_id", userID).Str("deleted_by", identity.UserID).Msg("user deleted")
	response.OK(w, r, nil)
}

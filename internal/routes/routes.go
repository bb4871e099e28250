package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/atriumhq/atrium-api/internal/authz"
	"github.com/atriumhq/atrium-api/internal/handlers"
	"github.com/atriumhq/atrium-api/internal/models"
)

// NewRouter wires every endpoint. Everything under /api except auth, health
// and the public invitation status lookup runs behind the session resolver.
func NewRouter(
	auth *handlers.AuthHandler,
	org *handlers.OrganizationHandler,
	member *handlers.MemberHandler,
	invitation *handlers.InvitationHandler,
	user *handlers.UserHandler,
	admin *handlers.AdminHandler,
) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	// Public auth endpoints
	router.HandleFunc("/api/auth/signup", auth.SignUp).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", auth.Login).Methods(http.MethodPost)

	// Public capability-token lookup: the invitation id is the credential.
	router.HandleFunc("/api/invitations/{invitationID}", invitation.GetInvitationStatus).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(auth.Middleware)

	api.HandleFunc("/organizations", org.CreateOrganization).Methods(http.MethodPost)
	api.HandleFunc("/organizations", org.ListOrganizations).Methods(http.MethodGet)
	api.HandleFunc("/organizations/{orgID}", org.GetOrganization).Methods(http.MethodGet)
	api.HandleFunc("/organizations/{orgID}", org.UpdateOrganization).Methods(http.MethodPut)
	api.HandleFunc("/organizations/{orgID}", org.DeleteOrganization).Methods(http.MethodDelete)

	api.HandleFunc("/organizations/{orgID}/members", member.ListMembers).Methods(http.MethodGet)
	api.HandleFunc("/organizations/{orgID}/members/{memberID}", member.RemoveMember).Methods(http.MethodDelete)
	api.HandleFunc("/organizations/{orgID}/members/{memberID}/role", member.UpdateMemberRole).Methods(http.MethodPut)

	api.HandleFunc("/organizations/{orgID}/invitations", invitation.ListInvitations).Methods(http.MethodGet)
	api.HandleFunc("/organizations/{orgID}/invite", invitation.CreateInvitation).Methods(http.MethodPost)
	api.HandleFunc("/invitations/{invitationID}", invitation.CancelInvitation).Methods(http.MethodDelete)
	api.HandleFunc("/invitations/{invitationID}/accept", invitation.AcceptInvitation).Methods(http.MethodPost)

	api.HandleFunc("/users/organizations", user.MyOrganizations).Methods(http.MethodGet)

	adminRouter := api.PathPrefix("/admin").Subrouter()
	adminRouter.Use(authz.RequireRole(models.PlatformRoleAdmin))
	adminRouter.HandleFunc("/users", admin.ListUsers).Methods(http.MethodGet)
	adminRouter.HandleFunc("/users/{userID}/role", admin.UpdateUserRole).Methods(http.MethodPut)
	adminRouter.HandleFunc("/users/{userID}/ban", admin.BanUser).Methods(http.MethodPost)
	adminRouter.HandleFunc("/users/{userID}/ban", admin.UnbanUser).Methods(http.MethodDelete)
	adminRouter.HandleFunc("/users/{userID}", admin.DeleteUser).Methods(http.MethodDelete)

	return router
}

package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rs/zerolog"

	"github.com/atriumhq/atrium-api/internal/apperr"
	"github.com/atriumhq/atrium-api/internal/authz"
	"github.com/atriumhq/atrium-api/internal/models"
	"github.com/atriumhq/atrium-api/internal/repository"
	"github.com/atriumhq/atrium-api/internal/response"
)

const tokenTTL = 24 * time.Hour

// AuthHandler owns sign-up, login and the session resolver middleware. The
// middleware re-reads the user on every request so role changes and bans take
// effect immediately, not at next token issuance.
type AuthHandler struct {
	userRepo  repository.UserRepository
	jwtSecret string
	logger    zerolog.Logger
}

func NewAuthHandler(userRepo repository.UserRepository, jwtSecret string, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
		logger:    logger.With().Str("handler", "auth").Logger(),
	}
}

type signupRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`

	// ActiveOrganizationID optionally seeds the session's active-organization
	// pointer; it is validated against the user's actual memberships at read
	// time, so a bogus value is harmless.
	ActiveOrganizationID string `json:"active_organization_id"`
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, r, apperr.New(apperr.KindValidation, "invalid request payload"))
		return
	}

	user, err := h.userRepo.CreateUser(req.Email, req.Name, req.Password, models.PlatformRoleUser)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	response.Created(w, r, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Err(w, r, apperr.New(apperr.KindValidation, "invalid request payload"))
		return
	}

	user, err := h.userRepo.AuthenticateUser(req.Email, req.Password)
	if err != nil {
		response.Err(w, r, err)
		return
	}

	if user.IsBanned(time.Now()) {
		response.Err(w, r, apperr.New(apperr.KindUnauthenticated, "account is banned"))
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"role":  string(user.Role),
		"org":   strings.TrimSpace(req.ActiveOrganizationID),
		"exp":   time.Now().Add(tokenTTL).Unix(),
	})
	tokenString, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		response.Err(w, r, apperr.Wrap(err, apperr.KindInternal, "failed to generate token"))
		return
	}

	response.OK(w, r, map[string]interface{}{
		"token": tokenString,
		"user":  user,
	})
}

// Middleware is the session resolver: it turns a bearer token into an
// authz.Identity on the request context. The platform role comes from the
// stored user, never the token, and a banned or deleted user resolves to no
// identity at all.
func (h *AuthHandler) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if auth == "" {
			response.Err(w, r, apperr.New(apperr.KindUnauthenticated, "authorization header required"))
			return
		}
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Err(w, r, apperr.New(apperr.KindUnauthenticated, "invalid authorization format"))
			return
		}

		token, err := jwt.Parse(parts[1], func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(h.jwtSecret), nil
		})
		if err != nil || !token.Valid {
			response.Err(w, r, apperr.New(apperr.KindUnauthenticated, "invalid token"))
			return
		}
		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !claims.VerifyExpiresAt(time.Now().Unix(), true) {
			response.Err(w, r, apperr.New(apperr.KindUnauthenticated, "token expired"))
			return
		}

		userID, _ := claims["sub"].(string)
		if userID == "" {
			response.Err(w, r, apperr.New(apperr.KindUnauthenticated, "missing token claim"))
			return
		}

		user, err := h.userRepo.GetUserByID(userID)
		if err != nil {
			response.Err(w, r, apperr.New(apperr.KindUnauthenticated, "authentication required"))
			return
		}
		if user.IsBanned(time.Now()) {
			response.Err(w, r, apperr.New(apperr.KindUnauthenticated, "account is banned"))
			return
		}

		activeOrgID, _ := claims["org"].(string)
		identity := authz.Identity{
			UserID:      user.ID,
			Email:       user.Email,
			Role:        user.Role,
			ActiveOrgID: activeOrgID,
		}
		next.ServeHTTP(w, r.WithContext(authz.WithIdentity(r.Context(), identity)))
	})
}

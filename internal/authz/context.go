// Package authz carries the resolved principal on the request context and
// provides role-gating middleware. A request either has a full Identity or it
// has none; banned users are filtered out by the session resolver before an
// Identity is ever attached.
package authz

import (
	"context"
	"net/http"

	"github.com/atriumhq/atrium-api/internal/models"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated principal for one request: who they are,
// their platform role, and the organization the session says they are
// currently acting as (may be empty).
type Identity struct {
	UserID      string
	Email       string
	Role        models.PlatformRole
	ActiveOrgID string
}

// WithIdentity stores the principal on the context.
func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromRequest extracts the principal, if one was resolved.
func IdentityFromRequest(r *http.Request) (Identity, bool) {
	identity, ok := r.Context().Value(identityKey).(Identity)
	if !ok || identity.UserID == "" || !identity.Role.IsValid() {
		return Identity{}, false
	}
	return identity, true
}

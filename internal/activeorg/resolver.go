// Package activeorg resolves which organization a multi-org principal is
// currently acting as. The value lives redundantly in the session and a
// client cookie; resolution is a pure function over both optional inputs plus
// the list of organizations the principal can actually see, with precedence
// session, then cookie, then first visible organization.
package activeorg

import "github.com/atriumhq/atrium-api/internal/models"

// Resolve picks the active organization id. Candidates that do not appear in
// the visible list are ignored, so a stale cookie or session value can never
// point a principal at an organization it cannot see.
func Resolve(sessionOrgID, cookieOrgID string, visible []models.OrganizationSummary) (string, bool) {
	if contains(visible, sessionOrgID) {
		return sessionOrgID, true
	}
	if contains(visible, cookieOrgID) {
		return cookieOrgID, true
	}
	if len(visible) > 0 {
		return visible[0].ID, true
	}
	return "", false
}

func contains(orgs []models.OrganizationSummary, id string) bool {
	if id == "" {
		return false
	}
	for _, org := range orgs {
		if org.ID == id {
			return true
		}
	}
	return false
}

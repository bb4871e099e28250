package models

import (
	"encoding/json"
	"fmt"
	"regexp"
	"time"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type Organization struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Slug      string          `json:"slug"`
	Logo      *string         `json:"logo,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// OrganizationSummary is a listing row annotated with the caller's
// relationship to the organization. Platform admins are tagged with a
// synthetic "admin" role; regular users carry their actual membership role.
type OrganizationSummary struct {
	Organization
	Role        MemberRole `json:"role"`
	MemberCount int        `json:"member_count"`
}

// ValidateSlug checks the URL-safe slug shape shared by create and update.
func ValidateSlug(slug string) error {
	if slug == "" {
		return fmt.Errorf("slug is required")
	}
	if len(slug) > 64 {
		return fmt.Errorf("slug must be at most 64 characters")
	}
	if !slugPattern.MatchString(slug) {
		return fmt.Errorf("slug must contain only lowercase letters, digits and hyphens")
	}
	return nil
}

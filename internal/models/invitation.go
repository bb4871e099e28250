package models

import (
	"fmt"
	"strings"
	"time"
)

// DefaultInvitationTTL is how long an invitation stays actionable.
const DefaultInvitationTTL = 7 * 24 * time.Hour

type InvitationStatus string

const (
	InvitationStatusPending   InvitationStatus = "pending"
	InvitationStatusAccepted  InvitationStatus = "accepted"
	InvitationStatusExpired   InvitationStatus = "expired"
	InvitationStatusCancelled InvitationStatus = "cancelled"
)

// ParseInvitationStatus validates a raw status string.
func ParseInvitationStatus(raw string) (InvitationStatus, error) {
	status := InvitationStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch status {
	case InvitationStatusPending, InvitationStatusAccepted,
		InvitationStatusExpired, InvitationStatusCancelled:
		return status, nil
	}
	return "", fmt.Errorf("unknown invitation status %q", raw)
}

// Invitation is a time-boxed, revocable offer for an email address to join an
// organization at a given membership role. Status holds the stored state;
// EffectiveStatus is what callers should report.
type Invitation struct {
	ID             string           `json:"id"`
	OrganizationID string           `json:"organization_id"`
	Email          string           `json:"email"`
	Role           MemberRole       `json:"role"`
	Status         InvitationStatus `json:"status"`
	ExpiresAt      time.Time        `json:"expires_at"`
	InviterID      string           `json:"inviter_id"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// IsExpired reports whether the invitation's deadline has passed.
func (i Invitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// InvitationDetail is an invitation joined with inviter and organization
// display fields. The public status lookup and the per-organization listing
// both return this shape; Status carries the effective (derived) status.
type InvitationDetail struct {
	Invitation
	InviterName      string `json:"inviter_name"`
	InviterEmail     string `json:"inviter_email"`
	OrganizationName string `json:"organization_name"`
	OrganizationSlug string `json:"organization_slug"`

	// HasMembership records whether the invited email already holds a
	// membership in the organization at read time. It feeds
	// DeriveInvitationStatus and is never serialized.
	HasMembership bool `json:"-"`
}

// DeriveInvitationStatus computes the effective status of an invitation
// without a stored transition. A pending invitation whose email already holds
// a membership in the organization reads as accepted; a pending invitation
// past its deadline reads as expired. Acceptance wins over expiry: once the
// invitee is a member, the invitation did its job.
func DeriveInvitationStatus(inv Invitation, now time.Time, hasMembership bool) InvitationStatus {
	if inv.Status != InvitationStatusPending {
		return inv.Status
	}
	if hasMembership {
		return InvitationStatusAccepted
	}
	if inv.IsExpired(now) {
		return InvitationStatusExpired
	}
	return InvitationStatusPending
}

package models

import (
	"fmt"
	"strings"
	"time"
)

// MemberRole is a user's authority scoped to one organization.
type MemberRole string

const (
	MemberRoleOwner  MemberRole = "owner"
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleMember MemberRole = "member"

	// MemberRoleNone marks the absence of a membership; it is a policy
	// evaluator input, never a stored value.
	MemberRoleNone MemberRole = "none"
)

var memberRoleTier = map[MemberRole]int{
	MemberRoleMember: 1,
	MemberRoleAdmin:  2,
	MemberRoleOwner:  3,
}

// ParseMemberRole validates a raw membership role string.
func ParseMemberRole(raw string) (MemberRole, error) {
	role := MemberRole(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := memberRoleTier[role]; !ok {
		return "", fmt.Errorf("unknown member role %q", raw)
	}
	return role, nil
}

// AtLeast reports whether the role meets or exceeds the required tier within
// an organization. MemberRoleNone never satisfies any requirement.
func (r MemberRole) AtLeast(required MemberRole) bool {
	tier, ok := memberRoleTier[r]
	if !ok {
		return false
	}
	return tier >= memberRoleTier[required]
}

type Membership struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	UserID         string     `json:"user_id"`
	Role           MemberRole `json:"role"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Member is a membership row joined with user display fields for listing.
type Member struct {
	Membership
	UserName  string `json:"user_name"`
	UserEmail string `json:"user_email"`
}

package models

import (
	"fmt"
	"strings"
	"time"
)

// PlatformRole is a user's global authority, independent of any organization.
type PlatformRole string

const (
	PlatformRoleUser       PlatformRole = "user"
	PlatformRoleAdmin      PlatformRole = "admin"
	PlatformRoleSuperadmin PlatformRole = "superadmin"
)

var platformRoleTier = map[PlatformRole]int{
	PlatformRoleUser:       1,
	PlatformRoleAdmin:      2,
	PlatformRoleSuperadmin: 3,
}

// ParsePlatformRole validates a raw role string. Unknown values are an error,
// never a silent fallback.
func ParsePlatformRole(raw string) (PlatformRole, error) {
	role := PlatformRole(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := platformRoleTier[role]; !ok {
		return "", fmt.Errorf("unknown platform role %q", raw)
	}
	return role, nil
}

// AtLeast reports whether the role meets or exceeds the required tier.
func (r PlatformRole) AtLeast(required PlatformRole) bool {
	return platformRoleTier[r] >= platformRoleTier[required]
}

// IsValid reports whether the role is one of the known platform roles.
func (r PlatformRole) IsValid() bool {
	_, ok := platformRoleTier[r]
	return ok
}

type User struct {
	ID           string       `json:"id"`
	Email        string       `json:"email"`
	Name         string       `json:"name"`
	PasswordHash string       `json:"-"`
	Role         PlatformRole `json:"role"`
	Banned       bool         `json:"banned"`
	BanReason    *string      `json:"ban_reason,omitempty"`
	BanExpires   *time.Time   `json:"ban_expires,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// IsBanned reports whether the user is under an active ban. A ban with no
// expiry is permanent; an expired ban no longer applies. An actively banned
// user is treated as unauthenticated everywhere, regardless of platform role.
func (u User) IsBanned(now time.Time) bool {
	if !u.Banned {
		return false
	}
	if u.BanExpires == nil {
		return true
	}
	return now.Before(*u.BanExpires)
}

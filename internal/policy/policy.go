// Package policy is the central yes/no decision point for "can this principal
// perform this operation". It is a pure function over the principal's platform
// role and, for organization-scoped operations, the principal's membership
// role in the target organization. Banned principals must be rejected before
// evaluation; see authz.
package policy

import "github.com/atriumhq/atrium-api/internal/models"

// Operation names every verb the API gates. Organization-scoped operations
// consult the membership role; platform operations ignore it.
type Operation string

const (
	OpOrganizationCreate Operation = "organization:create"
	OpOrganizationRead   Operation = "organization:read"
	OpOrganizationList   Operation = "organization:list"
	OpOrganizationUpdate Operation = "organization:update"
	OpOrganizationDelete Operation = "organization:delete"

	OpMemberList       Operation = "member:list"
	OpMemberRemove     Operation = "member:remove"
	OpMemberRoleUpdate Operation = "member:role_update"

	OpInvitationCreate Operation = "invitation:create"
	OpInvitationCancel Operation = "invitation:cancel"
	OpInvitationList   Operation = "invitation:list"

	OpUserList        Operation = "user:list"
	OpUserRoleUpdate  Operation = "user:role_update"
	OpUserBan         Operation = "user:ban"
	OpUserDelete      Operation = "user:delete"
	OpGrantSuperadmin Operation = "user:grant_superadmin"
)

// orgWriteOps need owner or admin standing within the target organization.
var orgWriteOps = map[Operation]bool{
	OpOrganizationUpdate: true,
	OpMemberRemove:       true,
	OpMemberRoleUpdate:   true,
	OpInvitationCreate:   true,
	OpInvitationCancel:   true,
}

// orgReadOps are satisfied by any membership in the target organization.
var orgReadOps = map[Operation]bool{
	OpOrganizationRead: true,
	OpMemberList:       true,
	OpInvitationList:   true,
}

// Allow decides whether a principal with the given platform role and
// membership role (MemberRoleNone when the principal has no membership in the
// target organization, or the operation is not organization-scoped) may
// perform the operation. Decision precedence, first match wins:
//
//  1. superadmin: everything.
//  2. admin: all organization management, but nothing reserved for
//     superadmin (granting the superadmin role).
//  3. owner/admin of the target organization: organization-scoped writes.
//  4. any member of the target organization: organization-scoped reads.
//  5. plain user: creating an organization (the one-org cap is enforced by
//     the directory, not here) and listing their own organizations.
//  6. deny.
func Allow(platform models.PlatformRole, member models.MemberRole, op Operation) bool {
	if platform == models.PlatformRoleSuperadmin {
		return true
	}
	if platform == models.PlatformRoleAdmin {
		return op != OpGrantSuperadmin
	}

	if orgWriteOps[op] {
		return member.AtLeast(models.MemberRoleAdmin)
	}
	if orgReadOps[op] {
		return member.AtLeast(models.MemberRoleMember)
	}

	switch op {
	case OpOrganizationCreate, OpOrganizationList:
		return true
	}
	return false
}

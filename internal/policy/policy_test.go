package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/atriumhq/atrium-api/internal/models"
)

func TestSuperadminPermittedEverything(t *testing.T) {
	ops := []Operation{
		OpOrganizationCreate, OpOrganizationRead, OpOrganizationList,
		OpOrganizationUpdate, OpOrganizationDelete,
		OpMemberList, OpMemberRemove, OpMemberRoleUpdate,
		OpInvitationCreate, OpInvitationCancel, OpInvitationList,
		OpUserList, OpUserRoleUpdate, OpUserBan, OpUserDelete,
		OpGrantSuperadmin,
	}
	for _, op := range ops {
		assert.True(t, Allow(models.PlatformRoleSuperadmin, models.MemberRoleNone, op), "superadmin denied %s", op)
	}
}

func TestAdminPermittedExceptSuperadminGrant(t *testing.T) {
	assert.True(t, Allow(models.PlatformRoleAdmin, models.MemberRoleNone, OpOrganizationDelete))
	assert.True(t, Allow(models.PlatformRoleAdmin, models.MemberRoleNone, OpInvitationCancel))
	assert.True(t, Allow(models.PlatformRoleAdmin, models.MemberRoleNone, OpUserBan))
	assert.False(t, Allow(models.PlatformRoleAdmin, models.MemberRoleNone, OpGrantSuperadmin))
}

func TestMembershipRoleGates(t *testing.T) {
	tests := []struct {
		name   string
		member models.MemberRole
		op     Operation
		want   bool
	}{
		{"owner can invite", models.MemberRoleOwner, OpInvitationCreate, true},
		{"org admin can invite", models.MemberRoleAdmin, OpInvitationCreate, true},
		{"member cannot invite", models.MemberRoleMember, OpInvitationCreate, false},
		{"member cannot remove members", models.MemberRoleMember, OpMemberRemove, false},
		{"member cannot update org", models.MemberRoleMember, OpOrganizationUpdate, false},
		{"owner can update org", models.MemberRoleOwner, OpOrganizationUpdate, true},
		{"member can read org", models.MemberRoleMember, OpOrganizationRead, true},
		{"member can list members", models.MemberRoleMember, OpMemberList, true},
		{"member can list invitations", models.MemberRoleMember, OpInvitationList, true},
		{"non-member cannot read org", models.MemberRoleNone, OpOrganizationRead, false},
		{"owner cannot delete org", models.MemberRoleOwner, OpOrganizationDelete, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allow(models.PlatformRoleUser, tt.member, tt.op))
		})
	}
}

func TestRegularUserBaseline(t *testing.T) {
	// Creating and listing organizations is open to any authenticated user;
	// the one-org cap is the directory's job, not the evaluator's.
	assert.True(t, Allow(models.PlatformRoleUser, models.MemberRoleNone, OpOrganizationCreate))
	assert.True(t, Allow(models.PlatformRoleUser, models.MemberRoleNone, OpOrganizationList))

	// Platform administration is not.
	assert.False(t, Allow(models.PlatformRoleUser, models.MemberRoleNone, OpUserList))
	assert.False(t, Allow(models.PlatformRoleUser, models.MemberRoleNone, OpUserBan))
	assert.False(t, Allow(models.PlatformRoleUser, models.MemberRoleOwner, OpGrantSuperadmin))
}

func TestUnknownOperationDenied(t *testing.T) {
	assert.False(t, Allow(models.PlatformRoleUser, models.MemberRoleOwner, Operation("nonsense")))
	assert.False(t, Allow(models.PlatformRoleUser, models.MemberRoleNone, Operation("")))
}

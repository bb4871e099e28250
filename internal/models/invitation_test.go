package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func invitationFixture(status InvitationStatus, expiresAt time.Time) Invitation {
	return Invitation{
		ID:             "inv-1",
		OrganizationID: "org-1",
		Email:          "bob@example.com",
		Role:           MemberRoleMember,
		Status:         status,
		ExpiresAt:      expiresAt,
	}
}

func TestDeriveInvitationStatusLazyExpiry(t *testing.T) {
	now := time.Now()
	inv := invitationFixture(InvitationStatusPending, now.Add(-time.Hour))

	assert.Equal(t, InvitationStatusExpired, DeriveInvitationStatus(inv, now, false))
	// No stored mutation implied: the invitation itself still says pending.
	assert.Equal(t, InvitationStatusPending, inv.Status)
}

func TestDeriveInvitationStatusLazyAcceptance(t *testing.T) {
	now := time.Now()
	inv := invitationFixture(InvitationStatusPending, now.Add(time.Hour))

	assert.Equal(t, InvitationStatusAccepted, DeriveInvitationStatus(inv, now, true))
}

func TestDeriveInvitationStatusAcceptanceWinsOverExpiry(t *testing.T) {
	now := time.Now()
	inv := invitationFixture(InvitationStatusPending, now.Add(-time.Hour))

	assert.Equal(t, InvitationStatusAccepted, DeriveInvitationStatus(inv, now, true))
}

func TestDeriveInvitationStatusPendingStaysPending(t *testing.T) {
	now := time.Now()
	inv := invitationFixture(InvitationStatusPending, now.Add(time.Hour))

	assert.Equal(t, InvitationStatusPending, DeriveInvitationStatus(inv, now, false))
}

func TestDeriveInvitationStatusTerminalStatesUntouched(t *testing.T) {
	now := time.Now()
	for _, status := range []InvitationStatus{InvitationStatusCancelled, InvitationStatusAccepted} {
		inv := invitationFixture(status, now.Add(-time.Hour))
		assert.Equal(t, status, DeriveInvitationStatus(inv, now, false))
		assert.Equal(t, status, DeriveInvitationStatus(inv, now, true))
	}
}

func TestParseInvitationStatus(t *testing.T) {
	status, err := ParseInvitationStatus(" Pending ")
	require.NoError(t, err)
	assert.Equal(t, InvitationStatusPending, status)

	_, err = ParseInvitationStatus("revoked")
	assert.Error(t, err)
}

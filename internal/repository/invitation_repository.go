package repository

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/atriumhq/atrium-api/internal/apperr"
	"github.com/atriumhq/atrium-api/internal/models"
)

type InvitationRepository interface {
	CreateInvitation(organizationID, email string, role models.MemberRole, inviterID string, expiresAt time.Time) (models.Invitation, error)
	GetInvitationByID(invitationID string) (models.Invitation, error)
	GetInvitationDetail(invitationID string) (models.InvitationDetail, error)
	ListInvitationsByOrganization(organizationID string) ([]models.InvitationDetail, error)
	CancelInvitation(invitationID string) error
	AcceptInvitation(invitationID, userID, userEmail string, singleOrgCap bool) (models.Membership, error)
}

type invitationRepository struct {
	db *sql.DB
}

func NewInvitationRepository(db *sql.DB) InvitationRepository {
	return &invitationRepository{db: db}
}

const invitationColumns = `id, organization_id, email, role, status, expires_at, inviter_id, created_at, updated_at`

func scanInvitation(row interface{ Scan(...interface{}) error }) (models.Invitation, error) {
	var inv models.Invitation
	err := row.Scan(
		&inv.ID,
		&inv.OrganizationID,
		&inv.Email,
		&inv.Role,
		&inv.Status,
		&inv.ExpiresAt,
		&inv.InviterID,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	return inv, err
}

// CreateInvitation inserts a pending invitation. The partial unique index on
// (organization_id, email) WHERE status = 'pending' is the consistency
// boundary for duplicate invitations; a concurrent second insert fails here
// as a Conflict instead of creating two pending rows. Because expiry is
// derived rather than stored, a lapsed invitation still sits in the index as
// pending; it no longer blocks a re-invite, so the transaction clears it
// before inserting.
func (r *invitationRepository) CreateInvitation(organizationID, email string, role models.MemberRole, inviterID string, expiresAt time.Time) (models.Invitation, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))

	var inv models.Invitation
	err := withTx(r.db, func(tx *sql.Tx) error {
		const sweepQuery = `
			DELETE FROM atrium.invitations
			WHERE organization_id = $1 AND lower(email) = $2
				AND status = $3 AND expires_at < now()`
		if _, err := tx.Exec(sweepQuery, organizationID, normalized, models.InvitationStatusPending); err != nil {
			return translate(err, "", "")
		}

		const insertQuery = `
			INSERT INTO atrium.invitations (organization_id, email, role, status, expires_at, inviter_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING ` + invitationColumns

		var err error
		inv, err = scanInvitation(tx.QueryRow(insertQuery,
			organizationID,
			normalized,
			role,
			models.InvitationStatusPending,
			expiresAt,
			inviterID,
		))
		if err != nil {
			return translate(err, "organization not found", "a pending invitation for this email already exists")
		}
		return nil
	})
	if err != nil {
		return models.Invitation{}, err
	}
	return inv, nil
}

func (r *invitationRepository) GetInvitationByID(invitationID string) (models.Invitation, error) {
	const query = `
		SELECT ` + invitationColumns + `
		FROM atrium.invitations
		WHERE id = $1`

	inv, err := scanInvitation(r.db.QueryRow(query, invitationID))
	if err != nil {
		return models.Invitation{}, translate(err, "invitation not found", "")
	}
	return inv, nil
}

const invitationDetailQuery = `
	SELECT i.id, i.organization_id, i.email, i.role, i.status, i.expires_at, i.inviter_id, i.created_at, i.updated_at,
		u.name, u.email, o.name, o.slug,
		EXISTS (
			SELECT 1
			FROM atrium.memberships m
			JOIN atrium.users mu ON mu.id = m.user_id
			WHERE m.organization_id = i.organization_id AND mu.email = i.email
		) AS has_membership
	FROM atrium.invitations i
	JOIN atrium.users u ON u.id = i.inviter_id
	JOIN atrium.organizations o ON o.id = i.organization_id`

func scanInvitationDetail(row interface{ Scan(...interface{}) error }) (models.InvitationDetail, error) {
	var det models.InvitationDetail
	err := row.Scan(
		&det.ID,
		&det.OrganizationID,
		&det.Email,
		&det.Role,
		&det.Status,
		&det.ExpiresAt,
		&det.InviterID,
		&det.CreatedAt,
		&det.UpdatedAt,
		&det.InviterName,
		&det.InviterEmail,
		&det.OrganizationName,
		&det.OrganizationSlug,
		&det.HasMembership,
	)
	return det, err
}

func (r *invitationRepository) GetInvitationDetail(invitationID string) (models.InvitationDetail, error) {
	det, err := scanInvitationDetail(r.db.QueryRow(invitationDetailQuery+` WHERE i.id = $1`, invitationID))
	if err != nil {
		return models.InvitationDetail{}, translate(err, "invitation not found", "")
	}
	return det, nil
}

func (r *invitationRepository) ListInvitationsByOrganization(organizationID string) ([]models.InvitationDetail, error) {
	rows, err := r.db.Query(invitationDetailQuery+` WHERE i.organization_id = $1 ORDER BY i.created_at DESC`, organizationID)
	if err != nil {
		return nil, translate(err, "", "")
	}
	defer rows.Close()

	var invitations []models.InvitationDetail
	for rows.Next() {
		det, err := scanInvitationDetail(rows)
		if err != nil {
			return nil, translate(err, "", "")
		}
		invitations = append(invitations, det)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "", "")
	}

	return invitations, nil
}

// CancelInvitation flips a pending invitation to cancelled. The status guard
// in the WHERE clause makes the transition atomic; callers are expected to
// have checked the effective status first so the failure message fits.
func (r *invitationRepository) CancelInvitation(invitationID string) error {
	const query = `
		UPDATE atrium.invitations
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3`

	result, err := r.db.Exec(query, invitationID, models.InvitationStatusCancelled, models.InvitationStatusPending)
	if err != nil {
		return translate(err, "invitation not found", "")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return translate(err, "invitation not found", "")
	}
	if rows == 0 {
		return apperr.New(apperr.KindInvalidState, "only pending invitations can be cancelled")
	}
	return nil
}

// AcceptInvitation validates the invitation and creates the membership in a
// single transaction, flipping the stored status to accepted. Accepting an
// already-accepted invitation is idempotent when the caller holds the
// resulting membership. singleOrgCap enforces the one-organization limit for
// regular users at acceptance time.
func (r *invitationRepository) AcceptInvitation(invitationID, userID, userEmail string, singleOrgCap bool) (models.Membership, error) {
	var membership models.Membership
	err := withTx(r.db, func(tx *sql.Tx) error {
		const lockQuery = `
			SELECT ` + invitationColumns + `
			FROM atrium.invitations
			WHERE id = $1
			FOR UPDATE`

		inv, err := scanInvitation(tx.QueryRow(lockQuery, invitationID))
		if err != nil {
			return translate(err, "invitation not found", "")
		}

		if !strings.EqualFold(inv.Email, userEmail) {
			return apperr.New(apperr.KindForbidden, "invitation was issued to a different email address")
		}

		switch inv.Status {
		case models.InvitationStatusCancelled:
			return apperr.New(apperr.KindInvalidState, "invitation has been cancelled")
		case models.InvitationStatusAccepted:
			existing, err := scanMembership(tx.QueryRow(`
				SELECT `+membershipColumns+`
				FROM atrium.memberships
				WHERE organization_id = $1 AND user_id = $2`, inv.OrganizationID, userID))
			if errors.Is(err, sql.ErrNoRows) {
				// Accepted once, but the membership was removed since.
				return apperr.New(apperr.KindInvalidState, "invitation was already used and the membership has since been removed")
			}
			if err != nil {
				return translate(err, "", "")
			}
			membership = existing
			return nil
		}

		if inv.IsExpired(time.Now()) {
			return apperr.New(apperr.KindInvalidState, "invitation has expired")
		}

		if singleOrgCap {
			var existingMemberships int
			if err := tx.QueryRow(`SELECT count(*) FROM atrium.memberships WHERE user_id = $1`, userID).Scan(&existingMemberships); err != nil {
				return translate(err, "", "")
			}
			if existingMemberships > 0 {
				return apperr.New(apperr.KindLimitExceeded, "user already belongs to an organization")
			}
		}

		const insertQuery = `
			INSERT INTO atrium.memberships (organization_id, user_id, role)
			VALUES ($1, $2, $3)
			RETURNING ` + membershipColumns

		membership, err = scanMembership(tx.QueryRow(insertQuery, inv.OrganizationID, userID, inv.Role))
		if err != nil {
			return translate(err, "organization or user not found", "user is already a member of this organization")
		}

		const acceptQuery = `
			UPDATE atrium.invitations
			SET status = $2, updated_at = now()
			WHERE id = $1`
		if _, err := tx.Exec(acceptQuery, invitationID, models.InvitationStatusAccepted); err != nil {
			return translate(err, "invitation not found", "")
		}
		return nil
	})
	if err != nil {
		return models.Membership{}, err
	}
	return membership, nil
}

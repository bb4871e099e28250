package repository

import (
	"database/sql"
	"strings"

	"github.com/atriumhq/atrium-api/internal/apperr"
	"github.com/atriumhq/atrium-api/internal/models"
)

type MembershipRepository interface {
	GetMembershipByID(membershipID string) (models.Membership, error)
	RemoveMember(membershipID string) error
	UpdateMemberRole(membershipID string, role models.MemberRole) (models.Membership, error)
	GetRole(userID, organizationID string) (models.MemberRole, error)
	ListMembers(organizationID string) ([]models.Member, error)
	CountMembers(organizationID string) (int, error)
	CountMembershipsOfUser(userID string) (int, error)
	HasMemberWithEmail(organizationID, email string) (bool, error)
}

type membershipRepository struct {
	db *sql.DB
}

func NewMembershipRepository(db *sql.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

const membershipColumns = `id, organization_id, user_id, role, created_at`

func scanMembership(row interface{ Scan(...interface{}) error }) (models.Membership, error) {
	var m models.Membership
	err := row.Scan(&m.ID, &m.OrganizationID, &m.UserID, &m.Role, &m.CreatedAt)
	return m, err
}

func (r *membershipRepository) GetMembershipByID(membershipID string) (models.Membership, error) {
	const query = `
		SELECT ` + membershipColumns + `
		FROM atrium.memberships
		WHERE id = $1`

	membership, err := scanMembership(r.db.QueryRow(query, membershipID))
	if err != nil {
		return models.Membership{}, translate(err, "membership not found", "")
	}
	return membership, nil
}

// RemoveMember deletes a membership. Removing an organization's only owner is
// refused so an organization can never be left ownerless; the guard and the
// delete share one transaction.
func (r *membershipRepository) RemoveMember(membershipID string) error {
	return withTx(r.db, func(tx *sql.Tx) error {
		membership, err := lockMembership(tx, membershipID)
		if err != nil {
			return err
		}

		if membership.Role == models.MemberRoleOwner {
			if err := ensureNotSoleOwner(tx, membership); err != nil {
				return err
			}
		}

		if _, err := tx.Exec(`DELETE FROM atrium.memberships WHERE id = $1`, membershipID); err != nil {
			return translate(err, "membership not found", "")
		}
		return nil
	})
}

// UpdateMemberRole changes a member's role. Demoting the only owner is
// refused for the same reason removal is.
func (r *membershipRepository) UpdateMemberRole(membershipID string, role models.MemberRole) (models.Membership, error) {
	var updated models.Membership
	err := withTx(r.db, func(tx *sql.Tx) error {
		membership, err := lockMembership(tx, membershipID)
		if err != nil {
			return err
		}

		if membership.Role == models.MemberRoleOwner && role != models.MemberRoleOwner {
			if err := ensureNotSoleOwner(tx, membership); err != nil {
				return err
			}
		}

		const query = `
			UPDATE atrium.memberships
			SET role = $2
			WHERE id = $1
			RETURNING ` + membershipColumns

		updated, err = scanMembership(tx.QueryRow(query, membershipID, role))
		if err != nil {
			return translate(err, "membership not found", "")
		}
		return nil
	})
	if err != nil {
		return models.Membership{}, err
	}
	return updated, nil
}

func lockMembership(tx *sql.Tx, membershipID string) (models.Membership, error) {
	const query = `
		SELECT ` + membershipColumns + `
		FROM atrium.memberships
		WHERE id = $1
		FOR UPDATE`

	membership, err := scanMembership(tx.QueryRow(query, membershipID))
	if err != nil {
		return models.Membership{}, translate(err, "membership not found", "")
	}
	return membership, nil
}

func ensureNotSoleOwner(tx *sql.Tx, membership models.Membership) error {
	var owners int
	const query = `
		SELECT count(*)
		FROM atrium.memberships
		WHERE organization_id = $1 AND role = $2`
	if err := tx.QueryRow(query, membership.OrganizationID, models.MemberRoleOwner).Scan(&owners); err != nil {
		return translate(err, "", "")
	}
	if owners <= 1 {
		return apperr.New(apperr.KindInvalidState, "cannot remove the organization's only owner")
	}
	return nil
}

func (r *membershipRepository) GetRole(userID, organizationID string) (models.MemberRole, error) {
	const query = `
		SELECT role
		FROM atrium.memberships
		WHERE user_id = $1 AND organization_id = $2`

	var role models.MemberRole
	err := r.db.QueryRow(query, userID, organizationID).Scan(&role)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.MemberRoleNone, nil
		}
		return models.MemberRoleNone, translate(err, "", "")
	}
	return role, nil
}

func (r *membershipRepository) ListMembers(organizationID string) ([]models.Member, error) {
	const query = `
		SELECT m.id, m.organization_id, m.user_id, m.role, m.created_at, u.name, u.email
		FROM atrium.memberships m
		JOIN atrium.users u ON u.id = m.user_id
		WHERE m.organization_id = $1
		ORDER BY m.created_at`

	rows, err := r.db.Query(query, organizationID)
	if err != nil {
		return nil, translate(err, "", "")
	}
	defer rows.Close()

	var members []models.Member
	for rows.Next() {
		var member models.Member
		if err := rows.Scan(
			&member.ID,
			&member.OrganizationID,
			&member.UserID,
			&member.Role,
			&member.CreatedAt,
			&member.UserName,
			&member.UserEmail,
		); err != nil {
			return nil, translate(err, "", "")
		}
		members = append(members, member)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, "", "")
	}

	return members, nil
}

func (r *membershipRepository) CountMembers(organizationID string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT count(*) FROM atrium.memberships WHERE organization_id = $1`, organizationID).Scan(&count)
	if err != nil {
		return 0, translate(err, "", "")
	}
	return count, nil
}

func (r *membershipRepository) CountMembershipsOfUser(userID string) (int, error) {
	var count int
	err := r.db.QueryRow(`SELECT count(*) FROM atrium.memberships WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, translate(err, "", "")
	}
	return count, nil
}

func (r *membershipRepository) HasMemberWithEmail(organizationID, email string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1
			FROM atrium.memberships m
			JOIN atrium.users u ON u.id = m.user_id
			WHERE m.organization_id = $1 AND u.email = $2
		)`

	var exists bool
	err := r.db.QueryRow(query, organizationID, strings.ToLower(strings.TrimSpace(email))).Scan(&exists)
	if err != nil {
		return false, translate(err, "", "")
	}
	return exists, nil
}

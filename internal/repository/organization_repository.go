package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/atriumhq/atrium-api/internal/apperr"
	"github.com/atriumhq/atrium-api/internal/models"
)

type ListOrganizationsParams struct {
	Page   int
	Limit  int
	Search string
	Sort   string // "name" or "created_at"
	Order  string // "asc" or "desc"

	// MemberUserID restricts the listing to organizations the given user
	// belongs to, annotated with that user's membership role. When empty the
	// listing is unrestricted (platform admin view).
	MemberUserID string
}

type OrganizationRepository interface {
	CreateOrganizationWithOwner(name, slug string, logo *string, metadata json.RawMessage, ownerUserID string) (models.Organization, error)
	GetOrganizationByID(id string) (models.Organization, error)
	ListOrganizations(params ListOrganizationsParams) ([]models.OrganizationSummary, int, error)
	UpdateOrganization(id, name, slug string, logo *string, metadata json.RawMessage) (models.Organization, error)
	DeleteOrganization(id string) error
}

type organizationRepository struct {
	db *sql.DB
}

func NewOrganizationRepository(db *sql.DB) OrganizationRepository {
	return &organizationRepository{db: db}
}

const organizationColumns = `id, name, slug, logo, metadata, created_at, updated_at`

func scanOrganization(row interface{ Scan(...interface{}) error }) (models.Organization, error) {
	var (
		org      models.Organization
		logo     sql.NullString
		metadata []byte
	)
	err := row.Scan(&org.ID, &org.Name, &org.Slug, &logo, &metadata, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return models.Organization{}, err
	}
	if logo.Valid {
		org.Logo = &logo.String
	}
	if len(metadata) > 0 {
		org.Metadata = json.RawMessage(metadata)
	}
	return org, nil
}

// CreateOrganizationWithOwner inserts the organization and the creator's
// owner membership in one transaction; an organization is never visible
// without an owner.
func (r *organizationRepository) CreateOrganizationWithOwner(name, slug string, logo *string, metadata json.RawMessage, ownerUserID string) (models.Organization, error) {
	var org models.Organization
	err := withTx(r.db, func(tx *sql.Tx) error {
		const orgQuery = `
			INSERT INTO atrium.organizations (name, slug, logo, metadata)
			VALUES ($1, $2, $3, $4)
			RETURNING ` + organizationColumns

		var metadataValue interface{}
		if len(metadata) > 0 {
			metadataValue = []byte(metadata)
		}
		var logoValue interface{}
		if logo != nil && *logo != "" {
			logoValue = *logo
		}

		created, err := scanOrganization(tx.QueryRow(orgQuery, name, slug, logoValue, metadataValue))
		if err != nil {
			return translate(err, "organization not found", "an organization with this slug already exists")
		}

		const memberQuery = `
			INSERT INTO atrium.memberships (organization_id, user_id, role)
			VALUES ($1, $2, $3)`
		if _, err := tx.Exec(memberQuery, created.ID, ownerUserID, models.MemberRoleOwner); err != nil {
			return translate(err, "user not found", "user is already a member of this organization")
		}

		org = created
		return nil
	})
	if err != nil {
		return models.Organization{}, err
	}
	return org, nil
}

func (r *organizationRepository) GetOrganizationByID(id string) (models.Organization, error) {
	const query = `
		SELECT ` + organizationColumns + `
		FROM atrium.organizations
		WHERE id = $1`

	org, err := scanOrganization(r.db.QueryRow(query, id))
	if err != nil {
		return models.Organization{}, translate(err, "organization not found", "")
	}
	return org, nil
}

func (r *organizationRepository) ListOrganizations(params ListOrganizationsParams) ([]models.OrganizationSummary, int, error) {
	sortColumn := "o.created_at"
	if params.Sort == "name" {
		sortColumn = "o.name"
	}
	direction := "ASC"
	if strings.EqualFold(params.Order, "desc") {
		direction = "DESC"
	}

	var (
		where []string
		args  []interface{}
	)
	roleExpr := "'admin'"
	if params.MemberUserID != "" {
		args = append(args, params.MemberUserID)
		roleExpr = "m.role"
		where = append(where, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM atrium.memberships m2
			WHERE m2.organization_id = o.id AND m2.user_id = $%d)`, len(args)))
	}
	if params.Search != "" {
		args = append(args, "%"+params.Search+"%")
		where = append(where, fmt.Sprintf("o.name ILIKE $%d", len(args)))
	}

	whereClause := ""
	if len(where) > 0 {
		whereClause = "WHERE " + strings.Join(where, " AND ")
	}

	countQuery := fmt.Sprintf(`SELECT count(*) FROM atrium.organizations o %s`, whereClause)
	var total int
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, translate(err, "", "")
	}

	join := ""
	if params.MemberUserID != "" {
		join = "JOIN atrium.memberships m ON m.organization_id = o.id AND m.user_id = $1"
	}

	args = append(args, params.Limit, (params.Page-1)*params.Limit)
	listQuery := fmt.Sprintf(`
		SELECT o.id, o.name, o.slug, o.logo, o.metadata, o.created_at, o.updated_at,
			%s AS role,
			(SELECT count(*) FROM atrium.memberships mc WHERE mc.organization_id = o.id) AS member_count
		FROM atrium.organizations o
		%s
		%s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d`,
		roleExpr, join, whereClause, sortColumn, direction, len(args)-1, len(args))

	rows, err := r.db.Query(listQuery, args...)
	if err != nil {
		return nil, 0, translate(err, "", "")
	}
	defer rows.Close()

	var summaries []models.OrganizationSummary
	for rows.Next() {
		var (
			summary  models.OrganizationSummary
			logo     sql.NullString
			metadata []byte
		)
		if err := rows.Scan(
			&summary.ID,
			&summary.Name,
			&summary.Slug,
			&logo,
			&metadata,
			&summary.CreatedAt,
			&summary.UpdatedAt,
			&summary.Role,
			&summary.MemberCount,
		); err != nil {
			return nil, 0, translate(err, "", "")
		}
		if logo.Valid {
			summary.Logo = &logo.String
		}
		if len(metadata) > 0 {
			summary.Metadata = json.RawMessage(metadata)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, translate(err, "", "")
	}

	return summaries, total, nil
}

func (r *organizationRepository) UpdateOrganization(id, name, slug string, logo *string, metadata json.RawMessage) (models.Organization, error) {
	const query = `
		UPDATE atrium.organizations
		SET name = $2, slug = $3, logo = $4, metadata = COALESCE($5, metadata), updated_at = now()
		WHERE id = $1
		RETURNING ` + organizationColumns

	var metadataValue interface{}
	if len(metadata) > 0 {
		metadataValue = []byte(metadata)
	}
	var logoValue interface{}
	if logo != nil && *logo != "" {
		logoValue = *logo
	}

	org, err := scanOrganization(r.db.QueryRow(query, id, name, slug, logoValue, metadataValue))
	if err != nil {
		return models.Organization{}, translate(err, "organization not found", "an organization with this slug already exists")
	}
	return org, nil
}

// DeleteOrganization removes the organization; memberships and invitations go
// with it via ON DELETE CASCADE.
func (r *organizationRepository) DeleteOrganization(id string) error {
	result, err := r.db.Exec(`DELETE FROM atrium.organizations WHERE id = $1`, id)
	if err != nil {
		return translate(err, "organization not found", "")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return translate(err, "organization not found", "")
	}
	if rows == 0 {
		return apperr.New(apperr.KindNotFound, "organization not found")
	}
	return nil
}

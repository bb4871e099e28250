package repository

import (
	"database/sql"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/atriumhq/atrium-api/internal/apperr"
	"github.com/atriumhq/atrium-api/internal/models"
)

type UserRepository interface {
	CreateUser(email, name, password string, role models.PlatformRole) (models.User, error)
	AuthenticateUser(email, password string) (models.User, error)
	GetUserByID(userID string) (models.User, error)
	GetUserByEmail(email string) (models.User, error)
	ListUsers(page, limit int) ([]models.User, int, error)
	UpdateUserRole(userID string, role models.PlatformRole) (models.User, error)
	BanUser(userID, reason string, expires *time.Time) (models.User, error)
	UnbanUser(userID string) (models.User, error)
	DeleteUser(userID string) error
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) UserRepository {
	return &userRepository{db: db}
}

const userColumns = `id, email, name, role, banned, ban_reason, ban_expires, created_at, updated_at`

func scanUser(row interface{ Scan(...interface{}) error }) (models.User, error) {
	var (
		user      models.User
		banReason sql.NullString
	)
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Role,
		&user.Banned,
		&banReason,
		&user.BanExpires,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return models.User{}, err
	}
	if banReason.Valid {
		user.BanReason = &banReason.String
	}
	return user, nil
}

func (u *userRepository) CreateUser(email, name, password string, role models.PlatformRole) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)
	if email == "" {
		return models.User{}, apperr.New(apperr.KindValidation, "email is required")
	}
	if password == "" {
		return models.User{}, apperr.New(apperr.KindValidation, "password is required")
	}
	if !role.IsValid() {
		return models.User{}, apperr.New(apperr.KindValidation, "invalid platform role")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.User{}, apperr.Wrap(err, apperr.KindInternal, "failed to hash password")
	}

	const query = `
		INSERT INTO atrium.users (email, name, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + userColumns

	user, err := scanUser(u.db.QueryRow(query, email, name, string(hash), role))
	if err != nil {
		return models.User{}, translate(err, "user not found", "a user with this email already exists")
	}
	return user, nil
}

func (u *userRepository) AuthenticateUser(email, password string) (models.User, error) {
	const query = `
		SELECT ` + userColumns + `, password_hash
		FROM atrium.users
		WHERE email = $1 AND deleted_at IS NULL`

	var (
		user      models.User
		banReason sql.NullString
	)
	err := u.db.QueryRow(query, strings.ToLower(strings.TrimSpace(email))).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.Role,
		&user.Banned,
		&banReason,
		&user.BanExpires,
		&user.CreatedAt,
		&user.UpdatedAt,
		&user.PasswordHash,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return models.User{}, apperr.New(apperr.KindUnauthenticated, "invalid credentials")
		}
		return models.User{}, translate(err, "user not found", "")
	}
	if banReason.Valid {
		user.BanReason = &banReason.String
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.User{}, apperr.New(apperr.KindUnauthenticated, "invalid credentials")
	}

	return user, nil
}

func (u *userRepository) GetUserByID(userID string) (models.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM atrium.users
		WHERE id = $1 AND deleted_at IS NULL`

	user, err := scanUser(u.db.QueryRow(query, userID))
	if err != nil {
		return models.User{}, translate(err, "user not found", "")
	}
	return user, nil
}

func (u *userRepository) GetUserByEmail(email string) (models.User, error) {
	const query = `
		SELECT ` + userColumns + `
		FROM atrium.users
		WHERE email = $1 AND deleted_at IS NULL`

	user, err := scanUser(u.db.QueryRow(query, strings.ToLower(strings.TrimSpace(email))))
	if err != nil {
		return models.User{}, translate(err, "user not found", "")
	}
	return user, nil
}

func (u *userRepository) ListUsers(page, limit int) ([]models.User, int, error) {
	var total int
	if err := u.db.QueryRow(`SELECT count(*) FROM atrium.users WHERE deleted_at IS NULL`).Scan(&total); err != nil {
		return nil, 0, translate(err, "", "")
	}

	const query = `
		SELECT ` + userColumns + `
		FROM atrium.users
		WHERE deleted_at IS NULL
		ORDER BY created_at
		LIMIT $1 OFFSET $2`

	rows, err := u.db.Query(query, limit, (page-1)*limit)
	if err != nil {
		return nil, 0, translate(err, "", "")
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, 0, translate(err, "", "")
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, translate(err, "", "")
	}

	return users, total, nil
}

func (u *userRepository) UpdateUserRole(userID string, role models.PlatformRole) (models.User, error) {
	if !role.IsValid() {
		return models.User{}, apperr.New(apperr.KindValidation, "invalid platform role")
	}

	const query = `
		UPDATE atrium.users
		SET role = $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + userColumns

	user, err := scanUser(u.db.QueryRow(query, userID, role))
	if err != nil {
		return models.User{}, translate(err, "user not found", "")
	}
	return user, nil
}

func (u *userRepository) BanUser(userID, reason string, expires *time.Time) (models.User, error) {
	const query = `
		UPDATE atrium.users
		SET banned = TRUE, ban_reason = $2, ban_expires = $3, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + userColumns

	user, err := scanUser(u.db.QueryRow(query, userID, reason, expires))
	if err != nil {
		return models.User{}, translate(err, "user not found", "")
	}
	return user, nil
}

func (u *userRepository) UnbanUser(userID string) (models.User, error) {
	const query = `
		UPDATE atrium.users
		SET banned = FALSE, ban_reason = NULL, ban_expires = NULL, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + userColumns

	user, err := scanUser(u.db.QueryRow(query, userID))
	if err != nil {
		return models.User{}, translate(err, "user not found", "")
	}
	return user, nil
}

func (u *userRepository) DeleteUser(userID string) error {
	const query = `
		UPDATE atrium.users
		SET deleted_at = now(), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL`

	result, err := u.db.Exec(query, userID)
	if err != nil {
		return translate(err, "user not found", "")
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return translate(err, "user not found", "")
	}
	if rows == 0 {
		return apperr.New(apperr.KindNotFound, "user not found")
	}
	return nil
}

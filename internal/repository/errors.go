package repository

import (
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/atriumhq/atrium-api/internal/apperr"
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// translate maps store-level failures onto the discriminated error kinds.
// Missing rows and dangling references become NotFound, unique-index
// violations become Conflict, anything else is Internal. The unique indexes
// are the consistency boundary for duplicate memberships, duplicate pending
// invitations and slug collisions, so a racing insert loses here rather than
// creating a second row.
func translate(err error, notFoundMsg, conflictMsg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.New(apperr.KindNotFound, notFoundMsg)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case pqUniqueViolation:
			return apperr.New(apperr.KindConflict, conflictMsg)
		case pqForeignKeyViolation:
			return apperr.New(apperr.KindNotFound, notFoundMsg)
		}
	}
	return apperr.Wrap(err, apperr.KindInternal, "store operation failed")
}

// withTx runs fn inside a transaction, rolling back on error.
func withTx(db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.Begin()
	if err != nil {
		return apperr.Wrap(err, apperr.KindInternal, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return apperr.Wrap(err, apperr.KindInternal, "failed to commit transaction")
	}
	return nil
}

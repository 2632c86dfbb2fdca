package postgres

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"tradecore/internal/core/apperror"
)

// PostgreSQL error codes relevant for classification.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgSerializationFail   = "40001"
	pgDeadlockDetected    = "40P01"
)

// ClassifyError translates low-level pgx errors into application errors
// so domain code can branch on semantics instead of SQLSTATE codes.
//
// Foreign-key violations on an audit column (created_by/updated_by) are
// classified separately: the reference is optional metadata and callers
// may retry the write without it.
func ClassifyError(err error, entity string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NewNotFound(entity, "")
	}

	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}

	switch pgErr.Code {
	case pgUniqueViolation:
		return apperror.NewDuplicate(entity, pgErr.ConstraintName, "")

	case pgForeignKeyViolation:
		if isAuditConstraint(pgErr.ConstraintName) {
			return apperror.NewAuditReference(pgErr.ConstraintName, err)
		}
		return apperror.NewForeignKey(pgErr.ConstraintName, err)

	case pgSerializationFail, pgDeadlockDetected:
		return apperror.NewConcurrentModification(entity, "")
	}

	return err
}

// isAuditConstraint reports whether a foreign-key constraint guards an
// audit actor column rather than a business reference.
func isAuditConstraint(constraint string) bool {
	c := strings.ToLower(constraint)
	return strings.Contains(c, "created_by") || strings.Contains(c, "updated_by")
}

package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"gwin/internal/core/apperror"
)

// SQLSTATE codes mapped to user-facing errors.
const (
	codeForeignKeyViolation = "23503"
	codeUniqueViolation     = "23505"
	codeNotNullViolation    = "23502"
	codeCheckViolation      = "23514"
	codeStringTooLong       = "22001"
	codeDuplicateObject     = "42710"
	codeDuplicateTable      = "42P07"
)

// MapError turns constraint violations into AppErrors for entity/id and wraps
// every other store fault with op.
func MapError(err error, op, entity string, id any) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("%s %s: %w", op, entity, err)
	}

	switch pgErr.Code {
	case codeForeignKeyViolation:
		return apperror.NewForeignKeyViolation(entity, id).
			WithDetail("constraint", pgErr.ConstraintName).
			WithCause(err)
	case codeUniqueViolation:
		return apperror.NewDuplicate(entity, pgErr.ConstraintName, pgErr.Detail).WithCause(err)
	case codeNotNullViolation:
		return apperror.NewValidation(fmt.Sprintf("%s is required", pgErr.ColumnName)).
			WithDetail("entity", entity).
			WithDetail("field", pgErr.ColumnName).
			WithCause(err)
	case codeCheckViolation:
		return apperror.NewValidation(fmt.Sprintf("check %s failed", pgErr.ConstraintName)).
			WithDetail("entity", entity).
			WithDetail("constraint", pgErr.ConstraintName).
			WithCause(err)
	case codeStringTooLong:
		return apperror.NewValidation(pgErr.Message).
			WithDetail("entity", entity).
			WithCause(err)
	}
	return fmt.Errorf("%s %s: %w", op, entity, err)
}

// isDuplicateObject reports errors raised by re-running idempotent DDL.
func isDuplicateObject(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == codeDuplicateObject || pgErr.Code == codeDuplicateTable)
}

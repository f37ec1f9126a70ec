package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound        = errors.New("resource not found")
	ErrDuplicate       = errors.New("duplicate resource")
	ErrInvalidInput    = errors.New("invalid input data")
	ErrNotEnough       = errors.New("not enough quantity available")
	ErrProductNotFound = errors.New("product not found")
	ErrConflict        = errors.New("resource is referenced or was modified concurrently")
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
	pgSerialization       = "40001"
	pgDeadlock            = "40P01"
)

func pgErrorCode(err error) (string, string) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code, pgErr.ConstraintName
	}
	return "", ""
}

func isUniqueViolation(err error) bool {
	code, _ := pgErrorCode(err)
	return code == pgUniqueViolation
}

func isForeignKeyViolation(err error) bool {
	code, _ := pgErrorCode(err)
	return code == pgForeignKeyViolation
}

func isCheckViolation(err error) bool {
	code, _ := pgErrorCode(err)
	return code == pgCheckViolation
}

// isConcurrencyFailure reports store-detected conflicts between transactions.
func isConcurrencyFailure(err error) bool {
	code, _ := pgErrorCode(err)
	return code == pgSerialization || code == pgDeadlock
}

package errors

// Postgres-specific helpers used by the review ledger to classify pgx failures

import (
	"context"
	stderrs "errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATE codes the ledger cares about
const (
	pgErrUniqueViolation           = "23505"
	pgErrCheckViolation            = "23514"
	pgErrInvalidTextRepresentation = "22P02"
	pgErrSerializationFailure      = "40001"
	pgErrDeadlockDetected          = "40P01"
	pgErrLockNotAvailable          = "55P03"
	pgErrCannotConnectNow          = "57P03"
)

// ExtractPgError returns (*pgconn.PgError, true) if the root cause is a PgError
func ExtractPgError(err error) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if stderrs.As(Root(err), &pgErr) {
		return pgErr, true
	}
	return nil, false
}

// IsSQLState reports whether the error is a Postgres error with the given SQLSTATE code
func IsSQLState(err error, code string) bool {
	pgErr, ok := ExtractPgError(err)
	return ok && pgErr.Code == code
}

// IsDuplicateKey reports whether the error is a unique constraint violation
func IsDuplicateKey(err error) bool { return IsSQLState(err, pgErrUniqueViolation) }

// DBErrorCode maps a Postgres error to an ErrorCode; !ok means err wasn't a PgError
func DBErrorCode(err error) (ErrorCode, bool) {
	pgErr, ok := ExtractPgError(err)
	if !ok {
		return ErrorCodeUnknown, false
	}
	switch pgErr.Code {
	case pgErrUniqueViolation:
		return ErrorCodeDuplicateKey, true
	case pgErrCheckViolation:
		// the ledger guards state values with a CHECK constraint
		return ErrorCodeValidation, true
	case pgErrInvalidTextRepresentation:
		return ErrorCodeInvalidArgument, true
	case pgErrCannotConnectNow:
		return ErrorCodeUnavailable, true
	}
	return ErrorCodeDB, true
}

// FromPostgresf wraps a pg error with a mapped ErrorCode and formatted message.
// If err is nil, returns nil
func FromPostgresf(err error, format string, a ...any) error {
	if err == nil {
		return nil
	}
	code, ok := DBErrorCode(err)
	if !ok {
		code = ErrorCodeDB
	}
	return Wrap(err, code, fmt.Sprintf(format, a...))
}

// IsRetryable reports whether a database error represents a transient condition worth retrying
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if stderrs.Is(err, context.Canceled) || stderrs.Is(err, context.DeadlineExceeded) {
		return false
	}

	root := Root(err)
	var pgErr *pgconn.PgError
	if stderrs.As(root, &pgErr) {
		switch pgErr.Code {
		case pgErrSerializationFailure, pgErrDeadlockDetected, pgErrLockNotAvailable:
			return true
		default:
			return false
		}
	}

	// sqlite reports contention as text only
	s := strings.ToLower(root.Error())
	switch {
	case strings.Contains(s, "database is locked"),
		strings.Contains(s, "deadlock detected"),
		strings.Contains(s, "could not serialize access"):
		return true
	default:
		return false
	}
}

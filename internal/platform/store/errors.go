package store

import (
	stderrs "errors"
	"fmt"

	perr "constkit/internal/platform/errors"

	"github.com/mattn/go-sqlite3"
)

// DBErrorf wraps err with a code derived from either backend's error type and a formatted
// message. nil stays nil; errors that already carry a code keep it
func DBErrorf(err error, format string, a ...any) error {
	if err == nil {
		return nil
	}
	msg := fmt.Sprintf(format, a...)
	if code, ok := perr.DBErrorCode(err); ok {
		return perr.Wrap(err, code, msg)
	}
	var se sqlite3.Error
	if stderrs.As(err, &se) {
		return perr.Wrap(err, sqliteCode(se), msg)
	}
	if c := perr.CodeOf(err); c != perr.ErrorCodeUnknown {
		return perr.Wrap(err, c, msg)
	}
	return perr.Wrap(err, perr.ErrorCodeDB, msg)
}

func sqliteCode(se sqlite3.Error) perr.ErrorCode {
	switch {
	case se.ExtendedCode == sqlite3.ErrConstraintUnique, se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
		return perr.ErrorCodeDuplicateKey
	case se.ExtendedCode == sqlite3.ErrConstraintCheck:
		return perr.ErrorCodeValidation
	case se.Code == sqlite3.ErrBusy, se.Code == sqlite3.ErrLocked:
		return perr.ErrorCodeUnavailable
	}
	return perr.ErrorCodeDB
}

// Package store provides the SQL seam behind the review ledger: one RowQuerier/TxRunner
// surface over Postgres (pgx) or a local sqlite file
package store

import (
	"context"
	"errors"

	perr "constkit/internal/platform/errors"
	"constkit/internal/platform/logger"
)

// Dialect names the SQL backend a Store talks to
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// ErrNoRows is returned by Row.Scan when the query matched nothing, for every dialect
var ErrNoRows = perr.New(perr.ErrorCodeNotFound, "no rows")

// Store is the facade over the configured backend
// zero value is safe but does nothing
type Store struct {
	// Log is the logger used by subclients
	// zero means a no op zerolog logger
	Log logger.Logger

	// SQL is the sql seam, nil when no backend is configured
	SQL TxRunner

	// Dialect of SQL
	Dialect Dialect
}

// Row exposes the minimal scan contract a single row needs
type Row interface {
	Scan(dest ...any) error
}

// Rows exposes the minimal iteration and scan for a result set
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close()
	Columns() []string
}

// CommandTag is a tiny interface to inspect command results
type CommandTag interface {
	String() string
	RowsAffected() int64
}

// RowQuerier is the read and write surface repos use for sql
type RowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) Row
}

// TxRunner wraps transaction execution around a function
type TxRunner interface {
	RowQuerier
	Tx(ctx context.Context, fn func(q RowQuerier) error) error
}

// Pinger is any seam that can report readiness
type Pinger interface{ Ping(context.Context) error }

// Open constructs a Store for cfg.Driver. An empty driver yields a Store with no SQL seam
func Open(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	s := &Store{}
	for _, o := range opts {
		if err := o(s); err != nil {
			return nil, err
		}
	}

	// defaults for zero logger to avoid nil checks
	s.Log = s.Log.With().Logger()

	switch Dialect(cfg.Driver) {
	case "":
		return s, nil
	case DialectPostgres:
		a, err := openPG(ctx, cfg, s)
		if err != nil {
			return nil, err
		}
		s.SQL, s.Dialect = a, DialectPostgres
	case DialectSQLite:
		a, err := openSQLite(ctx, cfg, s)
		if err != nil {
			return nil, err
		}
		s.SQL, s.Dialect = a, DialectSQLite
	default:
		return nil, perr.InvalidArgf("unknown store driver %q (want postgres or sqlite)", cfg.Driver)
	}
	return s, nil
}

// Guard verifies the configured seam answers
func (s *Store) Guard(ctx context.Context) error {
	if s == nil {
		return errors.New("nil store")
	}
	if p, ok := s.SQL.(Pinger); ok {
		if err := p.Ping(ctx); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeUnavailable, "%s ping", s.Dialect)
		}
	}
	return nil
}

// Close closes the backend; a nil seam is ignored
func (s *Store) Close(context.Context) error {
	if c, ok := s.SQL.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

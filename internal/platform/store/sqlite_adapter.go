package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// sqlAdapter runs the same RowQuerier surface over database/sql for the sqlite ledger.
// Statements are written with $n placeholders and rebound to ?n
type sqlAdapter struct {
	db *sql.DB
	emitter
}

func newSQLAdapter(db *sql.DB, e emitter) *sqlAdapter { return &sqlAdapter{db: db, emitter: e} }

func (a *sqlAdapter) Ping(ctx context.Context) error { return a.db.PingContext(ctx) }

func (a *sqlAdapter) Close() error { return a.db.Close() }

func (a *sqlAdapter) Exec(ctx context.Context, q string, args ...any) (CommandTag, error) {
	return execOn(ctx, a.db, a.emitter, q, args)
}

func (a *sqlAdapter) Query(ctx context.Context, q string, args ...any) (Rows, error) {
	return queryOn(ctx, a.db, a.emitter, q, args)
}

func (a *sqlAdapter) QueryRow(ctx context.Context, q string, args ...any) Row {
	return queryRowOn(ctx, a.db, a.emitter, q, args)
}

func (a *sqlAdapter) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(sqlTx{tx: tx, emitter: a.emitter}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type sqlTx struct {
	tx *sql.Tx
	emitter
}

func (t sqlTx) Exec(ctx context.Context, q string, args ...any) (CommandTag, error) {
	return execOn(ctx, t.tx, t.emitter, q, args)
}

func (t sqlTx) Query(ctx context.Context, q string, args ...any) (Rows, error) {
	return queryOn(ctx, t.tx, t.emitter, q, args)
}

func (t sqlTx) QueryRow(ctx context.Context, q string, args ...any) Row {
	return queryRowOn(ctx, t.tx, t.emitter, q, args)
}

// conn is what *sql.DB and *sql.Tx share
type conn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func execOn(ctx context.Context, c conn, e emitter, q string, args []any) (CommandTag, error) {
	start := time.Now()
	res, err := c.ExecContext(ctx, Rebind(q), args...)
	e.emit(ctx, q, args, start, err)
	if err != nil {
		return nil, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	return sqlTag{verb: verb(q), n: n}, nil
}

func queryOn(ctx context.Context, c conn, e emitter, q string, args []any) (Rows, error) {
	start := time.Now()
	rs, err := c.QueryContext(ctx, Rebind(q), args...)
	e.emit(ctx, q, args, start, err)
	if err != nil {
		return nil, err
	}
	return sqlRows{r: rs}, nil
}

func queryRowOn(ctx context.Context, c conn, e emitter, q string, args []any) Row {
	start := time.Now()
	r := c.QueryRowContext(ctx, Rebind(q), args...)
	return sqlRow{r: r, after: func(err error) { e.emit(ctx, q, args, start, err) }}
}

type sqlRow struct {
	r     *sql.Row
	after func(error)
}

func (x sqlRow) Scan(dst ...any) error {
	err := x.r.Scan(dst...)
	if errors.Is(err, sql.ErrNoRows) {
		err = ErrNoRows
	}
	if x.after != nil {
		x.after(err)
	}
	return err
}

type sqlRows struct{ r *sql.Rows }

func (x sqlRows) Next() bool            { return x.r.Next() }
func (x sqlRows) Scan(dst ...any) error { return x.r.Scan(dst...) }
func (x sqlRows) Err() error            { return x.r.Err() }
func (x sqlRows) Close()                { _ = x.r.Close() }
func (x sqlRows) Columns() []string {
	cols, _ := x.r.Columns()
	return cols
}

type sqlTag struct {
	verb string
	n    int64
}

func (t sqlTag) String() string      { return fmt.Sprintf("%s %d", t.verb, t.n) }
func (t sqlTag) RowsAffected() int64 { return t.n }

func verb(q string) string {
	f := strings.Fields(q)
	if len(f) == 0 {
		return ""
	}
	return strings.ToUpper(f[0])
}

// Rebind turns $1..$n placeholders into sqlite's ?1..?n, leaving quoted text alone
func Rebind(q string) string {
	if !strings.Contains(q, "$") {
		return q
	}
	var b strings.Builder
	b.Grow(len(q))
	var quote byte
	for i := 0; i < len(q); i++ {
		c := q[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '\'' || c == '"':
			quote = c
		case c == '$' && i+1 < len(q) && q[i+1] >= '0' && q[i+1] <= '9':
			c = '?'
		}
		b.WriteByte(c)
	}
	return b.String()
}

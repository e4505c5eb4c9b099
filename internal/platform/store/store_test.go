package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	perr "constkit/internal/platform/errors"
	"constkit/internal/platform/store/pg"
	"constkit/internal/platform/testkit"

	"github.com/jackc/pgx/v5/pgxpool"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	s, err := Open(context.Background(), Config{
		Driver: string(DialectSQLite),
		SQLite: SQLiteConfig{Path: filepath.Join(t.TempDir(), "ledger.db")},
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	if _, err := s.SQL.Exec(context.Background(),
		`CREATE TABLE kv (k TEXT PRIMARY KEY, v INTEGER NOT NULL CHECK (v >= 0))`); err != nil {
		t.Fatalf("create: %v", err)
	}
	return s
}

type kv struct {
	K string
	V int
}

func scanKV(r Row) (kv, error) {
	var x kv
	err := r.Scan(&x.K, &x.V)
	return x, err
}

func TestOpen_NoDriver(t *testing.T) {
	s, err := Open(context.Background(), Config{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.SQL != nil {
		t.Fatalf("expected no sql seam")
	}
	if err := s.Guard(context.Background()); err != nil {
		t.Fatalf("guard: %v", err)
	}
	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle"})
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("want invalid argument, got %v", err)
	}
}

func TestSQLite_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)
	if s.Dialect != DialectSQLite {
		t.Fatalf("dialect = %q", s.Dialect)
	}
	if err := s.Guard(ctx); err != nil {
		t.Fatalf("guard: %v", err)
	}

	if err := ExecOne(ctx, s.SQL, `INSERT INTO kv (k, v) VALUES ($1, $2)`, "a", 1); err != nil {
		t.Fatalf("insert a: %v", err)
	}
	if err := ExecOne(ctx, s.SQL, `INSERT INTO kv (k, v) VALUES ($1, $2)`, "b", 2); err != nil {
		t.Fatalf("insert b: %v", err)
	}

	n, err := Scalar[int](ctx, s.SQL, `SELECT COUNT(*) FROM kv`)
	if err != nil || n != 2 {
		t.Fatalf("count = %d, %v", n, err)
	}

	got, err := One(ctx, s.SQL, scanKV, `SELECT k, v FROM kv WHERE k = $1`, "b")
	if err != nil || got.V != 2 {
		t.Fatalf("one = %+v, %v", got, err)
	}

	all, err := Many(ctx, s.SQL, scanKV, `SELECT k, v FROM kv ORDER BY k`)
	if err != nil || len(all) != 2 || all[0].K != "a" {
		t.Fatalf("many = %+v, %v", all, err)
	}

	if _, err := One(ctx, s.SQL, scanKV, `SELECT k, v FROM kv WHERE k = $1`, "zz"); !errors.Is(err, ErrNoRows) {
		t.Fatalf("want ErrNoRows, got %v", err)
	}
	var v int
	if err := s.SQL.QueryRow(ctx, `SELECT v FROM kv WHERE k = $1`, "zz").Scan(&v); !errors.Is(err, ErrNoRows) {
		t.Fatalf("QueryRow: want ErrNoRows, got %v", err)
	}

	if err := ExecOne(ctx, s.SQL, `UPDATE kv SET v = v + 1`); err == nil {
		t.Fatalf("ExecOne should reject two affected rows")
	}
}

func TestSQLite_TxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	boom := errors.New("boom")
	err := s.SQL.Tx(ctx, func(q RowQuerier) error {
		if _, err := q.Exec(ctx, `INSERT INTO kv (k, v) VALUES ($1, $2)`, "a", 1); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}
	n, _ := Scalar[int](ctx, s.SQL, `SELECT COUNT(*) FROM kv`)
	if n != 0 {
		t.Fatalf("rollback lost: %d rows", n)
	}

	err = s.SQL.Tx(ctx, func(q RowQuerier) error {
		return ExecOne(ctx, q, `INSERT INTO kv (k, v) VALUES ($1, $2)`, "a", 1)
	})
	if err != nil {
		t.Fatalf("commit: %v", err)
	}
	n, _ = Scalar[int](ctx, s.SQL, `SELECT COUNT(*) FROM kv`)
	if n != 1 {
		t.Fatalf("commit lost: %d rows", n)
	}
}

func TestDBErrorf_SQLite(t *testing.T) {
	ctx := context.Background()
	s := openTemp(t)

	_, err := s.SQL.Exec(ctx, `INSERT INTO kv (k, v) VALUES ($1, $2)`, "a", 1)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	_, err = s.SQL.Exec(ctx, `INSERT INTO kv (k, v) VALUES ($1, $2)`, "a", 2)
	if got := DBErrorf(err, "insert a"); !perr.IsCode(got, perr.ErrorCodeDuplicateKey) {
		t.Fatalf("want duplicate key, got %v (%v)", perr.CodeOf(got), got)
	}

	_, err = s.SQL.Exec(ctx, `INSERT INTO kv (k, v) VALUES ($1, $2)`, "b", -1)
	if got := DBErrorf(err, "insert b"); !perr.IsCode(got, perr.ErrorCodeValidation) {
		t.Fatalf("want validation, got %v (%v)", perr.CodeOf(got), got)
	}

	if DBErrorf(nil, "x") != nil {
		t.Fatalf("nil should stay nil")
	}
	if got := DBErrorf(ErrNoRows, "find"); !perr.IsCode(got, perr.ErrorCodeNotFound) {
		t.Fatalf("coded errors keep their code, got %v", perr.CodeOf(got))
	}
}

func TestRebind(t *testing.T) {
	cases := map[string]string{
		`SELECT 1`:                            `SELECT 1`,
		`WHERE a = $1 AND b = $2`:             `WHERE a = ?1 AND b = ?2`,
		`VALUES ($1, '$2 stays', $3)`:         `VALUES (?1, '$2 stays', ?3)`,
		`SELECT "$col$" FROM t WHERE x = $10`: `SELECT "$col$" FROM t WHERE x = ?10`,
		`SELECT $ FROM t`:                     `SELECT $ FROM t`,
	}
	for in, want := range cases {
		if got := Rebind(in); got != want {
			t.Fatalf("Rebind(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestOpenPG_RetriesThenGivesUp(t *testing.T) {
	testkit.Serial(t)

	testkit.Swap(t, &openPool, func(context.Context, pg.Config, func(*pgxpool.Config)) (*pg.PG, error) {
		return nil, errors.New("bad url")
	})
	_, err := Open(context.Background(), Config{Driver: string(DialectPostgres)})
	if !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("want invalid argument, got %v", err)
	}
}

func TestOpenSQLite_Error(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: string(DialectSQLite)})
	if !perr.IsCode(err, perr.ErrorCodeIO) {
		t.Fatalf("want io, got %v", err)
	}
}

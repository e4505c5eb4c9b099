//go:build integration_pg
// +build integration_pg

package repo

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"constkit/internal/core/analyzer"
	perr "constkit/internal/platform/errors"
	"constkit/internal/platform/store"
	"constkit/internal/services/review/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// startPostgres launches a disposable Postgres and returns DSN + stop func
func startPostgres(t *testing.T) (dsn string, stop func()) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)

	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_DB":       "postgres",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections"),
		).WithDeadline(2 * time.Minute),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		cancel()
		t.Fatalf("failed to start postgres container: %v", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get container host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get mapped port: %v", err)
	}

	dsn = fmt.Sprintf("postgres://postgres:postgres@%s:%s/postgres?sslmode=disable", host, mapped.Port())
	stop = func() {
		_ = c.Terminate(context.Background())
		cancel()
	}
	return dsn, stop
}

func TestPostgresLedger_Integration(t *testing.T) {
	dsn, stop := startPostgres(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	st, err := store.Open(ctx, store.Config{
		AppName: "constkit-ledger-integration",
		Driver:  string(store.DialectPostgres),
		PG:      store.PGConfig{URL: dsn, MaxConns: 4, ConnectRetries: 10},
	})
	require.NoError(t, err)
	defer func() { _ = st.Close(ctx) }()
	require.NoError(t, st.Guard(ctx))

	require.NoError(t, Migrate(ctx, st.SQL))
	require.NoError(t, Migrate(ctx, st.SQL))
	run := SQLRunner(st.SQL, NewSQL())

	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, run.InTx(ctx, func(s Storage) error {
		if err := s.Upsert(ctx, domain.Review{
			Fingerprint: "0123456789abcdef", State: analyzer.StateReviewed, FilePath: "a.go", UpdatedAt: now,
		}, analyzer.StateDiscovered); err != nil {
			return err
		}
		return s.AppendEvent(ctx, domain.Event{
			ID: "ev-1", Fingerprint: "0123456789abcdef",
			From: analyzer.StateDiscovered, To: analyzer.StateReviewed, At: now,
		})
	}))

	got, err := run.Read().Get(ctx, "0123456789abcdef")
	require.NoError(t, err)
	assert.Equal(t, analyzer.StateReviewed, got.State)
	assert.True(t, got.UpdatedAt.Equal(now))

	states, err := run.Read().States(ctx, []string{"0123456789abcdef", "missing"})
	require.NoError(t, err)
	assert.Len(t, states, 1)

	// the state CHECK constraint surfaces as a validation error
	err = run.InTx(ctx, func(s Storage) error {
		return s.Upsert(ctx, domain.Review{Fingerprint: "fedcba9876543210", State: "LOST", UpdatedAt: now}, analyzer.StateDiscovered)
	})
	require.Error(t, err)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeValidation))

	// duplicate event ids surface as duplicate keys
	err = run.InTx(ctx, func(s Storage) error {
		return s.AppendEvent(ctx, domain.Event{
			ID: "ev-1", Fingerprint: "0123456789abcdef",
			From: analyzer.StateReviewed, To: analyzer.StateApplied, At: now,
		})
	})
	require.Error(t, err)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeDuplicateKey))
}

// Two writers read the same REVIEWED row before either commits. The second upsert waits on the
// row lock, then finds the state moved and is refused instead of overwriting it.
func TestPostgresLedger_ConcurrentMoves(t *testing.T) {
	dsn, stop := startPostgres(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	st, err := store.Open(ctx, store.Config{
		AppName: "constkit-ledger-race",
		Driver:  string(store.DialectPostgres),
		PG:      store.PGConfig{URL: dsn, MaxConns: 4, ConnectRetries: 10},
	})
	require.NoError(t, err)
	defer func() { _ = st.Close(ctx) }()
	require.NoError(t, Migrate(ctx, st.SQL))
	run := SQLRunner(st.SQL, NewSQL())

	const fp = "aaaabbbbccccdddd"
	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, run.InTx(ctx, func(s Storage) error {
		if err := s.Upsert(ctx, domain.Review{Fingerprint: fp, State: analyzer.StateReviewed, UpdatedAt: now},
			analyzer.StateDiscovered); err != nil {
			return err
		}
		return s.AppendEvent(ctx, domain.Event{
			ID: "seed", Fingerprint: fp, From: analyzer.StateDiscovered, To: analyzer.StateReviewed, At: now,
		})
	}))

	targets := []analyzer.State{analyzer.StateApplied, analyzer.StateRejected}
	var (
		read sync.WaitGroup
		done sync.WaitGroup
		errs = make([]error, len(targets))
	)
	read.Add(len(targets))
	done.Add(len(targets))
	for i, to := range targets {
		go func() {
			defer done.Done()
			errs[i] = run.InTx(ctx, func(s Storage) error {
				cur, err := s.Get(ctx, fp)
				read.Done()
				if err != nil {
					return err
				}
				read.Wait()
				if err := analyzer.Transition(cur.State, to); err != nil {
					return err
				}
				at := now.Add(time.Duration(i+1) * time.Second)
				if err := s.Upsert(ctx, domain.Review{Fingerprint: fp, State: to, UpdatedAt: at}, cur.State); err != nil {
					return err
				}
				return s.AppendEvent(ctx, domain.Event{
					ID: fmt.Sprintf("move-%d", i), Fingerprint: fp, From: cur.State, To: to, At: at,
				})
			})
		}()
	}
	done.Wait()

	var won, refused int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case perr.Is(err, analyzer.ErrInvalidTransition):
			refused++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, refused)

	got, err := run.Read().Get(ctx, fp)
	require.NoError(t, err)
	assert.Contains(t, targets, got.State)

	evs, err := run.Read().Events(ctx, fp)
	require.NoError(t, err)
	require.Len(t, evs, 2, "seed plus the one move that landed")
	assert.Equal(t, analyzer.StateReviewed, evs[1].From)
	assert.Equal(t, got.State, evs[1].To)
}

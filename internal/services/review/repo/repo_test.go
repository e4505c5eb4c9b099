package repo

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"constkit/internal/core/analyzer"
	perr "constkit/internal/platform/errors"
	"constkit/internal/platform/store"
	"constkit/internal/services/review/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T) Runner {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(ctx, store.Config{
		Driver: string(store.DialectSQLite),
		SQLite: store.SQLiteConfig{Path: filepath.Join(t.TempDir(), "ledger.db")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close(ctx) })
	require.NoError(t, Migrate(ctx, st.SQL))
	// idempotent
	require.NoError(t, Migrate(ctx, st.SQL))
	return SQLRunner(st.SQL, NewSQL())
}

func runners(t *testing.T) map[string]func(*testing.T) Runner {
	return map[string]func(*testing.T) Runner{
		"sqlite": openSQLite,
		"memory": func(*testing.T) Runner { return NewMemory() },
	}
}

func write(t *testing.T, run Runner, r domain.Review, from analyzer.State, id string) {
	t.Helper()
	require.NoError(t, run.InTx(context.Background(), func(s Storage) error {
		if err := s.Upsert(context.Background(), r, from); err != nil {
			return err
		}
		return s.AppendEvent(context.Background(), domain.Event{
			ID: id, Fingerprint: r.Fingerprint, From: from, To: r.State, Note: r.Note, At: r.UpdatedAt,
		})
	}))
}

func TestLedgerStorage(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, open := range runners(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			run := open(t)

			_, err := run.Read().Get(ctx, "aaaaaaaaaaaaaaaa")
			require.Error(t, err)
			assert.True(t, perr.IsCode(err, perr.ErrorCodeNotFound))

			write(t, run, domain.Review{
				Fingerprint: "aaaaaaaaaaaaaaaa", State: analyzer.StateReviewed,
				FilePath: "src/a.ts", AtomicID: "time_ms:1", UpdatedAt: t0,
			}, analyzer.StateDiscovered, "e1")
			write(t, run, domain.Review{
				Fingerprint: "aaaaaaaaaaaaaaaa", State: analyzer.StateApplied,
				Note: "moved to DEFAULT_TIMEOUT_MS", UpdatedAt: t0.Add(time.Minute),
			}, analyzer.StateReviewed, "e2")
			write(t, run, domain.Review{
				Fingerprint: "bbbbbbbbbbbbbbbb", State: analyzer.StateReviewed, UpdatedAt: t0.Add(2 * time.Minute),
			}, analyzer.StateDiscovered, "e3")

			got, err := run.Read().Get(ctx, "aaaaaaaaaaaaaaaa")
			require.NoError(t, err)
			assert.Equal(t, analyzer.StateApplied, got.State)
			assert.Equal(t, "moved to DEFAULT_TIMEOUT_MS", got.Note)
			assert.Equal(t, "src/a.ts", got.FilePath, "blank file path keeps the earlier one")
			assert.Equal(t, "time_ms:1", got.AtomicID)
			assert.True(t, got.UpdatedAt.Equal(t0.Add(time.Minute)))

			all, err := run.Read().List(ctx, domain.Filter{})
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "bbbbbbbbbbbbbbbb", all[0].Fingerprint, "newest first")

			reviewed, err := run.Read().List(ctx, domain.Filter{State: analyzer.StateReviewed, Limit: 10})
			require.NoError(t, err)
			require.Len(t, reviewed, 1)
			assert.Equal(t, "bbbbbbbbbbbbbbbb", reviewed[0].Fingerprint)

			limited, err := run.Read().List(ctx, domain.Filter{Limit: 1})
			require.NoError(t, err)
			assert.Len(t, limited, 1)

			evs, err := run.Read().Events(ctx, "aaaaaaaaaaaaaaaa")
			require.NoError(t, err)
			require.Len(t, evs, 2)
			assert.Equal(t, analyzer.StateDiscovered, evs[0].From)
			assert.Equal(t, analyzer.StateApplied, evs[1].To)
			assert.Empty(t, evs[0].Note)

			states, err := run.Read().States(ctx, []string{"aaaaaaaaaaaaaaaa", "bbbbbbbbbbbbbbbb", "cccccccccccccccc"})
			require.NoError(t, err)
			assert.Equal(t, map[string]analyzer.State{
				"aaaaaaaaaaaaaaaa": analyzer.StateApplied,
				"bbbbbbbbbbbbbbbb": analyzer.StateReviewed,
			}, states)

			empty, err := run.Read().States(ctx, nil)
			require.NoError(t, err)
			assert.Empty(t, empty)
		})
	}
}

func TestLedgerStorage_RollsBack(t *testing.T) {
	boom := errors.New("boom")

	for name, open := range runners(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			run := open(t)

			err := run.InTx(ctx, func(s Storage) error {
				if err := s.Upsert(ctx, domain.Review{
					Fingerprint: "dddddddddddddddd", State: analyzer.StateReviewed, UpdatedAt: time.Now(),
				}, analyzer.StateDiscovered); err != nil {
					return err
				}
				return boom
			})
			require.ErrorIs(t, err, boom)

			_, err = run.Read().Get(ctx, "dddddddddddddddd")
			assert.True(t, perr.IsCode(err, perr.ErrorCodeNotFound))
		})
	}
}

func TestLedgerStorage_RefusesStaleFromState(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for name, open := range runners(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			run := open(t)
			write(t, run, domain.Review{
				Fingerprint: "9999999999999999", State: analyzer.StateReviewed, UpdatedAt: t0,
			}, analyzer.StateDiscovered, "s1")

			// a writer that read DISCOVERED before the row moved on
			err := run.InTx(ctx, func(s Storage) error {
				return s.Upsert(ctx, domain.Review{
					Fingerprint: "9999999999999999", State: analyzer.StateRejected, UpdatedAt: t0.Add(time.Minute),
				}, analyzer.StateDiscovered)
			})
			require.ErrorIs(t, err, analyzer.ErrInvalidTransition)
			assert.True(t, perr.IsCode(err, perr.ErrorCodeConflict))

			got, err := run.Read().Get(ctx, "9999999999999999")
			require.NoError(t, err)
			assert.Equal(t, analyzer.StateReviewed, got.State)

			write(t, run, domain.Review{
				Fingerprint: "9999999999999999", State: analyzer.StateApplied, UpdatedAt: t0.Add(2 * time.Minute),
			}, analyzer.StateReviewed, "s2")
			got, err = run.Read().Get(ctx, "9999999999999999")
			require.NoError(t, err)
			assert.Equal(t, analyzer.StateApplied, got.State)
		})
	}
}

func TestLedgerStorage_RejectsOrphanEvent(t *testing.T) {
	for name, open := range runners(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			err := open(t).InTx(ctx, func(s Storage) error {
				return s.AppendEvent(ctx, domain.Event{
					ID: "x", Fingerprint: "eeeeeeeeeeeeeeee",
					From: analyzer.StateDiscovered, To: analyzer.StateReviewed, At: time.Now(),
				})
			})
			require.Error(t, err)
		})
	}
}

func TestSQLite_CheckConstraintMapsToValidation(t *testing.T) {
	ctx := context.Background()
	run := openSQLite(t)
	err := run.InTx(ctx, func(s Storage) error {
		return s.Upsert(ctx, domain.Review{Fingerprint: "ffffffffffffffff", State: "LOST", UpdatedAt: time.Now()}, analyzer.StateDiscovered)
	})
	require.Error(t, err)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeValidation), "got %v", perr.CodeOf(err))
}

func TestSQL_StatesChunks(t *testing.T) {
	ctx := context.Background()
	run := openSQLite(t)

	fps := make([]string, 0, statesChunk+3)
	for i := 0; i < statesChunk+3; i++ {
		fps = append(fps, "fp-"+time.Duration(i).String())
	}
	last := fps[len(fps)-1]
	write(t, run, domain.Review{Fingerprint: last, State: analyzer.StateRejected, UpdatedAt: time.Now()},
		analyzer.StateReviewed, "only")

	states, err := run.Read().States(ctx, fps)
	require.NoError(t, err)
	assert.Equal(t, map[string]analyzer.State{last: analyzer.StateRejected}, states)
}

func TestMemory_WriteOutsideTx(t *testing.T) {
	err := NewMemory().Read().Upsert(context.Background(), domain.Review{Fingerprint: "x"}, analyzer.StateDiscovered)
	require.Error(t, err)
}

package module

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"constkit/internal/core/analyzer"
	"constkit/internal/modkit"
	"constkit/internal/platform/config"
	phttp "constkit/internal/platform/net/http"
	"constkit/internal/platform/store"
	"constkit/internal/services/review/domain"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	StatusCode int             `json:"status_code"`
	Field      string          `json:"field"`
	Data       json.RawMessage `json:"data"`
}

func serve(t *testing.T, m modkit.Module) *chi.Mux {
	t.Helper()
	mux := chi.NewRouter()
	m.MountRoutes(phttp.AdaptChi(mux))
	return mux
}

func get(t *testing.T, h http.Handler, path string) envelope {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func TestFromConfig_Defaults(t *testing.T) {
	t.Setenv("CONSTKIT_LEDGER_DRIVER", "")
	opts := FromConfig(config.App())
	assert.Equal(t, string(store.DialectSQLite), opts.Store.Driver)
	assert.Equal(t, DefaultLedgerPath, opts.Store.SQLite.Path)
	assert.Equal(t, 200, opts.ListLimit)
	assert.Equal(t, 3, opts.WriteAttempts)

	t.Setenv("CONSTKIT_LEDGER_DRIVER", "memory")
	t.Setenv("CONSTKIT_LEDGER_LIST_LIMIT", "7")
	t.Setenv("CONSTKIT_LEDGER_WRITE_BACKOFF", "10ms")
	opts = FromConfig(config.App())
	assert.Equal(t, "memory", opts.Store.Driver)
	assert.Equal(t, 7, opts.ListLimit)
	assert.Equal(t, 10*time.Millisecond, opts.WriteBackoff)
}

func TestModule_SQLiteLedgerOverHTTP(t *testing.T) {
	ctx := context.Background()
	opts := FromConfig(config.App())
	opts.Store.Driver = string(store.DialectSQLite)
	opts.Store.SQLite.Path = filepath.Join(t.TempDir(), "nested", "ledger.db")

	st, err := OpenStore(ctx, opts, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close(ctx) })

	m := New(modkit.Deps{Cfg: config.App(), DB: st.SQL, Dialect: st.Dialect})
	assert.Equal(t, "review", m.Name())

	ports := modkit.MustPortsOf[domain.LedgerPort](m)
	_, err = ports.Record(ctx, domain.Transition{Fingerprint: "0123456789abcdef", To: analyzer.StateReviewed})
	require.NoError(t, err)

	mux := serve(t, m)

	env := get(t, mux, "/reviews/0123456789abcdef")
	require.Equal(t, http.StatusOK, env.StatusCode)
	var r domain.Review
	require.NoError(t, json.Unmarshal(env.Data, &r))
	assert.Equal(t, analyzer.StateReviewed, r.State)

	env = get(t, mux, "/reviews/0123456789abcdef/history")
	var evs []domain.Event
	require.NoError(t, json.Unmarshal(env.Data, &evs))
	require.Len(t, evs, 1)
	assert.Equal(t, analyzer.StateDiscovered, evs[0].From)

	env = get(t, mux, "/reviews/?state=reviewed")
	var list []domain.Review
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 1)

	env = get(t, mux, "/reviews/?state=bogus")
	assert.Equal(t, http.StatusUnprocessableEntity, env.StatusCode)
	assert.Equal(t, "state", env.Field)

	env = get(t, mux, "/reviews/?limit=-1")
	assert.Equal(t, http.StatusUnprocessableEntity, env.StatusCode)
	assert.Equal(t, "limit", env.Field)
}

func TestModule_MemoryLedger(t *testing.T) {
	ctx := context.Background()
	opts := FromConfig(config.App())
	opts.Store.Driver = "memory"

	st, err := OpenStore(ctx, opts, nil)
	require.NoError(t, err)
	assert.Nil(t, st.SQL)

	m := New(modkit.Deps{Cfg: config.App(), DB: st.SQL})
	ann := modkit.MustPortsOf[domain.AnnotatorPort](m)
	occ := []analyzer.Occurrence{{Fingerprint: "0123456789abcdef"}}
	require.NoError(t, ann.Annotate(ctx, occ))
	assert.Equal(t, analyzer.StateDiscovered, occ[0].State)

	env := get(t, serve(t, m), "/reviews/0123456789abcdef")
	var r domain.Review
	require.NoError(t, json.Unmarshal(env.Data, &r))
	assert.Equal(t, analyzer.StateDiscovered, r.State)
}

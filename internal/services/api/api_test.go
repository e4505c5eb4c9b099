package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"constkit/internal/core/catalog"
	"constkit/internal/platform/config"
	"constkit/internal/platform/metrics"
	phttp "constkit/internal/platform/net/http"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	StatusCode int             `json:"status_code"`
	Code       int             `json:"code"`
	Field      string          `json:"field"`
	RequestID  string          `json:"request_id"`
	Data       json.RawMessage `json:"data"`
}

type fixture struct {
	path    string
	holder  *catalog.Holder
	metrics *metrics.Metrics
	h       http.Handler
}

func writeCatalog(t *testing.T, path string, f *catalog.File) {
	t.Helper()
	b, err := catalog.Marshal(f)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o644))
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	writeCatalog(t, path, catalog.Default())

	g, err := catalog.Open(path)
	require.NoError(t, err)
	holder, err := catalog.NewHolder(g, catalog.FileLoader(path))
	require.NoError(t, err)

	m := metrics.New()
	mux := chi.NewRouter()
	Mount(phttp.AdaptChi(mux), Options{
		Config:  config.App(),
		Holder:  holder,
		Metrics: m,
	})
	return &fixture{path: path, holder: holder, metrics: m, h: mux}
}

func (f *fixture) do(t *testing.T, method, path string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	f.h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec, env
}

func data[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out), string(env.Data))
	return out
}

func TestHealthzAndRequestID(t *testing.T) {
	f := newFixture(t)
	rec, env := f.do(t, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, env.RequestID)
	got := data[map[string]any](t, env)
	assert.Equal(t, f.holder.Current().ID, got["generation"])
	assert.Equal(t, "no-cache, no-store, no-transform, must-revalidate, private, max-age=0", rec.Header().Get("Cache-Control"))
}

func TestValues(t *testing.T) {
	f := newFixture(t)

	_, env := f.do(t, http.MethodGet, "/v1/values")
	all := data[[]map[string]any](t, env)
	assert.Len(t, all, f.holder.Current().Registry.Len())

	_, env = f.do(t, http.MethodGet, "/v1/values?domain=quantity")
	qs := data[[]map[string]any](t, env)
	require.Len(t, qs, 3)
	assert.Equal(t, 3.0, qs[0]["value"])

	rec, env := f.do(t, http.MethodGet, "/v1/values?domain=fuel")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "domain", env.Field)
}

func TestBindingsBundlesAliases(t *testing.T) {
	f := newFixture(t)

	_, env := f.do(t, http.MethodGet, "/v1/bindings/DEFAULT_TIMEOUT_MS")
	b := data[map[string]any](t, env)
	assert.Equal(t, "time_ms", b["category"])
	assert.Equal(t, 30000.0, b["value"].(map[string]any)["value"])

	rec, _ := f.do(t, http.MethodGet, "/v1/bindings/NOPE")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, env = f.do(t, http.MethodGet, "/v1/bindings")
	assert.NotEmpty(t, data[[]map[string]any](t, env))

	_, env = f.do(t, http.MethodGet, "/v1/bundles")
	assert.Len(t, data[[]map[string]any](t, env), 2)

	_, env = f.do(t, http.MethodGet, "/v1/bundles/http_client")
	bundle := data[struct {
		Name   string           `json:"name"`
		Fields []map[string]any `json:"fields"`
	}](t, env)
	assert.Equal(t, "http_client", bundle.Name)
	require.Len(t, bundle.Fields, 4)
	assert.Equal(t, "content_type", bundle.Fields[0]["name"])

	rec, _ = f.do(t, http.MethodGet, "/v1/bundles/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, env = f.do(t, http.MethodGet, "/v1/aliases/REQUEST_TIMEOUT")
	a := data[map[string]any](t, env)
	assert.Equal(t, "DEFAULT_TIMEOUT_MS", a["semanticName"])

	rec, _ = f.do(t, http.MethodGet, "/v1/aliases/NOPE")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	_, env = f.do(t, http.MethodGet, "/v1/aliases")
	assert.Len(t, data[[]map[string]any](t, env), 2)
}

func TestValidateAndMetrics(t *testing.T) {
	f := newFixture(t)

	_, env := f.do(t, http.MethodGet, "/v1/validate")
	rep := data[map[string]any](t, env)
	assert.Equal(t, true, rep["passed"])

	rec, _ := f.do(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `constkit_validations_total{result="passed"} 1`)
	assert.Contains(t, body, `constkit_http_requests_total{method="GET",route="/v1/validate",status="200"} 1`)
}

func TestReload(t *testing.T) {
	f := newFixture(t)
	first := f.holder.Current().ID

	cf := catalog.Default()
	for i, v := range cf.Values {
		for _, b := range v.Bind {
			if b.Name == "DEFAULT_TIMEOUT_MS" {
				cf.Values[i].Value = "45000"
			}
		}
	}
	writeCatalog(t, f.path, cf)

	rec, env := f.do(t, http.MethodPost, "/v1/reload")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	gen := data[map[string]any](t, env)
	assert.NotEqual(t, first, gen["id"])

	// the legacy name follows the new generation
	_, env = f.do(t, http.MethodGet, "/v1/aliases/REQUEST_TIMEOUT")
	a := data[map[string]any](t, env)
	assert.Equal(t, 45000.0, a["value"].(map[string]any)["value"])

	// retargeting an exposed alias is refused and the generation stays
	cf.Aliases[0].Name = "QUICK_RESPONSE_MS"
	writeCatalog(t, f.path, cf)
	rec, _ = f.do(t, http.MethodPost, "/v1/reload")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, gen["id"], f.holder.Current().ID)

	rec, _ = f.do(t, http.MethodGet, "/v1/reload")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestMetaAndReviewsMounted(t *testing.T) {
	f := newFixture(t)

	_, env := f.do(t, http.MethodGet, "/v1/meta/version")
	assert.Equal(t, "constkit", data[map[string]any](t, env)["service"])

	_, env = f.do(t, http.MethodGet, "/v1/meta/ready")
	assert.Equal(t, "ok", data[map[string]any](t, env)["status"])

	_, env = f.do(t, http.MethodGet, "/v1/reviews/")
	assert.Empty(t, data[[]map[string]any](t, env))

	rec, env := f.do(t, http.MethodGet, "/v1/nothing-here")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, env.StatusCode)
}

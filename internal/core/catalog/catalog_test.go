package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"constkit/internal/core/analyzer"
	"constkit/internal/core/compose"
	"constkit/internal/core/legacy"
	"constkit/internal/core/registry"
	perr "constkit/internal/platform/errors"
	kit "constkit/internal/platform/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultBuilds(t *testing.T) {
	g, err := Open("")
	require.NoError(t, err)
	assert.NotEmpty(t, g.ID)
	assert.Equal(t, "embedded", g.Source)
	assert.True(t, g.Registry.Frozen())
	assert.True(t, g.Layer.Sealed())

	b, ok := g.Composer.Bundle("http_client")
	require.True(t, ok)
	backoff, err := b.Int64("retry_backoff")
	require.NoError(t, err)
	assert.EqualValues(t, 2000, backoff)
	d, err := b.Duration("timeout")
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, d)

	assert.Len(t, g.Aliases, 2)

	rep, err := g.Validate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, rep.Violations, rep.String())
	assert.True(t, rep.Passed)
	assert.True(t, g.Report.Passed, "phase 2 runs the catalog's own rules")
	assert.NoError(t, g.Check())
}

func TestParse_Rejects(t *testing.T) {
	cases := map[string]string{
		"unknown key":    "values: []\nextra: 1\n",
		"bad domain":     "values:\n  - {domain: money, value: 1, description: x}\n",
		"no description": "values:\n  - {domain: quantity, value: 1}\n",
		"bad bind name":  "values:\n  - {domain: quantity, value: 1, description: x, bind: [{name: 1abc}]}\n",
		"map value":      "values:\n  - {domain: quantity, value: {a: 1}, description: x}\n",
		"version":        "version: 2\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedCatalog)
			assert.True(t, perr.IsCode(err, perr.ErrorCodeValidation))
		})
	}
}

func TestParse_EmptyIsEmptyCatalog(t *testing.T) {
	f, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, f.Version)
	assert.Empty(t, f.Values)
}

func TestScalar_KeepsSourceText(t *testing.T) {
	f, err := Parse([]byte("values:\n  - {domain: time_ms, value: 30_000, description: timeout}\n"))
	require.NoError(t, err)
	assert.Equal(t, Scalar("30_000"), f.Values[0].Value)
}

func TestBuild_ErrorsNameTheSource(t *testing.T) {
	f := &File{
		Values: []ValueSpec{
			{Domain: "quantity", Value: "100", Description: "page size", Bind: []BindSpec{{Name: "PAGE"}}},
			{Domain: "quantity", Value: "100", Description: "batch size"},
		},
	}
	_, err := Build(f, "broken.yaml")
	require.ErrorIs(t, err, registry.ErrDuplicateValue)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeIntegrity))
	kit.MustContain(t, err.Error(), "broken.yaml")

	f = &File{
		Values:  []ValueSpec{{Domain: "quantity", Value: "100", Description: "page size", Bind: []BindSpec{{Name: "PAGE"}}}},
		Bundles: []BundleSpec{{Name: "paging", Fields: map[string]string{"size": "100"}}},
	}
	_, err = Build(f, "raw.yaml")
	require.ErrorIs(t, err, compose.ErrRawLiteralDerivation)

	f = &File{
		Values:  []ValueSpec{{Domain: "quantity", Value: "100", Description: "page size", Bind: []BindSpec{{Name: "PAGE"}}}},
		Aliases: []AliasSpec{{Old: "OLD", Name: "MISSING"}},
	}
	_, err = Build(f, "alias.yaml")
	require.Error(t, err)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeNotFound))
}

func TestGeneration_Analyzer(t *testing.T) {
	g, err := Open("")
	require.NoError(t, err)
	a, err := g.Analyzer(analyzer.Options{})
	require.NoError(t, err)

	occ := a.ScanText("client.go", "c := http.Client{Timeout: 30000 * time.Millisecond}\n")
	require.Len(t, occ, 1)
	assert.Equal(t, "DEFAULT_TIMEOUT_MS", a.ConstantName(occ[0].MatchedAtomicID))
}

func writeCatalog(t *testing.T, dir, value string) string {
	t.Helper()
	doc := "values:\n" +
		"  - domain: quantity\n    value: " + value + "\n    description: page size\n    bind: [{name: PAGE_SIZE}]\n" +
		"aliases:\n  - {old: OLD_PAGE, name: PAGE_SIZE}\n"
	p := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(p, []byte(doc), 0o644))
	return p
}

func TestHolder_ReloadReachesAliases(t *testing.T) {
	dir := t.TempDir()
	p := writeCatalog(t, dir, "10")

	g, err := Open(p)
	require.NoError(t, err)
	h, err := NewHolder(g, FileLoader(p))
	require.NoError(t, err)

	v, err := h.Bridge().Resolve("OLD_PAGE")
	require.NoError(t, err)
	assert.Equal(t, "10", v.Value.String())

	writeCatalog(t, dir, "20")
	g2, err := h.Reload(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, g.ID, g2.ID)
	assert.Same(t, g2, h.Current())

	v, err = h.Bridge().Resolve("OLD_PAGE")
	require.NoError(t, err)
	assert.Equal(t, "20", v.Value.String())
}

func TestHolder_RefusesGenerationDroppingAnAlias(t *testing.T) {
	g, err := Open("")
	require.NoError(t, err)
	h, err := NewHolder(g, nil)
	require.NoError(t, err)

	thin, err := Build(&File{Values: []ValueSpec{{Domain: "quantity", Value: "3", Description: "max retries",
		Bind: []BindSpec{{Name: "MAX_RETRIES"}}}}}, "thin")
	require.NoError(t, err)

	err = h.Swap(thin)
	require.Error(t, err)
	kit.MustContain(t, err.Error(), "REQUEST_TIMEOUT")
	assert.Same(t, g, h.Current())

	_, err = h.Reload(context.Background())
	assert.True(t, perr.IsCode(err, perr.ErrorCodeUnavailable))
}

func writeLoadCatalog(t *testing.T, path, light, moderate string) {
	t.Helper()
	doc := "values:\n" +
		"  - {domain: priority, value: " + light + ", description: light load, bind: [{name: LIGHT}]}\n" +
		"  - {domain: priority, value: " + moderate + ", description: moderate load, bind: [{name: MODERATE}]}\n" +
		"rules:\n  ordering:\n    - {left: LIGHT, op: \"<\", right: MODERATE}\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
}

func TestBuild_RecordsOwnRuleViolations(t *testing.T) {
	p := filepath.Join(t.TempDir(), "catalog.yaml")
	writeLoadCatalog(t, p, "80", "60")

	g, err := Open(p)
	require.NoError(t, err, "a catalog breaking its rules still bootstraps for validate to report")
	assert.False(t, g.Report.Passed)
	require.Len(t, g.Report.Violations, 1)
	err = g.Check()
	require.ErrorIs(t, err, ErrRulesFailed)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeIntegrity))
	kit.MustContain(t, err.Error(), "LIGHT")

	_, err = NewHolder(g, nil)
	require.ErrorIs(t, err, ErrRulesFailed)
}

func TestHolder_RefusesReloadBreakingRules(t *testing.T) {
	p := filepath.Join(t.TempDir(), "catalog.yaml")
	writeLoadCatalog(t, p, "60", "80")
	g, err := Open(p)
	require.NoError(t, err)
	h, err := NewHolder(g, FileLoader(p))
	require.NoError(t, err)

	writeLoadCatalog(t, p, "80", "60")
	_, err = h.Reload(context.Background())
	require.ErrorIs(t, err, ErrRulesFailed)
	assert.Same(t, g, h.Current())

	rep, err := h.Current().Validate(context.Background())
	require.NoError(t, err)
	assert.True(t, rep.Passed)
}

func TestHolder_RefusesRetarget(t *testing.T) {
	f := &File{
		Values: []ValueSpec{
			{Domain: "quantity", Value: "1", Description: "one", Bind: []BindSpec{{Name: "A"}}},
			{Domain: "quantity", Value: "2", Description: "two", Bind: []BindSpec{{Name: "B"}}},
		},
		Aliases: []AliasSpec{{Old: "OLD", Name: "A"}},
	}
	g, err := Build(f, "one")
	require.NoError(t, err)
	h, err := NewHolder(g, nil)
	require.NoError(t, err)

	f.Aliases = []AliasSpec{{Old: "OLD", Name: "B"}}
	g2, err := Build(f, "two")
	require.NoError(t, err)
	require.ErrorIs(t, h.Swap(g2), legacy.ErrDuplicateAlias)
	assert.Same(t, g, h.Current())
}

func TestLoadDir_MergesFragments(t *testing.T) {
	root := kit.WriteTree(t, map[string]string{
		"core.yaml": "values:\n  - {domain: quantity, value: 100, description: page size, bind: [{name: PAGE_SIZE}]}\n" +
			"rules:\n  range: [{name: PAGE_SIZE, min: 1}]\n",
		"http/timeouts.yaml": "values:\n  - {domain: time_ms, value: 30_000, description: timeout, bind: [{name: TIMEOUT_MS}]}\n" +
			"  - {domain: quantity, value: 100.0, description: page size, bind: [{name: LIST_LIMIT}]}\n" +
			"bundles:\n  - {name: http, fields: {timeout: TIMEOUT_MS}}\n",
		"legacy.json": `{"aliases": [{"old": "OLD_TIMEOUT", "name": "TIMEOUT_MS"}]}`,
		".git/x.yaml": "not: [valid",
		"README.md":   "ignored",
	})

	f, err := LoadDir(root)
	require.NoError(t, err)
	require.Len(t, f.Values, 2)
	assert.Equal(t, []BindSpec{{Name: "PAGE_SIZE"}, {Name: "LIST_LIMIT"}}, f.Values[0].Bind)
	require.Len(t, f.Bundles, 1)
	require.Len(t, f.Aliases, 1)
	require.Len(t, f.Rules.Range, 1)

	g, err := Open(root)
	require.NoError(t, err)
	v, err := g.Resolve("LIST_LIMIT")
	require.NoError(t, err)
	w, err := g.Resolve("PAGE_SIZE")
	require.NoError(t, err)
	assert.Equal(t, v.ID, w.ID)
}

func TestAssemble_Conflicts(t *testing.T) {
	core := &File{Values: []ValueSpec{{Domain: "quantity", Value: "100", Description: "page size"}}}

	_, err := Assemble(core, &File{Values: []ValueSpec{{Domain: "quantity", Value: "1e2", Description: "batch"}}})
	require.ErrorIs(t, err, registry.ErrDuplicateValue)

	_, err = Assemble(
		&File{Bundles: []BundleSpec{{Name: "b", Fields: map[string]string{"x": "A"}}}},
		&File{Bundles: []BundleSpec{{Name: "b", Fields: map[string]string{"x": "B"}}}},
	)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeConflict))

	_, err = Assemble(
		&File{Aliases: []AliasSpec{{Old: "O", Name: "A"}}},
		&File{Aliases: []AliasSpec{{Old: "O", Name: "B"}}},
	)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeConflict))
}

func TestResolveRoot(t *testing.T) {
	root := kit.WriteTree(t, map[string]string{
		"catalogs/1/core.yaml": "values: []\n",
		"catalogs/3/core.yaml": "values: []\n",
		"catalogs/x/core.yaml": "values: []\n",
	})
	got, _, err := ResolveRoot(filepath.Join(root, "catalogs"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "catalogs", "3"), got)

	t.Setenv("CONSTKIT_CATALOG_ROOT", "")
	_, attempts, err := ResolveRoot(filepath.Join(root, "nope"))
	require.Error(t, err)
	assert.True(t, perr.IsCode(err, perr.ErrorCodeNotFound))
	assert.Contains(t, attempts, filepath.Join(root, "nope"))
}

func TestMarshal_RoundTrips(t *testing.T) {
	out, err := Marshal(Default())
	require.NoError(t, err)
	f, err := Parse(out)
	require.NoError(t, err)
	_, err = Build(f, "roundtrip")
	require.NoError(t, err)
}

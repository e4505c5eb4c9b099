// Package catalog turns catalog files into generations: immutable, fully bootstrapped
// registry + bindings + bundles + aliases + rules, identified by a UUID.
//
// Bootstrap is two-phase. Phase 1 registers every value, freezes the registry, binds every
// name and seals the layer. Phase 2 composes bundles, checks aliases and runs the catalog's
// own rules. No phase-2 step can reach back into phase-1 state
package catalog

import (
	"context"
	"os"
	"time"

	"constkit/internal/core/analyzer"
	"constkit/internal/core/compose"
	"constkit/internal/core/legacy"
	"constkit/internal/core/registry"
	"constkit/internal/core/semantic"
	"constkit/internal/core/validate"
	perr "constkit/internal/platform/errors"
	"constkit/internal/platform/logger"

	"github.com/google/uuid"
)

// ErrRulesFailed means a generation breaks its own ordering, range, distinct or same rules
var ErrRulesFailed = perr.New(perr.ErrorCodeIntegrity, "catalog rules failed")

// Generation is one bootstrapped catalog
type Generation struct {
	ID       string
	Source   string
	BuiltAt  time.Time
	Registry *registry.Registry
	Layer    *semantic.Layer
	Composer *compose.Composer
	Rules    validate.RuleSet
	Aliases  []legacy.Alias
	// Report is the phase-2 run of Rules
	Report validate.Report
}

// Resolve resolves a semantic name in this generation
func (g *Generation) Resolve(name string) (registry.AtomicValue, error) {
	return g.Layer.Resolve(name)
}

// Validator returns a validator for the generation's rules plus extra
func (g *Generation) Validator(extra ...validate.RuleSet) *validate.Validator {
	rs := g.Rules
	for _, e := range extra {
		rs = rs.Merge(e)
	}
	return validate.New(g.Layer, rs)
}

// Validate runs the generation's rules
func (g *Generation) Validate(ctx context.Context, extra ...validate.RuleSet) (validate.Report, error) {
	return g.Validator(extra...).ValidateAll(ctx)
}

// Check returns ErrRulesFailed when phase 2 found violations of the generation's own rules
func (g *Generation) Check() error {
	if g.Report.Passed {
		return nil
	}
	if len(g.Report.Violations) == 0 {
		return perr.Detail(ErrRulesFailed, "catalog %s was not validated", g.Source)
	}
	return perr.Detail(ErrRulesFailed, "catalog %s: %d violation(s), first %s",
		g.Source, len(g.Report.Violations), g.Report.Violations[0])
}

// Analyzer returns an analyzer over the generation's frozen registry, naming suggestions
// after its bindings
func (g *Generation) Analyzer(opts analyzer.Options) (*analyzer.Analyzer, error) {
	return analyzer.New(g.Registry, g.Layer, opts)
}

// Build bootstraps f. source labels the generation in logs and errors
func Build(f *File, source string) (*Generation, error) {
	log := logger.Named("catalog")
	g := &Generation{ID: uuid.NewString(), Source: source, BuiltAt: time.Now().UTC(), Rules: f.Rules}

	// phase 1
	reg := registry.New()
	ids := make([]registry.ID, len(f.Values))
	for i, v := range f.Values {
		d, err := registry.ParseDomain(v.Domain)
		if err != nil {
			return nil, wrap(err, source)
		}
		id, err := reg.Register(d, string(v.Value), v.Description)
		if err != nil {
			return nil, wrap(err, source)
		}
		ids[i] = id
	}
	reg.Freeze()

	layer := semantic.New(reg)
	for i, v := range f.Values {
		for _, b := range v.Bind {
			if err := layer.Bind(b.Name, ids[i], b.Meaning); err != nil {
				return nil, wrap(err, source)
			}
		}
	}
	layer.Seal()

	// phase 2
	comp, err := compose.New(layer)
	if err != nil {
		return nil, wrap(err, source)
	}
	for _, b := range f.Bundles {
		if _, err := comp.Compose(b.Name, b.Fields); err != nil {
			return nil, wrap(err, source)
		}
	}

	bridge := legacy.New(layer)
	for _, a := range f.Aliases {
		if err := bridge.ExposeAlias(a.Old, a.Name); err != nil {
			return nil, wrap(err, source)
		}
	}

	rep, err := validate.New(layer, f.Rules).ValidateAll(context.Background())
	if err != nil {
		return nil, wrap(err, source)
	}

	g.Registry, g.Layer, g.Composer, g.Aliases, g.Report = reg, layer, comp, bridge.Aliases(), rep
	log.Debug().
		Str("generation", g.ID).
		Str("source", source).
		Int("values", reg.Len()).
		Int("bindings", len(layer.Bindings())).
		Int("bundles", len(f.Bundles)).
		Int("aliases", len(g.Aliases)).
		Int("violations", len(rep.Violations)).
		Msg("catalog built")
	return g, nil
}

func wrap(err error, source string) error {
	return perr.Wrapf(err, perr.CodeOf(err), "catalog %s", source)
}

// Open builds the catalog at path: a file, a catalog directory, or the embedded default
// when path is empty
func Open(path string) (*Generation, error) {
	if path == "" {
		return Build(Default(), "embedded")
	}
	st, err := os.Stat(path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeIO, "open catalog %s", path)
	}
	var f *File
	if st.IsDir() {
		f, err = LoadDir(path)
	} else {
		f, err = LoadFile(path)
	}
	if err != nil {
		return nil, err
	}
	return Build(f, path)
}

// Package compose assembles named configuration bundles from semantic names.
//
// Entries are either a bound name ("QUICK_RESPONSE_MS") or a derivation whose base is a bound
// name ("SECOND_MS * 30", "BASE_DELAY_MS * BACKOFF_FACTOR"). Bare literals are rejected, and so
// is a derivation that lands on a value the registry already owns: that value should be
// referenced through its own name instead
package compose

import (
	"maps"
	"sort"
	"strings"
	"sync"

	"constkit/internal/core/registry"
	"constkit/internal/core/semantic"
	perr "constkit/internal/platform/errors"
)

// Composer builds and caches bundles over a sealed semantic layer
type Composer struct {
	layer *semantic.Layer
	reg   *registry.Registry

	mu      sync.RWMutex
	bundles map[string]*Bundle
}

type options struct {
	force bool
}

// Option tunes a single Compose call
type Option func(*options)

// Force replaces a cached bundle of the same name instead of failing
func Force() Option { return func(o *options) { o.force = true } }

// New returns a composer. Composition is phase two of bootstrap, so the layer must be sealed
func New(layer *semantic.Layer) (*Composer, error) {
	if layer == nil || !layer.Sealed() {
		return nil, ErrPhaseOrder
	}
	return &Composer{layer: layer, reg: layer.Registry(), bundles: make(map[string]*Bundle)}, nil
}

// Compose resolves entries (field -> expression) into a bundle cached under name.
// Composing the same name with identical entries returns the cached bundle
func (c *Composer) Compose(name string, entries map[string]string, opts ...Option) (*Bundle, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, perr.Detail(ErrInvalidDerivation, "bundle name is empty")
	}

	c.mu.RLock()
	cached, ok := c.bundles[name]
	c.mu.RUnlock()
	if ok && !o.force {
		if maps.Equal(cached.entries, entries) {
			return cached, nil
		}
		return nil, perr.Detail(ErrBundleRedefinition, "bundle %s already composed with different entries", name)
	}

	b := &Bundle{Name: name, fields: make(map[string]Field, len(entries)), entries: maps.Clone(entries)}
	if b.entries == nil {
		b.entries = map[string]string{}
	}
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, field := range keys {
		f, err := c.resolve(field, entries[field])
		if err != nil {
			return nil, perr.WithOp(err, "compose "+name)
		}
		b.fields[field] = f
	}

	c.mu.Lock()
	c.bundles[name] = b
	c.mu.Unlock()
	return b, nil
}

func (c *Composer) resolve(field, raw string) (Field, error) {
	if !semantic.IsName(field) {
		return Field{}, perr.Detail(ErrInvalidDerivation, "field name %q is not an identifier", field)
	}
	e, err := parseExpr(field, raw)
	if err != nil {
		return Field{}, err
	}

	base, err := c.ref(field, e.base)
	if err != nil {
		return Field{}, err
	}
	f := Field{Name: field, Expr: strings.TrimSpace(raw), Semantic: e.base, Domain: base.Domain}
	if e.op == OpNone {
		f.AtomicID = base.ID
		f.Value = base.Value
		return f, nil
	}

	a, ok := base.Value.Float64()
	if !ok {
		return Field{}, perr.Detail(ErrInvalidDerivation, "field %s: %s is a string and cannot be derived", field, e.base)
	}
	b, ok := number(e.operand)
	if !ok {
		ov, err := c.ref(field, e.operand)
		if err != nil {
			return Field{}, err
		}
		if b, ok = ov.Value.Float64(); !ok {
			return Field{}, perr.Detail(ErrInvalidDerivation, "field %s: operand %s is a string", field, e.operand)
		}
	}
	res, ok := apply(e.op, a, b)
	if !ok {
		return Field{}, perr.Detail(ErrInvalidDerivation, "field %s: %s divides by zero", field, f.Expr)
	}

	lit := registry.Number(res)
	if id, dup := c.reg.LookupLiteral(base.Domain, lit); dup {
		return Field{}, perr.Detail(ErrRawLiteralDerivation,
			"field %s: %s evaluates to %s %s which is registered as %s, reference it by name",
			field, f.Expr, base.Domain, lit, id)
	}
	f.Derived = true
	f.Value = lit
	return f, nil
}

// ref resolves a bound name, reporting bundle names as cross-bundle references
func (c *Composer) ref(field, name string) (registry.AtomicValue, error) {
	v, err := c.layer.Resolve(name)
	if err == nil {
		return v, nil
	}
	c.mu.RLock()
	_, isBundle := c.bundles[name]
	c.mu.RUnlock()
	if isBundle {
		return registry.AtomicValue{}, perr.Detail(ErrCrossBundleReference, "field %s: %s is a bundle", field, name)
	}
	return registry.AtomicValue{}, perr.Wrapf(err, perr.CodeOf(err), "field %s", field)
}

// Bundle returns a cached bundle
func (c *Composer) Bundle(name string) (*Bundle, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.bundles[name]
	return b, ok
}

// Bundles returns every cached bundle sorted by name
func (c *Composer) Bundles() []*Bundle {
	c.mu.RLock()
	out := make([]*Bundle, 0, len(c.bundles))
	for _, b := range c.bundles {
		out = append(out, b)
	}
	c.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

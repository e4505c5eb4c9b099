// Package semantic binds human-meaningful names to atomic values.
//
// A Layer is filled during bootstrap (Bind*), sealed, and then only read. Every lookup goes
// back to the registry by id so the layer never holds a copy of a value
package semantic

import (
	"sort"
	"strings"
	"sync/atomic"

	"constkit/internal/core/registry"
	perr "constkit/internal/platform/errors"
	"constkit/internal/platform/validation"
)

// Binding attaches a name to exactly one atomic value
type Binding struct {
	Name     string          `json:"name"`
	AtomicID registry.ID     `json:"atomicId"`
	Meaning  string          `json:"meaning"`
	Category registry.Domain `json:"category"`
}

// Resolver resolves semantic names. Layer implements it; so does anything that delegates to
// the current catalog generation
type Resolver interface {
	Resolve(name string) (registry.AtomicValue, error)
}

// Layer holds the bindings for one registry
type Layer struct {
	reg     *registry.Registry
	byName  map[string]Binding
	byAtom  map[registry.ID][]string
	ordered []string
	sealed  atomic.Bool
}

// New returns an empty layer over reg. reg should be frozen before the first Bind so ids
// cannot shift underneath the bindings, but this is not enforced
func New(reg *registry.Registry) *Layer {
	return &Layer{
		reg:    reg,
		byName: make(map[string]Binding, 64),
		byAtom: make(map[registry.ID][]string, 64),
	}
}

// Registry returns the registry the layer binds into
func (l *Layer) Registry() *registry.Registry { return l.reg }

// Bind attaches name to id. Binding the same name to the same id again is a no-op
func (l *Layer) Bind(name string, id registry.ID, meaning string) error {
	if l.sealed.Load() {
		return perr.Detail(ErrSealedLayer, "bind %s", name)
	}
	name = strings.TrimSpace(name)
	if !IsName(name) {
		return perr.Detail(ErrInvalidName, "%q is not an identifier", name)
	}
	v, ok := l.reg.Get(id)
	if !ok {
		return perr.Detail(ErrUnknownAtomicID, "bind %s to %s", name, id)
	}
	if b, ok := l.byName[name]; ok {
		if b.AtomicID == id {
			return nil
		}
		return perr.Detail(ErrDuplicateBindingName, "%s is bound to %s, refusing %s", name, b.AtomicID, id)
	}

	l.byName[name] = Binding{Name: name, AtomicID: id, Meaning: strings.TrimSpace(meaning), Category: v.Domain}
	l.byAtom[id] = append(l.byAtom[id], name)
	l.ordered = append(l.ordered, name)
	return nil
}

// Seal ends the binding phase
func (l *Layer) Seal() { l.sealed.Store(true) }

// Sealed reports whether Seal was called
func (l *Layer) Sealed() bool { return l.sealed.Load() }

// Resolve returns the atomic value bound to name
func (l *Layer) Resolve(name string) (registry.AtomicValue, error) {
	b, ok := l.byName[name]
	if !ok {
		return registry.AtomicValue{}, perr.Detail(ErrUnboundName, "%s", name)
	}
	return l.reg.MustGet(b.AtomicID), nil
}

// Binding returns the binding for name
func (l *Layer) Binding(name string) (Binding, bool) {
	b, ok := l.byName[name]
	return b, ok
}

// Bindings returns every binding in bind order
func (l *Layer) Bindings() []Binding {
	out := make([]Binding, 0, len(l.ordered))
	for _, n := range l.ordered {
		out = append(out, l.byName[n])
	}
	return out
}

// NamesFor returns the names bound to id in bind order
func (l *Layer) NamesFor(id registry.ID) []string {
	names := l.byAtom[id]
	out := make([]string, len(names))
	copy(out, names)
	return out
}

// Names returns the bound names sorted
func (l *Layer) Names() []string {
	out := make([]string, len(l.ordered))
	copy(out, l.ordered)
	sort.Strings(out)
	return out
}

// IsName reports whether s can be bound: [A-Za-z_][A-Za-z0-9_]*
func IsName(s string) bool { return validation.IsIdent(s) }

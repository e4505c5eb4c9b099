// Package registry is the single source of truth for literal values. Every number or
// string a codebase reuses is registered once as an AtomicValue keyed by (domain, value).
//
// Lifecycle: New -> Register* -> Freeze. Registration is single-threaded; once frozen the
// registry is immutable and safe for any number of concurrent readers
package registry

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"

	perr "constkit/internal/platform/errors"
)

// ID identifies an atomic value, e.g. "time_ms:3"
type ID string

// Domain returns the domain encoded in the id
func (id ID) Domain() Domain {
	d, _, _ := strings.Cut(string(id), ":")
	return Domain(d)
}

// AtomicValue is one canonical (domain, literal) pair
type AtomicValue struct {
	ID          ID      `json:"id"`
	Domain      Domain  `json:"domain"`
	Value       Literal `json:"value"`
	Description string  `json:"description"`
}

type key struct {
	domain Domain
	text   string
}

// Registry owns AtomicValue identity
type Registry struct {
	byKey  map[key]ID
	byID   map[ID]AtomicValue
	order  []ID
	seq    map[Domain]int
	frozen atomic.Bool
}

// New returns an empty, writable registry
func New() *Registry {
	return &Registry{
		byKey: make(map[key]ID, 64),
		byID:  make(map[ID]AtomicValue, 64),
		seq:   make(map[Domain]int, len(Domains)),
	}
}

// Register records (domain, value) and returns its id. Re-registering with the same
// description returns the existing id; a different description is a conflict that needs
// a human decision
func (r *Registry) Register(d Domain, raw, description string) (ID, error) {
	lit, err := ParseLiteral(d, raw)
	if err != nil {
		return "", err
	}
	return r.RegisterLiteral(d, lit, description)
}

// RegisterLiteral is Register for an already canonical literal
func (r *Registry) RegisterLiteral(d Domain, lit Literal, description string) (ID, error) {
	if r.frozen.Load() {
		return "", perr.Detail(ErrFrozenRegistry, "register %s %s", d, lit)
	}
	if !d.Valid() {
		return "", perr.Detail(ErrInvalidValue, "unknown domain %q", d)
	}
	if d.Numeric() != lit.IsNumber() {
		return "", perr.Detail(ErrInvalidValue, "%s cannot hold %q", d, lit)
	}
	description = strings.TrimSpace(description)

	k := key{domain: d, text: lit.String()}
	if id, ok := r.byKey[k]; ok {
		existing := r.byID[id]
		if existing.Description == description {
			return id, nil
		}
		return "", perr.Detail(ErrDuplicateValue,
			"%s %s already registered as %s (%q), refusing %q", d, lit, id, existing.Description, description)
	}

	r.seq[d]++
	id := ID(string(d) + ":" + strconv.Itoa(r.seq[d]))
	r.byKey[k] = id
	r.byID[id] = AtomicValue{ID: id, Domain: d, Value: lit, Description: description}
	r.order = append(r.order, id)
	return id, nil
}

// Freeze makes the registry read-only; it is idempotent
func (r *Registry) Freeze() { r.frozen.Store(true) }

// Frozen reports whether Freeze was called
func (r *Registry) Frozen() bool { return r.frozen.Load() }

// Lookup finds the id registered for (domain, value). Unparseable values miss
func (r *Registry) Lookup(d Domain, raw string) (ID, bool) {
	lit, err := ParseLiteral(d, raw)
	if err != nil {
		return "", false
	}
	return r.LookupLiteral(d, lit)
}

// LookupLiteral is Lookup for an already canonical literal
func (r *Registry) LookupLiteral(d Domain, lit Literal) (ID, bool) {
	id, ok := r.byKey[key{domain: d, text: lit.String()}]
	return id, ok
}

// Get returns the atomic value for id
func (r *Registry) Get(id ID) (AtomicValue, bool) {
	v, ok := r.byID[id]
	return v, ok
}

// MustGet is Get for ids obtained from this registry
func (r *Registry) MustGet(id ID) AtomicValue {
	v, ok := r.byID[id]
	if !ok {
		panic(fmt.Sprintf("registry: unknown id %q", id))
	}
	return v
}

// Values returns all atomic values in registration order
func (r *Registry) Values() []AtomicValue {
	out := make([]AtomicValue, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id])
	}
	return out
}

// ValuesIn returns the atomic values of one domain sorted by value
func (r *Registry) ValuesIn(d Domain) []AtomicValue {
	var out []AtomicValue
	for _, id := range r.order {
		if v := r.byID[id]; v.Domain == d {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, aok := out[i].Value.Float64()
		b, bok := out[j].Value.Float64()
		if aok && bok {
			return a < b
		}
		return out[i].Value.String() < out[j].Value.String()
	})
	return out
}

// Len reports how many values are registered
func (r *Registry) Len() int { return len(r.order) }

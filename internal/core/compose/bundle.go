package compose

import (
	"encoding/json"
	"math"
	"sort"
	"time"

	"constkit/internal/core/registry"
	perr "constkit/internal/platform/errors"
)

// Field is one resolved bundle entry
type Field struct {
	Name     string           `json:"name"`
	Expr     string           `json:"expr"`
	Semantic string           `json:"semantic"`
	AtomicID registry.ID      `json:"atomicId,omitempty"`
	Derived  bool             `json:"derived"`
	Domain   registry.Domain  `json:"domain"`
	Value    registry.Literal `json:"value"`
}

// Bundle is an immutable snapshot of composed fields
type Bundle struct {
	Name    string
	fields  map[string]Field
	entries map[string]string
}

// Value returns the literal of field
func (b *Bundle) Value(field string) (registry.Literal, error) {
	f, ok := b.fields[field]
	if !ok {
		return registry.Literal{}, perr.Detail(ErrUnknownField, "%s.%s", b.Name, field)
	}
	return f.Value, nil
}

// Float64 returns a numeric field
func (b *Bundle) Float64(field string) (float64, error) {
	lit, err := b.Value(field)
	if err != nil {
		return 0, err
	}
	f, ok := lit.Float64()
	if !ok {
		return 0, perr.InvalidArgf("%s.%s is a string", b.Name, field)
	}
	return f, nil
}

// Int64 returns an integral numeric field
func (b *Bundle) Int64(field string) (int64, error) {
	f, err := b.Float64(field)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, perr.InvalidArgf("%s.%s is not an integer (%v)", b.Name, field, f)
	}
	return int64(f), nil
}

// String returns the canonical text of any field
func (b *Bundle) String(field string) (string, error) {
	lit, err := b.Value(field)
	if err != nil {
		return "", err
	}
	return lit.String(), nil
}

// Duration returns a time_ms field as a time.Duration
func (b *Bundle) Duration(field string) (time.Duration, error) {
	f, ok := b.fields[field]
	if !ok {
		return 0, perr.Detail(ErrUnknownField, "%s.%s", b.Name, field)
	}
	if f.Domain != registry.DomainTimeMS {
		return 0, perr.InvalidArgf("%s.%s is %s, not time_ms", b.Name, field, f.Domain)
	}
	ms, _ := f.Value.Float64()
	return time.Duration(ms * float64(time.Millisecond)), nil
}

// Field returns the resolved field
func (b *Bundle) Field(name string) (Field, bool) {
	f, ok := b.fields[name]
	return f, ok
}

// Fields returns all fields sorted by name
func (b *Bundle) Fields() []Field {
	out := make([]Field, 0, len(b.fields))
	for _, f := range b.fields {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Map returns field name -> literal
func (b *Bundle) Map() map[string]registry.Literal {
	out := make(map[string]registry.Literal, len(b.fields))
	for k, f := range b.fields {
		out[k] = f.Value
	}
	return out
}

// Entries returns a copy of the entries the bundle was composed from
func (b *Bundle) Entries() map[string]string {
	out := make(map[string]string, len(b.entries))
	for k, v := range b.entries {
		out[k] = v
	}
	return out
}

// MarshalJSON renders the bundle with its fields in name order
func (b *Bundle) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name   string  `json:"name"`
		Fields []Field `json:"fields"`
	}{b.Name, b.Fields()})
}

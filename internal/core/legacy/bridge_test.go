package legacy

import (
	"sync/atomic"
	"testing"

	"constkit/internal/core/registry"
	"constkit/internal/core/semantic"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// swappable stands in for a generation holder: Resolve always reads the current layer
type swappable struct {
	cur atomic.Pointer[semantic.Layer]
}

func (s *swappable) Resolve(name string) (registry.AtomicValue, error) {
	return s.cur.Load().Resolve(name)
}

func generation(t *testing.T, value string) *semantic.Layer {
	t.Helper()
	r := registry.New()
	id, err := r.Register(registry.DomainQuantity, value, "page size")
	require.NoError(t, err)
	r.Freeze()
	l := semantic.New(r)
	require.NoError(t, l.Bind("NEW_NAME", id, ""))
	l.Seal()
	return l
}

func TestAliasLiveness(t *testing.T) {
	src := &swappable{}
	src.cur.Store(generation(t, "10"))

	b := New(src)
	require.NoError(t, b.ExposeAlias("OLD_NAME", "NEW_NAME"))

	v, err := b.Resolve("OLD_NAME")
	require.NoError(t, err)
	assert.Equal(t, "10", v.Value.String())

	src.cur.Store(generation(t, "20"))
	v, err = b.Resolve("OLD_NAME")
	require.NoError(t, err)
	assert.Equal(t, "20", v.Value.String())
}

func TestExposeAlias_FailsFast(t *testing.T) {
	b := New(generation(t, "10"))
	err := b.ExposeAlias("OLD_NAME", "NOT_BOUND")
	assert.ErrorIs(t, err, semantic.ErrUnboundName)
	assert.Contains(t, err.Error(), "OLD_NAME")

	_, ok := b.Target("OLD_NAME")
	assert.False(t, ok)
	assert.Error(t, b.ExposeAlias(" ", "NEW_NAME"))
}

func TestExposeAlias_Duplicates(t *testing.T) {
	r := registry.New()
	a, _ := r.Register(registry.DomainQuantity, "1", "one")
	c, _ := r.Register(registry.DomainQuantity, "2", "two")
	r.Freeze()
	l := semantic.New(r)
	require.NoError(t, l.Bind("A", a, ""))
	require.NoError(t, l.Bind("B", c, ""))
	l.Seal()

	b := New(l)
	require.NoError(t, b.ExposeAlias("LEGACY", "A"))
	require.NoError(t, b.ExposeAlias("LEGACY", "A"))
	assert.ErrorIs(t, b.ExposeAlias("LEGACY", "B"), ErrDuplicateAlias)
	require.NoError(t, b.ExposeAlias("ALSO_LEGACY", "B"))

	assert.Equal(t, []Alias{{"ALSO_LEGACY", "B"}, {"LEGACY", "A"}}, b.Aliases())
}

func TestResolve_UnknownAndVanished(t *testing.T) {
	src := &swappable{}
	src.cur.Store(generation(t, "10"))
	b := New(src)
	_, err := b.Resolve("NOPE")
	assert.ErrorIs(t, err, ErrUnknownAlias)

	require.NoError(t, b.ExposeAlias("OLD_NAME", "NEW_NAME"))
	r := registry.New()
	r.Freeze()
	empty := semantic.New(r)
	empty.Seal()
	src.cur.Store(empty)

	_, err = b.Resolve("OLD_NAME")
	assert.ErrorIs(t, err, semantic.ErrUnboundName)
}

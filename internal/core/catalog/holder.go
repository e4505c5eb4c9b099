package catalog

import (
	"context"
	"sync"
	"sync/atomic"

	"constkit/internal/core/legacy"
	"constkit/internal/core/registry"
	perr "constkit/internal/platform/errors"
	"constkit/internal/platform/logger"
)

// Loader builds a fresh generation
type Loader func(ctx context.Context) (*Generation, error)

// FileLoader reopens path on every call
func FileLoader(path string) Loader {
	return func(context.Context) (*Generation, error) { return Open(path) }
}

// Holder serves the current generation and swaps in new ones atomically. Its bridge
// resolves through the holder, so legacy aliases always see the current generation
type Holder struct {
	cur    atomic.Pointer[Generation]
	bridge *legacy.Bridge
	load   Loader
	mu     sync.Mutex
}

// NewHolder starts with g and exposes its aliases. load may be nil when Reload is unused
func NewHolder(g *Generation, load Loader) (*Holder, error) {
	h := &Holder{load: load}
	h.bridge = legacy.New(h)
	if err := h.Swap(g); err != nil {
		return nil, err
	}
	return h, nil
}

// Current returns the generation being served
func (h *Holder) Current() *Generation { return h.cur.Load() }

// Resolve resolves name in the current generation
func (h *Holder) Resolve(name string) (registry.AtomicValue, error) {
	return h.cur.Load().Resolve(name)
}

// Bridge returns the long-lived legacy bridge
func (h *Holder) Bridge() *legacy.Bridge { return h.bridge }

// Swap installs g. g must pass its own rules, every alias already exposed must still resolve
// in g, and g's own aliases must not retarget existing ones; otherwise g is refused and the
// current generation stays
func (h *Holder) Swap(g *Generation) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if g == nil {
		return perr.InvalidArgf("nil generation")
	}
	if err := g.Check(); err != nil {
		return err
	}

	for _, a := range h.bridge.Aliases() {
		if _, err := g.Resolve(a.SemanticName); err != nil {
			return perr.Wrapf(err, perr.CodeOf(err), "generation %s drops alias %s", g.ID, a.OldName)
		}
	}
	for _, a := range g.Aliases {
		if cur, ok := h.bridge.Target(a.OldName); ok && cur != a.SemanticName {
			return perr.Detail(legacy.ErrDuplicateAlias, "generation %s retargets %s from %s to %s",
				g.ID, a.OldName, cur, a.SemanticName)
		}
	}

	prev := h.cur.Swap(g)
	for _, a := range g.Aliases {
		if err := h.bridge.ExposeAlias(a.OldName, a.SemanticName); err != nil {
			h.cur.Store(prev)
			return err
		}
	}

	ev := logger.Named("catalog").Info().Str("generation", g.ID).Str("source", g.Source)
	if prev != nil {
		ev = ev.Str("previous", prev.ID)
	}
	ev.Msg("generation active")
	return nil
}

// Reload builds a new generation with the loader and swaps it in
func (h *Holder) Reload(ctx context.Context) (*Generation, error) {
	if h.load == nil {
		return nil, perr.Newf(perr.ErrorCodeUnavailable, "catalog reload is not configured")
	}
	g, err := h.load(ctx)
	if err != nil {
		return nil, err
	}
	if err := h.Swap(g); err != nil {
		return nil, err
	}
	return g, nil
}

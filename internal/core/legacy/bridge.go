// Package legacy keeps old constant names working while callers migrate. An alias stores
// only the semantic name it points to and resolves through the source on every call, so a
// new catalog generation is visible through every alias at once
package legacy

import (
	"sort"
	"strings"
	"sync"

	"constkit/internal/core/registry"
	"constkit/internal/core/semantic"
	perr "constkit/internal/platform/errors"
)

var (
	// ErrUnknownAlias means the old name was never exposed
	ErrUnknownAlias = perr.New(perr.ErrorCodeNotFound, "unknown legacy alias")
	// ErrDuplicateAlias means the old name already points at another semantic name
	ErrDuplicateAlias = perr.New(perr.ErrorCodeConflict, "duplicate legacy alias")
)

// Alias maps an old name to a semantic name
type Alias struct {
	OldName      string `json:"oldName"`
	SemanticName string `json:"semanticName"`
}

// Bridge resolves legacy names
type Bridge struct {
	src semantic.Resolver

	mu      sync.RWMutex
	aliases map[string]string
}

// New returns a bridge resolving through src
func New(src semantic.Resolver) *Bridge {
	return &Bridge{src: src, aliases: make(map[string]string)}
}

// ExposeAlias registers oldName as a lazy re-export of semanticName. semanticName must
// already resolve
func (b *Bridge) ExposeAlias(oldName, semanticName string) error {
	oldName = strings.TrimSpace(oldName)
	if oldName == "" {
		return perr.InvalidArgf("legacy alias name is empty")
	}
	if _, err := b.src.Resolve(semanticName); err != nil {
		return perr.Wrapf(err, perr.CodeOf(err), "expose %s", oldName)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.aliases[oldName]; ok && cur != semanticName {
		return perr.Detail(ErrDuplicateAlias, "%s already aliases %s, refusing %s", oldName, cur, semanticName)
	}
	b.aliases[oldName] = semanticName
	return nil
}

// Resolve returns the value currently behind oldName
func (b *Bridge) Resolve(oldName string) (registry.AtomicValue, error) {
	b.mu.RLock()
	name, ok := b.aliases[oldName]
	b.mu.RUnlock()
	if !ok {
		return registry.AtomicValue{}, perr.Detail(ErrUnknownAlias, "%s", oldName)
	}
	v, err := b.src.Resolve(name)
	if err != nil {
		return registry.AtomicValue{}, perr.Wrapf(err, perr.CodeOf(err), "alias %s -> %s", oldName, name)
	}
	return v, nil
}

// Target returns the semantic name behind oldName
func (b *Bridge) Target(oldName string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	name, ok := b.aliases[oldName]
	return name, ok
}

// Aliases lists every alias sorted by old name
func (b *Bridge) Aliases() []Alias {
	b.mu.RLock()
	out := make([]Alias, 0, len(b.aliases))
	for o, n := range b.aliases {
		out = append(out, Alias{OldName: o, SemanticName: n})
	}
	b.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].OldName < out[j].OldName })
	return out
}

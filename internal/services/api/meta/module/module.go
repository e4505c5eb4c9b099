// Package module wires the meta endpoints into the API
package module

import (
	"time"

	"constkit/internal/modkit"
	phttp "constkit/internal/platform/net/http"
	metahttp "constkit/internal/services/api/meta/http"
)

// Module implements the meta module
type Module struct {
	b    modkit.Built
	deps metahttp.Deps
}

// New constructs the meta module; the ledger seam is pinged by /ready when it supports it
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build([]modkit.Option{modkit.WithName("meta"), modkit.WithPrefix("/meta")}, opts...)
	var ledger any
	if deps.DB != nil {
		ledger = deps.DB
	}
	return &Module{b: b, deps: metahttp.Deps{
		ServiceName: "constkit",
		StartedAt:   time.Now(),
		Ledger:      ledger,
	}}
}

// MountRoutes satisfies modkit.Module
func (m *Module) MountRoutes(r phttp.Router) {
	m.b.Mount(r, func(rr phttp.Router) { metahttp.Register(rr, m.deps) })
}

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return nil }

// Name satisfies modkit.Module
func (m *Module) Name() string { return m.b.Name }

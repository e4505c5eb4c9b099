// Package module wires the catalog endpoints into the API using modkit
package module

import (
	"net/http"

	"constkit/internal/core/catalog"
	"constkit/internal/modkit"
	"constkit/internal/platform/logger"
	phttp "constkit/internal/platform/net/http"
	cataloghttp "constkit/internal/services/api/catalog/http"
)

// Ports exposes the generation holder to other modules
type Ports struct {
	Holder *catalog.Holder
}

// Module implements the catalog module
type Module struct {
	b    modkit.Built
	deps cataloghttp.Deps
}

// New constructs the catalog module. Routes mount on the parent router unless a prefix is given
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	m := &Module{deps: cataloghttp.Deps{Holder: deps.Catalog, Metrics: deps.Metrics}}
	defaults := []modkit.Option{
		modkit.WithName("catalog"),
		modkit.WithMiddlewares(m.stampGeneration),
	}
	m.b = modkit.Build(defaults, opts...)
	return m
}

// stampGeneration tags the request logger with the generation serving it
func (m *Module) stampGeneration(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g := m.deps.Holder.Current(); g != nil {
			r = r.WithContext(logger.WithGeneration(r.Context(), g.ID))
		}
		next.ServeHTTP(w, r)
	})
}

// MountRoutes satisfies modkit.Module
func (m *Module) MountRoutes(r phttp.Router) {
	m.b.Mount(r, func(rr phttp.Router) { cataloghttp.Register(rr, m.deps) })
}

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return Ports{Holder: m.deps.Holder} }

// Name satisfies modkit.Module
func (m *Module) Name() string { return m.b.Name }

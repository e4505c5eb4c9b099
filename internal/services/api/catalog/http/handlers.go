// Package http provides the read-only catalog endpoints plus reload
package http

import (
	stdhttp "net/http"
	"time"

	"constkit/internal/core/catalog"
	"constkit/internal/core/legacy"
	"constkit/internal/core/registry"
	"constkit/internal/core/semantic"
	perr "constkit/internal/platform/errors"
	"constkit/internal/platform/logger"
	"constkit/internal/platform/metrics"
	phttp "constkit/internal/platform/net/http"
)

// Deps are the handler dependencies
type Deps struct {
	Holder  *catalog.Holder
	Metrics *metrics.Metrics
}

type handlers struct{ deps Deps }

// Register mounts the catalog routes
func Register(r phttp.Router, d Deps) {
	h := &handlers{deps: d}

	phttp.GetJSON(r, "/generation", h.generation)

	// atomic values, optionally one domain via ?domain=
	phttp.GetJSON(r, "/values", h.values)

	phttp.GetJSON(r, "/bindings", h.bindings)
	phttp.GetJSON(r, "/bindings/{name}", h.binding)

	phttp.GetJSON(r, "/bundles", h.bundles)
	phttp.GetJSON(r, "/bundles/{name}", h.bundle)

	phttp.GetJSON(r, "/aliases", h.aliases)
	phttp.GetJSON(r, "/aliases/{name}", h.alias)

	// runs the catalog's own rules against the current generation
	phttp.GetJSON(r, "/validate", h.validate)

	phttp.PostJSON(r, "/reload", h.reload)
}

// GenerationResponse summarizes the generation serving requests
type GenerationResponse struct {
	ID       string    `json:"id"`
	Source   string    `json:"source"`
	BuiltAt  time.Time `json:"builtAt"`
	Values   int       `json:"values"`
	Bindings int       `json:"bindings"`
	Bundles  int       `json:"bundles"`
	Aliases  int       `json:"aliases"`
	Rules    int       `json:"rules"`
}

// BindingResponse is a binding with the value it resolves to
type BindingResponse struct {
	semantic.Binding
	Value registry.AtomicValue `json:"value"`
}

// AliasResponse is a legacy name with its current target and value
type AliasResponse struct {
	legacy.Alias
	Value registry.AtomicValue `json:"value"`
}

func summarize(g *catalog.Generation) GenerationResponse {
	rs := g.Rules
	return GenerationResponse{
		ID:       g.ID,
		Source:   g.Source,
		BuiltAt:  g.BuiltAt,
		Values:   g.Registry.Len(),
		Bindings: len(g.Layer.Bindings()),
		Bundles:  len(g.Composer.Bundles()),
		Aliases:  len(g.Aliases),
		Rules:    len(rs.Ordering) + len(rs.Range) + len(rs.Distinct) + len(rs.Same),
	}
}

func (h *handlers) generation(_ *stdhttp.Request) (any, error) {
	return summarize(h.deps.Holder.Current()), nil
}

func (h *handlers) values(r *stdhttp.Request) (any, error) {
	reg := h.deps.Holder.Current().Registry
	s := r.URL.Query().Get("domain")
	if s == "" {
		return reg.Values(), nil
	}
	d, err := registry.ParseDomain(s)
	if err != nil {
		return nil, perr.WithField(err, "domain")
	}
	out := reg.ValuesIn(d)
	if out == nil {
		out = []registry.AtomicValue{}
	}
	return out, nil
}

func (h *handlers) bindings(_ *stdhttp.Request) (any, error) {
	return h.deps.Holder.Current().Layer.Bindings(), nil
}

func (h *handlers) binding(r *stdhttp.Request) (any, error) {
	layer := h.deps.Holder.Current().Layer
	name := phttp.URLParam(r, "name")
	b, ok := layer.Binding(name)
	if !ok {
		return nil, perr.Detail(semantic.ErrUnboundName, "%s", name)
	}
	v, err := layer.Resolve(name)
	if err != nil {
		return nil, err
	}
	return BindingResponse{Binding: b, Value: v}, nil
}

func (h *handlers) bundles(_ *stdhttp.Request) (any, error) {
	return h.deps.Holder.Current().Composer.Bundles(), nil
}

func (h *handlers) bundle(r *stdhttp.Request) (any, error) {
	name := phttp.URLParam(r, "name")
	b, ok := h.deps.Holder.Current().Composer.Bundle(name)
	if !ok {
		return nil, perr.NotFoundf("bundle %q not found", name)
	}
	return b, nil
}

func (h *handlers) aliases(_ *stdhttp.Request) (any, error) {
	return h.deps.Holder.Bridge().Aliases(), nil
}

func (h *handlers) alias(r *stdhttp.Request) (any, error) {
	br := h.deps.Holder.Bridge()
	name := phttp.URLParam(r, "name")
	v, err := br.Resolve(name)
	if err != nil {
		return nil, err
	}
	target, _ := br.Target(name)
	return AliasResponse{Alias: legacy.Alias{OldName: name, SemanticName: target}, Value: v}, nil
}

func (h *handlers) validate(r *stdhttp.Request) (any, error) {
	rep, err := h.deps.Holder.Current().Validate(r.Context())
	if err != nil {
		return nil, err
	}
	h.deps.Metrics.ObserveValidation(len(rep.Violations))
	return rep, nil
}

func (h *handlers) reload(r *stdhttp.Request) (any, error) {
	g, err := h.deps.Holder.Reload(r.Context())
	if err != nil {
		h.deps.Metrics.ObserveReload(err, time.Time{})
		logger.C(r.Context()).Warn().Err(err).Msg("catalog reload refused")
		return nil, err
	}
	h.deps.Metrics.ObserveReload(nil, g.BuiltAt)
	return summarize(g), nil
}

package modkit

import (
	"net/http"

	phttp "constkit/internal/platform/net/http"
	pstrings "constkit/internal/platform/strings"
)

// Built is a plain struct with the fields modules care about
type Built struct {
	Name   string
	Prefix string
	Mw     []func(http.Handler) http.Handler
	Ports  any
}

// Build applies Option funcs over defaults and returns a plain struct. An unset prefix
// mounts the module's routes directly on the parent router
func Build(defaults []Option, opts ...Option) Built {
	var c buildCfg
	for _, o := range append(defaults, opts...) {
		o(&c)
	}
	prefix := ""
	if c.prefix != "" {
		prefix = pstrings.MountPath(c.prefix)
	}
	return Built{
		Name:   pstrings.Require(c.name, "module name"),
		Prefix: prefix,
		Mw:     append([]func(http.Handler) http.Handler(nil), c.mw...),
		Ports:  c.ports,
	}
}

// Mount mounts register under b.Prefix with b's middlewares
func (b Built) Mount(r phttp.Router, register func(phttp.Router)) {
	mount := func(sub phttp.Router) {
		if len(b.Mw) > 0 {
			sub.Use(b.Mw...)
		}
		register(sub)
	}
	if b.Prefix == "" {
		r.Group(mount)
		return
	}
	r.Route(b.Prefix, mount)
}

// Package http provides meta endpoints
package http

import (
	stdctx "context"
	"net/http"
	"time"

	"constkit/internal/core/version"
	phttp "constkit/internal/platform/net/http"
)

// Pinger is satisfied by adapters that expose Ping
type Pinger interface {
	Ping(stdctx.Context) error
}

// Deps are the handler dependencies
type Deps struct {
	ServiceName string
	StartedAt   time.Time
	Ledger      any
}

type handlers struct {
	deps Deps
}

// Register mounts the meta routes
func Register(r phttp.Router, d Deps) {
	h := &handlers{deps: d}

	phttp.GetJSON(r, "/ready", h.ready)
	phttp.GetJSON(r, "/version", h.version)
	phttp.GetJSON(r, "/service", h.service)
}

// ReadyCheck describes a single dependency check
type ReadyCheck struct {
	Name   string `json:"name"`
	Status string `json:"status"` // ok fail skipped unknown
	Error  string `json:"error,omitempty"`
}

// ReadyResponse summarizes readiness
type ReadyResponse struct {
	Status string       `json:"status"` // ok degraded fail
	Checks []ReadyCheck `json:"checks"`
	Now    string       `json:"now"`
}

// ServiceResponse describes service info
type ServiceResponse struct {
	Name    string            `json:"name"`
	Started string            `json:"started"`
	Uptime  int64             `json:"uptime"`
	Build   version.BuildInfo `json:"build"`
}

func (h *handlers) ready(r *http.Request) (any, error) {
	ctx, cancel := stdctx.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	check := func(name string, c any) ReadyCheck {
		if c == nil {
			return ReadyCheck{Name: name, Status: "skipped"}
		}
		if p, ok := c.(Pinger); ok {
			if err := p.Ping(ctx); err != nil {
				return ReadyCheck{Name: name, Status: "fail", Error: err.Error()}
			}
			return ReadyCheck{Name: name, Status: "ok"}
		}
		return ReadyCheck{Name: name, Status: "unknown"}
	}

	ledger := check("ledger", h.deps.Ledger)
	overall := "ok"
	switch ledger.Status {
	case "fail":
		overall = "fail"
	case "unknown":
		overall = "degraded"
	}

	return ReadyResponse{
		Status: overall,
		Checks: []ReadyCheck{ledger},
		Now:    time.Now().UTC().Format(time.RFC3339),
	}, nil
}

func (h *handlers) version(_ *http.Request) (any, error) {
	return version.Info(), nil
}

func (h *handlers) service(_ *http.Request) (any, error) {
	uptime := time.Since(h.deps.StartedAt)
	return ServiceResponse{
		Name:    h.deps.ServiceName,
		Started: h.deps.StartedAt.UTC().Format(time.RFC3339),
		Uptime:  int64(uptime / time.Second),
		Build:   version.Info(),
	}, nil
}

// Package module wires the review ledger into modkit
package module

import (
	"context"

	"constkit/internal/modkit"
	"constkit/internal/platform/logger"
	phttp "constkit/internal/platform/net/http"
	"constkit/internal/platform/store"
	"constkit/internal/services/review/domain"
	reviewhttp "constkit/internal/services/review/http"
	"constkit/internal/services/review/repo"
	"constkit/internal/services/review/service"
)

// Ports exposed by the review module
type Ports struct {
	Ledger    domain.LedgerPort
	Annotator domain.AnnotatorPort
}

// Module implements the review module
type Module struct {
	b     modkit.Built
	ports Ports
}

// OpenStore opens and migrates the configured ledger backend. The memory driver yields a
// Store with no SQL seam, which New turns into an in-process ledger
func OpenStore(ctx context.Context, opts Options, log *logger.Logger) (*store.Store, error) {
	if opts.Store.Driver == "memory" {
		return &store.Store{}, nil
	}
	var sopts []store.Option
	if log != nil {
		sopts = append(sopts, store.WithLogger(*log))
	}
	st, err := store.Open(ctx, opts.Store, sopts...)
	if err != nil {
		return nil, err
	}
	if st.SQL != nil {
		if err := repo.Migrate(ctx, st.SQL); err != nil {
			_ = st.Close(ctx)
			return nil, err
		}
	}
	return st, nil
}

// New constructs the review module over deps.DB, or an in-memory ledger when DB is nil
func New(deps modkit.Deps, opts ...modkit.Option) modkit.Module {
	b := modkit.Build([]modkit.Option{modkit.WithName("review"), modkit.WithPrefix("/reviews")}, opts...)

	var run repo.Runner
	if deps.DB != nil {
		run = repo.SQLRunner(deps.DB, repo.NewSQL())
	} else {
		run = repo.NewMemory()
	}
	o := FromConfig(deps.Cfg)
	svc := service.New(run, deps.Metrics, service.Config{
		ListLimit: o.ListLimit,
		Attempts:  o.WriteAttempts,
		Backoff:   o.WriteBackoff,
	})

	return &Module{b: b, ports: Ports{Ledger: svc, Annotator: svc}}
}

// MountRoutes satisfies modkit.Module
func (m *Module) MountRoutes(r phttp.Router) {
	m.b.Mount(r, func(rr phttp.Router) { reviewhttp.Register(rr, m.ports.Ledger) })
}

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }

// Name satisfies modkit.Module
func (m *Module) Name() string { return m.b.Name }

// Package api provides the read-only HTTP API over the current catalog generation
package api

import (
	"net/http"
	"time"

	"constkit/internal/core/catalog"
	"constkit/internal/modkit"
	"constkit/internal/platform/config"
	"constkit/internal/platform/logger"
	"constkit/internal/platform/metrics"
	phttp "constkit/internal/platform/net/http"
	"constkit/internal/platform/net/middleware"
	"constkit/internal/platform/store"

	catalogmod "constkit/internal/services/api/catalog/module"
	metamod "constkit/internal/services/api/meta/module"
	reviewmod "constkit/internal/services/review/module"

	"github.com/go-chi/chi/v5"
)

// Options are the API options
type Options struct {
	// Config is the CONSTKIT_ view; API knobs live under API_
	Config  config.Conf
	Holder  *catalog.Holder
	Store   *store.Store
	Metrics *metrics.Metrics
	Logger  *logger.Logger
}

// Stack returns the common middleware stack for the API
func Stack(cfg config.Conf, m *metrics.Metrics) []func(http.Handler) http.Handler {
	ac := cfg.Prefix("API_")
	return []func(http.Handler) http.Handler{
		middleware.RequestID(),
		middleware.RealIP(),
		middleware.AccessLog(middleware.AccessLogOptions{
			Slow:    ac.MayDuration("SLOW", 500*time.Millisecond),
			Observe: m.ObserveRequest,
		}),
		middleware.RecoverJSON,
		middleware.NoCache(),
		middleware.CORS(middleware.CORSOptions{
			AllowedOrigins: ac.MayCSV("CORS_ORIGINS", nil),
			MaxAge:         ac.MayInt("CORS_MAX_AGE", 300),
		}),
		middleware.Timeout(ac.MayDuration("TIMEOUT", 15*time.Second)),
	}
}

// Mount mounts the API onto the given router
func Mount(r phttp.Router, opt Options) {
	if mux, ok := r.Mux().(*chi.Mux); ok {
		mux.NotFound(phttp.NotFound)
		mux.MethodNotAllowed(phttp.MethodNotAllowed)
	}
	r.Use(Stack(opt.Config, opt.Metrics)...)

	// shared deps for modules
	deps := modkit.Deps{
		Log:     opt.Logger,
		Cfg:     opt.Config,
		Catalog: opt.Holder,
		Metrics: opt.Metrics,
	}
	if opt.Store != nil && opt.Store.SQL != nil {
		deps.DB, deps.Dialect = opt.Store.SQL, opt.Store.Dialect
	}

	phttp.GetJSON(r, "/healthz", func(*http.Request) (any, error) {
		return map[string]any{"ok": true, "generation": opt.Holder.Current().ID}, nil
	})
	if opt.Metrics != nil {
		r.Handle("/metrics", opt.Metrics.Handler())
	}

	mods := []modkit.Module{
		catalogmod.New(deps),
		reviewmod.New(deps),
		metamod.New(deps),
	}

	log := logger.Named("api")
	r.Route("/v1", func(v1 phttp.Router) {
		for _, m := range mods {
			m.MountRoutes(v1)
			log.Debug().Str("module", m.Name()).Msg("module mounted")
		}
	})
}

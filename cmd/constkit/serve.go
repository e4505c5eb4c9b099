package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"constkit/internal/core/catalog"
	"constkit/internal/platform/logger"
	"constkit/internal/platform/metrics"
	phttp "constkit/internal/platform/net/http"
	"constkit/internal/services/api"
	reviewmod "constkit/internal/services/review/module"
)

func (e env) serve(ctx context.Context, args []string) int {
	ac := e.cfg.Prefix("API_")
	fs := e.newFlags("serve")
	var (
		addr        = fs.String("addr", ac.MayAddr("PORT", "8080"), "listen address or bare port")
		catalogFlag = fs.String("catalog", "", "catalog file or directory; defaults to CONSTKIT_CATALOG, then the embedded catalog")
		grace       = fs.Duration("grace", ac.MayDuration("SHUTDOWN_GRACE", 10*time.Second), "shutdown grace period")
	)
	if err := fs.Parse(args); err != nil {
		return e.flagErr(err)
	}
	log := logger.Named("serve")

	path := e.catalogPath(*catalogFlag)
	g, err := catalog.Open(path)
	if err != nil {
		return e.fail(err)
	}
	holder, err := catalog.NewHolder(g, catalog.FileLoader(path))
	if err != nil {
		return e.fail(err)
	}

	st, err := reviewmod.OpenStore(ctx, reviewmod.FromConfig(e.cfg), logger.Get())
	if err != nil {
		return e.fail(err)
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			log.Error().Err(err).Msg("failed to close ledger")
		}
	}()

	m := metrics.New()
	m.ObserveReload(nil, g.BuiltAt)

	srv := phttp.NewServer(*addr)
	api.Mount(srv.Router(), api.Options{
		Config:  e.cfg,
		Holder:  holder,
		Store:   st,
		Metrics: m,
		Logger:  logger.Get(),
	})

	go reloadOnHangup(ctx, holder, m)

	ledger := string(st.Dialect)
	if ledger == "" {
		ledger = "memory"
	}
	log.Info().Str("addr", srv.Addr()).Str("generation", g.ID).Str("source", g.Source).Str("ledger", ledger).Msg("serving catalog")
	if err := srv.Run(ctx, *grace); err != nil {
		return e.fail(err)
	}
	return exitOK
}

// reloadOnHangup rebuilds the catalog on SIGHUP until ctx ends
func reloadOnHangup(ctx context.Context, holder *catalog.Holder, m *metrics.Metrics) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	log := logger.Named("serve")
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			g, err := holder.Reload(ctx)
			if err != nil {
				m.ObserveReload(err, time.Time{})
				log.Warn().Err(err).Msg("catalog reload refused")
				continue
			}
			m.ObserveReload(nil, g.BuiltAt)
		}
	}
}

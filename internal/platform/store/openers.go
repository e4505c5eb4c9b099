package store

import (
	"context"
	"time"

	perr "constkit/internal/platform/errors"
	"constkit/internal/platform/store/pg"
	"constkit/internal/platform/store/sqlite"
)

var (
	openPool   = pg.Open
	openSQLDB  = sqlite.Open
	retrySleep = time.Sleep
)

func emitterFor(cfg Config, s *Store, d Dialect) emitter {
	e := emitter{dialect: d, slowUS: int64(cfg.SlowQueryMs) * 1000}
	if cfg.LogSQL {
		e.tracer = Tracer(s.Log)
	}
	return e
}

// openPG opens pg and publishes the adapter only once the pool answers a ping
func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	p, err := openPool(ctx, pg.Config{URL: cfg.PG.URL, MaxConns: cfg.PG.MaxConns, AppName: cfg.AppName}, nil)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeInvalidArgument, "postgres config")
	}

	attempts := cfg.PG.ConnectRetries
	if attempts <= 0 {
		attempts = 6
	}
	pingTimeout := cfg.PG.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 3 * time.Second
	}
	const (
		backoffStart   = 150 * time.Millisecond
		backoffCeiling = 2 * time.Second
	)

	var lastErr error
	backoff := backoffStart
	for i := 0; i < attempts; i++ {
		toCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		lastErr = p.Pool.Ping(toCtx)
		cancel()

		if lastErr == nil {
			return newPGAdapter(p, emitterFor(cfg, s, DialectPostgres)), nil
		}
		if ctx.Err() != nil {
			p.Close()
			return nil, ctx.Err()
		}
		s.Log.Warn().Err(lastErr).Int("attempt", i+1).Dur("backoff", backoff).Msg("postgres not ready")
		retrySleep(backoff)
		backoff = min(backoff*2, backoffCeiling)
	}

	p.Close()
	return nil, perr.Wrapf(lastErr, perr.ErrorCodeUnavailable, "postgres ping failed after %d attempts", attempts)
}

func openSQLite(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	db, err := openSQLDB(ctx, sqlite.Config{Path: cfg.SQLite.Path, BusyTimeout: cfg.SQLite.BusyTimeout})
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeIO, "open sqlite %s", cfg.SQLite.Path)
	}
	return newSQLAdapter(db, emitterFor(cfg, s, DialectSQLite)), nil
}

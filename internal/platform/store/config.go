package store

import (
	"time"

	"constkit/internal/platform/config"
)

// Config selects and configures the backend
type Config struct {
	AppName string

	// Driver is postgres, sqlite, or empty for none
	Driver string

	PG     PGConfig
	SQLite SQLiteConfig

	LogSQL      bool
	SlowQueryMs int
}

// PGConfig configures postgres connectivity
type PGConfig struct {
	URL      string
	MaxConns int32

	// Guard/boot knobs:
	ConnectRetries int           // default 6
	PingTimeout    time.Duration // default 3s
}

// SQLiteConfig configures the local ledger file
type SQLiteConfig struct {
	Path        string
	BusyTimeout time.Duration
}

// ConfigFromEnv reads a Config under c, e.g. CONSTKIT_LEDGER_DRIVER with c = App().Prefix("LEDGER_")
func ConfigFromEnv(c config.Conf, def Config) Config {
	out := def
	out.Driver = c.MayEnum("DRIVER", def.Driver, string(DialectPostgres), string(DialectSQLite), "memory")
	out.PG.URL = c.MayString("PG_DBURL", def.PG.URL)
	out.PG.MaxConns = int32(c.MayInt("PG_MAX_CONNS", int(def.PG.MaxConns)))
	out.PG.ConnectRetries = c.MayInt("PG_CONNECT_RETRIES", def.PG.ConnectRetries)
	out.PG.PingTimeout = c.MayDuration("PG_PING_TIMEOUT", def.PG.PingTimeout)
	out.SQLite.Path = c.MayString("PATH", def.SQLite.Path)
	out.SQLite.BusyTimeout = c.MayDuration("BUSY_TIMEOUT", def.SQLite.BusyTimeout)
	out.LogSQL = c.MayBool("LOG_SQL", def.LogSQL)
	out.SlowQueryMs = c.MayInt("SLOW_QUERY_MS", def.SlowQueryMs)
	return out
}

package module

import (
	"time"

	"constkit/internal/platform/config"
	"constkit/internal/platform/store"
)

// DefaultLedgerPath is where the sqlite ledger lives when nothing else is configured
const DefaultLedgerPath = ".constkit/ledger.db"

// Options holds configuration settings for the review module
type Options struct {
	Store         store.Config
	ListLimit     int
	WriteAttempts int
	WriteBackoff  time.Duration
}

// FromConfig reads CONSTKIT_LEDGER_* settings; sqlite is the default driver
func FromConfig(cfg config.Conf) Options {
	lc := cfg.Prefix("LEDGER_")
	return Options{
		Store: store.ConfigFromEnv(lc, store.Config{
			AppName: "constkit",
			Driver:  string(store.DialectSQLite),
			PG:      store.PGConfig{MaxConns: 4},
			SQLite:  store.SQLiteConfig{Path: DefaultLedgerPath, BusyTimeout: 5 * time.Second},
		}),
		ListLimit:     lc.MayInt("LIST_LIMIT", 200),
		WriteAttempts: lc.MayInt("WRITE_ATTEMPTS", 3),
		WriteBackoff:  lc.MayDuration("WRITE_BACKOFF", 50*time.Millisecond),
	}
}

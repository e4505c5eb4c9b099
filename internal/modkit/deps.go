package modkit

import (
	"constkit/internal/core/catalog"
	"constkit/internal/modkit/repokit"
	"constkit/internal/platform/config"
	"constkit/internal/platform/logger"
	"constkit/internal/platform/metrics"
	"constkit/internal/platform/store"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log *logger.Logger
	Cfg config.Conf

	// DB is the ledger database; nil means modules fall back to in-memory state
	DB      repokit.TxRunner
	Dialect store.Dialect

	// Catalog serves the active generation
	Catalog *catalog.Holder

	// Metrics may be nil; every Observe* method is nil safe
	Metrics *metrics.Metrics
}

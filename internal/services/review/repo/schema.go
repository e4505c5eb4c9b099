package repo

import (
	"context"

	"constkit/internal/modkit/repokit"
	"constkit/internal/platform/store"
)

// schema is portable between Postgres and sqlite; timestamps are unix millis so neither
// driver's time handling leaks into the ledger
var schema = []string{
	`CREATE TABLE IF NOT EXISTS reviews (
		fingerprint   TEXT PRIMARY KEY,
		state         TEXT NOT NULL CHECK (state IN ('DISCOVERED', 'REVIEWED', 'APPLIED', 'REJECTED')),
		note          TEXT,
		file_path     TEXT NOT NULL DEFAULT '',
		atomic_id     TEXT NOT NULL DEFAULT '',
		updated_at_ms BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS reviews_state_idx ON reviews (state, updated_at_ms)`,
	`CREATE TABLE IF NOT EXISTS review_events (
		id          TEXT PRIMARY KEY,
		fingerprint TEXT NOT NULL REFERENCES reviews (fingerprint),
		from_state  TEXT NOT NULL,
		to_state    TEXT NOT NULL,
		note        TEXT,
		at_ms       BIGINT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS review_events_fp_idx ON review_events (fingerprint, at_ms)`,
}

// Migrate creates the ledger tables when missing
func Migrate(ctx context.Context, db repokit.TxRunner) error {
	return repokit.WithTx(ctx, db, func(q repokit.Queryer) error {
		for _, stmt := range schema {
			if _, err := q.Exec(ctx, stmt); err != nil {
				return store.DBErrorf(err, "migrate review ledger")
			}
		}
		return nil
	})
}

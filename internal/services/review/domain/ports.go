package domain

import (
	"context"

	"constkit/internal/core/analyzer"
)

// LedgerPort records and reads review decisions
type LedgerPort interface {
	Get(ctx context.Context, fingerprint string) (Review, error)
	List(ctx context.Context, f Filter) ([]Review, error)
	History(ctx context.Context, fingerprint string) ([]Event, error)
	Record(ctx context.Context, t Transition) (Review, error)
}

// AnnotatorPort stamps scan occurrences with their recorded state
type AnnotatorPort interface {
	Annotate(ctx context.Context, occ []analyzer.Occurrence) error
}

// Package service implements the review ledger: state-machine transitions per fingerprint and
// annotation of scan occurrences with their recorded state
package service

import (
	"context"
	"math/rand/v2"
	"time"

	"constkit/internal/core/analyzer"
	perr "constkit/internal/platform/errors"
	"constkit/internal/platform/logger"
	"constkit/internal/platform/metrics"
	"constkit/internal/platform/validation"
	"constkit/internal/services/review/domain"
	"constkit/internal/services/review/repo"

	"github.com/google/uuid"
)

// Config for the review service
type Config struct {
	// ListLimit caps List when the caller asks for more or for none
	ListLimit int
	// Attempts bounds how often Record retries a transaction that failed on lock
	// contention or serialization
	Attempts int
	// Backoff is the first retry delay; it doubles per attempt, capped at 2s
	Backoff time.Duration
}

// Service implements domain.LedgerPort and domain.AnnotatorPort
type Service struct {
	run     repo.Runner
	cfg     Config
	metrics *metrics.Metrics
	now     func() time.Time
	newID   func() string
}

// New constructs a review service over run; m may be nil
func New(run repo.Runner, m *metrics.Metrics, cfg Config) *Service {
	if cfg.ListLimit <= 0 {
		cfg.ListLimit = 200
	}
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = 50 * time.Millisecond
	}
	return &Service{
		run:     run,
		cfg:     cfg,
		metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
}

// Get implements domain.LedgerPort. A fingerprint with no decision reads as DISCOVERED
func (s *Service) Get(ctx context.Context, fingerprint string) (domain.Review, error) {
	r, err := s.run.Read().Get(ctx, fingerprint)
	if perr.IsCode(err, perr.ErrorCodeNotFound) {
		return domain.Review{Fingerprint: fingerprint, State: analyzer.StateDiscovered}, nil
	}
	return r, err
}

// List implements domain.LedgerPort
func (s *Service) List(ctx context.Context, f domain.Filter) ([]domain.Review, error) {
	if f.Limit <= 0 || f.Limit > s.cfg.ListLimit {
		f.Limit = s.cfg.ListLimit
	}
	out, err := s.run.Read().List(ctx, f)
	if err == nil && out == nil {
		out = []domain.Review{}
	}
	return out, err
}

// History implements domain.LedgerPort
func (s *Service) History(ctx context.Context, fingerprint string) ([]domain.Event, error) {
	out, err := s.run.Read().Events(ctx, fingerprint)
	if err == nil && out == nil {
		out = []domain.Event{}
	}
	return out, err
}

// Record implements domain.LedgerPort. The move is checked against the current state inside
// the same transaction that writes it
func (s *Service) Record(ctx context.Context, t domain.Transition) (domain.Review, error) {
	if err := validation.Struct(t); err != nil {
		return domain.Review{}, err
	}

	var (
		out domain.Review
		err error
	)
	for attempt := 1; attempt <= s.cfg.Attempts; attempt++ {
		out, err = s.record(ctx, t)
		if err == nil || !perr.Retryable(err) || attempt == s.cfg.Attempts {
			break
		}
		d := min(s.cfg.Backoff<<(attempt-1), 2*time.Second)
		logger.C(ctx).Debug().Err(err).Int("attempt", attempt).Dur("backoff", d).Msg("review write contended; retrying")
		if se := sleepCtx(ctx, d/2+rand.N(d/2+1)); se != nil {
			return domain.Review{}, err
		}
	}
	if err != nil {
		return domain.Review{}, err
	}
	s.metrics.ObserveReview(string(out.State))
	return out, nil
}

func (s *Service) record(ctx context.Context, t domain.Transition) (domain.Review, error) {
	var out domain.Review
	err := s.run.InTx(ctx, func(st repo.Storage) error {
		cur, err := st.Get(ctx, t.Fingerprint)
		switch {
		case perr.IsCode(err, perr.ErrorCodeNotFound):
			cur = domain.Review{Fingerprint: t.Fingerprint, State: analyzer.StateDiscovered}
		case err != nil:
			return err
		}
		if err := analyzer.Transition(cur.State, t.To); err != nil {
			return perr.WithField(err, "state")
		}

		at := s.now()
		next := domain.Review{
			Fingerprint: t.Fingerprint,
			State:       t.To,
			Note:        t.Note,
			FilePath:    t.FilePath,
			AtomicID:    t.AtomicID,
			UpdatedAt:   at,
		}
		if err := st.Upsert(ctx, next, cur.State); err != nil {
			return err
		}
		if err := st.AppendEvent(ctx, domain.Event{
			ID:          s.newID(),
			Fingerprint: t.Fingerprint,
			From:        cur.State,
			To:          t.To,
			Note:        t.Note,
			At:          at,
		}); err != nil {
			return err
		}
		out, err = st.Get(ctx, t.Fingerprint)
		if err == nil {
			logger.C(ctx).Info().
				Str("component", "review").
				Str("fingerprint", t.Fingerprint).
				Str("from", string(cur.State)).
				Str("to", string(t.To)).
				Msg("review recorded")
		}
		return err
	})
	return out, err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Annotate implements domain.AnnotatorPort, setting State on every occurrence. Occurrences
// the ledger has never seen are DISCOVERED
func (s *Service) Annotate(ctx context.Context, occ []analyzer.Occurrence) error {
	if len(occ) == 0 {
		return nil
	}
	fps := make([]string, 0, len(occ))
	for _, o := range occ {
		if o.Fingerprint != "" {
			fps = append(fps, o.Fingerprint)
		}
	}
	states, err := s.run.Read().States(ctx, fps)
	if err != nil {
		return err
	}
	for i := range occ {
		if st, ok := states[occ[i].Fingerprint]; ok {
			occ[i].State = st
		} else {
			occ[i].State = analyzer.StateDiscovered
		}
	}
	return nil
}

// Open reports whether an occurrence still needs attention after annotation
func Open(o analyzer.Occurrence) bool { return !o.State.Terminal() }

// Package repo provides the review ledger storage over the store SQL seam, plus an in-memory
// variant for runs that do not persist decisions
package repo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"constkit/internal/core/analyzer"
	"constkit/internal/modkit/repokit"
	perr "constkit/internal/platform/errors"
	"constkit/internal/platform/store"
	pstrings "constkit/internal/platform/strings"
	"constkit/internal/services/review/domain"
)

// Storage is the ledger repository surface. The same SQL runs on Postgres and sqlite
type Storage interface {
	Get(ctx context.Context, fingerprint string) (domain.Review, error)
	Upsert(ctx context.Context, r domain.Review, from analyzer.State) error
	AppendEvent(ctx context.Context, e domain.Event) error
	List(ctx context.Context, f domain.Filter) ([]domain.Review, error)
	Events(ctx context.Context, fingerprint string) ([]domain.Event, error)
	States(ctx context.Context, fingerprints []string) (map[string]analyzer.State, error)
}

type (
	sqlRepo struct{ q repokit.Queryer }
	binder  struct{}
)

// NewSQL constructs a repo binder for either SQL dialect
func NewSQL() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &sqlRepo{q: q} }

// statesChunk keeps IN lists under sqlite's bound parameter limit
const statesChunk = 500

const reviewCols = `fingerprint, state, note, file_path, atomic_id, updated_at_ms`

func scanReview(r store.Row) (domain.Review, error) {
	var (
		out   domain.Review
		state string
		note  *string
		ms    int64
	)
	if err := r.Scan(&out.Fingerprint, &state, &note, &out.FilePath, &out.AtomicID, &ms); err != nil {
		return domain.Review{}, err
	}
	out.State = analyzer.State(state)
	out.Note = pstrings.FromNull(note)
	out.UpdatedAt = time.UnixMilli(ms).UTC()
	return out, nil
}

func scanEvent(r store.Row) (domain.Event, error) {
	var (
		out      domain.Event
		from, to string
		note     *string
		ms       int64
	)
	if err := r.Scan(&out.ID, &out.Fingerprint, &from, &to, &note, &ms); err != nil {
		return domain.Event{}, err
	}
	out.From, out.To = analyzer.State(from), analyzer.State(to)
	out.Note = pstrings.FromNull(note)
	out.At = time.UnixMilli(ms).UTC()
	return out, nil
}

// Get implements Storage
func (s *sqlRepo) Get(ctx context.Context, fingerprint string) (domain.Review, error) {
	r, err := store.One(ctx, s.q, scanReview,
		`SELECT `+reviewCols+` FROM reviews WHERE fingerprint = $1`, fingerprint)
	if err != nil {
		if perr.Is(err, store.ErrNoRows) {
			return domain.Review{}, perr.NotFoundf("no review recorded for %s", fingerprint)
		}
		return domain.Review{}, store.DBErrorf(err, "get review %s", fingerprint)
	}
	return r, nil
}

// Upsert implements Storage. An existing row is only overwritten while it is still in state
// from; a concurrent writer that got there first leaves nothing to update and the move is refused
func (s *sqlRepo) Upsert(ctx context.Context, r domain.Review, from analyzer.State) error {
	tag, err := s.q.Exec(ctx, `
		INSERT INTO reviews (`+reviewCols+`)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (fingerprint) DO UPDATE SET
			state = excluded.state,
			note = excluded.note,
			file_path = CASE WHEN excluded.file_path = '' THEN reviews.file_path ELSE excluded.file_path END,
			atomic_id = CASE WHEN excluded.atomic_id = '' THEN reviews.atomic_id ELSE excluded.atomic_id END,
			updated_at_ms = excluded.updated_at_ms
		WHERE reviews.state = $7`,
		r.Fingerprint, string(r.State), pstrings.NullIfBlank(r.Note), r.FilePath, r.AtomicID, r.UpdatedAt.UnixMilli(),
		string(from),
	)
	if err != nil {
		return store.DBErrorf(err, "upsert review %s", r.Fingerprint)
	}
	if tag.RowsAffected() == 0 {
		return perr.WithField(
			perr.Detail(analyzer.ErrInvalidTransition, "%s is no longer %s", r.Fingerprint, from), "state")
	}
	return nil
}

// AppendEvent implements Storage
func (s *sqlRepo) AppendEvent(ctx context.Context, e domain.Event) error {
	err := store.ExecOne(ctx, s.q, `
		INSERT INTO review_events (id, fingerprint, from_state, to_state, note, at_ms)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		e.ID, e.Fingerprint, string(e.From), string(e.To), pstrings.NullIfBlank(e.Note), e.At.UnixMilli(),
	)
	return store.DBErrorf(err, "append review event %s", e.Fingerprint)
}

// List implements Storage
func (s *sqlRepo) List(ctx context.Context, f domain.Filter) ([]domain.Review, error) {
	var sb strings.Builder
	var args []any
	arg := func(v any) string { args = append(args, v); return fmt.Sprintf("$%d", len(args)) }

	sb.WriteString(`SELECT ` + reviewCols + ` FROM reviews`)
	if f.State != "" {
		sb.WriteString(` WHERE state = ` + arg(string(f.State)))
	}
	sb.WriteString(` ORDER BY updated_at_ms DESC, fingerprint`)
	if f.Limit > 0 {
		sb.WriteString(` LIMIT ` + arg(f.Limit))
	}

	out, err := store.Many(ctx, s.q, scanReview, sb.String(), args...)
	if err != nil {
		return nil, store.DBErrorf(err, "list reviews")
	}
	return out, nil
}

// Events implements Storage
func (s *sqlRepo) Events(ctx context.Context, fingerprint string) ([]domain.Event, error) {
	out, err := store.Many(ctx, s.q, scanEvent, `
		SELECT id, fingerprint, from_state, to_state, note, at_ms
		FROM review_events WHERE fingerprint = $1
		ORDER BY at_ms, id`, fingerprint)
	if err != nil {
		return nil, store.DBErrorf(err, "review history %s", fingerprint)
	}
	return out, nil
}

// States implements Storage
func (s *sqlRepo) States(ctx context.Context, fingerprints []string) (map[string]analyzer.State, error) {
	out := make(map[string]analyzer.State, len(fingerprints))
	for start := 0; start < len(fingerprints); start += statesChunk {
		end := min(start+statesChunk, len(fingerprints))
		chunk := fingerprints[start:end]

		ph := make([]string, len(chunk))
		args := make([]any, len(chunk))
		for i, fp := range chunk {
			ph[i] = fmt.Sprintf("$%d", i+1)
			args[i] = fp
		}
		rows, err := s.q.Query(ctx,
			`SELECT fingerprint, state FROM reviews WHERE fingerprint IN (`+strings.Join(ph, ", ")+`)`, args...)
		if err != nil {
			return nil, store.DBErrorf(err, "review states")
		}
		for rows.Next() {
			var fp, st string
			if err := rows.Scan(&fp, &st); err != nil {
				rows.Close()
				return nil, store.DBErrorf(err, "scan review state")
			}
			out[fp] = analyzer.State(st)
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, store.DBErrorf(err, "review states")
		}
	}
	return out, nil
}

package repo

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"

	"constkit/internal/core/analyzer"
	"constkit/internal/modkit/repokit"
	perr "constkit/internal/platform/errors"
	"constkit/internal/services/review/domain"
)

// Runner hands a Storage to reads and to atomic write sequences
type Runner interface {
	Read() Storage
	InTx(ctx context.Context, fn func(Storage) error) error
}

type sqlRunner struct {
	db repokit.TxRunner
	b  repokit.Binder[Storage]
}

// SQLRunner binds b to the pool for reads and to a transaction for writes
func SQLRunner(db repokit.TxRunner, b repokit.Binder[Storage]) Runner {
	return sqlRunner{db: db, b: b}
}

func (r sqlRunner) Read() Storage { return repokit.MustBind(r.b, r.db) }

func (r sqlRunner) InTx(ctx context.Context, fn func(Storage) error) error {
	return repokit.WithTx(ctx, r.db, func(q repokit.Queryer) error {
		return fn(repokit.MustBind(r.b, q))
	})
}

// Memory is a process-local ledger; decisions vanish with the process
type Memory struct {
	mu      sync.RWMutex
	reviews map[string]domain.Review
	events  map[string][]domain.Event
}

// NewMemory returns an empty in-memory ledger
func NewMemory() *Memory {
	return &Memory{reviews: map[string]domain.Review{}, events: map[string][]domain.Event{}}
}

// Read implements Runner
func (m *Memory) Read() Storage { return memView{m: m} }

// InTx implements Runner. Writes are serialized and rolled back when fn fails
func (m *Memory) InTx(_ context.Context, fn func(Storage) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	reviews := maps.Clone(m.reviews)
	events := make(map[string][]domain.Event, len(m.events))
	for k, v := range m.events {
		events[k] = slices.Clone(v)
	}
	if err := fn(memView{m: m, locked: true}); err != nil {
		m.reviews, m.events = reviews, events
		return err
	}
	return nil
}

type memView struct {
	m      *Memory
	locked bool
}

func (v memView) rlock() func() {
	if v.locked {
		return func() {}
	}
	v.m.mu.RLock()
	return v.m.mu.RUnlock
}

func (v memView) Get(_ context.Context, fingerprint string) (domain.Review, error) {
	defer v.rlock()()
	r, ok := v.m.reviews[fingerprint]
	if !ok {
		return domain.Review{}, perr.NotFoundf("no review recorded for %s", fingerprint)
	}
	return r, nil
}

func (v memView) Upsert(_ context.Context, r domain.Review, from analyzer.State) error {
	if !v.locked {
		return perr.Internalf("memory ledger: write outside InTx")
	}
	if prev, ok := v.m.reviews[r.Fingerprint]; ok {
		if prev.State != from {
			return perr.WithField(
				perr.Detail(analyzer.ErrInvalidTransition, "%s is no longer %s", r.Fingerprint, from), "state")
		}
		if r.FilePath == "" {
			r.FilePath = prev.FilePath
		}
		if r.AtomicID == "" {
			r.AtomicID = prev.AtomicID
		}
	}
	v.m.reviews[r.Fingerprint] = r
	return nil
}

func (v memView) AppendEvent(_ context.Context, e domain.Event) error {
	if !v.locked {
		return perr.Internalf("memory ledger: write outside InTx")
	}
	if _, ok := v.m.reviews[e.Fingerprint]; !ok {
		return perr.Newf(perr.ErrorCodeDB, "review event for unknown fingerprint %s", e.Fingerprint)
	}
	v.m.events[e.Fingerprint] = append(v.m.events[e.Fingerprint], e)
	return nil
}

func (v memView) List(_ context.Context, f domain.Filter) ([]domain.Review, error) {
	defer v.rlock()()
	var out []domain.Review
	for _, r := range v.m.reviews {
		if f.State == "" || r.State == f.State {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].Fingerprint < out[j].Fingerprint
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (v memView) Events(_ context.Context, fingerprint string) ([]domain.Event, error) {
	defer v.rlock()()
	return slices.Clone(v.m.events[fingerprint]), nil
}

func (v memView) States(_ context.Context, fingerprints []string) (map[string]analyzer.State, error) {
	defer v.rlock()()
	out := make(map[string]analyzer.State, len(fingerprints))
	for _, fp := range fingerprints {
		if r, ok := v.m.reviews[fp]; ok {
			out[fp] = r.State
		}
	}
	return out, nil
}

// Package http provides the read-only http transport for review decisions
package http

import (
	stdhttp "net/http"
	"strconv"

	"constkit/internal/core/analyzer"
	perr "constkit/internal/platform/errors"
	phttp "constkit/internal/platform/net/http"
	"constkit/internal/services/review/domain"
)

// Register mounts review endpoints on the given router
func Register(r phttp.Router, l domain.LedgerPort) {
	h := &handlers{l: l}

	// recorded decisions, newest first; ?state= and ?limit= narrow
	phttp.GetJSON(r, "/", h.list)

	// current state of one fingerprint
	phttp.GetJSON(r, "/{fingerprint}", h.get)

	// every transition recorded for one fingerprint
	phttp.GetJSON(r, "/{fingerprint}/history", h.history)
}

type handlers struct{ l domain.LedgerPort }

func (h *handlers) list(r *stdhttp.Request) (any, error) {
	var f domain.Filter
	q := r.URL.Query()
	if s := q.Get("state"); s != "" {
		st, err := analyzer.ParseState(s)
		if err != nil {
			return nil, perr.WithField(err, "state")
		}
		f.State = st
	}
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return nil, perr.WithField(perr.InvalidArgf("limit must be a non-negative integer"), "limit")
		}
		f.Limit = n
	}
	return h.l.List(r.Context(), f)
}

func (h *handlers) get(r *stdhttp.Request) (any, error) {
	return h.l.Get(r.Context(), phttp.URLParam(r, "fingerprint"))
}

func (h *handlers) history(r *stdhttp.Request) (any, error) {
	return h.l.History(r.Context(), phttp.URLParam(r, "fingerprint"))
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"constkit/internal/core/analyzer"
	"constkit/internal/modkit"
	perr "constkit/internal/platform/errors"
	"constkit/internal/platform/logger"
	"constkit/internal/services/review/domain"
	reviewmod "constkit/internal/services/review/module"
)

func (e env) review(ctx context.Context, args []string) int {
	fs := e.newFlags("review")
	var (
		state    = fs.String("state", "", "record a transition to reviewed, applied or rejected; omit to show the current state")
		note     = fs.String("note", "", "free-text note stored with the transition")
		file     = fs.String("file", "", "file the occurrence was found in, for the record")
		atomicID = fs.String("atomic-id", "", "matched atomic id, for the record")
		list     = fs.Bool("list", false, "list recorded decisions instead, newest first")
		format   = fs.String("format", "text", "output format: text or json")
	)
	pos, err := parseInterleaved(fs, args)
	if err != nil {
		return e.flagErr(err)
	}
	if *format != "text" && *format != "json" {
		return e.fail(perr.InvalidArgf("unknown format %q (want text or json)", *format))
	}
	asJSON := *format == "json"

	opts := reviewmod.FromConfig(e.cfg)
	st, err := reviewmod.OpenStore(ctx, opts, logger.Get())
	if err != nil {
		return e.fail(err)
	}
	defer func() { _ = st.Close(ctx) }()
	ledger := modkit.MustPortsOf[domain.LedgerPort](
		reviewmod.New(modkit.Deps{Cfg: e.cfg, DB: st.SQL, Dialect: st.Dialect}),
	)

	if *list {
		var f domain.Filter
		if *state != "" {
			s, err := analyzer.ParseState(*state)
			if err != nil {
				return e.fail(err)
			}
			f.State = s
		}
		rs, err := ledger.List(ctx, f)
		if err != nil {
			return e.fail(err)
		}
		return e.printReviews(rs, asJSON)
	}

	if len(pos) != 1 {
		return e.fail(perr.InvalidArgf("review needs exactly one fingerprint, got %d", len(pos)))
	}
	fp := pos[0]

	if *state == "" {
		r, err := ledger.Get(ctx, fp)
		if err != nil {
			return e.fail(err)
		}
		hist, err := ledger.History(ctx, fp)
		if err != nil {
			return e.fail(err)
		}
		if asJSON {
			return e.printJSON(map[string]any{"review": r, "history": hist})
		}
		_, _ = fmt.Fprintf(e.stdout, "%s %s\n", r.Fingerprint, r.State)
		for _, ev := range hist {
			_, _ = fmt.Fprintf(e.stdout, "  %s  %s -> %s  %s\n", ev.At.Format(time.RFC3339), ev.From, ev.To, ev.Note)
		}
		return exitOK
	}

	to, err := analyzer.ParseState(*state)
	if err != nil {
		return e.fail(err)
	}
	r, err := ledger.Record(ctx, domain.Transition{
		Fingerprint: fp,
		To:          to,
		Note:        *note,
		FilePath:    *file,
		AtomicID:    *atomicID,
	})
	if err != nil {
		// refused moves and malformed input are findings
		if perr.IsCode(err, perr.ErrorCodeConflict) || perr.IsCode(err, perr.ErrorCodeValidation) {
			_, _ = fmt.Fprintf(e.stderr, "constkit: %v\n", err)
			return exitFindings
		}
		return e.fail(err)
	}
	if asJSON {
		return e.printJSON(r)
	}
	_, _ = fmt.Fprintf(e.stdout, "%s %s\n", r.Fingerprint, r.State)
	return exitOK
}

func (e env) printReviews(rs []domain.Review, asJSON bool) int {
	if asJSON {
		return e.printJSON(rs)
	}
	tw := tabwriter.NewWriter(e.stdout, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "FINGERPRINT\tSTATE\tUPDATED\tFILE\tNOTE")
	for _, r := range rs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.Fingerprint, r.State, r.UpdatedAt.Format(time.RFC3339), r.FilePath, r.Note)
	}
	_ = tw.Flush()
	return exitOK
}

func (e env) printJSON(v any) int {
	enc := json.NewEncoder(e.stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return e.fail(err)
	}
	return exitOK
}

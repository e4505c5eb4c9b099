package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"strings"
	"text/tabwriter"

	"constkit/internal/core/analyzer"
	"constkit/internal/core/catalog"
	"constkit/internal/core/registry"
	"constkit/internal/modkit"
	"constkit/internal/platform/config"
	perr "constkit/internal/platform/errors"
	"constkit/internal/platform/logger"
	"constkit/internal/platform/metrics"
	"constkit/internal/services/review/domain"
	reviewmod "constkit/internal/services/review/module"
	reviewsvc "constkit/internal/services/review/service"

	"github.com/prometheus/client_golang/prometheus"
)

func (e env) scan(ctx context.Context, args []string) int {
	sc := e.cfg.Prefix("SCAN_")
	fs := e.newFlags("scan")
	var (
		domainFlag  = fs.String("domain", "", "only match this domain (time_ms, quantity, priority, technical, string)")
		format      = fs.String("format", sc.MayString("FORMAT", "json"), "report format: json or table")
		catalogFlag = fs.String("catalog", "", "catalog file or directory; defaults to CONSTKIT_CATALOG, then the embedded catalog")
		workers     = fs.Int("workers", sc.MayInt("WORKERS", 4), "files scanned concurrently")
		exclude     = fs.String("exclude", strings.Join(sc.MayCSV("EXCLUDE", nil), ","), "comma-separated globs to skip")
		maxBytes    = fs.Int64("max-file-bytes", sc.MayInt64("MAX_FILE_BYTES", 1<<20), "skip larger files with a warning")
		window      = fs.Int("context", sc.MayInt("CONTEXT", 50), "context characters kept on each side of a match")
		useLedger   = fs.Bool("ledger", false, "annotate occurrences with review state and drop applied or rejected ones")
		metricsFile = fs.String("metrics-file", "", "write scan counters in the Prometheus text format to this path")
	)
	pos, err := parseInterleaved(fs, args)
	if err != nil {
		return e.flagErr(err)
	}
	if len(pos) != 1 {
		return e.fail(perr.InvalidArgf("scan needs exactly one root directory, got %d", len(pos)))
	}
	if *format != "json" && *format != "table" {
		return e.fail(perr.InvalidArgf("unknown format %q (want json or table)", *format))
	}

	opts := analyzer.Options{
		Workers:       *workers,
		MaxFileBytes:  *maxBytes,
		Exclude:       config.SplitCSV(*exclude),
		ContextWindow: *window,
	}
	if *domainFlag != "" {
		d, err := registry.ParseDomain(*domainFlag)
		if err != nil {
			return e.fail(err)
		}
		opts.Domain = d
	}

	g, err := catalog.Open(e.catalogPath(*catalogFlag))
	if err != nil {
		return e.fail(err)
	}
	a, err := g.Analyzer(opts)
	if err != nil {
		return e.fail(err)
	}
	seq, err := a.Scan(ctx, pos[0])
	if err != nil {
		return e.fail(err)
	}

	m := metrics.New()
	rep := analyzer.Collect(observed(seq, m))
	if ctx.Err() != nil {
		logger.Named("scan").Warn().Int("files", rep.Summary.TotalFiles).Msg("scan interrupted; reporting partial results")
	}

	if *useLedger {
		if err := e.annotate(ctx, &rep); err != nil {
			return e.fail(err)
		}
	}

	if *metricsFile != "" {
		if err := prometheus.WriteToTextfile(*metricsFile, m.Registry()); err != nil {
			return e.fail(perr.Wrapf(err, perr.ErrorCodeIO, "write metrics file"))
		}
	}

	if *format == "table" {
		writeScanTable(e.stdout, rep, *useLedger)
	} else {
		enc := json.NewEncoder(e.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return e.fail(err)
		}
	}

	if len(rep.Occurrences) > 0 {
		return exitFindings
	}
	return exitOK
}

// observed counts every file result as it streams past
func observed(seq iter.Seq[analyzer.FileResult], m *metrics.Metrics) iter.Seq[analyzer.FileResult] {
	return func(yield func(analyzer.FileResult) bool) {
		for fr := range seq {
			domains := make([]string, 0, len(fr.Occurrences))
			for _, o := range fr.Occurrences {
				domains = append(domains, string(o.Domain))
			}
			m.ObserveScanFile(domains, fr.Warning != "")
			if !yield(fr) {
				return
			}
		}
	}
}

// annotate stamps review state from the configured ledger and keeps the open occurrences
func (e env) annotate(ctx context.Context, rep *analyzer.Report) error {
	opts := reviewmod.FromConfig(e.cfg)
	st, err := reviewmod.OpenStore(ctx, opts, logger.Get())
	if err != nil {
		return err
	}
	defer func() { _ = st.Close(ctx) }()

	mod := reviewmod.New(modkit.Deps{Cfg: e.cfg, DB: st.SQL, Dialect: st.Dialect})
	if err := modkit.MustPortsOf[domain.AnnotatorPort](mod).Annotate(ctx, rep.Occurrences); err != nil {
		return err
	}
	rep.Filter(reviewsvc.Open)
	return nil
}

func writeScanTable(w io.Writer, rep analyzer.Report, withState bool) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	header := "LOCATION\tDOMAIN\tLITERAL\tATOMIC ID\tCONFIDENCE\tSUGGESTION"
	if withState {
		header += "\tSTATE"
	}
	_, _ = fmt.Fprintln(tw, header)
	for _, o := range rep.Occurrences {
		row := fmt.Sprintf("%s:%d:%d\t%s\t%s\t%s\t%s\t%s",
			o.FilePath, o.Line, o.Column, o.Domain, o.MatchedLiteral, o.MatchedAtomicID, o.Confidence, o.SuggestedReplacement)
		if withState {
			row += "\t" + string(o.State)
		}
		_, _ = fmt.Fprintln(tw, row)
	}
	_ = tw.Flush()

	_, _ = fmt.Fprintf(w, "\n%d occurrences in %d files\n", rep.Summary.TotalOccurrences, rep.Summary.TotalFiles)

	if len(rep.Warnings) > 0 {
		_, _ = fmt.Fprintln(w, "\nwarnings:")
		tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, wn := range rep.Warnings {
			_, _ = fmt.Fprintf(tw, "  %s\t%s\n", wn.Path, wn.Message)
		}
		_ = tw.Flush()
	}
}

package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"constkit/internal/core/catalog"
	perr "constkit/internal/platform/errors"
	"constkit/internal/platform/logger"
)

func (e env) pack(args []string) int {
	fs := e.newFlags("pack")
	var (
		flagRoot = fs.String("root", "", "catalog directory holding core.yaml (or numbered versions of it); if empty, auto-discover")
		out      = fs.String("out", "-", "output path or '-' for stdout")
	)
	if err := fs.Parse(args); err != nil {
		return e.flagErr(err)
	}

	root, attempts, err := catalog.ResolveRoot(strings.TrimSpace(*flagRoot))
	if err != nil {
		_, _ = fmt.Fprintf(e.stderr, "failed to locate catalog root (looked in):\n")
		for _, a := range attempts {
			_, _ = fmt.Fprintf(e.stderr, "  - %s\n", a)
		}
		_, _ = fmt.Fprintf(e.stderr, "hint: pass --root or set CONSTKIT_CATALOG_ROOT\n")
		return e.fail(err)
	}
	log := logger.Named("pack")
	log.Debug().Str("root", root).Msg("using catalog root")

	f, err := catalog.LoadDir(root)
	if err != nil {
		return e.fail(err)
	}
	// the packed result must bootstrap and pass its own rules before it is written
	g, err := catalog.Build(f, root)
	if err != nil {
		return e.fail(err)
	}
	if err := g.Check(); err != nil {
		return e.fail(err)
	}
	enc, err := catalog.Marshal(f)
	if err != nil {
		return e.fail(err)
	}

	if *out == "-" {
		if _, err := e.stdout.Write(enc); err != nil {
			return e.fail(err)
		}
		return exitOK
	}
	if err := os.MkdirAll(filepath.Dir(*out), 0o755); err != nil {
		return e.fail(perr.Wrapf(err, perr.ErrorCodeIO, "create output directory"))
	}
	if err := os.WriteFile(*out, enc, 0o644); err != nil {
		return e.fail(perr.Wrapf(err, perr.ErrorCodeIO, "write %s", *out))
	}
	log.Info().Str("out", *out).Int("bytes", len(enc)).Int("values", len(f.Values)).Msg("catalog packed")
	return exitOK
}

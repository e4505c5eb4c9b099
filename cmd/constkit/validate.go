package main

import (
	"context"
	"encoding/json"
	"fmt"

	"constkit/internal/core/catalog"
	"constkit/internal/core/validate"
	perr "constkit/internal/platform/errors"
)

func (e env) validate(ctx context.Context, args []string) int {
	fs := e.newFlags("validate")
	var (
		rulesFlag   = fs.String("rules", "", "extra rule file (YAML or JSON) checked on top of the catalog's own rules")
		catalogFlag = fs.String("catalog", "", "catalog file or directory; defaults to CONSTKIT_CATALOG, then the embedded catalog")
		format      = fs.String("format", "text", "report format: text or json")
	)
	if err := fs.Parse(args); err != nil {
		return e.flagErr(err)
	}
	if fs.NArg() > 0 {
		return e.fail(perr.InvalidArgf("validate takes no arguments, got %q", fs.Args()))
	}
	if *format != "text" && *format != "json" {
		return e.fail(perr.InvalidArgf("unknown format %q (want text or json)", *format))
	}

	g, err := catalog.Open(e.catalogPath(*catalogFlag))
	if err != nil {
		return e.fail(err)
	}
	var extra []validate.RuleSet
	if *rulesFlag != "" {
		rs, err := validate.LoadRules(*rulesFlag)
		if err != nil {
			return e.fail(err)
		}
		extra = append(extra, rs)
	}

	rep, err := g.Validate(ctx, extra...)
	if err != nil {
		return e.fail(err)
	}

	if *format == "json" {
		enc := json.NewEncoder(e.stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rep); err != nil {
			return e.fail(err)
		}
	} else {
		_, _ = fmt.Fprintln(e.stdout, rep.String())
	}

	if !rep.Passed {
		return exitFindings
	}
	return exitOK
}

package analyzer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"iter"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"unicode/utf8"

	"constkit/internal/core/normalize"
	"constkit/internal/core/registry"
	perr "constkit/internal/platform/errors"

	"golang.org/x/sync/errgroup"
)

// readFile is a seam for tests
var readFile = os.ReadFile

type fileJob struct {
	abs  string
	rel  string
	size int64
}

// Scan walks root and yields one FileResult per candidate file. A missing root fails
// immediately; everything after that is reported per file. The sequence is lazy and can be
// ranged over again for a fresh scan; breaking out of the loop or cancelling ctx stops the
// workers, and results already yielded stay valid
func (a *Analyzer) Scan(ctx context.Context, root string) (iter.Seq[FileResult], error) {
	st, err := os.Stat(root)
	if err != nil {
		return nil, perr.Detail(ErrRootNotFound, "%s: %v", root, err)
	}
	if !st.IsDir() {
		return nil, perr.Detail(ErrRootNotFound, "%s is not a directory", root)
	}

	return func(yield func(FileResult) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		g, gctx := errgroup.WithContext(ctx)
		jobs := make(chan fileJob, a.opts.Workers)
		results := make(chan FileResult, a.opts.Workers)

		send := func(r FileResult) bool {
			select {
			case results <- r:
				return true
			case <-gctx.Done():
				return false
			}
		}

		g.Go(func() error {
			defer close(jobs)
			return a.walk(gctx, root, jobs, send)
		})
		for range a.opts.Workers {
			g.Go(func() error {
				for j := range jobs {
					if !send(a.scanFile(j)) {
						return gctx.Err()
					}
				}
				return nil
			})
		}
		go func() {
			_ = g.Wait()
			close(results)
		}()

		for r := range results {
			if !yield(r) {
				cancel()
				for range results {
				}
				return
			}
		}
	}, nil
}

func (a *Analyzer) walk(ctx context.Context, root string, jobs chan<- fileJob, send func(FileResult) bool) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		rel, _ := filepath.Rel(root, p)
		rel = filepath.ToSlash(rel)
		if err != nil {
			if p == root {
				return err
			}
			if !send(FileResult{Path: rel, Warning: fmt.Sprintf("unreadable: %v", err)}) {
				return ctx.Err()
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if p != root && (skipDirs[d.Name()] || a.excluded(d.Name(), rel)) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if _, ok := flavorFor(p); !ok || a.excluded(d.Name(), rel) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if !send(FileResult{Path: rel, Warning: fmt.Sprintf("unreadable: %v", err)}) {
				return ctx.Err()
			}
			return nil
		}
		select {
		case jobs <- fileJob{abs: p, rel: rel, size: info.Size()}:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
}

func (a *Analyzer) excluded(name, rel string) bool {
	for _, g := range a.opts.Exclude {
		if ok, _ := path.Match(g, name); ok {
			return true
		}
		if ok, _ := path.Match(g, rel); ok {
			return true
		}
	}
	return false
}

func (a *Analyzer) scanFile(j fileJob) FileResult {
	res := FileResult{Path: j.rel}
	if a.opts.MaxFileBytes > 0 && j.size > a.opts.MaxFileBytes {
		res.Warning = fmt.Sprintf("skipped: %d bytes exceeds limit of %d", j.size, a.opts.MaxFileBytes)
		return res
	}
	data, err := readFile(j.abs)
	if err != nil {
		res.Warning = fmt.Sprintf("unreadable: %v", err)
		return res
	}
	if bytes.IndexByte(data[:min(len(data), 8000)], 0) >= 0 {
		res.Warning = "skipped: binary content"
		return res
	}
	if !utf8.Valid(data) {
		res.Warning = "skipped: not valid UTF-8"
		return res
	}
	res.Occurrences = a.ScanText(j.rel, string(data))
	return res
}

// ScanText finds occurrences in one file's contents; path is used for syntax selection,
// suggestions and fingerprints
func (a *Analyzer) ScanText(p, src string) []Occurrence {
	fl, ok := flavorFor(p)
	if !ok {
		fl = flavorPlain
	}
	var (
		out  []Occurrence
		li   = newLineIndex(src)
		seen = map[string]int{}
		win  = a.opts.ContextWindow
	)
	for _, tok := range tokenize(src, fl) {
		ls, rs := window(src, tok.start, tok.end, win)
		id, dom, conf, ok := a.match(tok, src, ls, rs)
		if !ok {
			continue
		}
		line, col := li.position(tok.start)
		occ := Occurrence{
			FilePath:        p,
			Line:            line,
			Column:          col,
			MatchedLiteral:  src[tok.start:tok.end],
			MatchedAtomicID: id,
			Domain:          dom,
			Confidence:      conf,
			ContextSnippet:  normalize.Snippet(src[ls:rs]),
			State:           StateDiscovered,
		}
		occ.SuggestedReplacement = a.GenerateSuggestion(occ)
		occ.Fingerprint = fingerprint(occ, seen)
		out = append(out, occ)
	}
	return out
}

// match resolves a token to an atomic value. Strings only match the string domain; numbers
// try the inferred domain first, then the other numeric domains in fixed order
func (a *Analyzer) match(tok token, src string, ls, rs int) (registry.ID, registry.Domain, Confidence, bool) {
	if tok.kind == tokString {
		if a.opts.Domain != "" && a.opts.Domain != registry.DomainString {
			return "", "", "", false
		}
		if tok.text == "" {
			return "", "", "", false
		}
		id, ok := a.reg.Lookup(registry.DomainString, tok.text)
		return id, registry.DomainString, ConfidenceHigh, ok
	}

	if a.opts.Domain == registry.DomainString {
		return "", "", "", false
	}
	lit, err := registry.ParseLiteral(registry.DomainQuantity, tok.text)
	if err != nil {
		return "", "", "", false
	}
	inferred := inferDomain(src, tok.start, tok.end, ls, rs)

	if a.opts.Domain != "" {
		id, ok := a.reg.LookupLiteral(a.opts.Domain, lit)
		conf := ConfidenceLow
		if inferred == a.opts.Domain {
			conf = ConfidenceHigh
		}
		return id, a.opts.Domain, conf, ok
	}
	if inferred != "" {
		if id, ok := a.reg.LookupLiteral(inferred, lit); ok {
			return id, inferred, ConfidenceHigh, true
		}
	}
	for _, d := range registry.NumericDomains {
		if d == inferred {
			continue
		}
		if id, ok := a.reg.LookupLiteral(d, lit); ok {
			return id, d, ConfidenceLow, true
		}
	}
	return "", "", "", false
}

// fingerprint identifies an occurrence across runs without depending on its line, so
// unrelated edits elsewhere in the file keep review decisions attached. Identical
// occurrences in one file are told apart by ordinal
func fingerprint(occ Occurrence, seen map[string]int) string {
	base := occ.FilePath + "\x00" + string(occ.MatchedAtomicID) + "\x00" + occ.MatchedLiteral + "\x00" + occ.ContextSnippet
	n := seen[base]
	seen[base] = n + 1
	sum := sha256.Sum256([]byte(base + "\x00" + strconv.Itoa(n)))
	return hex.EncodeToString(sum[:8])
}

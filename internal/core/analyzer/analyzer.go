// Package analyzer scans source trees for literals that duplicate registered atomic values
// and proposes references to their semantic names.
//
// Scanning is read-only and advisory: it never writes files and never touches the registry.
// Files are scanned in parallel; occurrences within one file keep file order
package analyzer

import (
	"constkit/internal/core/registry"
	perr "constkit/internal/platform/errors"
)

var (
	// ErrRootNotFound means the scan root is missing or not a directory
	ErrRootNotFound = perr.New(perr.ErrorCodeNotFound, "scan root not found")
	// ErrRegistryNotFrozen means the analyzer was given a registry still in bootstrap
	ErrRegistryNotFrozen = perr.New(perr.ErrorCodeIntegrity, "registry is not frozen")
)

// Confidence says how a match was found
type Confidence string

// high: the surrounding keywords pointed at the matched domain. low: found by falling back
// across numeric domains
const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

// Occurrence is a located literal that duplicates an atomic value
type Occurrence struct {
	FilePath             string          `json:"filePath"`
	Line                 int             `json:"line"`
	Column               int             `json:"column"`
	MatchedLiteral       string          `json:"matchedLiteral"`
	MatchedAtomicID      registry.ID     `json:"matchedAtomicId,omitempty"`
	Domain               registry.Domain `json:"domain"`
	Confidence           Confidence      `json:"confidence"`
	ContextSnippet       string          `json:"contextSnippet"`
	SuggestedReplacement string          `json:"suggestedReplacement"`
	Fingerprint          string          `json:"fingerprint"`
	State                State           `json:"state"`
}

// FileResult is the outcome for one file. A file that could not be scanned carries a
// Warning and no occurrences
type FileResult struct {
	Path        string       `json:"path"`
	Occurrences []Occurrence `json:"occurrences"`
	Warning     string       `json:"warning,omitempty"`
}

// Complexity scores the file by its occurrence count
func (r FileResult) Complexity() Complexity { return ScoreComplexity(len(r.Occurrences)) }

// Namer looks up the names bound to an atomic value; semantic.Layer satisfies it
type Namer interface {
	NamesFor(id registry.ID) []string
}

// Options tunes a scan
type Options struct {
	// Workers scanning files concurrently; default 4
	Workers int
	// MaxFileBytes skips larger files with a warning; default 1 MiB, negative disables
	MaxFileBytes int64
	// Exclude globs matched against base names and root-relative slash paths
	Exclude []string
	// Domain restricts matching to one domain when set
	Domain registry.Domain
	// ContextWindow is the characters kept on each side for inference and snippets; default 50
	ContextWindow int
	// Suggest configures generated replacements
	Suggest SuggestOptions
}

// skipDirs are never descended into
var skipDirs = map[string]bool{
	".git": true, "node_modules": true, "vendor": true, "dist": true, "build": true,
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxFileBytes == 0 {
		o.MaxFileBytes = 1 << 20
	}
	if o.ContextWindow <= 0 {
		o.ContextWindow = 50
	}
	o.Suggest = o.Suggest.withDefaults()
	return o
}

// Analyzer scans against a frozen registry snapshot
type Analyzer struct {
	reg   *registry.Registry
	namer Namer
	opts  Options
}

// New returns an analyzer. namer may be nil, in which case suggestions use derived names
func New(reg *registry.Registry, namer Namer, opts Options) (*Analyzer, error) {
	if reg == nil || !reg.Frozen() {
		return nil, ErrRegistryNotFrozen
	}
	if opts.Domain != "" && !opts.Domain.Valid() {
		return nil, perr.InvalidArgf("unknown domain %q", opts.Domain)
	}
	return &Analyzer{reg: reg, namer: namer, opts: opts.withDefaults()}, nil
}

// Options returns the effective options
func (a *Analyzer) Options() Options { return a.opts }

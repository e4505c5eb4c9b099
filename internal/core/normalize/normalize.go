// Package normalize canonicalizes literal text so that registry lookups and context
// snippets are stable across editors and encodings.
//
// Literal pipeline
// 1 UTF-8 repair, drop invalid bytes
// 2 Unicode NFC composition ("é" typed as e + U+0301 equals the precomposed rune)
//
// Snippet pipeline
// 1 Sanitize control characters
// 2 Collapse every whitespace run (newlines included) to a single space and trim
package normalize

import (
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// chains are reused across analyzer workers; transformers are stateful so each
// caller gets its own from the pool
var chainPool = sync.Pool{
	New: func() any { return transform.Chain(norm.NFC) },
}

// Literal returns the canonical form used to key string-domain atomic values
func Literal(s string) string {
	if s == "" {
		return ""
	}
	s = strings.ToValidUTF8(s, "")
	if norm.NFC.IsNormalString(s) {
		return s
	}
	tr := chainPool.Get().(transform.Transformer)
	out, _, err := transform.String(tr, s)
	tr.Reset()
	chainPool.Put(tr)
	if err != nil {
		return s
	}
	return out
}

// Snippet flattens a context window onto one line for reports
func Snippet(s string) string {
	if s == "" {
		return s
	}
	s = Sanitize(s)
	var b strings.Builder
	b.Grow(len(s))
	inWS := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			inWS = true
			continue
		}
		if inWS && b.Len() > 0 {
			b.WriteByte(' ')
		}
		inWS = false
		b.WriteRune(r)
	}
	return b.String()
}

package analyzer

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"constkit/internal/core/registry"
)

// Language picks the suggestion template
type Language string

// Languages with dedicated templates; everything else is LanguageOther
const (
	LanguageGo         Language = "go"
	LanguageTypeScript Language = "typescript"
	LanguagePython     Language = "python"
	LanguageOther      Language = "other"
)

// LanguageOf maps a file path to its language
func LanguageOf(p string) Language {
	switch strings.ToLower(filepath.Ext(p)) {
	case ".go":
		return LanguageGo
	case ".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs":
		return LanguageTypeScript
	case ".py", ".pyi":
		return LanguagePython
	}
	return LanguageOther
}

// SuggestOptions names where constants live in the target codebase
type SuggestOptions struct {
	GoImport string // default "constants"
	TSModule string // default "@/constants"
	PyModule string // default "constants"
}

func (o SuggestOptions) withDefaults() SuggestOptions {
	if o.GoImport == "" {
		o.GoImport = "constants"
	}
	if o.TSModule == "" {
		o.TSModule = "@/constants"
	}
	if o.PyModule == "" {
		o.PyModule = "constants"
	}
	return o
}

// GenerateSuggestion renders the import and the reference that would replace the literal,
// one per line. It only produces text
func (a *Analyzer) GenerateSuggestion(occ Occurrence) string {
	name := a.ConstantName(occ.MatchedAtomicID)
	s := a.opts.Suggest
	switch LanguageOf(occ.FilePath) {
	case LanguageGo:
		return fmt.Sprintf("import %q\n%s.%s", s.GoImport, path.Base(s.GoImport), name)
	case LanguageTypeScript:
		return fmt.Sprintf("import { %s } from %q;\n%s", name, s.TSModule, name)
	case LanguagePython:
		return fmt.Sprintf("from %s import %s\n%s", s.PyModule, name, name)
	}
	return name
}

// ConstantName is the first semantic name bound to id, or a name derived from the
// value's description, or from the id itself
func (a *Analyzer) ConstantName(id registry.ID) string {
	if a.namer != nil {
		if names := a.namer.NamesFor(id); len(names) > 0 {
			return names[0]
		}
	}
	v, ok := a.reg.Get(id)
	if !ok {
		return upperSnake(string(id))
	}
	n := upperSnake(v.Description)
	if n == "" {
		return upperSnake(string(id))
	}
	if v.Domain == registry.DomainTimeMS && !strings.HasSuffix(n, "_MS") {
		n += "_MS"
	}
	return n
}

// upperSnake turns "quick response" into QUICK_RESPONSE
func upperSnake(s string) string {
	var b strings.Builder
	pending := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isLetter(c) || isDigit(c) {
			if pending && b.Len() > 0 {
				b.WriteByte('_')
			}
			pending = false
			if b.Len() == 0 && isDigit(c) {
				b.WriteString("N_")
			}
			if c >= 'a' && c <= 'z' {
				c -= 'a' - 'A'
			}
			b.WriteByte(c)
			continue
		}
		pending = true
	}
	return b.String()
}

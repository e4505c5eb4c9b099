package analyzer

import (
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"
)

// flavor describes the comment and string syntax of a file type
type flavor struct {
	slashComments bool // "//" and "/* */"
	hashComments  bool // "#"
	backticks     bool // `...` strings, may span lines
	tripleQuotes  bool // '''...''' and """...""", may span lines
	templates     bool // ${...} inside backticks is code
	fstrings      bool // {...} inside f-prefixed strings is code
}

var (
	flavorC      = flavor{slashComments: true, backticks: true}
	flavorJS     = flavor{slashComments: true, backticks: true, templates: true}
	flavorPHP    = flavor{slashComments: true, hashComments: true}
	flavorHash   = flavor{hashComments: true}
	flavorPython = flavor{hashComments: true, tripleQuotes: true, fstrings: true}
	flavorPlain  = flavor{}
)

// flavors maps lowercase extensions to syntax; files with other extensions are not scanned
var flavors = byExtension(map[flavor][]string{
	flavorC: {".go", ".java", ".kt", ".kts", ".rs", ".cs", ".c", ".h", ".cc", ".cpp", ".hpp",
		".swift", ".scala", ".dart"},
	flavorJS:     {".ts", ".tsx", ".js", ".jsx", ".mjs", ".cjs"},
	flavorPHP:    {".php"},
	flavorPython: {".py", ".pyi"},
	flavorHash:   {".rb", ".sh", ".bash", ".yaml", ".yml", ".toml", ".properties", ".tf"},
	flavorPlain:  {".json"},
})

func byExtension(in map[flavor][]string) map[string]flavor {
	out := make(map[string]flavor, 48)
	for f, exts := range in {
		for _, e := range exts {
			out[e] = f
		}
	}
	return out
}

// flavorFor returns the syntax for path; ok is false for unscanned file types
func flavorFor(path string) (flavor, bool) {
	f, ok := flavors[strings.ToLower(filepath.Ext(path))]
	return f, ok
}

type tokenKind uint8

const (
	tokNumber tokenKind = iota + 1
	tokString
)

// token is a literal in source. start/end are byte offsets of the whole literal (quotes
// included); text is the number as written or the unquoted string content
type token struct {
	kind       tokenKind
	text       string
	start, end int
}

// stopAt tells scanCode where a nested code region ends
type stopAt uint8

const (
	stopEOF   stopAt = iota
	stopBrace        // the } closing a template interpolation
	stopField        // the } closing an f-string field, or its format spec
)

// tokenize finds numeric and string literals outside comments. Digits that are part of an
// identifier (v2, sha256, x_10) are not literals
func tokenize(src string, fl flavor) []token {
	out, _ := scanCode(src, 0, fl, stopEOF)
	return out
}

// scanCode tokenizes from src[i] until stop and returns the offset just past it
func scanCode(src string, i int, fl flavor, stop stopAt) ([]token, int) {
	var out []token
	depth := 0
	for i < len(src) {
		c := src[i]
		if stop != stopEOF {
			switch c {
			case '{', '(', '[':
				depth++
			case ')', ']':
				depth = max(depth-1, 0)
			case '}':
				if depth == 0 {
					return out, i + 1
				}
				depth--
			case ':':
				if stop == stopField && depth == 0 {
					return out, fieldEnd(src, i)
				}
			}
		}
		switch {
		case fl.slashComments && c == '/' && strings.HasPrefix(src[i:], "//"):
			i = lineEnd(src, i)
		case fl.slashComments && c == '/' && strings.HasPrefix(src[i:], "/*"):
			if j := strings.Index(src[i+2:], "*/"); j >= 0 {
				i += j + 4
			} else {
				i = len(src)
			}
		case fl.hashComments && c == '#' && !shellParam(src, i):
			i = lineEnd(src, i)
		case c == '"' || c == '\'' || (c == '`' && fl.backticks):
			tok, inner, next, ok := scanString(src, i, fl)
			if ok {
				out = append(out, tok)
				out = append(out, inner...)
			}
			i = next
		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1]) && (i == 0 || !isWordByte(src[i-1]))):
			j := scanNumber(src, i)
			out = append(out, token{kind: tokNumber, text: src[i:j], start: i, end: j})
			i = j
		case c < utf8.RuneSelf:
			if isWordByte(c) {
				i = wordEnd(src, i)
			} else {
				i++
			}
		default:
			r, sz := utf8.DecodeRuneInString(src[i:])
			if isWord(r) {
				i = wordEnd(src, i)
			} else {
				i += sz
			}
		}
	}
	return out, i
}

// shellParam reports whether the # at src[i] belongs to $# or ${#name}
func shellParam(src string, i int) bool {
	return i > 0 && (src[i-1] == '$' || (i > 1 && src[i-1] == '{' && src[i-2] == '$'))
}

// scanString reads a quoted literal starting at src[i]. Single and double quoted strings end
// at the line; an unterminated one yields no token and scanning resumes after the quote.
// inner holds the literals found in interpolated code
func scanString(src string, i int, fl flavor) (tok token, inner []token, next int, ok bool) {
	q := src[i]
	fstr := fl.fstrings && q != '`' && fPrefixed(src, i)
	if fl.tripleQuotes && q != '`' && strings.HasPrefix(src[i:], strings.Repeat(string(q), 3)) {
		delim := src[i : i+3]
		j := strings.Index(src[i+3:], delim)
		if j < 0 {
			return token{}, nil, len(src), false
		}
		end := i + 3 + j + 3
		tok = token{kind: tokString, text: src[i+3 : i+3+j], start: i, end: end}
		if fstr {
			inner = fields(src[:i+3+j], i+3, fl)
		}
		return tok, inner, end, true
	}

	template := q == '`' && fl.templates
	j := i + 1
	escaped := false
	for j < len(src) {
		c := src[j]
		switch {
		case escaped:
			escaped = false
		case c == '\\' && (q != '`' || template):
			escaped = true
		case template && c == '$' && j+1 < len(src) && src[j+1] == '{':
			toks, k := scanCode(src, j+2, fl, stopBrace)
			inner = append(inner, toks...)
			j = k
			continue
		case c == q:
			tok = token{kind: tokString, text: unescape(src[i+1 : j]), start: i, end: j + 1}
			if fstr {
				inner = fields(src[:j], i+1, fl)
			}
			return tok, inner, j + 1, true
		case c == '\n' && q != '`':
			return token{}, nil, i + 1, false
		}
		j++
	}
	return token{}, nil, i + 1, false
}

// fPrefixed reports whether the quote at src[i] opens an f-string (f, rf, fr, any case)
func fPrefixed(src string, i int) bool {
	k := i
	for k > 0 && i-k < 2 && strings.IndexByte("rRbBfFuU", src[k-1]) >= 0 {
		k--
	}
	if k == i || (k > 0 && isWordByte(src[k-1])) {
		return false
	}
	return strings.ContainsAny(src[k:i], "fF")
}

// fields tokenizes the replacement fields of an f-string body that starts at src[k] and
// runs to the end of src. Doubled braces are literal
func fields(src string, k int, fl flavor) []token {
	var out []token
	for k < len(src) {
		switch {
		case strings.HasPrefix(src[k:], "{{"), strings.HasPrefix(src[k:], "}}"):
			k += 2
		case src[k] == '{':
			toks, next := scanCode(src, k+1, fl, stopField)
			out = append(out, toks...)
			k = next
		default:
			k++
		}
	}
	return out
}

// fieldEnd skips a format spec starting at src[i] and returns the offset past its closing }
func fieldEnd(src string, i int) int {
	depth := 0
	for ; i < len(src); i++ {
		switch src[i] {
		case '{':
			depth++
		case '}':
			if depth == 0 {
				return i + 1
			}
			depth--
		}
	}
	return i
}

var escapes = strings.NewReplacer(`\\`, `\`, `\"`, `"`, `\'`, `'`, `\n`, "\n", `\t`, "\t", `\r`, "\r")

func unescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	return escapes.Replace(s)
}

// scanNumber consumes a numeric literal including separators, fractions, exponents and
// suffixes. Anything glued on (10px, 1.2.3) is kept so the parse fails later and the token
// is dropped
func scanNumber(src string, i int) int {
	hex := i+1 < len(src) && src[i] == '0' && (src[i+1]|0x20) == 'x'
	j := i
	for j < len(src) {
		c := src[j]
		switch {
		case isDigit(c) || isLetter(c) || c == '_':
			j++
		case c == '.' && j+1 < len(src) && isDigit(src[j+1]):
			j++
		case (c == '+' || c == '-') && !hex && j > i && (src[j-1]|0x20) == 'e' && isDigit(src[j-2]):
			j++
		default:
			return j
		}
	}
	return j
}

func wordEnd(src string, i int) int {
	for i < len(src) {
		if c := src[i]; c < utf8.RuneSelf {
			if !isWordByte(c) {
				break
			}
			i++
			continue
		}
		r, sz := utf8.DecodeRuneInString(src[i:])
		if !isWord(r) {
			break
		}
		i += sz
	}
	return i
}

func lineEnd(src string, i int) int {
	if j := strings.IndexByte(src[i:], '\n'); j >= 0 {
		return i + j
	}
	return len(src)
}

func isDigit(c byte) bool  { return c >= '0' && c <= '9' }
func isLetter(c byte) bool { return (c|0x20) >= 'a' && (c|0x20) <= 'z' }

func isWordByte(c byte) bool { return isDigit(c) || isLetter(c) || c == '_' || c == '$' }

// isWord reports whether r is considered a word character for boundary checks:
// letters, numbers, combining marks (Mn) and connector punctuation (Pc, e.g. underscore)
func isWord(r rune) bool {
	if r == utf8.RuneError || r == 0 {
		return false
	}
	return unicode.IsLetter(r) ||
		unicode.IsNumber(r) ||
		unicode.In(r, unicode.Mn, unicode.Pc)
}

// window widens [start,end) by n runes on each side
func window(s string, start, end, n int) (int, int) {
	ls, rs := start, end
	for k := 0; k < n && ls > 0; k++ {
		_, sz := utf8.DecodeLastRuneInString(s[:ls])
		ls -= sz
	}
	for k := 0; k < n && rs < len(s); k++ {
		_, sz := utf8.DecodeRuneInString(s[rs:])
		rs += sz
	}
	return ls, rs
}

// lineIndex maps byte offsets to 1-based line and rune column
type lineIndex struct {
	src    string
	starts []int
}

func newLineIndex(src string) lineIndex {
	starts := make([]int, 1, 64)
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return lineIndex{src: src, starts: starts}
}

func (li lineIndex) position(off int) (line, col int) {
	lo, hi := 0, len(li.starts)
	for lo+1 < hi {
		mid := (lo + hi) / 2
		if li.starts[mid] <= off {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo + 1, utf8.RuneCountInString(li.src[li.starts[lo]:off]) + 1
}

package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func texts(toks []token) []string {
	out := make([]string, 0, len(toks))
	for _, t := range toks {
		out = append(out, t.text)
	}
	return out
}

func TestTokenize_Numbers(t *testing.T) {
	cases := []struct {
		name string
		src  string
		want []string
	}{
		{"plain", "x = 30000", []string{"30000"}},
		{"separators", "x = 30_000", []string{"30_000"}},
		{"fraction and exponent", "a(1.5, 2e-3, .25)", []string{"1.5", "2e-3", ".25"}},
		{"hex", "mask := 0xFF", []string{"0xFF"}},
		{"suffix", "long n = 100L;", []string{"100L"}},
		{"identifier digits", "sha256(v2) + x_10", nil},
		{"unit glued", "width: 10px", []string{"10px"}},
		{"method on number", "5.toString()", []string{"5"}},
		{"negative", "y = -7", []string{"7"}},
		{"shell positional", "echo $1", nil},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, nilIfEmpty(texts(tokenize(c.src, flavorC))))
		})
	}
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

func TestTokenize_Strings(t *testing.T) {
	toks := tokenize(`a := "json" + 'x' + `+"`raw\nline`"+` + "esc\"aped"`, flavorC)
	assert.Equal(t, []string{"json", "x", "raw\nline", `esc"aped`}, texts(toks))
	for _, tk := range toks {
		assert.Equal(t, tokString, tk.kind)
	}

	// numbers inside strings are not numbers
	assert.Equal(t, []string{"port 8080"}, texts(tokenize(`s = "port 8080"`, flavorC)))

	// unterminated quote does not swallow the rest of the file
	assert.Equal(t, []string{"42"}, texts(tokenize("it's\nn = 42", flavorHash)))
}

func TestTokenize_Comments(t *testing.T) {
	src := "a = 1 // 2\n/* 3\n4 */ b = 5"
	assert.Equal(t, []string{"1", "5"}, texts(tokenize(src, flavorC)))

	assert.Equal(t, []string{"1"}, texts(tokenize("a = 1 # 2", flavorPython)))
	assert.Equal(t, []string{"1", "2"}, texts(tokenize("a = 1 # 2", flavorC)), "no hash comments in C-like files")
	assert.Equal(t, []string{"doc 1", "3"}, texts(tokenize(`x = """doc 1""" # 2`+"\ny = 3", flavorPython)))
}

func TestTokenize_TemplateLiterals(t *testing.T) {
	toks := tokenize("const u = `${base}/x?t=${30000}`", flavorJS)
	assert.Equal(t, []string{"${base}/x?t=${30000}", "30000"}, texts(toks))
	assert.Equal(t, tokNumber, toks[1].kind)
	assert.Equal(t, "30000", "const u = `${base}/x?t=${30000}`"[toks[1].start:toks[1].end])

	nested := tokenize("`a ${f(`b ${2}`) + 3} c` + 4", flavorJS)
	assert.Equal(t, []string{"a ${f(`b ${2}`) + 3} c", "b ${2}", "2", "3", "4"}, texts(nested))

	assert.Equal(t, []string{`\${1}`}, texts(tokenize("`\\${1}`", flavorJS)), "escaped dollar is text")
	assert.Equal(t, []string{"${30000}"}, texts(tokenize("s := `${30000}`", flavorC)), "raw strings do not interpolate")
}

func TestTokenize_FStrings(t *testing.T) {
	src := `msg = f"wait {30000} ms, {{literal 5}}, {x:>10}"`
	assert.Equal(t, []string{"wait {30000} ms, {{literal 5}}, {x:>10}", "30000"}, texts(tokenize(src, flavorPython)))

	assert.Equal(t, []string{"{2}", "2"}, texts(tokenize(`rf'{2}'`, flavorPython)))
	assert.Equal(t, []string{"a {7}", "7"}, texts(tokenize(`f"""a {7}"""`, flavorPython)))
	assert.Equal(t, []string{"{d['k'] * 60}", "k", "60"}, texts(tokenize(`F"{d['k'] * 60}"`, flavorPython)))
	assert.Equal(t, []string{"{30000}"}, texts(tokenize(`s = "{30000}"`, flavorPython)), "plain strings do not interpolate")
	assert.Equal(t, []string{"{30000}"}, texts(tokenize(`s = b"{30000}"`, flavorPython)))
}

func TestTokenize_ShellParams(t *testing.T) {
	src := `[ $# -gt 0 ] && n=${#arr[@]} || n=3 # 9`
	assert.Equal(t, []string{"0", "3"}, texts(tokenize(src, flavorHash)))
}

func TestLineIndex(t *testing.T) {
	src := "ab\ncé 12\n\nx"
	li := newLineIndex(src)
	line, col := li.position(len("ab\ncé "))
	assert.Equal(t, 2, line)
	assert.Equal(t, 4, col, "columns count runes")

	line, col = li.position(0)
	assert.Equal(t, 1, line)
	assert.Equal(t, 1, col)

	line, _ = li.position(len(src) - 1)
	assert.Equal(t, 4, line)
}

func TestWindow(t *testing.T) {
	s := "ééé 1 ééé"
	ls, rs := window(s, len("ééé "), len("ééé 1"), 2)
	assert.Equal(t, "é 1 é", s[ls:rs])
}

func TestEachWord(t *testing.T) {
	var got []string
	eachWord("maxRetryCount HTTPServer request_timeout_ms", 0, func(w string, _ int) { got = append(got, w) })
	assert.Equal(t, []string{"max", "retry", "count", "http", "server", "request", "timeout", "ms"}, got)
}

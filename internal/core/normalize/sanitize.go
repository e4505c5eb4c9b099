package normalize

import (
	"strings"
	"unicode/utf8"
)

// Sanitize drops bytes that would garble a terminal or JSON report:
// NUL and other ASCII controls except '\n', '\r', '\t'; DEL; C1 controls U+0080..U+009F;
// invalid UTF-8. Clean input is returned unchanged without allocating
func Sanitize(s string) string {
	clean := true
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if drop(r, size) {
			clean = false
			break
		}
		i += size
	}
	if clean {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if !drop(r, size) {
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return b.String()
}

func drop(r rune, size int) bool {
	switch {
	case r == utf8.RuneError && size == 1:
		return true
	case r < 0x20:
		return r != '\n' && r != '\r' && r != '\t'
	case r == 0x7F:
		return true
	case r >= 0x80 && r <= 0x9F:
		return true
	}
	return false
}

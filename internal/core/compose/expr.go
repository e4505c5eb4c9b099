package compose

import (
	"strings"

	"constkit/internal/core/registry"
	"constkit/internal/core/semantic"
	perr "constkit/internal/platform/errors"
)

// Op is a derivation operator
type Op byte

// Supported operators
const (
	OpNone Op = 0
	OpMul  Op = '*'
	OpDiv  Op = '/'
	OpAdd  Op = '+'
	OpSub  Op = '-'
)

// expr is a parsed entry: base [op operand]
type expr struct {
	base    string
	op      Op
	operand string
}

// parseExpr splits an entry. Literal bases are reported as raw literals before any other
// syntax problem so the caller sees the more useful error
func parseExpr(field, s string) (expr, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return expr{}, perr.Detail(ErrInvalidDerivation, "field %s: empty entry", field)
	}
	if isRawLiteral(s) {
		return expr{}, perr.Detail(ErrRawLiteralDerivation, "field %s: %s is a literal, bind it to a name", field, s)
	}

	i := strings.IndexAny(s[1:], "*/+-")
	if i < 0 {
		return expr{base: s}, checkRef(field, s)
	}
	i++
	e := expr{
		base:    strings.TrimSpace(s[:i]),
		op:      Op(s[i]),
		operand: strings.TrimSpace(s[i+1:]),
	}
	if looksLiteral(e.base) {
		return expr{}, perr.Detail(ErrRawLiteralDerivation, "field %s: base operand %s is a literal", field, e.base)
	}
	if err := checkRef(field, e.base); err != nil {
		return expr{}, err
	}
	if e.operand == "" {
		return expr{}, perr.Detail(ErrInvalidDerivation, "field %s: missing operand after %c", field, e.op)
	}
	if _, ok := number(e.operand); !ok {
		if err := checkRef(field, e.operand); err != nil {
			return expr{}, err
		}
	}
	return e, nil
}

// checkRef accepts identifiers and flags dotted paths as bundle references
func checkRef(field, ref string) error {
	if semantic.IsName(ref) {
		return nil
	}
	if strings.Contains(ref, ".") {
		parts := strings.Split(ref, ".")
		ok := true
		for _, p := range parts {
			ok = ok && semantic.IsName(p)
		}
		if ok {
			return perr.Detail(ErrCrossBundleReference, "field %s: %s", field, ref)
		}
	}
	return perr.Detail(ErrInvalidDerivation, "field %s: cannot parse %q", field, ref)
}

func isRawLiteral(s string) bool {
	if _, ok := number(s); ok {
		return true
	}
	return len(s) >= 2 && strings.ContainsRune(`"'`+"`", rune(s[0])) && s[len(s)-1] == s[0]
}

func looksLiteral(s string) bool {
	if s == "" {
		return false
	}
	c := s[0]
	return c >= '0' && c <= '9' || c == '.' || c == '"' || c == '\'' || c == '`' || isRawLiteral(s)
}

func number(s string) (float64, bool) {
	lit, err := registry.ParseLiteral(registry.DomainQuantity, s)
	if err != nil {
		return 0, false
	}
	return lit.Float64()
}

func apply(op Op, a, b float64) (float64, bool) {
	switch op {
	case OpMul:
		return a * b, true
	case OpDiv:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	case OpAdd:
		return a + b, true
	case OpSub:
		return a - b, true
	}
	return 0, false
}

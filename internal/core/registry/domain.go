package registry

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"constkit/internal/core/normalize"
	perr "constkit/internal/platform/errors"
)

// Domain partitions atomic values by meaning of the unit, not by Go type
type Domain string

const (
	// DomainTimeMS holds durations in milliseconds
	DomainTimeMS Domain = "time_ms"
	// DomainQuantity holds counts, sizes and limits
	DomainQuantity Domain = "quantity"
	// DomainPriority holds priorities, levels and weights
	DomainPriority Domain = "priority"
	// DomainTechnical holds ports, status codes, buffer sizes and similar
	DomainTechnical Domain = "technical"
	// DomainString holds text constants
	DomainString Domain = "string"
)

// Domains lists every domain; numeric domains come first in lookup-fallback order
var Domains = []Domain{DomainTimeMS, DomainQuantity, DomainPriority, DomainTechnical, DomainString}

// NumericDomains is Domains without DomainString
var NumericDomains = Domains[:4]

// Valid reports whether d is a known domain
func (d Domain) Valid() bool {
	for _, x := range Domains {
		if x == d {
			return true
		}
	}
	return false
}

// Numeric reports whether d holds numbers
func (d Domain) Numeric() bool { return d.Valid() && d != DomainString }

// ParseDomain validates a domain name (case-insensitive)
func ParseDomain(s string) (Domain, error) {
	d := Domain(strings.ToLower(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", perr.Detail(ErrInvalidValue, "unknown domain %q", s)
	}
	return d, nil
}

// Literal is a canonical value. Numbers compare by value ("30_000" == "30000.0"),
// strings by NFC text
type Literal struct {
	text  string
	num   float64
	isNum bool
}

// Number builds a numeric literal
func Number(f float64) Literal {
	if f == 0 {
		f = 0 // folds -0
	}
	return Literal{text: strconv.FormatFloat(f, 'f', -1, 64), num: f, isNum: true}
}

// Text builds a string literal
func Text(s string) Literal { return Literal{text: normalize.Literal(s)} }

// IsNumber reports whether the literal is numeric
func (l Literal) IsNumber() bool { return l.isNum }

// Float64 returns the numeric value; ok is false for strings
func (l Literal) Float64() (float64, bool) { return l.num, l.isNum }

// String returns the canonical text
func (l Literal) String() string { return l.text }

// Equal compares canonical forms
func (l Literal) Equal(o Literal) bool { return l.isNum == o.isNum && l.text == o.text }

// MarshalJSON renders numbers as JSON numbers and strings as JSON strings
func (l Literal) MarshalJSON() ([]byte, error) {
	if l.isNum {
		return []byte(l.text), nil
	}
	return json.Marshal(l.text)
}

// ParseLiteral canonicalizes raw source text for domain d. Numeric domains accept
// underscores, decimal fractions and exponents, 0x/0o/0b prefixes and the usual type
// suffixes (n, L, u, f); the string domain takes raw as the unquoted content
func ParseLiteral(d Domain, raw string) (Literal, error) {
	if !d.Valid() {
		return Literal{}, perr.Detail(ErrInvalidValue, "unknown domain %q", d)
	}
	if d == DomainString {
		return Text(raw), nil
	}
	f, ok := parseNumber(raw)
	if !ok {
		return Literal{}, perr.Detail(ErrInvalidValue, "%s value %q is not a number", d, raw)
	}
	return Number(f), nil
}

func parseNumber(raw string) (float64, bool) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), "_", "")
	neg := false
	if strings.HasPrefix(s, "-") {
		neg, s = true, s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	if s == "" {
		return 0, false
	}

	var f float64
	if len(s) > 2 && s[0] == '0' && strings.ContainsRune("xXoObB", rune(s[1])) {
		body := strings.TrimRight(s, "nlLuU")
		n, err := strconv.ParseUint(body, 0, 64)
		if err != nil {
			return 0, false
		}
		f = float64(n)
	} else {
		body := strings.TrimRight(s, "nlLuUfFdD")
		v, err := strconv.ParseFloat(body, 64)
		if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
			return 0, false
		}
		f = v
	}
	if neg {
		f = -f
	}
	return f, true
}

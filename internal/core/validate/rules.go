package validate

import (
	"fmt"
	"strconv"
	"strings"

	perr "constkit/internal/platform/errors"
)

// ErrMalformedRules means a rule file could not be parsed or failed schema validation
var ErrMalformedRules = perr.New(perr.ErrorCodeValidation, "malformed rule file")

// Op is an ordering comparison
type Op string

// Ordering operators
const (
	OpLT Op = "<"
	OpLE Op = "<="
	OpGT Op = ">"
	OpGE Op = ">="
)

// Holds evaluates a op b
func (o Op) Holds(a, b float64) bool {
	switch o {
	case OpLT:
		return a < b
	case OpLE:
		return a <= b
	case OpGT:
		return a > b
	case OpGE:
		return a >= b
	}
	return false
}

// OrderingRule requires Left Op Right on the resolved values
type OrderingRule struct {
	Left  string `yaml:"left" json:"left" validate:"required,ident"`
	Op    Op     `yaml:"op" json:"op" validate:"required,oneof=< <= > >="`
	Right string `yaml:"right" json:"right" validate:"required,ident"`
}

func (r OrderingRule) String() string { return fmt.Sprintf("%s %s %s", r.Left, r.Op, r.Right) }

// RangeRule requires Min <= value <= Max; a nil bound is open
type RangeRule struct {
	Name string   `yaml:"name" json:"name" validate:"required,ident"`
	Min  *float64 `yaml:"min,omitempty" json:"min,omitempty" validate:"required_without=Max"`
	Max  *float64 `yaml:"max,omitempty" json:"max,omitempty" validate:"required_without=Min"`
}

func (r RangeRule) String() string {
	lo, hi := "-inf", "+inf"
	if r.Min != nil {
		lo = strconv.FormatFloat(*r.Min, 'f', -1, 64)
	}
	if r.Max != nil {
		hi = strconv.FormatFloat(*r.Max, 'f', -1, 64)
	}
	return fmt.Sprintf("%s in [%s, %s]", r.Name, lo, hi)
}

// RuleSet is everything a rule file can declare.
//
// Distinct groups must resolve to different atomic values and Same groups to equal ones;
// together they make the keep-apart-or-unify decision for look-alike thresholds explicit
type RuleSet struct {
	Ordering []OrderingRule `yaml:"ordering" json:"ordering" validate:"dive"`
	Range    []RangeRule    `yaml:"range" json:"range" validate:"dive"`
	Distinct [][]string     `yaml:"distinct" json:"distinct" validate:"dive,min=2,dive,ident"`
	Same     [][]string     `yaml:"same" json:"same" validate:"dive,min=2,dive,ident"`
}

// Empty reports whether the set holds no rules
func (rs RuleSet) Empty() bool {
	return len(rs.Ordering)+len(rs.Range)+len(rs.Distinct)+len(rs.Same) == 0
}

// Merge appends other's rules
func (rs RuleSet) Merge(other RuleSet) RuleSet {
	rs.Ordering = append(rs.Ordering[:len(rs.Ordering):len(rs.Ordering)], other.Ordering...)
	rs.Range = append(rs.Range[:len(rs.Range):len(rs.Range)], other.Range...)
	rs.Distinct = append(rs.Distinct[:len(rs.Distinct):len(rs.Distinct)], other.Distinct...)
	rs.Same = append(rs.Same[:len(rs.Same):len(rs.Same)], other.Same...)
	return rs
}

// Kind classifies a violation
type Kind string

// Violation kinds
const (
	KindOrdering   Kind = "ordering"
	KindRange      Kind = "range"
	KindDistinct   Kind = "distinct"
	KindSame       Kind = "same"
	KindUnresolved Kind = "unresolved"
)

// Violation is one failed rule
type Violation struct {
	Kind    Kind     `json:"kind"`
	Rule    string   `json:"rule"`
	Names   []string `json:"names"`
	Message string   `json:"message"`
}

func (v Violation) String() string { return fmt.Sprintf("[%s] %s: %s", v.Kind, v.Rule, v.Message) }

// Report is the outcome of ValidateAll
type Report struct {
	Violations []Violation `json:"violations"`
	Passed     bool        `json:"passed"`
	Rules      int         `json:"rules"`
}

func (r Report) String() string {
	if r.Passed {
		return fmt.Sprintf("%d rules passed", r.Rules)
	}
	lines := make([]string, 0, len(r.Violations)+1)
	lines = append(lines, fmt.Sprintf("%d of %d rules failed", len(r.Violations), r.Rules))
	for _, v := range r.Violations {
		lines = append(lines, "  "+v.String())
	}
	return strings.Join(lines, "\n")
}

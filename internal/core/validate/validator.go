// Package validate checks cross-cutting invariants (ordering, ranges, unification policy)
// over resolved semantic names. Violations are data, never errors
package validate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"constkit/internal/core/registry"
	"constkit/internal/core/semantic"

	"golang.org/x/sync/errgroup"
)

// Validator evaluates rules against a resolver
type Validator struct {
	res   semantic.Resolver
	rules RuleSet
}

// New returns a validator for rules over res
func New(res semantic.Resolver, rules RuleSet) *Validator {
	return &Validator{res: res, rules: rules}
}

// Rules returns the configured rule set
func (v *Validator) Rules() RuleSet { return v.rules }

// ValidateOrdering evaluates every rule and returns all failures
func (v *Validator) ValidateOrdering(rules []OrderingRule) []Violation {
	var out []Violation
	for _, r := range rules {
		if viol := v.checkOrdering(r); viol != nil {
			out = append(out, *viol)
		}
	}
	return out
}

// ValidateRange checks min <= value(name) <= max
func (v *Validator) ValidateRange(name string, min, max float64) *Violation {
	return v.checkRange(RangeRule{Name: name, Min: &min, Max: &max})
}

// ValidateDistinct requires each group's names to resolve to different atomic values
func (v *Validator) ValidateDistinct(groups [][]string) []Violation {
	var out []Violation
	for _, g := range groups {
		rule := "distinct(" + strings.Join(g, ", ") + ")"
		byID := make(map[registry.ID][]string, len(g))
		var ids []registry.ID
		for _, name := range g {
			av, err := v.res.Resolve(name)
			if err != nil {
				out = append(out, unresolved(rule, name, err))
				continue
			}
			if _, seen := byID[av.ID]; !seen {
				ids = append(ids, av.ID)
			}
			byID[av.ID] = append(byID[av.ID], name)
		}
		for _, id := range ids {
			if names := byID[id]; len(names) > 1 {
				out = append(out, Violation{
					Kind:    KindDistinct,
					Rule:    rule,
					Names:   names,
					Message: fmt.Sprintf("%s all resolve to %s", strings.Join(names, ", "), id),
				})
			}
		}
	}
	return out
}

// ValidateSame requires each group's names to resolve to equal values
func (v *Validator) ValidateSame(groups [][]string) []Violation {
	var out []Violation
	for _, g := range groups {
		rule := "same(" + strings.Join(g, ", ") + ")"
		var (
			first     registry.AtomicValue
			firstName string
			diff      []string
		)
		for _, name := range g {
			av, err := v.res.Resolve(name)
			if err != nil {
				out = append(out, unresolved(rule, name, err))
				continue
			}
			if firstName == "" {
				first, firstName = av, name
				continue
			}
			if !av.Value.Equal(first.Value) {
				diff = append(diff, fmt.Sprintf("%s=%s", name, av.Value))
			}
		}
		if len(diff) > 0 {
			out = append(out, Violation{
				Kind:    KindSame,
				Rule:    rule,
				Names:   append([]string(nil), g...),
				Message: fmt.Sprintf("%s=%s but %s", firstName, first.Value, strings.Join(diff, ", ")),
			})
		}
	}
	return out
}

// ValidateAll evaluates the configured rule set. Rule groups run concurrently; the report
// is sorted so output is stable. The error is non-nil only when ctx ends first
func (v *Validator) ValidateAll(ctx context.Context) (Report, error) {
	var parts [4][]Violation
	g, ctx := errgroup.WithContext(ctx)

	run := func(i int, fn func() []Violation) {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			parts[i] = fn()
			return nil
		})
	}
	run(0, func() []Violation { return v.ValidateOrdering(v.rules.Ordering) })
	run(1, func() []Violation {
		var out []Violation
		for _, r := range v.rules.Range {
			if viol := v.checkRange(r); viol != nil {
				out = append(out, *viol)
			}
		}
		return out
	})
	run(2, func() []Violation { return v.ValidateDistinct(v.rules.Distinct) })
	run(3, func() []Violation { return v.ValidateSame(v.rules.Same) })

	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	var all []Violation
	for _, p := range parts {
		all = append(all, p...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].Kind != all[j].Kind {
			return all[i].Kind < all[j].Kind
		}
		return all[i].Rule < all[j].Rule
	})
	rs := v.rules
	return Report{
		Violations: all,
		Passed:     len(all) == 0,
		Rules:      len(rs.Ordering) + len(rs.Range) + len(rs.Distinct) + len(rs.Same),
	}, nil
}

func (v *Validator) checkOrdering(r OrderingRule) *Violation {
	rule := r.String()
	a, ok, viol := v.number(rule, r.Left)
	if !ok {
		return viol
	}
	b, ok, viol := v.number(rule, r.Right)
	if !ok {
		return viol
	}
	if r.Op.Holds(a, b) {
		return nil
	}
	return &Violation{
		Kind:    KindOrdering,
		Rule:    rule,
		Names:   []string{r.Left, r.Right},
		Message: fmt.Sprintf("%s (%v) %s %s (%v) does not hold", r.Left, a, r.Op, r.Right, b),
	}
}

func (v *Validator) checkRange(r RangeRule) *Violation {
	rule := r.String()
	x, ok, viol := v.number(rule, r.Name)
	if !ok {
		return viol
	}
	if (r.Min == nil || x >= *r.Min) && (r.Max == nil || x <= *r.Max) {
		return nil
	}
	return &Violation{
		Kind:    KindRange,
		Rule:    rule,
		Names:   []string{r.Name},
		Message: fmt.Sprintf("%s is %v", r.Name, x),
	}
}

// number resolves name to a float; on failure it returns the violation to report
func (v *Validator) number(rule, name string) (float64, bool, *Violation) {
	av, err := v.res.Resolve(name)
	if err != nil {
		viol := unresolved(rule, name, err)
		return 0, false, &viol
	}
	f, ok := av.Value.Float64()
	if !ok {
		return 0, false, &Violation{
			Kind:    KindUnresolved,
			Rule:    rule,
			Names:   []string{name},
			Message: fmt.Sprintf("%s is a %s value and cannot be compared", name, av.Domain),
		}
	}
	return f, true, nil
}

func unresolved(rule, name string, err error) Violation {
	return Violation{Kind: KindUnresolved, Rule: rule, Names: []string{name}, Message: err.Error()}
}

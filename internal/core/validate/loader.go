package validate

import (
	"bytes"
	"errors"
	"io"
	"os"

	perr "constkit/internal/platform/errors"
	"constkit/internal/platform/validation"

	"gopkg.in/yaml.v3"
)

// LoadRules reads a YAML or JSON rule file
func LoadRules(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, perr.Wrapf(err, perr.ErrorCodeIO, "read rules %s", path)
	}
	rs, err := ParseRules(data)
	if err != nil {
		return RuleSet{}, perr.WithOp(err, "load "+path)
	}
	return rs, nil
}

// ParseRules decodes and schema-checks a rule document. JSON is accepted as YAML.
// Unknown keys are rejected so typos do not silently drop rules
func ParseRules(data []byte) (RuleSet, error) {
	var rs RuleSet
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rs); err != nil && !errors.Is(err, io.EOF) {
		return RuleSet{}, perr.Detail(ErrMalformedRules, "parse rules: %v", err)
	}
	if err := validation.Struct(rs); err != nil {
		return RuleSet{}, perr.Detail(ErrMalformedRules, "%v", err)
	}
	for _, r := range rs.Range {
		if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
			return RuleSet{}, perr.Detail(ErrMalformedRules, "range %s: min %v exceeds max %v", r.Name, *r.Min, *r.Max)
		}
	}
	return rs, nil
}

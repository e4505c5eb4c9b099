package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"io"
	"os"
	"sync"

	"constkit/internal/core/registry"
	"constkit/internal/core/validate"
	perr "constkit/internal/platform/errors"
	"constkit/internal/platform/validation"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var embedded []byte

// ErrMalformedCatalog means a catalog document does not parse or fails schema checks
var ErrMalformedCatalog = perr.New(perr.ErrorCodeValidation, "malformed catalog")

// File is the on-disk catalog: values with their names, bundles, legacy aliases and rules.
// YAML and JSON are both accepted
type File struct {
	Version int              `yaml:"version" json:"version" validate:"omitempty,eq=1"`
	Values  []ValueSpec      `yaml:"values" json:"values" validate:"dive"`
	Bundles []BundleSpec     `yaml:"bundles,omitempty" json:"bundles,omitempty" validate:"dive"`
	Aliases []AliasSpec      `yaml:"aliases,omitempty" json:"aliases,omitempty" validate:"dive"`
	Rules   validate.RuleSet `yaml:"rules,omitempty" json:"rules,omitempty"`
}

// ValueSpec registers one atomic value and binds its names
type ValueSpec struct {
	Domain      string     `yaml:"domain" json:"domain" validate:"required,domain"`
	Value       Scalar     `yaml:"value" json:"value" validate:"required"`
	Description string     `yaml:"description" json:"description" validate:"required"`
	Bind        []BindSpec `yaml:"bind,omitempty" json:"bind,omitempty" validate:"dive"`
}

// BindSpec is one semantic name for the enclosing value
type BindSpec struct {
	Name    string `yaml:"name" json:"name" validate:"required,ident"`
	Meaning string `yaml:"meaning,omitempty" json:"meaning,omitempty"`
}

// BundleSpec composes one bundle; fields map to semantic names or derivations
type BundleSpec struct {
	Name   string            `yaml:"name" json:"name" validate:"required"`
	Fields map[string]string `yaml:"fields" json:"fields" validate:"required,min=1"`
}

// AliasSpec exposes a legacy name for a semantic name
type AliasSpec struct {
	Old  string `yaml:"old" json:"old" validate:"required"`
	Name string `yaml:"name" json:"name" validate:"required,ident"`
}

// Scalar keeps a value exactly as written (30_000 stays 30_000) so canonicalization
// happens in one place, the registry
type Scalar string

// UnmarshalYAML takes the raw scalar text regardless of its resolved YAML type
func (s *Scalar) UnmarshalYAML(n *yaml.Node) error {
	if n.Kind != yaml.ScalarNode {
		return perr.Newf(perr.ErrorCodeValidation, "line %d: value must be a scalar", n.Line)
	}
	*s = Scalar(n.Value)
	return nil
}

var registerTags sync.Once

func initValidation() {
	registerTags.Do(func() {
		_ = validation.RegisterValidation("domain", "{0} must be one of time_ms, quantity, priority, technical, string",
			func(fl validation.FieldLevel) bool {
				_, err := registry.ParseDomain(fl.Field().String())
				return err == nil
			})
	})
}

// Parse decodes and schema-checks a catalog document. Unknown keys are rejected
func Parse(data []byte) (*File, error) {
	initValidation()
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, perr.Detail(ErrMalformedCatalog, "parse: %v", err)
	}
	if err := validation.Struct(f); err != nil {
		return nil, perr.Detail(ErrMalformedCatalog, "%v", err)
	}
	if f.Version == 0 {
		f.Version = 1
	}
	return &f, nil
}

// LoadFile reads a catalog from disk
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeIO, "read catalog %s", path)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, perr.WithOp(err, "load "+path)
	}
	return f, nil
}

// Default returns the catalog compiled into the binary
func Default() *File {
	f, err := Parse(embedded)
	if err != nil {
		panic("catalog: embedded default.yaml: " + err.Error())
	}
	return f
}

// Marshal renders f as YAML
func Marshal(f *File) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "encode catalog")
	}
	if err := enc.Close(); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnknown, "encode catalog")
	}
	return buf.Bytes(), nil
}

package catalog

import (
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"constkit/internal/core/registry"
	perr "constkit/internal/platform/errors"
	"constkit/internal/platform/logger"
)

// CoreFile is the entry point of a catalog directory; every other *.yaml/*.yml/*.json
// file below it is a fragment
const CoreFile = "core.yaml"

// LoadDir assembles a catalog directory into one File
func LoadDir(root string) (*File, error) {
	core, err := LoadFile(filepath.Join(root, CoreFile))
	if err != nil {
		return nil, err
	}
	paths, err := findFragments(root)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeIO, "walk catalog %s", root)
	}
	frags := make([]*File, 0, len(paths))
	for _, p := range paths {
		f, err := LoadFile(p)
		if err != nil {
			return nil, err
		}
		frags = append(frags, f)
	}
	logger.Named("catalog").Debug().Str("root", root).Int("fragments", len(frags)).Msg("catalog assembled")
	return Assemble(core, frags...)
}

// Assemble merges fragments into core. Values de-dupe on (domain, canonical value) and
// union their names; the same value described two ways is an error. Bundles and aliases
// merge by name, rules concatenate
func Assemble(core *File, frags ...*File) (*File, error) {
	out := &File{Version: 1}
	type vkey struct {
		d   registry.Domain
		lit string
	}
	idx := map[vkey]int{}
	bundles := map[string]BundleSpec{}
	aliases := map[string]string{}

	for _, f := range append([]*File{core}, frags...) {
		if f == nil {
			continue
		}
		for _, v := range f.Values {
			d, err := registry.ParseDomain(v.Domain)
			if err != nil {
				return nil, err
			}
			lit, err := registry.ParseLiteral(d, string(v.Value))
			if err != nil {
				return nil, err
			}
			k := vkey{d: d, lit: lit.String()}
			i, ok := idx[k]
			if !ok {
				idx[k] = len(out.Values)
				v.Bind = append([]BindSpec(nil), v.Bind...)
				out.Values = append(out.Values, v)
				continue
			}
			have := &out.Values[i]
			if strings.TrimSpace(have.Description) != strings.TrimSpace(v.Description) {
				return nil, perr.Detail(registry.ErrDuplicateValue, "%s %s described as %q and %q",
					d, lit, have.Description, v.Description)
			}
			have.Bind = mergeBinds(have.Bind, v.Bind)
		}

		for _, b := range f.Bundles {
			cur, ok := bundles[b.Name]
			if ok && !maps.Equal(cur.Fields, b.Fields) {
				return nil, perr.Conflictf("bundle %s defined twice with different fields", b.Name)
			}
			bundles[b.Name] = b
		}
		for _, a := range f.Aliases {
			if cur, ok := aliases[a.Old]; ok && cur != a.Name {
				return nil, perr.Conflictf("alias %s points at %s and %s", a.Old, cur, a.Name)
			}
			aliases[a.Old] = a.Name
		}
		out.Rules = out.Rules.Merge(f.Rules)
	}

	for _, name := range sortedKeys(bundles) {
		out.Bundles = append(out.Bundles, bundles[name])
	}
	for _, old := range sortedKeys(aliases) {
		out.Aliases = append(out.Aliases, AliasSpec{Old: old, Name: aliases[old]})
	}
	return out, nil
}

func mergeBinds(dst, src []BindSpec) []BindSpec {
	seen := make(map[string]bool, len(dst))
	for _, b := range dst {
		seen[b.Name] = true
	}
	for _, b := range src {
		if seen[b.Name] {
			continue
		}
		seen[b.Name] = true
		dst = append(dst, b)
	}
	return dst
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func findFragments(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Name() == CoreFile && filepath.Dir(path) == root {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".yaml", ".yml", ".json":
			files = append(files, path)
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

func hasCore(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, CoreFile))
	return err == nil
}

// latestNumericSubdir picks catalogs/<n> with the highest n holding a core file
func latestNumericSubdir(dir string) (string, bool) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return "", false
	}
	best := -1
	for _, e := range ents {
		n, err := strconv.Atoi(e.Name())
		if err != nil || !e.IsDir() || !hasCore(filepath.Join(dir, e.Name())) {
			continue
		}
		best = max(best, n)
	}
	if best < 0 {
		return "", false
	}
	return filepath.Join(dir, strconv.Itoa(best)), true
}

// ResolveRoot finds a catalog directory: the given path, then CONSTKIT_CATALOG_ROOT, then
// ./catalog. A directory of numbered versions resolves to the latest. The second return
// lists every path tried
func ResolveRoot(p string) (string, []string, error) {
	var attempts []string
	try := func(p string) (string, bool) {
		if p == "" {
			return "", false
		}
		attempts = append(attempts, p)
		if hasCore(p) {
			return p, true
		}
		if sub, ok := latestNumericSubdir(p); ok {
			attempts = append(attempts, sub)
			return sub, true
		}
		return "", false
	}
	for _, c := range []string{strings.TrimSpace(p), strings.TrimSpace(os.Getenv("CONSTKIT_CATALOG_ROOT")), "./catalog"} {
		if root, ok := try(c); ok {
			return root, attempts, nil
		}
	}
	return "", attempts, perr.NotFoundf("%s not found in %s", CoreFile, strings.Join(attempts, ", "))
}

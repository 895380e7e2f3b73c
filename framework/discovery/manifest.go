package discovery

import (
	"fmt"
	"os"
	"sort"

	"github.com/launchdarkly/test-engine/framework/meta"
	"github.com/launchdarkly/test-engine/framework/opt"

	yaml "gopkg.in/yaml.v3"
)

// Manifest assigns markers to methods that are already registered, so that groups, ordering,
// descriptions and skips can be changed without recompiling the suites. JSON is accepted as
// well, since it is a subset of YAML.
//
//	methods:
//	  Calculator.Adds:
//	    groups: [math, fast]
//	    description: adds two numbers
//	  Calculator.Reset:
//	    order: 3
//	  example.com/suites.Calculator.Divides:
//	    skip: not implemented yet
//
// Keys are either the display name or the full name of a method.
type Manifest struct {
	Methods map[string]ManifestEntry `yaml:"methods"`
}

// ManifestEntry holds the markers for one method. Groups are added to the existing ones;
// the other fields replace existing values only when present.
type ManifestEntry struct {
	Groups      []string          `yaml:"groups"`
	Order       opt.Maybe[uint8]  `yaml:"order"`
	Description opt.Maybe[string] `yaml:"description"`
	Skip        opt.Maybe[string] `yaml:"skip"`
}

// ParseManifest parses manifest data.
func ParseManifest(data []byte) (Manifest, error) {
	var ret Manifest
	if err := yaml.Unmarshal(data, &ret); err != nil {
		return Manifest{}, fmt.Errorf("invalid manifest: %w", err)
	}
	return ret, nil
}

// LoadManifest reads a manifest file and applies it to the modules.
func LoadManifest(path string, modules ModuleSet) error {
	data, err := os.ReadFile(path) //nolint:gosec
	if err != nil {
		return err
	}
	manifest, err := ParseManifest(data)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return manifest.Apply(modules)
}

// Apply sets the markers of every listed method. It fails without changing anything if any
// key does not identify exactly one registered method.
func (mf Manifest) Apply(modules ModuleSet) error {
	byName := make(map[string][]*meta.Method)
	for _, module := range modules {
		for _, t := range module.Types() {
			for _, method := range t.Methods {
				byName[method.DisplayName()] = append(byName[method.DisplayName()], method)
				if method.FullName() != method.DisplayName() {
					byName[method.FullName()] = append(byName[method.FullName()], method)
				}
			}
		}
	}

	keys := make([]string, 0, len(mf.Methods))
	for k := range mf.Methods {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	targets := make([]*meta.Method, 0, len(keys))
	for _, k := range keys {
		found := byName[k]
		switch len(found) {
		case 0:
			return fmt.Errorf("manifest refers to unknown method %q", k)
		case 1:
			targets = append(targets, found[0])
		default:
			return fmt.Errorf("manifest key %q is ambiguous, use the full name", k)
		}
	}

	for i, k := range keys {
		entry := mf.Methods[k]
		markers := &targets[i].Markers
		markers.AddGroups(entry.Groups...)
		markers.Order = entry.Order.Or(markers.Order)
		if entry.Description.IsDefined() {
			markers.Description = entry.Description.Value()
		}
		markers.Skip = entry.Skip.Or(markers.Skip)
	}
	return nil
}

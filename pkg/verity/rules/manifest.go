package rules

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jamesainslie/verity/pkg/verity/rule"
)

// ManifestVersion is the manifest schema version this loader understands.
const ManifestVersion = 1

// Spec is one rule definition in a manifest.
type Spec struct {
	ID      string `yaml:"id"`
	Kind    string `yaml:"kind"`
	Group   int    `yaml:"group"`
	Path    string `yaml:"path"`
	Pattern string `yaml:"pattern"`
	Max     int    `yaml:"max"`
}

// Manifest is the on-disk rule catalog.
type Manifest struct {
	Version int    `yaml:"version"`
	Rules   []Spec `yaml:"rules"`
}

// Load reads a manifest file and returns a registry of rules bound to the
// given scan root. Unlike profile persistence, a broken manifest is a hard
// error: running zero rules and reporting success would defeat the tool.
func Load(path, root string) (*rule.Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return Parse(data, root)
}

// Parse builds a registry from manifest bytes.
func Parse(data []byte, root string) (*rule.Registry, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest: %w", err)
	}
	if m.Version != ManifestVersion {
		return nil, fmt.Errorf("unsupported manifest version %d (want %d)", m.Version, ManifestVersion)
	}

	reg := rule.NewRegistry()
	for i, spec := range m.Rules {
		r, err := fromSpec(spec, root)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, spec.ID, err)
		}
		if err := reg.Register(r); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// fromSpec validates one spec and builds its rule.
func fromSpec(spec Spec, root string) (rule.Rule, error) {
	if spec.ID == "" {
		return nil, fmt.Errorf("missing id")
	}
	if spec.Group < 0 {
		return nil, fmt.Errorf("negative group")
	}

	switch spec.Kind {
	case KindPathExists, KindPathAbsent, KindDirExists:
		if spec.Path == "" {
			return nil, fmt.Errorf("kind %s requires path", spec.Kind)
		}
	case KindMaxEntries, KindMaxFiles, KindMaxSize:
		if spec.Path == "" {
			return nil, fmt.Errorf("kind %s requires path", spec.Kind)
		}
		if spec.Max < 0 {
			return nil, fmt.Errorf("kind %s requires non-negative max", spec.Kind)
		}
	case KindForbidGlob, KindRequireGlob:
		if spec.Pattern == "" {
			return nil, fmt.Errorf("kind %s requires pattern", spec.Kind)
		}
	default:
		return nil, fmt.Errorf("unknown kind %q", spec.Kind)
	}

	return &structuralRule{
		id:      spec.ID,
		group:   spec.Group,
		kind:    spec.Kind,
		root:    root,
		path:    spec.Path,
		pattern: spec.Pattern,
		max:     spec.Max,
	}, nil
}

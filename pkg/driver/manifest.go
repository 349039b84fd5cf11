// Package driver hosts everything around the evaluator core: the package
// manifest and lockfile, dependency installation, and loading .noeval
// source into a live interpreter.
package driver

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ManifestFileName is the per-package manifest at the package root.
const ManifestFileName = "package.yml"

// Manifest describes a noeval package.
type Manifest struct {
	Name         string                     `yaml:"name"`
	Version      string                     `yaml:"version,omitempty"`
	Entry        string                     `yaml:"entry,omitempty"`
	Dependencies map[string]*DependencySpec `yaml:"dependencies,omitempty"`
}

// DependencySpec locates one dependency. Exactly one of Path or Git must be
// set; Tag, Branch, and Rev refine a git source.
type DependencySpec struct {
	Path   string `yaml:"path,omitempty"`
	Git    string `yaml:"git,omitempty"`
	Tag    string `yaml:"tag,omitempty"`
	Branch string `yaml:"branch,omitempty"`
	Rev    string `yaml:"rev,omitempty"`
}

func (s *DependencySpec) validate(name string) error {
	hasPath := strings.TrimSpace(s.Path) != ""
	hasGit := strings.TrimSpace(s.Git) != ""
	switch {
	case hasPath && hasGit:
		return fmt.Errorf("dependency %q: path and git are mutually exclusive", name)
	case !hasPath && !hasGit:
		return fmt.Errorf("dependency %q: needs a path or git source", name)
	case hasPath && (s.Tag != "" || s.Branch != "" || s.Rev != ""):
		return fmt.Errorf("dependency %q: tag/branch/rev require a git source", name)
	}
	return nil
}

// LoadManifest reads and validates a package.yml.
func LoadManifest(path string) (*Manifest, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("manifest: resolve %s: %w", path, err)
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var m Manifest
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&m); err != nil {
		return nil, fmt.Errorf("manifest: parse %s: %w", abs, err)
	}

	m.Name = sanitizeSegment(m.Name)
	if m.Name == "" {
		return nil, fmt.Errorf("manifest: %s missing name", abs)
	}
	for name, spec := range m.Dependencies {
		if spec == nil {
			return nil, fmt.Errorf("dependency %q: empty specification", name)
		}
		if err := spec.validate(name); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

// FindManifest walks upward from start looking for a package.yml.
func FindManifest(start string) (string, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, ManifestFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("manifest: %s not found above %s", ManifestFileName, start)
		}
		dir = parent
	}
}

// sanitizeSegment normalizes a package name for use as a path component.
func sanitizeSegment(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	var b strings.Builder
	for _, r := range name {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

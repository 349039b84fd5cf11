package driver

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LockFileName is the resolved-dependency record next to the manifest.
const LockFileName = "package.lock"

// Lockfile records the exact sources and checksums the installer resolved,
// so later installs reproduce the same tree.
type Lockfile struct {
	Root      string          `yaml:"root"`
	Generated string          `yaml:"generated"`
	Tool      string          `yaml:"tool"`
	Packages  []LockedPackage `yaml:"packages"`
}

// LockedPackage is one pinned dependency.
type LockedPackage struct {
	Name     string `yaml:"name"`
	Version  string `yaml:"version"`
	Source   string `yaml:"source"`
	Checksum string `yaml:"checksum"`
}

// NewLockfile seeds a lockfile for the named root package.
func NewLockfile(root, tool string) *Lockfile {
	return &Lockfile{
		Root:      sanitizeSegment(root),
		Generated: time.Now().UTC().Format(time.RFC3339),
		Tool:      strings.TrimSpace(tool),
	}
}

// LoadLockfile parses a package.lock from disk.
func LoadLockfile(path string) (*Lockfile, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("lockfile: resolve %s: %w", path, err)
	}
	file, err := os.Open(abs)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lock Lockfile
	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&lock); err != nil {
		return nil, fmt.Errorf("lockfile: parse %s: %w", abs, err)
	}
	lock.normalize()
	return &lock, nil
}

// Pin records (or replaces) the entry for one package.
func (l *Lockfile) Pin(pkg LockedPackage) {
	pkg.Name = sanitizeSegment(pkg.Name)
	for i, existing := range l.Packages {
		if existing.Name == pkg.Name {
			l.Packages[i] = pkg
			return
		}
	}
	l.Packages = append(l.Packages, pkg)
}

// Lookup returns the pinned entry for name, if any.
func (l *Lockfile) Lookup(name string) (LockedPackage, bool) {
	name = sanitizeSegment(name)
	for _, pkg := range l.Packages {
		if pkg.Name == name {
			return pkg, true
		}
	}
	return LockedPackage{}, false
}

// Write serialises the lockfile, refreshing the generation timestamp.
func (l *Lockfile) Write(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("lockfile: resolve %s: %w", path, err)
	}
	l.Generated = time.Now().UTC().Format(time.RFC3339)
	l.normalize()

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(l); err != nil {
		return fmt.Errorf("lockfile: marshal %s: %w", abs, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("lockfile: encoder close: %w", err)
	}
	if err := os.WriteFile(abs, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("lockfile: write %s: %w", abs, err)
	}
	return nil
}

func (l *Lockfile) normalize() {
	l.Root = sanitizeSegment(l.Root)
	l.Tool = strings.TrimSpace(l.Tool)
	for i := range l.Packages {
		l.Packages[i].Name = sanitizeSegment(l.Packages[i].Name)
		l.Packages[i].Version = strings.TrimSpace(l.Packages[i].Version)
		l.Packages[i].Source = strings.TrimSpace(l.Packages[i].Source)
		l.Packages[i].Checksum = strings.TrimSpace(l.Packages[i].Checksum)
	}
	sort.SliceStable(l.Packages, func(i, j int) bool {
		return l.Packages[i].Name < l.Packages[j].Name
	})
}

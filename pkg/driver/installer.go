package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Installer materialises a manifest's dependencies under CacheDir and pins
// the result into a lockfile. Layout: CacheDir/src/NAME/VERSION/.
type Installer struct {
	CacheDir string
	Tool     string
}

// Install resolves every dependency in the manifest and returns the
// refreshed lockfile.
func (ins *Installer) Install(manifest *Manifest, manifestDir string) (*Lockfile, error) {
	if ins.CacheDir == "" {
		return nil, fmt.Errorf("installer: cache directory not set")
	}
	lock := NewLockfile(manifest.Name, ins.Tool)
	for name, spec := range manifest.Dependencies {
		var pinned LockedPackage
		var err error
		if spec.Git != "" {
			pinned, err = ins.fetchGit(name, spec)
		} else {
			pinned, err = ins.fetchPath(name, spec, manifestDir)
		}
		if err != nil {
			return nil, err
		}
		lock.Pin(pinned)
	}
	return lock, nil
}

// SourceDir returns the on-disk location of a pinned dependency.
func (ins *Installer) SourceDir(pkg LockedPackage) string {
	return filepath.Join(ins.CacheDir, "src", pkg.Name, sanitizeSegment(pkg.Version))
}

// fetchPath copies a local dependency into the cache. Relative paths are
// resolved against the manifest's directory.
func (ins *Installer) fetchPath(name string, spec *DependencySpec, manifestDir string) (LockedPackage, error) {
	src := spec.Path
	if !filepath.IsAbs(src) {
		src = filepath.Join(manifestDir, src)
	}
	info, err := os.Stat(src)
	if err != nil {
		return LockedPackage{}, fmt.Errorf("dependency %q: %w", name, err)
	}
	if !info.IsDir() {
		return LockedPackage{}, fmt.Errorf("dependency %q: %s is not a directory", name, src)
	}

	pkg := LockedPackage{Name: sanitizeSegment(name), Version: "local"}
	dst := ins.SourceDir(pkg)
	if err := syncDir(src, dst); err != nil {
		return LockedPackage{}, fmt.Errorf("dependency %q: copy %s: %w", name, src, err)
	}
	checksum, err := DirChecksum(dst)
	if err != nil {
		return LockedPackage{}, fmt.Errorf("dependency %q: checksum: %w", name, err)
	}
	pkg.Source = "path:" + src
	pkg.Checksum = checksum
	return pkg, nil
}

// fetchGit clones the dependency and checks out the requested revision.
func (ins *Installer) fetchGit(name string, spec *DependencySpec) (LockedPackage, error) {
	revision, descriptor, err := revisionFromSpec(spec)
	if err != nil {
		return LockedPackage{}, fmt.Errorf("dependency %q: %w", name, err)
	}

	baseDir := filepath.Join(ins.CacheDir, "src", sanitizeSegment(name))
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return LockedPackage{}, err
	}
	tmpDir, err := os.MkdirTemp(baseDir, "fetch-*")
	if err != nil {
		return LockedPackage{}, err
	}
	// PlainClone wants the target absent.
	if err := os.RemoveAll(tmpDir); err != nil {
		return LockedPackage{}, err
	}

	repo, err := git.PlainClone(tmpDir, false, &git.CloneOptions{URL: spec.Git})
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return LockedPackage{}, fmt.Errorf("dependency %q: clone %s: %w", name, spec.Git, err)
	}
	hash, err := repo.ResolveRevision(revision)
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return LockedPackage{}, fmt.Errorf("dependency %q: resolve %s: %w", name, revision, err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		_ = os.RemoveAll(tmpDir)
		return LockedPackage{}, err
	}
	if err := worktree.Checkout(&git.CheckoutOptions{Hash: *hash, Force: true}); err != nil {
		_ = os.RemoveAll(tmpDir)
		return LockedPackage{}, fmt.Errorf("dependency %q: checkout %s: %w", name, revision, err)
	}

	version := descriptor
	if version == "" {
		version = hash.String()
	}
	pkg := LockedPackage{Name: sanitizeSegment(name), Version: version}
	targetDir := ins.SourceDir(pkg)
	if _, err := os.Stat(targetDir); err == nil {
		_ = os.RemoveAll(tmpDir)
	} else if err := os.Rename(tmpDir, targetDir); err != nil {
		_ = os.RemoveAll(tmpDir)
		return LockedPackage{}, err
	}

	checksum, err := DirChecksum(targetDir)
	if err != nil {
		return LockedPackage{}, fmt.Errorf("dependency %q: checksum: %w", name, err)
	}
	pkg.Source = fmt.Sprintf("git+%s@%s", spec.Git, hash.String())
	pkg.Checksum = checksum
	return pkg, nil
}

func revisionFromSpec(spec *DependencySpec) (plumbing.Revision, string, error) {
	if rev := strings.TrimSpace(spec.Rev); rev != "" {
		return plumbing.Revision(rev), rev, nil
	}
	if tag := strings.TrimSpace(spec.Tag); tag != "" {
		return plumbing.Revision("refs/tags/" + tag), tag, nil
	}
	if branch := strings.TrimSpace(spec.Branch); branch != "" {
		return plumbing.Revision("refs/heads/" + branch), branch, nil
	}
	return plumbing.Revision("HEAD"), "", nil
}

// DirChecksum hashes a directory's file names and contents, skipping .git.
func DirChecksum(root string) (string, error) {
	h := sha256.New()
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return fs.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		h.Write([]byte(filepath.ToSlash(rel)))
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		h.Write(data)
		return nil
	})
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// syncDir mirrors src into dst, removing entries that no longer exist.
func syncDir(src, dst string) error {
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	srcEntries, err := os.ReadDir(src)
	if err != nil {
		return err
	}
	keep := make(map[string]bool, len(srcEntries))
	for _, entry := range srcEntries {
		keep[entry.Name()] = true
	}
	if dstEntries, err := os.ReadDir(dst); err == nil {
		for _, entry := range dstEntries {
			if !keep[entry.Name()] {
				if err := os.RemoveAll(filepath.Join(dst, entry.Name())); err != nil {
					return err
				}
			}
		}
	}
	for _, entry := range srcEntries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := syncDir(srcPath, dstPath); err != nil {
				return err
			}
		} else if err := copyFile(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

package main

import (
	"os"
	"path/filepath"
	"testing"

	"noeval/interpreter-go/pkg/driver"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestVersionCommand(t *testing.T) {
	if code := run([]string{"version"}); code != 0 {
		t.Errorf("version exit code = %d", code)
	}
}

func TestRunEvaluatesEntryFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.noeval")
	writeFile(t, path, "(define x 41)\n(+ x 1)\n")

	if code := run([]string{"run", path}); code != 0 {
		t.Errorf("run exit code = %d", code)
	}
	// Bare file argument behaves like run.
	if code := run([]string{path}); code != 0 {
		t.Errorf("bare-file exit code = %d", code)
	}
}

func TestRunReportsEvaluationFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.noeval")
	writeFile(t, path, "(undefined-symbol)\n")

	if code := run([]string{"run", path}); code != 1 {
		t.Errorf("exit code = %d, want 1", code)
	}
	if code := run([]string{"run", filepath.Join(dir, "missing.noeval")}); code != 1 {
		t.Errorf("missing file exit code = %d, want 1", code)
	}
}

func TestRunWithStandardLibrary(t *testing.T) {
	dir := t.TempDir()
	// Session search paths include the entry directory, so a local lib.noeval
	// is picked up as the standard library.
	writeFile(t, filepath.Join(dir, "lib.noeval"), "(define lib-flag 1)\n")
	path := filepath.Join(dir, "main.noeval")
	writeFile(t, path, "(+ lib-flag 1)\n")

	if code := run([]string{"run", path}); code != 0 {
		t.Errorf("exit code = %d", code)
	}
}

func TestRunHonorsSearchPathEnvironment(t *testing.T) {
	// The standard library is resolved through the search path, so a
	// lib.noeval in a NOEVAL_PATH directory is picked up.
	libDir := t.TempDir()
	writeFile(t, filepath.Join(libDir, "lib.noeval"), "(define extra-flag 2)\n")

	dir := t.TempDir()
	path := filepath.Join(dir, "main.noeval")
	writeFile(t, path, "(+ extra-flag 1)\n")

	t.Setenv("NOEVAL_PATH", libDir)
	if code := run([]string{"run", path}); code != 0 {
		t.Errorf("exit code = %d", code)
	}
}

func TestDepsInstallWritesLockfile(t *testing.T) {
	root := t.TempDir()
	appDir := filepath.Join(root, "app")
	depDir := filepath.Join(root, "helpers")
	writeFile(t, filepath.Join(appDir, driver.ManifestFileName), `
name: app
dependencies:
  helpers:
    path: ../helpers
`)
	writeFile(t, filepath.Join(depDir, "lib.noeval"), "(define helper 1)\n")

	oldWD, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(appDir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(oldWD); err != nil {
			t.Fatal(err)
		}
	})
	if code := run([]string{"deps", "install"}); code != 0 {
		t.Fatalf("deps install exit code = %d", code)
	}

	lock, err := driver.LoadLockfile(filepath.Join(appDir, driver.LockFileName))
	if err != nil {
		t.Fatalf("lockfile not written: %v", err)
	}
	if _, ok := lock.Lookup("helpers"); !ok {
		t.Errorf("helpers missing from lockfile: %+v", lock.Packages)
	}
}

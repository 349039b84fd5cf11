package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"noeval/interpreter-go/pkg/driver"
	"noeval/interpreter-go/pkg/interpreter"
)

type sessionOptions struct {
	debugCategories string
	skipStdlib      bool
}

func parseSessionFlags(name string, args []string) (*sessionOptions, []string, error) {
	opts := &sessionOptions{}
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&opts.debugCategories, "debug", "", "debug categories (comma separated, or \"all\")")
	fs.BoolVar(&opts.skipStdlib, "no-lib", false, "skip loading the standard library")
	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	return opts, fs.Args(), nil
}

func applyDebugFlags(in *interpreter.Interpreter, opts *sessionOptions) error {
	if opts.debugCategories == "" {
		return nil
	}
	if opts.debugCategories == "all" {
		in.Debug().EnableAll()
		return nil
	}
	for _, category := range strings.Split(opts.debugCategories, ",") {
		if err := in.Debug().Enable(strings.TrimSpace(category)); err != nil {
			return err
		}
	}
	return nil
}

// newSession builds an interpreter plus loader whose search paths cover the
// entry file's directory, NOEVAL_PATH/NOEVAL_HOME, the bundled lib/
// directory, and any dependencies pinned in a nearby package.lock.
func newSession(entryPath string, opts *sessionOptions) (*driver.Loader, error) {
	in := interpreter.New()
	if err := applyDebugFlags(in, opts); err != nil {
		return nil, err
	}

	var searchPaths []string
	if entryPath != "" {
		searchPaths = append(searchPaths, filepath.Dir(entryPath))
	}
	if cwd, err := os.Getwd(); err == nil {
		searchPaths = append(searchPaths, cwd, filepath.Join(cwd, "lib"))
	}
	if extra := os.Getenv("NOEVAL_PATH"); extra != "" {
		searchPaths = append(searchPaths, filepath.SplitList(extra)...)
	}
	if home := os.Getenv("NOEVAL_HOME"); home != "" {
		searchPaths = append(searchPaths, filepath.Join(home, "lib"))
	}
	if exe, err := os.Executable(); err == nil {
		searchPaths = append(searchPaths, filepath.Join(filepath.Dir(exe), "lib"))
	}
	searchPaths = append(searchPaths, dependencySearchPaths(entryPath)...)

	loader := driver.NewLoader(in, searchPaths)
	if !opts.skipStdlib {
		if _, err := loader.LoadLibrary("lib"); err != nil {
			in.Debug().Logf("library", "standard library not loaded: %v", err)
		}
	}
	return loader, nil
}

// dependencySearchPaths reads the lockfile next to the nearest manifest and
// returns the cached source directory of every pinned package.
func dependencySearchPaths(entryPath string) []string {
	start := "."
	if entryPath != "" {
		start = filepath.Dir(entryPath)
	}
	manifestPath, err := driver.FindManifest(start)
	if err != nil {
		return nil
	}
	rootDir := filepath.Dir(manifestPath)
	lock, err := driver.LoadLockfile(filepath.Join(rootDir, driver.LockFileName))
	if err != nil {
		return nil
	}
	installer := &driver.Installer{CacheDir: filepath.Join(rootDir, ".noeval")}
	paths := make([]string, 0, len(lock.Packages))
	for _, pkg := range lock.Packages {
		paths = append(paths, installer.SourceDir(pkg))
	}
	return paths
}

func runEntry(args []string) int {
	opts, rest, err := parseSessionFlags("run", args)
	if err != nil {
		return 1
	}
	if len(rest) != 1 {
		printUsage()
		return 1
	}
	entryPath := rest[0]

	loader, err := newSession(entryPath, opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer loader.Close()

	if _, err := loader.LoadFile(entryPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

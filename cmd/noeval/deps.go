package main

import (
	"fmt"
	"os"
	"path/filepath"

	"noeval/interpreter-go/pkg/driver"
)

func runDeps(args []string) int {
	if len(args) != 1 || args[0] != "install" {
		printUsage()
		return 1
	}

	manifestPath, err := driver.FindManifest(".")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	manifest, err := driver.LoadManifest(manifestPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	rootDir := filepath.Dir(manifestPath)

	installer := &driver.Installer{
		CacheDir: filepath.Join(rootDir, ".noeval"),
		Tool:     cliToolVersion,
	}
	lock, err := installer.Install(manifest, rootDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	lockPath := filepath.Join(rootDir, driver.LockFileName)
	if err := lock.Write(lockPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	fmt.Printf("resolved %d dependencies; wrote %s\n", len(lock.Packages), lockPath)
	return 0
}

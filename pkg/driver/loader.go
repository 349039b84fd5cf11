package driver

import (
	"fmt"
	"os"
	"path/filepath"

	"noeval/interpreter-go/pkg/interpreter"
	"noeval/interpreter-go/pkg/parser"
	"noeval/interpreter-go/pkg/runtime"
)

// SourceExtension is the file suffix for noeval source.
const SourceExtension = ".noeval"

// Loader evaluates source files against one interpreter session. The global
// environment stays pinned as a collection root for the loader's lifetime;
// garbage is collected between top-level forms, when no evaluation is in
// flight.
type Loader struct {
	interp      *interpreter.Interpreter
	searchPaths []string
}

// NewLoader pins the interpreter's global environment and resolves library
// names against the given search paths (tried in order).
func NewLoader(interp *interpreter.Interpreter, searchPaths []string) *Loader {
	heap := interp.GlobalEnvironment().Heap()
	heap.AddRoot(interp.GlobalEnvironment())
	return &Loader{interp: interp, searchPaths: searchPaths}
}

// Close releases the root pin.
func (l *Loader) Close() {
	heap := l.interp.GlobalEnvironment().Heap()
	heap.RemoveRoot(l.interp.GlobalEnvironment())
}

// Interpreter exposes the underlying session.
func (l *Loader) Interpreter() *interpreter.Interpreter { return l.interp }

// LoadFile parses and evaluates every top-level form in the file, returning
// the last result. Call frames abandoned by a completed form are reclaimed
// before the next one runs.
func (l *Loader) LoadFile(path string) (runtime.Value, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loader: read %s: %w", path, err)
	}
	return l.LoadSource(string(data), path)
}

// LoadSource evaluates source text; name is used in diagnostics only.
func (l *Loader) LoadSource(src, name string) (runtime.Value, error) {
	exprs, err := parser.ParseAll(src)
	if err != nil {
		return nil, fmt.Errorf("loader: %s: %w", name, err)
	}

	heap := l.interp.GlobalEnvironment().Heap()
	var result runtime.Value = runtime.NilValue{}
	for i, expr := range exprs {
		result, err = l.interp.Eval(expr, l.interp.GlobalEnvironment())
		if err != nil {
			return nil, err
		}
		// The final result is not rooted, so collecting after the last form
		// could sweep an environment it still closes over.
		if i == len(exprs)-1 {
			break
		}
		if freed := heap.Collect(); freed > 0 {
			l.interp.Debug().Logf("gc", "reclaimed %d environments after top-level form", freed)
		}
	}
	return result, nil
}

// LoadLibrary resolves a bare library name ("lib" loads lib.noeval) through
// the search paths and evaluates it.
func (l *Loader) LoadLibrary(name string) (runtime.Value, error) {
	path, err := l.Resolve(name)
	if err != nil {
		return nil, err
	}
	l.interp.Debug().Logf("library", "loading %s from %s", name, path)
	return l.LoadFile(path)
}

// Resolve locates a library file by name without evaluating it.
func (l *Loader) Resolve(name string) (string, error) {
	file := name
	if filepath.Ext(file) == "" {
		file += SourceExtension
	}
	if filepath.IsAbs(file) {
		if _, err := os.Stat(file); err == nil {
			return file, nil
		}
		return "", fmt.Errorf("loader: library %s not found", name)
	}
	for _, dir := range l.searchPaths {
		candidate := filepath.Join(dir, file)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("loader: library %s not found in search paths %v", name, l.searchPaths)
}

package driver

import (
	"path/filepath"
	"strings"
	"testing"

	"noeval/interpreter-go/pkg/interpreter"
	"noeval/interpreter-go/pkg/runtime"
)

func newTestLoader(t *testing.T, searchPaths ...string) *Loader {
	t.Helper()
	loader := NewLoader(interpreter.New(), searchPaths)
	t.Cleanup(loader.Close)
	return loader
}

func TestLoadFileEvaluatesEveryForm(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "main.noeval")
	writeFile(t, path, `
; session-wide definitions
(define double (vau (x) e (* 2 (eval x e))))
(define answer (double 21))
answer
`)

	loader := newTestLoader(t)
	result, err := loader.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if runtime.Render(result) != "42" {
		t.Errorf("result = %s", runtime.Render(result))
	}

	// Definitions persist in the session after the file completes.
	again, err := loader.LoadSource("(double answer)", "inline")
	if err != nil {
		t.Fatal(err)
	}
	if runtime.Render(again) != "84" {
		t.Errorf("follow-up = %s", runtime.Render(again))
	}
}

func TestLoadSourceCollectsBetweenForms(t *testing.T) {
	loader := newTestLoader(t)
	heap := loader.Interpreter().GlobalEnvironment().Heap()

	// Each form abandons a self-referential call frame.
	src := `
((vau () e (do (define self (vau (x) e2 x)) 1)))
((vau () e (do (define self (vau (x) e2 x)) 2)))
`
	_, _, before, _ := heap.Stats()
	if _, err := loader.LoadSource(src, "gc-test"); err != nil {
		t.Fatal(err)
	}
	_, _, after, _ := heap.Stats()
	if after > before {
		t.Errorf("abandoned frames not reclaimed: %d -> %d", before, after)
	}
}

func TestLoadSourceResultSurvivesCollection(t *testing.T) {
	loader := newTestLoader(t)
	interp := loader.Interpreter()

	// The final form returns an operative closing over its call frame. That
	// frame is unreachable from the roots, so a collect after the last form
	// would clear its bindings.
	result, err := loader.LoadSource(
		"((vau () e (do (define hidden 42) (vau (x) e2 hidden))))", "gc-test")
	if err != nil {
		t.Fatal(err)
	}
	op, ok := result.(*runtime.OperativeValue)
	if !ok {
		t.Fatalf("result = %s, want operative", runtime.Render(result))
	}

	got, err := interp.Eval(runtime.List(op, runtime.Num(0)), interp.GlobalEnvironment())
	if err != nil {
		t.Fatalf("invoking returned operative: %v", err)
	}
	if runtime.Render(got) != "42" {
		t.Errorf("closure value = %s, want 42", runtime.Render(got))
	}
}

func TestLoadLibraryUsesSearchPaths(t *testing.T) {
	libDir := t.TempDir()
	writeFile(t, filepath.Join(libDir, "util.noeval"), "(define from-util 7)\n")

	loader := newTestLoader(t, t.TempDir(), libDir)
	if _, err := loader.LoadLibrary("util"); err != nil {
		t.Fatalf("LoadLibrary: %v", err)
	}
	result, err := loader.LoadSource("from-util", "inline")
	if err != nil {
		t.Fatal(err)
	}
	if runtime.Render(result) != "7" {
		t.Errorf("from-util = %s", runtime.Render(result))
	}

	_, err = loader.LoadLibrary("absent")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Errorf("expected not-found error, got %v", err)
	}
}

func TestLoadStandardLibrary(t *testing.T) {
	loader := newTestLoader(t, filepath.Join("..", "..", "lib"))
	if _, err := loader.LoadLibrary("lib"); err != nil {
		t.Fatalf("standard library failed to load: %v", err)
	}

	cases := []struct{ src, want string }{
		{"(if (= 1 1) (q then) (q else))", "then"},
		{"(if (= 1 2) (q then) (q else))", "else"},
		{"(not (= 1 1))", "false"},
		{"(and (= 1 1) (= 2 2))", "true"},
		{"(and (= 1 1) (= 2 3))", "false"},
		{"(or (= 1 2) (= 2 2))", "true"},
		{"(or (= 1 2) (= 2 3))", "false"},
		{"(identity 42)", "42"},
		{"(list 1 (+ 1 1) 3)", "(1 2 3)"},
		{"(length (list 1 2 3))", "3"},
		{"(append (list 1 2) (list 3 4))", "(1 2 3 4)"},
		{"(reverse (list 1 2 3))", "(3 2 1)"},
		{"(map (vau (x) e (* 2 (eval x e))) (list 1 2 3))", "(2 4 6)"},
		{"nil-val", "()"},
		{"(eval (q (+ 1 1)) global-env)", "2"},
	}
	for _, tc := range cases {
		result, err := loader.LoadSource(tc.src, "inline")
		if err != nil {
			t.Errorf("%s failed: %v", tc.src, err)
			continue
		}
		if got := runtime.Render(result); got != tc.want {
			t.Errorf("%s = %s, want %s", tc.src, got, tc.want)
		}
	}
}

package runtime

import (
	"strings"
	"testing"
)

func TestLookupSearchesScopeChain(t *testing.T) {
	global := NewGlobalEnvironment()
	global.Define("x", Num(1))
	child := NewEnvironment(global)
	child.Define("y", Num(2))

	v, err := child.Lookup("x")
	if err != nil {
		t.Fatalf("lookup through parent failed: %v", err)
	}
	if !Equal(v, Num(1)) {
		t.Fatalf("unexpected value %v", Render(v))
	}

	if _, err := global.Lookup("y"); err == nil {
		t.Fatalf("parent must not see child bindings")
	}
}

func TestLookupUnboundVariable(t *testing.T) {
	env := NewGlobalEnvironment()
	_, err := env.Lookup("missing")
	if err == nil {
		t.Fatalf("expected an error")
	}
	unbound, ok := err.(*UnboundVariableError)
	if !ok {
		t.Fatalf("want UnboundVariableError, got %T", err)
	}
	if unbound.Name != "missing" {
		t.Fatalf("error should carry the name, got %q", unbound.Name)
	}
	if !strings.Contains(err.Error(), "Unbound variable: missing") {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestDefineWritesLocalScopeOnly(t *testing.T) {
	global := NewGlobalEnvironment()
	global.Define("x", Num(1))
	child := NewEnvironment(global)
	child.Define("x", Num(2))

	v, _ := child.Lookup("x")
	if !Equal(v, Num(2)) {
		t.Fatalf("child should shadow, got %v", Render(v))
	}
	v, _ = global.Lookup("x")
	if !Equal(v, Num(1)) {
		t.Fatalf("define in child must not touch the parent, got %v", Render(v))
	}
}

func TestLookupReturnsMutableWrapperAsIs(t *testing.T) {
	env := NewGlobalEnvironment()
	cell := &MutableValue{Val: Num(7)}
	env.Define("m", cell)

	v, err := env.Lookup("m")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if v != Value(cell) {
		t.Fatalf("Lookup must hand back the wrapper itself, got %T", v)
	}
}

func TestGetAllSymbolsWalksChain(t *testing.T) {
	global := NewGlobalEnvironment()
	global.Define("b", Num(1))
	global.Define("a", Num(2))
	child := NewEnvironment(global)
	child.Define("c", Num(3))

	symbols := child.GetAllSymbols()
	want := []string{"c", "a", "b"}
	if len(symbols) != len(want) {
		t.Fatalf("unexpected symbols %v", symbols)
	}
	for i, name := range want {
		if symbols[i] != name {
			t.Fatalf("want %v, got %v", want, symbols)
		}
	}
}

func TestDumpChainListsEveryScope(t *testing.T) {
	global := NewGlobalEnvironment()
	child := NewEnvironment(global)
	grand := NewEnvironment(child)

	dump := grand.DumpChain()
	if strings.Count(dump, "->") != 2 {
		t.Fatalf("expected three chained scopes, got %q", dump)
	}
}

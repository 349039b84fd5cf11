package runtime

import (
	"fmt"
	"sort"
)

// UnboundVariableError reports a name missing from an entire scope chain.
type UnboundVariableError struct {
	Name string
}

func (e *UnboundVariableError) Error() string {
	return fmt.Sprintf("Unbound variable: %s", e.Name)
}

// Environment provides lexical scoping for noeval values: a bindings map
// plus an optional parent link. The chain itself is acyclic, but bindings
// can reach operatives whose closure environments point back at or beyond
// the defining environment, so the value graph as a whole can cycle.
type Environment struct {
	bindings map[string]Value
	parent   *Environment
	heap     *Heap
}

// NewGlobalEnvironment creates a parentless environment with a fresh heap.
func NewGlobalEnvironment() *Environment {
	heap := newHeap()
	env := &Environment{
		bindings: make(map[string]Value),
		heap:     heap,
	}
	heap.register(env)
	return env
}

// NewEnvironment creates a child scope registered on the parent's heap.
func NewEnvironment(parent *Environment) *Environment {
	if parent == nil {
		return NewGlobalEnvironment()
	}
	env := &Environment{
		bindings: make(map[string]Value),
		parent:   parent,
		heap:     parent.heap,
	}
	env.heap.register(env)
	return env
}

// Parent exposes the lexical parent (nil when global).
func (e *Environment) Parent() *Environment {
	return e.parent
}

// Heap exposes the collector this environment is registered with.
func (e *Environment) Heap() *Heap {
	return e.heap
}

// Lookup searches the local bindings, delegating to the parent on a miss.
// A MutableValue comes back as the wrapper itself; unwrapping is the
// evaluator's job so that set! can still see the cell.
func (e *Environment) Lookup(name string) (Value, error) {
	if v, ok := e.bindings[name]; ok {
		return v, nil
	}
	if e.parent != nil {
		return e.parent.Lookup(name)
	}
	return nil, &UnboundVariableError{Name: name}
}

// Define inserts or overwrites a binding in the local scope only.
func (e *Environment) Define(name string, value Value) {
	e.bindings[name] = value
}

// GetAllSymbols returns every name visible from this scope, locals first.
// Used by host tooling (REPL completion); duplicates across scopes are kept.
func (e *Environment) GetAllSymbols() []string {
	local := make([]string, 0, len(e.bindings))
	for name := range e.bindings {
		local = append(local, name)
	}
	sort.Strings(local)
	if e.parent != nil {
		local = append(local, e.parent.GetAllSymbols()...)
	}
	return local
}

// DumpChain renders the scope chain for debug commands.
func (e *Environment) DumpChain() string {
	chain := fmt.Sprintf("%p", e)
	if e.parent != nil {
		chain += " -> " + e.parent.DumpChain()
	}
	return chain
}

// Snapshot returns a copy of the local bindings, for deterministic tests.
func (e *Environment) Snapshot() map[string]Value {
	out := make(map[string]Value, len(e.bindings))
	for k, v := range e.bindings {
		out[k] = v
	}
	return out
}

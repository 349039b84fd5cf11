package runtime

// Heap tracks every environment created under a global scope and reclaims
// the ones that are neither rooted nor reachable from a root. A tracing
// collector is required here: an operative's closure environment routinely
// points back at the environment that binds the operative, so reference
// counting alone would leak every recursive definition.
//
// Collection is a stop-the-world pass run by the host between top-level
// evaluations, never during one.
type Heap struct {
	registry map[*Environment]struct{}
	roots    map[*Environment]int

	constructed uint64
	collected   uint64
}

func newHeap() *Heap {
	return &Heap{
		registry: make(map[*Environment]struct{}),
		roots:    make(map[*Environment]int),
	}
}

func (h *Heap) register(env *Environment) {
	h.registry[env] = struct{}{}
	h.constructed++
}

// AddRoot pins env against collection. Pins are counted: each AddRoot needs
// a matching RemoveRoot before the environment becomes collectable again.
func (h *Heap) AddRoot(env *Environment) {
	if env == nil {
		return
	}
	h.roots[env]++
}

// RemoveRoot drops one pin from env.
func (h *Heap) RemoveRoot(env *Environment) {
	if env == nil {
		return
	}
	if count, ok := h.roots[env]; ok {
		if count <= 1 {
			delete(h.roots, env)
		} else {
			h.roots[env] = count - 1
		}
	}
}

// Live reports whether env is still registered.
func (h *Heap) Live(env *Environment) bool {
	_, ok := h.registry[env]
	return ok
}

// Stats reports construction and collection counters plus the live and
// rooted environment counts. Surfaced by the REPL's debug commands.
func (h *Heap) Stats() (constructed, collected uint64, live, rooted int) {
	return h.constructed, h.collected, len(h.registry), len(h.roots)
}

// Collect marks every environment reachable from a rooted one, then sweeps
// the rest: unreachable environments are unregistered and their bindings and
// parent link cleared so a cycle cannot keep itself alive. Sweep order is
// unconstrained and freeing has no side effects on surviving environments.
// Returns the number of environments reclaimed.
func (h *Heap) Collect() int {
	marked := make(map[*Environment]struct{}, len(h.registry))
	seenCells := make(map[*MutableValue]struct{})
	seenOps := make(map[*OperativeValue]struct{})

	var markEnv func(env *Environment)
	var markValue func(v Value)

	markEnv = func(env *Environment) {
		if env == nil {
			return
		}
		if _, ok := marked[env]; ok {
			return
		}
		marked[env] = struct{}{}
		markEnv(env.parent)
		for _, bound := range env.bindings {
			markValue(bound)
		}
	}

	markValue = func(v Value) {
		switch val := v.(type) {
		case *PairValue:
			// Iterate the cdr chain so long lists do not recurse deeply.
			current := val
			for {
				markValue(current.Car)
				next, ok := current.Cdr.(*PairValue)
				if !ok {
					markValue(current.Cdr)
					return
				}
				current = next
			}
		case *OperativeValue:
			if _, ok := seenOps[val]; ok {
				return
			}
			seenOps[val] = struct{}{}
			markEnv(val.Closure)
			markValue(val.Body)
		case EnvValue:
			markEnv(val.Env)
		case *MutableValue:
			if _, ok := seenCells[val]; ok {
				return
			}
			seenCells[val] = struct{}{}
			markValue(val.Val)
		}
	}

	for env := range h.roots {
		markEnv(env)
	}

	reclaimed := 0
	for env := range h.registry {
		if _, ok := marked[env]; ok {
			continue
		}
		delete(h.registry, env)
		env.bindings = nil
		env.parent = nil
		reclaimed++
	}
	h.collected += uint64(reclaimed)
	return reclaimed
}

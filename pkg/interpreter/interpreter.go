package interpreter

import (
	"io"
	"os"

	"noeval/interpreter-go/pkg/runtime"
)

// Interpreter drives evaluation of noeval expression trees. It owns the
// global environment, the shadow call stack, and the debug logger. The
// engine is single-threaded: one Interpreter must not be shared across
// goroutines.
type Interpreter struct {
	global *runtime.Environment
	stack  callStack
	debug  *Debug
	out    io.Writer
}

// Option configures an Interpreter at construction.
type Option func(*Interpreter)

// WithOutput redirects the write/display builtins (stdout by default).
func WithOutput(out io.Writer) Option {
	return func(in *Interpreter) { in.out = out }
}

// New returns an interpreter whose global environment carries the builtin
// operatives, the church booleans, and an `env` binding referring to the
// global environment itself.
func New(opts ...Option) *Interpreter {
	in := &Interpreter{
		global: runtime.NewGlobalEnvironment(),
		out:    os.Stdout,
	}
	in.debug = NewDebug(os.Stderr)
	for _, opt := range opts {
		opt(in)
	}
	in.installBuiltins(in.global)
	in.installChurchBooleans(in.global)
	in.global.Define("env", runtime.EnvValue{Env: in.global})
	return in
}

// GlobalEnvironment returns the interpreter's global environment.
func (in *Interpreter) GlobalEnvironment() *runtime.Environment {
	return in.global
}

// Debug exposes the category logger for host tooling.
func (in *Interpreter) Debug() *Debug { return in.debug }

// MaxStackDepth reports the high-water mark of the shadow stack since the
// last reset. Tail-recursive loops keep this flat; non-tail recursion grows
// it linearly.
func (in *Interpreter) MaxStackDepth() int { return in.stack.maxDepth }

// ResetMaxStackDepth clears the high-water mark (typically per REPL input).
func (in *Interpreter) ResetMaxStackDepth() { in.stack.maxDepth = in.stack.depth() }

// Eval evaluates expr in env. This is the sole entry point for running
// code; it owns the trampoline loop. Operations whose final step is
// "evaluate E in F and return that verbatim" signal a TailCall instead of
// recursing, and the loop re-enters with the new expression and
// environment. Every other sub-evaluation recurses natively through this
// function, so the native stack grows only with non-tail nesting depth.
func (in *Interpreter) Eval(expr runtime.Value, env *runtime.Environment) (runtime.Value, error) {
	in.stack.push(renderContext(expr))
	defer in.stack.pop()

	for {
		in.debug.Logf("eval", "[%d] evaluating(%s): %s",
			in.stack.depth(), expr.Kind(), renderContext(expr))

		value, tail, err := in.step(expr, env)
		if err != nil {
			return nil, err
		}
		if tail == nil {
			in.debug.Logf("eval", "[%d] result: %s", in.stack.depth(), renderContext(value))
			return value, nil
		}
		// Tail position: swap the current frame rather than stacking a
		// new one.
		expr, env = tail.Expr, tail.Env
		in.stack.replaceTop(renderContext(expr))
	}
}

// step performs a single evaluation state transition.
func (in *Interpreter) step(expr runtime.Value, env *runtime.Environment) (runtime.Value, *runtime.TailCall, error) {
	switch node := expr.(type) {
	case runtime.NumberValue, runtime.StringValue, runtime.NilValue, runtime.EOFValue:
		return expr, nil, nil
	case runtime.SymbolValue:
		value, err := in.evalSymbol(node, env)
		return value, nil, err
	case *runtime.PairValue:
		return in.evalCombination(node, env)
	default:
		return nil, nil, in.errorf(ErrNotEvaluable, renderContext(expr),
			"Cannot evaluate %s", expr.Kind())
	}
}

// evalSymbol resolves a symbol through the scope chain, unwrapping a
// mutable binding so user code sees its current contents rather than the
// cell.
func (in *Interpreter) evalSymbol(sym runtime.SymbolValue, env *runtime.Environment) (runtime.Value, error) {
	in.debug.Logf("env_lookup", "looking up '%s' in env %p", sym.Name, env)
	binding, err := env.Lookup(sym.Name)
	if err != nil {
		return nil, in.wrapError(err, sym.Name)
	}
	if cell, ok := binding.(*runtime.MutableValue); ok {
		return cell.Val, nil
	}
	return binding, nil
}

// evalCombination treats a pair as operator + operand list. An operator
// position that already holds an operative value is used as-is, permitting
// operative-valued expressions like ((select-op) arg); anything else is
// evaluated natively first.
func (in *Interpreter) evalCombination(pair *runtime.PairValue, env *runtime.Environment) (runtime.Value, *runtime.TailCall, error) {
	operatorExpr := pair.Car
	operands := pair.Cdr

	var operator runtime.Value
	switch operatorExpr.(type) {
	case *runtime.OperativeValue, *runtime.BuiltinValue:
		operator = operatorExpr
	default:
		evaluated, err := in.Eval(operatorExpr, env)
		if err != nil {
			return nil, nil, err
		}
		operator = evaluated
	}

	switch op := operator.(type) {
	case *runtime.OperativeValue:
		tail, err := in.applyOperative(op, operands, env)
		return nil, tail, err
	case *runtime.BuiltinValue:
		return in.applyBuiltin(op, operands, env)
	default:
		return nil, nil, in.errorf(ErrNotAnOperative, renderContext(pair),
			"Not an operative: %s", renderContext(operator))
	}
}

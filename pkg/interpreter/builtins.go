package interpreter

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"noeval/interpreter-go/pkg/runtime"
)

// installBuiltins populates env with the native operatives. Every builtin
// receives its operands unevaluated plus the caller's environment; which
// operands get evaluated is each builtin's own business, so `define` and `+`
// need no syntactic distinction.
func (in *Interpreter) installBuiltins(env *runtime.Environment) {
	define := func(name string, impl runtime.BuiltinFunc) {
		env.Define(name, &runtime.BuiltinValue{Name: name, Impl: impl})
	}

	// Control
	define("vau", in.builtinVau)
	define("eval", in.builtinEval)
	define("define", in.builtinDefine)
	define("invoke", in.builtinInvoke)
	define("try", in.builtinTry)
	define("do", in.builtinDo)
	define("q", builtinQuote)
	// Arithmetic
	define("+", in.makeArithmetic("+", func(a, b *big.Rat) (*big.Rat, error) {
		return new(big.Rat).Add(a, b), nil
	}))
	define("-", in.makeArithmetic("-", func(a, b *big.Rat) (*big.Rat, error) {
		return new(big.Rat).Sub(a, b), nil
	}))
	define("*", in.makeArithmetic("*", func(a, b *big.Rat) (*big.Rat, error) {
		return new(big.Rat).Mul(a, b), nil
	}))
	define("/", in.makeArithmetic("/", func(a, b *big.Rat) (*big.Rat, error) {
		if b.Sign() == 0 {
			return nil, errors.New("/: division by zero")
		}
		return new(big.Rat).Quo(a, b), nil
	}))
	define("remainder", in.builtinRemainder)
	define("numerator", in.builtinNumerator)
	define("denominator", in.builtinDenominator)
	define("<=>", in.builtinCompare)
	// Lists
	define("cons", in.builtinCons)
	define("first", in.builtinFirst)
	define("rest", in.builtinRest)
	define("nil?", in.builtinNilP)
	// Equality
	define("=", in.builtinEqual)
	// IO
	define("write", in.builtinWrite)
	define("display", in.builtinDisplay)
	// Mutables
	define("define-mutable", in.builtinDefineMutable)
	define("set!", in.builtinSet)
	// Strings
	define("string->list", in.builtinStringToList)
	define("list->string", in.builtinListToString)
}

// installChurchBooleans binds true and false: tagged two-parameter
// operatives whose bodies evaluate the first or second operand in the
// caller's environment. Tagging makes every true compare equal to every
// other true while ordinary closures never spuriously match.
func (in *Interpreter) installChurchBooleans(env *runtime.Environment) {
	selector := func(param string) runtime.Value {
		return runtime.List(runtime.Sym("eval"), runtime.Sym(param), runtime.Sym("env"))
	}
	env.Define("true", &runtime.OperativeValue{
		Params:   runtime.ParamPattern{Names: []string{"x", "y"}},
		EnvParam: "env",
		Body:     selector("x"),
		Closure:  env,
		Tag:      "true",
	})
	env.Define("false", &runtime.OperativeValue{
		Params:   runtime.ParamPattern{Names: []string{"x", "y"}},
		EnvParam: "env",
		Body:     selector("y"),
		Closure:  env,
		Tag:      "false",
	})
}

// churchTrue and churchFalse resolve the boolean operatives through the
// caller's environment, so user code can shadow them.
func (in *Interpreter) churchTrue(env *runtime.Environment) (runtime.Value, error) {
	v, err := env.Lookup("true")
	return v, in.wrapError(err, "true")
}

func (in *Interpreter) churchFalse(env *runtime.Environment) (runtime.Value, error) {
	v, err := env.Lookup("false")
	return v, in.wrapError(err, "false")
}

func (in *Interpreter) churchBool(b bool, env *runtime.Environment) (runtime.Value, error) {
	if b {
		return in.churchTrue(env)
	}
	return in.churchFalse(env)
}

// renderCall reconstructs "(name op1 op2 ...)" for error contexts.
func renderCall(name string, operands []runtime.Value) string {
	parts := make([]string, 0, len(operands)+1)
	parts = append(parts, name)
	for _, op := range operands {
		parts = append(parts, renderContext(op))
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// expectOperands enforces a builtin's fixed arity before any evaluation.
func (in *Interpreter) expectOperands(name, usage string, operands []runtime.Value, want int) error {
	if len(operands) == want {
		return nil
	}
	return in.errorf(ErrArityMismatch, renderCall(name, operands),
		"%s: expected %d arguments (%s), got %d", name, want, usage, len(operands))
}

// builtinQuote returns its single operand unevaluated. Also embedded
// directly into synthesized call expressions (see builtinTry), where it
// works without any binding because operative values in operator position
// are used as-is.
var quoteBuiltin = &runtime.BuiltinValue{Name: "q", Impl: builtinQuote}

func builtinQuote(operands []runtime.Value, env *runtime.Environment) (runtime.Value, *runtime.TailCall, error) {
	if len(operands) != 1 {
		return nil, nil, &EvalError{
			Kind:    ErrArityMismatch,
			Message: fmt.Sprintf("q: expected 1 argument, got %d", len(operands)),
			Context: renderCall("q", operands),
		}
	}
	return operands[0], nil, nil
}

// builtinVau constructs an operative closing over the call-site
// environment. Nil in the env-parameter slot means the operative ignores
// its caller's environment (the analogue of Kernel's #ignore).
func (in *Interpreter) builtinVau(operands []runtime.Value, env *runtime.Environment) (runtime.Value, *runtime.TailCall, error) {
	if err := in.expectOperands("vau", "params env-param body", operands, 3); err != nil {
		return nil, nil, err
	}
	paramsExpr, envParamExpr, bodyExpr := operands[0], operands[1], operands[2]

	pattern, err := in.extractParamPattern(paramsExpr)
	if err != nil {
		return nil, nil, err
	}

	envParam := ""
	if _, isNil := envParamExpr.(runtime.NilValue); !isNil {
		sym, ok := envParamExpr.(runtime.SymbolValue)
		if !ok {
			return nil, nil, in.errorf(ErrTypeMismatch, renderCall("vau", operands),
				"vau: environment parameter must be a symbol")
		}
		envParam = sym.Name
	}

	return &runtime.OperativeValue{
		Params:   pattern,
		EnvParam: envParam,
		Body:     bodyExpr,
		Closure:  env,
	}, nil, nil
}

// builtinEval evaluates both operands in the current environment, then
// evaluates the resulting expression in the resulting environment. The
// final evaluation is a tail call.
func (in *Interpreter) builtinEval(operands []runtime.Value, env *runtime.Environment) (runtime.Value, *runtime.TailCall, error) {
	if err := in.expectOperands("eval", "expr env", operands, 2); err != nil {
		return nil, nil, err
	}

	exprVal, err := in.Eval(operands[0], env)
	if err != nil {
		return nil, nil, err
	}
	envVal, err := in.Eval(operands[1], env)
	if err != nil {
		return nil, nil, err
	}
	target, ok := envVal.(runtime.EnvValue)
	if !ok {
		return nil, nil, in.errorf(ErrTypeMismatch, renderCall("eval", operands),
			"eval: second argument must evaluate to an environment, got %s", renderContext(envVal))
	}
	return nil, &runtime.TailCall{Expr: exprVal, Env: target.Env}, nil
}

// builtinDefine binds a symbol (unevaluated) to its evaluated value in the
// local scope, returning the value.
func (in *Interpreter) builtinDefine(operands []runtime.Value, env *runtime.Environment) (runtime.Value, *runtime.TailCall, error) {
	if err := in.expectOperands("define", "symbol value", operands, 2); err != nil {
		return nil, nil, err
	}
	sym, ok := operands[0].(runtime.SymbolValue)
	if !ok {
		return nil, nil, in.errorf(ErrTypeMismatch, renderCall("define", operands),
			"define: first argument must be a symbol, got %s", renderContext(operands[0]))
	}
	value, err := in.Eval(operands[1], env)
	if err != nil {
		return nil, nil, err
	}
	env.Define(sym.Name, value)
	return value, nil, nil
}

// builtinInvoke applies an operative (unevaluated operand) to an evaluated
// argument list, grafted back into a combination.
func (in *Interpreter) builtinInvoke(operands []runtime.Value, env *runtime.Environment) (runtime.Value, *runtime.TailCall, error) {
	if err := in.expectOperands("invoke", "operative arg-list", operands, 2); err != nil {
		return nil, nil, err
	}
	argList, err := in.Eval(operands[1], env)
	if err != nil {
		return nil, nil, err
	}
	if _, err := runtime.ListToSlice(argList); err != nil {
		return nil, nil, in.wrapError(err, renderCall("invoke", operands))
	}
	callExpr := runtime.Cons(operands[0], argList)
	value, err := in.Eval(callExpr, env)
	return value, nil, err
}

// builtinDo evaluates each operand in sequence. The final expression is the
// tail-call site; the earlier ones recurse natively.
func (in *Interpreter) builtinDo(operands []runtime.Value, env *runtime.Environment) (runtime.Value, *runtime.TailCall, error) {
	if len(operands) == 0 {
		return runtime.NilValue{}, nil, nil
	}
	for _, expr := range operands[:len(operands)-1] {
		if _, err := in.Eval(expr, env); err != nil {
			return nil, nil, err
		}
	}
	return nil, &runtime.TailCall{Expr: operands[len(operands)-1], Env: env}, nil
}

// builtinTry evaluates its first operand; on failure the handler operative
// is applied to a reified (error MESSAGE CONTEXT TRACE) list. With a third
// operand, the finally operative is applied to the result either way.
func (in *Interpreter) builtinTry(operands []runtime.Value, env *runtime.Environment) (runtime.Value, *runtime.TailCall, error) {
	if len(operands) < 2 || len(operands) > 3 {
		return nil, nil, in.errorf(ErrArityMismatch, renderCall("try", operands),
			"try: expected 2 arguments (expr handler) or 3 (expr handler finally), got %d", len(operands))
	}

	result, err := in.Eval(operands[0], env)
	if err != nil {
		errorVal := reifyError(err)
		handlerCall := runtime.List(operands[1], runtime.List(quoteBuiltin, errorVal))
		result, err = in.Eval(handlerCall, env)
		if err != nil {
			return nil, nil, err
		}
	}

	if len(operands) == 3 {
		finallyCall := runtime.List(operands[2], runtime.List(quoteBuiltin, result))
		result, err = in.Eval(finallyCall, env)
		if err != nil {
			return nil, nil, err
		}
	}
	return result, nil, nil
}

// reifyError turns a failure into the (error MESSAGE CONTEXT TRACE) list
// handed to try handlers.
func reifyError(err error) runtime.Value {
	message, context, trace := err.Error(), "", ""
	if evalErr, ok := err.(*EvalError); ok {
		message = evalErr.Message
		context = evalErr.Context
		trace = evalErr.StackTrace
	}
	return runtime.List(
		runtime.Sym("error"),
		runtime.StringValue{Val: message},
		runtime.StringValue{Val: context},
		runtime.StringValue{Val: trace},
	)
}

// builtinDefineMutable is define with the value wrapped in the one mutable
// cell type; the unwrapped value is returned.
func (in *Interpreter) builtinDefineMutable(operands []runtime.Value, env *runtime.Environment) (runtime.Value, *runtime.TailCall, error) {
	if err := in.expectOperands("define-mutable", "symbol value", operands, 2); err != nil {
		return nil, nil, err
	}
	sym, ok := operands[0].(runtime.SymbolValue)
	if !ok {
		return nil, nil, in.errorf(ErrTypeMismatch, renderCall("define-mutable", operands),
			"define-mutable: first argument must be a symbol")
	}
	value, err := in.Eval(operands[1], env)
	if err != nil {
		return nil, nil, err
	}
	env.Define(sym.Name, &runtime.MutableValue{Val: value})
	return value, nil, nil
}

// builtinSet rebinds a mutable cell in place. Plain define bindings are
// rejected; the binding is found wherever the scope chain holds it.
func (in *Interpreter) builtinSet(operands []runtime.Value, env *runtime.Environment) (runtime.Value, *runtime.TailCall, error) {
	if err := in.expectOperands("set!", "symbol value", operands, 2); err != nil {
		return nil, nil, err
	}
	sym, ok := operands[0].(runtime.SymbolValue)
	if !ok {
		return nil, nil, in.errorf(ErrTypeMismatch, renderCall("set!", operands),
			"set!: first argument must be a symbol")
	}
	newValue, err := in.Eval(operands[1], env)
	if err != nil {
		return nil, nil, err
	}

	binding, err := env.Lookup(sym.Name)
	if err != nil {
		return nil, nil, in.wrapError(err, renderCall("set!", operands))
	}
	cell, ok := binding.(*runtime.MutableValue)
	if !ok {
		return nil, nil, in.errorf(ErrCustom, renderCall("set!", operands),
			"set!: variable '%s' is not mutable (use define-mutable)", sym.Name)
	}
	cell.Val = newValue
	return newValue, nil, nil
}

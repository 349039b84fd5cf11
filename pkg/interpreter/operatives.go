package interpreter

import (
	"noeval/interpreter-go/pkg/runtime"
)

// extractParamPattern reads a vau parameter specification: a bare symbol
// binds the whole operand list (variadic), a proper list of symbols binds
// positionally.
func (in *Interpreter) extractParamPattern(params runtime.Value) (runtime.ParamPattern, error) {
	if sym, ok := params.(runtime.SymbolValue); ok {
		return runtime.ParamPattern{Variadic: true, Names: []string{sym.Name}}, nil
	}

	var names []string
	current := params
	for {
		pair, ok := current.(*runtime.PairValue)
		if !ok {
			break
		}
		sym, ok := pair.Car.(runtime.SymbolValue)
		if !ok {
			return runtime.ParamPattern{}, in.errorf(ErrTypeMismatch, renderContext(params),
				"Parameter must be a symbol, got %s", renderContext(pair.Car))
		}
		names = append(names, sym.Name)
		current = pair.Cdr
	}
	if _, ok := current.(runtime.NilValue); !ok {
		return runtime.ParamPattern{}, in.errorf(ErrTypeMismatch, renderContext(params),
			"Invalid parameter pattern")
	}
	return runtime.ParamPattern{Names: names}, nil
}

// bindParameters binds unevaluated operands into target per the pattern.
// Arity is checked before anything is bound.
func (in *Interpreter) bindParameters(params runtime.ParamPattern, operands runtime.Value, target *runtime.Environment) error {
	if params.Variadic {
		in.debug.Logf("env_binding", "binding variadic parameter '%s' to %s",
			params.Names[0], renderContext(operands))
		target.Define(params.Names[0], operands)
		return nil
	}

	operandList, err := runtime.ListToSlice(operands)
	if err != nil {
		return in.wrapError(err, renderContext(operands))
	}
	if len(operandList) != len(params.Names) {
		return in.errorf(ErrArityMismatch, renderContext(operands),
			"Wrong number of arguments: expected %d, got %d",
			len(params.Names), len(operandList))
	}
	for i, name := range params.Names {
		in.debug.Logf("env_binding", "binding '%s' to %s", name, renderContext(operandList[i]))
		target.Define(name, operandList[i])
	}
	return nil
}

// applyOperative invokes a user operative: a fresh environment chained to
// the operative's closure (never the call site), unevaluated operands bound
// per the pattern, and the caller's environment bound under the env-param
// name unless ignored. The body evaluation is the tail-call site.
func (in *Interpreter) applyOperative(op *runtime.OperativeValue, operands runtime.Value, callerEnv *runtime.Environment) (*runtime.TailCall, error) {
	frame := runtime.NewEnvironment(op.Closure)

	if err := in.bindParameters(op.Params, operands, frame); err != nil {
		if evalErr, ok := err.(*EvalError); ok && evalErr.Kind == ErrArityMismatch {
			evalErr.Message = runtime.Render(op) + " " + evalErr.Message
		}
		return nil, err
	}

	// Nil in the env-parameter slot means the operative ignores its
	// caller's environment entirely.
	if op.EnvParam != "" {
		in.debug.Logf("env_binding", "binding env parameter '%s' to %p", op.EnvParam, callerEnv)
		frame.Define(op.EnvParam, runtime.EnvValue{Env: callerEnv})
	}

	return &runtime.TailCall{Expr: op.Body, Env: frame}, nil
}

// applyBuiltin invokes a native operative with the unevaluated operand list
// flattened to a slice, plus the caller's environment. The builtin decides
// which operands to evaluate; this uniform convention is why the language
// needs no syntactic special forms.
func (in *Interpreter) applyBuiltin(op *runtime.BuiltinValue, operands runtime.Value, callerEnv *runtime.Environment) (runtime.Value, *runtime.TailCall, error) {
	operandList, err := runtime.ListToSlice(operands)
	if err != nil {
		return nil, nil, in.wrapError(err, renderContext(operands))
	}

	in.debug.Logf("builtin", "invoking builtin '%s' with %d operands", op.Name, len(operandList))
	value, tail, err := op.Impl(operandList, callerEnv)
	if err != nil {
		return nil, nil, in.wrapError(err, renderContext(runtime.Cons(op, operands)))
	}
	return value, tail, nil
}

package interpreter

import (
	"math/big"
	"strings"
	"unicode/utf8"

	"noeval/interpreter-go/pkg/runtime"
)

// evalOperands evaluates every operand left to right.
func (in *Interpreter) evalOperands(operands []runtime.Value, env *runtime.Environment) ([]runtime.Value, error) {
	values := make([]runtime.Value, len(operands))
	for i, expr := range operands {
		v, err := in.Eval(expr, env)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func (in *Interpreter) numberOperand(name string, v runtime.Value) (*big.Rat, error) {
	num, ok := v.(runtime.NumberValue)
	if !ok {
		return nil, in.errorf(ErrTypeMismatch, renderContext(v),
			"%s: argument must be a number, got %s", name, renderContext(v))
	}
	return num.Val, nil
}

// makeArithmetic builds a left-fold over rational operands. One operand
// returns itself, so (- 5) is 5 rather than negation.
func (in *Interpreter) makeArithmetic(name string, op func(a, b *big.Rat) (*big.Rat, error)) runtime.BuiltinFunc {
	return func(operands []runtime.Value, env *runtime.Environment) (runtime.Value, *runtime.TailCall, error) {
		if len(operands) == 0 {
			return nil, nil, in.errorf(ErrArityMismatch, renderCall(name, operands),
				"%s: expected at least 1 argument, got 0", name)
		}
		values, err := in.evalOperands(operands, env)
		if err != nil {
			return nil, nil, err
		}
		acc, err := in.numberOperand(name, values[0])
		if err != nil {
			return nil, nil, err
		}
		for _, v := range values[1:] {
			next, err := in.numberOperand(name, v)
			if err != nil {
				return nil, nil, err
			}
			acc, err = op(acc, next)
			if err != nil {
				return nil, nil, in.wrapError(err, renderCall(name, operands))
			}
		}
		return runtime.NumberValue{Val: acc}, nil, nil
	}
}

// builtinRemainder is truncated division remainder: a - trunc(a/b)*b, with
// the result carrying the sign of the dividend.
func (in *Interpreter) builtinRemainder(operands []runtime.Value, env *runtime.Environment) (runtime.Value, *runtime.TailCall, error) {
	if err := in.expectOperands("remainder", "dividend divisor", operands, 2); err != nil {
		return nil, nil, err
	}
	values, err := in.evalOperands(operands, env)
	if err != nil {
		return nil, nil, err
	}
	a, err := in.numberOperand("remainder", values[0])
	if err != nil {
		return nil, nil, err
	}
	b, err := in.numberOperand("remainder", values[1])
	if err != nil {
		return nil, nil, err
	}
	if b.Sign() == 0 {
		return nil, nil, in.errorf(ErrCustom, renderCall("remainder", operands),
			"remainder: division by zero")
	}
	quo := new(big.Rat).Quo(a, b)
	trunc := new(big.Int).Quo(quo.Num(), quo.Denom())
	result := new(big.Rat).Sub(a, new(big.Rat).Mul(new(big.Rat).SetInt(trunc), b))
	return runtime.NumberValue{Val: result}, nil, nil
}

func (in *Interpreter) builtinNumerator(operands []runtime.Value, env *runtime.Environment) (runtime.Value, *runtime.TailCall, error) {
	if err := in.expectOperands("numerator", "number", operands, 1); err != nil {
		return nil, nil, err
	}
	values, err := in.evalOperands(operands, env)
	if err != nil {
		return nil, nil, err
	}
	rat, err := in.numberOperand("numerator", values[0])
	if err != nil {
		return nil, nil, err
	}
	return runtime.NumberValue{Val: new(big.Rat).SetInt(rat.Num())}, nil, nil
}

func (in *Interpreter) builtinDenominator(operands []runtime.Value, env *runtime.Environment) (runtime.Value, *runtime.TailCall, error) {
	if err := in.expectOperands("denominator", "number", operands, 1); err != nil {
		return nil, nil, err
	}
	values, err := in.evalOperands(operands, env)
	if err != nil {
		return nil, nil, err
	}
	rat, err := in.numberOperand("denominator", values[0])
	if err != nil {
		return nil, nil, err
	}
	return runtime.NumberValue{Val: new(big.Rat).SetInt(rat.Denom())}, nil, nil
}

// builtinCompare is three-way comparison: -1, 0, or 1.
func (in *Interpreter) builtinCompare(operands []runtime.Value, env *runtime.Environment) (runtime.Value, *runtime.TailCall, error) {
	if err := in.expectOperands("<=>", "a b", operands, 2); err != nil {
		return nil, nil, err
	}
	values, err := in.evalOperands(operands, env)
	if err != nil {
		return nil, nil, err
	}
	a, err := in.numberOperand("<=>", values[0])
	if err != nil {
		return nil, nil, err
	}
	b, err := in.numberOperand("<=>", values[1])
	if err != nil {
		return nil, nil, err
	}
	return runtime.Num(int64(a.Cmp(b))), nil, nil
}

func (in *Interpreter) builtinCons(operands []runtime.Value, env *runtime.Environment) (runtime.Value, *runtime.TailCall, error) {
	if err := in.expectOperands("cons", "car cdr", operands, 2); err != nil {
		return nil, nil, err
	}
	values, err := in.evalOperands(operands, env)
	if err != nil {
		return nil, nil, err
	}
	return runtime.Cons(values[0], values[1]), nil, nil
}

func (in *Interpreter) builtinFirst(operands []runtime.Value, env *runtime.Environment) (runtime.Value, *runtime.TailCall, error) {
	if err := in.expectOperands("first", "pair", operands, 1); err != nil {
		return nil, nil, err
	}
	values, err := in.evalOperands(operands, env)
	if err != nil {
		return nil, nil, err
	}
	pair, ok := values[0].(*runtime.PairValue)
	if !ok {
		return nil, nil, in.errorf(ErrTypeMismatch, renderCall("first", operands),
			"first: not a cons cell, got %s", renderContext(values[0]))
	}
	return pair.Car, nil, nil
}

func (in *Interpreter) builtinRest(operands []runtime.Value, env *runtime.Environment) (runtime.Value, *runtime.TailCall, error) {
	if err := in.expectOperands("rest", "pair", operands, 1); err != nil {
		return nil, nil, err
	}
	values, err := in.evalOperands(operands, env)
	if err != nil {
		return nil, nil, err
	}
	pair, ok := values[0].(*runtime.PairValue)
	if !ok {
		return nil, nil, in.errorf(ErrTypeMismatch, renderCall("rest", operands),
			"rest: not a cons cell, got %s", renderContext(values[0]))
	}
	return pair.Cdr, nil, nil
}

func (in *Interpreter) builtinNilP(operands []runtime.Value, env *runtime.Environment) (runtime.Value, *runtime.TailCall, error) {
	if err := in.expectOperands("nil?", "value", operands, 1); err != nil {
		return nil, nil, err
	}
	values, err := in.evalOperands(operands, env)
	if err != nil {
		return nil, nil, err
	}
	_, isNil := values[0].(runtime.NilValue)
	result, err := in.churchBool(isNil, env)
	return result, nil, err
}

// builtinEqual is structural equality yielding a Church boolean looked up
// through the caller's environment.
func (in *Interpreter) builtinEqual(operands []runtime.Value, env *runtime.Environment) (runtime.Value, *runtime.TailCall, error) {
	if err := in.expectOperands("=", "a b", operands, 2); err != nil {
		return nil, nil, err
	}
	values, err := in.evalOperands(operands, env)
	if err != nil {
		return nil, nil, err
	}
	result, err := in.churchBool(runtime.Equal(values[0], values[1]), env)
	return result, nil, err
}

func (in *Interpreter) builtinWrite(operands []runtime.Value, env *runtime.Environment) (runtime.Value, *runtime.TailCall, error) {
	if err := in.expectOperands("write", "value", operands, 1); err != nil {
		return nil, nil, err
	}
	values, err := in.evalOperands(operands, env)
	if err != nil {
		return nil, nil, err
	}
	if _, err := in.out.Write([]byte(runtime.Render(values[0]) + "\n")); err != nil {
		return nil, nil, in.errorf(ErrCustom, renderCall("write", operands), "write: %v", err)
	}
	return values[0], nil, nil
}

// builtinDisplay prints strings raw, without quotes or escapes.
func (in *Interpreter) builtinDisplay(operands []runtime.Value, env *runtime.Environment) (runtime.Value, *runtime.TailCall, error) {
	if err := in.expectOperands("display", "value", operands, 1); err != nil {
		return nil, nil, err
	}
	values, err := in.evalOperands(operands, env)
	if err != nil {
		return nil, nil, err
	}
	if _, err := in.out.Write([]byte(runtime.DisplayString(values[0]) + "\n")); err != nil {
		return nil, nil, in.errorf(ErrCustom, renderCall("display", operands), "display: %v", err)
	}
	return values[0], nil, nil
}

// builtinStringToList explodes a string into a list of Unicode code point
// numbers.
func (in *Interpreter) builtinStringToList(operands []runtime.Value, env *runtime.Environment) (runtime.Value, *runtime.TailCall, error) {
	if err := in.expectOperands("string->list", "string", operands, 1); err != nil {
		return nil, nil, err
	}
	values, err := in.evalOperands(operands, env)
	if err != nil {
		return nil, nil, err
	}
	str, ok := values[0].(runtime.StringValue)
	if !ok {
		return nil, nil, in.errorf(ErrTypeMismatch, renderCall("string->list", operands),
			"string->list: argument must be a string, got %s", renderContext(values[0]))
	}
	runes := []rune(str.Val)
	points := make([]runtime.Value, len(runes))
	for i, r := range runes {
		points[i] = runtime.Num(int64(r))
	}
	return runtime.List(points...), nil, nil
}

// builtinListToString rebuilds a string from code point numbers, rejecting
// non-integers, out-of-range values, and surrogates.
func (in *Interpreter) builtinListToString(operands []runtime.Value, env *runtime.Environment) (runtime.Value, *runtime.TailCall, error) {
	if err := in.expectOperands("list->string", "list", operands, 1); err != nil {
		return nil, nil, err
	}
	values, err := in.evalOperands(operands, env)
	if err != nil {
		return nil, nil, err
	}
	elements, listErr := runtime.ListToSlice(values[0])
	if listErr != nil {
		return nil, nil, in.errorf(ErrTypeMismatch, renderCall("list->string", operands),
			"list->string: argument must be a proper list, got %s", renderContext(values[0]))
	}

	var sb strings.Builder
	for _, elem := range elements {
		num, ok := elem.(runtime.NumberValue)
		if !ok {
			return nil, nil, in.errorf(ErrTypeMismatch, renderCall("list->string", operands),
				"list->string: all elements must be numbers, got %s", renderContext(elem))
		}
		if !num.Val.IsInt() {
			return nil, nil, in.errorf(ErrTypeMismatch, renderCall("list->string", operands),
				"list->string: code point must be an integer, got %s", renderContext(elem))
		}
		if !num.Val.Num().IsInt64() {
			return nil, nil, in.errorf(ErrCustom, renderCall("list->string", operands),
				"list->string: invalid Unicode code point %s", num.Val.Num().String())
		}
		cp := num.Val.Num().Int64()
		if cp < 0 || cp > utf8.MaxRune {
			return nil, nil, in.errorf(ErrCustom, renderCall("list->string", operands),
				"list->string: invalid Unicode code point %d", cp)
		}
		if cp >= 0xD800 && cp <= 0xDFFF {
			return nil, nil, in.errorf(ErrCustom, renderCall("list->string", operands),
				"list->string: surrogate code point %d is not a valid character", cp)
		}
		sb.WriteRune(rune(cp))
	}
	return runtime.StringValue{Val: sb.String()}, nil, nil
}

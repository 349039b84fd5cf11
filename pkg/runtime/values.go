package runtime

import (
	"fmt"
	"math/big"
)

// Kind identifies the runtime value category.
type Kind int

const (
	KindNumber Kind = iota
	KindString
	KindSymbol
	KindPair
	KindNil
	KindOperative
	KindBuiltin
	KindEnvironment
	KindMutable
	KindEOF
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSymbol:
		return "symbol"
	case KindPair:
		return "pair"
	case KindNil:
		return "nil"
	case KindOperative:
		return "operative"
	case KindBuiltin:
		return "builtin-operative"
	case KindEnvironment:
		return "environment"
	case KindMutable:
		return "mutable-binding"
	case KindEOF:
		return "eof"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// Value is the shared behaviour for all runtime values. The set of
// implementations is closed; evaluation dispatches exhaustively on Kind.
type Value interface {
	Kind() Kind
}

//-----------------------------------------------------------------------------
// Atoms
//-----------------------------------------------------------------------------

// NumberValue is an exact rational. The wrapped big.Rat is never mutated
// after construction.
type NumberValue struct {
	Val *big.Rat
}

func (v NumberValue) Kind() Kind { return KindNumber }

// Num builds a NumberValue from an int64.
func Num(n int64) NumberValue {
	return NumberValue{Val: big.NewRat(n, 1)}
}

// Rat builds a NumberValue from a numerator/denominator pair.
func Rat(num, den int64) NumberValue {
	return NumberValue{Val: big.NewRat(num, den)}
}

type StringValue struct {
	Val string
}

func (v StringValue) Kind() Kind { return KindString }

type SymbolValue struct {
	Name string
}

func (v SymbolValue) Kind() Kind { return KindSymbol }

// Sym builds a SymbolValue.
func Sym(name string) SymbolValue { return SymbolValue{Name: name} }

// NilValue terminates proper lists. It is not a Pair.
type NilValue struct{}

func (NilValue) Kind() Kind { return KindNil }

// EOFValue marks exhausted input. Self-evaluating, singleton-equal.
type EOFValue struct{}

func (EOFValue) Kind() Kind { return KindEOF }

//-----------------------------------------------------------------------------
// Pairs
//-----------------------------------------------------------------------------

type PairValue struct {
	Car Value
	Cdr Value
}

func (v *PairValue) Kind() Kind { return KindPair }

// Cons builds a fresh pair.
func Cons(car, cdr Value) *PairValue { return &PairValue{Car: car, Cdr: cdr} }

// List builds a proper list from the given elements.
func List(elements ...Value) Value {
	var result Value = NilValue{}
	for i := len(elements) - 1; i >= 0; i-- {
		result = Cons(elements[i], result)
	}
	return result
}

// ImproperListError reports a cdr chain that does not terminate in nil.
type ImproperListError struct {
	Tail Value
}

func (e *ImproperListError) Error() string { return "Improper list" }

// ListToSlice flattens a proper list into a slice, failing with
// ImproperListError when the chain does not end in nil.
func ListToSlice(list Value) ([]Value, error) {
	var result []Value
	current := list
	for {
		pair, ok := current.(*PairValue)
		if !ok {
			break
		}
		result = append(result, pair.Car)
		current = pair.Cdr
	}
	if _, ok := current.(NilValue); !ok {
		return nil, &ImproperListError{Tail: current}
	}
	return result, nil
}

//-----------------------------------------------------------------------------
// Operatives
//-----------------------------------------------------------------------------

// ParamPattern describes how an operative binds its unevaluated operands:
// either one name for the whole operand list, or a fixed positional list.
type ParamPattern struct {
	Variadic bool
	// With Variadic set, Names holds the single rest-parameter name.
	Names []string
}

// OperativeValue is a user-defined combiner built by vau. Operands reach the
// body unevaluated; EnvParam (when non-empty) names the binding that receives
// the caller's environment.
type OperativeValue struct {
	Params   ParamPattern
	EnvParam string
	Body     Value
	Closure  *Environment
	// Tag gives distinguished operatives (the church booleans) an identity
	// for equality and printing. Empty for ordinary closures.
	Tag string
}

func (v *OperativeValue) Kind() Kind { return KindOperative }

// TailCall asks the trampoline loop that owns the outermost evaluation to
// continue with Expr in Env instead of returning a value. Only tail-position
// evaluations may produce one.
type TailCall struct {
	Expr Value
	Env  *Environment
}

// BuiltinFunc is the native calling convention: the unevaluated operands and
// the caller's environment. The builtin decides what to evaluate. A builtin
// whose final step is itself an evaluation may return a TailCall instead of
// a value.
type BuiltinFunc func(operands []Value, env *Environment) (Value, *TailCall, error)

type BuiltinValue struct {
	Name string
	Impl BuiltinFunc
}

func (v *BuiltinValue) Kind() Kind { return KindBuiltin }

//-----------------------------------------------------------------------------
// Environments as values, mutable cells
//-----------------------------------------------------------------------------

// EnvValue lets an environment travel as first-class data.
type EnvValue struct {
	Env *Environment
}

func (v EnvValue) Kind() Kind { return KindEnvironment }

// MutableValue is the one mutable cell type. Lookup through the evaluator's
// symbol path unwraps it transparently; set! rebinds Val in place.
type MutableValue struct {
	Val Value
}

func (v *MutableValue) Kind() Kind { return KindMutable }

//-----------------------------------------------------------------------------
// Equality
//-----------------------------------------------------------------------------

// Equal implements structural equality: numbers by value, strings and
// symbols by content, pairs recursively, nil and EOF as singletons.
// Operatives compare equal only on a non-empty matching tag; builtins and
// environment refs only on identity.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case NumberValue:
		bv, ok := b.(NumberValue)
		return ok && av.Val.Cmp(bv.Val) == 0
	case StringValue:
		bv, ok := b.(StringValue)
		return ok && av.Val == bv.Val
	case SymbolValue:
		bv, ok := b.(SymbolValue)
		return ok && av.Name == bv.Name
	case NilValue:
		_, ok := b.(NilValue)
		return ok
	case EOFValue:
		_, ok := b.(EOFValue)
		return ok
	case *PairValue:
		bv, ok := b.(*PairValue)
		return ok && Equal(av.Car, bv.Car) && Equal(av.Cdr, bv.Cdr)
	case *OperativeValue:
		bv, ok := b.(*OperativeValue)
		if !ok {
			return false
		}
		if av == bv {
			return true
		}
		return av.Tag != "" && av.Tag == bv.Tag
	case *BuiltinValue:
		bv, ok := b.(*BuiltinValue)
		return ok && av == bv
	case EnvValue:
		bv, ok := b.(EnvValue)
		return ok && av.Env == bv.Env
	case *MutableValue:
		bv, ok := b.(*MutableValue)
		return ok && av == bv
	default:
		return false
	}
}

package runtime

import (
	"fmt"
	"math/big"
	"strings"
)

// Render produces the canonical textual form of a value: the form the REPL
// prints and error contexts embed. Rendering then re-reading a Number,
// String, Symbol, or Pair of those reproduces an equal value.
func Render(v Value) string {
	switch val := v.(type) {
	case NumberValue:
		return renderRational(val.Val)
	case StringValue:
		return renderString(val.Val)
	case SymbolValue:
		return val.Name
	case NilValue:
		return "()"
	case EOFValue:
		return "#<eof>"
	case *PairValue:
		return renderPair(val)
	case *OperativeValue:
		return renderOperative(val)
	case *BuiltinValue:
		return "#<builtin-operative:" + val.Name + ">"
	case EnvValue:
		return fmt.Sprintf("#<environment:%p>", val.Env)
	case *MutableValue:
		return "#<mutable:" + Render(val.Val) + ">"
	default:
		return "#<unknown>"
	}
}

// DisplayString renders a value for display: strings come back raw, with
// their escapes already interpreted; everything else matches Render.
func DisplayString(v Value) string {
	if s, ok := v.(StringValue); ok {
		return s.Val
	}
	return Render(v)
}

func renderString(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func renderPair(pair *PairValue) string {
	var b strings.Builder
	b.WriteByte('(')
	var current Value = pair
	first := true
	for {
		cell, ok := current.(*PairValue)
		if !ok {
			break
		}
		if !first {
			b.WriteByte(' ')
		}
		first = false
		b.WriteString(Render(cell.Car))
		current = cell.Cdr
	}
	if _, ok := current.(NilValue); !ok {
		b.WriteString(" . ")
		b.WriteString(Render(current))
	}
	b.WriteByte(')')
	return b.String()
}

func renderOperative(op *OperativeValue) string {
	if op.Tag != "" {
		return op.Tag
	}
	var b strings.Builder
	b.WriteString("(operative ")
	if op.Params.Variadic {
		b.WriteString(op.Params.Names[0])
	} else {
		b.WriteByte('(')
		b.WriteString(strings.Join(op.Params.Names, " "))
		b.WriteByte(')')
	}
	b.WriteByte(' ')
	b.WriteString(op.EnvParam)
	b.WriteByte(' ')
	b.WriteString(Render(op.Body))
	b.WriteByte(')')
	return b.String()
}

// renderRational writes an exact rational as an integer, a terminating
// decimal, or a repeating decimal with the repetend in parentheses:
// 1/2 -> 0.5, 1/3 -> 0.(3), 1/6 -> 0.1(6), 22/7 -> 3.(142857).
func renderRational(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}

	num := new(big.Int).Abs(r.Num())
	den := new(big.Int).Set(r.Denom())

	var b strings.Builder
	if r.Sign() < 0 {
		b.WriteByte('-')
	}

	intPart, rem := new(big.Int).QuoRem(num, den, new(big.Int))
	b.WriteString(intPart.String())
	b.WriteByte('.')

	// Long division with remainder tracking: a repeated remainder marks the
	// start of the repetend.
	ten := big.NewInt(10)
	seen := make(map[string]int)
	var digits []byte
	repeatAt := -1
	for rem.Sign() != 0 {
		key := rem.String()
		if at, ok := seen[key]; ok {
			repeatAt = at
			break
		}
		seen[key] = len(digits)
		rem.Mul(rem, ten)
		digit, r2 := new(big.Int).QuoRem(rem, den, new(big.Int))
		digits = append(digits, byte('0'+digit.Int64()))
		rem = r2
	}

	if repeatAt < 0 {
		b.Write(digits)
		return b.String()
	}
	b.Write(digits[:repeatAt])
	b.WriteByte('(')
	b.Write(digits[repeatAt:])
	b.WriteByte(')')
	return b.String()
}

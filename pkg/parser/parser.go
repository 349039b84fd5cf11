// Package parser reads source text into the runtime value model. Expressions
// are data: the reader produces the same pairs, symbols, numbers, and strings
// the evaluator consumes, so read/render round-trips are exact.
package parser

import (
	"math/big"
	"strings"

	"noeval/interpreter-go/pkg/runtime"
)

// Parser reads a sequence of expressions from a single source string.
type Parser struct {
	lex    *lexer
	peeked *token
}

func New(src string) *Parser {
	return &Parser{lex: newLexer(src)}
}

// Parse reads exactly one expression and rejects trailing input.
func Parse(src string) (runtime.Value, error) {
	p := New(src)
	expr, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if _, isEOF := expr.(runtime.EOFValue); isEOF {
		return nil, &ParseError{Line: 1, Col: 1, Message: "no expression in input"}
	}
	next, err := p.ParseExpression()
	if err != nil {
		return nil, err
	}
	if _, isEOF := next.(runtime.EOFValue); !isEOF {
		return nil, &ParseError{Line: 1, Col: 1, Message: "unexpected trailing expression"}
	}
	return expr, nil
}

// ParseAll reads every expression in the source.
func ParseAll(src string) ([]runtime.Value, error) {
	return New(src).ParseAll()
}

func (p *Parser) next() (token, error) {
	if p.peeked != nil {
		tok := *p.peeked
		p.peeked = nil
		return tok, nil
	}
	return p.lex.next()
}

func (p *Parser) peek() (token, error) {
	if p.peeked == nil {
		tok, err := p.lex.next()
		if err != nil {
			return token{}, err
		}
		p.peeked = &tok
	}
	return *p.peeked, nil
}

// ParseExpression reads one expression. Exhausted input yields the EOF value
// rather than an error, so interactive callers can tell "done" from "broken".
func (p *Parser) ParseExpression() (runtime.Value, error) {
	tok, err := p.next()
	if err != nil {
		return nil, err
	}
	switch tok.kind {
	case tokEOF:
		return runtime.EOFValue{}, nil
	case tokLParen:
		return p.parseList(tok)
	case tokRParen:
		return nil, p.lex.errorf(tok.line, tok.col, "unexpected ')'")
	case tokString:
		return runtime.StringValue{Val: tok.text}, nil
	case tokAtom:
		return p.parseAtom(tok)
	}
	return nil, p.lex.errorf(tok.line, tok.col, "unexpected token %q", tok.text)
}

func (p *Parser) ParseAll() ([]runtime.Value, error) {
	var exprs []runtime.Value
	for {
		expr, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		if _, isEOF := expr.(runtime.EOFValue); isEOF {
			return exprs, nil
		}
		exprs = append(exprs, expr)
	}
}

// parseList collects elements up to the closing paren and conses them
// right to left. () reads as nil.
func (p *Parser) parseList(open token) (runtime.Value, error) {
	var elements []runtime.Value
	for {
		tok, err := p.peek()
		if err != nil {
			return nil, err
		}
		switch tok.kind {
		case tokRParen:
			p.peeked = nil
			return runtime.List(elements...), nil
		case tokEOF:
			return nil, p.lex.errorf(open.line, open.col, "unterminated list")
		}
		elem, err := p.ParseExpression()
		if err != nil {
			return nil, err
		}
		elements = append(elements, elem)
	}
}

func (p *Parser) parseAtom(tok token) (runtime.Value, error) {
	if looksNumeric(tok.text) {
		rat, err := parseNumber(tok.text)
		if err != nil {
			return nil, p.lex.errorf(tok.line, tok.col, "invalid number literal %q: %s", tok.text, err)
		}
		return runtime.NumberValue{Val: rat}, nil
	}
	return runtime.Sym(tok.text), nil
}

// looksNumeric decides whether an atom is a number literal or a symbol. A
// bare sign or dot is a symbol; a sign or dot followed by a digit is a
// number.
func looksNumeric(text string) bool {
	if text == "" {
		return false
	}
	r := text[0]
	if r >= '0' && r <= '9' {
		return true
	}
	if (r == '+' || r == '-' || r == '.') && len(text) > 1 {
		c := text[1]
		if c >= '0' && c <= '9' {
			return true
		}
		if (r == '+' || r == '-') && c == '.' && len(text) > 2 {
			d := text[2]
			return d >= '0' && d <= '9'
		}
	}
	return false
}

type numberError string

func (e numberError) Error() string { return string(e) }

// parseNumber converts a literal to an exact rational. Accepted forms:
// integers, radix-prefixed integers (0x 0o 0b), fractions like 22/7,
// decimals, and repeating decimals like 0.1(6).
func parseNumber(text string) (*big.Rat, error) {
	s := text
	neg := false
	if len(s) > 0 && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}
	if s == "" {
		return nil, numberError("empty digits")
	}

	var rat *big.Rat
	var err error
	switch {
	case len(s) > 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X'):
		rat, err = parseRadix(s[2:], 16)
	case len(s) > 2 && s[0] == '0' && (s[1] == 'o' || s[1] == 'O'):
		rat, err = parseRadix(s[2:], 8)
	case len(s) > 2 && s[0] == '0' && (s[1] == 'b' || s[1] == 'B'):
		rat, err = parseRadix(s[2:], 2)
	case strings.ContainsRune(s, '('):
		rat, err = parseRepeating(s)
	case strings.ContainsRune(s, '/'):
		rat, err = parseFraction(s)
	default:
		rat, err = parseDecimal(s)
	}
	if err != nil {
		return nil, err
	}
	if neg {
		rat.Neg(rat)
	}
	return rat, nil
}

func parseRadix(digits string, base int) (*big.Rat, error) {
	n, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return nil, numberError("malformed radix digits")
	}
	return new(big.Rat).SetInt(n), nil
}

func parseFraction(s string) (*big.Rat, error) {
	slash := strings.IndexByte(s, '/')
	num, okN := new(big.Int).SetString(s[:slash], 10)
	den, okD := new(big.Int).SetString(s[slash+1:], 10)
	if !okN || !okD {
		return nil, numberError("malformed fraction")
	}
	if den.Sign() == 0 {
		return nil, numberError("zero denominator")
	}
	return new(big.Rat).SetFrac(num, den), nil
}

func parseDecimal(s string) (*big.Rat, error) {
	if strings.Count(s, ".") > 1 {
		return nil, numberError("malformed decimal")
	}
	for _, r := range s {
		if r != '.' && (r < '0' || r > '9') {
			return nil, numberError("malformed decimal")
		}
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	rat, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, numberError("malformed decimal")
	}
	return rat, nil
}

// parseRepeating handles INT.FRAC(REP): the value is
// (digits(INT FRAC REP) - digits(INT FRAC)) / (10^len(FRAC) * (10^len(REP) - 1)),
// the closed form of the geometric series the repetend denotes.
func parseRepeating(s string) (*big.Rat, error) {
	dot := strings.IndexByte(s, '.')
	open := strings.IndexByte(s, '(')
	if dot < 0 || open < dot || s[len(s)-1] != ')' {
		return nil, numberError("malformed repeating decimal")
	}
	intPart := s[:dot]
	fracPart := s[dot+1 : open]
	repPart := s[open+1 : len(s)-1]
	if intPart == "" || repPart == "" {
		return nil, numberError("malformed repeating decimal")
	}
	for _, part := range []string{intPart, fracPart, repPart} {
		for _, r := range part {
			if r < '0' || r > '9' {
				return nil, numberError("malformed repeating decimal")
			}
		}
	}

	full, ok1 := new(big.Int).SetString(intPart+fracPart+repPart, 10)
	truncated, ok2 := new(big.Int).SetString(intPart+fracPart, 10)
	if !ok1 || !ok2 {
		return nil, numberError("malformed repeating decimal")
	}
	numerator := new(big.Int).Sub(full, truncated)

	ten := big.NewInt(10)
	fracScale := new(big.Int).Exp(ten, big.NewInt(int64(len(fracPart))), nil)
	repScale := new(big.Int).Exp(ten, big.NewInt(int64(len(repPart))), nil)
	repScale.Sub(repScale, big.NewInt(1))
	denominator := new(big.Int).Mul(fracScale, repScale)

	return new(big.Rat).SetFrac(numerator, denominator), nil
}

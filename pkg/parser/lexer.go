package parser

import "fmt"

// ParseError carries the source position where reading failed.
type ParseError struct {
	Line    int
	Col     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at line %d, column %d: %s", e.Line, e.Col, e.Message)
}

type tokenKind int

const (
	tokLParen tokenKind = iota
	tokRParen
	tokString
	tokAtom
	tokEOF
)

type token struct {
	kind tokenKind
	text string
	line int
	col  int
}

type lexer struct {
	src  []rune
	pos  int
	line int
	col  int
}

func newLexer(src string) *lexer {
	return &lexer{src: []rune(src), line: 1, col: 1}
}

func (l *lexer) errorf(line, col int, format string, args ...any) *ParseError {
	return &ParseError{Line: line, Col: col, Message: fmt.Sprintf(format, args...)}
}

func (l *lexer) peek() (rune, bool) {
	if l.pos >= len(l.src) {
		return 0, false
	}
	return l.src[l.pos], true
}

func (l *lexer) advance() rune {
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func isDelimiter(r rune) bool {
	switch r {
	case '(', ')', '"', ';', ' ', '\t', '\n', '\r':
		return true
	}
	return false
}

// next returns the following token, skipping whitespace, line comments, and
// #skip ... #end regions.
func (l *lexer) next() (token, error) {
	for {
		tok, err := l.scan()
		if err != nil {
			return token{}, err
		}
		if tok.kind == tokAtom && tok.text == "#skip" {
			if err := l.skipRegion(tok); err != nil {
				return token{}, err
			}
			continue
		}
		if tok.kind == tokAtom && tok.text == "#end" {
			return token{}, l.errorf(tok.line, tok.col, "#end without matching #skip")
		}
		return tok, nil
	}
}

// skipRegion discards tokens until the #end that closes a #skip. Regions
// nest.
func (l *lexer) skipRegion(open token) error {
	depth := 1
	for depth > 0 {
		tok, err := l.scan()
		if err != nil {
			return err
		}
		switch {
		case tok.kind == tokEOF:
			return l.errorf(open.line, open.col, "unterminated #skip region")
		case tok.kind == tokAtom && tok.text == "#skip":
			depth++
		case tok.kind == tokAtom && tok.text == "#end":
			depth--
		}
	}
	return nil
}

func (l *lexer) scan() (token, error) {
	for {
		r, ok := l.peek()
		if !ok {
			return token{kind: tokEOF, line: l.line, col: l.col}, nil
		}
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			l.advance()
		case r == ';':
			for {
				r, ok := l.peek()
				if !ok || r == '\n' {
					break
				}
				l.advance()
			}
		default:
			goto scanToken
		}
	}

scanToken:
	line, col := l.line, l.col
	r := l.advance()
	switch r {
	case '(':
		return token{kind: tokLParen, text: "(", line: line, col: col}, nil
	case ')':
		return token{kind: tokRParen, text: ")", line: line, col: col}, nil
	case '"':
		return l.scanString(line, col)
	default:
		text := []rune{r}
		for {
			r, ok := l.peek()
			if !ok || isDelimiter(r) {
				break
			}
			text = append(text, l.advance())
		}
		return token{kind: tokAtom, text: string(text), line: line, col: col}, nil
	}
}

func (l *lexer) scanString(line, col int) (token, error) {
	var out []rune
	for {
		r, ok := l.peek()
		if !ok {
			return token{}, l.errorf(line, col, "unterminated string literal")
		}
		l.advance()
		switch r {
		case '"':
			return token{kind: tokString, text: string(out), line: line, col: col}, nil
		case '\\':
			esc, ok := l.peek()
			if !ok {
				return token{}, l.errorf(line, col, "unterminated string literal")
			}
			l.advance()
			switch esc {
			case 'n':
				out = append(out, '\n')
			case 't':
				out = append(out, '\t')
			case 'e':
				out = append(out, '\x1b')
			case '\\':
				out = append(out, '\\')
			case '"':
				out = append(out, '"')
			default:
				return token{}, l.errorf(l.line, l.col, "unknown escape sequence \\%c", esc)
			}
		default:
			out = append(out, r)
		}
	}
}

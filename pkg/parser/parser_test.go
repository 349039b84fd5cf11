package parser

import (
	"strings"
	"testing"

	"noeval/interpreter-go/pkg/runtime"
)

func parseOne(t *testing.T, src string) runtime.Value {
	t.Helper()
	v, err := Parse(src)
	if err != nil {
		t.Fatalf("Parse(%q) failed: %v", src, err)
	}
	return v
}

func wantRender(t *testing.T, src, want string) {
	t.Helper()
	got := runtime.Render(parseOne(t, src))
	if got != want {
		t.Errorf("Parse(%q) rendered %q, want %q", src, got, want)
	}
}

func TestParseAtoms(t *testing.T) {
	wantRender(t, "foo", "foo")
	wantRender(t, "42", "42")
	wantRender(t, "-17", "-17")
	wantRender(t, "+5", "5")
	wantRender(t, `"hello"`, `"hello"`)
	wantRender(t, "()", "()")
}

func TestParseSymbolsWithSignCharacters(t *testing.T) {
	wantRender(t, "+", "+")
	wantRender(t, "-", "-")
	wantRender(t, "<=>", "<=>")
	wantRender(t, "string->list", "string->list")
	wantRender(t, "nil?", "nil?")
	wantRender(t, "set!", "set!")
}

func TestParseDecimals(t *testing.T) {
	wantRender(t, "3.14", "3.14")
	wantRender(t, "0.5", "0.5")
	wantRender(t, "-2.75", "-2.75")
	wantRender(t, ".5", "0.5")
}

func TestParseFractions(t *testing.T) {
	wantRender(t, "1/2", "0.5")
	wantRender(t, "22/7", "3.(142857)")
	wantRender(t, "-5/6", "-0.8(3)")
	wantRender(t, "4/2", "2")
}

func TestParseRepeatingDecimals(t *testing.T) {
	v := parseOne(t, "0.(3)")
	num, ok := v.(runtime.NumberValue)
	if !ok {
		t.Fatalf("expected number, got %T", v)
	}
	if num.Val.Cmp(runtime.Rat(1, 3).Val) != 0 {
		t.Errorf("0.(3) parsed as %s, want 1/3", num.Val.RatString())
	}

	wantRender(t, "0.1(6)", "0.1(6)")
	wantRender(t, "3.(142857)", "3.(142857)")
	wantRender(t, "-0.8(3)", "-0.8(3)")
}

func TestParseRadixLiterals(t *testing.T) {
	wantRender(t, "0xff", "255")
	wantRender(t, "0o17", "15")
	wantRender(t, "0b1010", "10")
	wantRender(t, "-0x10", "-16")
}

func TestParseStringEscapes(t *testing.T) {
	v := parseOne(t, `"a\nb\tc\\d\"e"`)
	str, ok := v.(runtime.StringValue)
	if !ok {
		t.Fatalf("expected string, got %T", v)
	}
	if str.Val != "a\nb\tc\\d\"e" {
		t.Errorf("got %q", str.Val)
	}

	esc := parseOne(t, `"\e[31m"`)
	if esc.(runtime.StringValue).Val != "\x1b[31m" {
		t.Errorf("\\e escape not decoded: %q", esc.(runtime.StringValue).Val)
	}
}

func TestParseNestedLists(t *testing.T) {
	wantRender(t, "(define x (vau (a b) env a))", "(define x (vau (a b) env a))")
	wantRender(t, "(1 (2 (3)) ())", "(1 (2 (3)) ())")
}

func TestParseCommentsIgnored(t *testing.T) {
	src := "; leading comment\n(+ 1 2) ; trailing\n"
	wantRender(t, src, "(+ 1 2)")
}

func TestParseSkipRegions(t *testing.T) {
	src := "#skip (this is not read) 0xZZ #end (+ 1 2)"
	wantRender(t, src, "(+ 1 2)")

	nested := "#skip outer #skip inner #end still-skipped #end 42"
	wantRender(t, nested, "42")
}

func TestParseAllReadsEveryExpression(t *testing.T) {
	exprs, err := ParseAll("(define x 1) (define y 2) x")
	if err != nil {
		t.Fatalf("ParseAll failed: %v", err)
	}
	if len(exprs) != 3 {
		t.Fatalf("expected 3 expressions, got %d", len(exprs))
	}
	if runtime.Render(exprs[2]) != "x" {
		t.Errorf("third expression rendered %q", runtime.Render(exprs[2]))
	}
}

func TestParseExpressionReturnsEOFWhenExhausted(t *testing.T) {
	p := New("42")
	if _, err := p.ParseExpression(); err != nil {
		t.Fatal(err)
	}
	v, err := p.ParseExpression()
	if err != nil {
		t.Fatal(err)
	}
	if v.Kind() != runtime.KindEOF {
		t.Errorf("expected EOF value, got %s", runtime.Render(v))
	}
}

func TestParseErrorsCarryPositions(t *testing.T) {
	cases := []struct {
		src     string
		wantMsg string
	}{
		{"(1 2", "unterminated list"},
		{")", "unexpected ')'"},
		{`"abc`, "unterminated string"},
		{`"a\q"`, "unknown escape"},
		{"#skip forever", "unterminated #skip"},
		{"#end", "#end without matching #skip"},
		{"0xZZ", "invalid number literal"},
		{"1.2.3", "invalid number literal"},
		{"1/0", "invalid number literal"},
	}
	for _, tc := range cases {
		_, err := Parse(tc.src)
		if err == nil {
			t.Errorf("Parse(%q) succeeded, want error containing %q", tc.src, tc.wantMsg)
			continue
		}
		if !strings.Contains(err.Error(), tc.wantMsg) {
			t.Errorf("Parse(%q) error %q, want substring %q", tc.src, err.Error(), tc.wantMsg)
		}
		perr, ok := err.(*ParseError)
		if !ok {
			t.Errorf("Parse(%q) error is %T, want *ParseError", tc.src, err)
			continue
		}
		if perr.Line < 1 || perr.Col < 1 {
			t.Errorf("Parse(%q) error position %d:%d", tc.src, perr.Line, perr.Col)
		}
	}
}

func TestParseErrorLineTracking(t *testing.T) {
	_, err := Parse("(ok)\n(broken \"")
	perr, ok := err.(*ParseError)
	if !ok {
		t.Fatalf("expected *ParseError, got %v", err)
	}
	if perr.Line != 2 {
		t.Errorf("error line = %d, want 2", perr.Line)
	}
}

func TestRenderReadRoundTrip(t *testing.T) {
	sources := []string{
		"(vau (x y) env (eval x env))",
		"(1 2.5 0.1(6) \"s\" sym ())",
		"-12345678901234567890",
	}
	for _, src := range sources {
		first := runtime.Render(parseOne(t, src))
		second := runtime.Render(parseOne(t, first))
		if first != second {
			t.Errorf("round trip of %q unstable: %q then %q", src, first, second)
		}
	}
}

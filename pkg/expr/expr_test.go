package expr

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func mapLookup(m map[string]Value) Lookup {
	return func(name string) (Value, error) {
		if v, ok := m[name]; ok {
			return v, nil
		}
		return Value{}, fmt.Errorf("undefined symbol %q", name)
	}
}

func TestParseNumber(t *testing.T) {
	tests := []struct {
		lit     string
		want    int
		wantErr bool
	}{
		{"42", 42, false},
		{"0x2A", 42, false},
		{"2Ah", 42, false},
		{"0FFh", 255, false},
		{"101010b", 42, false},
		{"0b101010", 42, false},
		{"52o", 42, false},
		{"52q", 42, false},
		{"0bh", 11, false},
		{"0o52", 42, false},
		{"007", 7, false},
		{"0", 0, false},
		{"12z", 0, true},
		{"0x", 0, true},
		{"", 0, true},
	}
	for _, tc := range tests {
		got, err := ParseNumber(tc.lit)
		if (err != nil) != tc.wantErr {
			t.Errorf("ParseNumber(%q) error = %v, wantErr %v", tc.lit, err, tc.wantErr)
			continue
		}
		if !tc.wantErr && got != tc.want {
			t.Errorf("ParseNumber(%q) = %d; want %d", tc.lit, got, tc.want)
		}
	}
}

func TestLexDollar(t *testing.T) {
	tokens, err := Lex("$ + $1F")
	if err != nil {
		t.Fatalf("Lex failed: %v", err)
	}
	want := []TokenType{IDENTIFIER, PLUS, NUMBER, EOF}
	for i, tt := range want {
		if tokens[i].Type != tt {
			t.Errorf("token %d = %s; want %s", i, tokens[i].Type, tt)
		}
	}
	if tokens[0].Lexeme != "$" {
		t.Errorf("lexeme = %q; want \"$\"", tokens[0].Lexeme)
	}
}

func TestLexErrors(t *testing.T) {
	for _, src := range []string{`"open`, `'\q'`, "1 # 2"} {
		if _, err := Lex(src); err == nil {
			t.Errorf("Lex(%q) succeeded; want error", src)
		}
	}
}

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"1 + 2 * 3", "(1 + (2 * 3))"},
		{"1 << 2 + 3", "(1 << (2 + 3))"},
		{"a | b ^ c & d", "(a | (b ^ (c & d)))"},
		{"a == b < c", "(a == (b < c))"},
		{"a || b && c", "(a || (b && c))"},
		{"a ? b : c ? d : e", "(a ? b : (c ? d : e))"},
		{"-a * b", "((-a) * b)"},
		{"min(1, x)", "min(1, x)"},
		{"(1 + 2) * 3", "((1 + 2) * 3)"},
	}
	for _, tc := range tests {
		n, err := Parse(tc.src)
		if err != nil {
			t.Errorf("Parse(%q) failed: %v", tc.src, err)
			continue
		}
		if got := n.String(); got != tc.want {
			t.Errorf("Parse(%q) = %s; want %s", tc.src, got, tc.want)
		}
	}
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{"", "1 +", "(1", "foo(1)", "swp(1, 2)", "1 2", "a ? b"} {
		if _, err := Parse(src); err == nil {
			t.Errorf("Parse(%q) succeeded; want error", src)
		}
	}
}

func TestFreeVars(t *testing.T) {
	n, err := Parse("a + b * cat(c, a) + ($ - d ? e : 1)")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	want := []string{"a", "b", "c", "$", "d", "e"}
	if got := FreeVars(n); !reflect.DeepEqual(got, want) {
		t.Errorf("FreeVars = %v; want %v", got, want)
	}
}

func TestEvalNumbers(t *testing.T) {
	syms := map[string]Value{"three": Number(3), "ten": Number(10)}
	tests := []struct {
		src  string
		want int
	}{
		{"1 + 2 * 3", 7},
		{"ten / three", 3},
		{"ten % three", 1},
		{"1 << 4 | 1", 17},
		{"0xF0 & 0x3C ^ 1", 0x31},
		{"~0 & 0xFF", 0xFF},
		{"!0 + !5", 1},
		{"three > 2 && ten < 5", 0},
		{"three > 2 || ten < 5", 1},
		{"three == 3 ? 100 : 200", 100},
		{"three <> 3", 0},
		{"swp(0x1234)", 0x3412},
		{"min(5, three, ten)", 3},
		{"max(5, three, ten)", 10},
		{"'A' + 1", 66},
		{"'AB' + 0", 0x4241},
		{"\"a\" < 'b'", 1},
	}
	for _, tc := range tests {
		got, err := EvalString(tc.src, mapLookup(syms))
		if err != nil {
			t.Errorf("EvalString(%q) failed: %v", tc.src, err)
			continue
		}
		if got.Kind != KindNumber || got.Num != tc.want {
			t.Errorf("EvalString(%q) = %v; want %d", tc.src, got, tc.want)
		}
	}
}

func TestEvalStrings(t *testing.T) {
	tests := []struct {
		src  string
		want Value
	}{
		{`cat("ab", 'c', "def")`, String("abcdef")},
		{`rpt("xy", 3)`, String("xyxyxy")},
		{`rpt("xy", 0)`, String("")},
		{`'AB'`, String("AB")},
		{`min("pear", "apple", "zoo")`, String("apple")},
		{`max("pear", "apple", "zoo")`, String("zoo")},
		{`"hello" == "hello"`, Number(1)},
		{`"hello" < "help"`, Number(1)},
	}
	for _, tc := range tests {
		got, err := EvalString(tc.src, nil)
		if err != nil {
			t.Errorf("EvalString(%q) failed: %v", tc.src, err)
			continue
		}
		if got != tc.want {
			t.Errorf("EvalString(%q) = %v; want %v", tc.src, got, tc.want)
		}
	}
}

func TestEvalTypeErrors(t *testing.T) {
	tests := []struct {
		src     string
		errPart string
	}{
		{`"abc" + 1`, "cannot be used as a number"},
		{`"" * 2`, "cannot be used as a number"},
		{`min(1, "a")`, "mixes strings and numbers"},
		{`cat("a", 1)`, "not a string"},
		{`rpt(1, 2)`, "not a string"},
		{`rpt("a", -1)`, "negative count"},
		{`rpt("ab", 0x4000000000000000)`, "longer than"},
		{`rpt("x", 0x10001)`, "longer than"},
		{`1 / 0`, "division by zero"},
		{`1 % 0`, "modulo by zero"},
		{`1 << -1`, "negative shift"},
		{`missing + 1`, "undefined symbol"},
		{`-"abc"`, "cannot be used as a number"},
	}
	for _, tc := range tests {
		_, err := EvalString(tc.src, mapLookup(nil))
		if err == nil {
			t.Errorf("EvalString(%q) succeeded; want error", tc.src)
			continue
		}
		if !strings.Contains(err.Error(), tc.errPart) {
			t.Errorf("EvalString(%q) error = %v; want it to mention %q", tc.src, err, tc.errPart)
		}
	}
}

func TestEvalShortCircuit(t *testing.T) {
	// The right operand would fail; it must not be evaluated.
	for _, src := range []string{"0 && missing", "1 || missing", "1 ? 2 : missing"} {
		if _, err := EvalString(src, mapLookup(nil)); err != nil {
			t.Errorf("EvalString(%q) failed: %v", src, err)
		}
	}
}

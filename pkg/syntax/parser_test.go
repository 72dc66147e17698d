package syntax

import (
	"reflect"
	"strings"
	"testing"

	"zasm/pkg/asm"
	"zasm/pkg/source"
)

// assemble parses src and runs it through the whole pipeline.
func assemble(src string) *asm.Result {
	elems, diags := Parse("test.asm", source.SplitLines(src))
	res := asm.Assemble(elems, asm.Options{})
	res.Diagnostics = append(diags, res.Diagnostics...)
	return res
}

func TestHelperFunctions(t *testing.T) {
	identTests := []struct {
		input string
		want  int
	}{
		{"abc", 3},
		{"_abc", 4},
		{"abc1", 4},
		{"loop: nop", 4},
		{".block", 6},
		{"1abc", 0},
		{"", 0},
		{"ab-c", 2},
	}
	for _, tc := range identTests {
		if got := identLen(tc.input); got != tc.want {
			t.Errorf("identLen(%q) = %d; want %d", tc.input, got, tc.want)
		}
	}

	indirectTests := []struct {
		input string
		inner string
		ok    bool
	}{
		{"(0x10)", "0x10", true},
		{"( hl )", "hl", true},
		{"(1)+(2)", "", false},
		{"5", "", false},
		{"(')')", "')'", true},
	}
	for _, tc := range indirectTests {
		inner, ok := indirect(tc.input)
		if inner != tc.inner || ok != tc.ok {
			t.Errorf("indirect(%q) = %q, %v; want %q, %v", tc.input, inner, ok, tc.inner, tc.ok)
		}
	}
}

func TestSplitOperands(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{"a, 5", []string{"a", "5"}},
		{"min(1, 2), 3", []string{"min(1, 2)", "3"}},
		{`',', "a,b"`, []string{"','", `"a,b"`}},
		{"af,af'", []string{"af", "af'"}},
		{"1,,2", []string{"1", "", "2"}},
	}
	for _, tc := range tests {
		if got := splitOperands(tc.input); !reflect.DeepEqual(got, tc.want) {
			t.Errorf("splitOperands(%q) = %q; want %q", tc.input, got, tc.want)
		}
	}
}

func TestParseLine(t *testing.T) {
	type label struct {
		name   string
		public bool
	}
	tests := []struct {
		line     string
		labels   []label
		mnemonic string
		operands string
	}{
		{"ld a, 5", nil, "ld", "a, 5"},
		{"  ld a,b  ; comment", nil, "ld", "a,b"},
		{"start: nop", []label{{"start", false}}, "nop", ""},
		{"one: two:: halt", []label{{"one", false}, {"two", true}}, "halt", ""},
		{"count equ 3", []label{{"count", false}}, "equ", "3"},
		{"count: EQU 3", []label{{"count", false}}, "EQU", "3"},
		{".block", nil, ".block", ""},
		{"x:", []label{{"x", false}}, "", ""},
		{"; only a comment", nil, "", ""},
		{`db ";", 1`, nil, "db", `";", 1`},
	}
	for _, tc := range tests {
		p := &parser{}
		got, ok := p.parseLine(tc.line)
		if !ok || len(p.diags) > 0 {
			t.Errorf("parseLine(%q) failed: %v", tc.line, p.diags)
			continue
		}
		var labels []label
		for _, l := range got.labels {
			labels = append(labels, label{l.Name, l.Public})
		}
		if !reflect.DeepEqual(labels, tc.labels) {
			t.Errorf("parseLine(%q) labels = %v; want %v", tc.line, labels, tc.labels)
		}
		if got.mnemonic != tc.mnemonic || got.operands != tc.operands {
			t.Errorf("parseLine(%q) = %q %q; want %q %q", tc.line, got.mnemonic, got.operands, tc.mnemonic, tc.operands)
		}
	}

	p := &parser{}
	if _, ok := p.parseLine("1abc: nop"); ok {
		t.Error("parseLine accepted a line starting with a digit")
	}
}

func TestAssemble(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []byte
	}{
		{"no operands", "nop\nhalt\nldir", []byte{0x00, 0x76, 0xED, 0xB0}},
		{"ld immediate", "ld a, 5\nld hl, 0x1234", []byte{0x3E, 0x05, 0x21, 0x34, 0x12}},
		{"ld registers", "ld b,c\nld (hl),a\nld a,(de)", []byte{0x41, 0x77, 0x1A}},
		{"ld memory", "ld a,(0x4000)\nld (0x4000),hl\nld de,(0x4000)", []byte{0x3A, 0x00, 0x40, 0x22, 0x00, 0x40, 0xED, 0x5B, 0x00, 0x40}},
		{"ld (hl) immediate", "ld (hl), 0xAA", []byte{0x36, 0xAA}},
		{"jumps", "jp 0x100\njp nz, 0x100\ncall c, 0x100\nret z\njp (hl)", []byte{0xC3, 0x00, 0x01, 0xC2, 0x00, 0x01, 0xDC, 0x00, 0x01, 0xC8, 0xE9}},
		{"stack", "push af\npop bc", []byte{0xF5, 0xC1}},
		{"alu", "add a, b\nsub 3\ncp (hl)\nxor a\nand 0x0F\nor c", []byte{0x80, 0xD6, 0x03, 0xBE, 0xAF, 0xE6, 0x0F, 0xB1}},
		{"16-bit arithmetic", "inc hl\ndec (hl)\nadd hl,de\nsbc hl,bc", []byte{0x23, 0x35, 0x19, 0xED, 0x42}},
		{"bit ops", "bit 7,a\nset 0,(hl)\nsrl a", []byte{0xCB, 0x7F, 0xCB, 0xC6, 0xCB, 0x3F}},
		{"rst and im", "rst 0x38\nim 1", []byte{0xFF, 0xED, 0x56}},
		{"ports", "out (0xFE),a\nin a,(c)", []byte{0xD3, 0xFE, 0xED, 0x78}},
		{"exchanges", "ex af,af'\nex de,hl", []byte{0x08, 0xEB}},
		{"djnz self", "loop: djnz loop", []byte{0x10, 0xFE}},
		{"jr dollar", "jr $", []byte{0x18, 0xFE}},
		{"case insensitive", "LD A, 1\nNop", []byte{0x3E, 0x01, 0x00}},
		{"defb", `db 1, 'A', "hi", 0`, []byte{0x01, 0x41, 0x68, 0x69, 0x00}},
		{"defw", "dw 0x1234, 'AB'", []byte{0x34, 0x12, 0x41, 0x42}},
		{"defs", "ds 3, 0xFF\nds 2", []byte{0xFF, 0xFF, 0xFF, 0x00, 0x00}},
		{"comment with quotes", "ld a, ';' ; a comment; with ; semicolons", []byte{0x3E, 0x3B}},
		{"forward reference", "jp end\nend: nop", []byte{0xC3, 0x03, 0x00, 0x00}},
		{"equ", "size equ 4\nld b, size*2", []byte{0x06, 0x08}},
		{"defs deferred fill", "ds 2, fill\nfill equ 7", []byte{0x07, 0x07}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res := assemble(tc.src)
			for _, d := range res.Diagnostics {
				t.Errorf("unexpected diagnostic: %v", d)
			}
			if !reflect.DeepEqual(res.Bytes, tc.want) {
				t.Errorf("bytes = % X; want % X", res.Bytes, tc.want)
			}
		})
	}
}

func TestAssembleOrigin(t *testing.T) {
	res := assemble("org 0x8000\nstart: jp start")
	if res.Failed() {
		t.Fatalf("diagnostics: %v", res.Diagnostics)
	}
	if res.Origin != 0x8000 {
		t.Errorf("origin = %04X; want 8000", res.Origin)
	}
	if want := []byte{0xC3, 0x00, 0x80}; !reflect.DeepEqual(res.Bytes, want) {
		t.Errorf("bytes = % X; want % X", res.Bytes, want)
	}
}

func TestAssembleStringSymbols(t *testing.T) {
	res := assemble("msg equ \"hello\"\ntext: db msg\nnext: db 1\n      ld hl, next")
	if res.Failed() {
		t.Fatalf("diagnostics: %v", res.Diagnostics)
	}
	if want := []byte{'h', 'e', 'l', 'l', 'o', 1, 0x21, 0x05, 0x00}; !reflect.DeepEqual(res.Bytes, want) {
		t.Errorf("bytes = % X; want % X", res.Bytes, want)
	}

	for _, src := range []string{
		"text: db later\nnext: db 1\nlater equ \"hello\"",
		"msg equ \"abc\"\ndw msg",
	} {
		if res := assemble(src); !res.Failed() {
			t.Errorf("%q assembled to % X without diagnostics", src, res.Bytes)
		}
	}
}

func TestAssembleMacros(t *testing.T) {
	src := `
        org 0x100
start:  ld a, count
        jr start
        dw msg
count   equ 3
        macro m v
loop:   ld b, v
        djnz loop
        endm
        m 5
        m count+1
msg:    db "hi"
`
	res := assemble(src)
	for _, d := range res.Diagnostics {
		t.Errorf("unexpected diagnostic: %v", d)
	}
	want := []byte{
		0x3E, 0x03,
		0x18, 0xFC,
		0x0E, 0x01,
		0x06, 0x05, 0x10, 0xFC,
		0x06, 0x04, 0x10, 0xFC,
		'h', 'i',
	}
	if !reflect.DeepEqual(res.Bytes, want) {
		t.Errorf("bytes = % X\nwant    % X", res.Bytes, want)
	}
}

func TestAssembleBlocks(t *testing.T) {
	src := `
        .block
x:      ld a, 1
        jr x
        .endblock
        .block
x:      jr x
        .endblock
`
	res := assemble(src)
	for _, d := range res.Diagnostics {
		t.Errorf("unexpected diagnostic: %v", d)
	}
	if want := []byte{0x3E, 0x01, 0x18, 0xFC, 0x18, 0xFE}; !reflect.DeepEqual(res.Bytes, want) {
		t.Errorf("bytes = % X; want % X", res.Bytes, want)
	}
}

func TestAssemblePhase(t *testing.T) {
	src := `
        org 0
        ld hl, code
        ld de, 0x8000
        ld bc, code_end - code
        ldir
        jp 0x8000
code:
        .phase 0x8000
run:    jr run
        jp run
        .dephase
code_end:
`
	res := assemble(src)
	for _, d := range res.Diagnostics {
		t.Errorf("unexpected diagnostic: %v", d)
	}
	want := []byte{
		0x21, 0x0E, 0x00,
		0x11, 0x00, 0x80,
		0x01, 0x05, 0x00,
		0xED, 0xB0,
		0xC3, 0x00, 0x80,
		0x18, 0xFE,
		0xC3, 0x00, 0x80,
	}
	if !reflect.DeepEqual(res.Bytes, want) {
		t.Errorf("bytes = % X\nwant    % X", res.Bytes, want)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		src  string
		want string
	}{
		{"ld a", "invalid operands for LD"},
		{"ld a,b,c", "invalid operands"},
		{"ld (1),(2)", "invalid operands"},
		{"db", "DEFB expects at least one operand"},
		{"org", "ORG expects exactly one operand"},
		{"bit 8,a", "bit number 8 out of range"},
		{"bit n,a", "bit number must be a constant"},
		{"im 3", "invalid interrupt mode 3"},
		{"rst 3", "invalid RST address"},
		{"ld a, 300", "out of 8-bit range"},
		{"dw 70000", "out of 16-bit range"},
		{"ld a, (1+", "invalid expression"},
		{"1abc: nop", "expected a mnemonic"},
		{"include foo", "file name in quotes"},
		{"macro 1x", "invalid macro name"},
		{"endm extra", "ENDM takes no operands"},
		{"ds n", "DEFS size must be a constant"},
		{"ld a, 1/0", "division by zero"},
	}
	for _, tc := range tests {
		_, diags := Parse("test.asm", []string{tc.src})
		found := false
		for _, d := range diags {
			if d.Class == asm.Syntax && strings.Contains(d.Message, tc.want) {
				found = true
			}
		}
		if !found {
			t.Errorf("Parse(%q) diagnostics = %v; want one mentioning %q", tc.src, diags, tc.want)
		}
	}
}

func TestBadOperandKeepsSize(t *testing.T) {
	res := assemble("ld a, (1+\nhere: nop")
	sawSyntax := false
	for _, d := range res.Diagnostics {
		sawSyntax = sawSyntax || d.Class == asm.Syntax
	}
	if !sawSyntax {
		t.Errorf("diagnostics = %v; want a syntax error", res.Diagnostics)
	}
	if v, _ := res.Symbols.Get("here"); v.Num != 2 {
		t.Errorf("here = %v; want 2", v)
	}
}

func TestUnknownMnemonicIsMacroCall(t *testing.T) {
	elems, diags := Parse("test.asm", []string{"frobnicate 1, x"})
	if len(diags) != 0 {
		t.Fatalf("diagnostics = %v", diags)
	}
	call, ok := elems[0].(*asm.MacroCall)
	if !ok || call.Name != "frobnicate" || len(call.Args) != 2 {
		t.Fatalf("elements = %v; want a macro call with two arguments", elems)
	}
	if call.Args[0].Kind != asm.Number || call.Args[1].Kind != asm.Deferred {
		t.Errorf("args = %v", call.Args)
	}

	res := assemble("frobnicate 1")
	found := false
	for _, d := range res.Diagnostics {
		found = found || (d.Class == asm.Structural && strings.Contains(d.Message, "undefined macro"))
	}
	if !found {
		t.Errorf("diagnostics = %v; want undefined macro", res.Diagnostics)
	}
}

func TestLocations(t *testing.T) {
	elems, _ := Parse("prog.asm", []string{"", "start: nop"})
	if len(elems) != 2 {
		t.Fatalf("got %d elements; want 2", len(elems))
	}
	want := asm.Location{File: "prog.asm", Line: 2}
	for _, el := range elems {
		if el.Pos() != want {
			t.Errorf("%v at %v; want %v", el, el.Pos(), want)
		}
	}
}

func TestStripComments(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"ld a,1 ; c", "ld a,1 "},
		{"db ';'", "db ';'"},
		{`db "a;b" ; x`, `db "a;b" `},
		{"ex af,af' ; swap", "ex af,af' "},
		{"; all comment", ""},
		{"nop", "nop"},
	}
	for _, tc := range tests {
		if got := stripComments(tc.input); got != tc.want {
			t.Errorf("stripComments(%q) = %q; want %q", tc.input, got, tc.want)
		}
	}
}

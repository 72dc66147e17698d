package asm

import (
	"testing"
)

func TestPatchBytes(t *testing.T) {
	s := table("three", 0x1234, "msg", StrValue("abc"), "pair", StrValue("AB"), "ch", StrValue("z"))

	tests := []struct {
		name string
		b    *Bytes
		want []byte
	}{
		{"low byte", bytesOf(ByteSlot(0), ExprSlot(mustExpr("three"))), []byte{0, 0x34}},
		{"word", bytesOf(ByteSlot(0), ExprSlot(mustExpr("three")), HighSlot()), []byte{0, 0x34, 0x12}},
		{"string splice", bytesOf(ByteSlot(1), ExprSlot(mustExpr("msg")), ByteSlot(2)), []byte{1, 'a', 'b', 'c', 2}},
		{"one-char string", bytesOf(ExprSlot(mustExpr("ch"))), []byte{'z'}},
		{"two-char word", bytesOf(ExprSlot(mustExpr("pair")), HighSlot()), []byte{'A', 'B'}},
		{"two-char bytes", bytesOf(ExprSlot(mustExpr("pair"))), []byte{'A', 'B'}},
		{"negative", bytesOf(ExprSlot(mustExpr("-1")), HighSlot()), []byte{0xFF, 0xFF}},
		{"dollar", bytesOf(ExprSlot(mustExpr("$ + 2"))), []byte{2}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			wantNoDiags(t, PatchBytes([]Element{tc.b}, s))
			wantData(t, tc.b, tc.want)
			if tc.b.HasDeferred() {
				t.Errorf("slots left deferred: %v", tc.b)
			}
		})
	}
}

func TestPatchRelative(t *testing.T) {
	s := table("near", 0x105, "back", 0x100, "far", 0x200)

	tests := []struct {
		target string
		want   byte
	}{
		{"near", 3},
		{"back", 0xFE},
	}
	for _, tc := range tests {
		b := bytesOf(ByteSlot(0x18), RelativeSlot(mustExpr(tc.target)))
		b.Address = 0x100
		wantNoDiags(t, PatchBytes([]Element{b}, s))
		wantData(t, b, []byte{0x18, tc.want})
	}

	b := bytesOf(ByteSlot(0x18), RelativeSlot(mustExpr("far")))
	b.Address = 0x100
	diags := PatchBytes([]Element{b}, s)
	wantDiag(t, diags, Encoding, "relative jump out of range (254)")
}

func TestPatchReportsUnresolved(t *testing.T) {
	b := bytesOf(ExprSlot(mustExpr("nowhere")), HighSlot())
	diags := PatchBytes([]Element{b}, NewSymbolTable())
	wantDiag(t, diags, Resolution, `undefined symbol "nowhere"`)
	wantData(t, b, []byte{0, 0})
}

func TestPatchUsesEnclosingScope(t *testing.T) {
	s := table("x", 1, "%0_x", 2)
	inside := bytesOf(ExprSlot(mustExpr("x")))
	outside := bytesOf(ExprSlot(mustExpr("x")))
	elems := []Element{
		&Block{Prefix: "%0_"},
		inside,
		&EndBlock{Prefix: "%0_"},
		outside,
	}
	wantNoDiags(t, PatchBytes(elems, s))
	wantData(t, inside, []byte{2})
	wantData(t, outside, []byte{1})
}

func TestPatchSkipsTemplates(t *testing.T) {
	tmpl := bytesOf(ExprSlot(mustExpr("param")))
	diags := PatchBytes([]Element{&MacroDef{Name: "m"}, tmpl, &EndMacro{}}, NewSymbolTable())
	wantNoDiags(t, diags)
	if !tmpl.HasDeferred() {
		t.Error("template bytes were patched")
	}
}

func TestPatchStringSizeErrors(t *testing.T) {
	s := table("msg", StrValue("abc"), "none", StrValue(""))

	tests := []struct {
		name   string
		b      *Bytes
		placed bool
		class  Class
		part   string
	}{
		{"long string in word", bytesOf(ExprSlot(mustExpr("msg")), HighSlot()), false, Resolution, "cannot be used as a number"},
		{"empty string in word", bytesOf(ExprSlot(mustExpr("none")), HighSlot()), false, Resolution, "cannot be used as a number"},
		{"placed long string", bytesOf(ByteSlot(1), ExprSlot(mustExpr("msg"))), true, Encoding, "(3 bytes) is only known after"},
		{"placed empty string", bytesOf(ExprSlot(mustExpr("none")), ByteSlot(2)), true, Encoding, "(0 bytes) is only known after"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.b.Placed = tc.placed
			size := len(tc.b.Slots)
			wantDiag(t, PatchBytes([]Element{tc.b}, s), tc.class, tc.part)
			if len(tc.b.Slots) != size {
				t.Errorf("element resized from %d to %d slots", size, len(tc.b.Slots))
			}
		})
	}
}

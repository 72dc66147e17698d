package asm

import (
	"reflect"
	"strings"
	"testing"
)

// mustExpr builds a Deferred value or panics; expressions in tests are constants.
func mustExpr(text string) Value {
	v, err := ExprValue(text)
	if err != nil {
		panic(err)
	}
	return v
}

func at(line int) Location { return Location{File: "test.asm", Line: line} }

func bytesOf(slots ...Slot) *Bytes { return &Bytes{Slots: slots} }

func raw(bs ...byte) *Bytes {
	slots := make([]Slot, len(bs))
	for i, b := range bs {
		slots[i] = ByteSlot(b)
	}
	return &Bytes{Slots: slots}
}

func wantNoDiags(t *testing.T, diags Diagnostics) {
	t.Helper()
	for _, d := range diags {
		t.Errorf("unexpected diagnostic: %v", d)
	}
}

func wantDiag(t *testing.T, diags Diagnostics, class Class, part string) {
	t.Helper()
	for _, d := range diags {
		if d.Class == class && strings.Contains(d.Message, part) {
			return
		}
	}
	t.Errorf("no %s diagnostic mentioning %q in %v", class, part, diags)
}

func wantNumber(t *testing.T, symbols *SymbolTable, name string, want int) {
	t.Helper()
	v, ok := symbols.Get(name)
	if !ok {
		t.Errorf("symbol %q missing", name)
		return
	}
	if v.Kind != Number || v.Num != want {
		t.Errorf("symbol %q = %v; want %d", name, v, want)
	}
}

func wantData(t *testing.T, b *Bytes, want []byte) {
	t.Helper()
	if got := b.Data(); !reflect.DeepEqual(got, want) {
		t.Errorf("bytes = % X; want % X", got, want)
	}
}

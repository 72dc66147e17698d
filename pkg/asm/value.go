package asm

import (
	"fmt"

	"zasm/pkg/expr"
)

// ValueKind identifies what a symbol or byte slot currently holds.
type ValueKind int

const (
	Unresolved ValueKind = iota
	Number
	Str
	Deferred
)

func (k ValueKind) String() string {
	switch k {
	case Unresolved:
		return "unresolved"
	case Number:
		return "number"
	case Str:
		return "string"
	case Deferred:
		return "deferred"
	}
	return fmt.Sprintf("ValueKind(%d)", int(k))
}

// Value is the content of a symbol or of a deferred byte slot.
//
// A Deferred value keeps its expression text and free variables. Scope, when
// Scoped is set, replaces the scope derived from the owning symbol's name; macro
// arguments use it so they are looked up where the call was written. Here, when
// HasHere is set, is the value of "$" captured by the address pass.
type Value struct {
	Kind ValueKind
	Num  int
	Str  string

	Text string
	Vars []string

	Scope   string
	Scoped  bool
	Here    int
	HasHere bool
}

// NumberValue returns a resolved numeric value.
func NumberValue(n int) Value { return Value{Kind: Number, Num: n} }

// StrValue returns a resolved string value.
func StrValue(s string) Value { return Value{Kind: Str, Str: s} }

// ExprValue parses text and returns a Deferred value holding it.
func ExprValue(text string) (Value, error) {
	n, err := expr.Parse(text)
	if err != nil {
		return Value{}, err
	}
	return Value{Kind: Deferred, Text: text, Vars: expr.FreeVars(n)}, nil
}

// Resolved reports whether v holds a final number or string.
func (v Value) Resolved() bool {
	return v.Kind == Number || v.Kind == Str
}

// uses reports whether the deferred expression references name.
func (v Value) uses(name string) bool {
	for _, n := range v.Vars {
		if n == name {
			return true
		}
	}
	return false
}

// Clone returns a copy of v that shares no slices with it.
func (v Value) Clone() Value {
	if v.Vars != nil {
		v.Vars = append([]string(nil), v.Vars...)
	}
	return v
}

func (v Value) String() string {
	switch v.Kind {
	case Number:
		return fmt.Sprintf("%d", v.Num)
	case Str:
		return fmt.Sprintf("%q", v.Str)
	case Deferred:
		return fmt.Sprintf("{%s}", v.Text)
	}
	return "?"
}

func fromExpr(v expr.Value) Value {
	if v.Kind == expr.KindString {
		return StrValue(v.Str)
	}
	return NumberValue(v.Num)
}

// SlotKind identifies the content of one byte of a Bytes template.
type SlotKind int

const (
	SlotByte     SlotKind = iota // final byte
	SlotExpr                     // deferred value, patched to one byte or spliced to many
	SlotHigh                     // pending high byte of the preceding SlotExpr
	SlotRelative                 // signed 8-bit displacement to Value
)

// Slot is one byte position of a Bytes template.
type Slot struct {
	Kind  SlotKind
	Byte  byte
	Value Value
}

// ByteSlot returns a final byte.
func ByteSlot(b byte) Slot { return Slot{Kind: SlotByte, Byte: b} }

// ExprSlot returns a slot that will be patched from v.
func ExprSlot(v Value) Slot { return Slot{Kind: SlotExpr, Value: v} }

// HighSlot returns a pending high byte placeholder.
func HighSlot() Slot { return Slot{Kind: SlotHigh} }

// RelativeSlot returns a slot holding the displacement to target.
func RelativeSlot(target Value) Slot { return Slot{Kind: SlotRelative, Value: target} }

func (s Slot) String() string {
	switch s.Kind {
	case SlotByte:
		return fmt.Sprintf("%02X", s.Byte)
	case SlotExpr:
		return s.Value.String()
	case SlotHigh:
		return "^^"
	case SlotRelative:
		return "rel" + s.Value.String()
	}
	return "??"
}

package asm

import (
	"fmt"
	"strings"
)

// Location is a source position used in diagnostics.
type Location struct {
	File string
	Line int
}

// Pos returns the location itself; embedding Location gives every element Pos().
func (l Location) Pos() Location { return l }

func (l Location) String() string {
	switch {
	case l.File != "" && l.Line > 0:
		return fmt.Sprintf("%s:%d", l.File, l.Line)
	case l.Line > 0:
		return fmt.Sprintf("line %d", l.Line)
	case l.File != "":
		return l.File
	}
	return "<unknown>"
}

// Element is one line of assembly after instruction-level parsing.
// The set of element types is closed.
type Element interface {
	elementNode()
	Pos() Location
	Clone() Element
	String() string
}

// Label declares Name at the current address (or at the value of a following Equ).
// Symbol is the scope-qualified name, filled in by the collector.
type Label struct {
	Location
	Name   string
	Public bool
	Symbol string
}

// Block opens a lexical scope. Prefix is assigned once by the collector.
type Block struct {
	Location
	Prefix string
}

// EndBlock closes the innermost Block and records its prefix.
type EndBlock struct {
	Location
	Prefix string
}

// MacroDef opens a macro template.
type MacroDef struct {
	Location
	Name   string
	Params []string
}

// EndMacro closes a macro template.
type EndMacro struct {
	Location
}

// MacroCall invokes a macro. After expansion the body follows it in the stream,
// closed by an EndMacroCall; Params snapshots the macro's parameters.
type MacroCall struct {
	Location
	Name     string
	Args     []Value
	Expanded bool
	Params   []string
	Prefix   string

	undefined bool // already reported as an unknown macro
}

// EndMacroCall closes an expanded macro body.
type EndMacroCall struct {
	Location
	Name   string
	Prefix string
}

// Equ binds the labels immediately preceding it to Value.
type Equ struct {
	Location
	Value Value
}

// Org moves both the logical address and the output offset.
type Org struct {
	Location
	Value Value
}

// Phase starts a region whose logical address differs from its output offset.
type Phase struct {
	Location
	Value Value
}

// EndPhase returns the logical address to the output offset.
type EndPhase struct {
	Location
}

// Align rounds the address up to a multiple of Value.
type Align struct {
	Location
	Value Value
}

// Bytes is an instruction or data byte template. Address and Out are stamped by
// the address pass, which also sets Placed; after that the number of slots
// must not change.
type Bytes struct {
	Location
	Slots   []Slot
	Address int
	Out     int
	Placed  bool
}

// Include is an unresolved include directive. The core skips it.
type Include struct {
	Location
	Path string
}

func (*Label) elementNode()        {}
func (*Block) elementNode()        {}
func (*EndBlock) elementNode()     {}
func (*MacroDef) elementNode()     {}
func (*EndMacro) elementNode()     {}
func (*MacroCall) elementNode()    {}
func (*EndMacroCall) elementNode() {}
func (*Equ) elementNode()          {}
func (*Org) elementNode()          {}
func (*Phase) elementNode()        {}
func (*EndPhase) elementNode()     {}
func (*Align) elementNode()        {}
func (*Bytes) elementNode()        {}
func (*Include) elementNode()      {}

func (e *Label) Clone() Element {
	c := *e
	return &c
}

func (e *Block) Clone() Element {
	c := *e
	return &c
}

func (e *EndBlock) Clone() Element {
	c := *e
	return &c
}

func (e *MacroDef) Clone() Element {
	c := *e
	c.Params = append([]string(nil), e.Params...)
	return &c
}

func (e *EndMacro) Clone() Element {
	c := *e
	return &c
}

func (e *MacroCall) Clone() Element {
	c := *e
	c.Args = make([]Value, len(e.Args))
	for i, a := range e.Args {
		c.Args[i] = a.Clone()
	}
	c.Params = append([]string(nil), e.Params...)
	return &c
}

func (e *EndMacroCall) Clone() Element {
	c := *e
	return &c
}

func (e *Equ) Clone() Element {
	c := *e
	c.Value = e.Value.Clone()
	return &c
}

func (e *Org) Clone() Element {
	c := *e
	c.Value = e.Value.Clone()
	return &c
}

func (e *Phase) Clone() Element {
	c := *e
	c.Value = e.Value.Clone()
	return &c
}

func (e *EndPhase) Clone() Element {
	c := *e
	return &c
}

func (e *Align) Clone() Element {
	c := *e
	c.Value = e.Value.Clone()
	return &c
}

func (e *Bytes) Clone() Element {
	c := *e
	c.Slots = make([]Slot, len(e.Slots))
	for i, s := range e.Slots {
		s.Value = s.Value.Clone()
		c.Slots[i] = s
	}
	return &c
}

func (e *Include) Clone() Element {
	c := *e
	return &c
}

func (e *Label) String() string {
	if e.Public {
		return e.Name + "::"
	}
	return e.Name + ":"
}

func (e *Block) String() string    { return ".block " + e.Prefix }
func (e *EndBlock) String() string { return ".endblock " + e.Prefix }

func (e *MacroDef) String() string {
	return fmt.Sprintf("macro %s %s", e.Name, strings.Join(e.Params, ", "))
}

func (*EndMacro) String() string { return "endm" }

func (e *MacroCall) String() string {
	args := make([]string, len(e.Args))
	for i, a := range e.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s %s (%s)", e.Name, strings.Join(args, ", "), e.Prefix)
}

func (e *EndMacroCall) String() string { return fmt.Sprintf("end %s (%s)", e.Name, e.Prefix) }
func (e *Equ) String() string          { return "equ " + e.Value.String() }
func (e *Org) String() string          { return "org " + e.Value.String() }
func (e *Phase) String() string        { return ".phase " + e.Value.String() }
func (*EndPhase) String() string       { return ".dephase" }
func (e *Align) String() string        { return "align " + e.Value.String() }
func (e *Include) String() string      { return fmt.Sprintf("include %q", e.Path) }

func (e *Bytes) String() string {
	parts := make([]string, len(e.Slots))
	for i, s := range e.Slots {
		parts[i] = s.String()
	}
	return fmt.Sprintf("%04X/%04X [%s]", e.Address, e.Out, strings.Join(parts, " "))
}

// HasDeferred reports whether any slot still needs patching.
func (e *Bytes) HasDeferred() bool {
	for _, s := range e.Slots {
		if s.Kind == SlotExpr || s.Kind == SlotRelative {
			return true
		}
	}
	return false
}

// Data returns the template as bytes; unpatched slots read as zero.
func (e *Bytes) Data() []byte {
	out := make([]byte, len(e.Slots))
	for i, s := range e.Slots {
		if s.Kind == SlotByte {
			out[i] = s.Byte
		}
	}
	return out
}

// templateDepth tracks whether a walk is inside an unexpanded macro template.
// It returns true when el itself must be skipped.
type templateDepth int

func (d *templateDepth) skip(el Element) bool {
	switch el.(type) {
	case *MacroDef:
		*d++
		return true
	case *EndMacro:
		if *d > 0 {
			*d--
		}
		return true
	}
	return *d > 0
}

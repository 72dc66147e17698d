package asm

import (
	"github.com/golang/glog"

	"zasm/pkg/expr"
)

// addressLimit is one past the highest address of the 16-bit address space.
const addressLimit = 0x10000

type assigner struct {
	symbols *SymbolTable
	diags   Diagnostics

	address int // logical program counter
	out     int // physical output offset

	labels     []*Label // consecutive labels just before the current element
	scopes     []string
	overflowed bool
}

// AssignAddresses gives every label its address, binds EQU values to the labels
// preceding them, applies ORG/PHASE/ALIGN and stamps each Bytes element with
// its logical address and output offset.
//
// Directive operands must be computable from what is already known: literal
// values, labels already passed and constants defined earlier. Forward
// references there are diagnostics.
func AssignAddresses(elems []Element, symbols *SymbolTable) Diagnostics {
	a := &assigner{symbols: symbols}
	var tmpl templateDepth

	for _, el := range elems {
		if tmpl.skip(el) {
			continue
		}
		if l, ok := el.(*Label); ok {
			a.label(l)
			continue
		}
		a.element(el)
		a.labels = a.labels[:0]
	}

	glog.V(1).Infof("assign: final address 0x%04X, output offset 0x%04X", a.address, a.out)
	return a.diags
}

func (a *assigner) scope() string {
	if len(a.scopes) == 0 {
		return ""
	}
	return a.scopes[len(a.scopes)-1]
}

func (a *assigner) label(l *Label) {
	if l.Symbol == "" {
		l.Symbol = l.Name
	}
	if v, ok := a.symbols.Get(l.Symbol); !ok || v.Kind == Unresolved {
		a.symbols.Set(l.Symbol, NumberValue(a.address))
	}
	a.labels = append(a.labels, l)
	glog.V(2).Infof("assign: %s = 0x%04X", l.Symbol, a.address)
}

func (a *assigner) element(el Element) {
	switch e := el.(type) {
	case *Block:
		a.scopes = append(a.scopes, e.Prefix)
	case *MacroCall:
		if e.Expanded {
			a.scopes = append(a.scopes, e.Prefix)
		}
	case *EndBlock, *EndMacroCall:
		if len(a.scopes) > 0 {
			a.scopes = a.scopes[:len(a.scopes)-1]
		}

	case *Equ:
		a.equ(e)

	case *Org:
		if n, ok := a.directive(e.Value, e.Location, "ORG"); ok {
			a.address, a.out = n, n
			a.checkRange(e.Location)
		}

	case *Phase:
		if n, ok := a.directive(e.Value, e.Location, "PHASE"); ok {
			a.address = n
			a.checkRange(e.Location)
		}

	case *EndPhase:
		a.address = a.out

	case *Align:
		n, ok := a.directive(e.Value, e.Location, "ALIGN")
		if !ok {
			return
		}
		if n <= 0 {
			a.diags.Add(Resolution, e.Location, "ALIGN value must be positive, got %d", n)
			return
		}
		pad := (n - a.address%n) % n
		a.address += pad
		a.out += pad
		a.checkRange(e.Location)

	case *Bytes:
		a.reserveStrings(e)
		e.Address, e.Out, e.Placed = a.address, a.out, true
		a.address += len(e.Slots)
		a.out += len(e.Slots)
		a.checkRange(e.Location)
		glog.V(2).Infof("assign: %s", e)
	}
}

// equ binds the value to every label directly before it. "$" in the value is
// the address at the EQU line, and free names are looked up where it was written.
func (a *assigner) equ(e *Equ) {
	if len(a.labels) == 0 {
		a.diags.Add(Structural, e.Location, "EQU with no label")
		return
	}
	v := e.Value.Clone()
	if v.Kind == Deferred {
		if !v.Scoped {
			v.Scope, v.Scoped = a.scope(), true
		}
		if v.uses("$") {
			v.Here, v.HasHere = a.address, true
		}
	}
	for _, l := range a.labels {
		a.symbols.Set(l.Symbol, v)
	}
}

// reserveStrings splices byte operands that already evaluate to a string of
// other than one byte, so the element has its final size before it is placed.
// Operands that cannot be evaluated yet are left to PatchBytes.
func (a *assigner) reserveStrings(b *Bytes) {
	if !b.HasDeferred() {
		return
	}
	ev := newEvaluator(a.symbols)
	here := func() (int, bool) { return a.address, true }
	for i := 0; i < len(b.Slots); i++ {
		s := b.Slots[i]
		if s.Kind != SlotExpr || (i+1 < len(b.Slots) && b.Slots[i+1].Kind == SlotHigh) {
			continue
		}
		scope := a.scope()
		if s.Value.Scoped {
			scope = s.Value.Scope
		}
		res, err := ev.eval(s.Value, scope, nil, here)
		if err != nil || res.Kind != expr.KindString || len(res.Str) == 1 {
			continue
		}
		b.Slots = append(b.Slots[:i], append(stringSlots(res.Str), b.Slots[i+1:]...)...)
		i += len(res.Str) - 1
	}
}

// directive evaluates a directive operand eagerly.
func (a *assigner) directive(v Value, loc Location, what string) (int, bool) {
	ev := newEvaluator(a.symbols)
	here := func() (int, bool) { return a.address, true }
	res, err := ev.eval(v, a.scope(), nil, here)
	if err == nil {
		var n int
		if n, err = res.AsNumber(); err == nil {
			return n, true
		}
	}
	a.diags.Add(Resolution, loc, "unresolvable %s: %v", what, err)
	return 0, false
}

func (a *assigner) checkRange(loc Location) {
	if a.overflowed {
		return
	}
	if a.address < 0 || a.address > addressLimit {
		a.overflowed = true
		a.diags.Add(Resolution, loc, "address 0x%X outside the 16-bit address space", a.address)
	}
}

package asm

import (
	"github.com/golang/glog"

	"zasm/pkg/expr"
)

type patcher struct {
	ev      *evaluator
	diags   Diagnostics
	scopes  []string
	patched int
}

// PatchBytes replaces the deferred slots of every Bytes element with concrete
// bytes. Expressions are evaluated in the scope of the innermost enclosing
// block or macro call; "$" is the element's logical address.
//
// A number is written little-endian: the low byte into its slot and the high
// byte into the next slot if that is a pending high byte. A string of more than
// one byte replaces its slot with one byte per character, unless the address
// pass has already placed the element: its size is fixed then and the string
// is reported instead. A word slot cannot take a string longer than two bytes.
// A relative slot
// becomes target - (address + length) and must fit a signed byte.
func PatchBytes(elems []Element, symbols *SymbolTable) Diagnostics {
	p := &patcher{ev: newEvaluator(symbols)}
	var tmpl templateDepth

	for _, el := range elems {
		if tmpl.skip(el) {
			continue
		}
		switch e := el.(type) {
		case *Block:
			p.scopes = append(p.scopes, e.Prefix)
		case *MacroCall:
			if e.Expanded {
				p.scopes = append(p.scopes, e.Prefix)
			}
		case *EndBlock, *EndMacroCall:
			if len(p.scopes) > 0 {
				p.scopes = p.scopes[:len(p.scopes)-1]
			}
		case *Bytes:
			if e.HasDeferred() {
				p.patch(e)
			}
		}
	}

	glog.V(1).Infof("patch: %d slots patched", p.patched)
	return p.diags
}

func (p *patcher) scope() string {
	if len(p.scopes) == 0 {
		return ""
	}
	return p.scopes[len(p.scopes)-1]
}

func (p *patcher) eval(b *Bytes, v Value) (expr.Value, error) {
	here := func() (int, bool) { return b.Address, true }
	scope := p.scope()
	if v.Scoped {
		scope = v.Scope
	}
	return p.ev.eval(v, scope, nil, here)
}

func (p *patcher) patch(b *Bytes) {
	i := 0
	for i < len(b.Slots) {
		s := b.Slots[i]
		switch s.Kind {
		case SlotExpr:
			i = p.patchValue(b, i)
		case SlotRelative:
			p.patchRelative(b, i)
			i++
		default:
			i++
		}
	}
}

// patchValue patches the SlotExpr at i and returns the index of the next slot
// to look at.
func (p *patcher) patchValue(b *Bytes, i int) int {
	text := b.Slots[i].Value.Text
	res, err := p.eval(b, b.Slots[i].Value)
	if err != nil {
		p.diags.Add(Resolution, b.Location, "cannot evaluate %s: %v", text, err)
		return i + 1
	}

	highPending := i+1 < len(b.Slots) && b.Slots[i+1].Kind == SlotHigh
	if highPending && res.Kind == expr.KindString && (len(res.Str) == 0 || len(res.Str) > 2) {
		_, err := res.AsNumber()
		p.diags.Add(Resolution, b.Location, "cannot evaluate %s: %v", text, err)
		return i + 2
	}
	numeric := res.Kind == expr.KindNumber || len(res.Str) == 1 || (len(res.Str) == 2 && highPending)

	if !numeric {
		if b.Placed {
			p.diags.Add(Encoding, b.Location, "string %s (%d bytes) is only known after its line was placed; define it earlier", text, len(res.Str))
			return i + 1
		}
		repl := stringSlots(res.Str)
		b.Slots = append(b.Slots[:i], append(repl, b.Slots[i+1:]...)...)
		p.patched += len(repl)
		return i + len(repl)
	}

	n, _ := res.AsNumber()
	b.Slots[i] = ByteSlot(byte(n))
	p.patched++
	if highPending {
		b.Slots[i+1] = ByteSlot(byte(n >> 8))
		p.patched++
		return i + 2
	}
	return i + 1
}

// stringSlots returns one byte slot per character of s.
func stringSlots(s string) []Slot {
	slots := make([]Slot, len(s))
	for i := 0; i < len(s); i++ {
		slots[i] = ByteSlot(s[i])
	}
	return slots
}

func (p *patcher) patchRelative(b *Bytes, i int) {
	res, err := p.eval(b, b.Slots[i].Value)
	var target int
	if err == nil {
		target, err = res.AsNumber()
	}
	if err != nil {
		p.diags.Add(Resolution, b.Location, "cannot evaluate %s: %v", b.Slots[i].Value.Text, err)
		return
	}

	disp := target - (b.Address + len(b.Slots))
	if disp < -128 || disp > 127 {
		p.diags.Add(Encoding, b.Location, "relative jump out of range (%d)", disp)
		return
	}
	b.Slots[i] = ByteSlot(byte(int8(disp)))
	p.patched++
}

package asm

import "github.com/golang/glog"

type scopeFrame struct {
	index  int
	prefix string
	call   bool // opened by a macro call rather than a block
	loc    Location
}

// collector assigns scope prefixes and registers declared names. next is the
// block-instance counter; it lives here so independent compilations never
// share indices.
type collector struct {
	symbols *SymbolTable
	diags   Diagnostics
	next    int
	stack   []scopeFrame
}

// CollectSymbols walks the expanded stream, gives every block and expanded
// macro call a unique scope prefix, and registers every label (qualified by
// scope) and every macro parameter binding in a new symbol table.
func CollectSymbols(elems []Element) (*SymbolTable, Diagnostics) {
	c := &collector{symbols: NewSymbolTable()}
	var tmpl templateDepth

	for _, el := range elems {
		if tmpl.skip(el) {
			continue
		}
		switch e := el.(type) {
		case *Block:
			e.Prefix = c.push(false, e.Location)

		case *MacroCall:
			if e.Expanded {
				c.enterCall(e)
			}

		case *EndBlock:
			e.Prefix = c.pop(false, e.Location)

		case *EndMacroCall:
			e.Prefix = c.pop(true, e.Location)

		case *Label:
			c.declareLabel(e)
		}
	}

	for i := len(c.stack) - 1; i >= 0; i-- {
		f := c.stack[i]
		if f.call {
			c.diags.Add(Structural, f.loc, "macro call scope is never closed")
		} else {
			c.diags.Add(Structural, f.loc, "block is never closed")
		}
	}

	glog.V(1).Infof("collect: %d symbols, %d scopes", c.symbols.Len(), c.next)
	return c.symbols, c.diags
}

func (c *collector) prefix() string {
	if len(c.stack) == 0 {
		return ""
	}
	return c.stack[len(c.stack)-1].prefix
}

// push issues a fresh index, enters its scope and returns the new prefix.
func (c *collector) push(call bool, loc Location) string {
	indices := make([]int, 0, len(c.stack)+1)
	for _, f := range c.stack {
		indices = append(indices, f.index)
	}
	indices = append(indices, c.next)

	f := scopeFrame{index: c.next, prefix: ScopePrefix(indices), call: call, loc: loc}
	c.next++
	c.stack = append(c.stack, f)
	return f.prefix
}

// pop leaves the innermost scope and returns its prefix.
func (c *collector) pop(call bool, loc Location) string {
	if len(c.stack) == 0 {
		if call {
			c.diags.Add(Structural, loc, "end of macro call without a matching call")
		} else {
			c.diags.Add(Structural, loc, "endblock without block")
		}
		return ""
	}
	f := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	if f.call != call {
		c.diags.Add(Structural, loc, "scope opened at %s closed by the wrong delimiter", f.loc)
	}
	return f.prefix
}

// enterCall opens the scope of an expanded call and binds each parameter to
// its argument. Arguments are evaluated in the caller's scope.
func (c *collector) enterCall(call *MacroCall) {
	caller := c.prefix()
	call.Prefix = c.push(true, call.Location)

	for i, param := range call.Params {
		v := Value{Kind: Unresolved}
		if i < len(call.Args) {
			v = call.Args[i].Clone()
			if v.Kind == Deferred && !v.Scoped {
				v.Scope, v.Scoped = caller, true
			}
		}
		if !c.symbols.Declare(call.Prefix+param, v, call.Location) {
			c.diags.Add(Structural, call.Location, "duplicate parameter %q in macro %q", param, call.Name)
		}
	}
	if len(call.Args) > len(call.Params) {
		c.diags.Add(Structural, call.Location, "macro %q takes %d arguments, got %d", call.Name, len(call.Params), len(call.Args))
	}
}

func (c *collector) declareLabel(l *Label) {
	name := l.Name
	if !l.Public {
		name = c.prefix() + l.Name
	}
	l.Symbol = name
	if !c.symbols.Declare(name, Value{Kind: Unresolved}, l.Location) {
		c.diags.Add(Structural, l.Location, "duplicate symbol %q (first declared at %s)", l.Name, c.symbols.Loc(name))
	}
}

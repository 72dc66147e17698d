// Package asm is the resolution core of the assembler: it turns a stream of
// instruction-level elements into a symbol table and a flat byte image.
//
// The passes run strictly in order, each mutating the shared element stream and
// symbol table in place:
//
//	ExtractMacros    macro templates -> MacroTable
//	ExpandMacros     calls -> private copies of the body (repeated for nested calls)
//	CollectSymbols   scope prefixes, label and parameter declarations
//	AssignAddresses  label addresses, EQU, ORG/PHASE/ALIGN, element placement
//	EvaluateSymbols  deferred symbol expressions, with cycle detection
//	PatchBytes       deferred byte slots and relative displacements
//	AssembleBytes    the output image
//
// No pass stops on a recoverable error; problems are collected as Diagnostics
// and the remaining input is still processed.
package asm

import "github.com/golang/glog"

// DefaultMaxExpansionPasses bounds nested macro expansion.
const DefaultMaxExpansionPasses = 64

// Options configures a compilation.
type Options struct {
	// MaxExpansionPasses is the number of expansion passes run for nested
	// macro calls. Zero means DefaultMaxExpansionPasses.
	MaxExpansionPasses int
}

// Result is everything a compilation produces. A non-empty Diagnostics list
// means the assembly failed even though Bytes holds a best-effort image.
type Result struct {
	Bytes       []byte
	Origin      int
	Symbols     *SymbolTable
	Macros      MacroTable
	Elements    []Element
	Diagnostics Diagnostics
}

// Failed reports whether any diagnostic was recorded.
func (r *Result) Failed() bool { return len(r.Diagnostics) > 0 }

// Assemble runs the whole pipeline over elems.
func Assemble(elems []Element, opts Options) *Result {
	if opts.MaxExpansionPasses <= 0 {
		opts.MaxExpansionPasses = DefaultMaxExpansionPasses
	}
	res := &Result{}

	macros, diags := ExtractMacros(elems)
	res.Diagnostics.Append(diags)
	res.Macros = macros
	glog.V(1).Infof("extract: %d macros", len(macros))

	elems = expandAll(elems, macros, opts.MaxExpansionPasses, &res.Diagnostics)
	res.Elements = elems

	symbols, diags := CollectSymbols(elems)
	res.Diagnostics.Append(diags)
	res.Symbols = symbols

	res.Diagnostics.Append(AssignAddresses(elems, symbols))
	res.Diagnostics.Append(EvaluateSymbols(symbols))
	res.Diagnostics.Append(PatchBytes(elems, symbols))

	image, diags := AssembleBytes(elems)
	res.Diagnostics.Append(diags)
	res.Bytes = image
	res.Origin = imageOrigin(elems)

	glog.V(1).Infof("assemble: %d bytes at 0x%04X, %d diagnostics", len(res.Bytes), res.Origin, len(res.Diagnostics))
	return res
}

// expandAll repeats expansion passes until no call is left or maxPasses runs
// out; calls still pending then are reported as too deeply nested.
func expandAll(elems []Element, macros MacroTable, maxPasses int, diags *Diagnostics) []Element {
	for pass := 1; pass <= maxPasses; pass++ {
		var n int
		var d Diagnostics
		elems, n, d = ExpandMacros(elems, macros)
		diags.Append(d)
		glog.V(1).Infof("expand: pass %d, %d calls", pass, n)
		if n == 0 {
			return elems
		}
	}
	for _, call := range pendingCalls(elems, macros) {
		diags.Add(Structural, call.Location, "macro %q nested more than %d levels deep", call.Name, maxPasses)
		call.undefined = true
	}
	return elems
}

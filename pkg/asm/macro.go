package asm

import "github.com/golang/glog"

// Macro is a macro definition lifted out of the element stream.
type Macro struct {
	Name   string
	Params []string
	Body   []Element
	Loc    Location
}

// MacroTable maps macro names to their definitions.
type MacroTable map[string]*Macro

// ExtractMacros collects every macro definition of elems into a table. The
// templates stay in the stream; later passes skip them.
//
// A definition nested inside another is reported and the outer definition is
// dropped; extraction resumes after the EndMacro closing the outer one. For a
// duplicate name the first definition is kept.
func ExtractMacros(elems []Element) (MacroTable, Diagnostics) {
	var diags Diagnostics
	macros := make(MacroTable)

	var open *MacroDef
	var body []Element
	depth := 0
	nested := false

	for _, el := range elems {
		switch e := el.(type) {
		case *MacroDef:
			if depth == 0 {
				open, body, nested, depth = e, nil, false, 1
				continue
			}
			diags.Add(Structural, e.Location, "macro nesting not allowed: %q defined inside %q (%s)", e.Name, open.Name, open.Location)
			nested = true
			depth++
			continue

		case *EndMacro:
			if depth == 0 {
				diags.Add(Structural, e.Location, "endm without macro")
				continue
			}
			depth--
			if depth > 0 {
				continue
			}
			if !nested {
				if first, dup := macros[open.Name]; dup {
					diags.Add(Structural, open.Location, "duplicate macro %q (first defined at %s)", open.Name, first.Loc)
				} else {
					macros[open.Name] = &Macro{
						Name:   open.Name,
						Params: append([]string(nil), open.Params...),
						Body:   cloneElements(body),
						Loc:    open.Location,
					}
					glog.V(2).Infof("macro %s(%v): %d elements", open.Name, open.Params, len(body))
				}
			}
			open, body = nil, nil
			continue
		}

		if depth > 0 {
			body = append(body, el)
		}
	}

	if depth > 0 {
		diags.Add(Structural, open.Location, "macro %q is never closed", open.Name)
	}
	return macros, diags
}

// ExpandMacros makes one expansion pass: every unexpanded call outside a
// template is followed by a private copy of the macro body and an EndMacroCall.
// Calls inside the copies are left for the next pass. It returns the new
// stream and the number of calls expanded.
func ExpandMacros(elems []Element, macros MacroTable) ([]Element, int, Diagnostics) {
	var diags Diagnostics
	out := make([]Element, 0, len(elems))
	expanded := 0
	var tmpl templateDepth

	for _, el := range elems {
		out = append(out, el)
		if tmpl.skip(el) {
			continue
		}
		call, ok := el.(*MacroCall)
		if !ok || call.Expanded || call.undefined {
			continue
		}

		m, ok := macros[call.Name]
		if !ok {
			diags.Add(Structural, call.Location, "undefined macro %q", call.Name)
			call.undefined = true
			continue
		}

		call.Expanded = true
		call.Params = append([]string(nil), m.Params...)
		out = append(out, cloneElements(m.Body)...)
		out = append(out, &EndMacroCall{Location: call.Location, Name: call.Name})
		expanded++
	}
	return out, expanded, diags
}

// pendingCalls returns the calls a further expansion pass would expand.
func pendingCalls(elems []Element, macros MacroTable) []*MacroCall {
	var calls []*MacroCall
	var tmpl templateDepth
	for _, el := range elems {
		if tmpl.skip(el) {
			continue
		}
		if call, ok := el.(*MacroCall); ok && !call.Expanded && !call.undefined {
			if _, known := macros[call.Name]; known {
				calls = append(calls, call)
			}
		}
	}
	return calls
}

func cloneElements(elems []Element) []Element {
	out := make([]Element, len(elems))
	for i, el := range elems {
		out[i] = el.Clone()
	}
	return out
}

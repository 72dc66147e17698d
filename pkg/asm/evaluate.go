package asm

import (
	"fmt"
	"strings"

	"github.com/golang/glog"

	"zasm/pkg/expr"
)

// evaluator resolves deferred symbols on demand. Results are written back to
// the table; failures are remembered so a symbol is reported once.
type evaluator struct {
	symbols *SymbolTable
	failed  map[string]bool
}

func newEvaluator(symbols *SymbolTable) *evaluator {
	return &evaluator{symbols: symbols, failed: make(map[string]bool)}
}

// EvaluateSymbols resolves every symbol that still holds an expression.
// Dependencies are resolved recursively; a dependency on a symbol already being
// evaluated by the same top-level call is a circular dependency. Failed symbols
// keep their expression and are reported once.
func EvaluateSymbols(symbols *SymbolTable) Diagnostics {
	var diags Diagnostics
	ev := newEvaluator(symbols)

	resolved := 0
	for _, name := range symbols.Names() {
		v, _ := symbols.Get(name)
		if v.Kind != Deferred || ev.failed[name] {
			continue
		}
		if _, err := ev.resolve(name, nil); err != nil {
			diags.Add(Resolution, symbols.Loc(name), "cannot evaluate %s: %v", displayName(name), err)
			continue
		}
		resolved++
	}

	glog.V(1).Infof("evaluate: %d symbols resolved, %d failed", resolved, len(ev.failed))
	return diags
}

// resolve returns the final value of the qualified name. path holds the
// symbols currently being evaluated by this top-level call.
func (ev *evaluator) resolve(name string, path []string) (expr.Value, error) {
	v, ok := ev.symbols.Get(name)
	if !ok {
		return expr.Value{}, fmt.Errorf("undefined symbol %q", displayName(name))
	}

	switch v.Kind {
	case Number:
		return expr.Number(v.Num), nil
	case Str:
		return expr.String(v.Str), nil
	case Unresolved:
		return expr.Value{}, fmt.Errorf("symbol %q has no value", displayName(name))
	}

	for i, p := range path {
		if p == name {
			cycle := append(append([]string(nil), path[i:]...), name)
			for j := range cycle {
				cycle[j] = displayName(cycle[j])
			}
			return expr.Value{}, fmt.Errorf("circular dependency: %s", strings.Join(cycle, " -> "))
		}
	}
	if ev.failed[name] {
		return expr.Value{}, fmt.Errorf("symbol %q is unresolved", displayName(name))
	}

	scope := ScopeOf(name)
	if v.Scoped {
		scope = v.Scope
	}
	res, err := ev.evalDeferred(v, scope, append(path, name))
	if err != nil {
		ev.failed[name] = true
		return expr.Value{}, err
	}

	ev.symbols.Set(name, fromExpr(res))
	glog.V(2).Infof("evaluate: %s = %s", name, res)
	return res, nil
}

// evalDeferred evaluates the expression of v with free variables looked up from
// scope. "$" is only available when the address pass captured it.
func (ev *evaluator) evalDeferred(v Value, scope string, path []string) (expr.Value, error) {
	return ev.eval(v, scope, path, func() (int, bool) { return v.Here, v.HasHere })
}

// eval evaluates a deferred value; here supplies "$".
func (ev *evaluator) eval(v Value, scope string, path []string, here func() (int, bool)) (expr.Value, error) {
	switch v.Kind {
	case Number:
		return expr.Number(v.Num), nil
	case Str:
		return expr.String(v.Str), nil
	case Unresolved:
		return expr.Value{}, fmt.Errorf("value is unresolved")
	}

	n, err := expr.Parse(v.Text)
	if err != nil {
		return expr.Value{}, err
	}
	return expr.Eval(n, func(id string) (expr.Value, error) {
		if id == "$" {
			if addr, ok := here(); ok {
				return expr.Number(addr), nil
			}
			return expr.Value{}, fmt.Errorf("current address $ is not available here")
		}
		q, ok := ev.symbols.FindVariable(scope, id)
		if !ok {
			return expr.Value{}, fmt.Errorf("undefined symbol %q", id)
		}
		return ev.resolve(q, path)
	})
}

// displayName renders a qualified name for messages: "%1_%0_x" -> "x (%1_%0_)".
func displayName(qualified string) string {
	scope := ScopeOf(qualified)
	if scope == "" {
		return qualified
	}
	return fmt.Sprintf("%s (%s)", Bare(qualified), scope)
}

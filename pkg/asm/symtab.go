package asm

import (
	"fmt"
	"sort"
	"strings"
)

type symbol struct {
	value Value
	loc   Location
}

// SymbolTable maps scope-qualified names to values.
//
// A qualified name is a scope prefix followed by the bare name, e.g. "%1_%0_loop";
// names declared at top level (and public labels) have no prefix. Names keep
// their declaration order so passes and dumps are deterministic.
type SymbolTable struct {
	symbols map[string]*symbol
	order   []string
}

func NewSymbolTable() *SymbolTable {
	return &SymbolTable{symbols: make(map[string]*symbol)}
}

// Declare registers name with v. It returns false, leaving the first
// registration untouched, if name already exists.
func (s *SymbolTable) Declare(name string, v Value, loc Location) bool {
	if _, ok := s.symbols[name]; ok {
		return false
	}
	s.symbols[name] = &symbol{value: v, loc: loc}
	s.order = append(s.order, name)
	return true
}

// Set stores v under name, declaring it if needed.
func (s *SymbolTable) Set(name string, v Value) {
	if sym, ok := s.symbols[name]; ok {
		sym.value = v
		return
	}
	s.Declare(name, v, Location{})
}

// Get returns the value of name.
func (s *SymbolTable) Get(name string) (Value, bool) {
	sym, ok := s.symbols[name]
	if !ok {
		return Value{}, false
	}
	return sym.value, true
}

// Loc returns where name was declared.
func (s *SymbolTable) Loc(name string) Location {
	if sym, ok := s.symbols[name]; ok {
		return sym.loc
	}
	return Location{}
}

// Names returns every qualified name in declaration order.
func (s *SymbolTable) Names() []string {
	return append([]string(nil), s.order...)
}

func (s *SymbolTable) Len() int { return len(s.order) }

// FindVariable resolves name as seen from scope prefix: it tries prefix+name,
// then strips the innermost "%N_" segment until the bare name is tried at
// global scope. It returns the qualified name of the first hit.
func (s *SymbolTable) FindVariable(prefix, name string) (string, bool) {
	for {
		if _, ok := s.symbols[prefix+name]; ok {
			return prefix + name, true
		}
		if prefix == "" {
			return "", false
		}
		prefix = outerScope(prefix)
	}
}

// ScopePrefix renders a scope stack (outermost first) as a prefix, innermost
// index written first: [0 1] -> "%1_%0_".
func ScopePrefix(stack []int) string {
	var sb strings.Builder
	for i := len(stack) - 1; i >= 0; i-- {
		fmt.Fprintf(&sb, "%%%d_", stack[i])
	}
	return sb.String()
}

// ScopeOf returns the leading run of "%N_" segments of a qualified name.
func ScopeOf(qualified string) string {
	end := 0
	for end < len(qualified) {
		n := segmentLen(qualified[end:])
		if n == 0 {
			break
		}
		end += n
	}
	return qualified[:end]
}

// Bare strips the scope prefix from a qualified name.
func Bare(qualified string) string {
	return qualified[len(ScopeOf(qualified)):]
}

// outerScope drops the innermost (first) segment of prefix.
func outerScope(prefix string) string {
	n := segmentLen(prefix)
	if n == 0 {
		return ""
	}
	return prefix[n:]
}

// segmentLen returns the length of a "%N_" segment at the start of s, or 0.
func segmentLen(s string) int {
	if len(s) < 3 || s[0] != '%' {
		return 0
	}
	i := 1
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 1 || i >= len(s) || s[i] != '_' {
		return 0
	}
	return i + 1
}

// String returns a deterministically ordered dump of the table.
func (s *SymbolTable) String() string {
	if len(s.order) == 0 {
		return "Symbols: (empty)\n"
	}
	names := s.Names()
	sort.Strings(names)
	var sb strings.Builder
	sb.WriteString("Symbols:\n")
	for _, name := range names {
		v := s.symbols[name].value
		switch v.Kind {
		case Number:
			fmt.Fprintf(&sb, "  %-24s  0x%04X (%d)\n", name, v.Num&0xFFFF, v.Num)
		default:
			fmt.Fprintf(&sb, "  %-24s  %s\n", name, v)
		}
	}
	return sb.String()
}

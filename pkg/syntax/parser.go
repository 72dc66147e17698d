// Package syntax is the line-oriented front end: it turns Z80 assembly source
// into the element stream consumed by package asm.
package syntax

import (
	"strings"

	"zasm/pkg/asm"
	"zasm/pkg/expr"
)

type parser struct {
	loc   asm.Location
	elems []asm.Element
	diags asm.Diagnostics
}

type parsedLine struct {
	labels   []*asm.Label
	mnemonic string
	operands string
}

// Parse turns the lines of one file into elements. Include directives become
// asm.Include elements and are not followed; see ParseFile.
//
// Problems are reported as Syntax diagnostics and the offending line is
// dropped, except for instructions with a bad operand, which keep their size.
func Parse(file string, lines []string) ([]asm.Element, asm.Diagnostics) {
	p := &parser{}
	for i, raw := range lines {
		p.loc = asm.Location{File: file, Line: i + 1}
		p.line(raw)
	}
	return p.elems, p.diags
}

func (p *parser) errorf(format string, args ...any) {
	p.diags.Add(asm.Syntax, p.loc, format, args...)
}

func (p *parser) emit(el asm.Element) {
	p.elems = append(p.elems, el)
}

func (p *parser) line(raw string) {
	pl, ok := p.parseLine(raw)
	for _, l := range pl.labels {
		p.emit(l)
	}
	if !ok || pl.mnemonic == "" {
		return
	}
	p.statement(pl.mnemonic, pl.operands)
}

// parseLine splits a line into its labels, mnemonic and raw operand text.
// A label is an identifier followed by ":" (or "::" for a public label), or
// an identifier followed by EQU.
func (p *parser) parseLine(raw string) (parsedLine, bool) {
	var pl parsedLine
	line := strings.TrimSpace(stripComments(raw))

	for line != "" {
		n := identLen(line)
		if n == 0 {
			break
		}
		name, rest := line[:n], line[n:]
		switch {
		case strings.HasPrefix(rest, "::"):
			pl.labels = append(pl.labels, &asm.Label{Location: p.loc, Name: name, Public: true})
			line = strings.TrimSpace(rest[2:])
			continue
		case strings.HasPrefix(rest, ":"):
			pl.labels = append(pl.labels, &asm.Label{Location: p.loc, Name: name})
			line = strings.TrimSpace(rest[1:])
			continue
		}
		if next, _ := splitMnemonic(strings.TrimSpace(rest)); strings.EqualFold(next, "equ") {
			pl.labels = append(pl.labels, &asm.Label{Location: p.loc, Name: name})
			line = strings.TrimSpace(rest)
		}
		break
	}

	if line == "" {
		return pl, true
	}
	if identLen(line) == 0 {
		p.errorf("expected a mnemonic or directive, found %q", line)
		return pl, false
	}
	pl.mnemonic, pl.operands = splitMnemonic(line)
	return pl, true
}

func (p *parser) statement(mnemonic, operands string) {
	ops := splitOperands(operands)

	switch key := strings.ToLower(mnemonic); strings.TrimPrefix(key, ".") {
	case "equ":
		if v, ok := p.single("EQU", ops); ok {
			p.emit(&asm.Equ{Location: p.loc, Value: v})
		}
	case "org":
		if v, ok := p.single("ORG", ops); ok {
			p.emit(&asm.Org{Location: p.loc, Value: v})
		}
	case "phase":
		if v, ok := p.single("PHASE", ops); ok {
			p.emit(&asm.Phase{Location: p.loc, Value: v})
		}
	case "dephase":
		if p.none("DEPHASE", ops) {
			p.emit(&asm.EndPhase{Location: p.loc})
		}
	case "align":
		if v, ok := p.single("ALIGN", ops); ok {
			p.emit(&asm.Align{Location: p.loc, Value: v})
		}
	case "block":
		if p.none("BLOCK", ops) {
			p.emit(&asm.Block{Location: p.loc})
		}
	case "endblock":
		if p.none("ENDBLOCK", ops) {
			p.emit(&asm.EndBlock{Location: p.loc})
		}
	case "macro":
		p.macroDef(operands)
	case "endm":
		if p.none("ENDM", ops) {
			p.emit(&asm.EndMacro{Location: p.loc})
		}
	case "include":
		p.include(ops)
	case "defb", "db", "defm", "dm":
		p.defb(ops)
	case "defw", "dw":
		p.defw(ops)
	case "defs", "ds":
		p.defs(ops)
	default:
		if mnemonics[key] {
			p.instruction(key, ops)
			return
		}
		args := make([]asm.Value, len(ops))
		for i, op := range ops {
			args[i] = p.value(op)
		}
		p.emit(&asm.MacroCall{Location: p.loc, Name: mnemonic, Args: args})
	}
}

func (p *parser) single(what string, ops []string) (asm.Value, bool) {
	if len(ops) != 1 {
		p.errorf("%s expects exactly one operand", what)
		return asm.Value{}, false
	}
	return p.parseValue(ops[0])
}

func (p *parser) none(what string, ops []string) bool {
	if len(ops) != 0 {
		p.errorf("%s takes no operands", what)
		return false
	}
	return true
}

// macroDef handles "macro name p1, p2".
func (p *parser) macroDef(operands string) {
	name, rest := splitMnemonic(operands)
	if name == "" || identLen(name) != len(name) {
		p.errorf("invalid macro name %q", name)
		return
	}
	params := splitOperands(rest)
	for _, param := range params {
		if identLen(param) != len(param) {
			p.errorf("invalid parameter %q in macro %s", param, name)
			return
		}
	}
	p.emit(&asm.MacroDef{Location: p.loc, Name: name, Params: params})
}

func (p *parser) include(ops []string) {
	if len(ops) != 1 {
		p.errorf("INCLUDE expects exactly one operand")
		return
	}
	v, ok := p.parseValue(ops[0])
	if !ok {
		return
	}
	if v.Kind != asm.Str || v.Str == "" {
		p.errorf("INCLUDE expects a file name in quotes")
		return
	}
	p.emit(&asm.Include{Location: p.loc, Path: v.Str})
}

// parseValue folds text to a number or string when it has no free names and
// leaves it Deferred otherwise.
func (p *parser) parseValue(text string) (asm.Value, bool) {
	n, err := expr.Parse(text)
	if err != nil {
		p.errorf("invalid expression %q: %v", text, err)
		return asm.Value{}, false
	}
	if vars := expr.FreeVars(n); len(vars) > 0 {
		return asm.Value{Kind: asm.Deferred, Text: text, Vars: vars}, true
	}
	v, err := expr.Eval(n, nil)
	if err != nil {
		p.errorf("cannot evaluate %q: %v", text, err)
		return asm.Value{}, false
	}
	if v.Kind == expr.KindString {
		return asm.StrValue(v.Str), true
	}
	return asm.NumberValue(v.Num), true
}

// value is parseValue for operands that must keep their size: failures read
// as zero.
func (p *parser) value(text string) asm.Value {
	if v, ok := p.parseValue(text); ok {
		return v
	}
	return asm.NumberValue(0)
}

// constant evaluates an operand that must be known while parsing.
func (p *parser) constant(text, what string) (int, bool) {
	v, ok := p.parseValue(text)
	if !ok {
		return 0, false
	}
	if v.Kind == asm.Deferred {
		p.errorf("%s must be a constant, got %q", what, text)
		return 0, false
	}
	if v.Kind == asm.Number {
		return v.Num, true
	}
	num, err := expr.String(v.Str).AsNumber()
	if err != nil {
		p.errorf("%s: %v", what, err)
		return 0, false
	}
	return num, true
}

// byteSlot encodes v as one byte.
func (p *parser) byteSlot(v asm.Value) asm.Slot {
	switch v.Kind {
	case asm.Deferred:
		return asm.ExprSlot(v)
	case asm.Str:
		if len(v.Str) != 1 {
			p.errorf("string %q does not fit in a byte", v.Str)
			return asm.ByteSlot(0)
		}
		return asm.ByteSlot(v.Str[0])
	}
	if v.Num < -128 || v.Num > 255 {
		p.errorf("value %d out of 8-bit range", v.Num)
	}
	return asm.ByteSlot(byte(v.Num))
}

// wordSlots encodes v as two bytes, low byte first.
func (p *parser) wordSlots(v asm.Value) []asm.Slot {
	n := v.Num
	switch v.Kind {
	case asm.Deferred:
		return []asm.Slot{asm.ExprSlot(v), asm.HighSlot()}
	case asm.Str:
		var err error
		if n, err = expr.String(v.Str).AsNumber(); err != nil {
			p.errorf("%v", err)
			n = 0
		}
	default:
		if n < -32768 || n > 0xFFFF {
			p.errorf("value %d out of 16-bit range", n)
		}
	}
	return []asm.Slot{asm.ByteSlot(byte(n)), asm.ByteSlot(byte(n >> 8))}
}

func (p *parser) emitBytes(slots []asm.Slot) {
	if len(slots) > 0 {
		p.emit(&asm.Bytes{Location: p.loc, Slots: slots})
	}
}

// defb emits each operand as a byte; a string emits one byte per character.
func (p *parser) defb(ops []string) {
	if len(ops) == 0 {
		p.errorf("DEFB expects at least one operand")
		return
	}
	var slots []asm.Slot
	for _, op := range ops {
		v := p.value(op)
		if v.Kind == asm.Str && len(v.Str) != 1 {
			for i := 0; i < len(v.Str); i++ {
				slots = append(slots, asm.ByteSlot(v.Str[i]))
			}
			continue
		}
		slots = append(slots, p.byteSlot(v))
	}
	p.emitBytes(slots)
}

func (p *parser) defw(ops []string) {
	if len(ops) == 0 {
		p.errorf("DEFW expects at least one operand")
		return
	}
	var slots []asm.Slot
	for _, op := range ops {
		slots = append(slots, p.wordSlots(p.value(op))...)
	}
	p.emitBytes(slots)
}

// defs reserves n bytes, filled with the optional second operand.
func (p *parser) defs(ops []string) {
	if len(ops) != 1 && len(ops) != 2 {
		p.errorf("DEFS expects a size and an optional fill value")
		return
	}
	n, ok := p.constant(ops[0], "DEFS size")
	if !ok {
		return
	}
	if n < 0 || n > 0x10000 {
		p.errorf("DEFS size %d out of range", n)
		return
	}
	fill := asm.ByteSlot(0)
	if len(ops) == 2 {
		fill = p.byteSlot(p.value(ops[1]))
	}
	slots := make([]asm.Slot, n)
	for i := range slots {
		slots[i] = fill
		slots[i].Value = fill.Value.Clone()
	}
	p.emitBytes(slots)
}

func (p *parser) instruction(mnemonic string, ops []string) {
	key, arg, ok := shape(mnemonic, ops)
	op, known := opcodes[key]
	if !ok || !known {
		p.errorf("invalid operands for %s: %s", strings.ToUpper(mnemonic), strings.Join(ops, ", "))
		return
	}

	slots := make([]asm.Slot, 0, len(op.code)+2)
	for _, b := range op.code {
		slots = append(slots, asm.ByteSlot(b))
	}
	last := len(slots) - 1

	switch op.arg {
	case argByte:
		slots = append(slots, p.byteSlot(p.value(arg)))
	case argWord:
		slots = append(slots, p.wordSlots(p.value(arg))...)
	case argRel:
		slots = append(slots, asm.RelativeSlot(p.value(arg)))
	case argBit:
		if n, ok := p.constant(arg, "bit number"); ok {
			if n < 0 || n > 7 {
				p.errorf("bit number %d out of range 0-7", n)
			}
			slots[last].Byte |= byte(n&7) << 3
		}
	case argRst:
		if n, ok := p.constant(arg, "RST address"); ok {
			if n < 0 || n > 0x38 || n%8 != 0 {
				p.errorf("invalid RST address 0x%X", n)
			}
			slots[last].Byte |= byte(n & 0x38)
		}
	case argIM:
		mode := 0
		if n, ok := p.constant(arg, "interrupt mode"); ok {
			if n < 0 || n > 2 {
				p.errorf("invalid interrupt mode %d", n)
			} else {
				mode = n
			}
		}
		slots = append(slots, asm.ByteSlot(imModes[mode]))
	}
	p.emitBytes(slots)
}

// identLen returns the length of the identifier at the start of s, or 0.
func identLen(s string) int {
	for i, r := range s {
		if i == 0 && !expr.IsIdentStart(r) {
			return 0
		}
		if !expr.IsIdentPart(r) {
			return i
		}
	}
	return len(s)
}

// splitMnemonic separates the first word of line from the rest.
func splitMnemonic(line string) (string, string) {
	i := strings.IndexAny(line, " \t")
	if i < 0 {
		return line, ""
	}
	return line[:i], strings.TrimSpace(line[i+1:])
}

// splitOperands splits at commas outside quotes and parentheses.
func splitOperands(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var ops []string
	depth, start := 0, 0
	for i := 0; i < len(s); i++ {
		if isQuote(s, i) {
			i = scanQuoted(s, i) - 1
			continue
		}
		switch s[i] {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				ops = append(ops, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	return append(ops, strings.TrimSpace(s[start:]))
}

// stripComments cuts the line at the first ';' outside a string.
func stripComments(line string) string {
	for i := 0; i < len(line); i++ {
		if isQuote(line, i) {
			i = scanQuoted(line, i) - 1
			continue
		}
		if line[i] == ';' {
			return line[:i]
		}
	}
	return line
}

// isQuote reports whether a string literal starts at s[i]. An apostrophe
// right after a name is part of it, as in af'.
func isQuote(s string, i int) bool {
	switch s[i] {
	case '"':
		return true
	case '\'':
		return i == 0 || !expr.IsIdentPart(rune(s[i-1]))
	}
	return false
}

// scanQuoted returns the index just past the literal starting at s[i].
func scanQuoted(s string, i int) int {
	q := s[i]
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case q:
			return j + 1
		}
	}
	return len(s)
}

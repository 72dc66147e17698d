package syntax

import "strings"

// argKind says what the single expression operand of an instruction becomes.
type argKind int

const (
	argNone argKind = iota
	argByte         // 8-bit immediate or port
	argWord         // 16-bit immediate or address, little-endian
	argRel          // signed displacement from the end of the instruction
	argBit          // constant bit number 0-7, or'ed into the last opcode byte
	argRst          // constant restart address, or'ed into the opcode
	argIM           // constant interrupt mode 0-2
)

type opcode struct {
	code []byte
	arg  argKind
}

var zeroOperandOps = map[string][]byte{
	"nop":  {0x00},
	"halt": {0x76},
	"di":   {0xF3},
	"ei":   {0xFB},
	"exx":  {0xD9},
	"rlca": {0x07},
	"rrca": {0x0F},
	"rla":  {0x17},
	"rra":  {0x1F},
	"daa":  {0x27},
	"cpl":  {0x2F},
	"scf":  {0x37},
	"ccf":  {0x3F},
	"ret":  {0xC9},
	"neg":  {0xED, 0x44},
	"retn": {0xED, 0x45},
	"reti": {0xED, 0x4D},
	"rrd":  {0xED, 0x67},
	"rld":  {0xED, 0x6F},
	"ldi":  {0xED, 0xA0},
	"cpi":  {0xED, 0xA1},
	"ini":  {0xED, 0xA2},
	"outi": {0xED, 0xA3},
	"ldd":  {0xED, 0xA8},
	"cpd":  {0xED, 0xA9},
	"ind":  {0xED, 0xAA},
	"outd": {0xED, 0xAB},
	"ldir": {0xED, 0xB0},
	"cpir": {0xED, 0xB1},
	"inir": {0xED, 0xB2},
	"otir": {0xED, 0xB3},
	"lddr": {0xED, 0xB8},
	"cpdr": {0xED, 0xB9},
	"indr": {0xED, 0xBA},
	"otdr": {0xED, 0xBB},
}

var fixedOps = map[string]opcode{
	"ld a,(bc)":  {[]byte{0x0A}, argNone},
	"ld a,(de)":  {[]byte{0x1A}, argNone},
	"ld (bc),a":  {[]byte{0x02}, argNone},
	"ld (de),a":  {[]byte{0x12}, argNone},
	"ld sp,hl":   {[]byte{0xF9}, argNone},
	"ld a,i":     {[]byte{0xED, 0x57}, argNone},
	"ld a,r":     {[]byte{0xED, 0x5F}, argNone},
	"ld i,a":     {[]byte{0xED, 0x47}, argNone},
	"ld r,a":     {[]byte{0xED, 0x4F}, argNone},
	"ld a,(*)":   {[]byte{0x3A}, argWord},
	"ld (*),a":   {[]byte{0x32}, argWord},
	"ld hl,(*)":  {[]byte{0x2A}, argWord},
	"ld (*),hl":  {[]byte{0x22}, argWord},
	"ex de,hl":   {[]byte{0xEB}, argNone},
	"ex af,af'":  {[]byte{0x08}, argNone},
	"ex (sp),hl": {[]byte{0xE3}, argNone},
	"jp *":       {[]byte{0xC3}, argWord},
	"jp (hl)":    {[]byte{0xE9}, argNone},
	"call *":     {[]byte{0xCD}, argWord},
	"jr *":       {[]byte{0x18}, argRel},
	"djnz *":     {[]byte{0x10}, argRel},
	"out (*),a":  {[]byte{0xD3}, argByte},
	"in a,(*)":   {[]byte{0xDB}, argByte},
	"rst *":      {[]byte{0xC7}, argRst},
	"im *":       {[]byte{0xED}, argIM},
}

var (
	regs8  = []string{"b", "c", "d", "e", "h", "l", "(hl)", "a"}
	regs16 = []string{"bc", "de", "hl", "sp"}
	stack  = []string{"bc", "de", "hl", "af"}
	conds  = []string{"nz", "z", "nc", "c", "po", "pe", "p", "m"}
	alu    = []string{"add a,", "adc a,", "sub ", "sbc a,", "and ", "xor ", "or ", "cp "}
	shifts = []string{"rlc", "rrc", "rl", "rr", "sla", "sra", "sll", "srl"}
)

// imModes maps an interrupt mode to the second opcode byte.
var imModes = []byte{0x46, 0x56, 0x5E}

// opcodes is keyed by instruction shape, "mnemonic op1,op2". Register and
// condition operands are written literally; "*" is an expression and "(*)" an
// expression in parentheses. mnemonics holds every mnemonic in it.
var (
	opcodes   = make(map[string]opcode)
	mnemonics = make(map[string]bool)
)

// operandWords are operands matched literally rather than as expressions.
var operandWords = map[string]bool{
	"i": true, "r": true, "af": true, "af'": true,
	"(bc)": true, "(de)": true, "(sp)": true, "(c)": true,
}

func init() {
	for name, code := range zeroOperandOps {
		opcodes[name] = opcode{code, argNone}
	}
	for key, op := range fixedOps {
		opcodes[key] = op
	}

	for i, r := range regs8 {
		for j, s := range regs8 {
			if r == "(hl)" && s == "(hl)" {
				continue
			}
			opcodes["ld "+r+","+s] = opcode{[]byte{0x40 | byte(i)<<3 | byte(j)}, argNone}
		}
		opcodes["ld "+r+",*"] = opcode{[]byte{0x06 | byte(i)<<3}, argByte}
		opcodes["inc "+r] = opcode{[]byte{0x04 | byte(i)<<3}, argNone}
		opcodes["dec "+r] = opcode{[]byte{0x05 | byte(i)<<3}, argNone}
		for k, op := range alu {
			opcodes[op+r] = opcode{[]byte{0x80 | byte(k)<<3 | byte(i)}, argNone}
		}
		for k, op := range shifts {
			opcodes[op+" "+r] = opcode{[]byte{0xCB, byte(k)<<3 | byte(i)}, argNone}
		}
		opcodes["bit *,"+r] = opcode{[]byte{0xCB, 0x40 | byte(i)}, argBit}
		opcodes["res *,"+r] = opcode{[]byte{0xCB, 0x80 | byte(i)}, argBit}
		opcodes["set *,"+r] = opcode{[]byte{0xCB, 0xC0 | byte(i)}, argBit}
		if r != "(hl)" {
			opcodes["in "+r+",(c)"] = opcode{[]byte{0xED, 0x40 | byte(i)<<3}, argNone}
			opcodes["out (c),"+r] = opcode{[]byte{0xED, 0x41 | byte(i)<<3}, argNone}
		}
	}
	for k, op := range alu {
		opcodes[op+"*"] = opcode{[]byte{0xC6 | byte(k)<<3}, argByte}
	}

	for i, rr := range regs16 {
		n := byte(i) << 4
		opcodes["ld "+rr+",*"] = opcode{[]byte{0x01 | n}, argWord}
		opcodes["inc "+rr] = opcode{[]byte{0x03 | n}, argNone}
		opcodes["dec "+rr] = opcode{[]byte{0x0B | n}, argNone}
		opcodes["add hl,"+rr] = opcode{[]byte{0x09 | n}, argNone}
		opcodes["adc hl,"+rr] = opcode{[]byte{0xED, 0x4A | n}, argNone}
		opcodes["sbc hl,"+rr] = opcode{[]byte{0xED, 0x42 | n}, argNone}
		if rr != "hl" {
			opcodes["ld "+rr+",(*)"] = opcode{[]byte{0xED, 0x4B | n}, argWord}
			opcodes["ld (*),"+rr] = opcode{[]byte{0xED, 0x43 | n}, argWord}
		}
	}
	for i, qq := range stack {
		n := byte(i) << 4
		opcodes["push "+qq] = opcode{[]byte{0xC5 | n}, argNone}
		opcodes["pop "+qq] = opcode{[]byte{0xC1 | n}, argNone}
	}

	for i, cc := range conds {
		n := byte(i) << 3
		opcodes["jp "+cc+",*"] = opcode{[]byte{0xC2 | n}, argWord}
		opcodes["call "+cc+",*"] = opcode{[]byte{0xC4 | n}, argWord}
		opcodes["ret "+cc] = opcode{[]byte{0xC0 | n}, argNone}
		if i < 4 {
			opcodes["jr "+cc+",*"] = opcode{[]byte{0x20 | n}, argRel}
		}
	}

	for _, list := range [][]string{regs8, regs16, stack, conds} {
		for _, w := range list {
			operandWords[w] = true
		}
	}
	for key := range opcodes {
		name, _, _ := strings.Cut(key, " ")
		mnemonics[name] = true
	}
}

// shape returns the table key for an instruction and the text of its
// expression operand, if any.
func shape(mnemonic string, operands []string) (key, arg string, ok bool) {
	parts := make([]string, len(operands))
	exprs := 0
	for i, op := range operands {
		word := strings.ToLower(strings.Join(strings.Fields(op), ""))
		if operandWords[word] {
			parts[i] = word
			continue
		}
		exprs++
		if inner, paren := indirect(op); paren {
			parts[i], arg = "(*)", inner
		} else {
			parts[i], arg = "*", op
		}
	}
	key = mnemonic
	if len(parts) > 0 {
		key += " " + strings.Join(parts, ",")
	}
	return key, arg, exprs <= 1
}

// indirect reports whether op is wholly enclosed in one pair of parentheses
// and returns what is inside.
func indirect(op string) (string, bool) {
	op = strings.TrimSpace(op)
	if len(op) < 2 || op[0] != '(' || op[len(op)-1] != ')' {
		return "", false
	}
	depth := 0
	for i := 0; i < len(op); i++ {
		if isQuote(op, i) {
			i = scanQuoted(op, i) - 1
			continue
		}
		switch op[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(op)-1 {
				return "", false
			}
		}
	}
	return strings.TrimSpace(op[1 : len(op)-1]), true
}

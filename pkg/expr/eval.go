package expr

import (
	"fmt"
	"strings"
)

// Kind distinguishes the two runtime value types of the expression language.
type Kind int

const (
	KindNumber Kind = iota
	KindString
)

// Value is the result of evaluating an expression: a number or a string.
type Value struct {
	Kind Kind
	Num  int
	Str  string
}

// Number returns a numeric Value.
func Number(n int) Value { return Value{Kind: KindNumber, Num: n} }

// String returns a string Value.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

func (v Value) String() string {
	if v.Kind == KindString {
		return fmt.Sprintf("%q", v.Str)
	}
	return fmt.Sprintf("%d", v.Num)
}

// AsNumber coerces v to a number. Strings of one byte become their character
// code, strings of two bytes their little-endian packed 16-bit code; longer or
// empty strings cannot take part in arithmetic.
func (v Value) AsNumber() (int, error) {
	if v.Kind == KindNumber {
		return v.Num, nil
	}
	switch len(v.Str) {
	case 1:
		return int(v.Str[0]), nil
	case 2:
		return int(v.Str[0]) | int(v.Str[1])<<8, nil
	}
	return 0, fmt.Errorf("string %q cannot be used as a number", v.Str)
}

// MaxStringLen bounds the strings rpt can build: nothing longer fits in the
// 64K address space.
const MaxStringLen = 0x10000

// Lookup resolves a free identifier to its value.
type Lookup func(name string) (Value, error)

// Eval evaluates n, resolving identifiers through lookup.
func Eval(n Node, lookup Lookup) (Value, error) {
	switch n := n.(type) {
	case *NumberLit:
		return Number(n.Value), nil

	case *StringLit:
		return String(n.Value), nil

	case *Ident:
		if lookup == nil {
			return Value{}, fmt.Errorf("undefined symbol %q", n.Name)
		}
		return lookup(n.Name)

	case *UnaryExpr:
		return evalUnary(n, lookup)

	case *BinaryExpr:
		left, err := Eval(n.Left, lookup)
		if err != nil {
			return Value{}, err
		}
		right, err := Eval(n.Right, lookup)
		if err != nil {
			return Value{}, err
		}
		return binaryOp(n.Op, left, right)

	case *LogicalExpr:
		left, err := truth(n.Left, lookup)
		if err != nil {
			return Value{}, err
		}
		if n.Op == OR_LOGICAL && left {
			return Number(1), nil
		}
		if n.Op == AND_LOGICAL && !left {
			return Number(0), nil
		}
		right, err := truth(n.Right, lookup)
		if err != nil {
			return Value{}, err
		}
		return boolValue(right), nil

	case *TernaryExpr:
		cond, err := truth(n.Cond, lookup)
		if err != nil {
			return Value{}, err
		}
		if cond {
			return Eval(n.Then, lookup)
		}
		return Eval(n.Else, lookup)

	case *Call:
		args := make([]Value, len(n.Args))
		for i, a := range n.Args {
			v, err := Eval(a, lookup)
			if err != nil {
				return Value{}, err
			}
			args[i] = v
		}
		return call(n.Func, args)
	}
	return Value{}, fmt.Errorf("unsupported expression node %T", n)
}

// EvalString parses and evaluates src in one step.
func EvalString(src string, lookup Lookup) (Value, error) {
	n, err := Parse(src)
	if err != nil {
		return Value{}, err
	}
	return Eval(n, lookup)
}

func truth(n Node, lookup Lookup) (bool, error) {
	v, err := Eval(n, lookup)
	if err != nil {
		return false, err
	}
	num, err := v.AsNumber()
	if err != nil {
		return false, err
	}
	return num != 0, nil
}

func boolValue(b bool) Value {
	if b {
		return Number(1)
	}
	return Number(0)
}

func evalUnary(n *UnaryExpr, lookup Lookup) (Value, error) {
	v, err := Eval(n.Operand, lookup)
	if err != nil {
		return Value{}, err
	}
	num, err := v.AsNumber()
	if err != nil {
		return Value{}, fmt.Errorf("unary %s: %w", n.Op, err)
	}
	switch n.Op {
	case MINUS:
		return Number(-num), nil
	case PLUS:
		return Number(num), nil
	case TILDE:
		return Number(^num), nil
	case NOT:
		return boolValue(num == 0), nil
	}
	return Value{}, fmt.Errorf("unsupported unary operator %s", n.Op)
}

func isComparison(op TokenType) bool {
	switch op {
	case EQUALS, NOT_EQ, LESS, GREATER, LESS_EQ, GREATER_EQ:
		return true
	}
	return false
}

func compare(op TokenType, c int) Value {
	switch op {
	case EQUALS:
		return boolValue(c == 0)
	case NOT_EQ:
		return boolValue(c != 0)
	case LESS:
		return boolValue(c < 0)
	case GREATER:
		return boolValue(c > 0)
	case LESS_EQ:
		return boolValue(c <= 0)
	default:
		return boolValue(c >= 0)
	}
}

func binaryOp(op TokenType, left, right Value) (Value, error) {
	// Two strings compare lexicographically whatever their length.
	if isComparison(op) && left.Kind == KindString && right.Kind == KindString {
		return compare(op, strings.Compare(left.Str, right.Str)), nil
	}

	l, err := left.AsNumber()
	if err != nil {
		return Value{}, fmt.Errorf("operator %s: %w", op, err)
	}
	r, err := right.AsNumber()
	if err != nil {
		return Value{}, fmt.Errorf("operator %s: %w", op, err)
	}

	if isComparison(op) {
		switch {
		case l < r:
			return compare(op, -1), nil
		case l > r:
			return compare(op, 1), nil
		}
		return compare(op, 0), nil
	}

	switch op {
	case PLUS:
		return Number(l + r), nil
	case MINUS:
		return Number(l - r), nil
	case STAR:
		return Number(l * r), nil
	case SLASH:
		if r == 0 {
			return Value{}, fmt.Errorf("division by zero")
		}
		return Number(l / r), nil
	case PERCENT:
		if r == 0 {
			return Value{}, fmt.Errorf("modulo by zero")
		}
		return Number(l % r), nil
	case AND:
		return Number(l & r), nil
	case PIPE:
		return Number(l | r), nil
	case CARET:
		return Number(l ^ r), nil
	case SHL_OP, SHR_OP:
		if r < 0 {
			return Value{}, fmt.Errorf("negative shift count %d", r)
		}
		if op == SHL_OP {
			return Number(l << uint(r)), nil
		}
		return Number(l >> uint(r)), nil
	}
	return Value{}, fmt.Errorf("unsupported operator %s", op)
}

func call(fn string, args []Value) (Value, error) {
	switch fn {
	case "cat":
		var sb strings.Builder
		for i, a := range args {
			if a.Kind != KindString {
				return Value{}, fmt.Errorf("cat: argument %d is not a string", i+1)
			}
			sb.WriteString(a.Str)
		}
		return String(sb.String()), nil

	case "rpt":
		if args[0].Kind != KindString {
			return Value{}, fmt.Errorf("rpt: first argument is not a string")
		}
		if args[1].Kind != KindNumber {
			return Value{}, fmt.Errorf("rpt: count is not a number")
		}
		if args[1].Num < 0 {
			return Value{}, fmt.Errorf("rpt: negative count %d", args[1].Num)
		}
		if n := len(args[0].Str); n > 0 && args[1].Num > MaxStringLen/n {
			return Value{}, fmt.Errorf("rpt: result longer than %d bytes", MaxStringLen)
		}
		return String(strings.Repeat(args[0].Str, args[1].Num)), nil

	case "swp":
		n, err := args[0].AsNumber()
		if err != nil {
			return Value{}, fmt.Errorf("swp: %w", err)
		}
		return Number((n&0xFF)<<8 | (n>>8)&0xFF), nil

	case "min", "max":
		best := args[0]
		for i, a := range args[1:] {
			if a.Kind != best.Kind {
				return Value{}, fmt.Errorf("%s: argument %d mixes strings and numbers", fn, i+2)
			}
			var less bool
			if a.Kind == KindString {
				less = a.Str < best.Str
			} else {
				less = a.Num < best.Num
			}
			if less == (fn == "min") && !equalValues(a, best) {
				best = a
			}
		}
		return best, nil
	}
	return Value{}, fmt.Errorf("unknown function %q", fn)
}

func equalValues(a, b Value) bool {
	return a.Kind == b.Kind && a.Num == b.Num && a.Str == b.Str
}

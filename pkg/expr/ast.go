package expr

import (
	"fmt"
	"strings"
)

// Node is implemented by every expression node. The set of node types is closed:
// literals, identifiers, calls, and the operator forms below.
type Node interface {
	exprNode()
	String() string
}

// NumberLit is a numeric constant.
type NumberLit struct {
	Value int
}

func (*NumberLit) exprNode()        {}
func (n *NumberLit) String() string { return fmt.Sprintf("%d", n.Value) }

// StringLit is a quoted string constant.
type StringLit struct {
	Value string
}

func (*StringLit) exprNode()        {}
func (s *StringLit) String() string { return fmt.Sprintf("%q", s.Value) }

// Ident is a free variable: a symbol name or "$".
//
//	start + 2
//	^^^^^  Ident{Name: "start"}
type Ident struct {
	Name string
}

func (*Ident) exprNode()        {}
func (i *Ident) String() string { return i.Name }

// Call is a built-in function application. Func is resolved by the parser,
// so an unknown name never reaches evaluation.
//
//	cat("ab", name)
//	^^^  Call{Func: "cat", Args: [StringLit, Ident]}
type Call struct {
	Func string
	Args []Node
}

func (*Call) exprNode() {}
func (c *Call) String() string {
	args := make([]string, len(c.Args))
	for i, a := range c.Args {
		args[i] = a.String()
	}
	return fmt.Sprintf("%s(%s)", c.Func, strings.Join(args, ", "))
}

// UnaryExpr is a prefix operation: - + ~ !
type UnaryExpr struct {
	Op      TokenType
	Operand Node
}

func (*UnaryExpr) exprNode() {}
func (u *UnaryExpr) String() string {
	return fmt.Sprintf("(%s%s)", u.Op, u.Operand)
}

// BinaryExpr represents Left Op Right for arithmetic, bitwise and comparison operators.
type BinaryExpr struct {
	Op    TokenType
	Left  Node
	Right Node
}

func (*BinaryExpr) exprNode() {}
func (b *BinaryExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

// LogicalExpr is && or ||. It is separate from BinaryExpr because the right
// operand is only evaluated when it decides the result.
type LogicalExpr struct {
	Op    TokenType
	Left  Node
	Right Node
}

func (*LogicalExpr) exprNode() {}
func (l *LogicalExpr) String() string {
	return fmt.Sprintf("(%s %s %s)", l.Left, l.Op, l.Right)
}

// TernaryExpr is Cond ? Then : Else.
type TernaryExpr struct {
	Cond Node
	Then Node
	Else Node
}

func (*TernaryExpr) exprNode() {}
func (t *TernaryExpr) String() string {
	return fmt.Sprintf("(%s ? %s : %s)", t.Cond, t.Then, t.Else)
}

// FreeVars returns the distinct identifiers referenced by n in first-seen order.
func FreeVars(n Node) []string {
	seen := make(map[string]bool)
	var vars []string
	var walk func(Node)
	walk = func(n Node) {
		switch n := n.(type) {
		case *Ident:
			if !seen[n.Name] {
				seen[n.Name] = true
				vars = append(vars, n.Name)
			}
		case *Call:
			for _, a := range n.Args {
				walk(a)
			}
		case *UnaryExpr:
			walk(n.Operand)
		case *BinaryExpr:
			walk(n.Left)
			walk(n.Right)
		case *LogicalExpr:
			walk(n.Left)
			walk(n.Right)
		case *TernaryExpr:
			walk(n.Cond)
			walk(n.Then)
			walk(n.Else)
		}
	}
	walk(n)
	return vars
}

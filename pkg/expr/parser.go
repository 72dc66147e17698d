package expr

import (
	"fmt"
	"strings"
)

// Parser consumes the token slice produced by the Lexer and builds a Node tree.
//
// Grammar:
//
//	expression     = ternary EOF
//	ternary        = logical_or ("?" ternary ":" ternary)?
//	logical_or     = logical_and ("||" logical_and)*
//	logical_and    = bitwise_or ("&&" bitwise_or)*
//	bitwise_or     = bitwise_xor ("|" bitwise_xor)*
//	bitwise_xor    = bitwise_and ("^" bitwise_and)*
//	bitwise_and    = equality ("&" equality)*
//	equality       = relational (("=="|"!=") relational)*
//	relational     = shift (("<"|">"|"<="|">=") shift)*
//	shift          = additive (("<<"|">>") additive)*
//	additive       = multiplicative (("+"|"-") multiplicative)*
//	multiplicative = unary (("*"|"/"|"%") unary)*
//	unary          = ("-"|"+"|"~"|"!") unary | primary
//	primary        = NUMBER | STRING | IDENTIFIER | call | "(" ternary ")"
//	call           = FUNCTION "(" (ternary ("," ternary)*)? ")"
type Parser struct {
	tokens []Token
	pos    int
	src    string
}

// builtins lists the functions a call may name, with their minimum and maximum
// argument counts (-1 means unbounded).
var builtins = map[string][2]int{
	"cat": {1, -1},
	"rpt": {2, 2},
	"swp": {1, 1},
	"min": {1, -1},
	"max": {1, -1},
}

// fmtError wraps an error message with the offending token position.
func (p *Parser) fmtError(tok Token, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s at %d in %q", msg, tok.Pos, p.src)
}

// peek returns the current token without consuming it.
func (p *Parser) peek() Token {
	if p.pos >= len(p.tokens) {
		return Token{Type: EOF}
	}
	return p.tokens[p.pos]
}

// advance consumes and returns the current token.
func (p *Parser) advance() Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// expect consumes the current token if it matches tt, otherwise returns an error.
func (p *Parser) expect(tt TokenType) (Token, error) {
	tok := p.advance()
	if tok.Type != tt {
		return tok, p.fmtError(tok, "expected %s, got %s", tt, tok.Type)
	}
	return tok, nil
}

func (p *Parser) parseTernary() (Node, error) {
	cond, err := p.parseLogicalOr()
	if err != nil {
		return nil, err
	}
	if p.peek().Type != QUESTION {
		return cond, nil
	}
	p.advance()
	then, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(COLON); err != nil {
		return nil, err
	}
	els, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	return &TernaryExpr{Cond: cond, Then: then, Else: els}, nil
}

// parseLogical handles one level of && or ||.
func (p *Parser) parseLogical(op TokenType, next func() (Node, error)) (Node, error) {
	expr, err := next()
	if err != nil {
		return nil, err
	}
	for p.peek().Type == op {
		p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		expr = &LogicalExpr{Op: op, Left: expr, Right: right}
	}
	return expr, nil
}

// parseBinary handles one left-associative precedence level whose operators are ops.
func (p *Parser) parseBinary(next func() (Node, error), ops ...TokenType) (Node, error) {
	expr, err := next()
	if err != nil {
		return nil, err
	}
	for {
		tt := p.peek().Type
		matched := false
		for _, op := range ops {
			if tt == op {
				matched = true
				break
			}
		}
		if !matched {
			return expr, nil
		}
		p.advance()
		right, err := next()
		if err != nil {
			return nil, err
		}
		expr = &BinaryExpr{Op: tt, Left: expr, Right: right}
	}
}

func (p *Parser) parseLogicalOr() (Node, error) {
	return p.parseLogical(OR_LOGICAL, p.parseLogicalAnd)
}

func (p *Parser) parseLogicalAnd() (Node, error) {
	return p.parseLogical(AND_LOGICAL, p.parseBitwiseOr)
}

func (p *Parser) parseBitwiseOr() (Node, error) {
	return p.parseBinary(p.parseBitwiseXor, PIPE)
}

func (p *Parser) parseBitwiseXor() (Node, error) {
	return p.parseBinary(p.parseBitwiseAnd, CARET)
}

func (p *Parser) parseBitwiseAnd() (Node, error) {
	return p.parseBinary(p.parseEquality, AND)
}

func (p *Parser) parseEquality() (Node, error) {
	return p.parseBinary(p.parseRelational, EQUALS, NOT_EQ)
}

func (p *Parser) parseRelational() (Node, error) {
	return p.parseBinary(p.parseShift, LESS, GREATER, LESS_EQ, GREATER_EQ)
}

func (p *Parser) parseShift() (Node, error) {
	return p.parseBinary(p.parseAdditive, SHL_OP, SHR_OP)
}

func (p *Parser) parseAdditive() (Node, error) {
	return p.parseBinary(p.parseMultiplicative, PLUS, MINUS)
}

func (p *Parser) parseMultiplicative() (Node, error) {
	return p.parseBinary(p.parseUnary, STAR, SLASH, PERCENT)
}

func (p *Parser) parseUnary() (Node, error) {
	switch p.peek().Type {
	case MINUS, PLUS, TILDE, NOT:
		op := p.advance().Type
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &UnaryExpr{Op: op, Operand: operand}, nil
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() (Node, error) {
	tok := p.advance()
	switch tok.Type {
	case NUMBER:
		v, err := ParseNumber(tok.Lexeme)
		if err != nil {
			return nil, p.fmtError(tok, "%v", err)
		}
		return &NumberLit{Value: v}, nil

	case STRING:
		return &StringLit{Value: tok.Lexeme}, nil

	case IDENTIFIER:
		if p.peek().Type == LPAREN {
			return p.parseCall(tok)
		}
		return &Ident{Name: tok.Lexeme}, nil

	case LPAREN:
		inner, err := p.parseTernary()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(RPAREN); err != nil {
			return nil, err
		}
		return inner, nil

	case EOF:
		return nil, p.fmtError(tok, "unexpected end of expression")
	}
	return nil, p.fmtError(tok, "unexpected %s", tok.Type)
}

// parseCall parses a built-in call. The name token has been consumed and the
// current token is "(".
func (p *Parser) parseCall(name Token) (Node, error) {
	fn := strings.ToLower(name.Lexeme)
	arity, ok := builtins[fn]
	if !ok {
		return nil, p.fmtError(name, "unknown function %q", name.Lexeme)
	}
	p.advance() // consume '('

	var args []Node
	if p.peek().Type != RPAREN {
		for {
			arg, err := p.parseTernary()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.peek().Type != COMMA {
				break
			}
			p.advance()
		}
	}
	if _, err := p.expect(RPAREN); err != nil {
		return nil, err
	}

	if len(args) < arity[0] || (arity[1] >= 0 && len(args) > arity[1]) {
		return nil, p.fmtError(name, "%s: wrong number of arguments (%d)", fn, len(args))
	}
	return &Call{Func: fn, Args: args}, nil
}

// Parse lexes and parses one complete expression.
func Parse(src string) (Node, error) {
	tokens, err := Lex(src)
	if err != nil {
		return nil, fmt.Errorf("%w in %q", err, src)
	}
	p := &Parser{tokens: tokens, src: src}
	n, err := p.parseTernary()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Type != EOF {
		return nil, p.fmtError(tok, "unexpected %s after expression", tok.Type)
	}
	return n, nil
}

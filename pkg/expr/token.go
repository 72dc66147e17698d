package expr

import "fmt"

// TokenType identifies the category of a lexed token.
type TokenType int

const (
	EOF TokenType = iota // sentinel: end of input

	// Literals
	IDENTIFIER // symbol or function name, also "$"
	NUMBER     // numeric literal in any radix
	STRING     // '...' or "..."

	// Paired delimiters
	LPAREN // (
	RPAREN // )

	// Punctuation
	COMMA    // ,
	QUESTION // ?
	COLON    // :

	// Arithmetic operators
	PLUS        // +
	MINUS       // -
	STAR        // *
	SLASH       // /
	PERCENT     // %
	AND         // &
	PIPE        // |
	CARET       // ^
	TILDE       // ~
	NOT         // !
	SHL_OP      // <<
	SHR_OP      // >>
	AND_LOGICAL // &&
	OR_LOGICAL  // ||

	// Comparison
	EQUALS     // ==
	NOT_EQ     // !=
	LESS       // <
	GREATER    // >
	LESS_EQ    // <=
	GREATER_EQ // >=
)

var tokenNames = map[TokenType]string{
	EOF:         "EOF",
	IDENTIFIER:  "IDENTIFIER",
	NUMBER:      "NUMBER",
	STRING:      "STRING",
	LPAREN:      "(",
	RPAREN:      ")",
	COMMA:       ",",
	QUESTION:    "?",
	COLON:       ":",
	PLUS:        "+",
	MINUS:       "-",
	STAR:        "*",
	SLASH:       "/",
	PERCENT:     "%",
	AND:         "&",
	PIPE:        "|",
	CARET:       "^",
	TILDE:       "~",
	NOT:         "!",
	SHL_OP:      "<<",
	SHR_OP:      ">>",
	AND_LOGICAL: "&&",
	OR_LOGICAL:  "||",
	EQUALS:      "==",
	NOT_EQ:      "!=",
	LESS:        "<",
	GREATER:     ">",
	LESS_EQ:     "<=",
	GREATER_EQ:  ">=",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("TokenType(%d)", int(t))
}

// Token is a single lexeme. Pos is the 0-based rune offset into the expression text.
type Token struct {
	Type   TokenType
	Lexeme string
	Pos    int
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d", t.Type, t.Lexeme, t.Pos)
}

package expr

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/japanoise/numparse"
)

// Lexer holds all mutable state for a single scanning pass over an expression.
type Lexer struct {
	src []rune
	pos int // index of the next rune to consume
}

func newLexer(src string) *Lexer {
	return &Lexer{src: []rune(src)}
}

// peek returns the rune at the current position without advancing.
func (l *Lexer) peek() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

// peek2 returns the rune one position ahead of the current position.
func (l *Lexer) peek2() rune {
	if l.pos+1 >= len(l.src) {
		return 0
	}
	return l.src[l.pos+1]
}

func (l *Lexer) advance() rune {
	if l.pos >= len(l.src) {
		return 0
	}
	r := l.src[l.pos]
	l.pos++
	return r
}

func (l *Lexer) skipWhitespace() {
	for l.pos < len(l.src) && unicode.IsSpace(l.peek()) {
		l.advance()
	}
}

// IsIdentStart reports whether r may begin a symbol name.
func IsIdentStart(r rune) bool {
	return unicode.IsLetter(r) || r == '_' || r == '.' || r == '@'
}

// IsIdentPart reports whether r may continue a symbol name.
func IsIdentPart(r rune) bool {
	return IsIdentStart(r) || unicode.IsDigit(r) || r == '?'
}

func isHexDigit(r rune) bool {
	return unicode.IsDigit(r) || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')
}

// scanIdent collects a full identifier.
func (l *Lexer) scanIdent() Token {
	start := l.pos
	for l.pos < len(l.src) && IsIdentPart(l.peek()) {
		l.advance()
	}
	return Token{Type: IDENTIFIER, Lexeme: string(l.src[start:l.pos]), Pos: start}
}

// scanNumber collects a numeric literal. Radix markers (0x, 0b, h, b, o, q) are
// validated later by ParseNumber, so the whole alphanumeric run is taken here.
func (l *Lexer) scanNumber() (Token, error) {
	start := l.pos
	for l.pos < len(l.src) && (unicode.IsLetter(l.peek()) || unicode.IsDigit(l.peek())) {
		l.advance()
	}
	lexeme := string(l.src[start:l.pos])
	if _, err := ParseNumber(lexeme); err != nil {
		return Token{}, fmt.Errorf("at %d: %w", start, err)
	}
	return Token{Type: NUMBER, Lexeme: lexeme, Pos: start}, nil
}

// scanDollar handles "$": either a $-prefixed hex literal or the current address.
func (l *Lexer) scanDollar() Token {
	start := l.pos
	l.advance() // consume '$'
	if !isHexDigit(l.peek()) {
		return Token{Type: IDENTIFIER, Lexeme: "$", Pos: start}
	}
	for l.pos < len(l.src) && isHexDigit(l.peek()) {
		l.advance()
	}
	return Token{Type: NUMBER, Lexeme: "0x" + string(l.src[start+1:l.pos]), Pos: start}
}

// scanString collects a string delimited by quote (either ' or ").
func (l *Lexer) scanString(quote rune) (Token, error) {
	start := l.pos
	l.advance() // consume opening quote
	var val []rune

	for l.pos < len(l.src) {
		r := l.peek()
		if r == quote {
			break
		}
		if r == '\\' {
			l.advance() // consume backslash
			next := l.peek()
			switch next {
			case 'n':
				val = append(val, '\n')
			case 'r':
				val = append(val, '\r')
			case 't':
				val = append(val, '\t')
			case '0':
				val = append(val, 0)
			case '\\', '\'', '"':
				val = append(val, next)
			default:
				return Token{}, fmt.Errorf("unknown escape sequence \\%c at %d", next, l.pos)
			}
			l.advance()
			continue
		}
		val = append(val, r)
		l.advance()
	}

	if l.pos >= len(l.src) {
		return Token{}, fmt.Errorf("unterminated string literal at %d", start)
	}
	l.advance() // consume closing quote

	return Token{Type: STRING, Lexeme: string(val), Pos: start}, nil
}

// nextToken skips whitespace and returns the next Token.
func (l *Lexer) nextToken() (Token, error) {
	l.skipWhitespace()
	if l.pos >= len(l.src) {
		return Token{Type: EOF, Pos: l.pos}, nil
	}

	ch := l.peek()
	pos := l.pos

	if IsIdentStart(ch) {
		return l.scanIdent(), nil
	}
	if unicode.IsDigit(ch) {
		return l.scanNumber()
	}
	if ch == '$' {
		return l.scanDollar(), nil
	}
	if ch == '"' || ch == '\'' {
		return l.scanString(ch)
	}

	l.advance() // consume the character before the switch
	switch ch {
	case '(':
		return Token{LPAREN, "(", pos}, nil
	case ')':
		return Token{RPAREN, ")", pos}, nil
	case ',':
		return Token{COMMA, ",", pos}, nil
	case '?':
		return Token{QUESTION, "?", pos}, nil
	case ':':
		return Token{COLON, ":", pos}, nil
	case '+':
		return Token{PLUS, "+", pos}, nil
	case '-':
		return Token{MINUS, "-", pos}, nil
	case '*':
		return Token{STAR, "*", pos}, nil
	case '/':
		return Token{SLASH, "/", pos}, nil
	case '%':
		return Token{PERCENT, "%", pos}, nil
	case '^':
		return Token{CARET, "^", pos}, nil
	case '~':
		return Token{TILDE, "~", pos}, nil
	case '&':
		if l.peek() == '&' {
			l.advance()
			return Token{AND_LOGICAL, "&&", pos}, nil
		}
		return Token{AND, "&", pos}, nil
	case '|':
		if l.peek() == '|' {
			l.advance()
			return Token{OR_LOGICAL, "||", pos}, nil
		}
		return Token{PIPE, "|", pos}, nil
	case '!':
		if l.peek() == '=' {
			l.advance()
			return Token{NOT_EQ, "!=", pos}, nil
		}
		return Token{NOT, "!", pos}, nil
	case '=':
		// "=" and "==" both mean equality inside an expression.
		if l.peek() == '=' {
			l.advance()
		}
		return Token{EQUALS, "==", pos}, nil
	case '<':
		if l.peek() == '=' {
			l.advance()
			return Token{LESS_EQ, "<=", pos}, nil
		}
		if l.peek() == '<' {
			l.advance()
			return Token{SHL_OP, "<<", pos}, nil
		}
		if l.peek() == '>' {
			l.advance()
			return Token{NOT_EQ, "<>", pos}, nil
		}
		return Token{LESS, "<", pos}, nil
	case '>':
		if l.peek() == '=' {
			l.advance()
			return Token{GREATER_EQ, ">=", pos}, nil
		}
		if l.peek() == '>' {
			l.advance()
			return Token{SHR_OP, ">>", pos}, nil
		}
		return Token{GREATER, ">", pos}, nil
	default:
		return Token{}, fmt.Errorf("unexpected character %q at %d", ch, pos)
	}
}

// Lex tokenises src and returns all tokens including the final EOF token.
func Lex(src string) ([]Token, error) {
	l := newLexer(src)
	var tokens []Token
	for {
		tok, err := l.nextToken()
		if err != nil {
			return tokens, err
		}
		tokens = append(tokens, tok)
		if tok.Type == EOF {
			return tokens, nil
		}
	}
}

// ParseNumber converts a numeric literal to its value. Accepted forms:
// decimal (42), C-style prefixes (0x2A, 0b101010, 0o52) and assembler
// suffixes (2Ah, 101010b, 52o, 52q).
func ParseNumber(lit string) (int, error) {
	if lit == "" {
		return 0, fmt.Errorf("empty numeric literal")
	}
	lower := strings.ToLower(lit)

	if digits, base, ok := suffixForm(lower); ok {
		v, err := strconv.ParseInt(digits, base, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid numeric literal %q", lit)
		}
		return int(v), nil
	}

	if isDecimal(lower) {
		// A leading zero does not mean octal here.
		lower = strings.TrimLeft(lower, "0")
		if lower == "" {
			return 0, nil
		}
	}
	v, err := numparse.UNumParse(lower)
	if err != nil {
		return 0, fmt.Errorf("invalid numeric literal %q", lit)
	}
	return int(v), nil
}

// suffixForm splits an assembler-style literal such as 2Ah or 101b into its
// digits and base.
func suffixForm(lower string) (string, int, bool) {
	if strings.HasPrefix(lower, "0x") || strings.HasPrefix(lower, "0o") {
		return "", 0, false
	}
	body := lower[:len(lower)-1]
	switch lower[len(lower)-1] {
	case 'h':
		return body, 16, true
	case 'b':
		if isBinary(body) {
			return body, 2, true
		}
	case 'o', 'q':
		return body, 8, true
	}
	return "", 0, false
}

func isDecimal(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func isBinary(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r != '0' && r != '1' {
			return false
		}
	}
	return true
}

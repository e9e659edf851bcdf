package chrono

import (
	"fmt"
	"strings"
)

// TokenType represents the type of a date token.
type TokenType uint8

const (
	TokenEOF TokenType = iota
	TokenError

	TokenInt    // 2020
	TokenWord   // JAN, BET, JULIAN, BCE, _MAYAN
	TokenEscape // @#DJULIAN@
	TokenPhrase // (free text)
)

// String returns the token type name.
func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "EOF"
	case TokenError:
		return "ERROR"
	case TokenInt:
		return "INT"
	case TokenWord:
		return "WORD"
	case TokenEscape:
		return "ESCAPE"
	case TokenPhrase:
		return "PHRASE"
	default:
		return fmt.Sprintf("TokenType(%d)", t)
	}
}

// Token is one lexical unit of a date payload.
type Token struct {
	Type  TokenType
	Value string
	Pos   int // byte offset in the payload
}

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%d", t.Type, t.Value, t.Pos)
}

// Lexer tokenizes a date payload.
type Lexer struct {
	input  string
	pos    int
	tokens []Token
	err    error
}

// NewLexer creates a lexer for the given payload.
func NewLexer(input string) *Lexer {
	return &Lexer{input: input}
}

// Tokenize returns all tokens, ending with TokenEOF or TokenError.
func (l *Lexer) Tokenize() ([]Token, error) {
	for {
		tok := l.nextToken()
		l.tokens = append(l.tokens, tok)
		if tok.Type == TokenEOF || tok.Type == TokenError {
			break
		}
	}
	return l.tokens, l.err
}

func (l *Lexer) nextToken() Token {
	for l.pos < len(l.input) && l.input[l.pos] == ' ' {
		l.pos++
	}
	if l.pos >= len(l.input) {
		return Token{Type: TokenEOF, Pos: l.pos}
	}

	start := l.pos
	ch := l.input[l.pos]
	switch {
	case ch == '@':
		return l.scanEscape()
	case ch == '(':
		return l.scanPhrase()
	case isDigit(ch):
		for l.pos < len(l.input) && isDigit(l.input[l.pos]) {
			l.pos++
		}
		return Token{Type: TokenInt, Value: l.input[start:l.pos], Pos: start}
	case isWordStart(ch):
		for l.pos < len(l.input) && isWordChar(l.input[l.pos]) {
			l.pos++
		}
		return Token{Type: TokenWord, Value: l.input[start:l.pos], Pos: start}
	}

	l.pos++
	l.err = invalid(l.input, start, "unexpected character %q", ch)
	return Token{Type: TokenError, Value: string(ch), Pos: start}
}

// scanEscape scans a legacy calendar escape such as @#DJULIAN@.
func (l *Lexer) scanEscape() Token {
	start := l.pos
	end := strings.IndexByte(l.input[start+1:], '@')
	if end < 0 {
		l.pos = len(l.input)
		l.err = invalid(l.input, start, "unterminated calendar escape")
		return Token{Type: TokenError, Value: l.input[start:], Pos: start}
	}
	inner := l.input[start+1 : start+1+end]
	l.pos = start + end + 2
	if !strings.HasPrefix(inner, "#D") || len(inner) == 2 {
		l.err = invalid(l.input, start, "malformed calendar escape @%s@", inner)
		return Token{Type: TokenError, Value: inner, Pos: start}
	}
	return Token{Type: TokenEscape, Value: strings.ReplaceAll(inner[2:], " ", "_"), Pos: start}
}

// scanPhrase scans a parenthesized phrase. The phrase runs to the last
// closing parenthesis and must end the payload.
func (l *Lexer) scanPhrase() Token {
	start := l.pos
	end := strings.LastIndexByte(l.input, ')')
	if end < start {
		l.pos = len(l.input)
		l.err = invalid(l.input, start, "unterminated phrase")
		return Token{Type: TokenError, Value: l.input[start:], Pos: start}
	}
	if strings.TrimSpace(l.input[end+1:]) != "" {
		l.pos = len(l.input)
		l.err = invalid(l.input, end+1, "text after phrase")
		return Token{Type: TokenError, Value: l.input[end+1:], Pos: end + 1}
	}
	l.pos = end + 1
	return Token{Type: TokenPhrase, Value: l.input[start+1 : end], Pos: start}
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isWordStart(ch byte) bool {
	return ch == '_' || (ch >= 'A' && ch <= 'Z') || (ch >= 'a' && ch <= 'z')
}

func isWordChar(ch byte) bool { return isWordStart(ch) || isDigit(ch) }

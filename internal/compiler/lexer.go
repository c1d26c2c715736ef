package compiler

import (
	"fmt"
	"strconv"
)

// TokenType represents the kind of token.
type TokenType int

const (
	EOF TokenType = iota
	NUMBER
	IDENT
	PLUS
	MINUS
	MULT
	DIV
	LROUND
	RROUND
)

var tokenNames = map[TokenType]string{
	EOF:    "end of formula",
	NUMBER: "number",
	IDENT:  "identifier",
	PLUS:   "'+'",
	MINUS:  "'-'",
	MULT:   "'*'",
	DIV:    "'/'",
	LROUND: "'('",
	RROUND: "')'",
}

func (t TokenType) String() string { return tokenNames[t] }

// Token is one lexeme with its byte offset in the formula.
type Token struct {
	Type  TokenType
	Text  string
	Value float32
	Pos   int
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool { return isIdentStart(c) || isDigit(c) }

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// Lex splits a formula into tokens, ending with EOF.
func Lex(src string) ([]Token, error) {
	var toks []Token
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++
		case c == '+':
			toks = append(toks, Token{Type: PLUS, Text: "+", Pos: i})
			i++
		case c == '-':
			toks = append(toks, Token{Type: MINUS, Text: "-", Pos: i})
			i++
		case c == '*':
			toks = append(toks, Token{Type: MULT, Text: "*", Pos: i})
			i++
		case c == '/':
			toks = append(toks, Token{Type: DIV, Text: "/", Pos: i})
			i++
		case c == '(':
			toks = append(toks, Token{Type: LROUND, Text: "(", Pos: i})
			i++
		case c == ')':
			toks = append(toks, Token{Type: RROUND, Text: ")", Pos: i})
			i++
		case isDigit(c) || c == '.':
			tok, next, err := lexNumber(src, i)
			if err != nil {
				return nil, err
			}
			toks = append(toks, tok)
			i = next
		case isIdentStart(c):
			start := i
			for i < len(src) && isIdentPart(src[i]) {
				i++
			}
			toks = append(toks, Token{Type: IDENT, Text: src[start:i], Pos: start})
		default:
			return nil, &CompileError{Pos: i, Msg: fmt.Sprintf("unexpected character %q", c)}
		}
	}
	toks = append(toks, Token{Type: EOF, Pos: len(src)})
	return toks, nil
}

func lexNumber(src string, start int) (Token, int, error) {
	i := start
	for i < len(src) && (isDigit(src[i]) || src[i] == '.') {
		i++
	}
	if i < len(src) && (src[i] == 'e' || src[i] == 'E') {
		j := i + 1
		if j < len(src) && (src[j] == '+' || src[j] == '-') {
			j++
		}
		if j < len(src) && isDigit(src[j]) {
			for j < len(src) && isDigit(src[j]) {
				j++
			}
			i = j
		}
	}
	text := src[start:i]
	v, err := strconv.ParseFloat(text, 32)
	if err != nil {
		return Token{}, 0, &CompileError{Pos: start, Msg: fmt.Sprintf("invalid number %q", text), Err: err}
	}
	return Token{Type: NUMBER, Text: text, Value: float32(v), Pos: start}, i, nil
}

package parser

import (
	"fmt"

	"jsonnet/interpreter-go/pkg/ast"
)

// Binary operator precedence levels; lower binds tighter.
var infixOperatorLevels = map[string]struct {
	op    ast.BinaryOperator
	level int
}{
	"*":  {ast.BinaryMul, 5},
	"/":  {ast.BinaryDiv, 5},
	"%":  {ast.BinaryMod, 5},
	"+":  {ast.BinaryAdd, 6},
	"-":  {ast.BinarySub, 6},
	"<<": {ast.BinaryShiftLeft, 7},
	">>": {ast.BinaryShiftRight, 7},
	"<":  {ast.BinaryLess, 8},
	"<=": {ast.BinaryLessEqual, 8},
	">":  {ast.BinaryGreater, 8},
	">=": {ast.BinaryGreaterEqual, 8},
	"in": {ast.BinaryIn, 8},
	"==": {ast.BinaryEqual, 9},
	"!=": {ast.BinaryNotEqual, 9},
	"&":  {ast.BinaryBitAnd, 10},
	"^":  {ast.BinaryBitXor, 11},
	"|":  {ast.BinaryBitOr, 12},
	"&&": {ast.BinaryAnd, 13},
	"||": {ast.BinaryOr, 14},
}

const maxLevel = 14

// ParseError reports a syntax error. Incomplete is set when the input ended
// before the expression did, which lets a REPL ask for more lines.
type ParseError struct {
	Span       ast.Span
	Message    string
	Incomplete bool
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Span, e.Message)
}

// Parse parses a complete Jsonnet document.
func Parse(filename string, source []byte) (ast.Expression, error) {
	tokens, err := Lex(filename, string(source))
	if err != nil {
		return nil, err
	}
	p := &parser{file: filename, tokens: tokens}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.Type != TokenEOF {
		return nil, p.unexpected(tok, "end of file")
	}
	return expr, nil
}

type parser struct {
	file   string
	tokens []Token
	pos    int
}

func (p *parser) peek() Token {
	return p.tokens[p.pos]
}

func (p *parser) peekAt(offset int) Token {
	if p.pos+offset < len(p.tokens) {
		return p.tokens[p.pos+offset]
	}
	return p.tokens[len(p.tokens)-1]
}

func (p *parser) next() Token {
	tok := p.tokens[p.pos]
	if tok.Type != TokenEOF {
		p.pos++
	}
	return tok
}

// last returns the most recently consumed token.
func (p *parser) last() Token {
	if p.pos == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.pos-1]
}

func (p *parser) is(typ TokenType, value string) bool {
	tok := p.peek()
	return tok.Type == typ && (value == "" || tok.Value == value)
}

func (p *parser) accept(typ TokenType, value string) bool {
	if p.is(typ, value) {
		p.next()
		return true
	}
	return false
}

func (p *parser) expect(typ TokenType, value string) (Token, error) {
	if p.is(typ, value) {
		return p.next(), nil
	}
	want := typ.String()
	if value != "" {
		want = fmt.Sprintf("%q", value)
	}
	return Token{}, p.unexpected(p.peek(), want)
}

func (p *parser) unexpected(tok Token, want string) error {
	got := tok.Type.String()
	if tok.Type != TokenEOF {
		got = fmt.Sprintf("%s %q", got, tok.Value)
	}
	return &ParseError{
		Span:       tok.Span,
		Message:    fmt.Sprintf("expected %s but got %s", want, got),
		Incomplete: tok.Type == TokenEOF,
	}
}

func (p *parser) errorAt(span ast.Span, format string, args ...any) error {
	return &ParseError{Span: span, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) expectIdent() (Token, error) {
	return p.expect(TokenIdent, "")
}

package parser

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"jsonnet/interpreter-go/pkg/ast"
)

// TokenType represents the type of a token.
type TokenType int

const (
	TokenEOF TokenType = iota
	TokenIdent
	TokenKeyword
	TokenNumber
	TokenString
	TokenOperator

	// Punctuation
	TokenBraceOpen    // {
	TokenBraceClose   // }
	TokenBracketOpen  // [
	TokenBracketClose // ]
	TokenParenOpen    // (
	TokenParenClose   // )
	TokenComma        // ,
	TokenDot          // .
	TokenSemicolon    // ;
)

func (t TokenType) String() string {
	switch t {
	case TokenEOF:
		return "end of file"
	case TokenIdent:
		return "identifier"
	case TokenKeyword:
		return "keyword"
	case TokenNumber:
		return "number"
	case TokenString:
		return "string"
	case TokenOperator:
		return "operator"
	case TokenBraceOpen:
		return "\"{\""
	case TokenBraceClose:
		return "\"}\""
	case TokenBracketOpen:
		return "\"[\""
	case TokenBracketClose:
		return "\"]\""
	case TokenParenOpen:
		return "\"(\""
	case TokenParenClose:
		return "\")\""
	case TokenComma:
		return "\",\""
	case TokenDot:
		return "\".\""
	case TokenSemicolon:
		return "\";\""
	default:
		return fmt.Sprintf("token(%d)", int(t))
	}
}

// Token is a lexed token. Value holds the decoded contents of strings and
// the literal text of everything else.
type Token struct {
	Type  TokenType
	Value string
	Span  ast.Span
}

var keywords = map[string]struct{}{
	"assert": {}, "else": {}, "error": {}, "false": {}, "for": {},
	"function": {}, "if": {}, "import": {}, "importstr": {}, "importbin": {},
	"in": {}, "local": {}, "null": {}, "tailstrict": {}, "then": {},
	"self": {}, "super": {}, "true": {},
}

// Longest operators first so that maximal munch picks them.
var operators = []string{
	":::", "::", "==", "!=", "<=", ">=", "<<", ">>", "&&", "||",
	":", "+", "-", "*", "/", "%", "<", ">", "!", "~", "&", "|", "^", "=", "$",
}

type lexer struct {
	file   string
	src    string
	pos    int
	line   int
	col    int
	tokens []Token
}

// Lex splits source into tokens.
func Lex(file, source string) ([]Token, error) {
	lx := &lexer{file: file, src: source, line: 1, col: 1}
	for {
		if err := lx.skipTrivia(); err != nil {
			return nil, err
		}
		if lx.pos >= len(lx.src) {
			here := lx.position()
			lx.tokens = append(lx.tokens, Token{Type: TokenEOF, Span: ast.Span{File: file, Start: here, End: here}})
			return lx.tokens, nil
		}
		if err := lx.next(); err != nil {
			return nil, err
		}
	}
}

func (lx *lexer) position() ast.Position {
	return ast.Position{Line: lx.line, Column: lx.col}
}

func (lx *lexer) advance(n int) {
	for i := 0; i < n && lx.pos < len(lx.src); i++ {
		if lx.src[lx.pos] == '\n' {
			lx.line++
			lx.col = 1
		} else if lx.src[lx.pos]&0xC0 != 0x80 {
			lx.col++
		}
		lx.pos++
	}
}

func (lx *lexer) peekByte(offset int) byte {
	if lx.pos+offset < len(lx.src) {
		return lx.src[lx.pos+offset]
	}
	return 0
}

func (lx *lexer) errorf(start ast.Position, incomplete bool, format string, args ...any) error {
	return &ParseError{
		Span:       ast.Span{File: lx.file, Start: start, End: lx.position()},
		Message:    fmt.Sprintf(format, args...),
		Incomplete: incomplete,
	}
}

func (lx *lexer) skipTrivia() error {
	for lx.pos < len(lx.src) {
		c := lx.src[lx.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			lx.advance(1)
		case c == '#' || (c == '/' && lx.peekByte(1) == '/'):
			for lx.pos < len(lx.src) && lx.src[lx.pos] != '\n' {
				lx.advance(1)
			}
		case c == '/' && lx.peekByte(1) == '*':
			start := lx.position()
			end := strings.Index(lx.src[lx.pos+2:], "*/")
			if end < 0 {
				lx.advance(len(lx.src) - lx.pos)
				return lx.errorf(start, true, "unterminated comment")
			}
			lx.advance(end + 4)
		default:
			return nil
		}
	}
	return nil
}

func (lx *lexer) emit(typ TokenType, value string, start ast.Position) {
	lx.tokens = append(lx.tokens, Token{
		Type:  typ,
		Value: value,
		Span:  ast.Span{File: lx.file, Start: start, End: lx.position()},
	})
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func (lx *lexer) next() error {
	start := lx.position()
	c := lx.src[lx.pos]
	switch c {
	case '{':
		lx.advance(1)
		lx.emit(TokenBraceOpen, "{", start)
		return nil
	case '}':
		lx.advance(1)
		lx.emit(TokenBraceClose, "}", start)
		return nil
	case '[':
		lx.advance(1)
		lx.emit(TokenBracketOpen, "[", start)
		return nil
	case ']':
		lx.advance(1)
		lx.emit(TokenBracketClose, "]", start)
		return nil
	case '(':
		lx.advance(1)
		lx.emit(TokenParenOpen, "(", start)
		return nil
	case ')':
		lx.advance(1)
		lx.emit(TokenParenClose, ")", start)
		return nil
	case ',':
		lx.advance(1)
		lx.emit(TokenComma, ",", start)
		return nil
	case '.':
		lx.advance(1)
		lx.emit(TokenDot, ".", start)
		return nil
	case ';':
		lx.advance(1)
		lx.emit(TokenSemicolon, ";", start)
		return nil
	case '"', '\'':
		return lx.lexString(start, c)
	case '@':
		q := lx.peekByte(1)
		if q != '"' && q != '\'' {
			return lx.errorf(start, false, "expected quote after @")
		}
		return lx.lexVerbatim(start, q)
	case '|':
		if strings.HasPrefix(lx.src[lx.pos:], "|||") {
			return lx.lexTextBlock(start)
		}
	}
	if isDigit(c) {
		return lx.lexNumber(start)
	}
	if isIdentStart(c) {
		end := lx.pos
		for end < len(lx.src) && (isIdentStart(lx.src[end]) || isDigit(lx.src[end])) {
			end++
		}
		word := lx.src[lx.pos:end]
		lx.advance(end - lx.pos)
		if _, ok := keywords[word]; ok {
			lx.emit(TokenKeyword, word, start)
		} else {
			lx.emit(TokenIdent, word, start)
		}
		return nil
	}
	for _, op := range operators {
		if strings.HasPrefix(lx.src[lx.pos:], op) {
			lx.advance(len(op))
			lx.emit(TokenOperator, op, start)
			return nil
		}
	}
	r, _ := utf8.DecodeRuneInString(lx.src[lx.pos:])
	return lx.errorf(start, false, "unexpected character %q", r)
}

func (lx *lexer) lexNumber(start ast.Position) error {
	end := lx.pos
	for end < len(lx.src) && isDigit(lx.src[end]) {
		end++
	}
	if end < len(lx.src) && lx.src[end] == '.' && end+1 < len(lx.src) && isDigit(lx.src[end+1]) {
		end++
		for end < len(lx.src) && isDigit(lx.src[end]) {
			end++
		}
	}
	if end < len(lx.src) && (lx.src[end] == 'e' || lx.src[end] == 'E') {
		exp := end + 1
		if exp < len(lx.src) && (lx.src[exp] == '+' || lx.src[exp] == '-') {
			exp++
		}
		if exp < len(lx.src) && isDigit(lx.src[exp]) {
			end = exp
			for end < len(lx.src) && isDigit(lx.src[end]) {
				end++
			}
		} else {
			lx.advance(exp - lx.pos)
			return lx.errorf(start, false, "malformed exponent in number")
		}
	}
	text := lx.src[lx.pos:end]
	lx.advance(end - lx.pos)
	lx.emit(TokenNumber, text, start)
	return nil
}

func (lx *lexer) lexString(start ast.Position, quote byte) error {
	lx.advance(1)
	var b strings.Builder
	for {
		if lx.pos >= len(lx.src) {
			return lx.errorf(start, true, "unterminated string")
		}
		c := lx.src[lx.pos]
		if c == quote {
			lx.advance(1)
			lx.emit(TokenString, b.String(), start)
			return nil
		}
		if c != '\\' {
			r, size := utf8.DecodeRuneInString(lx.src[lx.pos:])
			b.WriteRune(r)
			lx.advance(size)
			continue
		}
		lx.advance(1)
		if lx.pos >= len(lx.src) {
			return lx.errorf(start, true, "unterminated string")
		}
		esc := lx.src[lx.pos]
		lx.advance(1)
		switch esc {
		case '"', '\'', '\\', '/':
			b.WriteByte(esc)
		case 'b':
			b.WriteByte('\b')
		case 'f':
			b.WriteByte('\f')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		case 'u':
			r, err := lx.lexUnicodeEscape(start)
			if err != nil {
				return err
			}
			b.WriteRune(r)
		default:
			return lx.errorf(start, false, "unknown escape sequence \\%c", esc)
		}
	}
}

func (lx *lexer) readHex4(start ast.Position) (rune, error) {
	if lx.pos+4 > len(lx.src) {
		return 0, lx.errorf(start, false, "truncated unicode escape")
	}
	var r rune
	for i := 0; i < 4; i++ {
		c := lx.src[lx.pos+i]
		var d byte
		switch {
		case c >= '0' && c <= '9':
			d = c - '0'
		case c >= 'a' && c <= 'f':
			d = c - 'a' + 10
		case c >= 'A' && c <= 'F':
			d = c - 'A' + 10
		default:
			return 0, lx.errorf(start, false, "invalid hex digit %q in unicode escape", c)
		}
		r = r<<4 | rune(d)
	}
	lx.advance(4)
	return r, nil
}

func (lx *lexer) lexUnicodeEscape(start ast.Position) (rune, error) {
	r, err := lx.readHex4(start)
	if err != nil {
		return 0, err
	}
	if r >= 0xD800 && r < 0xDC00 && strings.HasPrefix(lx.src[lx.pos:], "\\u") {
		lx.advance(2)
		lo, err := lx.readHex4(start)
		if err != nil {
			return 0, err
		}
		if lo >= 0xDC00 && lo < 0xE000 {
			return (r-0xD800)<<10 + (lo - 0xDC00) + 0x10000, nil
		}
		return 0, lx.errorf(start, false, "invalid surrogate pair")
	}
	return r, nil
}

func (lx *lexer) lexVerbatim(start ast.Position, quote byte) error {
	lx.advance(2)
	var b strings.Builder
	for {
		if lx.pos >= len(lx.src) {
			return lx.errorf(start, true, "unterminated verbatim string")
		}
		c := lx.src[lx.pos]
		if c == quote {
			if lx.peekByte(1) == quote {
				b.WriteByte(quote)
				lx.advance(2)
				continue
			}
			lx.advance(1)
			lx.emit(TokenString, b.String(), start)
			return nil
		}
		b.WriteByte(c)
		lx.advance(1)
	}
}

// lexTextBlock reads a `|||` block. The indentation of the first line is
// stripped from every line; a `|||-` opener drops the final newline.
func (lx *lexer) lexTextBlock(start ast.Position) error {
	lx.advance(3)
	chomp := false
	if lx.peekByte(0) == '-' {
		chomp = true
		lx.advance(1)
	}
	for lx.pos < len(lx.src) && (lx.src[lx.pos] == ' ' || lx.src[lx.pos] == '\t' || lx.src[lx.pos] == '\r') {
		lx.advance(1)
	}
	if lx.pos >= len(lx.src) {
		return lx.errorf(start, true, "unterminated text block")
	}
	if lx.src[lx.pos] != '\n' {
		return lx.errorf(start, false, "text block syntax requires new line after |||")
	}
	lx.advance(1)

	var b strings.Builder
	indent := ""
	for {
		if lx.pos >= len(lx.src) {
			return lx.errorf(start, true, "unterminated text block")
		}
		lineEnd := strings.IndexByte(lx.src[lx.pos:], '\n')
		var line string
		if lineEnd < 0 {
			line = lx.src[lx.pos:]
		} else {
			line = lx.src[lx.pos : lx.pos+lineEnd]
		}
		trimmed := strings.TrimLeft(line, " \t")
		if indent == "" {
			if trimmed == "" && lineEnd >= 0 {
				b.WriteByte('\n')
				lx.advance(lineEnd + 1)
				continue
			}
			indent = line[:len(line)-len(trimmed)]
			if indent == "" {
				return lx.errorf(start, false, "text block's first line must start with whitespace")
			}
		}
		if strings.HasPrefix(line, indent) {
			b.WriteString(line[len(indent):])
			if lineEnd < 0 {
				return lx.errorf(start, true, "unterminated text block")
			}
			b.WriteByte('\n')
			lx.advance(lineEnd + 1)
			continue
		}
		if trimmed == "" && lineEnd >= 0 {
			b.WriteByte('\n')
			lx.advance(lineEnd + 1)
			continue
		}
		if !strings.HasPrefix(trimmed, "|||") {
			return lx.errorf(start, false, "text block not terminated with |||")
		}
		lx.advance(len(line) - len(trimmed) + 3)
		text := b.String()
		if chomp {
			text = strings.TrimSuffix(text, "\n")
		}
		lx.emit(TokenString, text, start)
		return nil
	}
}

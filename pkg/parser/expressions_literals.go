package parser

import (
	"strconv"

	"jsonnet/interpreter-go/pkg/ast"
)

// parsePrimary parses a terminal or a prefix form. The returned flag is
// false for forms like `local` and `if` whose trailing expression already
// consumed everything to its right.
func (p *parser) parsePrimary() (ast.Expression, bool, error) {
	tok := p.next()
	switch tok.Type {
	case TokenNumber:
		value, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, false, p.errorAt(tok.Span, "invalid number literal %s", tok.Value)
		}
		return annotate(p, ast.Expression(ast.NewNumberLiteral(value)), tok), true, nil
	case TokenString:
		return annotate(p, ast.Expression(ast.NewStringLiteral(tok.Value)), tok), true, nil
	case TokenIdent:
		return annotate(p, ast.Expression(ast.NewIdentifier(tok.Value)), tok), true, nil
	case TokenParenOpen:
		inner, err := p.parseExpression()
		if err != nil {
			return nil, false, err
		}
		if _, err := p.expect(TokenParenClose, ""); err != nil {
			return nil, false, err
		}
		return inner, true, nil
	case TokenBracketOpen:
		expr, err := p.parseArray(tok)
		return expr, true, err
	case TokenBraceOpen:
		expr, err := p.parseObjectBody(tok)
		return expr, true, err
	case TokenOperator:
		if tok.Value == "$" {
			return annotate(p, ast.Expression(ast.NewDollarExpression()), tok), true, nil
		}
	case TokenKeyword:
		return p.parseKeyword(tok)
	}
	return nil, false, p.unexpected(tok, "expression")
}

func (p *parser) parseKeyword(tok Token) (ast.Expression, bool, error) {
	switch tok.Value {
	case "null":
		return annotate(p, ast.Expression(ast.NewNullLiteral()), tok), true, nil
	case "true", "false":
		return annotate(p, ast.Expression(ast.NewBooleanLiteral(tok.Value == "true")), tok), true, nil
	case "self":
		return annotate(p, ast.Expression(ast.NewSelfExpression()), tok), true, nil
	case "super":
		return p.parseSuper(tok)
	case "local":
		expr, err := p.parseLocal(tok)
		return expr, false, err
	case "if":
		expr, err := p.parseIf(tok)
		return expr, false, err
	case "function":
		if _, err := p.expect(TokenParenOpen, ""); err != nil {
			return nil, false, err
		}
		params, err := p.parseParameters()
		if err != nil {
			return nil, false, err
		}
		body, err := p.parseExpression()
		if err != nil {
			return nil, false, err
		}
		return annotate(p, ast.Expression(ast.NewFunctionExpression(params, body)), tok), false, nil
	case "assert":
		expr, err := p.parseAssert(tok)
		return expr, false, err
	case "error":
		msg, err := p.parseExpression()
		if err != nil {
			return nil, false, err
		}
		return annotate(p, ast.Expression(ast.NewErrorExpression(msg)), tok), false, nil
	case "import", "importstr", "importbin":
		path, err := p.expect(TokenString, "")
		if err != nil {
			return nil, false, err
		}
		return annotate(p, ast.Expression(ast.NewImportExpression(ast.ImportKind(tok.Value), path.Value)), tok), true, nil
	}
	return nil, false, p.unexpected(tok, "expression")
}

func (p *parser) parseSuper(tok Token) (ast.Expression, bool, error) {
	switch {
	case p.accept(TokenDot, ""):
		name, err := p.expectIdent()
		if err != nil {
			return nil, false, err
		}
		index := annotate(p, ast.Expression(ast.NewStringLiteral(name.Value)), name)
		return annotate(p, ast.Expression(ast.NewSuperIndex(index)), tok), true, nil
	case p.accept(TokenBracketOpen, ""):
		index, err := p.parseExpression()
		if err != nil {
			return nil, false, err
		}
		if _, err := p.expect(TokenBracketClose, ""); err != nil {
			return nil, false, err
		}
		return annotate(p, ast.Expression(ast.NewSuperIndex(index)), tok), true, nil
	}
	return nil, false, p.errorAt(tok.Span, "super must be followed by . or [")
}

func (p *parser) parseLocal(tok Token) (ast.Expression, error) {
	var binds []*ast.Bind
	seen := make(map[string]struct{})
	for {
		bind, err := p.parseBind()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[bind.Name]; dup {
			return nil, p.errorAt(bind.Span(), "duplicate local var: %s", bind.Name)
		}
		seen[bind.Name] = struct{}{}
		binds = append(binds, bind)
		if p.accept(TokenSemicolon, "") {
			break
		}
		if _, err := p.expect(TokenComma, ""); err != nil {
			return nil, err
		}
	}
	body, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return annotate(p, ast.Expression(ast.NewLocalExpression(binds, body)), tok), nil
}

func (p *parser) parseIf(tok Token) (ast.Expression, error) {
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenKeyword, "then"); err != nil {
		return nil, err
	}
	then, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	var elseExpr ast.Expression
	if p.accept(TokenKeyword, "else") {
		if elseExpr, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	return annotate(p, ast.Expression(ast.NewIfExpression(cond, then, elseExpr)), tok), nil
}

func (p *parser) parseAssert(tok Token) (ast.Expression, error) {
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	var msg ast.Expression
	if p.accept(TokenOperator, ":") {
		if msg, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(TokenSemicolon, ""); err != nil {
		return nil, err
	}
	body, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return annotate(p, ast.Expression(ast.NewAssertExpression(cond, msg, body)), tok), nil
}

// parseArray parses an array literal or comprehension after its `[`.
func (p *parser) parseArray(open Token) (ast.Expression, error) {
	var elements []ast.Expression
	for !p.accept(TokenBracketClose, "") {
		elem, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if p.is(TokenKeyword, "for") || (p.is(TokenComma, "") && p.peekAt(1).Type == TokenKeyword && p.peekAt(1).Value == "for") {
			if len(elements) > 0 {
				return nil, p.errorAt(elem.Span(), "array comprehension must have a single body expression")
			}
			p.accept(TokenComma, "")
			specs, err := p.parseCompSpecs()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenBracketClose, ""); err != nil {
				return nil, err
			}
			return annotate(p, ast.Expression(ast.NewArrayComprehension(elem, specs)), open), nil
		}
		elements = append(elements, elem)
		if !p.accept(TokenComma, "") {
			if _, err := p.expect(TokenBracketClose, ""); err != nil {
				return nil, err
			}
			break
		}
	}
	return annotate(p, ast.Expression(ast.NewArrayLiteral(elements)), open), nil
}

// parseObjectBody parses an object literal or comprehension after its `{`.
func (p *parser) parseObjectBody(open Token) (ast.Expression, error) {
	var members []ast.ObjectMember
	for !p.accept(TokenBraceClose, "") {
		member, err := p.parseObjectMember()
		if err != nil {
			return nil, err
		}
		members = append(members, member)
		comma := p.accept(TokenComma, "")
		if p.is(TokenKeyword, "for") {
			return p.finishObjectComprehension(open, members)
		}
		if !comma {
			if _, err := p.expect(TokenBraceClose, ""); err != nil {
				return nil, err
			}
			break
		}
	}
	seen := make(map[string]struct{})
	for _, m := range members {
		f, ok := m.(*ast.ObjectField)
		if !ok || f.NameExpr != nil {
			continue
		}
		if _, dup := seen[f.Name]; dup {
			return nil, p.errorAt(f.Span(), "duplicate field: %s", f.Name)
		}
		seen[f.Name] = struct{}{}
	}
	return annotate(p, ast.Expression(ast.NewObjectLiteral(members)), open), nil
}

func (p *parser) finishObjectComprehension(open Token, members []ast.ObjectMember) (ast.Expression, error) {
	var field *ast.ObjectField
	var locals []*ast.Bind
	for _, m := range members {
		switch m := m.(type) {
		case *ast.ObjectLocal:
			locals = append(locals, m.Bind)
		case *ast.ObjectField:
			if field != nil {
				return nil, p.errorAt(m.Span(), "object comprehension can only have one field")
			}
			field = m
		case *ast.ObjectAssert:
			return nil, p.errorAt(m.Span(), "object comprehension cannot have asserts")
		}
	}
	if field == nil {
		return nil, p.errorAt(open.Span, "object comprehension must have a field")
	}
	if field.NameExpr == nil {
		return nil, p.errorAt(field.Span(), "object comprehension field name must be a computed [expression]")
	}
	if field.IsMethod {
		return nil, p.errorAt(field.Span(), "object comprehension cannot define a method")
	}
	if field.Visibility != ast.VisibilityInherit {
		return nil, p.errorAt(field.Span(), "object comprehension field must use ':'")
	}
	specs, err := p.parseCompSpecs()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(TokenBraceClose, ""); err != nil {
		return nil, err
	}
	return annotate(p, ast.Expression(ast.NewObjectComprehension(locals, field.NameExpr, field.Plus, field.Value, specs)), open), nil
}

func (p *parser) parseObjectMember() (ast.ObjectMember, error) {
	start := p.peek()
	switch {
	case start.Type == TokenKeyword && start.Value == "local":
		p.next()
		bind, err := p.parseBind()
		if err != nil {
			return nil, err
		}
		return annotate(p, ast.ObjectMember(ast.NewObjectLocal(bind)), start), nil
	case start.Type == TokenKeyword && start.Value == "assert":
		p.next()
		cond, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		var msg ast.Expression
		if p.accept(TokenOperator, ":") {
			if msg, err = p.parseExpression(); err != nil {
				return nil, err
			}
		}
		return annotate(p, ast.ObjectMember(ast.NewObjectAssert(cond, msg)), start), nil
	}

	var name string
	var nameExpr ast.Expression
	switch tok := p.next(); tok.Type {
	case TokenIdent, TokenString:
		name = tok.Value
	case TokenBracketOpen:
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenBracketClose, ""); err != nil {
			return nil, err
		}
		nameExpr = expr
	default:
		return nil, p.unexpected(tok, "field name")
	}

	var params []*ast.Parameter
	isMethod := false
	if p.accept(TokenParenOpen, "") {
		var err error
		if params, err = p.parseParameters(); err != nil {
			return nil, err
		}
		isMethod = true
	}
	plus := p.accept(TokenOperator, "+")
	if plus && isMethod {
		return nil, p.errorAt(start.Span, "cannot use +: syntax on a method")
	}
	vis, err := p.parseVisibility()
	if err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}

	var field *ast.ObjectField
	switch {
	case isMethod:
		field = ast.NewMethodField(name, vis, params, value)
		field.NameExpr = nameExpr
	case nameExpr != nil:
		field = ast.NewComputedObjectField(nameExpr, vis, plus, value)
	default:
		field = ast.NewObjectField(name, vis, plus, value)
	}
	return annotate(p, ast.ObjectMember(field), start), nil
}

func (p *parser) parseVisibility() (ast.Visibility, error) {
	tok := p.peek()
	if tok.Type == TokenOperator {
		switch tok.Value {
		case ":":
			p.next()
			return ast.VisibilityInherit, nil
		case "::":
			p.next()
			return ast.VisibilityHidden, nil
		case ":::":
			p.next()
			return ast.VisibilityUnhide, nil
		}
	}
	return "", p.unexpected(tok, "\":\", \"::\" or \":::\"")
}

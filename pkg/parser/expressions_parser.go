package parser

import (
	"jsonnet/interpreter-go/pkg/ast"
)

func (p *parser) parseExpression() (ast.Expression, error) {
	return p.parseBinary(maxLevel)
}

func (p *parser) binaryOperator() (ast.BinaryOperator, int, bool) {
	tok := p.peek()
	if tok.Type != TokenOperator && !(tok.Type == TokenKeyword && tok.Value == "in") {
		return "", 0, false
	}
	entry, ok := infixOperatorLevels[tok.Value]
	if !ok {
		return "", 0, false
	}
	return entry.op, entry.level, true
}

func (p *parser) parseBinary(level int) (ast.Expression, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		op, opLevel, ok := p.binaryOperator()
		if !ok || opLevel > level {
			return lhs, nil
		}
		p.next()
		if op == ast.BinaryIn && p.accept(TokenKeyword, "super") {
			lhs = annotateFrom(p, ast.Expression(ast.NewInSuper(lhs)), lhs)
			continue
		}
		rhs, err := p.parseBinary(opLevel - 1)
		if err != nil {
			return nil, err
		}
		lhs = annotateFrom(p, ast.Expression(ast.NewBinaryExpression(op, lhs, rhs)), lhs)
	}
}

var unaryOperators = map[string]ast.UnaryOperator{
	"-": ast.UnaryMinus,
	"+": ast.UnaryPlus,
	"!": ast.UnaryNot,
	"~": ast.UnaryBitNot,
}

func (p *parser) parseUnary() (ast.Expression, error) {
	tok := p.peek()
	if tok.Type == TokenOperator {
		if op, ok := unaryOperators[tok.Value]; ok {
			p.next()
			operand, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			return annotate(p, ast.Expression(ast.NewUnaryExpression(op, operand)), tok), nil
		}
	}
	expr, open, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if !open {
		return expr, nil
	}
	return p.parsePostfix(expr)
}

// parsePostfix applies field access, indexing, slicing, calls and object
// extension to expr.
func (p *parser) parsePostfix(expr ast.Expression) (ast.Expression, error) {
	for {
		tok := p.peek()
		switch tok.Type {
		case TokenDot:
			p.next()
			name, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			index := annotate(p, ast.Expression(ast.NewStringLiteral(name.Value)), name)
			expr = annotateFrom(p, ast.Expression(ast.NewIndexExpression(expr, index)), expr)
		case TokenBracketOpen:
			p.next()
			next, err := p.parseIndexSuffix(expr)
			if err != nil {
				return nil, err
			}
			expr = next
		case TokenParenOpen:
			p.next()
			args, err := p.parseArguments()
			if err != nil {
				return nil, err
			}
			tailStrict := p.accept(TokenKeyword, "tailstrict")
			expr = annotateFrom(p, ast.Expression(ast.NewApplyExpression(expr, args, tailStrict)), expr)
		case TokenBraceOpen:
			open := p.next()
			obj, err := p.parseObjectBody(open)
			if err != nil {
				return nil, err
			}
			expr = annotateFrom(p, ast.Expression(ast.NewObjectExtend(expr, obj)), expr)
		default:
			return expr, nil
		}
	}
}

// parseIndexSuffix parses the part of `target[...]` after the bracket.
func (p *parser) parseIndexSuffix(target ast.Expression) (ast.Expression, error) {
	var start, end, step ast.Expression
	var err error
	if !p.is(TokenOperator, ":") && !p.is(TokenOperator, "::") {
		start, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
		if p.accept(TokenBracketClose, "") {
			return annotateFrom(p, ast.Expression(ast.NewIndexExpression(target, start)), target), nil
		}
	}
	switch {
	case p.accept(TokenOperator, "::"):
		if !p.is(TokenBracketClose, "") {
			if step, err = p.parseExpression(); err != nil {
				return nil, err
			}
		}
	case p.accept(TokenOperator, ":"):
		if !p.is(TokenBracketClose, "") && !p.is(TokenOperator, ":") {
			if end, err = p.parseExpression(); err != nil {
				return nil, err
			}
		}
		if p.accept(TokenOperator, ":") && !p.is(TokenBracketClose, "") {
			if step, err = p.parseExpression(); err != nil {
				return nil, err
			}
		}
	default:
		return nil, p.unexpected(p.peek(), "\"]\" or \":\"")
	}
	if _, err := p.expect(TokenBracketClose, ""); err != nil {
		return nil, err
	}
	return annotateFrom(p, ast.Expression(ast.NewSliceExpression(target, start, end, step)), target), nil
}

func (p *parser) parseArguments() ([]*ast.Argument, error) {
	var args []*ast.Argument
	named := false
	for !p.accept(TokenParenClose, "") {
		start := p.peek()
		name := ""
		if start.Type == TokenIdent && p.peekAt(1).Type == TokenOperator && p.peekAt(1).Value == "=" {
			name = start.Value
			p.next()
			p.next()
			named = true
		} else if named {
			return nil, p.errorAt(start.Span, "positional argument after a named argument")
		}
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		args = append(args, annotate(p, ast.NewArgument(name, value), start))
		if !p.accept(TokenComma, "") {
			if _, err := p.expect(TokenParenClose, ""); err != nil {
				return nil, err
			}
			break
		}
	}
	return args, nil
}

// parseParameters parses a parameter list after its opening parenthesis.
func (p *parser) parseParameters() ([]*ast.Parameter, error) {
	var params []*ast.Parameter
	seen := make(map[string]struct{})
	for !p.accept(TokenParenClose, "") {
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[name.Value]; dup {
			return nil, p.errorAt(name.Span, "duplicate parameter: %s", name.Value)
		}
		seen[name.Value] = struct{}{}
		var def ast.Expression
		if p.accept(TokenOperator, "=") {
			if def, err = p.parseExpression(); err != nil {
				return nil, err
			}
		}
		params = append(params, annotate(p, ast.NewParameter(name.Value, def), name))
		if !p.accept(TokenComma, "") {
			if _, err := p.expect(TokenParenClose, ""); err != nil {
				return nil, err
			}
			break
		}
	}
	return params, nil
}

// parseBind parses `name = expr` or `name(params) = expr`.
func (p *parser) parseBind() (*ast.Bind, error) {
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if p.accept(TokenParenOpen, "") {
		params, err := p.parseParameters()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(TokenOperator, "="); err != nil {
			return nil, err
		}
		body, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		return annotate(p, ast.NewFunctionBind(name.Value, params, body), name), nil
	}
	if _, err := p.expect(TokenOperator, "="); err != nil {
		return nil, err
	}
	value, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return annotate(p, ast.NewBind(name.Value, value), name), nil
}

// parseCompSpecs parses `for x in e` followed by any mix of for/if clauses.
func (p *parser) parseCompSpecs() ([]ast.CompSpec, error) {
	var specs []ast.CompSpec
	for {
		tok := p.peek()
		switch {
		case tok.Type == TokenKeyword && tok.Value == "for":
			p.next()
			variable, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(TokenKeyword, "in"); err != nil {
				return nil, err
			}
			iterable, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			specs = append(specs, annotate(p, ast.NewForSpec(variable.Value, iterable), tok))
		case tok.Type == TokenKeyword && tok.Value == "if" && len(specs) > 0:
			p.next()
			cond, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			specs = append(specs, annotate(p, ast.NewIfSpec(cond), tok))
		default:
			if len(specs) == 0 {
				return nil, p.unexpected(tok, "\"for\"")
			}
			return specs, nil
		}
	}
}

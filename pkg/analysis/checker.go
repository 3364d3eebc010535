// Package analysis checks a parsed program for mistakes that can be found
// without evaluating it: unbound variables, self, super and $ used outside
// an object, and unused locals.
package analysis

import (
	"fmt"
	"sort"

	"jsonnet/interpreter-go/pkg/ast"
	"jsonnet/interpreter-go/pkg/runtime"
)

// Severity grades a diagnostic.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Diagnostic represents an analysis error or warning. Kind is the runtime
// error the program would raise if the offending code were evaluated; it is
// meaningless for warnings.
type Diagnostic struct {
	Severity Severity
	Kind     runtime.ErrorKind
	Message  string
	Span     ast.Span
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("%s: %s: %s", d.Span, d.Severity, d.Message)
}

// Checker traverses expression trees and records diagnostics.
type Checker struct {
	global      *Environment
	objectDepth int
	diagnostics []Diagnostic
}

// New returns a checker whose global scope holds std plus the given names.
func New(predefined ...string) *Checker {
	global := NewEnvironment(nil)
	global.Define("std", ast.Span{}, false)
	for _, name := range predefined {
		global.Define(name, ast.Span{}, false)
	}
	return &Checker{global: global}
}

// Check analyses expr and returns its diagnostics ordered by position.
func (c *Checker) Check(expr ast.Expression) []Diagnostic {
	c.objectDepth = 0
	c.diagnostics = nil
	c.checkExpression(c.global.Extend(), expr)
	diags := c.diagnostics
	sort.SliceStable(diags, func(i, j int) bool {
		a, b := diags[i].Span.Start, diags[j].Span.Start
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	return diags
}

// HasErrors reports whether any diagnostic is an error.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// FirstError converts the first error diagnostic into the runtime error the
// evaluator would have raised.
func FirstError(diags []Diagnostic) error {
	for _, d := range diags {
		if d.Severity == SeverityError {
			return runtime.NewError(d.Kind, "%s", d.Message).WithFrame(d.Span, "")
		}
	}
	return nil
}

func (c *Checker) report(kind runtime.ErrorKind, node ast.Node, format string, args ...any) {
	c.diagnostics = append(c.diagnostics, Diagnostic{
		Severity: SeverityError,
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
		Span:     node.Span(),
	})
}

func (c *Checker) closeScope(env *Environment) {
	for _, sym := range env.unused() {
		c.diagnostics = append(c.diagnostics, Diagnostic{
			Severity: SeverityWarning,
			Message:  fmt.Sprintf("unused local: %s", sym.name),
			Span:     sym.span,
		})
	}
}

func (c *Checker) checkExpression(env *Environment, expr ast.Expression) {
	if expr == nil {
		return
	}
	switch n := expr.(type) {
	case *ast.NullLiteral, *ast.BooleanLiteral, *ast.NumberLiteral, *ast.StringLiteral, *ast.ImportExpression:
	case *ast.Identifier:
		if !env.Lookup(n.Name) {
			c.report(runtime.ErrVariableNotDefined, n, "variable is not defined: %s", n.Name)
		}
	case *ast.SelfExpression:
		if c.objectDepth == 0 {
			c.report(runtime.ErrCantUseSelfOutsideOfObject, n, "can't use self outside of an object")
		}
	case *ast.DollarExpression:
		if c.objectDepth == 0 {
			c.report(runtime.ErrNoTopLevelObjectFound, n, "no top-level object found for $")
		}
	case *ast.SuperIndex:
		c.checkSuper(n)
		c.checkExpression(env, n.Index)
	case *ast.InSuper:
		c.checkSuper(n)
		c.checkExpression(env, n.Key)
	case *ast.ArrayLiteral:
		for _, el := range n.Elements {
			c.checkExpression(env, el)
		}
	case *ast.ArrayComprehension:
		inner := c.checkSpecs(env, n.Specs)
		c.checkExpression(inner, n.Body)
	case *ast.LocalExpression:
		inner := c.bindLocals(env, n.Binds)
		c.checkExpression(inner, n.Body)
		c.closeScope(inner)
	case *ast.IfExpression:
		c.checkExpression(env, n.Condition)
		c.checkExpression(env, n.Then)
		c.checkExpression(env, n.Else)
	case *ast.ErrorExpression:
		c.checkExpression(env, n.Message)
	case *ast.AssertExpression:
		c.checkExpression(env, n.Condition)
		c.checkExpression(env, n.Message)
		c.checkExpression(env, n.Body)
	case *ast.IndexExpression:
		c.checkExpression(env, n.Target)
		c.checkExpression(env, n.Index)
	case *ast.SliceExpression:
		c.checkExpression(env, n.Target)
		c.checkExpression(env, n.Start)
		c.checkExpression(env, n.End)
		c.checkExpression(env, n.Step)
	case *ast.FunctionExpression:
		c.checkFunction(env, n.Params, n.Body)
	case *ast.ApplyExpression:
		c.checkExpression(env, n.Target)
		for _, arg := range n.Args {
			c.checkExpression(env, arg.Value)
		}
	case *ast.UnaryExpression:
		c.checkExpression(env, n.Operand)
	case *ast.BinaryExpression:
		c.checkExpression(env, n.Left)
		c.checkExpression(env, n.Right)
	case *ast.ObjectLiteral:
		c.checkObject(env, n)
	case *ast.ObjectComprehension:
		c.checkObjectComprehension(env, n)
	case *ast.ObjectExtend:
		c.checkExpression(env, n.Base)
		c.checkExpression(env, n.Object)
	}
}

func (c *Checker) checkSuper(node ast.Node) {
	if c.objectDepth == 0 {
		c.report(runtime.ErrCantUseSuperOutsideOfObject, node, "can't use super outside of an object")
	}
}

// bindLocals defines every bind before checking any value, since local
// bindings are mutually recursive.
func (c *Checker) bindLocals(env *Environment, binds []*ast.Bind) *Environment {
	inner := env.Extend()
	for _, b := range binds {
		inner.Define(b.Name, b.Span(), true)
	}
	for _, b := range binds {
		if b.IsFunction {
			c.checkFunction(inner, b.Params, b.Value)
			continue
		}
		c.checkExpression(inner, b.Value)
	}
	return inner
}

// checkFunction checks defaults with only the earlier parameters in scope,
// then the body with all of them.
func (c *Checker) checkFunction(env *Environment, params []*ast.Parameter, body ast.Expression) {
	scope := env.Extend()
	for _, p := range params {
		c.checkExpression(scope, p.Default)
		scope.Define(p.Name, p.Span(), false)
	}
	c.checkExpression(scope, body)
}

// checkSpecs walks for/if specs in order, each seeing the variables of the
// specs before it.
func (c *Checker) checkSpecs(env *Environment, specs []ast.CompSpec) *Environment {
	scope := env
	for _, spec := range specs {
		switch s := spec.(type) {
		case *ast.ForSpec:
			c.checkExpression(scope, s.Iterable)
			scope = scope.Extend()
			scope.Define(s.Variable, s.Span(), false)
		case *ast.IfSpec:
			c.checkExpression(scope, s.Condition)
		}
	}
	return scope
}

func (c *Checker) checkObject(env *Environment, n *ast.ObjectLiteral) {
	// Computed names are evaluated outside the object.
	for _, m := range n.Members {
		if f, ok := m.(*ast.ObjectField); ok && f.NameExpr != nil {
			c.checkExpression(env, f.NameExpr)
		}
	}

	var locals []*ast.Bind
	for _, m := range n.Members {
		if l, ok := m.(*ast.ObjectLocal); ok {
			locals = append(locals, l.Bind)
		}
	}
	c.objectDepth++
	defer func() { c.objectDepth-- }()
	inner := c.bindLocals(env, locals)
	for _, m := range n.Members {
		switch member := m.(type) {
		case *ast.ObjectField:
			if member.IsMethod {
				c.checkFunction(inner, member.Params, member.Value)
				continue
			}
			c.checkExpression(inner, member.Value)
		case *ast.ObjectAssert:
			c.checkExpression(inner, member.Condition)
			c.checkExpression(inner, member.Message)
		}
	}
	c.closeScope(inner)
}

func (c *Checker) checkObjectComprehension(env *Environment, n *ast.ObjectComprehension) {
	scope := c.checkSpecs(env, n.Specs)
	c.checkExpression(scope, n.Key)

	c.objectDepth++
	defer func() { c.objectDepth-- }()
	inner := c.bindLocals(scope, n.Locals)
	c.checkExpression(inner, n.Value)
	c.closeScope(inner)
}

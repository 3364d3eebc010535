package interpreter

import (
	"jsonnet/interpreter-go/pkg/ast"
	"jsonnet/interpreter-go/pkg/runtime"
)

func visibilityOf(v ast.Visibility) runtime.Visibility {
	switch v {
	case ast.VisibilityHidden:
		return runtime.VisibilityHidden
	case ast.VisibilityUnhide:
		return runtime.VisibilityUnhide
	}
	return runtime.VisibilityInherit
}

// fieldContext is the context a field body runs in: self and super bound,
// then the object's locals layered on top.
func (i *Interpreter) fieldContext(outer *runtime.Context, locals []*ast.Bind, self *runtime.ObjectValue, super *runtime.SuperObject) (*runtime.Context, error) {
	return i.bindLocals(locals, outer.WithSelf(self, super))
}

// fieldName evaluates a computed field name. skip is set for null names.
func (i *Interpreter) fieldName(expr ast.Expression, ctx *runtime.Context) (name string, skip bool, err error) {
	v, err := i.evaluateExpression(expr, ctx)
	if err != nil {
		return "", false, err
	}
	switch k := v.(type) {
	case runtime.StringValue:
		return k.Str(), false, nil
	case runtime.NullValue:
		return "", true, nil
	}
	return "", false, located(runtime.NewError(runtime.ErrFieldMustBeStringGot, "field name must be string, got %s", runtime.TypeName(v)), expr)
}

func (i *Interpreter) evaluateObjectLiteral(n *ast.ObjectLiteral, ctx *runtime.Context) (runtime.Value, error) {
	var locals []*ast.Bind
	for _, m := range n.Members {
		if l, ok := m.(*ast.ObjectLocal); ok {
			locals = append(locals, l.Bind)
		}
	}

	b := runtime.NewObjectBuilder()
	for _, m := range n.Members {
		switch member := m.(type) {
		case *ast.ObjectField:
			name := member.Name
			if member.NameExpr != nil {
				computed, skip, err := i.fieldName(member.NameExpr, ctx)
				if err != nil {
					return nil, err
				}
				if skip {
					continue
				}
				name = computed
			}
			if err := b.AddField(name, i.objectField(member, name, locals, ctx)); err != nil {
				return nil, located(err, member)
			}
		case *ast.ObjectAssert:
			b.AddAssertion(func(self *runtime.ObjectValue, super *runtime.SuperObject) error {
				fctx, err := i.fieldContext(ctx, locals, self, super)
				if err != nil {
					return err
				}
				return i.checkAssertion(member.Condition, member.Message, fctx, member)
			})
		}
	}
	return b.Build(), nil
}

func (i *Interpreter) objectField(member *ast.ObjectField, name string, locals []*ast.Bind, ctx *runtime.Context) runtime.ObjectField {
	if member.IsMethod {
		// Methods are never manifested, whatever separator they use.
		return runtime.ObjectField{
			Visibility: runtime.VisibilityHidden,
			Span:       member.Span(),
			Bind: func(self *runtime.ObjectValue, super *runtime.SuperObject) (runtime.Value, error) {
				fctx, err := i.fieldContext(ctx, locals, self, super)
				if err != nil {
					return nil, err
				}
				return &runtime.FunctionValue{Name: name, Params: member.Params, Body: member.Value, Closure: fctx}, nil
			},
		}
	}
	return runtime.ObjectField{
		Visibility: visibilityOf(member.Visibility),
		Add:        member.Plus,
		Span:       member.Span(),
		Bind: func(self *runtime.ObjectValue, super *runtime.SuperObject) (runtime.Value, error) {
			fctx, err := i.fieldContext(ctx, locals, self, super)
			if err != nil {
				return nil, err
			}
			return i.framed(member.Value, fctx)
		},
	}
}

func (i *Interpreter) evaluateObjectComprehension(n *ast.ObjectComprehension, ctx *runtime.Context) (runtime.Value, error) {
	b := runtime.NewObjectBuilder()
	err := i.forEachBinding(n.Specs, ctx, func(iter *runtime.Context) error {
		name, skip, err := i.fieldName(n.Key, iter)
		if err != nil || skip {
			return err
		}
		field := runtime.ObjectField{
			Visibility: runtime.VisibilityInherit,
			Add:        n.Plus,
			Span:       n.Value.Span(),
			Bind: func(self *runtime.ObjectValue, super *runtime.SuperObject) (runtime.Value, error) {
				fctx, err := i.fieldContext(iter, n.Locals, self, super)
				if err != nil {
					return nil, err
				}
				return i.framed(n.Value, fctx)
			},
		}
		if err := b.AddField(name, field); err != nil {
			return located(err, n.Key)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return b.Build(), nil
}

func (i *Interpreter) evaluateObjectExtend(n *ast.ObjectExtend, ctx *runtime.Context) (runtime.Value, error) {
	base, err := i.evaluateExpression(n.Base, ctx)
	if err != nil {
		return nil, err
	}
	ext, err := i.evaluateExpression(n.Object, ctx)
	if err != nil {
		return nil, err
	}
	l, lok := base.(*runtime.ObjectValue)
	r, rok := ext.(*runtime.ObjectValue)
	if !lok || !rok {
		return nil, located(runtime.BinaryMismatch("+", base, ext), n)
	}
	return runtime.ExtendObjects(l, r), nil
}

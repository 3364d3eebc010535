package interpreter

import (
	"jsonnet/interpreter-go/pkg/ast"
	"jsonnet/interpreter-go/pkg/runtime"
)

func literalValue(expr ast.Expression) (runtime.Value, bool) {
	switch n := expr.(type) {
	case *ast.NullLiteral:
		return runtime.NullValue{}, true
	case *ast.BooleanLiteral:
		return runtime.BoolValue{Val: n.Value}, true
	case *ast.NumberLiteral:
		return runtime.NumberValue{Val: n.Value}, true
	case *ast.StringLiteral:
		return runtime.NewString(n.Value), true
	}
	return nil, false
}

// evaluateExpression counts every non-literal node against the depth limit,
// so deep nesting fails with a stack overflow instead of exhausting the Go
// stack.
func (i *Interpreter) evaluateExpression(node ast.Expression, ctx *runtime.Context) (runtime.Value, error) {
	if v, ok := literalValue(node); ok {
		return v, nil
	}
	if err := i.enter(); err != nil {
		return nil, located(err, node)
	}
	defer i.leave()
	return i.evaluateNode(node, ctx)
}

func (i *Interpreter) evaluateNode(node ast.Expression, ctx *runtime.Context) (runtime.Value, error) {
	switch n := node.(type) {
	case *ast.Identifier:
		th, err := ctx.Get(n.Name)
		if err != nil {
			return nil, located(err, n)
		}
		return th.Force()
	case *ast.SelfExpression:
		if ctx.Self() == nil {
			return nil, located(runtime.NewError(runtime.ErrCantUseSelfOutsideOfObject, "can't use self outside of an object"), n)
		}
		return ctx.Self(), nil
	case *ast.DollarExpression:
		if ctx.Dollar() == nil {
			return nil, located(runtime.NewError(runtime.ErrNoTopLevelObjectFound, "no top-level object found for $"), n)
		}
		return ctx.Dollar(), nil
	case *ast.SuperIndex:
		return i.evaluateSuperIndex(n, ctx)
	case *ast.InSuper:
		return i.evaluateInSuper(n, ctx)
	case *ast.ArrayLiteral:
		return i.evaluateArrayLiteral(n, ctx), nil
	case *ast.ArrayComprehension:
		return i.evaluateArrayComprehension(n, ctx)
	case *ast.LocalExpression:
		local, err := i.bindLocals(n.Binds, ctx)
		if err != nil {
			return nil, located(err, n)
		}
		return i.evaluateExpression(n.Body, local)
	case *ast.IfExpression:
		return i.evaluateIfExpression(n, ctx)
	case *ast.ErrorExpression:
		return nil, i.evaluateErrorExpression(n, ctx)
	case *ast.AssertExpression:
		return i.evaluateAssertExpression(n, ctx)
	case *ast.IndexExpression:
		return i.evaluateIndexExpression(n, ctx)
	case *ast.SliceExpression:
		return i.evaluateSliceExpression(n, ctx)
	case *ast.FunctionExpression:
		return &runtime.FunctionValue{Params: n.Params, Body: n.Body, Closure: ctx}, nil
	case *ast.ApplyExpression:
		return i.evaluateApply(n, ctx)
	case *ast.UnaryExpression:
		return i.evaluateUnaryExpression(n, ctx)
	case *ast.BinaryExpression:
		return i.evaluateBinaryExpression(n, ctx)
	case *ast.ObjectLiteral:
		return i.evaluateObjectLiteral(n, ctx)
	case *ast.ObjectComprehension:
		return i.evaluateObjectComprehension(n, ctx)
	case *ast.ObjectExtend:
		return i.evaluateObjectExtend(n, ctx)
	case *ast.ImportExpression:
		return i.evaluateImport(n)
	default:
		return nil, located(runtime.NewError(runtime.ErrRuntime, "unsupported expression type: %s", node.NodeType()), node)
	}
}

// bindLocals binds a group of mutually recursive locals on top of ctx.
func (i *Interpreter) bindLocals(binds []*ast.Bind, ctx *runtime.Context) (*runtime.Context, error) {
	if len(binds) == 0 {
		return ctx, nil
	}
	cell := runtime.NewContextCell()
	bindings := make(map[string]*runtime.Thunk, len(binds))
	for _, bind := range binds {
		if _, dup := bindings[bind.Name]; dup {
			return nil, located(runtime.NewError(runtime.ErrDuplicateLocalVar, "duplicate local var: %s", bind.Name), bind)
		}
		if bind.IsFunction {
			bindings[bind.Name] = runtime.NewThunk(func() (runtime.Value, error) {
				return &runtime.FunctionValue{Name: bind.Name, Params: bind.Params, Body: bind.Value, Closure: cell.Get()}, nil
			})
			continue
		}
		if v, ok := literalValue(bind.Value); ok {
			bindings[bind.Name] = runtime.Resolved(v)
			continue
		}
		bindings[bind.Name] = runtime.NewThunk(func() (runtime.Value, error) {
			v, err := i.framed(bind.Value, cell.Get())
			if fn, ok := v.(*runtime.FunctionValue); ok && fn.Name == "" {
				named := *fn
				named.Name = bind.Name
				return &named, err
			}
			return v, err
		})
	}
	local := ctx.Extend(bindings)
	cell.Fill(local)
	return local, nil
}

func (i *Interpreter) evaluateIfExpression(n *ast.IfExpression, ctx *runtime.Context) (runtime.Value, error) {
	cond, err := i.evaluateExpression(n.Condition, ctx)
	if err != nil {
		return nil, err
	}
	ok, err := runtime.ExpectBool(cond, "if condition")
	if err != nil {
		return nil, located(err, n.Condition)
	}
	if ok {
		return i.evaluateExpression(n.Then, ctx)
	}
	if n.Else == nil {
		return runtime.NullValue{}, nil
	}
	return i.evaluateExpression(n.Else, ctx)
}

func (i *Interpreter) evaluateErrorExpression(n *ast.ErrorExpression, ctx *runtime.Context) error {
	msg, err := i.evaluateExpression(n.Message, ctx)
	if err != nil {
		return err
	}
	text, err := runtime.ToString(msg)
	if err != nil {
		return located(err, n)
	}
	return runtime.NewError(runtime.ErrRuntime, "%s", text).WithFrame(n.Span(), "error statement")
}

func (i *Interpreter) evaluateAssertExpression(n *ast.AssertExpression, ctx *runtime.Context) (runtime.Value, error) {
	if err := i.checkAssertion(n.Condition, n.Message, ctx, n); err != nil {
		return nil, err
	}
	return i.evaluateExpression(n.Body, ctx)
}

// checkAssertion is shared by `assert e; body` and object assertions.
func (i *Interpreter) checkAssertion(cond, message ast.Expression, ctx *runtime.Context, at ast.Node) error {
	v, err := i.evaluateExpression(cond, ctx)
	if err != nil {
		return err
	}
	ok, err := runtime.ExpectBool(v, "assertion condition")
	if err != nil {
		return located(err, cond)
	}
	if ok {
		return nil
	}
	if message == nil {
		return runtime.NewError(runtime.ErrAssertionFailed, "assertion failed").WithFrame(at.Span(), "assert")
	}
	msg, err := i.evaluateExpression(message, ctx)
	if err != nil {
		return err
	}
	text, err := runtime.ToString(msg)
	if err != nil {
		return located(err, message)
	}
	return runtime.NewError(runtime.ErrAssertionFailed, "assertion failed: %s", text).WithFrame(at.Span(), "assert")
}

package interpreter

import (
	"jsonnet/interpreter-go/pkg/ast"
	"jsonnet/interpreter-go/pkg/runtime"
)

func (i *Interpreter) evaluateIndexExpression(n *ast.IndexExpression, ctx *runtime.Context) (runtime.Value, error) {
	target, err := i.evaluateExpression(n.Target, ctx)
	if err != nil {
		return nil, err
	}
	index, err := i.evaluateExpression(n.Index, ctx)
	if err != nil {
		return nil, err
	}
	v, err := indexValue(target, index)
	if err != nil {
		return nil, located(err, n)
	}
	return v, nil
}

// indexValue implements `target[index]` for objects, arrays and strings.
func indexValue(target, index runtime.Value) (runtime.Value, error) {
	switch t := target.(type) {
	case *runtime.ObjectValue:
		name, ok := index.(runtime.StringValue)
		if !ok {
			return nil, runtime.NewError(runtime.ErrValueIndexMustBeTypeGot, "object index must be string, got %s", runtime.TypeName(index))
		}
		v, found, err := t.Get(name.Str())
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, runtime.NewError(runtime.ErrNoSuchField, "field does not exist: %s", name.Str())
		}
		return v, nil
	case *runtime.ArrayValue:
		if _, ok := index.(runtime.NumberValue); !ok {
			return nil, runtime.NewError(runtime.ErrValueIndexMustBeTypeGot, "array index must be number, got %s", runtime.TypeName(index))
		}
		idx, err := runtime.ToInt(index, "array index")
		if err != nil {
			return nil, err
		}
		return t.Get(idx)
	case runtime.StringValue:
		if _, ok := index.(runtime.NumberValue); !ok {
			return nil, runtime.NewError(runtime.ErrValueIndexMustBeTypeGot, "string index must be number, got %s", runtime.TypeName(index))
		}
		idx, err := runtime.ToInt(index, "string index")
		if err != nil {
			return nil, err
		}
		runes := []rune(t.Str())
		if idx < 0 || idx >= len(runes) {
			return nil, runtime.NewError(runtime.ErrStringBounds, "string bounds error: %d is not within [0,%d)", idx, len(runes))
		}
		return runtime.NewString(string(runes[idx])), nil
	}
	return nil, runtime.NewError(runtime.ErrCantIndexInto, "can't index into %s", runtime.TypeName(target))
}

func (i *Interpreter) optionalInt(expr ast.Expression, ctx *runtime.Context, what string) (*int, error) {
	if expr == nil {
		return nil, nil
	}
	v, err := i.evaluateExpression(expr, ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := v.(runtime.NullValue); ok {
		return nil, nil
	}
	n, err := runtime.ToInt(v, what)
	if err != nil {
		return nil, located(err, expr)
	}
	return &n, nil
}

func (i *Interpreter) evaluateSliceExpression(n *ast.SliceExpression, ctx *runtime.Context) (runtime.Value, error) {
	target, err := i.evaluateExpression(n.Target, ctx)
	if err != nil {
		return nil, err
	}
	from, err := i.optionalInt(n.Start, ctx, "slice start")
	if err != nil {
		return nil, err
	}
	to, err := i.optionalInt(n.End, ctx, "slice end")
	if err != nil {
		return nil, err
	}
	step, err := i.optionalInt(n.Step, ctx, "slice step")
	if err != nil {
		return nil, err
	}
	v, err := sliceValue(target, from, to, step)
	if err != nil {
		return nil, located(err, n)
	}
	return v, nil
}

func sliceValue(target runtime.Value, from, to, step *int) (runtime.Value, error) {
	switch t := target.(type) {
	case *runtime.ArrayValue:
		return runtime.SliceArray(t, from, to, step)
	case runtime.StringValue:
		runes := []rune(t.Str())
		start, end, stride, empty, err := runtime.NormalizeSlice(len(runes), from, to, step)
		if err != nil {
			return nil, err
		}
		if empty {
			return runtime.NewString(""), nil
		}
		out := make([]rune, 0, (end-start+stride-1)/stride)
		for k := start; k < end; k += stride {
			out = append(out, runes[k])
		}
		return runtime.NewString(string(out)), nil
	}
	return nil, runtime.NewError(runtime.ErrCantIndexInto, "can't slice %s", runtime.TypeName(target))
}

func (i *Interpreter) superView(ctx *runtime.Context, at ast.Node) (*runtime.SuperObject, error) {
	if ctx.Self() == nil {
		return nil, located(runtime.NewError(runtime.ErrCantUseSuperOutsideOfObject, "can't use super outside of an object"), at)
	}
	return ctx.Super(), nil
}

func (i *Interpreter) evaluateSuperIndex(n *ast.SuperIndex, ctx *runtime.Context) (runtime.Value, error) {
	super, err := i.superView(ctx, n)
	if err != nil {
		return nil, err
	}
	if super == nil {
		return nil, located(runtime.NewError(runtime.ErrNoSuperFound, "attempt to use super when there is no super class"), n)
	}
	index, err := i.evaluateExpression(n.Index, ctx)
	if err != nil {
		return nil, err
	}
	name, ok := index.(runtime.StringValue)
	if !ok {
		return nil, located(runtime.NewError(runtime.ErrValueIndexMustBeTypeGot, "super index must be string, got %s", runtime.TypeName(index)), n)
	}
	v, found, err := super.Get(name.Str())
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, located(runtime.NewError(runtime.ErrNoSuchField, "field does not exist: %s", name.Str()), n)
	}
	return v, nil
}

func (i *Interpreter) evaluateInSuper(n *ast.InSuper, ctx *runtime.Context) (runtime.Value, error) {
	super, err := i.superView(ctx, n)
	if err != nil {
		return nil, err
	}
	key, err := i.evaluateExpression(n.Key, ctx)
	if err != nil {
		return nil, err
	}
	name, ok := key.(runtime.StringValue)
	if !ok {
		return nil, located(runtime.NewError(runtime.ErrBinaryOperatorDoesNotOperateOnValues, "binary operation %s in super is not implemented", runtime.TypeName(key)), n)
	}
	if super == nil {
		return runtime.BoolValue{Val: false}, nil
	}
	return runtime.BoolValue{Val: super.HasField(name.Str())}, nil
}

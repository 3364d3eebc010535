package interpreter

import (
	"jsonnet/interpreter-go/pkg/ast"
	"jsonnet/interpreter-go/pkg/runtime"
)

func (i *Interpreter) evaluateArrayLiteral(n *ast.ArrayLiteral, ctx *runtime.Context) *runtime.ArrayValue {
	if len(n.Elements) == 0 {
		return runtime.EmptyArray()
	}
	thunks := make([]*runtime.Thunk, len(n.Elements))
	for k, elem := range n.Elements {
		thunks[k] = i.thunk(elem, ctx)
	}
	return runtime.NewLazyArray(thunks)
}

func (i *Interpreter) evaluateArrayComprehension(n *ast.ArrayComprehension, ctx *runtime.Context) (runtime.Value, error) {
	var thunks []*runtime.Thunk
	err := i.forEachBinding(n.Specs, ctx, func(iter *runtime.Context) error {
		thunks = append(thunks, i.thunk(n.Body, iter))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return runtime.NewLazyArray(thunks), nil
}

// forEachBinding walks the comprehension specs left to right, calling fn
// with the context of every binding combination that passes the filters.
func (i *Interpreter) forEachBinding(specs []ast.CompSpec, ctx *runtime.Context, fn func(*runtime.Context) error) error {
	if len(specs) == 0 {
		return fn(ctx)
	}
	switch spec := specs[0].(type) {
	case *ast.ForSpec:
		v, err := i.evaluateExpression(spec.Iterable, ctx)
		if err != nil {
			return err
		}
		arr, ok := v.(*runtime.ArrayValue)
		if !ok {
			return located(runtime.NewError(runtime.ErrInComprehensionCanOnlyIterateOverArray,
				"in comprehension can only iterate over array, got %s", runtime.TypeName(v)), spec)
		}
		for k := 0; k < arr.Len(); k++ {
			elem, err := arr.GetLazy(k)
			if err != nil {
				return err
			}
			if err := i.forEachBinding(specs[1:], ctx.Bind(spec.Variable, elem), fn); err != nil {
				return err
			}
		}
		return nil
	case *ast.IfSpec:
		v, err := i.evaluateExpression(spec.Condition, ctx)
		if err != nil {
			return err
		}
		ok, err := runtime.ExpectBool(v, "comprehension filter")
		if err != nil {
			return located(err, spec)
		}
		if !ok {
			return nil
		}
		return i.forEachBinding(specs[1:], ctx, fn)
	}
	return located(runtime.NewError(runtime.ErrRuntime, "unsupported comprehension clause %s", specs[0].NodeType()), specs[0])
}

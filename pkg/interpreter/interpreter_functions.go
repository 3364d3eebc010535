package interpreter

import (
	"jsonnet/interpreter-go/pkg/ast"
	"jsonnet/interpreter-go/pkg/runtime"
)

// namedArg is a `name=value` call argument.
type namedArg struct {
	name  string
	value *runtime.Thunk
}

func (i *Interpreter) evaluateApply(n *ast.ApplyExpression, ctx *runtime.Context) (runtime.Value, error) {
	target, err := i.evaluateExpression(n.Target, ctx)
	if err != nil {
		return nil, err
	}
	var positional []*runtime.Thunk
	var named []namedArg
	for _, arg := range n.Args {
		th := i.thunk(arg.Value, ctx)
		if n.TailStrict {
			if _, err := th.Force(); err != nil {
				return nil, err
			}
		}
		if arg.Name == "" {
			positional = append(positional, th)
		} else {
			named = append(named, namedArg{name: arg.Name, value: th})
		}
	}
	v, err := i.callFunction(target, positional, named, n.Span(), ctx)
	if err != nil {
		return nil, runtime.AddFrame(err, n.Span(), describeFunction(functionName(target)))
	}
	return v, nil
}

func functionName(v runtime.Value) string {
	switch fn := v.(type) {
	case *runtime.FunctionValue:
		return fn.Name
	case *runtime.NativeFunction:
		return fn.Name
	}
	return ""
}

// Call applies fn to positional arguments. Builtins use it to invoke user
// callbacks.
func (i *Interpreter) Call(fn runtime.Value, args ...runtime.Value) (runtime.Value, error) {
	thunks := make([]*runtime.Thunk, len(args))
	for k, a := range args {
		thunks[k] = runtime.Resolved(a)
	}
	return i.callFunction(fn, thunks, nil, ast.Span{}, nil)
}

func (i *Interpreter) callFunction(fn runtime.Value, positional []*runtime.Thunk, named []namedArg, span ast.Span, ctx *runtime.Context) (runtime.Value, error) {
	switch f := fn.(type) {
	case *runtime.FunctionValue:
		return i.applyClosure(f, positional, named)
	case *runtime.NativeFunction:
		return i.applyNative(f, positional, named, span, ctx)
	}
	return nil, runtime.NewError(runtime.ErrOnlyFunctionsCanBeCalled, "only functions can be called, got %s", runtime.TypeName(fn))
}

// bindArguments maps positional then named arguments onto params. The
// result has one entry per parameter; unbound entries are nil.
func bindArguments(params []string, positional []*runtime.Thunk, named []namedArg) ([]*runtime.Thunk, error) {
	if len(positional) > len(params) {
		return nil, runtime.NewError(runtime.ErrTooManyArgs, "too many arguments: function has %d parameter(s), got %d", len(params), len(positional)+len(named))
	}
	bound := make([]*runtime.Thunk, len(params))
	copy(bound, positional)
	for _, arg := range named {
		idx := -1
		for k, p := range params {
			if p == arg.name {
				idx = k
				break
			}
		}
		if idx < 0 {
			return nil, runtime.NewError(runtime.ErrUnknownFunctionParameter, "function has no parameter %s", arg.name)
		}
		if bound[idx] != nil {
			return nil, runtime.NewError(runtime.ErrBindingParameterASecondTime, "binding parameter a second time: %s", arg.name)
		}
		bound[idx] = arg.value
	}
	return bound, nil
}

func (i *Interpreter) applyClosure(fn *runtime.FunctionValue, positional []*runtime.Thunk, named []namedArg) (runtime.Value, error) {
	bound, err := bindArguments(fn.ParamNames(), positional, named)
	if err != nil {
		return nil, err
	}
	bindings := make(map[string]*runtime.Thunk, len(fn.Params))
	// Defaults see the closure plus the parameters declared before them.
	defaults := fn.Closure
	for k, param := range fn.Params {
		th := bound[k]
		if th == nil {
			if param.Default == nil {
				return nil, runtime.NewError(runtime.ErrFunctionParameterNotBoundInCall, "missing argument: %s", param.Name)
			}
			th = i.thunk(param.Default, defaults)
		}
		bindings[param.Name] = th
		defaults = defaults.Bind(param.Name, th)
	}
	if err := i.enter(); err != nil {
		return nil, err
	}
	defer i.leave()
	return i.evaluateExpression(fn.Body, fn.Closure.Extend(bindings))
}

func (i *Interpreter) applyNative(fn *runtime.NativeFunction, positional []*runtime.Thunk, named []namedArg, span ast.Span, ctx *runtime.Context) (runtime.Value, error) {
	bound, err := bindArguments(fn.ParamNames(), positional, named)
	if err != nil {
		return nil, err
	}
	for k, param := range fn.Params {
		if bound[k] == nil {
			if !param.HasDefault {
				return nil, runtime.NewError(runtime.ErrFunctionParameterNotBoundInCall, "missing argument: %s", param.Name)
			}
			continue
		}
		if param.Strict {
			v, err := bound[k].Force()
			if err != nil {
				return nil, err
			}
			bound[k] = runtime.Resolved(v)
		}
	}
	if err := i.enter(); err != nil {
		return nil, err
	}
	defer i.leave()
	return fn.Impl(&runtime.NativeCall{Span: span, Context: ctx}, bound)
}

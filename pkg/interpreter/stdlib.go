package interpreter

import (
	"fmt"

	"jsonnet/interpreter-go/pkg/ast"
	"jsonnet/interpreter-go/pkg/runtime"
)

// strict declares required parameters that are forced before the call.
func strict(names ...string) []runtime.NativeParam {
	params := make([]runtime.NativeParam, len(names))
	for k, name := range names {
		params[k] = runtime.NativeParam{Name: name, Strict: true}
	}
	return params
}

func optional(name string) runtime.NativeParam {
	return runtime.NativeParam{Name: name, HasDefault: true, Strict: true}
}

func lazy(name string) runtime.NativeParam {
	return runtime.NativeParam{Name: name}
}

// callWith applies fn to already-deferred arguments.
func (i *Interpreter) callWith(fn runtime.Value, args ...*runtime.Thunk) (runtime.Value, error) {
	return i.callFunction(fn, args, nil, ast.Span{}, nil)
}

func expectFunction(v runtime.Value, context string) (runtime.Value, error) {
	if v.Kind() != runtime.KindFunction {
		return nil, runtime.NewError(runtime.ErrTypeMismatch, "%s: expected function, got %s", context, runtime.TypeName(v))
	}
	return v, nil
}

// buildStdlib assembles the hidden fields of the `std` object.
func (i *Interpreter) buildStdlib() *runtime.ObjectValue {
	b := runtime.NewObjectBuilder()
	register := func(name string, params []runtime.NativeParam, impl runtime.NativeFunc) {
		fn := &runtime.NativeFunction{Name: name, Params: params, Impl: impl}
		if err := b.AddValue(name, fn, runtime.VisibilityHidden); err != nil {
			panic(fmt.Sprintf("std.%s registered twice", name))
		}
	}
	i.registerTypeBuiltins(register)
	i.registerArrayBuiltins(register)
	i.registerObjectBuiltins(register)
	i.registerStringBuiltins(register)
	i.registerMathBuiltins(register)
	return b.Build()
}

type registerFunc func(name string, params []runtime.NativeParam, impl runtime.NativeFunc)

func (i *Interpreter) registerTypeBuiltins(register registerFunc) {
	register("type", strict("x"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		v, _ := args[0].Force()
		return runtime.NewString(runtime.TypeName(v)), nil
	})
	kinds := map[string]runtime.Kind{
		"isString":   runtime.KindString,
		"isNumber":   runtime.KindNumber,
		"isBoolean":  runtime.KindBool,
		"isObject":   runtime.KindObject,
		"isArray":    runtime.KindArray,
		"isFunction": runtime.KindFunction,
	}
	for name, kind := range kinds {
		register(name, strict("v"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
			v, _ := args[0].Force()
			return runtime.BoolValue{Val: v.Kind() == kind}, nil
		})
	}
	register("length", strict("x"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		v, _ := args[0].Force()
		switch x := v.(type) {
		case runtime.StringValue:
			return runtime.NumberValue{Val: float64(x.Len())}, nil
		case *runtime.ArrayValue:
			return runtime.NumberValue{Val: float64(x.Len())}, nil
		case *runtime.ObjectValue:
			return runtime.NumberValue{Val: float64(x.Len(false))}, nil
		case *runtime.FunctionValue:
			return runtime.NumberValue{Val: float64(len(x.Params))}, nil
		case *runtime.NativeFunction:
			return runtime.NumberValue{Val: float64(len(x.Params))}, nil
		}
		return nil, runtime.NewError(runtime.ErrTypeMismatch, "length operates on strings, objects, functions and arrays, got %s", runtime.TypeName(v))
	})
	register("toString", strict("a"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		v, _ := args[0].Force()
		s, err := runtime.ToString(v)
		if err != nil {
			return nil, err
		}
		return runtime.NewString(s), nil
	})
	register("equals", strict("a", "b"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		a, _ := args[0].Force()
		b, _ := args[1].Force()
		eq, err := runtime.Equals(a, b)
		return runtime.BoolValue{Val: eq}, err
	})
	register("primitiveEquals", strict("a", "b"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		a, _ := args[0].Force()
		b, _ := args[1].Force()
		if a.Kind() != b.Kind() {
			return runtime.BoolValue{Val: false}, nil
		}
		switch a.Kind() {
		case runtime.KindArray, runtime.KindObject, runtime.KindFunction:
			return nil, runtime.NewError(runtime.ErrTypeMismatch, "primitiveEquals operates on primitive types, got %s", runtime.TypeName(a))
		}
		eq, err := runtime.Equals(a, b)
		return runtime.BoolValue{Val: eq}, err
	})
	register("extVar", strict("x"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		v, _ := args[0].Force()
		name, err := runtime.ExpectString(v, "std.extVar")
		if err != nil {
			return nil, err
		}
		return i.extVar(name.Str())
	})
	register("native", strict("name"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		v, _ := args[0].Force()
		name, err := runtime.ExpectString(v, "std.native")
		if err != nil {
			return nil, err
		}
		fn, ok := i.natives[name.Str()]
		if !ok {
			return nil, runtime.NewError(runtime.ErrUndefinedNativeFunction, "undefined native function: %s", name.Str())
		}
		return fn, nil
	})
	register("trace", []runtime.NativeParam{{Name: "str", Strict: true}, lazy("rest")}, func(call *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		v, _ := args[0].Force()
		msg, err := runtime.ToString(v)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(i.traceOut, "TRACE: %s %s\n", call.Span, msg)
		return args[1].Force()
	})
	register("manifestJson", strict("value"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		v, _ := args[0].Force()
		s, err := runtime.ManifestJSON(v, runtime.ManifestOptions{Indent: "    ", PreserveOrder: i.cfg.PreserveOrder})
		if err != nil {
			return nil, err
		}
		return runtime.NewString(s), nil
	})
	register("manifestJsonEx", strict("value", "indent"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		v, _ := args[0].Force()
		iv, _ := args[1].Force()
		indent, err := runtime.ExpectString(iv, "std.manifestJsonEx indent")
		if err != nil {
			return nil, err
		}
		s, err := runtime.ManifestJSON(v, runtime.ManifestOptions{Indent: indent.Str(), PreserveOrder: i.cfg.PreserveOrder})
		if err != nil {
			return nil, err
		}
		return runtime.NewString(s), nil
	})
}

func (i *Interpreter) registerObjectBuiltins(register registerFunc) {
	fields := func(name string, hidden bool) {
		register(name, strict("o"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
			v, _ := args[0].Force()
			obj, err := runtime.ExpectObject(v, "std."+name)
			if err != nil {
				return nil, err
			}
			names, err := obj.Fields(hidden, false)
			if err != nil {
				return nil, err
			}
			return stringArray(names), nil
		})
	}
	fields("objectFields", false)
	fields("objectFieldsAll", true)

	has := func(name string, hidden bool) {
		register(name, strict("o", "f"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
			v, _ := args[0].Force()
			fv, _ := args[1].Force()
			obj, err := runtime.ExpectObject(v, "std."+name)
			if err != nil {
				return nil, err
			}
			f, err := runtime.ExpectString(fv, "std."+name)
			if err != nil {
				return nil, err
			}
			return runtime.BoolValue{Val: obj.HasField(f.Str(), hidden)}, nil
		})
	}
	has("objectHas", false)
	has("objectHasAll", true)

	register("objectValues", strict("o"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		v, _ := args[0].Force()
		obj, err := runtime.ExpectObject(v, "std.objectValues")
		if err != nil {
			return nil, err
		}
		names, err := obj.Fields(false, false)
		if err != nil {
			return nil, err
		}
		thunks := make([]*runtime.Thunk, len(names))
		for k, name := range names {
			thunks[k], _ = obj.GetLazy(name)
		}
		return runtime.NewLazyArray(thunks), nil
	})
}

func stringArray(items []string) *runtime.ArrayValue {
	values := make([]runtime.Value, len(items))
	for k, s := range items {
		values[k] = runtime.NewString(s)
	}
	return runtime.NewEagerArray(values)
}

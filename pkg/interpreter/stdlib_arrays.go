package interpreter

import (
	"sort"
	"strings"

	"jsonnet/interpreter-go/pkg/runtime"
)

// indexable views strings as arrays of one-character strings.
func indexable(v runtime.Value, context string) (*runtime.ArrayValue, error) {
	switch x := v.(type) {
	case *runtime.ArrayValue:
		return x, nil
	case runtime.StringValue:
		return runtime.NewCharsArray(x.Str()), nil
	}
	return nil, runtime.NewError(runtime.ErrTypeMismatch, "%s: expected array or string, got %s", context, runtime.TypeName(v))
}

func identityKey(v runtime.Value) (runtime.Value, error) {
	return v, nil
}

func (i *Interpreter) keyFunc(arg *runtime.Thunk, context string) (func(runtime.Value) (runtime.Value, error), error) {
	if arg == nil {
		return identityKey, nil
	}
	v, err := arg.Force()
	if err != nil {
		return nil, err
	}
	fn, err := expectFunction(v, context)
	if err != nil {
		return nil, err
	}
	return func(x runtime.Value) (runtime.Value, error) {
		return i.Call(fn, x)
	}, nil
}

func (i *Interpreter) registerArrayBuiltins(register registerFunc) {
	register("makeArray", strict("sz", "func"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		sv, _ := args[0].Force()
		fv, _ := args[1].Force()
		size, err := runtime.ToInt(sv, "std.makeArray size")
		if err != nil {
			return nil, err
		}
		if size < 0 {
			return nil, runtime.NewError(runtime.ErrArrayLengthOverflow, "std.makeArray requires size >= 0, got %d", size)
		}
		fn, err := expectFunction(fv, "std.makeArray")
		if err != nil {
			return nil, err
		}
		indices, err := runtime.NewRangeArray(0, size-1)
		if err != nil {
			return nil, err
		}
		return runtime.MapArray(indices, func(_ int, elem *runtime.Thunk) (runtime.Value, error) {
			return i.callWith(fn, elem)
		}), nil
	})
	register("range", strict("from", "to"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		fv, _ := args[0].Force()
		tv, _ := args[1].Force()
		from, err := runtime.ToInt(fv, "std.range from")
		if err != nil {
			return nil, err
		}
		to, err := runtime.ToInt(tv, "std.range to")
		if err != nil {
			return nil, err
		}
		arr, err := runtime.NewRangeArray(from, to)
		if err != nil {
			return nil, err
		}
		return arr, nil
	})
	register("map", strict("func", "arr"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		fv, _ := args[0].Force()
		av, _ := args[1].Force()
		fn, err := expectFunction(fv, "std.map")
		if err != nil {
			return nil, err
		}
		arr, err := indexable(av, "std.map")
		if err != nil {
			return nil, err
		}
		return runtime.MapArray(arr, func(_ int, elem *runtime.Thunk) (runtime.Value, error) {
			return i.callWith(fn, elem)
		}), nil
	})
	register("mapWithIndex", strict("func", "arr"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		fv, _ := args[0].Force()
		av, _ := args[1].Force()
		fn, err := expectFunction(fv, "std.mapWithIndex")
		if err != nil {
			return nil, err
		}
		arr, err := indexable(av, "std.mapWithIndex")
		if err != nil {
			return nil, err
		}
		return runtime.MapArray(arr, func(k int, elem *runtime.Thunk) (runtime.Value, error) {
			return i.callWith(fn, runtime.Resolved(runtime.NumberValue{Val: float64(k)}), elem)
		}), nil
	})
	register("filter", strict("func", "arr"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		fv, _ := args[0].Force()
		av, _ := args[1].Force()
		fn, err := expectFunction(fv, "std.filter")
		if err != nil {
			return nil, err
		}
		arr, err := runtime.ExpectArray(av, "std.filter")
		if err != nil {
			return nil, err
		}
		var kept []*runtime.Thunk
		for _, elem := range arr.Thunks() {
			keep, err := i.callWith(fn, elem)
			if err != nil {
				return nil, err
			}
			ok, err := runtime.ExpectBool(keep, "std.filter predicate")
			if err != nil {
				return nil, err
			}
			if ok {
				kept = append(kept, elem)
			}
		}
		return runtime.NewLazyArray(kept), nil
	})
	register("foldl", strict("func", "arr", "init"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		fv, _ := args[0].Force()
		av, _ := args[1].Force()
		acc, _ := args[2].Force()
		fn, err := expectFunction(fv, "std.foldl")
		if err != nil {
			return nil, err
		}
		arr, err := indexable(av, "std.foldl")
		if err != nil {
			return nil, err
		}
		for _, elem := range arr.Thunks() {
			if acc, err = i.callWith(fn, runtime.Resolved(acc), elem); err != nil {
				return nil, err
			}
		}
		return acc, nil
	})
	register("foldr", strict("func", "arr", "init"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		fv, _ := args[0].Force()
		av, _ := args[1].Force()
		acc, _ := args[2].Force()
		fn, err := expectFunction(fv, "std.foldr")
		if err != nil {
			return nil, err
		}
		arr, err := indexable(av, "std.foldr")
		if err != nil {
			return nil, err
		}
		thunks := arr.Thunks()
		for k := len(thunks) - 1; k >= 0; k-- {
			if acc, err = i.callWith(fn, thunks[k], runtime.Resolved(acc)); err != nil {
				return nil, err
			}
		}
		return acc, nil
	})
	register("flatMap", strict("func", "arr"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		fv, _ := args[0].Force()
		av, _ := args[1].Force()
		fn, err := expectFunction(fv, "std.flatMap")
		if err != nil {
			return nil, err
		}
		if s, ok := av.(runtime.StringValue); ok {
			var b strings.Builder
			for _, r := range s.Str() {
				out, err := i.Call(fn, runtime.NewString(string(r)))
				if err != nil {
					return nil, err
				}
				piece, err := runtime.ExpectString(out, "std.flatMap result")
				if err != nil {
					return nil, err
				}
				b.WriteString(piece.Str())
			}
			return runtime.NewString(b.String()), nil
		}
		arr, err := runtime.ExpectArray(av, "std.flatMap")
		if err != nil {
			return nil, err
		}
		result := runtime.EmptyArray()
		for _, elem := range arr.Thunks() {
			out, err := i.callWith(fn, elem)
			if err != nil {
				return nil, err
			}
			part, err := runtime.ExpectArray(out, "std.flatMap result")
			if err != nil {
				return nil, err
			}
			if result, err = runtime.ConcatArrays(result, part); err != nil {
				return nil, err
			}
		}
		return result, nil
	})
	register("join", strict("sep", "arr"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		sv, _ := args[0].Force()
		av, _ := args[1].Force()
		arr, err := runtime.ExpectArray(av, "std.join")
		if err != nil {
			return nil, err
		}
		return joinValues(sv, arr)
	})
	register("reverse", strict("arr"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		av, _ := args[0].Force()
		arr, err := runtime.ExpectArray(av, "std.reverse")
		if err != nil {
			return nil, err
		}
		return runtime.ReverseArray(arr), nil
	})
	register("repeat", strict("what", "count"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		wv, _ := args[0].Force()
		cv, _ := args[1].Force()
		if s, ok := wv.(runtime.StringValue); ok {
			return repeatString(s, cv)
		}
		arr, err := runtime.ExpectArray(wv, "std.repeat")
		if err != nil {
			return nil, err
		}
		count, err := runtime.ToInt(cv, "std.repeat count")
		if err != nil {
			return nil, err
		}
		return runtime.RepeatArray(arr, count)
	})
	register("slice", strict("indexable", "index", "end", "step"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		target, _ := args[0].Force()
		var bounds [3]*int
		for k := 1; k <= 3; k++ {
			v, _ := args[k].Force()
			if _, null := v.(runtime.NullValue); null {
				continue
			}
			n, err := runtime.ToInt(v, "std.slice bound")
			if err != nil {
				return nil, err
			}
			bounds[k-1] = &n
		}
		return sliceValue(target, bounds[0], bounds[1], bounds[2])
	})
	register("sort", []runtime.NativeParam{{Name: "arr", Strict: true}, optional("keyF")}, func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		av, _ := args[0].Force()
		arr, err := runtime.ExpectArray(av, "std.sort")
		if err != nil {
			return nil, err
		}
		key, err := i.keyFunc(args[1], "std.sort keyF")
		if err != nil {
			return nil, err
		}
		return sortArray(arr, key)
	})
	register("uniq", []runtime.NativeParam{{Name: "arr", Strict: true}, optional("keyF")}, func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		av, _ := args[0].Force()
		arr, err := runtime.ExpectArray(av, "std.uniq")
		if err != nil {
			return nil, err
		}
		key, err := i.keyFunc(args[1], "std.uniq keyF")
		if err != nil {
			return nil, err
		}
		values, err := arr.Values()
		if err != nil {
			return nil, err
		}
		var out []runtime.Value
		var lastKey runtime.Value
		for _, v := range values {
			k, err := key(v)
			if err != nil {
				return nil, err
			}
			if lastKey != nil {
				same, err := runtime.Equals(lastKey, k)
				if err != nil {
					return nil, err
				}
				if same {
					continue
				}
			}
			out = append(out, v)
			lastKey = k
		}
		return runtime.NewEagerArray(out), nil
	})
	register("member", strict("arr", "x"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		av, _ := args[0].Force()
		x, _ := args[1].Force()
		if s, ok := av.(runtime.StringValue); ok {
			sub, err := runtime.ExpectString(x, "std.member")
			if err != nil {
				return nil, err
			}
			return runtime.BoolValue{Val: strings.Contains(s.Str(), sub.Str())}, nil
		}
		n, err := countMatches(av, x, "std.member")
		return runtime.BoolValue{Val: n > 0}, err
	})
	register("count", strict("arr", "x"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		av, _ := args[0].Force()
		x, _ := args[1].Force()
		n, err := countMatches(av, x, "std.count")
		return runtime.NumberValue{Val: float64(n)}, err
	})
}

func countMatches(av, x runtime.Value, context string) (int, error) {
	arr, err := runtime.ExpectArray(av, context)
	if err != nil {
		return 0, err
	}
	n := 0
	err = arr.ForEach(func(_ int, v runtime.Value) error {
		eq, err := runtime.Equals(v, x)
		if eq {
			n++
		}
		return err
	})
	return n, err
}

func joinValues(sep runtime.Value, arr *runtime.ArrayValue) (runtime.Value, error) {
	switch s := sep.(type) {
	case runtime.StringValue:
		var b strings.Builder
		first := true
		err := arr.ForEach(func(k int, v runtime.Value) error {
			if _, null := v.(runtime.NullValue); null {
				return nil
			}
			str, ok := v.(runtime.StringValue)
			if !ok {
				return runtime.NewError(runtime.ErrTypeMismatch, "std.join: expected string at index %d, got %s", k, runtime.TypeName(v))
			}
			if !first {
				b.WriteString(s.Str())
			}
			first = false
			b.WriteString(str.Str())
			return nil
		})
		if err != nil {
			return nil, err
		}
		return runtime.NewString(b.String()), nil
	case *runtime.ArrayValue:
		result := runtime.EmptyArray()
		first := true
		err := arr.ForEach(func(k int, v runtime.Value) error {
			if _, null := v.(runtime.NullValue); null {
				return nil
			}
			part, ok := v.(*runtime.ArrayValue)
			if !ok {
				return runtime.NewError(runtime.ErrTypeMismatch, "std.join: expected array at index %d, got %s", k, runtime.TypeName(v))
			}
			var err error
			if !first {
				if result, err = runtime.ConcatArrays(result, s); err != nil {
					return err
				}
			}
			first = false
			result, err = runtime.ConcatArrays(result, part)
			return err
		})
		if err != nil {
			return nil, err
		}
		return result, nil
	}
	return nil, runtime.NewError(runtime.ErrTypeMismatch, "std.join: separator must be string or array, got %s", runtime.TypeName(sep))
}

// sortArray is a stable sort on the keys produced by key.
func sortArray(arr *runtime.ArrayValue, key func(runtime.Value) (runtime.Value, error)) (runtime.Value, error) {
	values, err := arr.Values()
	if err != nil {
		return nil, err
	}
	keys := make([]runtime.Value, len(values))
	for k, v := range values {
		if keys[k], err = key(v); err != nil {
			return nil, err
		}
	}
	order := make([]int, len(values))
	for k := range order {
		order[k] = k
	}
	var cmpErr error
	sort.SliceStable(order, func(a, b int) bool {
		if cmpErr != nil {
			return false
		}
		c, err := runtime.Compare(keys[order[a]], keys[order[b]])
		if err != nil {
			cmpErr = err
			return false
		}
		return c < 0
	})
	if cmpErr != nil {
		return nil, cmpErr
	}
	sorted := make([]runtime.Value, len(values))
	for k, idx := range order {
		sorted[k] = values[idx]
	}
	return runtime.NewEagerArray(sorted), nil
}

package interpreter

import (
	"math"

	"jsonnet/interpreter-go/pkg/runtime"
)

func (i *Interpreter) registerMathBuiltins(register registerFunc) {
	unary := func(name string, op func(float64) float64) {
		register(name, strict("n"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
			v, _ := args[0].Force()
			n, err := runtime.ExpectNumber(v, "std."+name)
			if err != nil {
				return nil, err
			}
			return runtime.NewNumber(op(n))
		})
	}
	unary("abs", math.Abs)
	unary("floor", math.Floor)
	unary("ceil", math.Ceil)
	unary("sqrt", math.Sqrt)
	unary("exp", math.Exp)
	unary("log", math.Log)

	binary := func(name string, op func(a, b float64) float64) {
		register(name, strict("a", "b"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
			av, _ := args[0].Force()
			bv, _ := args[1].Force()
			a, err := runtime.ExpectNumber(av, "std."+name)
			if err != nil {
				return nil, err
			}
			b, err := runtime.ExpectNumber(bv, "std."+name)
			if err != nil {
				return nil, err
			}
			return runtime.NewNumber(op(a, b))
		})
	}
	binary("max", math.Max)
	binary("min", math.Min)
	binary("pow", math.Pow)
	binary("modulo", math.Mod)
}

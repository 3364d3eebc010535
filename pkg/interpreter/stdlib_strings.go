package interpreter

import (
	"strings"
	"unicode/utf8"

	"jsonnet/interpreter-go/pkg/runtime"
)

func (i *Interpreter) registerStringBuiltins(register registerFunc) {
	register("codepoint", strict("str"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		v, _ := args[0].Force()
		s, err := runtime.ExpectString(v, "std.codepoint")
		if err != nil {
			return nil, err
		}
		if s.Len() != 1 {
			return nil, runtime.NewError(runtime.ErrTypeMismatch, "std.codepoint expected a string of length 1, got length %d", s.Len())
		}
		r, _ := utf8.DecodeRuneInString(s.Str())
		return runtime.NumberValue{Val: float64(r)}, nil
	})
	register("char", strict("n"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		v, _ := args[0].Force()
		n, err := runtime.ToInt(v, "std.char")
		if err != nil {
			return nil, err
		}
		if n < 0 || n > utf8.MaxRune || (n >= 0xD800 && n <= 0xDFFF) {
			return nil, runtime.NewError(runtime.ErrInvalidCodepoint, "invalid unicode codepoint, got %d", n)
		}
		return runtime.NewString(string(rune(n))), nil
	})
	register("substr", strict("str", "from", "len"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		sv, _ := args[0].Force()
		fv, _ := args[1].Force()
		lv, _ := args[2].Force()
		s, err := runtime.ExpectString(sv, "std.substr")
		if err != nil {
			return nil, err
		}
		from, err := runtime.ToInt(fv, "std.substr from")
		if err != nil {
			return nil, err
		}
		length, err := runtime.ToInt(lv, "std.substr len")
		if err != nil {
			return nil, err
		}
		if from < 0 || length < 0 {
			return nil, runtime.NewError(runtime.ErrStringBounds, "std.substr: from and len must be non-negative, got %d and %d", from, length)
		}
		runes := []rune(s.Str())
		if from >= len(runes) {
			return runtime.NewString(""), nil
		}
		end := len(runes)
		if length < end-from {
			end = from + length
		}
		return runtime.NewString(string(runes[from:end])), nil
	})
	affix := func(name string, test func(s, affix string) bool) {
		register(name, strict("a", "b"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
			av, _ := args[0].Force()
			bv, _ := args[1].Force()
			a, err := runtime.ExpectString(av, "std."+name)
			if err != nil {
				return nil, err
			}
			b, err := runtime.ExpectString(bv, "std."+name)
			if err != nil {
				return nil, err
			}
			return runtime.BoolValue{Val: test(a.Str(), b.Str())}, nil
		})
	}
	affix("startsWith", strings.HasPrefix)
	affix("endsWith", strings.HasSuffix)

	register("split", strict("str", "c"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		sv, _ := args[0].Force()
		cv, _ := args[1].Force()
		s, err := runtime.ExpectString(sv, "std.split")
		if err != nil {
			return nil, err
		}
		sep, err := runtime.ExpectString(cv, "std.split separator")
		if err != nil {
			return nil, err
		}
		if sep.Len() == 0 {
			return nil, runtime.NewError(runtime.ErrTypeMismatch, "std.split: separator must not be empty")
		}
		return stringArray(strings.Split(s.Str(), sep.Str())), nil
	})
	register("stringChars", strict("str"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		v, _ := args[0].Force()
		s, err := runtime.ExpectString(v, "std.stringChars")
		if err != nil {
			return nil, err
		}
		return runtime.NewCharsArray(s.Str()), nil
	})
	register("asciiUpper", strict("str"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		v, _ := args[0].Force()
		s, err := runtime.ExpectString(v, "std.asciiUpper")
		if err != nil {
			return nil, err
		}
		return runtime.NewString(mapASCII(s.Str(), 'a', 'z', 'A'-'a')), nil
	})
	register("asciiLower", strict("str"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		v, _ := args[0].Force()
		s, err := runtime.ExpectString(v, "std.asciiLower")
		if err != nil {
			return nil, err
		}
		return runtime.NewString(mapASCII(s.Str(), 'A', 'Z', 'a'-'A')), nil
	})
	register("format", strict("str", "vals"), func(_ *runtime.NativeCall, args []*runtime.Thunk) (runtime.Value, error) {
		sv, _ := args[0].Force()
		vals, _ := args[1].Force()
		s, err := runtime.ExpectString(sv, "std.format")
		if err != nil {
			return nil, err
		}
		out, err := i.formatString(s.Str(), vals)
		if err != nil {
			return nil, err
		}
		return runtime.NewString(out), nil
	})
}

func mapASCII(s string, lo, hi rune, shift rune) string {
	return strings.Map(func(r rune) rune {
		if r >= lo && r <= hi {
			return r + shift
		}
		return r
	}, s)
}

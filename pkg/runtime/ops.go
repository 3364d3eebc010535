package runtime

import (
	"math"
	"strconv"
	"strings"
)

// FormatNumber renders n the way string concatenation shows numbers: the
// shortest decimal that round-trips, never in exponent form.
func FormatNumber(n float64) string {
	if n == 0 {
		return "0"
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// Add implements the polymorphic `+` operator.
func Add(left, right Value) (Value, error) {
	switch l := left.(type) {
	case StringValue:
		switch r := right.(type) {
		case StringValue:
			return ConcatStrings(l, r), nil
		case NumberValue:
			return ConcatStrings(l, NewString(FormatNumber(r.Val))), nil
		default:
			s, err := ToString(right)
			if err != nil {
				return nil, err
			}
			return ConcatStrings(l, NewString(s)), nil
		}
	case NumberValue:
		switch r := right.(type) {
		case NumberValue:
			return NewNumber(l.Val + r.Val)
		case StringValue:
			return ConcatStrings(NewString(FormatNumber(l.Val)), r), nil
		}
	case *ObjectValue:
		if r, ok := right.(*ObjectValue); ok {
			return ExtendObjects(l, r), nil
		}
	case *ArrayValue:
		if r, ok := right.(*ArrayValue); ok {
			return ConcatArrays(l, r)
		}
	}
	if r, ok := right.(StringValue); ok {
		s, err := ToString(left)
		if err != nil {
			return nil, err
		}
		return ConcatStrings(NewString(s), r), nil
	}
	return nil, binaryMismatch("+", left, right)
}

func binaryMismatch(op string, left, right Value) *Error {
	return NewError(ErrBinaryOperatorDoesNotOperateOnValues, "binary operation %s %s %s is not implemented", TypeName(left), op, TypeName(right))
}

// BinaryMismatch reports an operator applied to unsupported operand types.
func BinaryMismatch(op string, left, right Value) *Error {
	return binaryMismatch(op, left, right)
}

// ToString converts v to its string form: strings are returned unchanged,
// everything else is rendered as single-line JSON.
func ToString(v Value) (string, error) {
	if s, ok := v.(StringValue); ok {
		return s.Str(), nil
	}
	return ManifestJSON(v, ManifestOptions{})
}

// Equals compares by value, forcing nested elements as needed. Functions
// cannot be compared. A value compared with itself is still walked in full,
// so element errors and object assertions surface.
func Equals(a, b Value) (bool, error) {
	if a.Kind() != b.Kind() {
		return false, nil
	}
	switch av := a.(type) {
	case NullValue:
		return true, nil
	case BoolValue:
		return av.Val == b.(BoolValue).Val, nil
	case NumberValue:
		return av.Val == b.(NumberValue).Val, nil
	case StringValue:
		return av.Str() == b.(StringValue).Str(), nil
	case *ArrayValue:
		bv := b.(*ArrayValue)
		if av.Len() != bv.Len() {
			return false, nil
		}
		for i := 0; i < av.Len(); i++ {
			x, err := av.Get(i)
			if err != nil {
				return false, err
			}
			y, err := bv.Get(i)
			if err != nil {
				return false, err
			}
			eq, err := Equals(x, y)
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	case *ObjectValue:
		bv := b.(*ObjectValue)
		af, err := av.Fields(false, false)
		if err != nil {
			return false, err
		}
		bf, err := bv.Fields(false, false)
		if err != nil {
			return false, err
		}
		if len(af) != len(bf) {
			return false, nil
		}
		for i, name := range af {
			if bf[i] != name {
				return false, nil
			}
		}
		for _, name := range af {
			x, _, err := av.Get(name)
			if err != nil {
				return false, err
			}
			y, _, err := bv.Get(name)
			if err != nil {
				return false, err
			}
			eq, err := Equals(x, y)
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	default:
		return false, NewError(ErrRuntime, "cannot test equality of functions")
	}
}

// Compare orders numbers, strings and arrays (lexicographically).
func Compare(a, b Value) (int, error) {
	switch av := a.(type) {
	case NumberValue:
		if bv, ok := b.(NumberValue); ok {
			switch {
			case av.Val < bv.Val:
				return -1, nil
			case av.Val > bv.Val:
				return 1, nil
			}
			return 0, nil
		}
	case StringValue:
		if bv, ok := b.(StringValue); ok {
			return strings.Compare(av.Str(), bv.Str()), nil
		}
	case *ArrayValue:
		if bv, ok := b.(*ArrayValue); ok {
			n := min(av.Len(), bv.Len())
			for i := 0; i < n; i++ {
				x, err := av.Get(i)
				if err != nil {
					return 0, err
				}
				y, err := bv.Get(i)
				if err != nil {
					return 0, err
				}
				c, err := Compare(x, y)
				if err != nil || c != 0 {
					return c, err
				}
			}
			switch {
			case av.Len() < bv.Len():
				return -1, nil
			case av.Len() > bv.Len():
				return 1, nil
			}
			return 0, nil
		}
	}
	return 0, binaryMismatch("<", a, b)
}

// ToInt converts a number to an index-like integer, rejecting fractions.
func ToInt(v Value, context string) (int, error) {
	n, ok := v.(NumberValue)
	if !ok {
		return 0, typeMismatch(context, KindNumber, v)
	}
	if n.Val != math.Trunc(n.Val) {
		return 0, NewError(ErrFractionalIndex, "%s: expected an integer, got %s", context, FormatNumber(n.Val))
	}
	i, ok := n.Int()
	if !ok {
		return 0, NewError(ErrNumberOverflow, "%s: %s is out of integer range", context, FormatNumber(n.Val))
	}
	return i, nil
}

// ExpectString, ExpectNumber and friends check the kind of a forced value.
func ExpectString(v Value, context string) (StringValue, error) {
	if s, ok := v.(StringValue); ok {
		return s, nil
	}
	return StringValue{}, typeMismatch(context, KindString, v)
}

func ExpectNumber(v Value, context string) (float64, error) {
	if n, ok := v.(NumberValue); ok {
		return n.Val, nil
	}
	return 0, typeMismatch(context, KindNumber, v)
}

func ExpectBool(v Value, context string) (bool, error) {
	if b, ok := v.(BoolValue); ok {
		return b.Val, nil
	}
	return false, typeMismatch(context, KindBool, v)
}

func ExpectArray(v Value, context string) (*ArrayValue, error) {
	if a, ok := v.(*ArrayValue); ok {
		return a, nil
	}
	return nil, typeMismatch(context, KindArray, v)
}

func ExpectObject(v Value, context string) (*ObjectValue, error) {
	if o, ok := v.(*ObjectValue); ok {
		return o, nil
	}
	return nil, typeMismatch(context, KindObject, v)
}

package runtime

import (
	"math"
	"strings"
	"testing"
)

func str(s string) StringValue { return NewString(s) }

func TestAddCoercions(t *testing.T) {
	cases := []struct {
		name        string
		left, right Value
		want        string
	}{
		{"number then string", NumberValue{Val: 1}, str("x"), "1x"},
		{"string then number", str("x"), NumberValue{Val: 1.5}, "x1.5"},
		{"large number", NumberValue{Val: 1e21}, str(""), "1000000000000000000000"},
		{"string then null", str("v="), NullValue{}, "v=null"},
		{"bool then string", BoolValue{Val: true}, str("!"), "true!"},
		{"string then array", str("a"), NewEagerArray([]Value{NumberValue{Val: 1}, NumberValue{Val: 2}}), "a[1, 2]"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Add(tc.left, tc.right)
			if err != nil {
				t.Fatalf("add: %v", err)
			}
			s, ok := got.(StringValue)
			if !ok || s.Str() != tc.want {
				t.Fatalf("got %#v, want %q", got, tc.want)
			}
		})
	}
}

func TestAddRejectsMismatch(t *testing.T) {
	if _, err := Add(NumberValue{Val: 1}, BoolValue{Val: true}); !IsKind(err, ErrBinaryOperatorDoesNotOperateOnValues) {
		t.Fatalf("expected operator mismatch, got %v", err)
	}
	if _, err := Add(NewEmptyObject(), EmptyArray()); !IsKind(err, ErrBinaryOperatorDoesNotOperateOnValues) {
		t.Fatalf("expected operator mismatch, got %v", err)
	}
}

func TestAddOverflow(t *testing.T) {
	if _, err := Add(NumberValue{Val: math.MaxFloat64}, NumberValue{Val: math.MaxFloat64}); !IsKind(err, ErrNumberOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestNewNumberRejectsNonFinite(t *testing.T) {
	if _, err := NewNumber(math.NaN()); !IsKind(err, ErrNumberNaN) {
		t.Fatalf("expected NaN error, got %v", err)
	}
	if _, err := NewNumber(math.Inf(-1)); !IsKind(err, ErrNumberOverflow) {
		t.Fatalf("expected overflow error, got %v", err)
	}
}

func TestRopeStringsBehaveFlat(t *testing.T) {
	acc := str("")
	var want strings.Builder
	for i := 0; i < 2000; i++ {
		piece := strings.Repeat("ab", 40)
		acc = ConcatStrings(acc, str(piece))
		want.WriteString(piece)
	}
	if !acc.IsRope() {
		t.Fatalf("expected long concatenation to build a rope")
	}
	if acc.ByteLen() != want.Len() {
		t.Fatalf("byte length %d, want %d", acc.ByteLen(), want.Len())
	}
	eq, err := Equals(acc, str(want.String()))
	if err != nil || !eq {
		t.Fatalf("rope and flat string should be equal (%v)", err)
	}
	if acc.IsRope() {
		t.Fatalf("expected rope to be flattened after comparison")
	}
}

func TestEqualsDeep(t *testing.T) {
	a := NewEagerArray([]Value{NumberValue{Val: 1}, str("x")})
	b := NewLazyArray([]*Thunk{Resolved(NumberValue{Val: 1}), Resolved(str("x"))})
	eq, err := Equals(a, b)
	if err != nil || !eq {
		t.Fatalf("expected arrays equal across backends (%v)", err)
	}

	ob := NewObjectBuilder()
	_ = ob.AddValue("k", a, VisibilityInherit)
	_ = ob.AddValue("hidden", NumberValue{Val: 1}, VisibilityHidden)
	ob2 := NewObjectBuilder()
	_ = ob2.AddValue("k", b, VisibilityInherit)
	eq, err = Equals(ob.Build(), ob2.Build())
	if err != nil || !eq {
		t.Fatalf("expected objects equal ignoring hidden fields (%v)", err)
	}

	if eq, _ := Equals(NumberValue{Val: 1}, str("1")); eq {
		t.Fatalf("values of different kinds must not be equal")
	}
	fn := NewNative("f", nil, nil)
	if _, err := Equals(fn, fn); err == nil {
		t.Fatalf("expected error comparing functions")
	}
}

func TestEqualsWalksAliasedValues(t *testing.T) {
	failing := NewLazyArray([]*Thunk{NewThunk(func() (Value, error) {
		return nil, NewError(ErrRuntime, "x")
	})})
	if _, err := Equals(failing, failing); !IsKind(err, ErrRuntime) {
		t.Fatalf("expected the element error when comparing an array with itself, got %v", err)
	}
	withFn := NewEagerArray([]Value{NewNative("f", nil, nil)})
	if _, err := Equals(withFn, withFn); err == nil {
		t.Fatalf("expected error comparing an array of functions with itself")
	}
	ob := NewObjectBuilder()
	_ = ob.AddValue("f", NewNative("f", nil, nil), VisibilityInherit)
	obj := ob.Build()
	if _, err := Equals(obj, obj); err == nil {
		t.Fatalf("expected error comparing an object holding a function with itself")
	}
}

func TestCompare(t *testing.T) {
	c, err := Compare(NewEagerArray([]Value{NumberValue{Val: 1}, NumberValue{Val: 2}}), NewEagerArray([]Value{NumberValue{Val: 1}, NumberValue{Val: 3}}))
	if err != nil || c != -1 {
		t.Fatalf("expected [1,2] < [1,3], got %d (%v)", c, err)
	}
	c, _ = Compare(str("b"), str("a"))
	if c != 1 {
		t.Fatalf("expected b > a, got %d", c)
	}
	if _, err := Compare(str("a"), NumberValue{Val: 1}); !IsKind(err, ErrBinaryOperatorDoesNotOperateOnValues) {
		t.Fatalf("expected mismatch error, got %v", err)
	}
}

func TestToIntRejectsFractions(t *testing.T) {
	if _, err := ToInt(NumberValue{Val: 1.5}, "index"); !IsKind(err, ErrFractionalIndex) {
		t.Fatalf("expected fractional index error, got %v", err)
	}
	if i, err := ToInt(NumberValue{Val: -3}, "index"); err != nil || i != -3 {
		t.Fatalf("expected -3, got %d (%v)", i, err)
	}
}

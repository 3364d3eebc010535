package runtime

import (
	"testing"

	"github.com/kr/pretty"
)

func constField(v Value) ObjectField {
	return ObjectField{Bind: func(*ObjectValue, *SuperObject) (Value, error) { return v, nil }}
}

func selfField(name string) ObjectField {
	return ObjectField{Bind: func(self *ObjectValue, _ *SuperObject) (Value, error) {
		v, ok, err := self.Get(name)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, NewError(ErrNoSuchField, "no such field: %s", name)
		}
		return v, nil
	}}
}

func mustAdd(t *testing.T, b *ObjectBuilder, name string, f ObjectField) {
	t.Helper()
	if err := b.AddField(name, f); err != nil {
		t.Fatalf("add field %s: %v", name, err)
	}
}

func getNumber(t *testing.T, obj *ObjectValue, name string) float64 {
	t.Helper()
	v, ok, err := obj.Get(name)
	if err != nil {
		t.Fatalf("get %s: %v", name, err)
	}
	if !ok {
		t.Fatalf("field %s missing", name)
	}
	n, isNum := v.(NumberValue)
	if !isNum {
		t.Fatalf("field %s: expected number, got %#v", name, v)
	}
	return n.Val
}

func TestObjectDuplicateFieldRejected(t *testing.T) {
	b := NewObjectBuilder()
	mustAdd(t, b, "a", constField(NumberValue{Val: 1}))
	if err := b.AddField("a", constField(NumberValue{Val: 2})); !IsKind(err, ErrDuplicateFieldName) {
		t.Fatalf("expected duplicate field error, got %v", err)
	}
}

func TestObjectLateBindingOfSelf(t *testing.T) {
	ab := NewObjectBuilder()
	mustAdd(t, ab, "x", constField(NumberValue{Val: 1}))
	mustAdd(t, ab, "y", selfField("x"))
	a := ab.Build()

	bb := NewObjectBuilder()
	mustAdd(t, bb, "x", constField(NumberValue{Val: 2}))
	b := bb.Build()

	if got := getNumber(t, ExtendObjects(a, b), "y"); got != 2 {
		t.Fatalf("(A + B).y = %v, want 2", got)
	}
	if got := getNumber(t, a, "y"); got != 1 {
		t.Fatalf("A.y = %v, want 1", got)
	}
}

func TestObjectSuperSeesEarlierLayers(t *testing.T) {
	ab := NewObjectBuilder()
	mustAdd(t, ab, "x", constField(NumberValue{Val: 10}))
	a := ab.Build()

	bb := NewObjectBuilder()
	mustAdd(t, bb, "x", ObjectField{Bind: func(_ *ObjectValue, super *SuperObject) (Value, error) {
		if super == nil {
			return nil, NewError(ErrNoSuperFound, "no super")
		}
		v, _, err := super.Get("x")
		if err != nil {
			return nil, err
		}
		return NewNumber(v.(NumberValue).Val + 1)
	}})
	b := bb.Build()

	if got := getNumber(t, ExtendObjects(a, b), "x"); got != 11 {
		t.Fatalf("expected super.x + 1 = 11, got %v", got)
	}
	if _, err := func() (Value, error) { v, _, err := b.Get("x"); return v, err }(); !IsKind(err, ErrNoSuperFound) {
		t.Fatalf("expected no super in first layer, got %v", err)
	}
}

func TestObjectAdditiveFieldsAcrossLayers(t *testing.T) {
	base := NewObjectBuilder()
	mustAdd(t, base, "a", constField(NewEagerArray([]Value{NumberValue{Val: 0}})))
	mid := NewObjectBuilder()
	mustAdd(t, mid, "a", ObjectField{Add: true, Bind: constField(NewEagerArray([]Value{NumberValue{Val: 1}})).Bind})
	top := NewObjectBuilder()
	mustAdd(t, top, "a", ObjectField{Add: true, Bind: constField(NewEagerArray([]Value{NumberValue{Val: 2}})).Bind})

	obj := ExtendObjects(ExtendObjects(base.Build(), mid.Build()), top.Build())
	v, _, err := obj.Get("a")
	if err != nil {
		t.Fatalf("get a: %v", err)
	}
	expectNumbers(t, v.(*ArrayValue), 0, 1, 2)

	lone := NewObjectBuilder()
	mustAdd(t, lone, "a", ObjectField{Add: true, Bind: constField(NumberValue{Val: 5}).Bind})
	if got := getNumber(t, lone.Build(), "a"); got != 5 {
		t.Fatalf("additive field without base: got %v, want 5", got)
	}
}

func TestObjectVisibility(t *testing.T) {
	layer := func(vis Visibility) *ObjectValue {
		b := NewObjectBuilder()
		f := constField(NumberValue{Val: 1})
		f.Visibility = vis
		mustAdd(t, b, "f", f)
		return b.Build()
	}
	cases := []struct {
		name   string
		layers []Visibility
		want   bool
	}{
		{"plain", []Visibility{VisibilityInherit}, true},
		{"hidden", []Visibility{VisibilityHidden}, false},
		{"hidden then inherit stays hidden", []Visibility{VisibilityHidden, VisibilityInherit}, false},
		{"hidden then unhide", []Visibility{VisibilityHidden, VisibilityUnhide}, true},
		{"visible then hidden", []Visibility{VisibilityInherit, VisibilityHidden}, false},
		{"unhide then hidden", []Visibility{VisibilityUnhide, VisibilityHidden}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			obj := layer(tc.layers[0])
			for _, vis := range tc.layers[1:] {
				obj = ExtendObjects(obj, layer(vis))
			}
			fields, err := obj.Fields(false, false)
			if err != nil {
				t.Fatalf("fields: %v", err)
			}
			if got := len(fields) == 1; got != tc.want {
				t.Fatalf("visible = %v, want %v", got, tc.want)
			}
			if !obj.HasField("f", true) {
				t.Fatalf("expected hidden-inclusive lookup to find f")
			}
		})
	}
}

func TestObjectFieldOrder(t *testing.T) {
	a := NewObjectBuilder()
	mustAdd(t, a, "zeta", constField(NullValue{}))
	mustAdd(t, a, "alpha", constField(NullValue{}))
	b := NewObjectBuilder()
	mustAdd(t, b, "mid", constField(NullValue{}))
	mustAdd(t, b, "zeta", constField(NullValue{}))
	obj := ExtendObjects(a.Build(), b.Build())

	ordered, err := obj.Fields(false, true)
	if err != nil {
		t.Fatalf("fields: %v", err)
	}
	if diff := pretty.Diff(ordered, []string{"zeta", "alpha", "mid"}); len(diff) > 0 {
		t.Fatalf("insertion order mismatch: %v", diff)
	}
	sorted, _ := obj.Fields(false, false)
	if diff := pretty.Diff(sorted, []string{"alpha", "mid", "zeta"}); len(diff) > 0 {
		t.Fatalf("sorted order mismatch: %v", diff)
	}
}

func TestObjectFieldMemoized(t *testing.T) {
	calls := 0
	b := NewObjectBuilder()
	mustAdd(t, b, "n", ObjectField{Bind: func(*ObjectValue, *SuperObject) (Value, error) {
		calls++
		return NumberValue{Val: 7}, nil
	}})
	obj := b.Build()
	for i := 0; i < 3; i++ {
		getNumber(t, obj, "n")
	}
	if calls != 1 {
		t.Fatalf("expected one evaluation, got %d", calls)
	}
}

func TestObjectAssertionsRunBeforeIteration(t *testing.T) {
	b := NewObjectBuilder()
	mustAdd(t, b, "x", constField(NumberValue{Val: 1}))
	b.AddAssertion(func(self *ObjectValue, _ *SuperObject) error {
		v, _, err := self.Get("x")
		if err != nil {
			return err
		}
		if v.(NumberValue).Val != 2 {
			return NewError(ErrAssertionFailed, "x must be 2")
		}
		return nil
	})
	obj := b.Build()
	if _, err := obj.Fields(false, false); !IsKind(err, ErrAssertionFailed) {
		t.Fatalf("expected assertion failure, got %v", err)
	}

	fix := NewObjectBuilder()
	mustAdd(t, fix, "x", constField(NumberValue{Val: 2}))
	fixed := ExtendObjects(obj, fix.Build())
	if _, err := fixed.Fields(false, false); err != nil {
		t.Fatalf("expected extended object to satisfy inherited assertion: %v", err)
	}
}

func TestObjectSelfReferentialFieldFails(t *testing.T) {
	b := NewObjectBuilder()
	mustAdd(t, b, "loop", selfField("loop"))
	if _, _, err := b.Build().Get("loop"); !IsKind(err, ErrInfiniteRecursionDetected) {
		t.Fatalf("expected infinite recursion, got %v", err)
	}
}

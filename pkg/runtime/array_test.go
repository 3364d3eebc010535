package runtime

import (
	"math"
	"testing"

	"github.com/kr/pretty"
)

func numbers(t *testing.T, arr *ArrayValue) []float64 {
	t.Helper()
	values, err := arr.Values()
	if err != nil {
		t.Fatalf("force array: %v", err)
	}
	out := make([]float64, len(values))
	for i, v := range values {
		n, ok := v.(NumberValue)
		if !ok {
			t.Fatalf("element %d: expected number, got %#v", i, v)
		}
		out[i] = n.Val
	}
	return out
}

func expectNumbers(t *testing.T, arr *ArrayValue, want ...float64) {
	t.Helper()
	got := numbers(t, arr)
	if want == nil {
		want = []float64{}
	}
	if diff := pretty.Diff(got, want); len(diff) > 0 {
		t.Fatalf("array mismatch: %v", diff)
	}
}

func eager(values ...float64) *ArrayValue {
	out := make([]Value, len(values))
	for i, v := range values {
		out[i] = NumberValue{Val: v}
	}
	return NewEagerArray(out)
}

func lazy(values ...float64) *ArrayValue {
	out := make([]*Thunk, len(values))
	for i, v := range values {
		n := v
		out[i] = NewThunk(func() (Value, error) { return NumberValue{Val: n}, nil })
	}
	return NewLazyArray(out)
}

func intp(i int) *int { return &i }

func rangeOf(t *testing.T, low, high int) *ArrayValue {
	t.Helper()
	arr, err := NewRangeArray(low, high)
	if err != nil {
		t.Fatalf("range %d..%d: %v", low, high, err)
	}
	return arr
}

func TestRangeArray(t *testing.T) {
	expectNumbers(t, rangeOf(t, 2, 5), 2, 3, 4, 5)
	if rangeOf(t, 3, 1).Len() != 0 {
		t.Fatalf("expected empty range when high < low")
	}
	if !rangeOf(t, 0, 10).IsCheap() {
		t.Fatalf("expected range to be cheap")
	}
	if got := rangeOf(t, 1, math.MaxInt32).Len(); got != math.MaxInt32 {
		t.Fatalf("expected the largest range to have length %d, got %d", math.MaxInt32, got)
	}
	if _, err := NewRangeArray(0, math.MaxInt32); !IsKind(err, ErrArrayLengthOverflow) {
		t.Fatalf("expected overflow error, got %v", err)
	}
	if _, err := NewRangeArray(-9007199254740991, 9007199254740991); !IsKind(err, ErrArrayLengthOverflow) {
		t.Fatalf("expected overflow error for a huge range, got %v", err)
	}
}

func TestArrayBounds(t *testing.T) {
	arr := eager(1, 2)
	if _, err := arr.Get(2); !IsKind(err, ErrArrayBounds) {
		t.Fatalf("expected bounds error, got %v", err)
	}
	if _, err := arr.Get(-1); !IsKind(err, ErrArrayBounds) {
		t.Fatalf("expected bounds error for negative index, got %v", err)
	}
}

func TestSliceArray(t *testing.T) {
	base := lazy(1, 2, 3, 4, 5)
	cases := []struct {
		name           string
		from, to, step *int
		want           []float64
	}{
		{"from one", intp(1), nil, nil, []float64{2, 3, 4, 5}},
		{"drop last", nil, intp(-1), nil, []float64{1, 2, 3, 4}},
		{"stepped", nil, nil, intp(2), []float64{1, 3, 5}},
		{"negative saturates", intp(-10), intp(2), nil, []float64{1, 2}},
		{"past end clamps", intp(3), intp(99), nil, []float64{4, 5}},
		{"empty when from >= to", intp(3), intp(3), nil, nil},
		{"crossed bounds", intp(4), intp(1), nil, nil},
		{"stepped window", intp(1), intp(5), intp(3), []float64{2, 5}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := SliceArray(base, tc.from, tc.to, tc.step)
			if err != nil {
				t.Fatalf("slice: %v", err)
			}
			expectNumbers(t, got, tc.want...)
		})
	}
}

func TestSliceRejectsNonPositiveStep(t *testing.T) {
	if _, err := SliceArray(eager(1, 2), nil, nil, intp(0)); !IsKind(err, ErrSliceStepNotPositive) {
		t.Fatalf("expected step error, got %v", err)
	}
	if _, err := SliceArray(eager(1, 2), nil, nil, intp(-1)); !IsKind(err, ErrSliceStepNotPositive) {
		t.Fatalf("expected step error for negative step, got %v", err)
	}
}

func TestSliceRoundTrip(t *testing.T) {
	base := rangeOf(t, 0, 9)
	for from := 0; from <= base.Len(); from++ {
		for to := from; to <= base.Len(); to++ {
			s, err := SliceArray(base, intp(from), intp(to), intp(1))
			if err != nil {
				t.Fatalf("slice %d:%d: %v", from, to, err)
			}
			if s.Len() != to-from {
				t.Fatalf("slice %d:%d: expected length %d, got %d", from, to, to-from, s.Len())
			}
			for i := 0; i < s.Len(); i++ {
				got, _ := s.Get(i)
				want, _ := base.Get(from + i)
				if got != want {
					t.Fatalf("slice %d:%d index %d: got %#v, want %#v", from, to, i, got, want)
				}
			}
		}
	}
}

func TestSliceOfLazyStaysLazy(t *testing.T) {
	forced := 0
	thunks := make([]*Thunk, 4)
	for i := range thunks {
		n := float64(i)
		thunks[i] = NewThunk(func() (Value, error) {
			forced++
			return NumberValue{Val: n}, nil
		})
	}
	s, err := SliceArray(NewLazyArray(thunks), intp(1), intp(3), nil)
	if err != nil {
		t.Fatalf("slice: %v", err)
	}
	if forced != 0 {
		t.Fatalf("slicing forced %d elements", forced)
	}
	if _, err := s.Get(0); err != nil {
		t.Fatalf("get: %v", err)
	}
	if forced != 1 {
		t.Fatalf("expected one element forced, got %d", forced)
	}
}

func TestMapArrayMemoizesPerIndex(t *testing.T) {
	calls := map[int]int{}
	mapped := MapArray(rangeOf(t, 1, 3), func(i int, elem *Thunk) (Value, error) {
		calls[i]++
		v, err := elem.Force()
		if err != nil {
			return nil, err
		}
		return NumberValue{Val: v.(NumberValue).Val * 10}, nil
	})
	expectNumbers(t, mapped, 10, 20, 30)
	expectNumbers(t, mapped, 10, 20, 30)
	for i := 0; i < 3; i++ {
		if calls[i] != 1 {
			t.Fatalf("index %d mapped %d times", i, calls[i])
		}
	}
	if mapped.IsCheap() {
		t.Fatalf("mapped arrays must not claim to be cheap")
	}
}

func TestMapArrayDetectsSelfReference(t *testing.T) {
	var mapped *ArrayValue
	mapped = MapArray(rangeOf(t, 0, 1), func(i int, _ *Thunk) (Value, error) {
		return mapped.Get(i)
	})
	if _, err := mapped.Get(0); !IsKind(err, ErrInfiniteRecursionDetected) {
		t.Fatalf("expected infinite recursion, got %v", err)
	}
}

func TestRepeatArray(t *testing.T) {
	rep, err := RepeatArray(eager(1, 2), 3)
	if err != nil {
		t.Fatalf("repeat: %v", err)
	}
	expectNumbers(t, rep, 1, 2, 1, 2, 1, 2)
	if _, err := RepeatArray(rangeOf(t, 1, 1<<20), 1<<20); !IsKind(err, ErrArrayLengthOverflow) {
		t.Fatalf("expected overflow error, got %v", err)
	}
	if _, err := RepeatArray(eager(1), -1); !IsKind(err, ErrArrayLengthOverflow) {
		t.Fatalf("expected error for negative count, got %v", err)
	}
}

func TestReverseArray(t *testing.T) {
	rev := ReverseArray(lazy(1, 2, 3))
	expectNumbers(t, rev, 3, 2, 1)
	expectNumbers(t, ReverseArray(rev), 1, 2, 3)
}

func TestConcatFlattensEagerly(t *testing.T) {
	cheap, err := ConcatArrays(eager(1), rangeOf(t, 2, 3))
	if err != nil {
		t.Fatalf("concat: %v", err)
	}
	if _, ok := cheap.backend.(eagerArray); !ok {
		t.Fatalf("expected cheap concat to be eager, got %T", cheap.backend)
	}
	mixed, err := ConcatArrays(eager(1), lazy(2))
	if err != nil {
		t.Fatalf("concat: %v", err)
	}
	if _, ok := mixed.backend.(lazyArray); !ok {
		t.Fatalf("expected mixed concat to be lazy, got %T", mixed.backend)
	}
	expectNumbers(t, mixed, 1, 2)
}

func TestConcatAssociativeAndFlat(t *testing.T) {
	a, b, c := lazy(1, 2), eager(3), rangeOf(t, 4, 5)
	ab, _ := ConcatArrays(a, b)
	left, _ := ConcatArrays(ab, c)
	bc, _ := ConcatArrays(b, c)
	right, _ := ConcatArrays(a, bc)
	if diff := pretty.Diff(numbers(t, left), numbers(t, right)); len(diff) > 0 {
		t.Fatalf("associativity mismatch: %v", diff)
	}

	acc := EmptyArray()
	for i := 0; i < 500; i++ {
		var err error
		acc, err = ConcatArrays(acc, lazy(float64(i)))
		if err != nil {
			t.Fatalf("concat %d: %v", i, err)
		}
	}
	// Access goes straight to the flattened thunk list regardless of how
	// many concatenations produced it.
	if _, ok := acc.backend.(lazyArray); !ok {
		t.Fatalf("expected flat lazy backend, got %T", acc.backend)
	}
	v, err := acc.Get(499)
	if err != nil || v.(NumberValue).Val != 499 {
		t.Fatalf("unexpected last element %#v (%v)", v, err)
	}
}

func TestBytesAndCharsArrays(t *testing.T) {
	expectNumbers(t, NewBytesArray([]byte{1, 255}), 1, 255)
	chars := NewCharsArray("héllo")
	if chars.Len() != 5 {
		t.Fatalf("expected 5 code points, got %d", chars.Len())
	}
	v, _ := chars.Get(1)
	if v.(StringValue).Str() != "é" {
		t.Fatalf("expected é, got %#v", v)
	}
}

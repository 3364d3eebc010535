package runtime

import "math"

// arrayBackend is one representation of a logical array. Callers guarantee
// 0 <= i < Len().
type arrayBackend interface {
	Len() int
	Get(i int) (Value, error)
	GetLazy(i int) *Thunk
	// TryGetCheap returns the element when it is available without running
	// user code.
	TryGetCheap(i int) (Value, bool)
	// IsCheap reports whether TryGetCheap succeeds for every index.
	IsCheap() bool
}

// ArrayValue is an immutable sequence backed by one of several
// representations. The choice of backend never changes observable results,
// only when elements are evaluated.
type ArrayValue struct {
	backend arrayBackend
}

func (v *ArrayValue) Kind() Kind { return KindArray }

func newArray(backend arrayBackend) *ArrayValue {
	heapStats.arraysAllocated.Add(1)
	return &ArrayValue{backend: backend}
}

var emptyArray = &ArrayValue{backend: eagerArray(nil)}

// EmptyArray returns the shared zero-length array.
func EmptyArray() *ArrayValue {
	return emptyArray
}

func (v *ArrayValue) Len() int {
	return v.backend.Len()
}

func (v *ArrayValue) IsEmpty() bool {
	return v.backend.Len() == 0
}

func (v *ArrayValue) IsCheap() bool {
	return v.backend.IsCheap()
}

func (v *ArrayValue) checkIndex(i int) error {
	if i < 0 || i >= v.backend.Len() {
		return NewError(ErrArrayBounds, "array out of bounds: %d is not within [0,%d)", i, v.backend.Len())
	}
	return nil
}

// Get forces and returns element i.
func (v *ArrayValue) Get(i int) (Value, error) {
	if err := v.checkIndex(i); err != nil {
		return nil, err
	}
	return v.backend.Get(i)
}

// GetLazy returns element i without forcing it.
func (v *ArrayValue) GetLazy(i int) (*Thunk, error) {
	if err := v.checkIndex(i); err != nil {
		return nil, err
	}
	return v.backend.GetLazy(i), nil
}

// TryGetCheap returns element i only when no user code has to run.
func (v *ArrayValue) TryGetCheap(i int) (Value, bool) {
	if i < 0 || i >= v.backend.Len() {
		return nil, false
	}
	return v.backend.TryGetCheap(i)
}

// Values forces every element.
func (v *ArrayValue) Values() ([]Value, error) {
	n := v.backend.Len()
	out := make([]Value, n)
	for i := 0; i < n; i++ {
		val, err := v.backend.Get(i)
		if err != nil {
			return nil, err
		}
		out[i] = val
	}
	return out, nil
}

// Thunks returns every element unforced.
func (v *ArrayValue) Thunks() []*Thunk {
	n := v.backend.Len()
	out := make([]*Thunk, n)
	for i := 0; i < n; i++ {
		out[i] = v.backend.GetLazy(i)
	}
	return out
}

// ForEach forces elements in order and passes them to fn.
func (v *ArrayValue) ForEach(fn func(i int, val Value) error) error {
	n := v.backend.Len()
	for i := 0; i < n; i++ {
		val, err := v.backend.Get(i)
		if err != nil {
			return err
		}
		if err := fn(i, val); err != nil {
			return err
		}
	}
	return nil
}

//-----------------------------------------------------------------------------
// Constructors
//-----------------------------------------------------------------------------

func NewEagerArray(values []Value) *ArrayValue {
	if len(values) == 0 {
		return emptyArray
	}
	return newArray(eagerArray(values))
}

func NewLazyArray(thunks []*Thunk) *ArrayValue {
	if len(thunks) == 0 {
		return emptyArray
	}
	return newArray(lazyArray(thunks))
}

// NewRangeArray holds the integers low..high inclusive. Lengths are bounded
// like every other array length.
func NewRangeArray(low, high int) (*ArrayValue, error) {
	if high < low {
		return emptyArray, nil
	}
	if high-low >= math.MaxInt32 {
		return nil, NewError(ErrArrayLengthOverflow, "range array length overflows: %d..%d", low, high)
	}
	return newArray(&rangeArray{low: low, high: high}), nil
}

// NewBytesArray exposes raw bytes as numbers.
func NewBytesArray(data []byte) *ArrayValue {
	if len(data) == 0 {
		return emptyArray
	}
	return newArray(bytesArray(data))
}

// NewCharsArray exposes the code points of s as one-character strings.
func NewCharsArray(s string) *ArrayValue {
	runes := []rune(s)
	if len(runes) == 0 {
		return emptyArray
	}
	return newArray(charsArray(runes))
}

// ArrayMapper computes the mapped element for index i from the source
// element, which is passed unforced.
type ArrayMapper func(i int, elem *Thunk) (Value, error)

// MapArray applies mapper lazily. Each index is computed at most once.
func MapArray(base *ArrayValue, mapper ArrayMapper) *ArrayValue {
	if base.Len() == 0 {
		return emptyArray
	}
	return newArray(&mappedArray{base: base, mapper: mapper, cache: make([]*Thunk, base.Len())})
}

// ReverseArray views base in reverse order.
func ReverseArray(base *ArrayValue) *ArrayValue {
	if base.Len() <= 1 {
		return base
	}
	if r, ok := base.backend.(*reversedArray); ok {
		return r.base
	}
	return newArray(&reversedArray{base: base})
}

// RepeatArray concatenates count copies of base.
func RepeatArray(base *ArrayValue, count int) (*ArrayValue, error) {
	if count < 0 {
		return nil, NewError(ErrArrayLengthOverflow, "repeat count must not be negative, got %d", count)
	}
	n := base.Len()
	if n == 0 || count == 0 {
		return emptyArray, nil
	}
	if count == 1 {
		return base, nil
	}
	if n > math.MaxInt32/count {
		return nil, NewError(ErrArrayLengthOverflow, "repeated array length overflows: %d * %d", n, count)
	}
	return newArray(&repeatedArray{base: base, count: count}), nil
}

// ConcatArrays flattens a and b into one new backend. Cheap operands are
// copied as values, otherwise element thunks are copied without forcing.
func ConcatArrays(a, b *ArrayValue) (*ArrayValue, error) {
	na, nb := a.Len(), b.Len()
	if na == 0 {
		return b, nil
	}
	if nb == 0 {
		return a, nil
	}
	if na > math.MaxInt32-nb {
		return nil, NewError(ErrArrayLengthOverflow, "concatenated array length overflows: %d + %d", na, nb)
	}
	if a.IsCheap() && b.IsCheap() {
		values := make([]Value, 0, na+nb)
		for i := 0; i < na; i++ {
			v, _ := a.backend.TryGetCheap(i)
			values = append(values, v)
		}
		for i := 0; i < nb; i++ {
			v, _ := b.backend.TryGetCheap(i)
			values = append(values, v)
		}
		return newArray(eagerArray(values)), nil
	}
	thunks := make([]*Thunk, 0, na+nb)
	for i := 0; i < na; i++ {
		thunks = append(thunks, a.backend.GetLazy(i))
	}
	for i := 0; i < nb; i++ {
		thunks = append(thunks, b.backend.GetLazy(i))
	}
	return newArray(lazyArray(thunks)), nil
}

// NormalizeSlice resolves optional slice bounds against length. Negative
// positions count from the end and saturate at zero; positions past the end
// clamp to length. empty is true when nothing is selected.
func NormalizeSlice(length int, from, to, step *int) (start, end, stride int, empty bool, err error) {
	stride = 1
	if step != nil {
		if *step <= 0 {
			return 0, 0, 0, false, NewError(ErrSliceStepNotPositive, "slice step must be a positive integer, got %d", *step)
		}
		stride = *step
	}
	resolve := func(pos *int, def int) int {
		if pos == nil {
			return def
		}
		if *pos < 0 {
			return max(length+*pos, 0)
		}
		return min(*pos, length)
	}
	start = resolve(from, 0)
	end = resolve(to, length)
	if start >= end {
		return start, end, stride, true, nil
	}
	return start, end, stride, false, nil
}

// SliceArray returns base[from:to:step] as a view. Cheap sources are
// materialized directly.
func SliceArray(base *ArrayValue, from, to, step *int) (*ArrayValue, error) {
	start, end, stride, empty, err := NormalizeSlice(base.Len(), from, to, step)
	if err != nil {
		return nil, err
	}
	if empty {
		return emptyArray, nil
	}
	if start == 0 && end == base.Len() && stride == 1 {
		return base, nil
	}
	view := &sliceArray{base: base, from: start, to: end, step: stride}
	if e, ok := base.backend.(eagerArray); ok && stride == 1 {
		return newArray(e[start:end:end]), nil
	}
	return newArray(view), nil
}

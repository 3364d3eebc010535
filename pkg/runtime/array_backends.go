package runtime

// eagerArray holds evaluated values.
type eagerArray []Value

func (a eagerArray) Len() int                        { return len(a) }
func (a eagerArray) Get(i int) (Value, error)        { return a[i], nil }
func (a eagerArray) GetLazy(i int) *Thunk            { return Resolved(a[i]) }
func (a eagerArray) TryGetCheap(i int) (Value, bool) { return a[i], true }
func (a eagerArray) IsCheap() bool                   { return true }

// lazyArray holds one thunk per element.
type lazyArray []*Thunk

func (a lazyArray) Len() int                 { return len(a) }
func (a lazyArray) Get(i int) (Value, error) { return a[i].Force() }
func (a lazyArray) GetLazy(i int) *Thunk     { return a[i] }
func (a lazyArray) TryGetCheap(i int) (Value, bool) {
	return a[i].Peek()
}
func (a lazyArray) IsCheap() bool { return false }

// rangeArray is the integers low..high inclusive.
type rangeArray struct {
	low, high int
}

func (a *rangeArray) Len() int { return a.high - a.low + 1 }
func (a *rangeArray) Get(i int) (Value, error) {
	return NumberValue{Val: float64(a.low + i)}, nil
}
func (a *rangeArray) GetLazy(i int) *Thunk {
	return Resolved(NumberValue{Val: float64(a.low + i)})
}
func (a *rangeArray) TryGetCheap(i int) (Value, bool) {
	return NumberValue{Val: float64(a.low + i)}, true
}
func (a *rangeArray) IsCheap() bool { return true }

// sliceArray views base[from:to:step] without copying.
type sliceArray struct {
	base     *ArrayValue
	from, to int
	step     int
}

func (a *sliceArray) Len() int {
	return (a.to - a.from + a.step - 1) / a.step
}
func (a *sliceArray) index(i int) int { return a.from + i*a.step }
func (a *sliceArray) Get(i int) (Value, error) {
	return a.base.backend.Get(a.index(i))
}
func (a *sliceArray) GetLazy(i int) *Thunk {
	return a.base.backend.GetLazy(a.index(i))
}
func (a *sliceArray) TryGetCheap(i int) (Value, bool) {
	return a.base.backend.TryGetCheap(a.index(i))
}
func (a *sliceArray) IsCheap() bool { return a.base.IsCheap() }

// mappedArray applies mapper on demand, caching one thunk per index.
type mappedArray struct {
	base   *ArrayValue
	mapper ArrayMapper
	cache  []*Thunk
}

func (a *mappedArray) Len() int { return len(a.cache) }
func (a *mappedArray) GetLazy(i int) *Thunk {
	if t := a.cache[i]; t != nil {
		return t
	}
	base, mapper := a.base, a.mapper
	t := NewThunk(func() (Value, error) {
		return mapper(i, base.backend.GetLazy(i))
	})
	a.cache[i] = t
	return t
}
func (a *mappedArray) Get(i int) (Value, error) {
	return a.GetLazy(i).Force()
}
func (a *mappedArray) TryGetCheap(i int) (Value, bool) {
	if t := a.cache[i]; t != nil {
		return t.Peek()
	}
	return nil, false
}
func (a *mappedArray) IsCheap() bool { return false }

// repeatedArray is base concatenated count times.
type repeatedArray struct {
	base  *ArrayValue
	count int
}

func (a *repeatedArray) Len() int { return a.base.Len() * a.count }
func (a *repeatedArray) Get(i int) (Value, error) {
	return a.base.backend.Get(i % a.base.Len())
}
func (a *repeatedArray) GetLazy(i int) *Thunk {
	return a.base.backend.GetLazy(i % a.base.Len())
}
func (a *repeatedArray) TryGetCheap(i int) (Value, bool) {
	return a.base.backend.TryGetCheap(i % a.base.Len())
}
func (a *repeatedArray) IsCheap() bool { return a.base.IsCheap() }

// reversedArray views base back to front.
type reversedArray struct {
	base *ArrayValue
}

func (a *reversedArray) Len() int { return a.base.Len() }
func (a *reversedArray) mirror(i int) int {
	return a.base.Len() - 1 - i
}
func (a *reversedArray) Get(i int) (Value, error) {
	return a.base.backend.Get(a.mirror(i))
}
func (a *reversedArray) GetLazy(i int) *Thunk {
	return a.base.backend.GetLazy(a.mirror(i))
}
func (a *reversedArray) TryGetCheap(i int) (Value, bool) {
	return a.base.backend.TryGetCheap(a.mirror(i))
}
func (a *reversedArray) IsCheap() bool { return a.base.IsCheap() }

// bytesArray exposes bytes as numbers, used by importbin.
type bytesArray []byte

func (a bytesArray) Len() int { return len(a) }
func (a bytesArray) Get(i int) (Value, error) {
	return NumberValue{Val: float64(a[i])}, nil
}
func (a bytesArray) GetLazy(i int) *Thunk {
	return Resolved(NumberValue{Val: float64(a[i])})
}
func (a bytesArray) TryGetCheap(i int) (Value, bool) {
	return NumberValue{Val: float64(a[i])}, true
}
func (a bytesArray) IsCheap() bool { return true }

// charsArray exposes code points as one-character strings.
type charsArray []rune

func (a charsArray) Len() int { return len(a) }
func (a charsArray) Get(i int) (Value, error) {
	return NewString(string(a[i])), nil
}
func (a charsArray) GetLazy(i int) *Thunk {
	return Resolved(NewString(string(a[i])))
}
func (a charsArray) TryGetCheap(i int) (Value, bool) {
	return NewString(string(a[i])), true
}
func (a charsArray) IsCheap() bool { return true }

package runtime

type thunkState uint8

const (
	thunkPending thunkState = iota
	thunkForcing
	thunkDone
	thunkFailed
)

// Thunk is a deferred computation producing exactly one Value. The
// computation runs at most once; its result, success or failure, is cached.
//
// Thunks are not safe for concurrent use. Evaluation is single threaded and
// the only mutation is the one-way pending -> forcing -> done/failed
// transition. A multi-threaded evaluator would need to guard that
// transition with a compare-and-swap.
type Thunk struct {
	state   thunkState
	compute func() (Value, error)
	value   Value
	err     error
}

// NewThunk suspends compute until the first Force.
func NewThunk(compute func() (Value, error)) *Thunk {
	heapStats.thunksCreated.Add(1)
	return &Thunk{compute: compute}
}

// Resolved wraps an already computed value.
func Resolved(v Value) *Thunk {
	return &Thunk{state: thunkDone, value: v}
}

// Failed wraps an already known failure.
func Failed(err error) *Thunk {
	return &Thunk{state: thunkFailed, err: err}
}

// Force returns the memoized value, computing it on first call. Forcing a
// thunk from inside its own computation fails with
// ErrInfiniteRecursionDetected.
func (t *Thunk) Force() (Value, error) {
	switch t.state {
	case thunkDone:
		return t.value, nil
	case thunkFailed:
		return nil, t.err
	case thunkForcing:
		return nil, NewError(ErrInfiniteRecursionDetected, "infinite recursion detected")
	}
	compute := t.compute
	t.state = thunkForcing
	heapStats.thunksForced.Add(1)
	value, err := compute()
	// Dropping the closure releases the captured context.
	t.compute = nil
	heapStats.closuresReleased.Add(1)
	if err != nil {
		t.state = thunkFailed
		t.err = err
		return nil, err
	}
	t.state = thunkDone
	t.value = value
	return value, nil
}

// Peek returns the cached value without forcing.
func (t *Thunk) Peek() (Value, bool) {
	if t.state == thunkDone {
		return t.value, true
	}
	return nil, false
}

// IsForced reports whether the computation has completed, successfully or not.
func (t *Thunk) IsForced() bool {
	return t.state == thunkDone || t.state == thunkFailed
}

// ForceAll forces every thunk in order, stopping at the first failure.
func ForceAll(thunks []*Thunk) ([]Value, error) {
	out := make([]Value, len(thunks))
	for i, t := range thunks {
		v, err := t.Force()
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

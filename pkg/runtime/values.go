package runtime

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"jsonnet/interpreter-go/pkg/ast"
)

// Kind identifies the runtime value category.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
	KindFunction
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindFunction:
		return "function"
	default:
		return fmt.Sprintf("unknown_kind_%d", int(k))
	}
}

// Value is the shared behaviour for all runtime values.
type Value interface {
	Kind() Kind
}

// TypeName returns the language-level type name of v.
func TypeName(v Value) string {
	if v == nil {
		return "null"
	}
	return v.Kind().String()
}

//-----------------------------------------------------------------------------
// Scalars
//-----------------------------------------------------------------------------

type NullValue struct{}

func (NullValue) Kind() Kind { return KindNull }

type BoolValue struct {
	Val bool
}

func (v BoolValue) Kind() Kind { return KindBool }

// NumberValue holds a finite float64. Use NewNumber to construct from
// arithmetic results.
type NumberValue struct {
	Val float64
}

func (v NumberValue) Kind() Kind { return KindNumber }

// NewNumber validates f, rejecting NaN and infinities.
func NewNumber(f float64) (NumberValue, error) {
	if math.IsNaN(f) {
		return NumberValue{}, NewError(ErrNumberNaN, "not a number")
	}
	if math.IsInf(f, 0) {
		return NumberValue{}, NewError(ErrNumberOverflow, "overflow")
	}
	return NumberValue{Val: f}, nil
}

// Int returns the number as an int when it has no fractional part.
func (v NumberValue) Int() (int, bool) {
	if v.Val != math.Trunc(v.Val) || math.Abs(v.Val) > 1<<53 {
		return 0, false
	}
	return int(v.Val), true
}

//-----------------------------------------------------------------------------
// Strings
//-----------------------------------------------------------------------------

// ropeFlattenThreshold bounds the size of concatenations that are copied
// eagerly instead of building a rope node.
const ropeFlattenThreshold = 64

// StringValue is a flat string or a lazily concatenated rope. Both forms
// compare and iterate identically; Str flattens a rope once.
type StringValue struct {
	val  string
	rope *stringRope
}

type stringRope struct {
	left, right StringValue
	size        int
	flat        string
	flattened   bool
}

func (v StringValue) Kind() Kind { return KindString }

func NewString(s string) StringValue {
	return StringValue{val: s}
}

// ConcatStrings joins a and b without copying large operands.
func ConcatStrings(a, b StringValue) StringValue {
	if a.ByteLen() == 0 {
		return b
	}
	if b.ByteLen() == 0 {
		return a
	}
	if a.ByteLen()+b.ByteLen() <= ropeFlattenThreshold {
		return StringValue{val: a.Str() + b.Str()}
	}
	return StringValue{rope: &stringRope{left: a, right: b, size: a.ByteLen() + b.ByteLen()}}
}

// ByteLen returns the UTF-8 length without flattening.
func (v StringValue) ByteLen() int {
	if v.rope != nil {
		return v.rope.size
	}
	return len(v.val)
}

// IsRope reports whether the value is still an unflattened concatenation.
func (v StringValue) IsRope() bool {
	return v.rope != nil && !v.rope.flattened
}

func (v StringValue) Str() string {
	if v.rope == nil {
		return v.val
	}
	return v.rope.flatten()
}

// Len returns the number of code points.
func (v StringValue) Len() int {
	return utf8.RuneCountInString(v.Str())
}

func (v StringValue) String() string {
	return v.Str()
}

func (r *stringRope) flatten() string {
	if r.flattened {
		return r.flat
	}
	var b strings.Builder
	b.Grow(r.size)
	// Iterative walk; ropes built by repeated `+` are deeply left-leaning.
	stack := []StringValue{{rope: r}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		switch {
		case top.rope == nil:
			b.WriteString(top.val)
		case top.rope.flattened:
			b.WriteString(top.rope.flat)
		default:
			stack = append(stack, top.rope.right, top.rope.left)
		}
	}
	r.flat = b.String()
	r.flattened = true
	r.left, r.right = StringValue{}, StringValue{}
	return r.flat
}

//-----------------------------------------------------------------------------
// Functions
//-----------------------------------------------------------------------------

// FunctionValue is a closure over its defining context.
type FunctionValue struct {
	Name    string
	Params  []*ast.Parameter
	Body    ast.Expression
	Closure *Context
}

func (v *FunctionValue) Kind() Kind { return KindFunction }

func (v *FunctionValue) ParamNames() []string {
	names := make([]string, len(v.Params))
	for i, p := range v.Params {
		names[i] = p.Name
	}
	return names
}

// NativeParam describes one parameter of a builtin. Strict parameters are
// forced before the callback runs; the rest arrive as unforced thunks.
type NativeParam struct {
	Name       string
	HasDefault bool
	Strict     bool
}

// NativeCall carries the call site of a builtin invocation.
type NativeCall struct {
	Span    ast.Span
	Context *Context
}

// NativeFunc implements a builtin. args has one entry per declared parameter;
// entries for omitted parameters with defaults are nil.
type NativeFunc func(call *NativeCall, args []*Thunk) (Value, error)

type NativeFunction struct {
	Name   string
	Params []NativeParam
	Impl   NativeFunc
}

func (v *NativeFunction) Kind() Kind { return KindFunction }

func (v *NativeFunction) ParamNames() []string {
	names := make([]string, len(v.Params))
	for i, p := range v.Params {
		names[i] = p.Name
	}
	return names
}

// NewNative declares a builtin whose parameters are all required.
func NewNative(name string, params []string, impl NativeFunc) *NativeFunction {
	out := make([]NativeParam, len(params))
	for i, p := range params {
		out[i] = NativeParam{Name: p}
	}
	return &NativeFunction{Name: name, Params: out, Impl: impl}
}

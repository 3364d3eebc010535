package interpreter

import (
	"math"
	"strings"

	"jsonnet/interpreter-go/pkg/ast"
	"jsonnet/interpreter-go/pkg/runtime"
)

func (i *Interpreter) evaluateUnaryExpression(n *ast.UnaryExpression, ctx *runtime.Context) (runtime.Value, error) {
	operand, err := i.evaluateExpression(n.Operand, ctx)
	if err != nil {
		return nil, err
	}
	switch n.Operator {
	case ast.UnaryNot:
		if b, ok := operand.(runtime.BoolValue); ok {
			return runtime.BoolValue{Val: !b.Val}, nil
		}
	case ast.UnaryMinus:
		if num, ok := operand.(runtime.NumberValue); ok {
			return runtime.NumberValue{Val: -num.Val}, nil
		}
	case ast.UnaryPlus:
		if num, ok := operand.(runtime.NumberValue); ok {
			return num, nil
		}
	case ast.UnaryBitNot:
		if num, ok := operand.(runtime.NumberValue); ok {
			return runtime.NumberValue{Val: float64(^int64(num.Val))}, nil
		}
	}
	return nil, located(runtime.NewError(runtime.ErrUnaryOperatorDoesNotOperateOnValue,
		"unary operator %s does not operate on type %s", n.Operator, runtime.TypeName(operand)), n)
}

func (i *Interpreter) evaluateBinaryExpression(n *ast.BinaryExpression, ctx *runtime.Context) (runtime.Value, error) {
	if n.Operator == ast.BinaryAnd || n.Operator == ast.BinaryOr {
		return i.evaluateLogical(n, ctx)
	}
	left, err := i.evaluateExpression(n.Left, ctx)
	if err != nil {
		return nil, err
	}
	right, err := i.evaluateExpression(n.Right, ctx)
	if err != nil {
		return nil, err
	}
	v, err := i.binaryOp(n.Operator, left, right)
	if err != nil {
		return nil, located(err, n)
	}
	return v, nil
}

func (i *Interpreter) evaluateLogical(n *ast.BinaryExpression, ctx *runtime.Context) (runtime.Value, error) {
	left, err := i.evaluateExpression(n.Left, ctx)
	if err != nil {
		return nil, err
	}
	l, ok := left.(runtime.BoolValue)
	if !ok {
		return nil, located(runtime.NewError(runtime.ErrBinaryOperatorDoesNotOperateOnValues,
			"binary operator %s does not operate on %s", n.Operator, runtime.TypeName(left)), n)
	}
	if (n.Operator == ast.BinaryAnd && !l.Val) || (n.Operator == ast.BinaryOr && l.Val) {
		return l, nil
	}
	right, err := i.evaluateExpression(n.Right, ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := right.(runtime.BoolValue); !ok {
		return nil, located(runtime.BinaryMismatch(string(n.Operator), left, right), n)
	}
	return right, nil
}

// binaryOp applies a strict binary operator to forced operands.
func (i *Interpreter) binaryOp(op ast.BinaryOperator, left, right runtime.Value) (runtime.Value, error) {
	switch op {
	case ast.BinaryAdd:
		return runtime.Add(left, right)
	case ast.BinaryEqual, ast.BinaryNotEqual:
		eq, err := runtime.Equals(left, right)
		if err != nil {
			return nil, err
		}
		return runtime.BoolValue{Val: eq == (op == ast.BinaryEqual)}, nil
	case ast.BinaryLess, ast.BinaryLessEqual, ast.BinaryGreater, ast.BinaryGreaterEqual:
		if left.Kind() != right.Kind() {
			return nil, runtime.BinaryMismatch(string(op), left, right)
		}
		c, err := runtime.Compare(left, right)
		if err != nil {
			return nil, err
		}
		switch op {
		case ast.BinaryLess:
			return runtime.BoolValue{Val: c < 0}, nil
		case ast.BinaryLessEqual:
			return runtime.BoolValue{Val: c <= 0}, nil
		case ast.BinaryGreater:
			return runtime.BoolValue{Val: c > 0}, nil
		default:
			return runtime.BoolValue{Val: c >= 0}, nil
		}
	case ast.BinaryIn:
		name, ok := left.(runtime.StringValue)
		obj, isObj := right.(*runtime.ObjectValue)
		if !ok || !isObj {
			return nil, runtime.BinaryMismatch("in", left, right)
		}
		return runtime.BoolValue{Val: obj.HasField(name.Str(), true)}, nil
	case ast.BinaryMod:
		if format, ok := left.(runtime.StringValue); ok {
			s, err := i.formatString(format.Str(), right)
			if err != nil {
				return nil, err
			}
			return runtime.NewString(s), nil
		}
	case ast.BinaryMul:
		if s, ok := left.(runtime.StringValue); ok {
			return repeatString(s, right)
		}
		if s, ok := right.(runtime.StringValue); ok {
			return repeatString(s, left)
		}
	}

	l, lok := left.(runtime.NumberValue)
	r, rok := right.(runtime.NumberValue)
	if !lok || !rok {
		return nil, runtime.BinaryMismatch(string(op), left, right)
	}
	switch op {
	case ast.BinaryMul:
		return runtime.NewNumber(l.Val * r.Val)
	case ast.BinaryDiv:
		if r.Val == 0 {
			return nil, runtime.NewError(runtime.ErrDivisionByZero, "division by zero")
		}
		return runtime.NewNumber(l.Val / r.Val)
	case ast.BinaryMod:
		if r.Val == 0 {
			return nil, runtime.NewError(runtime.ErrDivisionByZero, "division by zero")
		}
		return runtime.NewNumber(math.Mod(l.Val, r.Val))
	case ast.BinarySub:
		return runtime.NewNumber(l.Val - r.Val)
	case ast.BinaryShiftLeft, ast.BinaryShiftRight:
		shift := int64(r.Val)
		if shift < 0 {
			return nil, runtime.NewError(runtime.ErrNegativeShift, "shift by negative exponent")
		}
		shift &= 63
		if op == ast.BinaryShiftLeft {
			return runtime.NumberValue{Val: float64(int64(l.Val) << shift)}, nil
		}
		return runtime.NumberValue{Val: float64(int64(l.Val) >> shift)}, nil
	case ast.BinaryBitAnd:
		return runtime.NumberValue{Val: float64(int64(l.Val) & int64(r.Val))}, nil
	case ast.BinaryBitXor:
		return runtime.NumberValue{Val: float64(int64(l.Val) ^ int64(r.Val))}, nil
	case ast.BinaryBitOr:
		return runtime.NumberValue{Val: float64(int64(l.Val) | int64(r.Val))}, nil
	}
	return nil, runtime.BinaryMismatch(string(op), left, right)
}

func repeatString(s runtime.StringValue, count runtime.Value) (runtime.Value, error) {
	n, err := runtime.ToInt(count, "string repetition count")
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, runtime.NewError(runtime.ErrArrayLengthOverflow, "string repetition count must not be negative, got %d", n)
	}
	if n > 0 && s.ByteLen() > math.MaxInt32/n {
		return nil, runtime.NewError(runtime.ErrArrayLengthOverflow, "string repetition result is too long")
	}
	return runtime.NewString(strings.Repeat(s.Str(), n)), nil
}

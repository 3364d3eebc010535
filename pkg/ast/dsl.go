package ast

// Identifier and literal helpers.

func ID(name string) *Identifier {
	return NewIdentifier(name)
}

func Str(value string) *StringLiteral {
	return NewStringLiteral(value)
}

func Num(value float64) *NumberLiteral {
	return NewNumberLiteral(value)
}

func Bool(value bool) *BooleanLiteral {
	return NewBooleanLiteral(value)
}

func Null() *NullLiteral {
	return NewNullLiteral()
}

func Self() *SelfExpression {
	return NewSelfExpression()
}

func Dollar() *DollarExpression {
	return NewDollarExpression()
}

func Super(field string) *SuperIndex {
	return NewSuperIndex(Str(field))
}

func Arr(elements ...Expression) *ArrayLiteral {
	return NewArrayLiteral(elements)
}

// Operator helpers.

func Bin(op BinaryOperator, left, right Expression) *BinaryExpression {
	return NewBinaryExpression(op, left, right)
}

func Add(left, right Expression) *BinaryExpression {
	return NewBinaryExpression(BinaryAdd, left, right)
}

func Un(op UnaryOperator, operand Expression) *UnaryExpression {
	return NewUnaryExpression(op, operand)
}

// Access helpers.

func Member(target Expression, field string) *IndexExpression {
	return NewIndexExpression(target, Str(field))
}

func Index(target, index Expression) *IndexExpression {
	return NewIndexExpression(target, index)
}

func Slice(target, start, end, step Expression) *SliceExpression {
	return NewSliceExpression(target, start, end, step)
}

// Binding and function helpers.

func Local(body Expression, binds ...*Bind) *LocalExpression {
	return NewLocalExpression(binds, body)
}

func B(name string, value Expression) *Bind {
	return NewBind(name, value)
}

func Fn(body Expression, params ...*Parameter) *FunctionExpression {
	return NewFunctionExpression(params, body)
}

func P(name string) *Parameter {
	return NewParameter(name, nil)
}

func PDef(name string, def Expression) *Parameter {
	return NewParameter(name, def)
}

func Call(target Expression, args ...*Argument) *ApplyExpression {
	return NewApplyExpression(target, args, false)
}

func Pos(value Expression) *Argument {
	return NewArgument("", value)
}

func Named(name string, value Expression) *Argument {
	return NewArgument(name, value)
}

func If(condition, then, elseExpr Expression) *IfExpression {
	return NewIfExpression(condition, then, elseExpr)
}

func Err(message Expression) *ErrorExpression {
	return NewErrorExpression(message)
}

// Object helpers.

func Obj(members ...ObjectMember) *ObjectLiteral {
	return NewObjectLiteral(members)
}

func Field(name string, value Expression) *ObjectField {
	return NewObjectField(name, VisibilityInherit, false, value)
}

func Hidden(name string, value Expression) *ObjectField {
	return NewObjectField(name, VisibilityHidden, false, value)
}

func Unhide(name string, value Expression) *ObjectField {
	return NewObjectField(name, VisibilityUnhide, false, value)
}

func PlusField(name string, value Expression) *ObjectField {
	return NewObjectField(name, VisibilityInherit, true, value)
}

func ObjLocal(name string, value Expression) *ObjectLocal {
	return NewObjectLocal(NewBind(name, value))
}

func ObjAssert(condition, message Expression) *ObjectAssert {
	return NewObjectAssert(condition, message)
}

// Comprehension helpers.

func For(variable string, iterable Expression) *ForSpec {
	return NewForSpec(variable, iterable)
}

func When(condition Expression) *IfSpec {
	return NewIfSpec(condition)
}

func ArrComp(body Expression, specs ...CompSpec) *ArrayComprehension {
	return NewArrayComprehension(body, specs)
}

func ObjComp(key, value Expression, specs ...CompSpec) *ObjectComprehension {
	return NewObjectComprehension(nil, key, false, value, specs)
}

package ast

// Functions

type Parameter struct {
	nodeImpl

	Name    string     `json:"name"`
	Default Expression `json:"default,omitempty"`
}

func NewParameter(name string, def Expression) *Parameter {
	return &Parameter{nodeImpl: newNodeImpl(NodeParameter), Name: name, Default: def}
}

type FunctionExpression struct {
	nodeImpl
	expressionMarker

	Params []*Parameter `json:"params"`
	Body   Expression   `json:"body"`
}

func NewFunctionExpression(params []*Parameter, body Expression) *FunctionExpression {
	return &FunctionExpression{nodeImpl: newNodeImpl(NodeFunctionExpression), Params: params, Body: body}
}

// Argument is a call argument; Name is empty for positional arguments.
type Argument struct {
	nodeImpl

	Name  string     `json:"name,omitempty"`
	Value Expression `json:"value"`
}

func NewArgument(name string, value Expression) *Argument {
	return &Argument{nodeImpl: newNodeImpl(NodeArgument), Name: name, Value: value}
}

type ApplyExpression struct {
	nodeImpl
	expressionMarker

	Target     Expression  `json:"target"`
	Args       []*Argument `json:"args"`
	TailStrict bool        `json:"tailStrict,omitempty"`
}

func NewApplyExpression(target Expression, args []*Argument, tailStrict bool) *ApplyExpression {
	return &ApplyExpression{nodeImpl: newNodeImpl(NodeApplyExpression), Target: target, Args: args, TailStrict: tailStrict}
}

// Objects

type Visibility string

const (
	VisibilityInherit Visibility = ":"
	VisibilityHidden  Visibility = "::"
	VisibilityUnhide  Visibility = ":::"
)

type ObjectMember interface {
	Node
	objectMemberNode()
}

type objectMemberMarker struct{}

func (objectMemberMarker) objectMemberNode() {}

// ObjectField is a field definition. Name is used when NameExpr is nil;
// NameExpr holds a computed `[expr]` name.
type ObjectField struct {
	nodeImpl
	objectMemberMarker

	Name       string       `json:"name,omitempty"`
	NameExpr   Expression   `json:"nameExpr,omitempty"`
	Visibility Visibility   `json:"visibility"`
	Plus       bool         `json:"plus,omitempty"`
	IsMethod   bool         `json:"isMethod,omitempty"`
	Params     []*Parameter `json:"params,omitempty"`
	Value      Expression   `json:"value"`
}

func NewObjectField(name string, visibility Visibility, plus bool, value Expression) *ObjectField {
	return &ObjectField{nodeImpl: newNodeImpl(NodeObjectField), Name: name, Visibility: visibility, Plus: plus, Value: value}
}

func NewComputedObjectField(nameExpr Expression, visibility Visibility, plus bool, value Expression) *ObjectField {
	return &ObjectField{nodeImpl: newNodeImpl(NodeObjectField), NameExpr: nameExpr, Visibility: visibility, Plus: plus, Value: value}
}

func NewMethodField(name string, visibility Visibility, params []*Parameter, body Expression) *ObjectField {
	return &ObjectField{nodeImpl: newNodeImpl(NodeObjectField), Name: name, Visibility: visibility, IsMethod: true, Params: params, Value: body}
}

type ObjectLocal struct {
	nodeImpl
	objectMemberMarker

	Bind *Bind `json:"bind"`
}

func NewObjectLocal(bind *Bind) *ObjectLocal {
	return &ObjectLocal{nodeImpl: newNodeImpl(NodeObjectLocal), Bind: bind}
}

type ObjectAssert struct {
	nodeImpl
	objectMemberMarker

	Condition Expression `json:"condition"`
	Message   Expression `json:"message,omitempty"`
}

func NewObjectAssert(condition, message Expression) *ObjectAssert {
	return &ObjectAssert{nodeImpl: newNodeImpl(NodeObjectAssert), Condition: condition, Message: message}
}

type ObjectLiteral struct {
	nodeImpl
	expressionMarker

	Members []ObjectMember `json:"members"`
}

func NewObjectLiteral(members []ObjectMember) *ObjectLiteral {
	return &ObjectLiteral{nodeImpl: newNodeImpl(NodeObjectLiteral), Members: members}
}

// ObjectComprehension is `{ local ...; [key]: value for x in arr ... }`.
type ObjectComprehension struct {
	nodeImpl
	expressionMarker

	Locals []*Bind    `json:"locals,omitempty"`
	Key    Expression `json:"key"`
	Plus   bool       `json:"plus,omitempty"`
	Value  Expression `json:"value"`
	Specs  []CompSpec `json:"specs"`
}

func NewObjectComprehension(locals []*Bind, key Expression, plus bool, value Expression, specs []CompSpec) *ObjectComprehension {
	return &ObjectComprehension{nodeImpl: newNodeImpl(NodeObjectComprehension), Locals: locals, Key: key, Plus: plus, Value: value, Specs: specs}
}

// ObjectExtend is `base { ... }`, equivalent to `base + { ... }`.
type ObjectExtend struct {
	nodeImpl
	expressionMarker

	Base   Expression `json:"base"`
	Object Expression `json:"object"`
}

func NewObjectExtend(base, object Expression) *ObjectExtend {
	return &ObjectExtend{nodeImpl: newNodeImpl(NodeObjectExtend), Base: base, Object: object}
}

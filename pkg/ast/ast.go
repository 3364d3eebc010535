package ast

import "fmt"

type NodeType string

const (
	NodeIdentifier          NodeType = "Identifier"
	NodeNullLiteral         NodeType = "NullLiteral"
	NodeBooleanLiteral      NodeType = "BooleanLiteral"
	NodeNumberLiteral       NodeType = "NumberLiteral"
	NodeStringLiteral       NodeType = "StringLiteral"
	NodeSelfExpression      NodeType = "SelfExpression"
	NodeDollarExpression    NodeType = "DollarExpression"
	NodeSuperIndex          NodeType = "SuperIndex"
	NodeInSuper             NodeType = "InSuper"
	NodeArrayLiteral        NodeType = "ArrayLiteral"
	NodeArrayComprehension  NodeType = "ArrayComprehension"
	NodeForSpec             NodeType = "ForSpec"
	NodeIfSpec              NodeType = "IfSpec"
	NodeObjectLiteral       NodeType = "ObjectLiteral"
	NodeObjectField         NodeType = "ObjectField"
	NodeObjectLocal         NodeType = "ObjectLocal"
	NodeObjectAssert        NodeType = "ObjectAssert"
	NodeObjectComprehension NodeType = "ObjectComprehension"
	NodeObjectExtend        NodeType = "ObjectExtend"
	NodeLocalExpression     NodeType = "LocalExpression"
	NodeBind                NodeType = "Bind"
	NodeIndexExpression     NodeType = "IndexExpression"
	NodeSliceExpression     NodeType = "SliceExpression"
	NodeApplyExpression     NodeType = "ApplyExpression"
	NodeArgument            NodeType = "Argument"
	NodeFunctionExpression  NodeType = "FunctionExpression"
	NodeParameter           NodeType = "Parameter"
	NodeIfExpression        NodeType = "IfExpression"
	NodeBinaryExpression    NodeType = "BinaryExpression"
	NodeUnaryExpression     NodeType = "UnaryExpression"
	NodeErrorExpression     NodeType = "ErrorExpression"
	NodeAssertExpression    NodeType = "AssertExpression"
	NodeImportExpression    NodeType = "ImportExpression"
)

type Node interface {
	NodeType() NodeType
	Span() Span
	isNode()
}

type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Span locates a node inside a named source. Lines and columns are 1-based.
type Span struct {
	File  string   `json:"file,omitempty"`
	Start Position `json:"start"`
	End   Position `json:"end"`
}

func (s Span) IsZero() bool {
	return s.Start.Line == 0 && s.End.Line == 0 && s.File == ""
}

func (s Span) String() string {
	file := s.File
	if file == "" {
		file = "<unknown>"
	}
	if s.Start.Line == 0 {
		return file
	}
	if s.End.Line == s.Start.Line || s.End.Line == 0 {
		if s.End.Column > s.Start.Column {
			return fmt.Sprintf("%s:%d:%d-%d", file, s.Start.Line, s.Start.Column, s.End.Column)
		}
		return fmt.Sprintf("%s:%d:%d", file, s.Start.Line, s.Start.Column)
	}
	return fmt.Sprintf("%s:(%d:%d)-(%d:%d)", file, s.Start.Line, s.Start.Column, s.End.Line, s.End.Column)
}

type nodeImpl struct {
	Type NodeType `json:"type"`
	span Span
}

func newNodeImpl(kind NodeType) nodeImpl {
	return nodeImpl{Type: kind}
}

func (n nodeImpl) NodeType() NodeType { return n.Type }
func (n nodeImpl) Span() Span         { return n.span }
func (nodeImpl) isNode()              {}
func (n *nodeImpl) setSpan(span Span) { n.span = span }

type spanSetter interface {
	setSpan(Span)
}

// SetSpan records the source location of a node. Nodes built without a
// parser keep the zero span.
func SetSpan(node Node, span Span) {
	if s, ok := node.(spanSetter); ok {
		s.setSpan(span)
	}
}

// Marker interfaces.

type Expression interface {
	Node
	expressionNode()
}

type expressionMarker struct{}

func (expressionMarker) expressionNode() {}

type Literal interface {
	Expression
	literalNode()
}

type literalMarker struct{}

func (literalMarker) literalNode() {}

// Identifier

type Identifier struct {
	nodeImpl
	expressionMarker

	Name string `json:"name"`
}

func NewIdentifier(name string) *Identifier {
	return &Identifier{nodeImpl: newNodeImpl(NodeIdentifier), Name: name}
}

// Literals

type NullLiteral struct {
	nodeImpl
	expressionMarker
	literalMarker
}

func NewNullLiteral() *NullLiteral {
	return &NullLiteral{nodeImpl: newNodeImpl(NodeNullLiteral)}
}

type BooleanLiteral struct {
	nodeImpl
	expressionMarker
	literalMarker

	Value bool `json:"value"`
}

func NewBooleanLiteral(value bool) *BooleanLiteral {
	return &BooleanLiteral{nodeImpl: newNodeImpl(NodeBooleanLiteral), Value: value}
}

type NumberLiteral struct {
	nodeImpl
	expressionMarker
	literalMarker

	Value float64 `json:"value"`
}

func NewNumberLiteral(value float64) *NumberLiteral {
	return &NumberLiteral{nodeImpl: newNodeImpl(NodeNumberLiteral), Value: value}
}

type StringLiteral struct {
	nodeImpl
	expressionMarker
	literalMarker

	Value string `json:"value"`
}

func NewStringLiteral(value string) *StringLiteral {
	return &StringLiteral{nodeImpl: newNodeImpl(NodeStringLiteral), Value: value}
}

// Object references

type SelfExpression struct {
	nodeImpl
	expressionMarker
}

func NewSelfExpression() *SelfExpression {
	return &SelfExpression{nodeImpl: newNodeImpl(NodeSelfExpression)}
}

// DollarExpression is `$`, the outermost object of the current object nest.
type DollarExpression struct {
	nodeImpl
	expressionMarker
}

func NewDollarExpression() *DollarExpression {
	return &DollarExpression{nodeImpl: newNodeImpl(NodeDollarExpression)}
}

// SuperIndex is `super.name` or `super[expr]`.
type SuperIndex struct {
	nodeImpl
	expressionMarker

	Index Expression `json:"index"`
}

func NewSuperIndex(index Expression) *SuperIndex {
	return &SuperIndex{nodeImpl: newNodeImpl(NodeSuperIndex), Index: index}
}

// InSuper is `expr in super`.
type InSuper struct {
	nodeImpl
	expressionMarker

	Key Expression `json:"key"`
}

func NewInSuper(key Expression) *InSuper {
	return &InSuper{nodeImpl: newNodeImpl(NodeInSuper), Key: key}
}

// Arrays

type ArrayLiteral struct {
	nodeImpl
	expressionMarker

	Elements []Expression `json:"elements"`
}

func NewArrayLiteral(elements []Expression) *ArrayLiteral {
	return &ArrayLiteral{nodeImpl: newNodeImpl(NodeArrayLiteral), Elements: elements}
}

type CompSpec interface {
	Node
	compSpecNode()
}

type compSpecMarker struct{}

func (compSpecMarker) compSpecNode() {}

type ForSpec struct {
	nodeImpl
	compSpecMarker

	Variable string     `json:"variable"`
	Iterable Expression `json:"iterable"`
}

func NewForSpec(variable string, iterable Expression) *ForSpec {
	return &ForSpec{nodeImpl: newNodeImpl(NodeForSpec), Variable: variable, Iterable: iterable}
}

type IfSpec struct {
	nodeImpl
	compSpecMarker

	Condition Expression `json:"condition"`
}

func NewIfSpec(condition Expression) *IfSpec {
	return &IfSpec{nodeImpl: newNodeImpl(NodeIfSpec), Condition: condition}
}

type ArrayComprehension struct {
	nodeImpl
	expressionMarker

	Body  Expression `json:"body"`
	Specs []CompSpec `json:"specs"`
}

func NewArrayComprehension(body Expression, specs []CompSpec) *ArrayComprehension {
	return &ArrayComprehension{nodeImpl: newNodeImpl(NodeArrayComprehension), Body: body, Specs: specs}
}

// Bindings

// Bind is one `name = value` or `name(params) = body` binding of a local.
type Bind struct {
	nodeImpl

	Name       string       `json:"name"`
	Params     []*Parameter `json:"params,omitempty"`
	IsFunction bool         `json:"isFunction,omitempty"`
	Value      Expression   `json:"value"`
}

func NewBind(name string, value Expression) *Bind {
	return &Bind{nodeImpl: newNodeImpl(NodeBind), Name: name, Value: value}
}

func NewFunctionBind(name string, params []*Parameter, body Expression) *Bind {
	return &Bind{nodeImpl: newNodeImpl(NodeBind), Name: name, Params: params, IsFunction: true, Value: body}
}

type LocalExpression struct {
	nodeImpl
	expressionMarker

	Binds []*Bind    `json:"binds"`
	Body  Expression `json:"body"`
}

func NewLocalExpression(binds []*Bind, body Expression) *LocalExpression {
	return &LocalExpression{nodeImpl: newNodeImpl(NodeLocalExpression), Binds: binds, Body: body}
}

// Access

type IndexExpression struct {
	nodeImpl
	expressionMarker

	Target Expression `json:"target"`
	Index  Expression `json:"index"`
}

func NewIndexExpression(target, index Expression) *IndexExpression {
	return &IndexExpression{nodeImpl: newNodeImpl(NodeIndexExpression), Target: target, Index: index}
}

// SliceExpression is `target[start:end:step]`; omitted parts are nil.
type SliceExpression struct {
	nodeImpl
	expressionMarker

	Target Expression `json:"target"`
	Start  Expression `json:"start,omitempty"`
	End    Expression `json:"end,omitempty"`
	Step   Expression `json:"step,omitempty"`
}

func NewSliceExpression(target, start, end, step Expression) *SliceExpression {
	return &SliceExpression{nodeImpl: newNodeImpl(NodeSliceExpression), Target: target, Start: start, End: end, Step: step}
}

// Control flow

type IfExpression struct {
	nodeImpl
	expressionMarker

	Condition Expression `json:"condition"`
	Then      Expression `json:"then"`
	Else      Expression `json:"else,omitempty"`
}

func NewIfExpression(condition, then, elseExpr Expression) *IfExpression {
	return &IfExpression{nodeImpl: newNodeImpl(NodeIfExpression), Condition: condition, Then: then, Else: elseExpr}
}

type ErrorExpression struct {
	nodeImpl
	expressionMarker

	Message Expression `json:"message"`
}

func NewErrorExpression(message Expression) *ErrorExpression {
	return &ErrorExpression{nodeImpl: newNodeImpl(NodeErrorExpression), Message: message}
}

type AssertExpression struct {
	nodeImpl
	expressionMarker

	Condition Expression `json:"condition"`
	Message   Expression `json:"message,omitempty"`
	Body      Expression `json:"body"`
}

func NewAssertExpression(condition, message, body Expression) *AssertExpression {
	return &AssertExpression{nodeImpl: newNodeImpl(NodeAssertExpression), Condition: condition, Message: message, Body: body}
}

// Operators

type BinaryOperator string

const (
	BinaryMul          BinaryOperator = "*"
	BinaryDiv          BinaryOperator = "/"
	BinaryMod          BinaryOperator = "%"
	BinaryAdd          BinaryOperator = "+"
	BinarySub          BinaryOperator = "-"
	BinaryShiftLeft    BinaryOperator = "<<"
	BinaryShiftRight   BinaryOperator = ">>"
	BinaryLess         BinaryOperator = "<"
	BinaryLessEqual    BinaryOperator = "<="
	BinaryGreater      BinaryOperator = ">"
	BinaryGreaterEqual BinaryOperator = ">="
	BinaryEqual        BinaryOperator = "=="
	BinaryNotEqual     BinaryOperator = "!="
	BinaryIn           BinaryOperator = "in"
	BinaryBitAnd       BinaryOperator = "&"
	BinaryBitXor       BinaryOperator = "^"
	BinaryBitOr        BinaryOperator = "|"
	BinaryAnd          BinaryOperator = "&&"
	BinaryOr           BinaryOperator = "||"
)

type BinaryExpression struct {
	nodeImpl
	expressionMarker

	Operator BinaryOperator `json:"operator"`
	Left     Expression     `json:"left"`
	Right    Expression     `json:"right"`
}

func NewBinaryExpression(operator BinaryOperator, left, right Expression) *BinaryExpression {
	return &BinaryExpression{nodeImpl: newNodeImpl(NodeBinaryExpression), Operator: operator, Left: left, Right: right}
}

type UnaryOperator string

const (
	UnaryMinus  UnaryOperator = "-"
	UnaryPlus   UnaryOperator = "+"
	UnaryNot    UnaryOperator = "!"
	UnaryBitNot UnaryOperator = "~"
)

type UnaryExpression struct {
	nodeImpl
	expressionMarker

	Operator UnaryOperator `json:"operator"`
	Operand  Expression    `json:"operand"`
}

func NewUnaryExpression(operator UnaryOperator, operand Expression) *UnaryExpression {
	return &UnaryExpression{nodeImpl: newNodeImpl(NodeUnaryExpression), Operator: operator, Operand: operand}
}

// Imports

type ImportKind string

const (
	ImportCode   ImportKind = "import"
	ImportString ImportKind = "importstr"
	ImportBinary ImportKind = "importbin"
)

type ImportExpression struct {
	nodeImpl
	expressionMarker

	Kind ImportKind `json:"kind"`
	Path string     `json:"path"`
}

func NewImportExpression(kind ImportKind, path string) *ImportExpression {
	return &ImportExpression{nodeImpl: newNodeImpl(NodeImportExpression), Kind: kind, Path: path}
}

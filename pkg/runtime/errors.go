package runtime

import (
	"errors"
	"fmt"
	"strings"

	"jsonnet/interpreter-go/pkg/ast"
)

// ErrorKind classifies evaluation failures.
type ErrorKind int

const (
	ErrRuntime ErrorKind = iota

	// Binding errors.
	ErrVariableNotDefined
	ErrDuplicateLocalVar
	ErrDuplicateFieldName
	ErrBindingParameterASecondTime
	ErrUnknownFunctionParameter
	ErrTooManyArgs
	ErrFunctionParameterNotBoundInCall
	ErrUndefinedExternalVariable
	ErrUndefinedNativeFunction

	// Type errors.
	ErrBinaryOperatorDoesNotOperateOnValues
	ErrUnaryOperatorDoesNotOperateOnValue
	ErrTypeMismatch
	ErrCantIndexInto
	ErrValueIndexMustBeTypeGot
	ErrOnlyFunctionsCanBeCalled
	ErrNoSuchField
	ErrFieldMustBeStringGot
	ErrCantUseSelfOutsideOfObject
	ErrCantUseSuperOutsideOfObject
	ErrNoSuperFound
	ErrNoTopLevelObjectFound
	ErrInComprehensionCanOnlyIterateOverArray
	ErrManifestFunction

	// Domain errors.
	ErrArrayBounds
	ErrStringBounds
	ErrDivisionByZero
	ErrFractionalIndex
	ErrNegativeShift
	ErrNumberOverflow
	ErrNumberNaN
	ErrSliceStepNotPositive
	ErrArrayLengthOverflow
	ErrInvalidCodepoint
	ErrFormat

	// Control errors.
	ErrAssertionFailed

	// Resource errors.
	ErrInfiniteRecursionDetected
	ErrStackOverflow

	// Import and resolution errors.
	ErrImportNotFound
	ErrImportIO
	ErrImportBadFileUTF8
	ErrImportSyntaxError
)

// ErrorCategory groups kinds the way hosts report them.
type ErrorCategory int

const (
	CategoryControl ErrorCategory = iota
	CategoryBinding
	CategoryType
	CategoryDomain
	CategoryResource
	CategoryResolution
)

func (c ErrorCategory) String() string {
	switch c {
	case CategoryBinding:
		return "binding"
	case CategoryType:
		return "type"
	case CategoryDomain:
		return "domain"
	case CategoryResource:
		return "resource"
	case CategoryResolution:
		return "resolution"
	default:
		return "control"
	}
}

var errorKindNames = map[ErrorKind]string{
	ErrRuntime:                                "RuntimeError",
	ErrVariableNotDefined:                     "VariableIsNotDefined",
	ErrDuplicateLocalVar:                      "DuplicateLocalVar",
	ErrDuplicateFieldName:                     "DuplicateFieldName",
	ErrBindingParameterASecondTime:            "BindingParameterASecondTime",
	ErrUnknownFunctionParameter:               "UnknownFunctionParameter",
	ErrTooManyArgs:                            "TooManyArgs",
	ErrFunctionParameterNotBoundInCall:        "FunctionParameterNotBoundInCall",
	ErrUndefinedExternalVariable:              "UndefinedExternalVariable",
	ErrUndefinedNativeFunction:                "UndefinedNativeFunction",
	ErrBinaryOperatorDoesNotOperateOnValues:   "BinaryOperatorDoesNotOperateOnValues",
	ErrUnaryOperatorDoesNotOperateOnValue:     "UnaryOperatorDoesNotOperateOnValue",
	ErrTypeMismatch:                           "TypeMismatch",
	ErrCantIndexInto:                          "CantIndexInto",
	ErrValueIndexMustBeTypeGot:                "ValueIndexMustBeTypeGot",
	ErrOnlyFunctionsCanBeCalled:               "OnlyFunctionsCanBeCalled",
	ErrNoSuchField:                            "NoSuchField",
	ErrFieldMustBeStringGot:                   "FieldMustBeStringGot",
	ErrCantUseSelfOutsideOfObject:             "CantUseSelfOutsideOfObject",
	ErrCantUseSuperOutsideOfObject:            "CantUseSuperOutsideOfObject",
	ErrNoSuperFound:                           "NoSuperFound",
	ErrNoTopLevelObjectFound:                  "NoTopLevelObjectFound",
	ErrInComprehensionCanOnlyIterateOverArray: "InComprehensionCanOnlyIterateOverArray",
	ErrManifestFunction:                       "ManifestFunction",
	ErrArrayBounds:                            "ArrayBoundsError",
	ErrStringBounds:                           "StringBoundsError",
	ErrDivisionByZero:                         "DivisionByZero",
	ErrFractionalIndex:                        "FractionalIndex",
	ErrNegativeShift:                          "NegativeShift",
	ErrNumberOverflow:                         "NumberOverflow",
	ErrNumberNaN:                              "NumberNaN",
	ErrSliceStepNotPositive:                   "SliceStepNotPositive",
	ErrArrayLengthOverflow:                    "ArrayLengthOverflow",
	ErrInvalidCodepoint:                       "InvalidUnicodeCodepoint",
	ErrFormat:                                 "FormatError",
	ErrAssertionFailed:                        "AssertionFailed",
	ErrInfiniteRecursionDetected:              "InfiniteRecursionDetected",
	ErrStackOverflow:                          "StackOverflow",
	ErrImportNotFound:                         "ImportNotFound",
	ErrImportIO:                               "ImportIO",
	ErrImportBadFileUTF8:                      "ImportBadFileUTF8",
	ErrImportSyntaxError:                      "ImportSyntaxError",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

func (k ErrorKind) Category() ErrorCategory {
	switch {
	case k >= ErrVariableNotDefined && k <= ErrUndefinedNativeFunction:
		return CategoryBinding
	case k >= ErrBinaryOperatorDoesNotOperateOnValues && k <= ErrManifestFunction:
		return CategoryType
	case k >= ErrArrayBounds && k <= ErrFormat:
		return CategoryDomain
	case k == ErrInfiniteRecursionDetected || k == ErrStackOverflow:
		return CategoryResource
	case k >= ErrImportNotFound:
		return CategoryResolution
	default:
		return CategoryControl
	}
}

var emptySpan ast.Span

// TraceFrame is one entry of an error's evaluation trace, innermost first.
type TraceFrame struct {
	Span        ast.Span
	Description string
}

// Error is the single error type produced by evaluation. Frames are appended
// as the error propagates outwards; an Error value is never mutated after it
// has been returned, so cached failures can be shared.
type Error struct {
	Kind    ErrorKind
	Message string
	Trace   []TraceFrame
	cause   error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.cause
}

// NewError creates an error with a formatted message.
func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WrapError converts a foreign error into an evaluation error of the given kind.
func WrapError(kind ErrorKind, err error, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	if msg == "" {
		msg = err.Error()
	} else {
		msg = msg + ": " + err.Error()
	}
	return &Error{Kind: kind, Message: msg, cause: err}
}

// WithFrame returns a copy of the error with one more trace frame.
func (e *Error) WithFrame(span ast.Span, description string) *Error {
	trace := make([]TraceFrame, len(e.Trace), len(e.Trace)+1)
	copy(trace, e.Trace)
	trace = append(trace, TraceFrame{Span: span, Description: description})
	return &Error{Kind: e.Kind, Message: e.Message, Trace: trace, cause: e.cause}
}

// AddFrame attaches a frame to err, converting plain errors to ErrRuntime.
func AddFrame(err error, span ast.Span, description string) error {
	if err == nil {
		return nil
	}
	return AsError(err).WithFrame(span, description)
}

// AsError views any error as an *Error.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return &Error{Kind: ErrRuntime, Message: err.Error(), cause: err}
}

// IsKind reports whether err is an evaluation error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// FormatError renders the kind, message and trace for display.
func FormatError(err error) string {
	e := AsError(err)
	if e == nil {
		return ""
	}
	var b strings.Builder
	if e.Kind == ErrRuntime {
		b.WriteString("RUNTIME ERROR: ")
	} else {
		b.WriteString(e.Kind.String())
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	for _, frame := range e.Trace {
		b.WriteString("\n\t")
		b.WriteString(frame.Span.String())
		if frame.Description != "" {
			b.WriteString("\t")
			b.WriteString(frame.Description)
		}
	}
	return b.String()
}

func typeMismatch(context string, expected Kind, got Value) *Error {
	return NewError(ErrTypeMismatch, "%s: expected %s, got %s", context, expected, TypeName(got))
}

package interpreter

import (
	"fmt"
	"io"
	"os"

	"jsonnet/interpreter-go/pkg/ast"
	"jsonnet/interpreter-go/pkg/parser"
	"jsonnet/interpreter-go/pkg/runtime"
)

// DefaultMaxStack bounds the evaluation depth: nested expressions, function
// calls, thunk forces and imports each take one level.
const DefaultMaxStack = 2000

// DefaultIndent is the indentation used by Manifest.
const DefaultIndent = "   "

// Config controls a single Interpreter.
type Config struct {
	// MaxStack is the evaluation depth limit; zero selects DefaultMaxStack.
	MaxStack int
	// PreserveOrder manifests object fields in insertion order instead of
	// sorted order.
	PreserveOrder bool
	// Indent is used by Manifest; empty selects DefaultIndent.
	Indent   string
	Importer Importer
	ExtVars  map[string]ExtVar
	TLAs     map[string]ExtVar
	// Natives are exposed through std.native(name).
	Natives []*runtime.NativeFunction
	// TraceOut receives std.trace output; nil selects stderr.
	TraceOut io.Writer
}

// Interpreter evaluates Jsonnet expressions. An Interpreter is not safe for
// concurrent use; hosts evaluating in parallel create one per goroutine.
type Interpreter struct {
	cfg      Config
	depth    int
	maxStack int
	std      *runtime.ObjectValue
	extVars  map[string]*runtime.Thunk
	natives  map[string]*runtime.NativeFunction
	imports  *importCache
	traceOut io.Writer
}

// New returns an interpreter configured by cfg.
func New(cfg Config) *Interpreter {
	if cfg.MaxStack <= 0 {
		cfg.MaxStack = DefaultMaxStack
	}
	if cfg.Indent == "" {
		cfg.Indent = DefaultIndent
	}
	i := &Interpreter{
		cfg:      cfg,
		maxStack: cfg.MaxStack,
		natives:  make(map[string]*runtime.NativeFunction, len(cfg.Natives)),
		imports:  newImportCache(cfg.Importer),
		traceOut: cfg.TraceOut,
	}
	if i.traceOut == nil {
		i.traceOut = os.Stderr
	}
	for _, fn := range cfg.Natives {
		i.natives[fn.Name] = fn
	}
	i.std = i.buildStdlib()
	i.extVars = i.prepareExtVars(cfg.ExtVars)
	return i
}

// rootContext is the context a file is evaluated in: only `std` is bound,
// with std.thisFile naming the file.
func (i *Interpreter) rootContext(filename string) *runtime.Context {
	b := runtime.NewObjectBuilder()
	_ = b.AddValue("thisFile", runtime.NewString(filename), runtime.VisibilityHidden)
	std := runtime.ExtendObjects(i.std, b.Build())
	return runtime.NewContext().Bind("std", runtime.Resolved(std))
}

// EvaluateSnippet parses and evaluates source, then applies any configured
// top-level arguments.
func (i *Interpreter) EvaluateSnippet(filename, source string) (runtime.Value, error) {
	expr, err := parser.Parse(filename, []byte(source))
	if err != nil {
		return nil, err
	}
	value, err := i.Evaluate(expr, i.rootContext(filename))
	if err != nil {
		return nil, err
	}
	return i.applyTLAs(value)
}

// EvaluateFile evaluates the file at path. With an Importer configured the
// file is resolved and cached through it, otherwise it is read from disk.
func (i *Interpreter) EvaluateFile(path string) (runtime.Value, error) {
	if i.cfg.Importer == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, runtime.WrapError(runtime.ErrImportIO, err, "reading %s", path)
		}
		return i.EvaluateSnippet(path, string(data))
	}
	value, err := i.importCode("", path)
	if err != nil {
		return nil, err
	}
	return i.applyTLAs(value)
}

// Evaluate evaluates expr in ctx. A nil ctx evaluates in a fresh root
// context.
func (i *Interpreter) Evaluate(expr ast.Expression, ctx *runtime.Context) (runtime.Value, error) {
	if ctx == nil {
		ctx = i.rootContext(expr.Span().File)
	}
	return i.evaluateExpression(expr, ctx)
}

// Manifest renders v as JSON using the configured indentation and field
// order.
func (i *Interpreter) Manifest(v runtime.Value) (string, error) {
	return runtime.ManifestJSON(v, runtime.ManifestOptions{Indent: i.cfg.Indent, PreserveOrder: i.cfg.PreserveOrder})
}

// PreserveOrder reports the configured field order.
func (i *Interpreter) PreserveOrder() bool {
	return i.cfg.PreserveOrder
}

// enter records one level of evaluation depth.
func (i *Interpreter) enter() error {
	if i.depth >= i.maxStack {
		return runtime.NewError(runtime.ErrStackOverflow, "max stack frames exceeded (%d)", i.maxStack)
	}
	i.depth++
	return nil
}

func (i *Interpreter) leave() {
	i.depth--
}

// WithStackLimit runs fn with the depth limit raised by extra.
func (i *Interpreter) WithStackLimit(extra int, fn func() (runtime.Value, error)) (runtime.Value, error) {
	saved := i.maxStack
	i.maxStack += extra
	defer func() { i.maxStack = saved }()
	return fn()
}

// framed evaluates expr as its own stack frame.
func (i *Interpreter) framed(expr ast.Expression, ctx *runtime.Context) (runtime.Value, error) {
	if err := i.enter(); err != nil {
		return nil, located(err, expr)
	}
	defer i.leave()
	return i.evaluateExpression(expr, ctx)
}

// thunk defers expr. Literals are resolved immediately.
func (i *Interpreter) thunk(expr ast.Expression, ctx *runtime.Context) *runtime.Thunk {
	if v, ok := literalValue(expr); ok {
		return runtime.Resolved(v)
	}
	return runtime.NewThunk(func() (runtime.Value, error) {
		return i.framed(expr, ctx)
	})
}

// located attaches node's span to an error that has no trace yet.
func located(err error, node ast.Node) error {
	if err == nil {
		return nil
	}
	e := runtime.AsError(err)
	if len(e.Trace) > 0 || node == nil {
		return e
	}
	return e.WithFrame(node.Span(), "")
}

func describeFunction(name string) string {
	if name == "" {
		name = "anonymous"
	}
	return fmt.Sprintf("function <%s>", name)
}

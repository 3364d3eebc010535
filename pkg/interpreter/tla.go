package interpreter

import (
	"sort"

	"jsonnet/interpreter-go/pkg/ast"
	"jsonnet/interpreter-go/pkg/parser"
	"jsonnet/interpreter-go/pkg/runtime"
)

// ExtVarKind says how an external variable or top-level argument is given.
type ExtVarKind int

const (
	// ExtString is a literal string.
	ExtString ExtVarKind = iota
	// ExtCode is source code evaluated once in a fresh root context.
	ExtCode
	// ExtValue is a value already produced by the host.
	ExtValue
)

// ExtVar is an external variable or top-level argument.
type ExtVar struct {
	Kind  ExtVarKind
	Text  string
	Value runtime.Value
}

func StringVar(s string) ExtVar { return ExtVar{Kind: ExtString, Text: s} }
func CodeVar(code string) ExtVar { return ExtVar{Kind: ExtCode, Text: code} }
func ValueVar(v runtime.Value) ExtVar { return ExtVar{Kind: ExtValue, Value: v} }

// tlaStackAllowance is the extra depth granted while applying top-level
// arguments.
const tlaStackAllowance = 10

func (i *Interpreter) externalThunk(label string, v ExtVar) *runtime.Thunk {
	switch v.Kind {
	case ExtString:
		return runtime.Resolved(runtime.NewString(v.Text))
	case ExtValue:
		return runtime.Resolved(v.Value)
	}
	return runtime.NewThunk(func() (runtime.Value, error) {
		expr, err := parser.Parse(label, []byte(v.Text))
		if err != nil {
			return nil, err
		}
		return i.evaluateExpression(expr, i.rootContext(label))
	})
}

func (i *Interpreter) prepareExtVars(vars map[string]ExtVar) map[string]*runtime.Thunk {
	out := make(map[string]*runtime.Thunk, len(vars))
	for name, v := range vars {
		out[name] = i.externalThunk("<extvar:"+name+">", v)
	}
	return out
}

func (i *Interpreter) extVar(name string) (runtime.Value, error) {
	th, ok := i.extVars[name]
	if !ok {
		return nil, runtime.NewError(runtime.ErrUndefinedExternalVariable, "undefined external variable: %s", name)
	}
	return th.Force()
}

// applyTLAs calls a function-valued result with the configured top-level
// arguments. Other values are returned unchanged.
func (i *Interpreter) applyTLAs(v runtime.Value) (runtime.Value, error) {
	if v.Kind() != runtime.KindFunction {
		return v, nil
	}
	names := make([]string, 0, len(i.cfg.TLAs))
	for name := range i.cfg.TLAs {
		names = append(names, name)
	}
	sort.Strings(names)
	named := make([]namedArg, len(names))
	for k, name := range names {
		named[k] = namedArg{name: name, value: i.externalThunk("<top-level-arg:"+name+">", i.cfg.TLAs[name])}
	}
	result, err := i.WithStackLimit(tlaStackAllowance, func() (runtime.Value, error) {
		return i.callFunction(v, nil, named, ast.Span{}, nil)
	})
	if err != nil {
		return nil, runtime.AddFrame(err, ast.Span{}, "during TLA call")
	}
	return result, nil
}

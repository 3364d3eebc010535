package analysis

import "jsonnet/interpreter-go/pkg/ast"

// symbol is one variable introduced by a local, parameter or for spec.
type symbol struct {
	name  string
	span  ast.Span
	local bool
	used  bool
}

// Environment represents a lexical scope during analysis.
type Environment struct {
	parent  *Environment
	symbols map[string]*symbol
	order   []*symbol
}

// NewEnvironment creates a new environment with an optional parent.
func NewEnvironment(parent *Environment) *Environment {
	return &Environment{
		parent:  parent,
		symbols: make(map[string]*symbol),
	}
}

// Define binds name in the current scope. Locals are reported when unused;
// parameters and comprehension variables are not.
func (e *Environment) Define(name string, span ast.Span, local bool) {
	sym := &symbol{name: name, span: span, local: local}
	e.symbols[name] = sym
	e.order = append(e.order, sym)
}

// Lookup searches the scope chain and marks the symbol as used.
func (e *Environment) Lookup(name string) bool {
	for env := e; env != nil; env = env.parent {
		if sym, ok := env.symbols[name]; ok {
			sym.used = true
			return true
		}
	}
	return false
}

// Extend returns a child environment.
func (e *Environment) Extend() *Environment {
	return NewEnvironment(e)
}

// unused lists the locals of this scope that were never referenced, in
// definition order.
func (e *Environment) unused() []*symbol {
	var out []*symbol
	for _, sym := range e.order {
		if sym.local && !sym.used && sym.name[0] != '_' {
			out = append(out, sym)
		}
	}
	return out
}

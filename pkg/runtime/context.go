package runtime

import (
	"fmt"
	"sort"
)

// Context is an immutable layered binding environment. New bindings are
// layered on top of a parent; the parent is never mutated, so children may
// share it freely. Each layer also carries the object references (`self`,
// `super`, `$`) in effect at that point.
type Context struct {
	bindings map[string]*Thunk
	parent   *Context
	self     *ObjectValue
	super    *SuperObject
	dollar   *ObjectValue
}

// NewContext creates an empty root context.
func NewContext() *Context {
	return &Context{}
}

// Parent exposes the enclosing layer (nil at the root).
func (c *Context) Parent() *Context {
	return c.parent
}

// Extend layers bindings on top of c. The map must not be modified afterwards.
func (c *Context) Extend(bindings map[string]*Thunk) *Context {
	if len(bindings) == 0 {
		return c
	}
	return &Context{
		bindings: bindings,
		parent:   c,
		self:     c.self,
		super:    c.super,
		dollar:   c.dollar,
	}
}

// Bind layers a single binding on top of c.
func (c *Context) Bind(name string, value *Thunk) *Context {
	return c.Extend(map[string]*Thunk{name: value})
}

// WithSelf returns a child context whose `self` and `super` are replaced.
// The first object entered also becomes `$`.
func (c *Context) WithSelf(self *ObjectValue, super *SuperObject) *Context {
	dollar := c.dollar
	if dollar == nil {
		dollar = self
	}
	return &Context{parent: c, self: self, super: super, dollar: dollar}
}

// WithDollar returns a child context with `$` replaced.
func (c *Context) WithDollar(dollar *ObjectValue) *Context {
	return &Context{parent: c, self: c.self, super: c.super, dollar: dollar}
}

// Lookup retrieves a binding, searching outward through the layers.
func (c *Context) Lookup(name string) (*Thunk, bool) {
	for ctx := c; ctx != nil; ctx = ctx.parent {
		if t, ok := ctx.bindings[name]; ok {
			return t, true
		}
	}
	return nil, false
}

// Get resolves a binding or reports it as undefined.
func (c *Context) Get(name string) (*Thunk, error) {
	if t, ok := c.Lookup(name); ok {
		return t, nil
	}
	return nil, NewError(ErrVariableNotDefined, "variable is not defined: %s", name)
}

func (c *Context) Self() *ObjectValue   { return c.self }
func (c *Context) Super() *SuperObject  { return c.super }
func (c *Context) Dollar() *ObjectValue { return c.dollar }

// Keys returns every visible binding name in sorted order (useful for
// determinism in tests and REPL completion).
func (c *Context) Keys() []string {
	seen := make(map[string]struct{})
	for ctx := c; ctx != nil; ctx = ctx.parent {
		for k := range ctx.bindings {
			seen[k] = struct{}{}
		}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ContextCell is a write-once slot for a context that does not exist yet,
// such as the scope of recursive local bindings which must close over the
// scope that contains them.
type ContextCell struct {
	ctx *Context
}

func NewContextCell() *ContextCell {
	return &ContextCell{}
}

// Fill stores the context. Filling twice is a programming error.
func (c *ContextCell) Fill(ctx *Context) {
	if c.ctx != nil {
		panic("runtime: context cell filled twice")
	}
	c.ctx = ctx
}

// Get returns the stored context. Reading before Fill is a programming error.
func (c *ContextCell) Get() *Context {
	if c.ctx == nil {
		panic(fmt.Sprintf("runtime: context cell read before fill (%p)", c))
	}
	return c.ctx
}

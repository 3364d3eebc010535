package runtime

import (
	"sort"

	"jsonnet/interpreter-go/pkg/ast"
)

// Visibility is the declared visibility of a field.
type Visibility int

const (
	// VisibilityInherit (`:`) keeps whatever an earlier layer declared.
	VisibilityInherit Visibility = iota
	// VisibilityHidden (`::`) hides the field from iteration and output.
	VisibilityHidden
	// VisibilityUnhide (`:::`) forces the field visible.
	VisibilityUnhide
)

// FieldBinder produces a field's value once self and super are known. self
// is the fully composed object; super is nil for the first layer.
type FieldBinder func(self *ObjectValue, super *SuperObject) (Value, error)

// Assertion checks an object invariant with the same bindings as a field.
type Assertion func(self *ObjectValue, super *SuperObject) error

// ObjectField describes one field of a layer.
type ObjectField struct {
	Visibility Visibility
	// Add marks `+:` fields, which combine with the inherited value.
	Add  bool
	Bind FieldBinder
	Span ast.Span
}

// ObjectLayer is the flat field set contributed by one object literal or
// comprehension. Layers are immutable once built and shared between every
// object composed from them.
type ObjectLayer struct {
	fields     map[string]*ObjectField
	order      []string
	assertions []Assertion
}

func (l *ObjectLayer) Field(name string) (*ObjectField, bool) {
	f, ok := l.fields[name]
	return f, ok
}

// FieldNames returns the layer's fields in insertion order.
func (l *ObjectLayer) FieldNames() []string {
	return append([]string(nil), l.order...)
}

// ObjectBuilder assembles a single layer.
type ObjectBuilder struct {
	layer *ObjectLayer
}

func NewObjectBuilder() *ObjectBuilder {
	return &ObjectBuilder{layer: &ObjectLayer{fields: make(map[string]*ObjectField)}}
}

// AddField registers a field, rejecting names already present in the layer.
func (b *ObjectBuilder) AddField(name string, field ObjectField) error {
	if _, exists := b.layer.fields[name]; exists {
		return NewError(ErrDuplicateFieldName, "duplicate field name: %s", name)
	}
	f := field
	b.layer.fields[name] = &f
	b.layer.order = append(b.layer.order, name)
	return nil
}

// AddValue registers a field holding a constant.
func (b *ObjectBuilder) AddValue(name string, value Value, visibility Visibility) error {
	return b.AddField(name, ObjectField{
		Visibility: visibility,
		Bind: func(*ObjectValue, *SuperObject) (Value, error) {
			return value, nil
		},
	})
}

func (b *ObjectBuilder) AddAssertion(assertion Assertion) {
	b.layer.assertions = append(b.layer.assertions, assertion)
}

func (b *ObjectBuilder) Len() int {
	return len(b.layer.order)
}

// Build returns a single-layer object.
func (b *ObjectBuilder) Build() *ObjectValue {
	return newObject([]*ObjectLayer{b.layer})
}

type assertState uint8

const (
	assertPending assertState = iota
	assertRunning
	assertPassed
)

type fieldKey struct {
	name  string
	layer int
}

// ObjectValue is an ordered list of layers; later layers shadow earlier
// ones. Field values are resolved late: every field is evaluated with
// self bound to this object, whichever layer defined it.
type ObjectValue struct {
	layers  []*ObjectLayer
	cache   map[fieldKey]*Thunk
	asserts assertState
}

func (o *ObjectValue) Kind() Kind { return KindObject }

func newObject(layers []*ObjectLayer) *ObjectValue {
	obj := &ObjectValue{layers: layers}
	trackObject(obj)
	return obj
}

// NewEmptyObject returns an object without fields.
func NewEmptyObject() *ObjectValue {
	return newObject(nil)
}

// NewStaticObject builds a single-layer object from host values, adding
// fields in sorted name order.
func NewStaticObject(fields map[string]Value, visibility Visibility) *ObjectValue {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	b := NewObjectBuilder()
	for _, name := range names {
		_ = b.AddValue(name, fields[name], visibility)
	}
	return b.Build()
}

// NewObjectFromLayers composes existing layers, first layer lowest.
func NewObjectFromLayers(layers ...*ObjectLayer) *ObjectValue {
	return newObject(append([]*ObjectLayer(nil), layers...))
}

// ExtendObjects implements `a + b`: the layer lists concatenate, and so do
// the assertions.
func ExtendObjects(a, b *ObjectValue) *ObjectValue {
	if len(b.layers) == 0 {
		return a
	}
	if len(a.layers) == 0 {
		return b
	}
	layers := make([]*ObjectLayer, 0, len(a.layers)+len(b.layers))
	layers = append(layers, a.layers...)
	layers = append(layers, b.layers...)
	return newObject(layers)
}

// Layers exposes the composition chain, lowest first.
func (o *ObjectValue) Layers() []*ObjectLayer {
	return append([]*ObjectLayer(nil), o.layers...)
}

func (o *ObjectValue) superAt(layer int) *SuperObject {
	if layer == 0 {
		return nil
	}
	return &SuperObject{self: o, upto: layer}
}

// findLayer returns the highest layer below upto that defines name.
func (o *ObjectValue) findLayer(name string, upto int) int {
	for i := upto - 1; i >= 0; i-- {
		if _, ok := o.layers[i].fields[name]; ok {
			return i
		}
	}
	return -1
}

// fieldThunk is the memoized value of name as defined by layer idx,
// including every `+:` contribution from the layers below it.
func (o *ObjectValue) fieldThunk(name string, idx int) *Thunk {
	key := fieldKey{name: name, layer: idx}
	if t, ok := o.cache[key]; ok {
		return t
	}
	field := o.layers[idx].fields[name]
	t := NewThunk(func() (Value, error) {
		value, err := field.Bind(o, o.superAt(idx))
		if err != nil {
			return nil, err
		}
		if !field.Add {
			return value, nil
		}
		prev := o.findLayer(name, idx)
		if prev < 0 {
			return value, nil
		}
		inherited, err := o.fieldThunk(name, prev).Force()
		if err != nil {
			return nil, err
		}
		return Add(inherited, value)
	})
	if o.cache == nil {
		o.cache = make(map[fieldKey]*Thunk)
	}
	o.cache[key] = t
	return t
}

// RunAssertions checks every assertion of every layer once per object.
// Assertions that read fields of the object being checked do not re-enter
// the check.
func (o *ObjectValue) RunAssertions() error {
	if o.asserts != assertPending {
		return nil
	}
	o.asserts = assertRunning
	for i, layer := range o.layers {
		for _, assertion := range layer.assertions {
			if err := assertion(o, o.superAt(i)); err != nil {
				o.asserts = assertPending
				return err
			}
		}
	}
	o.asserts = assertPassed
	return nil
}

// Get resolves a field, hidden or not. ok is false when no layer defines it.
func (o *ObjectValue) Get(name string) (value Value, ok bool, err error) {
	if err := o.RunAssertions(); err != nil {
		return nil, false, err
	}
	idx := o.findLayer(name, len(o.layers))
	if idx < 0 {
		return nil, false, nil
	}
	value, err = o.fieldThunk(name, idx).Force()
	if err != nil {
		return nil, true, err
	}
	return value, true, nil
}

// GetLazy returns the unforced field thunk.
func (o *ObjectValue) GetLazy(name string) (*Thunk, bool) {
	idx := o.findLayer(name, len(o.layers))
	if idx < 0 {
		return nil, false
	}
	obj := o
	return NewThunk(func() (Value, error) {
		v, _, err := obj.Get(name)
		return v, err
	}), true
}

// FieldVisible resolves visibility through the layers. exists is false when
// no layer defines name.
func (o *ObjectValue) FieldVisible(name string) (visible, exists bool) {
	for i := len(o.layers) - 1; i >= 0; i-- {
		f, ok := o.layers[i].fields[name]
		if !ok {
			continue
		}
		exists = true
		switch f.Visibility {
		case VisibilityHidden:
			return false, true
		case VisibilityUnhide:
			return true, true
		}
	}
	return exists, exists
}

// HasField reports whether name is defined, optionally counting hidden
// fields. It never evaluates field values.
func (o *ObjectValue) HasField(name string, includeHidden bool) bool {
	visible, exists := o.FieldVisible(name)
	if includeHidden {
		return exists
	}
	return visible
}

// Fields lists field names after running assertions. With preserveOrder the
// names come in order of first introduction across the layers, otherwise
// sorted.
func (o *ObjectValue) Fields(includeHidden, preserveOrder bool) ([]string, error) {
	if err := o.RunAssertions(); err != nil {
		return nil, err
	}
	return o.fieldNames(includeHidden, preserveOrder), nil
}

func (o *ObjectValue) fieldNames(includeHidden, preserveOrder bool) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, layer := range o.layers {
		for _, name := range layer.order {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			if !includeHidden {
				if visible, _ := o.FieldVisible(name); !visible {
					continue
				}
			}
			names = append(names, name)
		}
	}
	if !preserveOrder {
		sort.Strings(names)
	}
	return names
}

// Len counts fields without running assertions.
func (o *ObjectValue) Len(includeHidden bool) int {
	return len(o.fieldNames(includeHidden, true))
}

// SuperObject is the part of self's chain below the layer being resolved.
// Lookups through it still bind self to the full object.
type SuperObject struct {
	self *ObjectValue
	upto int
}

// Self returns the composed object this view belongs to.
func (s *SuperObject) Self() *ObjectValue {
	return s.self
}

func (s *SuperObject) Get(name string) (Value, bool, error) {
	idx := s.self.findLayer(name, s.upto)
	if idx < 0 {
		return nil, false, nil
	}
	v, err := s.self.fieldThunk(name, idx).Force()
	if err != nil {
		return nil, true, err
	}
	return v, true, nil
}

func (s *SuperObject) HasField(name string) bool {
	return s.self.findLayer(name, s.upto) >= 0
}

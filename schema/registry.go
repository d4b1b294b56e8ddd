// Package schema is a process-wide registry of collection schemas:
// the field whitelist the sanitizer checks filters against, the type/
// required/enum metadata the describe and validate operations report,
// and the index declarations the relational and document adapters use
// when ensuring collections.
package schema

import "sync"

// FieldType is the declared type of a field, used by describe/validate
// and by the example-filter generator.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeNumber  FieldType = "number"
	TypeBool    FieldType = "bool"
	TypeTime    FieldType = "time"
	TypeObject  FieldType = "object"
	TypeArray   FieldType = "array"
	TypeEnum    FieldType = "enum"
	TypeUnknown FieldType = "unknown"
)

// Field describes one collection field. It is built with the chained
// methods below (String/Number/...), mirroring the fluent
// field-declaration idiom, but holds its state directly rather than
// compiling into generated code.
type Field struct {
	name     string
	typ      FieldType
	required bool
	enum     []string
	indexed  bool
}

// String declares a string-typed field.
func String(name string) *Field { return &Field{name: name, typ: TypeString} }

// Number declares a number-typed field.
func Number(name string) *Field { return &Field{name: name, typ: TypeNumber} }

// Bool declares a bool-typed field.
func Bool(name string) *Field { return &Field{name: name, typ: TypeBool} }

// Time declares a time-typed field.
func Time(name string) *Field { return &Field{name: name, typ: TypeTime} }

// Object declares an object-typed field.
func Object(name string) *Field { return &Field{name: name, typ: TypeObject} }

// Array declares an array-typed field.
func Array(name string) *Field { return &Field{name: name, typ: TypeArray} }

// Enum declares a string field restricted to the given values.
func Enum(name string, values ...string) *Field {
	return &Field{name: name, typ: TypeEnum, enum: values}
}

// Required marks the field as required on insert.
func (f *Field) Required() *Field { f.required = true; return f }

// Indexed marks the field as having a backing index.
func (f *Field) Indexed() *Field { f.indexed = true; return f }

// Name returns the field's name.
func (f *Field) Name() string { return f.name }

// Type returns the field's declared type.
func (f *Field) Type() FieldType { return f.typ }

// IsRequired reports whether the field is required.
func (f *Field) IsRequired() bool { return f.required }

// IsIndexed reports whether the field is indexed.
func (f *Field) IsIndexed() bool { return f.indexed }

// EnumValues returns the field's allowed values, or nil if it isn't an enum.
func (f *Field) EnumValues() []string { return f.enum }

// Collection is the full schema for one collection: its ordered field
// list (declaration order is preserved for describe/example-filter
// generation) and any additional index declarations beyond
// single-field Indexed() fields.
type Collection struct {
	Name    string
	Fields  []*Field
	Indexes [][]string // each entry is the ordered field list of one compound index
}

// FieldNames returns the collection's field names in declaration
// order.
func (c *Collection) FieldNames() []string {
	names := make([]string, len(c.Fields))
	for i, f := range c.Fields {
		names[i] = f.name
	}
	return names
}

// Field looks up a field by name.
func (c *Collection) Field(name string) (*Field, bool) {
	for _, f := range c.Fields {
		if f.name == name {
			return f, true
		}
	}
	return nil, false
}

// Registry is a process-wide, concurrency-safe map of collection name
// to Collection, populated once at startup and read on every request
// thereafter (sanitizer whitelist check, describe, validate).
type Registry struct {
	mu          sync.RWMutex
	collections map[string]*Collection
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{collections: make(map[string]*Collection)}
}

// Register adds or replaces a collection's schema.
func (r *Registry) Register(c *Collection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collections[c.Name] = c
}

// Lookup returns the registered schema for name, if any.
func (r *Registry) Lookup(name string) (*Collection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.collections[name]
	return c, ok
}

// Names returns every registered collection name.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.collections))
	for name := range r.collections {
		names = append(names, name)
	}
	return names
}

package hyperspec

import (
	"reflect"

	"github.com/hyperspec/hyperspec-go/internal/ir"
)

// Shapes are the value-level vocabulary for type descriptions Go's type
// system cannot express directly. Anywhere a shape is accepted you may also
// pass a reflect.Type, a plain Go example value, or a structs.Type.

// TypeOf returns the reflected shape of T.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// Any accepts any well-formed value.
func Any() any { return ir.AnyShape{} }

// Nil accepts only null.
func Nil() any { return ir.NilShape{} }

// RawOf captures one value as its unparsed wire bytes.
func RawOf() any { return ir.RawShape{} }

// ExtOf accepts a format-level extension value (MessagePack ext).
func ExtOf() any { return ir.ExtShape{} }

// Date accepts a calendar date (RFC 3339 full-date), decoded to time.Time.
func Date() any { return ir.DateShape{} }

// Clock accepts a wall-clock time (RFC 3339 partial-time), decoded to
// time.Time.
func Clock() any { return ir.ClockShape{} }

// List accepts a homogeneous sequence of elem.
func List(elem any) any { return ir.ListShape{Elem: elem} }

// Set accepts a sequence of elem with duplicates collapsed.
func Set(elem any) any { return ir.SetShape{Elem: elem} }

// FrozenSet is Set with immutable intent; wire behavior is identical.
func FrozenSet(elem any) any { return ir.FrozenSetShape{Elem: elem} }

// VarTuple accepts a variable-length homogeneous tuple of elem.
func VarTuple(elem any) any { return ir.VarTupleShape{Elem: elem} }

// Tuple accepts a fixed-arity heterogeneous sequence.
func Tuple(items ...any) any { return ir.TupleShape{Items: items} }

// Dict accepts a mapping with typed keys and values.
func Dict(key, value any) any { return ir.DictShape{Key: key, Value: value} }

// Union accepts any one of members. Compilation fails when two members are
// not distinguishable from the wire representation alone.
func Union(members ...any) any { return ir.UnionShape{Members: members} }

// Literal accepts exactly one of the given scalar constants (strings,
// integers or nil).
func Literal(values ...any) any { return ir.LiteralShape{Values: values} }

// Enum is a named Literal; the name appears in error messages and exported
// schemas.
func Enum(name string, values ...any) any {
	return ir.EnumShape{Name: name, Values: values}
}

// Annotated attaches constraints to an inner shape.
func Annotated(inner any, meta Meta) any {
	return ir.AnnotatedShape{Inner: inner, Meta: meta}
}

// Custom defers (de)serialization of T to the configured hooks.
func Custom[T any](name string) any {
	return ir.CustomShape{RType: TypeOf[T](), Name: name}
}

// Self refers to the struct type currently being defined, enabling
// recursive struct shapes. Valid only inside a structs.Define call.
func Self() any { return ir.SelfShape{} }

// Fields declares an open record decoded into map[string]any with per-key
// shapes and required markers.
func Fields(fields ...FieldsField) any {
	fs := make([]ir.FieldsField, len(fields))
	for i, f := range fields {
		fs[i] = ir.FieldsField(f)
	}
	return ir.FieldsShape{Fields: fs}
}

// StrictFields is Fields with undeclared keys rejected.
func StrictFields(fields ...FieldsField) any {
	fs := make([]ir.FieldsField, len(fields))
	for i, f := range fields {
		fs[i] = ir.FieldsField(f)
	}
	return ir.FieldsShape{Fields: fs, ForbidExtra: true}
}

// FieldsField is one declared key of a Fields shape.
type FieldsField struct {
	Name     string
	Shape    any
	Required bool
}

// Meta carries optional constraints and documentation: numeric bounds for
// int/float/decimal, length and pattern for str, item bounds for
// collections.
type Meta = ir.Meta

// Ptr returns a pointer to v, for filling optional Meta bounds inline.
func Ptr[T any](v T) *T { return &v }

// Raw is a verbatim wire fragment, captured on decode and spliced on encode
// without reparsing.
type Raw = ir.Raw

// Ext is a MessagePack extension value.
type Ext = ir.Ext

// Unset is the sentinel distinguishing "field absent" from "field null" on
// dynamically defined structs.
var Unset = ir.Unset

// IsUnset reports whether v is the Unset sentinel.
func IsUnset(v any) bool { return ir.IsUnset(v) }

// NoDefault marks a struct field spec as required.
var NoDefault = ir.NoDefault

package ir

import "reflect"

// Shape descriptors. These are the value-level vocabulary users combine to
// declare shapes Go's type system cannot express on its own (unions,
// literals, enums, constraint annotations). The public root package wraps
// these in constructor functions; Build consumes them alongside
// reflect.Type and StructShaper values.

// AnyShape accepts any well-formed value.
type AnyShape struct{}

// NilShape accepts only null.
type NilShape struct{}

// RawShape captures an unparsed wire fragment.
type RawShape struct{}

// ExtShape accepts a format-level extension value.
type ExtShape struct{}

// DateShape and ClockShape select the calendar-date and wall-clock temporal
// kinds; plain time.Time reflects to the full datetime kind.
type DateShape struct{}
type ClockShape struct{}

// ListShape, SetShape, FrozenSetShape, VarTupleShape describe homogeneous
// sequences of Elem.
type ListShape struct{ Elem any }
type SetShape struct{ Elem any }
type FrozenSetShape struct{ Elem any }
type VarTupleShape struct{ Elem any }

// TupleShape describes a fixed-arity heterogeneous sequence.
type TupleShape struct{ Items []any }

// DictShape describes a mapping with typed keys and values.
type DictShape struct{ Key, Value any }

// UnionShape describes an ordered set of alternatives. Build rejects
// member sets that are not mutually distinguishable.
type UnionShape struct{ Members []any }

// LiteralShape accepts exactly one of a finite set of scalar constants.
type LiteralShape struct{ Values []any }

// EnumShape is a named literal set.
type EnumShape struct {
	Name   string
	Values []any
}

// AnnotatedShape attaches constraints to an inner shape.
type AnnotatedShape struct {
	Inner any
	Meta  Meta
}

// CustomShape defers to registered encode/decode hooks for an opaque type.
type CustomShape struct {
	RType reflect.Type
	Name  string
}

// SelfShape refers to the dynamic struct currently being defined, enabling
// recursive struct shapes. Only valid inside a Define call.
type SelfShape struct{}

// FieldsShape is a generic mapping of declared named fields (an open record
// decoded into map[string]any rather than a concrete type).
type FieldsShape struct {
	Fields      []FieldsField
	ForbidExtra bool
}

// FieldsField is one declared key of a FieldsShape.
type FieldsField struct {
	Name     string
	Shape    any
	Required bool
}

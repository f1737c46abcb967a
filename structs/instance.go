package structs

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/hyperspec/hyperspec-go/internal/engine"
	"github.com/hyperspec/hyperspec-go/internal/ir"
)

// StructInfo exposes the flattened descriptor; it makes Type usable as a
// shape anywhere a type description is accepted.
func (t *Type) StructInfo() *ir.StructInfo { return t.info }

// Name returns the type's declared name.
func (t *Type) Name() string { return t.info.Name }

// FieldNames returns the declared field names in order, inherited fields
// first.
func (t *Type) FieldNames() []string {
	names := make([]string, len(t.info.Fields))
	for i := range t.info.Fields {
		names[i] = t.info.Fields[i].Name
	}
	return names
}

// New constructs an instance from named values. Missing names take their
// defaults; missing required names fail. Unknown names fail.
func (t *Type) New(values map[string]any) (*Instance, error) {
	vals := make([]any, len(t.info.Fields))
	seen := make([]bool, len(t.info.Fields))
	for name, v := range values {
		idx := t.fieldIndex(name)
		if idx < 0 {
			return nil, &engine.ValidationError{
				Path:    "$." + name,
				Code:    engine.CodeUnexpected,
				Message: fmt.Sprintf("%s has no field `%s`", t.info.Name, name),
				Offset:  -1,
			}
		}
		vals[idx] = v
		seen[idx] = true
	}
	for i := range t.info.Fields {
		if seen[i] {
			continue
		}
		f := &t.info.Fields[i]
		switch {
		case f.Factory != nil:
			vals[i] = f.Factory()
		case f.HasDefault:
			vals[i] = f.Default
		default:
			return nil, &engine.ValidationError{
				Path:    "$." + f.Name,
				Code:    engine.CodeRequired,
				Message: fmt.Sprintf("%s missing required field `%s`", t.info.Name, f.Name),
				Offset:  -1,
			}
		}
	}
	return &Instance{t: t, values: vals}, nil
}

// MustNew is New for values known to be complete; it panics on error.
func (t *Type) MustNew(values map[string]any) *Instance {
	inst, err := t.New(values)
	if err != nil {
		panic(err)
	}
	return inst
}

func (t *Type) fieldIndex(name string) int {
	for i := range t.info.Fields {
		if t.info.Fields[i].Name == name {
			return i
		}
	}
	return -1
}

func installCallbacks(t *Type) {
	t.info.New = func(values []any) (any, error) {
		if len(values) != len(t.info.Fields) {
			return nil, fmt.Errorf("%s expects %d values, got %d", t.info.Name, len(t.info.Fields), len(values))
		}
		vals := make([]any, len(values))
		copy(vals, values)
		return &Instance{t: t, values: vals}, nil
	}
	t.info.Get = func(inst any, i int) any {
		return inst.(*Instance).values[i]
	}
	t.info.IsInstance = func(v any) bool {
		inst, ok := v.(*Instance)
		return ok && inst.t == t
	}
}

// Instance is one value of a defined struct type.
type Instance struct {
	t      *Type
	values []any
}

// Type returns the defining type.
func (in *Instance) Type() *Type { return in.t }

// Descriptor exposes the flattened descriptor for the engine.
func (in *Instance) Descriptor() *ir.StructInfo { return in.t.info }

// FieldValues returns the field values in declaration order. The slice is
// shared; callers must not mutate it.
func (in *Instance) FieldValues() []any { return in.values }

// Get returns the named field's value.
func (in *Instance) Get(name string) (any, error) {
	idx := in.t.fieldIndex(name)
	if idx < 0 {
		return nil, fmt.Errorf("%s has no field `%s`", in.t.info.Name, name)
	}
	return in.values[idx], nil
}

// Set assigns the named field. Frozen types reject mutation.
func (in *Instance) Set(name string, v any) error {
	if in.t.info.Frozen {
		return &engine.ValidationError{
			Path:    "$." + name,
			Code:    engine.CodeFrozen,
			Message: fmt.Sprintf("%s is frozen", in.t.info.Name),
			Offset:  -1,
		}
	}
	idx := in.t.fieldIndex(name)
	if idx < 0 {
		return fmt.Errorf("%s has no field `%s`", in.t.info.Name, name)
	}
	in.values[idx] = v
	return nil
}

// Replace returns a copy with the given fields changed. It works on frozen
// types; the original is never mutated.
func (in *Instance) Replace(changes map[string]any) (*Instance, error) {
	vals := make([]any, len(in.values))
	copy(vals, in.values)
	for name, v := range changes {
		idx := in.t.fieldIndex(name)
		if idx < 0 {
			return nil, fmt.Errorf("%s has no field `%s`", in.t.info.Name, name)
		}
		vals[idx] = v
	}
	return &Instance{t: in.t, values: vals}, nil
}

// Equal reports field-wise equality between instances of the same type.
// Types defined with NoEq always compare unequal.
func (in *Instance) Equal(other *Instance) bool {
	if other == nil || in.t != other.t || !in.t.info.Eq {
		return false
	}
	return reflect.DeepEqual(in.values, other.values)
}

// Compare orders two instances of the same Order-enabled type
// lexicographically by field. It fails on types without ordering and on
// field values with no defined order.
func (in *Instance) Compare(other *Instance) (int, error) {
	if !in.t.info.Order {
		return 0, fmt.Errorf("%s does not define an order", in.t.info.Name)
	}
	if other == nil || other.t != in.t {
		return 0, fmt.Errorf("cannot compare %s with a different type", in.t.info.Name)
	}
	for i := range in.values {
		c, err := compareValues(in.values[i], other.values[i])
		if err != nil {
			return 0, fmt.Errorf("field `%s`: %w", in.t.info.Fields[i].Name, err)
		}
		if c != 0 {
			return c, nil
		}
	}
	return 0, nil
}

func compareValues(a, b any) (int, error) {
	switch x := a.(type) {
	case nil:
		if b == nil {
			return 0, nil
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0, nil
			case !x:
				return -1, nil
			default:
				return 1, nil
			}
		}
	case int64:
		if y, ok := b.(int64); ok {
			return cmpOrdered(x, y), nil
		}
	case int:
		if y, ok := b.(int); ok {
			return cmpOrdered(x, y), nil
		}
	case float64:
		if y, ok := b.(float64); ok {
			return cmpOrdered(x, y), nil
		}
	case string:
		if y, ok := b.(string); ok {
			return cmpOrdered(x, y), nil
		}
	}
	return 0, fmt.Errorf("values of type %T and %T have no defined order", a, b)
}

func cmpOrdered[T int | int64 | float64 | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// String renders the instance in constructor form, fields in declaration
// order.
func (in *Instance) String() string {
	var b strings.Builder
	b.WriteString(in.t.info.Name)
	b.WriteByte('(')
	for i := range in.t.info.Fields {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%v", in.t.info.Fields[i].Name, in.values[i])
	}
	b.WriteByte(')')
	return b.String()
}

// AsMap returns the instance as a name-keyed map. Unset fields are omitted.
func (in *Instance) AsMap() map[string]any {
	out := make(map[string]any, len(in.values))
	for i := range in.t.info.Fields {
		if ir.IsUnset(in.values[i]) {
			continue
		}
		out[in.t.info.Fields[i].Name] = in.values[i]
	}
	return out
}

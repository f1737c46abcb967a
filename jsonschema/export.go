package jsonschema

import (
	"fmt"

	"github.com/hyperspec/hyperspec-go/internal/ir"
)

// Export compiles shape and renders it as a JSON Schema. Named types
// (reflected Go structs, defined struct types) land in $defs and are
// referenced, which also terminates recursive shapes.
func Export(shape any) (*Schema, error) {
	node, err := ir.Default().Build(shape)
	if err != nil {
		return nil, err
	}
	e := &exporter{cache: ir.Default(), named: map[*ir.Node]string{}}
	root, err := e.schema(node)
	if err != nil {
		return nil, err
	}
	if len(e.defs) > 0 {
		root.Defs = e.defs
	}
	return root, nil
}

type exporter struct {
	cache *ir.Cache
	defs  map[string]*Schema
	named map[*ir.Node]string
}

func (e *exporter) schema(n *ir.Node) (*Schema, error) {
	n = e.cache.Resolve(n)

	if n.Nullable {
		base := *n
		base.Nullable = false
		inner, err := e.schema(&base)
		if err != nil {
			return nil, err
		}
		return &Schema{AnyOf: []*Schema{inner, {Type: "null"}}}, nil
	}

	switch n.Kind {
	case ir.KindRecord, ir.KindStruct:
		return e.ref(n)
	}

	s, err := e.inline(n)
	if err != nil {
		return nil, err
	}
	applyMeta(s, n.Meta)
	return s, nil
}

// ref returns a $ref to the node's definition, adding it to $defs on first
// use. Registering the name before recursing terminates self-references.
func (e *exporter) ref(n *ir.Node) (*Schema, error) {
	if name, ok := e.named[n]; ok {
		return &Schema{Ref: "#/$defs/" + name}, nil
	}
	var name string
	if n.Kind == ir.KindStruct {
		name = n.Struct.Name
	} else {
		name = n.RType.Name()
		if name == "" {
			name = fmt.Sprintf("Anon%d", len(e.named)+1)
		}
	}
	e.named[n] = name
	if e.defs == nil {
		e.defs = map[string]*Schema{}
	}
	e.defs[name] = &Schema{}
	s, err := e.inline(n)
	if err != nil {
		return nil, err
	}
	*e.defs[name] = *s
	return &Schema{Ref: "#/$defs/" + name}, nil
}

func (e *exporter) inline(n *ir.Node) (*Schema, error) {
	switch n.Kind {
	case ir.KindAny, ir.KindRaw, ir.KindCustom, ir.KindExt:
		return &Schema{}, nil
	case ir.KindNil:
		return &Schema{Type: "null"}, nil
	case ir.KindBool:
		return &Schema{Type: "boolean"}, nil
	case ir.KindInt:
		return &Schema{Type: "integer"}, nil
	case ir.KindFloat:
		return &Schema{Type: "number"}, nil
	case ir.KindStr:
		return &Schema{Type: "string"}, nil
	case ir.KindBytes:
		return &Schema{Type: "string", Format: "base64"}, nil
	case ir.KindDateTime:
		return &Schema{Type: "string", Format: "date-time"}, nil
	case ir.KindDate:
		return &Schema{Type: "string", Format: "date"}, nil
	case ir.KindTime:
		return &Schema{Type: "string", Format: "time"}, nil
	case ir.KindDuration:
		return &Schema{Type: "string", Format: "duration"}, nil
	case ir.KindUUID:
		return &Schema{Type: "string", Format: "uuid"}, nil
	case ir.KindDecimal:
		return &Schema{Type: "string", Format: "decimal"}, nil
	case ir.KindLiteral, ir.KindEnum:
		s := &Schema{Title: n.EnumName}
		if len(n.Literals) == 1 {
			s.Const = n.Literals[0]
		} else {
			s.Enum = append([]any(nil), n.Literals...)
		}
		return s, nil
	case ir.KindUnion:
		members := make([]*Schema, 0, len(n.Members))
		for _, m := range n.Members {
			ms, err := e.schema(m)
			if err != nil {
				return nil, err
			}
			members = append(members, ms)
		}
		return &Schema{AnyOf: members}, nil
	case ir.KindList, ir.KindVarTuple:
		elem, err := e.schema(n.Elem)
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "array", Items: elem}, nil
	case ir.KindSet, ir.KindFrozenSet:
		elem, err := e.schema(n.Elem)
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "array", Items: elem, UniqueItems: true}, nil
	case ir.KindTuple:
		items := make([]*Schema, 0, len(n.Items))
		for _, it := range n.Items {
			is, err := e.schema(it)
			if err != nil {
				return nil, err
			}
			items = append(items, is)
		}
		minLen := len(items)
		return &Schema{
			Type:        "array",
			PrefixItems: items,
			Items:       false,
			MinItems:    &minLen,
		}, nil
	case ir.KindDict:
		val, err := e.schema(n.Elem)
		if err != nil {
			return nil, err
		}
		return &Schema{Type: "object", AdditionalProperties: val}, nil
	case ir.KindFields:
		s := &Schema{Type: "object", Properties: map[string]*Schema{}}
		for i := range n.Fields {
			f := &n.Fields[i]
			fs, err := e.schema(f.Type)
			if err != nil {
				return nil, err
			}
			s.Properties[f.Name] = fs
			if f.Required {
				s.Required = append(s.Required, f.Name)
			}
		}
		if n.ForbidExtra {
			s.AdditionalProperties = false
		}
		return s, nil
	case ir.KindRecord:
		s := &Schema{Type: "object", Properties: map[string]*Schema{}}
		for i := range n.Fields {
			f := &n.Fields[i]
			fs, err := e.schema(f.Type)
			if err != nil {
				return nil, err
			}
			s.Properties[f.EncodeName] = fs
			if f.Required {
				s.Required = append(s.Required, f.EncodeName)
			}
		}
		return s, nil
	case ir.KindStruct:
		return e.structSchema(n.Struct)
	default:
		return nil, fmt.Errorf("jsonschema: cannot export %s", n.Kind)
	}
}

func (e *exporter) structSchema(si *ir.StructInfo) (*Schema, error) {
	if si.ArrayLike {
		items := make([]*Schema, 0, len(si.Fields))
		required := 0
		for i := range si.Fields {
			f := &si.Fields[i]
			fs, err := e.schema(f.Type)
			if err != nil {
				return nil, err
			}
			if f.HasDefault {
				fs.Default = f.Default
			} else if f.Factory == nil {
				required = i + 1
			}
			items = append(items, fs)
		}
		return &Schema{
			Type:        "array",
			Title:       si.Name,
			PrefixItems: items,
			Items:       false,
			MinItems:    &required,
		}, nil
	}

	s := &Schema{Type: "object", Title: si.Name, Properties: map[string]*Schema{}}
	if si.TagField != "" {
		s.Properties[si.TagField] = &Schema{Const: si.Tag}
		s.Required = append(s.Required, si.TagField)
	}
	for i := range si.Fields {
		f := &si.Fields[i]
		fs, err := e.schema(f.Type)
		if err != nil {
			return nil, err
		}
		if f.HasDefault {
			fs.Default = f.Default
		}
		s.Properties[f.EncodeName] = fs
		if !f.HasDefault && f.Factory == nil {
			s.Required = append(s.Required, f.EncodeName)
		}
	}
	if si.ForbidExtra {
		s.AdditionalProperties = false
	}
	return s, nil
}

func applyMeta(s *Schema, m *ir.Meta) {
	if m == nil {
		return
	}
	s.Minimum = m.GE
	s.ExclusiveMinimum = m.GT
	s.Maximum = m.LE
	s.ExclusiveMaximum = m.LT
	s.MultipleOf = m.MultipleOf
	s.MinLength = m.MinLength
	s.MaxLength = m.MaxLength
	s.Pattern = m.Pattern
	s.MinItems = m.MinItems
	s.MaxItems = m.MaxItems
	if m.Title != "" {
		s.Title = m.Title
	}
	s.Description = m.Description
}

// Package structs implements dynamically defined struct types: named,
// ordered field collections with defaults, single inheritance, optional
// immutability and ordering, and tagged-union membership. Instances decode
// and encode through the same engine as reflected Go structs.
package structs

import (
	"fmt"
	"strings"

	"github.com/hyperspec/hyperspec-go/internal/ir"
)

// NoDefault marks a field as required.
var NoDefault = ir.NoDefault

// Config controls the behavior of a defined struct type.
type Config struct {
	Name string

	// Frozen rejects Set after construction. Order enables Compare; it
	// implies Eq. Eq enables Equal and is on by default.
	Frozen bool
	Order  bool
	NoEq   bool

	// OmitDefaults skips fields whose value equals their default when
	// encoding. ForbidUnknown rejects undeclared keys when decoding.
	// ArrayLike encodes instances as positional arrays instead of maps.
	OmitDefaults  bool
	ForbidUnknown bool
	ArrayLike     bool

	// RenameAll derives encoded field names: "lower", "upper", "camel",
	// "pascal" or "kebab". Explicit FieldSpec.EncodeName wins.
	RenameAll string

	// Tag marks the type as a tagged-union member. true selects the type
	// name; a string or integer is used verbatim. TagField defaults to
	// "type" when a tag is set.
	Tag      any
	TagField string
}

// FieldSpec declares one field of a struct type.
type FieldSpec struct {
	Name       string
	Shape      any
	Default    any        // NoDefault marks the field required
	Factory    func() any // fresh default per instance, for mutable defaults
	EncodeName string     // explicit wire name, overriding RenameAll
}

// Type is a defined struct type. It doubles as a shape: pass it anywhere a
// type description is accepted.
type Type struct {
	info *ir.StructInfo
	node *ir.Node
}

// Define registers a new struct type with the process-wide type cache.
// Fields with defaults must come after fields without, so positional forms
// stay unambiguous.
func Define(cfg Config, fields ...FieldSpec) (*Type, error) {
	return define(cfg, nil, fields)
}

// Extend registers a new struct type inheriting every field of base. Added
// fields follow the inherited ones; the defaults-after-required rule applies
// to the combined list.
func Extend(base *Type, cfg Config, fields ...FieldSpec) (*Type, error) {
	if base == nil {
		return nil, defErr(cfg.Name, "nil base type")
	}
	return define(cfg, base.info, fields)
}

func define(cfg Config, base *ir.StructInfo, fields []FieldSpec) (*Type, error) {
	if cfg.Name == "" {
		return nil, defErr("", "struct type requires a name")
	}
	switch cfg.RenameAll {
	case "", "none", "lower", "upper", "camel", "pascal", "kebab":
	default:
		return nil, defErr(cfg.Name, "unknown rename strategy %q", cfg.RenameAll)
	}

	tag, tagField, err := resolveTag(cfg)
	if err != nil {
		return nil, err
	}

	info := &ir.StructInfo{
		Name:         cfg.Name,
		Frozen:       cfg.Frozen,
		Order:        cfg.Order,
		Eq:           !cfg.NoEq || cfg.Order,
		OmitDefaults: cfg.OmitDefaults,
		ForbidExtra:  cfg.ForbidUnknown,
		ArrayLike:    cfg.ArrayLike,
		RenameAll:    cfg.RenameAll,
		Tag:          tag,
		TagField:     tagField,
	}

	var shapes []any
	if base != nil {
		for i := range base.Fields {
			bf := base.Fields[i]
			info.Fields = append(info.Fields, bf)
			shapes = append(shapes, bf.Type)
		}
	}

	seen := map[string]bool{}
	for i := range info.Fields {
		seen[info.Fields[i].Name] = true
	}
	for _, f := range fields {
		if f.Name == "" {
			return nil, defErr(cfg.Name, "field requires a name")
		}
		if seen[f.Name] {
			return nil, defErr(cfg.Name, "duplicate field %q", f.Name)
		}
		seen[f.Name] = true
		encName := f.EncodeName
		if encName == "" {
			encName = applyRename(cfg.RenameAll, f.Name)
		}
		sf := ir.StructField{
			Name:       f.Name,
			EncodeName: encName,
			Factory:    f.Factory,
		}
		if f.Default != nil && !isNoDefault(f.Default) {
			sf.Default = f.Default
			sf.HasDefault = true
		}
		info.Fields = append(info.Fields, sf)
		shapes = append(shapes, f.Shape)
	}

	if err := checkFieldOrder(cfg.Name, info); err != nil {
		return nil, err
	}
	if err := checkWireNames(cfg.Name, info); err != nil {
		return nil, err
	}

	t := &Type{info: info}
	installCallbacks(t)

	node, err := ir.Default().DefineStruct(info, shapes)
	if err != nil {
		return nil, err
	}
	t.node = node
	return t, nil
}

func resolveTag(cfg Config) (any, string, error) {
	switch tag := cfg.Tag.(type) {
	case nil:
		if cfg.TagField != "" {
			return nil, "", defErr(cfg.Name, "tag field set without a tag")
		}
		return nil, "", nil
	case bool:
		if !tag {
			return nil, "", nil
		}
		return cfg.Name, fieldOrDefault(cfg.TagField), nil
	case string:
		if tag == "" {
			return nil, "", defErr(cfg.Name, "empty string tag")
		}
		return tag, fieldOrDefault(cfg.TagField), nil
	case int:
		return int64(tag), fieldOrDefault(cfg.TagField), nil
	case int64:
		return tag, fieldOrDefault(cfg.TagField), nil
	default:
		return nil, "", defErr(cfg.Name, "tag must be bool, string or integer, got %T", cfg.Tag)
	}
}

func fieldOrDefault(f string) string {
	if f == "" {
		return "type"
	}
	return f
}

// Required fields must precede fields carrying defaults so array-like
// decoding can tell a short payload from a misordered one.
func checkFieldOrder(name string, info *ir.StructInfo) error {
	sawDefault := false
	for i := range info.Fields {
		f := &info.Fields[i]
		optional := f.HasDefault || f.Factory != nil
		if optional {
			sawDefault = true
		} else if sawDefault {
			return defErr(name, "required field %q cannot follow fields with defaults", f.Name)
		}
	}
	return nil
}

func checkWireNames(name string, info *ir.StructInfo) error {
	seen := map[string]bool{}
	for i := range info.Fields {
		en := info.Fields[i].EncodeName
		if seen[en] {
			return defErr(name, "duplicate encoded field name %q", en)
		}
		seen[en] = true
	}
	if info.TagField != "" && seen[info.TagField] {
		return defErr(name, "tag field %q collides with a field", info.TagField)
	}
	return nil
}

func isNoDefault(v any) bool { return v == ir.NoDefault }

func applyRename(strategy, name string) string {
	switch strategy {
	case "", "none":
		return name
	case "lower":
		return strings.ToLower(name)
	case "upper":
		return strings.ToUpper(name)
	case "camel":
		return renameCamel(name, false)
	case "pascal":
		return renameCamel(name, true)
	case "kebab":
		return strings.ReplaceAll(strings.ToLower(name), "_", "-")
	default:
		return name
	}
}

func renameCamel(name string, upperFirst bool) string {
	parts := strings.Split(name, "_")
	var b strings.Builder
	for i, p := range parts {
		if p == "" {
			continue
		}
		if i == 0 && !upperFirst {
			b.WriteString(strings.ToLower(p[:1]) + p[1:])
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]) + p[1:])
	}
	return b.String()
}

func defErr(name, format string, args ...any) error {
	return &ir.TypeDescriptionError{
		Shape: name,
		Msg:   fmt.Sprintf(format, args...),
	}
}

package ir

// Package ir defines the canonical type description graph consumed by the
// decode/encode/convert engines. Nodes form a closed tagged union so that
// traversal code stays exhaustive; new kinds are deliberate additions.

import (
	"reflect"
)

// Kind identifies a type description node variant.
type Kind int

const (
	KindAny Kind = iota
	KindNil
	KindBool
	KindInt
	KindFloat
	KindStr
	KindBytes
	KindDateTime
	KindDate
	KindTime
	KindDuration
	KindUUID
	KindDecimal
	KindExt
	KindRaw
	KindEnum
	KindLiteral
	KindCustom
	KindUnion
	KindList
	KindSet
	KindFrozenSet
	KindTuple
	KindVarTuple
	KindDict
	KindRecord
	KindFields
	KindStruct
	KindRef
)

var kindNames = map[Kind]string{
	KindAny:       "any",
	KindNil:       "null",
	KindBool:      "bool",
	KindInt:       "int",
	KindFloat:     "float",
	KindStr:       "str",
	KindBytes:     "bytes",
	KindDateTime:  "datetime",
	KindDate:      "date",
	KindTime:      "time",
	KindDuration:  "duration",
	KindUUID:      "uuid",
	KindDecimal:   "decimal",
	KindExt:       "ext",
	KindRaw:       "raw",
	KindEnum:      "enum",
	KindLiteral:   "literal",
	KindCustom:    "custom",
	KindUnion:     "union",
	KindList:      "list",
	KindSet:       "set",
	KindFrozenSet: "frozenset",
	KindTuple:     "tuple",
	KindVarTuple:  "tuple",
	KindDict:      "dict",
	KindRecord:    "object",
	KindFields:    "object",
	KindStruct:    "object",
	KindRef:       "ref",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return "unknown"
}

// Node is one type description. Nodes are immutable once their owning build
// completes and are shared read-only across decode/encode/convert calls.
type Node struct {
	Kind Kind
	Meta *Meta

	// Elem is the element node for List/Set/FrozenSet/VarTuple and the
	// value node for Dict.
	Elem *Node
	// Key is the key node for Dict.
	Key *Node
	// Items are the positional nodes for a fixed-arity Tuple.
	Items []*Node

	// Union members in declaration order, plus the dispatch table computed
	// at build time.
	Members []*Node
	Union   *UnionTable

	// Literal / Enum constants.
	Literals []any
	EnumName string

	// RType is the concrete Go type this node was introspected from, when
	// any. The engine materializes into RType when present.
	RType reflect.Type

	// Fields describe Record (reflected Go struct) and Fields (generic
	// named-field mapping) variants.
	Fields []Field

	// Struct is the dynamic struct descriptor for KindStruct.
	Struct *StructInfo

	// Nullable marks a node introspected from a pointer type: null decodes
	// to a nil value of RType instead of failing.
	Nullable bool

	// ForbidExtra rejects undeclared keys on a Fields node.
	ForbidExtra bool

	// RefIndex points into the owning Cache's node table for KindRef. The
	// indirection keeps recursive shapes acyclic by construction.
	RefIndex int

	// CustomName names a Custom shape in error messages.
	CustomName string
}

// Field is one named field of a Record or Fields node. For Record nodes
// Index is the reflect field index; for Fields nodes it is the declaration
// position.
type Field struct {
	Name       string
	EncodeName string
	Type       *Node
	Index      int
	Required   bool
	OmitEmpty  bool
}

// UnionTable is the decode dispatch table for a Union node, computed once at
// build time so member matching never guesses at decode time.
type UnionTable struct {
	// Scalar classes: at most one member each.
	NilMember   *Node
	BoolMember  *Node
	IntMember   *Node
	FloatMember *Node
	StrMember   *Node
	BytesMember *Node
	ExtMember   *Node
	SeqMember   *Node
	MapMember   *Node

	// Literal dispatch by constant value.
	StrLiterals map[string]*Node
	IntLiterals map[int64]*Node

	// Tagged struct dispatch. All struct members of a multi-struct union
	// must be tagged with pairwise distinct tags over one tag field.
	TagField   string
	TagStructs map[any]*Node
}

// noDefault is the sentinel marking a struct field as required.
type noDefault struct{}

// NoDefault marks a struct field spec as having no default value.
var NoDefault any = noDefault{}

// StructInfo is the flattened descriptor of a dynamic struct type. The
// structs package builds one per Define/Extend call and installs the
// construction callbacks; the engine only ever reads it.
type StructInfo struct {
	Name   string
	Fields []StructField

	Frozen       bool
	Order        bool
	Eq           bool
	OmitDefaults bool
	ForbidExtra  bool
	ArrayLike    bool
	RenameAll    string

	// Tag/TagField configure tagged-union membership. TagField is empty for
	// untagged structs.
	Tag      any
	TagField string

	// New constructs an instance from a full, ordered value slice. Get
	// reads field i from an instance. IsInstance reports whether v is an
	// instance of this exact struct type. Installed by the structs package.
	New        func(values []any) (any, error)
	Get        func(inst any, i int) any
	IsInstance func(v any) bool
}

// StructField is one flattened field of a StructInfo.
type StructField struct {
	Name       string
	EncodeName string
	Type       *Node
	Default    any
	HasDefault bool
	Factory    func() any
}

// FieldByEncodeName returns the field index matching the wire key, or -1.
func (si *StructInfo) FieldByEncodeName(key string) int {
	for i := range si.Fields {
		if si.Fields[i].EncodeName == key {
			return i
		}
	}
	return -1
}

// StructShaper is implemented by the public structs.Type so the introspector
// can accept it as a shape without depending on the structs package.
type StructShaper interface {
	StructInfo() *StructInfo
}

// StructValue is implemented by struct instances so the engine can encode
// them without depending on the structs package.
type StructValue interface {
	Descriptor() *StructInfo
	FieldValues() []any
}

// Walk visits every node reachable from n exactly once. Ref nodes are not
// followed; their targets live in the cache table and are visited through
// their defining shape.
func Walk(n *Node, fn func(*Node) bool) {
	seen := map[*Node]bool{}
	var rec func(*Node)
	rec = func(n *Node) {
		if n == nil || seen[n] {
			return
		}
		seen[n] = true
		if !fn(n) {
			return
		}
		rec(n.Elem)
		rec(n.Key)
		for _, it := range n.Items {
			rec(it)
		}
		for _, m := range n.Members {
			rec(m)
		}
		for i := range n.Fields {
			rec(n.Fields[i].Type)
		}
		if n.Struct != nil {
			for i := range n.Struct.Fields {
				rec(n.Struct.Fields[i].Type)
			}
		}
	}
	rec(n)
}

// ContainsCustom reports whether any node reachable from n is a Custom
// shape. Used to verify hook presence at decoder/encoder bind time.
func ContainsCustom(n *Node) bool {
	found := false
	Walk(n, func(n *Node) bool {
		if n.Kind == KindCustom {
			found = true
			return false
		}
		return true
	})
	return found
}

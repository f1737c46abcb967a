package ir

import (
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Cache owns the node table and the shape-identity index. Identity-keyed
// entries exist for reflect.Type and *StructInfo shapes; descriptor values
// (unions, literals, annotations) have no identity and are rebuilt from
// their cached children, which is cheap.
//
// Builds are serialized under one mutex; introspection is pure, so
// serializing concurrent first-use keeps the table race-free.
type Cache struct {
	mu      sync.Mutex
	entries map[any]int
	table   []*Node
}

// NewCache returns an empty shape cache.
func NewCache() *Cache {
	return &Cache{entries: map[any]int{}}
}

var defaultCache = NewCache()

// Default returns the process-wide cache used when callers do not supply
// their own.
func Default() *Cache { return defaultCache }

// Reset drops every cached shape. Nodes handed out before the reset remain
// valid; they simply stop being shared with future builds.
func (c *Cache) Reset() {
	c.mu.Lock()
	c.entries = map[any]int{}
	c.table = nil
	c.mu.Unlock()
}

// At returns the node stored at table index i. Used by the engine to chase
// Ref indirections.
func (c *Cache) At(i int) *Node {
	c.mu.Lock()
	n := c.table[i]
	c.mu.Unlock()
	return n
}

// rollback discards table slots and identity entries created at or after
// idx. Nested shapes registered during a failed build must not survive it:
// a stale entry would index past the truncated table.
func (c *Cache) rollback(idx int) {
	for k, i := range c.entries {
		if i >= idx {
			delete(c.entries, k)
		}
	}
	c.table = c.table[:idx]
}

// Resolve chases a Ref node to its target; other nodes pass through.
func (c *Cache) Resolve(n *Node) *Node {
	if n != nil && n.Kind == KindRef {
		return c.At(n.RefIndex)
	}
	return n
}

// Build turns a declared shape into its node, reusing cached subgraphs.
// Accepted shapes: *Node, reflect.Type, StructShaper, and the descriptor
// values from shapes.go.
func (c *Cache) Build(shape any) (*Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b := &builder{cache: c, pending: map[reflect.Type]int{}, selfIndex: -1}
	return b.build(shape)
}

// DefineStruct registers a dynamic struct descriptor: it reserves a table
// slot, builds every field shape with SelfShape resolving to that slot, and
// stores the finished struct node. Called by the structs package from
// Define/Extend.
func (c *Cache) DefineStruct(info *StructInfo, fieldShapes []any) (*Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := len(c.table)
	c.table = append(c.table, nil)
	b := &builder{cache: c, pending: map[reflect.Type]int{}, selfIndex: idx}
	for i, fs := range fieldShapes {
		n, err := b.build(fs)
		if err != nil {
			c.rollback(idx)
			return nil, err
		}
		info.Fields[i].Type = n
	}
	node := &Node{Kind: KindStruct, Struct: info}
	c.table[idx] = node
	c.entries[info] = idx
	return node, nil
}

type builder struct {
	cache     *Cache
	pending   map[reflect.Type]int
	selfIndex int
}

func (b *builder) build(shape any) (*Node, error) {
	switch s := shape.(type) {
	case nil:
		return nil, descErrf("", "nil shape")
	case *Node:
		return s, nil
	case reflect.Type:
		return b.buildReflect(s)
	case StructShaper:
		info := s.StructInfo()
		if idx, ok := b.cache.entries[info]; ok {
			return b.cache.table[idx], nil
		}
		return nil, descErrf(info.Name, "struct type not registered with this cache")
	case AnyShape:
		return &Node{Kind: KindAny}, nil
	case NilShape:
		return &Node{Kind: KindNil}, nil
	case RawShape:
		return &Node{Kind: KindRaw}, nil
	case ExtShape:
		return &Node{Kind: KindExt}, nil
	case DateShape:
		return &Node{Kind: KindDate}, nil
	case ClockShape:
		return &Node{Kind: KindTime}, nil
	case SelfShape:
		if b.selfIndex < 0 {
			return nil, descErrf("", "self reference outside a struct definition")
		}
		return &Node{Kind: KindRef, RefIndex: b.selfIndex}, nil
	case ListShape:
		return b.buildElem(KindList, s.Elem)
	case SetShape:
		return b.buildSetLike(KindSet, s.Elem)
	case FrozenSetShape:
		return b.buildSetLike(KindFrozenSet, s.Elem)
	case VarTupleShape:
		return b.buildElem(KindVarTuple, s.Elem)
	case TupleShape:
		items := make([]*Node, len(s.Items))
		for i, it := range s.Items {
			n, err := b.build(it)
			if err != nil {
				return nil, err
			}
			items[i] = n
		}
		return &Node{Kind: KindTuple, Items: items}, nil
	case DictShape:
		key, err := b.build(s.Key)
		if err != nil {
			return nil, err
		}
		if err := checkKeyKind(key); err != nil {
			return nil, err
		}
		val, err := b.build(s.Value)
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindDict, Key: key, Elem: val}, nil
	case LiteralShape:
		return buildLiteral("", s.Values)
	case EnumShape:
		if s.Name == "" {
			return nil, descErrf("", "enum requires a name")
		}
		n, err := buildLiteral(s.Name, s.Values)
		if err != nil {
			return nil, err
		}
		n.Kind = KindEnum
		return n, nil
	case CustomShape:
		if s.RType == nil {
			return nil, descErrf(s.Name, "custom shape requires a Go type")
		}
		name := s.Name
		if name == "" {
			name = s.RType.String()
		}
		return &Node{Kind: KindCustom, RType: s.RType, CustomName: name}, nil
	case AnnotatedShape:
		inner, err := b.build(s.Inner)
		if err != nil {
			return nil, err
		}
		meta := s.Meta
		if err := meta.compile(); err != nil {
			return nil, descErrf(inner.Kind.String(), "%v", err)
		}
		if !metaAllowed(&meta, inner.Kind) {
			return nil, descErrf(inner.Kind.String(), "constraints not applicable to %s", inner.Kind)
		}
		clone := *inner
		clone.Meta = &meta
		return &clone, nil
	case UnionShape:
		return b.buildUnion(s)
	case FieldsShape:
		return b.buildFields(s)
	default:
		// Convenience: a plain Go value used as a shape means "the shape of
		// this value's type".
		if rt := reflect.TypeOf(shape); rt != nil {
			return b.buildReflect(rt)
		}
		return nil, descErrf("", "unsupported shape %T", shape)
	}
}

func (b *builder) buildElem(kind Kind, elem any) (*Node, error) {
	n, err := b.build(elem)
	if err != nil {
		return nil, err
	}
	return &Node{Kind: kind, Elem: n}, nil
}

// buildSetLike additionally requires hashable (scalar) elements so
// uniqueness checks are well defined.
func (b *builder) buildSetLike(kind Kind, elem any) (*Node, error) {
	n, err := b.build(elem)
	if err != nil {
		return nil, err
	}
	switch n.Kind {
	case KindBool, KindInt, KindFloat, KindStr, KindDateTime, KindDate,
		KindTime, KindDuration, KindUUID, KindLiteral, KindEnum:
	default:
		return nil, descErrf(kind.String(), "set elements must be scalar, got %s", n.Kind)
	}
	return &Node{Kind: kind, Elem: n}, nil
}

func (b *builder) buildFields(s FieldsShape) (*Node, error) {
	fields := make([]Field, len(s.Fields))
	seen := map[string]bool{}
	for i, f := range s.Fields {
		if f.Name == "" {
			return nil, descErrf("object", "field %d has no name", i)
		}
		if seen[f.Name] {
			return nil, descErrf("object", "duplicate field %q", f.Name)
		}
		seen[f.Name] = true
		n, err := b.build(f.Shape)
		if err != nil {
			return nil, err
		}
		fields[i] = Field{Name: f.Name, EncodeName: f.Name, Type: n, Index: i, Required: f.Required}
	}
	return &Node{Kind: KindFields, Fields: fields, ForbidExtra: s.ForbidExtra}, nil
}

func buildLiteral(name string, values []any) (*Node, error) {
	if len(values) == 0 {
		return nil, descErrf(name, "literal requires at least one value")
	}
	norm := make([]any, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case string:
			norm[i] = x
		case int:
			norm[i] = int64(x)
		case int64:
			norm[i] = x
		case nil:
			norm[i] = nil
		default:
			return nil, descErrf(name, "literal values must be str, int or null, got %T", v)
		}
	}
	return &Node{Kind: KindLiteral, Literals: norm, EnumName: name}, nil
}

func checkKeyKind(key *Node) error {
	switch key.Kind {
	case KindStr, KindInt, KindUUID, KindDateTime, KindDate, KindEnum, KindLiteral:
		return nil
	default:
		return descErrf("dict", "unsupported key kind %s", key.Kind)
	}
}

// Well-known Go types with dedicated kinds.
var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
	uuidType     = reflect.TypeOf(uuid.UUID{})
	decimalType  = reflect.TypeOf(decimal.Decimal{})
	rawType      = reflect.TypeOf(Raw(nil))
	extType      = reflect.TypeOf(Ext{})
	bytesType    = reflect.TypeOf([]byte(nil))
	anyType      = reflect.TypeOf((*any)(nil)).Elem()
)

func (b *builder) buildReflect(t reflect.Type) (*Node, error) {
	if idx, ok := b.cache.entries[t]; ok {
		return b.cache.table[idx], nil
	}
	if idx, ok := b.pending[t]; ok {
		// Identity-based cycle detection: the second sighting of a type
		// mid-build becomes an indirection into the table slot reserved by
		// the first.
		return &Node{Kind: KindRef, RefIndex: idx}, nil
	}

	switch t {
	case timeType:
		return &Node{Kind: KindDateTime, RType: t}, nil
	case durationType:
		return &Node{Kind: KindDuration, RType: t}, nil
	case uuidType:
		return &Node{Kind: KindUUID, RType: t}, nil
	case decimalType:
		return &Node{Kind: KindDecimal, RType: t}, nil
	case rawType:
		return &Node{Kind: KindRaw, RType: t}, nil
	case extType:
		return &Node{Kind: KindExt, RType: t}, nil
	}

	switch t.Kind() {
	case reflect.Bool:
		return &Node{Kind: KindBool, RType: t}, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return &Node{Kind: KindInt, RType: t}, nil
	case reflect.Float32, reflect.Float64:
		return &Node{Kind: KindFloat, RType: t}, nil
	case reflect.String:
		return &Node{Kind: KindStr, RType: t}, nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return &Node{Kind: KindBytes, RType: t}, nil
		}
		elem, err := b.buildReflect(t.Elem())
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindList, Elem: elem, RType: t}, nil
	case reflect.Array:
		elem, err := b.buildReflect(t.Elem())
		if err != nil {
			return nil, err
		}
		items := make([]*Node, t.Len())
		for i := range items {
			items[i] = elem
		}
		return &Node{Kind: KindTuple, Items: items, RType: t}, nil
	case reflect.Map:
		key, err := b.buildReflect(t.Key())
		if err != nil {
			return nil, err
		}
		if err := checkKeyKind(key); err != nil {
			return nil, err
		}
		val, err := b.buildReflect(t.Elem())
		if err != nil {
			return nil, err
		}
		return &Node{Kind: KindDict, Key: key, Elem: val, RType: t}, nil
	case reflect.Pointer:
		inner, err := b.buildReflect(t.Elem())
		if err != nil {
			return nil, err
		}
		clone := *inner
		clone.Nullable = true
		clone.RType = t
		return &clone, nil
	case reflect.Interface:
		if t == anyType || t.NumMethod() == 0 {
			return &Node{Kind: KindAny, RType: t}, nil
		}
		return nil, descErrf(t.String(), "non-empty interface types are not describable")
	case reflect.Struct:
		return b.buildRecord(t)
	default:
		return nil, descErrf(t.String(), "unsupported Go kind %s", t.Kind())
	}
}

// buildRecord introspects a plain Go struct into a fixed-field record node.
// Field naming and skipping follow the `hyperspec` struct tag.
func (b *builder) buildRecord(t reflect.Type) (*Node, error) {
	idx := len(b.cache.table)
	b.cache.table = append(b.cache.table, nil)
	b.pending[t] = idx

	var fields []Field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		name, opts := parseTag(sf.Tag.Get("hyperspec"))
		if name == "-" {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		ft, err := b.buildReflect(sf.Type)
		if err != nil {
			delete(b.pending, t)
			b.cache.rollback(idx)
			return nil, err
		}
		fields = append(fields, Field{
			Name:       sf.Name,
			EncodeName: name,
			Type:       ft,
			Index:      i,
			Required:   !opts["optional"],
			OmitEmpty:  opts["omitempty"],
		})
	}
	node := &Node{Kind: KindRecord, RType: t, Fields: fields}
	b.cache.table[idx] = node
	b.cache.entries[t] = idx
	delete(b.pending, t)
	return node, nil
}

func parseTag(tag string) (string, map[string]bool) {
	parts := strings.Split(tag, ",")
	opts := map[string]bool{}
	for _, p := range parts[1:] {
		opts[p] = true
	}
	return parts[0], opts
}

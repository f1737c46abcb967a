package engine

import (
	"encoding/base64"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hyperspec/hyperspec-go/internal/ir"
)

// EncodeHook converts an otherwise unencodable value into one the engine
// can represent.
type EncodeHook func(v any) (any, error)

// EncodeConfig carries encode-time policy shared by every call on one bound
// encoder.
type EncodeConfig struct {
	Cache *ir.Cache
	Hook  EncodeHook
}

// Encoder serializes native values into primitive events consumed by a
// per-format writer. Struct fields are emitted in declared order; map keys
// are emitted in sorted key order so output is deterministic. One encoder
// instance is not safe for concurrent use.
type Encoder struct {
	cfg  EncodeConfig
	sink TokenSink
	path Path
}

// NewEncoder returns an encoder bound to cfg.
func NewEncoder(cfg EncodeConfig) *Encoder {
	if cfg.Cache == nil {
		cfg.Cache = ir.Default()
	}
	return &Encoder{cfg: cfg}
}

// Encode writes v to sink. node optionally pins the static type
// description; when nil the value's runtime shape drives the walk.
func (e *Encoder) Encode(v any, sink TokenSink, node *ir.Node) error {
	e.sink = sink
	e.path.Reset()
	return e.encode(v, node)
}

// Encode is the package-level convenience over a throwaway encoder.
func Encode(v any, sink TokenSink, node *ir.Node, cfg EncodeConfig) error {
	return NewEncoder(cfg).Encode(v, sink, node)
}

func (e *Encoder) encode(v any, node *ir.Node) error {
	if node != nil {
		node = e.cfg.Cache.Resolve(node)
		switch node.Kind {
		case ir.KindCustom:
			if e.cfg.Hook == nil {
				return e.errEncode(CodeMissingHook, "no encode hook registered for custom type "+node.CustomName)
			}
			hv, err := e.cfg.Hook(v)
			if err != nil {
				return e.errEncode(CodeUnsupported, err.Error())
			}
			return e.encode(hv, nil)
		case ir.KindDate:
			if t, ok := v.(time.Time); ok {
				return e.writeTemporal(t, formatDate)
			}
		case ir.KindTime:
			if t, ok := v.(time.Time); ok {
				return e.writeTemporal(t, formatClock)
			}
		}
	}

	switch x := v.(type) {
	case nil:
		return e.write(Token{Kind: KindNull})
	case bool:
		return e.write(Token{Kind: KindBool, Bool: x})
	case int:
		return e.writeInt(int64(x))
	case int8:
		return e.writeInt(int64(x))
	case int16:
		return e.writeInt(int64(x))
	case int32:
		return e.writeInt(int64(x))
	case int64:
		return e.writeInt(x)
	case uint:
		return e.writeUint(uint64(x))
	case uint8:
		return e.writeUint(uint64(x))
	case uint16:
		return e.writeUint(uint64(x))
	case uint32:
		return e.writeUint(uint64(x))
	case uint64:
		return e.writeUint(x)
	case float32:
		return e.writeFloat(float64(x))
	case float64:
		return e.writeFloat(x)
	case string:
		return e.write(Token{Kind: KindString, Str: x})
	case []byte:
		return e.writeBytes(x)
	case ir.Raw:
		return e.writeRaw(x)
	case ir.Ext:
		if !e.sink.Traits().Ext {
			return e.errEncode(CodeUnsupported, "extension values are not supported by this format")
		}
		return e.write(Token{Kind: KindExt, ExtType: x.Type, Bytes: x.Data})
	case time.Time:
		return e.writeTemporal(x, formatRFC3339)
	case time.Duration:
		return e.write(Token{Kind: KindString, Str: formatDuration(x)})
	case uuid.UUID:
		return e.write(Token{Kind: KindString, Str: x.String()})
	case decimal.Decimal:
		return e.write(Token{Kind: KindString, Str: x.String()})
	case ir.StructValue:
		return e.encodeStruct(x)
	case map[string]any:
		return e.encodeStringMap(x, node)
	case map[any]any:
		return e.encodeAnyMap(x, node)
	case []any:
		return e.encodeSlice(x, node)
	default:
		if ir.IsUnset(v) {
			return e.errEncode(CodeUnsupported, "cannot encode the unset sentinel")
		}
		return e.encodeReflect(v, node)
	}
}

func (e *Encoder) write(tok Token) error { return e.sink.WriteToken(tok) }

func (e *Encoder) writeInt(i int64) error {
	return e.write(Token{Kind: KindNumber, Num: strconv.FormatInt(i, 10), Value: i})
}

func (e *Encoder) writeUint(u uint64) error {
	return e.write(Token{Kind: KindNumber, Num: strconv.FormatUint(u, 10), Value: u})
}

func (e *Encoder) writeFloat(f float64) error {
	return e.write(Token{Kind: KindNumber, Num: formatFloatWire(f), Value: f})
}

func (e *Encoder) writeBytes(b []byte) error {
	if e.sink.Traits().Binary {
		return e.write(Token{Kind: KindBytes, Bytes: b})
	}
	return e.write(Token{Kind: KindString, Str: base64.StdEncoding.EncodeToString(b)})
}

func (e *Encoder) writeTemporal(t time.Time, format func(time.Time) string) error {
	if e.sink.Traits().Temporal {
		return e.write(Token{Kind: KindTime, Time: t})
	}
	return e.write(Token{Kind: KindString, Str: format(t)})
}

func (e *Encoder) writeRaw(r ir.Raw) error {
	rs, ok := e.sink.(RawSink)
	if !ok || !e.sink.Traits().Raw {
		return e.errEncode(CodeUnsupported, "raw fragments are not supported by this format")
	}
	return rs.WriteRaw(r)
}

// ---- containers ----

func (e *Encoder) encodeSlice(xs []any, node *ir.Node) error {
	var elem *ir.Node
	if node != nil {
		switch node.Kind {
		case ir.KindList, ir.KindSet, ir.KindFrozenSet, ir.KindVarTuple:
			elem = node.Elem
		}
	}
	if err := e.write(Token{Kind: KindBeginArray}); err != nil {
		return err
	}
	for i, x := range xs {
		e.path.Index(i)
		var en *ir.Node
		if elem != nil {
			en = elem
		} else if node != nil && node.Kind == ir.KindTuple && i < len(node.Items) {
			en = node.Items[i]
		}
		if err := e.encode(x, en); err != nil {
			return err
		}
		e.path.Pop()
	}
	return e.write(Token{Kind: KindEndArray})
}

func (e *Encoder) encodeStringMap(m map[string]any, node *ir.Node) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var valNode *ir.Node
	if node != nil && node.Kind == ir.KindDict {
		valNode = node.Elem
	}
	if err := e.write(Token{Kind: KindBeginObject}); err != nil {
		return err
	}
	for _, k := range keys {
		if err := e.write(Token{Kind: KindKey, Str: k}); err != nil {
			return err
		}
		e.path.Field(k)
		if err := e.encode(m[k], valNode); err != nil {
			return err
		}
		e.path.Pop()
	}
	return e.write(Token{Kind: KindEndObject})
}

func (e *Encoder) encodeAnyMap(m map[any]any, node *ir.Node) error {
	type kv struct {
		text string
		key  any
	}
	pairs := make([]kv, 0, len(m))
	for k := range m {
		text, err := e.keyString(k)
		if err != nil {
			return err
		}
		pairs = append(pairs, kv{text: text, key: k})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].text < pairs[j].text })
	var valNode *ir.Node
	if node != nil && node.Kind == ir.KindDict {
		valNode = node.Elem
	}
	if err := e.write(Token{Kind: KindBeginObject}); err != nil {
		return err
	}
	stringKeys := e.sink.Traits().StringKeysOnly
	for _, p := range pairs {
		if stringKeys {
			if err := e.write(Token{Kind: KindKey, Str: p.text}); err != nil {
				return err
			}
		} else if err := e.encodeKeyToken(p.key, p.text); err != nil {
			return err
		}
		e.path.Field(p.text)
		if err := e.encode(m[p.key], valNode); err != nil {
			return err
		}
		e.path.Pop()
	}
	return e.write(Token{Kind: KindEndObject})
}

// keyString renders a map key for formats restricted to string keys.
// Unsupported key types are an encode error, not a validation one.
func (e *Encoder) keyString(k any) (string, error) {
	switch x := k.(type) {
	case string:
		return x, nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case uuid.UUID:
		return x.String(), nil
	case time.Time:
		return formatRFC3339(x), nil
	default:
		rv := reflect.ValueOf(k)
		switch rv.Kind() {
		case reflect.String:
			return rv.String(), nil
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			return strconv.FormatInt(rv.Int(), 10), nil
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			return strconv.FormatUint(rv.Uint(), 10), nil
		}
		return "", e.errEncode(CodeUnsupported, fmt.Sprintf("unsupported map key type %T", k))
	}
}

func (e *Encoder) encodeKeyToken(k any, text string) error {
	switch x := k.(type) {
	case string:
		return e.write(Token{Kind: KindKey, Str: x})
	case int:
		return e.writeInt(int64(x))
	case int64:
		return e.writeInt(x)
	case uint64:
		return e.writeUint(x)
	default:
		return e.write(Token{Kind: KindKey, Str: text})
	}
}

// ---- structs and records ----

func (e *Encoder) encodeStruct(sv ir.StructValue) error {
	si := sv.Descriptor()
	values := sv.FieldValues()
	if si.ArrayLike {
		if err := e.write(Token{Kind: KindBeginArray}); err != nil {
			return err
		}
		for i := range si.Fields {
			e.path.Index(i)
			if err := e.encode(values[i], si.Fields[i].Type); err != nil {
				return err
			}
			e.path.Pop()
		}
		return e.write(Token{Kind: KindEndArray})
	}
	if err := e.write(Token{Kind: KindBeginObject}); err != nil {
		return err
	}
	if si.TagField != "" {
		if err := e.write(Token{Kind: KindKey, Str: si.TagField}); err != nil {
			return err
		}
		if err := e.encode(si.Tag, nil); err != nil {
			return err
		}
	}
	for i := range si.Fields {
		f := &si.Fields[i]
		v := values[i]
		if ir.IsUnset(v) {
			continue
		}
		if si.OmitDefaults && f.HasDefault && reflect.DeepEqual(v, f.Default) {
			continue
		}
		if err := e.write(Token{Kind: KindKey, Str: f.EncodeName}); err != nil {
			return err
		}
		e.path.Field(f.EncodeName)
		if err := e.encode(v, f.Type); err != nil {
			return err
		}
		e.path.Pop()
	}
	return e.write(Token{Kind: KindEndObject})
}

// encodeReflect handles plain Go values: records, typed slices and maps,
// named scalar types, pointers. Unknown types fall through to the encode
// hook.
func (e *Encoder) encodeReflect(v any, node *ir.Node) error {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return e.write(Token{Kind: KindNull})
		}
		return e.encode(rv.Elem().Interface(), node)
	case reflect.Bool:
		return e.write(Token{Kind: KindBool, Bool: rv.Bool()})
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return e.writeInt(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return e.writeUint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return e.writeFloat(rv.Float())
	case reflect.String:
		return e.write(Token{Kind: KindString, Str: rv.String()})
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return e.writeBytes(rv.Bytes())
		}
		if err := e.write(Token{Kind: KindBeginArray}); err != nil {
			return err
		}
		for i := 0; i < rv.Len(); i++ {
			e.path.Index(i)
			if err := e.encode(rv.Index(i).Interface(), nil); err != nil {
				return err
			}
			e.path.Pop()
		}
		return e.write(Token{Kind: KindEndArray})
	case reflect.Map:
		return e.encodeReflectMap(rv)
	case reflect.Struct:
		return e.encodeRecord(rv, node)
	default:
		if e.cfg.Hook != nil {
			hv, err := e.cfg.Hook(v)
			if err != nil {
				return e.errEncode(CodeUnsupported, err.Error())
			}
			return e.encode(hv, nil)
		}
		return e.errEncode(CodeUnsupported, fmt.Sprintf("unsupported type %T", v))
	}
}

func (e *Encoder) encodeReflectMap(rv reflect.Value) error {
	type kv struct {
		text string
		key  reflect.Value
	}
	pairs := make([]kv, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		text, err := e.keyString(iter.Key().Interface())
		if err != nil {
			return err
		}
		pairs = append(pairs, kv{text: text, key: iter.Key()})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].text < pairs[j].text })
	if err := e.write(Token{Kind: KindBeginObject}); err != nil {
		return err
	}
	stringKeys := e.sink.Traits().StringKeysOnly
	for _, p := range pairs {
		if stringKeys {
			if err := e.write(Token{Kind: KindKey, Str: p.text}); err != nil {
				return err
			}
		} else if err := e.encodeKeyToken(p.key.Interface(), p.text); err != nil {
			return err
		}
		e.path.Field(p.text)
		if err := e.encode(rv.MapIndex(p.key).Interface(), nil); err != nil {
			return err
		}
		e.path.Pop()
	}
	return e.write(Token{Kind: KindEndObject})
}

func (e *Encoder) encodeRecord(rv reflect.Value, node *ir.Node) error {
	if node == nil || node.Kind != ir.KindRecord || node.RType != rv.Type() {
		built, err := e.cfg.Cache.Build(rv.Type())
		if err != nil {
			return e.errEncode(CodeUnsupported, err.Error())
		}
		node = built
		if node.Kind == ir.KindRef {
			node = e.cfg.Cache.Resolve(node)
		}
	}
	if node.Kind != ir.KindRecord {
		// Well-known struct types (time.Time and friends) re-enter encode
		// with their dedicated kind.
		return e.encode(rv.Interface(), node)
	}
	if err := e.write(Token{Kind: KindBeginObject}); err != nil {
		return err
	}
	for i := range node.Fields {
		f := &node.Fields[i]
		fv := rv.Field(f.Index)
		if f.OmitEmpty && fv.IsZero() {
			continue
		}
		if err := e.write(Token{Kind: KindKey, Str: f.EncodeName}); err != nil {
			return err
		}
		e.path.Field(f.EncodeName)
		if err := e.encode(fv.Interface(), f.Type); err != nil {
			return err
		}
		e.path.Pop()
	}
	return e.write(Token{Kind: KindEndObject})
}

func (e *Encoder) errEncode(code, msg string) error {
	return &EncodeError{Path: e.path.String(), Code: code, Message: msg}
}

package engine

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hyperspec/hyperspec-go/internal/ir"
)

// Builtins bridge. valueSource tokenizes an in-memory Go value so conversion
// reuses the decode walk unchanged; valueSink rebuilds a builtin tree from
// encode events. Both ends trade exclusively in KindValue tokens for scalars
// so no information is lost to text round-trips.

type vsEvent struct {
	tok   Token
	val   any
	isVal bool
}

type vsFrame struct {
	events []vsEvent
	i      int
}

type valueSource struct {
	stack []vsFrame
}

func newValueSource(v any) *valueSource {
	return &valueSource{stack: []vsFrame{{events: []vsEvent{{val: v, isVal: true}}}}}
}

func (s *valueSource) Location() int64 { return -1 }

func (s *valueSource) NextToken() (Token, error) {
	ev, err := s.nextEvent()
	if err != nil {
		return Token{}, err
	}
	if !ev.isVal {
		return ev.tok, nil
	}
	return s.emit(ev.val)
}

// NextRaw yields the next value when it is already a raw fragment. Anything
// else cannot become one without an encoder, so it fails.
func (s *valueSource) NextRaw() ([]byte, error) {
	ev, err := s.nextEvent()
	if err != nil {
		return nil, err
	}
	if ev.isVal {
		if r, ok := ev.val.(ir.Raw); ok {
			return []byte(r), nil
		}
	}
	return nil, fmt.Errorf("value of type %T is not a raw fragment", ev.val)
}

func (s *valueSource) nextEvent() (vsEvent, error) {
	for len(s.stack) > 0 {
		top := &s.stack[len(s.stack)-1]
		if top.i < len(top.events) {
			ev := top.events[top.i]
			top.i++
			return ev, nil
		}
		s.stack = s.stack[:len(s.stack)-1]
	}
	return vsEvent{}, &DecodeError{Message: "no more values", Offset: -1}
}

// emit classifies one value: scalars become a single token, containers push
// a frame of child events behind their opening token.
func (s *valueSource) emit(v any) (Token, error) {
	switch x := v.(type) {
	case nil:
		return Token{Kind: KindNull, Offset: -1}, nil
	case bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, string, []byte,
		time.Time, time.Duration, uuid.UUID, decimal.Decimal,
		ir.Ext, ir.Raw:
		return Token{Kind: KindValue, Value: normalizeScalar(v), Offset: -1}, nil
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		events := make([]vsEvent, 0, 2*len(x)+1)
		for _, k := range keys {
			events = append(events,
				vsEvent{tok: Token{Kind: KindKey, Str: k, Offset: -1}},
				vsEvent{val: x[k], isVal: true})
		}
		events = append(events, vsEvent{tok: Token{Kind: KindEndObject, Offset: -1}})
		s.stack = append(s.stack, vsFrame{events: events})
		return Token{Kind: KindBeginObject, Offset: -1}, nil
	case map[any]any:
		type kv struct {
			text string
			key  any
		}
		pairs := make([]kv, 0, len(x))
		for k := range x {
			pairs = append(pairs, kv{text: fmt.Sprint(k), key: k})
		}
		sort.Slice(pairs, func(i, j int) bool { return pairs[i].text < pairs[j].text })
		events := make([]vsEvent, 0, 2*len(x)+1)
		for _, p := range pairs {
			events = append(events,
				vsEvent{val: p.key, isVal: true},
				vsEvent{val: x[p.key], isVal: true})
		}
		events = append(events, vsEvent{tok: Token{Kind: KindEndObject, Offset: -1}})
		s.stack = append(s.stack, vsFrame{events: events})
		return Token{Kind: KindBeginObject, Offset: -1}, nil
	case []any:
		events := make([]vsEvent, 0, len(x)+1)
		for _, e := range x {
			events = append(events, vsEvent{val: e, isVal: true})
		}
		events = append(events, vsEvent{tok: Token{Kind: KindEndArray, Offset: -1}})
		s.stack = append(s.stack, vsFrame{events: events})
		return Token{Kind: KindBeginArray, Offset: -1}, nil
	case ir.StructValue:
		si := x.Descriptor()
		values := x.FieldValues()
		events := make([]vsEvent, 0, 2*len(values)+3)
		if si.TagField != "" {
			events = append(events,
				vsEvent{tok: Token{Kind: KindKey, Str: si.TagField, Offset: -1}},
				vsEvent{val: si.Tag, isVal: true})
		}
		for i := range si.Fields {
			if ir.IsUnset(values[i]) {
				continue
			}
			events = append(events,
				vsEvent{tok: Token{Kind: KindKey, Str: si.Fields[i].EncodeName, Offset: -1}},
				vsEvent{val: values[i], isVal: true})
		}
		events = append(events, vsEvent{tok: Token{Kind: KindEndObject, Offset: -1}})
		s.stack = append(s.stack, vsFrame{events: events})
		return Token{Kind: KindBeginObject, Offset: -1}, nil
	default:
		return s.emitReflect(v)
	}
}

func (s *valueSource) emitReflect(v any) (Token, error) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return Token{Kind: KindNull, Offset: -1}, nil
		}
		return s.emit(rv.Elem().Interface())
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return Token{Kind: KindValue, Value: normalizeReflectScalar(rv), Offset: -1}, nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.Uint8 {
			return Token{Kind: KindValue, Value: rv.Bytes(), Offset: -1}, nil
		}
		events := make([]vsEvent, 0, rv.Len()+1)
		for i := 0; i < rv.Len(); i++ {
			events = append(events, vsEvent{val: rv.Index(i).Interface(), isVal: true})
		}
		events = append(events, vsEvent{tok: Token{Kind: KindEndArray, Offset: -1}})
		s.stack = append(s.stack, vsFrame{events: events})
		return Token{Kind: KindBeginArray, Offset: -1}, nil
	case reflect.Map:
		type kv struct {
			text string
			key  reflect.Value
		}
		pairs := make([]kv, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			pairs = append(pairs, kv{text: fmt.Sprint(iter.Key().Interface()), key: iter.Key()})
		}
		sort.Slice(pairs, func(i, j int) bool { return pairs[i].text < pairs[j].text })
		events := make([]vsEvent, 0, 2*len(pairs)+1)
		for _, p := range pairs {
			events = append(events,
				vsEvent{val: p.key.Interface(), isVal: true},
				vsEvent{val: rv.MapIndex(p.key).Interface(), isVal: true})
		}
		events = append(events, vsEvent{tok: Token{Kind: KindEndObject, Offset: -1}})
		s.stack = append(s.stack, vsFrame{events: events})
		return Token{Kind: KindBeginObject, Offset: -1}, nil
	case reflect.Struct:
		return s.emitRecord(rv)
	default:
		return Token{}, &DecodeError{Message: fmt.Sprintf("cannot convert value of type %T", v), Offset: -1}
	}
}

// emitRecord walks a plain Go struct as an object, naming fields the same
// way the introspector does.
func (s *valueSource) emitRecord(rv reflect.Value) (Token, error) {
	t := rv.Type()
	var events []vsEvent
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := sf.Tag.Get("hyperspec")
		name := strings.SplitN(tag, ",", 2)[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		events = append(events,
			vsEvent{tok: Token{Kind: KindKey, Str: name, Offset: -1}},
			vsEvent{val: rv.Field(i).Interface(), isVal: true})
	}
	events = append(events, vsEvent{tok: Token{Kind: KindEndObject, Offset: -1}})
	s.stack = append(s.stack, vsFrame{events: events})
	return Token{Kind: KindBeginObject, Offset: -1}, nil
}

// normalizeScalar keeps KindValue payloads to a small closed set so the
// decode side switches stay exact.
func normalizeScalar(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		return uint64(x)
	case uint8:
		return uint64(x)
	case uint16:
		return uint64(x)
	case uint32:
		return uint64(x)
	case float32:
		return float64(x)
	default:
		return v
	}
}

func normalizeReflectScalar(rv reflect.Value) any {
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	default:
		return rv.Float()
	}
}

// ---- sink ----

type sinkFrame struct {
	isMap  bool
	m      map[string]any
	arr    []any
	key    string
	hasKey bool
}

// valueSink collects encode events back into a builtin tree: string-keyed
// maps, slices and native Go scalars.
type valueSink struct {
	traits SinkTraits
	stack  []sinkFrame
	result any
	done   bool
}

func newValueSink(traits SinkTraits) *valueSink {
	traits.StringKeysOnly = true
	traits.Raw = true
	return &valueSink{traits: traits}
}

func (s *valueSink) Traits() SinkTraits { return s.traits }

// Value returns the collected tree after a complete encode.
func (s *valueSink) Value() (any, error) {
	if !s.done || len(s.stack) != 0 {
		return nil, fmt.Errorf("incomplete value")
	}
	return s.result, nil
}

func (s *valueSink) WriteToken(tok Token) error {
	switch tok.Kind {
	case KindBeginObject:
		s.stack = append(s.stack, sinkFrame{isMap: true, m: map[string]any{}})
		return nil
	case KindBeginArray:
		s.stack = append(s.stack, sinkFrame{arr: []any{}})
		return nil
	case KindEndObject, KindEndArray:
		if len(s.stack) == 0 {
			return fmt.Errorf("unbalanced container close")
		}
		top := s.stack[len(s.stack)-1]
		s.stack = s.stack[:len(s.stack)-1]
		if top.isMap {
			return s.place(top.m)
		}
		return s.place(top.arr)
	case KindKey:
		if len(s.stack) == 0 || !s.stack[len(s.stack)-1].isMap {
			return fmt.Errorf("key outside object")
		}
		s.stack[len(s.stack)-1].key = tok.Str
		s.stack[len(s.stack)-1].hasKey = true
		return nil
	case KindNull:
		return s.place(nil)
	case KindBool:
		return s.place(tok.Bool)
	case KindNumber:
		if i, err := strconv.ParseInt(tok.Num, 10, 64); err == nil {
			return s.place(i)
		}
		f, err := strconv.ParseFloat(tok.Num, 64)
		if err != nil {
			return fmt.Errorf("malformed number %q", tok.Num)
		}
		return s.place(f)
	case KindString:
		return s.place(tok.Str)
	case KindBytes:
		return s.place(tok.Bytes)
	case KindTime:
		return s.place(tok.Time)
	case KindExt:
		return s.place(ir.Ext{Type: tok.ExtType, Data: tok.Bytes})
	case KindValue:
		return s.place(tok.Value)
	default:
		return fmt.Errorf("unexpected token kind %d", tok.Kind)
	}
}

func (s *valueSink) WriteRaw(b []byte) error {
	return s.place(ir.Raw(b))
}

func (s *valueSink) place(v any) error {
	if len(s.stack) == 0 {
		s.result = v
		s.done = true
		return nil
	}
	top := &s.stack[len(s.stack)-1]
	if top.isMap {
		if !top.hasKey {
			// Non-string keys reach map frames as plain values.
			top.key = keyText(v)
			top.hasKey = true
			return nil
		}
		top.m[top.key] = v
		top.hasKey = false
		return nil
	}
	top.arr = append(top.arr, v)
	return nil
}

// NewValueSource exposes the builtins tokenizer to the root package.
func NewValueSource(v any) TokenSource { return newValueSource(v) }

// NewValueSink exposes the builtins collector to the root package.
func NewValueSink(traits SinkTraits) interface {
	TokenSink
	RawSink
	Value() (any, error)
} {
	return newValueSink(traits)
}

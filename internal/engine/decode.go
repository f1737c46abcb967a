package engine

import (
	"encoding/base64"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hyperspec/hyperspec-go/internal/ir"
)

// DecodeHook converts the raw decoded form of a Custom shape into its
// native value. rt is the declared Go type, name the shape's display name.
type DecodeHook func(rt reflect.Type, name string, raw any) (any, error)

// DecodeConfig carries decode-time policy shared by every call on one bound
// decoder.
type DecodeConfig struct {
	Cache         *ir.Cache
	Hook          DecodeHook
	ForbidUnknown bool // reject undeclared keys on reflected records
}

// Decoder walks a token source against a type description, producing a
// validated native value or failing with a path-qualified error. One
// decoder instance is not safe for concurrent use; its path scratch is
// reset (not merely truncated) between calls.
type Decoder struct {
	cfg  DecodeConfig
	src  TokenSource
	path Path
}

// NewDecoder returns a decoder bound to cfg.
func NewDecoder(cfg DecodeConfig) *Decoder {
	if cfg.Cache == nil {
		cfg.Cache = ir.Default()
	}
	return &Decoder{cfg: cfg}
}

// Decode reads exactly one value conforming to node from src.
func (d *Decoder) Decode(src TokenSource, node *ir.Node) (any, error) {
	d.src = src
	d.path.Reset()
	return d.valueNext(node)
}

// Decode is the package-level convenience over a throwaway decoder.
func Decode(src TokenSource, node *ir.Node, cfg DecodeConfig) (any, error) {
	return NewDecoder(cfg).Decode(src, node)
}

// valueNext decodes the value at the cursor. Raw shapes capture the
// fragment before tokenization; everything else pulls one token and
// dispatches.
func (d *Decoder) valueNext(node *ir.Node) (any, error) {
	node = d.cfg.Cache.Resolve(node)
	if node.Kind == ir.KindRaw {
		return d.rawValue()
	}
	tok, err := d.next()
	if err != nil {
		return nil, err
	}
	return d.value(tok, node)
}

func (d *Decoder) next() (Token, error) {
	tok, err := d.src.NextToken()
	if err != nil {
		if err == io.EOF {
			return Token{}, &DecodeError{Message: "unexpected end of input", Offset: d.src.Location(), Err: io.ErrUnexpectedEOF}
		}
		if _, ok := err.(*DecodeError); ok {
			return Token{}, err
		}
		if _, ok := err.(*ValidationError); ok {
			return Token{}, err
		}
		return Token{}, &DecodeError{Offset: d.src.Location(), Err: err}
	}
	return tok, nil
}

func (d *Decoder) rawValue() (any, error) {
	rs, ok := d.src.(RawSource)
	if !ok {
		return nil, &DecodeError{Message: "raw fragments are not supported by this format", Offset: d.src.Location()}
	}
	b, err := rs.NextRaw()
	if err != nil {
		return nil, &DecodeError{Offset: d.src.Location(), Err: err}
	}
	return ir.Raw(b), nil
}

func (d *Decoder) value(tok Token, node *ir.Node) (any, error) {
	node = d.cfg.Cache.Resolve(node)

	if node.Nullable {
		if tok.Kind == KindNull {
			if node.RType != nil && node.RType.Kind() == reflect.Pointer {
				return reflect.Zero(node.RType).Interface(), nil
			}
			return nil, nil
		}
		base := *node
		base.Nullable = false
		ptr := node.RType != nil && node.RType.Kind() == reflect.Pointer
		if ptr {
			base.RType = node.RType.Elem()
		}
		v, err := d.value(tok, &base)
		if err != nil {
			return nil, err
		}
		if ptr {
			pv := reflect.New(base.RType)
			pv.Elem().Set(reflect.ValueOf(v))
			return pv.Interface(), nil
		}
		return v, nil
	}

	switch node.Kind {
	case ir.KindAny:
		return d.anyValue(tok)
	case ir.KindNil:
		if tok.Kind != KindNull {
			return nil, d.errExpected(node, tok)
		}
		return nil, nil
	case ir.KindBool:
		return d.boolValue(tok, node)
	case ir.KindInt:
		return d.intValue(tok, node)
	case ir.KindFloat:
		return d.floatValue(tok, node)
	case ir.KindStr:
		return d.strValue(tok, node)
	case ir.KindBytes:
		return d.bytesValue(tok, node)
	case ir.KindDateTime, ir.KindDate, ir.KindTime:
		return d.temporalValue(tok, node)
	case ir.KindDuration:
		return d.durationValue(tok, node)
	case ir.KindUUID:
		return d.uuidValue(tok, node)
	case ir.KindDecimal:
		return d.decimalValue(tok, node)
	case ir.KindExt:
		return d.extValue(tok, node)
	case ir.KindRaw:
		// Reached only through the builtins bridge; wire paths capture raw
		// fragments in valueNext before tokenizing.
		if tok.Kind == KindValue {
			if r, ok := tok.Value.(ir.Raw); ok {
				return r, nil
			}
			if b, ok := tok.Value.([]byte); ok {
				return ir.Raw(b), nil
			}
		}
		return nil, d.errExpected(node, tok)
	case ir.KindLiteral, ir.KindEnum:
		return d.literalValue(tok, node)
	case ir.KindCustom:
		return d.customValue(tok, node)
	case ir.KindUnion:
		return d.unionValue(tok, node)
	case ir.KindList, ir.KindVarTuple:
		return d.listValue(tok, node)
	case ir.KindSet, ir.KindFrozenSet:
		return d.setValue(tok, node)
	case ir.KindTuple:
		return d.tupleValue(tok, node)
	case ir.KindDict:
		return d.dictValue(tok, node)
	case ir.KindRecord:
		return d.recordValue(tok, node)
	case ir.KindFields:
		return d.fieldsValue(tok, node)
	case ir.KindStruct:
		return d.structValue(tok, node)
	default:
		return nil, &DecodeError{Message: fmt.Sprintf("unhandled node kind %s", node.Kind)}
	}
}

// ---- scalars ----

func (d *Decoder) boolValue(tok Token, node *ir.Node) (any, error) {
	switch tok.Kind {
	case KindBool:
		return d.scalar(tok.Bool, node.RType)
	case KindValue:
		if b, ok := tok.Value.(bool); ok {
			return d.scalar(b, node.RType)
		}
	}
	return nil, d.errExpected(node, tok)
}

func (d *Decoder) intValue(tok Token, node *ir.Node) (any, error) {
	var i int64
	switch tok.Kind {
	case KindNumber:
		n, err := strconv.ParseInt(tok.Num, 10, 64)
		if err != nil {
			// Integral floats narrow to int; anything else is a mismatch.
			f, ferr := strconv.ParseFloat(tok.Num, 64)
			if ferr != nil || f != math.Trunc(f) {
				return nil, d.errExpected(node, tok)
			}
			// math.MaxInt64 rounds up to 2^63 as a float64, so >= is the
			// correct overflow test on the high side.
			if f < math.MinInt64 || f >= math.MaxInt64 {
				return nil, d.errConstraint(CodeTooBig, "integer out of range")
			}
			n = int64(f)
		}
		i = n
	case KindValue:
		switch v := tok.Value.(type) {
		case int64:
			i = v
		case int:
			i = int64(v)
		case uint64:
			if v > math.MaxInt64 {
				return nil, d.errConstraint(CodeTooBig, "integer out of range")
			}
			i = int64(v)
		case float64:
			if v != math.Trunc(v) {
				return nil, d.errExpected(node, tok)
			}
			if v < math.MinInt64 || v >= math.MaxInt64 {
				return nil, d.errConstraint(CodeTooBig, "integer out of range")
			}
			i = int64(v)
		default:
			return nil, d.errExpected(node, tok)
		}
	default:
		return nil, d.errExpected(node, tok)
	}
	if err := d.checkNumeric(float64(i), node.Meta); err != nil {
		return nil, err
	}
	return d.scalar(i, node.RType)
}

func (d *Decoder) floatValue(tok Token, node *ir.Node) (any, error) {
	var f float64
	switch tok.Kind {
	case KindNumber:
		v, err := strconv.ParseFloat(tok.Num, 64)
		if err != nil {
			return nil, d.errExpected(node, tok)
		}
		f = v
	case KindValue:
		switch v := tok.Value.(type) {
		case float64:
			f = v
		case int64:
			f = float64(v)
		case int:
			f = float64(v)
		case uint64:
			f = float64(v)
		default:
			return nil, d.errExpected(node, tok)
		}
	default:
		return nil, d.errExpected(node, tok)
	}
	if err := d.checkNumeric(f, node.Meta); err != nil {
		return nil, err
	}
	return d.scalar(f, node.RType)
}

func (d *Decoder) strValue(tok Token, node *ir.Node) (any, error) {
	var s string
	switch tok.Kind {
	case KindString:
		s = tok.Str
	case KindValue:
		v, ok := tok.Value.(string)
		if !ok {
			return nil, d.errExpected(node, tok)
		}
		s = v
	default:
		return nil, d.errExpected(node, tok)
	}
	if err := d.checkString(s, node.Meta); err != nil {
		return nil, err
	}
	return d.scalar(s, node.RType)
}

func (d *Decoder) bytesValue(tok Token, node *ir.Node) (any, error) {
	switch tok.Kind {
	case KindBytes:
		return d.scalar(tok.Bytes, node.RType)
	case KindString:
		b, err := base64.StdEncoding.DecodeString(tok.Str)
		if err != nil {
			return nil, d.errConstraint(CodeInvalidFormat, "invalid base64 data")
		}
		return d.scalar(b, node.RType)
	case KindValue:
		if b, ok := tok.Value.([]byte); ok {
			return d.scalar(b, node.RType)
		}
	}
	return nil, d.errExpected(node, tok)
}

func (d *Decoder) temporalValue(tok Token, node *ir.Node) (any, error) {
	switch tok.Kind {
	case KindTime:
		return tok.Time, nil
	case KindString:
		var t time.Time
		var err error
		switch node.Kind {
		case ir.KindDate:
			t, err = parseDate(tok.Str)
		case ir.KindTime:
			t, err = parseClock(tok.Str)
		default:
			t, err = parseRFC3339(tok.Str)
		}
		if err != nil {
			return nil, d.errConstraint(CodeInvalidFormat, "invalid "+node.Kind.String())
		}
		return t, nil
	case KindValue:
		if t, ok := tok.Value.(time.Time); ok {
			return t, nil
		}
	}
	return nil, d.errExpected(node, tok)
}

func (d *Decoder) durationValue(tok Token, node *ir.Node) (any, error) {
	switch tok.Kind {
	case KindString:
		dur, err := parseDuration(tok.Str)
		if err != nil {
			return nil, d.errConstraint(CodeInvalidFormat, "invalid duration")
		}
		return dur, nil
	case KindNumber:
		f, err := strconv.ParseFloat(tok.Num, 64)
		if err != nil {
			return nil, d.errExpected(node, tok)
		}
		return time.Duration(f * float64(time.Second)), nil
	case KindValue:
		if dur, ok := tok.Value.(time.Duration); ok {
			return dur, nil
		}
	}
	return nil, d.errExpected(node, tok)
}

func (d *Decoder) uuidValue(tok Token, node *ir.Node) (any, error) {
	switch tok.Kind {
	case KindString:
		u, err := uuid.Parse(tok.Str)
		if err != nil {
			return nil, d.errConstraint(CodeInvalidFormat, "invalid uuid")
		}
		return u, nil
	case KindBytes:
		u, err := uuid.FromBytes(tok.Bytes)
		if err != nil {
			return nil, d.errConstraint(CodeInvalidFormat, "invalid uuid bytes")
		}
		return u, nil
	case KindValue:
		if u, ok := tok.Value.(uuid.UUID); ok {
			return u, nil
		}
	}
	return nil, d.errExpected(node, tok)
}

func (d *Decoder) decimalValue(tok Token, node *ir.Node) (any, error) {
	var s string
	switch tok.Kind {
	case KindString:
		s = tok.Str
	case KindNumber:
		s = tok.Num
	case KindValue:
		switch v := tok.Value.(type) {
		case decimal.Decimal:
			if err := d.checkNumeric(v.InexactFloat64(), node.Meta); err != nil {
				return nil, err
			}
			return v, nil
		case int64:
			return decimal.NewFromInt(v), nil
		case float64:
			return decimal.NewFromFloat(v), nil
		default:
			return nil, d.errExpected(node, tok)
		}
	default:
		return nil, d.errExpected(node, tok)
	}
	dec, err := decimal.NewFromString(s)
	if err != nil {
		return nil, d.errConstraint(CodeInvalidFormat, "invalid decimal")
	}
	if err := d.checkNumeric(dec.InexactFloat64(), node.Meta); err != nil {
		return nil, err
	}
	return dec, nil
}

func (d *Decoder) extValue(tok Token, node *ir.Node) (any, error) {
	switch tok.Kind {
	case KindExt:
		return ir.Ext{Type: tok.ExtType, Data: tok.Bytes}, nil
	case KindValue:
		if e, ok := tok.Value.(ir.Ext); ok {
			return e, nil
		}
	}
	return nil, d.errExpected(node, tok)
}

func (d *Decoder) literalValue(tok Token, node *ir.Node) (any, error) {
	var got any
	switch tok.Kind {
	case KindString:
		got = tok.Str
	case KindNumber:
		n, err := strconv.ParseInt(tok.Num, 10, 64)
		if err != nil {
			return nil, d.errExpected(node, tok)
		}
		got = n
	case KindNull:
		got = nil
	case KindValue:
		switch v := tok.Value.(type) {
		case string:
			got = v
		case int64:
			got = v
		case int:
			got = int64(v)
		case nil:
			got = nil
		default:
			return nil, d.errExpected(node, tok)
		}
	default:
		return nil, d.errExpected(node, tok)
	}
	for _, want := range node.Literals {
		if want == got {
			return got, nil
		}
	}
	name := node.EnumName
	if name == "" {
		name = "literal"
	}
	return nil, &ValidationError{
		Path:    d.path.String(),
		Code:    CodeInvalidEnum,
		Message: fmt.Sprintf("invalid value %v for %s", got, name),
		Offset:  d.src.Location(),
	}
}

func (d *Decoder) customValue(tok Token, node *ir.Node) (any, error) {
	raw, err := d.anyValue(tok)
	if err != nil {
		return nil, err
	}
	if d.cfg.Hook == nil {
		return nil, &DecodeError{Message: "no decode hook registered for custom type " + node.CustomName, Offset: d.src.Location()}
	}
	v, err := d.cfg.Hook(node.RType, node.CustomName, raw)
	if err != nil {
		return nil, &ValidationError{
			Path:    d.path.String(),
			Code:    CodeInvalidFormat,
			Message: err.Error(),
			Offset:  d.src.Location(),
		}
	}
	return v, nil
}

// ---- collections ----

func (d *Decoder) listValue(tok Token, node *ir.Node) (any, error) {
	if tok.Kind != KindBeginArray {
		return nil, d.errExpected(node, tok)
	}
	typed := node.RType != nil && node.RType.Kind() == reflect.Slice
	var out []any
	var rv reflect.Value
	if typed {
		rv = reflect.MakeSlice(node.RType, 0, 8)
	}
	n := 0
	for {
		et, err := d.next()
		if err != nil {
			return nil, err
		}
		if et.Kind == KindEndArray {
			break
		}
		d.path.Index(n)
		ev, err := d.elemValue(et, node.Elem)
		if err != nil {
			return nil, err
		}
		d.path.Pop()
		if typed {
			av, err := assignVal(node.RType.Elem(), ev)
			if err != nil {
				return nil, d.errConstraint(CodeInvalidType, err.Error())
			}
			rv = reflect.Append(rv, av)
		} else {
			out = append(out, ev)
		}
		n++
	}
	if err := d.checkItems(n, node.Meta); err != nil {
		return nil, err
	}
	if typed {
		return rv.Interface(), nil
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}

func (d *Decoder) setValue(tok Token, node *ir.Node) (any, error) {
	if tok.Kind != KindBeginArray {
		return nil, d.errExpected(node, tok)
	}
	var out []any
	seen := map[any]struct{}{}
	n := 0
	for {
		et, err := d.next()
		if err != nil {
			return nil, err
		}
		if et.Kind == KindEndArray {
			break
		}
		d.path.Index(n)
		ev, err := d.elemValue(et, node.Elem)
		if err != nil {
			return nil, err
		}
		d.path.Pop()
		// Set semantics: repeated elements collapse; insertion order is the
		// stable emission order.
		if _, dup := seen[ev]; !dup {
			seen[ev] = struct{}{}
			out = append(out, ev)
		}
		n++
	}
	if err := d.checkItems(len(out), node.Meta); err != nil {
		return nil, err
	}
	if out == nil {
		out = []any{}
	}
	return out, nil
}

func (d *Decoder) tupleValue(tok Token, node *ir.Node) (any, error) {
	if tok.Kind != KindBeginArray {
		return nil, d.errExpected(node, tok)
	}
	typed := node.RType != nil && node.RType.Kind() == reflect.Array
	var rv reflect.Value
	if typed {
		rv = reflect.New(node.RType).Elem()
	}
	out := make([]any, 0, len(node.Items))
	i := 0
	for {
		et, err := d.next()
		if err != nil {
			return nil, err
		}
		if et.Kind == KindEndArray {
			break
		}
		if i >= len(node.Items) {
			if err := SkipFrom(d.src, et); err != nil {
				return nil, err
			}
			i++
			continue
		}
		d.path.Index(i)
		ev, err := d.elemValue(et, node.Items[i])
		if err != nil {
			return nil, err
		}
		d.path.Pop()
		if typed {
			av, err := assignVal(node.RType.Elem(), ev)
			if err != nil {
				return nil, d.errConstraint(CodeInvalidType, err.Error())
			}
			rv.Index(i).Set(av)
		}
		out = append(out, ev)
		i++
	}
	if i != len(node.Items) {
		return nil, &ValidationError{
			Path:    d.path.String(),
			Code:    CodeWrongLength,
			Message: fmt.Sprintf("expected tuple of length %d, got %d", len(node.Items), i),
			Offset:  d.src.Location(),
		}
	}
	if typed {
		return rv.Interface(), nil
	}
	return out, nil
}

func (d *Decoder) dictValue(tok Token, node *ir.Node) (any, error) {
	if tok.Kind != KindBeginObject {
		return nil, d.errExpected(node, tok)
	}
	typed := node.RType != nil && node.RType.Kind() == reflect.Map
	var rv reflect.Value
	if typed {
		rv = reflect.MakeMap(node.RType)
	}
	strKeys := node.Key.Kind == ir.KindStr
	var outS map[string]any
	var outA map[any]any
	if !typed {
		if strKeys {
			outS = map[string]any{}
		} else {
			outA = map[any]any{}
		}
	}
	n := 0
	for {
		kt, err := d.next()
		if err != nil {
			return nil, err
		}
		if kt.Kind == KindEndObject {
			break
		}
		key, keyStr, err := d.keyValue(kt, node.Key)
		if err != nil {
			return nil, err
		}
		d.path.Field(keyStr)
		vv, err := d.valueNext(node.Elem)
		if err != nil {
			return nil, err
		}
		d.path.Pop()
		if typed {
			kv, err := assignVal(node.RType.Key(), key)
			if err != nil {
				return nil, d.errConstraint(CodeInvalidType, err.Error())
			}
			av, err := assignVal(node.RType.Elem(), vv)
			if err != nil {
				return nil, d.errConstraint(CodeInvalidType, err.Error())
			}
			rv.SetMapIndex(kv, av)
		} else if strKeys {
			outS[key.(string)] = vv
		} else {
			outA[key] = vv
		}
		n++
	}
	if err := d.checkItems(n, node.Meta); err != nil {
		return nil, err
	}
	if typed {
		return rv.Interface(), nil
	}
	if strKeys {
		return outS, nil
	}
	return outA, nil
}

// keyValue decodes a mapping key against the key node. Keys arrive as
// textual Key tokens from the text formats and as scalar tokens from the
// binary format and the builtins bridge.
func (d *Decoder) keyValue(tok Token, keyNode *ir.Node) (any, string, error) {
	keyNode = d.cfg.Cache.Resolve(keyNode)
	if tok.Kind == KindKey {
		s := tok.Str
		switch keyNode.Kind {
		case ir.KindStr:
			if err := d.checkString(s, keyNode.Meta); err != nil {
				return nil, "", err
			}
			return s, s, nil
		case ir.KindInt:
			i, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, "", d.errConstraint(CodeInvalidType, "expected integer key")
			}
			return i, s, nil
		case ir.KindUUID:
			u, err := uuid.Parse(s)
			if err != nil {
				return nil, "", d.errConstraint(CodeInvalidFormat, "invalid uuid key")
			}
			return u, s, nil
		case ir.KindDateTime:
			t, err := parseRFC3339(s)
			if err != nil {
				return nil, "", d.errConstraint(CodeInvalidFormat, "invalid datetime key")
			}
			return t, s, nil
		case ir.KindDate:
			t, err := parseDate(s)
			if err != nil {
				return nil, "", d.errConstraint(CodeInvalidFormat, "invalid date key")
			}
			return t, s, nil
		case ir.KindLiteral, ir.KindEnum:
			v, err := d.literalValue(Token{Kind: KindString, Str: s}, keyNode)
			if err != nil {
				return nil, "", err
			}
			return v, s, nil
		}
		return nil, "", d.errConstraint(CodeInvalidType, "unsupported key kind")
	}
	v, err := d.value(tok, keyNode)
	if err != nil {
		return nil, "", err
	}
	return v, keyText(v), nil
}

func keyText(v any) string {
	switch k := v.(type) {
	case string:
		return k
	case int64:
		return strconv.FormatInt(k, 10)
	default:
		return fmt.Sprint(k)
	}
}

// elemValue dispatches a value whose first token was already consumed by a
// container loop, honoring Raw capture via a one-token replay.
func (d *Decoder) elemValue(tok Token, node *ir.Node) (any, error) {
	node = d.cfg.Cache.Resolve(node)
	if node.Kind == ir.KindRaw && tok.Kind != KindValue {
		return nil, &DecodeError{Message: "raw fragments must begin a value position", Offset: d.src.Location()}
	}
	return d.value(tok, node)
}

// ---- records ----

func (d *Decoder) recordValue(tok Token, node *ir.Node) (any, error) {
	if tok.Kind == KindValue && reflect.TypeOf(tok.Value) == node.RType {
		return tok.Value, nil
	}
	if tok.Kind != KindBeginObject {
		return nil, d.errExpected(node, tok)
	}
	rv := reflect.New(node.RType).Elem()
	seen := make([]bool, len(node.Fields))
	for {
		kt, err := d.next()
		if err != nil {
			return nil, err
		}
		if kt.Kind == KindEndObject {
			break
		}
		key, err := d.objectKey(kt)
		if err != nil {
			return nil, err
		}
		idx := -1
		for i := range node.Fields {
			if node.Fields[i].EncodeName == key {
				idx = i
				break
			}
		}
		if idx < 0 {
			if d.cfg.ForbidUnknown {
				return nil, &ValidationError{
					Path:    d.path.String(),
					Code:    CodeUnknownField,
					Message: fmt.Sprintf("object contains unknown field `%s`", key),
					Offset:  d.src.Location(),
				}
			}
			if err := Skip(d.src); err != nil {
				return nil, err
			}
			continue
		}
		f := &node.Fields[idx]
		d.path.Field(key)
		fv, err := d.valueNext(f.Type)
		if err != nil {
			return nil, err
		}
		d.path.Pop()
		if fv != nil {
			av, err := assignVal(rv.Field(f.Index).Type(), fv)
			if err != nil {
				return nil, d.errConstraint(CodeInvalidType, err.Error())
			}
			rv.Field(f.Index).Set(av)
		}
		seen[idx] = true
	}
	for i := range node.Fields {
		if node.Fields[i].Required && !seen[i] {
			return nil, d.missingField(node.Fields[i].EncodeName)
		}
	}
	return rv.Interface(), nil
}

func (d *Decoder) fieldsValue(tok Token, node *ir.Node) (any, error) {
	if tok.Kind != KindBeginObject {
		return nil, d.errExpected(node, tok)
	}
	out := map[string]any{}
	seen := make([]bool, len(node.Fields))
	for {
		kt, err := d.next()
		if err != nil {
			return nil, err
		}
		if kt.Kind == KindEndObject {
			break
		}
		key, err := d.objectKey(kt)
		if err != nil {
			return nil, err
		}
		idx := -1
		for i := range node.Fields {
			if node.Fields[i].Name == key {
				idx = i
				break
			}
		}
		if idx < 0 {
			if node.ForbidExtra {
				return nil, &ValidationError{
					Path:    d.path.String(),
					Code:    CodeUnknownField,
					Message: fmt.Sprintf("object contains unknown field `%s`", key),
					Offset:  d.src.Location(),
				}
			}
			if err := Skip(d.src); err != nil {
				return nil, err
			}
			continue
		}
		d.path.Field(key)
		fv, err := d.valueNext(node.Fields[idx].Type)
		if err != nil {
			return nil, err
		}
		d.path.Pop()
		out[key] = fv
		seen[idx] = true
	}
	for i := range node.Fields {
		if node.Fields[i].Required && !seen[i] {
			return nil, d.missingField(node.Fields[i].Name)
		}
	}
	return out, nil
}

func (d *Decoder) structValue(tok Token, node *ir.Node) (any, error) {
	si := node.Struct
	if tok.Kind == KindValue && si.IsInstance != nil && si.IsInstance(tok.Value) {
		return tok.Value, nil
	}
	if si.ArrayLike {
		return d.structArrayValue(tok, node)
	}
	if tok.Kind != KindBeginObject {
		return nil, d.errExpected(node, tok)
	}
	values := make([]any, len(si.Fields))
	seen := make([]bool, len(si.Fields))
	for {
		kt, err := d.next()
		if err != nil {
			return nil, err
		}
		if kt.Kind == KindEndObject {
			break
		}
		key, err := d.objectKey(kt)
		if err != nil {
			return nil, err
		}
		idx := si.FieldByEncodeName(key)
		if idx < 0 {
			if si.TagField != "" && key == si.TagField {
				// The tag key may appear when a tagged struct is decoded
				// directly; its value must still match.
				if err := d.checkTag(si); err != nil {
					return nil, err
				}
				continue
			}
			if si.ForbidExtra {
				return nil, &ValidationError{
					Path:    d.path.String(),
					Code:    CodeUnknownField,
					Message: fmt.Sprintf("object contains unknown field `%s`", key),
					Offset:  d.src.Location(),
				}
			}
			if err := Skip(d.src); err != nil {
				return nil, err
			}
			continue
		}
		f := &si.Fields[idx]
		d.path.Field(key)
		fv, err := d.valueNext(f.Type)
		if err != nil {
			return nil, err
		}
		d.path.Pop()
		values[idx] = fv
		seen[idx] = true
	}
	return d.finishStruct(si, values, seen)
}

func (d *Decoder) structArrayValue(tok Token, node *ir.Node) (any, error) {
	si := node.Struct
	if tok.Kind != KindBeginArray {
		return nil, d.errExpected(node, tok)
	}
	values := make([]any, len(si.Fields))
	seen := make([]bool, len(si.Fields))
	i := 0
	for {
		et, err := d.next()
		if err != nil {
			return nil, err
		}
		if et.Kind == KindEndArray {
			break
		}
		if i >= len(si.Fields) {
			return nil, &ValidationError{
				Path:    d.path.String(),
				Code:    CodeWrongLength,
				Message: fmt.Sprintf("expected at most %d elements, got more", len(si.Fields)),
				Offset:  d.src.Location(),
			}
		}
		d.path.Index(i)
		fv, err := d.elemValue(et, si.Fields[i].Type)
		if err != nil {
			return nil, err
		}
		d.path.Pop()
		values[i] = fv
		seen[i] = true
		i++
	}
	return d.finishStruct(si, values, seen)
}

func (d *Decoder) finishStruct(si *ir.StructInfo, values []any, seen []bool) (any, error) {
	for i := range si.Fields {
		if seen[i] {
			continue
		}
		f := &si.Fields[i]
		switch {
		case f.Factory != nil:
			values[i] = f.Factory()
		case f.HasDefault:
			values[i] = f.Default
		default:
			return nil, d.missingField(f.EncodeName)
		}
	}
	inst, err := si.New(values)
	if err != nil {
		return nil, &ValidationError{
			Path:    d.path.String(),
			Code:    CodeInvalidType,
			Message: err.Error(),
			Offset:  d.src.Location(),
		}
	}
	return inst, nil
}

func (d *Decoder) checkTag(si *ir.StructInfo) error {
	tt, err := d.next()
	if err != nil {
		return err
	}
	var got any
	switch tt.Kind {
	case KindString:
		got = tt.Str
	case KindNumber:
		got, _ = strconv.ParseInt(tt.Num, 10, 64)
	case KindValue:
		got = tt.Value
		if i, ok := got.(int); ok {
			got = int64(i)
		}
	default:
		return d.errConstraint(CodeInvalidType, "invalid tag value")
	}
	if got != si.Tag {
		d.path.Field(si.TagField)
		defer d.path.Pop()
		return &ValidationError{
			Path:    d.path.String(),
			Code:    CodeInvalidEnum,
			Message: fmt.Sprintf("invalid tag value %v, expected %v", got, si.Tag),
			Offset:  d.src.Location(),
		}
	}
	return nil
}

func (d *Decoder) objectKey(tok Token) (string, error) {
	switch tok.Kind {
	case KindKey:
		return tok.Str, nil
	case KindString:
		return tok.Str, nil
	case KindValue:
		if s, ok := tok.Value.(string); ok {
			return s, nil
		}
	}
	return "", d.errConstraint(CodeInvalidType, "expected string key")
}

func (d *Decoder) missingField(name string) error {
	return &ValidationError{
		Path:    d.path.String(),
		Code:    CodeRequired,
		Message: fmt.Sprintf("object missing required field `%s`", name),
		Offset:  d.src.Location(),
	}
}

// ---- any ----

// anyValue builds a generic builtin tree with no declared shape: objects to
// map[string]any, arrays to []any, integral numbers to int64, other numbers
// to float64.
func (d *Decoder) anyValue(tok Token) (any, error) {
	switch tok.Kind {
	case KindBeginObject:
		m := map[string]any{}
		for {
			kt, err := d.next()
			if err != nil {
				return nil, err
			}
			if kt.Kind == KindEndObject {
				return m, nil
			}
			key, err := d.objectKey(kt)
			if err != nil {
				return nil, err
			}
			d.path.Field(key)
			vt, err := d.next()
			if err != nil {
				return nil, err
			}
			v, err := d.anyValue(vt)
			if err != nil {
				return nil, err
			}
			d.path.Pop()
			m[key] = v
		}
	case KindBeginArray:
		arr := []any{}
		for i := 0; ; i++ {
			et, err := d.next()
			if err != nil {
				return nil, err
			}
			if et.Kind == KindEndArray {
				return arr, nil
			}
			d.path.Index(i)
			v, err := d.anyValue(et)
			if err != nil {
				return nil, err
			}
			d.path.Pop()
			arr = append(arr, v)
		}
	case KindString:
		return tok.Str, nil
	case KindNumber:
		if i, err := strconv.ParseInt(tok.Num, 10, 64); err == nil {
			return i, nil
		}
		f, err := strconv.ParseFloat(tok.Num, 64)
		if err != nil {
			return nil, &DecodeError{Message: "malformed number " + tok.Num, Offset: d.src.Location()}
		}
		return f, nil
	case KindBool:
		return tok.Bool, nil
	case KindNull:
		return nil, nil
	case KindBytes:
		return tok.Bytes, nil
	case KindTime:
		return tok.Time, nil
	case KindExt:
		return ir.Ext{Type: tok.ExtType, Data: tok.Bytes}, nil
	case KindValue:
		return tok.Value, nil
	default:
		return nil, &DecodeError{Message: "unexpected token", Offset: d.src.Location()}
	}
}

// ---- constraints and errors ----

func (d *Decoder) checkNumeric(f float64, m *ir.Meta) error {
	if m == nil {
		return nil
	}
	if m.GE != nil && f < *m.GE {
		return d.errConstraint(CodeTooSmall, fmt.Sprintf("expected value >= %v", *m.GE))
	}
	if m.GT != nil && f <= *m.GT {
		return d.errConstraint(CodeTooSmall, fmt.Sprintf("expected value > %v", *m.GT))
	}
	if m.LE != nil && f > *m.LE {
		return d.errConstraint(CodeTooBig, fmt.Sprintf("expected value <= %v", *m.LE))
	}
	if m.LT != nil && f >= *m.LT {
		return d.errConstraint(CodeTooBig, fmt.Sprintf("expected value < %v", *m.LT))
	}
	if m.MultipleOf != nil && math.Mod(f, *m.MultipleOf) != 0 {
		return d.errConstraint(CodeInvalidFormat, fmt.Sprintf("expected multiple of %v", *m.MultipleOf))
	}
	return nil
}

func (d *Decoder) checkString(s string, m *ir.Meta) error {
	if m == nil {
		return nil
	}
	n := len([]rune(s))
	if m.MinLength != nil && n < *m.MinLength {
		return d.errConstraint(CodeTooShort, fmt.Sprintf("expected length >= %d", *m.MinLength))
	}
	if m.MaxLength != nil && n > *m.MaxLength {
		return d.errConstraint(CodeTooLong, fmt.Sprintf("expected length <= %d", *m.MaxLength))
	}
	if re := m.Regexp(); re != nil && !re.MatchString(s) {
		return d.errConstraint(CodePattern, fmt.Sprintf("expected string matching %q", m.Pattern))
	}
	return nil
}

func (d *Decoder) checkItems(n int, m *ir.Meta) error {
	if m == nil {
		return nil
	}
	if m.MinItems != nil && n < *m.MinItems {
		return d.errConstraint(CodeTooShort, fmt.Sprintf("expected at least %d items", *m.MinItems))
	}
	if m.MaxItems != nil && n > *m.MaxItems {
		return d.errConstraint(CodeTooLong, fmt.Sprintf("expected at most %d items", *m.MaxItems))
	}
	return nil
}

func (d *Decoder) errConstraint(code, msg string) error {
	return &ValidationError{
		Path:    d.path.String(),
		Code:    code,
		Message: msg,
		Offset:  d.src.Location(),
	}
}

func (d *Decoder) errExpected(node *ir.Node, tok Token) error {
	return &ValidationError{
		Path:     d.path.String(),
		Code:     CodeInvalidType,
		Expected: expectedName(node),
		Actual:   tokenName(tok),
		Offset:   d.src.Location(),
	}
}

func expectedName(node *ir.Node) string {
	if node.Kind == ir.KindUnion {
		parts := make([]string, 0, len(node.Members))
		seen := map[string]bool{}
		for _, m := range node.Members {
			s := m.Kind.String()
			if !seen[s] {
				seen[s] = true
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " | ")
	}
	return node.Kind.String()
}

func tokenName(tok Token) string {
	switch tok.Kind {
	case KindBeginObject:
		return "object"
	case KindBeginArray:
		return "array"
	case KindString:
		return "str"
	case KindNumber:
		if _, err := strconv.ParseInt(tok.Num, 10, 64); err == nil {
			return "int"
		}
		return "float"
	case KindBool:
		return "bool"
	case KindNull:
		return "null"
	case KindBytes:
		return "bytes"
	case KindTime:
		return "datetime"
	case KindExt:
		return "ext"
	case KindValue:
		return valueName(tok.Value)
	default:
		return "unknown"
	}
}

func valueName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case int, int64, uint64:
		return "int"
	case float64:
		return "float"
	case string:
		return "str"
	case []byte:
		return "bytes"
	case time.Time:
		return "datetime"
	case time.Duration:
		return "duration"
	case uuid.UUID:
		return "uuid"
	case decimal.Decimal:
		return "decimal"
	case ir.Ext:
		return "ext"
	case map[string]any, map[any]any:
		return "object"
	case []any:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// assignVal adapts a decoded value to the destination reflect type,
// rejecting lossy integer conversions.
func assignVal(rt reflect.Type, v any) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(rt), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type() == rt {
		return rv, nil
	}
	if rv.Type().AssignableTo(rt) {
		return rv, nil
	}
	switch rt.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if i, ok := v.(int64); ok {
			out := reflect.New(rt).Elem()
			if out.OverflowInt(i) {
				return reflect.Value{}, fmt.Errorf("integer %d out of range for %s", i, rt)
			}
			out.SetInt(i)
			return out, nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if i, ok := v.(int64); ok {
			if i < 0 {
				return reflect.Value{}, fmt.Errorf("integer %d out of range for %s", i, rt)
			}
			out := reflect.New(rt).Elem()
			if out.OverflowUint(uint64(i)) {
				return reflect.Value{}, fmt.Errorf("integer %d out of range for %s", i, rt)
			}
			out.SetUint(uint64(i))
			return out, nil
		}
	case reflect.Float32, reflect.Float64:
		switch f := v.(type) {
		case float64:
			out := reflect.New(rt).Elem()
			out.SetFloat(f)
			return out, nil
		case int64:
			out := reflect.New(rt).Elem()
			out.SetFloat(float64(f))
			return out, nil
		}
	}
	if rv.Type().ConvertibleTo(rt) {
		return rv.Convert(rt), nil
	}
	return reflect.Value{}, fmt.Errorf("cannot assign %T to %s", v, rt)
}

// convScalar adapts a scalar to the node's concrete Go type when one was
// declared via reflection.
func convScalar(v any, rt reflect.Type) (any, error) {
	if rt == nil {
		return v, nil
	}
	av, err := assignVal(rt, v)
	if err != nil {
		return nil, err
	}
	return av.Interface(), nil
}

func (d *Decoder) scalar(v any, rt reflect.Type) (any, error) {
	out, err := convScalar(v, rt)
	if err != nil {
		return nil, d.errConstraint(CodeTooBig, err.Error())
	}
	return out, nil
}

package engine

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hyperspec/hyperspec-go/internal/ir"
)

// Union dispatch. All ambiguity was rejected at build time, so selecting a
// member here is a table lookup on the incoming primitive kind (or on the
// tag value for tagged struct unions), never a try-in-order scan.

func (d *Decoder) unionValue(tok Token, node *ir.Node) (any, error) {
	tbl := node.Union
	switch tok.Kind {
	case KindNull:
		for _, m := range node.Members {
			if m.Nullable {
				return d.value(tok, m)
			}
		}
		if tbl.NilMember != nil {
			return d.value(tok, tbl.NilMember)
		}
	case KindBool:
		if tbl.BoolMember != nil {
			return d.value(tok, tbl.BoolMember)
		}
	case KindNumber:
		if i, err := strconv.ParseInt(tok.Num, 10, 64); err == nil {
			if m, ok := tbl.IntLiterals[i]; ok {
				return d.value(tok, m)
			}
			if tbl.IntMember != nil {
				return d.value(tok, tbl.IntMember)
			}
		}
		if tbl.FloatMember != nil {
			return d.value(tok, tbl.FloatMember)
		}
	case KindString:
		if m, ok := tbl.StrLiterals[tok.Str]; ok {
			return d.value(tok, m)
		}
		if tbl.StrMember != nil {
			return d.value(tok, tbl.StrMember)
		}
	case KindBytes:
		if tbl.BytesMember != nil {
			return d.value(tok, tbl.BytesMember)
		}
	case KindTime:
		if tbl.StrMember != nil {
			return d.value(tok, tbl.StrMember)
		}
	case KindExt:
		if tbl.ExtMember != nil {
			return d.value(tok, tbl.ExtMember)
		}
	case KindBeginArray:
		if tbl.SeqMember != nil {
			return d.value(tok, tbl.SeqMember)
		}
	case KindBeginObject:
		if len(tbl.TagStructs) > 0 {
			return d.taggedUnionValue(node)
		}
		if tbl.MapMember != nil {
			return d.value(tok, tbl.MapMember)
		}
	case KindValue:
		if m := d.classifyValue(tok.Value, tbl); m != nil {
			return d.value(tok, m)
		}
		if _, ok := tok.Value.(map[string]any); ok && len(tbl.TagStructs) > 0 {
			return d.taggedUnionBuiltins(tok.Value.(map[string]any), node)
		}
	}
	return nil, d.errExpected(node, tok)
}

func (d *Decoder) classifyValue(v any, tbl *ir.UnionTable) *ir.Node {
	switch x := v.(type) {
	case nil:
		return tbl.NilMember
	case bool:
		return tbl.BoolMember
	case int, int64, uint64:
		var i int64
		switch n := v.(type) {
		case int:
			i = int64(n)
		case int64:
			i = n
		case uint64:
			i = int64(n)
		}
		if m, hit := tbl.IntLiterals[i]; hit {
			return m
		}
		if tbl.IntMember != nil {
			return tbl.IntMember
		}
		return tbl.FloatMember
	case float64:
		return tbl.FloatMember
	case string:
		if m, hit := tbl.StrLiterals[x]; hit {
			return m
		}
		return tbl.StrMember
	case []byte:
		return tbl.BytesMember
	case time.Time, time.Duration, uuid.UUID:
		return tbl.StrMember
	case decimal.Decimal:
		return tbl.StrMember
	case ir.Ext:
		return tbl.ExtMember
	case []any:
		return tbl.SeqMember
	case map[string]any, map[any]any:
		return tbl.MapMember
	default:
		return nil
	}
}

// taggedUnionValue buffers the object's token stream, locates the tag field
// at the top level, then replays the buffer against the selected member.
// The opening BeginObject token has already been consumed.
func (d *Decoder) taggedUnionValue(node *ir.Node) (any, error) {
	tbl := node.Union
	toks := []Token{{Kind: KindBeginObject}}
	depth := 1
	var tag any
	tagFound := false
	expectKey := true
	for depth > 0 {
		tok, err := d.next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		switch tok.Kind {
		case KindBeginObject, KindBeginArray:
			depth++
			expectKey = false
		case KindEndObject, KindEndArray:
			depth--
			expectKey = depth == 1
		case KindKey, KindString:
			if depth == 1 && expectKey {
				if tok.Str == tbl.TagField {
					vt, err := d.next()
					if err != nil {
						return nil, err
					}
					toks = append(toks, vt)
					switch vt.Kind {
					case KindString:
						tag = vt.Str
					case KindNumber:
						tag, _ = strconv.ParseInt(vt.Num, 10, 64)
					case KindValue:
						tag = vt.Value
						if i, ok := tag.(int); ok {
							tag = int64(i)
						}
					default:
						return nil, d.errConstraint(CodeInvalidType, "invalid tag value")
					}
					tagFound = true
					if vt.Kind == KindBeginObject || vt.Kind == KindBeginArray {
						depth++
					}
					continue
				}
				expectKey = false
				continue
			}
			expectKey = depth == 1
		default:
			if depth == 1 {
				expectKey = true
			}
		}
	}
	if !tagFound {
		d.path.Field(tbl.TagField)
		defer d.path.Pop()
		return nil, &ValidationError{
			Path:    d.path.String(),
			Code:    CodeRequired,
			Message: fmt.Sprintf("object missing required field `%s`", tbl.TagField),
			Offset:  d.src.Location(),
		}
	}
	member, ok := tbl.TagStructs[tag]
	if !ok {
		d.path.Field(tbl.TagField)
		defer d.path.Pop()
		return nil, &ValidationError{
			Path:    d.path.String(),
			Code:    CodeInvalidEnum,
			Message: fmt.Sprintf("invalid value %v", tag),
			Offset:  d.src.Location(),
		}
	}

	saved := d.src
	d.src = &replaySource{toks: toks, loc: saved.Location()}
	defer func() { d.src = saved }()
	first, err := d.next()
	if err != nil {
		return nil, err
	}
	return d.value(first, member)
}

// taggedUnionBuiltins handles the wire-free conversion path where the whole
// object is already a builtin map.
func (d *Decoder) taggedUnionBuiltins(m map[string]any, node *ir.Node) (any, error) {
	tbl := node.Union
	tag, ok := m[tbl.TagField]
	if !ok {
		d.path.Field(tbl.TagField)
		defer d.path.Pop()
		return nil, &ValidationError{
			Path:    d.path.String(),
			Code:    CodeRequired,
			Message: fmt.Sprintf("object missing required field `%s`", tbl.TagField),
			Offset:  d.src.Location(),
		}
	}
	if i, isInt := tag.(int); isInt {
		tag = int64(i)
	}
	member, ok := tbl.TagStructs[tag]
	if !ok {
		d.path.Field(tbl.TagField)
		defer d.path.Pop()
		return nil, &ValidationError{
			Path:    d.path.String(),
			Code:    CodeInvalidEnum,
			Message: fmt.Sprintf("invalid value %v", tag),
			Offset:  d.src.Location(),
		}
	}
	saved := d.src
	d.src = newValueSource(m)
	defer func() { d.src = saved }()
	first, err := d.next()
	if err != nil {
		return nil, err
	}
	return d.value(first, member)
}

// replaySource feeds back a buffered token slice.
type replaySource struct {
	toks []Token
	i    int
	loc  int64
}

func (r *replaySource) NextToken() (Token, error) {
	if r.i >= len(r.toks) {
		return Token{}, &DecodeError{Message: "unexpected end of buffered value", Offset: r.loc}
	}
	t := r.toks[r.i]
	r.i++
	return t, nil
}

func (r *replaySource) Location() int64 { return r.loc }

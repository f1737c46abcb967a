package msgpack

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"

	hyperspec "github.com/hyperspec/hyperspec-go"
)

type frame struct {
	isMap     bool
	remaining int
	expectKey bool
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

type source struct {
	dec   *msgpack.Decoder
	cr    *countingReader
	stack []frame
}

// NewSource wraps an io.Reader into a token source for MessagePack.
func NewSource(r io.Reader) hyperspec.Source {
	cr := &countingReader{r: r}
	return &source{dec: msgpack.NewDecoder(cr), cr: cr}
}

// NewBytesSource wraps a byte slice into a token source for MessagePack.
func NewBytesSource(b []byte) hyperspec.Source {
	return NewSource(bytes.NewReader(b))
}

func (s *source) Location() int64 { return s.cr.n }

// NextRaw captures the next value's encoded bytes verbatim.
func (s *source) NextRaw() ([]byte, error) {
	if n := len(s.stack); n > 0 {
		top := &s.stack[n-1]
		if top.remaining == 0 && (!top.isMap || top.expectKey) {
			return nil, fmt.Errorf("msgpack: container end is not a value")
		}
	}
	var raw msgpack.RawMessage
	if err := s.dec.Decode(&raw); err != nil {
		return nil, err
	}
	s.beginValue()
	return raw, nil
}

// closeIfDone emits the synthetic container-end token owed when the current
// frame ran out of elements; the wire format carries lengths, not end marks.
func (s *source) closeIfDone() (hyperspec.Token, bool) {
	n := len(s.stack)
	if n == 0 {
		return hyperspec.Token{}, false
	}
	top := &s.stack[n-1]
	if top.remaining > 0 || (top.isMap && !top.expectKey) {
		return hyperspec.Token{}, false
	}
	s.stack = s.stack[:n-1]
	kind := hyperspec.TokenEndArray
	if top.isMap {
		kind = hyperspec.TokenEndObject
	}
	return hyperspec.Token{Kind: kind, Offset: s.cr.n}, true
}

// beginValue charges the value now starting against the enclosing frame.
// Returns true when the token being read is a map key.
func (s *source) beginValue() bool {
	n := len(s.stack)
	if n == 0 {
		return false
	}
	top := &s.stack[n-1]
	if top.isMap {
		if top.expectKey {
			top.expectKey = false
			return true
		}
		top.remaining--
		top.expectKey = true
		return false
	}
	top.remaining--
	return false
}

func (s *source) NextToken() (hyperspec.Token, error) {
	if tok, done := s.closeIfDone(); done {
		return tok, nil
	}

	code, err := s.dec.PeekCode()
	if err != nil {
		return hyperspec.Token{}, err
	}
	off := s.cr.n

	switch {
	case code == msgpcode.Nil:
		s.beginValue()
		if err := s.dec.DecodeNil(); err != nil {
			return hyperspec.Token{}, err
		}
		return hyperspec.Token{Kind: hyperspec.TokenNull, Offset: off}, nil

	case code == msgpcode.True || code == msgpcode.False:
		s.beginValue()
		b, err := s.dec.DecodeBool()
		if err != nil {
			return hyperspec.Token{}, err
		}
		return hyperspec.Token{Kind: hyperspec.TokenBool, Bool: b, Offset: off}, nil

	case msgpcode.IsFixedNum(code),
		code == msgpcode.Int8, code == msgpcode.Int16,
		code == msgpcode.Int32, code == msgpcode.Int64:
		s.beginValue()
		i, err := s.dec.DecodeInt64()
		if err != nil {
			return hyperspec.Token{}, err
		}
		return hyperspec.Token{
			Kind:   hyperspec.TokenNumber,
			Num:    strconv.FormatInt(i, 10),
			Value:  i,
			Offset: off,
		}, nil

	case code == msgpcode.Uint8, code == msgpcode.Uint16,
		code == msgpcode.Uint32, code == msgpcode.Uint64:
		s.beginValue()
		u, err := s.dec.DecodeUint64()
		if err != nil {
			return hyperspec.Token{}, err
		}
		return hyperspec.Token{
			Kind:   hyperspec.TokenNumber,
			Num:    strconv.FormatUint(u, 10),
			Value:  u,
			Offset: off,
		}, nil

	case code == msgpcode.Float, code == msgpcode.Double:
		s.beginValue()
		f, err := s.dec.DecodeFloat64()
		if err != nil {
			return hyperspec.Token{}, err
		}
		return hyperspec.Token{
			Kind:   hyperspec.TokenNumber,
			Num:    strconv.FormatFloat(f, 'g', -1, 64),
			Value:  f,
			Offset: off,
		}, nil

	case msgpcode.IsFixedString(code), msgpcode.IsString(code):
		isKey := s.beginValue()
		str, err := s.dec.DecodeString()
		if err != nil {
			return hyperspec.Token{}, err
		}
		if isKey {
			return hyperspec.Token{Kind: hyperspec.TokenKey, Str: str, Offset: off}, nil
		}
		return hyperspec.Token{Kind: hyperspec.TokenString, Str: str, Offset: off}, nil

	case msgpcode.IsBin(code):
		s.beginValue()
		b, err := s.dec.DecodeBytes()
		if err != nil {
			return hyperspec.Token{}, err
		}
		return hyperspec.Token{Kind: hyperspec.TokenBytes, Bytes: b, Offset: off}, nil

	case msgpcode.IsFixedMap(code), code == msgpcode.Map16, code == msgpcode.Map32:
		s.beginValue()
		n, err := s.dec.DecodeMapLen()
		if err != nil {
			return hyperspec.Token{}, err
		}
		s.stack = append(s.stack, frame{isMap: true, remaining: n, expectKey: true})
		return hyperspec.Token{Kind: hyperspec.TokenBeginObject, Offset: off}, nil

	case msgpcode.IsFixedArray(code), code == msgpcode.Array16, code == msgpcode.Array32:
		s.beginValue()
		n, err := s.dec.DecodeArrayLen()
		if err != nil {
			return hyperspec.Token{}, err
		}
		s.stack = append(s.stack, frame{remaining: n})
		return hyperspec.Token{Kind: hyperspec.TokenBeginArray, Offset: off}, nil

	case msgpcode.IsExt(code):
		s.beginValue()
		return s.extToken(off)

	default:
		return hyperspec.Token{}, fmt.Errorf("msgpack: unexpected code 0x%02x", code)
	}
}

// extToken captures an extension value whole and splits it by hand. The
// timestamp extension surfaces as a native time token; everything else
// passes through typed.
func (s *source) extToken(off int64) (hyperspec.Token, error) {
	var raw msgpack.RawMessage
	if err := s.dec.Decode(&raw); err != nil {
		return hyperspec.Token{}, err
	}
	extType, payload, err := splitExt([]byte(raw))
	if err != nil {
		return hyperspec.Token{}, err
	}
	if extType == -1 {
		t, err := msgpack.NewDecoder(bytes.NewReader(raw)).DecodeTime()
		if err != nil {
			return hyperspec.Token{}, err
		}
		return hyperspec.Token{Kind: hyperspec.TokenTime, Time: t, Offset: off}, nil
	}
	return hyperspec.Token{
		Kind:    hyperspec.TokenExt,
		ExtType: extType,
		Bytes:   payload,
		Offset:  off,
	}, nil
}

// splitExt separates an encoded ext value into its type and payload.
func splitExt(b []byte) (int8, []byte, error) {
	if len(b) < 2 {
		return 0, nil, fmt.Errorf("msgpack: short ext value")
	}
	var extLen, hdr int
	switch b[0] {
	case 0xd4:
		extLen, hdr = 1, 2
	case 0xd5:
		extLen, hdr = 2, 2
	case 0xd6:
		extLen, hdr = 4, 2
	case 0xd7:
		extLen, hdr = 8, 2
	case 0xd8:
		extLen, hdr = 16, 2
	case 0xc7:
		if len(b) < 3 {
			return 0, nil, fmt.Errorf("msgpack: short ext value")
		}
		extLen, hdr = int(b[1]), 3
	case 0xc8:
		if len(b) < 4 {
			return 0, nil, fmt.Errorf("msgpack: short ext value")
		}
		extLen, hdr = int(binary.BigEndian.Uint16(b[1:3])), 4
	case 0xc9:
		if len(b) < 6 {
			return 0, nil, fmt.Errorf("msgpack: short ext value")
		}
		extLen, hdr = int(binary.BigEndian.Uint32(b[1:5])), 6
	default:
		return 0, nil, fmt.Errorf("msgpack: not an ext value")
	}
	if len(b) < hdr+extLen {
		return 0, nil, fmt.Errorf("msgpack: truncated ext value")
	}
	return int8(b[hdr-1]), b[hdr : hdr+extLen], nil
}

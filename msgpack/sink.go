package msgpack

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/vmihailenco/msgpack/v5"

	hyperspec "github.com/hyperspec/hyperspec-go"
)

// The wire format prefixes containers with their lengths, so each open
// container buffers its body until the matching end token arrives; the
// header is written first, then the buffered body is replayed into the
// parent.

type sframe struct {
	buf     *bytes.Buffer
	enc     *msgpack.Encoder
	isMap   bool
	entries int
	onKey   bool
}

type sink struct {
	w     io.Writer
	enc   *msgpack.Encoder
	stack []*sframe
}

// NewSink wraps an io.Writer into a token sink emitting MessagePack.
func NewSink(w io.Writer) hyperspec.Sink {
	return &sink{w: w, enc: msgpack.NewEncoder(w)}
}

func (s *sink) Traits() hyperspec.SinkTraits {
	return hyperspec.SinkTraits{Binary: true, Temporal: true, Ext: true, Raw: true}
}

// cur returns the encoder and writer for the innermost open container.
func (s *sink) cur() (*msgpack.Encoder, io.Writer) {
	if n := len(s.stack); n > 0 {
		return s.stack[n-1].enc, s.stack[n-1].buf
	}
	return s.enc, s.w
}

// countValue charges one value against the innermost container.
func (s *sink) countValue() {
	n := len(s.stack)
	if n == 0 {
		return
	}
	top := s.stack[n-1]
	if top.isMap {
		if top.onKey {
			top.onKey = false
			return
		}
		top.entries++
		top.onKey = true
		return
	}
	top.entries++
}

func (s *sink) push(isMap bool) {
	buf := &bytes.Buffer{}
	s.stack = append(s.stack, &sframe{
		buf:   buf,
		enc:   msgpack.NewEncoder(buf),
		isMap: isMap,
		onKey: isMap,
	})
}

func (s *sink) close(isMap bool) error {
	n := len(s.stack)
	if n == 0 {
		return fmt.Errorf("msgpack: unbalanced container close")
	}
	top := s.stack[n-1]
	if top.isMap != isMap {
		return fmt.Errorf("msgpack: mismatched container close")
	}
	if top.isMap && !top.onKey {
		return fmt.Errorf("msgpack: dangling map key")
	}
	s.stack = s.stack[:n-1]
	enc, w := s.cur()
	var err error
	if top.isMap {
		err = enc.EncodeMapLen(top.entries)
	} else {
		err = enc.EncodeArrayLen(top.entries)
	}
	if err != nil {
		return err
	}
	_, err = w.Write(top.buf.Bytes())
	return err
}

func (s *sink) WriteToken(tok hyperspec.Token) error {
	switch tok.Kind {
	case hyperspec.TokenBeginObject:
		s.countValue()
		s.push(true)
		return nil
	case hyperspec.TokenBeginArray:
		s.countValue()
		s.push(false)
		return nil
	case hyperspec.TokenEndObject:
		return s.close(true)
	case hyperspec.TokenEndArray:
		return s.close(false)
	case hyperspec.TokenKey:
		s.countValue()
		enc, _ := s.cur()
		return enc.EncodeString(tok.Str)
	case hyperspec.TokenString:
		s.countValue()
		enc, _ := s.cur()
		return enc.EncodeString(tok.Str)
	case hyperspec.TokenNumber:
		s.countValue()
		return s.writeNumber(tok)
	case hyperspec.TokenBool:
		s.countValue()
		enc, _ := s.cur()
		return enc.EncodeBool(tok.Bool)
	case hyperspec.TokenNull:
		s.countValue()
		enc, _ := s.cur()
		return enc.EncodeNil()
	case hyperspec.TokenBytes:
		s.countValue()
		enc, _ := s.cur()
		return enc.EncodeBytes(tok.Bytes)
	case hyperspec.TokenTime:
		s.countValue()
		enc, _ := s.cur()
		return enc.EncodeTime(tok.Time)
	case hyperspec.TokenExt:
		s.countValue()
		enc, w := s.cur()
		if err := enc.EncodeExtHeader(tok.ExtType, len(tok.Bytes)); err != nil {
			return err
		}
		_, err := w.Write(tok.Bytes)
		return err
	default:
		return fmt.Errorf("msgpack: unsupported token kind %d", tok.Kind)
	}
}

// WriteRaw splices a pre-encoded MessagePack fragment verbatim.
func (s *sink) WriteRaw(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("msgpack: empty raw fragment")
	}
	s.countValue()
	_, w := s.cur()
	_, err := w.Write(b)
	return err
}

func (s *sink) writeNumber(tok hyperspec.Token) error {
	enc, _ := s.cur()
	switch v := tok.Value.(type) {
	case int64:
		return enc.EncodeInt(v)
	case uint64:
		return enc.EncodeUint(v)
	case float64:
		return enc.EncodeFloat64(v)
	}
	if i, err := strconv.ParseInt(tok.Num, 10, 64); err == nil {
		return enc.EncodeInt(i)
	}
	if u, err := strconv.ParseUint(tok.Num, 10, 64); err == nil {
		return enc.EncodeUint(u)
	}
	f, err := strconv.ParseFloat(tok.Num, 64)
	if err != nil {
		return fmt.Errorf("msgpack: malformed number %q", tok.Num)
	}
	return enc.EncodeFloat64(f)
}

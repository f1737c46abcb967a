package json

import (
	"fmt"
	"io"
	"math"

	j "github.com/goccy/go-json"

	hyperspec "github.com/hyperspec/hyperspec-go"
)

type sframe struct {
	kind  containerKind
	count int
}

type sink struct {
	w     io.Writer
	stack []sframe
}

// NewSink wraps an io.Writer into a token sink emitting compact JSON.
func NewSink(w io.Writer) hyperspec.Sink { return &sink{w: w} }

func (s *sink) Traits() hyperspec.SinkTraits {
	return hyperspec.SinkTraits{Raw: true, StringKeysOnly: true}
}

func (s *sink) WriteToken(tok hyperspec.Token) error {
	switch tok.Kind {
	case hyperspec.TokenBeginObject:
		if err := s.valuePrefix(); err != nil {
			return err
		}
		s.stack = append(s.stack, sframe{kind: kindObject})
		return s.writeString("{")
	case hyperspec.TokenBeginArray:
		if err := s.valuePrefix(); err != nil {
			return err
		}
		s.stack = append(s.stack, sframe{kind: kindArray})
		return s.writeString("[")
	case hyperspec.TokenEndObject:
		s.popFrame()
		return s.writeString("}")
	case hyperspec.TokenEndArray:
		s.popFrame()
		return s.writeString("]")
	case hyperspec.TokenKey:
		top, err := s.topObject()
		if err != nil {
			return err
		}
		if top.count > 0 {
			if err := s.writeString(","); err != nil {
				return err
			}
		}
		top.count++
		kb, err := j.Marshal(tok.Str)
		if err != nil {
			return err
		}
		if _, err := s.w.Write(kb); err != nil {
			return err
		}
		return s.writeString(":")
	case hyperspec.TokenString:
		if err := s.valuePrefix(); err != nil {
			return err
		}
		b, err := j.Marshal(tok.Str)
		if err != nil {
			return err
		}
		_, err = s.w.Write(b)
		return err
	case hyperspec.TokenNumber:
		// JSON has no representation for non-finite floats.
		if f, ok := tok.Value.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			return &hyperspec.EncodeError{
				Code:    hyperspec.CodeUnsupported,
				Message: "json cannot represent non-finite float " + tok.Num,
			}
		}
		if err := s.valuePrefix(); err != nil {
			return err
		}
		return s.writeString(tok.Num)
	case hyperspec.TokenBool:
		if err := s.valuePrefix(); err != nil {
			return err
		}
		if tok.Bool {
			return s.writeString("true")
		}
		return s.writeString("false")
	case hyperspec.TokenNull:
		if err := s.valuePrefix(); err != nil {
			return err
		}
		return s.writeString("null")
	default:
		return fmt.Errorf("json: unsupported token kind %d", tok.Kind)
	}
}

// WriteRaw splices a pre-encoded JSON fragment verbatim.
func (s *sink) WriteRaw(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("json: empty raw fragment")
	}
	if err := s.valuePrefix(); err != nil {
		return err
	}
	_, err := s.w.Write(b)
	return err
}

// valuePrefix writes the separator owed before a value in array position.
// Object values need none: the key wrote the separator and the colon.
func (s *sink) valuePrefix() error {
	if n := len(s.stack); n > 0 && s.stack[n-1].kind == kindArray {
		top := &s.stack[n-1]
		if top.count > 0 {
			if err := s.writeString(","); err != nil {
				return err
			}
		}
		top.count++
	}
	return nil
}

func (s *sink) topObject() (*sframe, error) {
	if n := len(s.stack); n > 0 && s.stack[n-1].kind == kindObject {
		return &s.stack[n-1], nil
	}
	return nil, fmt.Errorf("json: key outside object")
}

func (s *sink) popFrame() {
	if n := len(s.stack); n > 0 {
		s.stack = s.stack[:n-1]
	}
}

func (s *sink) writeString(str string) error {
	_, err := io.WriteString(s.w, str)
	return err
}

package json

import (
	"bytes"
	"io"
	"strconv"

	j "github.com/goccy/go-json"

	hyperspec "github.com/hyperspec/hyperspec-go"
)

type containerKind int

const (
	kindObject containerKind = iota
	kindArray
)

type frame struct {
	kind         containerKind
	expectingKey bool
}

// countingReader tracks bytes handed to the decoder. The decoder buffers
// ahead, so offsets are approximate; they exist to locate errors, not to
// index the input.
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
	dec   *j.Decoder
	cr    *countingReader
	stack []frame
}

// NewSource wraps an io.Reader into a token source for JSON.
func NewSource(r io.Reader) hyperspec.Source {
	cr := &countingReader{r: r}
	dec := j.NewDecoder(cr)
	dec.UseNumber()
	return &source{dec: dec, cr: cr}
}

// NewBytesSource wraps a byte slice into a token source for JSON.
func NewBytesSource(b []byte) hyperspec.Source {
	return NewSource(bytes.NewReader(b))
}

func (s *source) Location() int64 { return s.cr.n }

// NextRaw captures the next value's bytes verbatim, reusing the decoder's
// delayed-parse message type.
func (s *source) NextRaw() ([]byte, error) {
	var raw j.RawMessage
	if err := s.dec.Decode(&raw); err != nil {
		return nil, err
	}
	s.valueDone()
	return raw, nil
}

func (s *source) NextToken() (hyperspec.Token, error) {
	tok, err := s.dec.Token()
	if err != nil {
		if err == io.EOF {
			return hyperspec.Token{}, io.EOF
		}
		return hyperspec.Token{}, err
	}
	off := s.cr.n

	switch v := tok.(type) {
	case j.Delim:
		switch v {
		case '{':
			s.stack = append(s.stack, frame{kind: kindObject, expectingKey: true})
			return hyperspec.Token{Kind: hyperspec.TokenBeginObject, Offset: off}, nil
		case '}':
			s.pop()
			return hyperspec.Token{Kind: hyperspec.TokenEndObject, Offset: off}, nil
		case '[':
			s.stack = append(s.stack, frame{kind: kindArray})
			return hyperspec.Token{Kind: hyperspec.TokenBeginArray, Offset: off}, nil
		case ']':
			s.pop()
			return hyperspec.Token{Kind: hyperspec.TokenEndArray, Offset: off}, nil
		}
	case string:
		if n := len(s.stack); n > 0 {
			top := &s.stack[n-1]
			if top.kind == kindObject && top.expectingKey {
				top.expectingKey = false
				return hyperspec.Token{Kind: hyperspec.TokenKey, Str: v, Offset: off}, nil
			}
		}
		s.valueDone()
		return hyperspec.Token{Kind: hyperspec.TokenString, Str: v, Offset: off}, nil
	case bool:
		s.valueDone()
		return hyperspec.Token{Kind: hyperspec.TokenBool, Bool: v, Offset: off}, nil
	case j.Number:
		s.valueDone()
		return hyperspec.Token{Kind: hyperspec.TokenNumber, Num: string(v), Offset: off}, nil
	case float64:
		s.valueDone()
		return hyperspec.Token{Kind: hyperspec.TokenNumber, Num: strconv.FormatFloat(v, 'g', -1, 64), Offset: off}, nil
	case nil:
		s.valueDone()
		return hyperspec.Token{Kind: hyperspec.TokenNull, Offset: off}, nil
	}
	s.valueDone()
	return hyperspec.Token{Kind: hyperspec.TokenNull, Offset: off}, nil
}

func (s *source) pop() {
	if n := len(s.stack); n > 0 {
		s.stack = s.stack[:n-1]
	}
	s.valueDone()
}

func (s *source) valueDone() {
	if n := len(s.stack); n > 0 {
		top := &s.stack[n-1]
		if top.kind == kindObject && !top.expectingKey {
			top.expectingKey = true
		}
	}
}

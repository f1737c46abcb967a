package json

import (
	"fmt"
	"io"

	hyperspec "github.com/hyperspec/hyperspec-go"
)

// StreamDecoder reads a stream of concatenated or newline-delimited JSON
// values, validating each against one shape. After a validation error the
// stream realigns on the next value, so one bad record does not poison the
// rest; malformed syntax ends the stream.
type StreamDecoder struct {
	dec    *hyperspec.Decoder
	src    *depthSource
	broken bool
}

// NewStreamDecoder returns a stream decoder for shape over r.
func NewStreamDecoder(r io.Reader, shape any, opts ...hyperspec.DecodeOptions) (*StreamDecoder, error) {
	dec, err := hyperspec.NewDecoder(shape, opts...)
	if err != nil {
		return nil, err
	}
	return &StreamDecoder{dec: dec, src: &depthSource{inner: NewSource(r)}}, nil
}

// Next decodes the next value. It returns io.EOF once the input is
// exhausted.
func (s *StreamDecoder) Next() (any, error) {
	if s.broken {
		return nil, io.EOF
	}
	if err := s.src.startValue(); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		s.broken = true
		return nil, err
	}
	v, err := s.dec.Decode(s.src)
	if err != nil {
		if _, ok := hyperspec.AsValidationError(err); ok {
			// Realign on the next top-level value.
			if derr := s.src.drain(); derr != nil {
				s.broken = true
			}
			return nil, err
		}
		s.broken = true
		return nil, err
	}
	return v, nil
}

// depthSource tracks container depth and buffers one peeked token so Next
// can distinguish end-of-stream from a value boundary.
type depthSource struct {
	inner  hyperspec.Source
	depth  int
	peeked *hyperspec.Token
}

// startValue peeks the next token, reporting io.EOF cleanly between values.
func (d *depthSource) startValue() error {
	if d.peeked != nil {
		return nil
	}
	tok, err := d.inner.NextToken()
	if err != nil {
		return err
	}
	d.peeked = &tok
	return nil
}

func (d *depthSource) NextToken() (hyperspec.Token, error) {
	var tok hyperspec.Token
	if d.peeked != nil {
		tok = *d.peeked
		d.peeked = nil
	} else {
		t, err := d.inner.NextToken()
		if err != nil {
			return hyperspec.Token{}, err
		}
		tok = t
	}
	switch tok.Kind {
	case hyperspec.TokenBeginObject, hyperspec.TokenBeginArray:
		d.depth++
	case hyperspec.TokenEndObject, hyperspec.TokenEndArray:
		d.depth--
	}
	return tok, nil
}

func (d *depthSource) Location() int64 { return d.inner.Location() }

// NextRaw forwards raw capture to the underlying source. A buffered peeked
// token means the value already started streaming as tokens, so the encoded
// bytes are gone.
func (d *depthSource) NextRaw() ([]byte, error) {
	if d.peeked != nil {
		return nil, fmt.Errorf("json: raw capture after token peek")
	}
	rs, ok := d.inner.(hyperspec.RawSource)
	if !ok {
		return nil, fmt.Errorf("json: source does not support raw capture")
	}
	return rs.NextRaw()
}

// drain discards tokens until the current value's containers are closed.
func (d *depthSource) drain() error {
	for d.depth > 0 {
		if _, err := d.NextToken(); err != nil {
			return err
		}
	}
	return nil
}

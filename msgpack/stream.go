package msgpack

import (
	"io"

	hyperspec "github.com/hyperspec/hyperspec-go"
)

// StreamDecoder reads concatenated MessagePack values, validating each
// against one shape. Container lengths keep the stream self-aligning, so a
// validation error in one record does not affect the next.
type StreamDecoder struct {
	dec    *hyperspec.Decoder
	src    *source
	broken bool
}

// NewStreamDecoder returns a stream decoder for shape over r.
func NewStreamDecoder(r io.Reader, shape any, opts ...hyperspec.DecodeOptions) (*StreamDecoder, error) {
	dec, err := hyperspec.NewDecoder(shape, opts...)
	if err != nil {
		return nil, err
	}
	return &StreamDecoder{dec: dec, src: NewSource(r).(*source)}, nil
}

// Next decodes the next value. It returns io.EOF once the input is
// exhausted.
func (s *StreamDecoder) Next() (any, error) {
	if s.broken {
		return nil, io.EOF
	}
	if _, err := s.src.dec.PeekCode(); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		s.broken = true
		return nil, err
	}
	v, err := s.dec.Decode(s.src)
	if err != nil {
		if _, ok := hyperspec.AsValidationError(err); ok {
			if derr := s.drain(); derr != nil {
				s.broken = true
			}
			return nil, err
		}
		s.broken = true
		return nil, err
	}
	return v, nil
}

// drain discards tokens until every open container closes, realigning on
// the next top-level value.
func (s *StreamDecoder) drain() error {
	for len(s.src.stack) > 0 {
		if _, err := s.src.NextToken(); err != nil {
			return err
		}
	}
	return nil
}

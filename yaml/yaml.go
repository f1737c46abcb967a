// Package yaml binds the hyperspec engine to YAML, backed by gopkg.in/yaml.v3
// node trees. Binary data uses !!binary, temporals use !!timestamp.
package yaml

import (
	"io"

	"gopkg.in/yaml.v3"

	hyperspec "github.com/hyperspec/hyperspec-go"
)

// Unmarshal decodes one YAML document conforming to shape.
func Unmarshal(data []byte, shape any, opts ...hyperspec.DecodeOptions) (any, error) {
	src, err := NewBytesSource(data)
	if err != nil {
		return nil, &hyperspec.DecodeError{Err: err}
	}
	return hyperspec.Decode(shape, src, opts...)
}

// UnmarshalAs decodes one YAML document into type T.
func UnmarshalAs[T any](data []byte, opts ...hyperspec.DecodeOptions) (T, error) {
	src, err := NewBytesSource(data)
	if err != nil {
		var zero T
		return zero, &hyperspec.DecodeError{Err: err}
	}
	return hyperspec.DecodeAs[T](src, opts...)
}

// Marshal encodes v as a YAML document, shaped by its runtime type.
func Marshal(v any, opts ...hyperspec.EncodeOptions) ([]byte, error) {
	sink := NewSink()
	if err := hyperspec.Encode(v, sink, opts...); err != nil {
		return nil, err
	}
	node, err := sink.Node()
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(node)
}

// MarshalShaped encodes v as YAML under an explicit shape.
func MarshalShaped(shape any, v any, opts ...hyperspec.EncodeOptions) ([]byte, error) {
	enc, err := hyperspec.NewEncoder(shape, opts...)
	if err != nil {
		return nil, err
	}
	sink := NewSink()
	if err := enc.Encode(v, sink); err != nil {
		return nil, err
	}
	node, err := sink.Node()
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(node)
}

// StreamDecoder reads a multi-document YAML stream, validating each
// document against one shape.
type StreamDecoder struct {
	dec *hyperspec.Decoder
	yd  *yaml.Decoder
}

// NewStreamDecoder returns a stream decoder for shape over r.
func NewStreamDecoder(r io.Reader, shape any, opts ...hyperspec.DecodeOptions) (*StreamDecoder, error) {
	dec, err := hyperspec.NewDecoder(shape, opts...)
	if err != nil {
		return nil, err
	}
	return &StreamDecoder{dec: dec, yd: yaml.NewDecoder(r)}, nil
}

// Next decodes the next document. It returns io.EOF once the stream ends.
// Documents are independent, so a validation error in one does not affect
// the rest.
func (s *StreamDecoder) Next() (any, error) {
	var root yaml.Node
	if err := s.yd.Decode(&root); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, &hyperspec.DecodeError{Err: err}
	}
	src, err := NewNodeSource(&root)
	if err != nil {
		return nil, &hyperspec.DecodeError{Err: err}
	}
	return s.dec.Decode(src)
}

// Package json binds the hyperspec engine to JSON, backed by
// github.com/goccy/go-json for tokenizing and string escaping.
package json

import (
	"bytes"

	hyperspec "github.com/hyperspec/hyperspec-go"
)

// Unmarshal decodes one JSON value conforming to shape.
func Unmarshal(data []byte, shape any, opts ...hyperspec.DecodeOptions) (any, error) {
	return hyperspec.Decode(shape, NewBytesSource(data), opts...)
}

// UnmarshalAs decodes one JSON value into type T.
func UnmarshalAs[T any](data []byte, opts ...hyperspec.DecodeOptions) (T, error) {
	return hyperspec.DecodeAs[T](NewBytesSource(data), opts...)
}

// Marshal encodes v as compact JSON, shaped by its runtime type.
func Marshal(v any, opts ...hyperspec.EncodeOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := hyperspec.Encode(v, NewSink(&buf), opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalShaped encodes v as compact JSON under an explicit shape, applying
// that shape's temporal kinds and custom hooks.
func MarshalShaped(shape any, v any, opts ...hyperspec.EncodeOptions) ([]byte, error) {
	enc, err := hyperspec.NewEncoder(shape, opts...)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := enc.Encode(v, NewSink(&buf)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

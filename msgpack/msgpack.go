// Package msgpack binds the hyperspec engine to MessagePack, backed by
// github.com/vmihailenco/msgpack. Bytes, timestamps and extension values use
// their native wire representations.
package msgpack

import (
	"bytes"

	hyperspec "github.com/hyperspec/hyperspec-go"
)

// Unmarshal decodes one MessagePack value conforming to shape.
func Unmarshal(data []byte, shape any, opts ...hyperspec.DecodeOptions) (any, error) {
	return hyperspec.Decode(shape, NewBytesSource(data), opts...)
}

// UnmarshalAs decodes one MessagePack value into type T.
func UnmarshalAs[T any](data []byte, opts ...hyperspec.DecodeOptions) (T, error) {
	return hyperspec.DecodeAs[T](NewBytesSource(data), opts...)
}

// Marshal encodes v as MessagePack, shaped by its runtime type.
func Marshal(v any, opts ...hyperspec.EncodeOptions) ([]byte, error) {
	var buf bytes.Buffer
	if err := hyperspec.Encode(v, NewSink(&buf), opts...); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// MarshalShaped encodes v as MessagePack under an explicit shape.
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

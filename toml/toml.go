// Package toml binds the hyperspec engine to TOML, backed by
// github.com/pelletier/go-toml. The wire library parses into builtin trees,
// which the engine walks through the same path as wire-free conversion.
package toml

import (
	"time"

	gotoml "github.com/pelletier/go-toml/v2"

	hyperspec "github.com/hyperspec/hyperspec-go"
	"github.com/hyperspec/hyperspec-go/internal/engine"
)

// Unmarshal decodes one TOML document conforming to shape.
func Unmarshal(data []byte, shape any, opts ...hyperspec.DecodeOptions) (any, error) {
	var tree map[string]any
	if err := gotoml.Unmarshal(data, &tree); err != nil {
		return nil, &hyperspec.DecodeError{Err: err}
	}
	return hyperspec.Decode(shape, engine.NewValueSource(normalize(tree)), opts...)
}

// UnmarshalAs decodes one TOML document into type T.
func UnmarshalAs[T any](data []byte, opts ...hyperspec.DecodeOptions) (T, error) {
	var tree map[string]any
	if err := gotoml.Unmarshal(data, &tree); err != nil {
		var zero T
		return zero, &hyperspec.DecodeError{Err: err}
	}
	return hyperspec.DecodeAs[T](engine.NewValueSource(normalize(tree)), opts...)
}

// Marshal encodes v as a TOML document. The top-level value must encode as
// a table.
func Marshal(v any, opts ...hyperspec.EncodeOptions) ([]byte, error) {
	var opt hyperspec.EncodeOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	return marshalWith(nil, v, opt)
}

// MarshalShaped encodes v as TOML under an explicit shape.
func MarshalShaped(shape any, v any, opts ...hyperspec.EncodeOptions) ([]byte, error) {
	var opt hyperspec.EncodeOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	return marshalWith(shape, v, opt)
}

func marshalWith(shape any, v any, opt hyperspec.EncodeOptions) ([]byte, error) {
	enc, err := hyperspec.NewEncoder(shape, opt)
	if err != nil {
		return nil, err
	}
	sink := engine.NewValueSink(hyperspec.SinkTraits{Temporal: true})
	if err := enc.Encode(v, sink); err != nil {
		return nil, err
	}
	tree, err := sink.Value()
	if err != nil {
		return nil, err
	}
	if _, ok := tree.(map[string]any); !ok {
		return nil, &hyperspec.EncodeError{
			Code:    hyperspec.CodeUnsupported,
			Message: "toml documents require a table at the top level",
		}
	}
	return gotoml.Marshal(tree)
}

// normalize rewrites the wire library's local temporal types to time.Time so
// the engine sees one temporal representation.
func normalize(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, e := range x {
			x[k] = normalize(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = normalize(e)
		}
		return x
	case gotoml.LocalDate:
		return x.AsTime(time.UTC)
	case gotoml.LocalDateTime:
		return x.AsTime(time.UTC)
	case gotoml.LocalTime:
		return time.Date(0, time.January, 1, x.Hour, x.Minute, x.Second, x.Nanosecond, time.UTC)
	default:
		return v
	}
}

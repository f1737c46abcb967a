package hyperspec

import (
	"fmt"

	"github.com/hyperspec/hyperspec-go/internal/engine"
	"github.com/hyperspec/hyperspec-go/internal/ir"
)

// DecodeHook converts the raw decoded form of a Custom shape into its native
// value.
type DecodeHook = engine.DecodeHook

// EncodeHook converts an otherwise unencodable value into one the engine can
// represent.
type EncodeHook = engine.EncodeHook

// DecodeOptions carries decode-time policy.
type DecodeOptions struct {
	// Hook handles Custom shapes. Required when the shape contains one.
	Hook DecodeHook
	// ForbidUnknownFields rejects undeclared keys on reflected Go structs.
	ForbidUnknownFields bool
	// Limits bounds nesting depth, input size and duplicate keys.
	Limits Limits
}

// EncodeOptions carries encode-time policy.
type EncodeOptions struct {
	// Hook handles Custom shapes and otherwise unencodable values.
	Hook EncodeHook
}

// Decoder is a type description bound for repeated decoding. Compilation,
// including union ambiguity checks, happens once in NewDecoder; Decode calls
// then share the cached description. A Decoder is safe for concurrent use.
type Decoder struct {
	node *ir.Node
	cfg  engine.DecodeConfig
	lim  Limits
}

// NewDecoder compiles shape and binds opts to it.
func NewDecoder(shape any, opts ...DecodeOptions) (*Decoder, error) {
	var opt DecodeOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	node, err := ir.Default().Build(shape)
	if err != nil {
		return nil, err
	}
	if opt.Hook == nil && ir.ContainsCustom(ir.Default().Resolve(node)) {
		return nil, &ir.TypeDescriptionError{
			Shape: fmt.Sprintf("%v", shape),
			Msg:   "shape contains a custom type but no decode hook is configured",
		}
	}
	return &Decoder{
		node: node,
		cfg: engine.DecodeConfig{
			Cache:         ir.Default(),
			Hook:          opt.Hook,
			ForbidUnknown: opt.ForbidUnknownFields,
		},
		lim: opt.Limits,
	}, nil
}

// Decode reads exactly one value from src and validates it against the bound
// shape.
func (d *Decoder) Decode(src Source) (any, error) {
	return engine.Decode(engine.WrapWithLimits(src, d.lim), d.node, d.cfg)
}

// Decode compiles shape and reads one conforming value from src.
func Decode(shape any, src Source, opts ...DecodeOptions) (any, error) {
	dec, err := NewDecoder(shape, opts...)
	if err != nil {
		return nil, err
	}
	return dec.Decode(src)
}

// DecodeAs decodes one value of type T from src.
func DecodeAs[T any](src Source, opts ...DecodeOptions) (T, error) {
	v, err := Decode(TypeOf[T](), src, opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	out, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("hyperspec: decoded %T, want %T", v, zero)
	}
	return out, nil
}

// Encoder is a type description bound for repeated encoding. A nil shape
// encodes values by their runtime type. An Encoder is safe for concurrent
// use.
type Encoder struct {
	node *ir.Node
	cfg  engine.EncodeConfig
}

// NewEncoder compiles shape and binds opts to it.
func NewEncoder(shape any, opts ...EncodeOptions) (*Encoder, error) {
	var opt EncodeOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	var node *ir.Node
	if shape != nil {
		n, err := ir.Default().Build(shape)
		if err != nil {
			return nil, err
		}
		if opt.Hook == nil && ir.ContainsCustom(ir.Default().Resolve(n)) {
			return nil, &ir.TypeDescriptionError{
				Shape: fmt.Sprintf("%v", shape),
				Msg:   "shape contains a custom type but no encode hook is configured",
			}
		}
		node = n
	}
	return &Encoder{
		node: node,
		cfg:  engine.EncodeConfig{Cache: ir.Default(), Hook: opt.Hook},
	}, nil
}

// Encode writes v to sink.
func (e *Encoder) Encode(v any, sink Sink) error {
	return engine.Encode(v, sink, e.node, e.cfg)
}

// Encode writes v to sink, shaped by its runtime type.
func Encode(v any, sink Sink, opts ...EncodeOptions) error {
	enc, err := NewEncoder(nil, opts...)
	if err != nil {
		return err
	}
	return enc.Encode(v, sink)
}

// Convert validates and coerces an in-memory value against shape without
// serializing it. The same validation rules apply as when decoding from the
// wire; already-typed values pass through unchanged.
func Convert(v any, shape any, opts ...DecodeOptions) (any, error) {
	dec, err := NewDecoder(shape, opts...)
	if err != nil {
		return nil, err
	}
	return dec.Decode(engine.NewValueSource(v))
}

// ConvertAs converts v to type T.
func ConvertAs[T any](v any, opts ...DecodeOptions) (T, error) {
	out, err := Convert(v, TypeOf[T](), opts...)
	if err != nil {
		var zero T
		return zero, err
	}
	t, ok := out.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("hyperspec: converted to %T, want %T", out, zero)
	}
	return t, nil
}

// BuiltinsOptions configures ToBuiltins.
type BuiltinsOptions struct {
	// Hook handles Custom shapes and otherwise unencodable values.
	Hook EncodeHook
	// Text forces wire-text scalars: bytes become base64 strings and
	// temporal values become RFC 3339 strings, mirroring the JSON layer.
	Text bool
}

// ToBuiltins reduces v to builtin values only: string-keyed maps, []any
// slices and native scalars. Struct values become maps, sets become slices.
func ToBuiltins(v any, opts ...BuiltinsOptions) (any, error) {
	var opt BuiltinsOptions
	if len(opts) > 0 {
		opt = opts[0]
	}
	traits := SinkTraits{Binary: true, Temporal: true, Ext: true}
	if opt.Text {
		traits = SinkTraits{}
	}
	sink := engine.NewValueSink(traits)
	cfg := engine.EncodeConfig{Cache: ir.Default(), Hook: opt.Hook}
	if err := engine.Encode(v, sink, nil, cfg); err != nil {
		return nil, err
	}
	return sink.Value()
}

// ClearTypeCache drops all cached type descriptions. Mainly useful in tests
// that define many throwaway types.
func ClearTypeCache() { ir.Default().Reset() }

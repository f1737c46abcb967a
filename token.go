package hyperspec

import "github.com/hyperspec/hyperspec-go/internal/engine"

// The token contract between the engine and the per-format packages. Custom
// format integrations implement Source and Sink; everything else in this
// module consumes them.

// TokenKind identifies one primitive event.
type TokenKind = engine.Kind

const (
	TokenBeginObject = engine.KindBeginObject
	TokenEndObject   = engine.KindEndObject
	TokenBeginArray  = engine.KindBeginArray
	TokenEndArray    = engine.KindEndArray
	TokenKey         = engine.KindKey
	TokenString      = engine.KindString
	TokenNumber      = engine.KindNumber
	TokenBool        = engine.KindBool
	TokenNull        = engine.KindNull
	TokenBytes       = engine.KindBytes
	TokenTime        = engine.KindTime
	TokenExt         = engine.KindExt
	TokenValue       = engine.KindValue
)

// Token is one primitive event.
type Token = engine.Token

// Source is the pull cursor a format reader provides.
type Source = engine.TokenSource

// RawSource is optionally implemented by sources that can capture a value's
// encoded bytes verbatim.
type RawSource = engine.RawSource

// Sink is the push writer a format writer provides.
type Sink = engine.TokenSink

// RawSink is optionally implemented by sinks that can splice pre-encoded
// bytes verbatim.
type RawSink = engine.RawSink

// SinkTraits advertises a writer's native capabilities.
type SinkTraits = engine.SinkTraits

// Limits bounds resource use while decoding.
type Limits = engine.Limits

// WithLimits guards src with lim. A zero Limits returns src unchanged.
func WithLimits(src Source, lim Limits) Source {
	return engine.WrapWithLimits(src, lim)
}

// SkipValue consumes one complete value from src without materializing it.
func SkipValue(src Source) error { return engine.Skip(src) }

package engine

import (
	"time"
)

// Kind represents primitive token kinds exchanged with a wire format.
type Kind int

const (
	KindBeginObject Kind = iota
	KindEndObject
	KindBeginArray
	KindEndArray
	KindKey
	KindString
	KindNumber
	KindBool
	KindNull
	// KindBytes, KindTime and KindExt exist for formats whose type systems
	// carry these natively (binary map/array format, config formats).
	KindBytes
	KindTime
	KindExt
	// KindValue carries an already-materialized Go value; emitted by the
	// builtins bridge so conversion reuses the decode walk without wire
	// bytes.
	KindValue
)

// Token is one primitive event with an approximate input offset (-1 when
// unknown).
type Token struct {
	Kind    Kind
	Str     string // key and string payload
	Num     string // number payload as text
	Bool    bool
	Bytes   []byte
	Time    time.Time
	ExtType int8
	Value   any
	Offset  int64
}

// TokenSource is the pull-based cursor a per-format reader must satisfy.
type TokenSource interface {
	NextToken() (Token, error)
	Location() int64 // byte offset; -1 if unknown
}

// RawSource is optionally implemented by sources that can capture the next
// value's raw bytes without tokenizing it.
type RawSource interface {
	NextRaw() ([]byte, error)
}

// SinkTraits advertises a writer's format capabilities so the engine can
// pick fallback encodings (base64 for bytes, RFC 3339 for temporals) or
// reject unsupported constructs.
type SinkTraits struct {
	Binary         bool // native bytes primitive
	Temporal       bool // native timestamp primitive
	Ext            bool // extension-tagged binary
	Raw            bool // verbatim fragment splicing
	StringKeysOnly bool // map keys restricted to strings
}

// TokenSink is the push-based writer a per-format writer must satisfy.
type TokenSink interface {
	WriteToken(Token) error
	Traits() SinkTraits
}

// RawSink is optionally implemented by sinks that can splice pre-encoded
// fragments verbatim.
type RawSink interface {
	WriteRaw([]byte) error
}

// Skip consumes one complete value (scalar or balanced container) from src.
// Used to discard unknown fields and to resume streams past a bad record.
func Skip(src TokenSource) error {
	tok, err := src.NextToken()
	if err != nil {
		return err
	}
	return SkipFrom(src, tok)
}

// SkipFrom discards the value beginning at tok.
func SkipFrom(src TokenSource, tok Token) error {
	depth := 0
	for {
		switch tok.Kind {
		case KindBeginObject, KindBeginArray:
			depth++
		case KindEndObject, KindEndArray:
			depth--
		}
		if depth <= 0 {
			return nil
		}
		var err error
		tok, err = src.NextToken()
		if err != nil {
			return err
		}
	}
}

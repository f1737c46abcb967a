package hyperspec

import (
	"errors"

	"github.com/hyperspec/hyperspec-go/internal/engine"
	"github.com/hyperspec/hyperspec-go/internal/ir"
)

// ValidationError reports well-formed input that does not conform to the
// requested type. Path locates the single violating value, e.g.
// `$.groups[0]`.
type ValidationError = engine.ValidationError

// DecodeError reports input that is not well formed for its wire format.
type DecodeError = engine.DecodeError

// EncodeError reports a value that cannot be represented in the target
// format.
type EncodeError = engine.EncodeError

// TypeDescriptionError reports a shape that cannot be compiled into a type
// description, including ambiguous unions.
type TypeDescriptionError = ir.TypeDescriptionError

// Stable machine-readable codes carried by ValidationError and EncodeError.
const (
	CodeInvalidType   = engine.CodeInvalidType
	CodeRequired      = engine.CodeRequired
	CodeUnknownField  = engine.CodeUnknownField
	CodeUnexpected    = engine.CodeUnexpected
	CodeTooSmall      = engine.CodeTooSmall
	CodeTooBig        = engine.CodeTooBig
	CodeTooShort      = engine.CodeTooShort
	CodeTooLong       = engine.CodeTooLong
	CodePattern       = engine.CodePattern
	CodeInvalidEnum   = engine.CodeInvalidEnum
	CodeInvalidFormat = engine.CodeInvalidFormat
	CodeWrongLength   = engine.CodeWrongLength
	CodeMalformed     = engine.CodeMalformed
	CodeTruncated     = engine.CodeTruncated
	CodeDuplicateKey  = engine.CodeDuplicateKey
	CodeMaxDepth      = engine.CodeMaxDepth
	CodeUnsupported   = engine.CodeUnsupported
	CodeMissingHook   = engine.CodeMissingHook
	CodeFrozen        = engine.CodeFrozen
)

// AsValidationError unwraps err to a *ValidationError when one is in the
// chain.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// AsDecodeError unwraps err to a *DecodeError when one is in the chain.
func AsDecodeError(err error) (*DecodeError, bool) {
	var de *DecodeError
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

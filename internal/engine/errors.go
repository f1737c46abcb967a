package engine

import "fmt"

// Error codes shared across the error categories.
const (
	CodeInvalidType   = "invalid_type"
	CodeRequired      = "required"
	CodeUnknownField  = "unknown_field"
	CodeUnexpected    = "unexpected_field"
	CodeTooSmall      = "too_small"
	CodeTooBig        = "too_big"
	CodeTooShort      = "too_short"
	CodeTooLong       = "too_long"
	CodePattern       = "pattern"
	CodeInvalidEnum   = "invalid_enum"
	CodeInvalidFormat = "invalid_format"
	CodeWrongLength   = "wrong_length"
	CodeMalformed     = "malformed"
	CodeTruncated     = "truncated"
	CodeDuplicateKey  = "duplicate_key"
	CodeMaxDepth      = "max_depth"
	CodeUnsupported   = "unsupported"
	CodeMissingHook   = "missing_hook"
	CodeFrozen        = "frozen"
)

// ValidationError reports well-formed wire data that does not conform to the
// requested type description. It always carries the structural path of the
// single violating location.
type ValidationError struct {
	Path     string
	Code     string
	Message  string
	Expected string
	Actual   string
	Offset   int64
}

func (e *ValidationError) Error() string {
	msg := e.Message
	if msg == "" && e.Expected != "" {
		msg = fmt.Sprintf("expected `%s`, got `%s`", e.Expected, e.Actual)
	}
	return fmt.Sprintf("%s - at `%s`", msg, e.Path)
}

// DecodeError reports malformed wire syntax: the bytes are not well formed
// for the claimed format. It wraps the format library's own error when one
// exists.
type DecodeError struct {
	Message string
	Offset  int64
	Err     error
}

func (e *DecodeError) Error() string {
	if e.Message != "" {
		return "hyperspec: " + e.Message
	}
	return "hyperspec: malformed input: " + e.Err.Error()
}

func (e *DecodeError) Unwrap() error { return e.Err }

// EncodeError reports a native value that cannot be represented in the
// target format.
type EncodeError struct {
	Path    string
	Code    string
	Message string
}

func (e *EncodeError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s - at `%s`", e.Message, e.Path)
	}
	return e.Message
}

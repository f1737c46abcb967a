package ir

import "fmt"

// TypeDescriptionError reports an invalid shape at introspection time. It is
// always fatal to that shape's registration and never raised mid-decode.
type TypeDescriptionError struct {
	Shape string
	Msg   string
}

func (e *TypeDescriptionError) Error() string {
	if e.Shape != "" {
		return fmt.Sprintf("hyperspec: invalid type description for %s: %s", e.Shape, e.Msg)
	}
	return "hyperspec: invalid type description: " + e.Msg
}

func descErrf(shape string, format string, args ...any) error {
	return &TypeDescriptionError{Shape: shape, Msg: fmt.Sprintf(format, args...)}
}

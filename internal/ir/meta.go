package ir

import (
	"fmt"
	"regexp"
)

// Meta carries optional constraints and documentation attached to a node.
// Numeric bounds apply to int/float kinds, length/pattern to str, item
// bounds to collections. Build rejects constraints on incompatible kinds.
type Meta struct {
	GE         *float64
	GT         *float64
	LE         *float64
	LT         *float64
	MultipleOf *float64

	MinLength *int
	MaxLength *int
	Pattern   string

	MinItems *int
	MaxItems *int

	Title       string
	Description string

	re *regexp.Regexp
}

// compile validates internal consistency and compiles the pattern.
func (m *Meta) compile() error {
	if m.Pattern != "" {
		re, err := regexp.Compile(m.Pattern)
		if err != nil {
			return fmt.Errorf("invalid pattern %q: %w", m.Pattern, err)
		}
		m.re = re
	}
	return nil
}

// Regexp returns the compiled pattern, or nil when none is set.
func (m *Meta) Regexp() *regexp.Regexp { return m.re }

func (m *Meta) hasNumeric() bool {
	return m.GE != nil || m.GT != nil || m.LE != nil || m.LT != nil || m.MultipleOf != nil
}

func (m *Meta) hasString() bool {
	return m.MinLength != nil || m.MaxLength != nil || m.Pattern != ""
}

func (m *Meta) hasItems() bool {
	return m.MinItems != nil || m.MaxItems != nil
}

// metaAllowed reports whether the constraint groups set on m are meaningful
// for the node kind k.
func metaAllowed(m *Meta, k Kind) bool {
	if m == nil {
		return true
	}
	if m.hasNumeric() {
		switch k {
		case KindInt, KindFloat, KindDecimal:
		default:
			return false
		}
	}
	if m.hasString() {
		switch k {
		case KindStr, KindBytes:
		default:
			return false
		}
	}
	if m.hasItems() {
		switch k {
		case KindList, KindSet, KindFrozenSet, KindVarTuple, KindDict:
		default:
			return false
		}
	}
	return true
}

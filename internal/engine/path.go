package engine

import (
	"strconv"
	"strings"
)

// pathSeg is one structural step: a field/key name or a sequence index.
type pathSeg struct {
	key   string
	index int
	isKey bool
}

// Path accumulates the structural location during a traversal. Segments are
// pushed and popped as the walk descends; rendering happens lazily, only
// when an error is produced.
type Path struct {
	segs []pathSeg
}

// Reset clears the tracker for reuse across calls on one bound instance.
func (p *Path) Reset() { p.segs = p.segs[:0] }

// Field descends into a named field or mapping key.
func (p *Path) Field(name string) { p.segs = append(p.segs, pathSeg{key: name, isKey: true}) }

// Index descends into sequence position i.
func (p *Path) Index(i int) { p.segs = append(p.segs, pathSeg{index: i}) }

// Pop leaves the current segment.
func (p *Path) Pop() { p.segs = p.segs[:len(p.segs)-1] }

// String renders the canonical path: `$` root, `.name` per field, `[i]` per
// index, e.g. `$.groups[0]`.
func (p *Path) String() string {
	var b strings.Builder
	b.WriteByte('$')
	for _, s := range p.segs {
		if s.isKey {
			b.WriteByte('.')
			b.WriteString(s.key)
		} else {
			b.WriteByte('[')
			b.WriteString(strconv.Itoa(s.index))
			b.WriteByte(']')
		}
	}
	return b.String()
}

package engine

// Streaming enforcement wrapper: duplicate key rejection, maximum nesting
// depth and maximum consumed bytes, applied to any token source before the
// typed walk sees it.

// Limits bounds resource use while decoding. Zero values disable the
// corresponding check.
type Limits struct {
	MaxDepth            int
	MaxBytes            int64
	RejectDuplicateKeys bool
}

func (l Limits) enabled() bool {
	return l.MaxDepth > 0 || l.MaxBytes > 0 || l.RejectDuplicateKeys
}

type limitFrame struct {
	object       bool
	keys         map[string]struct{}
	expectingKey bool
	keyOnPath    bool
}

type limitedSource struct {
	inner TokenSource
	lim   Limits
	stack []limitFrame
	path  Path
}

// WrapWithLimits returns src guarded by lim. When no limit is set src is
// returned unchanged so the hot path stays wrapper-free.
func WrapWithLimits(src TokenSource, lim Limits) TokenSource {
	if !lim.enabled() {
		return src
	}
	return &limitedSource{inner: src, lim: lim}
}

func (e *limitedSource) Location() int64 { return e.inner.Location() }

// NextRaw forwards raw capture so limits do not disable raw fragments.
// MaxBytes still applies through the post-capture offset check.
func (e *limitedSource) NextRaw() ([]byte, error) {
	rs, ok := e.inner.(RawSource)
	if !ok {
		return nil, &DecodeError{Message: "raw fragments are not supported by this format", Offset: e.inner.Location()}
	}
	b, err := rs.NextRaw()
	if err != nil {
		return nil, err
	}
	if err := e.checkBytes(); err != nil {
		return nil, err
	}
	e.valueDone()
	return b, nil
}

func (e *limitedSource) NextToken() (Token, error) {
	tok, err := e.inner.NextToken()
	if err != nil {
		return Token{}, err
	}

	switch tok.Kind {
	case KindBeginObject:
		if err := e.push(true, tok); err != nil {
			return Token{}, err
		}
	case KindBeginArray:
		if err := e.push(false, tok); err != nil {
			return Token{}, err
		}
	case KindEndObject, KindEndArray:
		if n := len(e.stack); n > 0 {
			e.stack = e.stack[:n-1]
		}
		e.valueDone()
	case KindKey:
		if err := e.key(tok.Str, tok); err != nil {
			return Token{}, err
		}
	default:
		// Binary and builtin sources deliver object keys as plain scalar
		// tokens.
		if n := len(e.stack); n > 0 && e.stack[n-1].object && e.stack[n-1].expectingKey {
			switch tok.Kind {
			case KindString:
				if err := e.key(tok.Str, tok); err != nil {
					return Token{}, err
				}
			case KindValue:
				if s, ok := tok.Value.(string); ok {
					if err := e.key(s, tok); err != nil {
						return Token{}, err
					}
				} else {
					e.stack[n-1].expectingKey = false
				}
			default:
				e.stack[n-1].expectingKey = false
			}
			break
		}
		e.valueDone()
	}

	if err := e.checkBytes(); err != nil {
		return Token{}, err
	}
	return tok, nil
}

func (e *limitedSource) push(object bool, tok Token) error {
	f := limitFrame{object: object, expectingKey: object}
	if object && e.lim.RejectDuplicateKeys {
		f.keys = map[string]struct{}{}
	}
	e.stack = append(e.stack, f)
	if e.lim.MaxDepth > 0 && len(e.stack) > e.lim.MaxDepth {
		return &DecodeError{
			Message: "maximum nesting depth exceeded",
			Offset:  tok.Offset,
		}
	}
	return nil
}

func (e *limitedSource) key(k string, tok Token) error {
	top := &e.stack[len(e.stack)-1]
	if e.lim.RejectDuplicateKeys {
		if _, dup := top.keys[k]; dup {
			e.path.Field(k)
			verr := &ValidationError{
				Path:    e.path.String(),
				Code:    CodeDuplicateKey,
				Message: "object contains duplicate field `" + k + "`",
				Offset:  tok.Offset,
			}
			e.path.Pop()
			return verr
		}
		top.keys[k] = struct{}{}
	}
	top.expectingKey = false
	top.keyOnPath = true
	e.path.Field(k)
	return nil
}

// valueDone marks one value complete inside the enclosing container, keeping
// the key expectation in step with the stream.
func (e *limitedSource) valueDone() {
	n := len(e.stack)
	if n == 0 {
		return
	}
	top := &e.stack[n-1]
	if top.object && !top.expectingKey {
		top.expectingKey = true
		if top.keyOnPath {
			top.keyOnPath = false
			e.path.Pop()
		}
	}
}

func (e *limitedSource) checkBytes() error {
	if e.lim.MaxBytes <= 0 {
		return nil
	}
	if off := e.inner.Location(); off >= 0 && off > e.lim.MaxBytes {
		return &DecodeError{
			Offset:  off,
			Message: "input exceeds the configured byte limit",
		}
	}
	return nil
}

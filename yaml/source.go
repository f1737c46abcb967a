package yaml

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	hyperspec "github.com/hyperspec/hyperspec-go"
)

// source walks a parsed yaml.Node tree. The document is already in memory,
// so the token stream is flattened up front; Location reports the input
// line of the current token.
type source struct {
	toks []hyperspec.Token
	i    int
	line int64
}

// NewNodeSource wraps a parsed YAML node into a token source.
func NewNodeSource(n *yaml.Node) (hyperspec.Source, error) {
	s := &source{}
	if err := s.flatten(n); err != nil {
		return nil, err
	}
	return s, nil
}

// NewBytesSource parses one YAML document into a token source.
func NewBytesSource(data []byte) (hyperspec.Source, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, err
	}
	if root.Kind == 0 {
		return nil, fmt.Errorf("yaml: empty document")
	}
	return NewNodeSource(&root)
}

func (s *source) NextToken() (hyperspec.Token, error) {
	if s.i >= len(s.toks) {
		return hyperspec.Token{}, io.EOF
	}
	tok := s.toks[s.i]
	s.i++
	s.line = tok.Offset
	return tok, nil
}

// Location reports a line number rather than a byte offset; the parser does
// not expose offsets.
func (s *source) Location() int64 { return s.line }

func (s *source) flatten(n *yaml.Node) error {
	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return fmt.Errorf("yaml: empty document")
		}
		return s.flatten(n.Content[0])
	case yaml.AliasNode:
		return s.flatten(n.Alias)
	case yaml.MappingNode:
		s.emit(hyperspec.Token{Kind: hyperspec.TokenBeginObject, Offset: int64(n.Line)})
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i]
			if key.Kind == yaml.ScalarNode && isStringTag(key.Tag) {
				s.emit(hyperspec.Token{Kind: hyperspec.TokenKey, Str: key.Value, Offset: int64(key.Line)})
			} else if err := s.flatten(key); err != nil {
				return err
			}
			if err := s.flatten(n.Content[i+1]); err != nil {
				return err
			}
		}
		s.emit(hyperspec.Token{Kind: hyperspec.TokenEndObject, Offset: int64(n.Line)})
		return nil
	case yaml.SequenceNode:
		s.emit(hyperspec.Token{Kind: hyperspec.TokenBeginArray, Offset: int64(n.Line)})
		for _, c := range n.Content {
			if err := s.flatten(c); err != nil {
				return err
			}
		}
		s.emit(hyperspec.Token{Kind: hyperspec.TokenEndArray, Offset: int64(n.Line)})
		return nil
	case yaml.ScalarNode:
		return s.scalar(n)
	default:
		return fmt.Errorf("yaml: unsupported node kind %d at line %d", n.Kind, n.Line)
	}
}

func (s *source) scalar(n *yaml.Node) error {
	line := int64(n.Line)
	switch n.Tag {
	case "!!null":
		s.emit(hyperspec.Token{Kind: hyperspec.TokenNull, Offset: line})
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return err
		}
		s.emit(hyperspec.Token{Kind: hyperspec.TokenBool, Bool: b, Offset: line})
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			// Large unsigned values overflow int64.
			var u uint64
			if uerr := n.Decode(&u); uerr != nil {
				return err
			}
			s.emit(hyperspec.Token{
				Kind:   hyperspec.TokenNumber,
				Num:    strconv.FormatUint(u, 10),
				Value:  u,
				Offset: line,
			})
			return nil
		}
		s.emit(hyperspec.Token{
			Kind:   hyperspec.TokenNumber,
			Num:    strconv.FormatInt(i, 10),
			Value:  i,
			Offset: line,
		})
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return err
		}
		s.emit(hyperspec.Token{
			Kind:   hyperspec.TokenNumber,
			Num:    strconv.FormatFloat(f, 'g', -1, 64),
			Value:  f,
			Offset: line,
		})
	case "!!binary":
		// yaml.v3 resolves !!binary only into string (the base64-decoded
		// raw bytes), never into []byte.
		var b string
		if err := n.Decode(&b); err != nil {
			return err
		}
		s.emit(hyperspec.Token{Kind: hyperspec.TokenBytes, Bytes: []byte(b), Offset: line})
	case "!!timestamp":
		var t time.Time
		if err := n.Decode(&t); err != nil {
			return err
		}
		s.emit(hyperspec.Token{Kind: hyperspec.TokenTime, Time: t, Offset: line})
	default:
		s.emit(hyperspec.Token{Kind: hyperspec.TokenString, Str: n.Value, Offset: line})
	}
	return nil
}

func (s *source) emit(tok hyperspec.Token) { s.toks = append(s.toks, tok) }

func isStringTag(tag string) bool {
	return tag == "" || tag == "!!str"
}

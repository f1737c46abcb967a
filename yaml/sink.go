package yaml

import (
	"encoding/base64"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"

	hyperspec "github.com/hyperspec/hyperspec-go"
)

// NodeSink builds a yaml.Node tree from encode events; Node returns the
// finished tree for marshaling.
type NodeSink struct {
	stack []*yaml.Node
	root  *yaml.Node
}

// NewSink returns a token sink collecting into a YAML node tree.
func NewSink() *NodeSink { return &NodeSink{} }

func (s *NodeSink) Traits() hyperspec.SinkTraits {
	return hyperspec.SinkTraits{Binary: true, Temporal: true}
}

// Node returns the collected tree after a complete encode.
func (s *NodeSink) Node() (*yaml.Node, error) {
	if s.root == nil || len(s.stack) != 0 {
		return nil, fmt.Errorf("yaml: incomplete value")
	}
	return s.root, nil
}

func (s *NodeSink) WriteToken(tok hyperspec.Token) error {
	switch tok.Kind {
	case hyperspec.TokenBeginObject:
		s.stack = append(s.stack, &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"})
		return nil
	case hyperspec.TokenBeginArray:
		s.stack = append(s.stack, &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"})
		return nil
	case hyperspec.TokenEndObject, hyperspec.TokenEndArray:
		n := len(s.stack)
		if n == 0 {
			return fmt.Errorf("yaml: unbalanced container close")
		}
		top := s.stack[n-1]
		s.stack = s.stack[:n-1]
		return s.place(top)
	case hyperspec.TokenKey:
		return s.place(scalarNode("!!str", tok.Str))
	case hyperspec.TokenString:
		return s.place(scalarNode("!!str", tok.Str))
	case hyperspec.TokenNumber:
		tag := "!!int"
		if _, isFloat := tok.Value.(float64); isFloat {
			tag = "!!float"
		}
		return s.place(scalarNode(tag, tok.Num))
	case hyperspec.TokenBool:
		if tok.Bool {
			return s.place(scalarNode("!!bool", "true"))
		}
		return s.place(scalarNode("!!bool", "false"))
	case hyperspec.TokenNull:
		return s.place(scalarNode("!!null", "null"))
	case hyperspec.TokenBytes:
		return s.place(scalarNode("!!binary", base64.StdEncoding.EncodeToString(tok.Bytes)))
	case hyperspec.TokenTime:
		return s.place(scalarNode("!!timestamp", tok.Time.UTC().Format(time.RFC3339Nano)))
	default:
		return fmt.Errorf("yaml: unsupported token kind %d", tok.Kind)
	}
}

func (s *NodeSink) place(n *yaml.Node) error {
	if len(s.stack) == 0 {
		if s.root != nil {
			return fmt.Errorf("yaml: multiple root values")
		}
		s.root = n
		return nil
	}
	top := s.stack[len(s.stack)-1]
	top.Content = append(top.Content, n)
	return nil
}

func scalarNode(tag, value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: value}
}

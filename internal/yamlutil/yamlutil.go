// Package yamlutil provides helpers for working with multi-document YAML
// streams as yaml.Node trees.
//
// Working on nodes instead of map[string]any keeps mapping key order, scalar
// literal forms, and comments intact across a read-modify-write cycle, which
// matters when the output is committed back to a repository and diffed.
package yamlutil

import (
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// DecodeStream decodes all documents from a multi-document YAML stream.
// Each returned node is the document root (the node below the document
// marker). Explicitly empty documents are preserved as null scalar nodes so
// document positions stay aligned.
func DecodeStream(r io.Reader) ([]*yaml.Node, error) {
	var docs []*yaml.Node

	dec := yaml.NewDecoder(r)
	for {
		var n yaml.Node
		err := dec.Decode(&n)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode document %d: %w", len(docs), err)
		}
		docs = append(docs, unwrap(&n))
	}

	return docs, nil
}

// EncodeStream writes documents back out as a multi-document YAML stream
// separated by document markers.
func EncodeStream(w io.Writer, docs []*yaml.Node) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	for i, doc := range docs {
		if doc == nil {
			doc = NullNode()
		}
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("encode document %d: %w", i, err)
		}
	}

	return enc.Close()
}

// unwrap returns the root content node of a document node.
// Empty documents come back as zero nodes; normalize those to null scalars.
func unwrap(n *yaml.Node) *yaml.Node {
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		return n.Content[0]
	}
	if n.Kind == 0 {
		return NullNode()
	}
	return n
}

// DeepCopy returns a recursive copy of the node tree.
// Scalars keep their tag, literal value, and style.
func DeepCopy(n *yaml.Node) *yaml.Node {
	if n == nil {
		return nil
	}

	out := *n
	if len(n.Content) > 0 {
		out.Content = make([]*yaml.Node, len(n.Content))
		for i, c := range n.Content {
			out.Content[i] = DeepCopy(c)
		}
	}
	return &out
}

// IsNull reports whether the node represents a YAML null (including empty
// documents and empty sequence items).
func IsNull(n *yaml.Node) bool {
	if n == nil || n.Kind == 0 {
		return true
	}
	return n.Kind == yaml.ScalarNode && n.Tag == "!!null"
}

// NullNode returns a fresh null scalar node.
func NullNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
}

// StringNode returns a fresh string scalar node.
func StringNode(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value}
}

// IntNode returns a fresh integer scalar node.
func IntNode(value int) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: fmt.Sprintf("%d", value)}
}

// EmptyMapNode returns a fresh empty mapping node.
func EmptyMapNode() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
}

// MapGet returns the value node for key in a mapping node, or nil if the node
// is not a mapping or the key is absent.
func MapGet(n *yaml.Node, key string) *yaml.Node {
	if n == nil || n.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			return n.Content[i+1]
		}
	}
	return nil
}

// MapGetPath walks nested mappings along the given keys and returns the final
// value node, or nil if any step is missing.
func MapGetPath(n *yaml.Node, keys ...string) *yaml.Node {
	for _, key := range keys {
		n = MapGet(n, key)
		if n == nil {
			return nil
		}
	}
	return n
}

// MapSet sets key to value in a mapping node, replacing an existing entry or
// appending a new one.
func MapSet(n *yaml.Node, key string, value *yaml.Node) {
	if n == nil || n.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			n.Content[i+1] = value
			return
		}
	}
	n.Content = append(n.Content, StringNode(key), value)
}

// MapDelete removes key from a mapping node if present.
func MapDelete(n *yaml.Node, key string) {
	if n == nil || n.Kind != yaml.MappingNode {
		return
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value == key {
			n.Content = append(n.Content[:i], n.Content[i+2:]...)
			return
		}
	}
}

package overlay

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/quayops/stevedore/internal/yamlutil"
)

const (
	// DefaultDeleteMarker is the literal scalar form that marks a key for
	// deletion in an override mapping.
	DefaultDeleteMarker = "~"

	// DefaultMaxDepth bounds merge recursion. Kubernetes manifests sit well
	// below this; the guard exists for malformed or adversarial overrides.
	DefaultMaxDepth = 200
)

// Merger merges override document streams into base document streams.
// The zero value is not usable; construct with NewMerger and adjust fields
// before the first MergeStream call.
type Merger struct {
	// DeleteMarker is the literal form of the deletion sentinel. Only a plain
	// (unquoted) scalar written exactly this way deletes a key; a quoted "~"
	// is an ordinary string value.
	DeleteMarker string

	// Permissive controls what happens when the override stream is longer
	// than the base stream. When false (the default) the merge fails with an
	// AlignmentError. When true, each extra override document is merged onto
	// an implicit empty document and appended to the output.
	Permissive bool

	// MaxDepth bounds recursion over nested mappings and sequences.
	MaxDepth int
}

// NewMerger returns a Merger with default sentinel and depth settings.
func NewMerger() *Merger {
	return &Merger{
		DeleteMarker: DefaultDeleteMarker,
		MaxDepth:     DefaultMaxDepth,
	}
}

// Result holds the merged document stream and any non-fatal warnings
// collected along the way.
type Result struct {
	// Docs is the merged document stream. Its length equals the base stream
	// length, or the override stream length in permissive mode when the
	// override stream is longer.
	Docs []*yaml.Node

	// Warnings lists resolvable conflicts encountered during the merge.
	Warnings []Warning
}

// MergeStream merges the override stream into the base stream positionally:
// override document N merges into base document N. A null or missing override
// document leaves the base document untouched. Neither input is mutated.
func (m *Merger) MergeStream(base, overrides []*yaml.Node) (*Result, error) {
	if len(overrides) > len(base) && !m.Permissive {
		return nil, &AlignmentError{BaseDocs: len(base), OverrideDocs: len(overrides)}
	}

	res := &Result{}

	total := len(base)
	if len(overrides) > total {
		total = len(overrides)
	}

	for i := 0; i < total; i++ {
		var b, o *yaml.Node
		if i < len(base) {
			b = base[i]
		}
		if i < len(overrides) {
			o = overrides[i]
		}

		// A null override document is a positional skip.
		if yamlutil.IsNull(o) {
			if b == nil {
				res.Docs = append(res.Docs, yamlutil.NullNode())
			} else {
				res.Docs = append(res.Docs, yamlutil.DeepCopy(b))
			}
			continue
		}

		// Permissive mode: a missing base document behaves as an empty mapping,
		// so the override becomes the full document.
		if b == nil {
			b = yamlutil.EmptyMapNode()
		}

		merged, err := m.mergeValue(b, o, i, "", 0, res)
		if err != nil {
			return nil, err
		}
		res.Docs = append(res.Docs, merged)
	}

	return res, nil
}

// MergeDocument merges a single override document into a single base
// document, returning the merged document and any warnings.
func (m *Merger) MergeDocument(base, override *yaml.Node) (*yaml.Node, []Warning, error) {
	res, err := m.MergeStream([]*yaml.Node{base}, []*yaml.Node{override})
	if err != nil {
		return nil, nil, err
	}
	return res.Docs[0], res.Warnings, nil
}

// mergeValue is the type-dispatched recursive merge:
// mapping x mapping and sequence x sequence merge structurally, everything
// else is full replacement by the override value.
func (m *Merger) mergeValue(base, override *yaml.Node, doc int, path string, depth int, res *Result) (*yaml.Node, error) {
	if depth > m.maxDepth() {
		return nil, fmt.Errorf("%w at document %d path %q", ErrMaxDepth, doc, path)
	}

	switch {
	case base.Kind == yaml.MappingNode && override.Kind == yaml.MappingNode:
		return m.mergeMapping(base, override, doc, path, depth, res)
	case base.Kind == yaml.SequenceNode && override.Kind == yaml.SequenceNode:
		return m.mergeSequence(base, override, doc, path, depth, res)
	default:
		return yamlutil.DeepCopy(override), nil
	}
}

// mergeMapping merges two mapping nodes. Base key order is preserved;
// override-only keys are appended in override order.
func (m *Merger) mergeMapping(base, override *yaml.Node, doc int, path string, depth int, res *Result) (*yaml.Node, error) {
	out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Style: base.Style}

	for i := 0; i+1 < len(base.Content); i += 2 {
		key, baseVal := base.Content[i], base.Content[i+1]
		overrideVal := yamlutil.MapGet(override, key.Value)

		if overrideVal == nil {
			out.Content = append(out.Content, yamlutil.DeepCopy(key), yamlutil.DeepCopy(baseVal))
			continue
		}

		if m.isDeleteMarker(overrideVal) {
			// Key removed from the result entirely.
			continue
		}

		merged, err := m.mergeValue(baseVal, overrideVal, doc, childPath(path, key.Value), depth+1, res)
		if err != nil {
			return nil, err
		}
		out.Content = append(out.Content, yamlutil.DeepCopy(key), merged)
	}

	for i := 0; i+1 < len(override.Content); i += 2 {
		key, overrideVal := override.Content[i], override.Content[i+1]
		if yamlutil.MapGet(base, key.Value) != nil {
			continue
		}

		if m.isDeleteMarker(overrideVal) {
			res.Warnings = append(res.Warnings, Warning{
				Reason:  WarnDeleteMissingKey,
				Doc:     doc,
				Path:    childPath(path, key.Value),
				Message: fmt.Sprintf("cannot delete key %q: not present in base", key.Value),
			})
			continue
		}

		// New keys merge against an implicit empty base so that nested
		// sentinels inside them are still processed.
		merged, err := m.mergeAgainstEmpty(overrideVal, doc, childPath(path, key.Value), depth+1, res)
		if err != nil {
			return nil, err
		}
		out.Content = append(out.Content, yamlutil.DeepCopy(key), merged)
	}

	return out, nil
}

// mergeSequence merges two sequence nodes by index. A null override element
// keeps the base element at that index; elements past the override length are
// kept from the base; elements past the base length are appended.
func (m *Merger) mergeSequence(base, override *yaml.Node, doc int, path string, depth int, res *Result) (*yaml.Node, error) {
	out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Style: base.Style}

	total := len(base.Content)
	if len(override.Content) > total {
		total = len(override.Content)
	}

	for j := 0; j < total; j++ {
		elemPath := fmt.Sprintf("%s[%d]", path, j)

		if j >= len(override.Content) {
			out.Content = append(out.Content, yamlutil.DeepCopy(base.Content[j]))
			continue
		}

		overrideVal := override.Content[j]

		if yamlutil.IsNull(overrideVal) {
			if j < len(base.Content) {
				out.Content = append(out.Content, yamlutil.DeepCopy(base.Content[j]))
			} else {
				// Trailing skip sentinels beyond the base length produce no element.
				res.Warnings = append(res.Warnings, Warning{
					Reason:  WarnSkipBeyondBase,
					Doc:     doc,
					Path:    elemPath,
					Message: fmt.Sprintf("skip sentinel at index %d is beyond the base sequence (length %d)", j, len(base.Content)),
				})
			}
			continue
		}

		if j >= len(base.Content) {
			merged, err := m.mergeAgainstEmpty(overrideVal, doc, elemPath, depth+1, res)
			if err != nil {
				return nil, err
			}
			out.Content = append(out.Content, merged)
			continue
		}

		merged, err := m.mergeValue(base.Content[j], overrideVal, doc, elemPath, depth+1, res)
		if err != nil {
			return nil, err
		}
		out.Content = append(out.Content, merged)
	}

	return out, nil
}

// mergeAgainstEmpty merges an override value that has no base counterpart
// against an implicit empty base of matching kind, so nested deletion and
// skip sentinels are resolved instead of leaking into the output.
func (m *Merger) mergeAgainstEmpty(override *yaml.Node, doc int, path string, depth int, res *Result) (*yaml.Node, error) {
	switch override.Kind {
	case yaml.MappingNode:
		return m.mergeMapping(yamlutil.EmptyMapNode(), override, doc, path, depth, res)
	case yaml.SequenceNode:
		empty := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		return m.mergeSequence(empty, override, doc, path, depth, res)
	default:
		return yamlutil.DeepCopy(override), nil
	}
}

// isDeleteMarker reports whether the node is the deletion sentinel: a plain
// scalar whose literal form equals the configured marker. Quoting the marker
// turns it back into an ordinary value.
func (m *Merger) isDeleteMarker(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.Style == 0 && n.Value == m.DeleteMarker
}

func (m *Merger) maxDepth() int {
	if m.MaxDepth > 0 {
		return m.MaxDepth
	}
	return DefaultMaxDepth
}

// childPath appends a mapping key to a dotted key path.
func childPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

package adapter

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"regexp"

	"gopkg.in/yaml.v3"

	m "ultraclean.dev/pkg/ultraclean/internal/model"
)

const (
	mergeTag      = "!!merge"
	maxAliasDepth = 64
)

// lineFieldPattern matches one "key: value" line for the heuristic decoder.
var lineFieldPattern = regexp.MustCompile(`^\s*([A-Za-z0-9_\-\.]+)\s*:\s*(.+?)\s*$`)

// YAMLDocAdapter decodes structured layout documents into DocNode trees.
type YAMLDocAdapter interface {
	// Decode parses every document of a multi-document stream. Null documents
	// are dropped.
	Decode(path m.Path, src []byte) ([]*m.DocNode, error)

	// DecodeLines extracts "key: value" lines into one flat mapping, ignoring
	// nesting. It returns nil when no line matches.
	DecodeLines(src []byte) *m.DocNode
}

// LocalYAMLDocAdapter implements YAMLDocAdapter with gopkg.in/yaml.v3.
type LocalYAMLDocAdapter struct{}

// NewLocalYAMLDocAdapter constructs a LocalYAMLDocAdapter.
func NewLocalYAMLDocAdapter() *LocalYAMLDocAdapter {
	return &LocalYAMLDocAdapter{}
}

// Decode walks the yaml.Node form so mapping order, anchors and merge keys
// survive conversion.
func (a *LocalYAMLDocAdapter) Decode(path m.Path, src []byte) ([]*m.DocNode, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(src))

	var docs []*m.DocNode

	for {
		var node yaml.Node

		err := decoder.Decode(&node)
		if errors.Is(err, io.EOF) {
			break
		}

		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}

		doc, err := convertYAMLNode(&node, 0)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}

		if doc.IsNull() {
			continue
		}

		docs = append(docs, doc)
	}

	return docs, nil
}

// DecodeLines keeps the first position of a repeated key and its last value.
func (a *LocalYAMLDocAdapter) DecodeLines(src []byte) *m.DocNode {
	doc := &m.DocNode{Kind: m.DocMapping}
	index := map[string]int{}

	scanner := bufio.NewScanner(bytes.NewReader(src))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		match := lineFieldPattern.FindStringSubmatch(scanner.Text())
		if match == nil {
			continue
		}

		value := &m.DocNode{Kind: m.DocScalar, Tag: m.TagStr, Value: match[2]}
		putEntry(doc, index, match[1], value)
	}

	if len(doc.Keys) == 0 {
		return nil
	}

	return doc
}

func convertYAMLNode(n *yaml.Node, depth int) (*m.DocNode, error) {
	if depth > maxAliasDepth {
		return nil, fmt.Errorf("alias nesting deeper than %d", maxAliasDepth)
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return &m.DocNode{Kind: m.DocScalar, Tag: m.TagNull}, nil
		}

		return convertYAMLNode(n.Content[0], depth+1)
	case yaml.AliasNode:
		if n.Alias == nil {
			return &m.DocNode{Kind: m.DocScalar, Tag: m.TagNull}, nil
		}

		return convertYAMLNode(n.Alias, depth+1)
	case yaml.SequenceNode:
		out := &m.DocNode{Kind: m.DocSequence, Tag: n.ShortTag()}

		for _, item := range n.Content {
			child, err := convertYAMLNode(item, depth+1)
			if err != nil {
				return nil, err
			}

			out.Children = append(out.Children, child)
		}

		return out, nil
	case yaml.MappingNode:
		return convertYAMLMapping(n, depth)
	default:
		return &m.DocNode{Kind: m.DocScalar, Tag: n.ShortTag(), Value: n.Value}, nil
	}
}

// convertYAMLMapping resolves merge keys: merged entries come first, sources
// listed earlier win over later ones and explicit keys win over all of them.
func convertYAMLMapping(n *yaml.Node, depth int) (*m.DocNode, error) {
	var merged, explicit [][2]*yaml.Node

	for i := 0; i+1 < len(n.Content); i += 2 {
		key, value := n.Content[i], n.Content[i+1]
		if key.ShortTag() != mergeTag {
			explicit = append(explicit, [2]*yaml.Node{key, value})
			continue
		}

		sources := []*yaml.Node{value}
		if resolveAlias(value).Kind == yaml.SequenceNode {
			sources = resolveAlias(value).Content
		}

		for j := len(sources) - 1; j >= 0; j-- {
			source := resolveAlias(sources[j])
			if source.Kind != yaml.MappingNode {
				continue
			}

			for k := 0; k+1 < len(source.Content); k += 2 {
				merged = append(merged, [2]*yaml.Node{source.Content[k], source.Content[k+1]})
			}
		}
	}

	out := &m.DocNode{Kind: m.DocMapping, Tag: n.ShortTag()}
	index := map[string]int{}

	for _, pair := range append(merged, explicit...) {
		if pair[0].ShortTag() == mergeTag {
			continue
		}

		value, err := convertYAMLNode(pair[1], depth+1)
		if err != nil {
			return nil, err
		}

		putEntry(out, index, resolveAlias(pair[0]).Value, value)
	}

	return out, nil
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for i := 0; n.Kind == yaml.AliasNode && n.Alias != nil && i < maxAliasDepth; i++ {
		n = n.Alias
	}

	return n
}

func putEntry(doc *m.DocNode, index map[string]int, key string, value *m.DocNode) {
	if i, ok := index[key]; ok {
		doc.Children[i] = value
		return
	}

	index[key] = len(doc.Keys)
	doc.Keys = append(doc.Keys, key)
	doc.Children = append(doc.Children, value)
}

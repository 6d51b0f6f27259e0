package adapter

import (
	"context"
	"errors"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	m "ultraclean.dev/pkg/ultraclean/internal/model"
	"ultraclean.dev/pkg/ultraclean/internal/syntax"
)

// ErrSyntax marks source text that does not form a valid Python module.
var ErrSyntax = errors.New("syntax error")

// PythonFileAdapter encapsulates Python parsing so the domain layer can work on
// persistent syntax trees without depending on the tree-sitter bindings.
type PythonFileAdapter interface {
	// Parse builds the concrete syntax tree of a whole module. Errors wrap
	// ErrSyntax when the text is not valid Python.
	Parse(ctx context.Context, path m.Path, src []byte) (*syntax.Unit, error)
}

// LocalPythonFileAdapter provides a PythonFileAdapter backed by tree-sitter.
type LocalPythonFileAdapter struct{}

// NewLocalPythonFileAdapter constructs a LocalPythonFileAdapter.
func NewLocalPythonFileAdapter() *LocalPythonFileAdapter {
	return &LocalPythonFileAdapter{}
}

// Parse builds a tree whose serialization equals src byte-for-byte. A parser
// is created per call; tree-sitter parsers must not be shared across goroutines.
func (a *LocalPythonFileAdapter) Parse(ctx context.Context, path m.Path, src []byte) (*syntax.Unit, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, describeSyntaxError(root)
	}

	node := buildNode(root, "", src, 0, uint32(len(src)))
	if node.Text() != string(src) {
		return nil, fmt.Errorf("%w: tree does not reproduce the source text", ErrSyntax)
	}

	return syntax.NewUnit(string(path), src, node), nil
}

// buildNode converts a tree-sitter node covering src[start:end] into an
// immutable syntax node, recording the text between children as gaps.
func buildNode(n *sitter.Node, field string, src []byte, start, end uint32) *syntax.Node {
	span := syntax.Span{
		Line:    int(n.StartPoint().Row) + 1,
		EndLine: int(n.EndPoint().Row) + 1,
	}

	count := int(n.ChildCount())
	if count == 0 {
		return syntax.NewLeaf(n.Type(), field, n.IsNamed(), string(src[start:end]), span)
	}

	children := make([]*syntax.Node, 0, count)
	gaps := make([]string, 0, count+1)
	cursor := start

	for i := 0; i < count; i++ {
		child := n.Child(i)
		if child == nil {
			continue
		}

		childStart := clampOffset(child.StartByte(), cursor, end)
		childEnd := clampOffset(child.EndByte(), childStart, end)

		gaps = append(gaps, string(src[cursor:childStart]))
		children = append(children, buildNode(child, n.FieldNameForChild(i), src, childStart, childEnd))
		cursor = childEnd
	}

	gaps = append(gaps, string(src[cursor:end]))

	return syntax.NewBranch(n.Type(), field, n.IsNamed(), children, gaps, span)
}

func clampOffset(v, lo, hi uint32) uint32 {
	if v < lo {
		return lo
	}

	if v > hi {
		return hi
	}

	return v
}

// describeSyntaxError locates the first ERROR or MISSING node.
func describeSyntaxError(root *sitter.Node) error {
	bad := firstErrorNode(root)
	if bad == nil {
		return fmt.Errorf("%w: invalid syntax", ErrSyntax)
	}

	pos := bad.StartPoint()
	if bad.IsMissing() {
		return fmt.Errorf("%w: missing %q at line %d, column %d", ErrSyntax, bad.Type(), pos.Row+1, pos.Column+1)
	}

	return fmt.Errorf("%w: invalid syntax at line %d, column %d", ErrSyntax, pos.Row+1, pos.Column+1)
}

func firstErrorNode(n *sitter.Node) *sitter.Node {
	if n.Type() == "ERROR" || n.IsMissing() {
		return n
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || !(child.HasError() || child.IsMissing()) {
			continue
		}

		if found := firstErrorNode(child); found != nil {
			return found
		}
	}

	return nil
}

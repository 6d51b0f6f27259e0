// Package syntax holds the persistent concrete syntax tree shared by the
// duplication scanner and the codemod engine.
//
// A tree is built once per file and never mutated. Every node keeps the exact
// text found between its children ("gaps": whitespace, newlines, indentation),
// so serializing an untouched tree reproduces the source byte-for-byte and
// serializing a rewritten tree only changes the replaced fragments.
package syntax

import "strings"

// Kinds that carry no syntax of their own and are skipped by NamedChildren.
const (
	KindComment          = "comment"
	KindLineContinuation = "line_continuation"
	KindParenthesized    = "parenthesized_expression"
)

// Span is the 1-based line range a node covered in the parsed source.
// Synthesized nodes have a zero Span.
type Span struct {
	Line    int
	EndLine int
}

// Node is one immutable node of a concrete syntax tree.
type Node struct {
	kind     string
	field    string
	named    bool
	leaf     string
	children []*Node
	// gaps[i] is the text before children[i]; gaps[len(children)] trails the
	// last child. Always len(children)+1 entries for branch nodes.
	gaps []string
	span Span
}

// NewLeaf creates a token node holding its literal text.
func NewLeaf(kind, field string, named bool, text string, span Span) *Node {
	return &Node{kind: kind, field: field, named: named, leaf: text, span: span}
}

// NewBranch creates an interior node. gaps must hold len(children)+1 entries;
// missing entries are treated as empty text.
func NewBranch(kind, field string, named bool, children []*Node, gaps []string, span Span) *Node {
	normalized := make([]string, len(children)+1)
	copy(normalized, gaps)

	return &Node{
		kind:     kind,
		field:    field,
		named:    named,
		children: append([]*Node(nil), children...),
		gaps:     normalized,
		span:     span,
	}
}

// Raw creates a synthesized node whose text is emitted verbatim. The codemod
// engine uses it for replacement expressions and inserted statements.
func Raw(kind, text string) *Node {
	return &Node{kind: kind, named: true, leaf: text}
}

// Kind returns the grammar node type, e.g. "binary_operator".
func (n *Node) Kind() string { return n.kind }

// Field returns the field name this node occupies in its parent, if any.
func (n *Node) Field() string { return n.field }

// IsNamed reports whether the node is a named grammar node (not a bare token).
func (n *Node) IsNamed() bool { return n.named }

// IsExtra reports whether the node is a comment or line continuation.
func (n *Node) IsExtra() bool {
	return n.kind == KindComment || n.kind == KindLineContinuation
}

// IsLeaf reports whether the node has no children.
func (n *Node) IsLeaf() bool { return len(n.children) == 0 }

// Line returns the 1-based start line, or 0 for synthesized nodes.
func (n *Node) Line() int { return n.span.Line }

// EndLine returns the 1-based end line, or 0 for synthesized nodes.
func (n *Node) EndLine() int { return n.span.EndLine }

// Len returns the number of children, tokens included.
func (n *Node) Len() int { return len(n.children) }

// Child returns the i-th child, tokens included.
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.children) {
		return nil
	}

	return n.children[i]
}

// Gap returns the text emitted before child i; Gap(Len()) trails the last
// child. Leaves and out-of-range indexes have no gaps.
func (n *Node) Gap(i int) string {
	if i < 0 || i >= len(n.gaps) {
		return ""
	}

	return n.gaps[i]
}

// Children returns a copy of all children.
func (n *Node) Children() []*Node {
	return append([]*Node(nil), n.children...)
}

// NamedChildren returns named children, skipping comments and continuations.
func (n *Node) NamedChildren() []*Node {
	out := make([]*Node, 0, len(n.children))
	for _, c := range n.children {
		if c.named && !c.IsExtra() {
			out = append(out, c)
		}
	}

	return out
}

// ChildByField returns the first child stored under field name.
func (n *Node) ChildByField(name string) *Node {
	for _, c := range n.children {
		if c.field == name {
			return c
		}
	}

	return nil
}

// ChildrenByField returns every child stored under field name.
func (n *Node) ChildrenByField(name string) []*Node {
	var out []*Node

	for _, c := range n.children {
		if c.field == name {
			out = append(out, c)
		}
	}

	return out
}

// Tokens returns the text of unnamed token children in order, e.g. the
// operators of a comparison chain.
func (n *Node) Tokens() []string {
	var out []string

	for _, c := range n.children {
		if !c.named && !c.IsExtra() {
			out = append(out, c.Text())
		}
	}

	return out
}

// Text serializes the subtree exactly as it would appear in the file.
func (n *Node) Text() string {
	if len(n.children) == 0 {
		return n.leaf
	}

	var b strings.Builder
	n.writeTo(&b)

	return b.String()
}

func (n *Node) writeTo(b *strings.Builder) {
	if len(n.children) == 0 {
		b.WriteString(n.leaf)
		return
	}

	for i, c := range n.children {
		b.WriteString(n.gaps[i])
		c.writeTo(b)
	}

	b.WriteString(n.gaps[len(n.children)])
}

// Unwrap strips any number of enclosing parentheses.
func (n *Node) Unwrap() *Node {
	cur := n
	for cur != nil && cur.kind == KindParenthesized {
		inner := cur.NamedChildren()
		if len(inner) != 1 {
			return cur
		}

		cur = inner[0]
	}

	return cur
}

// Walk visits the subtree in pre-order. Returning false from fn skips the
// children of the visited node.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}

	for _, c := range n.children {
		c.Walk(fn)
	}
}

// WithChild returns a copy of n whose i-th child is replaced. The replacement
// inherits the field name of the child it replaces.
func (n *Node) WithChild(i int, child *Node) *Node {
	if i < 0 || i >= len(n.children) {
		return n
	}

	placed := *child
	placed.field = n.children[i].field

	out := n.shallowCopy()
	out.children[i] = &placed

	return out
}

// WithInsertedChild returns a copy of n with child inserted before index i
// (i == Len() appends). sep is emitted directly before the inserted child; the
// gap that preceded the old i-th child stays in front of it.
func (n *Node) WithInsertedChild(i int, child *Node, sep string) *Node {
	if i < 0 {
		i = 0
	}

	if i > len(n.children) {
		i = len(n.children)
	}

	out := n.shallowCopy()
	if len(out.gaps) == 0 {
		// A leaf becoming a branch keeps its own text as a leading token.
		out.children = []*Node{NewLeaf(n.kind, "", n.named, n.leaf, n.span)}
		out.gaps = []string{"", ""}
		out.leaf = ""
		i = min(i, 1)
	}

	out.children = append(out.children[:i], append([]*Node{child}, out.children[i:]...)...)
	out.gaps = append(out.gaps[:i], append([]string{sep}, out.gaps[i:]...)...)

	return out
}

func (n *Node) shallowCopy() *Node {
	out := *n
	out.children = append([]*Node(nil), n.children...)
	out.gaps = append([]string(nil), n.gaps...)

	return &out
}

// Rewrite rebuilds the tree bottom-up. fn receives every node after its
// children were rewritten and returns either the node itself or a
// replacement. Unchanged subtrees are shared between the old and new tree.
func Rewrite(n *Node, fn func(*Node) *Node) *Node {
	cur := n

	for i, c := range n.children {
		rc := Rewrite(c, fn)
		if rc == c {
			continue
		}

		if cur == n {
			cur = n.shallowCopy()
		}

		placed := *rc
		placed.field = c.field
		cur.children[i] = &placed
	}

	return fn(cur)
}

package syntax

import "strings"

// Unit is one parsed source file. The root spans the whole file, so
// Root.Text() equals Source for a freshly parsed unit.
type Unit struct {
	Path   string
	Source []byte
	Root   *Node

	lines []string
}

// NewUnit wraps a parsed root for path.
func NewUnit(path string, source []byte, root *Node) *Unit {
	return &Unit{Path: path, Source: source, Root: root}
}

// Text serializes the current tree.
func (u *Unit) Text() string {
	return u.Root.Text()
}

// Line returns the 1-based source line n with surrounding whitespace trimmed,
// or "" when n is out of range.
func (u *Unit) Line(n int) string {
	lines := u.sourceLines()
	if n < 1 || n > len(lines) {
		return ""
	}

	return strings.TrimSpace(lines[n-1])
}

// LineRange returns source lines start..end (inclusive, 1-based) joined by
// newlines.
func (u *Unit) LineRange(start, end int) string {
	lines := u.sourceLines()
	if start < 1 {
		start = 1
	}

	if end > len(lines) {
		end = len(lines)
	}

	if start > end {
		return ""
	}

	return strings.Join(lines[start-1:end], "\n")
}

func (u *Unit) sourceLines() []string {
	if u.lines == nil {
		text := strings.ReplaceAll(string(u.Source), "\r\n", "\n")
		text = strings.TrimSuffix(text, "\n")
		u.lines = strings.Split(text, "\n")
	}

	return u.lines
}

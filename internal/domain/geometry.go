package domain

import (
	"math"
	"strconv"
	"strings"

	m "ultraclean.dev/pkg/ultraclean/internal/model"
)

// DefaultTolerance is the collision tolerance in document units (millimetres
// for the layout files this check was written for).
const DefaultTolerance = 0.2

const (
	defaultPage = 1
	hintKeys    = 3
)

// Candidate key names, in preference order, matched case-insensitively.
var (
	xKeys    = []string{"x", "left"}
	yKeys    = []string{"y", "top"}
	pageKeys = []string{"page", "seite", "p"}
)

// ExtractPositions visits every mapping of docs in document order and returns
// one Position per mapping that carries numeric x and y coordinates. Mappings
// whose coordinates or page cannot be read as numbers are skipped; their
// nested values are still visited.
func ExtractPositions(file m.Path, docs []*m.DocNode) []m.Position {
	var out []m.Position

	var visit func(n *m.DocNode)

	visit = func(n *m.DocNode) {
		if n == nil {
			return
		}

		switch n.Kind {
		case m.DocMapping:
			if pos, ok := position(file, n); ok {
				out = append(out, pos)
			}

			for _, child := range n.Children {
				visit(child)
			}
		case m.DocSequence:
			for _, child := range n.Children {
				visit(child)
			}
		}
	}

	for _, doc := range docs {
		visit(doc)
	}

	return out
}

func position(file m.Path, n *m.DocNode) (m.Position, bool) {
	lowered := make(map[string]string, len(n.Keys))
	for _, k := range n.Keys {
		lowered[strings.ToLower(k)] = k
	}

	xNode, yNode := pick(n, lowered, xKeys), pick(n, lowered, yKeys)
	if xNode.IsNull() || yNode.IsNull() {
		return m.Position{}, false
	}

	x, ok := scalarFloat(xNode)
	if !ok {
		return m.Position{}, false
	}

	y, ok := scalarFloat(yNode)
	if !ok {
		return m.Position{}, false
	}

	page := defaultPage

	if pageNode := pick(n, lowered, pageKeys); !pageNode.IsNull() {
		if page, ok = scalarInt(pageNode); !ok {
			return m.Position{}, false
		}
	}

	hints := n.Keys
	if len(hints) > hintKeys {
		hints = hints[:hintKeys]
	}

	return m.Position{
		File:  file,
		Page:  page,
		X:     x,
		Y:     y,
		Hints: append([]string(nil), hints...),
	}, true
}

// pick returns the value of the first candidate key present in n. When keys
// differ only in case the last one wins.
func pick(n *m.DocNode, lowered map[string]string, candidates []string) *m.DocNode {
	for _, c := range candidates {
		if key, ok := lowered[c]; ok {
			return n.Lookup(key)
		}
	}

	return nil
}

func scalarFloat(n *m.DocNode) (float64, bool) {
	if n.Kind != m.DocScalar || n.Tag == m.TagBool {
		return 0, false
	}

	if n.Tag == m.TagInt {
		if i, err := strconv.ParseInt(strings.ReplaceAll(n.Value, "_", ""), 0, 64); err == nil {
			return float64(i), true
		}
	}

	f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(n.Value), "_", ""), 64)
	if err != nil {
		return 0, false
	}

	return f, true
}

// scalarInt truncates float pages; a string page must be an integer literal.
func scalarInt(n *m.DocNode) (int, bool) {
	if n.Kind != m.DocScalar || n.Tag == m.TagBool {
		return 0, false
	}

	value := strings.ReplaceAll(strings.TrimSpace(n.Value), "_", "")

	if n.Tag == m.TagFloat {
		f, err := strconv.ParseFloat(value, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}

		return int(f), true
	}

	base := 10
	if n.Tag == m.TagInt {
		base = 0
	}

	i, err := strconv.ParseInt(value, base, 64)
	if err != nil {
		return 0, false
	}

	return int(i), true
}

// FindCollisions groups positions of the same file and page that lie within
// tolerance of a seed on both axes. Seeds are taken in input order and every
// position joins at most one group. Members are only compared with the seed,
// so two members of a group can be further apart than tolerance, and a
// position close to a member but not to the seed starts its own group.
// Groups with a single member are dropped.
func FindCollisions(positions []m.Position, tolerance float64) []m.CollisionGroup {
	used := make([]bool, len(positions))

	var groups []m.CollisionGroup

	for i, seed := range positions {
		if used[i] {
			continue
		}

		used[i] = true
		members := []m.Position{seed}

		for j := i + 1; j < len(positions); j++ {
			if used[j] {
				continue
			}

			other := positions[j]
			if other.File == seed.File && other.Page == seed.Page &&
				math.Abs(seed.X-other.X) <= tolerance && math.Abs(seed.Y-other.Y) <= tolerance {
				members = append(members, other)
				used[j] = true
			}
		}

		if len(members) > 1 {
			groups = append(groups, m.CollisionGroup{Members: members})
		}
	}

	return groups
}

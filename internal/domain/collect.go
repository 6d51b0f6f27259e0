package domain

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	m "ultraclean.dev/pkg/ultraclean/internal/model"
	"ultraclean.dev/pkg/ultraclean/internal/syntax"
)

// CollectAssignments extracts one record per target of every plain or
// annotated assignment in the unit, at any nesting depth. A chained
// assignment a = b = v yields a record for a and one for b, both with
// value v. Targets other than names and attribute chains are skipped.
func CollectAssignments(unit *syntax.Unit) []m.Assignment {
	var records []m.Assignment

	unit.Root.Walk(func(n *syntax.Node) bool {
		if n.Kind() != "assignment" || n.Field() == "right" {
			return true
		}

		targets, value := assignmentChain(n)
		if value == nil {
			return true
		}

		sig, shape := Canonicalize(value)
		names := ReferencedNames(value)

		for _, target := range targets {
			lhs, ok := targetName(target)
			if !ok {
				continue
			}

			records = append(records, m.Assignment{
				File:      m.Path(unit.Path),
				Line:      n.Line(),
				Target:    lhs,
				Signature: string(sig),
				Shape:     string(shape),
				Names:     names,
				Source:    unit.Line(n.Line()),
			})
		}

		return true
	})

	return records
}

// assignmentChain unrolls nested right-hand assignments.
func assignmentChain(n *syntax.Node) ([]*syntax.Node, *syntax.Node) {
	var targets []*syntax.Node

	cur := n
	for cur != nil && cur.Kind() == "assignment" {
		if left := cur.ChildByField("left"); left != nil {
			targets = append(targets, left)
		}

		cur = cur.ChildByField("right")
	}

	return targets, cur
}

func targetName(target *syntax.Node) (string, bool) {
	target = target.Unwrap()

	switch target.Kind() {
	case "identifier":
		return target.Text(), true
	case "attribute":
		return stripSpace(target.Text()), true
	}

	return "", false
}

// CollectFunctions records every function definition, nested and async ones
// included, with a content hash of its whitespace-free source lines.
func CollectFunctions(unit *syntax.Unit) []m.Function {
	var records []m.Function

	unit.Root.Walk(func(n *syntax.Node) bool {
		if n.Kind() != "function_definition" {
			return true
		}

		name := ""
		if id := n.ChildByField("name"); id != nil {
			name = id.Text()
		}

		body := unit.LineRange(n.Line(), n.EndLine())

		records = append(records, m.Function{
			File:    m.Path(unit.Path),
			Name:    name,
			Line:    n.Line(),
			EndLine: n.EndLine(),
			Hash:    BodyHash(body),
		})

		return true
	})

	return records
}

// BodyHash hashes source text with every whitespace rune removed.
func BodyHash(body string) string {
	return strconv.FormatUint(xxhash.Sum64String(stripSpace(body)), 16)
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}

		return r
	}, s)
}

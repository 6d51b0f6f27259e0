// Package rules holds the rewrite rule catalogs applied by the codemod engine.
//
// A rule inspects one right-hand side (or one expression statement) and either
// declines, returns replacement source text or reports an error. Rules keep no
// state, so one catalog value can be shared by concurrent runs.
package rules

import (
	"ultraclean.dev/pkg/ultraclean/internal/syntax"
)

// Rule rewrites the value of an assignment to a catalog target.
type Rule interface {
	// Name is the reason tag recorded for a rewrite.
	Name() string
	// Rewrite returns the replacement expression text for value, ok=false when
	// the rule does not apply. The returned reason may refine Name().
	Rewrite(value *syntax.Node) (replacement, reason string, ok bool, err error)
}

// StatementRule rewrites a whole expression statement, such as an in-place
// update call on the catalog target.
type StatementRule interface {
	Name() string
	// RewriteStatement receives the expression of a statement that stands
	// alone on its line. before is the matched source fragment.
	RewriteStatement(expr *syntax.Node) (replacement, before string, ok bool, err error)
}

// DenyPattern is an operand combination that needs manual review: an
// operation with operator Op whose operands include both Left and Right.
type DenyPattern struct {
	Left  string
	Op    string
	Right string
}

// Catalog is one complete codemod configuration.
type Catalog struct {
	// Name identifies the catalog in report file names.
	Name string
	// Target is the assigned identifier whose values are rewritten.
	Target string
	// Function is the canonical helper every rewrite calls.
	Function string
	// HomeModule is the module the helper is imported from.
	HomeModule string
	// DefinitionsFile is the basename (case-insensitive) of the file that must
	// define the helper.
	DefinitionsFile string
	// Definition is the helper source inserted when it is missing.
	Definition string
	Denylist   []DenyPattern
	Rules      []Rule
	// StatementRules run on expression statements before assignment rules.
	StatementRules []StatementRule
}

// Denied reports whether value contains a denylisted operation.
func (c Catalog) Denied(value *syntax.Node) bool {
	for _, pattern := range c.Denylist {
		if pattern.matches(value) {
			return true
		}
	}

	return false
}

func (p DenyPattern) matches(value *syntax.Node) bool {
	found := false

	value.Walk(func(n *syntax.Node) bool {
		if found {
			return false
		}

		if n.Kind() != "binary_operator" || operator(n) != p.Op {
			return true
		}

		if p.Op == "+" || p.Op == "*" {
			terms := flatten(n, p.Op)
			found = anyNamed(terms, p.Left) && anyNamed(terms, p.Right)
		} else {
			found = isNamed(n.ChildByField("left"), p.Left) && isNamed(n.ChildByField("right"), p.Right)
		}

		return !found
	})

	return found
}

func anyNamed(nodes []*syntax.Node, name string) bool {
	for _, n := range nodes {
		if isNamed(n, name) {
			return true
		}
	}

	return false
}

func isNamed(n *syntax.Node, name string) bool {
	_, ok := nameIn(n, map[string]bool{name: true})
	return ok
}

package domain

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"ultraclean.dev/pkg/ultraclean/internal/adapter"
	"ultraclean.dev/pkg/ultraclean/internal/domain/rules"
	m "ultraclean.dev/pkg/ultraclean/internal/model"
	"ultraclean.dev/pkg/ultraclean/internal/syntax"
)

const (
	unchangedMarker = "(unchanged)"
	noImportMarker  = "(kein Import)"
	unknownLine     = "?"
)

var importKinds = map[string]bool{
	"import_statement":        true,
	"import_from_statement":   true,
	"future_import_statement": true,
}

// PatchResult is the outcome of applying one catalog to one unit.
type PatchResult struct {
	// Unit is the rewritten unit, or nil when the text did not change.
	Unit    *syntax.Unit
	Changes []m.Change
}

// Changed reports whether the unit was rewritten.
func (r PatchResult) Changed() bool { return r.Unit != nil }

// Patcher applies rule catalogs to parsed units.
type Patcher interface {
	Apply(ctx context.Context, unit *syntax.Unit, catalog rules.Catalog) PatchResult
}

type patcher struct {
	adapter.PythonFileAdapter
}

// NewPatcher creates a Patcher that re-parses every rewritten unit with py.
func NewPatcher(py adapter.PythonFileAdapter) Patcher {
	return &patcher{PythonFileAdapter: py}
}

// Apply rewrites every assignment to catalog.Target that a rule matches,
// inserts the helper definition into the definitions file and adds the
// helper import. Applying the same catalog to its own output changes nothing.
func (p *patcher) Apply(ctx context.Context, unit *syntax.Unit, catalog rules.Catalog) PatchResult {
	run := &patchRun{unit: unit, catalog: catalog, file: m.Path(unit.Path)}

	root := syntax.Rewrite(unit.Root, run.visit)
	slices.SortStableFunc(run.changes, func(a, b lineChange) int { return a.line - b.line })

	changes := make([]m.Change, 0, len(run.changes)+2)

	if run.isDefinitionsFile() && !definesFunction(root, catalog.Function, false) {
		root = insertStatement(root, importIndex(root), strings.TrimRight(catalog.Definition, "\n")+"\n\n", true)
		changes = append(changes, m.Change{
			File:   run.file,
			Line:   unknownLine,
			Before: "",
			After:  "def " + catalog.Function + "(...)",
			Reason: m.ReasonDefinitionInserted,
		})
	}

	rewrites := 0

	for _, c := range run.changes {
		changes = append(changes, c.Change)

		if c.IsRewrite() {
			rewrites++
		}
	}

	if rewrites > 0 && !definesFunction(root, catalog.Function, true) && !importsFunction(root, catalog.HomeModule, catalog.Function) {
		stmt := "from " + catalog.HomeModule + " import " + catalog.Function
		root = insertStatement(root, importIndex(root), stmt, false)
		changes = append(changes, m.Change{
			File:   run.file,
			Line:   "1",
			Before: noImportMarker,
			After:  stmt,
			Reason: m.ReasonImportAdded,
		})
	}

	if root == unit.Root {
		return PatchResult{Changes: changes}
	}

	text := root.Text()
	if text == unit.Text() {
		return PatchResult{Changes: changes}
	}

	reparsed, err := p.Parse(ctx, m.Path(unit.Path), []byte(text))
	if err != nil {
		slog.Warn("rewritten source does not parse", "file", unit.Path, "error", err)

		return PatchResult{Changes: append(unapplied(changes), m.Change{
			File:   run.file,
			Line:   unknownLine,
			Reason: m.ReasonErrorPrefix + "reserialize: " + err.Error(),
		})}
	}

	return PatchResult{Unit: reparsed, Changes: changes}
}

// unapplied drops the rows of edits that are discarded together with the
// rewritten text. Skips and errors stay in the report.
func unapplied(changes []m.Change) []m.Change {
	out := make([]m.Change, 0, len(changes))

	for _, c := range changes {
		if c.IsRewrite() || c.Reason == m.ReasonImportAdded || c.Reason == m.ReasonDefinitionInserted {
			continue
		}

		out = append(out, c)
	}

	return out
}

type lineChange struct {
	m.Change
	line int
}

// patchRun carries the per-unit state of one Apply call.
type patchRun struct {
	unit    *syntax.Unit
	catalog rules.Catalog
	file    m.Path
	changes []lineChange
}

func (r *patchRun) isDefinitionsFile() bool {
	return r.catalog.DefinitionsFile != "" &&
		strings.EqualFold(filepath.Base(r.unit.Path), r.catalog.DefinitionsFile)
}

func (r *patchRun) record(line int, before, after, reason string) {
	r.changes = append(r.changes, lineChange{
		Change: m.Change{
			File:   r.file,
			Line:   lineLabel(line),
			Before: before,
			After:  after,
			Reason: reason,
		},
		line: line,
	})
}

func (r *patchRun) visit(n *syntax.Node) *syntax.Node {
	switch n.Kind() {
	case "assignment":
		return r.rewriteAssignment(n)
	case "module", "block":
		if len(r.catalog.StatementRules) > 0 {
			return r.rewriteStatements(n)
		}
	}

	return n
}

func (r *patchRun) rewriteAssignment(n *syntax.Node) *syntax.Node {
	if n.Field() == "right" || n.ChildByField("type") != nil {
		return n
	}

	left := n.ChildByField("left")
	if left == nil || left.Kind() != "identifier" || left.Text() != r.catalog.Target {
		return n
	}

	idx := fieldIndex(n, "right")
	if idx < 0 {
		return n
	}

	value := n.Child(idx)
	if value.Kind() == "assignment" || value.Kind() == "augmented_assignment" {
		return n
	}

	if r.catalog.Denied(value) {
		r.record(n.Line(), value.Text(), unchangedMarker, m.ReasonSuspicious)
		return n
	}

	for _, rule := range r.catalog.Rules {
		replacement, reason, ok, err := applyRule(rule, value)
		if err != nil {
			slog.Debug("rule failed", "file", r.file, "line", n.Line(), "rule", rule.Name(), "error", err)
			r.record(n.Line(), value.Text(), "", m.ReasonErrorPrefix+err.Error())

			return n
		}

		if ok {
			replacement = r.keepComments(n.Line(), value, replacement)

			slog.Debug("rewrite", "file", r.file, "line", n.Line(), "reason", reason)
			r.record(n.Line(), value.Text(), replacement, reason)

			return n.WithChild(idx, syntax.Raw("call", replacement))
		}
	}

	return n
}

// keepComments carries the comments of value that replacement no longer
// contains. The replacement is then parenthesized with one comment per line:
//
//	target = (
//	    fn(...)  # first
//	    # second
//	)
func (r *patchRun) keepComments(line int, value *syntax.Node, replacement string) string {
	var lost []string

	value.Walk(func(n *syntax.Node) bool {
		if n.Kind() == syntax.KindComment && !strings.Contains(replacement, n.Text()) {
			lost = append(lost, n.Text())
		}

		return true
	})

	if len(lost) == 0 {
		return replacement
	}

	source := r.unit.LineRange(line, line)
	indent := source[:len(source)-len(strings.TrimLeft(source, " \t"))]
	inner := indent + "    "

	var b strings.Builder

	b.WriteString("(\n" + inner + replacement + "  " + lost[0] + "\n")

	for _, c := range lost[1:] {
		b.WriteString(inner + c + "\n")
	}

	b.WriteString(indent + ")")

	return b.String()
}

// rewriteStatements applies statement rules to expression statements that
// stand alone, i.e. are not joined to a sibling with ";".
func (r *patchRun) rewriteStatements(block *syntax.Node) *syntax.Node {
	out := block

	for i := 0; i < block.Len(); i++ {
		stmt := block.Child(i)
		if stmt.Kind() != "expression_statement" || joined(block, i) {
			continue
		}

		exprs := stmt.NamedChildren()
		if len(exprs) != 1 || exprs[0].Unwrap().Kind() != "call" {
			continue
		}

		for _, rule := range r.catalog.StatementRules {
			replacement, before, ok, err := applyStatementRule(rule, exprs[0])
			if err != nil {
				r.record(stmt.Line(), exprs[0].Text(), "", m.ReasonErrorPrefix+err.Error())
				break
			}

			if ok {
				r.record(stmt.Line(), before, replacement, rule.Name())
				out = out.WithChild(i, syntax.Raw("expression_statement", replacement))

				break
			}
		}
	}

	return out
}

func applyRule(rule rules.Rule, value *syntax.Node) (replacement, reason string, ok bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%s: %v", rule.Name(), rec)
		}
	}()

	return rule.Rewrite(value)
}

func applyStatementRule(rule rules.StatementRule, expr *syntax.Node) (replacement, before string, ok bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%s: %v", rule.Name(), rec)
		}
	}()

	return rule.RewriteStatement(expr)
}

func joined(block *syntax.Node, i int) bool {
	prev, next := block.Child(i-1), block.Child(i+1)

	return (prev != nil && prev.Kind() == ";") || (next != nil && next.Kind() == ";")
}

func fieldIndex(n *syntax.Node, field string) int {
	for i := range n.Len() {
		if n.Child(i).Field() == field {
			return i
		}
	}

	return -1
}

func lineLabel(line int) string {
	if line <= 0 {
		return unknownLine
	}

	return strconv.Itoa(line)
}

// definesFunction reports whether root defines fn, either anywhere or only
// at module level.
func definesFunction(root *syntax.Node, fn string, topLevel bool) bool {
	if topLevel {
		for _, stmt := range root.NamedChildren() {
			if stmt.Kind() == "decorated_definition" {
				stmt = stmt.ChildByField("definition")
			}

			if isFunctionNamed(stmt, fn) {
				return true
			}
		}

		return false
	}

	found := false

	root.Walk(func(n *syntax.Node) bool {
		found = found || isFunctionNamed(n, fn)
		return !found
	})

	return found
}

func isFunctionNamed(n *syntax.Node, fn string) bool {
	if n == nil || n.Kind() != "function_definition" {
		return false
	}

	name := n.ChildByField("name")

	return name != nil && name.Text() == fn
}

// importsFunction reports whether any "from module import ..." statement
// binds fn. A wildcard import from module counts.
func importsFunction(root *syntax.Node, module, fn string) bool {
	found := false

	root.Walk(func(n *syntax.Node) bool {
		if found {
			return false
		}

		if n.Kind() != "import_from_statement" {
			return true
		}

		if mod := n.ChildByField("module_name"); mod == nil || normalizeText(mod.Text()) != module {
			return false
		}

		for _, c := range n.NamedChildren() {
			if c.Kind() == "wildcard_import" {
				found = true
			}

			if c.Field() == "name" {
				found = found || boundName(c) == fn
			}
		}

		return false
	})

	return found
}

// boundName is the local name an imported item binds.
func boundName(item *syntax.Node) string {
	if item.Kind() == "aliased_import" {
		if alias := item.ChildByField("alias"); alias != nil {
			return alias.Text()
		}
	}

	return item.Text()
}

// importIndex is the child index just after the last top-level import. Without
// imports it is the index after the header comments and a module docstring.
func importIndex(root *syntax.Node) int {
	idx := -1

	for i := range root.Len() {
		if importKinds[root.Child(i).Kind()] {
			idx = i
		}
	}

	if idx >= 0 {
		// Keep a trailing comment on the import line attached to it.
		for next := root.Child(idx + 1); next != nil && next.Kind() == syntax.KindComment && next.Line() == root.Child(idx).EndLine(); next = root.Child(idx + 1) {
			idx++
		}

		return idx + 1
	}

	header := headerLen(root)

	for i := header; i < root.Len(); i++ {
		c := root.Child(i)
		if c.IsExtra() {
			continue
		}

		if isDocstring(c) {
			return i + 1
		}

		break
	}

	return header
}

// headerLen counts the comments on consecutive lines starting at line 1, such
// as a shebang and an encoding declaration. Python only honours those on the
// first two lines, so nothing may be inserted before them.
func headerLen(root *syntax.Node) int {
	n, end := 0, 0

	for c := root.Child(0); c != nil && c.Kind() == syntax.KindComment && c.Line() == end+1; c = root.Child(n) {
		end = c.EndLine()
		n++
	}

	return n
}

func isDocstring(stmt *syntax.Node) bool {
	if stmt.Kind() != "expression_statement" {
		return false
	}

	exprs := stmt.NamedChildren()

	return len(exprs) == 1 && exprs[0].Kind() == "string"
}

// insertStatement places text as a new top-level statement before child idx.
// Blocks are separated from the preceding statement by two blank lines.
func insertStatement(root *syntax.Node, idx int, text string, block bool) *syntax.Node {
	if idx == 0 {
		return root.WithInsertedChild(0, syntax.Raw("statement", text+"\n"), "")
	}

	sep := "\n"
	text = strings.TrimRight(text, "\n")

	if block {
		sep = "\n\n\n"

		// Keep two blank lines before the statement that follows.
		if idx < root.Len() {
			if missing := 3 - strings.Count(root.Gap(idx), "\n"); missing > 0 {
				text += strings.Repeat("\n", missing)
			}
		}
	}

	return root.WithInsertedChild(idx, syntax.Raw("statement", text), sep)
}

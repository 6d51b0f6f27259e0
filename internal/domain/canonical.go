// Package domain contains the scanning, canonicalization and rewriting logic
// of ultraclean.
package domain

import (
	"sort"
	"strconv"
	"strings"

	"ultraclean.dev/pkg/ultraclean/internal/syntax"
)

// Signature is the canonical form of an expression. Two expressions with equal
// signatures are interchangeable under commutative reordering of + and *,
// reordering of and/or operands, dict entries and keyword arguments.
type Signature string

// Shape is a Signature with identifiers and literal values erased.
type Shape string

// ExprKind is the closed classification of expression nodes.
type ExprKind int

// Available ExprKind values. Anything not listed is KindOther.
const (
	KindOther ExprKind = iota
	KindName
	KindAttr
	KindConst
	KindCall
	KindBinary
	KindUnary
	KindCompare
	KindBool
	KindSubscript
	KindDict
	KindList
	KindTuple
)

var exprKindNames = [...]string{
	KindOther:     "Other",
	KindName:      "Name",
	KindAttr:      "Attr",
	KindConst:     "Const",
	KindCall:      "Call",
	KindBinary:    "Binary",
	KindUnary:     "Unary",
	KindCompare:   "Compare",
	KindBool:      "Bool",
	KindSubscript: "Subscript",
	KindDict:      "Dict",
	KindList:      "List",
	KindTuple:     "Tuple",
}

func (k ExprKind) String() string {
	if int(k) < len(exprKindNames) {
		return exprKindNames[k]
	}

	return "Other"
}

var grammarKinds = map[string]ExprKind{
	"identifier":          KindName,
	"attribute":           KindAttr,
	"string":              KindConst,
	"concatenated_string": KindConst,
	"integer":             KindConst,
	"float":               KindConst,
	"true":                KindConst,
	"false":               KindConst,
	"none":                KindConst,
	"ellipsis":            KindConst,
	"call":                KindCall,
	"binary_operator":     KindBinary,
	"unary_operator":      KindUnary,
	"not_operator":        KindUnary,
	"comparison_operator": KindCompare,
	"boolean_operator":    KindBool,
	"subscript":           KindSubscript,
	"dictionary":          KindDict,
	"list":                KindList,
	"tuple":               KindTuple,
	"expression_list":     KindTuple,
}

var binaryOpNames = map[string]string{
	"+":  "Add",
	"-":  "Sub",
	"*":  "Mult",
	"/":  "Div",
	"//": "FloorDiv",
	"%":  "Mod",
	"**": "Pow",
	"@":  "MatMult",
	"<<": "LShift",
	">>": "RShift",
	"|":  "BitOr",
	"&":  "BitAnd",
	"^":  "BitXor",
}

var unaryOpNames = map[string]string{
	"-":   "USub",
	"+":   "UAdd",
	"~":   "Invert",
	"not": "Not",
}

var compareOpNames = map[string]string{
	"<":      "Lt",
	"<=":     "LtE",
	"==":     "Eq",
	"!=":     "NotEq",
	"<>":     "NotEq",
	">":      "Gt",
	">=":     "GtE",
	"in":     "In",
	"not in": "NotIn",
	"is":     "Is",
	"is not": "IsNot",
}

// commutative operators are flattened into sorted multisets.
var commutative = map[string]bool{"+": true, "*": true}

// Classify maps a grammar node onto the closed expression classification.
// Parentheses are looked through.
func Classify(n *syntax.Node) ExprKind {
	n = n.Unwrap()
	if n == nil {
		return KindOther
	}

	if kind, ok := grammarKinds[n.Kind()]; ok {
		if kind == KindConst && isFormattedString(n) {
			return KindOther
		}

		return kind
	}

	return KindOther
}

// Canonicalize computes the signature and shape of an expression. It is total:
// unknown constructs fall back to Other(kind, text).
func Canonicalize(n *syntax.Node) (Signature, Shape) {
	c := canonicalizer{}
	return c.visit(n)
}

type canonicalizer struct{}

func (c canonicalizer) visit(n *syntax.Node) (Signature, Shape) {
	if n == nil {
		return "None", "None"
	}

	n = n.Unwrap()

	switch Classify(n) {
	case KindName:
		return Signature("Name(" + n.Text() + ")"), "Name"
	case KindAttr:
		return c.attr(n)
	case KindConst:
		return Signature("Const(" + constValue(n) + ")"), "Const"
	case KindCall:
		return c.call(n)
	case KindBinary:
		return c.binary(n)
	case KindUnary:
		return c.unary(n)
	case KindCompare:
		return c.compare(n)
	case KindBool:
		return c.boolean(n)
	case KindSubscript:
		return c.subscript(n)
	case KindDict:
		return c.dict(n)
	case KindList:
		return c.sequence("List", n)
	case KindTuple:
		return c.sequence("Tuple", n)
	case KindOther:
		return other(n)
	}

	return other(n)
}

func other(n *syntax.Node) (Signature, Shape) {
	return Signature("Other(" + n.Kind() + ";" + strconv.Quote(tokenText(n)) + ")"),
		Shape("Other(" + n.Kind() + ")")
}

// tokenText renders n with every whitespace gap between tokens collapsed to
// one space. Tokens and string literals keep their exact text.
func tokenText(n *syntax.Node) string {
	var w tokenWriter

	w.node(n)

	return strings.TrimSpace(w.b.String())
}

type tokenWriter struct {
	b     strings.Builder
	space bool
}

func (w *tokenWriter) node(n *syntax.Node) {
	if n.IsLeaf() || n.Kind() == "string" {
		w.write(n.Text())
		return
	}

	for i := range n.Len() {
		w.gap(n.Gap(i))
		w.node(n.Child(i))
	}

	w.gap(n.Gap(n.Len()))
}

func (w *tokenWriter) gap(s string) {
	if s == "" {
		return
	}

	w.space = true

	if text := normalizeText(s); text != "" {
		w.write(text)
		w.space = true
	}
}

func (w *tokenWriter) write(s string) {
	if s == "" {
		return
	}

	if w.space && w.b.Len() > 0 {
		w.b.WriteByte(' ')
	}

	w.b.WriteString(s)
	w.space = false
}

func (c canonicalizer) attr(n *syntax.Node) (Signature, Shape) {
	obj, _ := c.visit(n.ChildByField("object"))
	name := ""

	if attr := n.ChildByField("attribute"); attr != nil {
		name = attr.Text()
	}

	return Signature("Attr(" + string(obj) + "," + name + ")"), "Attr"
}

func (c canonicalizer) call(n *syntax.Node) (Signature, Shape) {
	fn, _ := c.visit(n.ChildByField("function"))

	var positional, keywords []string

	args := n.ChildByField("arguments")
	if args != nil && args.Kind() != "argument_list" {
		// f(x for x in y)
		sig, _ := c.visit(args)
		positional = append(positional, string(sig))
	} else if args != nil {
		for _, arg := range args.NamedChildren() {
			switch arg.Kind() {
			case "keyword_argument":
				sig, _ := c.visit(arg.ChildByField("value"))

				name := ""
				if id := arg.ChildByField("name"); id != nil {
					name = id.Text()
				}

				keywords = append(keywords, name+"="+string(sig))
			case "dictionary_splat":
				sig, _ := c.visit(firstNamed(arg))
				keywords = append(keywords, "**="+string(sig))
			default:
				sig, _ := c.visit(arg)
				positional = append(positional, string(sig))
			}
		}
	}

	sort.Strings(keywords)

	sig := "Call(" + string(fn) + ";[" + strings.Join(positional, ",") + "];[" + strings.Join(keywords, ",") + "])"
	shape := "Call(" + strconv.Itoa(len(positional)) + "," + strconv.Itoa(len(keywords)) + ")"

	return Signature(sig), Shape(shape)
}

func (c canonicalizer) binary(n *syntax.Node) (Signature, Shape) {
	op := operatorToken(n)

	name, ok := binaryOpNames[op]
	if !ok {
		return other(n)
	}

	if commutative[op] {
		terms := flattenBinary(n, op)
		sigs := make([]string, 0, len(terms))
		shapes := make([]string, 0, len(terms))

		for _, term := range terms {
			sig, shape := c.visit(term)
			sigs = append(sigs, string(sig))
			shapes = append(shapes, string(shape))
		}

		sort.Strings(sigs)
		sort.Strings(shapes)

		return Signature(name + "{" + strings.Join(sigs, ",") + "}"), Shape(name + "{" + strings.Join(shapes, ",") + "}")
	}

	lsig, lshape := c.visit(n.ChildByField("left"))
	rsig, rshape := c.visit(n.ChildByField("right"))

	return Signature(name + "(" + string(lsig) + "," + string(rsig) + ")"),
		Shape(name + "(" + string(lshape) + "," + string(rshape) + ")")
}

func (c canonicalizer) unary(n *syntax.Node) (Signature, Shape) {
	op := "not"
	if n.Kind() == "unary_operator" {
		op = operatorToken(n)
	}

	name, ok := unaryOpNames[op]
	if !ok {
		return other(n)
	}

	sig, shape := c.visit(n.ChildByField("argument"))

	return Signature(name + "(" + string(sig) + ")"), Shape(name + "(" + string(shape) + ")")
}

func (c canonicalizer) compare(n *syntax.Node) (Signature, Shape) {
	operands := n.NamedChildren()
	if len(operands) < 2 {
		return other(n)
	}

	ops, ok := compareOperators(n)
	if !ok || len(ops) != len(operands)-1 {
		return other(n)
	}

	left, _ := c.visit(operands[0])

	comparators := make([]string, 0, len(operands)-1)
	for _, operand := range operands[1:] {
		sig, _ := c.visit(operand)
		comparators = append(comparators, string(sig))
	}

	joinedOps := strings.Join(ops, ",")
	sig := "Compare(" + string(left) + ";[" + joinedOps + "];[" + strings.Join(comparators, ",") + "])"
	shape := "Compare([" + joinedOps + "];" + strconv.Itoa(len(comparators)) + ")"

	return Signature(sig), Shape(shape)
}

func (c canonicalizer) boolean(n *syntax.Node) (Signature, Shape) {
	op := operatorToken(n)

	name := "And"
	if op == "or" {
		name = "Or"
	}

	terms := flattenBoolean(n, op)

	sigs := make([]string, 0, len(terms))
	for _, term := range terms {
		sig, _ := c.visit(term)
		sigs = append(sigs, string(sig))
	}

	sort.Strings(sigs)

	return Signature("BoolOp(" + name + ";{" + strings.Join(sigs, ",") + "})"),
		Shape("BoolOp(" + name + ";" + strconv.Itoa(len(terms)) + ")")
}

func (c canonicalizer) subscript(n *syntax.Node) (Signature, Shape) {
	value, _ := c.visit(n.ChildByField("value"))

	subs := n.ChildrenByField("subscript")

	var slice Signature

	switch len(subs) {
	case 0:
		slice = "None"
	case 1:
		slice, _ = c.visit(subs[0])
	default:
		parts := make([]string, 0, len(subs))
		for _, s := range subs {
			sig, _ := c.visit(s)
			parts = append(parts, string(sig))
		}

		slice = Signature("Tuple[" + strings.Join(parts, ",") + "]")
	}

	return Signature("Subscript(" + string(value) + ";" + string(slice) + ")"), "Subscript"
}

func (c canonicalizer) dict(n *syntax.Node) (Signature, Shape) {
	entries := n.NamedChildren()
	items := make([]string, 0, len(entries))

	for _, entry := range entries {
		switch entry.Kind() {
		case "pair":
			key, _ := c.visit(entry.ChildByField("key"))
			value, _ := c.visit(entry.ChildByField("value"))
			items = append(items, "KV("+string(key)+","+string(value)+")")
		case "dictionary_splat":
			value, _ := c.visit(firstNamed(entry))
			items = append(items, "UNPACK("+string(value)+")")
		default:
			sig, _ := c.visit(entry)
			items = append(items, string(sig))
		}
	}

	sort.Strings(items)

	return Signature("Dict{" + strings.Join(items, ",") + "}"), Shape("Dict(" + strconv.Itoa(len(items)) + ")")
}

func (c canonicalizer) sequence(name string, n *syntax.Node) (Signature, Shape) {
	elems := n.NamedChildren()
	sigs := make([]string, 0, len(elems))

	for _, elem := range elems {
		sig, _ := c.visit(elem)
		sigs = append(sigs, string(sig))
	}

	return Signature(name + "[" + strings.Join(sigs, ",") + "]"), Shape(name + "(" + strconv.Itoa(len(sigs)) + ")")
}

// compareOperators names the operators of a comparison chain, joining the
// two-word forms "not in" and "is not" whether or not the grammar emits them as
// one token.
func compareOperators(n *syntax.Node) ([]string, bool) {
	var tokens []string

	for _, token := range n.Tokens() {
		tokens = append(tokens, normalizeText(token))
	}

	ops := make([]string, 0, len(tokens))

	for i := 0; i < len(tokens); i++ {
		token := tokens[i]
		if i+1 < len(tokens) && ((token == "not" && tokens[i+1] == "in") || (token == "is" && tokens[i+1] == "not")) {
			token += " " + tokens[i+1]
			i++
		}

		name, ok := compareOpNames[token]
		if !ok {
			return nil, false
		}

		ops = append(ops, name)
	}

	return ops, true
}

// flattenBinary collects the operands of a chain of the same operator, looking
// through parentheses, so a+(b+c) and (a+b)+c yield the same terms.
func flattenBinary(n *syntax.Node, op string) []*syntax.Node {
	n = n.Unwrap()
	if n == nil {
		return nil
	}

	if n.Kind() != "binary_operator" || operatorToken(n) != op {
		return []*syntax.Node{n}
	}

	return append(flattenBinary(n.ChildByField("left"), op), flattenBinary(n.ChildByField("right"), op)...)
}

func flattenBoolean(n *syntax.Node, op string) []*syntax.Node {
	n = n.Unwrap()
	if n == nil {
		return nil
	}

	if n.Kind() != "boolean_operator" || operatorToken(n) != op {
		return []*syntax.Node{n}
	}

	return append(flattenBoolean(n.ChildByField("left"), op), flattenBoolean(n.ChildByField("right"), op)...)
}

func operatorToken(n *syntax.Node) string {
	if op := n.ChildByField("operator"); op != nil {
		return op.Kind()
	}

	return ""
}

func firstNamed(n *syntax.Node) *syntax.Node {
	named := n.NamedChildren()
	if len(named) == 0 {
		return nil
	}

	return named[0]
}

// normalizeText trims and collapses whitespace runs to one space.
func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// constValue renders a literal so equal values in different spellings compare
// equal: quote style and integer bases are normalized.
func constValue(n *syntax.Node) string {
	switch n.Kind() {
	case "true":
		return "True"
	case "false":
		return "False"
	case "none":
		return "None"
	case "ellipsis":
		return "Ellipsis"
	case "integer":
		text := n.Text()
		if v, err := strconv.ParseInt(strings.TrimRight(text, "lL"), 0, 64); err == nil {
			return "int:" + strconv.FormatInt(v, 10)
		}

		return "int:" + strings.ReplaceAll(text, "_", "")
	case "float":
		text := strings.ReplaceAll(n.Text(), "_", "")
		if v, err := strconv.ParseFloat(text, 64); err == nil {
			return "float:" + strconv.FormatFloat(v, 'g', -1, 64)
		}

		return "float:" + text
	case "concatenated_string":
		var b strings.Builder

		kind := "str"

		for _, part := range n.NamedChildren() {
			prefix, content := syntax.SplitString(part.Text())
			if strings.ContainsAny(prefix, "bB") {
				kind = "bytes"
			}

			b.WriteString(content)
		}

		return kind + ":" + strconv.Quote(b.String())
	default:
		prefix, content := syntax.SplitString(n.Text())

		kind := "str"
		if strings.ContainsAny(prefix, "bB") {
			kind = "bytes"
		}

		return kind + ":" + strconv.Quote(content)
	}
}

func isFormattedString(n *syntax.Node) bool {
	parts := []*syntax.Node{n}
	if n.Kind() == "concatenated_string" {
		parts = n.NamedChildren()
	}

	for _, part := range parts {
		if part.Kind() != "string" {
			continue
		}

		prefix, _ := syntax.SplitString(part.Text())
		if strings.ContainsAny(prefix, "fFtT") {
			return true
		}
	}

	return false
}

// ReferencedNames returns the sorted identifiers an expression reads.
// Attribute member names, keyword argument names and lambda parameters are
// not references.
func ReferencedNames(n *syntax.Node) []string {
	seen := map[string]bool{}
	collectNames(n, nil, seen)

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

func collectNames(n, parent *syntax.Node, seen map[string]bool) {
	if n == nil {
		return
	}

	if n.Kind() == "identifier" {
		if !isBindingIdentifier(n, parent) {
			seen[n.Text()] = true
		}

		return
	}

	for _, child := range n.Children() {
		collectNames(child, n, seen)
	}
}

func isBindingIdentifier(n, parent *syntax.Node) bool {
	if parent == nil {
		return false
	}

	switch parent.Kind() {
	case "attribute":
		return n.Field() == "attribute"
	case "keyword_argument":
		return n.Field() == "name"
	case "lambda_parameters", "list_splat_pattern", "dictionary_splat_pattern":
		return true
	case "default_parameter", "typed_default_parameter":
		return n.Field() == "name"
	}

	return false
}

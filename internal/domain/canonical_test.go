package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ultraclean.dev/pkg/ultraclean/internal/syntax"
)

// parseExpr returns the value of "x = <expr>".
func parseExpr(t *testing.T, expr string) *syntax.Node {
	t.Helper()

	unit := parseUnit(t, "expr.py", "x = "+expr+"\n")

	var value *syntax.Node

	unit.Root.Walk(func(n *syntax.Node) bool {
		if value == nil && n.Kind() == "assignment" {
			value = n.ChildByField("right")
		}

		return value == nil
	})

	require.NotNil(t, value, expr)

	return value
}

func signatureOf(t *testing.T, expr string) Signature {
	t.Helper()

	sig, _ := Canonicalize(parseExpr(t, expr))

	return sig
}

func shapeOf(t *testing.T, expr string) Shape {
	t.Helper()

	_, shape := Canonicalize(parseExpr(t, expr))

	return shape
}

func TestCanonicalize_Signatures(t *testing.T) {
	tests := map[string]Signature{
		"a + b":           "Add{Name(a),Name(b)}",
		"a - b":           "Sub(Name(a),Name(b))",
		"-a":              "USub(Name(a))",
		"not a":           "Not(Name(a))",
		"obj.attr":        "Attr(Name(obj),attr)",
		"f(a, k=1)":       "Call(Name(f);[Name(a)];[k=Const(int:1)])",
		"d[\"key\"]":      `Subscript(Name(d);Const(str:"key"))`,
		"a not in b":      "Compare(Name(a);[NotIn];[Name(b)])",
		"a < b <= c":      "Compare(Name(a);[Lt,LtE];[Name(b),Name(c)])",
		"a or b":          "BoolOp(Or;{Name(a),Name(b)})",
		"[1, 2]":          "List[Const(int:1),Const(int:2)]",
		"(a, b)":          "Tuple[Name(a),Name(b)]",
		"{\"a\": 1, **b}": `Dict{KV(Const(str:"a"),Const(int:1)),UNPACK(Name(b))}`,
		"None":            "Const(None)",
	}

	for expr, want := range tests {
		assert.Equal(t, want, signatureOf(t, expr), expr)
	}
}

func TestCanonicalize_Equivalences(t *testing.T) {
	tests := []struct {
		a, b string
	}{
		{"a + b", "b + a"},
		{"a * b * c", "c * (b * a)"},
		{"a + (b + c)", "(c + a) + b"},
		{"(a)", "a"},
		{"a and b", "b and a"},
		{"{\"a\": 1, \"b\": 2}", "{\"b\": 2, \"a\": 1}"},
		{"f(a=1, b=2)", "f(b=2, a=1)"},
		{"'text'", "\"text\""},
		{"0x10", "16"},
		{"1_000", "1000"},
		{"1.50", "1.5"},
		{"'a' 'b'", "'ab'"},
	}

	for _, tt := range tests {
		assert.Equal(t, signatureOf(t, tt.a), signatureOf(t, tt.b), "%s == %s", tt.a, tt.b)
	}
}

func TestCanonicalize_Distinctions(t *testing.T) {
	tests := []struct {
		a, b string
	}{
		{"a - b", "b - a"},
		{"a + b", "a * b"},
		{"f(a, b)", "f(b, a)"},
		{"a and b", "a or b"},
		{"[a, b]", "(a, b)"},
		{"'1'", "1"},
		{"b'x'", "'x'"},
		{"a < b", "a > b"},
	}

	for _, tt := range tests {
		assert.NotEqual(t, signatureOf(t, tt.a), signatureOf(t, tt.b), "%s != %s", tt.a, tt.b)
	}
}

func TestCanonicalize_Shapes(t *testing.T) {
	assert.Equal(t, shapeOf(t, "x + 1"), shapeOf(t, "2 + y"))
	assert.Equal(t, Shape("Add{Const,Name}"), shapeOf(t, "x + 1"))
	assert.Equal(t, Shape("Call(1,2)"), shapeOf(t, "f(a, b=1, c=2)"))
	assert.Equal(t, Shape("Dict(2)"), shapeOf(t, "{1: a, 2: b}"))
	assert.NotEqual(t, shapeOf(t, "a - 1"), shapeOf(t, "1 - a"))
}

func TestClassify(t *testing.T) {
	tests := map[string]ExprKind{
		"name":           KindName,
		"f\"{x}\"":       KindOther,
		"lambda x: x":    KindOther,
		"[x for x in y]": KindOther,
		"(1)":            KindConst,
		"a if b else c":  KindOther,
		"x[1:2]":         KindSubscript,
	}

	for expr, want := range tests {
		assert.Equal(t, want, Classify(parseExpr(t, expr)), expr)
	}
}

func TestCanonicalize_OtherIsTotal(t *testing.T) {
	sig, shape := Canonicalize(parseExpr(t, "f\"{x}\""))

	assert.Equal(t, Signature(`Other(string;"f\"{x}\"")`), sig)
	assert.Equal(t, Shape("Other(string)"), shape)

	assert.Equal(t, signatureOf(t, "lambda  x:  x"), signatureOf(t, "lambda x: x"))
	assert.Equal(t, "Other", ExprKind(99).String())
}

func TestCanonicalize_OtherKeepsStringText(t *testing.T) {
	assert.Equal(t, Signature(`Other(lambda;"lambda: \"a  b\"")`), signatureOf(t, `lambda:   "a  b"`))
	assert.NotEqual(t, signatureOf(t, `lambda: "a  b"`), signatureOf(t, `lambda: "a b"`))
	assert.Equal(t, signatureOf(t, "(lambda:\n    x)"), signatureOf(t, "(lambda: x)"))
}

func TestReferencedNames(t *testing.T) {
	tests := map[string][]string{
		"a + b * a":             {"a", "b"},
		"obj.attr + f(k=v)":     {"f", "obj", "v"},
		"lambda x: x + z":       {"x", "z"},
		"1 + 2":                 {},
		"results.get(\"k\", d)": {"d", "results"},
	}

	for expr, want := range tests {
		assert.Equal(t, want, ReferencedNames(parseExpr(t, expr)), expr)
	}
}

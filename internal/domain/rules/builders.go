package rules

import (
	"fmt"
	"strings"

	"ultraclean.dev/pkg/ultraclean/internal/syntax"
)

// binding is one keyword argument of a generated helper call.
type binding struct {
	keyword string
	value   string
}

// callText renders fn(k1=v1, k2=v2). Operand text is kept verbatim, so
// parentheses and comments inside an operand survive. Comments between the
// operands are not part of the result; the engine carries them over.
func callText(fn string, bindings ...binding) string {
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		parts = append(parts, b.keyword+"="+b.value)
	}

	return fn + "(" + strings.Join(parts, ", ") + ")"
}

// lookupRule matches recv.get("KEY"[, default]) for a known result key.
type lookupRule struct {
	name     string
	function string
	keys     map[string]bool
}

func (r lookupRule) Name() string { return r.name }

func (r lookupRule) Rewrite(value *syntax.Node) (string, string, bool, error) {
	call := value.Unwrap()
	if call.Kind() != "call" {
		return "", "", false, nil
	}

	fn := call.ChildByField("function").Unwrap()
	if fn == nil || fn.Kind() != "attribute" || fn.ChildByField("attribute").Text() != "get" {
		return "", "", false, nil
	}

	positional, keywords, splats := callArguments(call)
	if len(positional) == 0 || len(positional) > 2 {
		return "", "", false, nil
	}

	key, ok := syntax.PlainString(positional[0])
	if !ok || !r.keys[key] {
		return "", "", false, nil
	}

	if len(splats) > 0 {
		return "", "", false, fmt.Errorf("%s: %w: %s", r.name, ErrUnpackedArgument, splats[0].Text())
	}

	fallback := "0.0"
	if len(positional) == 2 {
		fallback = positional[1].Text()
	} else if kw := keywordValue(keywords, "default"); kw != nil {
		fallback = kw.Text()
	}

	receiver := fn.ChildByField("object")

	return callText(r.function,
		binding{"results", receiver.Text()},
		binding{"default", fallback},
	), r.name, true, nil
}

// indexRule matches recv["KEY"] for a known result key.
type indexRule struct {
	name     string
	function string
	keys     map[string]bool
}

func (r indexRule) Name() string { return r.name }

func (r indexRule) Rewrite(value *syntax.Node) (string, string, bool, error) {
	sub := value.Unwrap()
	if sub.Kind() != "subscript" {
		return "", "", false, nil
	}

	subscripts := sub.ChildrenByField("subscript")
	if len(subscripts) != 1 {
		return "", "", false, nil
	}

	key, ok := syntax.PlainString(subscripts[0])
	if !ok || !r.keys[key] {
		return "", "", false, nil
	}

	return callText(r.function,
		binding{"results", sub.ChildByField("value").Text()},
		binding{"default", "0.0"},
	), r.name, true, nil
}

// sumRule matches a + b where one operand belongs to each name set, in
// either order.
type sumRule struct {
	name          string
	function      string
	firstKeyword  string
	firstNames    map[string]bool
	secondKeyword string
	secondNames   map[string]bool
}

func (r sumRule) Name() string { return r.name }

func (r sumRule) Rewrite(value *syntax.Node) (string, string, bool, error) {
	left, right, ok := binary(value, "+")
	if !ok {
		return "", "", false, nil
	}

	_, leftFirst := nameIn(left, r.firstNames)
	_, rightFirst := nameIn(right, r.firstNames)
	_, leftSecond := nameIn(left, r.secondNames)
	_, rightSecond := nameIn(right, r.secondNames)

	if !(leftFirst || rightFirst) || !(leftSecond || rightSecond) {
		return "", "", false, nil
	}

	first, second := left, right
	if !leftFirst {
		first, second = right, left
	}

	return callText(r.function,
		binding{r.firstKeyword, first.Text()},
		binding{r.secondKeyword, second.Text()},
		binding{"default", "0.0"},
	), r.name, true, nil
}

// differenceRule matches a - b with a from one name set and b from another.
type differenceRule struct {
	name              string
	function          string
	minuendKeyword    string
	minuendNames      map[string]bool
	subtrahendKeyword string
	subtrahendNames   map[string]bool
}

func (r differenceRule) Name() string { return r.name }

func (r differenceRule) Rewrite(value *syntax.Node) (string, string, bool, error) {
	bindings, ok := r.match(value)
	if !ok {
		return "", "", false, nil
	}

	return callText(r.function, append(bindings, binding{"default", "0.0"})...), r.name, true, nil
}

func (r differenceRule) match(value *syntax.Node) ([]binding, bool) {
	left, right, ok := binary(value, "-")
	if !ok {
		return nil, false
	}

	if _, ok := nameIn(left, r.minuendNames); !ok {
		return nil, false
	}

	if _, ok := nameIn(right, r.subtrahendNames); !ok {
		return nil, false
	}

	return []binding{
		{r.minuendKeyword, left.Text()},
		{r.subtrahendKeyword, right.Text()},
	}, true
}

// differencePlusRule matches (a - b) + c and c + (a - b) where c is a named
// extra term. Each orientation reports its own reason tag.
type differencePlusRule struct {
	difference   differenceRule
	extraKeyword string
	extraNames   map[string]bool
	leftReason   string
	rightReason  string
}

func (r differencePlusRule) Name() string { return r.leftReason }

func (r differencePlusRule) Rewrite(value *syntax.Node) (string, string, bool, error) {
	left, right, ok := binary(value, "+")
	if !ok {
		return "", "", false, nil
	}

	if diff, ok := r.difference.match(left); ok {
		if _, extra := nameIn(right, r.extraNames); extra {
			return r.render(diff, right), r.leftReason, true, nil
		}
	}

	if diff, ok := r.difference.match(right); ok {
		if _, extra := nameIn(left, r.extraNames); extra {
			return r.render(diff, left), r.rightReason, true, nil
		}
	}

	return "", "", false, nil
}

func (r differencePlusRule) render(diff []binding, extra *syntax.Node) string {
	bindings := append(diff, binding{r.extraKeyword, extra.Text()}, binding{"default", "0.0"})
	return callText(r.difference.function, bindings...)
}

// wrapRule passes a value of one of the listed node kinds to the builder
// unchanged.
type wrapRule struct {
	name     string
	function string
	kinds    map[string]bool
}

func (r wrapRule) Name() string { return r.name }

func (r wrapRule) Rewrite(value *syntax.Node) (string, string, bool, error) {
	inner := value.Unwrap()
	if !r.kinds[inner.Kind()] {
		return "", "", false, nil
	}

	return r.function + "(" + value.Text() + ")", r.name, true, nil
}

// unionRule turns a | b into builder(a, b).
type unionRule struct {
	name     string
	function string
}

func (r unionRule) Name() string { return r.name }

func (r unionRule) Rewrite(value *syntax.Node) (string, string, bool, error) {
	left, right, ok := binary(value, "|")
	if !ok {
		return "", "", false, nil
	}

	return r.function + "(" + left.Text() + ", " + right.Text() + ")", r.name, true, nil
}

// callWrapRule wraps any other call. The reason names merge-like callees. It
// never wraps a call that already goes to the builder, so rewritten files are
// left alone.
type callWrapRule struct {
	name       string
	function   string
	namedCalls map[string]bool
}

func (r callWrapRule) Name() string { return r.name }

func (r callWrapRule) Rewrite(value *syntax.Node) (string, string, bool, error) {
	call := value.Unwrap()
	if call.Kind() != "call" {
		return "", "", false, nil
	}

	callee, ok := calleeName(call)
	if ok && callee == r.function {
		return "", "", false, nil
	}

	reason := r.name
	if ok && r.namedCalls[strings.ToLower(callee)] {
		reason = callee + "_to_builder"
	}

	return r.function + "(" + value.Text() + ")", reason, true, nil
}

// updateRule turns target.update(x) into target = builder(target, x).
type updateRule struct {
	name     string
	target   string
	method   string
	function string
}

func (r updateRule) Name() string { return r.name }

func (r updateRule) RewriteStatement(expr *syntax.Node) (string, string, bool, error) {
	call := expr.Unwrap()
	if call.Kind() != "call" {
		return "", "", false, nil
	}

	fn := call.ChildByField("function").Unwrap()
	if fn == nil || fn.Kind() != "attribute" {
		return "", "", false, nil
	}

	obj := fn.ChildByField("object").Unwrap()
	if obj == nil || obj.Kind() != "identifier" || obj.Text() != r.target || fn.ChildByField("attribute").Text() != r.method {
		return "", "", false, nil
	}

	positional, keywords, splats := callArguments(call)
	if len(keywords) > 0 || len(splats) > 0 || len(positional) > 1 {
		return "", "", false, nil
	}

	arg := "{}"
	if len(positional) == 1 {
		arg = positional[0].Text()
	}

	replacement := r.target + " = " + r.function + "(" + r.target + ", " + arg + ")"

	return replacement, call.Text(), true, nil
}

func keywordValue(keywords []*syntax.Node, name string) *syntax.Node {
	for _, kw := range keywords {
		if id := kw.ChildByField("name"); id != nil && id.Text() == name {
			return kw.ChildByField("value")
		}
	}

	return nil
}

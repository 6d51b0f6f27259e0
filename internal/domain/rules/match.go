package rules

import (
	"errors"

	"ultraclean.dev/pkg/ultraclean/internal/syntax"
)

// ErrUnpackedArgument is returned when a matched call passes *args or
// **kwargs where a single value is required.
var ErrUnpackedArgument = errors.New("unpacked argument cannot be rebound")

func set(names ...string) map[string]bool {
	out := make(map[string]bool, len(names))
	for _, n := range names {
		out[n] = true
	}

	return out
}

// nameIn accepts a bare name or an attribute whose member name is in names.
func nameIn(n *syntax.Node, names map[string]bool) (string, bool) {
	n = n.Unwrap()
	if n == nil {
		return "", false
	}

	switch n.Kind() {
	case "identifier":
		return n.Text(), names[n.Text()]
	case "attribute":
		if attr := n.ChildByField("attribute"); attr != nil {
			return attr.Text(), names[attr.Text()]
		}
	}

	return "", false
}

func operator(n *syntax.Node) string {
	if op := n.ChildByField("operator"); op != nil {
		return op.Kind()
	}

	return ""
}

// binary returns the operands of n when it is a binary operation with op.
func binary(n *syntax.Node, op string) (left, right *syntax.Node, ok bool) {
	n = n.Unwrap()
	if n == nil || n.Kind() != "binary_operator" || operator(n) != op {
		return nil, nil, false
	}

	left, right = n.ChildByField("left"), n.ChildByField("right")

	return left, right, left != nil && right != nil
}

func flatten(n *syntax.Node, op string) []*syntax.Node {
	left, right, ok := binary(n, op)
	if !ok {
		return []*syntax.Node{n}
	}

	return append(flatten(left, op), flatten(right, op)...)
}

// callArguments splits the arguments of a call. Generator arguments are
// reported as one positional argument.
func callArguments(call *syntax.Node) (positional, keywords, splats []*syntax.Node) {
	args := call.ChildByField("arguments")
	if args == nil {
		return nil, nil, nil
	}

	if args.Kind() != "argument_list" {
		return []*syntax.Node{args}, nil, nil
	}

	for _, arg := range args.NamedChildren() {
		switch arg.Kind() {
		case "keyword_argument":
			keywords = append(keywords, arg)
		case "list_splat", "dictionary_splat", "parenthesized_list_splat":
			splats = append(splats, arg)
		default:
			positional = append(positional, arg)
		}
	}

	return positional, keywords, splats
}

// calleeName returns the last dotted component of a call target.
func calleeName(call *syntax.Node) (string, bool) {
	fn := call.ChildByField("function").Unwrap()
	if fn == nil {
		return "", false
	}

	switch fn.Kind() {
	case "identifier":
		return fn.Text(), true
	case "attribute":
		if attr := fn.ChildByField("attribute"); attr != nil {
			return attr.Text(), true
		}
	}

	return "", false
}

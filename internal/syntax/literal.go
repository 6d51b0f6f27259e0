package syntax

import "strings"

var quoteStyles = []string{`"""`, `'''`, `"`, `'`}

// SplitString separates the prefix letters of a string literal such as
// rb'''x''' from its unquoted body. Text that is not quoted is returned as the
// body with an empty prefix.
func SplitString(text string) (prefix, body string) {
	i := 0
	for i < len(text) && text[i] != '\'' && text[i] != '"' {
		i++
	}

	if i == len(text) {
		return "", text
	}

	prefix, rest := text[:i], text[i:]

	for _, quote := range quoteStyles {
		if len(rest) >= 2*len(quote) && strings.HasPrefix(rest, quote) && strings.HasSuffix(rest, quote) {
			return prefix, rest[len(quote) : len(rest)-len(quote)]
		}
	}

	return prefix, rest
}

// PlainString returns the body of a single, non-formatted, non-bytes string
// literal node.
func PlainString(n *Node) (string, bool) {
	n = n.Unwrap()
	if n == nil || n.Kind() != "string" {
		return "", false
	}

	prefix, body := SplitString(n.Text())
	if strings.ContainsAny(prefix, "fFtTbB") {
		return "", false
	}

	return body, true
}

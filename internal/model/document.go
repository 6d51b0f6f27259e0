package model

// DocKind classifies a node of a decoded structured document.
type DocKind int

// Available DocKind values.
const (
	DocScalar DocKind = iota
	DocMapping
	DocSequence
)

// Scalar tags the collision detector distinguishes.
const (
	TagNull  = "!!null"
	TagBool  = "!!bool"
	TagInt   = "!!int"
	TagFloat = "!!float"
	TagStr   = "!!str"
)

// DocNode is a format-neutral view of one YAML value. Mapping keys keep their
// document order and are stored as their scalar text.
type DocNode struct {
	Kind     DocKind
	Tag      string
	Value    string
	Keys     []string
	Children []*DocNode
}

// IsNull reports whether the node is an explicit or implicit null scalar.
func (d *DocNode) IsNull() bool {
	return d == nil || (d.Kind == DocScalar && d.Tag == TagNull)
}

// Lookup returns the value stored under key, or nil.
func (d *DocNode) Lookup(key string) *DocNode {
	if d == nil || d.Kind != DocMapping {
		return nil
	}

	for i := len(d.Keys) - 1; i >= 0; i-- {
		if d.Keys[i] == key {
			return d.Children[i]
		}
	}

	return nil
}

package types

// MapItem is one key/value pair of a host map, in the host's key order, as
// surfaced to embedders by the conversion layer.
type MapItem struct {
	Key   any
	Value any
}

// Tuple is the native image of a tuple object: a fixed-arity record of
// converted values. It is a distinct type so embedders can tell records
// apart from plain vectors.
type Tuple []any

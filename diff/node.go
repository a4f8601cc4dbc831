// Package diff implements a generic unified-diff engine over anything
// that can answer "are we the same?" and "what's your content?" — the
// two questions diffutil needs answered for a pair of resolved blobs or
// trees without caring how either side is actually stored.
package diff

import "bytes"

// Node is one side of a two-way comparison.
type Node interface {
	// SameAs is a shortcut that skips computing Content entirely when
	// the caller already has cheaper evidence the two sides are equal
	// (for satchel, the content-addressed ref of a blob or tree: two
	// refs matching means the content is byte-identical, no need to
	// read either). Return false when no such shortcut is available;
	// the line-level diff will still catch true equality, just slower.
	SameAs(Node) bool

	// Content returns the text to compare.
	Content() (string, error)
}

// ByteNode compares raw bytes, used when content is read straight off a
// blob stream with no encoding assumptions.
type ByteNode []byte

func (b ByteNode) SameAs(other Node) bool {
	o, ok := other.(ByteNode)
	if !ok {
		return false
	}
	return bytes.Equal(b, o)
}

func (b ByteNode) Content() (string, error) {
	return string(b), nil
}

// StringNode compares strings directly, used when content is already
// materialized (e.g. one side of a diff built from a constant or an
// already-decoded buffer).
type StringNode string

func (s StringNode) SameAs(other Node) bool {
	o, ok := other.(StringNode)
	if !ok {
		return false
	}
	return s == o
}

func (s StringNode) Content() (string, error) {
	return string(s), nil
}

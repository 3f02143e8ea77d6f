// Package doctree provides a typed accessor over loosely structured JSON
// documents. External registry responses are optional-heavy: almost every
// field may be missing, null, or nested under structure that is itself
// missing. Instead of scattering nil checks through callers, doctree models
// a document as a variant tree (map, sequence, scalar, absent) where every
// lookup on missing structure yields an absent node rather than an error.
package doctree

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Node is one position in a decoded document. The zero value is absent.
// Nodes are immutable after decoding and safe for concurrent reads.
type Node struct {
	value   any
	present bool
}

// absent is the shared node returned for every missing lookup.
var absent = &Node{}

// Decode parses a JSON document into a Node tree.
func Decode(data []byte) (*Node, error) {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("doctree: decoding document: %w", err)
	}

	return wrap(v), nil
}

// wrap converts a decoded JSON value into a Node. JSON null maps to absent,
// matching how the upstream registries use null for "no value".
func wrap(v any) *Node {
	if v == nil {
		return absent
	}

	return &Node{value: v, present: true}
}

// IsAbsent reports whether the node represents missing structure or JSON null.
func (n *Node) IsAbsent() bool {
	return n == nil || !n.present
}

// Get navigates a slash-delimited path ("/person/name/given-names/value")
// and returns the node at that position. Missing structure at any segment
// returns an absent node, never an error. Numeric segments index sequences.
// The only error case is a malformed path expression: empty, or not starting
// with a slash.
func (n *Node) Get(path string) (*Node, error) {
	if path == "" || !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("doctree: malformed path %q: must start with '/'", path)
	}

	cur := n
	for _, seg := range strings.Split(path[1:], "/") {
		if seg == "" {
			return nil, fmt.Errorf("doctree: malformed path %q: empty segment", path)
		}

		cur = cur.step(seg)
	}

	return cur, nil
}

// MustGet is Get for compile-time constant paths. It panics on a malformed
// path expression (a programmer error, like a bad regexp) but still returns
// an absent node for missing data.
func (n *Node) MustGet(path string) *Node {
	node, err := n.Get(path)
	if err != nil {
		panic(err)
	}

	return node
}

// step descends one path segment into a map or sequence.
func (n *Node) step(seg string) *Node {
	if n.IsAbsent() {
		return absent
	}

	switch v := n.value.(type) {
	case map[string]any:
		child, ok := v[seg]
		if !ok {
			return absent
		}

		return wrap(child)

	case []any:
		i, err := strconv.Atoi(seg)
		if err != nil || i < 0 || i >= len(v) {
			return absent
		}

		return wrap(v[i])

	default:
		// Scalars have no children.
		return absent
	}
}

// Key returns the child under a map key, or absent.
func (n *Node) Key(name string) *Node {
	return n.step(name)
}

// Seq returns the node's elements when it is a sequence, or nil.
func (n *Node) Seq() []*Node {
	if n.IsAbsent() {
		return nil
	}

	raw, ok := n.value.([]any)
	if !ok {
		return nil
	}

	out := make([]*Node, len(raw))
	for i := range raw {
		out[i] = wrap(raw[i])
	}

	return out
}

// Str returns the node's string value. The second return is false for
// absent nodes and non-string scalars.
func (n *Node) Str() (string, bool) {
	if n.IsAbsent() {
		return "", false
	}

	s, ok := n.value.(string)

	return s, ok
}

// StrOr returns the node's string value, or the fallback when the node is
// absent or not a string.
func (n *Node) StrOr(fallback string) string {
	if s, ok := n.Str(); ok {
		return s
	}

	return fallback
}

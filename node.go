package productinfo

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
)

var embeddedIDPattern = regexp.MustCompile(`\d+`)

// Node is a cursor over one position in the content tree. It is a small value:
// copying it (or calling Clone) yields an independent handle. A Node either
// wraps a published record or is a render-failure placeholder carrying the
// error payload the tree produced for content it could not render.
type Node struct {
	tree    TreeStore
	record  NodeRecord
	failure string
	valid   bool
}

// NewNode wraps a published record.
func NewNode(tree TreeStore, record NodeRecord) Node {
	return Node{tree: tree, record: record.clone(), valid: true}
}

// FailureNode builds a render-failure placeholder from the payload the tree
// produced instead of content.
func FailureNode(tree TreeStore, payload string) Node {
	return Node{tree: tree, failure: payload, valid: true}
}

// LookupNode returns the published node for id, or a render-failure placeholder
// naming id when the snapshot has no published record for it.
func LookupNode(ctx context.Context, tree TreeStore, id int64) Node {
	if tree != nil {
		if record, ok := tree.Lookup(ctx, id); ok {
			return NewNode(tree, record)
		}
	}
	return FailureNode(tree, fmt.Sprintf("No published item exist with id %d", id))
}

// IsZero reports whether the handle was never initialised.
func (n Node) IsZero() bool {
	return !n.valid
}

// IsRenderFailure reports whether the handle is an error placeholder.
func (n Node) IsRenderFailure() bool {
	return n.valid && n.failure != ""
}

// FailurePayload returns the placeholder error payload.
func (n Node) FailurePayload() string {
	return n.failure
}

// ID returns the node id. For placeholders the id is recovered from the error
// payload; ok is false when none can be recovered.
func (n Node) ID() (int64, bool) {
	if !n.valid {
		return 0, false
	}
	if n.failure == "" {
		return n.record.ID, true
	}
	match := embeddedIDPattern.FindString(n.failure)
	if match == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(match, 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Record returns a copy of the wrapped record. Placeholders return the zero
// record.
func (n Node) Record() NodeRecord {
	return n.record.clone()
}

// Value reads a field on this node only. Placeholders have no values.
func (n Node) Value(field Field) (string, bool) {
	if !n.valid || n.failure != "" || field.IsZero() {
		return "", false
	}
	value := field.valueOf(n.record)
	return value, value != ""
}

// Clone returns an independent copy of the handle.
func (n Node) Clone() Node {
	out := n
	out.record = n.record.clone()
	return out
}

func (n Node) String() string {
	if !n.valid {
		return "node:<nil>"
	}
	if n.failure != "" {
		return fmt.Sprintf("node:<failure %q>", n.failure)
	}
	return fmt.Sprintf("node:%d", n.record.ID)
}

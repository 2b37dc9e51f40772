package betree

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
)

// DebugString renders the tree rooted at the current superblock root
// as an indented tree, reporting each node's kind, page id, and
// occupancy. It exists for interactive inspection (see cmd/betree-cli);
// it is not part of the durable format and never touches the WAL or
// superblock.
func (e *Engine) DebugString() (string, error) {
	var b strings.Builder
	if err := e.debugNode(&b, e.sb.Root, 0); err != nil {
		return "", err
	}
	return b.String(), nil
}

func (e *Engine) debugNode(b *strings.Builder, id PageID, depth int) error {
	node, err := e.cache.get(id)
	if err != nil {
		return err
	}
	indent := strings.Repeat("  ", depth)
	if node.IsLeaf() {
		fmt.Fprintf(b, "%sleaf(page=%d, root=%v, entries=%d, size=%s)\n",
			indent, id, node.Root, len(node.Leaf.entries), humanize.Bytes(uint64(node.Leaf.size())))
		return nil
	}
	in := node.Internal
	fmt.Fprintf(b, "%sinternal(page=%d, root=%v, pivots=%d, buffer=%d, eps=%.2f)\n",
		indent, id, node.Root, in.pivotMap.Len(), in.msgBuffer.Len(), in.epsilon)
	for i := 0; i < in.pivotMap.Len(); i++ {
		fmt.Fprintf(b, "%s  pivot < %x ->\n", indent, in.pivotMap.KeyAt(i))
		if err := e.debugNode(b, in.pivotMap.ChildAt(i), depth+2); err != nil {
			return err
		}
	}
	fmt.Fprintf(b, "%s  rightmost ->\n", indent)
	return e.debugNode(b, in.pivotMap.Rightmost, depth+2)
}

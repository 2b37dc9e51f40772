package betree

import (
	"github.com/pkg/errors"
)

// Node is the in-memory, page-backed container for either variant of
// the tree: a root flag (persisted) and a dirty flag (never
// persisted, reset to false on every load) wrap exactly one of Leaf
// or Internal.
type Node struct {
	Root     bool
	dirty    bool
	Leaf     *LeafNode
	Internal *InternalNode
}

func newLeafNode(root bool) *Node {
	return &Node{Root: root, dirty: true, Leaf: newEmptyLeaf()}
}

func newInternalNodeContainer(root bool, pivotMap *PivotMap, epsilon float32) *Node {
	return &Node{Root: root, dirty: true, Internal: newInternalNode(pivotMap, epsilon)}
}

func (n *Node) IsLeaf() bool { return n.Leaf != nil }

func (n *Node) markDirty() { n.dirty = true }

// IsFull reports whether this node has exceeded its per-variant
// budget and must be split before being released back to the cache.
func (n *Node) IsFull() bool {
	if n.IsLeaf() {
		return n.Leaf.IsFull()
	}
	return n.Internal.IsPivotsFull()
}

// Get resolves a lookup against this node alone: a leaf always
// terminates the search, an internal node may require the caller to
// descend into the returned child.
func (n *Node) Get(key Key) (val Value, outcome getOutcome, child ChildPageID, err error) {
	if n.IsLeaf() {
		if v, ok := n.Leaf.Get(key); ok {
			return v, outcomeFound, 0, nil
		}
		return nil, outcomeAbsent, 0, nil
	}
	return n.Internal.Get(key)
}

func (n *Node) size() int {
	if n.IsLeaf() {
		return n.Leaf.size()
	}
	return n.Internal.size()
}

// serialize renders the node into a fixed PageSize buffer: magic,
// root flag, variant tag, then the variant's own payload. The dirty
// flag is transient and never written.
func (n *Node) serialize() (*page, error) {
	p := newPage()
	off := putUint64(p.data[:], NodeMagic)
	off += putBool(p.data[off:], n.Root)
	if n.IsLeaf() {
		off += putUint8(p.data[off:], tagLeaf)
		payload := n.Leaf.size()
		if commonMetaSize+payload > PageSize {
			return nil, errors.Wrap(ErrKeyOverflow, "leaf payload exceeds page size")
		}
		n.Leaf.serialize(p.data[off:])
	} else {
		off += putUint8(p.data[off:], tagInternal)
		payload := n.Internal.size()
		if commonMetaSize+payload > PageSize {
			return nil, errors.Wrap(ErrKeyOverflow, "internal payload exceeds page size")
		}
		n.Internal.serialize(p.data[off:])
	}
	return p, nil
}

// cloneNode deep-copies a node's element slices (but not the byte
// slices underlying individual keys/values, which are never mutated
// in place) so the clone can be safely mutated without affecting the
// original. Used by the copy-on-write path before mutating a node
// reachable from the last durably flushed superblock.
func cloneNode(n *Node) *Node {
	if n.IsLeaf() {
		entries := append([]leafEntry(nil), n.Leaf.entries...)
		return &Node{Root: n.Root, Leaf: &LeafNode{entries: entries}}
	}
	pivots := append([]pivotEntry(nil), n.Internal.pivotMap.entries...)
	msgs := append([]bufferEntry(nil), n.Internal.msgBuffer.entries...)
	return &Node{
		Root: n.Root,
		Internal: &InternalNode{
			pivotMap:  &PivotMap{entries: pivots, Rightmost: n.Internal.pivotMap.Rightmost},
			msgBuffer: &MessageBuffer{entries: msgs},
			epsilon:   n.Internal.epsilon,
		},
	}
}

func deserializeNode(p *page) (*Node, error) {
	src := p.data[:]
	magic, off := getUint64(src)
	if magic != NodeMagic {
		return nil, errors.Wrap(ErrCorrupt, "bad node magic")
	}
	root, n2 := getBool(src[off:])
	off += n2
	tag, n3 := getUint8(src[off:])
	off += n3
	switch tag {
	case tagLeaf:
		leaf, err := deserializeLeaf(src[off:])
		if err != nil {
			return nil, err
		}
		return &Node{Root: root, Leaf: leaf}, nil
	case tagInternal:
		internal, err := deserializeInternal(src[off:])
		if err != nil {
			return nil, err
		}
		return &Node{Root: root, Internal: internal}, nil
	default:
		return nil, errors.Wrap(ErrCorrupt, "unknown node tag")
	}
}

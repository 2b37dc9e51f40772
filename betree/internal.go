package betree

import (
	"github.com/pkg/errors"
)

// getOutcome distinguishes the three ways an internal node's buffered
// message can resolve a lookup: found (an Insert), a tombstone (a
// Delete, which must be reported as absent rather than triggering a
// further descent), or a miss that must continue down the tree.
type getOutcome int

const (
	outcomeDescend getOutcome = iota
	outcomeFound
	outcomeTombstone
	// outcomeAbsent marks a leaf miss: the key was never present, as
	// opposed to outcomeTombstone's explicit record of a deletion.
	// The engine treats both identically (key not found).
	outcomeAbsent
)

// pendingSplit describes a child's split result as it propagates back
// up to the parent that must record the new edge.
type pendingSplit struct {
	separator  Key
	rightChild ChildPageID
}

// childBatch is one (child, messages) pair produced by PrepareMsgFlush.
type childBatch struct {
	child ChildPageID
	msgs  *MessageBuffer
}

// InternalNode routes keys to children via a PivotMap and absorbs
// writes into a MessageBuffer that is only flushed downward in
// amortized batches.
type InternalNode struct {
	pivotMap  *PivotMap
	msgBuffer *MessageBuffer
	epsilon   float32
}

func newInternalNode(pivotMap *PivotMap, epsilon float32) *InternalNode {
	return &InternalNode{pivotMap: pivotMap, msgBuffer: NewMessageBuffer(), epsilon: epsilon}
}

// MergeBuffers bulk-appends an incoming MessageBuffer into this node's
// own buffer; within the call, later (incoming) keys override earlier
// (already-buffered) ones on collision.
func (n *InternalNode) MergeBuffers(msgs *MessageBuffer) {
	n.msgBuffer.Merge(msgs)
}

// FindChild returns the child associated with the least pivot
// strictly greater than key, or the rightmost child if none.
func (n *InternalNode) FindChild(key Key) ChildPageID {
	return n.pivotMap.Find(key)
}

// PrepareMsgFlush partitions the buffer by the child FindChild would
// assign to each key, returns the non-empty partitions ordered from
// rightmost to leftmost, and empties the buffer. Buffer entries are
// already key-sorted and pivot ranges are contiguous, so a single
// linear scan against the pivot boundaries produces the partition.
func (n *InternalNode) PrepareMsgFlush() []childBatch {
	entries := n.msgBuffer.entries
	var groups []childBatch
	pos := 0
	for _, pv := range n.pivotMap.entries {
		end := pos
		for end < len(entries) && keyCompare(entries[end].key, pv.key) < 0 {
			end++
		}
		if end > pos {
			groups = append(groups, childBatch{
				child: pv.child,
				msgs:  &MessageBuffer{entries: append([]bufferEntry(nil), entries[pos:end]...)},
			})
		}
		pos = end
	}
	if pos < len(entries) {
		groups = append(groups, childBatch{
			child: n.pivotMap.Rightmost,
			msgs:  &MessageBuffer{entries: append([]bufferEntry(nil), entries[pos:]...)},
		})
	}
	n.msgBuffer = NewMessageBuffer()
	for i, j := 0, len(groups)-1; i < j; i, j = i+1, j-1 {
		groups[i], groups[j] = groups[j], groups[i]
	}
	return groups
}

// UpdatePivots records how a recursed-into child changed identity and,
// if it split, wires the new sibling into the pivot map.
//
// Without a split, oldChild simply changed page id (in place mutation
// or copy-on-write clone) and the edge that pointed to it is rewritten
// to newChild. With a split, newChild holds the smaller-key half of
// the original child's range and split.rightChild holds the
// larger-key half; the edge that used to terminate at oldChild
// (a pivot, or the rightmost edge) now belongs to the larger-key half,
// so it is rewritten to split.rightChild, and a fresh pivot is
// inserted at the separator pointing at newChild.
func (n *InternalNode) UpdatePivots(oldChild, newChild ChildPageID, split *pendingSplit) {
	if split == nil {
		n.pivotMap.ReplaceChild(oldChild, newChild)
		return
	}
	n.pivotMap.ReplaceChild(oldChild, split.rightChild)
	n.pivotMap.Insert(split.separator, newChild)
}

// IsBufferFull reports whether the message buffer has exceeded its
// epsilon-derived budget and must be flushed toward the children.
func (n *InternalNode) IsBufferFull() bool {
	return n.msgBuffer.size() > bufferBudget(n.epsilon)
}

// IsPivotsFull reports whether the pivot section (plus the rightmost
// child pointer) has exceeded its budget and the node must split.
func (n *InternalNode) IsPivotsFull() bool {
	return n.pivotMap.size()+childPageIDSize > pivotBudget(n.epsilon)
}

// Split divides this node at its floor(n/2)-th pivot key. Pivots
// above the median move to a new right node; the median's own child
// becomes this node's new rightmost child; buffered messages with key
// < median stay, the rest move right. Requires at least 3 pivots.
func (n *InternalNode) Split() (right *InternalNode, median Key, err error) {
	cnt := len(n.pivotMap.entries)
	if cnt < 3 {
		return nil, nil, errors.Wrapf(ErrInvariant, "internal split needs >= 3 pivots, have %d", cnt)
	}
	splitIdx := cnt / 2
	medianEntry := n.pivotMap.entries[splitIdx]
	median = medianEntry.key

	rightEntries := append([]pivotEntry(nil), n.pivotMap.entries[splitIdx+1:]...)
	right = &InternalNode{
		pivotMap:  &PivotMap{entries: rightEntries, Rightmost: n.pivotMap.Rightmost},
		epsilon:   n.epsilon,
		msgBuffer: NewMessageBuffer(),
	}

	n.pivotMap.entries = n.pivotMap.entries[:splitIdx]
	n.pivotMap.Rightmost = medianEntry.child

	right.msgBuffer = n.msgBuffer.partitionBefore(median)
	return right, median, nil
}

// Merge concatenates a right sibling's pivots, buffer, and rightmost
// child into self, given the separator key that used to divide them
// (self's current rightmost becomes a normal pivot edge at that key).
// The engine does not call this automatically (see the merge-policy
// open question); it exists so a caller performing explicit space
// reclamation can invoke it, with the caller guaranteeing the key
// ranges are adjacent and disjoint.
func (n *InternalNode) Merge(separator Key, other *InternalNode) {
	n.pivotMap.Insert(separator, n.pivotMap.Rightmost)
	n.pivotMap.entries = append(n.pivotMap.entries, other.pivotMap.entries...)
	n.pivotMap.Rightmost = other.pivotMap.Rightmost
	n.msgBuffer.Merge(other.msgBuffer)
}

// Get consults the buffer first: an Insert resolves the lookup, a
// Delete resolves it as definitively absent, and a miss means the
// caller must descend into the returned child.
func (n *InternalNode) Get(key Key) (val Value, outcome getOutcome, child ChildPageID, err error) {
	if msg, ok := n.msgBuffer.Get(key); ok {
		switch msg.Type {
		case MsgInsert:
			return msg.Value, outcomeFound, 0, nil
		case MsgDelete:
			return nil, outcomeTombstone, 0, nil
		case MsgUpsert:
			return nil, 0, 0, errors.Wrap(ErrUnimplemented, "internal upsert")
		default:
			return nil, 0, 0, errors.Wrap(ErrCorrupt, "unknown message type in internal get")
		}
	}
	return nil, outcomeDescend, n.pivotMap.Find(key), nil
}

func (n *InternalNode) size() int {
	return internalNodeMetaSize + n.msgBuffer.size() + n.pivotMap.size() + childPageIDSize
}

func (n *InternalNode) serialize(dst []byte) int {
	off := putFloat32(dst, n.epsilon)
	off += n.msgBuffer.serialize(dst[off:])
	off += n.pivotMap.serialize(dst[off:])
	off += putUint64(dst[off:], n.pivotMap.Rightmost)
	return off
}

func deserializeInternal(src []byte) (*InternalNode, error) {
	if len(src) < internalNodeMetaSize {
		return nil, errors.Wrap(ErrCorrupt, "truncated internal node metadata")
	}
	eps, off := getFloat32(src)
	msgBuffer, n2, err := deserializeMessageBuffer(src[off:])
	if err != nil {
		return nil, err
	}
	off += n2
	pivotMap, n3, err := deserializePivotMap(src[off:])
	if err != nil {
		return nil, err
	}
	off += n3
	if len(src[off:]) < childPageIDSize {
		return nil, errors.Wrap(ErrCorrupt, "truncated rightmost child pointer")
	}
	rightmost, _ := getUint64(src[off:])
	pivotMap.Rightmost = rightmost
	return &InternalNode{pivotMap: pivotMap, msgBuffer: msgBuffer, epsilon: eps}, nil
}

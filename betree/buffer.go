package betree

import (
	"sort"

	"github.com/pkg/errors"
)

// bufferEntry is one (key, message) pair held by a MessageBuffer.
type bufferEntry struct {
	key Key
	msg Message
}

// MessageBuffer is an ordered Key -> Message mapping, keyed uniquely
// and iterable in ascending key order. It backs both an internal
// node's own buffer and the single-entry batches the engine builds
// for Insert/Delete calls.
type MessageBuffer struct {
	entries []bufferEntry
}

// NewMessageBuffer returns an empty buffer.
func NewMessageBuffer() *MessageBuffer {
	return &MessageBuffer{}
}

// singleMessageBuffer builds the one-entry batch the engine wraps
// every Insert/Delete call in before descending the tree.
func singleMessageBuffer(key Key, msg Message) *MessageBuffer {
	return &MessageBuffer{entries: []bufferEntry{{key: key, msg: msg}}}
}

func (b *MessageBuffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.entries)
}

func (b *MessageBuffer) lowerBound(key Key) int {
	return sort.Search(len(b.entries), func(i int) bool {
		return keyCompare(b.entries[i].key, key) >= 0
	})
}

// Get returns the message for key and whether it is present.
func (b *MessageBuffer) Get(key Key) (Message, bool) {
	i := b.lowerBound(key)
	if i < len(b.entries) && keyCompare(b.entries[i].key, key) == 0 {
		return b.entries[i].msg, true
	}
	return Message{}, false
}

// Put inserts or overwrites the message for key.
func (b *MessageBuffer) Put(key Key, msg Message) {
	i := b.lowerBound(key)
	if i < len(b.entries) && keyCompare(b.entries[i].key, key) == 0 {
		b.entries[i].msg = msg
		return
	}
	b.entries = append(b.entries, bufferEntry{})
	copy(b.entries[i+1:], b.entries[i:])
	b.entries[i] = bufferEntry{key: key, msg: msg}
}

// Delete removes the entry for key, if present.
func (b *MessageBuffer) Delete(key Key) {
	i := b.lowerBound(key)
	if i < len(b.entries) && keyCompare(b.entries[i].key, key) == 0 {
		b.entries = append(b.entries[:i], b.entries[i+1:]...)
	}
}

// DeleteRange removes every entry with key in [lo, hi] (inclusive).
func (b *MessageBuffer) DeleteRange(lo, hi Key) {
	start := b.lowerBound(lo)
	end := sort.Search(len(b.entries), func(i int) bool {
		return keyCompare(b.entries[i].key, hi) > 0
	})
	if start < end {
		b.entries = append(b.entries[:start], b.entries[end:]...)
	}
}

// Merge bulk-appends other into b; on duplicate keys, other's message
// wins (the incoming batch always overrides what is already buffered).
func (b *MessageBuffer) Merge(other *MessageBuffer) {
	for _, e := range other.entries {
		b.Put(e.key, e.msg)
	}
}

// Min and Max return the smallest/largest key currently buffered.
func (b *MessageBuffer) Min() Key { return b.entries[0].key }
func (b *MessageBuffer) Max() Key { return b.entries[len(b.entries)-1].key }

// Each iterates entries in ascending key order.
func (b *MessageBuffer) Each(fn func(key Key, msg Message)) {
	for _, e := range b.entries {
		fn(e.key, e.msg)
	}
}

// partitionBefore splits the buffer in place into entries with key <
// pivot (kept in b) and entries with key >= pivot (returned as a new
// buffer). Used by InternalNode.Split to divide the buffer at the median
// pivot key.
func (b *MessageBuffer) partitionBefore(pivot Key) *MessageBuffer {
	i := b.lowerBound(pivot)
	right := &MessageBuffer{entries: append([]bufferEntry(nil), b.entries[i:]...)}
	b.entries = b.entries[:i]
	return right
}

func (b *MessageBuffer) size() int {
	n := 2 // entry count prefix
	for _, e := range b.entries {
		n += sizeBytes16(e.key) + e.msg.size()
	}
	return n
}

func (b *MessageBuffer) serialize(dst []byte) int {
	n := putUint16(dst, uint16(len(b.entries)))
	for _, e := range b.entries {
		n += putBytes16(dst[n:], e.key)
		n += e.msg.serialize(dst[n:])
	}
	return n
}

func deserializeMessageBuffer(src []byte) (*MessageBuffer, int, error) {
	if len(src) < 2 {
		return nil, 0, errors.Wrap(ErrCorrupt, "truncated message buffer count")
	}
	count, n := getUint16(src)
	b := &MessageBuffer{entries: make([]bufferEntry, 0, count)}
	for i := uint16(0); i < count; i++ {
		key, n2, err := getBytes16(src[n:])
		if err != nil {
			return nil, 0, err
		}
		n += n2
		msg, n3, err := deserializeMessage(src[n:])
		if err != nil {
			return nil, 0, err
		}
		n += n3
		b.entries = append(b.entries, bufferEntry{key: key, msg: msg})
	}
	return b, n, nil
}

package betree

import (
	"bytes"

	"github.com/pkg/errors"
)

// Key is a byte sequence compared lexicographically. Callers must not
// mutate a Key slice after passing it to the engine; the engine may
// retain it without copying until the page containing it is
// serialized.
type Key []byte

// Value is an opaque byte sequence associated with a Key by an Insert
// message.
type Value []byte

// PageID identifies a page in the storage file. 0 is reserved for the
// superblock file's own single page and is never a valid tree page id.
type PageID = uint64

// ChildPageID is a PageID used as an edge target from an internal node.
type ChildPageID = uint64

// MessageType tags the operation a Message represents.
type MessageType uint8

const (
	// msgTypeInvalid never appears on disk; a page decoding to this
	// value indicates corruption.
	msgTypeInvalid MessageType = 0
	MsgInsert      MessageType = 1
	MsgDelete      MessageType = 2
	MsgUpsert      MessageType = 3
)

// Message is a deferred mutation carried in a MessageBuffer until it
// reaches the leaf owning its key. Delete messages carry an empty
// Value; Upsert is reserved and rejected wherever it is applied.
type Message struct {
	Type  MessageType
	Value Value
}

func (m Message) size() int {
	return 1 + sizeBytes16(m.Value)
}

func (m Message) serialize(dst []byte) int {
	n := putUint8(dst, uint8(m.Type))
	n += putBytes16(dst[n:], m.Value)
	return n
}

func deserializeMessage(src []byte) (Message, int, error) {
	if len(src) < 1 {
		return Message{}, 0, errors.Wrap(ErrCorrupt, "truncated message tag")
	}
	tagByte, n := getUint8(src)
	typ := MessageType(tagByte)
	if typ != MsgInsert && typ != MsgDelete && typ != MsgUpsert {
		return Message{}, 0, errors.Wrap(ErrCorrupt, "invalid message type")
	}
	val, n2, err := getBytes16(src[n:])
	if err != nil {
		return Message{}, 0, err
	}
	n += n2
	return Message{Type: typ, Value: val}, n, nil
}

// keyCompare is the single comparator used across pivot maps, message
// buffers, and leaf maps: lexicographic order on the raw bytes.
func keyCompare(a, b Key) int {
	return bytes.Compare(a, b)
}

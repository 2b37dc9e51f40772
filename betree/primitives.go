package betree

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"
)

// Fixed primitives and length-prefixed byte containers are all
// little-endian per spec; composite types (Message, MessageBuffer,
// PivotMap, leaf maps) hand-roll serialize/deserialize against this
// convention rather than going through a generic codec, matching how
// the teacher's page.go lays out cells field by field.

func putUint8(dst []byte, v uint8) int {
	dst[0] = v
	return 1
}

func getUint8(src []byte) (uint8, int) {
	return src[0], 1
}

func putUint16(dst []byte, v uint16) int {
	binary.LittleEndian.PutUint16(dst, v)
	return 2
}

func getUint16(src []byte) (uint16, int) {
	return binary.LittleEndian.Uint16(src), 2
}

func putUint32(dst []byte, v uint32) int {
	binary.LittleEndian.PutUint32(dst, v)
	return 4
}

func getUint32(src []byte) (uint32, int) {
	return binary.LittleEndian.Uint32(src), 4
}

func putUint64(dst []byte, v uint64) int {
	binary.LittleEndian.PutUint64(dst, v)
	return 8
}

func getUint64(src []byte) (uint64, int) {
	return binary.LittleEndian.Uint64(src), 8
}

func putFloat32(dst []byte, v float32) int {
	binary.LittleEndian.PutUint32(dst, math.Float32bits(v))
	return 4
}

func getFloat32(src []byte) (float32, int) {
	return math.Float32frombits(binary.LittleEndian.Uint32(src)), 4
}

func putBool(dst []byte, v bool) int {
	if v {
		dst[0] = 1
	} else {
		dst[0] = 0
	}
	return 1
}

func getBool(src []byte) (bool, int) {
	return src[0] != 0, 1
}

// putBytes16 writes a <len:u16><bytes> container and returns the
// number of bytes written.
func putBytes16(dst []byte, v []byte) int {
	n := putUint16(dst, uint16(len(v)))
	n += copy(dst[n:], v)
	return n
}

// sizeBytes16 returns the serialized size of a <len:u16><bytes> container.
func sizeBytes16(v []byte) int {
	return 2 + len(v)
}

// getBytes16 reads a <len:u16><bytes> container, returning a copy of
// the bytes (callers must not retain slices into the page buffer
// after it is reused) and the number of bytes consumed.
func getBytes16(src []byte) ([]byte, int, error) {
	if len(src) < 2 {
		return nil, 0, errors.Wrap(ErrCorrupt, "truncated length prefix")
	}
	l, n := getUint16(src)
	if len(src) < n+int(l) {
		return nil, 0, errors.Wrap(ErrCorrupt, "truncated byte container")
	}
	out := make([]byte, l)
	copy(out, src[n:n+int(l)])
	return out, n + int(l), nil
}

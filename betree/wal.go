package betree

import (
	"encoding/binary"
	"hash/crc32"
	"os"

	"github.com/pkg/errors"
)

// WAL is an append-only log of the logical messages (key, Message)
// the engine has accepted but not yet made durable via a superblock
// flush. It is a collaborator the core only ever appends to or
// flushes; replaying it on open is the only way its records are
// otherwise consumed.
//
// Unlike a page-oriented WAL recording byte ranges, this one records
// the already-parsed operation: Insert/Delete are idempotent to
// replay and far smaller than a dirtied page, so there is no reason
// to pay physical-WAL's page-diffing cost for a single-writer engine
// that never needs fuzzy redo across partial page writes.
type WAL struct {
	file   *os.File
	offset int64
}

const (
	walMagic      = "BWAL"
	walHeaderSize = 4
)

func createWAL(path string) (*WAL, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, errors.Wrapf(err, "betree: create wal file %s", path)
	}
	if _, err := f.WriteString(walMagic); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "betree: write wal header")
	}
	return &WAL{file: f, offset: walHeaderSize}, nil
}

func openWAL(path string) (*WAL, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o600)
	if err != nil {
		return nil, errors.Wrapf(err, "betree: open wal file %s", path)
	}
	hdr := make([]byte, walHeaderSize)
	if _, err := f.ReadAt(hdr, 0); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "betree: read wal header")
	}
	if string(hdr) != walMagic {
		f.Close()
		return nil, errors.Wrap(ErrCorrupt, "betree: bad wal magic")
	}
	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	return &WAL{file: f, offset: stat.Size()}, nil
}

// walRecord is one logged (key, message) pair plus its CRC32.
type walRecord struct {
	key Key
	msg Message
}

func (r walRecord) encode() []byte {
	body := make([]byte, sizeBytes16(r.key)+r.msg.size())
	n := putBytes16(body, r.key)
	r.msg.serialize(body[n:])
	buf := make([]byte, 4+len(body))
	binary.LittleEndian.PutUint32(buf, uint32(len(body)))
	copy(buf[4:], body)
	crc := crc32.ChecksumIEEE(body)
	return append(buf, byte(crc), byte(crc>>8), byte(crc>>16), byte(crc>>24))
}

// append logs a single message and advances the in-memory offset; it
// does not fsync (see flush).
func (w *WAL) append(key Key, msg Message) error {
	rec := walRecord{key: key, msg: msg}.encode()
	n, err := w.file.WriteAt(rec, w.offset)
	if err != nil {
		return errors.Wrap(err, "betree: append wal record")
	}
	w.offset += int64(n)
	return nil
}

// flush fsyncs the log; it does not truncate (truncation only happens
// on checkpoint, once the superblock durably records the same state).
func (w *WAL) flush() error {
	if err := w.file.Sync(); err != nil {
		return errors.Wrap(err, "betree: fsync wal")
	}
	return nil
}

// truncate discards all logged records after a successful checkpoint
// (superblock flush): their effect is now durable via the tree pages
// themselves, so replaying them again would be redundant, not unsafe.
func (w *WAL) truncate() error {
	if err := w.file.Truncate(walHeaderSize); err != nil {
		return errors.Wrap(err, "betree: truncate wal")
	}
	w.offset = walHeaderSize
	return w.flush()
}

// replay reads every record after the header, validating each CRC32,
// and invokes fn in log order. A corrupt trailing record (a torn
// write from a crash mid-append) stops replay rather than failing
// open: everything before it is still valid.
func (w *WAL) replay(fn func(key Key, msg Message) error) error {
	off := int64(walHeaderSize)
	for {
		lenBuf := make([]byte, 4)
		n, err := w.file.ReadAt(lenBuf, off)
		if n < 4 || err != nil {
			break
		}
		bodyLen := binary.LittleEndian.Uint32(lenBuf)
		rec := make([]byte, int(bodyLen)+4)
		n, err = w.file.ReadAt(rec, off+4)
		if n != len(rec) || err != nil {
			break
		}
		body, crcBytes := rec[:bodyLen], rec[bodyLen:]
		wantCRC := uint32(crcBytes[0]) | uint32(crcBytes[1])<<8 | uint32(crcBytes[2])<<16 | uint32(crcBytes[3])<<24
		if crc32.ChecksumIEEE(body) != wantCRC {
			break
		}
		key, kn, err := getBytes16(body)
		if err != nil {
			break
		}
		msg, _, err := deserializeMessage(body[kn:])
		if err != nil {
			break
		}
		if err := fn(key, msg); err != nil {
			return err
		}
		off += 4 + int64(len(rec))
	}
	return nil
}

func (w *WAL) close() error {
	return w.file.Close()
}

package betree

import (
	"os"

	"github.com/pkg/errors"
)

// superblockMagic identifies a valid superblock page.
const superblockMagic uint64 = 0x12f81ac

// Superblock is the single durable page from which everything else is
// reachable: the committed root, the copy-on-write cut, the
// allocator's high-water mark, and the WAL's logical replay position.
// It lives in its own file, separate from the storage file of tree
// pages.
type Superblock struct {
	file *os.File

	Root uint64
	// LastFlushedRoot is the copy-on-write cut: the highest page id
	// allocated as of the last flush. Any page id at or below it may
	// be reachable from the durable superblock and must be cloned
	// rather than mutated in place. The on-disk layout names this
	// field "last_checkpoint".
	LastFlushedRoot uint64
	StorageFilename string
	Allocator       *PageAllocator
	WalNextOffset   uint64
}

func superblockSize(storageFilename string) int {
	return 8 + 8 + 8 + sizeBytes16([]byte(storageFilename)) + 8 + 8
}

// newSuperblock creates both the superblock file at path and the
// storage file at path+".storage", writes an empty-leaf root at page
// 1, write-through, and flushes the superblock. Fails if either file
// already exists.
func newSuperblock(path string, bufferSize int) (*Superblock, *Pager, *NodeCache, error) {
	if _, err := os.Stat(path); err == nil {
		return nil, nil, nil, errors.Wrapf(ErrAlreadyExists, "betree: superblock file %s", path)
	}
	sbFile, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, nil, nil, errors.Wrapf(err, "betree: create superblock file %s", path)
	}

	storagePath := path + ".storage"
	pager, err := createPager(storagePath)
	if err != nil {
		sbFile.Close()
		return nil, nil, nil, err
	}

	sb := &Superblock{
		file:            sbFile,
		Root:            1,
		LastFlushedRoot: 0,
		StorageFilename: storagePath,
		Allocator:       newPageAllocator(1),
		WalNextOffset:   walHeaderSize,
	}

	cache := newNodeCache(pager, bufferSize)
	root := newLeafNode(true)
	if err := cache.put(1, root); err != nil {
		sbFile.Close()
		return nil, nil, nil, err
	}
	if err := cache.writeThrough(1); err != nil {
		sbFile.Close()
		return nil, nil, nil, err
	}
	if err := pager.flush(); err != nil {
		sbFile.Close()
		return nil, nil, nil, err
	}
	if err := sb.flushSB(); err != nil {
		sbFile.Close()
		return nil, nil, nil, err
	}
	return sb, pager, cache, nil
}

// openSuperblock loads and validates an existing superblock file.
func openSuperblock(path string) (*Superblock, *Pager, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "betree: open superblock file %s", path)
	}
	sb, err := deserializeSuperblock(f)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	pager, err := openPager(sb.StorageFilename)
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return sb, pager, nil
}

func deserializeSuperblock(f *os.File) (*Superblock, error) {
	buf := make([]byte, PageSize)
	n, err := f.ReadAt(buf, 0)
	if n != PageSize {
		return nil, errors.Wrap(err, "betree: short read on superblock page")
	}
	magic, off := getUint64(buf)
	if magic != superblockMagic {
		return nil, errors.Wrap(ErrCorrupt, "betree: bad superblock magic")
	}
	root, n2 := getUint64(buf[off:])
	off += n2
	lastFlushed, n3 := getUint64(buf[off:])
	off += n3
	filenameBytes, n4, err := getBytes16(buf[off:])
	if err != nil {
		return nil, err
	}
	off += n4
	counter, n5 := getUint64(buf[off:])
	off += n5
	walOffset, _ := getUint64(buf[off:])

	return &Superblock{
		file:            f,
		Root:            root,
		LastFlushedRoot: lastFlushed,
		StorageFilename: string(filenameBytes),
		Allocator:       newPageAllocator(counter),
		WalNextOffset:   walOffset,
	}, nil
}

// flushSB re-serializes the superblock and fsyncs it. It is the final
// step of the commit protocol: the record it writes carries the new
// copy-on-write cut (the highest page id allocated so far, or Root if
// that is larger), and only after it returns successfully does the
// in-memory LastFlushedRoot advance to that cut.
func (sb *Superblock) flushSB() error {
	if n := superblockSize(sb.StorageFilename); n > PageSize {
		return errors.Wrapf(ErrKeyOverflow, "betree: superblock record %d bytes exceeds page size %d (storage filename too long)", n, PageSize)
	}
	cut := sb.Allocator.counter
	if sb.Root > cut {
		cut = sb.Root
	}
	buf := make([]byte, PageSize)
	off := putUint64(buf, superblockMagic)
	off += putUint64(buf[off:], sb.Root)
	off += putUint64(buf[off:], cut)
	off += putBytes16(buf[off:], []byte(sb.StorageFilename))
	off += putUint64(buf[off:], sb.Allocator.counter)
	putUint64(buf[off:], sb.WalNextOffset)

	if _, err := sb.file.WriteAt(buf, 0); err != nil {
		return errors.Wrap(err, "betree: write superblock page")
	}
	if err := sb.file.Sync(); err != nil {
		return errors.Wrap(err, "betree: fsync superblock")
	}
	sb.LastFlushedRoot = cut
	return nil
}

// alloc delegates to the allocator.
func (sb *Superblock) alloc() PageID {
	return sb.Allocator.alloc()
}

// safeToOverwriteInPlace reports whether id was allocated after the
// last flush and can therefore be mutated without cloning.
func (sb *Superblock) safeToOverwriteInPlace(id PageID) bool {
	return id > sb.LastFlushedRoot
}

// setRoot updates the in-memory root; durability only happens on the
// next flushSB.
func (sb *Superblock) setRoot(id PageID) {
	sb.Root = id
}

func (sb *Superblock) close() error {
	return sb.file.Close()
}

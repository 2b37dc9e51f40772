package betree

import (
	"os"

	"github.com/pkg/errors"
)

// Pager is raw random-access I/O over a single file of fixed-size
// pages, indexed by page id starting at 1 (id 0 is reserved). It
// knows nothing about node contents or caching.
type Pager struct {
	file *os.File
}

// openPager opens an existing storage file for read/write.
func openPager(path string) (*Pager, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "betree: open storage file %s", path)
	}
	return &Pager{file: f}, nil
}

// createPager truncates (or creates) the storage file for a fresh database.
func createPager(path string) (*Pager, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "betree: create storage file %s", path)
	}
	return &Pager{file: f}, nil
}

// read seeks to id*PageSize and reads exactly one page.
func (p *Pager) read(id PageID) (*page, error) {
	pg := newPage()
	n, err := p.file.ReadAt(pg.data[:], int64(id)*PageSize)
	if err != nil {
		return nil, errors.Wrapf(err, "betree: read page %d", id)
	}
	if n != PageSize {
		return nil, errors.Wrapf(ErrCorrupt, "betree: short read on page %d (%d bytes)", id, n)
	}
	return pg, nil
}

// write seeks to id*PageSize and writes exactly one page, extending
// the file as needed.
func (p *Pager) write(id PageID, pg *page) error {
	n, err := p.file.WriteAt(pg.data[:], int64(id)*PageSize)
	if err != nil {
		return errors.Wrapf(err, "betree: write page %d", id)
	}
	if n != PageSize {
		return errors.Wrapf(ErrCorrupt, "betree: short write on page %d (%d bytes)", id, n)
	}
	return nil
}

// flush durably persists all prior writes.
func (p *Pager) flush() error {
	if err := p.file.Sync(); err != nil {
		return errors.Wrap(err, "betree: fsync storage file")
	}
	return nil
}

func (p *Pager) close() error {
	return p.file.Close()
}

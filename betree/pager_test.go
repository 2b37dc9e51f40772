package betree

import (
	"path/filepath"
	"testing"
)

func TestPagerReadWriteFlush(t *testing.T) {
	path := filepath.Join(t.TempDir(), "storage")
	p, err := createPager(path)
	if err != nil {
		t.Fatalf("createPager: %v", err)
	}
	defer p.close()

	pg := newPage()
	copy(pg.data[:], "hello page 1")
	if err := p.write(3, pg); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := p.flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	got, err := p.read(3)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(got.data[:12]) != "hello page 1" {
		t.Fatalf("round trip mismatch: %q", got.data[:12])
	}
}

func TestOpenPagerRefusesMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "does-not-exist")
	if _, err := openPager(path); err == nil {
		t.Fatalf("expected error opening nonexistent storage file")
	}
}

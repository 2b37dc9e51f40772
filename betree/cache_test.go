package betree

import (
	"path/filepath"
	"testing"
)

func newTestCache(t *testing.T, capacity int) *NodeCache {
	t.Helper()
	pager, err := createPager(filepath.Join(t.TempDir(), "storage"))
	if err != nil {
		t.Fatalf("createPager: %v", err)
	}
	t.Cleanup(func() { pager.close() })
	return newNodeCache(pager, capacity)
}

func TestCachePutGet(t *testing.T) {
	c := newTestCache(t, 4)
	n := newLeafNode(true)
	if err := c.put(1, n); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := c.get(1)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != n {
		t.Fatalf("expected same node instance back from a cache hit")
	}
}

func TestCacheAcquireRelease(t *testing.T) {
	c := newTestCache(t, 4)
	n := newLeafNode(true)
	if err := c.put(1, n); err != nil {
		t.Fatalf("put: %v", err)
	}

	taken, err := c.acquire(1)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if _, err := c.get(1); err == nil {
		t.Fatalf("expected get on a taken page to fail")
	}
	if _, err := c.acquire(1); err == nil {
		t.Fatalf("expected double acquire to fail")
	}

	c.release(1, taken)
	if _, ok := c.entries[1]; !ok {
		t.Fatalf("expected page back in cache after release")
	}
	if !c.dirty[1] {
		t.Fatalf("expected released page marked dirty")
	}
}

func TestCacheEvictionWritesBackDirty(t *testing.T) {
	c := newTestCache(t, 1)
	first := newLeafNode(true)
	first.Leaf.put(Key("a"), Value("1"))
	if err := c.put(1, first); err != nil {
		t.Fatalf("put 1: %v", err)
	}

	second := newLeafNode(false)
	// Inserting past capacity evicts page 1, which is dirty and must be written back.
	if err := c.put(2, second); err != nil {
		t.Fatalf("put 2: %v", err)
	}
	if _, ok := c.entries[1]; ok {
		t.Fatalf("expected page 1 evicted")
	}

	reloaded, err := c.get(1)
	if err != nil {
		t.Fatalf("get 1 after eviction: %v", err)
	}
	if v, ok := reloaded.Leaf.Get(Key("a")); !ok || string(v) != "1" {
		t.Fatalf("expected evicted page's writes to survive via pager: %v ok=%v", v, ok)
	}
}

func TestCacheFlushClearsDirty(t *testing.T) {
	c := newTestCache(t, 8)
	for _, id := range []PageID{3, 1, 2} {
		n := newLeafNode(false)
		if err := c.put(id, n); err != nil {
			t.Fatalf("put %d: %v", id, err)
		}
	}
	if err := c.flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if len(c.dirty) != 0 {
		t.Fatalf("expected no dirty pages after flush")
	}
}

package betree

// PageAllocator is a monotonic page id counter, seeded from the
// superblock's persisted value at open. Strict monotonicity is
// load-bearing for copy-on-write safety: every page allocated after
// the last flush has an id above the durable cut and is therefore
// safe to mutate in place.
type PageAllocator struct {
	counter PageID
}

func newPageAllocator(counter PageID) *PageAllocator {
	return &PageAllocator{counter: counter}
}

// alloc returns a fresh page id and advances the counter.
func (a *PageAllocator) alloc() PageID {
	a.counter++
	return a.counter
}

// dealloc is a documented no-op: pages are never freed or reused by
// the core, so storage grows monotonically.
func (a *PageAllocator) dealloc(PageID) {}

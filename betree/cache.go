package betree

import (
	"container/list"
	"sort"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// NodeCache is a bounded LRU over a Pager, mapping PageId -> *Node,
// plus a *taken* set of page ids currently checked out for exclusive
// mutation during recursive descent. It is the only component that
// may hold live *Node references; everything else borrows one by id.
type NodeCache struct {
	pager    *Pager
	capacity int

	entries map[PageID]*list.Element
	order   *list.List // front = most recently used

	dirty map[PageID]bool
	taken map[PageID]bool
}

type cacheEntry struct {
	id   PageID
	node *Node
}

func newNodeCache(pager *Pager, capacity int) *NodeCache {
	return &NodeCache{
		pager:    pager,
		capacity: capacity,
		entries:  make(map[PageID]*list.Element),
		order:    list.New(),
		dirty:    make(map[PageID]bool),
		taken:    make(map[PageID]bool),
	}
}

func (c *NodeCache) touch(elem *list.Element) {
	c.order.MoveToFront(elem)
}

// get returns the node at id, loading it from the pager on a miss.
// Fails if id is currently taken.
func (c *NodeCache) get(id PageID) (*Node, error) {
	if c.taken[id] {
		return nil, errors.Wrapf(ErrPageTaken, "cache get page %d", id)
	}
	if elem, ok := c.entries[id]; ok {
		c.touch(elem)
		return elem.Value.(*cacheEntry).node, nil
	}
	n, err := c.loadNode(id)
	if err != nil {
		return nil, err
	}
	c.insert(id, n)
	return n, nil
}

// getMut is get, additionally marking the node dirty.
func (c *NodeCache) getMut(id PageID) (*Node, error) {
	n, err := c.get(id)
	if err != nil {
		return nil, err
	}
	n.markDirty()
	c.dirty[id] = true
	return n, nil
}

// loadNode reads and deserializes a page without touching the cache.
func (c *NodeCache) loadNode(id PageID) (*Node, error) {
	pg, err := c.pager.read(id)
	if err != nil {
		return nil, err
	}
	n, err := deserializeNode(pg)
	if err != nil {
		return nil, errors.Wrapf(err, "betree: deserialize page %d", id)
	}
	return n, nil
}

// insert adds a node to the cache, evicting the LRU victim first if
// at capacity.
func (c *NodeCache) insert(id PageID, n *Node) {
	if c.order.Len() >= c.capacity {
		c.evictOne()
	}
	elem := c.order.PushFront(&cacheEntry{id: id, node: n})
	c.entries[id] = elem
}

func (c *NodeCache) evictOne() {
	elem := c.order.Back()
	if elem == nil {
		return
	}
	entry := elem.Value.(*cacheEntry)
	if c.dirty[entry.id] {
		pg, err := entry.node.serialize()
		if err != nil {
			glog.Errorf("betree: evicted page %d failed to serialize: %v", entry.id, err)
		} else if err := c.pager.write(entry.id, pg); err != nil {
			glog.Errorf("betree: evicted page %d failed to write back: %v", entry.id, err)
		}
		delete(c.dirty, entry.id)
	}
	c.order.Remove(elem)
	delete(c.entries, entry.id)
}

// acquire checks out a node by id, removing it from the cache and
// recording it in the taken set. The caller now owns it exclusively
// until release.
func (c *NodeCache) acquire(id PageID) (*Node, error) {
	if c.taken[id] {
		return nil, errors.Wrapf(ErrPageTaken, "cache acquire page %d", id)
	}
	var n *Node
	if elem, ok := c.entries[id]; ok {
		n = elem.Value.(*cacheEntry).node
		c.order.Remove(elem)
		delete(c.entries, id)
		delete(c.dirty, id)
	} else {
		loaded, err := c.loadNode(id)
		if err != nil {
			return nil, err
		}
		n = loaded
	}
	c.taken[id] = true
	return n, nil
}

// release marks a checked-out node dirty and returns it to the cache.
func (c *NodeCache) release(id PageID, n *Node) {
	n.markDirty()
	delete(c.taken, id)
	c.dirty[id] = true
	c.insert(id, n)
}

// put inserts a freshly allocated node that has never been cached
// before; it is always dirty.
func (c *NodeCache) put(id PageID, n *Node) error {
	if _, ok := c.entries[id]; ok {
		return errors.Wrapf(ErrAlreadyExists, "cache put page %d already cached", id)
	}
	if c.taken[id] {
		return errors.Wrapf(ErrPageTaken, "cache put page %d already taken", id)
	}
	n.markDirty()
	c.dirty[id] = true
	c.insert(id, n)
	return nil
}

// writeThrough synchronously writes the node currently resident at id
// (it must be in the cache) and clears its dirty flag. Used for
// bootstrap and for safely installing a new root.
func (c *NodeCache) writeThrough(id PageID) error {
	elem, ok := c.entries[id]
	if !ok {
		return errors.Wrapf(ErrNotInCache, "write_through page %d", id)
	}
	n := elem.Value.(*cacheEntry).node
	pg, err := n.serialize()
	if err != nil {
		return err
	}
	if err := c.pager.write(id, pg); err != nil {
		return err
	}
	delete(c.dirty, id)
	return nil
}

// flush writes back every dirty node in ascending page-id order,
// clears dirty flags, then flushes the pager.
func (c *NodeCache) flush() error {
	ids := make([]PageID, 0, len(c.dirty))
	for id := range c.dirty {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		elem, ok := c.entries[id]
		if !ok {
			continue
		}
		n := elem.Value.(*cacheEntry).node
		pg, err := n.serialize()
		if err != nil {
			return err
		}
		if err := c.pager.write(id, pg); err != nil {
			return err
		}
		delete(c.dirty, id)
	}
	return c.pager.flush()
}

package betree

import (
	"os"

	"github.com/golang/glog"
	"github.com/pkg/errors"
)

// Engine is the single-node, single-threaded Bε-tree. It is not safe
// for concurrent use: all mutating operations assume exclusive access
// and may leave in-memory structures mid-restructure if interrupted.
type Engine struct {
	opts   Options
	sb     *Superblock
	cache  *NodeCache
	pager  *Pager
	wal    *WAL
	closed bool
}

// New creates a fresh database at path: a superblock file at path and
// a storage file at path+".storage", with an empty-leaf root written
// through and the superblock flushed. Fails if either file exists.
func New(path string, opts Options) (*Engine, error) {
	opts = opts.withDefaults()
	sb, pager, cache, err := newSuperblock(path, opts.BufferSize)
	if err != nil {
		return nil, err
	}
	wal, err := createWAL(path + ".wal")
	if err != nil {
		return nil, err
	}
	return &Engine{opts: opts, sb: sb, cache: cache, pager: pager, wal: wal}, nil
}

// Open opens an existing database at path, replaying any WAL records
// left over from operations accepted after the last flush. If the
// superblock file does not exist, Open behaves as New.
func Open(path string, opts Options) (*Engine, error) {
	opts = opts.withDefaults()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return New(path, opts)
	}
	sb, pager, err := openSuperblock(path)
	if err != nil {
		return nil, err
	}
	cache := newNodeCache(pager, opts.BufferSize)
	wal, err := openWAL(path + ".wal")
	if err != nil {
		return nil, err
	}
	e := &Engine{opts: opts, sb: sb, cache: cache, pager: pager, wal: wal}

	replayed := 0
	if err := wal.replay(func(key Key, msg Message) error {
		batch := singleMessageBuffer(key, msg)
		newRoot, _, err := e.sendMsgsToSubtree(e.sb.Root, batch)
		if err != nil {
			return err
		}
		e.sb.setRoot(newRoot)
		replayed++
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "betree: wal replay")
	}
	if replayed > 0 {
		glog.Infof("betree: replayed %d wal record(s) from %s", replayed, path)
	}
	return e, nil
}

// Insert applies an Insert message for key. key must not exceed
// MaxKeySize; the combined key/value must fit within a leaf's budget.
func (e *Engine) Insert(key Key, value Value) error {
	if e.closed {
		return ErrClosed
	}
	if len(key) > MaxKeySize {
		return errors.Wrap(ErrKeyOverflow, "insert")
	}
	// A post-split leaf pays its own 2-byte entry-count prefix (see
	// leaf.go's size()), so a single entry can use at most
	// leafBudget-2 bytes, not leafBudget.
	if sizeBytes16(key)+sizeBytes16(value) > leafBudget-2 {
		return errors.Wrap(ErrValueOverflow, "insert")
	}
	msg := Message{Type: MsgInsert, Value: value}
	return e.apply(key, msg)
}

// Delete applies a Delete message for key.
func (e *Engine) Delete(key Key) error {
	if e.closed {
		return ErrClosed
	}
	if len(key) > MaxKeySize {
		return errors.Wrap(ErrKeyOverflow, "delete")
	}
	return e.apply(key, Message{Type: MsgDelete})
}

func (e *Engine) apply(key Key, msg Message) error {
	if err := e.wal.append(key, msg); err != nil {
		return err
	}
	batch := singleMessageBuffer(key, msg)
	newRoot, _, err := e.sendMsgsToSubtree(e.sb.Root, batch)
	if err != nil {
		return err
	}
	e.sb.setRoot(newRoot)
	return nil
}

// Get returns the value for key and whether it is present.
func (e *Engine) Get(key Key) (Value, bool, error) {
	if e.closed {
		return nil, false, ErrClosed
	}
	id := e.sb.Root
	for {
		node, err := e.cache.get(id)
		if err != nil {
			return nil, false, err
		}
		val, outcome, child, err := node.Get(key)
		if err != nil {
			return nil, false, err
		}
		switch outcome {
		case outcomeFound:
			return val, true, nil
		case outcomeAbsent, outcomeTombstone:
			return nil, false, nil
		case outcomeDescend:
			id = child
		}
	}
}

// sendMsgsToSubtree is the primary write-propagation routine: it
// applies msgs to the subtree rooted at currentId, recursing into
// children as needed, and reports the (possibly new) id of that
// subtree's root plus a pending split for the caller to wire in.
func (e *Engine) sendMsgsToSubtree(currentID PageID, msgs *MessageBuffer) (PageID, *pendingSplit, error) {
	if msgs.Len() == 0 {
		return currentID, nil, nil
	}

	workingID := currentID
	if e.sb.safeToOverwriteInPlace(currentID) {
		// Already allocated since the last flush: safe to mutate in place.
	} else {
		orig, err := e.cache.get(currentID)
		if err != nil {
			return 0, nil, err
		}
		clone := cloneNode(orig)
		workingID = e.sb.alloc()
		if err := e.cache.put(workingID, clone); err != nil {
			return 0, nil, err
		}
	}

	node, err := e.cache.acquire(workingID)
	if err != nil {
		return 0, nil, err
	}

	var split *pendingSplit
	if node.IsLeaf() {
		split, err = e.applyToLeaf(node, msgs)
	} else {
		split, err = e.applyToInternal(node, msgs)
	}
	if err != nil {
		return 0, nil, err
	}

	if node.Root && split != nil {
		newRootID, rootErr := e.promoteRoot(node, workingID, split)
		if rootErr != nil {
			return 0, nil, rootErr
		}
		return newRootID, nil, nil
	}

	e.cache.release(workingID, node)
	return workingID, split, nil
}

func (e *Engine) applyToLeaf(node *Node, msgs *MessageBuffer) (*pendingSplit, error) {
	var applyErr error
	msgs.Each(func(key Key, msg Message) {
		if applyErr != nil {
			return
		}
		applyErr = node.Leaf.Apply(key, msg)
	})
	if applyErr != nil {
		return nil, applyErr
	}
	if !node.Leaf.IsFull() {
		return nil, nil
	}
	right, separator := node.Leaf.Split()
	rightID := e.sb.alloc()
	rightNode := &Node{Leaf: right}
	if err := e.cache.put(rightID, rightNode); err != nil {
		return nil, err
	}
	return &pendingSplit{separator: separator, rightChild: rightID}, nil
}

func (e *Engine) applyToInternal(node *Node, msgs *MessageBuffer) (*pendingSplit, error) {
	in := node.Internal
	if fastChild, ok := e.fastPathChild(in, msgs); ok {
		msgs.Each(func(key Key, _ Message) { in.msgBuffer.Delete(key) })
		newChildID, childSplit, err := e.sendMsgsToSubtree(fastChild, msgs)
		if err != nil {
			return nil, err
		}
		in.UpdatePivots(fastChild, newChildID, childSplit)
	} else {
		in.MergeBuffers(msgs)
		if in.IsBufferFull() {
			for _, batch := range in.PrepareMsgFlush() {
				newChildID, childSplit, err := e.sendMsgsToSubtree(batch.child, batch.msgs)
				if err != nil {
					return nil, err
				}
				in.UpdatePivots(batch.child, newChildID, childSplit)
			}
		}
	}

	if !in.IsPivotsFull() {
		return nil, nil
	}
	right, median, err := in.Split()
	if err != nil {
		return nil, err
	}
	rightID := e.sb.alloc()
	rightNode := &Node{Internal: right}
	if err := e.cache.put(rightID, rightNode); err != nil {
		return nil, err
	}
	return &pendingSplit{separator: median, rightChild: rightID}, nil
}

// fastPathChild reports the single child that owns every key in msgs,
// provided that child is currently resident in the cache and dirty
// (meaning it has already been touched this session and recursing
// into it again is cheap). Evicted or clean children always go
// through the slow, buffered path.
func (e *Engine) fastPathChild(in *InternalNode, msgs *MessageBuffer) (ChildPageID, bool) {
	minChild := in.FindChild(msgs.Min())
	maxChild := in.FindChild(msgs.Max())
	if minChild != maxChild {
		return 0, false
	}
	if !e.cache.dirty[minChild] {
		return 0, false
	}
	if _, resident := e.cache.entries[minChild]; !resident {
		return 0, false
	}
	return minChild, true
}

// promoteRoot builds a new internal root above the just-split former
// root, wiring in the separator/right-sibling pair, and clears the
// old root's persisted root flag.
func (e *Engine) promoteRoot(oldRoot *Node, oldRootID PageID, split *pendingSplit) (PageID, error) {
	pivotMap := NewPivotMap(split.rightChild)
	pivotMap.Insert(split.separator, oldRootID)
	newRoot := newInternalNodeContainer(true, pivotMap, e.opts.Eps)
	newRootID := e.sb.alloc()
	if err := e.cache.put(newRootID, newRoot); err != nil {
		return 0, err
	}
	oldRoot.Root = false
	e.cache.release(oldRootID, oldRoot)
	return newRootID, nil
}

// Flush executes the commit protocol: write back and fsync every
// dirty page, fsync the WAL, fsync the superblock (advancing the
// copy-on-write cut), then truncate the now-redundant WAL.
func (e *Engine) Flush() error {
	if e.closed {
		return ErrClosed
	}
	if err := e.cache.flush(); err != nil {
		return err
	}
	if err := e.wal.flush(); err != nil {
		return err
	}
	if err := e.sb.flushSB(); err != nil {
		return err
	}
	return e.wal.truncate()
}

// Close releases file handles without flushing: any unflushed
// in-memory mutation is discarded, matching the spec's error model
// (a partially restructured tree must not be reused).
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	var firstErr error
	for _, c := range []func() error{e.pager.close, e.wal.close, e.sb.close} {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

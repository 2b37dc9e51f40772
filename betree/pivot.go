package betree

import (
	"sort"

	"github.com/pkg/errors"
)

// pivotEntry is one (separator key, child) edge in a PivotMap.
type pivotEntry struct {
	key   Key
	child ChildPageID
}

// PivotMap is an ordered Key -> ChildPageId mapping. For pivots
// k1<k2<...<kn and an extra Rightmost, the child for a lookup key q is
// the child of the least pivot strictly greater than q, or Rightmost
// if none (pivot ki is the separator: keys < ki fall in the
// left-preceding child).
type PivotMap struct {
	entries   []pivotEntry
	Rightmost ChildPageID
}

func NewPivotMap(rightmost ChildPageID) *PivotMap {
	return &PivotMap{Rightmost: rightmost}
}

func (p *PivotMap) Len() int { return len(p.entries) }

// Find returns the child edge that owns key: the child of the least
// pivot strictly greater than key, else Rightmost.
func (p *PivotMap) Find(key Key) ChildPageID {
	i := sort.Search(len(p.entries), func(i int) bool {
		return keyCompare(p.entries[i].key, key) > 0
	})
	if i < len(p.entries) {
		return p.entries[i].child
	}
	return p.Rightmost
}

// Insert adds or replaces the edge at separator key.
func (p *PivotMap) Insert(key Key, child ChildPageID) {
	i := sort.Search(len(p.entries), func(i int) bool {
		return keyCompare(p.entries[i].key, key) >= 0
	})
	if i < len(p.entries) && keyCompare(p.entries[i].key, key) == 0 {
		p.entries[i].child = child
		return
	}
	p.entries = append(p.entries, pivotEntry{})
	copy(p.entries[i+1:], p.entries[i:])
	p.entries[i] = pivotEntry{key: key, child: child}
}

// ReplaceChild rewrites every edge currently pointing at oldChild
// (including Rightmost) to point at newChild. Internal pivot values
// are unique by construction so at most one edge (pivot or rightmost)
// changes.
func (p *PivotMap) ReplaceChild(oldChild, newChild ChildPageID) {
	for i := range p.entries {
		if p.entries[i].child == oldChild {
			p.entries[i].child = newChild
			return
		}
	}
	if p.Rightmost == oldChild {
		p.Rightmost = newChild
	}
}

// successorIndex returns the index of the child edge immediately to
// the right of key (the edge that would absorb a new right-sibling
// split at key), and whether that successor is Rightmost rather than
// a pivot.
func (p *PivotMap) successorIndex(key Key) (int, bool) {
	i := sort.Search(len(p.entries), func(i int) bool {
		return keyCompare(p.entries[i].key, key) > 0
	})
	return i, i == len(p.entries)
}

// KeyAt and ChildAt provide ordered iteration for split/merge/serialize.
func (p *PivotMap) KeyAt(i int) Key            { return p.entries[i].key }
func (p *PivotMap) ChildAt(i int) ChildPageID { return p.entries[i].child }

func (p *PivotMap) size() int {
	n := 2 // entry count prefix
	for _, e := range p.entries {
		n += sizeBytes16(e.key) + childPageIDSize
	}
	return n
}

func (p *PivotMap) serialize(dst []byte) int {
	n := putUint16(dst, uint16(len(p.entries)))
	for _, e := range p.entries {
		n += putBytes16(dst[n:], e.key)
		n += putUint64(dst[n:], e.child)
	}
	return n
}

func deserializePivotMap(src []byte) (*PivotMap, int, error) {
	if len(src) < 2 {
		return nil, 0, errors.Wrap(ErrCorrupt, "truncated pivot map count")
	}
	count, n := getUint16(src)
	p := &PivotMap{entries: make([]pivotEntry, 0, count)}
	for i := uint16(0); i < count; i++ {
		key, n2, err := getBytes16(src[n:])
		if err != nil {
			return nil, 0, err
		}
		n += n2
		child, n3 := getUint64(src[n:])
		n += n3
		p.entries = append(p.entries, pivotEntry{key: key, child: child})
	}
	return p, n, nil
}

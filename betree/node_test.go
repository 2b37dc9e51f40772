package betree

import "testing"

func TestNodeRoundTripLeaf(t *testing.T) {
	n := newLeafNode(true)
	n.Leaf.put(Key("a"), Value("1"))

	pg, err := n.serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	got, err := deserializeNode(pg)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if !got.IsLeaf() {
		t.Fatalf("expected leaf")
	}
	if !got.Root {
		t.Fatalf("expected root flag preserved")
	}
	if got.dirty {
		t.Fatalf("dirty must never be persisted: freshly deserialized node must be clean")
	}
	v, ok := got.Leaf.Get(Key("a"))
	if !ok || string(v) != "1" {
		t.Fatalf("round trip lost entry: %v ok=%v", v, ok)
	}
}

func TestNodeRoundTripInternal(t *testing.T) {
	p := NewPivotMap(5)
	p.Insert(Key("m"), 1)
	n := newInternalNodeContainer(false, p, 0.5)
	n.Internal.msgBuffer.Put(Key("a"), Message{Type: MsgInsert, Value: Value("x")})

	pg, err := n.serialize()
	if err != nil {
		t.Fatalf("serialize: %v", err)
	}
	got, err := deserializeNode(pg)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if got.IsLeaf() {
		t.Fatalf("expected internal")
	}
	if got.Root {
		t.Fatalf("expected non-root flag preserved")
	}
	if got.Internal.pivotMap.Rightmost != 5 {
		t.Fatalf("rightmost lost in round trip")
	}
}

func TestDeserializeNodeBadMagic(t *testing.T) {
	pg := newPage()
	if _, err := deserializeNode(pg); err == nil {
		t.Fatalf("expected error on zeroed page (bad magic)")
	}
}

func TestCloneNodeIndependence(t *testing.T) {
	n := newLeafNode(true)
	n.Leaf.put(Key("a"), Value("1"))

	clone := cloneNode(n)
	clone.Leaf.put(Key("b"), Value("2"))

	if _, ok := n.Leaf.Get(Key("b")); ok {
		t.Fatalf("mutating the clone must not affect the original")
	}
	if _, ok := clone.Leaf.Get(Key("a")); !ok {
		t.Fatalf("clone must retain the original's entries")
	}
}

package betree

import (
	"bytes"
	"testing"
)

func TestMessageBufferRoundTrip(t *testing.T) {
	b := NewMessageBuffer()
	b.Put(Key("banana"), Message{Type: MsgInsert, Value: Value("yellow")})
	b.Put(Key("apple"), Message{Type: MsgDelete})
	b.Put(Key("cherry"), Message{Type: MsgInsert, Value: Value("red")})

	buf := make([]byte, b.size())
	n := b.serialize(buf)
	if n != len(buf) {
		t.Fatalf("serialize wrote %d, size() said %d", n, len(buf))
	}

	got, n2, err := deserializeMessageBuffer(buf)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if n2 != n {
		t.Fatalf("deserialize consumed %d, expected %d", n2, n)
	}
	if got.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", got.Len())
	}
	// Ascending key order must survive the round trip.
	if !bytes.Equal(got.entries[0].key, Key("apple")) ||
		!bytes.Equal(got.entries[1].key, Key("banana")) ||
		!bytes.Equal(got.entries[2].key, Key("cherry")) {
		t.Fatalf("key order not preserved: %+v", got.entries)
	}
}

func TestMessageBufferMergeBatchWins(t *testing.T) {
	b := NewMessageBuffer()
	b.Put(Key("k"), Message{Type: MsgInsert, Value: Value("old")})

	incoming := NewMessageBuffer()
	incoming.Put(Key("k"), Message{Type: MsgInsert, Value: Value("new")})

	b.Merge(incoming)

	msg, ok := b.Get(Key("k"))
	if !ok || !bytes.Equal(msg.Value, Value("new")) {
		t.Fatalf("expected incoming batch to win on collision, got %+v ok=%v", msg, ok)
	}
}

func TestMessageBufferDeleteRange(t *testing.T) {
	b := NewMessageBuffer()
	for _, k := range []string{"a", "b", "c", "d", "e"} {
		b.Put(Key(k), Message{Type: MsgInsert, Value: Value(k)})
	}
	b.DeleteRange(Key("b"), Key("d"))
	if _, ok := b.Get(Key("a")); !ok {
		t.Fatalf("expected a to survive")
	}
	for _, k := range []string{"b", "c", "d"} {
		if _, ok := b.Get(Key(k)); ok {
			t.Fatalf("expected %s to be removed by DeleteRange", k)
		}
	}
	if _, ok := b.Get(Key("e")); !ok {
		t.Fatalf("expected e to survive")
	}
}

func TestMessageBufferPartitionBefore(t *testing.T) {
	b := NewMessageBuffer()
	for _, k := range []string{"a", "c", "e", "g"} {
		b.Put(Key(k), Message{Type: MsgInsert, Value: Value(k)})
	}
	right := b.partitionBefore(Key("e"))
	if b.Len() != 2 || right.Len() != 2 {
		t.Fatalf("expected 2/2 split, got %d/%d", b.Len(), right.Len())
	}
	if !bytes.Equal(b.Max(), Key("c")) || !bytes.Equal(right.Min(), Key("e")) {
		t.Fatalf("partition boundary wrong: left max %s right min %s", b.Max(), right.Min())
	}
}

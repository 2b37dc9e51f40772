package betree

import "testing"

func TestPivotMapFind(t *testing.T) {
	p := NewPivotMap(99)
	p.Insert(Key("m"), 1)
	p.Insert(Key("t"), 2)

	cases := []struct {
		key  string
		want ChildPageID
	}{
		{"a", 1},  // a < m: owned by the edge at pivot m
		{"m", 2},  // equals the pivot itself: owned by the next edge, at t
		{"n", 2},
		{"t", 99}, // equals the last pivot: falls through to rightmost
		{"z", 99}, // past every pivot: rightmost
	}
	for _, c := range cases {
		if got := p.Find(Key(c.key)); got != c.want {
			t.Fatalf("Find(%q) = %d, want %d", c.key, got, c.want)
		}
	}
}

func TestPivotMapReplaceChild(t *testing.T) {
	p := NewPivotMap(5)
	p.Insert(Key("m"), 1)
	p.ReplaceChild(1, 10)
	if p.Find(Key("a")) != 10 {
		t.Fatalf("expected pivot edge replaced")
	}
	p.ReplaceChild(5, 50)
	if p.Rightmost != 50 {
		t.Fatalf("expected rightmost replaced")
	}
}

func TestPivotMapRoundTrip(t *testing.T) {
	p := NewPivotMap(42)
	p.Insert(Key("b"), 1)
	p.Insert(Key("a"), 2)
	p.Insert(Key("c"), 3)

	buf := make([]byte, p.size())
	n := p.serialize(buf)
	if n != len(buf) {
		t.Fatalf("serialize wrote %d, size() said %d", n, len(buf))
	}
	got, n2, err := deserializePivotMap(buf)
	if err != nil {
		t.Fatalf("deserialize: %v", err)
	}
	if n2 != n {
		t.Fatalf("consumed %d, expected %d", n2, n)
	}
	if got.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", got.Len())
	}
	want := []string{"a", "b", "c"}
	for i, w := range want {
		if string(got.KeyAt(i)) != w {
			t.Fatalf("entry %d: want %q got %q", i, w, got.KeyAt(i))
		}
	}
}

package betree

import "testing"

func TestOptionsWithDefaultsClampsEps(t *testing.T) {
	cases := []struct {
		name string
		in   float32
		want float32
	}{
		{"zero falls back to default", 0, defaultEps},
		{"negative falls back to default", -1, defaultEps},
		{"above max falls back to default", 0.95, defaultEps},
		{"at max is kept", maxEps, maxEps},
		{"in range is kept", 0.3, 0.3},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := Options{Eps: c.in, BufferSize: defaultBufferSize}.withDefaults()
			if got.Eps != c.want {
				t.Fatalf("Eps = %v, want %v", got.Eps, c.want)
			}
		})
	}
}

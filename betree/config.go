package betree

// Default configuration, per spec.md's configuration table.
const (
	defaultEps        float32 = 0.5
	defaultBufferSize int     = 34

	// maxEps bounds how much of an internal node's data area the
	// buffer may claim. An eps too close to 1 starves the pivot
	// section down to nothing, so a node can be reported pivot-full
	// (IsPivotsFull) before it holds enough pivots to split safely
	// (Split requires at least 3).
	maxEps float32 = 0.9
)

// Options configures an opened engine. New and Open replace a zero
// or out-of-range Eps and a non-positive BufferSize with the
// defaults, so the zero value opens with DefaultOptions.
type Options struct {
	// Eps is epsilon, the fraction of an internal node's data area
	// reserved for its message buffer. Governs the tradeoff between
	// write amplification and fanout: higher eps means a bigger
	// buffer (cheaper writes, more I/O per flush-to-children pass),
	// lower eps means more pivots per node (shallower tree, costlier
	// per-insert buffering).
	Eps float32

	// BufferSize is the node cache's capacity in pages.
	BufferSize int
}

// DefaultOptions returns the spec's documented defaults: eps=0.5,
// buffer_size=34.
func DefaultOptions() Options {
	return Options{Eps: defaultEps, BufferSize: defaultBufferSize}
}

func (o Options) withDefaults() Options {
	if o.Eps <= 0 || o.Eps > maxEps {
		o.Eps = defaultEps
	}
	if o.BufferSize <= 0 {
		o.BufferSize = defaultBufferSize
	}
	return o
}

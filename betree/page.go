package betree

// PageSize is the fixed page size, aligned to the common OS page size.
// Alignment is a performance hint for direct I/O, not a correctness
// requirement: a plain heap-allocated byte array is sufficient.
const PageSize = 4096

// MaxKeySize bounds key length so a single key can never by itself
// threaten the page budget. PAGESIZE/128 == 32 bytes for 4 KiB pages.
const MaxKeySize = PageSize / 128

// NodeMagic identifies a valid serialized node page.
const NodeMagic uint64 = 0x18728742b91b43b

// Node tags, stored as the single discriminant byte after the magic
// and common metadata.
const (
	tagLeaf     uint8 = 0
	tagInternal uint8 = 1
)

// commonMetaSize is the number of bytes every node page spends on
// framing before the variant payload: magic(8) + root(1) + tag(1).
const commonMetaSize = 8 + 1 + 1

// internalNodeMetaSize is the fixed metadata an internal node's
// variant payload carries ahead of its buffer/pivot sections: epsilon
// stored as an IEEE-754 f32.
const internalNodeMetaSize = 4

// childPageIDSize is the serialized width of a ChildPageId (PageId).
const childPageIDSize = 8

// leafBudget is the maximum serialized size of a leaf's key/value map,
// per spec.md invariant 2: PAGESIZE - common_meta.
const leafBudget = PageSize - commonMetaSize

// internalDataArea returns D, the byte budget available to an
// internal node's buffer and pivot sections combined.
func internalDataArea() int {
	return PageSize - commonMetaSize - internalNodeMetaSize
}

// bufferBudget and pivotBudget split D according to epsilon, per
// spec.md invariant 1: buffer_budget = floor(D*eps), pivot_budget =
// D - buffer_budget. The pivot section additionally carries the
// 8-byte rightmost-child pointer, so a well-formed pivot_map leaves
// room for it (checked at the call site via childPageIDSize).
func bufferBudget(eps float32) int {
	d := internalDataArea()
	return int(float32(d) * eps)
}

func pivotBudget(eps float32) int {
	return internalDataArea() - bufferBudget(eps)
}

// page is a fixed-size byte buffer holding one serialized node (or,
// for the superblock file, the single superblock record).
type page struct {
	data [PageSize]byte
}

func newPage() *page {
	return &page{}
}

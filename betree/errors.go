package betree

import "github.com/pkg/errors"

// Sentinel errors returned by the engine. Callers compare with
// errors.Is; internal call sites wrap these with pkg/errors to attach
// page ids and operation context as the error crosses a component
// boundary (pager -> cache -> node -> engine).
var (
	// ErrKeyNotFound names the missing-key condition. Get does not
	// return it: a miss is reported through Get's boolean result.
	ErrKeyNotFound = errors.New("betree: key not found")

	// ErrKeyOverflow is returned by Insert when the key exceeds MaxKeySize.
	ErrKeyOverflow = errors.New("betree: key exceeds maximum size")

	// ErrValueOverflow is returned by Insert when the value cannot fit a leaf.
	ErrValueOverflow = errors.New("betree: value exceeds maximum size")

	// ErrUnimplemented marks the reserved Upsert message path.
	ErrUnimplemented = errors.New("betree: message type not implemented")

	// ErrCorrupt indicates a magic mismatch or truncated read on load.
	// It is fatal: callers must abort Open rather than retry.
	ErrCorrupt = errors.New("betree: corrupt on-disk data")

	// ErrClosed is returned by any operation issued after Close.
	ErrClosed = errors.New("betree: engine is closed")

	// ErrPageTaken is an assertion failure: a page id already checked
	// out of the cache was requested again before being released.
	ErrPageTaken = errors.New("betree: page already checked out")

	// ErrNotInCache is an assertion failure: write_through was called
	// for a page that is not resident in the cache.
	ErrNotInCache = errors.New("betree: page not resident in cache")

	// ErrAlreadyExists is returned by New when the superblock file is present.
	ErrAlreadyExists = errors.New("betree: database already exists")

	// ErrInvariant is an assertion failure: an internal node was asked
	// to split without enough pivots to do so safely.
	ErrInvariant = errors.New("betree: internal invariant violated")
)

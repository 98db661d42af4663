package semispace

import "github.com/fmstephe/flib/fmath"

// DefaultHeapSize is the default per-region capacity, matching the original
// MAX_HEAP_SIZE.
const DefaultHeapSize = 1600

// Config describes the sizing of one heap region. The collector owns two
// regions built from the same Config, so they always have identical
// capacity.
//
// LogicalSize is the exact capacity H used by every heap bound (the alloc
// cursor, points_to, the heap-exhausted check): it is exactly the requested
// size, never rounded. MmapSize is the size of the
// real backing mapping obtained from the OS, rounded up to the next power of
// two the way this allocator's slab sizing is rounded
// (pointerstore.NewAllocConfigBySize) - the extra padding beyond
// LogicalSize is never addressed and never counted as heap capacity.
type Config struct {
	LogicalSize uint64
	MmapSize    uint64
}

// NewConfig builds a Config for a region that must hold exactly
// requestedSize logical bytes.
func NewConfig(requestedSize uint64) Config {
	if requestedSize == 0 {
		requestedSize = DefaultHeapSize
	}
	return Config{
		LogicalSize: requestedSize,
		MmapSize:    uint64(fmath.NxtPowerOfTwo(int64(requestedSize))),
	}
}

package semispace

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

// mmapRegion obtains a fresh, anonymous, zero-filled mapping for one heap
// region, the same way this allocator's slabs are obtained
// (pointerstore.MmapSlab), generalized from many fixed-size slabs down to
// the collector's two whole-heap regions.
func mmapRegion(cfg Config) Region {
	data, err := unix.Mmap(-1, 0, int(cfg.MmapSize), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		panic(fmt.Errorf("semispace: cannot mmap heap region of %d bytes: %w", cfg.MmapSize, err))
	}

	return Region{
		base:        (uintptr)(unsafe.Pointer(&data[0])),
		logicalSize: uintptr(cfg.LogicalSize),
		mapping:     data,
	}
}

// munmapRegion releases a region's backing memory. After this call every
// address the region ever handed out is invalid.
func munmapRegion(r Region) error {
	if r.mapping == nil {
		return nil
	}
	return unix.Munmap(r.mapping)
}

package semispace

// Region is one of the collector's two equally-sized contiguous heap
// regions. base/logicalSize define the exact address range addressable as
// heap memory; mapping retains the real OS-backed slice so it can be handed
// back via munmap.
type Region struct {
	base        uintptr
	logicalSize uintptr
	mapping     []byte
}

// Contains reports whether addr falls in this region's addressable range:
// the points_to(space, p) test from the design this collector implements.
func (r Region) Contains(addr uintptr) bool {
	return addr >= r.base && addr < r.base+r.logicalSize
}

// Base returns the first addressable byte of the region.
func (r Region) Base() uintptr {
	return r.base
}

// End returns the address one past the last addressable byte of the region.
func (r Region) End() uintptr {
	return r.base + r.logicalSize
}

// Size returns the region's logical capacity in bytes.
func (r Region) Size() uintptr {
	return r.logicalSize
}

// Package objheader implements the object model shim: the thin view over a
// heap address that yields a field count and a total object size in bytes.
// Every other piece of the collector treats heap objects only through these
// two operations.
//
// Layout: every heap object is a single header word followed by exactly
// field_count reference-sized slots.
//
//	[ header (8 bytes) | field[0] | field[1] | ... | field[n-1] ]
//
// The header's low 32 bits hold the field count. The high 32 bits are
// reserved for mutator-defined tag bits and are never interpreted here; this
// is the contract generated mutator code must honor when it writes a header.
package objheader

import (
	"fmt"
	"unsafe"
)

// ReferenceSize is the width, in bytes, of a single object field slot.
const ReferenceSize = unsafe.Sizeof(uintptr(0))

// HeaderSize is the width, in bytes, of the header word preceding every
// object's fields.
const HeaderSize = unsafe.Sizeof(uint64(0))

// MaxFieldCount bounds the field count any mutator-produced object may use.
// It exists purely as a debug-mode sanity check on a decoded field count; it
// is never consulted outside of Debug-enabled heaps.
const MaxFieldCount = 1 << 20

// Header is the single word stored at the start of every heap object.
type Header uint64

// NewHeader builds a header for an object with the given field count.
func NewHeader(fieldCount int) Header {
	return Header(uint32(fieldCount))
}

// FieldCount returns the number of reference-sized field slots that follow
// this header.
func (h Header) FieldCount() int {
	return int(uint32(h))
}

// SizeOf returns the total size, in bytes, of an object carrying this
// header: the header word plus one reference-sized slot per field.
func (h Header) SizeOf() uintptr {
	return HeaderSize + uintptr(h.FieldCount())*ReferenceSize
}

// ReadHeader reads the header word at addr.
func ReadHeader(addr uintptr) Header {
	return *(*Header)(unsafe.Pointer(addr))
}

// WriteHeader writes h at addr.
func WriteHeader(addr uintptr, h Header) {
	*(*Header)(unsafe.Pointer(addr)) = h
}

// FieldAddr returns the address of field i of the object at addr.
func FieldAddr(addr uintptr, i int) uintptr {
	return addr + HeaderSize + uintptr(i)*ReferenceSize
}

// ReadField reads field i of the object at addr.
func ReadField(addr uintptr, i int) uintptr {
	return *(*uintptr)(unsafe.Pointer(FieldAddr(addr, i)))
}

// WriteField writes v into field i of the object at addr.
func WriteField(addr uintptr, i int, v uintptr) {
	*(*uintptr)(unsafe.Pointer(FieldAddr(addr, i))) = v
}

// SizeAt returns size_of(obj) for the object whose header is at addr. Safe
// to call on any address holding a well-formed header, in either the active
// from-space or, during collection, in the copied prefix of to-space.
func SizeAt(addr uintptr) uintptr {
	return ReadHeader(addr).SizeOf()
}

// CheckFieldCount validates a decoded field count against MaxFieldCount. It
// is only ever called from debug-enabled heaps; a well-formed mutator never
// trips it.
func CheckFieldCount(fieldCount int) error {
	if fieldCount < 0 || fieldCount > MaxFieldCount {
		return fmt.Errorf("objheader: implausible field count %d (bound %d) - heap walk is likely corrupted", fieldCount, MaxFieldCount)
	}
	return nil
}

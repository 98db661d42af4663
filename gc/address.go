package gc

import "github.com/ArtemUntila/stella-garbage-collector/gc/internal/objheader"

// Address is a heap address, interchangeable with a field value: it may
// point at a heap object (into the active region during mutation, into the
// target region transiently during collection) or carry a non-heap
// immediate value.
type Address uintptr

// Nil is the zero Address. It never denotes a real allocation; a region's
// base is never address zero.
const Nil Address = 0

// IsNil reports whether a is the zero Address.
func (a Address) IsNil() bool {
	return a == Nil
}

// FieldCount returns the field count recorded in the header at a.
func (a Address) FieldCount() int {
	return objheader.ReadHeader(uintptr(a)).FieldCount()
}

// SizeOf returns size_of(a): the header size plus FieldCount()*ReferenceSize.
func (a Address) SizeOf() uintptr {
	return objheader.SizeAt(uintptr(a))
}

// Field returns the value stored in field i of the object at a.
func (a Address) Field(i int) Address {
	return Address(objheader.ReadField(uintptr(a), i))
}

// SetField stores v in field i of the object at a.
func (a Address) SetField(i int, v Address) {
	objheader.WriteField(uintptr(a), i, uintptr(v))
}

// WriteHeader writes a header recording fieldCount at a. The mutator must
// do this, along with writing every field, before any subsequent call to
// Alloc: memory returned by Alloc is uninitialized, and a collection
// triggered by that next Alloc call would otherwise walk a garbage header.
func (a Address) WriteHeader(fieldCount int) {
	objheader.WriteHeader(uintptr(a), objheader.NewHeader(fieldCount))
}

// SizeOf returns the number of bytes an object with fieldCount fields
// occupies: the size to pass to Heap.Alloc before writing its header.
func SizeOf(fieldCount int) uintptr {
	return objheader.NewHeader(fieldCount).SizeOf()
}

// ReferenceSize is the width, in bytes, of a single field slot.
const ReferenceSize = objheader.ReferenceSize

// HeaderSize is the width, in bytes, of an object's header word.
const HeaderSize = objheader.HeaderSize

// TagInt encodes a small integer as a non-heap immediate Address.
func TagInt(v int64) Address {
	return Address(objheader.TagInt(v))
}

// UntagInt decodes an immediate Address produced by TagInt.
func UntagInt(a Address) int64 {
	return objheader.UntagInt(uintptr(a))
}

// IsImmediate reports whether a carries the immediate tag, i.e. is not a
// heap reference.
func IsImmediate(a Address) bool {
	return objheader.IsImmediate(uintptr(a))
}

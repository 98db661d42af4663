package semispace

import (
	"os"
	"unsafe"
)

// ptrOf converts a raw address back into an unsafe.Pointer. Isolated here so
// no other file in this package turns a uintptr back into a pointer, the
// same discipline the allocator this collector reuses follows in its own
// pointerstore package.
func ptrOf(addr uintptr) unsafe.Pointer {
	return unsafe.Pointer(addr) //nolint:govet // addr is a live heap/root address, not a converted integer
}

// osExit is a variable indirection purely so tests in this package (if any
// ever need to) can observe that the real os.Exit was reached without
// linking test binaries into a corner; production code always goes through
// this.
var osExit = os.Exit

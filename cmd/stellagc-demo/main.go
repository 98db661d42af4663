// Command stellagc-demo builds a cons list under a small heap, forcing
// collections along the way, and prints the diagnostics and counters the gc
// package exposes. It exists to give the collector a runnable demonstration
// outside of its test suite, the same role location-system's cmd/bin plays
// for its allocator.
package main

import (
	"flag"
	"fmt"

	"github.com/ArtemUntila/stella-garbage-collector/gc"
)

var (
	heapSizeFlag = flag.Uint64("heap-size", gc.DefaultHeapSize, "logical size, in bytes, of each heap region")
	lengthFlag   = flag.Int("length", 20, "number of cons cells to build and root")
	dumpFlag     = flag.Bool("dump-gc-state", false, "print the heap's full state before and after every collection")
)

func cellPrinter(addr gc.Address) string {
	return fmt.Sprintf("<cons @ %#x: car=%s cdr=%#x>", uintptr(addr), carString(addr), uintptr(addr.Field(1)))
}

func carString(addr gc.Address) string {
	car := addr.Field(0)
	if gc.IsImmediate(car) {
		return fmt.Sprintf("%d", gc.UntagInt(car))
	}
	return fmt.Sprintf("%#x", uintptr(car))
}

func cons(h *gc.Heap, car, cdr gc.Address) gc.Address {
	node := h.Alloc(gc.SizeOf(2))
	node.WriteHeader(2)
	node.SetField(0, car)
	node.SetField(1, cdr)
	return node
}

// buildList allocates a list of length cells holding 0..length-1, keeping
// the in-progress tail rooted so no cell is ever unreachable across an
// Alloc call that might collect.
func buildList(h *gc.Heap, length int) gc.Address {
	tail := gc.Nil
	h.PushRoot(&tail)
	defer h.PopRoot(&tail)

	for i := length - 1; i >= 0; i-- {
		tail = cons(h, gc.TagInt(int64(i)), tail)
	}
	return tail
}

func main() {
	flag.Parse()

	h := gc.NewConfigured(gc.Options{
		HeapSize:      *heapSizeFlag,
		Printer:       cellPrinter,
		DumpStateOnGC: *dumpFlag,
	})
	defer h.Destroy()

	fmt.Printf("Building a %d-cell list under a %d-byte heap\n", *lengthFlag, *heapSizeFlag)

	head := buildList(h, *lengthFlag)
	h.PushRoot(&head)
	defer h.PopRoot(&head)

	fmt.Printf("Allocating garbage to demonstrate reclamation\n")
	for i := 0; i < 4; i++ {
		junk := buildList(h, *lengthFlag)
		h.PushRoot(&junk)
		h.PopRoot(&junk)
	}

	fmt.Println()
	h.PrintGCState()
	fmt.Println()
	h.PrintGCAllocStats()

	fmt.Println()
	fmt.Printf("Head of the surviving list still reports %d fields, first value %d\n",
		head.FieldCount(), gc.UntagInt(head.Field(0)))
}

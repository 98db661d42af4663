// Package semispace implements the heap manager: two equally-sized
// contiguous regions, a bump allocator into the active one, and the
// Cheney-with-chase copying collector that evacuates reachable objects from
// the active region into the other and swaps their roles.
package semispace

import (
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/ArtemUntila/stella-garbage-collector/gc/internal/objheader"
	"github.com/ArtemUntila/stella-garbage-collector/gc/internal/rootstack"
)

// ObjectPrinter renders one heap object for the state dump. It is supplied
// by the caller - the collector never interprets what an object means, only
// its header and field slots.
type ObjectPrinter func(addr uintptr) string

// Heap owns both regions, the allocation and collection cursors, the root
// registry and every counter. It is the heap manager: ~85% of this
// collector's design, and the only component with the memory-safety-critical
// invariants (forwarding, in-place pointer rewriting, space flipping).
type Heap struct {
	cfg Config

	out      io.Writer
	printer  ObjectPrinter
	exitFunc func(code int)
	dumpOnGC bool
	debug    bool

	initialized bool
	from        Region
	to          Region
	allocPos    uintptr

	// Collection cursors. Only meaningful while a collection is running;
	// their values outside of collect() are stale and must not be read.
	next uintptr
	scan uintptr

	roots *rootstack.Stack

	totalAllocatedBytes   atomic.Uint64
	totalAllocatedObjects atomic.Uint64
	maxAllocatedBytes     atomic.Uint64
	maxAllocatedObjects   atomic.Uint64
	cycleAllocatedBytes   atomic.Uint64
	cycleAllocatedObjects atomic.Uint64
	totalReads            atomic.Uint64
	totalWrites           atomic.Uint64
	gcCycles              atomic.Uint64
}

// New returns a Heap ready for use. Both regions are mapped lazily, on the
// first call to Alloc.
func New(cfg Config, maxRoots int, printer ObjectPrinter, out io.Writer, dumpOnGC, debug bool) *Heap {
	if printer == nil {
		printer = func(addr uintptr) string { return fmt.Sprintf("<object @ %#x>", addr) }
	}
	return &Heap{
		cfg:      cfg,
		out:      out,
		printer:  printer,
		exitFunc: defaultExitFunc,
		dumpOnGC: dumpOnGC,
		debug:    debug,
		roots:    rootstack.New(maxRoots),
	}
}

// SetExitFunc overrides the function called on heap exhaustion after
// collection. Production code never needs this - it exists so tests can
// exercise the exit-code-12 exhaustion path without actually terminating
// the test binary.
func (h *Heap) SetExitFunc(f func(code int)) {
	h.exitFunc = f
}

func (h *Heap) ensureInit() {
	if h.initialized {
		return
	}
	fmt.Fprintf(h.out, "[GC] Initializing heap: ")
	h.from = mmapRegion(h.cfg)
	h.to = mmapRegion(h.cfg)
	h.allocPos = h.from.Base()
	fmt.Fprintf(h.out, "from = [%#x : %#x]; to = [%#x : %#x]\n", h.from.Base(), h.from.End(), h.to.Base(), h.to.End())
	h.initialized = true
}

// Alloc returns an address with at least nBytes of contiguous free space in
// the active region, advancing the cursor by exactly nBytes. If the request
// does not fit, a collection runs first; if it still does not fit, this
// calls the (by default process-terminating) exit function with code 12.
func (h *Heap) Alloc(nBytes uintptr) uintptr {
	h.ensureInit()

	fmt.Fprintf(h.out, "[GC] Start allocation of %d bytes at %#x\n", nBytes, h.allocPos)

	if h.allocPos+nBytes > h.from.End() {
		h.collect()
		h.rollHighWaterMarks()
	}

	if h.allocPos+nBytes > h.from.End() {
		fmt.Fprintf(h.out, "[GC] Out of memory\n")
		h.exitFunc(12)
		// Only reached if exitFunc was overridden (e.g. by a test) and
		// chose not to terminate. There is no sensible address to
		// return; the caller asked for memory that does not exist.
		return 0
	}

	obj := h.allocPos
	h.allocPos += nBytes
	fmt.Fprintf(h.out, "[GC] Finish allocation of %d bytes at %#x\n", nBytes, obj)

	h.totalAllocatedBytes.Add(uint64(nBytes))
	h.totalAllocatedObjects.Add(1)
	h.cycleAllocatedBytes.Add(uint64(nBytes))
	h.cycleAllocatedObjects.Add(1)

	return obj
}

func (h *Heap) rollHighWaterMarks() {
	casMax(&h.maxAllocatedBytes, h.cycleAllocatedBytes.Load())
	casMax(&h.maxAllocatedObjects, h.cycleAllocatedObjects.Load())
	h.cycleAllocatedBytes.Store(0)
	h.cycleAllocatedObjects.Store(0)
}

// casMax bumps target up to candidate if candidate is larger, retrying
// under concurrent modification the way this allocator's allocation-index
// acquisition does (pointerstore.Store.acquireAllocIdx).
func casMax(target *atomic.Uint64, candidate uint64) {
	for {
		current := target.Load()
		if candidate <= current {
			return
		}
		if target.CompareAndSwap(current, candidate) {
			return
		}
	}
}

// collect runs one full evacuation cycle: roots first, then a
// breadth-first walk of to-space forwarding every field, then the space
// flip. See forward/chase for the Cheney-with-chase copying step.
func (h *Heap) collect() {
	h.gcCycles.Add(1)
	usedBefore := h.allocPos - h.from.Base()
	h.scan = h.to.Base()
	h.next = h.to.Base()

	fmt.Fprintf(h.out, "[GC] Start GC: scan = %#x, next = %#x\n", h.scan, h.next)

	if h.dumpOnGC {
		h.PrintState()
	}

	h.roots.Iterate(func(slotAddr uintptr) {
		valuePtr := (*uintptr)(ptrOf(slotAddr))
		*valuePtr = h.forward(*valuePtr)
	})

	fmt.Fprintf(h.out, "[GC] Finish forwarding roots: scan = %#x, next = %#x\n", h.scan, h.next)

	for h.scan < h.next {
		obj := h.scan
		fc := h.fieldCount(obj)
		for i := 0; i < fc; i++ {
			objheader.WriteField(obj, i, h.forward(objheader.ReadField(obj, i)))
		}
		h.scan += objheader.SizeAt(obj)
	}

	fmt.Fprintf(h.out, "[GC] Finish forwarding fields: scan = %#x, next = %#x\n", h.scan, h.next)

	h.from, h.to = h.to, h.from
	h.allocPos = h.next

	fmt.Fprintf(h.out, "[GC] Finish GC: collected %d bytes of garbage\n", usedBefore-(h.allocPos-h.from.Base()))

	if h.dumpOnGC {
		h.PrintState()
	}
}

// forward returns the post-collection location of p. Non-heap values and
// values already in to-space pass through unchanged; a from-space object
// not yet forwarded is chased (copied) first.
func (h *Heap) forward(p uintptr) uintptr {
	if !h.from.Contains(p) {
		return p
	}
	if h.to.Contains(objheader.ReadField(p, 0)) {
		return objheader.ReadField(p, 0)
	}
	h.chase(p)
	return objheader.ReadField(p, 0)
}

// chase copies p into to-space, installs the forwarding pointer, and
// opportunistically follows one still-unforwarded from-space child per
// iteration rather than waiting for the scan cursor to reach it (Wegbreit's
// optimization over plain Cheney). If several of p's children qualify, the
// last one encountered while scanning fields is the one chased next - this
// is the literal, reference behavior, not merely "any one".
func (h *Heap) chase(p uintptr) {
	for {
		size := h.sizeOf(p)
		q := h.next
		h.next += size

		objheader.WriteHeader(q, objheader.ReadHeader(p))

		var next uintptr // zero is never a valid heap address: it stands for "no child selected"
		fc := h.fieldCount(p)
		for i := 0; i < fc; i++ {
			fi := objheader.ReadField(p, i)
			objheader.WriteField(q, i, fi)
			if h.from.Contains(fi) && !h.to.Contains(objheader.ReadField(fi, 0)) {
				next = fi
			}
		}

		objheader.WriteField(p, 0, q)

		if next == 0 {
			return
		}
		p = next
	}
}

func (h *Heap) fieldCount(addr uintptr) int {
	fc := objheader.ReadHeader(addr).FieldCount()
	if h.debug {
		if err := objheader.CheckFieldCount(fc); err != nil {
			panic(err)
		}
	}
	return fc
}

func (h *Heap) sizeOf(addr uintptr) uintptr {
	size := objheader.SizeAt(addr)
	if h.debug {
		remaining := h.to.End() - h.next
		if size > remaining {
			panic(fmt.Errorf("semispace: object at %#x claims size %d, only %d bytes remain in to-space - heap walk is corrupted", addr, size, remaining))
		}
	}
	return size
}

// PushRoot begins tracking *slotAddr as a root.
func (h *Heap) PushRoot(slotAddr uintptr) {
	h.roots.Push(slotAddr)
}

// PopRoot ends tracking of the most recently pushed root.
func (h *Heap) PopRoot(slotAddr uintptr) {
	h.roots.Pop(slotAddr, h.debug)
}

// ReadBarrier and WriteBarrier increment counters and have no semantic
// effect; they are hooks for a future generational or incremental
// collector, called from every mutator field access for parity.
func (h *Heap) ReadBarrier(obj uintptr, field int) {
	_ = obj
	_ = field
	h.totalReads.Add(1)
}

func (h *Heap) WriteBarrier(obj uintptr, field int, value uintptr) {
	_ = obj
	_ = field
	_ = value
	h.totalWrites.Add(1)
}

// PrintRoots dumps the root stack.
func (h *Heap) PrintRoots() {
	fmt.Fprintf(h.out, "ROOTS: count = %d\n", h.roots.Len())
	h.roots.Iterate(func(slotAddr uintptr) {
		value := *(*uintptr)(ptrOf(slotAddr))
		fmt.Fprintf(h.out, "  %#x -> %#x\n", slotAddr, value)
	})
}

// PrintState dumps the active region's bounds, every object allocated in it
// since the last collection (reachable or not), and the root stack.
func (h *Heap) PrintState() {
	fmt.Fprintln(h.out, strings.Repeat("-", 60))
	fmt.Fprintln(h.out, "Garbage collector (GC) state:")

	fmt.Fprintf(h.out, "HEAP: [%#x : %#x]\n", h.from.Base(), h.from.End())
	fmt.Fprintf(h.out, "HEAP: used = %d bytes; free = %d bytes\n", h.allocPos-h.from.Base(), h.from.End()-h.allocPos)
	p := h.from.Base()
	for p < h.allocPos {
		fmt.Fprintf(h.out, "  %#x : %s\n", p, h.printer(p))
		p += objheader.SizeAt(p)
	}

	h.PrintRoots()
	fmt.Fprintln(h.out, strings.Repeat("-", 60))
}

// PrintAllocStats prints lifetime counters, residency high-water marks, and
// the GC cycle count.
func (h *Heap) PrintAllocStats() {
	s := h.Stats()
	fmt.Fprintf(h.out, "Total memory allocation: %d bytes (%d objects)\n", s.TotalAllocatedBytes, s.TotalAllocatedObjects)
	fmt.Fprintf(h.out, "Maximum residency:       %d bytes (%d objects)\n", s.MaxResidencyBytes, s.MaxResidencyObjects)
	fmt.Fprintf(h.out, "Total memory use:        %d reads and %d writes\n", s.TotalReads, s.TotalWrites)
	fmt.Fprintf(h.out, "Max GC roots stack size: %d roots\n", s.MaxRootStackDepth)
	fmt.Fprintf(h.out, "GC cycles:               %d cycles\n", s.GCCycles)
}

// Stats returns a structured snapshot of every counter.
func (h *Heap) Stats() Stats {
	return Stats{
		TotalAllocatedBytes:   h.totalAllocatedBytes.Load(),
		TotalAllocatedObjects: h.totalAllocatedObjects.Load(),
		MaxResidencyBytes:     max(h.maxAllocatedBytes.Load(), h.cycleAllocatedBytes.Load()),
		MaxResidencyObjects:   max(h.maxAllocatedObjects.Load(), h.cycleAllocatedObjects.Load()),
		TotalReads:            h.totalReads.Load(),
		TotalWrites:           h.totalWrites.Load(),
		GCCycles:              h.gcCycles.Load(),
		RootStackDepth:        h.roots.Len(),
		MaxRootStackDepth:     h.roots.HighWater(),
	}
}

// Destroy releases both regions back to the operating system. After this
// call the Heap is completely unusable.
func (h *Heap) Destroy() error {
	if !h.initialized {
		return nil
	}
	if err := munmapRegion(h.from); err != nil {
		return err
	}
	if err := munmapRegion(h.to); err != nil {
		return err
	}
	h.initialized = false
	return nil
}

func defaultExitFunc(code int) {
	osExit(code)
}

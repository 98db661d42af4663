package gc

import (
	"fmt"
	"io"
	"os"
	"unsafe"

	"github.com/ArtemUntila/stella-garbage-collector/gc/internal/semispace"
)

// DefaultHeapSize is the default per-region capacity in bytes, matching the
// original MAX_HEAP_SIZE.
const DefaultHeapSize = semispace.DefaultHeapSize

// DefaultMaxRoots is the default maximum number of simultaneously live
// roots, matching the original MAX_GC_ROOTS.
const DefaultMaxRoots = 1024

// ObjectPrinter renders one heap object for PrintGCState's dump. It is
// supplied by the mutator/runtime - print_stella_object in the design this
// is built from - because the collector never interprets what an object
// means beyond its header and field slots.
type ObjectPrinter func(addr Address) string

// Options configures a Heap. The zero value is valid: every field falls
// back to its documented default.
type Options struct {
	// HeapSize is the exact logical capacity, in bytes, of each of the
	// two regions. Defaults to DefaultHeapSize.
	HeapSize uint64

	// MaxRoots is the maximum number of simultaneously live roots.
	// Defaults to DefaultMaxRoots.
	MaxRoots int

	// Printer renders one object for PrintGCState. Defaults to a printer
	// that shows only the address and field count.
	Printer ObjectPrinter

	// Out receives every diagnostic line. Defaults to os.Stdout.
	Out io.Writer

	// DumpStateOnGC calls PrintGCState at the start and end of every
	// collection, standing in for the original's
	// #ifdef DUMP_GC_STATE_ON_GC compile-time toggle.
	DumpStateOnGC bool

	// Debug enables field-count and heap-walk sanity assertions, and
	// makes PopRoot assert that its argument matches the top of the
	// root stack. Never required for correctness; purely a debugging
	// aid: pop trusts LIFO discipline by default, and asserts only in
	// debug mode.
	Debug bool
}

// Heap is the mutator-facing handle onto the heap manager: allocation, the
// root registry, the barriers, and the diagnostic dumps.
type Heap struct {
	core *semispace.Heap

	// slots holds every currently pushed root slot as a Go pointer. Keeping
	// the pointer makes the compiler heap-allocate any variable whose
	// address is passed to PushRoot, so that address stays fixed while the
	// slot is rooted.
	slots []*Address
}

// New returns a Heap using every default.
func New() *Heap {
	return NewConfigured(Options{})
}

// NewSized returns a Heap whose regions hold exactly heapSize bytes each.
// The motivating use is tests that want to force a collection, or an
// out-of-memory condition, without allocating anywhere near
// DefaultHeapSize bytes.
func NewSized(heapSize uint64) *Heap {
	return NewConfigured(Options{HeapSize: heapSize})
}

// NewConfigured returns a Heap built from opts.
func NewConfigured(opts Options) *Heap {
	if opts.HeapSize == 0 {
		opts.HeapSize = DefaultHeapSize
	}
	if opts.MaxRoots == 0 {
		opts.MaxRoots = DefaultMaxRoots
	}
	if opts.Printer == nil {
		opts.Printer = defaultPrinter
	}
	if opts.Out == nil {
		opts.Out = os.Stdout
	}

	printer := func(addr uintptr) string {
		return opts.Printer(Address(addr))
	}

	core := semispace.New(semispace.NewConfig(opts.HeapSize), opts.MaxRoots, printer, opts.Out, opts.DumpStateOnGC, opts.Debug)
	return &Heap{core: core}
}

func defaultPrinter(addr Address) string {
	return fmt.Sprintf("<object @ %#x, %d fields>", uintptr(addr), addr.FieldCount())
}

// SetExitFunc overrides the function called on heap exhaustion after
// collection (default os.Exit). Exists so tests can exercise the
// out-of-memory path without terminating the test binary.
func (h *Heap) SetExitFunc(f func(code int)) {
	h.core.SetExitFunc(f)
}

// Alloc returns an address with at least nBytes of contiguous, writable,
// uninitialized space in the active region. May trigger a collection. Fails
// fatally (exit code 12) if the request still does not fit afterwards.
func (h *Heap) Alloc(nBytes uintptr) Address {
	return Address(h.core.Alloc(nBytes))
}

// PushRoot begins tracking *slot as a root: from this call until the
// matching PopRoot, *slot is part of the root set traced by every
// collection. slot is retained until the matching PopRoot, which keeps the
// variable it points at on the Go heap - see the package doc's "Root slots
// must be heap-escaped" section.
func (h *Heap) PushRoot(slot *Address) {
	h.core.PushRoot(uintptr(unsafe.Pointer(slot)))
	h.slots = append(h.slots, slot)
}

// PopRoot ends tracking of the most recently pushed root. slot is accepted
// for symmetry with PushRoot; whether it is required to match the top of
// the root stack depends on Options.Debug.
func (h *Heap) PopRoot(slot *Address) {
	h.core.PopRoot(uintptr(unsafe.Pointer(slot)))
	n := len(h.slots) - 1
	h.slots[n] = nil
	h.slots = h.slots[:n]
}

// ReadBarrier and WriteBarrier increment counters and have no semantic
// effect on this collector. The mutator is expected to call them around
// every field load/store so a future generational or incremental collector
// can hook in here without changing the mutator's calling convention.
func (h *Heap) ReadBarrier(obj Address, field int) {
	h.core.ReadBarrier(uintptr(obj), field)
}

func (h *Heap) WriteBarrier(obj Address, field int, value Address) {
	h.core.WriteBarrier(uintptr(obj), field, uintptr(value))
}

// PrintGCState prints the active region's bounds, every object allocated in
// it since the last collection, reachable or not (via the configured
// ObjectPrinter), and the root stack.
func (h *Heap) PrintGCState() {
	h.core.PrintState()
}

// PrintGCRoots prints the root stack alone.
func (h *Heap) PrintGCRoots() {
	h.core.PrintRoots()
}

// PrintGCAllocStats prints lifetime counters, residency high-water marks,
// and the GC cycle count.
func (h *Heap) PrintGCAllocStats() {
	h.core.PrintAllocStats()
}

// Stats returns a structured snapshot of every counter, for tests and
// diagnostics that want numbers rather than text.
func (h *Heap) Stats() Stats {
	return Stats(h.core.Stats())
}

// Destroy releases both regions back to the operating system. After this
// call the Heap is completely unusable.
func (h *Heap) Destroy() error {
	return h.core.Destroy()
}

// Stats is a structured snapshot of a Heap's lifetime and residency
// counters.
type Stats struct {
	TotalAllocatedBytes   uint64
	TotalAllocatedObjects uint64
	MaxResidencyBytes     uint64
	MaxResidencyObjects   uint64
	TotalReads            uint64
	TotalWrites           uint64
	GCCycles              uint64
	RootStackDepth        int
	MaxRootStackDepth     int
}

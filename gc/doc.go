// Package gc implements the runtime heap manager for a small functional
// language's evaluator: automatic storage for heap-allocated program objects
// via a semi-space copying collector (Cheney's algorithm with Wegbreit's
// "chase" optimization), with an explicit root stack pushed and popped by
// generated mutator code.
//
// # Usage
//
// A Heap owns two equally-sized contiguous regions and hands out memory from
// whichever is currently active.
//
//	heap := gc.New()
//
//	addr := heap.Alloc(gc.SizeOf(2))
//	addr.WriteHeader(2)
//	addr.SetField(0, someValue)
//	addr.SetField(1, someOtherValue)
//
// Every reference the mutator needs to survive a future Alloc call must be
// registered as a root before that call, and unregistered once the mutator's
// scope holding it ends:
//
//	var slot gc.Address = addr
//	heap.PushRoot(&slot)
//	defer heap.PopRoot(&slot)
//
// A collection runs synchronously inside Alloc whenever the active region
// does not have room for the request; every registered root, and every
// reference reachable from one, is relocated and rewritten in place. Only
// references reachable through a registered root slot survive - anything
// else, including references sitting in unregistered local variables or
// machine registers, is a mutator-side responsibility, not a collector bug.
//
// # Root slots must be heap-escaped
//
// Go's garbage collector moves goroutine stacks but never moves heap
// allocations. Because the root registry keeps a root slot's raw address
// across calls that may run arbitrary code (including a collection), that
// slot's address must be stable for as long as it is registered, so a
// rooted slot must live on the Go heap, not the Go stack. PushRoot ensures
// this: it also keeps slot as a Go pointer until the matching PopRoot, so
// the compiler's escape analysis heap-allocates any variable whose address
// is passed to it. A raw uintptr alone would not do this, since escape
// analysis does not follow uintptr values. This has no equivalent in the C
// runtime this design is built from, whose stack never moves; it is the one
// place this Go implementation must depart from a literal port.
//
// # Non-heap values
//
// A field slot may also hold a non-heap "immediate" value (a small integer,
// boolean, or null) rather than a reference. The collector distinguishes the
// two purely by address-range membership, so immediates must be encoded so
// their bit pattern can never alias a heap address; TagInt/UntagInt/
// IsImmediate implement one such discipline (tag the low bit, since every
// real heap address is reference-aligned) for mutator-simulating code to
// use.
//
// # Diagnostics
//
// PrintGCState, PrintGCRoots and PrintGCAllocStats write human-readable
// diagnostics to the Heap's configured writer (stdout by default). They are
// not gated behind a verbosity flag here, matching the reference
// implementation's behavior of printing on every allocation and collection;
// callers embedding this in a larger program should supply a writer that
// they can silence.
package gc

package gc_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArtemUntila/stella-garbage-collector/gc"
)

// consSize is the size, in bytes, of a two-field cons cell: [car, cdr].
var consSize = gc.SizeOf(2)

func newCons(h *gc.Heap, car, cdr gc.Address) gc.Address {
	node := h.Alloc(consSize)
	node.WriteHeader(2)
	node.SetField(0, car)
	node.SetField(1, cdr)
	return node
}

// buildList allocates a list of cons cells holding the given tagged-int
// values, front to back, returning the head. The in-progress tail is kept
// rooted for the duration so that no intermediate cell is ever unreachable
// across an Alloc call that might collect - the allocation/root-registration
// window the design this collector is built from warns about.
func buildList(h *gc.Heap, values []int64) gc.Address {
	tail := gc.Nil
	h.PushRoot(&tail)
	defer h.PopRoot(&tail)

	for i := len(values) - 1; i >= 0; i-- {
		tail = newCons(h, gc.TagInt(values[i]), tail)
	}
	return tail
}

// listValues walks a cons list, decoding each car as a tagged int.
func listValues(head gc.Address) []int64 {
	values := make([]int64, 0)
	for cur := head; !cur.IsNil(); cur = cur.Field(1) {
		values = append(values, gc.UntagInt(cur.Field(0)))
	}
	return values
}

// allocGarbage allocates n unrooted cons cells. Each one is unreachable as
// soon as it is allocated, so allocating more than the region holds forces a
// collection without growing the live set.
func allocGarbage(h *gc.Heap, n int) {
	for i := 0; i < n; i++ {
		newCons(h, gc.TagInt(0), gc.Nil)
	}
}

func Test_Scenario1_SingleObjectSurvivesForcedCollection(t *testing.T) {
	h := gc.NewSized(256)
	defer h.Destroy()

	first := newCons(h, gc.TagInt(7), gc.TagInt(9))
	h.PushRoot(&first)
	defer h.PopRoot(&first)

	require.Equal(t, 2, first.FieldCount())
	require.Equal(t, int64(7), gc.UntagInt(first.Field(0)))

	// Force a collection by allocating more unrooted garbage than the
	// region can hold.
	allocGarbage(h, 40)

	assert.True(t, h.Stats().GCCycles >= 1)
	assert.Equal(t, 2, first.FieldCount())
	assert.Equal(t, int64(7), gc.UntagInt(first.Field(0)))
	assert.Equal(t, int64(9), gc.UntagInt(first.Field(1)))
}

func Test_Scenario2_TenConsCellsSurviveRootedHead(t *testing.T) {
	h := gc.NewSized(512)
	defer h.Destroy()

	values := []int64{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
	head := buildList(h, values)
	h.PushRoot(&head)
	defer h.PopRoot(&head)

	// Force at least one collection.
	allocGarbage(h, 60)

	assert.Equal(t, values, listValues(head))

	liveObjects := 0
	for cur := head; !cur.IsNil(); cur = cur.Field(1) {
		liveObjects++
	}
	assert.Equal(t, 10, liveObjects)
}

func Test_Scenario3_UnrootedListIsCollected(t *testing.T) {
	// 1500 bytes hold the 60-cell list below (1440 bytes) but not that list
	// together with the 5 cells above (1560 bytes).
	h := gc.NewSized(1500)
	defer h.Destroy()

	head := buildList(h, []int64{0, 1, 2, 3, 4})
	_ = head // deliberately never rooted

	before := h.Stats().TotalAllocatedBytes

	// Building a rooted 60-cell list overflows the region and forces a
	// collection; the 5-cell list above has no root and must not survive,
	// or the rest of the 60-cell list would not fit.
	junk := buildList(h, make([]int64, 60))
	h.PushRoot(&junk)
	defer h.PopRoot(&junk)

	after := h.Stats()
	assert.True(t, after.GCCycles >= 1)
	assert.True(t, after.TotalAllocatedBytes > before, "allocation must still have happened")
	// The unrooted list's cells cannot be among the survivors: the live
	// set after collection is exactly the junk list's cells.
	assert.Equal(t, make([]int64, 60), listValues(junk))
}

func Test_Scenario4_CyclicPairSurvives(t *testing.T) {
	h := gc.NewSized(256)
	defer h.Destroy()

	a := newCons(h, gc.TagInt(1), gc.Nil)
	h.PushRoot(&a)
	defer h.PopRoot(&a)

	b := newCons(h, gc.TagInt(2), a)
	a.SetField(1, b) // A -> B -> A

	require.Equal(t, a, b.Field(1))
	require.Equal(t, b, a.Field(1))

	allocGarbage(h, 40)

	newB := a.Field(1)
	assert.Equal(t, int64(2), gc.UntagInt(newB.Field(0)))
	assert.Equal(t, a, newB.Field(1))
	assert.Equal(t, int64(1), gc.UntagInt(a.Field(0)))
}

func Test_Scenario5_SharedNodeCopiedOnce(t *testing.T) {
	h := gc.NewSized(256)
	defer h.Destroy()

	shared := newCons(h, gc.TagInt(42), gc.Nil)

	p1 := newCons(h, gc.TagInt(1), shared)
	h.PushRoot(&p1)
	defer h.PopRoot(&p1)

	p2 := newCons(h, gc.TagInt(2), shared)
	h.PushRoot(&p2)
	defer h.PopRoot(&p2)

	allocGarbage(h, 40)

	assert.Equal(t, p1.Field(1), p2.Field(1), "both parents must reference the single forwarded copy of the shared node")
	assert.Equal(t, int64(42), gc.UntagInt(p1.Field(1).Field(0)))
}

// oomOverride stops execution the moment the heap-exhausted exit function
// runs, the same way os.Exit would - only as a panic/recover instead of
// terminating the test binary.
type oomOverride struct{}

func Test_Scenario6_OutOfMemoryExitsWithCode12(t *testing.T) {
	h := gc.NewSized(128)
	defer h.Destroy()

	var exitCode int
	exited := false

	func() {
		defer func() {
			if r := recover(); r != nil {
				if _, ok := r.(oomOverride); !ok {
					panic(r)
				}
			}
		}()

		h.SetExitFunc(func(code int) {
			exited = true
			exitCode = code
			panic(oomOverride{})
		})

		head := buildList(h, make([]int64, 100))
		h.PushRoot(&head)
		defer h.PopRoot(&head)
	}()

	require.True(t, exited, "heap exhaustion must reach the exit function")
	assert.Equal(t, 12, exitCode)
}

func Test_I3_RootRewriting_NonHeapValuesPassThroughUnchanged(t *testing.T) {
	h := gc.NewSized(256)
	defer h.Destroy()

	imm := gc.TagInt(1234)
	h.PushRoot(&imm)
	defer h.PopRoot(&imm)

	allocGarbage(h, 40)

	assert.Equal(t, gc.TagInt(1234), imm, "a root holding a non-heap value must be left untouched by collection")
}

func Test_I5_CountersMonotonicAndAccurate(t *testing.T) {
	h := gc.NewSized(512)
	defer h.Destroy()

	var totalRequested uintptr
	for i := 0; i < 20; i++ {
		obj := h.Alloc(consSize)
		obj.WriteHeader(2)
		totalRequested += consSize
	}

	s := h.Stats()
	assert.Equal(t, uint64(totalRequested), s.TotalAllocatedBytes)
	assert.Equal(t, uint64(20), s.TotalAllocatedObjects)
}

func Test_I6_RootStackIsStrictlyLIFO(t *testing.T) {
	h := gc.NewSized(512)
	defer h.Destroy()

	a := newCons(h, gc.TagInt(1), gc.Nil)
	b := newCons(h, gc.TagInt(2), gc.Nil)

	h.PushRoot(&a)
	h.PushRoot(&b)
	assert.Equal(t, 2, h.Stats().RootStackDepth)

	h.PopRoot(&b)
	assert.Equal(t, 1, h.Stats().RootStackDepth)

	h.PopRoot(&a)
	assert.Equal(t, 0, h.Stats().RootStackDepth)
}

func Test_RootStackOverflow_IsFatal(t *testing.T) {
	h := gc.NewConfigured(gc.Options{HeapSize: 512, MaxRoots: 2})
	defer h.Destroy()

	a := gc.Nil
	b := gc.Nil
	c := gc.Nil

	h.PushRoot(&a)
	h.PushRoot(&b)

	assert.Panics(t, func() { h.PushRoot(&c) })
}

func Test_PrintGCState_WritesDiagnostics(t *testing.T) {
	var out bytes.Buffer
	h := gc.NewConfigured(gc.Options{HeapSize: 256, Out: &out})
	defer h.Destroy()

	node := newCons(h, gc.TagInt(3), gc.Nil)
	h.PushRoot(&node)
	defer h.PopRoot(&node)

	h.PrintGCState()
	h.PrintGCRoots()
	h.PrintGCAllocStats()

	assert.Contains(t, out.String(), "Garbage collector (GC) state")
	assert.Contains(t, out.String(), "ROOTS: count = 1")
	assert.Contains(t, out.String(), "GC cycles:")
}

func Test_AllocationRoundTrip_WrittenBytesReadBack(t *testing.T) {
	h := gc.NewSized(256)
	defer h.Destroy()

	node := h.Alloc(consSize)
	node.WriteHeader(2)
	node.SetField(0, gc.TagInt(99))
	node.SetField(1, gc.Nil)

	assert.Equal(t, int64(99), gc.UntagInt(node.Field(0)))
	assert.True(t, node.Field(1).IsNil())
}

func Test_ForwardingIdempotence_SecondCollectWithNoAllocationsIsNoOp(t *testing.T) {
	h := gc.NewSized(512)
	defer h.Destroy()

	head := buildList(h, []int64{1, 2, 3})
	h.PushRoot(&head)
	defer h.PopRoot(&head)

	allocGarbage(h, 40)

	afterFirst := h.Stats()
	valuesAfterFirst := listValues(head)

	// A second forced collection, with no allocations of new live data in
	// between, must not change the reachable content.
	allocGarbage(h, 40)

	afterSecond := h.Stats()
	assert.Equal(t, valuesAfterFirst, listValues(head))
	assert.True(t, afterSecond.GCCycles > afterFirst.GCCycles)
}

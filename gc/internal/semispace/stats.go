package semispace

// Stats is a structured snapshot of a Heap's lifetime and residency
// counters, mirroring the Stats struct this allocator's stores expose
// (pointerstore.Stats) but carrying the fields this collector's
// print_gc_alloc_stats needs instead of allocation-reuse accounting (this
// collector never reuses space in place; a collection is what reclaims it).
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

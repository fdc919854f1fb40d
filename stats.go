package nbhm

import "github.com/c2h5oh/datasize"

// Stats is a point-in-time, racy snapshot of a table chain's shape, useful
// for logging and capacity planning rather than correctness decisions.
// Every field is read straight off the striped counters and atomics that
// back the live table, so it can be stale the instant it's returned.
type Stats struct {
	// LenEstimate is the same racy live-size estimate LenEstimate returns.
	LenEstimate int64
	// Capacity is the current table generation's slot count.
	Capacity uint32
	// Claimed is the number of slots that have ever been written to in the
	// current generation (live, tombstoned, or mid-migration).
	Claimed int64
	// Generations counts how many tables are chained from the current one
	// (1 if no resize is in flight or pending promotion).
	Generations int
	// FootprintEstimate is an approximate memory footprint of the current
	// generation's slot arrays, expressed with datasize.ByteSize so callers
	// get human-readable formatting (via its String method) for free.
	FootprintEstimate datasize.ByteSize
}

func statsFor[K any, V any](t *table[K, V]) Stats {
	generations := 0

	var total int64

	for cur := t; cur != nil; cur = cur.next.Load() {
		generations++
		total += cur.size.Value()
	}

	if total < 0 {
		total = 0
	}

	return Stats{
		LenEstimate:       total,
		Capacity:          t.capacity(),
		Claimed:           t.claimed.Value(),
		Generations:       generations,
		FootprintEstimate: datasize.ByteSize(datasizeBytesForCapacity[K, V](t.capacity())),
	}
}

package nbhm

import (
	"sync/atomic"

	"github.com/jonhanna/nbhm/counter"
	"go.uber.org/zap"
)

// table is one generation of the hash table. Tables form a singly linked
// chain via next: a table's successor is installed once via CAS and never
// changed afterwards. Every mutator and reader call lands on whichever
// table the top-level container currently considers "current" and walks
// forward through next as needed, cooperating with migration along the way.
type table[K any, V any] struct {
	cfg *config[K, V]

	hashes []atomic.Uint32
	cells  []atomic.Pointer[box[K, V]]

	mask         uint32
	reprobeLimit uint32

	size    *counter.Striped
	claimed *counter.Striped

	copyDone         atomic.Uint64
	migrationCursor  atomic.Uint64
	capacityExceeded atomic.Bool

	next atomic.Pointer[table[K, V]]
}

func newTable[K any, V any](capacity uint32, cfg *config[K, V]) *table[K, V] {
	t := &table[K, V]{
		cfg:          cfg,
		hashes:       make([]atomic.Uint32, capacity),
		cells:        make([]atomic.Pointer[box[K, V]], capacity),
		mask:         capacity - 1,
		reprobeLimit: reprobeLimit(capacity, cfg.reprobeMin, cfg.reprobeShift),
		size:         counter.NewDefault(),
		claimed:      counter.NewDefault(),
	}

	return t
}

func (t *table[K, V]) capacity() uint32 { return t.mask + 1 }

func (t *table[K, V]) logger() *zap.Logger { return t.cfg.logger }

// claimSlot ensures slot i's memoized hash is h, claiming it from empty if
// necessary. It returns false if the slot already holds a different,
// non-zero hash (a probe collision that must advance to the next slot).
//
// The slot is re-read fresh on every call rather than trusting a value a
// caller might have cached from an earlier probe step, so that a
// concurrent transition another goroutine already applied to the slot is
// never acted on as if it were still pending.
func (t *table[K, V]) claimSlot(i, h uint32) bool {
	for {
		hm := t.hashes[i].Load()
		switch {
		case hm == h:
			return true
		case hm != 0:
			return false
		case t.hashes[i].CompareAndSwap(0, h):
			t.claimed.Add(1)

			return true
		}
		// Lost the race to claim; reread and reclassify.
	}
}

// get implements the lookup protocol: probe this table within
// the reprobe limit, help migrate any Prime slot it crosses, and tunnel
// into the successor chain when the key isn't resolved here.
func (t *table[K, V]) get(h uint32, k K) (V, bool) {
	var zero V

	for cur := t; cur != nil; {
		idx := h & cur.mask

		found, result, ok, restart := cur.probeGet(idx, h, k)
		if found {
			return result, ok
		}

		if restart {
			continue // restart on the same table (helped a Prime slot)
		}

		cur = cur.next.Load()
	}

	return zero, false
}

// probeGet walks one table's probe sequence for h,k. found reports whether
// a terminal answer (ok,result) was reached in this table; restart reports
// that the caller should retry this same table (e.g. after helping migrate
// a Prime slot) rather than advance to the successor.
func (t *table[K, V]) probeGet(idx, h uint32, k K) (found bool, result V, ok bool, restart bool) {
	var zero V

	for step := uint32(0); step <= t.reprobeLimit; step++ {
		i := (idx + step) & t.mask

		hm := t.hashes[i].Load()
		if hm == 0 {
			return true, zero, false, false // never claimed here: absent in this table
		}

		if hm != h {
			continue // hash collision on this slot, advance probe
		}

		c := t.cells[i].Load()
		switch {
		case c == nil:
			// Empty: a race with a concurrent claim. Treated as a miss on
			// this slot; the caller falls through to the successor check.
			return true, zero, false, false
		case c.isLive():
			if t.cfg.cmp.Equal(c.key, k) {
				return true, c.value, true, false
			}
		case c.isTombstone():
			if t.cfg.cmp.Equal(c.key, k) {
				return true, zero, false, false
			}
		case c.isPrime():
			t.helpMigrateSlot(i)

			return false, zero, false, true
		case c.isDead():
			return false, zero, false, false
		}
	}

	// Reprobe limit exhausted without a determination: tunnel to successor.
	return false, zero, false, false
}

// contains reports whether k has a live entry, in terms of get.
func (t *table[K, V]) contains(h uint32, k K) bool {
	_, ok := t.get(h, k)

	return ok
}

// lenEstimate sums the live-size counter across the whole chain. It is a
// non-snapshot estimate: concurrent mutation and migration both leave a
// window where a key is momentarily invisible or double counted.
func (t *table[K, V]) lenEstimate() int64 {
	var total int64

	for cur := t; cur != nil; cur = cur.next.Load() {
		total += cur.size.Value()
	}

	if total < 0 {
		total = 0
	}

	return total
}

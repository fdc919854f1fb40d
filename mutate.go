package nbhm

// ladderResult classifies the outcome of one attempt to settle a slot's
// value cell, once the slot's hash has already been matched.
type ladderResult int

const (
	ladderRetry ladderResult = iota
	ladderAdvanceProbe
	ladderRestart
	ladderDone
)

// desiredFunc computes the box a mutation wants to install, given whatever
// box is currently observed in the slot (nil for Empty). Building it lazily
// from the observed box is what lets remove() carry the about-to-be-removed
// value into its tombstone, and lets UpdateOrInsert run its caller-supplied
// factory/update closures exactly once per successful attempt. Returning a
// non-nil error aborts the operation before any CAS is issued.
type desiredFunc[K any, V any] func(observed *box[K, V]) (*box[K, V], error)

// guardFunc, when non-nil, decides whether desiredFunc may run and its
// result replace observed. It must be pure and side-effect free; it may be
// invoked more than once for the same logical attempt.
type guardFunc[K any, V any] func(observed *box[K, V]) bool

// putIfMatch is the single primitive behind every mutating operation:
// insert, update, conditional update, delete and copy-during-resize. h is
// the already-memoized hash of k. removing marks a pure delete: deleting a
// key that was never written is a documented no-op that performs no CAS on
// the value cell (the slot's hash word may still be claimed for k).
//
// It returns the cell that was observed immediately before any successful
// CAS (nil if the slot had never been written), from which every derived
// operation's semantics can be read off (see map.go / set.go). The error
// return is either ErrCapacityExceeded (every table in the chain has
// saturated its reprobe budget and cannot grow further) or whatever
// desiredFn returned.
func (t *table[K, V]) putIfMatch(h uint32, k K, desiredFn desiredFunc[K, V], guard guardFunc[K, V], removing bool) (*box[K, V], error) {
	cur := t

tableLoop:
	for {
		idx := h & cur.mask

	probeLoop:
		for step := uint32(0); step <= cur.reprobeLimit; step++ {
			i := (idx + step) & cur.mask

			if !cur.claimSlot(i, h) {
				continue probeLoop // hash collision at this slot: advance probe
			}

			cur.checkResizeThresholds()

			for {
				result, prev, err := cur.tryCASLadder(i, k, desiredFn, guard, removing)
				if err != nil {
					return prev, err
				}

				switch result {
				case ladderRetry:
					continue
				case ladderAdvanceProbe:
					continue probeLoop
				case ladderRestart:
					nxt, err := cur.awaitNext()
					if err != nil {
						return nil, err
					}

					cur = nxt

					continue tableLoop
				case ladderDone:
					cur.checkResizeThresholds()

					return prev, nil
				}
			}
		}

		// Reprobe limit exhausted: treat it as a resize trigger, not an error.
		// Help migrate one chunk, then retry on the successor.
		cur.requestResize(resizeReasonReprobe)
		cur.helpMigrateChunk()

		nxt, err := cur.awaitNext()
		if err != nil {
			return nil, err
		}

		cur = nxt
	}
}

// tryCASLadder attempts to settle slot i, whose hash is already known to
// equal h's memoized hash, against k. The slot is re-read fresh on entry
// rather than reusing any value the caller might have observed on a
// previous pass, so that a concurrent transition another goroutine already
// applied to the slot is never acted on as if it were still pending.
func (t *table[K, V]) tryCASLadder(i uint32, k K, desiredFn desiredFunc[K, V], guard guardFunc[K, V], removing bool) (ladderResult, *box[K, V], error) {
	observed := t.cells[i].Load()

	switch {
	case observed.isDead():
		return ladderRestart, nil, nil
	case observed.isPrime():
		t.helpMigrateSlot(i)

		return ladderRestart, nil, nil
	}

	if observed != nil && !t.cfg.cmp.Equal(observed.key, k) {
		return ladderAdvanceProbe, nil, nil
	}

	// Once a successor is installed, writes go there: help migrate a chunk
	// and this key's own slot first, then restart on the successor.
	if t.next.Load() != nil {
		t.helpMigrateChunk()
		t.helpMigrateSlot(i)

		return ladderRestart, nil, nil
	}

	if observed == nil && removing {
		return ladderDone, nil, nil
	}

	if guard != nil && !guard(observed) {
		return ladderDone, observed, nil
	}

	desired, err := desiredFn(observed)
	if err != nil {
		return ladderDone, observed, err
	}

	if t.cells[i].CompareAndSwap(observed, desired) {
		t.accountTransition(observed, desired)

		return ladderDone, observed, nil
	}

	return ladderRetry, nil, nil
}

// accountTransition updates the live-size counter for a settled CAS from
// observed to desired: the counter increments on a
// transition that introduces a live entry and decrements on the reverse.
func (t *table[K, V]) accountTransition(observed, desired *box[K, V]) {
	wasLive := observed.isLive()
	isLive := desired.isLive()

	switch {
	case !wasLive && isLive:
		t.size.Add(1)
	case wasLive && !isLive:
		t.size.Add(-1)
	}
}

// hashOf computes and memoizes k's hash.
func (t *table[K, V]) hashOf(k K) uint32 {
	return memoize(t.cfg.cmp.Hash(k))
}

func fixed[K any, V any](b *box[K, V]) desiredFunc[K, V] {
	return func(*box[K, V]) (*box[K, V], error) { return b, nil }
}

func notLive[K any, V any](observed *box[K, V]) bool {
	return !observed.isLive()
}

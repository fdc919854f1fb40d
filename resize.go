package nbhm

import (
	"math/rand/v2"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

type resizeReason string

const (
	resizeReasonReprobe resizeReason = "reprobe_exhausted"
	resizeReasonClaimed resizeReason = "claimed_pressure"
	resizeReasonSize    resizeReason = "size_pressure"
	resizeReasonCompact resizeReason = "compaction"
)

// checkResizeThresholds implements the two non-reprobe resize triggers:
// claimed slots at or above 2x capacity, or live size at or above 25%
// of capacity. Called opportunistically after a slot claim or a live-cell
// CAS; it is a hint, not a guarantee, so missing a check costs nothing but
// a slightly later resize.
func (t *table[K, V]) checkResizeThresholds() {
	cap64 := uint64(t.capacity())

	claimed := t.claimed.Value()
	if claimed > 0 && uint64(claimed) >= 2*cap64 {
		t.requestResize(resizeReasonClaimed)

		return
	}

	size := t.size.Value()
	if size > 0 && uint64(size)*4 >= cap64 {
		t.requestResize(resizeReasonSize)
	}
}

// requestResize computes a successor capacity, allocates a successor table,
// and installs it via a single winning CAS from nil. Losers discard their
// candidate and simply observe the winner's successor.
func (t *table[K, V]) requestResize(reason resizeReason) {
	if t.next.Load() != nil {
		return // already in progress or done
	}

	t.cfg.resizeContenders.Add(1)
	defer t.cfg.resizeContenders.Add(-1)

	t.awaitBackpressure()

	if t.next.Load() != nil {
		return
	}

	target, overflow := t.computeResizeTarget()
	if overflow {
		// A resize target exceeding the maximum table size is a capacity
		// error. Mark it so every mutator waiting on this table's
		// successor (awaitNext) stops spinning and surfaces
		// ErrCapacityExceeded instead of looping forever.
		t.capacityExceeded.Store(true)
		t.logger().Error("nbhm: resize target exceeds maximum capacity",
			zap.Uint32("target", target), zap.Uint32("max", maxCapacity))

		return
	}

	successor := newTable[K, V](target, t.cfg)

	if t.next.CompareAndSwap(nil, successor) {
		t.logger().Debug("nbhm: installed successor table",
			zap.Uint32("from_capacity", t.capacity()),
			zap.Uint32("to_capacity", successor.capacity()),
			zap.String("reason", string(reason)))
	}
	// Else: another goroutine won the race; our candidate is simply
	// discarded and collected, nothing else to undo.
}

// computeResizeTarget implements the resize capacity formula. overflow
// reports whether the computed target exceeds the maximum table size.
func (t *table[K, V]) computeResizeTarget() (target uint32, overflow bool) {
	cap64 := uint64(t.capacity())

	size := uint64(t.size.Value())
	if int64(size) < 0 {
		size = 0
	}

	var raw uint64

	switch {
	case size >= 3*cap64/4:
		raw = 8 * size
	case size >= cap64/2:
		raw = 4 * size
	case size >= cap64/4:
		raw = 2 * size
	default:
		raw = size
	}

	if raw < cap64 {
		raw = cap64
	}

	if size == t.cfg.prevSize.Load() {
		raw *= 2
	}

	t.cfg.prevSize.Store(size)

	claimed := uint64(t.claimed.Value())
	if claimed >= 2*size {
		raw = cap64 * 2
	}

	if raw > maxCapacity {
		return 0, true
	}

	return nextPowerOfTwo(raw), false
}

// checkCompactionDensity is the predicate-remove enumerator's disposal
// check: once it finishes walking and removing, it looks at how many
// tombstones it left behind. A slot that was claimed but is no longer live
// is either a tombstone or mid-migration; claimed minus size is a safe
// over-estimate of tombstoned slots. If that exceeds 1/16 of capacity, or
// 1/4 of the remaining live size, a resize is requested purely to compact
// the table back down, rather than waiting for claimed-slot pressure to
// force the same resize after a table that is mostly tombstones has kept
// failing reprobes for a while.
func (t *table[K, V]) checkCompactionDensity() {
	size := t.size.Value()
	if size < 0 {
		size = 0
	}

	claimed := t.claimed.Value()

	tombstoned := claimed - size
	if tombstoned <= 0 {
		return
	}

	cap64 := uint64(t.capacity())

	if uint64(tombstoned)*16 > cap64 || uint64(tombstoned)*4 > uint64(size) {
		t.requestResize(resizeReasonCompact)
	}
}

// awaitBackpressure implements a stampede-avoidance heuristic: once the
// table being resized occupies a large amount of slot storage and
// several goroutines are racing to install its successor, later arrivals
// spin briefly, then back off with jitter (via cenkalti/backoff) before
// re-examining whether a successor already appeared. The footprint checked
// is the current table's; the successor's target capacity is not computed
// until after this wait. A goroutine is always free to skip the sleep
// outright without breaking correctness.
func (t *table[K, V]) awaitBackpressure() {
	bp := t.cfg.backpressure

	approxBytes := datasizeBytesForCapacity[K, V](t.capacity())
	if approxBytes < uint64(bp.SizeThreshold.Bytes()) {
		return
	}

	if t.cfg.resizeContenders.Load() < bp.ContenderThreshold {
		return
	}

	// Spin briefly first; a successor may already be mid-flight.
	for i := 0; i < 64; i++ {
		if t.next.Load() != nil {
			return
		}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Millisecond
	b.MaxInterval = bp.MaxSleep
	b.MaxElapsedTime = bp.MaxSleep

	t.logger().Debug("nbhm: resize back-pressure engaged",
		zap.Int32("contenders", t.cfg.resizeContenders.Load()),
		zap.Uint64("approx_bytes", approxBytes))

	for {
		if t.next.Load() != nil {
			return
		}

		d := b.NextBackOff()
		if d == backoff.Stop {
			return
		}

		// A little jitter on top of the backoff interval spreads out
		// contenders that all woke on the same tick.
		jitter := time.Duration(rand.Int64N(int64(time.Millisecond)))
		time.Sleep(d + jitter)
	}
}

// datasizeBytesForCapacity estimates a table's slot-array footprint: one
// atomic.Uint32 hash word plus one pointer-sized cell slot per entry, which
// is what the back-pressure threshold is measured against.
func datasizeBytesForCapacity[K any, V any](capacity uint32) uint64 {
	const hashWordBytes = 4

	perSlot := uint64(hashWordBytes) + uint64(pointerSizeBytes)

	return uint64(capacity) * perSlot
}

// awaitNext returns the successor table, helping migrate chunks until one
// is installed. A mutator only calls this once it has decided it must move
// on to the successor (reprobe exhaustion, or a Prime/Dead slot), so it is
// always correct to request a resize here if none is already underway. It
// reports ErrCapacityExceeded if the table this mutator is stuck on can
// never grow further.
func (t *table[K, V]) awaitNext() (*table[K, V], error) {
	for {
		if nxt := t.next.Load(); nxt != nil {
			return nxt, nil
		}

		if t.capacityExceeded.Load() {
			return nil, ErrCapacityExceeded
		}

		t.requestResize(resizeReasonReprobe)
		t.helpMigrateChunk()
	}
}

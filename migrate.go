package nbhm

import "go.uber.org/zap"

// helpMigrateSlot drives slot i through the per-slot migration procedure
// for moving one slot into the successor table, returning once the slot is
// Dead. It is called by readers and mutators that cross a Prime slot, by a
// mutator about to continue on the successor, and by helpMigrateChunk's
// bulk sweep. A CAS lost to a concurrent writer is followed by a fresh read
// of the slot.
func (t *table[K, V]) helpMigrateSlot(i uint32) {
	next := t.next.Load()
	if next == nil {
		return
	}

	for {
		hm := t.hashes[i].Load()
		c := t.cells[i].Load()

		switch {
		case c == nil:
			// Never written, or claimed but not yet filled: either way there is
			// nothing live to carry forward, so CAS straight to Dead. A claiming
			// mutator's nil->Live CAS racing against this one simply loses,
			// observes Dead, and restarts on the successor.
			t.finishMigrateSlot(i, nil)

		case c.isDead():
			// Already migrated.
			return

		case c.isTombstone():
			// Logically removed: nothing to carry forward.
			t.finishMigrateSlot(i, c)

		case c.isLive():
			primed := primeOf(c)
			if t.cells[i].CompareAndSwap(c, primed) {
				// The entry leaves this table's live count here; the
				// successor counts it once the publish lands.
				t.size.Add(-1)
				t.publishToSuccessor(next, hm, primed)
				t.finishMigrateSlot(i, primed)
			}
			// Lost the CAS: the slot changed underneath; reread it.

		case c.isPrime():
			// Already marked; may not have been published yet if the thread
			// that primed it stalled. Publishing again is safe: the
			// successor's putIfMatch is empty_only, so a second publish of
			// the same key/value is a harmless no-op if it already landed.
			t.publishToSuccessor(next, hm, c)
			t.finishMigrateSlot(i, c)
		}
	}
}

// publishToSuccessor carries a primed cell's key/value into the successor
// table, landing only in a slot that has never been written. A capacity error
// on the successor can only mean the whole table family has saturated; it
// is logged rather than propagated since migration has no caller to return
// it to, and the stalled entry remains safely retrievable from this table
// until some future mutator's own call surfaces the same error.
func (t *table[K, V]) publishToSuccessor(next *table[K, V], hm uint32, primed *box[K, V]) {
	desired := liveBox(primed.key, primed.value)

	_, err := next.putIfMatch(hm, primed.key, fixed[K, V](desired), emptySlotOnly[K, V], false)
	if err != nil {
		t.logger().Error("nbhm: migration publish failed", zap.Error(err))
	}
}

// emptySlotOnly is the guard for migration's carry-forward publish: it may
// only land in a slot that has never been written, never overwrite a slot
// that already holds a Live or Tombstone cell.
func emptySlotOnly[K any, V any](observed *box[K, V]) bool {
	return observed == nil
}

// finishMigrateSlot CASes the source cell to Dead and, on success, accounts
// the slot as migrated. Losing the CAS means the cell changed since it was
// observed (another goroutine finished the slot, or a writer replaced an
// Empty or Tombstone cell); helpMigrateSlot then rereads the slot. Only the
// winner counts it, so copyDone reaches capacity exactly once per slot.
func (t *table[K, V]) finishMigrateSlot(i uint32, observed *box[K, V]) {
	if !t.cells[i].CompareAndSwap(observed, deadBox[K, V]()) {
		return
	}

	done := t.copyDone.Add(1)
	if done == uint64(t.capacity()) {
		t.promote()
	}
}

// helpMigrateChunk claims up to cfg.migrationChunk not-yet-claimed slots via
// an atomic fetch-add over migrationCursor and migrates each in turn. This
// is the unit of incremental migration work every mutator performs once
// it observes next != nil; readers instead migrate
// a single slot via helpMigrateSlot, never a whole chunk.
func (t *table[K, V]) helpMigrateChunk() {
	if t.next.Load() == nil {
		return
	}

	chunk := uint64(t.cfg.migrationChunk)
	cap64 := uint64(t.capacity())

	start := t.migrationCursor.Add(chunk) - chunk
	if start >= cap64 {
		return // every slot already claimed by some chunk
	}

	end := start + chunk
	if end > cap64 {
		end = cap64
	}

	for i := start; i < end; i++ {
		t.helpMigrateSlot(uint32(i))
	}
}

// promote CASes the top-level container's current-table reference from t to
// its successor. Guarded by equality, so multiple threads racing to promote
// (or a promote that arrives after the reference has already moved on) is
// harmless. After a successful swing it keeps going while the new current
// table has itself already finished migrating, since that table's own
// promote ran while it was not yet current and could not swing anything.
func (t *table[K, V]) promote() {
	for cur := t; ; {
		next := cur.next.Load()
		if next == nil || cur.copyDone.Load() != uint64(cur.capacity()) {
			return
		}

		if !cur.cfg.current.CompareAndSwap(cur, next) {
			return
		}

		cur.logger().Info("nbhm: promoted successor table",
			zap.Uint32("from_capacity", cur.capacity()),
			zap.Uint32("to_capacity", next.capacity()))

		cur = next
	}
}

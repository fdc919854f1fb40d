package nbhm

// Iterator enumerates the live entries of a Map or Set as they stood across
// the table chain at the moment each slot is visited. It is not a
// consistent snapshot: a key inserted, removed, or migrated concurrently
// with the walk may be seen, missed, or (in rare migration races) seen
// twice. Enumeration is explicitly not snapshot-isolated; callers that need
// a frozen view must take one themselves (e.g. by draining into a slice
// while otherwise quiescent).
//
// The zero value is not usable; obtain one from Map.Iter or Set.Iter.
type Iterator[K any, V any] struct {
	cur   *table[K, V]
	index uint32

	key   K
	value V
}

func newIterator[K any, V any](start *table[K, V]) *Iterator[K, V] {
	return &Iterator[K, V]{cur: start}
}

// Next advances the iterator to the next live entry, returning false once
// every table in the chain (as it existed when each was visited) has been
// exhausted.
func (it *Iterator[K, V]) Next() bool {
	for it.cur != nil {
		for it.index < it.cur.capacity() {
			i := it.index
			it.index++

			c := it.cur.cells[i].Load()
			if c.isPrime() {
				it.cur.helpMigrateSlot(i)

				continue
			}

			if !c.isLive() {
				continue
			}

			it.key, it.value = c.key, c.value

			return true
		}

		it.cur = it.cur.next.Load()
		it.index = 0
	}

	return false
}

// Key returns the key of the entry Next just advanced to.
func (it *Iterator[K, V]) Key() K { return it.key }

// Value returns the value of the entry Next just advanced to.
func (it *Iterator[K, V]) Value() V { return it.value }

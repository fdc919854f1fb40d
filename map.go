package nbhm

// Map is a lock-free, resizing, open-addressed hash table mapping keys of
// type K to values of type V. Its zero value is not usable; construct one
// with New or NewComparable.
//
// Every method is safe to call concurrently from any number of goroutines,
// without external locking. Map never blocks a reader behind a writer, and
// a resize in progress is always made forward progress on cooperatively by
// whichever goroutines happen to touch the table next, never by a single
// dedicated background goroutine.
type Map[K any, V any] struct {
	cfg *config[K, V]
}

// New constructs a Map with an explicit key comparator, for keys that
// aren't Go's built-in comparable (e.g. keys that should be compared by
// pointer identity, or compared case-insensitively) or that simply want a
// hash function other than the default maphash-backed one. capacity is
// rounded up to the next power of two and used as the initial slot count.
func New[K any, V any](capacity int, cmp Comparator[K], opts ...Option[K, V]) (*Map[K, V], error) {
	cfg, err := newConfig[K, V](cmp, opts)
	if err != nil {
		return nil, err
	}

	cap32, err := normalizeCapacity(capacity)
	if err != nil {
		return nil, err
	}

	t := newTable[K, V](cap32, cfg)
	cfg.current.Store(t)

	return &Map[K, V]{cfg: cfg}, nil
}

// NewComparable constructs a Map for ordinary comparable keys, using the
// default maphash-backed comparator.
func NewComparable[K comparable, V any](capacity int, opts ...Option[K, V]) (*Map[K, V], error) {
	return New[K, V](capacity, NewDefaultComparator[K](), opts...)
}

func (m *Map[K, V]) current() *table[K, V] { return m.cfg.current.Load() }

// Get returns the value associated with k, if any.
func (m *Map[K, V]) Get(k K) (V, bool) {
	t := m.current()

	return t.get(t.hashOf(k), k)
}

// Contains reports whether k has a live entry.
func (m *Map[K, V]) Contains(k K) bool {
	t := m.current()

	return t.contains(t.hashOf(k), k)
}

// Put associates v with k, overwriting any existing value, and returns the
// value previously associated with k (if any).
func (m *Map[K, V]) Put(k K, v V) (previous V, hadPrevious bool, err error) {
	var zero V

	t := m.current()
	desired := liveBox(k, v)

	prev, err := t.putIfMatch(t.hashOf(k), k, fixed[K, V](desired), nil, false)
	if err != nil {
		return zero, false, err
	}

	if prev.isLive() {
		return prev.value, true, nil
	}

	return zero, false, nil
}

// PutIfAbsent inserts v for k only if k has no live entry (an absent key or
// one logically removed by a prior Remove counts as absent). It reports
// whether the insert happened; if not, existing holds the value already
// present.
func (m *Map[K, V]) PutIfAbsent(k K, v V) (existing V, inserted bool, err error) {
	var zero V

	t := m.current()
	desired := liveBox(k, v)

	prev, err := t.putIfMatch(t.hashOf(k), k, fixed[K, V](desired), notLive[K, V], false)
	if err != nil {
		return zero, false, err
	}

	if prev.isLive() {
		return prev.value, false, nil
	}

	return zero, true, nil
}

// ReplaceIfEqualFunc replaces k's value with newValue only if k currently
// has a live value equal to old under equal. V is not required to satisfy
// Go's comparable constraint, so the equality function is supplied by the
// caller rather than inferred.
func (m *Map[K, V]) ReplaceIfEqualFunc(k K, old, newValue V, equal func(a, b V) bool) (bool, error) {
	t := m.current()
	desired := liveBox(k, newValue)

	guard := func(observed *box[K, V]) bool {
		return observed.isLive() && equal(observed.value, old)
	}

	prev, err := t.putIfMatch(t.hashOf(k), k, fixed[K, V](desired), guard, false)
	if err != nil {
		return false, err
	}

	return prev.isLive() && equal(prev.value, old), nil
}

// Remove logically deletes k, returning the value that was removed, if any.
// A tombstone recording the removed value is left in place rather than a
// fully reclaimed slot; removing an already-absent key is a documented
// no-op.
func (m *Map[K, V]) Remove(k K) (removed V, hadValue bool, err error) {
	var zero V

	t := m.current()

	desiredFn := func(observed *box[K, V]) (*box[K, V], error) {
		return tombstoneBox(observed.key, observed.value), nil
	}

	prev, err := t.putIfMatch(t.hashOf(k), k, desiredFn, nil, true)
	if err != nil {
		return zero, false, err
	}

	if prev.isLive() {
		return prev.value, true, nil
	}

	return zero, false, nil
}

// RemoveIfEqual logically deletes k only if its current live value equals
// expected under equal, reporting whether the removal happened.
func (m *Map[K, V]) RemoveIfEqual(k K, expected V, equal func(a, b V) bool) (bool, error) {
	t := m.current()

	guard := func(observed *box[K, V]) bool {
		return observed.isLive() && equal(observed.value, expected)
	}

	desiredFn := func(observed *box[K, V]) (*box[K, V], error) {
		return tombstoneBox(observed.key, observed.value), nil
	}

	prev, err := t.putIfMatch(t.hashOf(k), k, desiredFn, guard, true)
	if err != nil {
		return false, err
	}

	return prev.isLive() && equal(prev.value, expected), nil
}

// UpdateOrInsert settles k to a single value via exactly one of onAbsent
// (called when k has no live entry) or onPresent (called with k's current
// value). Either closure may return an error to abort the operation before
// any cell is written; it surfaces wrapped in a *PredicateFaultError. The
// closure is retried from scratch if the slot changes underneath it (losing
// a CAS race), so it must be side-effect free, or idempotent at least.
func (m *Map[K, V]) UpdateOrInsert(k K, onAbsent func() (V, error), onPresent func(current V) (V, error)) (V, error) {
	var zero V

	t := m.current()
	h := t.hashOf(k)

	desiredFn := func(observed *box[K, V]) (*box[K, V], error) {
		if observed.isLive() {
			nv, err := onPresent(observed.value)
			if err != nil {
				return nil, predicateFault(err)
			}

			return liveBox(k, nv), nil
		}

		nv, err := onAbsent()
		if err != nil {
			return nil, predicateFault(err)
		}

		return liveBox(k, nv), nil
	}

	if _, err := t.putIfMatch(h, k, desiredFn, nil, false); err != nil {
		return zero, err
	}

	// putIfMatch reports the cell observed just before the winning CAS,
	// not the value installed by it; re-read to hand back what settled.
	v, ok := t.get(h, k)
	if !ok {
		return zero, ErrKeyAbsent
	}

	return v, nil
}

// LenEstimate returns a racy estimate of the number of live entries. It is
// not a snapshot: concurrent mutation means the true count can differ from
// the moment this value is read, even before it's returned to the caller.
func (m *Map[K, V]) LenEstimate() int64 {
	return m.current().lenEstimate()
}

// Stats reports a point-in-time snapshot of the table's shape.
func (m *Map[K, V]) Stats() Stats {
	return statsFor(m.current())
}

// Iter returns an Iterator over the map's live entries at call time, per
// the snapshot-free enumeration contract documented on Iterator.
func (m *Map[K, V]) Iter() *Iterator[K, V] {
	return newIterator(m.current())
}

// RemoveWhere removes every live entry for which match returns true,
// visiting entries in the same order Iter would. It returns the number of
// entries removed.
func (m *Map[K, V]) RemoveWhere(match func(k K, v V) bool) (int, error) {
	removed := 0

	t := m.current()
	it := newIterator(t)
	for it.Next() {
		k, v := it.Key(), it.Value()
		if !match(k, v) {
			continue
		}

		if _, ok, err := m.Remove(k); err != nil {
			return removed, err
		} else if ok {
			removed++
		}
	}

	t.checkCompactionDensity()

	return removed, nil
}

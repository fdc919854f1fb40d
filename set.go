package nbhm

// Set is a lock-free, resizing, open-addressed hash set of elements of type
// K. It is implemented directly atop the same table as Map, storing K as
// both key and value, rather than wrapping a Map[K, struct{}], which keeps
// FindOrStore a single probe+CAS pass instead of a Get followed by a
// separate Put.
//
// Every method is safe to call concurrently from any number of goroutines.
type Set[K any] struct {
	cfg *config[K, K]
}

// NewSet constructs a Set with an explicit element comparator.
func NewSet[K any](capacity int, cmp Comparator[K], opts ...Option[K, K]) (*Set[K], error) {
	cfg, err := newConfig[K, K](cmp, opts)
	if err != nil {
		return nil, err
	}

	cap32, err := normalizeCapacity(capacity)
	if err != nil {
		return nil, err
	}

	t := newTable[K, K](cap32, cfg)
	cfg.current.Store(t)

	return &Set[K]{cfg: cfg}, nil
}

// NewSetComparable constructs a Set for ordinary comparable elements, using
// the default maphash-backed comparator.
func NewSetComparable[K comparable](capacity int, opts ...Option[K, K]) (*Set[K], error) {
	return NewSet[K](capacity, NewDefaultComparator[K](), opts...)
}

func (s *Set[K]) current() *table[K, K] { return s.cfg.current.Load() }

// Has reports whether k is a member.
func (s *Set[K]) Has(k K) bool {
	t := s.current()

	return t.contains(t.hashOf(k), k)
}

// Put adds k to the set, reporting whether it was already a member.
func (s *Set[K]) Put(k K) (alreadyMember bool, err error) {
	t := s.current()
	desired := liveBox(k, k)

	prev, err := t.putIfMatch(t.hashOf(k), k, fixed[K, K](desired), nil, false)
	if err != nil {
		return false, err
	}

	return prev.isLive(), nil
}

// Delete removes k from the set, reporting whether it had been a member.
func (s *Set[K]) Delete(k K) (wasMember bool, err error) {
	t := s.current()

	desiredFn := func(observed *box[K, K]) (*box[K, K], error) {
		return tombstoneBox(observed.key, observed.value), nil
	}

	prev, err := t.putIfMatch(t.hashOf(k), k, desiredFn, nil, true)
	if err != nil {
		return false, err
	}

	return prev.isLive(), nil
}

// FindOrStore returns the member equal to k, inserting k itself if no such
// member exists yet. The returned bool reports whether k was already
// present. This is the primitive an interning pool needs: exactly one
// winner's value survives for any given key across concurrent callers.
func (s *Set[K]) FindOrStore(k K) (stored K, alreadyMember bool, err error) {
	var zero K

	t := s.current()
	desired := liveBox(k, k)

	prev, err := t.putIfMatch(t.hashOf(k), k, fixed[K, K](desired), notLive[K, K], false)
	if err != nil {
		return zero, false, err
	}

	if prev.isLive() {
		return prev.value, true, nil
	}

	return k, false, nil
}

// LenEstimate returns a racy estimate of the number of members.
func (s *Set[K]) LenEstimate() int64 {
	return s.current().lenEstimate()
}

// Stats reports a point-in-time snapshot of the set's shape.
func (s *Set[K]) Stats() Stats {
	return statsFor(s.current())
}

// Iter returns an Iterator over the set's members at call time. Key and
// Value both return the same element.
func (s *Set[K]) Iter() *Iterator[K, K] {
	return newIterator(s.current())
}

// RemoveWhere removes every member for which match returns true, returning
// the number removed.
func (s *Set[K]) RemoveWhere(match func(k K) bool) (int, error) {
	removed := 0

	t := s.current()
	it := newIterator(t)
	for it.Next() {
		k := it.Key()
		if !match(k) {
			continue
		}

		if ok, err := s.Delete(k); err != nil {
			return removed, err
		} else if ok {
			removed++
		}
	}

	t.checkCompactionDensity()

	return removed, nil
}

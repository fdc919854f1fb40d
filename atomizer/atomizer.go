// Package atomizer provides string (or other comparable value) interning
// atop nbhm.Set: concurrent callers handing in equal values all converge on
// the same stored instance, the way classic "atom table" interning works in
// Lisp-family runtimes. It exists to exercise Set.FindOrStore as a
// first-class primitive rather than leaving it as an unused corner of the
// API surface.
package atomizer

import "github.com/jonhanna/nbhm"

// Atomizer interns values of type K, so that two calls to Intern with equal
// values always return the identical stored value.
type Atomizer[K comparable] struct {
	set *nbhm.Set[K]
}

// New constructs an Atomizer with the given initial capacity hint.
func New[K comparable](capacity int) (*Atomizer[K], error) {
	set, err := nbhm.NewSetComparable[K](capacity)
	if err != nil {
		return nil, err
	}

	return &Atomizer[K]{set: set}, nil
}

// Intern returns the canonical stored value equal to v, storing v itself if
// this is the first time an equal value has been interned.
func (a *Atomizer[K]) Intern(v K) (K, error) {
	stored, _, err := a.set.FindOrStore(v)
	if err != nil {
		var zero K

		return zero, err
	}

	return stored, nil
}

// Len returns a racy estimate of the number of distinct interned values.
func (a *Atomizer[K]) Len() int64 {
	return a.set.LenEstimate()
}

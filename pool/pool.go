// Package pool provides a typed wrapper over sync.Pool, avoiding the
// empty-interface boxing a bare sync.Pool forces on every Get/Put. It is
// meant for scratch values with a clear single-owner lifetime between Get
// and Put, not for values that outlive the call that released them, since
// recycling something still reachable through a compare-and-swap target
// reintroduces the ABA problem sync.Pool's GC-backed reuse normally avoids.
package pool

import "sync"

// Pool recycles values of type T, avoiding the empty-interface boxing a bare
// sync.Pool forces on every Get/Put.
type Pool[T any] struct {
	inner sync.Pool
}

// New constructs a Pool whose Get calls newFn whenever no recycled value is
// available.
func New[T any](newFn func() T) *Pool[T] {
	p := &Pool[T]{}
	p.inner.New = func() any { return newFn() }

	return p
}

// Get returns a value from the pool, constructing one via newFn if the pool
// is currently empty.
func (p *Pool[T]) Get() T {
	return p.inner.Get().(T)
}

// Put returns v to the pool for reuse. Callers must not retain v after
// calling Put, since it may be handed to another goroutine's Get at any
// time afterwards.
func (p *Pool[T]) Put(v T) {
	p.inner.Put(v)
}

// Reset is a convenience for the common pattern of pooling a value and
// resetting it in place before release, e.g. a slice header truncated back
// to zero length. reset is called with v before it is returned to the pool.
func (p *Pool[T]) Reset(v T, reset func(T)) {
	reset(v)
	p.Put(v)
}

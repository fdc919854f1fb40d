package nbhm

// cellState is the state discriminator of a slot's value cell. The Empty
// state is represented by a nil *box rather than its own tag, since an
// unclaimed slot has nothing to box yet.
type cellState uint8

const (
	stateLive cellState = iota + 1
	stateTombstone
	statePrime
	stateDead
)

// box is the immutable, boxed value cell stored behind a slot's atomic
// pointer. State transitions never mutate a box in place; they swap in a
// freshly allocated box via CAS, which is what makes the per-slot state
// machine (Empty -> Live/Tombstone <-> ... -> Prime -> Dead) race-free
// without any lock.
type box[K any, V any] struct {
	state cellState
	key   K
	value V
}

func liveBox[K any, V any](k K, v V) *box[K, V] {
	return &box[K, V]{state: stateLive, key: k, value: v}
}

func tombstoneBox[K any, V any](k K, v V) *box[K, V] {
	return &box[K, V]{state: stateTombstone, key: k, value: v}
}

// primeOf snapshots a box's key/value under the Prime marker: the value has
// been (or is being) carried forward to the successor table and this slot's
// table may no longer accept new writes for it.
func primeOf[K any, V any](b *box[K, V]) *box[K, V] {
	return &box[K, V]{state: statePrime, key: b.key, value: b.value}
}

func deadBox[K any, V any]() *box[K, V] {
	return &box[K, V]{state: stateDead}
}

func (b *box[K, V]) isLive() bool      { return b != nil && b.state == stateLive }
func (b *box[K, V]) isTombstone() bool { return b != nil && b.state == stateTombstone }
func (b *box[K, V]) isPrime() bool     { return b != nil && b.state == statePrime }
func (b *box[K, V]) isDead() bool      { return b != nil && b.state == stateDead }

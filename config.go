package nbhm

import (
	"sync/atomic"
	"time"

	"github.com/c2h5oh/datasize"
	"go.uber.org/zap"
)

const (
	// DefaultReprobeLowerBound is RMIN in the reprobe-limit formula
	// R = max(RMIN, C/RSHIFT).
	DefaultReprobeLowerBound = 5

	// DefaultReprobeShift is RSHIFT in the reprobe-limit formula.
	DefaultReprobeShift = 32

	// DefaultMigrationChunk is the number of slots a mutator migrates in
	// one go when it observes a resize in progress.
	DefaultMigrationChunk = 1024

	minCapacity = 1
	maxCapacity = 1 << 30
)

// BackpressureConfig tunes the resize allocator's stampede avoidance:
// once the table being resized occupies at least SizeThreshold of
// slot storage and at least ContenderThreshold goroutines are concurrently
// requesting a resize, later arrivals spin briefly and then sleep before
// re-examining whether a successor has already been installed.
type BackpressureConfig struct {
	// SizeThreshold is the slot-storage footprint of the table being
	// resized at or above which back-pressure kicks in at all. Expressed with datasize.ByteSize so call sites read
	// naturally ("256*datasize.KB") instead of a bare magic number.
	SizeThreshold datasize.ByteSize
	// ContenderThreshold is the number of concurrent resize requesters
	// required before later threads back off.
	ContenderThreshold int32
	// MaxSleep caps the backoff sleep applied while waiting for a
	// successor to appear.
	MaxSleep time.Duration
}

// DefaultBackpressureConfig engages back-pressure for tables of at least
// 256 KiB of slot storage with at least 3 contenders, sleep capped at 200ms.
func DefaultBackpressureConfig() BackpressureConfig {
	return BackpressureConfig{
		SizeThreshold:      256 * datasize.KB,
		ContenderThreshold: 3,
		MaxSleep:           200 * time.Millisecond,
	}
}

// config is shared, by pointer, by every table in a chain: it carries the
// comparator and tuning knobs fixed at construction time plus the mutable
// bookkeeping (prevSize, resizeContenders) that must be visible to every
// table a mutator might be cooperating with.
type config[K any, V any] struct {
	cmp Comparator[K]

	reprobeMin   uint32
	reprobeShift uint32
	migrationChunk uint32
	backpressure BackpressureConfig
	logger       *zap.Logger

	// prevSize is the live size observed the last time a resize target was
	// computed; it drives the "size == prev_size -> double anyway" rule.
	prevSize atomic.Uint64
	// resizeContenders counts goroutines currently trying to install a
	// successor for any table in the chain.
	resizeContenders atomic.Int32

	// current is the top-level container's "current table" reference.
	// Every table in a chain shares the same config, and therefore the
	// same current pointer, so any table's promote() can swing it forward
	// once that table's migration into its successor completes.
	current atomic.Pointer[table[K, V]]
}

// Option configures a Map or Set at construction time via the functional-
// option pattern.
type Option[K any, V any] func(*config[K, V])

// WithReprobeBounds overrides the reprobe-limit constants RMIN and RSHIFT.
// These are meant to be adjusted only with real measurement behind it, not
// for casual tuning.
func WithReprobeBounds[K any, V any](reprobeMin, reprobeShift uint32) Option[K, V] {
	return func(c *config[K, V]) {
		c.reprobeMin = reprobeMin
		c.reprobeShift = reprobeShift
	}
}

// WithMigrationChunk overrides the number of slots migrated per cooperating
// mutator step.
func WithMigrationChunk[K any, V any](chunk uint32) Option[K, V] {
	return func(c *config[K, V]) {
		c.migrationChunk = chunk
	}
}

// WithBackpressure overrides the resize back-pressure thresholds.
func WithBackpressure[K any, V any](bp BackpressureConfig) Option[K, V] {
	return func(c *config[K, V]) {
		c.backpressure = bp
	}
}

// WithLogger attaches a zap.Logger that receives Debug/Info diagnostics for
// resize triggers, successor installation, promotion and back-pressure
// sleeps. Never logged above Debug on any hot get/put path. Defaults to a
// no-op logger.
func WithLogger[K any, V any](logger *zap.Logger) Option[K, V] {
	return func(c *config[K, V]) {
		c.logger = logger
	}
}

func newConfig[K any, V any](cmp Comparator[K], opts []Option[K, V]) (*config[K, V], error) {
	if cmp == nil {
		return nil, invalidArgumentf("comparator must not be nil")
	}

	c := &config[K, V]{
		cmp:            cmp,
		reprobeMin:     DefaultReprobeLowerBound,
		reprobeShift:   DefaultReprobeShift,
		migrationChunk: DefaultMigrationChunk,
		backpressure:   DefaultBackpressureConfig(),
		logger:         zap.NewNop(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.reprobeMin == 0 || c.reprobeShift == 0 {
		return nil, invalidArgumentf("reprobe bounds must be positive")
	}

	if c.migrationChunk == 0 {
		return nil, invalidArgumentf("migration chunk must be positive")
	}

	if c.logger == nil {
		c.logger = zap.NewNop()
	}

	return c, nil
}

func normalizeCapacity(capacity int) (uint32, error) {
	if capacity < minCapacity || capacity > maxCapacity {
		return 0, invalidArgumentf("initial capacity %d out of range [%d, %d]", capacity, minCapacity, maxCapacity)
	}

	return nextPowerOfTwo(uint64(capacity)), nil
}

// nextPowerOfTwo rounds v up to the next power of two, sized for the 64-bit
// slot counts a resized table can reach.
func nextPowerOfTwo(v uint64) uint32 {
	if v <= 1 {
		return 1
	}

	v--
	v |= v >> 1
	v |= v >> 2
	v |= v >> 4
	v |= v >> 8
	v |= v >> 16
	v |= v >> 32
	v++

	if v > maxCapacity {
		v = maxCapacity
	}

	return uint32(v)
}

func reprobeLimit(capacity, reprobeMin, reprobeShift uint32) uint32 {
	r := capacity / reprobeShift
	if r < reprobeMin {
		r = reprobeMin
	}

	return r
}

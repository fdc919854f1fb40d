package nbhm_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonhanna/nbhm"
)

func newTestMap(t *testing.T) *nbhm.Map[string, int] {
	t.Helper()

	m, err := nbhm.NewComparable[string, int](8)
	require.NoError(t, err)

	return m
}

func TestMapPutGet(t *testing.T) {
	m := newTestMap(t)

	_, had, err := m.Put("a", 1)
	require.NoError(t, err)
	assert.False(t, had)

	v, ok := m.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	prev, had, err := m.Put("a", 2)
	require.NoError(t, err)
	assert.True(t, had)
	assert.Equal(t, 1, prev)

	v, ok = m.Get("a")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestMapGetMissing(t *testing.T) {
	m := newTestMap(t)

	_, ok := m.Get("missing")
	assert.False(t, ok)
	assert.False(t, m.Contains("missing"))
}

func TestMapPutIfAbsent(t *testing.T) {
	m := newTestMap(t)

	existing, inserted, err := m.PutIfAbsent("a", 1)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Zero(t, existing)

	existing, inserted, err = m.PutIfAbsent("a", 2)
	require.NoError(t, err)
	assert.False(t, inserted)
	assert.Equal(t, 1, existing)

	v, _ := m.Get("a")
	assert.Equal(t, 1, v)
}

func TestMapPutIfAbsentAfterRemove(t *testing.T) {
	m := newTestMap(t)

	_, _, err := m.Put("a", 1)
	require.NoError(t, err)

	_, had, err := m.Remove("a")
	require.NoError(t, err)
	assert.True(t, had)

	// A tombstoned key counts as absent.
	_, inserted, err := m.PutIfAbsent("a", 2)
	require.NoError(t, err)
	assert.True(t, inserted)

	v, _ := m.Get("a")
	assert.Equal(t, 2, v)
}

func TestMapRemove(t *testing.T) {
	m := newTestMap(t)

	_, had, err := m.Remove("missing")
	require.NoError(t, err)
	assert.False(t, had)

	_, _, err = m.Put("a", 1)
	require.NoError(t, err)

	removed, had, err := m.Remove("a")
	require.NoError(t, err)
	assert.True(t, had)
	assert.Equal(t, 1, removed)

	_, ok := m.Get("a")
	assert.False(t, ok)

	// Idempotent: removing again reports no previous value.
	_, had, err = m.Remove("a")
	require.NoError(t, err)
	assert.False(t, had)
}

func TestMapReplaceIfEqual(t *testing.T) {
	m := newTestMap(t)

	eq := func(a, b int) bool { return a == b }

	_, _, err := m.Put("a", 1)
	require.NoError(t, err)

	ok, err := m.ReplaceIfEqualFunc("a", 2, 99, eq)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = m.ReplaceIfEqualFunc("a", 1, 99, eq)
	require.NoError(t, err)
	assert.True(t, ok)

	v, _ := m.Get("a")
	assert.Equal(t, 99, v)

	ok, err = m.ReplaceIfEqualFunc("missing", 0, 1, eq)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMapRemoveIfEqual(t *testing.T) {
	m := newTestMap(t)

	eq := func(a, b int) bool { return a == b }

	_, _, err := m.Put("a", 1)
	require.NoError(t, err)

	ok, err := m.RemoveIfEqual("a", 2, eq)
	require.NoError(t, err)
	assert.False(t, ok)

	_, present := m.Get("a")
	assert.True(t, present)

	ok, err = m.RemoveIfEqual("a", 1, eq)
	require.NoError(t, err)
	assert.True(t, ok)

	_, present = m.Get("a")
	assert.False(t, present)
}

func TestMapUpdateOrInsert(t *testing.T) {
	m := newTestMap(t)

	v, err := m.UpdateOrInsert("a",
		func() (int, error) { return 1, nil },
		func(current int) (int, error) { return current + 1, nil },
	)
	require.NoError(t, err)
	assert.Equal(t, 1, v)

	v, err = m.UpdateOrInsert("a",
		func() (int, error) { return 1, nil },
		func(current int) (int, error) { return current + 1, nil },
	)
	require.NoError(t, err)
	assert.Equal(t, 2, v)
}

func TestMapUpdateOrInsertPredicateFault(t *testing.T) {
	m := newTestMap(t)

	boom := fmt.Errorf("boom")

	_, err := m.UpdateOrInsert("a",
		func() (int, error) { return 0, boom },
		func(current int) (int, error) { return current, nil },
	)
	require.Error(t, err)

	var pf *nbhm.PredicateFaultError
	assert.ErrorAs(t, err, &pf)

	_, ok := m.Get("a")
	assert.False(t, ok, "failed factory must not leave a partial entry")
}

func TestMapLenEstimateAndRemoveWhere(t *testing.T) {
	m := newTestMap(t)

	for i := 0; i < 20; i++ {
		_, _, err := m.Put(fmt.Sprintf("k%d", i), i)
		require.NoError(t, err)
	}

	assert.EqualValues(t, 20, m.LenEstimate())

	removed, err := m.RemoveWhere(func(k string, v int) bool { return v%2 == 0 })
	require.NoError(t, err)
	assert.Equal(t, 10, removed)
	assert.EqualValues(t, 10, m.LenEstimate())

	it := m.Iter()
	for it.Next() {
		assert.Equal(t, 1, it.Value()%2)
	}
}

func TestMapRemoveWhereCompactsADenseTombstoneTable(t *testing.T) {
	m, err := nbhm.NewComparable[string, int](64)
	require.NoError(t, err)

	for i := 0; i < 4; i++ {
		_, _, err := m.Put(fmt.Sprintf("k%d", i), i)
		require.NoError(t, err)
	}

	before := m.Stats()
	assert.Equal(t, 1, before.Generations, "no resize should be pending before removal")

	removed, err := m.RemoveWhere(func(string, int) bool { return true })
	require.NoError(t, err)
	assert.Equal(t, 4, removed)

	after := m.Stats()
	assert.Greater(t, after.Generations, 1,
		"removing enough of a small table to exceed the tombstone-density threshold should request a compacting resize")
}

func TestMapResizesUnderLoad(t *testing.T) {
	m := newTestMap(t)

	const n = 5000

	for i := 0; i < n; i++ {
		_, _, err := m.Put(fmt.Sprintf("key-%d", i), i)
		require.NoError(t, err)
	}

	for i := 0; i < n; i++ {
		v, ok := m.Get(fmt.Sprintf("key-%d", i))
		require.True(t, ok)
		assert.Equal(t, i, v)
	}

	stats := m.Stats()
	assert.GreaterOrEqual(t, stats.Capacity, uint32(n))
	assert.EqualValues(t, n, m.LenEstimate())
}

func TestMapInvalidConstruction(t *testing.T) {
	_, err := nbhm.NewComparable[string, int](0)
	assert.ErrorIs(t, err, nbhm.ErrInvalidArgument)

	_, err = nbhm.New[string, int](8, nil)
	assert.ErrorIs(t, err, nbhm.ErrInvalidArgument)
}

package nbhm_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonhanna/nbhm"
)

func newTestSet(t *testing.T) *nbhm.Set[string] {
	t.Helper()

	s, err := nbhm.NewSetComparable[string](8)
	require.NoError(t, err)

	return s
}

func TestSetPutHasDelete(t *testing.T) {
	s := newTestSet(t)

	assert.False(t, s.Has("a"))

	already, err := s.Put("a")
	require.NoError(t, err)
	assert.False(t, already)

	assert.True(t, s.Has("a"))

	already, err = s.Put("a")
	require.NoError(t, err)
	assert.True(t, already)

	was, err := s.Delete("a")
	require.NoError(t, err)
	assert.True(t, was)
	assert.False(t, s.Has("a"))

	was, err = s.Delete("a")
	require.NoError(t, err)
	assert.False(t, was)
}

func TestSetFindOrStore(t *testing.T) {
	s := newTestSet(t)

	stored, already, err := s.FindOrStore("a")
	require.NoError(t, err)
	assert.False(t, already)
	assert.Equal(t, "a", stored)

	stored, already, err = s.FindOrStore("a")
	require.NoError(t, err)
	assert.True(t, already)
	assert.Equal(t, "a", stored)
}

func TestSetLenEstimateAndRemoveWhere(t *testing.T) {
	s := newTestSet(t)

	for i := 0; i < 20; i++ {
		_, err := s.Put(fmt.Sprintf("k%d", i))
		require.NoError(t, err)
	}

	assert.EqualValues(t, 20, s.LenEstimate())

	removed, err := s.RemoveWhere(func(k string) bool { return k != "k0" })
	require.NoError(t, err)
	assert.Equal(t, 19, removed)
	assert.True(t, s.Has("k0"))
	assert.EqualValues(t, 1, s.LenEstimate())
}

func TestSetIdentityComparator(t *testing.T) {
	type widget struct{ id int }

	s, err := nbhm.NewSet[*widget](8, nbhm.Identity[widget]())
	require.NoError(t, err)

	w1 := &widget{id: 1}
	w2 := &widget{id: 1} // equal value, distinct identity

	already, err := s.Put(w1)
	require.NoError(t, err)
	assert.False(t, already)

	assert.True(t, s.Has(w1))
	assert.False(t, s.Has(w2), "identity comparator must not treat equal-value pointers as the same element")
}

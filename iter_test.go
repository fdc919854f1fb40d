package nbhm_test

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/jonhanna/nbhm"
)

// TestIterVisitsEveryLiveEntry drains an Iterator into a plain Go map and
// diffs it against the expected contents with go-cmp, which gives a much
// more useful failure message than a bare assert.Equal would for a
// multi-entry mismatch.
func TestIterVisitsEveryLiveEntry(t *testing.T) {
	m, err := nbhm.NewComparable[string, int](4)
	require.NoError(t, err)

	want := make(map[string]int)

	for i := 0; i < 50; i++ {
		k := fmt.Sprintf("k%d", i)
		want[k] = i

		_, _, err := m.Put(k, i)
		require.NoError(t, err)
	}

	got := make(map[string]int)

	it := m.Iter()
	for it.Next() {
		got[it.Key()] = it.Value()
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("iterator contents mismatch (-want +got):\n%s", diff)
	}
}

package mergejoin_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"mapconsolidate/pkg/extseq"
	"mapconsolidate/pkg/mergejoin"
)

type taggedA struct {
	ID  uint64
	Tag string
}

type bRecord struct {
	ID   uint64
	Note string
}

func TestLeftSemiJoinMutateBasic(t *testing.T) {
	dir := t.TempDir()
	a, err := extseq.FromSlice(dir, false, []taggedA{{ID: 1}, {ID: 2}, {ID: 3}})
	require.NoError(t, err)
	b, err := extseq.FromSlice(dir, false, []bRecord{{ID: 2, Note: "matched"}})
	require.NoError(t, err)

	out, stats, err := mergejoin.LeftSemiJoinMutate(
		a, b,
		func(v *taggedA) uint64 { return v.ID },
		func(v bRecord) uint64 { return v.ID },
		func(v *taggedA, m bRecord) { v.Tag = m.Note },
		dir, false,
	)
	require.NoError(t, err)
	defer out.Remove()

	require.EqualValues(t, 1, stats.Matched)
	require.EqualValues(t, 2, stats.UnmatchedA)
	require.EqualValues(t, 0, stats.UnmatchedB)

	got, err := extseq.Collect(out)
	require.NoError(t, err)
	require.Equal(t, []taggedA{{ID: 1}, {ID: 2, Tag: "matched"}, {ID: 3}}, got)
}

// TestLeftSemiJoinMutateRepeatedAKey exercises this pipeline's tie-break
// rule directly: a run of equal-keyed A records is held against a single
// B record until A's key changes.
func TestLeftSemiJoinMutateRepeatedAKey(t *testing.T) {
	dir := t.TempDir()
	a, err := extseq.FromSlice(dir, false, []taggedA{{ID: 5}, {ID: 5}, {ID: 5}, {ID: 6}})
	require.NoError(t, err)
	b, err := extseq.FromSlice(dir, false, []bRecord{{ID: 5, Note: "five"}, {ID: 6, Note: "six"}})
	require.NoError(t, err)

	out, stats, err := mergejoin.LeftSemiJoinMutate(
		a, b,
		func(v *taggedA) uint64 { return v.ID },
		func(v bRecord) uint64 { return v.ID },
		func(v *taggedA, m bRecord) { v.Tag = m.Note },
		dir, false,
	)
	require.NoError(t, err)
	defer out.Remove()
	require.EqualValues(t, 4, stats.Matched)

	got, err := extseq.Collect(out)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		require.Equal(t, "five", got[i].Tag)
	}
	require.Equal(t, "six", got[3].Tag)
}

func TestInnerJoinEmit(t *testing.T) {
	dir := t.TempDir()
	ids, err := extseq.FromSlice(dir, false, []uint64{1, 2, 4})
	require.NoError(t, err)
	nodes, err := extseq.FromSlice(dir, false, []bRecord{{ID: 1, Note: "a"}, {ID: 2, Note: "b"}, {ID: 3, Note: "c"}})
	require.NoError(t, err)

	var emitted []string
	stats, err := mergejoin.InnerJoinEmit(
		ids, nodes,
		func(v uint64) uint64 { return v },
		func(v bRecord) uint64 { return v.ID },
		func(_ uint64, n bRecord) error {
			emitted = append(emitted, n.Note)
			return nil
		},
	)
	require.NoError(t, err)
	require.EqualValues(t, 2, stats.Matched)
	require.EqualValues(t, 1, stats.UnmatchedA)
	require.EqualValues(t, 1, stats.UnmatchedB)
	require.Equal(t, []string{"a", "b"}, emitted)
}
